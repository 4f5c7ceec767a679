package permit

import (
	"sort"
	"strings"
	"sync"
)

// Tree is a hierarchical permission store.  A permit set at a node
// applies to everything below it; a deeper set permit overrides a
// shallower one.  "*" is a wildcard segment consulted when a literal
// segment is absent.
type Tree struct {
	Permit   Permit           `json:"permit,omitempty"`
	Set      bool             `json:"set,omitempty"`
	Children map[string]*Tree `json:"children,omitempty"`
}

// NewTree makes an empty Tree.
func NewTree() *Tree {
	return &Tree{}
}

// SetPath sets the permit at the given dotted path, creating
// intermediate nodes as needed.  Setting None clears the node.
func (t *Tree) SetPath(path string, p Permit) {
	node := t
	if path != "" {
		for _, seg := range strings.Split(path, ".") {
			if node.Children == nil {
				node.Children = make(map[string]*Tree)
			}
			child, have := node.Children[seg]
			if !have {
				child = &Tree{}
				node.Children[seg] = child
			}
			node = child
		}
	}
	node.Permit = p
	node.Set = p != None
}

// Check resolves the dotted path: the deepest permit set along the
// path wins; if nothing along the path is set, Check returns def.
func (t *Tree) Check(path string, def Permit) Permit {
	found := def
	node := t
	if node.Set {
		found = node.Permit
	}
	if path == "" {
		return found
	}
	for _, seg := range strings.Split(path, ".") {
		if node.Children == nil {
			return found
		}
		child, have := node.Children[seg]
		if !have {
			child, have = node.Children["*"]
		}
		if !have {
			return found
		}
		node = child
		if node.Set {
			found = node.Permit
		}
	}
	return found
}

// Paths returns every set path in sorted order.  Useful for
// rendering and tests.
func (t *Tree) Paths() []string {
	acc := make([]string, 0, 8)
	t.paths("", &acc)
	sort.Strings(acc)
	return acc
}

func (t *Tree) paths(prefix string, acc *[]string) {
	if t.Set {
		*acc = append(*acc, prefix)
	}
	for seg, child := range t.Children {
		p := seg
		if prefix != "" {
			p = prefix + "." + seg
		}
		child.paths(p, acc)
	}
}

// Subject is a Permissible backed by a Tree with a small lookup
// cache.  Writes invalidate the cache.
type Subject struct {
	mu    sync.Mutex
	tree  *Tree
	cache map[string]Permit
}

// NewSubject makes a Subject over the given tree (an empty tree if
// nil).
func NewSubject(tree *Tree) *Subject {
	if tree == nil {
		tree = NewTree()
	}
	return &Subject{
		tree:  tree,
		cache: make(map[string]Permit),
	}
}

// Check implements Permissible.
func (s *Subject) Check(path string, def Permit) Permit {
	s.mu.Lock()
	defer s.mu.Unlock()
	// The cache key includes the default since the default decides
	// the answer for unset paths.
	key := path + "\x00" + def.String()
	if p, have := s.cache[key]; have {
		return p
	}
	p := s.tree.Check(path, def)
	s.cache[key] = p
	return p
}

// Grant sets a permit and invalidates the cache.
func (s *Subject) Grant(path string, p Permit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree.SetPath(path, p)
	s.cache = make(map[string]Permit)
}

// Tree returns the underlying tree (for persistence).
func (s *Subject) Tree() *Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree
}
