package bot

import (
	"context"
	"errors"
	"sync"

	"github.com/oakbot/oak/permit"
	"github.com/oakbot/oak/storage"
)

// PermissionsDocument is the DataIO document name for the permission
// trees.
var PermissionsDocument = "permissions"

// Permissions stores one permission tree per subject (typically a
// platform author id), persisted as a single document.  Subjects are
// cached; a grant invalidates only that subject's cache.
type Permissions struct {
	store storage.DataIO

	mu       sync.Mutex
	subjects map[string]*permit.Subject
}

// NewPermissions makes an empty permission store.
func NewPermissions(store storage.DataIO) *Permissions {
	return &Permissions{
		store:    store,
		subjects: make(map[string]*permit.Subject),
	}
}

// Subject returns the cached Permissible for an id, creating an
// empty one on first sight.
func (p *Permissions) Subject(id string) *permit.Subject {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, have := p.subjects[id]
	if !have {
		s = permit.NewSubject(nil)
		p.subjects[id] = s
	}
	return s
}

// Grant sets a permit for a subject and persists the store.
func (p *Permissions) Grant(ctx context.Context, id, path string, perm permit.Permit) error {
	p.Subject(id).Grant(path, perm)
	return p.Save(ctx)
}

// Load restores all subjects' trees.  A missing document is not an
// error.
func (p *Permissions) Load(ctx context.Context) error {
	var trees map[string]*permit.Tree
	if err := p.store.Load(ctx, PermissionsDocument, &trees); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for id, tree := range trees {
		p.subjects[id] = permit.NewSubject(tree)
	}
	return nil
}

// Save persists every subject that has at least one permit set.
func (p *Permissions) Save(ctx context.Context) error {
	p.mu.Lock()
	trees := make(map[string]*permit.Tree, len(p.subjects))
	for id, s := range p.subjects {
		tree := s.Tree()
		if 0 < len(tree.Paths()) {
			trees[id] = tree
		}
	}
	p.mu.Unlock()

	return p.store.Save(ctx, PermissionsDocument, trees)
}
