package interact

import (
	"context"
	"errors"
	"fmt"

	"github.com/oakbot/oak/storage"

	"go.uber.org/zap"
)

// DocumentName is the DataIO document holding persisted
// interactions.
var DocumentName = "interactions"

// UnserializableMarker is the sentinel saved in place of a component
// that cannot be serialized.  An interaction containing one cannot
// be faithfully reconstructed, which is surfaced (as a warning) at
// both save and load time rather than silently dropped.
var UnserializableMarker = "!unserializable"

// ErrUnnamedBase occurs when RegisterBase is given a component with
// no name.
var ErrUnnamedBase = errors.New("a base component must have a name")

// UnknownComponent occurs when deserialization meets a key with no
// registered base component.
type UnknownComponent struct {
	Key string
}

func (e *UnknownComponent) Error() string {
	return "no base component for `" + e.Key + "`"
}

// Document is the persisted-file schema.
type Document struct {
	Interactions []*Entry `json:"interactions"`
}

// Entry is one persisted interaction.  Component references are
// either a bare "kind::name" key string or a {key, ...parameters}
// object.
type Entry struct {
	Id         string        `json:"id"`
	Name       string        `json:"name,omitempty"`
	Trigger    interface{}   `json:"trigger"`
	Conditions []interface{} `json:"conditions"`
	Actions    []interface{} `json:"actions"`
}

// saveComponent renders a component reference: the bare key for
// plain base components, key plus flattened parameters for
// parameterized ones, and the unserializable sentinel otherwise.
func (m *Manager) saveComponent(c Component) interface{} {
	meta := c.Meta()
	if !meta.Serializable || meta.Name == "" {
		m.log.Warn("unserializable interaction component",
			zap.String("kind", string(meta.Kind)))
		return UnserializableMarker
	}
	if !meta.Parameterized {
		return meta.Key()
	}

	p, is := c.(Parameterized)
	if !is {
		m.log.Warn("component claims parameters but has none",
			zap.String("key", meta.Key()))
		return UnserializableMarker
	}
	ref := map[string]interface{}{
		"key": meta.Key(),
	}
	for k, v := range p.Params() {
		if k == "key" {
			continue
		}
		ref[k] = v
	}
	return ref
}

// loadComponent resolves a component reference against the base
// table, binding parameters for parameterized components.
func (m *Manager) loadComponent(kind Kind, data interface{}) (Component, error) {
	var (
		key    string
		params map[string]interface{}
	)

	switch ref := data.(type) {
	case string:
		key = ref
	case map[string]interface{}:
		k, is := ref["key"].(string)
		if !is {
			return nil, fmt.Errorf("component reference has no key: %v", ref)
		}
		key = k
		params = make(map[string]interface{}, len(ref)-1)
		for name, v := range ref {
			if name != "key" {
				params[name] = v
			}
		}
	default:
		return nil, fmt.Errorf("bad component reference %#v", data)
	}

	if key == UnserializableMarker {
		return nil, &UnknownComponent{Key: key}
	}

	m.mu.Lock()
	base, have := m.base[key]
	m.mu.Unlock()
	if !have {
		return nil, &UnknownComponent{Key: key}
	}
	if base.Meta().Kind != kind {
		return nil, fmt.Errorf("component `%s` is not a %s", key, kind)
	}

	if params == nil {
		return base, nil
	}
	p, is := base.(Parameterized)
	if !is {
		return nil, fmt.Errorf("component `%s` takes no parameters", key)
	}
	return p.With(params)
}

// save renders one interaction as an Entry.
func (m *Manager) save(ia *Interaction) *Entry {
	e := &Entry{
		Id:         ia.Id,
		Name:       ia.Name,
		Trigger:    m.saveComponent(ia.Trigger),
		Conditions: make([]interface{}, 0, len(ia.Conditions)),
		Actions:    make([]interface{}, 0, len(ia.Actions)),
	}
	for _, c := range ia.Conditions {
		e.Conditions = append(e.Conditions, m.saveComponent(c))
	}
	for _, a := range ia.Actions {
		e.Actions = append(e.Actions, m.saveComponent(a))
	}
	return e
}

// load reconstructs and registers one persisted interaction.
func (m *Manager) load(e *Entry) (*Interaction, error) {
	trigger, err := m.loadComponent(KindTrigger, e.Trigger)
	if err != nil {
		return nil, err
	}

	ia := &Interaction{
		Id:         e.Id,
		Persistent: true,
		Lifetime:   Forever{},
		Trigger:    trigger.(Trigger),
		mgr:        m,
	}
	for _, ref := range e.Conditions {
		c, err := m.loadComponent(KindCondition, ref)
		if err != nil {
			return nil, err
		}
		ia.Conditions = append(ia.Conditions, c.(Condition))
	}
	for _, ref := range e.Actions {
		a, err := m.loadComponent(KindAction, ref)
		if err != nil {
			return nil, err
		}
		ia.Actions = append(ia.Actions, a.(Action))
	}

	if err := m.add(ia); err != nil {
		return nil, err
	}
	if e.Name != "" {
		if err := m.rename(ia, e.Name); err != nil {
			m.remove(ia)
			return nil, err
		}
	}
	if err := ia.Trigger.Attach(m, ia); err != nil {
		m.remove(ia)
		return nil, err
	}
	ia.markCreated()
	return ia, nil
}

// SaveAll persists every interaction flagged persistent.
func (m *Manager) SaveAll(ctx context.Context) error {
	doc := &Document{
		Interactions: make([]*Entry, 0, 8),
	}
	for _, ia := range m.All() {
		if ia.Persistent {
			doc.Interactions = append(doc.Interactions, m.save(ia))
		}
	}
	return m.store.Save(ctx, DocumentName, doc)
}

// LoadAll restores persisted interactions.  A corrupt entry is
// logged and skipped; it never blocks loading the rest.
func (m *Manager) LoadAll(ctx context.Context) error {
	var doc Document
	if err := m.store.Load(ctx, DocumentName, &doc); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}

	for _, e := range doc.Interactions {
		if _, err := m.load(e); err != nil {
			m.log.Warn("skipping persisted interaction",
				zap.String("id", e.Id),
				zap.String("name", e.Name),
				zap.Error(err))
		}
	}
	return nil
}
