package interact

import (
	"context"
	"sort"
	"sync"

	"github.com/oakbot/oak/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Messenger is the slice of the platform client that actions need.
type Messenger interface {
	Send(ctx context.Context, channel, text string) error
	React(ctx context.Context, channel, messageId, emoji string) error
}

// AlreadyRegistered occurs when an interaction id or name, or a base
// component key, is registered twice.  Registration rejects
// duplicates rather than silently overwriting.
type AlreadyRegistered struct {
	Key string
}

func (e *AlreadyRegistered) Error() string {
	return "already registered: " + e.Key
}

// Manager is the interaction registry: live interactions by id and
// by name, the base-component table driving deserialization, the
// event listener table, and persistence.
type Manager struct {
	mu           sync.Mutex
	interactions map[string]*Interaction
	byName       map[string]*Interaction
	base         map[string]Component
	listeners    map[string][]listener

	store storage.DataIO
	log   *zap.Logger
	msgr  Messenger

	seqCounter int
}

type listener struct {
	ia       *Interaction
	priority int
	seq      int
}

// NewManager makes a Manager over the given store.  A nil logger
// means no logging.
func NewManager(store storage.DataIO, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		interactions: make(map[string]*Interaction),
		byName:       make(map[string]*Interaction),
		base:         make(map[string]Component),
		listeners:    make(map[string][]listener),
		store:        store,
		log:          log,
	}
}

// SetMessenger installs the platform messenger used by the standard
// reply/react actions.
func (m *Manager) SetMessenger(msgr Messenger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgr = msgr
}

// Messenger returns the installed platform messenger (nil if none).
func (m *Manager) Messenger() Messenger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.msgr
}

// Builder allocates a fresh interaction with a unique id, registers
// it immediately (it is visible in the lookup maps before Create),
// and returns its builder.
func (m *Manager) Builder() *Builder {
	ia := &Interaction{
		Id:       uuid.NewString(),
		Lifetime: Forever{},
		mgr:      m,
	}
	b := &Builder{ia: ia}
	b.err = m.add(ia)
	return b
}

// RegisterBase adds a named component to the deserialization table.
// The table is normally populated once at startup.
func (m *Manager) RegisterBase(cs ...Component) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cs {
		meta := c.Meta()
		if meta.Name == "" {
			return ErrUnnamedBase
		}
		key := meta.Key()
		if _, have := m.base[key]; have {
			return &AlreadyRegistered{Key: key}
		}
		m.base[key] = c
	}
	return nil
}

// Base looks up a registered base component by kind and name.
func (m *Manager) Base(kind Kind, name string) (Component, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, have := m.base[string(kind)+"::"+name]
	return c, have
}

func (m *Manager) add(ia *Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, have := m.interactions[ia.Id]; have {
		return &AlreadyRegistered{Key: ia.Id}
	}
	m.interactions[ia.Id] = ia
	return nil
}

func (m *Manager) rename(ia *Interaction, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if other, have := m.byName[name]; have && other != ia {
		return &AlreadyRegistered{Key: name}
	}
	if ia.Name != "" {
		delete(m.byName, ia.Name)
	}
	ia.Name = name
	if name != "" {
		m.byName[name] = ia
	}
	return nil
}

func (m *Manager) remove(ia *Interaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.interactions, ia.Id)
	if ia.Name != "" {
		delete(m.byName, ia.Name)
	}
	for event, ls := range m.listeners {
		kept := ls[:0]
		for _, l := range ls {
			if l.ia != ia {
				kept = append(kept, l)
			}
		}
		m.listeners[event] = kept
	}
}

// Get returns the interaction with the given id.
func (m *Manager) Get(id string) (*Interaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ia, have := m.interactions[id]
	return ia, have
}

// GetByName returns the interaction with the given name.
func (m *Manager) GetByName(name string) (*Interaction, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ia, have := m.byName[name]
	return ia, have
}

// All returns the live interactions (in no particular order).
func (m *Manager) All() []*Interaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	acc := make([]*Interaction, 0, len(m.interactions))
	for _, ia := range m.interactions {
		acc = append(acc, ia)
	}
	return acc
}

// Subscribe adds an interaction to the listener list for an event
// name.  Higher priority fires first; equal priorities fire in
// subscription order.
func (m *Manager) Subscribe(event string, ia *Interaction, priority int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seqCounter++
	m.listeners[event] = append(m.listeners[event], listener{
		ia:       ia,
		priority: priority,
		seq:      m.seqCounter,
	})
}

// Unsubscribe removes an interaction from an event's listener list.
func (m *Manager) Unsubscribe(event string, ia *Interaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ls := m.listeners[event]
	kept := ls[:0]
	for _, l := range ls {
		if l.ia != ia {
			kept = append(kept, l)
		}
	}
	m.listeners[event] = kept
}

// Handle fans one platform event out to every subscribed
// interaction, in priority order.  Firing errors are logged and do
// not stop the fan-out: this is the event loop's unhandled-error
// policy.
func (m *Manager) Handle(ctx context.Context, event string, args map[string]interface{}) {
	m.mu.Lock()
	ls := make([]listener, len(m.listeners[event]))
	copy(ls, m.listeners[event])
	m.mu.Unlock()

	sort.SliceStable(ls, func(i, j int) bool {
		if ls[i].priority != ls[j].priority {
			return ls[i].priority > ls[j].priority
		}
		return ls[i].seq < ls[j].seq
	})

	for _, l := range ls {
		if _, err := l.ia.Fire(ctx, args); err != nil {
			m.log.Warn("interaction error",
				zap.String("id", l.ia.Id),
				zap.String("name", l.ia.Name),
				zap.String("event", event),
				zap.Error(err))
		}
	}
}
