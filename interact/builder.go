package interact

import (
	"errors"
	"time"
)

// ErrNoTrigger occurs when Create is called on an interaction with
// no trigger: such a rule would silently never fire, so it fails
// fast instead.
var ErrNoTrigger = errors.New("interaction has no trigger")

// Builder assembles an interaction: when → onlyIf* → then* → create.
//
// The interaction is allocated, given its id, and registered into
// the manager's lookup maps as soon as the builder is made; Create
// finalizes it by attaching the trigger.
type Builder struct {
	ia  *Interaction
	err error
}

// Named sets the interaction's (unique) name.
func (b *Builder) Named(name string) *Builder {
	if b.err == nil {
		b.err = b.ia.mgr.rename(b.ia, name)
	}
	return b
}

// Persistent marks the interaction for persistence across restarts.
func (b *Builder) Persistent() *Builder {
	b.ia.Persistent = true
	return b
}

// When sets the trigger.
func (b *Builder) When(t Trigger) *Builder {
	b.ia.Trigger = t
	return b
}

// OnlyIf appends a condition.  Conditions are evaluated in the order
// they were appended.
func (b *Builder) OnlyIf(c Condition) *Builder {
	b.ia.Conditions = append(b.ia.Conditions, c)
	return b
}

// Then appends an action.  Actions run in the order they were
// appended.
func (b *Builder) Then(a Action) *Builder {
	b.ia.Actions = append(b.ia.Actions, a)
	return b
}

// Lifetime sets the lifetime policy (Forever if never called).
func (b *Builder) Lifetime(l Lifetime) *Builder {
	b.ia.Lifetime = l
	return b
}

// Once is shorthand for a single-firing lifetime.
func (b *Builder) Once() *Builder {
	return b.Lifetime(OnceLifetime{})
}

// Times is shorthand for an n-firing lifetime.
func (b *Builder) Times(n int) *Builder {
	return b.Lifetime(Times(n))
}

// Until is shorthand for a deadline lifetime.
func (b *Builder) Until(deadline time.Time) *Builder {
	return b.Lifetime(Until(deadline))
}

// Create finalizes the interaction by attaching its trigger.  With
// no trigger set, Create unregisters the half-built interaction and
// fails.
func (b *Builder) Create() (*Interaction, error) {
	ia := b.ia
	if b.err == nil && ia.Trigger == nil {
		b.err = ErrNoTrigger
	}
	if b.err != nil {
		ia.mgr.remove(ia)
		return nil, b.err
	}
	if err := ia.Trigger.Attach(ia.mgr, ia); err != nil {
		ia.mgr.remove(ia)
		return nil, err
	}
	ia.markCreated()
	return ia, nil
}
