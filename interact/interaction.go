package interact

import (
	"context"
	"fmt"
	"sync"
)

// Interaction is one registered rule: exactly one trigger, ordered
// conditions, ordered actions, and a lifetime policy.
type Interaction struct {
	// Id is unique for the process lifetime and is the primary
	// registry key.
	Id string

	// Name, if set, is a unique secondary lookup key.
	Name string

	// Persistent interactions are saved across restarts.
	Persistent bool

	Lifetime   Lifetime
	Trigger    Trigger
	Conditions []Condition
	Actions    []Action

	mgr *Manager

	mu        sync.Mutex
	created   bool
	destroyed bool
	onDestroy func()
}

// Fire wraps raw event arguments into a Context and fires.
func (ia *Interaction) Fire(ctx context.Context, args map[string]interface{}) (bool, error) {
	return ia.FireContext(ctx, &Context{Interaction: ia, Args: args})
}

// FireContext evaluates the conditions in order, short-circuiting on
// the first false; if all pass, runs every action in order, then
// consults the lifetime to decide whether to self-destruct.
//
// The returned bool reports whether the actions ran.  Action errors
// propagate to the firing site (which decides how to report them);
// an erroring action skips the remaining actions and the lifetime
// check.  Panics in conditions or actions are recovered into errors
// so one broken rule cannot take down the event loop.
func (ia *Interaction) FireContext(ctx context.Context, ic *Context) (fired bool, err error) {
	if ic.Interaction == nil {
		ic.Interaction = ia
	}

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("interaction %s panic: %v", ia.Id, p)
		}
	}()

	for _, cond := range ia.Conditions {
		ok, err := cond.Check(ctx, ic)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}

	for _, a := range ia.Actions {
		if err := a.Execute(ctx, ic); err != nil {
			return true, err
		}
	}

	if ia.Lifetime != nil && !ia.Lifetime.ShouldPersist(ic) {
		if derr := ia.Destroy(); derr != nil {
			return true, derr
		}
	}
	return true, nil
}

// Destroy unregisters the trigger and removes the interaction from
// the registry.  Idempotent: the trigger is detached exactly once.
func (ia *Interaction) Destroy() error {
	ia.mu.Lock()
	if ia.destroyed {
		ia.mu.Unlock()
		return nil
	}
	ia.destroyed = true
	created := ia.created
	hook := ia.onDestroy
	ia.mu.Unlock()

	var err error
	if created && ia.Trigger != nil {
		err = ia.Trigger.Detach(ia.mgr, ia)
	}
	if ia.mgr != nil {
		ia.mgr.remove(ia)
	}
	if hook != nil {
		hook()
	}
	return err
}

// Destroyed reports whether Destroy has run.
func (ia *Interaction) Destroyed() bool {
	ia.mu.Lock()
	defer ia.mu.Unlock()
	return ia.destroyed
}

// OnDestroy installs a hook run once when the interaction is
// destroyed.  Used by timeout helpers to cancel their timers.
func (ia *Interaction) OnDestroy(f func()) {
	ia.mu.Lock()
	defer ia.mu.Unlock()
	ia.onDestroy = f
}

func (ia *Interaction) markCreated() {
	ia.mu.Lock()
	defer ia.mu.Unlock()
	ia.created = true
}
