package interact

import (
	"time"
)

// Confirm builds a one-shot interaction that waits for a reaction
// matching the given condition and then runs the action.  If nothing
// fires within timeout, the interaction is forcibly destroyed.  The
// timeout timer is cancelled when the interaction fires (or is
// destroyed) first, so a firing and the timer can never both
// complete it.
func Confirm(m *Manager, cond Condition, action Action, timeout time.Duration) (*Interaction, error) {
	b := m.Builder().
		When(NewReactionTrigger()).
		Then(action).
		Once()
	if cond != nil {
		b.OnlyIf(cond)
	}
	ia, err := b.Create()
	if err != nil {
		return nil, err
	}

	timer := time.AfterFunc(timeout, func() {
		ia.Destroy()
	})
	ia.OnDestroy(func() {
		timer.Stop()
	})
	return ia, nil
}
