package interact

import (
	"sync/atomic"
	"time"
)

// Lifetime decides, after each firing, whether the interaction
// survives.
type Lifetime interface {
	ShouldPersist(ic *Context) bool
}

// Forever never destroys the interaction.
type Forever struct{}

func (Forever) ShouldPersist(ic *Context) bool {
	return true
}

// OnceLifetime destroys the interaction after its first firing.
type OnceLifetime struct{}

func (OnceLifetime) ShouldPersist(ic *Context) bool {
	return false
}

// TimesLifetime destroys the interaction after n firings.
type TimesLifetime struct {
	remaining int64
}

// Times makes a lifetime of n firings.
func Times(n int) *TimesLifetime {
	return &TimesLifetime{remaining: int64(n)}
}

func (l *TimesLifetime) ShouldPersist(ic *Context) bool {
	return 0 < atomic.AddInt64(&l.remaining, -1)
}

// UntilLifetime destroys the interaction on the first firing at or
// after the deadline.
type UntilLifetime struct {
	Deadline time.Time
}

// Until makes a deadline lifetime.
func Until(deadline time.Time) *UntilLifetime {
	return &UntilLifetime{Deadline: deadline}
}

func (l *UntilLifetime) ShouldPersist(ic *Context) bool {
	return time.Now().Before(l.Deadline)
}
