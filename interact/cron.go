package interact

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorhill/cronexpr"
	"go.uber.org/zap"
)

// CronTrigger fires an interaction on a cron schedule.  It is the
// parameterized "cron" base trigger; the expression is the
// parameter.
//
// Each attached interaction gets its own timer goroutine, stopped on
// detach.
type CronTrigger struct {
	expr string

	mu    sync.Mutex
	stops map[*Interaction]chan struct{}
}

// NewCronTrigger makes the base "cron" trigger template (or, with a
// non-empty expression, a bound instance).
func NewCronTrigger(expr string) *CronTrigger {
	return &CronTrigger{
		expr:  expr,
		stops: make(map[*Interaction]chan struct{}),
	}
}

func (t *CronTrigger) Meta() Meta {
	return Meta{Kind: KindTrigger, Name: "cron", Serializable: true, Parameterized: true}
}

func (t *CronTrigger) Params() map[string]interface{} {
	return map[string]interface{}{"expr": t.expr}
}

func (t *CronTrigger) With(params map[string]interface{}) (Component, error) {
	expr, is := params["expr"].(string)
	if !is || expr == "" {
		return nil, fmt.Errorf(`cron trigger needs an "expr" parameter`)
	}
	if _, err := cronexpr.Parse(expr); err != nil {
		return nil, err
	}
	return NewCronTrigger(expr), nil
}

func (t *CronTrigger) Attach(m *Manager, ia *Interaction) error {
	schedule, err := cronexpr.Parse(t.expr)
	if err != nil {
		return err
	}

	stop := make(chan struct{})
	t.mu.Lock()
	t.stops[ia] = stop
	t.mu.Unlock()

	go func() {
		for {
			next := schedule.Next(time.Now())
			if next.IsZero() {
				return
			}
			timer := time.NewTimer(time.Until(next))
			select {
			case <-stop:
				timer.Stop()
				return
			case at := <-timer.C:
				if _, err := ia.Fire(context.Background(), map[string]interface{}{
					"time": at,
					"expr": t.expr,
				}); err != nil {
					m.log.Warn("cron interaction error",
						zap.String("id", ia.Id),
						zap.Error(err))
				}
			}
		}
	}()

	return nil
}

func (t *CronTrigger) Detach(m *Manager, ia *Interaction) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if stop, have := t.stops[ia]; have {
		close(stop)
		delete(t.stops, ia)
	}
	return nil
}
