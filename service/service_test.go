package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvideResolve(t *testing.T) {
	c := NewContext(nil)

	require.NoError(t, c.Provide("store", 42))
	v, have := c.Resolve("store")
	require.True(t, have)
	assert.Equal(t, 42, v)

	err := c.Provide("store", 43)
	var dup *AlreadyProvided
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "store", dup.Name)

	_, have = c.Resolve("missing")
	assert.False(t, have)
}

func TestMustResolvePanics(t *testing.T) {
	c := NewContext(nil)
	assert.Panics(t, func() {
		c.MustResolve("missing")
	})
}

func TestPhasesRunInOrder(t *testing.T) {
	c := NewContext(nil)

	var order []string
	record := func(tag string) func(context.Context) error {
		return func(context.Context) error {
			order = append(order, tag)
			return nil
		}
	}

	// Registration order deliberately jumbled across phases.
	c.OnPhase(PhaseReady, "r1", Abort, record("r1"))
	c.OnPhase(PhaseLoad, "l1", Abort, record("l1"))
	c.OnPhase(PhasePostLoad, "p1", Abort, record("p1"))
	c.OnPhase(PhaseLoad, "l2", Abort, record("l2"))

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, []string{"l1", "l2", "p1", "r1"}, order)
}

func TestAbortStopsRun(t *testing.T) {
	c := NewContext(nil)
	boom := errors.New("boom")

	var ready int
	c.OnPhase(PhaseLoad, "broken", Abort, func(context.Context) error {
		return boom
	})
	c.OnPhase(PhaseReady, "never", Abort, func(context.Context) error {
		ready++
		return nil
	})

	err := c.Run(context.Background())
	var pe *PhaseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, PhaseLoad, pe.Phase)
	assert.Equal(t, "broken", pe.Hook)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, 0, ready)
}

func TestContinueKeepsGoing(t *testing.T) {
	c := NewContext(nil)

	var ready int
	c.OnPhase(PhaseLoad, "flaky", Continue, func(context.Context) error {
		return errors.New("shrug")
	})
	c.OnPhase(PhaseReady, "after", Abort, func(context.Context) error {
		ready++
		return nil
	})

	require.NoError(t, c.Run(context.Background()))
	assert.Equal(t, 1, ready)
}

func TestRunOnce(t *testing.T) {
	c := NewContext(nil)
	require.NoError(t, c.Run(context.Background()))
	require.Error(t, c.Run(context.Background()))
}
