package script

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakbot/oak/interact"
)

type recordingMessenger struct {
	sends  []string
	reacts []string
}

func (r *recordingMessenger) Send(ctx context.Context, channel, text string) error {
	r.sends = append(r.sends, channel+": "+text)
	return nil
}

func (r *recordingMessenger) React(ctx context.Context, channel, messageId, emoji string) error {
	r.reacts = append(r.reacts, emoji)
	return nil
}

func boundCondition(t *testing.T, src string) *Condition {
	t.Helper()
	c, err := NewCondition().With(map[string]interface{}{"source": src})
	require.NoError(t, err)
	return c.(*Condition)
}

func TestConditionCheck(t *testing.T) {
	ctx := context.Background()
	ic := &interact.Context{
		Args: map[string]interface{}{
			"content": "!ping",
			"n":       3,
		},
	}

	for _, tc := range []struct {
		src  string
		want bool
	}{
		{`return _.args.content == "!ping";`, true},
		{`return _.args.content == "!pong";`, false},
		{`return 2 < _.args.n;`, true},
		{`return;`, false},
	} {
		got, err := boundCondition(t, tc.src).Check(ctx, ic)
		require.NoError(t, err, tc.src)
		assert.Equal(t, tc.want, got, tc.src)
	}
}

func TestConditionParams(t *testing.T) {
	src := `return true;`
	c := boundCondition(t, src)
	assert.Equal(t, map[string]interface{}{"source": src}, c.Params())

	meta := c.Meta()
	assert.Equal(t, interact.KindCondition, meta.Kind)
	assert.True(t, meta.Serializable)
	assert.True(t, meta.Parameterized)
}

func TestCompileError(t *testing.T) {
	_, err := NewCondition().With(map[string]interface{}{"source": `return (;`})
	require.Error(t, err)
}

func TestBadSourceParam(t *testing.T) {
	_, err := NewCondition().With(map[string]interface{}{})
	require.Error(t, err)

	_, err = NewCondition().With(map[string]interface{}{"source": 42})
	require.Error(t, err)
}

func TestUnboundCheck(t *testing.T) {
	_, err := NewCondition().Check(context.Background(), &interact.Context{})
	require.Error(t, err)
}

func TestInterrupt(t *testing.T) {
	timeout := DefaultTimeout
	DefaultTimeout = 50 * time.Millisecond
	defer func() {
		DefaultTimeout = timeout
	}()

	_, err := boundCondition(t, `for (;;) {}`).Check(context.Background(), &interact.Context{})
	require.Error(t, err)
	assert.Equal(t, Interrupted, err)
}

func TestActionReply(t *testing.T) {
	m := interact.NewManager(nil, nil)
	msgr := &recordingMessenger{}
	m.SetMessenger(msgr)

	c, err := NewAction(m).With(map[string]interface{}{
		"source": `_.reply("pong " + _.args.author);`,
	})
	require.NoError(t, err)
	a := c.(*Action)

	ic := &interact.Context{
		Args: map[string]interface{}{
			"channel": "general",
			"author":  "ana",
		},
	}
	require.NoError(t, a.Execute(context.Background(), ic))
	require.Len(t, msgr.sends, 1)
	assert.Equal(t, "general: pong ana", msgr.sends[0])
}

func TestActionNoMessenger(t *testing.T) {
	m := interact.NewManager(nil, nil)

	c, err := NewAction(m).With(map[string]interface{}{
		"source": `_.reply("hi");`,
	})
	require.NoError(t, err)

	err = c.(*Action).Execute(context.Background(), &interact.Context{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "no messenger"))
}

func TestRegister(t *testing.T) {
	m := interact.NewManager(nil, nil)
	require.NoError(t, Register(m))

	_, have := m.Base(interact.KindCondition, Name)
	assert.True(t, have)
	_, have = m.Base(interact.KindAction, Name)
	assert.True(t, have)
}
