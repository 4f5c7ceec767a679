package interact

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrNoMessenger occurs when a reply or react action runs before a
// platform messenger is installed.
var ErrNoMessenger = errors.New("no messenger installed")

// Well-known event names published by the platform layer.
const (
	EventMessage  = "message"
	EventReaction = "reaction"
)

// EventTrigger fires an interaction on a fixed, named platform
// event.  The "message" and "reaction" base triggers are
// EventTriggers.
type EventTrigger struct {
	name     string
	event    string
	priority int
}

// NewMessageTrigger fires on every platform message.
func NewMessageTrigger() *EventTrigger {
	return &EventTrigger{name: "message", event: EventMessage}
}

// NewReactionTrigger fires on every platform reaction.
func NewReactionTrigger() *EventTrigger {
	return &EventTrigger{name: "reaction", event: EventReaction}
}

// WithPriority sets the dispatch priority (higher fires first) and
// returns t.
func (t *EventTrigger) WithPriority(p int) *EventTrigger {
	t.priority = p
	return t
}

func (t *EventTrigger) Meta() Meta {
	return Meta{Kind: KindTrigger, Name: t.name, Serializable: true}
}

func (t *EventTrigger) Attach(m *Manager, ia *Interaction) error {
	m.Subscribe(t.event, ia, t.priority)
	return nil
}

func (t *EventTrigger) Detach(m *Manager, ia *Interaction) error {
	m.Unsubscribe(t.event, ia)
	return nil
}

// NamedEventTrigger is the parameterized "event" trigger: it fires
// on an event name given as a parameter.
type NamedEventTrigger struct {
	event string
}

// NewNamedEventTrigger makes the base "event" trigger template (or,
// with a non-empty event, a bound instance).
func NewNamedEventTrigger(event string) *NamedEventTrigger {
	return &NamedEventTrigger{event: event}
}

func (t *NamedEventTrigger) Meta() Meta {
	return Meta{Kind: KindTrigger, Name: "event", Serializable: true, Parameterized: true}
}

func (t *NamedEventTrigger) Params() map[string]interface{} {
	return map[string]interface{}{"event": t.event}
}

func (t *NamedEventTrigger) With(params map[string]interface{}) (Component, error) {
	event, is := params["event"].(string)
	if !is || event == "" {
		return nil, fmt.Errorf(`event trigger needs an "event" parameter`)
	}
	return &NamedEventTrigger{event: event}, nil
}

func (t *NamedEventTrigger) Attach(m *Manager, ia *Interaction) error {
	if t.event == "" {
		return fmt.Errorf("event trigger template cannot be attached; bind it With parameters")
	}
	m.Subscribe(t.event, ia, 0)
	return nil
}

func (t *NamedEventTrigger) Detach(m *Manager, ia *Interaction) error {
	m.Unsubscribe(t.event, ia)
	return nil
}

// NewAuthorCondition passes when the event's author equals the
// "author" parameter.
func NewAuthorCondition() *ParamCondition {
	return NewParamCondition("author",
		func(ctx context.Context, ic *Context, params map[string]interface{}) (bool, error) {
			want, _ := params["author"].(string)
			return want != "" && ic.StringArg("author") == want, nil
		})
}

// NewChannelCondition passes when the event's channel equals the
// "channel" parameter.
func NewChannelCondition() *ParamCondition {
	return NewParamCondition("channel",
		func(ctx context.Context, ic *Context, params map[string]interface{}) (bool, error) {
			want, _ := params["channel"].(string)
			return want != "" && ic.StringArg("channel") == want, nil
		})
}

// NewContentMatchesCondition passes when the event's content matches
// the "pattern" parameter (a regular expression).
func NewContentMatchesCondition() *ParamCondition {
	return NewParamCondition("content-matches",
		func(ctx context.Context, ic *Context, params map[string]interface{}) (bool, error) {
			pat, _ := params["pattern"].(string)
			if pat == "" {
				return false, fmt.Errorf(`content-matches needs a "pattern" parameter`)
			}
			re, err := regexp.Compile(pat)
			if err != nil {
				return false, err
			}
			return re.MatchString(ic.StringArg("content")), nil
		})
}

// NewEmojiCondition passes when a reaction event's emoji equals the
// "emoji" parameter.
func NewEmojiCondition() *ParamCondition {
	return NewParamCondition("emoji",
		func(ctx context.Context, ic *Context, params map[string]interface{}) (bool, error) {
			want, _ := params["emoji"].(string)
			return want != "" && ic.StringArg("emoji") == want, nil
		})
}

// NewReplyAction sends the "text" parameter to the event's channel.
func NewReplyAction(m *Manager) *ParamAction {
	return NewParamAction("reply",
		func(ctx context.Context, ic *Context, params map[string]interface{}) error {
			text, _ := params["text"].(string)
			msgr := m.Messenger()
			if msgr == nil {
				return ErrNoMessenger
			}
			return msgr.Send(ctx, ic.StringArg("channel"), text)
		})
}

// NewReactAction reacts to the event's message with the "emoji"
// parameter.
func NewReactAction(m *Manager) *ParamAction {
	return NewParamAction("react",
		func(ctx context.Context, ic *Context, params map[string]interface{}) error {
			emoji, _ := params["emoji"].(string)
			msgr := m.Messenger()
			if msgr == nil {
				return ErrNoMessenger
			}
			return msgr.React(ctx, ic.StringArg("channel"), ic.StringArg("messageId"), emoji)
		})
}

// NewDestroyNamedAction destroys the interaction named by the "name"
// parameter.
func NewDestroyNamedAction(m *Manager) *ParamAction {
	return NewParamAction("destroy-named",
		func(ctx context.Context, ic *Context, params map[string]interface{}) error {
			name, _ := params["name"].(string)
			if ia, have := m.GetByName(name); have {
				return ia.Destroy()
			}
			return nil
		})
}

// RegisterStd populates the manager's base-component table with the
// standard triggers, conditions, and actions.
func RegisterStd(m *Manager) error {
	return m.RegisterBase(
		NewMessageTrigger(),
		NewReactionTrigger(),
		NewNamedEventTrigger(""),
		NewCronTrigger(""),
		NewAuthorCondition(),
		NewChannelCondition(),
		NewContentMatchesCondition(),
		NewEmojiCondition(),
		NewReplyAction(m),
		NewReactAction(m),
		NewDestroyNamedAction(m),
	)
}
