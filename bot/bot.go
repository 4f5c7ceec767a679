// Package bot assembles the pieces: the command dispatcher, the
// interaction engine, the permission store, and a platform client,
// pumped by one event loop.
package bot

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/oakbot/oak/command"
	"github.com/oakbot/oak/interact"
	"github.com/oakbot/oak/interact/script"
	"github.com/oakbot/oak/platform"
	"github.com/oakbot/oak/service"
	"github.com/oakbot/oak/storage"
)

// Bot is one assembled bot instance.
type Bot struct {
	cfg *Config
	log *zap.Logger

	Commands     *command.Dispatcher
	Interactions *interact.Manager
	Perms        *Permissions

	client platform.Client
	store  storage.DataIO
}

// New wires a bot from its collaborators.  The standard interaction
// components and the built-in commands are registered here; the
// platform connection is not touched until the lifecycle runs.
func New(cfg *Config, client platform.Client, store storage.DataIO, log *zap.Logger) (*Bot, error) {
	if log == nil {
		log = zap.NewNop()
	}

	b := &Bot{
		cfg:          cfg,
		log:          log,
		Commands:     command.NewDispatcher(),
		Interactions: interact.NewManager(store, log),
		Perms:        NewPermissions(store),
		client:       client,
		store:        store,
	}
	b.Interactions.SetMessenger(client)

	if err := interact.RegisterStd(b.Interactions); err != nil {
		return nil, err
	}
	if err := script.Register(b.Interactions); err != nil {
		return nil, err
	}
	if err := b.registerBuiltins(); err != nil {
		return nil, err
	}
	return b, nil
}

// Register installs the bot's lifecycle hooks on an application
// context.
//
// Load restores persisted state; either document failing to load is
// logged and skipped so a corrupt store cannot brick the bot.
// Post-load connects the platform, which must succeed.  Ready starts
// the event pump.
func (b *Bot) Register(svc *service.Context) {
	svc.OnPhase(service.PhaseLoad, "load-permissions", service.Continue,
		func(ctx context.Context) error {
			return b.Perms.Load(ctx)
		})
	svc.OnPhase(service.PhaseLoad, "load-interactions", service.Continue,
		func(ctx context.Context) error {
			return b.Interactions.LoadAll(ctx)
		})
	svc.OnPhase(service.PhasePostLoad, "connect-platform", service.Abort,
		func(ctx context.Context) error {
			return b.client.Start(ctx)
		})
	svc.OnPhase(service.PhaseReady, "event-pump", service.Abort,
		func(ctx context.Context) error {
			go b.pump(ctx)
			return nil
		})
}

// Run is the convenience wrapper: build a context, run the
// lifecycle, then block until ctx is done or the platform stops.
func (b *Bot) Run(ctx context.Context) error {
	svc := service.NewContext(b.log)
	b.Register(svc)
	if err := svc.Run(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return b.client.Stop(context.Background())
}

// pump forwards every platform event to the interaction engine and
// routes prefixed messages through the command dispatcher.
func (b *Bot) pump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-b.client.Events():
			if !open {
				return
			}
			b.handle(ctx, ev)
		}
	}
}

func (b *Bot) handle(ctx context.Context, ev platform.Event) {
	b.Interactions.Handle(ctx, ev.Name, ev.Args)

	if ev.Name == platform.EventMessage {
		if content := ev.Arg("content"); strings.HasPrefix(content, b.cfg.Prefix) {
			b.dispatch(ctx, ev, content)
		}
	}
}

// dispatch runs one command line and renders its result back to the
// channel it came from.
func (b *Bot) dispatch(ctx context.Context, ev platform.Event, line string) {
	subject := b.Perms.Subject(ev.Arg("author"))
	res := b.Commands.Dispatch(ctx, line, ev, subject)

	// Aggregates are not traced themselves; each leaf carries its own
	// trace flag, so log per leaf or uncaught errors inside a
	// MultiFail would go dark.
	for _, leaf := range res.Unwrap() {
		if !leaf.Trace() {
			continue
		}
		fields := []zap.Field{
			zap.String("line", line),
			zap.String("author", ev.Arg("author")),
		}
		for _, err := range leaf.Errors() {
			fields = append(fields, zap.Error(err))
		}
		b.log.Error("command dispatch error", fields...)
	}

	if msg := res.Message(); msg != "" {
		if err := b.client.Send(ctx, ev.Arg("channel"), msg); err != nil {
			b.log.Warn("reply failed",
				zap.String("channel", ev.Arg("channel")),
				zap.Error(err))
		}
	}
}
