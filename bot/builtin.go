package bot

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/oakbot/oak/command"
	"github.com/oakbot/oak/interact"
	"github.com/oakbot/oak/parse"
	"github.com/oakbot/oak/permit"
)

// Permission paths guarding the administrative built-ins.
const (
	PermInteraction = "oak.admin.interaction"
	PermPerm        = "oak.admin.perm"
)

func (b *Bot) registerBuiltins() error {
	for _, root := range []*command.Node{
		b.pingCommand(),
		b.helpCommand(),
		b.interactionCommand(),
		b.permCommand(),
	} {
		root.Prefix = b.cfg.Prefix
		if err := b.Commands.Register(root); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) pingCommand() *command.Node {
	return command.Literal("ping").
		Help("Check that the bot is alive.").
		Runs(func(ctx context.Context, c *command.Context) error {
			c.Reply("Pong!")
			return nil
		})
}

// helpCommand renders the command table, or one command's subtree.
func (b *Bot) helpCommand() *command.Node {
	return command.Literal("help").
		Help("List commands, or show one command's usage.").
		Runs(func(ctx context.Context, c *command.Context) error {
			roots := b.Commands.Roots()
			sort.Slice(roots, func(i, j int) bool {
				return roots[i].Name < roots[j].Name
			})
			for _, n := range roots {
				line := b.cfg.Prefix + n.Name
				if n.Doc != "" {
					line += " - " + n.Doc
				}
				c.Reply(line)
			}
			return nil
		}).
		Child(command.Arg("command", parse.String{}).
			Runs(func(ctx context.Context, c *command.Context) error {
				name, err := c.String("command")
				if err != nil {
					return err
				}
				for _, n := range b.Commands.Roots() {
					if n.Matches(strings.ToLower(name)) {
						c.Reply(renderUsage(b.cfg.Prefix, n)...)
						return nil
					}
				}
				return command.Failf("No command by name `%s`", name)
			}))
}

// renderUsage walks one command tree into indented usage lines.
func renderUsage(prefix string, n *command.Node) []string {
	var acc []string
	var walk func(n *command.Node, depth int)
	walk = func(n *command.Node, depth int) {
		name := n.Name
		if !n.Literal {
			name = "<" + name + ">"
		}
		line := strings.Repeat("  ", depth) + name
		if n.Doc != "" {
			line += " - " + n.Doc
		}
		acc = append(acc, line)
		for _, child := range n.Children {
			walk(child, depth+1)
		}
	}
	line := prefix + n.Name
	if n.Doc != "" {
		line += " - " + n.Doc
	}
	acc = append(acc, line)
	for _, child := range n.Children {
		walk(child, 1)
	}
	return acc
}

func (b *Bot) interactionCommand() *command.Node {
	list := command.Literal("list").
		Help("List registered interactions.").
		Runs(func(ctx context.Context, c *command.Context) error {
			all := b.Interactions.All()
			if len(all) == 0 {
				c.Reply("No interactions.")
				return nil
			}
			sort.Slice(all, func(i, j int) bool {
				return all[i].Id < all[j].Id
			})
			for _, ia := range all {
				line := ia.Id
				if ia.Name != "" {
					line += " (" + ia.Name + ")"
				}
				if ia.Persistent {
					line += " [persistent]"
				}
				c.Reply(line)
			}
			return nil
		})

	info := command.Literal("info").
		Help("Describe one interaction.").
		Child(command.Arg("id", parse.String{}).
			Runs(func(ctx context.Context, c *command.Context) error {
				ia, err := b.findInteraction(c)
				if err != nil {
					return err
				}
				c.Reply(fmt.Sprintf("id: %s", ia.Id))
				if ia.Name != "" {
					c.Reply(fmt.Sprintf("name: %s", ia.Name))
				}
				c.Reply(
					fmt.Sprintf("persistent: %v", ia.Persistent),
					fmt.Sprintf("trigger: %s", componentLabel(ia.Trigger.Meta().Name)),
					fmt.Sprintf("conditions: %d", len(ia.Conditions)),
					fmt.Sprintf("actions: %d", len(ia.Actions)))
				return nil
			}))

	del := command.Literal("delete").
		Help("Destroy one interaction.").
		Child(command.Arg("id", parse.String{}).
			Runs(func(ctx context.Context, c *command.Context) error {
				ia, err := b.findInteraction(c)
				if err != nil {
					return err
				}
				if err := ia.Destroy(); err != nil {
					return err
				}
				c.Reply(fmt.Sprintf("Destroyed %s.", ia.Id))
				return nil
			}))

	return command.Literal("interaction", "ia").
		Help("Inspect and manage interactions.").
		Assert(command.Permissions(PermInteraction)).
		Child(list, info, del)
}

func componentLabel(name string) string {
	if name == "" {
		return "(anonymous)"
	}
	return name
}

// findInteraction resolves the "id" argument by id first, then by
// name.
func (b *Bot) findInteraction(c *command.Context) (*interact.Interaction, error) {
	key, err := c.String("id")
	if err != nil {
		return nil, err
	}
	if ia, have := b.Interactions.Get(key); have {
		return ia, nil
	}
	if ia, have := b.Interactions.GetByName(key); have {
		return ia, nil
	}
	return nil, command.Failf("No interaction `%s`", key)
}

func (b *Bot) permCommand() *command.Node {
	get := command.Literal("get").
		Help("Show a subject's permit for a path.").
		Child(command.Arg("subject", parse.String{}).
			Child(command.Arg("path", parse.String{}).
				Runs(func(ctx context.Context, c *command.Context) error {
					subject, err := c.String("subject")
					if err != nil {
						return err
					}
					path, err := c.String("path")
					if err != nil {
						return err
					}
					p := b.Perms.Subject(subject).Check(path, permit.None)
					c.Reply(fmt.Sprintf("%s @ %s: %s", subject, path, p))
					return nil
				})))

	set := command.Literal("set").
		Help("Set a subject's permit for a path (allow, deny, or none).").
		Child(command.Arg("subject", parse.String{}).
			Child(command.Arg("path", parse.String{}).
				Child(command.Arg("value", parse.String{}).
					Runs(func(ctx context.Context, c *command.Context) error {
						subject, err := c.String("subject")
						if err != nil {
							return err
						}
						path, err := c.String("path")
						if err != nil {
							return err
						}
						value, err := c.String("value")
						if err != nil {
							return err
						}
						switch value {
						case "allow", "deny", "none":
						default:
							return command.Failf("Bad permit `%s`; want allow, deny, or none", value)
						}
						if err := b.Perms.Grant(ctx, subject, path, permit.ParsePermit(value)); err != nil {
							return err
						}
						c.Reply(fmt.Sprintf("%s @ %s: %s", subject, path, value))
						return nil
					}))))

	return command.Literal("perm").
		Help("Inspect and manage permissions.").
		Assert(command.Permissions(PermPerm)).
		Child(get, set)
}
