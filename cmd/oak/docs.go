package main

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	md "github.com/russross/blackfriday/v2"
	"github.com/spf13/cobra"

	"github.com/oakbot/oak/bot"
	"github.com/oakbot/oak/command"
	"github.com/oakbot/oak/platform"
	"github.com/oakbot/oak/storage"
)

// nullClient satisfies platform.Client for offline tooling.
type nullClient struct {
	events chan platform.Event
}

func (n *nullClient) Start(ctx context.Context) error { return nil }
func (n *nullClient) Events() <-chan platform.Event   { return n.events }
func (n *nullClient) Send(ctx context.Context, channel, text string) error {
	return nil
}
func (n *nullClient) React(ctx context.Context, channel, messageId, emoji string) error {
	return nil
}
func (n *nullClient) Stop(ctx context.Context) error { return nil }

func newDocsCmd() *cobra.Command {
	var html bool

	cmd := &cobra.Command{
		Use:   "docs",
		Short: "Render the built-in command reference",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := &bot.Config{}
			if err := cfg.Validate(); err != nil {
				return err
			}
			b, err := bot.New(cfg, &nullClient{events: make(chan platform.Event)},
				storage.NewMemory(), nil)
			if err != nil {
				return err
			}
			return renderDocs(cmd.OutOrStdout(), cfg.Prefix, b.Commands.Roots(), html)
		},
	}
	cmd.Flags().BoolVar(&html, "html", false, "render HTML instead of markdown")
	return cmd
}

// renderDocs writes the command reference as markdown, optionally
// pushed through the markdown renderer for HTML.
func renderDocs(out io.Writer, prefix string, roots []*command.Node, html bool) error {
	sort.Slice(roots, func(i, j int) bool {
		return roots[i].Name < roots[j].Name
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "# Commands\n\n")
	for _, n := range roots {
		fmt.Fprintf(&sb, "## %s%s\n\n", prefix, n.Name)
		if 0 < len(n.Aliases) {
			fmt.Fprintf(&sb, "Aliases: %s\n\n", strings.Join(n.Aliases, ", "))
		}
		if n.Doc != "" {
			fmt.Fprintf(&sb, "%s\n\n", n.Doc)
		}
		renderChildren(&sb, n, 0)
		sb.WriteString("\n")
	}

	if !html {
		_, err := io.WriteString(out, sb.String())
		return err
	}
	_, err := out.Write(md.Run([]byte(sb.String())))
	return err
}

func renderChildren(sb *strings.Builder, n *command.Node, depth int) {
	for _, ch := range n.Children {
		name := ch.Name
		if !ch.Literal {
			name = "<" + name + ">"
		}
		fmt.Fprintf(sb, "%s- `%s`", strings.Repeat("  ", depth), name)
		if ch.Doc != "" {
			fmt.Fprintf(sb, " - %s", ch.Doc)
		}
		sb.WriteString("\n")
		renderChildren(sb, ch, depth+1)
	}
}
