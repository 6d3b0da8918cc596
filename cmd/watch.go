package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/fsbadge/fsbadge/badge"
	"github.com/fsbadge/fsbadge/logging"
	"github.com/fsbadge/fsbadge/notify"
	"github.com/fsbadge/fsbadge/settings"
)

func newWatchCmd(a *app) *cobra.Command {
	var active string

	cmd := &cobra.Command{
		Use:   "watch [DIR]",
		Short: "Watch a directory and print decoration and status updates",
		Long: "Watch a directory and print decoration and status updates as they happen.\n" +
			"Changes are debounced; each burst prints the affected paths once.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			root, err := absPath(dir)
			if err != nil {
				return err
			}

			out := &syncWriter{w: cmd.OutOrStdout()}
			s, ws := a.newSession(root,
				func(badge.Alignment, int) badge.Display { return &printDisplay{w: out, label: "status"} },
				&printDisplay{w: out, label: "project"})
			defer s.Close()

			if active != "" {
				p, err := absPath(active)
				if err != nil {
					return err
				}
				ws.Focus(p)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s.OnDidChangeDecorations(func(ev notify.Event) {
				printEvent(ctx, out, root, ev, s.Decorate)
			})
			if a.configFile != "" {
				settings.Watch(a.v, a.cfg, s.ConfigChanged)
			}

			if err := s.Run(ctx); err != nil {
				printRecentErrors(cmd.ErrOrStderr())
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&active, "active", "", "file to show in the status line")
	return cmd
}

// printRecentErrors lists the last logged errors, newest first.
func printRecentErrors(w io.Writer) {
	entries := logging.RecentErrors()
	if len(entries) == 0 {
		return
	}
	fmt.Fprintln(w, "recent errors:")
	for _, e := range entries {
		line := fmt.Sprintf("  %s %s: %s", e.Time.Format(time.TimeOnly), e.Comp, e.Message)
		if e.Error != "" {
			line += " (" + e.Error + ")"
		}
		fmt.Fprintln(w, line)
	}
}

type decorateFunc func(ctx context.Context, path string) (badge.Decoration, bool)

func printEvent(ctx context.Context, out *syncWriter, root string, ev notify.Event, decorate decorateFunc) {
	if ev.All {
		fmt.Fprintln(out, "refresh\t*")
		return
	}
	for _, p := range lo.Uniq(ev.Paths) {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			rel = p
		}
		d, ok := decorate(ctx, p)
		if !ok {
			fmt.Fprintf(out, "%s\t-\n", rel)
			continue
		}
		fmt.Fprintf(out, "%s\t%s\t%s\n", rel, d.Badge, d.Tooltip)
	}
}
