package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fsbadge/fsbadge/badge"
)

func newStatusCmd(a *app) *cobra.Command {
	var fromStdin, tooltip bool

	cmd := &cobra.Command{
		Use:   "status FILE",
		Short: "Print the status bar text for a file",
		Long: "Print the status bar text for a file: line counts and size.\n" +
			"With --stdin the content is read from stdin as an unsaved buffer; the size still comes from disk.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := absPath(args[0])
			if err != nil {
				return err
			}

			display := &snapshotDisplay{}
			s, ws := a.newSession("", func(badge.Alignment, int) badge.Display { return display }, &printDisplay{w: io.Discard})
			defer s.Close()

			if fromStdin {
				b, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				ws.Open(p, string(b))
			}
			ws.Focus(p)
			s.UpdateStatus(cmd.Context())

			text, tip, ok := display.snapshot()
			if !ok {
				return fmt.Errorf("no status for %s", args[0])
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, text)
			if tooltip {
				fmt.Fprintln(out, tip)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "read the buffer content from stdin")
	cmd.Flags().BoolVar(&tooltip, "tooltip", false, "also print the tooltip")
	return cmd
}
