package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

func newDecorateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "decorate PATH...",
		Short:   "Print the explorer badge and size tooltip for each path",
		Example: "fsbadge decorate main.go go.sum",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _ := a.newSession("", discardStatus, &printDisplay{w: io.Discard})
			defer s.Close()

			out := cmd.OutOrStdout()
			for _, arg := range args {
				p, err := absPath(arg)
				if err != nil {
					return err
				}
				d, ok := s.Decorate(cmd.Context(), p)
				if !ok {
					fmt.Fprintf(out, "%s\t-\n", arg)
					continue
				}
				fmt.Fprintf(out, "%s\t%s\t%s\n", arg, d.Badge, d.Tooltip)
			}
			return nil
		},
	}
}
