package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/maruel/natural"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type treeEntry struct {
	path string
	rel  string
	size int64
}

func newTreeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tree [DIR]",
		Short: "List files under a directory with their badges",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			root, err := absPath(dir)
			if err != nil {
				return err
			}

			s, _ := a.newSession(root, discardStatus, &printDisplay{w: io.Discard})
			defer s.Close()

			var entries []treeEntry
			err = afero.Walk(a.fs, root, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					if path == root {
						return err
					}
					return nil
				}
				if path != root && s.Excluded(path) {
					if info.IsDir() {
						return filepath.SkipDir
					}
					return nil
				}
				if !info.Mode().IsRegular() {
					return nil
				}
				rel, _ := filepath.Rel(root, path)
				entries = append(entries, treeEntry{path: path, rel: filepath.ToSlash(rel), size: info.Size()})
				return nil
			})
			if err != nil {
				return fmt.Errorf("walk %s: %w", dir, err)
			}

			sort.Slice(entries, func(i, j int) bool {
				return natural.Less(entries[i].rel, entries[j].rel)
			})

			out := cmd.OutOrStdout()
			var total int64
			for _, e := range entries {
				total += e.size
				d, ok := s.Decorate(cmd.Context(), e.path)
				if !ok {
					continue
				}
				fmt.Fprintf(out, "%-2s  %9s  %s\n", d.Badge, d.Tooltip, e.rel)
			}
			fmt.Fprintf(out, "%s files, %s\n", humanize.Comma(int64(len(entries))), humanize.IBytes(uint64(total)))
			return nil
		},
	}
}
