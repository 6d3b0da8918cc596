// Package cmd is the fsbadge command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/fsbadge/fsbadge/badge"
	"github.com/fsbadge/fsbadge/logging"
	"github.com/fsbadge/fsbadge/session"
	"github.com/fsbadge/fsbadge/settings"
)

// Version is set at build time.
var Version = ""

// app is the state shared by every subcommand of one invocation.
type app struct {
	v          *viper.Viper
	fs         afero.Fs
	configFile string
	verbose    bool
	cfg        settings.Settings
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().ExecuteContext(context.Background())
}

// NewRootCmd builds the command tree with a fresh configuration.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New(), fs: afero.NewOsFs()}

	root := &cobra.Command{
		Use:           "fsbadge",
		Short:         "Annotate files with their size and line counts",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.setup()
		},
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	root.Version = Version

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (yaml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log to the console")
	pf.StringSlice("exclude", nil, "directory names that get no annotation")
	pf.String("log-dir", "", "write rotating log files to this directory")
	bindFlags(a.v, pf, map[string]string{
		"exclude": settings.KeyExcludedDirectories,
		"log-dir": settings.KeyLogDir,
	})

	root.AddCommand(
		newDecorateCmd(a),
		newStatusCmd(a),
		newTreeCmd(a),
		newWatchCmd(a),
		newConfigCmd(a),
	)
	return root
}

// bindFlags binds the named flags to config keys.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	flags.VisitAll(func(f *pflag.Flag) {
		if key, ok := keys[f.Name]; ok {
			_ = v.BindPFlag(key, f)
		}
	})
}

func (a *app) setup() error {
	settings.Defaults(a.v)
	if a.configFile != "" {
		if err := settings.ReadFile(a.v, a.configFile); err != nil {
			return err
		}
	}
	a.cfg = settings.Load(a.v)

	if a.verbose || a.cfg.LogDir != "" {
		if err := logging.Init(a.cfg.LogDir); err != nil {
			return err
		}
	}
	return nil
}

// newSession creates a session over the real filesystem.
func (a *app) newSession(root string, status badge.DisplayFactory, project badge.Display) (*session.Session, *session.Workspace) {
	ws := session.NewWorkspace(root)
	s := session.New(session.Options{
		Fs:             a.fs,
		Workspace:      ws,
		Settings:       a.cfg,
		StatusDisplay:  status,
		ProjectDisplay: project,
	})
	return s, ws
}

func absPath(arg string) (string, error) {
	p, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", arg, err)
	}
	return p, nil
}

func discardStatus(badge.Alignment, int) badge.Display { return &printDisplay{w: io.Discard} }
