package settings

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/fsbadge/fsbadge/badge"
	"github.com/fsbadge/fsbadge/logging"
	"github.com/fsbadge/fsbadge/notify"
)

// Config keys.
const (
	KeyExcludedDirectories = "excludedDirectories"
	KeyLocStatusBar        = "loc.showInStatusBar"
	KeyLocTooltips         = "loc.showInTooltips"
	KeyStatusAlignment     = "statusBar.alignment"
	KeyStatusPriority      = "statusBar.priority"
	KeyProjectEnabled      = "project.enabled"
	KeyProjectTTL          = "project.ttl"
	KeyDebounce            = "debounce"
	KeyCacheSize           = "cache.size"
	KeyLogDir              = "log.dir"
)

// DefaultExcludedDirectories is used when the config sets none.
var DefaultExcludedDirectories = []string{".git", "node_modules", "dist", "build"}

// Settings is a snapshot of the configuration.
type Settings struct {
	ExcludedDirectories []string      `yaml:"excludedDirectories"`
	Loc                 Loc           `yaml:"loc"`
	StatusBar           StatusBar     `yaml:"statusBar"`
	Project             Project       `yaml:"project"`
	Debounce            time.Duration `yaml:"debounce"`
	CacheSize           int           `yaml:"cacheSize"`
	LogDir              string        `yaml:"logDir"`
}

// Loc holds the line-count display toggles.
type Loc struct {
	ShowInStatusBar bool `yaml:"showInStatusBar"`
	ShowInTooltips  bool `yaml:"showInTooltips"`
}

// StatusBar holds the status entry placement.
type StatusBar struct {
	Alignment string `yaml:"alignment"`
	Priority  int    `yaml:"priority"`
}

// Project holds the project size entry options.
type Project struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

// Defaults registers default values on v.
func Defaults(v *viper.Viper) {
	v.SetDefault(KeyExcludedDirectories, DefaultExcludedDirectories)
	v.SetDefault(KeyLocStatusBar, true)
	v.SetDefault(KeyLocTooltips, true)
	v.SetDefault(KeyStatusAlignment, string(badge.AlignLeft))
	v.SetDefault(KeyStatusPriority, 100)
	v.SetDefault(KeyProjectEnabled, true)
	v.SetDefault(KeyProjectTTL, badge.DefaultProjectTTL)
	v.SetDefault(KeyDebounce, notify.DefaultDelay)
	v.SetDefault(KeyCacheSize, 1000)
	v.SetDefault(KeyLogDir, "")

	v.SetEnvPrefix("FSBADGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// ReadFile points v at a config file and reads it. "~" is expanded.
func ReadFile(v *viper.Viper, path string) error {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return fmt.Errorf("expand config path: %w", err)
	}
	v.SetConfigFile(expanded)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", expanded, err)
	}
	logging.Sub("settings").Info("config loaded", "path", expanded)
	return nil
}

// Load takes a snapshot of v.
func Load(v *viper.Viper) Settings {
	s := Settings{
		ExcludedDirectories: v.GetStringSlice(KeyExcludedDirectories),
		Loc: Loc{
			ShowInStatusBar: v.GetBool(KeyLocStatusBar),
			ShowInTooltips:  v.GetBool(KeyLocTooltips),
		},
		StatusBar: StatusBar{
			Alignment: string(badge.ParseAlignment(v.GetString(KeyStatusAlignment))),
			Priority:  v.GetInt(KeyStatusPriority),
		},
		Project: Project{
			Enabled: v.GetBool(KeyProjectEnabled),
			TTL:     v.GetDuration(KeyProjectTTL),
		},
		Debounce:  v.GetDuration(KeyDebounce),
		CacheSize: v.GetInt(KeyCacheSize),
		LogDir:    v.GetString(KeyLogDir),
	}
	if s.LogDir != "" {
		if dir, err := homedir.Expand(s.LogDir); err == nil {
			s.LogDir = dir
		}
	}
	return s
}

// StatusOptions converts the snapshot to what the status entry reads.
func (s Settings) StatusOptions() badge.StatusOptions {
	return badge.StatusOptions{
		Loc:       s.LocOptions(),
		Alignment: badge.ParseAlignment(s.StatusBar.Alignment),
		Priority:  s.StatusBar.Priority,
	}
}

// LocOptions converts the line-count toggles.
func (s Settings) LocOptions() badge.LocOptions {
	return badge.LocOptions{
		ShowInStatusBar: s.Loc.ShowInStatusBar,
		ShowInTooltips:  s.Loc.ShowInTooltips,
	}
}

// Changed says which sections differ between two snapshots.
type Changed struct {
	// Badge covers anything that affects explorer decorations.
	Badge     bool
	StatusBar bool
	Loc       bool
	Project   bool
}

// Any reports whether anything changed.
func (c Changed) Any() bool {
	return c.Badge || c.StatusBar || c.Loc || c.Project
}

// Diff compares two snapshots.
func Diff(old, cur Settings) Changed {
	return Changed{
		Badge:     !slices.Equal(old.ExcludedDirectories, cur.ExcludedDirectories),
		StatusBar: old.StatusBar != cur.StatusBar,
		Loc:       old.Loc != cur.Loc,
		Project:   old.Project != cur.Project,
	}
}

// Watch re-reads the config file on change and calls fn with the new
// snapshot and what changed. Unchanged rewrites are ignored.
func Watch(v *viper.Viper, current Settings, fn func(Settings, Changed)) {
	l := logging.Sub("settings")
	last := current
	v.OnConfigChange(func(e fsnotify.Event) {
		next := Load(v)
		changed := Diff(last, next)
		last = next
		if !changed.Any() {
			l.Debug("config rewritten without changes", "file", e.Name)
			return
		}
		l.Info("config changed", "file", e.Name, "badge", changed.Badge, "statusBar", changed.StatusBar, "loc", changed.Loc)
		fn(next, changed)
	})
	v.WatchConfig()
}
