package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/1broseidon/winsession/internal/runtimepath"
	"github.com/1broseidon/winsession/internal/wm"
	"gopkg.in/yaml.v3"
)

// Display backends.
const (
	BackendStatic = "static"
	BackendX11    = "x11"
)

const (
	DefaultReconcileInterval = 5 * time.Second
	DefaultDisplayCacheTTL   = 2 * time.Second
	DefaultMetricsListen     = "127.0.0.1:9464"
)

// LoggingConfig configures the daemon logger.
type LoggingConfig struct {
	// Level controls logging verbosity: debug, info, warn, error
	Level string `yaml:"level,omitempty"`
	// Format is text (default) or json.
	Format string `yaml:"format,omitempty"`
	// File is the log file path; empty logs to stderr.
	File string `yaml:"file,omitempty"`
	// MaxSizeMB is the maximum log file size before rotation (default: 10)
	MaxSizeMB int `yaml:"max_size_mb,omitempty"`
	// MaxFiles is the number of rotated files to keep (default: 3)
	MaxFiles int `yaml:"max_files,omitempty"`
}

// StaticDisplay is one display served by the static backend.
type StaticDisplay struct {
	ID     uint64 `yaml:"id"`
	Name   string `yaml:"name,omitempty"`
	X      int32  `yaml:"x"`
	Y      int32  `yaml:"y"`
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`
	// Usable defaults to the full bounds.
	Usable *Region `yaml:"usable,omitempty"`
	// Density is pixels per 160 dpi (default: 1).
	Density float32 `yaml:"density,omitempty"`
	// Rotation in degrees: 0, 90, 180 or 270.
	Rotation int `yaml:"rotation,omitempty"`
}

// Region is a rectangle in screen coordinates.
type Region struct {
	X      int32  `yaml:"x"`
	Y      int32  `yaml:"y"`
	Width  uint32 `yaml:"width"`
	Height uint32 `yaml:"height"`
}

// DisplayConfig selects where display geometry comes from.
type DisplayConfig struct {
	// Backend is static (default) or x11.
	Backend string `yaml:"backend"`
	// X11Display names the X server for the x11 backend; empty uses DISPLAY.
	X11Display string `yaml:"x11_display,omitempty"`
	// CacheTTL bounds how long x11 monitor queries are reused.
	CacheTTL time.Duration `yaml:"cache_ttl,omitempty"`
	Displays []StaticDisplay `yaml:"displays,omitempty"`
}

// ServiceConfig configures the window manager service.
type ServiceConfig struct {
	// RestrictSystemWindows rejects system window types from clients.
	// Default: false
	RestrictSystemWindows *bool `yaml:"restrict_system_windows,omitempty"`
}

// ReconcilerConfig configures the dead-agent sweep.
type ReconcilerConfig struct {
	// Enabled defaults to true.
	Enabled  *bool         `yaml:"enabled,omitempty"`
	Interval time.Duration `yaml:"interval,omitempty"`
}

// MetricsConfig configures the prometheus endpoint.
type MetricsConfig struct {
	// Enabled defaults to true.
	Enabled *bool  `yaml:"enabled,omitempty"`
	Listen  string `yaml:"listen,omitempty"`
}

// HotkeysConfig binds global keys when the x11 backend is active. Key
// sequences use xgbutil syntax such as "Mod4-Mod1-d"; empty disables.
type HotkeysConfig struct {
	ToggleAll   string `yaml:"toggle_all,omitempty"`
	MinimizeAll string `yaml:"minimize_all,omitempty"`
}

// Config is the effective daemon configuration.
type Config struct {
	// Socket overrides the runtime socket path.
	Socket     string           `yaml:"socket,omitempty"`
	Logging    LoggingConfig    `yaml:"logging"`
	Display    DisplayConfig    `yaml:"display"`
	Service    ServiceConfig    `yaml:"service"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Hotkeys    HotkeysConfig    `yaml:"hotkeys"`
}

func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Display: DisplayConfig{
			Backend:  BackendStatic,
			CacheTTL: DefaultDisplayCacheTTL,
		},
		Reconciler: ReconcilerConfig{
			Interval: DefaultReconcileInterval,
		},
		Metrics: MetricsConfig{
			Listen: DefaultMetricsListen,
		},
		Hotkeys: HotkeysConfig{
			ToggleAll: "Mod4-Mod1-d",
		},
	}
}

// GetRestrictSystemWindows returns the effective value, defaulting to false.
func (s *ServiceConfig) GetRestrictSystemWindows() bool {
	if s == nil || s.RestrictSystemWindows == nil {
		return false
	}
	return *s.RestrictSystemWindows
}

// GetEnabled returns the effective value, defaulting to true.
func (r *ReconcilerConfig) GetEnabled() bool {
	if r == nil || r.Enabled == nil {
		return true
	}
	return *r.Enabled
}

// GetEnabled returns the effective value, defaulting to true.
func (m *MetricsConfig) GetEnabled() bool {
	if m == nil || m.Enabled == nil {
		return true
	}
	return *m.Enabled
}

// GetLoggingConfig returns the logging configuration with defaults applied.
func (c *Config) GetLoggingConfig() LoggingConfig {
	if c == nil {
		return LoggingConfig{Level: "info", Format: "text"}
	}
	cfg := c.Logging
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.File != "" {
		if cfg.MaxSizeMB == 0 {
			cfg.MaxSizeMB = 10
		}
		if cfg.MaxFiles == 0 {
			cfg.MaxFiles = 3
		}
	}
	return cfg
}

// SocketPath returns the configured socket or the runtime default.
func (c *Config) SocketPath() (string, error) {
	if c != nil && c.Socket != "" {
		return c.Socket, nil
	}
	return runtimepath.SocketPath()
}

// StaticDisplays converts the configured displays for the static backend.
func (c *Config) StaticDisplays() []wm.DisplayInfo {
	if c == nil {
		return nil
	}
	out := make([]wm.DisplayInfo, 0, len(c.Display.Displays))
	for _, d := range c.Display.Displays {
		info := wm.DisplayInfo{
			ID:       wm.DisplayID(d.ID),
			Name:     d.Name,
			Bounds:   wm.Rect{X: d.X, Y: d.Y, Width: d.Width, Height: d.Height},
			Density:  d.Density,
			Rotation: wm.Rotation(d.Rotation / 90),
		}
		if d.Usable != nil {
			info.Usable = wm.Rect{X: d.Usable.X, Y: d.Usable.Y, Width: d.Usable.Width, Height: d.Usable.Height}
		}
		if info.Name == "" {
			info.Name = fmt.Sprintf("display-%d", d.ID)
		}
		out = append(out, info)
	}
	return out
}

// Save writes the configuration to path, creating its directory.
func (c *Config) Save(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "logging.level", Err: fmt.Errorf("level must be one of: debug, info, warn, error")}
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return &ValidationError{Path: "logging.format", Err: fmt.Errorf("format must be one of: text, json")}
	}
	if c.Logging.MaxSizeMB < 0 {
		return &ValidationError{Path: "logging.max_size_mb", Err: fmt.Errorf("max_size_mb must be >= 0")}
	}
	if c.Logging.MaxFiles < 0 {
		return &ValidationError{Path: "logging.max_files", Err: fmt.Errorf("max_files must be >= 0")}
	}

	switch c.Display.Backend {
	case BackendStatic, BackendX11:
	default:
		return &ValidationError{Path: "display.backend", Err: fmt.Errorf("backend must be one of: static, x11")}
	}
	if c.Display.CacheTTL < 0 {
		return &ValidationError{Path: "display.cache_ttl", Err: fmt.Errorf("cache_ttl must be >= 0")}
	}
	seen := make(map[uint64]struct{}, len(c.Display.Displays))
	for i, d := range c.Display.Displays {
		if _, dup := seen[d.ID]; dup {
			return &ValidationError{Path: "display.displays", Err: fmt.Errorf("entry %d: duplicate display id %d", i, d.ID)}
		}
		seen[d.ID] = struct{}{}
		if d.Width == 0 || d.Height == 0 {
			return &ValidationError{Path: "display.displays", Err: fmt.Errorf("entry %d: width and height must be positive", i)}
		}
		if d.Rotation%90 != 0 || d.Rotation < 0 || d.Rotation > 270 {
			return &ValidationError{Path: "display.displays", Err: fmt.Errorf("entry %d: rotation must be one of: 0, 90, 180, 270", i)}
		}
		if d.Density < 0 {
			return &ValidationError{Path: "display.displays", Err: fmt.Errorf("entry %d: density must be >= 0", i)}
		}
	}

	if c.Reconciler.Interval <= 0 {
		return &ValidationError{Path: "reconciler.interval", Err: fmt.Errorf("interval must be > 0")}
	}
	if c.Metrics.GetEnabled() && c.Metrics.Listen == "" {
		return &ValidationError{Path: "metrics.listen", Err: fmt.Errorf("listen is required when metrics are enabled")}
	}
	return nil
}
