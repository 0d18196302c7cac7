package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config represents the full service configuration. It is loaded once
// at startup from an optional YAML file, then overlaid with
// environment variables, then validated.
type Config struct {
	// Server configures the HTTP API.
	Server ServerConfig `yaml:"server" json:"server"`

	// Browser configures how browser contexts are launched.
	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Target configures the site under automation.
	Target TargetConfig `yaml:"target" json:"target"`

	// Workflow configures timeouts and retry behavior shared by all
	// workflows.
	Workflow WorkflowConfig `yaml:"workflow" json:"workflow"`

	// Profiles configures where persistent browser profiles live.
	Profiles ProfilesConfig `yaml:"profiles" json:"profiles"`

	// Media configures image normalization before upload.
	Media MediaConfig `yaml:"media" json:"media"`
}

// ServerConfig defines the HTTP listener.
type ServerConfig struct {
	// Addr is the listen address, host:port.
	Addr string `yaml:"addr" json:"addr"`

	// ShutdownTimeoutMs bounds graceful shutdown.
	ShutdownTimeoutMs int `yaml:"shutdown_timeout_ms" json:"shutdown_timeout_ms"`
}

// BrowserConfig defines how browser contexts are launched. Timeouts
// are in milliseconds to match the driver's option values.
type BrowserConfig struct {
	Headless        bool     `yaml:"headless" json:"headless"`
	SlowMoMs        int      `yaml:"slow_mo_ms" json:"slow_mo_ms"`
	ViewportWidth   int      `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight  int      `yaml:"viewport_height" json:"viewport_height"`
	LaunchTimeoutMs int      `yaml:"launch_timeout_ms" json:"launch_timeout_ms"`
	Args            []string `yaml:"args" json:"args"`
}

// TargetConfig defines the site under automation.
type TargetConfig struct {
	// BaseURL is the site root, without a trailing slash.
	BaseURL string `yaml:"base_url" json:"base_url"`

	// GroupsFeedPath is the path of the aggregated groups feed.
	GroupsFeedPath string `yaml:"groups_feed_path" json:"groups_feed_path"`

	// AnonymousPostPath is the sub-path appended to a group root when
	// the composer cannot be found on the root page itself.
	AnonymousPostPath string `yaml:"anonymous_post_path" json:"anonymous_post_path"`

	// AllowedLinkPatterns are glob patterns a group link must match
	// before any navigation is attempted. Empty means allow all.
	AllowedLinkPatterns []string `yaml:"allowed_link_patterns" json:"allowed_link_patterns"`

	// DeniedLinkPatterns are glob patterns that reject a group link
	// outright. Denied patterns take precedence over allowed ones.
	DeniedLinkPatterns []string `yaml:"denied_link_patterns" json:"denied_link_patterns"`
}

// WorkflowConfig defines timeouts, pauses, and retry counts shared by
// the workflows. All timeouts are in milliseconds.
type WorkflowConfig struct {
	NavigationTimeoutMs int `yaml:"navigation_timeout_ms" json:"navigation_timeout_ms"`
	LoginFormTimeoutMs  int `yaml:"login_form_timeout_ms" json:"login_form_timeout_ms"`
	AuthMarkerTimeoutMs int `yaml:"auth_marker_timeout_ms" json:"auth_marker_timeout_ms"`
	PostLoginTimeoutMs  int `yaml:"post_login_timeout_ms" json:"post_login_timeout_ms"`
	ProbeTimeoutMs      int `yaml:"probe_timeout_ms" json:"probe_timeout_ms"`
	ActionTimeoutMs     int `yaml:"action_timeout_ms" json:"action_timeout_ms"`
	UploadTimeoutMs     int `yaml:"upload_timeout_ms" json:"upload_timeout_ms"`
	SettleDelayMs       int `yaml:"settle_delay_ms" json:"settle_delay_ms"`
	RetryPauseMs        int `yaml:"retry_pause_ms" json:"retry_pause_ms"`

	// PostAttempts is how many times the posting workflow tries a
	// session before giving up.
	PostAttempts int `yaml:"post_attempts" json:"post_attempts"`

	// GroupsPerSession is the default number of group links assigned
	// to each session by the join workflow.
	GroupsPerSession int `yaml:"groups_per_session" json:"groups_per_session"`

	// MaxConcurrency caps the worker count of any job regardless of
	// what the caller requests.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency"`
}

// ProfilesConfig defines where persistent browser profiles live.
type ProfilesConfig struct {
	// Root is the directory holding one profile directory per
	// account. Empty means ~/.fbbot/profiles.
	Root string `yaml:"root" json:"root"`
}

// MediaConfig defines image normalization before upload.
type MediaConfig struct {
	// MaxWidth is the widest an uploaded image may be. Wider images
	// are resized down preserving aspect ratio.
	MaxWidth int `yaml:"max_width" json:"max_width"`

	// JPEGQuality is the encode quality for normalized images.
	JPEGQuality int `yaml:"jpeg_quality" json:"jpeg_quality"`

	// WorkDir is where normalized copies are written. Empty means the
	// system temp directory.
	WorkDir string `yaml:"work_dir" json:"work_dir"`
}

// DefaultConfig returns a configuration suitable for most use cases.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:              ":8090",
			ShutdownTimeoutMs: 10000,
		},
		Browser: BrowserConfig{
			Headless:        true,
			SlowMoMs:        0,
			ViewportWidth:   1280,
			ViewportHeight:  800,
			LaunchTimeoutMs: 45000,
		},
		Target: TargetConfig{
			BaseURL:           "https://www.facebook.com",
			GroupsFeedPath:    "/groups/feed/",
			AnonymousPostPath: "buy_sell_discussion",
			AllowedLinkPatterns: []string{
				"https://www.facebook.com/groups/*",
				"https://facebook.com/groups/*",
				"https://m.facebook.com/groups/*",
				"https://web.facebook.com/groups/*",
			},
		},
		Workflow: WorkflowConfig{
			NavigationTimeoutMs: 30000,
			LoginFormTimeoutMs:  15000,
			AuthMarkerTimeoutMs: 8000,
			PostLoginTimeoutMs:  20000,
			ProbeTimeoutMs:      5000,
			ActionTimeoutMs:     10000,
			UploadTimeoutMs:     60000,
			SettleDelayMs:       2000,
			RetryPauseMs:        3000,
			PostAttempts:        2,
			GroupsPerSession:    3,
			MaxConcurrency:      8,
		},
		Profiles: ProfilesConfig{},
		Media: MediaConfig{
			MaxWidth:    1920,
			JPEGQuality: 85,
		},
	}
}

// Load builds the effective configuration: defaults, overlaid with the
// YAML file at path (if path is non-empty), overlaid with environment
// variables, then validated and resolved.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.resolvePaths(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overlays environment variables onto the configuration.
// Only a handful of deployment-facing settings are exposed this way.
func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("FBBOT_ADDR", c.Server.Addr)
	c.Browser.Headless = getEnvBool("FBBOT_HEADLESS", c.Browser.Headless)
	c.Target.BaseURL = getEnv("FBBOT_BASE_URL", c.Target.BaseURL)
	c.Profiles.Root = getEnv("FBBOT_PROFILES_ROOT", c.Profiles.Root)
	c.Workflow.MaxConcurrency = getEnvInt("FBBOT_MAX_CONCURRENCY", c.Workflow.MaxConcurrency)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}

	if c.Browser.ViewportWidth <= 0 || c.Browser.ViewportHeight <= 0 {
		return fmt.Errorf("browser viewport dimensions must be positive")
	}

	if c.Browser.LaunchTimeoutMs <= 0 {
		return fmt.Errorf("browser.launch_timeout_ms must be positive")
	}

	if c.Browser.SlowMoMs < 0 {
		return fmt.Errorf("browser.slow_mo_ms cannot be negative")
	}

	if c.Target.BaseURL == "" {
		return fmt.Errorf("target.base_url is required")
	}

	for _, field := range []struct {
		name  string
		value int
	}{
		{"workflow.navigation_timeout_ms", c.Workflow.NavigationTimeoutMs},
		{"workflow.login_form_timeout_ms", c.Workflow.LoginFormTimeoutMs},
		{"workflow.auth_marker_timeout_ms", c.Workflow.AuthMarkerTimeoutMs},
		{"workflow.post_login_timeout_ms", c.Workflow.PostLoginTimeoutMs},
		{"workflow.probe_timeout_ms", c.Workflow.ProbeTimeoutMs},
		{"workflow.action_timeout_ms", c.Workflow.ActionTimeoutMs},
		{"workflow.upload_timeout_ms", c.Workflow.UploadTimeoutMs},
	} {
		if field.value <= 0 {
			return fmt.Errorf("%s must be positive", field.name)
		}
	}

	if c.Workflow.SettleDelayMs < 0 || c.Workflow.RetryPauseMs < 0 {
		return fmt.Errorf("workflow pauses cannot be negative")
	}

	if c.Workflow.PostAttempts < 1 {
		return fmt.Errorf("workflow.post_attempts must be at least 1")
	}

	if c.Workflow.GroupsPerSession < 1 {
		return fmt.Errorf("workflow.groups_per_session must be at least 1")
	}

	if c.Workflow.MaxConcurrency < 1 {
		return fmt.Errorf("workflow.max_concurrency must be at least 1")
	}

	if c.Media.MaxWidth < 1 {
		return fmt.Errorf("media.max_width must be at least 1")
	}

	if c.Media.JPEGQuality < 1 || c.Media.JPEGQuality > 100 {
		return fmt.Errorf("media.jpeg_quality must be between 1 and 100")
	}

	return nil
}

// resolvePaths fills in defaulted directories that depend on the
// environment.
func (c *Config) resolvePaths() error {
	if c.Profiles.Root == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		c.Profiles.Root = filepath.Join(homeDir, ".fbbot", "profiles")
	}

	if c.Media.WorkDir == "" {
		c.Media.WorkDir = os.TempDir()
	}

	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
