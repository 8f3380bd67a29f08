// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Interface defines the contract for accessing application configuration.
// Commands and the verification engine depend on it rather than on *Config
// so tests can hand them a hand-built value.
type Interface interface {
	Logger() LoggerConfig
	Browser() BrowserConfig
	Target() TargetConfig
	Timeouts() TimeoutConfig
	Retry() RetryConfig
	Output() OutputConfig
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	BrowserCfg  BrowserConfig `mapstructure:"browser" yaml:"browser"`
	TargetCfg   TargetConfig  `mapstructure:"target" yaml:"target"`
	TimeoutsCfg TimeoutConfig `mapstructure:"timeouts" yaml:"timeouts"`
	RetryCfg    RetryConfig   `mapstructure:"retry" yaml:"retry"`
	OutputCfg   OutputConfig  `mapstructure:"output" yaml:"output"`
}

// --- Getters ---

func (c *Config) Logger() LoggerConfig    { return c.LoggerCfg }
func (c *Config) Browser() BrowserConfig  { return c.BrowserCfg }
func (c *Config) Target() TargetConfig    { return c.TargetCfg }
func (c *Config) Timeouts() TimeoutConfig { return c.TimeoutsCfg }
func (c *Config) Retry() RetryConfig      { return c.RetryCfg }
func (c *Config) Output() OutputConfig    { return c.OutputCfg }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig maps log levels to color names understood by the console encoder.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the headless browser process.
type BrowserConfig struct {
	Headless        bool           `mapstructure:"headless" yaml:"headless"`
	ExecPath        string         `mapstructure:"exec_path" yaml:"exec_path"`
	IgnoreTLSErrors bool           `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	Args            []string       `mapstructure:"args" yaml:"args"`
	Viewport        ViewportConfig `mapstructure:"viewport" yaml:"viewport"`
	LaunchTimeout   time.Duration  `mapstructure:"launch_timeout" yaml:"launch_timeout"`
}

// ViewportConfig is the initial window size of the browser.
type ViewportConfig struct {
	Width  int `mapstructure:"width" yaml:"width"`
	Height int `mapstructure:"height" yaml:"height"`
}

// TargetConfig points at the application under test.
type TargetConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// TimeoutConfig bounds every suspension point of a run.
type TimeoutConfig struct {
	Navigation time.Duration `mapstructure:"navigation" yaml:"navigation"`
	Readiness  time.Duration `mapstructure:"readiness" yaml:"readiness"`
	// Action is the implicit visibility wait before fill/click/select.
	Action time.Duration `mapstructure:"action" yaml:"action"`
	// Assertion is the grace period an assertion polls before failing.
	Assertion time.Duration `mapstructure:"assertion" yaml:"assertion"`
	Settle    time.Duration `mapstructure:"settle" yaml:"settle"`
	// Capture bounds the final screenshot, which runs even after cancellation.
	Capture time.Duration `mapstructure:"capture" yaml:"capture"`
	Release time.Duration `mapstructure:"release" yaml:"release"`
}

// RetryConfig configures the bounded retry around readiness waits.
type RetryConfig struct {
	Attempts int           `mapstructure:"attempts" yaml:"attempts"`
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// OutputConfig names the artifacts a run produces.
type OutputConfig struct {
	Dir        string `mapstructure:"dir" yaml:"dir"`
	Screenshot string `mapstructure:"screenshot" yaml:"screenshot"`
	// Report is the JSON run report path. Empty disables it.
	Report string `mapstructure:"report" yaml:"report"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for every configuration key.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "uiverify")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "red")

	// -- Browser --
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.args", []string{})
	v.SetDefault("browser.viewport.width", 1280)
	v.SetDefault("browser.viewport.height", 800)
	v.SetDefault("browser.launch_timeout", "30s")

	// -- Target --
	v.SetDefault("target.base_url", "http://localhost:3000")

	// -- Timeouts --
	v.SetDefault("timeouts.navigation", "60s")
	v.SetDefault("timeouts.readiness", "20s")
	v.SetDefault("timeouts.action", "10s")
	v.SetDefault("timeouts.assertion", "5s")
	v.SetDefault("timeouts.settle", "2s")
	v.SetDefault("timeouts.capture", "30s")
	v.SetDefault("timeouts.release", "10s")

	// -- Retry --
	v.SetDefault("retry.attempts", 1)
	v.SetDefault("retry.interval", "500ms")

	// -- Output --
	v.SetDefault("output.dir", "")
	v.SetDefault("output.screenshot", "")
	v.SetDefault("output.report", "")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.TargetCfg.Validate(); err != nil {
		return fmt.Errorf("target configuration invalid: %w", err)
	}
	if err := c.TimeoutsCfg.Validate(); err != nil {
		return fmt.Errorf("timeouts configuration invalid: %w", err)
	}
	if err := c.RetryCfg.Validate(); err != nil {
		return fmt.Errorf("retry configuration invalid: %w", err)
	}
	if c.BrowserCfg.Viewport.Width <= 0 || c.BrowserCfg.Viewport.Height <= 0 {
		return fmt.Errorf("browser.viewport width and height must be positive integers")
	}
	if c.BrowserCfg.LaunchTimeout <= 0 {
		return fmt.Errorf("browser.launch_timeout must be a positive duration")
	}
	return nil
}

// Validate checks that the base URL is absolute.
func (t *TargetConfig) Validate() error {
	if strings.TrimSpace(t.BaseURL) == "" {
		return fmt.Errorf("base_url is required")
	}
	u, err := url.Parse(t.BaseURL)
	if err != nil {
		return fmt.Errorf("base_url %q is not a valid URL: %w", t.BaseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base_url %q must be absolute (scheme and host)", t.BaseURL)
	}
	return nil
}

// Validate requires every bounded wait to be positive. Settle may be zero.
func (t *TimeoutConfig) Validate() error {
	checks := []struct {
		name string
		d    time.Duration
	}{
		{"navigation", t.Navigation},
		{"readiness", t.Readiness},
		{"action", t.Action},
		{"assertion", t.Assertion},
		{"capture", t.Capture},
		{"release", t.Release},
	}
	for _, c := range checks {
		if c.d <= 0 {
			return fmt.Errorf("%s must be a positive duration", c.name)
		}
	}
	if t.Settle < 0 {
		return fmt.Errorf("settle must not be negative")
	}
	return nil
}

// Validate checks the RetryConfig settings.
func (r *RetryConfig) Validate() error {
	if r.Attempts < 1 {
		return fmt.Errorf("attempts must be at least 1")
	}
	if r.Attempts > 1 && r.Interval <= 0 {
		return fmt.Errorf("interval must be a positive duration when attempts > 1")
	}
	return nil
}
