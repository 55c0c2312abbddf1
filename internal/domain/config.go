package domain

import (
	"bytes"
	_ "embed"
	"fmt"
	"path/filepath"
	"text/template"
	"time"
)

//go:embed config_template.toml
var configTemplateContent string

// Directory and file names for issue-tally.
const (
	AppDirName            = "issue-tally"       // Directory name under the user config home
	ConfigFileName        = "config.toml"       // Global config file name
	ProjectConfigFileName = ".issue-tally.toml" // Config file name in the working directory
)

// Default configuration values.
const (
	DefaultEndpoint       = "https://api.github.com/graphql"
	DefaultTimeout        = 60 * time.Second
	DefaultTransientDelay = 10 * time.Second
	DefaultStatusDelay    = 60 * time.Second
	DefaultRepo           = "osrf/ros2_test_cases"
	DefaultLogLevel       = "info"
)

// Format is the output format of a report.
type Format string

// Report formats.
const (
	FormatText Format = "text"
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// IsValid reports whether f is a known format.
func (f Format) IsValid() bool {
	switch f {
	case FormatText, FormatYAML, FormatJSON:
		return true
	}
	return false
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	if !f.IsValid() {
		return "", fmt.Errorf("%w: %q (want text, yaml or json)", ErrInvalidFormat, s)
	}
	return f, nil
}

// Duration is a time.Duration written as a Go duration string in config files.
type Duration time.Duration

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config represents the application configuration.
// Fields are ordered to minimize memory padding.
type Config struct {
	Warnings []string     `toml:"-"`
	GitHub   GitHubConfig `toml:"github"`
	Report   ReportConfig `toml:"report"`
	Log      LogConfig    `toml:"log"`
	Retry    RetryConfig  `toml:"retry"`
}

// GitHubConfig holds API settings from the [github] section.
type GitHubConfig struct {
	Endpoint string   `toml:"endpoint,omitempty"`  // GraphQL endpoint URL
	TokenEnv string   `toml:"token_env,omitempty"` // Environment variable holding the token
	Timeout  Duration `toml:"timeout,omitempty"`   // Per-request timeout
}

// RetryConfig holds retry settings from the [retry] section.
type RetryConfig struct {
	TransientDelay Duration `toml:"transient_delay,omitempty"` // Sleep after a network fault
	StatusDelay    Duration `toml:"status_delay,omitempty"`    // Sleep after a non-200 response
	MaxRetries     int      `toml:"max_retries,omitempty"`     // 0 retries forever
}

// ReportConfig holds report settings from the [report] section.
type ReportConfig struct {
	Repo    string `toml:"repo,omitempty"`   // Default repository
	Format  string `toml:"format,omitempty"` // text, yaml or json
	RepoSet bool   `toml:"-"`                // repo was given in a config file
}

// LogConfig holds logging settings from the [log] section.
type LogConfig struct {
	Level string `toml:"level,omitempty"` // debug, info, warn, error
	File  string `toml:"file,omitempty"`  // Optional log file, appended to
}

// ConfigInfo describes a config file on disk.
type ConfigInfo struct {
	Path    string
	Content string
	Exists  bool
}

// LoadConfigOptions selects which config sources are read.
type LoadConfigOptions struct {
	IgnoreGlobal  bool
	IgnoreProject bool
}

// GlobalConfigDir returns the global config directory.
// configHome is typically XDG_CONFIG_HOME or ~/.config (resolved by caller).
func GlobalConfigDir(configHome string) string {
	return filepath.Join(configHome, AppDirName)
}

// GlobalConfigPath returns the global config path.
func GlobalConfigPath(configHome string) string {
	return filepath.Join(GlobalConfigDir(configHome), ConfigFileName)
}

// ProjectConfigPath returns the project config path for a working directory.
func ProjectConfigPath(dir string) string {
	return filepath.Join(dir, ProjectConfigFileName)
}

// NewDefaultConfig returns a Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		GitHub: GitHubConfig{
			Endpoint: DefaultEndpoint,
			TokenEnv: DefaultTokenEnv,
			Timeout:  Duration(DefaultTimeout),
		},
		Retry: RetryConfig{
			TransientDelay: Duration(DefaultTransientDelay),
			StatusDelay:    Duration(DefaultStatusDelay),
		},
		Report: ReportConfig{
			Repo:   DefaultRepo,
			Format: string(FormatText),
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
	}
}

// templateData holds all data for rendering the config template.
type templateData struct {
	Endpoint       string
	TokenEnv       string
	Timeout        string
	TransientDelay string
	StatusDelay    string
	Repo           string
	Format         string
	LogLevel       string
	MaxRetries     int
	RepoSet        bool
}

// RenderConfigTemplate renders a commented config file from cfg.
func RenderConfigTemplate(cfg *Config) string {
	data := templateData{
		Endpoint:       cfg.GitHub.Endpoint,
		TokenEnv:       cfg.GitHub.TokenEnv,
		Timeout:        cfg.GitHub.Timeout.Std().String(),
		TransientDelay: cfg.Retry.TransientDelay.Std().String(),
		StatusDelay:    cfg.Retry.StatusDelay.Std().String(),
		MaxRetries:     cfg.Retry.MaxRetries,
		Repo:           cfg.Report.Repo,
		RepoSet:        cfg.Report.RepoSet || cfg.Report.Repo != DefaultRepo,
		Format:         cfg.Report.Format,
		LogLevel:       cfg.Log.Level,
	}

	tmpl, err := template.New("config").Delims("<<", ">>").Parse(configTemplateContent)
	if err != nil {
		// Should never happen with embedded template
		panic(fmt.Sprintf("failed to parse config template: %v", err))
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		// Should never happen with valid data
		panic(fmt.Sprintf("failed to execute config template: %v", err))
	}

	return buf.String()
}
