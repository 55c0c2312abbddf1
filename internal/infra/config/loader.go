// Package config provides configuration loading functionality.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/runoshun/issue-tally/internal/domain"
)

// Ensure Loader implements domain.ConfigLoader.
var _ domain.ConfigLoader = (*Loader)(nil)

// Loader loads configuration from TOML files.
type Loader struct {
	projectDir    string // Directory holding .issue-tally.toml
	globalConfDir string // Path to global config directory (e.g., ~/.config/issue-tally)
}

// NewLoader creates a new Loader.
func NewLoader(projectDir string) *Loader {
	return &Loader{
		projectDir:    projectDir,
		globalConfDir: defaultGlobalConfigDir(),
	}
}

// NewLoaderWithGlobalDir creates a new Loader with a custom global config directory.
// This is useful for testing.
func NewLoaderWithGlobalDir(projectDir, globalConfDir string) *Loader {
	return &Loader{
		projectDir:    projectDir,
		globalConfDir: globalConfDir,
	}
}

// defaultGlobalConfigDir returns the default global config directory.
func defaultGlobalConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return domain.GlobalConfigDir(configHome)
}

// Load returns the merged configuration (project + global).
// Project config takes precedence over global config.
func (l *Loader) Load() (*domain.Config, error) {
	return l.LoadWithOptions(domain.LoadConfigOptions{})
}

// LoadGlobal returns only the global configuration.
func (l *Loader) LoadGlobal() (*domain.Config, error) {
	if l.globalConfDir == "" {
		return nil, os.ErrNotExist
	}
	return l.loadFile(filepath.Join(l.globalConfDir, domain.ConfigFileName))
}

// LoadProject returns only the project configuration.
func (l *Loader) LoadProject() (*domain.Config, error) {
	if l.projectDir == "" {
		return nil, os.ErrNotExist
	}
	return l.loadFile(domain.ProjectConfigPath(l.projectDir))
}

// LoadWithOptions returns the merged configuration with options to ignore sources.
func (l *Loader) LoadWithOptions(opts domain.LoadConfigOptions) (*domain.Config, error) {
	var global, project *domain.Config
	var err error

	if !opts.IgnoreGlobal {
		global, err = l.LoadGlobal()
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if !opts.IgnoreProject {
		project, err = l.LoadProject()
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	base := domain.NewDefaultConfig()

	// Merge: default <- global <- project (later takes precedence)
	if global != nil {
		base = mergeConfigs(base, global)
	}
	if project != nil {
		base = mergeConfigs(base, project)
	}

	return base, nil
}

// loadFile loads a configuration from a file.
func (l *Loader) loadFile(path string) (*domain.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return convertRawToDomainConfig(raw), nil
}

// convertRawToDomainConfig converts the raw map to domain config and collects warnings.
func convertRawToDomainConfig(raw map[string]any) *domain.Config {
	res := &domain.Config{}
	var warnings []string

	for section, value := range raw {
		m, ok := value.(map[string]any)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("unknown key: %s", section))
			continue
		}
		switch section {
		case "github":
			for k, v := range m {
				switch k {
				case "endpoint":
					if s, ok := v.(string); ok {
						res.GitHub.Endpoint = s
					}
				case "token_env":
					if s, ok := v.(string); ok {
						res.GitHub.TokenEnv = s
					}
				case "timeout":
					warnings = parseDuration(&res.GitHub.Timeout, section, k, v, warnings)
				default:
					warnings = append(warnings, fmt.Sprintf("unknown key in [github]: %s", k))
				}
			}
		case "retry":
			for k, v := range m {
				switch k {
				case "transient_delay":
					warnings = parseDuration(&res.Retry.TransientDelay, section, k, v, warnings)
				case "status_delay":
					warnings = parseDuration(&res.Retry.StatusDelay, section, k, v, warnings)
				case "max_retries":
					if n, ok := v.(int64); ok && n >= 0 {
						res.Retry.MaxRetries = int(n)
					} else {
						warnings = append(warnings, fmt.Sprintf("invalid value in [retry]: max_retries = %v", v))
					}
				default:
					warnings = append(warnings, fmt.Sprintf("unknown key in [retry]: %s", k))
				}
			}
		case "report":
			for k, v := range m {
				switch k {
				case "repo":
					if s, ok := v.(string); ok && s != "" {
						res.Report.Repo = s
						res.Report.RepoSet = true
					}
				case "format":
					if s, ok := v.(string); ok {
						res.Report.Format = s
					}
				default:
					warnings = append(warnings, fmt.Sprintf("unknown key in [report]: %s", k))
				}
			}
		case "log":
			for k, v := range m {
				switch k {
				case "level":
					if s, ok := v.(string); ok {
						res.Log.Level = s
					}
				case "file":
					if s, ok := v.(string); ok {
						res.Log.File = s
					}
				default:
					warnings = append(warnings, fmt.Sprintf("unknown key in [log]: %s", k))
				}
			}
		default:
			warnings = append(warnings, fmt.Sprintf("unknown section: %s", section))
		}
	}

	sort.Strings(warnings)
	res.Warnings = warnings
	return res
}

// parseDuration stores a duration string such as "10s" into dst.
func parseDuration(dst *domain.Duration, section, key string, v any, warnings []string) []string {
	s, ok := v.(string)
	if ok {
		d, err := time.ParseDuration(s)
		if err == nil && d >= 0 {
			*dst = domain.Duration(d)
			return warnings
		}
	}
	return append(warnings, fmt.Sprintf("invalid value in [%s]: %s = %v", section, key, v))
}

// mergeConfigs merges two configs, with override taking precedence.
func mergeConfigs(base, override *domain.Config) *domain.Config {
	result := &domain.Config{
		GitHub:   base.GitHub,
		Retry:    base.Retry,
		Report:   base.Report,
		Log:      base.Log,
		Warnings: append([]string{}, base.Warnings...),
	}

	result.Warnings = append(result.Warnings, override.Warnings...)

	if override.GitHub.Endpoint != "" {
		result.GitHub.Endpoint = override.GitHub.Endpoint
	}
	if override.GitHub.TokenEnv != "" {
		result.GitHub.TokenEnv = override.GitHub.TokenEnv
	}
	if override.GitHub.Timeout != 0 {
		result.GitHub.Timeout = override.GitHub.Timeout
	}
	if override.Retry.TransientDelay != 0 {
		result.Retry.TransientDelay = override.Retry.TransientDelay
	}
	if override.Retry.StatusDelay != 0 {
		result.Retry.StatusDelay = override.Retry.StatusDelay
	}
	if override.Retry.MaxRetries != 0 {
		result.Retry.MaxRetries = override.Retry.MaxRetries
	}
	if override.Report.Repo != "" {
		result.Report.Repo = override.Report.Repo
		result.Report.RepoSet = result.Report.RepoSet || override.Report.RepoSet
	}
	if override.Report.Format != "" {
		result.Report.Format = override.Report.Format
	}
	if override.Log.Level != "" {
		result.Log.Level = override.Log.Level
	}
	if override.Log.File != "" {
		result.Log.File = override.Log.File
	}

	return result
}
