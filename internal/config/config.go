// Package config provides configuration management for the taxdesk client.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"

	"github.com/taxdesk/portal-client/internal/constants"
)

// Config is the client configuration.
//
// Config file location: ~/.config/taxdesk/config
//
// INI format:
//
//	[portal]
//	portal_url = https://portal.example-cpa.com
//	api_token = <token>
//
//	[proxy]
//	mode = no-proxy            ; no-proxy | system | basic | ntlm
//	host =
//	port = 8080
//	user =
//	no_proxy =
//	warmup = false
//
//	[browse]
//	page_size = 10
//	show_archived = false
//	recursive = false
//
//	[esign]
//	max_attempts = 30
//	poll_interval_seconds = 2
//
//	[logging]
//	log_file =
//	level = info
//
//	[notifications]
//	enabled = false
type Config struct {
	// Portal connection settings
	PortalURL string
	APIToken  string

	// Proxy settings
	ProxyMode     string // "no-proxy", "ntlm", "basic", "system"
	ProxyHost     string
	ProxyPort     int
	ProxyUser     string
	ProxyPassword string // never persisted; prompted or taken from env
	NoProxy       string // Comma-separated list of hosts to bypass proxy
	ProxyWarmup   bool

	Browse        BrowseConfig
	ESign         ESignConfig
	Logging       LoggingConfig
	Notifications NotificationConfig
}

// BrowseConfig controls the documents list.
type BrowseConfig struct {
	// PageSize is the number of entries per page. Default: 10
	PageSize int

	// ShowArchived includes archived folders and documents in listings.
	ShowArchived bool

	// Recursive loads the whole library once and browses from the local cache.
	Recursive bool
}

// ESignConfig controls assignment polling.
type ESignConfig struct {
	// MaxAttempts bounds the status queries. Default: 30
	MaxAttempts int

	// PollIntervalSeconds is the fixed wait before each query. Default: 2
	PollIntervalSeconds int
}

// PollInterval returns the poll interval as a duration.
func (c ESignConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// LogFile, when set, receives a rotated copy of all log output.
	// "default" selects DefaultLogFile.
	LogFile string

	// Level is one of debug, info, warn, error. Default: info
	Level string
}

// NotificationConfig contains settings for desktop notifications.
type NotificationConfig struct {
	// Enabled sends a desktop notification when an e-sign assignment settles.
	Enabled bool
}

// Validation errors
var (
	ErrMissingPortalURL    = errors.New("portal_url is required")
	ErrMissingAPIToken     = errors.New("api_token is required")
	ErrInvalidPageSize     = fmt.Errorf("page_size must be between 1 and %d", constants.MaxPageSize)
	ErrInvalidMaxAttempts  = errors.New("max_attempts must be between 1 and 600")
	ErrInvalidPollInterval = errors.New("poll_interval_seconds must be between 1 and 300")
	ErrInvalidProxyMode    = errors.New("proxy mode must be one of no-proxy, system, basic, ntlm")
	ErrMissingProxyHost    = errors.New("proxy host is required for basic and ntlm modes")
	ErrInvalidLogLevel     = errors.New("log level must be one of debug, info, warn, error")
)

// Environment variable overrides
const (
	EnvPortalURL     = "TAXDESK_PORTAL_URL"
	EnvAPIToken      = "TAXDESK_API_TOKEN"
	EnvProxyPassword = "TAXDESK_PROXY_PASSWORD"
	EnvLogFile       = "TAXDESK_LOG_FILE"
	EnvLogLevel      = "TAXDESK_LOG_LEVEL"
)

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		PortalURL: "https://portal.taxdesk.app",
		ProxyMode: "no-proxy",
		ProxyPort: 8080,
		Browse: BrowseConfig{
			PageSize: constants.DefaultPageSize,
		},
		ESign: ESignConfig{
			MaxAttempts:         constants.ESignMaxAttempts,
			PollIntervalSeconds: int(constants.ESignPollInterval / time.Second),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultConfigPath returns ~/.config/taxdesk/config (or the Windows equivalent).
func DefaultConfigPath() (string, error) {
	var configDir string

	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", errors.New("USERPROFILE environment variable not set")
		}
		configDir = filepath.Join(userProfile, ".config", "taxdesk")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "taxdesk")
	}

	return filepath.Join(configDir, "config"), nil
}

// LoadConfig loads configuration from an INI file and applies environment overrides.
// If the file doesn't exist, defaults are returned with env overrides applied.
// A .env file in the working directory is loaded first when present; variables
// already set in the process environment win over it.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			applyEnv(cfg)
			return cfg, nil
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		applyEnv(cfg)
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	portal := iniFile.Section("portal")
	cfg.PortalURL = portal.Key("portal_url").MustString(cfg.PortalURL)
	cfg.APIToken = portal.Key("api_token").String()

	proxy := iniFile.Section("proxy")
	cfg.ProxyMode = proxy.Key("mode").MustString(cfg.ProxyMode)
	cfg.ProxyHost = proxy.Key("host").String()
	cfg.ProxyPort = proxy.Key("port").MustInt(cfg.ProxyPort)
	cfg.ProxyUser = proxy.Key("user").String()
	cfg.NoProxy = proxy.Key("no_proxy").String()
	cfg.ProxyWarmup = proxy.Key("warmup").MustBool(false)

	browse := iniFile.Section("browse")
	cfg.Browse.PageSize = browse.Key("page_size").MustInt(cfg.Browse.PageSize)
	cfg.Browse.ShowArchived = browse.Key("show_archived").MustBool(false)
	cfg.Browse.Recursive = browse.Key("recursive").MustBool(false)

	esign := iniFile.Section("esign")
	cfg.ESign.MaxAttempts = esign.Key("max_attempts").MustInt(cfg.ESign.MaxAttempts)
	cfg.ESign.PollIntervalSeconds = esign.Key("poll_interval_seconds").MustInt(cfg.ESign.PollIntervalSeconds)

	logging := iniFile.Section("logging")
	cfg.Logging.LogFile = logging.Key("log_file").String()
	cfg.Logging.Level = logging.Key("level").MustString(cfg.Logging.Level)

	cfg.Notifications.Enabled = iniFile.Section("notifications").Key("enabled").MustBool(false)

	applyEnv(cfg)
	return cfg, nil
}

// applyEnv overlays TAXDESK_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvPortalURL); v != "" {
		cfg.PortalURL = v
	}
	if v := os.Getenv(EnvAPIToken); v != "" {
		cfg.APIToken = v
	}
	if v := os.Getenv(EnvProxyPassword); v != "" {
		cfg.ProxyPassword = v
	}
	if v := os.Getenv(EnvLogFile); v != "" {
		cfg.Logging.LogFile = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
}

// SaveConfig saves configuration to an INI file.
// The proxy password is never written. The API token is, so the file is 0600.
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	sections := []struct {
		name   string
		values [][2]string
	}{
		{"portal", [][2]string{
			{"portal_url", cfg.PortalURL},
			{"api_token", cfg.APIToken},
		}},
		{"proxy", [][2]string{
			{"mode", cfg.ProxyMode},
			{"host", cfg.ProxyHost},
			{"port", strconv.Itoa(cfg.ProxyPort)},
			{"user", cfg.ProxyUser},
			{"no_proxy", cfg.NoProxy},
			{"warmup", strconv.FormatBool(cfg.ProxyWarmup)},
		}},
		{"browse", [][2]string{
			{"page_size", strconv.Itoa(cfg.Browse.PageSize)},
			{"show_archived", strconv.FormatBool(cfg.Browse.ShowArchived)},
			{"recursive", strconv.FormatBool(cfg.Browse.Recursive)},
		}},
		{"esign", [][2]string{
			{"max_attempts", strconv.Itoa(cfg.ESign.MaxAttempts)},
			{"poll_interval_seconds", strconv.Itoa(cfg.ESign.PollIntervalSeconds)},
		}},
		{"logging", [][2]string{
			{"log_file", cfg.Logging.LogFile},
			{"level", cfg.Logging.Level},
		}},
		{"notifications", [][2]string{
			{"enabled", strconv.FormatBool(cfg.Notifications.Enabled)},
		}},
	}

	for _, s := range sections {
		section, err := iniFile.NewSection(s.name)
		if err != nil {
			return fmt.Errorf("failed to create %s section: %w", s.name, err)
		}
		for _, kv := range s.values {
			section.Key(kv[0]).SetValue(kv[1])
		}
	}

	// Temporary file + rename for atomicity
	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// Validate checks if the configuration is usable for API calls.
func (cfg *Config) Validate() error {
	if err := cfg.ValidateForConnection(); err != nil {
		return err
	}

	if cfg.Browse.PageSize < 1 || cfg.Browse.PageSize > constants.MaxPageSize {
		return ErrInvalidPageSize
	}
	if cfg.ESign.MaxAttempts < 1 || cfg.ESign.MaxAttempts > 600 {
		return ErrInvalidMaxAttempts
	}
	if cfg.ESign.PollIntervalSeconds < 1 || cfg.ESign.PollIntervalSeconds > 300 {
		return ErrInvalidPollInterval
	}

	switch strings.ToLower(cfg.ProxyMode) {
	case "", "no-proxy", "system":
	case "basic", "ntlm":
		if strings.TrimSpace(cfg.ProxyHost) == "" {
			return ErrMissingProxyHost
		}
	default:
		return ErrInvalidProxyMode
	}

	switch strings.ToLower(cfg.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}

	return nil
}

// ValidateForConnection checks only the portal URL and token.
func (cfg *Config) ValidateForConnection() error {
	if strings.TrimSpace(cfg.PortalURL) == "" {
		return ErrMissingPortalURL
	}
	if strings.TrimSpace(cfg.APIToken) == "" {
		return ErrMissingAPIToken
	}
	return nil
}

// MaskedToken returns the API token with all but the last four characters hidden.
func (cfg *Config) MaskedToken() string {
	if len(cfg.APIToken) <= 4 {
		return strings.Repeat("*", len(cfg.APIToken))
	}
	return strings.Repeat("*", len(cfg.APIToken)-4) + cfg.APIToken[len(cfg.APIToken)-4:]
}
