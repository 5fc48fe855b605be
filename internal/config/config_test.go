package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	if cfg.PortalURL != "https://portal.taxdesk.app" {
		t.Errorf("expected default PortalURL, got %s", cfg.PortalURL)
	}
	if cfg.Browse.PageSize != 10 {
		t.Errorf("expected default PageSize 10, got %d", cfg.Browse.PageSize)
	}
	if cfg.ESign.MaxAttempts != 30 {
		t.Errorf("expected default MaxAttempts 30, got %d", cfg.ESign.MaxAttempts)
	}
	if cfg.ESign.PollInterval() != 2*time.Second {
		t.Errorf("expected default PollInterval 2s, got %v", cfg.ESign.PollInterval())
	}
	if cfg.ProxyMode != "no-proxy" {
		t.Errorf("expected default ProxyMode no-proxy, got %s", cfg.ProxyMode)
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "taxdesk", "config")

	cfg := NewConfig()
	cfg.PortalURL = "https://portal.example-cpa.com"
	cfg.APIToken = "secret-token-1234"
	cfg.ProxyMode = "basic"
	cfg.ProxyHost = "proxy.local"
	cfg.ProxyPort = 3128
	cfg.ProxyPassword = "do-not-persist"
	cfg.Browse.PageSize = 25
	cfg.Browse.ShowArchived = true
	cfg.ESign.MaxAttempts = 12
	cfg.ESign.PollIntervalSeconds = 5
	cfg.Logging.Level = "debug"
	cfg.Notifications.Enabled = true

	if err := SaveConfig(cfg, configPath); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	info, err := os.Stat(configPath)
	if err != nil {
		t.Fatalf("config file was not created: %v", err)
	}
	if runtime.GOOS != "windows" && info.Mode().Perm() != 0600 {
		t.Errorf("expected 0600 permissions, got %o", info.Mode().Perm())
	}

	raw, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if strings.Contains(string(raw), "do-not-persist") {
		t.Error("proxy password must never be written to disk")
	}

	loaded, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if loaded.PortalURL != cfg.PortalURL {
		t.Errorf("PortalURL mismatch: expected %s, got %s", cfg.PortalURL, loaded.PortalURL)
	}
	if loaded.APIToken != cfg.APIToken {
		t.Errorf("APIToken mismatch: expected %s, got %s", cfg.APIToken, loaded.APIToken)
	}
	if loaded.ProxyHost != "proxy.local" || loaded.ProxyPort != 3128 {
		t.Errorf("proxy mismatch: got %s:%d", loaded.ProxyHost, loaded.ProxyPort)
	}
	if loaded.Browse.PageSize != 25 || !loaded.Browse.ShowArchived {
		t.Errorf("browse mismatch: got %+v", loaded.Browse)
	}
	if loaded.ESign.MaxAttempts != 12 || loaded.ESign.PollIntervalSeconds != 5 {
		t.Errorf("esign mismatch: got %+v", loaded.ESign)
	}
	if loaded.Logging.Level != "debug" {
		t.Errorf("expected level debug, got %s", loaded.Logging.Level)
	}
	if !loaded.Notifications.Enabled {
		t.Error("expected notifications enabled")
	}
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Browse.PageSize != 10 {
		t.Errorf("expected defaults, got PageSize %d", cfg.Browse.PageSize)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config")
	cfg := NewConfig()
	cfg.APIToken = "from-file"
	if err := SaveConfig(cfg, configPath); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	t.Setenv(EnvAPIToken, "from-env")
	t.Setenv(EnvPortalURL, "https://env.example.com")
	t.Setenv(EnvProxyPassword, "pw")

	loaded, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.APIToken != "from-env" {
		t.Errorf("expected env token to win, got %s", loaded.APIToken)
	}
	if loaded.PortalURL != "https://env.example.com" {
		t.Errorf("expected env portal url, got %s", loaded.PortalURL)
	}
	if loaded.ProxyPassword != "pw" {
		t.Errorf("expected proxy password from env, got %q", loaded.ProxyPassword)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := NewConfig()
		cfg.APIToken = "token"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"valid", func(*Config) {}, nil},
		{"missing token", func(c *Config) { c.APIToken = " " }, ErrMissingAPIToken},
		{"missing url", func(c *Config) { c.PortalURL = "" }, ErrMissingPortalURL},
		{"page size zero", func(c *Config) { c.Browse.PageSize = 0 }, ErrInvalidPageSize},
		{"page size too big", func(c *Config) { c.Browse.PageSize = 10000 }, ErrInvalidPageSize},
		{"attempts zero", func(c *Config) { c.ESign.MaxAttempts = 0 }, ErrInvalidMaxAttempts},
		{"interval zero", func(c *Config) { c.ESign.PollIntervalSeconds = 0 }, ErrInvalidPollInterval},
		{"bad proxy mode", func(c *Config) { c.ProxyMode = "socks" }, ErrInvalidProxyMode},
		{"ntlm without host", func(c *Config) { c.ProxyMode = "ntlm" }, ErrMissingProxyHost},
		{"bad level", func(c *Config) { c.Logging.Level = "trace" }, ErrInvalidLogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMaskedToken(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"", ""},
		{"abc", "***"},
		{"abcdefgh", "****efgh"},
	}
	for _, tt := range tests {
		cfg := &Config{APIToken: tt.token}
		if got := cfg.MaskedToken(); got != tt.want {
			t.Errorf("MaskedToken(%q) = %q, want %q", tt.token, got, tt.want)
		}
	}
}

func TestResolvedLogFile(t *testing.T) {
	off, err := LoggingConfig{}.ResolvedLogFile()
	if err != nil || off != "" {
		t.Fatalf("empty log_file: got %q, %v", off, err)
	}

	explicit := filepath.Join(t.TempDir(), "client.log")
	got, err := LoggingConfig{LogFile: explicit}.ResolvedLogFile()
	if err != nil || got != explicit {
		t.Fatalf("explicit log_file: got %q, %v", got, err)
	}

	if runtime.GOOS == "windows" {
		t.Setenv("LOCALAPPDATA", t.TempDir())
	} else {
		t.Setenv("HOME", t.TempDir())
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	}
	got, err = LoggingConfig{LogFile: LogFileDefault}.ResolvedLogFile()
	if err != nil {
		t.Fatalf("default log_file: %v", err)
	}
	if got != DefaultLogFile() || !strings.HasSuffix(got, "taxdesk.log") {
		t.Errorf("default log_file resolved to %q", got)
	}
	if info, err := os.Stat(LogDirectory()); err != nil || !info.IsDir() {
		t.Errorf("log directory not created: %v", err)
	}
}
