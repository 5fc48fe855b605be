package cli

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/taxdesk/portal-client/internal/config"
)

// TestConfigCmd tests the config command group
func TestConfigCmd(t *testing.T) {
	cmd := newConfigCmd()

	if cmd.Use != "config" {
		t.Errorf("Expected Use='config', got '%s'", cmd.Use)
	}

	expectedSubs := []string{"init", "show", "test", "path"}
	if len(cmd.Commands()) != len(expectedSubs) {
		t.Errorf("Expected %d subcommands, got %d", len(expectedSubs), len(cmd.Commands()))
	}

	foundSubs := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		foundSubs[sub.Name()] = true
		if sub.Short == "" {
			t.Errorf("Subcommand '%s' has no short description", sub.Name())
		}
		if sub.RunE == nil {
			t.Errorf("Subcommand '%s' has no RunE", sub.Name())
		}
	}
	for _, expected := range expectedSubs {
		if !foundSubs[expected] {
			t.Errorf("Subcommand '%s' not found", expected)
		}
	}
}

// TestConfigInit tests the config init command structure
func TestConfigInit(t *testing.T) {
	cmd := newConfigInitCmd()
	if cmd.Flags().Lookup("force") == nil {
		t.Error("--force flag not found")
	}
}

func TestConfigWizard(t *testing.T) {
	answers := strings.Join([]string{
		"",              // portal URL: keep default
		"25",            // page size
		"y",             // show archived
		"y",             // configure proxy
		"ntlm",          // proxy mode
		"proxy.local",   // host
		"3128",          // port
		`OFFICE\alice`,  // user
		"",              // no-proxy
		"yes",           // notifications
	}, "\n") + "\n"

	var prompts []string
	secret := func(prompt string) (string, error) {
		prompts = append(prompts, prompt)
		if len(prompts) == 1 {
			return "", nil
		}
		return "tok-1234567890", nil
	}

	var out bytes.Buffer
	cfg, err := runConfigWizard(bufio.NewReader(strings.NewReader(answers)), &out, secret)
	if err != nil {
		t.Fatalf("runConfigWizard() error = %v", err)
	}

	if len(prompts) != 2 || !strings.Contains(out.String(), "API token is required") {
		t.Errorf("expected the token prompt to repeat after an empty answer, prompts=%v", prompts)
	}
	if cfg.PortalURL != config.NewConfig().PortalURL {
		t.Errorf("PortalURL = %q, want default", cfg.PortalURL)
	}
	if cfg.APIToken != "tok-1234567890" {
		t.Errorf("APIToken = %q", cfg.APIToken)
	}
	if cfg.Browse.PageSize != 25 || !cfg.Browse.ShowArchived {
		t.Errorf("Browse = %+v", cfg.Browse)
	}
	if cfg.ProxyMode != "ntlm" || cfg.ProxyHost != "proxy.local" || cfg.ProxyPort != 3128 || cfg.ProxyUser != `OFFICE\alice` {
		t.Errorf("proxy = %s %s:%d %s", cfg.ProxyMode, cfg.ProxyHost, cfg.ProxyPort, cfg.ProxyUser)
	}
	if !cfg.Notifications.Enabled {
		t.Error("Notifications should be enabled")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("wizard produced an invalid config: %v", err)
	}
}

func TestConfigWizardDefaults(t *testing.T) {
	secret := func(string) (string, error) { return "tok-abcd", nil }
	cfg, err := runConfigWizard(bufio.NewReader(strings.NewReader("")), &bytes.Buffer{}, secret)
	if err != nil {
		t.Fatalf("runConfigWizard() error = %v", err)
	}
	if cfg.ProxyMode != "no-proxy" || cfg.Browse.ShowArchived || cfg.Notifications.Enabled {
		t.Errorf("EOF on every prompt should keep defaults, got %+v", cfg)
	}
}

func TestPrintConfigMasksToken(t *testing.T) {
	cfg := config.NewConfig()
	cfg.APIToken = "secret-token-9876"

	var out bytes.Buffer
	printConfig(&out, cfg, filepath.Join(t.TempDir(), "config"))

	if strings.Contains(out.String(), "secret-token") {
		t.Error("config show printed the raw token")
	}
	if !strings.Contains(out.String(), "9876") {
		t.Error("config show should print the token's last four characters")
	}
	if !strings.Contains(out.String(), "file does not exist") {
		t.Error("expected a note that the config file is missing")
	}
}

func TestConfigPathHonoursFlag(t *testing.T) {
	prev := cfgFile
	t.Cleanup(func() { cfgFile = prev })
	cfgFile = filepath.Join(t.TempDir(), "custom.ini")

	cmd := newConfigPathCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	if err := cmd.RunE(cmd, nil); err != nil {
		t.Fatalf("RunE error = %v", err)
	}
	if strings.TrimSpace(out.String()) != cfgFile {
		t.Errorf("path = %q, want %q", out.String(), cfgFile)
	}
}
