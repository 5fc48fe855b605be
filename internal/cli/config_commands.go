package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/taxdesk/portal-client/internal/api"
	"github.com/taxdesk/portal-client/internal/config"
	"github.com/taxdesk/portal-client/internal/models"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage taxdesk configuration",
		Long: `Configuration management commands for taxdesk.

Commands:
  init  - Interactive configuration setup
  show  - Display current configuration
  test  - Test the portal connection
  path  - Show configuration file path`,
	}

	configCmd.AddCommand(newConfigInitCmd())
	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigTestCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// configPath returns --config or the default location.
func configPath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.DefaultConfigPath()
}

// newConfigInitCmd creates the 'config init' command.
func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize configuration interactively",
		Long: `Interactive configuration setup for taxdesk.

The configuration is saved to ~/.config/taxdesk/config with mode 0600.
The API token is read without echo.

Use --force to overwrite existing configuration.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}

			if !force {
				if _, err := os.Stat(path); err == nil {
					fmt.Printf("Configuration already exists at: %s\n", path)
					fmt.Println("Use --force to overwrite or run 'config show' to view current config.")
					return nil
				}
			}

			fmt.Println("TaxDesk Configuration Setup")
			fmt.Println("===========================")
			fmt.Println()

			cfg, err := runConfigWizard(bufio.NewReader(os.Stdin), os.Stdout, promptSecret)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			if err := config.SaveConfig(cfg, path); err != nil {
				return err
			}

			GetLogger().Info().Str("path", path).Msg("Configuration saved")
			fmt.Println()
			fmt.Printf("✓ Configuration saved to: %s\n", path)
			fmt.Println("Test your configuration with: taxdesk config test")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing configuration")

	return cmd
}

// runConfigWizard asks for each setting, offering the default in brackets.
func runConfigWizard(in *bufio.Reader, out io.Writer, secret func(string) (string, error)) (*config.Config, error) {
	cfg := config.NewConfig()

	ask := func(label, def string) string {
		if def != "" {
			fmt.Fprintf(out, "%s [%s]: ", label, def)
		} else {
			fmt.Fprintf(out, "%s: ", label)
		}
		line, _ := in.ReadString('\n')
		line = strings.TrimSpace(line)
		if line == "" {
			return def
		}
		return line
	}

	cfg.PortalURL = ask("Portal URL", cfg.PortalURL)

	for cfg.APIToken == "" {
		token, err := secret("API token (required): ")
		if err != nil {
			return nil, fmt.Errorf("failed to read API token: %w", err)
		}
		cfg.APIToken = token
		if token == "" {
			fmt.Fprintln(out, "  Error: API token is required")
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Browse Settings (press Enter for defaults)")
	fmt.Fprintln(out, "------------------------------------------")
	if v, err := strconv.Atoi(ask("Page size", strconv.Itoa(cfg.Browse.PageSize))); err == nil && v > 0 {
		cfg.Browse.PageSize = v
	}
	cfg.Browse.ShowArchived = yes(ask("Show archived items? [y/N]", ""))

	fmt.Fprintln(out)
	if yes(ask("Configure proxy? [y/N]", "")) {
		cfg.ProxyMode = ask("Proxy mode (no-proxy, system, basic, ntlm)", "system")
		if cfg.ProxyMode == "basic" || cfg.ProxyMode == "ntlm" {
			cfg.ProxyHost = ask("Proxy host", "")
			if v, err := strconv.Atoi(ask("Proxy port", strconv.Itoa(cfg.ProxyPort))); err == nil {
				cfg.ProxyPort = v
			}
			cfg.ProxyUser = ask("Proxy user (optional)", "")
			cfg.NoProxy = ask("No-proxy hosts (comma-separated, optional)", "")
		}
	}

	cfg.Notifications.Enabled = yes(ask("Desktop notification when e-sign requests settle? [y/N]", ""))

	return cfg, nil
}

func yes(answer string) bool {
	a := strings.ToLower(strings.TrimSpace(answer))
	return a == "y" || a == "yes"
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long:  `Display the effective configuration: file, environment and flags combined. The API token is masked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgFile)
			if err != nil {
				return err
			}
			if apiToken != "" {
				cfg.APIToken = apiToken
			}
			if portalURL != "" {
				cfg.PortalURL = portalURL
			}
			path, _ := configPath()
			printConfig(cmd.OutOrStdout(), cfg, path)
			return nil
		},
	}
}

func printConfig(w io.Writer, cfg *config.Config, path string) {
	fmt.Fprintln(w, "Current Configuration")
	fmt.Fprintln(w, "=====================")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Portal:")
	fmt.Fprintf(w, "  Portal URL: %s\n", cfg.PortalURL)
	if cfg.APIToken != "" {
		fmt.Fprintf(w, "  API Token:  %s\n", cfg.MaskedToken())
	} else {
		fmt.Fprintln(w, "  API Token:  <not set>")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Browse:")
	fmt.Fprintf(w, "  Page Size:     %d\n", cfg.Browse.PageSize)
	fmt.Fprintf(w, "  Show Archived: %t\n", cfg.Browse.ShowArchived)
	fmt.Fprintf(w, "  Recursive:     %t\n", cfg.Browse.Recursive)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "E-Sign:")
	fmt.Fprintf(w, "  Max Attempts:  %d\n", cfg.ESign.MaxAttempts)
	fmt.Fprintf(w, "  Poll Interval: %s\n", cfg.ESign.PollInterval())
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Proxy:")
	fmt.Fprintf(w, "  Proxy Mode: %s\n", cfg.ProxyMode)
	if cfg.ProxyHost != "" {
		fmt.Fprintf(w, "  Proxy Host: %s\n", cfg.ProxyHost)
		fmt.Fprintf(w, "  Proxy Port: %d\n", cfg.ProxyPort)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Configuration file: %s\n", path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintln(w, "  (file does not exist - using defaults)")
	}
}

// newConfigTestCmd creates the 'config test' command.
func newConfigTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Test the portal connection",
		Long:  `Browse the library root once to check the portal URL, token and proxy settings.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := getAPIClient()
			if err != nil {
				return err
			}

			fmt.Println("Testing Portal Connection")
			fmt.Println("=========================")
			fmt.Printf("Portal URL: %s\n", cfg.PortalURL)

			ctx, cancel := context.WithTimeout(GetContext(), 30*time.Second)
			defer cancel()

			start := time.Now()
			listing, err := client.BrowseFolders(ctx, api.BrowseQuery{FolderID: models.RootRef()})
			if err != nil {
				fmt.Println("✗ Connection FAILED")
				fmt.Printf("  %s\n", api.ErrorMessage(err))
				return err
			}

			fmt.Println("✓ Connection successful")
			fmt.Printf("  Root folders: %d\n", len(listing.Folders))
			fmt.Printf("  Round trip:   %s\n", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
