// Package cli provides the command-line interface for taxdesk.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/taxdesk/portal-client/internal/logging"
)

var (
	// Global flags
	cfgFile   string
	apiToken  string
	portalURL string
	verbose   bool
	debug     bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// ErrOutcomeUnknown is returned when an e-sign assignment was submitted
// but had not settled when polling stopped. It is not a failure.
var ErrOutcomeUnknown = errors.New("assignment outcome unknown")

// Exit codes
const (
	ExitOK             = 0
	ExitFailure        = 1
	ExitOutcomeUnknown = 2
)

// ExitCode maps an Execute error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrOutcomeUnknown):
		return ExitOutcomeUnknown
	}
	return ExitFailure
}

// Version information - set by main package at startup
var (
	Version   = "v0.9.0-dev"
	BuildTime = "unknown"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "taxdesk",
		Short: "TaxDesk - browse and manage your tax documents",
		Long: `TaxDesk ` + Version + ` - Built: ` + BuildTime + `
Command-line client for the TaxDesk client portal.

Browse the folders and documents your tax practice shares with you,
filter them by signature status, archive what you no longer need and
route documents for e-signature.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefaultCLILogger()
			if verbose || debug {
				logging.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&apiToken, "api-token", "", "Portal API token (overrides config and environment)")
	rootCmd.PersistentFlags().StringVar(&portalURL, "portal-url", "", "Portal base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug output (same as --verbose)")

	rootCmd.Version = Version + " (" + BuildTime + ")"

	completionCmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate a shell completion script",
		Long: `Generate shell completion scripts for taxdesk.

QUICK TEST (current session only):
  source <(taxdesk completion bash)
  source <(taxdesk completion zsh)
  taxdesk completion fish | source`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return rootCmd.GenBashCompletion(out)
			case "zsh":
				return rootCmd.GenZshCompletion(out)
			case "fish":
				return rootCmd.GenFishCompletion(out, true)
			case "powershell":
				return rootCmd.GenPowerShellCompletion(out)
			}
			return fmt.Errorf("unsupported shell %q", args[0])
		},
	}
	rootCmd.AddCommand(completionCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())
	defer cancelFunc()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Loop so repeated Ctrl+C does not block the sender.
	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\n\nReceived signal %v, cancelling operations...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()
	if err != nil && !errors.Is(err, ErrOutcomeUnknown) {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	}

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newDocsCmd())
	rootCmd.AddCommand(newFoldersCmd())
	rootCmd.AddCommand(newESignCmd())
	rootCmd.AddCommand(newConfigCmd())

	// 'ls' is the everyday entry point
	rootCmd.AddCommand(newLsShortcut())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
// This context will be cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}
