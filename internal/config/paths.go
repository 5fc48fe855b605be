package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// LogDirectory returns the directory used for the default rotated log file.
//
// Locations:
//   - Windows: %LOCALAPPDATA%\TaxDesk\logs
//   - Unix: ~/.config/taxdesk/logs
func LogDirectory() string {
	if runtime.GOOS == "windows" {
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "taxdesk-logs")
			}
			localAppData = filepath.Join(homeDir, "AppData", "Local")
		}
		return filepath.Join(localAppData, "TaxDesk", "logs")
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), "taxdesk-logs")
		}
		return filepath.Join(homeDir, ".config", "taxdesk", "logs")
	}
	return filepath.Join(configDir, "taxdesk", "logs")
}

// DefaultLogFile returns the log file path used when logging is enabled without a path.
func DefaultLogFile() string {
	return filepath.Join(LogDirectory(), "taxdesk.log")
}

// EnsureLogDirectory creates the log directory with owner-only permissions.
func EnsureLogDirectory() error {
	return os.MkdirAll(LogDirectory(), 0700)
}

// LogFileDefault selects DefaultLogFile when used as the log_file setting.
const LogFileDefault = "default"

// ResolvedLogFile returns the log file to open, or "" when file logging is off.
// The default location's directory is created on demand.
func (l LoggingConfig) ResolvedLogFile() (string, error) {
	if l.LogFile != LogFileDefault {
		return l.LogFile, nil
	}
	if err := EnsureLogDirectory(); err != nil {
		return "", err
	}
	return DefaultLogFile(), nil
}
