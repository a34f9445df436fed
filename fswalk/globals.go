package internal

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

var (
	// DefaultAppName is used for the config directory and env prefix
	DefaultAppName        = "fswalk"
	DefaultAppCMDShortCut = "fswalk"
	DefaultConfigPath     = filepath.Join(getHomeDir(), ".config", DefaultAppName)
	DefaultConfigFile     = filepath.Join(DefaultConfigPath, "config.yaml")
	DefaultEnvPrefix      = strings.ToUpper(DefaultAppName)
	DefaultIgnoreFileName = "." + DefaultAppName + "ignore"

	// Default traversal settings
	DefaultHighWaterMark = 4096
	DefaultEntryType     = "files"
	DefaultLogLevel      = "warn"
)

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current working directory if home directory is unavailable
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			log.Printf("Unable to get home or working directory, using /tmp: %v", err)
			return "/tmp"
		}
		log.Printf("Unable to get home directory, using current working directory: %v", err)
		return cwd
	}
	return homeDir
}

// NewLogger returns a zerolog logger writing to w at the named level.
// Unknown level names fall back to warn.
func NewLogger(w io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.WarnLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
