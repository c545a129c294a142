package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# output format: wav, pcm, or compressed
format: "wav"
# single-narrator mode (skip character detection)
narrator: false
# narrator voice id, see 'storyvox voices'
voice: ""

voices:
  # custom voice catalog file (YAML); empty uses the built-in catalog
  file: ""

# clip cache
cache:
  # cache directory (defaults to the user cache dir)
  dir: ""
  # maximum disk cache size in MB
  max_size_mb: 256

pipeline:
  # segment count above which the audio quality pass always runs
  optimize_threshold: 10
  # consecutive cache-backed generation failures before rendering
  # without the cache
  fallback_failures: 3
`

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the configuration file path, creating the file if needed",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}
		fmt.Println(configFile)
		return nil
	},
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
