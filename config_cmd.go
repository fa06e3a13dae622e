package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# speech backend: auto, sim, say or piper
backend: auto
# wait this long before speaking so quick restarts don't stutter
settle_delay: 300ms
# where --preset and "narrate list" look for meditations
library_dir: ""

voice:
  # backend voice name, empty for the default voice
  name: ""
  # speaking rate multiplier (0.5 to 2.0)
  rate: 1.0
  pitch: 1.0
  # output volume (0.0 to 1.0)
  volume: 1.0

# simulated speech, used when no real backend is available
sim:
  words_per_minute: 150
  # run faster than real time, e.g. 10 for a quick preview
  time_scale: 1.0

# macOS say
say:
  binary: say

piper:
  binary: piper
  # path to an .onnx voice model
  model: ""
  # model config, defaults to <model>.json
  config: ""
  sample_rate: 22050
  timeout: 30s

# synthesized audio cache
cache:
  enabled: true
  # defaults to the user cache directory
  dir: ""
  memory_mb: 64
  disk_mb: 512
  compression_level: 3
  ttl: 168h
`

var printDefaults bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Edit the narrate config file",
	Long: paragraph(fmt.Sprintf("\n%s the narrate config file in $EDITOR, creating it with the defaults first if needed.",
		keyword("Edit"))),
	Example: paragraph("narrate config\nnarrate config --config path/to/narrate.yml\nnarrate config --print-defaults > narrate.yml"),
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if printDefaults {
			_, err := fmt.Fprint(cmd.OutOrStdout(), defaultConfig)
			return err //nolint:wrapcheck
		}
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Narrate", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Wrote config file to:", configFile)
		return nil
	},
}

func init() {
	configCmd.Flags().BoolVar(&printDefaults, "print-defaults", false, "print the default configuration and exit")
}

// ensureConfigFile writes the commented defaults to configFile unless a
// file is already there.
func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
	}
	if configFile == "" {
		return errors.New("no config file location: pass --config")
	}

	if ext := filepath.Ext(configFile); !slices.Contains([]string{".yaml", ".yml"}, ext) {
		return fmt.Errorf("%q is not a supported configuration type: use .yaml or .yml", ext)
	}

	_, err := os.Stat(configFile)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("unable to stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
		return fmt.Errorf("unable to create directory: %w", err)
	}
	if err := os.WriteFile(configFile, []byte(defaultConfig), 0o600); err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}
	return nil
}
