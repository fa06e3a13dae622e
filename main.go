// Package main provides the entry point for the narrate CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/narrate/internal/config"
	"github.com/dgnsrekt/narrate/internal/library"
	"github.com/dgnsrekt/narrate/internal/narration"
	"github.com/dgnsrekt/narrate/ui"
)

const callTimeout = 5 * time.Second

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile   string
	preset       string
	headless     bool
	mouse        bool
	showAllFiles bool

	// cfg is loaded from viper before any command runs.
	cfg config.Config

	envKeyReplacer = strings.NewReplacer(".", "_")

	rootCmd = &cobra.Command{
		Use:   "narrate [FILE|-]",
		Short: "Narrate guided meditations with timed pauses",
		Long: paragraph(
			fmt.Sprintf("\nNarrate a meditation script aloud, %s.\n\nWrite pauses inline as %s or %s; without markers, sentences and paragraphs pause on their own.",
				keyword("one phrase at a time"), keyword("(30s)"), keyword("(2m)")),
		),
		Example:          paragraph("narrate body-scan.md\necho 'Breathe in (4s) and out (4s).' | narrate\nnarrate --preset body"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return validateOptions()
		},
		RunE: execute,
	}
)

func validateOptions() error {
	if viper.GetBool("debug") {
		log.SetLevel(log.DebugLevel)
	}
	mouse = viper.GetBool("mouse")
	showAllFiles = viper.GetBool("all")

	if configFile != "" && configFile != viper.ConfigFileUsed() {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	c, err := config.Load(viper.GetViper())
	if err != nil {
		return err //nolint:wrapcheck
	}
	cfg = c
	log.Debug("configuration loaded", "backend", cfg.Backend, "file", viper.ConfigFileUsed())
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// readSource returns the narration text and, for files, their absolute path.
func readSource(args []string) (string, string, error) {
	if preset != "" {
		return readPreset(preset)
	}

	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}
	if arg == "" {
		yes, err := stdinIsPipe()
		if err != nil {
			return "", "", err
		}
		if !yes {
			return "", "", errors.New("nothing to narrate: pass a file, pipe text on stdin or use --preset")
		}
		arg = "-"
	}

	if arg == "-" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("unable to read from stdin: %w", err)
		}
		return library.Prepare(b, false), "", nil
	}

	path, err := filepath.Abs(arg)
	if err != nil {
		return "", "", fmt.Errorf("unable to get absolute path: %w", err)
	}
	text, err := library.Load(path)
	return text, path, err //nolint:wrapcheck
}

func readPreset(query string) (string, string, error) {
	entries, err := library.Find(libraryDir(), showAllFiles)
	if err != nil {
		return "", "", err //nolint:wrapcheck
	}
	matches := library.Match(entries, query)
	if len(matches) == 0 {
		return "", "", fmt.Errorf("no meditation matches %q in %s", query, libraryDir())
	}
	log.Debug("preset matched", "query", query, "path", matches[0].Path)
	text, err := library.Load(matches[0].Path)
	return text, matches[0].Path, err //nolint:wrapcheck
}

func libraryDir() string {
	if cfg.LibraryDir != "" {
		return cfg.LibraryDir
	}
	return "."
}

func execute(cmd *cobra.Command, args []string) error {
	text, path, err := readSource(args)
	if err != nil {
		return err
	}

	isTerminal := term.IsTerminal(int(os.Stdout.Fd())) //nolint:gosec
	if headless || !isTerminal {
		return runHeadless(cmd.Context(), text, cmd.OutOrStdout())
	}
	return runTUI(cmd.Context(), path, text)
}

func runTUI(ctx context.Context, path, text string) error {
	// Read environment to get display settings
	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}
	uiCfg.Path = path
	uiCfg.EnableMouse = mouse
	if path != "" {
		uiCfg.Reload = func() (string, error) { return library.Load(path) }
	}

	s, err := startSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	p, err := ui.NewProgram(ctx, uiCfg, s.loop, text)
	if err != nil {
		return fmt.Errorf("unable to observe narration: %w", err)
	}
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

// runHeadless prints each caption as it is spoken and returns once
// narration stops. An interrupt stops narration early.
func runHeadless(ctx context.Context, text string, w io.Writer) error {
	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := startSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close() //nolint:errcheck

	stopped := make(chan struct{})
	var once sync.Once
	pointer := 0
	observe := func(snap narration.Snapshot) {
		if snap.Pointer != pointer && snap.Current != "" {
			pointer = snap.Pointer
			_, _ = fmt.Fprintln(w, snap.Current)
		}
		if snap.State == narration.StateStopped {
			once.Do(func() { close(stopped) })
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	if err := s.loop.OnChange(callCtx, observe); err != nil {
		return fmt.Errorf("unable to observe narration: %w", err)
	}
	if _, err := s.loop.Start(callCtx, text); err != nil {
		return fmt.Errorf("unable to start narration: %w", err)
	}

	select {
	case <-stopped:
		return nil
	case <-sigCtx.Done():
		log.Info("interrupted, stopping narration")
		stopCtx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		if err := s.loop.Stop(stopCtx); err != nil {
			return fmt.Errorf("unable to stop narration: %w", err)
		}
		<-stopped
		_, _ = fmt.Fprintln(w, faint("stopped"))
		return nil
	}
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.PersistentFlags().String("backend", config.BackendAuto, "speech backend: auto, sim, say or piper")
	rootCmd.PersistentFlags().Bool("debug", false, "write debug logs")
	rootCmd.PersistentFlags().BoolVarP(&showAllFiles, "all", "a", false, "include hidden and git-ignored files when searching the library")
	rootCmd.Flags().StringVarP(&preset, "preset", "p", "", "narrate the library file best matching this name")
	rootCmd.Flags().String("voice", "", "voice name passed to the backend")
	rootCmd.Flags().Float64("rate", 1.0, "speaking rate multiplier")
	rootCmd.Flags().BoolVar(&headless, "headless", false, "print captions instead of starting the TUI")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse support (TUI-mode only)")
	_ = rootCmd.Flags().MarkHidden("mouse")

	// Config bindings
	_ = viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("all", rootCmd.PersistentFlags().Lookup("all"))
	_ = viper.BindPFlag("voice.name", rootCmd.Flags().Lookup("voice"))
	_ = viper.BindPFlag("voice.rate", rootCmd.Flags().Lookup("rate"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))

	setDefaults(viper.GetViper(), config.Default())

	rootCmd.AddCommand(configCmd, manCmd, planCmd, listCmd, cacheCmd)
}

// setDefaults registers every default so environment variables such as
// NARRATE_PIPER_MODEL are picked up by Unmarshal.
func setDefaults(v *viper.Viper, d config.Config) {
	v.SetDefault("backend", d.Backend)
	v.SetDefault("settle_delay", d.SettleDelay)
	v.SetDefault("library_dir", d.LibraryDir)
	v.SetDefault("voice.name", d.Voice.Name)
	v.SetDefault("voice.rate", d.Voice.Rate)
	v.SetDefault("voice.pitch", d.Voice.Pitch)
	v.SetDefault("voice.volume", d.Voice.Volume)
	v.SetDefault("sim.words_per_minute", d.Sim.WordsPerMinute)
	v.SetDefault("sim.time_scale", d.Sim.TimeScale)
	v.SetDefault("say.binary", d.Say.Binary)
	v.SetDefault("piper.binary", d.Piper.Binary)
	v.SetDefault("piper.model", d.Piper.Model)
	v.SetDefault("piper.config", d.Piper.ConfigPath)
	v.SetDefault("piper.sample_rate", d.Piper.SampleRate)
	v.SetDefault("piper.timeout", d.Piper.Timeout)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.memory_mb", d.Cache.MemoryMB)
	v.SetDefault("cache.disk_mb", d.Cache.DiskMB)
	v.SetDefault("cache.compression_level", d.Cache.CompressionLevel)
	v.SetDefault("cache.ttl", d.Cache.TTL)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "narrate")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "narrate")}, dirs...)
	}

	if c := os.Getenv("NARRATE_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("narrate")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("narrate")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "narrate.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
