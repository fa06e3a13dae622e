package ui

// Config contains TUI-specific configuration.
type Config struct {
	// File being narrated, empty for stdin.
	Path  string
	Title string

	// Reload re-reads the file when it changes on disk.
	Reload func() (string, error)

	EnableMouse bool

	// Wrap captions at this width, 0 for the terminal width.
	Width int `env:"NARRATE_WIDTH" envDefault:"72"`
	// Quit once narration finishes on its own.
	ExitOnFinish bool `env:"NARRATE_EXIT_ON_FINISH" envDefault:"false"`
	// Restart narration when the file changes.
	Watch bool `env:"NARRATE_WATCH" envDefault:"true"`
}
