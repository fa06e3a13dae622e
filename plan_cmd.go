package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/dgnsrekt/narrate/internal/narration"
)

var planFormat string

var planCmd = &cobra.Command{
	Use:   "plan [FILE|-]",
	Short: "Show how a meditation will be narrated",
	Long: paragraph(fmt.Sprintf("\n%s a meditation into phrases and pauses without speaking it. Long pauses are split into silences of at most %s.",
		keyword("Segment"), narration.MaxSilenceChunk)),
	Example: paragraph("narrate plan body-scan.md\nnarrate plan --format yaml body-scan.md"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, _, err := readSource(args)
		if err != nil {
			return err
		}
		report, err := buildReport(text)
		if err != nil {
			return err
		}

		switch planFormat {
		case "yaml":
			return writeYAML(cmd.OutOrStdout(), report)
		case "markdown", "md":
			return writeMarkdown(cmd.OutOrStdout(), report)
		default:
			return fmt.Errorf("unknown format %q: use markdown or yaml", planFormat)
		}
	},
}

func init() {
	planCmd.Flags().StringVarP(&planFormat, "format", "f", "markdown", "output format: markdown or yaml")
	planCmd.Flags().StringVarP(&preset, "preset", "p", "", "plan the library file best matching this name")
}

type planReport struct {
	Phrases  int             `yaml:"phrases"`
	Units    int             `yaml:"units"`
	Silence  string          `yaml:"silence"`
	Degraded bool            `yaml:"degraded,omitempty"`
	Segments []segmentReport `yaml:"segments"`
}

type segmentReport struct {
	Phrase string `yaml:"phrase"`
	Pause  string `yaml:"pause"`
	Chunks int    `yaml:"chunks"`
}

// buildReport runs text through the same segmenter and planner the
// scheduler uses.
func buildReport(text string) (planReport, error) {
	seg, err := narration.NewSegmenter(narration.MarkerPattern)
	if err != nil && !errors.Is(err, narration.ErrParseDegraded) {
		return planReport{}, err //nolint:wrapcheck
	}
	segs := seg.Segment(text)
	plan := narration.BuildPlan(segs)

	r := planReport{
		Phrases:  len(plan.Phrases),
		Units:    len(plan.Units),
		Silence:  plan.Silence().String(),
		Degraded: seg.Degraded(),
		Segments: make([]segmentReport, 0, len(segs)),
	}
	for _, s := range segs {
		r.Segments = append(r.Segments, segmentReport{
			Phrase: s.Phrase,
			Pause:  s.Pause.String(),
			Chunks: len(narration.ChunkPause(s.Pause)),
		})
	}
	return r, nil
}

func writeYAML(w io.Writer, r planReport) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("unable to encode plan: %w", err)
	}
	return enc.Close() //nolint:wrapcheck
}

func (r planReport) markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Narration plan\n\n")
	fmt.Fprintf(&b, "**%d** phrases, **%d** units, **%s** of silence.\n\n", r.Phrases, r.Units, r.Silence)
	if r.Degraded {
		b.WriteString("> Pause markers could not be parsed; the text is read as one phrase.\n\n")
	}
	b.WriteString("| # | Phrase | Pause | Chunks |\n|---|---|---|---|\n")
	for i, s := range r.Segments {
		phrase := strings.ReplaceAll(s.Phrase, "|", `\|`)
		fmt.Fprintf(&b, "| %d | %s | %s | %d |\n", i+1, phrase, s.Pause, s.Chunks)
	}
	return b.String()
}

func writeMarkdown(w io.Writer, r planReport) error {
	style := glamour.WithAutoStyle()
	width := 80
	fd := int(os.Stdout.Fd()) //nolint:gosec
	if !term.IsTerminal(fd) {
		style = glamour.WithStandardStyle(styles.NoTTYStyle)
	} else if tw, _, err := term.GetSize(fd); err == nil && tw < 120 {
		width = tw
	}

	renderer, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return fmt.Errorf("unable to create renderer: %w", err)
	}
	out, err := renderer.Render(r.markdown())
	if err != nil {
		return fmt.Errorf("unable to render markdown: %w", err)
	}
	_, err = fmt.Fprint(w, out)
	return err //nolint:wrapcheck
}
