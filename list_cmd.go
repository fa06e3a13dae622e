package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/narrate/internal/library"
)

var listCmd = &cobra.Command{
	Use:     "list [QUERY]",
	Aliases: []string{"ls"},
	Short:   "List meditations in the library",
	Long: paragraph(fmt.Sprintf("\n%s the meditation files under library_dir, best matches first when a query is given.",
		keyword("List"))),
	Example: paragraph("narrate list\nnarrate list breath"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := library.Find(libraryDir(), showAllFiles)
		if err != nil {
			return err //nolint:wrapcheck
		}
		if len(args) == 1 {
			entries = library.Match(entries, args[0])
		}
		if len(entries) == 0 {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), faint("No meditations found in "+libraryDir()))
			return err //nolint:wrapcheck
		}
		return writeEntries(cmd.OutOrStdout(), entries, time.Now())
	},
}

func writeEntries(w io.Writer, entries library.Entries, now time.Time) error {
	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s  %s\n", keyword(e.Name),
			faint(fmt.Sprintf("%s · %s", humanize.Bytes(uint64(e.Size)), humanize.RelTime(e.ModTime, now, "ago", "from now")))); err != nil { //nolint:gosec
			return err //nolint:wrapcheck
		}
	}
	return nil
}
