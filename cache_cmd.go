package main

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/dgnsrekt/narrate/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the synthesized audio cache",
	Args:  cobra.NoArgs,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache usage",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := openCache(cfg)
		if err != nil {
			return err
		}
		defer m.Close() //nolint:errcheck

		cc, err := cacheConfig(cfg)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), faint(cc.Dir)); err != nil {
			return err //nolint:wrapcheck
		}
		return writeStats(cmd.OutOrStdout(), m.Stats())
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cached recording",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		m, err := openCache(cfg)
		if err != nil {
			return err
		}
		defer m.Close() //nolint:errcheck

		var freed int64
		for _, s := range m.Stats() {
			if s.Level == cache.LevelDisk {
				freed = s.Size
			}
		}
		if err := m.Clear(); err != nil {
			return fmt.Errorf("unable to clear cache: %w", err)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", keyword(humanize.Bytes(uint64(freed)))) //nolint:gosec
		return err //nolint:wrapcheck
	},
}

func init() {
	cacheCmd.AddCommand(cacheStatsCmd, cacheClearCmd)
}

func writeStats(w io.Writer, stats []cache.Stats) error {
	for _, s := range stats {
		_, err := fmt.Fprintf(w, "%-7s %s of %s  %s items  %s hit rate  %s evictions\n",
			s.Level,
			keyword(humanize.Bytes(uint64(s.Size))), //nolint:gosec
			humanize.Bytes(uint64(s.Capacity)),      //nolint:gosec
			humanize.Comma(s.Items),
			fmt.Sprintf("%.0f%%", s.HitRate()*100),
			humanize.Comma(s.Evictions),
		)
		if err != nil {
			return err //nolint:wrapcheck
		}
	}
	return nil
}
