package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push stories saved offline to the story API once",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openDurable(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.services.Syncer.Run(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "synced:    %d %s\n", len(report.Synced), strings.Join(report.Synced, " "))
		fmt.Fprintf(out, "failed:    %d %s\n", len(report.Failed), strings.Join(report.Failed, " "))
		fmt.Fprintf(out, "skipped:   %d %s\n", len(report.Skipped), strings.Join(report.Skipped, " "))
		fmt.Fprintf(out, "remaining: %d\n", report.Remaining)
		if report.Offline {
			fmt.Fprintln(out, "story API unreachable, run again when online")
		}
		return nil
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect the local story cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached stories",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openDurable(cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		stories, err := a.cache.GetAll(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTATE\tCREATED\tLOCATION\tTITLE")
		for _, s := range stories {
			s.Normalize()
			loc := "-"
			if s.HasLocation() {
				loc = fmt.Sprintf("%.5f,%.5f", *s.Lat, *s.Lon)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.SyncState, s.CreatedAt, loc, s.Title)
		}
		return w.Flush()
	},
}
