package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/randalmurphal/reportflow/artifact"
)

var (
	cleanupDryRun   bool
	cleanupArchives bool
	cleanupDays     int
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Archive and delete old runs",
	Long: `Archive finished runs older than a week and delete runs past the
retention window. Running runs are never touched; failed runs are kept so
they can still be resumed.`,
	Args: cobra.NoArgs,
	RunE: cleanup,
}

var restoreCmd = &cobra.Command{
	Use:   "restore <run-id>",
	Short: "Restore an archived run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings(nil)
		if err != nil {
			return err
		}
		lm := artifact.NewLifecycleManager(settings.DataDir, artifact.DefaultRetentionConfig())
		return lm.RestoreArchive(args[0])
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd, restoreCmd)
	cleanupCmd.Flags().BoolVarP(&cleanupDryRun, "dry-run", "n", false, "report what would change without changing it")
	cleanupCmd.Flags().BoolVar(&cleanupArchives, "archives", false, "also delete expired archives")
	cleanupCmd.Flags().IntVar(&cleanupDays, "retention-days", 0, "override the retention window")
}

func cleanup(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(nil)
	if err != nil {
		return err
	}
	cfg := artifact.DefaultRetentionConfig()
	if cleanupDays > 0 {
		cfg.RetentionDays = cleanupDays
	}
	lm := artifact.NewLifecycleManager(settings.DataDir, cfg)

	result, err := lm.Cleanup(cleanupDryRun)
	if err != nil {
		return err
	}
	deletedRuns := append([]string(nil), result.Deleted...)
	if cleanupArchives {
		archived, err := lm.CleanupArchives(cleanupDryRun)
		if err != nil {
			return err
		}
		result.Deleted = append(result.Deleted, archived.Deleted...)
		result.SpaceSaved += archived.SpaceSaved
		result.Errors = append(result.Errors, archived.Errors...)
	}

	// Deleted runs leave the history database too.
	if !cleanupDryRun && len(deletedRuns) > 0 {
		if store, _, err := openRunStore(cmd.Context()); err == nil {
			for _, id := range deletedRuns {
				_ = store.Delete(cmd.Context(), id)
			}
			store.Close()
		}
	}

	w := cmd.OutOrStdout()
	verb := ""
	if cleanupDryRun {
		verb = "would be "
	}
	fmt.Fprintf(w, "%d runs %sarchived, %d %sdeleted, %d kept, %s %sfreed\n",
		len(result.Archived), verb, len(result.Deleted), verb, len(result.Kept),
		humanize.Bytes(uint64(result.SpaceSaved)), verb)
	for _, e := range result.Errors {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", e)
	}

	if usage, err := lm.DiskUsage(); err == nil {
		fmt.Fprintf(w, "disk usage: %d runs, %d archives, %s\n",
			usage.RunCount, usage.ArchiveCount, humanize.Bytes(uint64(usage.TotalSize)))
	}
	return nil
}
