package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/reportflow/runstore"
	"github.com/randalmurphal/reportflow/transcript"
)

var (
	runsStatus string
	runsLimit  int
	runsJSON   bool
	showFull   bool
	runsSince  time.Duration
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect run history",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	Args:  cobra.NoArgs,
	RunE:  listRuns,
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run",
	Args:  cobra.ExactArgs(1),
	RunE:  showRun,
}

var runsTranscriptCmd = &cobra.Command{
	Use:   "transcript <run-id>",
	Short: "Print the generator transcript of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  showTranscript,
}

var runsTranscriptsCmd = &cobra.Command{
	Use:   "transcripts",
	Short: "List recorded transcripts",
	Long: `List recorded generator transcripts, newest first. Works without
the run database, reading the transcript files under data_dir.`,
	Args: cobra.NoArgs,
	RunE: listTranscripts,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsTranscriptCmd, runsTranscriptsCmd)

	runsListCmd.Flags().StringVar(&runsStatus, "status", "", "only runs with this status")
	runsListCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum runs to list (0 for all)")
	runsListCmd.Flags().BoolVar(&runsJSON, "json", false, "print JSON")
	runsShowCmd.Flags().BoolVar(&runsJSON, "json", false, "print JSON")
	runsTranscriptCmd.Flags().BoolVar(&showFull, "full", false, "print every turn in full")
	runsTranscriptsCmd.Flags().StringVar(&runsStatus, "status", "", "only transcripts with this status")
	runsTranscriptsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "maximum transcripts to list (0 for all)")
	runsTranscriptsCmd.Flags().DurationVar(&runsSince, "since", 0, "only runs started within this duration, e.g. 72h")
}

func listRuns(cmd *cobra.Command, _ []string) error {
	store, _, err := openRunStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(cmd.Context(), runstore.Filter{
		PropertyRef: propertyID,
		Status:      runsStatus,
		Limit:       runsLimit,
	})
	if err != nil {
		return err
	}
	if runsJSON {
		return printJSON(cmd, runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs found.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tPROPERTY\tSTATUS\tSTARTED\tDURATION\tTOKENS\tWARNINGS")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d/%d\t%d\n",
			r.ID, r.PropertyRef, r.Status,
			r.StartedAt.Local().Format("2006-01-02 15:04"),
			duration(r), r.TokensIn, r.TokensOut, r.Warnings)
	}
	return tw.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	store, _, err := openRunStore(cmd.Context())
	if err != nil {
		return err
	}
	defer store.Close()

	r, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if runsJSON {
		return printJSON(cmd, r)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Run:       %s\n", r.ID)
	fmt.Fprintf(w, "Property:  %s\n", r.PropertyRef)
	fmt.Fprintf(w, "Status:    %s\n", r.Status)
	fmt.Fprintf(w, "Started:   %s\n", r.StartedAt.Local().Format(time.RFC3339))
	fmt.Fprintf(w, "Duration:  %s\n", duration(*r))
	fmt.Fprintf(w, "Calls:     %d\n", r.GeneratorCalls)
	fmt.Fprintf(w, "Tokens:    %d in / %d out\n", r.TokensIn, r.TokensOut)
	if r.Error != "" {
		fmt.Fprintf(w, "Error:     %s\n", strings.TrimSpace(r.Error))
	}
	return nil
}

func showTranscript(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings(nil)
	if err != nil {
		return err
	}
	store, err := transcript.NewFileStore(transcript.StoreConfig{BaseDir: settings.DataDir})
	if err != nil {
		return err
	}
	t, err := store.Load(args[0])
	if err != nil {
		return fmt.Errorf("transcript %s: %w", args[0], err)
	}

	viewer := transcript.NewViewer()
	if showFull {
		return viewer.ViewFull(cmd.OutOrStdout(), t)
	}
	return viewer.ViewSummary(cmd.OutOrStdout(), t)
}

func listTranscripts(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings(nil)
	if err != nil {
		return err
	}
	store, err := transcript.NewFileStore(transcript.StoreConfig{BaseDir: settings.DataDir})
	if err != nil {
		return err
	}

	filter := transcript.ListFilter{
		PropertyRef: propertyID,
		Status:      transcript.RunStatus(runsStatus),
		Limit:       runsLimit,
	}
	if runsSince > 0 {
		filter.After = time.Now().Add(-runsSince)
	}
	metas, err := store.List(filter)
	if err != nil {
		return err
	}
	return transcript.NewViewer().FormatMetaList(cmd.OutOrStdout(), metas)
}

func duration(r runstore.Run) string {
	if r.EndedAt == nil {
		return "-"
	}
	return r.EndedAt.Sub(r.StartedAt).Round(time.Second).String()
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
