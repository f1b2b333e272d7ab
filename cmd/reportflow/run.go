package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/reportflow/config"
	"github.com/randalmurphal/reportflow/engine"
	rferrors "github.com/randalmurphal/reportflow/errors"
)

var (
	runDays     int
	runOutput   string
	runNoNotify bool
	runRunID    string
)

var runCmd = &cobra.Command{
	Use:   "run [property-id]",
	Short: "Generate a report",
	Long: `Generate one report for a GA4 property and print it.

The property comes from the argument, --property, or the property_id
setting, in that order.`,
	Example: `  reportflow run 123456789
  reportflow run --days 7 --output weekly.md
  reportflow run --no-notify`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

var resumeCmd = &cobra.Command{
	Use:   "resume <run-id>",
	Short: "Resume an interrupted or failed run from its checkpoint",
	Args:  cobra.ExactArgs(1),
	RunE:  resumeReport,
}

func init() {
	rootCmd.AddCommand(runCmd, resumeCmd)

	runCmd.Flags().IntVarP(&runDays, "days", "d", 0, "report window in days (overrides default_days)")
	runCmd.Flags().StringVarP(&runOutput, "output", "o", "", "write the report to this file instead of stdout")
	runCmd.Flags().BoolVar(&runNoNotify, "no-notify", false, "skip delivery")
	runCmd.Flags().StringVar(&runRunID, "run-id", "", "use this run ID instead of a generated one")

	resumeCmd.Flags().StringVarP(&runOutput, "output", "o", "", "write the report to this file instead of stdout")
}

func runFlags() map[string]string {
	flags := map[string]string{}
	if runDays > 0 {
		flags["default_days"] = strconv.Itoa(runDays)
	}
	if runNoNotify {
		flags["notify_policy"] = config.NotifyDisabled
	}
	return flags
}

func runReport(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		propertyID = args[0]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, runFlags())
	if err != nil {
		return err
	}
	defer a.Close()

	if a.settings.PropertyID == "" {
		return rferrors.NewNoPropertyError()
	}

	out, err := a.engine.Run(ctx, engine.Input{PropertyRef: a.settings.PropertyID, RunID: runRunID})
	if err != nil {
		return runError(err, out.RunID, a.settings.PropertyID)
	}
	return emit(cmd, out)
}

func resumeReport(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	out, err := a.engine.Resume(ctx, args[0])
	if err != nil {
		return runError(err, args[0], a.settings.PropertyID)
	}
	return emit(cmd, out)
}

func runError(err error, runID, property string) error {
	err = rferrors.Wrap(err, "Google Analytics", property)
	if runID == "" || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("run %s: %w\n\nResume with: reportflow resume %s", runID, err, runID)
}

func emit(cmd *cobra.Command, out engine.Output) error {
	for _, w := range out.Warnings {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "run %s: %d generator calls, %d/%d tokens, %s\n",
		out.RunID, out.Metrics.GeneratorCalls, out.Metrics.TokensIn, out.Metrics.TokensOut,
		out.Metrics.TotalDuration)

	if runOutput != "" {
		if err := os.WriteFile(runOutput, []byte(out.FinalDocument), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "report written to", runOutput)
		return nil
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), out.FinalDocument)
	return err
}
