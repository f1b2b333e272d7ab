// Command reportflow generates AI-written analytics reports for Google
// Analytics 4 properties, from the command line or as an HTTP service.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	rferrors "github.com/randalmurphal/reportflow/errors"
)

// Version is the CLI version.
var Version = "0.1.0"

var (
	// global flags
	verbose    bool
	propertyID string
	dataDir    string
)

var rootCmd = &cobra.Command{
	Use:   "reportflow",
	Short: "Generate analytics performance reports",
	Long: `reportflow fetches a Google Analytics 4 property's metrics, has a
language model analyze them and write each report section, and delivers
the compiled markdown report.

Configuration is read from ~/.config/reportflow/config.yaml, a
.reportflow.yaml in the project root, REPORTFLOW_* environment
variables (a .env file is loaded first) and flags, in that order.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&propertyID, "property", "p", "", "GA4 property ID (overrides property_id)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "directory for runs, transcripts and the run database")

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var cliErr *rferrors.CLIError
		if errors.As(err, &cliErr) {
			fmt.Fprintln(os.Stderr, "Error:", cliErr.Error())
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
