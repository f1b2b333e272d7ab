package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/reportflow/auth"
	"github.com/randalmurphal/reportflow/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the report API over HTTP",
	Long: `Serve POST /generate-report, GET /health and the run lookup routes.

When api_key_hash is set (one or more comma separated hashes from
'reportflow apikey create'), requests must carry a matching key in the
X-API-Key header or as a bearer token.`,
	Args: cobra.NoArgs,
	RunE: serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides listen_addr)")
}

func serve(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, map[string]string{"listen_addr": serveAddr})
	if err != nil {
		return err
	}
	defer a.Close()

	verifier := auth.NewVerifier(auth.APIKeyConfig{}, splitHashes(a.settings.APIKeyHash)...)
	if !verifier.Enabled() {
		a.logger.Warn("no API keys configured, the API is unauthenticated")
	}

	cfg := server.Config{
		Addr:            a.settings.ListenAddr,
		DefaultProperty: a.settings.PropertyID,
		APIKeys:         verifier,
		Artifacts:       a.services.Artifacts,
	}
	if a.runs != nil {
		cfg.Runs = a.runs
	}
	return server.New(a.logger, a.engine, cfg).Start(ctx)
}
