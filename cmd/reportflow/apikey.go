package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/reportflow/auth"
	"github.com/randalmurphal/reportflow/config"
)

var apikeySave bool

var apikeyCmd = &cobra.Command{
	Use:   "apikey",
	Short: "Manage API keys for the HTTP service",
}

var apikeyCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Generate a new API key",
	Long: `Generate a new API key and print it once. Only its hash is stored.

With --save the hash is appended to api_key_hash in the global config.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		key, err := auth.GenerateAPIKey(auth.APIKeyConfig{})
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "key:    %s\n", key.Secret)
		fmt.Fprintf(w, "prefix: %s\n", key.Prefix)
		fmt.Fprintf(w, "hash:   %s\n", key.Hash)

		if !apikeySave {
			fmt.Fprintln(cmd.ErrOrStderr(), "\nStore the key now; it cannot be shown again.")
			return nil
		}

		resolved := config.NewAppResolver().Resolve()
		hashes := append(splitHashes(resolved.Get("api_key_hash")), key.Hash)
		if err := config.AppSaveConfig().SaveGlobal("api_key_hash", strings.Join(hashes, ",")); err != nil {
			return fmt.Errorf("save key hash: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "\nHash saved. Store the key now; it cannot be shown again.")
		return nil
	},
}

var apikeyHashCmd = &cobra.Command{
	Use:   "hash <key>",
	Short: "Print the hash of an existing key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !auth.ValidateAPIKeyFormat(args[0], auth.APIKeyConfig{}) {
			return auth.ErrInvalidAPIKey
		}
		fmt.Fprintln(cmd.OutOrStdout(), auth.HashToken(args[0]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(apikeyCmd)
	apikeyCmd.AddCommand(apikeyCreateCmd, apikeyHashCmd)
	apikeyCreateCmd.Flags().BoolVar(&apikeySave, "save", false, "append the hash to api_key_hash")
}
