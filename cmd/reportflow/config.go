package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/reportflow/config"
)

var configLocal bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and change settings",
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show every setting with its source",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		resolver := config.NewAppResolver()
		resolved := resolver.ResolveWithFlags(globalFlags(nil))

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
		for _, key := range config.Keys {
			v, src := resolved.GetWithSource(key)
			if src == "" {
				src = "-"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\n", key, config.Redacted(key, v), src)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if p := resolver.GlobalPath(); p != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "\nglobal: %s\n", p)
		}
		if p := resolver.LocalPath(); p != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "local:  %s\n", p)
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		resolved := config.NewAppResolver().ResolveWithFlags(globalFlags(nil))
		v, src := resolved.GetWithSource(args[0])
		if src == "" {
			return fmt.Errorf("%s is not set", args[0])
		}
		fmt.Fprintln(cmd.OutOrStdout(), config.Redacted(args[0], v))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Save a setting to the global (or, with --local, project) config",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		save := config.AppSaveConfig()
		if configLocal {
			root := config.NewAppResolver().ProjectRoot()
			if err := save.SaveLocal(root, args[0], args[1]); err != nil {
				return err
			}
		} else if err := save.SaveGlobal(args[0], args[1]); err != nil {
			return err
		}

		// Surface values that would break the next run.
		if _, err := loadSettings(nil); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
		}
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Remove a setting from the global config",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return config.AppSaveConfig().DeleteGlobalKey(args[0])
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configListCmd, configGetCmd, configSetCmd, configUnsetCmd)
	configSetCmd.Flags().BoolVar(&configLocal, "local", false, "write to .reportflow.yaml in the project root")
}
