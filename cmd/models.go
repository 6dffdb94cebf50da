package cmd

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"carechat/config"
)

var remoteModels bool

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models available for new sessions",
	Long: `List the models configured for the active provider. The default model
for new sessions is marked with *. Use --remote to ask the provider which
models it currently serves.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()

		if remoteModels {
			a, err := openApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if pinger, ok := a.client.(interface{ Ping(context.Context) error }); ok {
				if err := pinger.Ping(cmd.Context()); err != nil {
					return fmt.Errorf("%s is not reachable: %w", a.client.Name(), err)
				}
			}

			models, err := a.client.ListModels(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s models:\n", a.client.Name())
			for _, m := range models {
				fmt.Fprintf(out, "  %s\n", m.Name)
			}
			return nil
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		active := cfg.ActiveProvider()
		fmt.Fprintf(out, "%s models:\n", config.ProviderDisplayName(active.ID))
		for _, m := range active.Models {
			marker := " "
			if m == cfg.DefaultModel {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %s\n", marker, m)
		}
		return nil
	},
}

var modelsSetCmd = &cobra.Command{
	Use:   "set <model>",
	Short: "Set the default model for new sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		model := args[0]
		if !slices.Contains(cfg.ActiveProvider().Models, model) {
			return fmt.Errorf("model %q is not configured for %s", model, cfg.DefaultProvider)
		}
		if err := config.SetDefaultModel(cfg.DataDir(), model); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Default model set to %s\n", model)
		return nil
	},
}

func init() {
	modelsCmd.Flags().BoolVar(&remoteModels, "remote", false, "Query the provider for its model list")
	modelsCmd.AddCommand(modelsSetCmd)
	rootCmd.AddCommand(modelsCmd)
}
