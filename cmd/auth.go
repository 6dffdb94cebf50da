package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"carechat/config"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage provider API keys",
	Long: `Store, remove and inspect provider API keys. Keys are kept in the data
directory, in plain text or encrypted with your SSH key depending on
security_method in config.toml.`,
}

var authSetCmd = &cobra.Command{
	Use:   "set <provider> [api-key]",
	Short: "Store an API key (read from stdin when omitted)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		providerID := args[0]
		var key string
		if len(args) == 2 {
			key = args[1]
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s API key: ", config.ProviderDisplayName(providerID))
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("failed to read API key: %w", err)
			}
			key = line
		}

		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("API key is empty")
		}

		cfg.CredentialStore.Set(providerID, key)
		if err := cfg.CredentialStore.Save(cfg.DataDir()); err != nil {
			return fmt.Errorf("failed to save credentials: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Saved %s API key\n", config.ProviderDisplayName(providerID))
		return nil
	},
}

var authRemoveCmd = &cobra.Command{
	Use:   "remove <provider>",
	Short: "Remove a stored API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		cfg.CredentialStore.Delete(args[0])
		if err := cfg.CredentialStore.Save(cfg.DataDir()); err != nil {
			return fmt.Errorf("failed to save credentials: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %s API key\n", config.ProviderDisplayName(args[0]))
		return nil
	},
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show which providers have a key",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Credential storage: %s\n", cfg.CredentialStore.Method())
		for _, id := range []string{"groq", "openai", "anthropic"} {
			status := errorStyle.Render("not set")
			if key := cfg.APIKey(id); key != "" {
				status = maskKey(key)
			}
			marker := " "
			if id == cfg.DefaultProvider {
				marker = "*"
			}
			fmt.Fprintf(out, "%s %-10s %s\n", marker, id, status)
		}
		return nil
	},
}

// maskKey keeps the first and last four characters of long keys.
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}

func init() {
	authCmd.AddCommand(authSetCmd, authRemoveCmd, authStatusCmd)
	rootCmd.AddCommand(authCmd)
}
