package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"carechat/config"
	"carechat/hospital"
	"carechat/provider"
	"carechat/ui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat (default)",
	Long: `Open the interactive chat view.

Enter sends a message, Ctrl+X stops a response in progress, Ctrl+N starts
a new chat and F1 lists every shortcut. Running carechat with no command
does the same thing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd)
	},
}

func runChat(cmd *cobra.Command) error {
	ctx := cmd.Context()
	notifier := ui.NewNotifier()

	a, err := openApp(ctx, notifier)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, provider.ErrMissingAPIKey) {
			msg = fmt.Sprintf("%v\n\nAdd an API key with:\n  carechat auth set %s", err, activeProviderID())
		}
		if modalErr := ui.ShowError("Configuration Error", msg); modalErr != nil && config.DebugLog != nil {
			config.DebugLog.Printf("[CMD] Error modal failed: %v", modalErr)
		}
		return err
	}
	defer func() {
		if err := a.Close(); err != nil && config.DebugLog != nil {
			config.DebugLog.Printf("[CMD] Close failed: %v", err)
		}
	}()

	return ui.Run(ctx, a.store, notifier, hospital.NewClient(nil))
}

// activeProviderID returns the configured provider, or "groq" when the
// configuration cannot be read.
func activeProviderID() string {
	cfg, err := config.Load()
	if err != nil {
		return "groq"
	}
	return cfg.DefaultProvider
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
