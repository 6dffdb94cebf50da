package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	verbose bool
	version string = "dev"
	commit  string = "unknown"
	date    string = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "carechat",
	Short: "A terminal health assistant chat client",
	Long: `CareChat is a terminal chat client for health questions.

Conversations are streamed from a hosted completion API (Groq by default)
and kept on this device. CareChat can also list hospitals near your
approximate location.

CareChat gives general health information, not medical advice.

Quick Start:
  carechat auth set groq          # Store your Groq API key
  carechat                        # Start chatting
  carechat ask "what is a fever?" # One-off question
  carechat hospitals              # Hospitals near you`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd)
	},
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Write debug logging to <data dir>/debug.log")

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
