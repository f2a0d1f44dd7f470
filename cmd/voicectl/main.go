// Command voicectl manages the local voice feedback store and runs a
// terminal voice assistant against a streaming speech-to-text service.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "voicectl",
		Short:         "Manage NexaVoice feedback and run a terminal voice assistant",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.dbPath, "db", defaultDBPath(), "Local SQLite store")
	rootCmd.PersistentFlags().StringVar(&a.remoteURL, "remote", os.Getenv("VOICE_FEEDBACK_REMOTE_URL"), "Base URL of the feedback API")
	rootCmd.PersistentFlags().BoolVarP(&a.jsonOutput, "json", "j", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Log debug output to stderr")

	rootCmd.AddCommand(newFeedbackCmd(a))
	rootCmd.AddCommand(newSuggestionsCmd(a))
	rootCmd.AddCommand(newResolveCmd(a))
	rootCmd.AddCommand(newListenCmd(a))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
