package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tutor",
	Short: "Adaptive quiz and lesson server",
	Long: "tutor serves AI-generated questions, hints and lessons over HTTP, showing each\n" +
		"learner stored items they have not seen before generating new ones.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (default ./tutor.yaml)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path or postgres DSN (overrides TUTOR_DB)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(lessonsCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(versionCmd)
}
