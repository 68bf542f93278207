package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Version is stamped at build time.
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:   "garminbridge",
	Short: "SwimForge's Garmin Connect bridge",
	Long: `Brokers Garmin Connect authentication (including MFA handshakes) for
SwimForge users and exposes their swimming activity history over HTTP.`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
