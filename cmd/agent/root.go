package main

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "publish-agent",
	Short: "Unattended social publishing agent",
	Long: `publish-agent posts generated text on a daily schedule with stored OAuth credentials.

Run 'publish-agent serve' to start the HTTP server and the scheduler.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(tokensCmd)
}
