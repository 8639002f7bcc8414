package cmd

import (
	"demodrop/server"

	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the DemoDrop HTTP server",
	Long:  `Start the HTTP server that accepts demo uploads and serves stored audio.`,
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
