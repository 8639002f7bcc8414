package cmd

import (
	"fmt"
	"os"

	"demodrop/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "demodrop",
	Short: "DemoDrop is a demo sharing backend for musicians.",
	Run: func(cmd *cobra.Command, args []string) {
		server.Start()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
