package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "tracker",
	Short:        "Track the oldest masterchain block a liteserver still stores",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(simulateCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Errorf("Program finished with error: %v", err)
		os.Exit(1)
	}
}
