// Finquestctl is the operational command line tool of the finquest
// backend.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/marcossouzacontrole-cpu/finquest/core/logger"
)

var rootCmd = &cobra.Command{
	Use:   "finquestctl",
	Short: "Operate the finquest backend",
}

func main() {
	logger.InitLogger(logrus.InfoLevel)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
