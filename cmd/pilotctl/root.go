// Package main implements pilotctl, a small CLI for validating topology
// manifests and running the in-process demo transport.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "pilotctl",
	Short: "pilotctl drives Pilot topology manifests against the local reference transport",
	Long: `pilotctl is a small operator CLI around Pilot: it validates a declarative
topology manifest and can run one against the in-process reference
transport for local testing, without any of the target deployment's
own process-launching machinery.`,
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "",
		"topology manifest path (required)")
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func exitWithError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	os.Exit(1)
}
