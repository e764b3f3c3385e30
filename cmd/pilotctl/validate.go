package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pilotcsp.dev/pilot/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a topology manifest without running it",
	Run: func(cmd *cobra.Command, args []string) {
		if configFile == "" {
			exitWithError("validate", fmt.Errorf("-c/--config is required"))
		}
		m, err := config.Load(configFile)
		if err != nil {
			exitWithError("validate", err)
		}
		fmt.Printf("VALID: check_level=%d services=%+v processes=%d log=%s\n",
			m.CheckLevel, m.Services, len(m.Processes), m.Log.BaseName)
	},
}
