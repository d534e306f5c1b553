package main

import (
	"os"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.commit=... -X main.buildTime=...".
var (
	version   = "0.1.0"
	commit    = ""
	buildTime = ""
)

func newRootCmd() *cobra.Command {
	var cfgFile string
	root := &cobra.Command{
		Use:          "assessor",
		Short:        "Behavioral assessment service",
		Long:         `Assessor issues questionnaire forms, scores submissions into a trait profile and archetype pair, and produces sales narratives for operators.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./assessor.yaml)")

	load := func() string { return cfgFile }
	root.AddCommand(
		newServeCmd(load),
		newMigrateCmd(load),
		newSeedCmd(load),
		newIssueCmd(load),
		newReprocessCmd(load),
		newTokenCmd(load),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
