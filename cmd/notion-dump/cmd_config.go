/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"github.com/spf13/cobra"
)

// configCmd groups the config inspection subcommands.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the resolved configuration",
	Long: `
If a conversion doesn't behave the way you expect, start here: print the configuration the tool is
actually running with, or find out which file it was read from.
`,
}

func init() {
	rootCmd.AddCommand(configCmd)
}
