/*
Copyright © 2024 paul <paul@denknerd.org>
*/
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// whichCmd prints where the config was read from.
var whichCmd = &cobra.Command{
	Use:   "which",
	Short: "Print the config file location",
	Long: `
Print the config file path the tool settled on, after --config, NOTION_DUMP_CONFIG and the default
location have all been considered.
`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Config path: %s\n", ConfigActual)
	},
}

func init() {
	configCmd.AddCommand(whichCmd)
}
