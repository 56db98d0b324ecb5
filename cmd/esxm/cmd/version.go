package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Populated through -ldflags at release build time.
var (
	version   = "dev"
	gitCommit = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the esxm version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("esxm %s (commit %s)\n", version, gitCommit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
