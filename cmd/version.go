package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/smith-xyz/apk-dataset-generator/pkg/version"
)

var shortVersion bool

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if shortVersion {
			fmt.Fprintln(cmd.OutOrStdout(), version.GetVersionWithCommit())
			return
		}
		fmt.Fprintln(cmd.OutOrStdout(), version.GetFullVersionString())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolVar(&shortVersion, "short", false, "Print only the version")
}
