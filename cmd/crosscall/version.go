package main

import (
	"fmt"

	"github.com/aretw0/crosscall"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of crosscall",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("crosscall version %s\n", crosscall.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
