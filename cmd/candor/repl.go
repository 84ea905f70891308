package main

import (
	"github.com/spf13/cobra"

	"candor/internal/candor"
	"candor/internal/config"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive candor REPL",
	RunE: func(cmd *cobra.Command, args []string) error {
		return candor.RunREPL(config.Default())
	},
}
