package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"candor/internal/lexer"
	"candor/internal/token"
)

var tokenizeCmd = &cobra.Command{
	Use:   "tokenize [flags] file.candor",
	Short: "Tokenize a candor source file",
	Long:  "Tokenize breaks a candor source file down into its lexical tokens.",
	Args:  cobra.ExactArgs(1),
	RunE:  runTokenize,
}

func runTokenize(cmd *cobra.Command, args []string) error {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	lx := lexer.New(string(content))
	out := cmd.OutOrStdout()
	for {
		t := lx.Next()
		fmt.Fprintf(out, "%-12s %6d %6d  %q\n", t.Kind, t.Start, t.End, t.Text)
		if t.Kind == token.EOF {
			break
		}
	}
	return nil
}
