package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create a hello-world candor source file",
	Long: `init writes a placeholder "main.candor" at the given path (or the
current directory when omitted) so a new project has something to run
immediately.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	target := "."
	if len(args) > 0 {
		target = args[0]
	}

	if st, err := os.Stat(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %q: %w", target, err)
			}
		} else {
			return err
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	mainPath := filepath.Join(target, "main.candor")
	if _, err := os.Stat(mainPath); err == nil {
		return fmt.Errorf("refusing to overwrite existing %s", mainPath)
	}
	if err := os.WriteFile(mainPath, []byte(defaultMainCandor()), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", mainPath, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", mainPath)
	return nil
}

func defaultMainCandor() string {
	return `fn hello() {
    return "Hello, Candor!";
}

fn main() {
    return hello();
}
`
}
