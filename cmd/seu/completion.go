package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	appcli "github.com/urfave/cli/v3"

	"github.com/seutils/seu/internal/completion"
)

// completionCommand returns the completion subcommand definition.
func completionCommand() *appcli.Command {
	return &appcli.Command{
		Name:      "completion",
		Usage:     describe("completion"),
		ArgsUsage: "<bash|zsh>",
		Action:    handleCompletion,
	}
}

// handleCompletion prints the completion script of the requested shell.
func handleCompletion(_ context.Context, cmd *appcli.Command) error {
	if cmd.NArg() == 0 {
		return fmt.Errorf("usage: %s completion <bash|zsh>", progName)
	}
	script, err := completion.Script(cmd.Args().First(), progName)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(cmd.Root().Writer, script)
	return err
}

// installCompletionCommand prints how to enable completion in the user's shell.
func installCompletionCommand() *appcli.Command {
	return &appcli.Command{
		Name:  "install-completion",
		Usage: describe("install-completion"),
		Action: func(_ context.Context, cmd *appcli.Command) error {
			shell := filepath.Base(os.Getenv("SHELL"))
			if shell != "zsh" {
				shell = "bash"
			}
			_, err := fmt.Fprint(cmd.Root().Writer, completion.Instructions(shell, progName))
			return err
		},
	}
}
