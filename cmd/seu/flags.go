package main

import (
	"fmt"
	"slices"
	"strings"

	appcli "github.com/urfave/cli/v3"

	"github.com/seutils/seu/internal/completion"
)

// globalFlags returns the flags shared by every command.
// Note: --version is provided automatically by urfave/cli via Command.Version
func globalFlags() []appcli.Flag {
	return []appcli.Flag{
		&appcli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Print debug output",
		},
		&appcli.BoolFlag{
			Name:    "dry",
			Aliases: []string{"d"},
			Usage:   "Print the commands instead of running them",
		},
		&appcli.BoolFlag{
			Name:  "fake",
			Usage: "Use the in-memory storage implementation",
		},
		&appcli.StringFlag{
			Name:    "implementation",
			Aliases: []string{"i"},
			Usage:   "Storage implementation: auto, xrd, gfal or fake",
			Validator: func(v string) error {
				return validateChoice("implementation", v, implementationChoices())
			},
		},
		&appcli.StringFlag{
			Name:  "config-file",
			Usage: "Path to configuration file",
		},
		&appcli.StringSliceFlag{
			Name:    "config",
			Aliases: []string{"C"},
			Usage:   "Override config values (repeatable): --config=seu.key=value",
		},
		&appcli.StringFlag{
			Name:  "debug-log",
			Usage: "Path to debug log file",
		},
		&appcli.StringFlag{
			Name:  "theme",
			Usage: "Colour theme",
		},
	}
}

func implementationChoices() []string {
	for _, f := range completion.GlobalFlags() {
		if f.Name == "implementation" {
			return f.Values
		}
	}
	return nil
}

func validateChoice(flag, value string, choices []string) error {
	if value == "" || slices.Contains(choices, value) {
		return nil
	}
	return fmt.Errorf("invalid --%s %q (choices: %s)", flag, value, strings.Join(choices, ", "))
}
