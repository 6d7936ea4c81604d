// Package main is the entry point for the seu command-line utilities.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	appcli "github.com/urfave/cli/v3"

	"github.com/seutils/seu/internal/buildinfo"
	"github.com/seutils/seu/internal/completion"
	"github.com/seutils/seu/internal/log"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

const progName = "seu"

func init() {
	// -v is taken by --verbose
	appcli.VersionFlag = &appcli.BoolFlag{Name: "version", Usage: "print the version"}
}

func main() {
	buildinfo.Set(version, commit, date, builtBy)
	buildinfo.Enrich()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newApp().Run(ctx, dispatchArgs(os.Args))
	stop()
	if cerr := log.Close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "Error closing debug log: %v\n", cerr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// dispatchArgs rewrites an invocation as seu-<sub> into seu <sub>.
func dispatchArgs(args []string) []string {
	if len(args) == 0 {
		return []string{progName}
	}
	base := filepath.Base(args[0])
	sub, ok := strings.CutPrefix(base, progName+"-")
	if !ok {
		return args
	}
	if _, known := completion.Lookup(sub); !known {
		return args
	}
	out := make([]string, 0, len(args)+1)
	out = append(out, progName, sub)
	return append(out, args[1:]...)
}
