package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/muesli/reflow/truncate"
	"golang.org/x/sync/errgroup"

	"github.com/seutils/seu/internal/log"
	"github.com/seutils/seu/internal/rootio"
)

// RootReader reads ROOT files.
type RootReader interface {
	Trees(ctx context.Context, file string) ([]string, error)
	NEntries(ctx context.Context, file, treepath string) (int64, error)
	Branches(ctx context.Context, file, treepath string) ([]*rootio.Branch, error)
}

var _ RootReader = (*rootio.Reader)(nil)

// NEntriesOptions configures NEntries.
type NEntriesOptions struct {
	TreePath string
	MGM      string
	Threads  int
}

// NEntries prints the entry count of every file, "-" when it could not be
// read, followed by the total of the known counts. Unreadable files are
// logged but do not fail the command.
func NEntries(ctx context.Context, env *Env, reader RootReader, paths []string, opts NEntriesOptions) error {
	files, err := expandRootFiles(ctx, env, paths, opts.MGM)
	if err != nil {
		return err
	}

	// each goroutine owns one slot
	counts := make([]*int64, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Threads, 1))
	for i, file := range files {
		g.Go(func() error {
			n, err := reader.NEntries(gctx, file, opts.TreePath)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Errorf("Could not get entries of %s: %v", file, err)
				return nil
			}
			counts[i] = &n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var total int64
	for _, n := range counts {
		if n != nil {
			total += *n
		}
	}
	width := len(fmt.Sprint(total))
	for i, file := range files {
		count := "-"
		if counts[i] != nil {
			count = fmt.Sprint(*counts[i])
		}
		fmt.Fprintf(env.Out, "%*s  %s\n", width, count, file)
	}
	fmt.Fprintf(env.Out, "%*d  %s\n", width, total, env.styles().Bold.Render("total"))
	return nil
}

// PrintBranchesOptions configures PrintBranches.
type PrintBranchesOptions struct {
	TreePath string
	// Types appends the leaf type of every branch.
	Types bool
	// Width truncates lines when positive.
	Width int
}

// PrintBranches prints the branch hierarchy of one tree, or of every tree in
// the file when no tree path is given.
func PrintBranches(ctx context.Context, env *Env, reader RootReader, path string, opts PrintBranchesOptions) error {
	files, err := expandRootFiles(ctx, env, []string{path}, "")
	if err != nil {
		return err
	}
	if len(files) != 1 {
		return fmt.Errorf("expected exactly one ROOT file for %s, found %d", path, len(files))
	}
	file := files[0]

	trees := []string{opts.TreePath}
	if opts.TreePath == "" {
		trees, err = reader.Trees(ctx, file)
		if err != nil {
			return err
		}
		if len(trees) == 0 {
			return fmt.Errorf("no trees in %s", file)
		}
	}

	s := env.styles()
	for _, tree := range trees {
		branches, err := reader.Branches(ctx, file, tree)
		if err != nil {
			return err
		}
		fmt.Fprintln(env.Out, s.Dir.Render(tree))
		printBranches(env, branches, 1, opts)
	}
	return nil
}

func printBranches(env *Env, branches []*rootio.Branch, depth int, opts PrintBranchesOptions) {
	s := env.styles()
	indent := strings.Repeat("  ", depth)
	for _, b := range branches {
		line := indent + b.Name
		if opts.Types && b.Type != "" {
			line += " " + s.Type.Render("("+b.Type+")")
		}
		if opts.Width > 0 {
			line = truncate.StringWithTail(line, uint(opts.Width), "…")
		}
		fmt.Fprintln(env.Out, line)
		printBranches(env, b.Branches, depth+1, opts)
	}
}
