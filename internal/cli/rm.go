package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/seutils/seu/internal/log"
	"github.com/seutils/seu/internal/storage"
)

// RemoveOptions configures Remove.
type RemoveOptions struct {
	MGM       string
	Yes       bool
	Recursive bool
}

// Remove expands the paths and removes each one the user confirms. Without
// Yes the user is asked once per path; only "y" removes. End of input stops
// the command without removing anything further.
func Remove(ctx context.Context, env *Env, paths []string, opts RemoveOptions) error {
	expanded, err := ExpandLFNs(ctx, env, paths, opts.MGM)
	if err != nil {
		return err
	}
	if len(expanded) == 0 {
		log.Warnf("Nothing to remove")
		return nil
	}

	flag := ""
	if opts.Recursive {
		flag = "-r "
	}
	var scanner *bufio.Scanner
	if !opts.Yes {
		scanner = bufio.NewScanner(env.In)
	}
	for _, path := range expanded {
		if !opts.Yes {
			fmt.Fprint(env.Err, env.styles().Prompt.Render(fmt.Sprintf("rm %s%s [y/n]? ", flag, path)))
			if !scanner.Scan() {
				fmt.Fprintln(env.Err)
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("reading answer: %w", err)
				}
				return nil
			}
			if strings.ToLower(strings.TrimSpace(scanner.Text())) != "y" {
				log.Infof("Skipping %s", path)
				continue
			}
		}
		if err := env.Storage.Rm(ctx, path, opts.Recursive); err != nil {
			return err
		}
	}
	return nil
}

// Mkdir creates every path. Wildcards are refused.
func Mkdir(ctx context.Context, env *Env, paths []string, mgm string) error {
	for _, p := range paths {
		if hasWildcard(p) {
			return &storage.PathError{Op: "mkdir", Path: p, Err: storage.ErrWildcardForbidden}
		}
	}
	for _, p := range paths {
		path, err := env.resolver().Flexible(p, mgm)
		if err != nil {
			return err
		}
		if err := env.Storage.Mkdir(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

// Cat prints the contents of every path.
func Cat(ctx context.Context, env *Env, paths []string) error {
	expanded, err := ExpandLFNs(ctx, env, paths, "")
	if err != nil {
		return err
	}
	for _, path := range expanded {
		contents, err := env.Storage.Cat(ctx, path)
		if err != nil {
			return err
		}
		fmt.Fprintln(env.Out, strings.TrimSuffix(contents, "\n"))
	}
	return nil
}

// Format prints the fully formatted form of every path.
func Format(env *Env, paths []string, mgm string) error {
	for _, p := range paths {
		path, err := env.resolver().Flexible(p, mgm)
		if err != nil {
			return err
		}
		fmt.Fprintln(env.Out, path)
	}
	return nil
}
