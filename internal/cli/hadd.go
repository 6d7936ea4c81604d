package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/seutils/seu/internal/hadd"
	"github.com/seutils/seu/internal/log"
)

// HaddOptions configures Hadd.
type HaddOptions struct {
	hadd.Options
	Dst string
	MGM string
	// Progress draws a progress bar on the error stream.
	Progress bool
}

// Hadd expands the inputs and merges them into the destination.
func Hadd(ctx context.Context, env *Env, merger *hadd.Merger, src []string, opts HaddOptions) error {
	if opts.Dst == "" {
		return errors.New("no destination given (use --dst)")
	}
	files, err := expandRootFiles(ctx, env, src, opts.MGM)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("%w: %v", hadd.ErrNoInputs, src)
	}

	dst := opts.Dst
	if isRemote(dst, opts.MGM) {
		if dst, err = env.resolver().Flexible(dst, opts.MGM); err != nil {
			return err
		}
	}
	log.Infof("Merging %d files into %s", len(files), dst)

	if !opts.Progress || merger.Dry {
		return merger.Merge(ctx, files, dst, opts.Options)
	}
	steps := hadd.Steps(len(files), dst, opts.Options)
	return hadd.RunWithProgress(ctx, env.Err, steps, env.styles().Muted, func(report func(hadd.Event)) error {
		m := *merger
		m.Progress = report
		return m.Merge(ctx, files, dst, opts.Options)
	})
}
