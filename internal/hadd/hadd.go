// Package hadd merges ROOT files by driving ROOT's hadd, splitting long
// input lists into chunks that can be merged in parallel.
package hadd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/seutils/seu/internal/executor"
	"github.com/seutils/seu/internal/lfn"
	"github.com/seutils/seu/internal/log"
	"github.com/seutils/seu/internal/storage"
)

// DefaultChunkSize is the number of inputs merged by a single hadd call.
const DefaultChunkSize = 200

// ErrNoInputs is returned when Merge is given nothing to merge.
var ErrNoInputs = errors.New("no input files to merge")

// Options tunes Merge.
type Options struct {
	ChunkSize int
	// Parallel merges up to Threads chunks at the same time.
	Parallel bool
	Threads  int
	// Force overwrites an existing destination.
	Force bool
	// Binary is the hadd executable, "hadd" by default.
	Binary string
	// WorkDir is where chunk outputs are written, os.TempDir() by default.
	WorkDir string
}

// Event reports the progress of a merge: Done out of Total steps.
type Event struct {
	Done    int
	Total   int
	Message string
}

// Copier uploads a merged file to a storage element.
type Copier interface {
	Cp(ctx context.Context, src, dst string, opts storage.CopyOptions) error
}

// Merger runs merges.
type Merger struct {
	Runner executor.Runner
	// Storage copies the result when the destination is remote.
	Storage Copier
	// Dry logs what would happen without creating files.
	Dry      bool
	Progress func(Event)
}

func (m *Merger) report(done *atomic.Int64, total int, msg string) {
	n := int(done.Add(1))
	log.Infof("[%d/%d] %s", n, total, msg)
	if m.Progress != nil {
		m.Progress(Event{Done: n, Total: total, Message: msg})
	}
}

// Chunks splits src in consecutive chunks of at most size elements.
func Chunks(src []string, size int) [][]string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	chunks := make([][]string, 0, (len(src)+size-1)/size)
	for start := 0; start < len(src); start += size {
		end := min(start+size, len(src))
		chunks = append(chunks, src[start:end])
	}
	return chunks
}

// Merge merges src into dst. A remote dst is merged locally first and then
// copied.
func (m *Merger) Merge(ctx context.Context, src []string, dst string, opts Options) error {
	if len(src) == 0 {
		return ErrNoInputs
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Threads <= 0 {
		opts.Threads = 1
	}
	if opts.Binary == "" {
		opts.Binary = "hadd"
	}
	if opts.WorkDir == "" {
		opts.WorkDir = os.TempDir()
	}

	chunks := Chunks(src, opts.ChunkSize)
	total := 1
	if len(chunks) > 1 {
		total += len(chunks)
	}
	remote := lfn.HasProtocol(dst)
	if remote {
		total++
	}
	var done atomic.Int64

	localDst := dst
	if remote {
		if m.Storage == nil {
			return fmt.Errorf("cannot copy to %s: no storage client", dst)
		}
		localDst = filepath.Join(opts.WorkDir, "seu-hadd-"+uuid.NewString()+".root")
		defer m.remove(localDst)
	} else if !opts.Force {
		if _, err := os.Stat(dst); err == nil {
			return &storage.PathError{Op: "hadd", Path: dst, Err: storage.ErrExists}
		}
	}

	if len(chunks) == 1 {
		if err := m.hadd(ctx, opts.Binary, localDst, src); err != nil {
			return err
		}
		m.report(&done, total, "merged "+localDst)
	} else {
		if err := m.mergeChunks(ctx, chunks, localDst, opts, &done, total); err != nil {
			return err
		}
	}

	if remote {
		if m.Dry {
			log.Infof("DRYRUN: copy %s --> %s", localDst, dst)
		} else if err := m.Storage.Cp(ctx, localDst, dst, storage.CopyOptions{CreateParents: true, Force: opts.Force}); err != nil {
			return fmt.Errorf("copying merged file to %s: %w", dst, err)
		}
		m.report(&done, total, "copied to "+dst)
	}
	return nil
}

func (m *Merger) mergeChunks(ctx context.Context, chunks [][]string, dst string, opts Options, done *atomic.Int64, total int) error {
	workDir := filepath.Join(opts.WorkDir, "seu-hadd-"+uuid.NewString())
	log.Infof("Merging %d chunks in %s", len(chunks), workDir)
	if !m.Dry {
		if err := os.MkdirAll(workDir, 0o755); err != nil {
			return err
		}
	}
	defer m.remove(workDir)

	outputs := make([]string, len(chunks))
	for i := range chunks {
		outputs[i] = filepath.Join(workDir, fmt.Sprintf("chunk%d.root", i))
	}

	g, gctx := errgroup.WithContext(ctx)
	if opts.Parallel {
		g.SetLimit(opts.Threads)
	} else {
		g.SetLimit(1)
	}
	for i, chunk := range chunks {
		g.Go(func() error {
			if err := m.hadd(gctx, opts.Binary, outputs[i], chunk); err != nil {
				return fmt.Errorf("chunk %d: %w", i, err)
			}
			m.report(done, total, fmt.Sprintf("merged chunk %d/%d", i+1, len(chunks)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := m.hadd(ctx, opts.Binary, dst, outputs); err != nil {
		return err
	}
	m.report(done, total, "merged "+dst)
	return nil
}

func (m *Merger) hadd(ctx context.Context, binary, dst string, src []string) error {
	args := append([]string{binary, "-f", dst}, src...)
	_, err := executor.Checked(ctx, m.Runner, executor.Command{Args: args, Path: dst})
	return err
}

func (m *Merger) remove(p string) {
	if m.Dry {
		return
	}
	if err := os.RemoveAll(p); err != nil {
		log.Warnf("removing %s: %v", p, err)
	}
}
