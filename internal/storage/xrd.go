package storage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/seutils/seu/internal/executor"
	"github.com/seutils/seu/internal/lfn"
	"github.com/seutils/seu/internal/models"
)

const xrdTimeLayout = "2006-01-02 15:04:05"

var xrdExitCodes = map[int]error{
	54: ErrNoSuchPath,
	52: ErrPermissionDenied,
	51: ErrHostUnreachable,
}

// Xrd drives the xrootd command-line clients xrdfs and xrdcp.
type Xrd struct {
	runner executor.Runner
}

// NewXrd returns an xrootd implementation running its commands through runner.
func NewXrd(runner executor.Runner) *Xrd {
	return &Xrd{runner: runner}
}

func (x *Xrd) Name() string { return ImplXrd }

func (x *Xrd) Installed() bool { return executor.Installed("xrdfs") }

func (x *Xrd) run(ctx context.Context, op, path string, attempts int, args ...string) ([]string, error) {
	out, err := executor.Checked(ctx, x.runner, executor.Command{
		Args:      args,
		Attempts:  attempts,
		Path:      path,
		ExitCodes: xrdExitCodes,
	})
	return out, pathError(op, path, err)
}

// Stat parses the Size, MTime and Flags lines of `xrdfs <mgm> stat`.
func (x *Xrd) Stat(ctx context.Context, path string) (*models.Inode, error) {
	mgm, l, err := lfn.Split(path, "")
	if err != nil {
		return nil, err
	}
	out, err := x.run(ctx, "stat", path, 1, "xrdfs", mgm, "stat", l)
	if err != nil {
		return nil, err
	}
	return parseXrdStat(path, out)
}

func parseXrdStat(path string, output []string) (*models.Inode, error) {
	var (
		size                   int64
		modTime                time.Time
		haveSize, haveTime, ok bool
		isDir                  bool
	)
	for _, line := range output {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Size:"):
			fields := strings.Fields(line)
			if len(fields) < 2 {
				continue
			}
			n, err := strconv.ParseInt(fields[1], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("could not parse size from stat line %q: %w", line, err)
			}
			size, haveSize = n, true
		case strings.HasPrefix(line, "MTime:"):
			t, err := time.Parse(xrdTimeLayout, strings.TrimSpace(strings.TrimPrefix(line, "MTime:")))
			if err != nil {
				return nil, fmt.Errorf("could not parse mtime from stat line %q: %w", line, err)
			}
			modTime, haveTime = t, true
		case strings.HasPrefix(line, "Flags:"):
			isDir, ok = strings.Contains(line, "IsDir"), true
		}
	}
	switch {
	case !haveSize:
		return nil, fmt.Errorf("could not extract size from stat:\n%s", strings.Join(output, "\n"))
	case !haveTime:
		return nil, fmt.Errorf("could not extract modtime from stat:\n%s", strings.Join(output, "\n"))
	case !ok:
		return nil, fmt.Errorf("could not extract isdir from stat:\n%s", strings.Join(output, "\n"))
	}
	return models.NewInode(path, modTime, isDir, size), nil
}

func (x *Xrd) Mkdir(ctx context.Context, path string) error {
	mgm, l, err := lfn.Split(path, "")
	if err != nil {
		return err
	}
	_, err = x.run(ctx, "mkdir", path, 1, "xrdfs", mgm, "mkdir", "-p", l)
	return err
}

// Rm removes a file, or an empty directory when recursive is set. xrdfs cannot
// delete the contents of a directory.
func (x *Xrd) Rm(ctx context.Context, path string, recursive bool) error {
	mgm, l, err := lfn.Split(path, "")
	if err != nil {
		return err
	}
	inode, err := x.Stat(ctx, path)
	if err != nil {
		return err
	}
	verb := "rm"
	if inode.IsDir {
		if !recursive {
			return &PathError{Op: "rm", Path: path, Err: ErrIsDirectory}
		}
		verb = "rmdir"
	}
	_, err = x.run(ctx, "rm", path, 1, "xrdfs", mgm, verb, l)
	return err
}

func (x *Xrd) Cat(ctx context.Context, path string) (string, error) {
	mgm, l, err := lfn.Split(path, "")
	if err != nil {
		return "", err
	}
	out, err := x.run(ctx, "cat", path, 1, "xrdfs", mgm, "cat", l)
	if err != nil {
		return "", err
	}
	return strings.Join(out, "\n"), nil
}

func (x *Xrd) Listdir(ctx context.Context, dir string) ([]string, error) {
	mgm, l, err := lfn.Split(dir, "")
	if err != nil {
		return nil, err
	}
	out, err := x.run(ctx, "listdir", dir, 1, "xrdfs", mgm, "ls", l)
	if err != nil {
		return nil, err
	}
	contents := make([]string, 0, len(out))
	for _, line := range out {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		p, err := lfn.Format(line, mgm)
		if err != nil {
			return nil, err
		}
		contents = append(contents, p)
	}
	return contents, nil
}

func (x *Xrd) ListdirStat(ctx context.Context, dir string) ([]*models.Inode, error) {
	mgm, l, err := lfn.Split(dir, "")
	if err != nil {
		return nil, err
	}
	out, err := x.run(ctx, "listdir", dir, 1, "xrdfs", mgm, "ls", l, "-l")
	if err != nil {
		return nil, err
	}
	contents := make([]*models.Inode, 0, len(out))
	for _, line := range out {
		if strings.TrimSpace(line) == "" {
			continue
		}
		inode, err := parseXrdStatLine(line, mgm)
		if err != nil {
			return nil, err
		}
		contents = append(contents, inode)
	}
	return contents, nil
}

// parseXrdStatLine converts a line of `xrdfs <mgm> ls -l <path>`, e.g.
// "dr-x 2021-02-15 10:52:01 4096 /store/user/x", into an Inode.
func parseXrdStatLine(line, mgm string) (*models.Inode, error) {
	fields := strings.Fields(line)
	if len(fields) != 5 {
		return nil, fmt.Errorf("expected 5 components for stat line:\n%s", line)
	}
	modTime, err := time.Parse(xrdTimeLayout, fields[1]+" "+fields[2])
	if err != nil {
		return nil, fmt.Errorf("could not parse time in stat line %q: %w", line, err)
	}
	size, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("could not parse size in stat line %q: %w", line, err)
	}
	p, err := lfn.Format(fields[4], mgm)
	if err != nil {
		return nil, err
	}
	return models.NewInode(p, modTime, strings.HasPrefix(fields[0], "d"), size), nil
}

func (x *Xrd) Cp(ctx context.Context, src, dst string, opts CopyOptions) error {
	args := []string{"xrdcp"}
	if opts.Force {
		args = append(args, "-f")
	}
	if opts.CreateParents {
		args = append(args, "-p")
	}
	if opts.Silent {
		args = append(args, "-s")
	}
	args = append(args, src, dst)
	_, err := x.run(ctx, "cp", src+" -> "+dst, opts.Attempts, args...)
	return err
}
