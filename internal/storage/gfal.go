package storage

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/seutils/seu/internal/executor"
	"github.com/seutils/seu/internal/lfn"
	"github.com/seutils/seu/internal/models"
)

// gfal tools exit with the errno of the failure.
var gfalExitCodes = map[int]error{
	2:   ErrNoSuchPath,
	13:  ErrPermissionDenied,
	113: ErrHostUnreachable,
}

// Gfal drives the gfal2 command-line utilities.
type Gfal struct {
	runner executor.Runner
	// now is used to complete the year-less dates of gfal-ls -l.
	now func() time.Time
}

// NewGfal returns a gfal2 implementation running its commands through runner.
func NewGfal(runner executor.Runner) *Gfal {
	return &Gfal{runner: runner, now: time.Now}
}

func (g *Gfal) Name() string { return ImplGfal }

func (g *Gfal) Installed() bool { return executor.Installed("gfal-ls") }

func (g *Gfal) run(ctx context.Context, op, p string, attempts int, args ...string) ([]string, error) {
	out, err := executor.Checked(ctx, g.runner, executor.Command{
		Args:      args,
		Attempts:  attempts,
		Path:      p,
		ExitCodes: gfalExitCodes,
	})
	return out, pathError(op, p, err)
}

// Stat parses the output of gfal-stat:
//
//	  File: 'root://host//store/x'
//	  Size: 4096	directory
//	Access: (0755/drwxr-xr-x)	Uid: 0	Gid: 0
//	Modify: 2021-02-15 10:52:01.000000
func (g *Gfal) Stat(ctx context.Context, p string) (*models.Inode, error) {
	out, err := g.run(ctx, "stat", p, 1, "gfal-stat", p)
	if err != nil {
		return nil, err
	}
	return parseGfalStat(p, out)
}

func parseGfalStat(p string, output []string) (*models.Inode, error) {
	var (
		size               int64
		modTime            time.Time
		isDir              bool
		haveSize, haveTime bool
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
			if strings.Contains(line, "directory") {
				isDir = true
			}
		case strings.HasPrefix(line, "Access:") && strings.Contains(line, "("):
			if _, perms, ok := strings.Cut(line, "/"); ok && strings.HasPrefix(perms, "d") {
				isDir = true
			}
		case strings.HasPrefix(line, "Modify:"):
			stamp := strings.TrimSpace(strings.TrimPrefix(line, "Modify:"))
			if len(stamp) > len(xrdTimeLayout) {
				stamp = stamp[:len(xrdTimeLayout)]
			}
			t, err := time.Parse(xrdTimeLayout, stamp)
			if err != nil {
				return nil, fmt.Errorf("could not parse mtime from stat line %q: %w", line, err)
			}
			modTime, haveTime = t, true
		}
	}
	if !haveSize || !haveTime {
		return nil, fmt.Errorf("could not parse gfal-stat output:\n%s", strings.Join(output, "\n"))
	}
	return models.NewInode(p, modTime, isDir, size), nil
}

func (g *Gfal) Mkdir(ctx context.Context, p string) error {
	_, err := g.run(ctx, "mkdir", p, 1, "gfal-mkdir", "-p", p)
	return err
}

func (g *Gfal) Rm(ctx context.Context, p string, recursive bool) error {
	args := []string{"gfal-rm"}
	if recursive {
		args = append(args, "-r")
	} else {
		inode, err := g.Stat(ctx, p)
		if err != nil {
			return err
		}
		if inode.IsDir {
			return &PathError{Op: "rm", Path: p, Err: ErrIsDirectory}
		}
	}
	_, err := g.run(ctx, "rm", p, 1, append(args, p)...)
	return err
}

func (g *Gfal) Cat(ctx context.Context, p string) (string, error) {
	out, err := g.run(ctx, "cat", p, 1, "gfal-cat", p)
	if err != nil {
		return "", err
	}
	return strings.Join(out, "\n"), nil
}

func (g *Gfal) Listdir(ctx context.Context, dir string) ([]string, error) {
	out, err := g.run(ctx, "listdir", dir, 1, "gfal-ls", dir)
	if err != nil {
		return nil, err
	}
	contents := make([]string, 0, len(out))
	for _, name := range out {
		name = strings.TrimSpace(name)
		if name == "" || name == "." || name == ".." {
			continue
		}
		contents = append(contents, joinChild(dir, name))
	}
	return contents, nil
}

func (g *Gfal) ListdirStat(ctx context.Context, dir string) ([]*models.Inode, error) {
	out, err := g.run(ctx, "listdir", dir, 1, "gfal-ls", "-l", dir)
	if err != nil {
		return nil, err
	}
	contents := make([]*models.Inode, 0, len(out))
	for _, line := range out {
		if strings.TrimSpace(line) == "" {
			continue
		}
		inode, err := g.parseLsLine(dir, line)
		if err != nil {
			return nil, err
		}
		if inode == nil {
			continue
		}
		contents = append(contents, inode)
	}
	return contents, nil
}

// parseLsLine converts a line of `gfal-ls -l`, e.g.
// "drwxr-xr-x   1 0     0          4096 Feb 15 10:52 name", into an Inode.
func (g *Gfal) parseLsLine(dir, line string) (*models.Inode, error) {
	fields := strings.Fields(line)
	if len(fields) < 9 {
		return nil, fmt.Errorf("expected at least 9 components for gfal-ls line:\n%s", line)
	}
	name := strings.Join(fields[8:], " ")
	if name == "." || name == ".." {
		return nil, nil
	}
	size, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("could not parse size in gfal-ls line %q: %w", line, err)
	}
	modTime, err := g.parseLsTime(fields[5], fields[6], fields[7])
	if err != nil {
		return nil, fmt.Errorf("could not parse time in gfal-ls line %q: %w", line, err)
	}
	return models.NewInode(joinChild(dir, name), modTime, strings.HasPrefix(fields[0], "d"), size), nil
}

// parseLsTime handles both "Feb 15 10:52" (current year) and "Feb 15 2019".
func (g *Gfal) parseLsTime(month, day, clockOrYear string) (time.Time, error) {
	if strings.Contains(clockOrYear, ":") {
		t, err := time.Parse("Jan 2 15:04", month+" "+day+" "+clockOrYear)
		if err != nil {
			return time.Time{}, err
		}
		now := g.now()
		t = t.AddDate(now.Year(), 0, 0)
		if t.After(now.AddDate(0, 0, 1)) {
			t = t.AddDate(-1, 0, 0)
		}
		return t, nil
	}
	return time.Parse("Jan 2 2006", month+" "+day+" "+clockOrYear)
}

func (g *Gfal) Cp(ctx context.Context, src, dst string, opts CopyOptions) error {
	args := []string{"gfal-copy"}
	if opts.Force {
		args = append(args, "-f")
	}
	if opts.CreateParents {
		args = append(args, "-p")
	}
	if !opts.Silent {
		args = append(args, "-v")
	}
	args = append(args, src, dst)
	_, err := g.run(ctx, "cp", src+" -> "+dst, opts.Attempts, args...)
	return err
}

func joinChild(dir, name string) string {
	if lfn.HasProtocol(name) {
		return lfn.Normpath(name)
	}
	if !lfn.HasProtocol(dir) {
		return path.Join(dir, name)
	}
	mgm, l, err := lfn.Split(dir, "")
	if err != nil {
		return path.Join(dir, name)
	}
	joined, _ := lfn.Join(mgm, path.Join(l, name))
	return joined
}
