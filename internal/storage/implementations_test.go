package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seutils/seu/internal/executor"
	"github.com/seutils/seu/internal/executor/executortest"
	"github.com/seutils/seu/internal/models"
)

func TestXrdStat(t *testing.T) {
	runner := &executortest.Runner{Handler: func(cmd executor.Command) (*executor.Result, error) {
		return executortest.Output(
			"Path:   /store/user/test",
			"Id:     0",
			"Size:   4096",
			"MTime:  2021-02-15 10:52:01",
			"Flags:  51 (XBitSet|IsDir|IsReadable)",
		), nil
	}}
	xrd := NewXrd(runner)

	inode, err := xrd.Stat(context.Background(), host+"//store/user/test")
	require.NoError(t, err)
	assert.True(t, inode.IsDir)
	assert.Equal(t, int64(4096), inode.Size)
	assert.Equal(t, time.Date(2021, 2, 15, 10, 52, 1, 0, time.UTC), inode.ModTime)
	assert.Equal(t, []string{"xrdfs root://foo.bar.gov stat /store/user/test"}, runner.CommandLines())
}

func TestXrdStatErrors(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{54, ErrNoSuchPath},
		{52, ErrPermissionDenied},
		{51, ErrHostUnreachable},
	}
	for _, tt := range tests {
		runner := &executortest.Runner{Handler: func(executor.Command) (*executor.Result, error) {
			return executortest.Exit(tt.code, "[ERROR] Server responded with an error"), nil
		}}
		_, err := NewXrd(runner).Stat(context.Background(), host+"//store/x")
		assert.True(t, errors.Is(err, tt.want), "exit code %d", tt.code)
		var pe *PathError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, host+"//store/x", pe.Path)
	}

	runner := &executortest.Runner{Handler: func(executor.Command) (*executor.Result, error) {
		return executortest.Output("Size: 12"), nil
	}}
	_, err := NewXrd(runner).Stat(context.Background(), host+"//store/x")
	require.Error(t, err)
}

func TestXrdListdirStat(t *testing.T) {
	runner := &executortest.Runner{Handler: func(executor.Command) (*executor.Result, error) {
		return executortest.Output(
			"dr-x 2021-02-15 10:52:01        4096 /store/user/test/dir",
			"-r-- 2021-02-16 11:00:00        1234 /store/user/test/file.root",
			"",
		), nil
	}}
	inodes, err := NewXrd(runner).ListdirStat(context.Background(), host+"//store/user/test")
	require.NoError(t, err)
	require.Len(t, inodes, 2)
	assert.True(t, inodes[0].IsDir)
	assert.Equal(t, host+"//store/user/test/file.root", inodes[1].Path)
	assert.Equal(t, int64(1234), inodes[1].Size)
	assert.Equal(t, []string{"xrdfs root://foo.bar.gov ls /store/user/test -l"}, runner.CommandLines())

	_, err = parseXrdStatLine("dr-x 2021-02-15 4096 /x", "root://h")
	require.Error(t, err)
}

func TestXrdListdir(t *testing.T) {
	runner := &executortest.Runner{Handler: func(executor.Command) (*executor.Result, error) {
		return executortest.Output("/store/user/test/a", "/store/user/test/b"), nil
	}}
	contents, err := NewXrd(runner).Listdir(context.Background(), host+"//store/user/test")
	require.NoError(t, err)
	assert.Equal(t, []string{host + "//store/user/test/a", host + "//store/user/test/b"}, contents)
}

func TestXrdRm(t *testing.T) {
	statDir := func(cmd executor.Command) (*executor.Result, error) {
		if cmd.Args[2] == "stat" {
			return executortest.Output("Size: 0", "MTime: 2021-02-15 10:52:01", "Flags: 19 (IsDir)"), nil
		}
		return executortest.Output(), nil
	}
	runner := &executortest.Runner{Handler: statDir}
	xrd := NewXrd(runner)

	err := xrd.Rm(context.Background(), host+"//store/user/test/dir", false)
	assert.True(t, errors.Is(err, ErrIsDirectory))

	require.NoError(t, xrd.Rm(context.Background(), host+"//store/user/test/dir", true))
	lines := runner.CommandLines()
	assert.Equal(t, "xrdfs root://foo.bar.gov rmdir /store/user/test/dir", lines[len(lines)-1])
}

func TestXrdCpAndMkdir(t *testing.T) {
	runner := &executortest.Runner{}
	xrd := NewXrd(runner)
	require.NoError(t, xrd.Cp(context.Background(), "/tmp/a", host+"//store/a", CopyOptions{Attempts: 3, CreateParents: true, Force: true}))
	require.NoError(t, xrd.Mkdir(context.Background(), host+"//store/new"))
	require.NoError(t, xrd.Cp(context.Background(), "/tmp/b", host+"//store/b", CopyOptions{Silent: true}))
	assert.Equal(t, []string{
		"xrdcp -f -p /tmp/a root://foo.bar.gov//store/a",
		"xrdfs root://foo.bar.gov mkdir -p /store/new",
		"xrdcp -s /tmp/b root://foo.bar.gov//store/b",
	}, runner.CommandLines())
	assert.Equal(t, 3, runner.Calls()[0].Attempts)
}

func TestGfalStat(t *testing.T) {
	runner := &executortest.Runner{Handler: func(executor.Command) (*executor.Result, error) {
		return executortest.Output(
			"  File: 'root://foo.bar.gov//store/user/test'",
			"  Size: 512\tdirectory",
			"Access: (0755/drwxr-xr-x)\tUid: 0\tGid: 0",
			"Access: 2021-02-15 10:52:01.000000",
			"Modify: 2021-02-15 10:52:01.000000",
		), nil
	}}
	inode, err := NewGfal(runner).Stat(context.Background(), host+"//store/user/test")
	require.NoError(t, err)
	assert.True(t, inode.IsDir)
	assert.Equal(t, int64(512), inode.Size)
	assert.Equal(t, 2021, inode.ModTime.Year())

	missing := &executortest.Runner{Handler: func(executor.Command) (*executor.Result, error) {
		return executortest.Exit(2, "gfal-stat error: 2 (No such file or directory)"), nil
	}}
	_, err = NewGfal(missing).Stat(context.Background(), host+"//store/x")
	assert.True(t, errors.Is(err, ErrNoSuchPath))
}

func TestGfalListdirStat(t *testing.T) {
	runner := &executortest.Runner{Handler: func(executor.Command) (*executor.Result, error) {
		return executortest.Output(
			"drwxr-xr-x   1 0     0          4096 Feb 15 10:52 sub",
			"-rw-r--r--   1 0     0          1234 Mar  3  2019 file.root",
		), nil
	}}
	gfal := NewGfal(runner)
	gfal.now = func() time.Time { return time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC) }

	inodes, err := gfal.ListdirStat(context.Background(), host+"//store/user/test")
	require.NoError(t, err)
	require.Len(t, inodes, 2)
	assert.Equal(t, host+"//store/user/test/sub", inodes[0].Path)
	assert.True(t, inodes[0].IsDir)
	assert.Equal(t, time.Date(2021, 2, 15, 10, 52, 0, 0, time.UTC), inodes[0].ModTime)
	assert.Equal(t, 2019, inodes[1].ModTime.Year())
	assert.Equal(t, int64(1234), inodes[1].Size)
}

func TestGfalCommands(t *testing.T) {
	runner := &executortest.Runner{Handler: func(cmd executor.Command) (*executor.Result, error) {
		if cmd.Args[0] == "gfal-ls" {
			return executortest.Output("a.root", "b.root"), nil
		}
		return executortest.Output(), nil
	}}
	gfal := NewGfal(runner)
	ctx := context.Background()

	contents, err := gfal.Listdir(ctx, host+"//store/x")
	require.NoError(t, err)
	assert.Equal(t, []string{host + "//store/x/a.root", host + "//store/x/b.root"}, contents)
	require.NoError(t, gfal.Mkdir(ctx, host+"//store/x/new"))
	require.NoError(t, gfal.Rm(ctx, host+"//store/x/new", true))
	require.NoError(t, gfal.Cp(ctx, "/tmp/a", host+"//store/x/a", CopyOptions{CreateParents: true}))
	require.NoError(t, gfal.Cp(ctx, "/tmp/b", host+"//store/x/b", CopyOptions{Silent: true}))

	assert.Equal(t, []string{
		"gfal-ls root://foo.bar.gov//store/x",
		"gfal-mkdir -p root://foo.bar.gov//store/x/new",
		"gfal-rm -r root://foo.bar.gov//store/x/new",
		"gfal-copy -p -v /tmp/a root://foo.bar.gov//store/x/a",
		"gfal-copy /tmp/b root://foo.bar.gov//store/x/b",
	}, runner.CommandLines())
}

type stubImpl struct {
	name      string
	installed bool
}

func (s stubImpl) Name() string {
	return s.name
}

func (s stubImpl) Installed() bool {
	return s.installed
}

func (s stubImpl) Stat(context.Context, string) (*models.Inode, error) {
	return nil, nil
}

func (s stubImpl) Mkdir(context.Context, string) error {
	return nil
}

func (s stubImpl) Rm(context.Context, string, bool) error {
	return nil
}

func (s stubImpl) Cat(context.Context, string) (string, error) {
	return "", nil
}

func (s stubImpl) Listdir(context.Context, string) ([]string, error) {
	return nil, nil
}

func (s stubImpl) ListdirStat(context.Context, string) ([]*models.Inode, error) {
	return nil, nil
}

func (s stubImpl) Cp(context.Context, string, string, CopyOptions) error {
	return nil
}

func TestImplementationSelection(t *testing.T) {
	both := []Implementation{stubImpl{name: ImplXrd, installed: true}, stubImpl{name: ImplGfal, installed: true}}
	client, err := NewClient(both, Options{})
	require.NoError(t, err)

	impl, err := client.Implementation("rm", host+"//store/x")
	require.NoError(t, err)
	assert.Equal(t, ImplGfal, impl.Name())

	impl, err = client.Implementation("stat", host+"//store/x")
	require.NoError(t, err)
	assert.Equal(t, ImplXrd, impl.Name())

	impl, err = client.Implementation("stat", "gsiftp://foo.bar.edu//store/x")
	require.NoError(t, err)
	assert.Equal(t, ImplGfal, impl.Name())

	_, err = client.Implementation("stat", "lxplus:/afs/x")
	assert.True(t, errors.Is(err, ErrNoImplementation))

	onlyXrd, err := NewClient([]Implementation{stubImpl{name: ImplXrd, installed: true}, stubImpl{name: ImplGfal}}, Options{})
	require.NoError(t, err)
	impl, err = onlyXrd.Implementation("rm", host+"//store/x")
	require.NoError(t, err)
	assert.Equal(t, ImplXrd, impl.Name())
	_, err = onlyXrd.Implementation("stat", "gsiftp://foo.bar.edu//store/x")
	assert.True(t, errors.Is(err, ErrNoImplementation))

	forced, err := NewClient(both, Options{Implementation: ImplGfal})
	require.NoError(t, err)
	impl, err = forced.Implementation("stat", host+"//store/x")
	require.NoError(t, err)
	assert.Equal(t, ImplGfal, impl.Name())
}

func TestRmSafetyCheck(t *testing.T) {
	s := &RmSafety{Blacklist: DefaultRmBlacklist}
	assert.True(t, errors.Is(s.Check("/store/user/x/y"), ErrRmSafety), "local paths are refused")
	assert.True(t, errors.Is(s.Check(host+"//store/user/someone"), ErrRmSafety))
	assert.True(t, errors.Is(s.Check(host+"//store/user/someone/"), ErrRmSafety))
	assert.NoError(t, s.Check(host+"//store/user/someone/file.root"))
	assert.NoError(t, s.Check(host+"//data/x"))

	w := &RmSafety{Blacklist: DefaultRmBlacklist, Whitelist: []string{"/store/user/me/"}}
	assert.NoError(t, w.Check(host+"//store/user/me/x.root"))
	assert.True(t, errors.Is(w.Check(host+"//store/user/other/x.root"), ErrRmSafety))

	special := &RmSafety{Blacklist: []string{"/store/group/[a]*"}}
	assert.True(t, errors.Is(special.Check(host+"//store/group/[a]bc"), ErrRmSafety))
	assert.NoError(t, special.Check(host+"//store/group/abc"))
}
