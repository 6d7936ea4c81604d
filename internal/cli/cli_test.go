package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seutils/seu/internal/executor/executortest"
	"github.com/seutils/seu/internal/hadd"
	"github.com/seutils/seu/internal/lfn"
	"github.com/seutils/seu/internal/rootio"
	"github.com/seutils/seu/internal/storage"
)

const host = "root://foo.bar.gov"

type testEnv struct {
	*Env
	fake   *storage.Fake
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestEnv(t *testing.T, stdin string) *testEnv {
	t.Helper()
	fake := storage.NewFake()
	resolver := &lfn.Resolver{DefaultMGM: host, User: "tester", Hostname: "laptop"}
	client, err := storage.NewClient([]storage.Implementation{fake}, storage.Options{
		Implementation: storage.ImplFake,
		Resolver:       resolver,
	})
	require.NoError(t, err)
	te := &testEnv{fake: fake, stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	te.Env = &Env{
		Storage:  client,
		Resolver: resolver,
		Out:      te.stdout,
		Err:      te.stderr,
		In:       strings.NewReader(stdin),
	}
	return te
}

func (te *testEnv) addFile(t *testing.T, l string, size int, mtime time.Time) {
	t.Helper()
	require.NoError(t, te.fake.AddFile(host+"/"+l, strings.Repeat("x", size), mtime))
}

func (te *testEnv) lines() []string {
	return strings.Split(strings.TrimRight(te.stdout.String(), "\n"), "\n")
}

func TestListUserStoreByDefault(t *testing.T) {
	te := newTestEnv(t, "")
	te.addFile(t, "/store/user/tester/a.root", 1, time.Time{})
	te.addFile(t, "/store/user/tester/b.root", 1, time.Time{})

	require.NoError(t, List(context.Background(), te.Env, nil, ListOptions{}))
	assert.Equal(t, []string{
		host + "//store/user/tester/a.root",
		host + "//store/user/tester/b.root",
	}, te.lines())
}

func TestListRelativePathIsPrefixed(t *testing.T) {
	te := newTestEnv(t, "")
	te.addFile(t, "/store/user/tester/sub/a.root", 1, time.Time{})

	require.NoError(t, List(context.Background(), te.Env, []string{"sub"}, ListOptions{}))
	assert.Equal(t, []string{host + "//store/user/tester/sub/a.root"}, te.lines())
}

func TestListLongSorted(t *testing.T) {
	old := time.Date(2021, 2, 15, 10, 52, 0, 0, time.UTC)
	recent := time.Date(2023, 6, 1, 8, 5, 0, 0, time.UTC)

	tests := []struct {
		name string
		sort string
		want []string
	}{
		{name: "by name", sort: SortName, want: []string{"big.root", "small.root"}},
		{name: "by date", sort: SortDate, want: []string{"small.root", "big.root"}},
		{name: "by size", sort: SortSize, want: []string{"big.root", "small.root"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := newTestEnv(t, "")
			te.addFile(t, "/store/user/tester/d/big.root", 2048, old)
			te.addFile(t, "/store/user/tester/d/small.root", 10, recent)

			require.NoError(t, List(context.Background(), te.Env, []string{"/store/user/tester/d"}, ListOptions{Long: true, Sort: tt.sort}))
			lines := te.lines()
			require.Len(t, lines, 2)
			for i, name := range tt.want {
				assert.True(t, strings.HasSuffix(lines[i], "/"+name), lines[i])
			}
		})
	}
}

func TestListLongFormat(t *testing.T) {
	te := newTestEnv(t, "")
	mtime := time.Date(2021, 2, 15, 10, 52, 0, 0, time.UTC)
	te.addFile(t, "/store/user/tester/a.root", 1024, mtime)

	require.NoError(t, List(context.Background(), te.Env, []string{"/store/user/tester/a.root"}, ListOptions{Long: true}))
	want := fmt.Sprintf("2021-02-15 10:52  %-8s  %s//store/user/tester/a.root\n", "1.0 kb", host)
	assert.Equal(t, want, te.stdout.String())
}

func TestListWildcard(t *testing.T) {
	te := newTestEnv(t, "")
	te.addFile(t, "/store/user/tester/a.root", 1, time.Time{})
	te.addFile(t, "/store/user/tester/b.txt", 1, time.Time{})

	require.NoError(t, List(context.Background(), te.Env, []string{"/store/user/tester/*.root"}, ListOptions{}))
	assert.Equal(t, []string{host + "//store/user/tester/a.root"}, te.lines())
}

func TestListIcons(t *testing.T) {
	te := newTestEnv(t, "")
	te.addFile(t, "/store/user/tester/a.go", 1, time.Time{})

	require.NoError(t, List(context.Background(), te.Env, []string{"/store/user/tester"}, ListOptions{Icons: true}))
	line := te.lines()[0]
	assert.True(t, strings.HasSuffix(line, host+"//store/user/tester/a.go"))
	assert.NotEqual(t, host+"//store/user/tester/a.go", line, "an icon is prepended")
}

func TestListErrors(t *testing.T) {
	te := newTestEnv(t, "")

	err := List(context.Background(), te.Env, []string{"/store/x"}, ListOptions{Sort: "color"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid sort key")

	err = List(context.Background(), te.Env, []string{"/store/missing"}, ListOptions{})
	assert.True(t, errors.Is(err, storage.ErrNoSuchPath), "got %v", err)
}

func TestDu(t *testing.T) {
	te := newTestEnv(t, "")
	te.addFile(t, "/store/user/tester/a.root", 10, time.Time{})
	te.addFile(t, "/store/user/tester/b.root", 3000, time.Time{})

	require.NoError(t, Du(context.Background(), te.Env, []string{"/store/user/tester/*"}, true))
	assert.Equal(t, []string{
		fmt.Sprintf("%-8s %s//store/user/tester/b.root", "2.9 kb", host),
		fmt.Sprintf("%-8s %s//store/user/tester/a.root", "10.0 b", host),
	}, te.lines())
}

func TestRemoveAsksOncePerPath(t *testing.T) {
	te := newTestEnv(t, "y\nn\nmaybe\n")
	for _, name := range []string{"a", "b", "c"} {
		te.addFile(t, "/store/user/tester/d/"+name+".root", 1, time.Time{})
	}

	err := Remove(context.Background(), te.Env, []string{"/store/user/tester/d/*.root"}, RemoveOptions{})
	require.NoError(t, err)

	prompts := te.stderr.String()
	assert.Equal(t, 3, strings.Count(prompts, "[y/n]? "))
	assert.Contains(t, prompts, "rm "+host+"//store/user/tester/d/a.root [y/n]? ")
	assert.Equal(t, []string{
		host + "//",
		host + "//store",
		host + "//store/user",
		host + "//store/user/tester",
		host + "//store/user/tester/d",
		host + "//store/user/tester/d/b.root",
		host + "//store/user/tester/d/c.root",
	}, te.fake.Paths())
}

func TestRemoveStopsAtEndOfInput(t *testing.T) {
	te := newTestEnv(t, "y\n")
	te.addFile(t, "/store/user/tester/a.root", 1, time.Time{})
	te.addFile(t, "/store/user/tester/b.root", 1, time.Time{})

	err := Remove(context.Background(), te.Env, []string{"a.root", "b.root"}, RemoveOptions{})
	require.NoError(t, err)
	assert.NotContains(t, te.fake.Paths(), host+"//store/user/tester/a.root")
	assert.Contains(t, te.fake.Paths(), host+"//store/user/tester/b.root")
}

func TestRemoveYesRecursive(t *testing.T) {
	te := newTestEnv(t, "")
	te.addFile(t, "/store/user/tester/d/a.root", 1, time.Time{})

	err := Remove(context.Background(), te.Env, []string{"/store/user/tester/d"}, RemoveOptions{Yes: true, Recursive: true})
	require.NoError(t, err)
	assert.Empty(t, te.stderr.String())
	assert.NotContains(t, te.fake.Paths(), host+"//store/user/tester/d")
}

func TestRemoveBlacklisted(t *testing.T) {
	te := newTestEnv(t, "")
	te.addFile(t, "/store/user/tester/a.root", 1, time.Time{})

	err := Remove(context.Background(), te.Env, []string{"/store/user/tester"}, RemoveOptions{Yes: true, Recursive: true})
	assert.True(t, errors.Is(err, storage.ErrRmSafety), "got %v", err)
	assert.Contains(t, te.fake.Paths(), host+"//store/user/tester/a.root")
}

func TestMkdir(t *testing.T) {
	te := newTestEnv(t, "")

	require.NoError(t, Mkdir(context.Background(), te.Env, []string{"new/dir"}, ""))
	assert.Contains(t, te.fake.Paths(), host+"//store/user/tester/new/dir")

	err := Mkdir(context.Background(), te.Env, []string{"/store/ok", "/store/*/x"}, "")
	assert.True(t, errors.Is(err, storage.ErrWildcardForbidden), "got %v", err)
	assert.NotContains(t, te.fake.Paths(), host+"//store/ok", "nothing is created when a path is refused")
}

func TestCat(t *testing.T) {
	te := newTestEnv(t, "")
	require.NoError(t, te.fake.AddFile(host+"//store/user/tester/a.txt", "hello\n", time.Time{}))
	require.NoError(t, te.fake.AddFile(host+"//store/user/tester/b.txt", "world", time.Time{}))

	require.NoError(t, Cat(context.Background(), te.Env, []string{"/store/user/tester/*.txt"}))
	assert.Equal(t, "hello\nworld\n", te.stdout.String())
}

func TestFormat(t *testing.T) {
	te := newTestEnv(t, "")

	require.NoError(t, Format(te.Env, []string{"a/b", "/store/x/", "gsiftp://other.edu//store/y"}, ""))
	assert.Equal(t, []string{
		host + "//store/user/tester/a/b",
		host + "//store/x",
		"gsiftp://other.edu//store/y",
	}, te.lines())

	te.stdout.Reset()
	require.NoError(t, Format(te.Env, []string{"/store/x"}, "root://mgm.gov"))
	assert.Equal(t, "root://mgm.gov//store/x\n", te.stdout.String())
}

func TestExpandLFNs(t *testing.T) {
	te := newTestEnv(t, "")
	te.addFile(t, "/store/user/tester/a.root", 1, time.Time{})
	te.addFile(t, "/store/user/tester/b.root", 1, time.Time{})

	got, err := ExpandLFNs(context.Background(), te.Env, []string{"*.root", "/store/other"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{
		host + "//store/user/tester/a.root",
		host + "//store/user/tester/b.root",
		host + "//store/other",
	}, got)
}

func TestExpandRootFilesLocal(t *testing.T) {
	te := newTestEnv(t, "")
	dir := t.TempDir()
	for _, name := range []string{"a.root", "b.root"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o600))
	}

	got, err := expandRootFiles(context.Background(), te.Env, []string{filepath.Join(dir, "*.root")}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.root"), filepath.Join(dir, "b.root")}, got)

	got, err = expandRootFiles(context.Background(), te.Env, []string{filepath.Join(dir, "a.root")}, "root://mgm.gov")
	require.NoError(t, err)
	assert.Equal(t, []string{"root://mgm.gov/" + filepath.Join(dir, "a.root")}, got, "an explicit mgm makes paths remote")
}

type fakeReader struct {
	counts   map[string]int64
	trees    []string
	branches map[string][]*rootio.Branch
}

func (r *fakeReader) Trees(context.Context, string) ([]string, error) {
	return r.trees, nil
}

func (r *fakeReader) NEntries(_ context.Context, file, _ string) (int64, error) {
	n, ok := r.counts[file]
	if !ok {
		return 0, fmt.Errorf("cannot open %s", file)
	}
	return n, nil
}

func (r *fakeReader) Branches(_ context.Context, _, treepath string) ([]*rootio.Branch, error) {
	b, ok := r.branches[treepath]
	if !ok {
		return nil, fmt.Errorf("no tree %s", treepath)
	}
	return b, nil
}

func TestNEntries(t *testing.T) {
	te := newTestEnv(t, "")
	a := host + "//store/user/tester/a.root"
	b := host + "//store/user/tester/b.root"
	c := host + "//store/user/tester/c.root"
	reader := &fakeReader{counts: map[string]int64{a: 100, c: 23}}

	err := NEntries(context.Background(), te.Env, reader, []string{a, b, c}, NEntriesOptions{Threads: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"100  " + a,
		"  -  " + b,
		" 23  " + c,
		"123  total",
	}, te.lines())
}

func TestPrintBranches(t *testing.T) {
	te := newTestEnv(t, "")
	reader := &fakeReader{
		trees: []string{"Events", "dir/Meta"},
		branches: map[string][]*rootio.Branch{
			"Events": {
				{Name: "pt", Type: "float32"},
				{Name: "jets", Type: "TBranchElement", Branches: []*rootio.Branch{{Name: "jets.eta", Type: "float64"}}},
			},
			"dir/Meta": {{Name: "run", Type: "int32"}},
		},
	}
	file := host + "//store/user/tester/a.root"

	require.NoError(t, PrintBranches(context.Background(), te.Env, reader, file, PrintBranchesOptions{}))
	assert.Equal(t, []string{"Events", "  pt", "  jets", "    jets.eta", "dir/Meta", "  run"}, te.lines())

	te.stdout.Reset()
	require.NoError(t, PrintBranches(context.Background(), te.Env, reader, file, PrintBranchesOptions{TreePath: "Events", Types: true}))
	assert.Equal(t, []string{"Events", "  pt (float32)", "  jets (TBranchElement)", "    jets.eta (float64)"}, te.lines())

	te.stdout.Reset()
	require.NoError(t, PrintBranches(context.Background(), te.Env, reader, file, PrintBranchesOptions{TreePath: "Events", Types: true, Width: 8}))
	assert.Equal(t, "  pt (f…", te.lines()[1])
}

func TestHadd(t *testing.T) {
	te := newTestEnv(t, "")
	dir := t.TempDir()
	var src []string
	for _, name := range []string{"a.root", "b.root", "c.root"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, nil, 0o600))
		src = append(src, p)
	}
	runner := &executortest.Runner{}
	merger := &hadd.Merger{Runner: runner, Storage: te.Storage}
	dst := filepath.Join(dir, "out.root")

	err := Hadd(context.Background(), te.Env, merger, []string{filepath.Join(dir, "*.root")}, HaddOptions{Dst: dst})
	require.NoError(t, err)
	assert.Equal(t, []string{"hadd -f " + dst + " " + strings.Join(src, " ")}, runner.CommandLines())
}

func TestHaddErrors(t *testing.T) {
	te := newTestEnv(t, "")
	merger := &hadd.Merger{Runner: &executortest.Runner{}}

	err := Hadd(context.Background(), te.Env, merger, []string{"x.root"}, HaddOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no destination")

	te.addFile(t, "/store/user/tester/a.txt", 1, time.Time{})
	err = Hadd(context.Background(), te.Env, merger, []string{"/store/user/tester/*.root"}, HaddOptions{Dst: "out.root"})
	assert.True(t, errors.Is(err, hadd.ErrNoInputs), "got %v", err)
}
