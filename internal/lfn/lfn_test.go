package lfn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasProtocolAndSSH(t *testing.T) {
	assert.True(t, HasProtocol("root://foo.bar.gov//store"))
	assert.False(t, HasProtocol("/store/user"))
	assert.True(t, IsSSH("lxplus:/afs/foo"))
	assert.False(t, IsSSH("root://foo.bar.gov//store"))
	assert.False(t, IsSSH("/store"))
}

func TestSplitProtocol(t *testing.T) {
	protocol, server, l, err := SplitProtocol("root://foo.bar.gov//store/user/x")
	require.NoError(t, err)
	assert.Equal(t, "root", protocol)
	assert.Equal(t, "foo.bar.gov", server)
	assert.Equal(t, "/store/user/x", l)

	_, _, _, err = SplitProtocol("/store/user")
	require.Error(t, err)

	_, _, _, err = SplitProtocol("root://foo.bar.gov/store")
	require.Error(t, err)
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		mgm     string
		wantMGM string
		wantLFN string
		wantErr bool
	}{
		{name: "mgm from path", path: "root://foo.bar.gov//store/a", wantMGM: "root://foo.bar.gov", wantLFN: "/store/a"},
		{name: "explicit agreeing mgm", path: "root://foo.bar.gov//store/a", mgm: "root://foo.bar.gov", wantMGM: "root://foo.bar.gov", wantLFN: "/store/a"},
		{name: "conflicting mgm", path: "root://foo.bar.gov//store/a", mgm: "root://other.gov", wantErr: true},
		{name: "lfn with mgm", path: "/store/a", mgm: "gsiftp://foo.bar.edu", wantMGM: "gsiftp://foo.bar.edu", wantLFN: "/store/a"},
		{name: "relative lfn", path: "store/a", mgm: "root://foo.bar.gov", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgm, l, err := Split(tt.path, tt.mgm)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMGM, mgm)
			assert.Equal(t, tt.wantLFN, l)
		})
	}
}

func TestSplitWithoutDefault(t *testing.T) {
	_, _, err := Split("/store/a", "")
	assert.True(t, errors.Is(err, ErrNoDefaultMGM))
}

func TestFormat(t *testing.T) {
	got, err := Format("/store/user/../user/x/", "root://foo.bar.gov")
	require.NoError(t, err)
	assert.Equal(t, "root://foo.bar.gov//store/user/x", got)

	again, err := Format(got, "")
	require.NoError(t, err)
	assert.Equal(t, got, again, "format must be idempotent")

	ssh, err := Format("lxplus:/afs/x", "")
	require.NoError(t, err)
	assert.Equal(t, "lxplus:/afs/x", ssh)
}

func TestJoinRoundTrip(t *testing.T) {
	p := "root://foo.bar.gov//foo/bar/test.file"
	mgm, l, err := Split(p, "")
	require.NoError(t, err)
	joined, err := Join(mgm, l)
	require.NoError(t, err)
	assert.Equal(t, p, joined)

	_, err = Join(mgm, "relative")
	require.Error(t, err)
}

func TestDirnameBasenameNormpath(t *testing.T) {
	assert.Equal(t, "root://foo.bar.gov//foo", Dirname("root://foo.bar.gov//foo/bar"))
	assert.Equal(t, "root://foo.bar.gov//", Dirname("root://foo.bar.gov//foo"))
	assert.Equal(t, "/foo", Dirname("/foo/bar/"))
	assert.Equal(t, "bar", Basename("root://foo.bar.gov//foo/bar"))
	assert.Equal(t, "root://foo.bar.gov//foo/bar", Normpath("root://foo.bar.gov//foo/./bar/"))
	assert.Equal(t, "/foo/bar", Normpath("/foo//bar/"))
}

func TestParentDirs(t *testing.T) {
	assert.Equal(t,
		[]string{"root://foo.bar.gov//foo/bar", "root://foo.bar.gov//foo", "root://foo.bar.gov//"},
		ParentDirs("root://foo.bar.gov//foo/bar/test.file"),
	)
	assert.Equal(t, []string{"/foo", "/"}, ParentDirs("/foo/bar"))
}

func TestProtocolLFNMGM(t *testing.T) {
	assert.Equal(t, "gsiftp", Protocol("gsiftp://foo.bar.edu//x"))
	assert.Equal(t, "", Protocol("/x"))
	assert.Equal(t, "/x/y", LFN("root://foo.bar.gov//x/y"))
	assert.Equal(t, "root://foo.bar.gov", MGM("root://foo.bar.gov//x/y"))
	assert.Equal(t, "", MGM("/x/y"))
}
