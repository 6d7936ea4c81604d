package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "auto", cfg.Implementation)
	assert.Equal(t, 1, cfg.NCopyAttempts)
	assert.Equal(t, 10*time.Second, cfg.RetrySleep)
	assert.Equal(t, 20, cfg.MaxWalkRequests)
	assert.Equal(t, []string{"/", "/store", "/store/user", "/store/user/*"}, cfg.RmBlacklist)
	assert.Empty(t, cfg.RmWhitelist)
	assert.True(t, cfg.CacheEnabled)
	assert.False(t, cfg.CacheListings)
	assert.Equal(t, 200, cfg.HaddChunkSize)
	assert.Equal(t, "hadd", cfg.HaddBinary)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Empty(t, cfg.DefaultMGM)
}

func TestCoerceBool(t *testing.T) {
	tests := []struct {
		name       string
		input      any
		defaultVal bool
		want       bool
	}{
		{name: "nil uses default", input: nil, defaultVal: true, want: true},
		{name: "bool", input: false, defaultVal: true, want: false},
		{name: "int", input: 1, want: true},
		{name: "yes", input: "yes", want: true},
		{name: "off", input: " off ", defaultVal: true, want: false},
		{name: "garbage", input: "maybe", defaultVal: true, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, coerceBool(tt.input, tt.defaultVal))
		})
	}
}

func TestCoerceInt(t *testing.T) {
	assert.Equal(t, 3, coerceInt(3, 1))
	assert.Equal(t, 7, coerceInt(" 7 ", 1))
	assert.Equal(t, 1, coerceInt("seven", 1))
	assert.Equal(t, 1, coerceInt(true, 1))
	assert.Equal(t, 1, coerceInt(nil, 1))
}

func TestCoerceDuration(t *testing.T) {
	assert.Equal(t, 5*time.Second, coerceDuration(5, time.Second))
	assert.Equal(t, 1500*time.Millisecond, coerceDuration(1.5, time.Second))
	assert.Equal(t, 2*time.Minute, coerceDuration("2m", time.Second))
	assert.Equal(t, 3*time.Second, coerceDuration("3", time.Second))
	assert.Equal(t, time.Second, coerceDuration("soon", time.Second))
}

func TestNormalizeList(t *testing.T) {
	assert.Equal(t, []string{}, normalizeList(nil))
	assert.Equal(t, []string{"/a", "/b"}, normalizeList("/a,/b"))
	assert.Equal(t, []string{"/a", "/b"}, normalizeList([]any{"/a", nil, " ", "/b"}))
}

func TestParseConfig(t *testing.T) {
	cfg := parseConfig(map[string]any{
		"default_mgm":       "root://cmseos.fnal.gov/",
		"implementation":    "GFAL",
		"n_copy_attempts":   3,
		"retry_sleep":       "1s",
		"max_walk_requests": 0,
		"rm_whitelist":      []any{"/store/user/me/*"},
		"cache_enabled":     "no",
		"hadd_chunk_size":   "50",
		"log_level":         "DEBUG",
	})

	assert.Equal(t, "root://cmseos.fnal.gov", cfg.DefaultMGM)
	assert.Equal(t, "gfal", cfg.Implementation)
	assert.Equal(t, 3, cfg.NCopyAttempts)
	assert.Equal(t, time.Second, cfg.RetrySleep)
	assert.Equal(t, 20, cfg.MaxWalkRequests, "non-positive values keep the default")
	assert.Equal(t, []string{"/store/user/me/*"}, cfg.RmWhitelist)
	assert.False(t, cfg.CacheEnabled)
	assert.Equal(t, 50, cfg.HaddChunkSize)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestParseConfigUnknownImplementation(t *testing.T) {
	cfg := parseConfig(map[string]any{"implementation": "ftp"})
	assert.Equal(t, "auto", cfg.Implementation)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv(MGMEnvKey, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
default_mgm: root://foo.bar.gov
rm_blacklist:
  - /
  - /store/group/*
cache_dir: $SEU_TEST_CACHE/x
`), 0o600))
	t.Setenv("SEU_TEST_CACHE", dir)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "root://foo.bar.gov", cfg.DefaultMGM)
	assert.Equal(t, []string{"/", "/store/group/*"}, cfg.RmBlacklist)
	assert.Equal(t, filepath.Join(dir, "x"), cfg.CacheDir)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "auto", cfg.Implementation)
}

func TestLoadConfigDefaultLocation(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv(MGMEnvKey, "")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "seutils"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seutils", "config.yml"), []byte("n_copy_attempts: 4\n"), 0o600))

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.NCopyAttempts)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("default_mgm: [unterminated"), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigEnvOverridesMGM(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(MGMEnvKey, "root://env.host.gov/")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "root://env.host.gov", cfg.DefaultMGM)
}

func TestApplyCLIOverrides(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.ApplyCLIOverrides([]string{
		"seu.default_mgm=root://cli.host.gov",
		"seu.rm_whitelist=/store/user/a/*",
		"seu.rm_whitelist=/store/user/b/*",
		"seu.hadd_threads=2",
	})
	require.NoError(t, err)
	assert.Equal(t, "root://cli.host.gov", cfg.DefaultMGM)
	assert.Equal(t, []string{"/store/user/a/*", "/store/user/b/*"}, cfg.RmWhitelist)
	assert.Equal(t, 2, cfg.HaddThreads)
	assert.Equal(t, 1, cfg.NCopyAttempts, "untouched keys keep their value")
}

func TestParseCLIConfigOverrides(t *testing.T) {
	tests := []struct {
		name      string
		overrides []string
		want      map[string]any
		wantErr   string
	}{
		{name: "single", overrides: []string{"seu.theme=nord"}, want: map[string]any{"theme": "nord"}},
		{name: "value with equals", overrides: []string{"seu.debug_log=/tmp/a=b"}, want: map[string]any{"debug_log": "/tmp/a=b"}},
		{
			name:      "three values make a list",
			overrides: []string{"seu.rm_blacklist=/a", "seu.rm_blacklist=/b", "seu.rm_blacklist=/c"},
			want:      map[string]any{"rm_blacklist": []any{"/a", "/b", "/c"}},
		},
		{name: "missing equals", overrides: []string{"seu.theme"}, wantErr: "invalid config override"},
		{name: "wrong prefix", overrides: []string{"lw.theme=nord"}, wantErr: "must start with"},
		{name: "empty key", overrides: []string{"seu.=x"}, wantErr: "empty config key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCLIConfigOverrides(tt.overrides)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := expandPath("~/x")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x"), got)
}
