// Package config loads the seu configuration from YAML, the environment and
// command-line overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// MGMEnvKey overrides default_mgm when set.
const MGMEnvKey = "SEU_DEFAULT_MGM"

// AppConfig defines the global seu configuration options.
type AppConfig struct {
	DefaultMGM      string
	Implementation  string        // auto, xrd, gfal or fake
	NCopyAttempts   int           // attempts of a copy before giving up
	RetrySleep      time.Duration // pause between copy attempts
	MaxWalkRequests int           // listing requests allowed in a single walk
	RmBlacklist     []string
	RmWhitelist     []string
	CacheEnabled    bool
	CacheDir        string
	CacheListings   bool // also cache stat and listdir results
	HaddChunkSize   int
	HaddThreads     int
	HaddBinary      string
	NEntriesThreads int
	LogLevel        string
	DebugLog        string
	FakeFSFile      string // YAML fixture seeding the fake implementation
	ShowIcons       bool
	Theme           string
}

// DefaultConfig returns the default configuration values.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Implementation:  "auto",
		NCopyAttempts:   1,
		RetrySleep:      10 * time.Second,
		MaxWalkRequests: 20,
		RmBlacklist:     []string{"/", "/store", "/store/user", "/store/user/*"},
		RmWhitelist:     []string{},
		CacheEnabled:    true,
		CacheDir:        filepath.Join(getCacheDir(), "seutils"),
		HaddChunkSize:   200,
		HaddThreads:     min(runtime.NumCPU(), 6),
		HaddBinary:      "hadd",
		NEntriesThreads: min(runtime.NumCPU(), 6),
		LogLevel:        "warn",
		Theme:           "dracula",
	}
}

func normalizeList(value any) []string {
	if value == nil {
		return []string{}
	}

	switch v := value.(type) {
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return []string{}
		}
		return strings.Split(text, ",")
	case []any:
		items := []string{}
		for _, item := range v {
			if item == nil {
				continue
			}
			text := strings.TrimSpace(fmt.Sprintf("%v", item))
			if text != "" {
				items = append(items, text)
			}
		}
		return items
	}
	return []string{}
}

func coerceBool(value any, defaultVal bool) bool {
	if value == nil {
		return defaultVal
	}

	switch v := value.(type) {
	case bool:
		return v
	case int:
		return v != 0
	case string:
		text := strings.ToLower(strings.TrimSpace(v))
		switch text {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return defaultVal
}

func coerceInt(value any, defaultVal int) int {
	if value == nil {
		return defaultVal
	}

	switch v := value.(type) {
	case bool:
		return defaultVal
	case int:
		return v
	case string:
		text := strings.TrimSpace(v)
		if text == "" {
			return defaultVal
		}
		if i, err := strconv.Atoi(text); err == nil {
			return i
		}
	}
	return defaultVal
}

// coerceDuration accepts Go durations ("1m30s") and plain numbers of seconds.
func coerceDuration(value any, defaultVal time.Duration) time.Duration {
	switch v := value.(type) {
	case int:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	case string:
		text := strings.TrimSpace(v)
		if d, err := time.ParseDuration(text); err == nil {
			return d
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return time.Duration(f * float64(time.Second))
		}
	}
	return defaultVal
}

func coerceString(value any, defaultVal string) string {
	if value == nil {
		return defaultVal
	}
	text := strings.TrimSpace(fmt.Sprintf("%v", value))
	if text == "" {
		return defaultVal
	}
	return text
}

var implementations = []string{"auto", "xrd", "gfal", "fake"}

func parseConfig(data map[string]any) *AppConfig {
	cfg := DefaultConfig()
	applyConfig(cfg, data)
	return cfg
}

func applyConfig(cfg *AppConfig, data map[string]any) {
	cfg.DefaultMGM = strings.TrimRight(coerceString(data["default_mgm"], cfg.DefaultMGM), "/")

	if impl := strings.ToLower(coerceString(data["implementation"], "")); impl != "" {
		for _, known := range implementations {
			if impl == known {
				cfg.Implementation = impl
			}
		}
	}

	if n := coerceInt(data["n_copy_attempts"], cfg.NCopyAttempts); n > 0 {
		cfg.NCopyAttempts = n
	}
	if d := coerceDuration(data["retry_sleep"], cfg.RetrySleep); d >= 0 {
		cfg.RetrySleep = d
	}
	if n := coerceInt(data["max_walk_requests"], cfg.MaxWalkRequests); n > 0 {
		cfg.MaxWalkRequests = n
	}
	if v, ok := data["rm_blacklist"]; ok {
		cfg.RmBlacklist = normalizeList(v)
	}
	if v, ok := data["rm_whitelist"]; ok {
		cfg.RmWhitelist = normalizeList(v)
	}

	cfg.CacheEnabled = coerceBool(data["cache_enabled"], cfg.CacheEnabled)
	cfg.CacheListings = coerceBool(data["cache_listings"], cfg.CacheListings)
	if dir := coerceString(data["cache_dir"], ""); dir != "" {
		if expanded, err := expandPath(dir); err == nil {
			cfg.CacheDir = expanded
		}
	}

	if n := coerceInt(data["hadd_chunk_size"], cfg.HaddChunkSize); n > 0 {
		cfg.HaddChunkSize = n
	}
	if n := coerceInt(data["hadd_threads"], cfg.HaddThreads); n > 0 {
		cfg.HaddThreads = n
	}
	cfg.HaddBinary = coerceString(data["hadd_binary"], cfg.HaddBinary)
	if n := coerceInt(data["nentries_threads"], cfg.NEntriesThreads); n > 0 {
		cfg.NEntriesThreads = n
	}

	cfg.LogLevel = strings.ToLower(coerceString(data["log_level"], cfg.LogLevel))
	cfg.DebugLog = coerceString(data["debug_log"], cfg.DebugLog)
	if f := coerceString(data["fake_fs_file"], ""); f != "" {
		if expanded, err := expandPath(f); err == nil {
			cfg.FakeFSFile = expanded
		}
	}
	cfg.ShowIcons = coerceBool(data["show_icons"], cfg.ShowIcons)
	cfg.Theme = strings.ToLower(coerceString(data["theme"], cfg.Theme))
}

func getConfigDir() string {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config")
}

func getCacheDir() string {
	if xdgCacheHome := os.Getenv("XDG_CACHE_HOME"); xdgCacheHome != "" {
		return xdgCacheHome
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cache")
}

// Path returns the default configuration file locations, in lookup order.
func Path() []string {
	base := filepath.Join(getConfigDir(), "seutils")
	return []string{
		filepath.Join(base, "config.yaml"),
		filepath.Join(base, "config.yml"),
	}
}

// LoadConfig reads the configuration from configPath, or from the first
// existing default location when configPath is empty. A missing file yields
// the defaults. SEU_DEFAULT_MGM is applied on top.
func LoadConfig(configPath string) (*AppConfig, error) {
	var paths []string
	if configPath != "" {
		expanded, err := expandPath(configPath)
		if err != nil {
			return withEnv(DefaultConfig()), err
		}
		paths = []string{expanded}
	} else {
		paths = Path()
	}

	cfg := DefaultConfig()
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if configPath != "" {
				return withEnv(cfg), fmt.Errorf("config file %s does not exist", path)
			}
			continue
		}

		// #nosec G304 -- the path is chosen by the user running the tool
		data, err := os.ReadFile(path)
		if err != nil {
			return withEnv(cfg), err
		}

		var yamlData map[string]any
		if err := yaml.Unmarshal(data, &yamlData); err != nil {
			return withEnv(cfg), fmt.Errorf("parsing %s: %w", path, err)
		}
		cfg = parseConfig(yamlData)
		break
	}
	return withEnv(cfg), nil
}

func withEnv(cfg *AppConfig) *AppConfig {
	if mgm := strings.TrimSpace(os.Getenv(MGMEnvKey)); mgm != "" {
		cfg.DefaultMGM = strings.TrimRight(mgm, "/")
	}
	return cfg
}

// ApplyCLIOverrides applies --config seu.key=value overrides on top of cfg.
func (cfg *AppConfig) ApplyCLIOverrides(overrides []string) error {
	if len(overrides) == 0 {
		return nil
	}
	data, err := parseCLIConfigOverrides(overrides)
	if err != nil {
		return err
	}
	applyConfig(cfg, data)
	return nil
}

func expandPath(path string) (string, error) {
	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}
	return os.ExpandEnv(path), nil
}
