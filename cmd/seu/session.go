package main

import (
	"fmt"
	"io"
	"os"
	"os/user"

	appcli "github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/seutils/seu/internal/cache"
	"github.com/seutils/seu/internal/cli"
	"github.com/seutils/seu/internal/config"
	"github.com/seutils/seu/internal/executor"
	"github.com/seutils/seu/internal/hadd"
	"github.com/seutils/seu/internal/lfn"
	"github.com/seutils/seu/internal/log"
	"github.com/seutils/seu/internal/rootio"
	"github.com/seutils/seu/internal/storage"
	"github.com/seutils/seu/internal/theme"
)

// session holds everything a command needs, built from the global flags.
type session struct {
	cfg    *config.AppConfig
	env    *cli.Env
	client *storage.Client
	runner executor.Runner
	store  *cache.Store
	dry    bool
}

var (
	newSessionFunc = newSession
	hostnameFunc   = os.Hostname
)

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return ""
}

func setupDebugLog(cmd *appcli.Command, cfg *config.AppConfig) {
	path := cmd.String("debug-log")
	if path == "" {
		path = cfg.DebugLog
	}
	if err := log.SetFile(path); err != nil {
		fmt.Fprintf(cmd.Root().ErrWriter, "Error opening debug log file %q: %v\n", path, err)
	}
}

// loadCLIConfig loads the config file and applies the --config overrides.
func loadCLIConfig(configFile string, overrides []string) (*config.AppConfig, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ApplyCLIOverrides(overrides); err != nil {
		return nil, fmt.Errorf("applying config overrides: %w", err)
	}
	return cfg, nil
}

func newSession(cmd *appcli.Command) (*session, error) {
	cfg, err := loadCLIConfig(cmd.String("config-file"), cmd.StringSlice("config"))
	if err != nil {
		return nil, err
	}

	log.SetLevel(log.ParseLevel(cfg.LogLevel))
	if cmd.Root().Bool("verbose") {
		log.SetVerbose(true)
	}
	setupDebugLog(cmd, cfg)

	impl := cfg.Implementation
	if v := cmd.String("implementation"); v != "" {
		impl = v
	}
	if cmd.Bool("fake") {
		impl = storage.ImplFake
	}
	dry := cmd.Bool("dry")

	hostname, _ := hostnameFunc()
	resolver := &lfn.Resolver{DefaultMGM: cfg.DefaultMGM, User: currentUser(), Hostname: hostname}

	runner := executor.NewShellRunner(dry, cfg.RetrySleep, 0)
	fake := storage.NewFake()
	if cfg.FakeFSFile != "" {
		if fake, err = storage.LoadFakeFile(cfg.FakeFSFile); err != nil {
			return nil, err
		}
	}

	s := &session{cfg: cfg, runner: runner, dry: dry}
	opts := storage.Options{
		Implementation:  impl,
		CopyAttempts:    cfg.NCopyAttempts,
		MaxWalkRequests: cfg.MaxWalkRequests,
		Safety:          &storage.RmSafety{Blacklist: cfg.RmBlacklist, Whitelist: cfg.RmWhitelist},
		Resolver:        resolver,
	}
	if cfg.CacheEnabled {
		store, err := cache.Open(cfg.CacheDir)
		if err != nil {
			log.Warnf("Cache disabled: %v", err)
		} else {
			s.store = store
			if cfg.CacheListings {
				opts.Cache = store
			}
		}
	}

	s.client, err = storage.NewClient([]storage.Implementation{
		storage.NewXrd(runner),
		storage.NewGfal(runner),
		fake,
	}, opts)
	if err != nil {
		s.Close()
		return nil, err
	}

	themeName := cfg.Theme
	if v := cmd.String("theme"); v != "" {
		themeName = v
	}
	root := cmd.Root()
	s.env = &cli.Env{
		Storage:  s.client,
		Resolver: resolver,
		Out:      root.Writer,
		Err:      root.ErrWriter,
		In:       root.Reader,
		Styles:   theme.NewStyles(theme.GetTheme(themeName), root.Writer),
	}
	return s, nil
}

// Close releases the cache database.
func (s *session) Close() {
	if s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Warnf("Closing cache: %v", err)
	}
}

func (s *session) rootReader(fresh bool) *rootio.Reader {
	return &rootio.Reader{Cache: s.store, Fresh: fresh}
}

func (s *session) merger() *hadd.Merger {
	return &hadd.Merger{Runner: s.runner, Storage: s.client, Dry: s.dry}
}

// terminalWidth returns the width of w when it is a terminal, 0 otherwise.
func terminalWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return width
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
