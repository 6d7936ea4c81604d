package main

import (
	"context"
	"fmt"

	appcli "github.com/urfave/cli/v3"

	"github.com/seutils/seu/internal/buildinfo"
	"github.com/seutils/seu/internal/cli"
	"github.com/seutils/seu/internal/completion"
	"github.com/seutils/seu/internal/hadd"
)

const usageText = "Command-line utilities for storage elements"

func newApp() *appcli.Command {
	return &appcli.Command{
		Name:    progName,
		Usage:   usageText,
		Version: buildinfo.Version(),
		Flags:   globalFlags(),
		Commands: []*appcli.Command{
			lsCommand(),
			duCommand(),
			rmCommand(),
			mkdirCommand(),
			catCommand(),
			nentriesCommand(),
			haddCommand(),
			printBranchesCommand(),
			formatCommand(),
			cacheCommand(),
			installCompletionCommand(),
			completionCommand(),
			versionCommand(),
		},
	}
}

func describe(name string) string {
	info, _ := completion.Lookup(name)
	return info.Description
}

func mgmFlag() *appcli.StringFlag {
	return &appcli.StringFlag{
		Name:    "mgm",
		Aliases: []string{"m"},
		Usage:   "Default MGM for paths without protocol",
	}
}

// withSession wraps an action so it receives a session built from the
// global flags.
func withSession(fn func(ctx context.Context, cmd *appcli.Command, s *session) error) appcli.ActionFunc {
	return func(ctx context.Context, cmd *appcli.Command) error {
		s, err := newSessionFunc(cmd)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(ctx, cmd, s)
	}
}

func lsCommand() *appcli.Command {
	return &appcli.Command{
		Name:      "ls",
		Usage:     describe("ls"),
		ArgsUsage: "[lfns...]",
		Flags: []appcli.Flag{
			&appcli.BoolFlag{Name: "long", Aliases: []string{"l"}, Usage: "Include modification time and size"},
			&appcli.StringFlag{
				Name:    "sort",
				Aliases: []string{"s"},
				Value:   cli.SortName,
				Usage:   "Sort long listings by name, date or size",
				Validator: func(v string) error {
					return validateChoice("sort", v, []string{cli.SortName, cli.SortDate, cli.SortSize})
				},
			},
			&appcli.BoolFlag{Name: "icons", Usage: "Show file type icons"},
		},
		Action: withSession(func(ctx context.Context, cmd *appcli.Command, s *session) error {
			return cli.List(ctx, s.env, cmd.Args().Slice(), cli.ListOptions{
				Long:  cmd.Bool("long"),
				Sort:  cmd.String("sort"),
				Icons: cmd.Bool("icons") || s.cfg.ShowIcons,
			})
		}),
	}
}

func duCommand() *appcli.Command {
	return &appcli.Command{
		Name:      "du",
		Usage:     describe("du"),
		ArgsUsage: "<lfns...>",
		Flags: []appcli.Flag{
			&appcli.BoolFlag{Name: "sort", Aliases: []string{"s"}, Usage: "Sort by size instead of name"},
		},
		Action: withSession(func(ctx context.Context, cmd *appcli.Command, s *session) error {
			return cli.Du(ctx, s.env, cmd.Args().Slice(), cmd.Bool("sort"))
		}),
	}
}

func rmCommand() *appcli.Command {
	return &appcli.Command{
		Name:      "rm",
		Usage:     describe("rm"),
		ArgsUsage: "<paths...>",
		Flags: []appcli.Flag{
			mgmFlag(),
			&appcli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Skip user verification"},
			&appcli.BoolFlag{Name: "recursive", Aliases: []string{"r"}, Usage: "Recursive remove (required for directories)"},
		},
		Action: withSession(func(ctx context.Context, cmd *appcli.Command, s *session) error {
			if cmd.NArg() == 0 {
				return fmt.Errorf("usage: %s rm <paths...>", progName)
			}
			return cli.Remove(ctx, s.env, cmd.Args().Slice(), cli.RemoveOptions{
				MGM:       cmd.String("mgm"),
				Yes:       cmd.Bool("yes"),
				Recursive: cmd.Bool("recursive"),
			})
		}),
	}
}

func mkdirCommand() *appcli.Command {
	return &appcli.Command{
		Name:      "mkdir",
		Usage:     describe("mkdir"),
		ArgsUsage: "<paths...>",
		Flags:     []appcli.Flag{mgmFlag()},
		Action: withSession(func(ctx context.Context, cmd *appcli.Command, s *session) error {
			return cli.Mkdir(ctx, s.env, cmd.Args().Slice(), cmd.String("mgm"))
		}),
	}
}

func catCommand() *appcli.Command {
	return &appcli.Command{
		Name:      "cat",
		Usage:     describe("cat"),
		ArgsUsage: "<paths...>",
		Action: withSession(func(ctx context.Context, cmd *appcli.Command, s *session) error {
			return cli.Cat(ctx, s.env, cmd.Args().Slice())
		}),
	}
}

func nentriesCommand() *appcli.Command {
	return &appcli.Command{
		Name:      "nentries",
		Usage:     describe("nentries"),
		ArgsUsage: "<rootfiles...>",
		Flags: []appcli.Flag{
			&appcli.StringFlag{Name: "treepath", Aliases: []string{"t"}, Usage: "Path of the tree inside the files (first tree by default)"},
			&appcli.BoolFlag{Name: "fresh", Aliases: []string{"f"}, Usage: "Ignore cached counts"},
			&appcli.IntFlag{Name: "nthreads", Aliases: []string{"n"}, Usage: "Files read concurrently (0 uses nentries_threads)"},
			mgmFlag(),
		},
		Action: withSession(func(ctx context.Context, cmd *appcli.Command, s *session) error {
			threads := cmd.Int("nthreads")
			if threads <= 0 {
				threads = s.cfg.NEntriesThreads
			}
			return cli.NEntries(ctx, s.env, s.rootReader(cmd.Bool("fresh")), cmd.Args().Slice(), cli.NEntriesOptions{
				TreePath: cmd.String("treepath"),
				MGM:      cmd.String("mgm"),
				Threads:  threads,
			})
		}),
	}
}

func haddCommand() *appcli.Command {
	return &appcli.Command{
		Name:      "hadd",
		Usage:     describe("hadd"),
		ArgsUsage: "<src...> --dst <file>",
		Flags: []appcli.Flag{
			&appcli.StringFlag{Name: "dst", Aliases: []string{"o"}, Usage: "Output file", Required: true},
			&appcli.BoolFlag{Name: "parallel", Aliases: []string{"p"}, Usage: "Merge chunks concurrently"},
			&appcli.IntFlag{Name: "chunksize", Aliases: []string{"c"}, Usage: "Files merged per hadd call (0 uses hadd_chunk_size)"},
			&appcli.IntFlag{Name: "nthreads", Aliases: []string{"n"}, Usage: "Chunks merged concurrently with --parallel (0 uses hadd_threads)"},
			mgmFlag(),
		},
		Action: withSession(func(ctx context.Context, cmd *appcli.Command, s *session) error {
			opts := cli.HaddOptions{
				Options: hadd.Options{
					ChunkSize: cmd.Int("chunksize"),
					Parallel:  cmd.Bool("parallel"),
					Threads:   cmd.Int("nthreads"),
					Binary:    s.cfg.HaddBinary,
				},
				Dst:      cmd.String("dst"),
				MGM:      cmd.String("mgm"),
				Progress: isTerminal(cmd.Root().ErrWriter),
			}
			if opts.ChunkSize <= 0 {
				opts.ChunkSize = s.cfg.HaddChunkSize
			}
			if opts.Threads <= 0 {
				opts.Threads = s.cfg.HaddThreads
			}
			return cli.Hadd(ctx, s.env, s.merger(), cmd.Args().Slice(), opts)
		}),
	}
}

func printBranchesCommand() *appcli.Command {
	return &appcli.Command{
		Name:      "printbranches",
		Usage:     describe("printbranches"),
		ArgsUsage: "<rootfile>",
		Flags: []appcli.Flag{
			&appcli.StringFlag{Name: "treepath", Aliases: []string{"t"}, Usage: "Only this tree (all trees by default)"},
			&appcli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Show leaf types"},
		},
		Action: withSession(func(ctx context.Context, cmd *appcli.Command, s *session) error {
			if cmd.NArg() != 1 {
				return fmt.Errorf("usage: %s printbranches <rootfile>", progName)
			}
			return cli.PrintBranches(ctx, s.env, s.rootReader(false), cmd.Args().First(), cli.PrintBranchesOptions{
				TreePath: cmd.String("treepath"),
				Types:    cmd.Bool("verbose"),
				Width:    terminalWidth(cmd.Root().Writer),
			})
		}),
	}
}

func formatCommand() *appcli.Command {
	return &appcli.Command{
		Name:      "format",
		Usage:     describe("format"),
		ArgsUsage: "<lfns...>",
		Flags:     []appcli.Flag{mgmFlag()},
		Action: withSession(func(_ context.Context, cmd *appcli.Command, s *session) error {
			return cli.Format(s.env, cmd.Args().Slice(), cmd.String("mgm"))
		}),
	}
}

func cacheCommand() *appcli.Command {
	withStore := func(fn func(cmd *appcli.Command, s *session) error) appcli.ActionFunc {
		return withSession(func(_ context.Context, cmd *appcli.Command, s *session) error {
			if s.store == nil {
				return fmt.Errorf("the cache is disabled (set cache_enabled: true)")
			}
			return fn(cmd, s)
		})
	}
	return &appcli.Command{
		Name:  "cache",
		Usage: describe("cache"),
		Commands: []*appcli.Command{
			{
				Name:      "dump",
				Usage:     "Write the cache to a .tar.gz file",
				ArgsUsage: "[dst]",
				Action: withStore(func(cmd *appcli.Command, s *session) error {
					return cli.CacheDump(s.env, s.store, cmd.Args().First())
				}),
			},
			{
				Name:      "load",
				Usage:     "Replace the cache with the contents of a tarball",
				ArgsUsage: "<tarball>",
				Action: withStore(func(cmd *appcli.Command, s *session) error {
					if cmd.NArg() != 1 {
						return fmt.Errorf("usage: %s cache load <tarball>", progName)
					}
					return s.store.Load(cmd.Args().First())
				}),
			},
			{
				Name:      "clear",
				Usage:     "Empty one subcache, or the whole cache",
				ArgsUsage: "[subcache]",
				Action: withStore(func(cmd *appcli.Command, s *session) error {
					return s.store.Clear(cmd.Args().First())
				}),
			},
			{
				Name:  "stats",
				Usage: "Print the number of entries per subcache",
				Action: withStore(func(_ *appcli.Command, s *session) error {
					return cli.CacheStats(s.env, s.store)
				}),
			},
		},
	}
}

func versionCommand() *appcli.Command {
	return &appcli.Command{
		Name:  "version",
		Usage: describe("version"),
		Action: func(_ context.Context, cmd *appcli.Command) error {
			_, err := fmt.Fprint(cmd.Root().Writer, buildinfo.Summary(progName))
			return err
		},
	}
}
