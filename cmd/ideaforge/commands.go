package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v3"

	"ideaforge/internal/api"
	"ideaforge/internal/app"
	"ideaforge/internal/config"
	"ideaforge/internal/ideas"
	"ideaforge/internal/launchd"
	"ideaforge/internal/list"
	"ideaforge/internal/logger"
	"ideaforge/internal/server"
	"ideaforge/internal/sources"
)

// withApp loads configuration, builds the App and runs fn with it.
func withApp(ctx context.Context, c *cli.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	l, closeLog, err := logger.New(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	if err != nil {
		return err
	}
	defer closeLog()
	a, err := app.New(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API with the fetch and tag schedules",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (overrides server.addr)"},
			&cli.BoolFlag{Name: "no-scheduler", Usage: "Serve the API without scheduled jobs"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, stop := signalContext(ctx)
			defer stop()
			return withApp(ctx, c, func(ctx context.Context, a *app.App) error {
				if !c.Bool("no-scheduler") {
					if err := a.Start(ctx); err != nil {
						return err
					}
					defer a.Stop()
				}
				addr := a.Config.Server.Addr
				if v := strings.TrimSpace(c.String("addr")); v != "" {
					addr = v
				}
				return api.New(a).ListenAndServe(ctx, addr)
			})
		},
	}
}

func fetchCommand() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Fetch every feed once, then tag new articles",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "source", Usage: "Only fetch the named source (repeatable)"},
			&cli.BoolFlag{Name: "no-tags", Usage: "Skip tag extraction after fetching"},
			&cli.IntFlag{Name: "limit", Usage: "Tag at most this many articles (default from config)"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return withApp(ctx, c, func(ctx context.Context, a *app.App) error {
				opts := app.CycleOptions{SkipTags: c.Bool("no-tags"), TagLimit: c.Int("limit")}
				for _, name := range c.StringSlice("source") {
					src, ok := sources.Find(a.Config.RSS.Sources, name)
					if !ok {
						return fmt.Errorf("unknown source %q", name)
					}
					opts.Sources = append(opts.Sources, src)
				}
				res, err := a.RunCycle(ctx, opts)
				w := c.Root().Writer
				fmt.Fprintf(w, "Feeds: %d attempted, %d ok, %d failed, %d new articles\n",
					res.RSS.TotalSources, res.RSS.Success, res.RSS.Failed, res.RSS.NewArticles)
				for _, e := range res.RSS.Errors {
					fmt.Fprintf(w, "  %s: %s\n", e.Source, e.Error)
				}
				switch {
				case res.TagsSkipped:
					fmt.Fprintln(w, "Tags: skipped, extraction already running")
				case res.Tags != nil:
					printTagResult(w, res.Tags.Processed, res.Tags.Failed)
				}
				return err
			})
		},
	}
}

func tagCommand() *cli.Command {
	return &cli.Command{
		Name:  "tag",
		Usage: "Extract tags for untagged articles",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Usage: "Tag at most this many articles (default from config)"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return withApp(ctx, c, func(ctx context.Context, a *app.App) error {
				res, err := a.RunTagging(ctx, c.Int("limit"))
				if err != nil {
					return err
				}
				w := c.Root().Writer
				printTagResult(w, res.Processed, res.Failed)
				for _, e := range res.Errors {
					fmt.Fprintf(w, "  article %d: %s\n", e.NewsID, e.Error)
				}
				return nil
			})
		},
	}
}

func printTagResult(w io.Writer, processed, failed int) {
	fmt.Fprintf(w, "Tags: %d articles tagged, %d failed\n", processed, failed)
}

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "Generate a business idea from two articles",
		Flags: []cli.Flag{
			&cli.Int64SliceFlag{Name: "article", Usage: "Article id to pair (give two)"},
			&cli.Int64SliceFlag{Name: "tag", Usage: "Pick the pair among articles with this tag id (repeatable)"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return withApp(ctx, c, func(ctx context.Context, a *app.App) error {
				idea, err := a.Ideas.Generate(ctx, ideas.Selection{
					ArticleIDs: c.Int64Slice("article"),
					TagIDs:     c.Int64Slice("tag"),
				})
				if err != nil {
					if errors.Is(err, ideas.ErrInsufficientData) {
						return fmt.Errorf("%w (run 'ideaforge fetch' first)", err)
					}
					return err
				}
				w := c.Root().Writer
				fmt.Fprintf(w, "Idea #%d: %s\n", idea.ID, idea.Title)
				fmt.Fprintf(w, "Sources: %s + %s\n\n", idea.SourceTitle1, idea.SourceTitle2)
				fmt.Fprintln(w, idea.Content)
				return nil
			})
		},
	}
}

func auditCommand() *cli.Command {
	return &cli.Command{
		Name:      "audit",
		Usage:     "Run a devil's advocate audit on an idea",
		Arguments: []cli.Argument{&cli.StringArg{Name: "idea-id", UsageText: "idea id"}},
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := parseID(c.StringArg("idea-id"))
			if err != nil {
				return err
			}
			return withApp(ctx, c, func(ctx context.Context, a *app.App) error {
				text, err := a.Auditor.Audit(ctx, id)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.Root().Writer, text)
				return nil
			})
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export an idea as Markdown",
		Arguments: []cli.Argument{&cli.StringArg{Name: "idea-id", UsageText: "idea id"}},
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write to this file instead of stdout"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			id, err := parseID(c.StringArg("idea-id"))
			if err != nil {
				return err
			}
			return withApp(ctx, c, func(ctx context.Context, a *app.App) error {
				md, err := ideas.Export(ctx, a.Store, id)
				if err != nil {
					return err
				}
				out := strings.TrimSpace(c.String("out"))
				if out == "" {
					_, err := io.WriteString(c.Root().Writer, md)
					return err
				}
				out = config.ExpandPath(out)
				if err := os.WriteFile(out, []byte(md), 0o644); err != nil {
					return err
				}
				fmt.Fprintf(c.Root().Writer, "Exported idea #%d to %s\n", id, out)
				return nil
			})
		},
	}
}

type lister func(ctx context.Context, w io.Writer, st list.Store, skip, limit int) error

var (
	listArticles lister = list.Articles
	listTags     lister = list.Tags
	listIdeas    lister = list.Ideas
)

func listCommand(name, usage string, defLimit int, fn lister) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "skip", Usage: "Rows to skip"},
			&cli.IntFlag{Name: "limit", Value: defLimit, Usage: "Rows to show"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return withApp(ctx, c, func(ctx context.Context, a *app.App) error {
				return fn(ctx, c.Root().Writer, a.Store, c.Int("skip"), c.Int("limit"))
			})
		},
	}
}

func mcpCommand() *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio",
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, stop := signalContext(ctx)
			defer stop()
			return withApp(ctx, c, server.Run)
		},
	}
}

func initCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a config file with the default settings",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing file (a backup is kept)"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			path := c.String("config")
			if strings.TrimSpace(path) == "" {
				p, err := config.DefaultPath()
				if err != nil {
					return err
				}
				path = p
			}
			path = config.ExpandPath(path)
			if _, err := os.Stat(path); err == nil && !c.Bool("force") {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}
			if err := config.WriteConfig(path, config.Default()); err != nil {
				return err
			}
			w := c.Root().Writer
			fmt.Fprintf(w, "Wrote %s\n", path)
			fmt.Fprintln(w, "Set IDEAFORGE_AI_API_KEY (or VERCEL_API_KEY) before running 'ideaforge fetch'.")
			return nil
		},
	}
}

func serviceCommand() *cli.Command {
	labelFlag := func() cli.Flag {
		return &cli.StringFlag{Name: "label", Value: launchd.DefaultLabel, Usage: "launchd label"}
	}
	plistFlag := func() cli.Flag {
		return &cli.StringFlag{Name: "plist", Usage: "plist path (default ~/Library/LaunchAgents/<label>.plist)"}
	}
	return &cli.Command{
		Name:  "service",
		Usage: "Manage the macOS launchd agent that keeps 'ideaforge serve' running",
		Commands: []*cli.Command{
			{
				Name:  "install",
				Usage: "Install and load the agent",
				Flags: []cli.Flag{
					labelFlag(),
					plistFlag(),
					&cli.StringFlag{Name: "log-file", Usage: "Agent stdout/stderr path"},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					exe, err := os.Executable()
					if err != nil || strings.TrimSpace(exe) == "" {
						return fmt.Errorf("cannot discover program path")
					}
					var args []string
					if cfg := strings.TrimSpace(c.String("config")); cfg != "" {
						args = append(args, "--config", config.ExpandPath(cfg))
					}
					args = append(args, "serve")
					path, err := launchd.Install(launchd.InstallOptions{
						Label:       c.String("label"),
						ProgramPath: exe,
						ProgramArgs: args,
						LogPath:     c.String("log-file"),
						PlistPath:   c.String("plist"),
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(c.Root().Writer, "launchd agent installed and loaded: %s\n", path)
					return nil
				},
			},
			{
				Name:  "uninstall",
				Usage: "Unload and remove the agent",
				Flags: []cli.Flag{labelFlag(), plistFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					if err := launchd.Uninstall(c.String("label"), c.String("plist")); err != nil {
						return err
					}
					fmt.Fprintln(c.Root().Writer, "launchd agent unloaded and removed")
					return nil
				},
			},
			{
				Name:  "status",
				Usage: "Show whether the agent is loaded",
				Flags: []cli.Flag{labelFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					loaded, state := launchd.Status(c.String("label"))
					fmt.Fprintf(c.Root().Writer, "loaded: %t (%s)\n", loaded, state)
					return nil
				},
			},
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
