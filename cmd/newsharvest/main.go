package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/tkilaker/newsharvest/internal/browser"
	"github.com/tkilaker/newsharvest/internal/config"
	"github.com/tkilaker/newsharvest/internal/crawler"
	"github.com/tkilaker/newsharvest/internal/extract"
	"github.com/tkilaker/newsharvest/internal/metrics"
	"github.com/tkilaker/newsharvest/internal/seeds"
	"github.com/tkilaker/newsharvest/internal/server"
	"github.com/tkilaker/newsharvest/internal/store"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "newsharvest: %v\n", err)
		os.Exit(1)
	}
}

type cliFlags struct {
	configPath string
	keywords   string
	start      string
	end        string
	maxPages   int
	driver     string
	statusAddr string
	verbose    bool
}

func parseFlags(args []string) (*cliFlags, []config.Override, error) {
	fs := flag.NewFlagSet("newsharvest", flag.ContinueOnError)
	f := &cliFlags{}
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&f.keywords, "keywords", "", "Comma-separated search keywords")
	fs.StringVar(&f.start, "start", "", "First day to search (YYYYMMDD)")
	fs.StringVar(&f.end, "end", "", "Last day to search (YYYYMMDD)")
	fs.IntVar(&f.maxPages, "max-pages", 0, "Result pages per query, -1 for all")
	fs.StringVar(&f.driver, "driver", "", "Page driver: rod or http")
	fs.StringVar(&f.statusAddr, "status-addr", "", "Status server listen address (e.g. :8080)")
	fs.BoolVar(&f.verbose, "v", false, "Enable verbose logging")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	// Only flags given on the command line override the configuration.
	var overrides []config.Override
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "keywords":
			kws := splitList(f.keywords)
			overrides = append(overrides, func(c *config.Config) { c.Keywords = kws })
		case "start":
			overrides = append(overrides, func(c *config.Config) { c.StartDate = f.start })
		case "end":
			overrides = append(overrides, func(c *config.Config) { c.EndDate = f.end })
		case "max-pages":
			overrides = append(overrides, func(c *config.Config) { c.MaxPages = f.maxPages })
		case "driver":
			overrides = append(overrides, func(c *config.Config) { c.Browser.Driver = f.driver })
		case "status-addr":
			overrides = append(overrides, func(c *config.Config) { c.StatusAddr = f.statusAddr })
		case "v":
			if f.verbose {
				overrides = append(overrides, func(c *config.Config) { c.Logging.Level = "debug" })
			}
		}
	})
	return f, overrides, nil
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func run(args []string, stdout io.Writer) error {
	flags, overrides, err := parseFlags(args)
	if err != nil {
		return err
	}

	cfg, err := config.Load(flags.configPath, overrides...)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	opts, err := crawlOptions(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	progress := crawler.NewProgressTracker()

	if cfg.StatusAddr != "" {
		srv := server.New(progress, m, cfg.Output.Feed, logger)
		srvCtx, cancelSrv := context.WithCancel(context.Background())
		defer cancelSrv()
		go func() {
			if err := srv.Start(srvCtx, cfg.StatusAddr); err != nil {
				logger.Error("status server failed", slog.Any("error", err))
			}
		}()
	}

	c := crawler.New(newLauncher(cfg, logger), extract.New(logger), opts, logger, m, progress)
	logger.Info("starting harvest",
		slog.String("run_id", c.RunID()),
		slog.Any("keywords", cfg.Keywords),
		slog.String("range", opts.Range.String()),
		slog.String("driver", cfg.Browser.Driver),
	)

	report, runErr := c.Run(ctx)
	if err := crawler.WriteSummary(stdout, report); err != nil {
		logger.Warn("write summary", slog.Any("error", err))
	}
	return runErr
}

func crawlOptions(cfg *config.Config) (crawler.Options, error) {
	sort, err := cfg.SortMode()
	if err != nil {
		return crawler.Options{}, err
	}
	scope, err := cfg.ScopeMode()
	if err != nil {
		return crawler.Options{}, err
	}
	r, err := cfg.DateRange()
	if err != nil {
		return crawler.Options{}, err
	}

	return crawler.Options{
		Keywords:  cfg.Keywords,
		Sort:      sort,
		Scope:     scope,
		Range:     r,
		SearchURL: cfg.SearchURL,
		Pages: seeds.Options{
			MaxPages:     cfg.MaxPages,
			NextSelector: cfg.NextSelector,
			PageDelay:    cfg.PageDelay,
		},
		RecycleEvery: cfg.RecycleEvery,
		ArticleDelay: cfg.ArticleDelay,
		SeedsPath:    cfg.Output.Seeds,
		ArticlesPath: cfg.Output.Articles,
		ErrorsPath:   cfg.Output.Errors,
		FeedPath:     cfg.Output.Feed,
		Feed: store.FeedInfo{
			Title:       cfg.Output.FeedTitle,
			Link:        cfg.Output.FeedLink,
			Description: "News articles for " + strings.Join(cfg.Keywords, ", "),
		},
	}, nil
}

func newLauncher(cfg *config.Config, logger *slog.Logger) browser.Launcher {
	if cfg.Browser.Driver == config.DriverHTTP {
		return &browser.HTTPLauncher{
			UserAgent: cfg.Browser.UserAgent,
			Timeout:   cfg.Browser.Timeout,
		}
	}
	return &browser.RodLauncher{
		Bin:         cfg.Browser.Bin,
		Headless:    cfg.Browser.Headless,
		UserDataDir: cfg.Browser.UserDataDir,
		Timeout:     cfg.Browser.Timeout,
		Logger:      logger,
	}
}

func newLogger(cfg config.LoggingConfig, w *os.File) *slog.Logger {
	level := &slog.LevelVar{}
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "warn":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	case "text":
		handler = slog.NewTextHandler(w, opts)
	default:
		if isTerminal(w) {
			handler = slog.NewTextHandler(w, opts)
		} else {
			handler = slog.NewJSONHandler(w, opts)
		}
	}
	return slog.New(handler)
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
