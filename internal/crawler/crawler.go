// Package crawler sequences a harvest run: resolve seed links, collect and
// extract article pages, then persist the results.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tkilaker/newsharvest/internal/browser"
	"github.com/tkilaker/newsharvest/internal/extract"
	"github.com/tkilaker/newsharvest/internal/metrics"
	"github.com/tkilaker/newsharvest/internal/query"
	"github.com/tkilaker/newsharvest/internal/seeds"
	"github.com/tkilaker/newsharvest/internal/store"
)

// ErrNoSeeds ends a run that found nothing to crawl.
var ErrNoSeeds = errors.New("no seeds")

// DefaultRecycleEvery is how many article URLs share one session.
const DefaultRecycleEvery = 100

// Options describes one run.
type Options struct {
	Keywords  []string
	Sort      query.SortMode
	Scope     query.Scope
	Range     query.DateRange
	SearchURL string

	Pages        seeds.Options
	RecycleEvery int
	ArticleDelay time.Duration

	SeedsPath    string
	ArticlesPath string
	ErrorsPath   string
	// FeedPath enables the RSS export when set.
	FeedPath string
	Feed     store.FeedInfo
}

// Crawler runs the harvest pipeline.
type Crawler struct {
	launcher  browser.Launcher
	extractor *extract.Extractor
	opts      Options
	logger    *slog.Logger
	metrics   *metrics.Metrics
	progress  *ProgressTracker
	runID     string
}

// New returns a crawler. metrics and progress may be nil.
func New(launcher browser.Launcher, extractor *extract.Extractor, opts Options, logger *slog.Logger, m *metrics.Metrics, progress *ProgressTracker) *Crawler {
	if opts.RecycleEvery <= 0 {
		opts.RecycleEvery = DefaultRecycleEvery
	}
	if logger == nil {
		logger = slog.Default()
	}
	if extractor == nil {
		extractor = extract.New(logger)
	}
	runID := uuid.NewString()
	return &Crawler{
		launcher:  launcher,
		extractor: extractor,
		opts:      opts,
		logger:    logger.With(slog.String("run_id", runID)),
		metrics:   m,
		progress:  progress,
		runID:     runID,
	}
}

// RunID identifies this crawler's run in logs and reports.
func (c *Crawler) RunID() string {
	return c.runID
}

// Run executes the whole pipeline. The returned report is never nil.
// Once content collection has started the article and error tables are
// written even if the run fails, and any write error is joined into err.
func (c *Crawler) Run(ctx context.Context) (report *Report, err error) {
	report = newReport(c.runID, time.Now())
	c.progress.Start(c.runID)
	defer func() {
		report.FinishedAt = time.Now()
		c.progress.Finish(err)
		if err != nil {
			c.logger.Error("run failed", slog.Any("error", err))
			return
		}
		c.logger.Info("run finished",
			slog.Int("records", len(report.Records)),
			slog.Int("failures", len(report.Failures)),
			slog.Int("skipped", report.Skipped),
			slog.Duration("duration", report.Duration()),
		)
	}()

	c.progress.UpdateStage(StageResolvingSeeds, "")
	start := time.Now()
	links, err := c.ResolveSeeds(ctx, report)
	report.SeedDuration = time.Since(start)
	if err != nil {
		return report, err
	}
	if len(links) == 0 {
		return report, ErrNoSeeds
	}

	defer func() {
		c.progress.UpdateStage(StagePersisting, "")
		if perr := c.Persist(report); perr != nil {
			err = errors.Join(err, perr)
		}
	}()

	c.progress.UpdateStage(StageCollectingContent, "")
	start = time.Now()
	err = c.CollectContent(ctx, links, report)
	report.ContentDuration = time.Since(start)
	return report, err
}

// ResolveSeeds loads the seed checkpoint when present, otherwise builds the
// query URLs, collects links from the result pages and saves a non-empty
// result as the checkpoint.
func (c *Crawler) ResolveSeeds(ctx context.Context, report *Report) ([]string, error) {
	if store.Exists(c.opts.SeedsPath) {
		links, err := store.LoadSeeds(c.opts.SeedsPath)
		if err != nil {
			return nil, err
		}
		links = seeds.NewSet(links...).URLs()
		report.SeedsFromCheckpoint = true
		report.Seeds = len(links)
		c.metrics.SetSeedLinks(len(links))
		c.logger.Info("seed checkpoint loaded",
			slog.String("path", c.opts.SeedsPath),
			slog.Int("links", len(links)),
		)
		return links, nil
	}

	plan, err := query.NewBuilder(c.opts.SearchURL).Plan(c.opts.Keywords, c.opts.Sort, c.opts.Scope, c.opts.Range)
	if err != nil {
		return nil, fmt.Errorf("build queries: %w", err)
	}
	urls := make([]string, len(plan))
	for i, q := range plan {
		urls[i] = q.URL
		if report.QueriesByKeyword[q.Keyword] == 0 {
			report.Keywords = append(report.Keywords, q.Keyword)
		}
		report.QueriesByKeyword[q.Keyword]++
	}
	report.Queries = len(urls)
	c.logger.Info("queries planned",
		slog.Int("keywords", len(report.Keywords)),
		slog.Int("queries", len(urls)),
		slog.String("range", c.opts.Range.String()),
	)

	collector := seeds.NewCollector(c.launcher, c.opts.Pages, c.logger, c.metrics)
	collector.OnProgress(func(done, total, links int) {
		c.progress.UpdateProgress(done, total, fmt.Sprintf("%d links", links))
		c.metrics.SetSeedLinks(links)
	})
	set, err := collector.Collect(ctx, urls)
	report.Seeds = set.Len()

	if set.Len() > 0 {
		if serr := store.SaveSeeds(c.opts.SeedsPath, set.URLs()); serr != nil {
			err = errors.Join(err, serr)
		} else {
			c.logger.Info("seed checkpoint saved",
				slog.String("path", c.opts.SeedsPath),
				slog.Int("links", set.Len()),
			)
		}
	}
	return set.URLs(), err
}

// CollectContent visits every link with one session, recycled after every
// RecycleEvery links, and sorts the outcomes into records and failures.
// Pages that fail to load are skipped.
func (c *Crawler) CollectContent(ctx context.Context, links []string, report *Report) (err error) {
	sess, err := c.launcher.Open(ctx)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if sess == nil {
			return
		}
		if cerr := sess.Close(); cerr != nil {
			c.logger.Warn("close session", slog.Any("error", cerr))
		}
	}()

	for i, link := range links {
		if err := ctx.Err(); err != nil {
			return err
		}

		if i > 0 && i%c.opts.RecycleEvery == 0 {
			if cerr := sess.Close(); cerr != nil {
				c.logger.Warn("close session", slog.Any("error", cerr))
			}
			sess = nil
			report.Recycles++
			c.metrics.IncRecycle()
			c.logger.Debug("session recycled", slog.Int("processed", i))

			if sess, err = c.launcher.Open(ctx); err != nil {
				sess = nil
				return fmt.Errorf("reopen session: %w", err)
			}
		}

		report.Processed++
		c.visit(ctx, sess, link, report)
		c.progress.UpdateProgress(i+1, len(links), link)

		if i%100 == 99 {
			c.logger.Info("content progress",
				slog.Int("processed", i+1),
				slog.Int("total", len(links)),
				slog.Int("records", len(report.Records)),
			)
		}
	}
	return nil
}

func (c *Crawler) visit(ctx context.Context, sess browser.Session, link string, report *Report) {
	start := time.Now()
	html, err := fetch(ctx, sess, link)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		report.Skipped++
		c.progress.addSkipped()
		c.metrics.IncArticle("skipped")
		c.metrics.IncError("content", browser.ErrorLabel(err))
		c.logger.Warn("article skipped", slog.String("url", link), slog.Any("error", err))
		return
	}
	c.metrics.ObservePageLoad(time.Since(start))

	res := c.extractor.Extract(html, link)
	if !res.OK() {
		report.Failures = append(report.Failures, *res.Failure)
		c.progress.addFailure()
		c.metrics.IncArticle("failure")
		c.logger.Debug("no template matched", slog.String("url", link))
		return
	}

	report.Records = append(report.Records, *res.Record)
	report.Templates[res.Record.Template]++
	c.progress.addRecord()
	c.metrics.IncArticle("record")
	c.metrics.IncTemplate(res.Record.Template)

	_ = pause(ctx, c.opts.ArticleDelay)
}

func fetch(ctx context.Context, sess browser.Session, link string) (string, error) {
	if err := sess.Navigate(ctx, link); err != nil {
		return "", err
	}
	return sess.HTML(ctx)
}

// Persist writes the article and error tables, and the feed when enabled.
func (c *Crawler) Persist(report *Report) error {
	var errs []error
	if err := store.SaveArticles(c.opts.ArticlesPath, report.Records); err != nil {
		errs = append(errs, err)
	}
	if err := store.SaveFailures(c.opts.ErrorsPath, report.Failures); err != nil {
		errs = append(errs, err)
	}
	if c.opts.FeedPath != "" {
		if err := store.SaveFeed(c.opts.FeedPath, report.Records, c.opts.Feed); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	c.logger.Info("results saved",
		slog.String("articles", c.opts.ArticlesPath),
		slog.Int("records", len(report.Records)),
		slog.String("errors", c.opts.ErrorsPath),
		slog.Int("failures", len(report.Failures)),
	)
	return nil
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
