package seeds

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tkilaker/newsharvest/internal/browser"
	"github.com/tkilaker/newsharvest/internal/metrics"
)

// DefaultNextSelector matches the "next page" control of the result pager.
const DefaultNextSelector = "#main_pack div.api_sc_page_wrap a.btn_next"

// Unbounded disables the per-query page cap.
const Unbounded = -1

// Options controls pagination.
type Options struct {
	// MaxPages caps the result pages read per query URL; Unbounded for no cap.
	MaxPages     int
	NextSelector string
	PageDelay    time.Duration
}

// Collector walks search result pages and gathers article links.
type Collector struct {
	launcher browser.Launcher
	opts     Options
	logger   *slog.Logger
	metrics  *metrics.Metrics
	progress func(done, total, links int)
}

// NewCollector returns a collector that opens one session per query URL.
func NewCollector(launcher browser.Launcher, opts Options, logger *slog.Logger, m *metrics.Metrics) *Collector {
	if opts.NextSelector == "" {
		opts.NextSelector = DefaultNextSelector
	}
	if opts.MaxPages == 0 {
		opts.MaxPages = Unbounded
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		launcher: launcher,
		opts:     opts,
		logger:   logger,
		metrics:  m,
	}
}

// OnProgress registers fn to be called after each query URL.
func (c *Collector) OnProgress(fn func(done, total, links int)) {
	c.progress = fn
}

// Collect visits every query URL and returns the distinct article links.
// A failing query URL is logged and skipped. When ctx is cancelled the links
// gathered so far are returned together with the context error.
func (c *Collector) Collect(ctx context.Context, queryURLs []string) (*Set, error) {
	set := NewSet()
	for i, queryURL := range queryURLs {
		if err := ctx.Err(); err != nil {
			return set, err
		}

		before := set.Len()
		if err := c.collectQuery(ctx, queryURL, set); err != nil {
			c.logger.Warn("query abandoned",
				slog.String("query_url", queryURL),
				slog.Any("error", err),
			)
			c.metrics.IncError("seeds", browser.ErrorLabel(err))
		}
		c.logger.Info("query collected",
			slog.String("query_url", queryURL),
			slog.Int("new_links", set.Len()-before),
			slog.Int("total_links", set.Len()),
		)
		c.metrics.IncQuery()
		if c.progress != nil {
			c.progress(i+1, len(queryURLs), set.Len())
		}
	}

	c.logger.Info("seed collection finished", slog.Int("links", set.Len()))
	return set, ctx.Err()
}

func (c *Collector) collectQuery(ctx context.Context, queryURL string, set *Set) (err error) {
	sess, err := c.launcher.Open(ctx)
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			c.logger.Warn("close session", slog.Any("error", cerr))
		}
	}()

	start := time.Now()
	if err := sess.Navigate(ctx, queryURL); err != nil {
		return err
	}
	c.metrics.ObservePageLoad(time.Since(start))

	for page := 1; ; page++ {
		html, err := sess.HTML(ctx)
		if err != nil {
			return err
		}
		links, err := ExtractLinks(html)
		if err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}
		for _, link := range links {
			set.Add(link)
		}
		c.metrics.IncResultPage()
		c.logger.Debug("result page read",
			slog.String("query_url", queryURL),
			slog.Int("page", page),
			slog.Int("links", len(links)),
		)

		if c.opts.MaxPages != Unbounded && page >= c.opts.MaxPages {
			return nil
		}

		start = time.Now()
		clicked, err := sess.Click(ctx, c.opts.NextSelector)
		if err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}
		if !clicked {
			return nil
		}
		c.metrics.ObservePageLoad(time.Since(start))

		if err := pause(ctx, c.opts.PageDelay); err != nil {
			return err
		}
	}
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
