package crawler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tkilaker/newsharvest/internal/browser"
	"github.com/tkilaker/newsharvest/internal/extract"
	"github.com/tkilaker/newsharvest/internal/metrics"
	"github.com/tkilaker/newsharvest/internal/query"
	"github.com/tkilaker/newsharvest/internal/store"
)

const searchBase = "http://search.test/search.naver"

var testTime = time.Date(2021, 3, 1, 9, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func resultsPage(links ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><div class="group_news"><ul>`)
	for _, link := range links {
		fmt.Fprintf(&b, `<li><a class="info" href="%s">네이버뉴스</a></li>`, link)
	}
	b.WriteString(`</ul></div></body></html>`)
	return b.String()
}

func newsArticle(title string) string {
	return `<html><body><a class="nclicks(atp_press)"><img title="연합뉴스"></a>
<h3 id="articleTitle">` + title + `</h3><span class="t11">2020.01.15. 오후 3:21</span>
<div id="articleBodyContents">본문</div></body></html>`
}

func entertainArticle(title string) string {
	return `<html><body><div class="press_logo"><img alt="텐아시아"></div>
<h2 class="end_tit">` + title + `</h2><span class="author">기사입력 <em>2020.02.03. 오전 10:01</em></span>
<div class="end_body_wrp">본문</div></body></html>`
}

// fakeSite hands out sessions over a scripted set of pages and records how
// they are used.
type fakeSite struct {
	mu        sync.Mutex
	pages     map[string]string
	serve     func(url string) (string, bool)
	failOn    map[string]error
	onVisit   func(url string)
	openErrAt int
	opens     int
	closes    int
	visited   []string
}

func newFakeSite() *fakeSite {
	return &fakeSite{pages: map[string]string{}, failOn: map[string]error{}}
}

func (s *fakeSite) Open(ctx context.Context) (browser.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens++
	if s.openErrAt > 0 && s.opens == s.openErrAt {
		return nil, errors.New("chromium crashed")
	}
	return &fakeSession{site: s}, nil
}

type fakeSession struct {
	site    *fakeSite
	current string
	closed  bool
}

func (f *fakeSession) Navigate(ctx context.Context, url string) error {
	s := f.site
	s.mu.Lock()
	s.visited = append(s.visited, url)
	hook := s.onVisit
	err := s.failOn[url]
	s.mu.Unlock()

	if hook != nil {
		hook(url)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err != nil {
		return &browser.NavigationError{Op: "navigate", URL: url, Err: err}
	}
	f.current = url
	return nil
}

func (f *fakeSession) HTML(context.Context) (string, error) {
	s := f.site
	s.mu.Lock()
	defer s.mu.Unlock()
	if html, ok := s.pages[f.current]; ok {
		return html, nil
	}
	if s.serve != nil {
		if html, ok := s.serve(f.current); ok {
			return html, nil
		}
	}
	return "<html><body><p>404</p></body></html>", nil
}

func (f *fakeSession) Click(context.Context, string) (bool, error) {
	return false, nil
}

func (f *fakeSession) Close() error {
	if f.closed {
		return errors.New("closed twice")
	}
	f.closed = true
	f.site.mu.Lock()
	f.site.closes++
	f.site.mu.Unlock()
	return nil
}

func (s *fakeSite) searched() int {
	n := 0
	for _, u := range s.visited {
		if strings.HasPrefix(u, searchBase) {
			n++
		}
	}
	return n
}

func testOptions(t *testing.T, keywords ...string) Options {
	t.Helper()
	r, err := query.NewDateRange("20200101", "20200229")
	require.NoError(t, err)
	dir := t.TempDir()
	return Options{
		Keywords:     keywords,
		Sort:         query.SortNewest,
		Scope:        query.ScopeFullText,
		Range:        r,
		SearchURL:    searchBase,
		SeedsPath:    filepath.Join(dir, "seed_url.csv"),
		ArticlesPath: filepath.Join(dir, "news.csv"),
		ErrorsPath:   filepath.Join(dir, "errors.csv"),
	}
}

func writeCheckpoint(t *testing.T, opts Options, links ...string) {
	t.Helper()
	require.NoError(t, store.SaveSeeds(opts.SeedsPath, links))
}

func TestRunFromSearch(t *testing.T) {
	site := newFakeSite()
	site.serve = func(url string) (string, bool) {
		switch {
		case strings.Contains(url, "query=a&"):
			return resultsPage("http://news.test/1", "http://news.test/2"), true
		case strings.Contains(url, "query=b&"):
			return resultsPage("http://news.test/2", "http://news.test/3"), true
		}
		return "", false
	}
	site.pages["http://news.test/1"] = newsArticle("첫 기사")
	site.pages["http://news.test/2"] = entertainArticle("둘째 기사")
	site.pages["http://news.test/3"] = `<html><body><h1>blog</h1></body></html>`

	opts := testOptions(t, "a", "b")
	opts.FeedPath = filepath.Join(filepath.Dir(opts.SeedsPath), "news.xml")
	m := metrics.New()
	progress := NewProgressTracker()
	c := New(site, nil, opts, quietLogger(), m, progress)

	report, err := c.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, c.RunID(), report.RunID)
	assert.Equal(t, 4, report.Queries)
	assert.Equal(t, []string{"a", "b"}, report.Keywords)
	assert.Equal(t, map[string]int{"a": 2, "b": 2}, report.QueriesByKeyword)
	assert.False(t, report.SeedsFromCheckpoint)
	assert.Equal(t, 3, report.Seeds)
	assert.Equal(t, 3, report.Processed)
	require.Len(t, report.Records, 2)
	assert.Equal(t, "첫 기사", report.Records[0].Title)
	assert.Equal(t, "http://news.test/2", report.Records[1].Link)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "http://news.test/3", report.Failures[0].Link)
	assert.Equal(t, map[string]int{extract.NaverNews: 1, extract.NaverEntertain: 1}, report.Templates)

	links, err := store.LoadSeeds(opts.SeedsPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://news.test/1", "http://news.test/2", "http://news.test/3"}, links)

	articles, err := store.LoadArticles(opts.ArticlesPath)
	require.NoError(t, err)
	assert.Len(t, articles, 2)

	raw, err := os.ReadFile(opts.ErrorsPath)
	require.NoError(t, err)
	assert.Equal(t, "error_url\nhttp://news.test/3\n", string(raw))
	assert.True(t, store.Exists(opts.FeedPath))

	assert.Equal(t, site.opens, site.closes, "every session is closed")
	assert.Equal(t, 5, site.opens, "one per query plus one for content")

	p := progress.Current()
	assert.Equal(t, StageDone, p.Stage)
	assert.Equal(t, 2, p.Records)
	assert.Equal(t, 1, p.Failures)
	assert.Equal(t, float64(4), testutil.ToFloat64(m.QueriesTotal))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TemplateMatches.WithLabelValues(extract.NaverNews)))
}

func TestRunUsesCheckpoint(t *testing.T) {
	site := newFakeSite()
	site.pages["http://news.test/1"] = newsArticle("a")

	opts := testOptions(t, "a")
	writeCheckpoint(t, opts, "http://news.test/1", "http://news.test/1")

	report, err := New(site, nil, opts, quietLogger(), nil, nil).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.SeedsFromCheckpoint)
	assert.Equal(t, 1, report.Seeds)
	assert.Zero(t, report.Queries)
	assert.Zero(t, site.searched(), "no result pages are visited")
	assert.Len(t, report.Records, 1)
}

func TestRunRecyclesSessions(t *testing.T) {
	site := newFakeSite()
	var links []string
	for i := 0; i < 5; i++ {
		link := fmt.Sprintf("http://news.test/%d", i)
		links = append(links, link)
		site.pages[link] = newsArticle(link)
	}

	opts := testOptions(t, "a")
	opts.RecycleEvery = 2
	writeCheckpoint(t, opts, links...)
	m := metrics.New()

	report, err := New(site, nil, opts, quietLogger(), m, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Recycles, "after the 2nd and 4th link, never after the last")
	assert.Equal(t, 3, site.opens)
	assert.Equal(t, 3, site.closes)
	assert.Equal(t, float64(2), testutil.ToFloat64(m.SessionRecycles))
	assert.Len(t, report.Records, 5)
}

func TestRunRecycleBoundary(t *testing.T) {
	site := newFakeSite()
	links := []string{"http://news.test/1", "http://news.test/2"}
	for _, l := range links {
		site.pages[l] = newsArticle(l)
	}

	opts := testOptions(t, "a")
	opts.RecycleEvery = 2
	writeCheckpoint(t, opts, links...)

	report, err := New(site, nil, opts, quietLogger(), nil, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Recycles)
	assert.Equal(t, 1, site.opens)
}

func TestRunSkipsUnreachablePages(t *testing.T) {
	site := newFakeSite()
	site.pages["http://news.test/ok"] = newsArticle("ok")
	site.failOn["http://news.test/down"] = errors.New("net::ERR_CONNECTION_RESET")

	opts := testOptions(t, "a")
	writeCheckpoint(t, opts, "http://news.test/down", "http://news.test/ok")
	m := metrics.New()

	report, err := New(site, nil, opts, quietLogger(), m, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped)
	assert.Len(t, report.Records, 1)
	assert.Empty(t, report.Failures, "unreachable pages are neither records nor failures")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ArticlesTotal.WithLabelValues("skipped")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("content", "navigation")))
}

func TestRunNoSeeds(t *testing.T) {
	site := newFakeSite()
	site.serve = func(string) (string, bool) { return resultsPage(), true }

	opts := testOptions(t, "a")
	progress := NewProgressTracker()
	_, err := New(site, nil, opts, quietLogger(), nil, progress).Run(context.Background())

	assert.ErrorIs(t, err, ErrNoSeeds)
	assert.EqualError(t, err, "no seeds")
	assert.False(t, store.Exists(opts.SeedsPath), "empty seed sets are not checkpointed")
	assert.False(t, store.Exists(opts.ArticlesPath))
	assert.False(t, store.Exists(opts.ErrorsPath))
	assert.Equal(t, StageFailed, progress.Current().Stage)
}

func TestRunEmptyCheckpoint(t *testing.T) {
	site := newFakeSite()
	opts := testOptions(t, "a")
	writeCheckpoint(t, opts)

	_, err := New(site, nil, opts, quietLogger(), nil, nil).Run(context.Background())
	assert.ErrorIs(t, err, ErrNoSeeds)
	assert.Zero(t, site.opens)
}

func TestRunInvalidRange(t *testing.T) {
	site := newFakeSite()
	opts := testOptions(t, "a")
	opts.Range = query.DateRange{Start: opts.Range.End, End: opts.Range.Start}

	_, err := New(site, nil, opts, quietLogger(), nil, nil).Run(context.Background())
	assert.ErrorIs(t, err, query.ErrInvalidRange)
	assert.Zero(t, site.opens, "no browser work before the range is checked")
}

func TestRunPersistsOnCancel(t *testing.T) {
	site := newFakeSite()
	links := []string{"http://news.test/1", "http://news.test/2", "http://news.test/3"}
	for _, l := range links {
		site.pages[l] = newsArticle(l)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	site.onVisit = func(url string) {
		if url == "http://news.test/2" {
			cancel()
		}
	}

	opts := testOptions(t, "a")
	writeCheckpoint(t, opts, links...)

	report, err := New(site, nil, opts, quietLogger(), nil, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, report.Records, 1)

	saved, lerr := store.LoadArticles(opts.ArticlesPath)
	require.NoError(t, lerr)
	assert.Len(t, saved, 1)
	assert.True(t, store.Exists(opts.ErrorsPath))
	assert.Equal(t, site.opens, site.closes)
}

func TestRunSavesPartialSeedsOnCancel(t *testing.T) {
	site := newFakeSite()
	site.serve = func(url string) (string, bool) {
		if strings.HasPrefix(url, searchBase) {
			return resultsPage("http://news.test/1", "http://news.test/2"), true
		}
		return "", false
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queries := 0
	site.onVisit = func(url string) {
		if strings.HasPrefix(url, searchBase) {
			queries++
			if queries == 2 {
				cancel()
			}
		}
	}

	opts := testOptions(t, "a")
	report, err := New(site, nil, opts, quietLogger(), nil, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, report.Seeds)

	links, lerr := store.LoadSeeds(opts.SeedsPath)
	require.NoError(t, lerr)
	assert.Equal(t, []string{"http://news.test/1", "http://news.test/2"}, links)
	assert.False(t, store.Exists(opts.ArticlesPath), "content stage never started")
	assert.False(t, store.Exists(opts.ErrorsPath))
	assert.Equal(t, site.opens, site.closes)
}

func TestRunReopenFailureStopsLoop(t *testing.T) {
	site := newFakeSite()
	links := []string{"http://news.test/1", "http://news.test/2", "http://news.test/3"}
	for _, l := range links {
		site.pages[l] = newsArticle(l)
	}
	site.openErrAt = 2

	opts := testOptions(t, "a")
	opts.RecycleEvery = 1
	writeCheckpoint(t, opts, links...)

	report, err := New(site, nil, opts, quietLogger(), nil, nil).Run(context.Background())
	assert.ErrorContains(t, err, "reopen session")
	assert.Len(t, report.Records, 1)

	saved, lerr := store.LoadArticles(opts.ArticlesPath)
	require.NoError(t, lerr)
	assert.Len(t, saved, 1)
}

func TestRunJoinsPersistErrors(t *testing.T) {
	site := newFakeSite()
	site.pages["http://news.test/1"] = newsArticle("a")

	opts := testOptions(t, "a")
	writeCheckpoint(t, opts, "http://news.test/1")
	opts.ArticlesPath = filepath.Join(filepath.Dir(opts.SeedsPath), "news.parquet")

	_, err := New(site, nil, opts, quietLogger(), nil, nil).Run(context.Background())
	assert.ErrorIs(t, err, store.ErrUnsupportedFormat)
	assert.True(t, store.Exists(opts.ErrorsPath), "remaining tables are still written")
}

func TestWriteSummary(t *testing.T) {
	report := newReport("run-1", testTime)
	report.FinishedAt = testTime.Add(1500 * time.Millisecond)
	report.Keywords = []string{"탄소 중립", "RE100"}
	report.QueriesByKeyword = map[string]int{"탄소 중립": 12, "RE100": 3}
	report.Queries = 15
	report.Seeds = 40
	report.Processed = 40
	report.Records = make([]extract.Record, 30)
	report.Failures = make([]extract.Failure, 8)
	report.Skipped = 2
	report.Templates = map[string]int{extract.NaverNews: 25, extract.NaverEntertain: 5}

	var sb strings.Builder
	require.NoError(t, WriteSummary(&sb, report))

	want := strings.Join([]string{
		"run        run-1",
		"seeds      40 from 15 queries",
		"processed  40",
		"records    30",
		"failures   8",
		"skipped    2",
		"recycles   0",
		"duration   1.5s",
		"",
		"keyword    queries",
		"탄소 중립  12",
		"RE100      3",
		"",
		"template         records",
		"naver-entertain  5",
		"naver-news       25",
		"",
	}, "\n")
	assert.Equal(t, want, sb.String())
}
