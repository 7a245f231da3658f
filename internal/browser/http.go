package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// DefaultUserAgent is sent by the HTTP driver.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36"

var errNoPage = errors.New("no page loaded")

// HTTPLauncher opens sessions that fetch pages over plain HTTP without
// running scripts. Clicking follows the href of the matched element.
type HTTPLauncher struct {
	UserAgent string
	Timeout   time.Duration
	// Transport replaces the default HTTP transport when set.
	Transport http.RoundTripper
}

// Open creates a collector-backed session. Requests are bound to ctx.
func (l *HTTPLauncher) Open(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ua := l.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	collector := colly.NewCollector(
		colly.UserAgent(ua),
		colly.AllowURLRevisit(),
		colly.StdlibContext(ctx),
	)
	collector.SetRequestTimeout(timeout)
	collector.IgnoreRobotsTxt = true
	if l.Transport != nil {
		collector.WithTransport(l.Transport)
	}

	s := &httpSession{collector: collector}
	collector.OnResponse(func(r *colly.Response) {
		s.body = r.Body
		s.current = r.Request.URL
	})
	return s, nil
}

type httpSession struct {
	collector *colly.Collector
	body      []byte
	current   *url.URL
	closed    bool
}

func (s *httpSession) Navigate(ctx context.Context, target string) error {
	if s.closed {
		return navError("navigate", target, errors.New("session closed"))
	}
	if err := ctx.Err(); err != nil {
		return navError("navigate", target, err)
	}

	s.body, s.current = nil, nil
	if err := s.collector.Visit(target); err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return navError("navigate", target, cerr)
		}
		return navError("navigate", target, err)
	}
	if s.current == nil {
		return navError("navigate", target, errNoPage)
	}
	return nil
}

func (s *httpSession) HTML(ctx context.Context) (string, error) {
	if s.current == nil {
		return "", navError("read html", "", errNoPage)
	}
	return string(s.body), nil
}

func (s *httpSession) Click(ctx context.Context, selector string) (bool, error) {
	if s.current == nil {
		return false, navError("click "+selector, "", errNoPage)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(s.body)))
	if err != nil {
		return false, navError("parse html", s.current.String(), err)
	}
	href, ok := doc.Find(selector).First().Attr("href")
	href = strings.TrimSpace(href)
	if !ok || href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return false, nil
	}

	next, err := s.current.Parse(href)
	if err != nil {
		return false, navError("click "+selector, s.current.String(), fmt.Errorf("bad href %q: %w", href, err))
	}
	if err := s.Navigate(ctx, next.String()); err != nil {
		return false, err
	}
	return true, nil
}

func (s *httpSession) Close() error {
	s.closed = true
	s.body, s.current = nil, nil
	return nil
}
