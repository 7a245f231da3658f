package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodLauncher starts a Chromium process per session through go-rod.
type RodLauncher struct {
	// Bin is the browser executable. Empty means look it up on the system.
	Bin         string
	Headless    bool
	UserDataDir string
	Timeout     time.Duration
	Logger      *slog.Logger
}

// Open launches a browser and opens a blank page on it.
func (l *RodLauncher) Open(ctx context.Context) (Session, error) {
	bin := l.Bin
	if bin == "" {
		bin, _ = launcher.LookPath()
	}

	lnch := launcher.New().
		Bin(bin).
		Headless(l.Headless).
		NoSandbox(true).
		Set("disable-dev-shm-usage")
	if l.UserDataDir != "" {
		lnch = lnch.UserDataDir(l.UserDataDir)
	}

	controlURL, err := lnch.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		lnch.Kill()
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		lnch.Kill()
		return nil, fmt.Errorf("open page: %w", err)
	}

	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("browser session opened", slog.String("control_url", controlURL))

	return &rodSession{
		launcher: lnch,
		browser:  b,
		page:     page,
		timeout:  l.Timeout,
		logger:   logger,
	}, nil
}

type rodSession struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	timeout  time.Duration
	logger   *slog.Logger
	current  string
}

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	tctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	page := s.page.Context(tctx)
	if err := page.Navigate(url); err != nil {
		return navError("navigate", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return navError("wait load", url, err)
	}
	s.current = url
	return nil
}

func (s *rodSession) HTML(ctx context.Context) (string, error) {
	tctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	html, err := s.page.Context(tctx).HTML()
	if err != nil {
		return "", navError("read html", s.current, err)
	}
	return html, nil
}

func (s *rodSession) Click(ctx context.Context, selector string) (bool, error) {
	tctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	page := s.page.Context(tctx)
	has, el, err := page.Has(selector)
	if err != nil {
		return false, navError("find "+selector, s.current, err)
	}
	if !has {
		return false, nil
	}

	// A disabled pager keeps the element but drops its href.
	href, err := el.Attribute("href")
	if err != nil {
		return false, navError("read href", s.current, err)
	}
	if href == nil {
		return false, nil
	}

	err = awaitNavigation(tctx,
		func() func() { return page.WaitNavigation(proto.PageLifecycleEventNameLoad) },
		func() error { return el.Click(proto.InputMouseButtonLeft, 1) },
	)
	if err != nil {
		return false, navError("click "+selector, s.current, err)
	}
	return true, nil
}

// awaitNavigation arms the load listener, runs trigger, then waits for the
// load event.
func awaitNavigation(ctx context.Context, arm func() (wait func()), trigger func() error) error {
	wait := arm()
	if err := trigger(); err != nil {
		return err
	}
	wait()
	return ctx.Err()
}

func (s *rodSession) Close() error {
	err := s.browser.Close()
	s.launcher.Kill()
	s.logger.Debug("browser session closed")
	if err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}
