// Package browser defines the page-session contract used by the crawler and
// its two drivers: a headless Chromium session and a plain HTTP session.
package browser

import (
	"context"
	"time"
)

// DefaultTimeout bounds every navigation, render and click.
const DefaultTimeout = 30 * time.Second

// Session is one live page that can be navigated, read and clicked.
// Sessions are not safe for concurrent use.
type Session interface {
	// Navigate loads url and waits until the page is ready.
	Navigate(ctx context.Context, url string) error
	// HTML returns the rendered markup of the current page.
	HTML(ctx context.Context) (string, error)
	// Click activates the element matched by selector. It returns false when
	// the element is missing or has no link target.
	Click(ctx context.Context, selector string) (bool, error)
	// Close releases the session and everything it holds.
	Close() error
}

// Launcher opens fresh sessions.
type Launcher interface {
	Open(ctx context.Context) (Session, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context) (Session, error)

// Open calls f(ctx).
func (f LauncherFunc) Open(ctx context.Context) (Session, error) {
	return f(ctx)
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
