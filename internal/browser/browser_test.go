package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func htmlResponder(body string) httpmock.Responder {
	resp := httpmock.NewStringResponse(http.StatusOK, body)
	resp.Header.Set("Content-Type", "text/html")
	return httpmock.ResponderFromResponse(resp)
}

func resultsPage(page int, hasNext bool) string {
	next := `<a class="btn_next" aria-disabled="true">next</a>`
	if hasNext {
		next = fmt.Sprintf(`<a class="btn_next" href="/search?page=%d">next</a>`, page+1)
	}
	return fmt.Sprintf(`<html><body><div id="main_pack"><p>page %d</p><div class="api_sc_page_wrap">%s</div></div></body></html>`, page, next)
}

func TestHTTPSessionNavigateAndPaginate(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "http://search.test/search?page=1", htmlResponder(resultsPage(1, true)))
	transport.RegisterResponder("GET", "http://search.test/search?page=2", htmlResponder(resultsPage(2, false)))

	launcher := &HTTPLauncher{Transport: transport}
	sess, err := launcher.Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	ctx := context.Background()
	require.NoError(t, sess.Navigate(ctx, "http://search.test/search?page=1"))

	html, err := sess.HTML(ctx)
	require.NoError(t, err)
	assert.Contains(t, html, "page 1")

	clicked, err := sess.Click(ctx, "#main_pack div.api_sc_page_wrap a.btn_next")
	require.NoError(t, err)
	assert.True(t, clicked)

	html, err = sess.HTML(ctx)
	require.NoError(t, err)
	assert.Contains(t, html, "page 2")

	clicked, err = sess.Click(ctx, "#main_pack div.api_sc_page_wrap a.btn_next")
	require.NoError(t, err)
	assert.False(t, clicked, "disabled pager has no href")
}

func TestHTTPSessionNavigationError(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "http://search.test/missing", httpmock.NewStringResponder(http.StatusNotFound, ""))

	sess, err := (&HTTPLauncher{Transport: transport}).Open(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	err = sess.Navigate(context.Background(), "http://search.test/missing")
	require.Error(t, err)

	var nav *NavigationError
	require.True(t, errors.As(err, &nav))
	assert.Equal(t, "http://search.test/missing", nav.URL)
	assert.Equal(t, "navigation", ErrorLabel(err))
}

func TestHTTPSessionNavigateCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "http://search.test/slow", func(req *http.Request) (*http.Response, error) {
		cancel()
		select {
		case <-req.Context().Done():
			return nil, req.Context().Err()
		case <-time.After(2 * time.Second):
			return httpmock.NewStringResponse(http.StatusOK, "<html></html>"), nil
		}
	})

	sess, err := (&HTTPLauncher{Transport: transport}).Open(ctx)
	require.NoError(t, err)
	defer sess.Close()

	start := time.Now()
	err = sess.Navigate(ctx, "http://search.test/slow")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), 2*time.Second, "request is abandoned when ctx is cancelled")
	assert.Equal(t, "canceled", ErrorLabel(err))
}

func TestHTTPSessionRequiresPage(t *testing.T) {
	sess, err := (&HTTPLauncher{Transport: httpmock.NewMockTransport()}).Open(context.Background())
	require.NoError(t, err)

	_, err = sess.HTML(context.Background())
	assert.Error(t, err)
	_, err = sess.Click(context.Background(), "a")
	assert.Error(t, err)
}

func TestErrorLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: "unknown"},
		{name: "deadline", err: navError("navigate", "u", context.DeadlineExceeded), want: "timeout"},
		{name: "canceled", err: navError("navigate", "u", context.Canceled), want: "canceled"},
		{name: "navigation", err: navError("navigate", "u", errors.New("boom")), want: "navigation"},
		{name: "other", err: errors.New("boom"), want: "other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorLabel(tt.err))
		})
	}
}

func TestNavErrorWrapsTimeout(t *testing.T) {
	err := navError("wait load", "http://x.test", context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "wait load http://x.test")
}

func TestLauncherFunc(t *testing.T) {
	called := false
	l := LauncherFunc(func(ctx context.Context) (Session, error) {
		called = true
		return nil, errors.New("no browser")
	})
	_, err := l.Open(context.Background())
	assert.Error(t, err)
	assert.True(t, called)
}

func TestAwaitNavigation(t *testing.T) {
	var calls []string
	arm := func() func() {
		calls = append(calls, "arm")
		return func() { calls = append(calls, "wait") }
	}

	err := awaitNavigation(context.Background(), arm, func() error {
		calls = append(calls, "click")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"arm", "click", "wait"}, calls)

	calls = nil
	err = awaitNavigation(context.Background(), arm, func() error {
		calls = append(calls, "click")
		return errors.New("element detached")
	})
	assert.EqualError(t, err, "element detached")
	assert.Equal(t, []string{"arm", "click"}, calls, "no wait after a failed click")

	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()
	err = awaitNavigation(ctx, arm, func() error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
