package browser

import (
	"context"
	"errors"
	"fmt"
)

// ErrTimeout marks a step that did not finish within its deadline.
var ErrTimeout = errors.New("timed out")

// NavigationError reports a page that could not be loaded, rendered or paged.
type NavigationError struct {
	Op  string
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

func navError(op, url string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, ErrTimeout) {
		err = fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return &NavigationError{Op: op, URL: url, Err: err}
}

// ErrorLabel classifies err for logs and metrics.
func ErrorLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	var nav *NavigationError
	if errors.As(err, &nav) {
		return "navigation"
	}
	return "other"
}
