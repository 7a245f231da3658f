package extract

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Extractor tries its templates in order and keeps the first that matches.
type Extractor struct {
	templates []Template
	logger    *slog.Logger
}

// New returns an extractor over templates, or DefaultTemplates when none
// are given.
func New(logger *slog.Logger, templates ...Template) *Extractor {
	if len(templates) == 0 {
		templates = DefaultTemplates()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{templates: templates, logger: logger}
}

// Templates lists the template names in the order they are tried.
func (e *Extractor) Templates() []string {
	names := make([]string, len(e.templates))
	for i, t := range e.templates {
		names[i] = t.Name
	}
	return names
}

// Extract parses html fetched from sourceURL. It never fails: a page that no
// template understands yields a Failure for sourceURL.
func (e *Extractor) Extract(html, sourceURL string) Result {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return e.fail(sourceURL, fmt.Errorf("parse html: %w", err))
	}

	var errs []error
	for _, t := range e.templates {
		fields, err := e.try(t, doc)
		if err == nil {
			return Result{Record: &Record{
				Newspaper: fields.Newspaper,
				Day:       fields.Day,
				Title:     fields.Title,
				Text:      fields.Text,
				Link:      sourceURL,
				Template:  t.Name,
			}}
		}
		if !errors.Is(err, ErrFieldNotFound) {
			// Reclassified as an ordinary miss, but worth a look.
			e.logger.Warn("template failed unexpectedly",
				slog.String("template", t.Name),
				slog.String("url", sourceURL),
				slog.Any("error", err),
			)
		}
		errs = append(errs, err)
	}
	return e.fail(sourceURL, errors.Join(errs...))
}

func (e *Extractor) try(t Template, doc *goquery.Document) (fields Fields, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", t.Name, r)
		}
	}()
	return t.Parse(doc)
}

func (e *Extractor) fail(sourceURL string, err error) Result {
	reason := ""
	if err != nil {
		reason = err.Error()
	}
	e.logger.Debug("no template matched", slog.String("url", sourceURL), slog.String("reason", reason))
	return Result{Failure: &Failure{Link: sourceURL, Reason: reason}}
}
