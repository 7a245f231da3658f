package seeds

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoResults is returned when a page has no search results container.
var ErrNoResults = errors.New("search results container not found")

// ExtractLinks returns the article links on a rendered search results page:
// the href of every anchor whose class is exactly "info" inside the first
// div.group_news container.
func ExtractLinks(html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse results page: %w", err)
	}

	container := doc.Find("div.group_news").First()
	if container.Length() == 0 {
		return nil, ErrNoResults
	}

	var links []string
	container.Find("a").Each(func(_ int, a *goquery.Selection) {
		classes := strings.Fields(a.AttrOr("class", ""))
		if len(classes) != 1 || classes[0] != "info" {
			return
		}
		if href := strings.TrimSpace(a.AttrOr("href", "")); href != "" {
			links = append(links, href)
		}
	})
	return links, nil
}
