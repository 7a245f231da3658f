package store

import (
	"fmt"
	"os"
	"time"

	"github.com/gorilla/feeds"

	"github.com/tkilaker/newsharvest/internal/extract"
)

const feedSummaryLen = 500

// FeedInfo describes the exported channel.
type FeedInfo struct {
	Title       string
	Link        string
	Description string
}

// BuildFeed renders records as an RSS 2.0 document.
func BuildFeed(records []extract.Record, info FeedInfo, now time.Time) (string, error) {
	feed := &feeds.Feed{
		Title:       info.Title,
		Link:        &feeds.Link{Href: info.Link},
		Description: info.Description,
		Created:     now,
	}

	feed.Items = make([]*feeds.Item, 0, len(records))
	for _, r := range records {
		item := &feeds.Item{
			Title:       r.Title,
			Link:        &feeds.Link{Href: r.Link},
			Id:          r.Link,
			Description: summarize(r.Text),
			Created:     now,
		}
		if r.Newspaper != "" {
			item.Author = &feeds.Author{Name: r.Newspaper}
		}
		if published, ok := r.Published(); ok {
			item.Created = published
		}
		feed.Items = append(feed.Items, item)
	}

	rss, err := feed.ToRss()
	if err != nil {
		return "", fmt.Errorf("failed to generate RSS: %w", err)
	}
	return rss, nil
}

// SaveFeed writes the RSS export to path.
func SaveFeed(path string, records []extract.Record, info FeedInfo) error {
	rss, err := BuildFeed(records, info, time.Now())
	if err != nil {
		return err
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(rss), 0o644); err != nil {
		return fmt.Errorf("save feed: %w", err)
	}
	return nil
}

func summarize(text string) string {
	r := []rune(text)
	if len(r) <= feedSummaryLen {
		return text
	}
	return string(r[:feedSummaryLen]) + "..."
}
