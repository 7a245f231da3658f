package store

import (
	"fmt"
	"strings"

	"github.com/tkilaker/newsharvest/internal/extract"
)

// Column names of the persisted tables.
const (
	ColumnSeedLink  = "href_link"
	ColumnNewspaper = "newspaper"
	ColumnDay       = "day"
	ColumnTitle     = "title"
	ColumnText      = "text"
	ColumnLink      = "link"
	ColumnErrorURL  = "error_url"
)

// ArticleColumns is the header of the article table.
var ArticleColumns = []string{ColumnNewspaper, ColumnDay, ColumnTitle, ColumnText, ColumnLink}

// SaveSeeds writes the seed checkpoint.
func SaveSeeds(path string, links []string) error {
	t := Table{Header: []string{ColumnSeedLink}, Rows: make([][]string, 0, len(links))}
	for _, link := range links {
		t.Rows = append(t.Rows, []string{link})
	}
	if err := WriteTable(path, t); err != nil {
		return fmt.Errorf("save seeds: %w", err)
	}
	return nil
}

// LoadSeeds reads a seed checkpoint written by SaveSeeds. Blank cells are
// dropped.
func LoadSeeds(path string) ([]string, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, fmt.Errorf("load seeds: %w", err)
	}
	values, err := t.Column(ColumnSeedLink)
	if err != nil {
		return nil, fmt.Errorf("load seeds %s: %w", path, err)
	}

	links := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			links = append(links, v)
		}
	}
	return links, nil
}

// SaveArticles writes the article table. An empty slice still produces a
// header-only table.
func SaveArticles(path string, records []extract.Record) error {
	t := Table{Header: ArticleColumns, Rows: make([][]string, 0, len(records))}
	for _, r := range records {
		t.Rows = append(t.Rows, []string{r.Newspaper, r.Day, r.Title, r.Text, r.Link})
	}
	if err := WriteTable(path, t); err != nil {
		return fmt.Errorf("save articles: %w", err)
	}
	return nil
}

// LoadArticles reads an article table written by SaveArticles.
func LoadArticles(path string) ([]extract.Record, error) {
	t, err := ReadTable(path)
	if err != nil {
		return nil, fmt.Errorf("load articles: %w", err)
	}

	cols := make([][]string, len(ArticleColumns))
	for i, name := range ArticleColumns {
		if cols[i], err = t.Column(name); err != nil {
			return nil, fmt.Errorf("load articles %s: %w", path, err)
		}
	}

	records := make([]extract.Record, len(t.Rows))
	for i := range t.Rows {
		records[i] = extract.Record{
			Newspaper: cols[0][i],
			Day:       cols[1][i],
			Title:     cols[2][i],
			Text:      cols[3][i],
			Link:      cols[4][i],
		}
	}
	return records, nil
}

// SaveFailures writes the error table.
func SaveFailures(path string, failures []extract.Failure) error {
	t := Table{Header: []string{ColumnErrorURL}, Rows: make([][]string, 0, len(failures))}
	for _, f := range failures {
		t.Rows = append(t.Rows, []string{f.Link})
	}
	if err := WriteTable(path, t); err != nil {
		return fmt.Errorf("save failures: %w", err)
	}
	return nil
}
