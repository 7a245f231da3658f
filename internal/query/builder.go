package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultSearchURL is the news search endpoint queries are built against.
const DefaultSearchURL = "https://search.naver.com/search.naver"

// SortMode selects the result ordering.
type SortMode int

const (
	SortRelevance SortMode = 0
	SortNewest    SortMode = 1
	SortOldest    SortMode = 2
)

// Scope selects which part of an article the keyword is matched against.
type Scope int

const (
	ScopeFullText  Scope = 0
	ScopeTitleOnly Scope = 1
)

// ParseSort accepts "relevance", "newest", "oldest" or their numeric codes.
func ParseSort(value string) (SortMode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "relevance", "0":
		return SortRelevance, nil
	case "newest", "1":
		return SortNewest, nil
	case "oldest", "2":
		return SortOldest, nil
	}
	return 0, fmt.Errorf("unknown sort mode %q", value)
}

func (s SortMode) String() string {
	switch s {
	case SortNewest:
		return "newest"
	case SortOldest:
		return "oldest"
	default:
		return "relevance"
	}
}

// ParseScope accepts "all", "title" or their numeric codes.
func ParseScope(value string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "all", "fulltext", "0":
		return ScopeFullText, nil
	case "title", "1":
		return ScopeTitleOnly, nil
	}
	return 0, fmt.Errorf("unknown search scope %q", value)
}

func (s Scope) String() string {
	if s == ScopeTitleOnly {
		return "title"
	}
	return "all"
}

// Params describes a single search query.
type Params struct {
	Keyword string
	Sort    SortMode
	Scope   Scope
	Range   DateRange
}

// Query pairs the parameters with the URL they produce.
type Query struct {
	Params
	URL string
}

// Builder renders search URLs.
type Builder struct {
	baseURL string
}

// NewBuilder returns a builder for baseURL, or DefaultSearchURL when empty.
func NewBuilder(baseURL string) *Builder {
	if baseURL == "" {
		baseURL = DefaultSearchURL
	}
	return &Builder{baseURL: baseURL}
}

// URL renders p. The same parameters always give the same string.
func (b *Builder) URL(p Params) string {
	var sb strings.Builder
	sb.WriteString(b.baseURL)
	sb.WriteString("?where=news&sm=tab_jum&query=")
	sb.WriteString(url.QueryEscape(p.Keyword))
	sb.WriteString("&sm=tab_opt&sort=")
	sb.WriteString(strconv.Itoa(int(p.Sort)))
	sb.WriteString("&photo=0&field=")
	sb.WriteString(strconv.Itoa(int(p.Scope)))
	sb.WriteString("&reporter_article=&pd=3&ds=")
	sb.WriteString(p.Range.Start.Format(DateLayout))
	sb.WriteString("&de=")
	sb.WriteString(p.Range.End.Format(DateLayout))
	return sb.String()
}

// Plan expands keywords over the monthly sub-ranges of r, keyword-major.
func (b *Builder) Plan(keywords []string, sort SortMode, scope Scope, r DateRange) ([]Query, error) {
	months, err := r.Months()
	if err != nil {
		return nil, err
	}

	queries := make([]Query, 0, len(keywords)*len(months))
	for _, keyword := range keywords {
		for _, month := range months {
			p := Params{Keyword: keyword, Sort: sort, Scope: scope, Range: month}
			queries = append(queries, Query{Params: p, URL: b.URL(p)})
		}
	}
	return queries, nil
}

// BuildAll returns the query URLs for every keyword and monthly sub-range.
func (b *Builder) BuildAll(keywords []string, sort SortMode, scope Scope, r DateRange) ([]string, error) {
	queries, err := b.Plan(keywords, sort, scope, r)
	if err != nil {
		return nil, err
	}
	urls := make([]string, len(queries))
	for i, q := range queries {
		urls[i] = q.URL
	}
	return urls, nil
}
