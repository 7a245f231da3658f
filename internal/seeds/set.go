// Package seeds collects article links from search result pages.
package seeds

// Set is a deduplicated collection of article URLs. URLs iterates in first
// insertion order so output files are stable between runs.
type Set struct {
	index map[string]struct{}
	urls  []string
}

// NewSet builds a set from urls, dropping duplicates and blanks.
func NewSet(urls ...string) *Set {
	s := &Set{index: make(map[string]struct{}, len(urls))}
	for _, u := range urls {
		s.Add(u)
	}
	return s
}

// Add inserts url and reports whether it was new.
func (s *Set) Add(url string) bool {
	if url == "" {
		return false
	}
	if _, ok := s.index[url]; ok {
		return false
	}
	s.index[url] = struct{}{}
	s.urls = append(s.urls, url)
	return true
}

// Contains reports whether url is in the set.
func (s *Set) Contains(url string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[url]
	return ok
}

// Len returns the number of distinct URLs.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.urls)
}

// URLs returns a copy of the set's contents.
func (s *Set) URLs() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.urls))
	copy(out, s.urls)
	return out
}
