// Package extract turns rendered article pages into article records using a
// fixed, ordered list of page templates.
package extract

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrFieldNotFound is matched by errors reporting a missing page marker.
var ErrFieldNotFound = errors.New("field not found")

// FieldError reports which template field could not be located.
type FieldError struct {
	Template string
	Field    string
	Selector string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s not found (%s)", e.Template, e.Field, e.Selector)
}

// Is makes errors.Is(err, ErrFieldNotFound) hold for every FieldError.
func (e *FieldError) Is(target error) bool {
	return target == ErrFieldNotFound
}

// Fields are the values a template pulls out of a page.
type Fields struct {
	Newspaper string
	Day       string
	Title     string
	Text      string
}

// Record is one successfully extracted article.
type Record struct {
	Newspaper string `json:"newspaper"`
	Day       string `json:"day"`
	Title     string `json:"title"`
	Text      string `json:"text"`
	Link      string `json:"link"`
	// Template names the template that matched. It is not exported to tables.
	Template string `json:"-"`
}

var dayLayouts = []string{"2006.01.02", "2006-01-02", "2006/01/02", "20060102"}

// Published parses Day. It reports false when Day is not a recognised date.
func (r Record) Published() (time.Time, bool) {
	day := strings.TrimSpace(r.Day)
	for _, layout := range dayLayouts {
		if t, err := time.Parse(layout, day); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Failure marks a URL that no template could parse.
type Failure struct {
	Link   string `json:"error_url"`
	Reason string `json:"-"`
}

// Result holds exactly one of Record or Failure.
type Result struct {
	Record  *Record
	Failure *Failure
}

// OK reports whether a record was extracted.
func (r Result) OK() bool {
	return r.Record != nil
}
