package crawler

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"
)

// WriteSummary prints the report as aligned plain-text tables.
func WriteSummary(w io.Writer, r *Report) error {
	var sections [][][]string

	overview := [][]string{
		{"run", r.RunID},
		{"seeds", seedSource(r)},
		{"processed", fmt.Sprint(r.Processed)},
		{"records", fmt.Sprint(len(r.Records))},
		{"failures", fmt.Sprint(len(r.Failures))},
		{"skipped", fmt.Sprint(r.Skipped)},
		{"recycles", fmt.Sprint(r.Recycles)},
		{"duration", r.Duration().Round(time.Millisecond).String()},
	}
	sections = append(sections, overview)

	if len(r.Keywords) > 0 {
		rows := [][]string{{"keyword", "queries"}}
		for _, kw := range r.Keywords {
			rows = append(rows, []string{kw, fmt.Sprint(r.QueriesByKeyword[kw])})
		}
		sections = append(sections, rows)
	}

	if len(r.Templates) > 0 {
		names := make([]string, 0, len(r.Templates))
		for name := range r.Templates {
			names = append(names, name)
		}
		sort.Strings(names)
		rows := [][]string{{"template", "records"}}
		for _, name := range names {
			rows = append(rows, []string{name, fmt.Sprint(r.Templates[name])})
		}
		sections = append(sections, rows)
	}

	var sb strings.Builder
	for i, rows := range sections {
		if i > 0 {
			sb.WriteString("\n")
		}
		for _, line := range alignRows(rows) {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func seedSource(r *Report) string {
	if r.SeedsFromCheckpoint {
		return fmt.Sprintf("%d (checkpoint)", r.Seeds)
	}
	return fmt.Sprintf("%d from %d queries", r.Seeds, r.Queries)
}

// alignRows pads every column to its widest cell by display width, so
// Hangul keywords line up with ASCII ones.
func alignRows(rows [][]string) []string {
	var widths []int
	for _, row := range rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	lines := make([]string, len(rows))
	for r, row := range rows {
		var sb strings.Builder
		for i, cell := range row {
			if i > 0 {
				sb.WriteString("  ")
			}
			if i == len(row)-1 {
				sb.WriteString(cell)
				continue
			}
			sb.WriteString(runewidth.FillRight(cell, widths[i]))
		}
		lines[r] = sb.String()
	}
	return lines
}
