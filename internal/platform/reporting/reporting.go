// Package reporting renders date-ranged exports of referral system data as a
// flat text document or an XLSX workbook. The data itself comes from Sources
// registered by the domain packages.
package reporting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/afyalink/referral/internal/platform/apperr"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"

	// StatusAll disables the status filter.
	StatusAll = "all"
)

// Query selects records created within [Start, End] and, unless Status is
// StatusAll, with that status.
type Query struct {
	Start  time.Time
	End    time.Time
	Status string
}

// HasStatus reports whether the query filters on status.
func (q Query) HasStatus() bool {
	return q.Status != "" && q.Status != StatusAll
}

// ParseQuery reads the inclusive day range and status filter. End is moved to
// the last instant of its day so a single-day range matches that whole day.
func ParseQuery(start, end, status string) (Query, error) {
	ve := &apperr.ValidationError{}
	s, err := time.Parse(dateLayout, start)
	if err != nil {
		ve.Add("start", "start must be a date (YYYY-MM-DD)")
	}
	e, err := time.Parse(dateLayout, end)
	if err != nil {
		ve.Add("end", "end must be a date (YYYY-MM-DD)")
	}
	if err := ve.OrNil(); err != nil {
		return Query{}, err
	}
	if e.Before(s) {
		return Query{}, apperr.Validation("end", "end must not be before start")
	}
	if status == "" {
		status = StatusAll
	}
	return Query{
		Start:  s,
		End:    e.Add(24*time.Hour - time.Nanosecond),
		Status: status,
	}, nil
}

// Record is one exported row, values aligned with Source.Columns.
type Record []string

// Source produces the rows of one report type. Sources enforce their own
// access rules using the caller carried on ctx.
type Source interface {
	Columns() []string
	Records(ctx context.Context, q Query) ([]Record, error)
}

// Report is a fully materialised export.
type Report struct {
	Type        string
	GeneratedAt time.Time
	Query       Query
	Columns     []string
	Records     []Record
}

// Filename returns AFYALINK_Report_<type>_<YYYY-MM-DD>.<ext>.
func (r *Report) Filename(ext string) string {
	return fmt.Sprintf("AFYALINK_Report_%s_%s.%s", r.Type, r.GeneratedAt.Format(dateLayout), ext)
}

// Build runs src for q and wraps the result.
func Build(ctx context.Context, reportType string, src Source, q Query, now time.Time) (*Report, error) {
	recs, err := src.Records(ctx, q)
	if err != nil {
		return nil, err
	}
	return &Report{
		Type:        strings.ToLower(reportType),
		GeneratedAt: now.UTC(),
		Query:       q,
		Columns:     src.Columns(),
		Records:     recs,
	}, nil
}

// FormatTime renders record timestamps in export output.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}
