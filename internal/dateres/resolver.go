// Package dateres turns natural-language date phrases into calendar dates.
package dateres

import (
	"strings"
	"time"

	naturaldate "github.com/tj/go-naturaldate"
)

// Resolver resolves a free-text phrase to a calendar date relative to a
// reference instant. The boolean reports whether a date was found at all.
type Resolver interface {
	Resolve(phrase string, ref time.Time, preferFuture bool) (time.Time, bool)
}

// Explicit layouts tried before the natural-language engine. Year-less
// layouts take the reference year, advancing when future bias demands it.
var explicitLayouts = []string{
	"2006-01-02",
	"Jan 2 2006",
	"January 2 2006",
	"Jan 2",
	"January 2",
}

// Natural is the production Resolver. Explicit date formats are matched
// first; everything else goes through the natural-language engine, which
// advances past dates to their next occurrence under future bias.
type Natural struct{}

func (Natural) Resolve(phrase string, ref time.Time, preferFuture bool) (time.Time, bool) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return time.Time{}, false
	}

	for _, layout := range explicitLayouts {
		t, err := time.Parse(layout, phrase)
		if err != nil {
			continue
		}
		if t.Year() == 0 {
			t = time.Date(ref.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			if preferFuture && t.Before(truncate(ref)) {
				t = t.AddDate(1, 0, 0)
			}
		}
		return truncate(t), true
	}

	opts := []naturaldate.Option{}
	if preferFuture {
		opts = append(opts, naturaldate.WithDirection(naturaldate.Future))
	}
	t, err := naturaldate.Parse(phrase, ref, opts...)
	if err != nil {
		return time.Time{}, false
	}
	// The engine echoes the reference instant when no date expression
	// was consumed.
	if t.Equal(ref) {
		return time.Time{}, false
	}
	return truncate(t), true
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
