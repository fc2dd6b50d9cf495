// Package parse turns a free-text message into a structured task command.
package parse

import (
	"regexp"
	"strings"
	"time"

	"github.com/minderhq/minder/internal/dateres"
	"github.com/minderhq/minder/internal/store"
)

const (
	ActionAdd      = "add"
	ActionComplete = "complete"
)

// Command is the structured result of parsing one message. A zero Command
// (empty Action) means the message could not be understood.
type Command struct {
	Action     string
	Name       string
	DueDate    string // YYYY-MM-DD, empty when no date was found
	Recurrence string
	Priority   string
}

// Keyword patterns are case-insensitive and matched against the original
// message, so spans index the same string they slice. Lower-casing first
// would shift offsets: some characters change UTF-8 width when folded.
var (
	completeRe = regexp.MustCompile(`(?i)\b(complete|completed|done|mark)\b`)
	addRe      = regexp.MustCompile(`(?i)\b(add|create|schedule)\b`)

	dailyRe   = regexp.MustCompile(`(?i)\b(every day|daily)\b`)
	weeklyRe  = regexp.MustCompile(`(?i)\b(every week|weekly)\b`)
	monthlyRe = regexp.MustCompile(`(?i)\b(every month|monthly)\b`)
	weekdayRe = regexp.MustCompile(`(?i)\bevery (sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)

	priorityRe = regexp.MustCompile(`#([A-Za-z0-9_-]+)`)

	dueMarkerRe  = regexp.MustCompile(`(?i)\b(by|on)\b`)
	nameStopRe   = regexp.MustCompile(`(?i)\b(by|on|every)\b|#`)
	trailingKwRe = regexp.MustCompile(`(?i)\s*\b(complete|completed|done|mark)\b\s*$`)
)

// Parser applies fixed keyword heuristics and defers date phrases to a
// Resolver. It never fails; callers reject commands missing required fields.
type Parser struct {
	Resolver dateres.Resolver
	Now      func() time.Time
}

func New(r dateres.Resolver) *Parser {
	return &Parser{Resolver: r, Now: func() time.Time { return time.Now().UTC() }}
}

// Parse runs the heuristics in fixed order: action, recurrence, priority,
// due date, name. Keywords match case-insensitively; names keep the
// original casing of the message.
func (p *Parser) Parse(text string) Command {
	var cmd Command
	switch {
	case completeRe.MatchString(text):
		cmd.Action = ActionComplete
	case addRe.MatchString(text):
		cmd.Action = ActionAdd
	default:
		// Bias toward the more common operation.
		cmd.Action = ActionAdd
	}

	switch {
	case dailyRe.MatchString(text):
		cmd.Recurrence = store.RecurDaily
	case weeklyRe.MatchString(text):
		cmd.Recurrence = store.RecurWeekly
	case monthlyRe.MatchString(text):
		cmd.Recurrence = store.RecurMonthly
	default:
		if m := weekdayRe.FindStringSubmatch(text); m != nil {
			cmd.Recurrence = strings.ToLower(m[1])
		}
	}

	if m := priorityRe.FindStringSubmatch(text); m != nil {
		cmd.Priority = strings.ToLower(m[1])
	}

	if cmd.Action == ActionComplete {
		cmd.Name = completionName(text)
		return cmd
	}

	cmd.Name = addName(text)
	cmd.DueDate = p.dueDate(text, cmd.Recurrence != "")
	return cmd
}

// completionName takes everything after the earliest completion keyword,
// then strips completion keywords echoed at the end ("mark buy milk done").
// When nothing trails the keyword, the text before it is the name.
func completionName(text string) string {
	loc := completeRe.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	name := strings.TrimSpace(text[loc[1]:])
	for {
		stripped := trailingKwRe.ReplaceAllString(name, "")
		if stripped == name {
			break
		}
		name = strings.TrimSpace(stripped)
	}
	if name == "" {
		name = strings.TrimSpace(text[:loc[0]])
	}
	return name
}

// addName is the span between the trailing edge of the creation keyword and
// the first of "by", "on", "every" or "#". Without a keyword the span
// starts at the beginning of the message.
func addName(text string) string {
	start := 0
	if loc := addRe.FindStringIndex(text); loc != nil {
		start = loc[1]
	}
	end := len(text)
	if loc := nameStopRe.FindStringIndex(text[start:]); loc != nil {
		end = start + loc[0]
	}
	return strings.TrimSpace(text[start:end])
}

// dueDate implements the phrase-after-marker strategy: only the phrase
// introduced by "by" or "on" is resolved, with future bias. When no marker
// exists and no recurrence was detected, the whole message is resolved as a
// fallback. Recurrence phrases are themselves date-like, so the fallback is
// skipped for recurring commands.
func (p *Parser) dueDate(text string, hasRecurrence bool) string {
	if p.Resolver == nil {
		return ""
	}
	if loc := dueMarkerRe.FindStringIndex(text); loc != nil {
		phrase := text[loc[1]:]
		if stop := nameStopRe.FindStringIndex(text[loc[1]:]); stop != nil {
			phrase = text[loc[1] : loc[1]+stop[0]]
		}
		if t, ok := p.Resolver.Resolve(strings.TrimSpace(phrase), p.Now(), true); ok {
			return t.Format(store.DateLayout)
		}
		return ""
	}
	if hasRecurrence {
		return ""
	}
	if t, ok := p.Resolver.Resolve(strings.TrimSpace(text), p.Now(), true); ok {
		return t.Format(store.DateLayout)
	}
	return ""
}
