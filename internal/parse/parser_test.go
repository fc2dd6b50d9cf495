package parse

import (
	"testing"
	"time"
)

// stubResolver resolves a fixed phrase table; anything else is "no date".
type stubResolver struct {
	dates map[string]string
}

func (s stubResolver) Resolve(phrase string, ref time.Time, preferFuture bool) (time.Time, bool) {
	d, ok := s.dates[phrase]
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", d)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func testParser(dates map[string]string) *Parser {
	p := New(stubResolver{dates: dates})
	p.Now = func() time.Time { return time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC) }
	return p
}

func TestParseAddWithDueMarker(t *testing.T) {
	p := testParser(map[string]string{"friday": "2026-03-06"})
	cmd := p.Parse("add buy milk by friday")
	if cmd.Action != ActionAdd {
		t.Fatalf("action = %q", cmd.Action)
	}
	if cmd.Name != "buy milk" {
		t.Fatalf("name = %q", cmd.Name)
	}
	if cmd.DueDate != "2026-03-06" {
		t.Fatalf("due = %q", cmd.DueDate)
	}
	if cmd.Recurrence != "" || cmd.Priority != "" {
		t.Fatalf("unexpected recurrence %q / priority %q", cmd.Recurrence, cmd.Priority)
	}
}

func TestParseComplete(t *testing.T) {
	p := testParser(nil)
	cmd := p.Parse("mark buy milk done")
	if cmd.Action != ActionComplete {
		t.Fatalf("action = %q", cmd.Action)
	}
	if cmd.Name != "buy milk" {
		t.Fatalf("name = %q", cmd.Name)
	}
}

func TestParseCompleteKeywordAtEnd(t *testing.T) {
	p := testParser(nil)
	cmd := p.Parse("buy milk done")
	if cmd.Action != ActionComplete {
		t.Fatalf("action = %q", cmd.Action)
	}
	if cmd.Name != "buy milk" {
		t.Fatalf("name = %q", cmd.Name)
	}
}

func TestParseRecurringWithPriority(t *testing.T) {
	p := testParser(nil)
	cmd := p.Parse("schedule gym every week #health")
	if cmd.Action != ActionAdd {
		t.Fatalf("action = %q", cmd.Action)
	}
	if cmd.Name != "gym" {
		t.Fatalf("name = %q", cmd.Name)
	}
	if cmd.Recurrence != "weekly" {
		t.Fatalf("recurrence = %q", cmd.Recurrence)
	}
	if cmd.Priority != "health" {
		t.Fatalf("priority = %q", cmd.Priority)
	}
	if cmd.DueDate != "" {
		t.Fatalf("due = %q", cmd.DueDate)
	}
}

func TestParseRecurrenceVariants(t *testing.T) {
	p := testParser(nil)
	cases := []struct {
		text string
		want string
	}{
		{"add standup every day", "daily"},
		{"add review daily", "daily"},
		{"add report every month", "monthly"},
		{"add trash every friday", "friday"},
	}
	for _, c := range cases {
		if got := p.Parse(c.text).Recurrence; got != c.want {
			t.Fatalf("%q: recurrence = %q, want %q", c.text, got, c.want)
		}
	}
}

func TestParsePriorityKeepsOriginalCaseCapture(t *testing.T) {
	p := testParser(nil)
	cmd := p.Parse("add essay by friday #School")
	if cmd.Priority != "school" {
		t.Fatalf("priority = %q", cmd.Priority)
	}
}

func TestParseWholeMessageFallback(t *testing.T) {
	p := testParser(map[string]string{"add dentist tomorrow": "2026-03-05"})
	cmd := p.Parse("add dentist tomorrow")
	if cmd.DueDate != "2026-03-05" {
		t.Fatalf("due = %q", cmd.DueDate)
	}
	if cmd.Name != "dentist tomorrow" {
		t.Fatalf("name = %q", cmd.Name)
	}
}

func TestParseEmptyMessage(t *testing.T) {
	p := testParser(nil)
	cmd := p.Parse("   ")
	if cmd.Name != "" {
		t.Fatalf("name = %q", cmd.Name)
	}
	if cmd.DueDate != "" {
		t.Fatalf("due = %q", cmd.DueDate)
	}
}

func TestParseNamesSurviveCaseFolding(t *testing.T) {
	p := testParser(map[string]string{"friday": "2026-03-06"})

	// Ⱥ folds to a lower-case form with a different UTF-8 width, and İ
	// folds to two runes; neither may shift name boundaries or panic.
	cmd := p.Parse("Ⱥ done")
	if cmd.Action != ActionComplete || cmd.Name != "Ⱥ" {
		t.Fatalf("cmd = %#v", cmd)
	}
	cmd = p.Parse("İstanbul trip done")
	if cmd.Action != ActionComplete || cmd.Name != "İstanbul trip" {
		t.Fatalf("cmd = %#v", cmd)
	}
	cmd = p.Parse("add Ⱥ by friday")
	if cmd.Name != "Ⱥ" || cmd.DueDate != "2026-03-06" {
		t.Fatalf("cmd = %#v", cmd)
	}
}

func TestParseUppercaseKeywords(t *testing.T) {
	p := testParser(map[string]string{"friday": "2026-03-06"})
	cmd := p.Parse("ADD Buy Milk BY friday")
	if cmd.Action != ActionAdd {
		t.Fatalf("action = %q", cmd.Action)
	}
	if cmd.Name != "Buy Milk" {
		t.Fatalf("name = %q", cmd.Name)
	}
	if cmd.DueDate != "2026-03-06" {
		t.Fatalf("due = %q", cmd.DueDate)
	}
}

func TestParseDefaultsToAdd(t *testing.T) {
	p := testParser(map[string]string{"friday": "2026-03-06"})
	cmd := p.Parse("buy milk by friday")
	if cmd.Action != ActionAdd {
		t.Fatalf("action = %q", cmd.Action)
	}
	if cmd.Name != "buy milk" {
		t.Fatalf("name = %q", cmd.Name)
	}
}
