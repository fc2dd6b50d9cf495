package remind

import (
	"fmt"
	"strings"
)

const chatMaxChars = 3800

// Item is one task line in a digest: display name plus the priority tag.
type Item struct {
	Name     string
	Priority string
}

// Digest is the single grouped notification an owner receives per cycle.
// Date is the owner's local calendar date at the moment the cycle ran.
type Digest struct {
	OwnerID     string
	Date        string
	DueToday    []Item
	DueTomorrow []Item
}

func (d Digest) Empty() bool {
	return len(d.DueToday) == 0 && len(d.DueTomorrow) == 0
}

// RenderChat renders the digest as a single chat message.
func (d Digest) RenderChat() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📅 %s — due %d, tomorrow %d\n\n", d.Date, len(d.DueToday), len(d.DueTomorrow)))
	writeChatSection(&b, "⏰ Due today", d.DueToday)
	writeChatSection(&b, "🗓 Due tomorrow", d.DueTomorrow)
	if d.Empty() {
		b.WriteString("Nothing due.\n")
	}
	return trimChatOutput(b.String())
}

// RenderPlain renders the digest without chat decoration, for console
// delivery and logs.
func (d Digest) RenderPlain() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s - due %d, tomorrow %d\n", d.Date, len(d.DueToday), len(d.DueTomorrow)))
	writePlainSection(&b, "Due today", d.DueToday)
	writePlainSection(&b, "Due tomorrow", d.DueTomorrow)
	return strings.TrimRight(b.String(), "\n")
}

func writeChatSection(b *strings.Builder, title string, items []Item) {
	if len(items) == 0 {
		return
	}
	b.WriteString(title + "\n")
	for _, it := range items {
		b.WriteString("• " + cleanName(it.Name))
		if tag := tagSuffix(it.Priority); tag != "" {
			b.WriteString(" " + tag)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func writePlainSection(b *strings.Builder, title string, items []Item) {
	if len(items) == 0 {
		return
	}
	b.WriteString(title + "\n")
	for _, it := range items {
		line := "  - " + cleanName(it.Name)
		if tag := tagSuffix(it.Priority); tag != "" {
			line += " " + tag
		}
		b.WriteString(line + "\n")
	}
}

func cleanName(name string) string {
	name = strings.ReplaceAll(name, "\n", " ")
	name = strings.ReplaceAll(name, "\r", " ")
	name = strings.TrimSpace(name)
	if name == "" {
		return "(unnamed)"
	}
	return name
}

func tagSuffix(priority string) string {
	priority = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(priority), "#"))
	if priority == "" {
		return ""
	}
	return "#" + priority
}

func trimChatOutput(s string) string {
	s = strings.TrimRight(s, "\n")
	runes := []rune(s)
	if len(runes) <= chatMaxChars {
		return s
	}
	suffix := "\n… (truncated)"
	suffixRunes := []rune(suffix)
	limit := chatMaxChars - len(suffixRunes)
	if limit < 1 {
		return string(runes[:chatMaxChars])
	}
	return string(runes[:limit]) + suffix
}
