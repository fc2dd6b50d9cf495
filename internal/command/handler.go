// Package command maps the user-facing command surface onto the task store
// and parser, returning the confirmation or error text sent back to the
// caller. The chat transport that carries these strings is out of scope.
package command

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/minderhq/minder/internal/parse"
	"github.com/minderhq/minder/internal/store"
)

const couldNotUnderstand = `Sorry, I couldn't understand that. Try "add buy milk by friday" or "mark buy milk done".`

// Handler serves one command per method. It holds no state of its own; the
// store and parser are injected at construction.
type Handler struct {
	Store  *store.Store
	Parser *parse.Parser
	Now    func() time.Time
}

func New(st *store.Store, p *parse.Parser) *Handler {
	return &Handler{Store: st, Parser: p, Now: func() time.Time { return time.Now().UTC() }}
}

// Task parses a free-text message and dispatches to add or complete.
func (h *Handler) Task(ownerID, text string) string {
	cmd := h.Parser.Parse(text)
	switch cmd.Action {
	case parse.ActionComplete:
		if cmd.Name == "" {
			return couldNotUnderstand
		}
		ok, err := h.Store.Complete(ownerID, cmd.Name)
		if err != nil {
			log.Printf("command: complete for %s failed: %v", ownerID, err)
			return "Could not save the change, please try again."
		}
		if !ok {
			return notFound(cmd.Name)
		}
		return fmt.Sprintf("Marked %q complete.", cmd.Name)
	case parse.ActionAdd:
		if cmd.Name == "" {
			return couldNotUnderstand
		}
		due := cmd.DueDate
		if due == "" && cmd.Recurrence != "" {
			// Recurring adds without an explicit date anchor to the
			// owner's local today (or the next matching weekday).
			due = h.firstOccurrence(ownerID, cmd.Recurrence)
		}
		if due == "" {
			return `Please include a due date, e.g. "by friday".`
		}
		return h.add(ownerID, cmd.Name, due, cmd.Recurrence, cmd.Priority)
	default:
		return couldNotUnderstand
	}
}

// AddToday creates a task due on the caller's local today.
func (h *Handler) AddToday(ownerID, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Please give the task a name."
	}
	return h.add(ownerID, name, h.localToday(ownerID), "", "")
}

func (h *Handler) add(ownerID, name, due, recurrence, priority string) string {
	if _, err := h.Store.Add(ownerID, name, due, recurrence, priority); err != nil {
		log.Printf("command: add for %s failed: %v", ownerID, err)
		return "Could not save the task, please try again."
	}
	msg := fmt.Sprintf("Added %q, due %s.", name, due)
	if recurrence != "" {
		msg += " Repeats " + describeRecurrence(recurrence) + "."
	}
	return msg
}

// ListToday lists the caller's incomplete tasks due on their local today.
func (h *Handler) ListToday(ownerID string) string {
	today := h.localToday(ownerID)
	var lines []string
	for _, t := range h.Store.TasksForOwner(ownerID) {
		if t.Done() || t.DueDate != today {
			continue
		}
		lines = append(lines, "  - "+t.Name+tagSuffix(t.Priority))
	}
	if len(lines) == 0 {
		return "You have no tasks due today."
	}
	return fmt.Sprintf("Tasks due today (%s):\n%s", today, strings.Join(lines, "\n"))
}

// ListAll lists all of the caller's tasks with status, recurrence, priority.
func (h *Handler) ListAll(ownerID string) string {
	tasks := h.Store.TasksForOwner(ownerID)
	if len(tasks) == 0 {
		return "You have no tasks."
	}
	var b strings.Builder
	b.WriteString("Your tasks:\n")
	for _, t := range tasks {
		b.WriteString("  - " + t.Name + " — due " + t.DueDate)
		if t.Recurrence != "" {
			b.WriteString(", repeats " + describeRecurrence(t.Recurrence))
		}
		b.WriteString(tagSuffix(t.Priority))
		if t.Done() {
			b.WriteString(" [done]")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// EditTask updates the name and/or due date of the first matching task.
// Empty arguments mean "leave unchanged"; at least one must be given.
func (h *Handler) EditTask(ownerID, originalName, newName, newDue string) string {
	originalName = strings.TrimSpace(originalName)
	newName = strings.TrimSpace(newName)
	newDue = strings.TrimSpace(newDue)
	if originalName == "" {
		return "Please name the task to edit."
	}
	if newName == "" && newDue == "" {
		return "Nothing to change: give a new name, a new due date, or both."
	}
	if newDue != "" && !store.ValidDate(newDue) {
		return fmt.Sprintf("%q is not a valid date, use YYYY-MM-DD.", newDue)
	}
	var namePtr, duePtr *string
	if newName != "" {
		namePtr = &newName
	}
	if newDue != "" {
		duePtr = &newDue
	}
	matched, err := h.Store.Edit(ownerID, originalName, namePtr, duePtr)
	if err != nil {
		log.Printf("command: edit for %s failed: %v", ownerID, err)
		return "Could not save the change, please try again."
	}
	if !matched {
		return notFound(originalName)
	}
	return fmt.Sprintf("Updated %q.", originalName)
}

// DeleteTask removes the first matching task.
func (h *Handler) DeleteTask(ownerID, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Please name the task to delete."
	}
	ok, err := h.Store.Delete(ownerID, name)
	if err != nil {
		log.Printf("command: delete for %s failed: %v", ownerID, err)
		return "Could not save the change, please try again."
	}
	if !ok {
		return notFound(name)
	}
	return fmt.Sprintf("Deleted %q.", name)
}

// SetTimezone validates and stores the caller's IANA timezone.
func (h *Handler) SetTimezone(ownerID, tz string) string {
	if err := h.Store.SetTimezone(ownerID, tz); err != nil {
		return fmt.Sprintf("%q is not a valid IANA timezone (try \"Europe/Berlin\").", strings.TrimSpace(tz))
	}
	return fmt.Sprintf("Timezone set to %s.", strings.TrimSpace(tz))
}

func (h *Handler) localToday(ownerID string) string {
	return h.Now().In(h.Store.Location(ownerID)).Format(store.DateLayout)
}

func (h *Handler) firstOccurrence(ownerID, recurrence string) string {
	localNow := h.Now().In(h.Store.Location(ownerID))
	today := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, time.UTC)
	if wd, ok := store.WeekdayByName(recurrence); ok {
		delta := (int(wd) - int(today.Weekday()) + 7) % 7
		return today.AddDate(0, 0, delta).Format(store.DateLayout)
	}
	return today.Format(store.DateLayout)
}

func describeRecurrence(r string) string {
	switch r {
	case store.RecurDaily:
		return "daily"
	case store.RecurWeekly:
		return "weekly"
	case store.RecurMonthly:
		return "monthly"
	default:
		return "every " + r
	}
}

func notFound(name string) string {
	return fmt.Sprintf("No task named %q found.", name)
}

func tagSuffix(priority string) string {
	priority = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(priority), "#"))
	if priority == "" {
		return ""
	}
	return " #" + priority
}
