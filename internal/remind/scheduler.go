// Package remind runs the periodic reminder and recurrence cycle.
package remind

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/minderhq/minder/internal/store"
)

// Notifier delivers one digest to one owner. The chat transport behind it is
// out of scope here; delivery failure for one owner never fails the cycle.
type Notifier interface {
	Notify(ctx context.Context, ownerID string, d Digest) error
}

// Scheduler drives one reminder cycle per interval tick. A cycle runs to
// completion, including every send, before the next tick is serviced, so
// cycles never overlap.
type Scheduler struct {
	Store       *store.Store
	Notifier    Notifier
	Interval    time.Duration
	SendTimeout time.Duration
	Now         func() time.Time
	Log         *log.Logger
}

func New(st *store.Store, n Notifier, interval time.Duration) *Scheduler {
	return &Scheduler{
		Store:       st,
		Notifier:    n,
		Interval:    interval,
		SendTimeout: 30 * time.Second,
		Now:         func() time.Time { return time.Now().UTC() },
		Log:         log.New(os.Stderr, "remind: ", log.LstdFlags),
	}
}

// Run blocks until ctx is cancelled. The first cycle fires immediately.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	s.Cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Cycle(ctx)
		}
	}
}

// Cycle scans all incomplete tasks, buckets them into each owner's local
// due-today and due-tomorrow, fires recurrence rollover at most once per due
// occurrence, and sends one digest per owner with a pending bucket. Errors
// are logged per owner and never propagate out of the cycle.
func (s *Scheduler) Cycle(ctx context.Context) {
	now := s.Now()
	digests := map[string]*Digest{}
	var order []string

	for _, t := range s.Store.AllTasks() {
		if t.Done() {
			continue
		}
		localNow := now.In(s.Store.Location(t.OwnerID))
		today := localNow.Format(store.DateLayout)
		tomorrow := localNow.AddDate(0, 0, 1).Format(store.DateLayout)

		d, seen := digests[t.OwnerID]
		if !seen {
			d = &Digest{OwnerID: t.OwnerID, Date: today}
			digests[t.OwnerID] = d
			order = append(order, t.OwnerID)
		}

		switch t.DueDate {
		case today:
			d.DueToday = append(d.DueToday, Item{Name: t.Name, Priority: t.Priority})
			s.rollover(t)
		case tomorrow:
			d.DueTomorrow = append(d.DueTomorrow, Item{Name: t.Name, Priority: t.Priority})
		}
	}

	for _, owner := range order {
		d := digests[owner]
		if d.Empty() {
			continue
		}
		sendCtx, cancel := context.WithTimeout(ctx, s.SendTimeout)
		err := s.Notifier.Notify(sendCtx, owner, *d)
		cancel()
		if err != nil {
			s.Log.Printf("digest for %s not delivered: %v", owner, err)
		}
	}
}

// rollover appends the next occurrence of a recurring due-today task. The
// Rolled stamp keys the guard by (task, due date): the condition stays true
// for the rest of the local day, but only the first cycle creates a row.
func (s *Scheduler) rollover(t store.Task) {
	if t.Recurrence == store.RecurNone || t.Rolled == t.DueDate {
		return
	}
	due, err := time.Parse(store.DateLayout, t.DueDate)
	if err != nil {
		return
	}
	next, ok := NextOccurrence(due, t.Recurrence)
	if !ok {
		return
	}
	if _, err := s.Store.Add(t.OwnerID, t.Name, next.Format(store.DateLayout), t.Recurrence, t.Priority); err != nil {
		s.Log.Printf("rollover of %s failed: %v", t.ID, err)
		return
	}
	if err := s.Store.MarkRolled(t.ID, t.DueDate); err != nil {
		s.Log.Printf("rollover stamp for %s not persisted: %v", t.ID, err)
	}
}

// NextOccurrence computes the successor due date for a recurrence rule.
func NextOccurrence(due time.Time, recurrence string) (time.Time, bool) {
	switch recurrence {
	case store.RecurDaily:
		return due.AddDate(0, 0, 1), true
	case store.RecurWeekly:
		return due.AddDate(0, 0, 7), true
	case store.RecurMonthly:
		return due.AddDate(0, 1, 0), true
	}
	wd, ok := store.WeekdayByName(recurrence)
	if !ok {
		return time.Time{}, false
	}
	delta := (int(wd) - int(due.Weekday()) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return due.AddDate(0, 0, delta), true
}
