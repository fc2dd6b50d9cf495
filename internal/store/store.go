package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"
)

type randReader struct{}

func (randReader) Read(p []byte) (int, error) { return rand.Read(p) }

var (
	ErrInvalid = errors.New("invalid")
	timeNow    = func() time.Time { return time.Now().UTC() }
)

// DateLayout is the only date format the store persists. No time component.
const DateLayout = "2006-01-02"

const (
	completeYes = "yes"
	completeNo  = "no"
)

// Tie-break order for first-match lookups when an owner holds duplicate names.
const (
	TieBreakOldest = "oldest"
	TieBreakNewest = "newest"
)

// Recurrence values. Anything else the normalizer accepts is a weekday name.
const (
	RecurNone    = ""
	RecurDaily   = "daily"
	RecurWeekly  = "weekly"
	RecurMonthly = "monthly"
)

type Config struct {
	Schema          int    `json:"schema"`
	TieBreak        string `json:"tie_break"`
	IntervalMinutes int    `json:"interval_minutes"`
	DigestFormat    string `json:"digest_format"` // chat|plain
}

// Task is one row of the tasks table. Complete is persisted as "yes"/"no".
type Task struct {
	ID         string `yaml:"id" json:"id"`
	OwnerID    string `yaml:"owner_id" json:"owner_id"`
	Name       string `yaml:"name" json:"name"`
	DueDate    string `yaml:"due_date" json:"due_date"`
	Complete   string `yaml:"complete" json:"complete"`
	Recurrence string `yaml:"recurrence" json:"recurrence"`
	Priority   string `yaml:"priority" json:"priority"`
	// Rolled records the due date for which recurrence rollover already
	// fired, so hourly cycles create at most one successor per occurrence.
	Rolled string `yaml:"rolled,omitempty" json:"rolled,omitempty"`
}

func (t *Task) Done() bool { return t.Complete == completeYes }

type taskTable struct {
	Schema int    `yaml:"schema"`
	Rows   []Task `yaml:"rows"`
}

type zoneTable struct {
	Schema int    `yaml:"schema"`
	Rows   []Zone `yaml:"rows"`
}

// Store holds the tasks table and the timezone registry. Every operation
// takes the store mutex, so individual calls are atomic; there are no
// cross-call transactions.
type Store struct {
	Root string

	mu    sync.Mutex
	cfg   Config
	tasks []Task
	zones []Zone
}

// Open opens a store rooted at root. Missing tables read as empty; nothing
// is created on disk until the first write.
func Open(root string) (*Store, error) {
	s := &Store{Root: expandHome(root)}
	s.cfg = s.loadOrDefaultConfig()
	if err := s.loadTables(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Init() error {
	if err := os.MkdirAll(s.Root, 0o755); err != nil {
		return err
	}
	cfgPath := filepath.Join(s.Root, "config.json")
	if _, err := os.Stat(cfgPath); err == nil {
		return nil
	}
	b, _ := json.MarshalIndent(s.cfg, "", "  ")
	return atomicWriteFile(cfgPath, b, 0o644)
}

func defaultConfig() Config {
	return Config{
		Schema:          1,
		TieBreak:        TieBreakOldest,
		IntervalMinutes: 60,
		DigestFormat:    "chat",
	}
}

func (s *Store) loadOrDefaultConfig() Config {
	b, err := os.ReadFile(filepath.Join(s.Root, "config.json"))
	if err != nil {
		return defaultConfig()
	}
	var cfg Config
	if err := json.Unmarshal(b, &cfg); err != nil {
		return defaultConfig()
	}
	if cfg.Schema == 0 {
		cfg.Schema = 1
	}
	if cfg.TieBreak != TieBreakNewest {
		cfg.TieBreak = TieBreakOldest
	}
	if cfg.IntervalMinutes <= 0 {
		cfg.IntervalMinutes = 60
	}
	if cfg.DigestFormat == "" {
		cfg.DigestFormat = "chat"
	}
	return cfg
}

func (s *Store) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

func (s *Store) SaveConfig(cfg Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.Schema == 0 {
		cfg.Schema = 1
	}
	if cfg.TieBreak != TieBreakNewest {
		cfg.TieBreak = TieBreakOldest
	}
	if cfg.IntervalMinutes <= 0 {
		cfg.IntervalMinutes = 60
	}
	if cfg.DigestFormat == "" {
		cfg.DigestFormat = "chat"
	}
	s.cfg = cfg
	b, _ := json.MarshalIndent(cfg, "", "  ")
	return atomicWriteFile(filepath.Join(s.Root, "config.json"), b, 0o644)
}

func (s *Store) loadTables() error {
	b, err := readTableFile(filepath.Join(s.Root, "tasks.yaml"))
	if err != nil {
		return err
	}
	if b != nil {
		var tt taskTable
		if err := yaml.Unmarshal(b, &tt); err != nil {
			return fmt.Errorf("%w: tasks.yaml: %v", ErrInvalid, err)
		}
		s.tasks = tt.Rows
	}
	b, err = readTableFile(filepath.Join(s.Root, "timezones.yaml"))
	if err != nil {
		return err
	}
	if b != nil {
		var zt zoneTable
		if err := yaml.Unmarshal(b, &zt); err != nil {
			return fmt.Errorf("%w: timezones.yaml: %v", ErrInvalid, err)
		}
		s.zones = zt.Rows
	}
	return nil
}

func readTableFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}

func (s *Store) persistTasks() error {
	b, err := yaml.Marshal(&taskTable{Schema: 1, Rows: s.tasks})
	if err != nil {
		return err
	}
	return atomicWriteFile(filepath.Join(s.Root, "tasks.yaml"), b, 0o644)
}

func (s *Store) persistZones() error {
	b, err := yaml.Marshal(&zoneTable{Schema: 1, Rows: s.zones})
	if err != nil {
		return err
	}
	return atomicWriteFile(filepath.Join(s.Root, "timezones.yaml"), b, 0o644)
}

// Add appends a new incomplete task row. Duplicate (owner, name) pairs are
// allowed; lookups resolve them first-match in the configured tie-break order.
func (s *Store) Add(ownerID, name, dueDate, recurrence, priority string) (*Task, error) {
	ownerID = strings.TrimSpace(ownerID)
	name = strings.TrimSpace(name)
	if ownerID == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalid)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: task name is required", ErrInvalid)
	}
	if !ValidDate(dueDate) {
		return nil, fmt.Errorf("%w: due date %q is not YYYY-MM-DD", ErrInvalid, dueDate)
	}
	rec, ok := NormalizeRecurrence(recurrence)
	if !ok {
		return nil, fmt.Errorf("%w: unknown recurrence %q", ErrInvalid, recurrence)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	t := Task{
		ID:         "tsk_" + newULID(),
		OwnerID:    ownerID,
		Name:       name,
		DueDate:    dueDate,
		Complete:   completeNo,
		Recurrence: rec,
		Priority:   strings.TrimSpace(strings.ToLower(priority)),
	}
	s.tasks = append(s.tasks, t)
	if err := s.persistTasks(); err != nil {
		s.tasks = s.tasks[:len(s.tasks)-1]
		return nil, err
	}
	return &t, nil
}

// Complete marks the first (owner, name) match complete, in any completion
// state. Already-complete and missing targets are both no-ops; the returned
// flag reports whether any row matched.
func (s *Store) Complete(ownerID, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.firstMatch(ownerID, name)
	if i < 0 {
		return false, nil
	}
	if s.tasks[i].Complete == completeYes {
		return true, nil
	}
	s.tasks[i].Complete = completeYes
	if err := s.persistTasks(); err != nil {
		s.tasks[i].Complete = completeNo
		return false, err
	}
	return true, nil
}

// Edit updates name and/or due date on the first (owner, name) match.
func (s *Store) Edit(ownerID, originalName string, newName, newDue *string) (bool, error) {
	if newName == nil && newDue == nil {
		return false, fmt.Errorf("%w: nothing to edit", ErrInvalid)
	}
	if newName != nil && strings.TrimSpace(*newName) == "" {
		return false, fmt.Errorf("%w: new name is empty", ErrInvalid)
	}
	if newDue != nil && !ValidDate(*newDue) {
		return false, fmt.Errorf("%w: due date %q is not YYYY-MM-DD", ErrInvalid, *newDue)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.firstMatch(ownerID, originalName)
	if i < 0 {
		return false, nil
	}
	prev := s.tasks[i]
	if newName != nil {
		s.tasks[i].Name = strings.TrimSpace(*newName)
	}
	if newDue != nil {
		s.tasks[i].DueDate = *newDue
	}
	if err := s.persistTasks(); err != nil {
		s.tasks[i] = prev
		return false, err
	}
	return true, nil
}

// Delete removes the first (owner, name) match.
func (s *Store) Delete(ownerID, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.firstMatch(ownerID, name)
	if i < 0 {
		return false, nil
	}
	removed := s.tasks[i]
	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	if err := s.persistTasks(); err != nil {
		s.tasks = append(s.tasks[:i], append([]Task{removed}, s.tasks[i:]...)...)
		return false, err
	}
	return true, nil
}

// TasksDueToday returns incomplete rows due on the reference date. This is
// the process-global "today"; per-owner local days are the scheduler's job.
func (s *Store) TasksDueToday(ref time.Time) []Task {
	today := ref.Format(DateLayout)
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Task
	for _, t := range s.tasks {
		if !t.Done() && t.DueDate == today {
			out = append(out, t)
		}
	}
	return out
}

// AllTasks returns every row regardless of completion state, in row order.
func (s *Store) AllTasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// TasksForOwner returns the owner's rows, any state, in row order.
func (s *Store) TasksForOwner(ownerID string) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Task
	for _, t := range s.tasks {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	return out
}

// MarkRolled records that rollover fired for the given row at the given due
// date. Unknown ids are ignored: the row may have been deleted mid-cycle.
// The in-memory stamp is kept even when the write fails, so the running
// process still rolls each occurrence at most once; the returned error
// means the guard will not survive a restart.
func (s *Store) MarkRolled(id, dueDate string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID == id {
			s.tasks[i].Rolled = dueDate
			return s.persistTasks()
		}
	}
	return nil
}

// firstMatch scans in row order (or reverse, under the newest tie-break) and
// returns the index of the first (owner, name) match, -1 when absent.
// Callers hold s.mu.
func (s *Store) firstMatch(ownerID, name string) int {
	ownerID = strings.TrimSpace(ownerID)
	name = strings.TrimSpace(name)
	if s.cfg.TieBreak == TieBreakNewest {
		for i := len(s.tasks) - 1; i >= 0; i-- {
			if s.tasks[i].OwnerID == ownerID && s.tasks[i].Name == name {
				return i
			}
		}
		return -1
	}
	for i := range s.tasks {
		if s.tasks[i].OwnerID == ownerID && s.tasks[i].Name == name {
			return i
		}
	}
	return -1
}

func ValidDate(s string) bool {
	_, err := time.Parse(DateLayout, strings.TrimSpace(s))
	return err == nil
}

// NormalizeRecurrence maps user input to a stored recurrence value. Accepts
// the fixed enum plus any weekday name (stored lower-cased).
func NormalizeRecurrence(r string) (string, bool) {
	r = strings.TrimSpace(strings.ToLower(r))
	switch r {
	case RecurNone, RecurDaily, RecurWeekly, RecurMonthly:
		return r, true
	}
	if _, ok := WeekdayByName(r); ok {
		return r, true
	}
	return "", false
}

// WeekdayByName resolves a lower-cased English weekday name.
func WeekdayByName(name string) (time.Weekday, bool) {
	switch strings.TrimSpace(strings.ToLower(name)) {
	case "sunday":
		return time.Sunday, true
	case "monday":
		return time.Monday, true
	case "tuesday":
		return time.Tuesday, true
	case "wednesday":
		return time.Wednesday, true
	case "thursday":
		return time.Thursday, true
	case "friday":
		return time.Friday, true
	case "saturday":
		return time.Saturday, true
	}
	return time.Sunday, false
}

func newULID() string {
	t := ulid.Timestamp(timeNow())
	entropy := ulid.Monotonic(randReader{}, 0)
	id, err := ulid.New(t, entropy)
	if err != nil {
		// fallback
		return fmt.Sprintf("%d", timeNow().UnixNano())
	}
	return strings.ToUpper(id.String())
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~"+string(os.PathSeparator)) || path == "~" {
		home, _ := os.UserHomeDir()
		if home != "" {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp := filepath.Join(dir, fmt.Sprintf(".tmp-%d", timeNow().UnixNano()))
	if err := os.WriteFile(tmp, data, perm); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	// Rename is atomic on same filesystem.
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
