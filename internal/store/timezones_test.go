package store

import (
	"errors"
	"testing"
	"time"
)

func TestSetTimezoneValidatesIANA(t *testing.T) {
	s := testStore(t)
	if err := s.SetTimezone("u1", "Asia/Singapore"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if name, ok := s.Timezone("u1"); !ok || name != "Asia/Singapore" {
		t.Fatalf("stored = %q ok=%v", name, ok)
	}
	if err := s.SetTimezone("u1", "Mars/Olympus"); !errors.Is(err, ErrInvalid) {
		t.Fatalf("invalid zone: err = %v", err)
	}
	// Rejected set leaves the registry unchanged.
	if name, _ := s.Timezone("u1"); name != "Asia/Singapore" {
		t.Fatalf("registry changed: %q", name)
	}
}

func TestSetTimezoneOverwrites(t *testing.T) {
	s := testStore(t)
	if err := s.SetTimezone("u1", "UTC"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetTimezone("u1", "Europe/Berlin"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if name, _ := s.Timezone("u1"); name != "Europe/Berlin" {
		t.Fatalf("stored = %q", name)
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	s := testStore(t)
	if loc := s.Location("nobody"); loc != time.UTC {
		t.Fatalf("missing record: loc = %v", loc)
	}

	// A corrupt stored zone resolves to UTC without being repaired.
	s.mu.Lock()
	s.zones = append(s.zones, Zone{OwnerID: "u1", TZName: "Not/AZone"})
	s.mu.Unlock()
	if loc := s.Location("u1"); loc != time.UTC {
		t.Fatalf("corrupt record: loc = %v", loc)
	}
	if name, ok := s.Timezone("u1"); !ok || name != "Not/AZone" {
		t.Fatalf("corrupt record was repaired: %q ok=%v", name, ok)
	}
}
