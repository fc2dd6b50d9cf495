package store

import (
	"fmt"
	"strings"
	"time"

	// Zone validation must not depend on the host's tzdata install.
	_ "time/tzdata"
)

// Zone is one row of the timezone registry: one record per owner.
type Zone struct {
	OwnerID string `yaml:"owner_id" json:"owner_id"`
	TZName  string `yaml:"tz_name" json:"tz_name"`
}

// SetTimezone validates tz against the IANA database and stores it,
// overwriting any existing record for the owner.
func (s *Store) SetTimezone(ownerID, tz string) error {
	ownerID = strings.TrimSpace(ownerID)
	tz = strings.TrimSpace(tz)
	if ownerID == "" {
		return fmt.Errorf("%w: owner is required", ErrInvalid)
	}
	if tz == "" {
		return fmt.Errorf("%w: timezone is required", ErrInvalid)
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return fmt.Errorf("%w: unknown timezone %q", ErrInvalid, tz)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.zones {
		if s.zones[i].OwnerID == ownerID {
			s.zones[i].TZName = tz
			return s.persistZones()
		}
	}
	s.zones = append(s.zones, Zone{OwnerID: ownerID, TZName: tz})
	if err := s.persistZones(); err != nil {
		s.zones = s.zones[:len(s.zones)-1]
		return err
	}
	return nil
}

// Timezone returns the stored zone name for the owner, if any.
func (s *Store) Timezone(ownerID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, z := range s.zones {
		if z.OwnerID == strings.TrimSpace(ownerID) {
			return z.TZName, true
		}
	}
	return "", false
}

// Location resolves the owner's zone. A missing record, or a stored name
// that no longer validates, resolves to UTC; the record is not repaired.
func (s *Store) Location(ownerID string) *time.Location {
	name, ok := s.Timezone(ownerID)
	if !ok {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
