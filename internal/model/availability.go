package model

import "time"

// Availability is a caregiver's published set of open slots. Instants are
// unique within a record; an instant listed here means no scheduled
// appointment holds that (caregiver, instant) pair.
type Availability struct {
	ID          string
	CaregiverID string
	Slots       []time.Time
	CreatedAt   time.Time
}

// HasSlot reports whether the record contains the exact instant.
func (a Availability) HasSlot(at time.Time) bool {
	for _, s := range a.Slots {
		if s.Equal(at) {
			return true
		}
	}
	return false
}
