package scheduling

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/healthcare-ab/careapi/internal/model"
)

// In-memory stores backing the core tests. fakeAppointments enforces the
// same exclusivity rule the Postgres store does: at most one scheduled
// appointment per (caregiver, instant).

type fakeAppointments struct {
	mu   sync.Mutex
	byID map[string]model.Appointment
	seq  int
}

func newFakeAppointments() *fakeAppointments {
	return &fakeAppointments{byID: map[string]model.Appointment{}}
}

func (f *fakeAppointments) Create(_ context.Context, appt model.Appointment) (model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if appt.Status == model.StatusScheduled {
		for _, existing := range f.byID {
			if existing.Status == model.StatusScheduled &&
				existing.CaregiverID == appt.CaregiverID &&
				existing.StartAt.Equal(appt.StartAt) {
				return model.Appointment{}, ErrSlotUnavailable
			}
		}
	}

	f.seq++
	appt.ID = fmt.Sprintf("appt-%d", f.seq)
	f.byID[appt.ID] = appt
	return appt, nil
}

func (f *fakeAppointments) GetByID(_ context.Context, id string) (model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	appt, ok := f.byID[id]
	if !ok {
		return model.Appointment{}, ErrNotFound
	}
	return appt, nil
}

func (f *fakeAppointments) Update(_ context.Context, appt model.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[appt.ID]; !ok {
		return ErrNotFound
	}
	f.byID[appt.ID] = appt
	return nil
}

func (f *fakeAppointments) FindByPatient(_ context.Context, patientID string) ([]model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Appointment
	for _, appt := range f.byID {
		if appt.PatientID == patientID {
			out = append(out, appt)
		}
	}
	return out, nil
}

func (f *fakeAppointments) FindByCaregiver(_ context.Context, caregiverID string) ([]model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Appointment
	for _, appt := range f.byID {
		if appt.CaregiverID == caregiverID {
			out = append(out, appt)
		}
	}
	return out, nil
}

func (f *fakeAppointments) scheduledCount(caregiverID string, at time.Time) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, appt := range f.byID {
		if appt.Status == model.StatusScheduled &&
			appt.CaregiverID == caregiverID &&
			appt.StartAt.Equal(at) {
			n++
		}
	}
	return n
}

type fakeAvailability struct {
	mu        sync.Mutex
	records   []model.Availability
	seq       int
	removeErr error
}

func newFakeAvailability() *fakeAvailability {
	return &fakeAvailability{}
}

func (f *fakeAvailability) Create(_ context.Context, rec model.Availability) (model.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	rec.ID = fmt.Sprintf("avail-%d", f.seq)
	rec.Slots = append([]time.Time(nil), rec.Slots...)
	f.records = append(f.records, rec)
	return rec, nil
}

func (f *fakeAvailability) FindByCaregiver(_ context.Context, caregiverID string) ([]model.Availability, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Availability
	for _, rec := range f.records {
		if rec.CaregiverID == caregiverID {
			copied := rec
			copied.Slots = append([]time.Time(nil), rec.Slots...)
			out = append(out, copied)
		}
	}
	return out, nil
}

func (f *fakeAvailability) RemoveSlot(_ context.Context, recordID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return false, f.removeErr
	}
	for i := range f.records {
		if f.records[i].ID != recordID {
			continue
		}
		for j, s := range f.records[i].Slots {
			if s.Equal(at) {
				f.records[i].Slots = append(f.records[i].Slots[:j], f.records[i].Slots[j+1:]...)
				return true, nil
			}
		}
		return false, nil
	}
	return false, nil
}

func (f *fakeAvailability) AddSlot(_ context.Context, recordID string, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.records {
		if f.records[i].ID != recordID {
			continue
		}
		for _, s := range f.records[i].Slots {
			if s.Equal(at) {
				return false, nil
			}
		}
		f.records[i].Slots = append(f.records[i].Slots, at)
		return true, nil
	}
	return false, ErrNotFound
}

func (f *fakeAvailability) OpenSlots(_ context.Context, after time.Time) ([]OpenSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []OpenSlot
	for _, rec := range f.records {
		for _, s := range rec.Slots {
			if s.After(after) {
				out = append(out, OpenSlot{CaregiverID: rec.CaregiverID, At: s})
			}
		}
	}
	return out, nil
}

func (f *fakeAvailability) openSlots(caregiverID string) []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []time.Time
	for _, rec := range f.records {
		if rec.CaregiverID == caregiverID {
			out = append(out, rec.Slots...)
		}
	}
	return out
}

type fakeUsers struct {
	byID map[string]model.User
	err  error
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (model.User, error) {
	if f.err != nil {
		return model.User{}, f.err
	}
	user, ok := f.byID[id]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return user, nil
}

type fakeFeedback struct {
	mu      sync.Mutex
	created []model.Feedback
	seq     int
}

func (f *fakeFeedback) Create(_ context.Context, fb model.Feedback) (model.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	fb.ID = fmt.Sprintf("fb-%d", f.seq)
	f.created = append(f.created, fb)
	return fb, nil
}

func (f *fakeFeedback) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}
