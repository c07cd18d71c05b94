package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/healthcare-ab/careapi/internal/model"
	"github.com/healthcare-ab/careapi/internal/scheduling"
	"github.com/healthcare-ab/careapi/libs/auth"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

const testSecret = "handler-test-secret"

type memAppointments struct {
	mu   sync.Mutex
	seq  int
	byID map[string]model.Appointment
}

func newMemAppointments() *memAppointments {
	return &memAppointments{byID: map[string]model.Appointment{}}
}

func (m *memAppointments) Create(_ context.Context, appt model.Appointment) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.byID {
		if existing.Status == model.StatusScheduled &&
			existing.CaregiverID == appt.CaregiverID &&
			existing.StartAt.Equal(appt.StartAt) &&
			appt.Status == model.StatusScheduled {
			return model.Appointment{}, scheduling.ErrSlotUnavailable
		}
	}
	m.seq++
	appt.ID = fmt.Sprintf("appt-%d", m.seq)
	m.byID[appt.ID] = appt
	return appt, nil
}

func (m *memAppointments) GetByID(_ context.Context, id string) (model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	appt, ok := m.byID[id]
	if !ok {
		return model.Appointment{}, scheduling.ErrNotFound
	}
	return appt, nil
}

func (m *memAppointments) Update(_ context.Context, appt model.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byID[appt.ID]; !ok {
		return scheduling.ErrNotFound
	}
	m.byID[appt.ID] = appt
	return nil
}

func (m *memAppointments) FindByPatient(_ context.Context, patientID string) ([]model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Appointment
	for _, appt := range m.byID {
		if appt.PatientID == patientID {
			out = append(out, appt)
		}
	}
	return out, nil
}

func (m *memAppointments) FindByCaregiver(_ context.Context, caregiverID string) ([]model.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Appointment
	for _, appt := range m.byID {
		if appt.CaregiverID == caregiverID {
			out = append(out, appt)
		}
	}
	return out, nil
}

type memAvailability struct {
	mu   sync.Mutex
	seq  int
	recs map[string]*model.Availability
}

func newMemAvailability() *memAvailability {
	return &memAvailability{recs: map[string]*model.Availability{}}
}

func (m *memAvailability) Create(_ context.Context, rec model.Availability) (model.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	rec.ID = fmt.Sprintf("avail-%d", m.seq)
	stored := rec
	stored.Slots = append([]time.Time(nil), rec.Slots...)
	m.recs[rec.ID] = &stored
	return rec, nil
}

func (m *memAvailability) FindByCaregiver(_ context.Context, caregiverID string) ([]model.Availability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Availability
	for _, rec := range m.recs {
		if rec.CaregiverID == caregiverID {
			cp := *rec
			cp.Slots = append([]time.Time(nil), rec.Slots...)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (m *memAvailability) RemoveSlot(_ context.Context, recordID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[recordID]
	if !ok {
		return false, nil
	}
	for i, s := range rec.Slots {
		if s.Equal(at) {
			rec.Slots = append(rec.Slots[:i], rec.Slots[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memAvailability) AddSlot(_ context.Context, recordID string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[recordID]
	if !ok {
		return false, nil
	}
	for _, s := range rec.Slots {
		if s.Equal(at) {
			return false, nil
		}
	}
	rec.Slots = append(rec.Slots, at)
	return true, nil
}

func (m *memAvailability) OpenSlots(_ context.Context, after time.Time) ([]scheduling.OpenSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []scheduling.OpenSlot
	for _, rec := range m.recs {
		for _, s := range rec.Slots {
			if s.After(after) {
				out = append(out, scheduling.OpenSlot{CaregiverID: rec.CaregiverID, At: s})
			}
		}
	}
	return out, nil
}

type memUsers struct {
	byID map[string]model.User
}

func (m *memUsers) GetByID(_ context.Context, id string) (model.User, error) {
	user, ok := m.byID[id]
	if !ok {
		return model.User{}, scheduling.ErrNotFound
	}
	return user, nil
}

type memFeedback struct {
	mu      sync.Mutex
	seq     int
	created []model.Feedback
}

func (m *memFeedback) Create(_ context.Context, fb model.Feedback) (model.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	fb.ID = fmt.Sprintf("fb-%d", m.seq)
	m.created = append(m.created, fb)
	return fb, nil
}

func signTestToken(t *testing.T, userID, role string) string {
	t.Helper()
	now := time.Now()
	token, err := auth.SignHS256(auth.Claims{
		Sub:  userID,
		Role: role,
		Iat:  now.Unix(),
		Exp:  now.Add(time.Hour).Unix(),
	}, testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func doAuthed(t *testing.T, h http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rw := httptest.NewRecorder()
	RequireAuth(testSecret)(h).ServeHTTP(rw, req)
	return rw
}
