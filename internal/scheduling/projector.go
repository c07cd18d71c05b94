package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/healthcare-ab/careapi/internal/model"
)

// AppointmentView is the caller-facing shape of an appointment. DisplayName
// holds the counterpart's name: the caregiver's on patient views, the
// patient's on the caregiver view.
type AppointmentView struct {
	AppointmentID string
	CaregiverID   string
	DisplayName   string
	StartAt       time.Time
	Status        model.AppointmentStatus
}

// Projector turns stored appointments into upcoming/history views with
// display status and counterpart names. It only reads.
type Projector struct {
	appointments AppointmentStore
	users        UserDirectory
	logger       *slog.Logger
	now          func() time.Time
}

func NewProjector(appointments AppointmentStore, users UserDirectory, logger *slog.Logger, now func() time.Time) *Projector {
	if now == nil {
		now = time.Now
	}
	return &Projector{
		appointments: appointments,
		users:        users,
		logger:       logger,
		now:          now,
	}
}

// ListUpcoming returns the patient's appointments strictly after now, with
// the caregiver's display name attached and the stored status untouched.
func (p *Projector) ListUpcoming(ctx context.Context, patientID string) ([]AppointmentView, error) {
	appts, err := p.appointments.FindByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	now := p.now()
	names := nameCache{}
	views := make([]AppointmentView, 0, len(appts))
	for _, appt := range appts {
		if !appt.StartAt.After(now) {
			continue
		}
		name, err := names.resolve(ctx, p.users, appt.CaregiverID)
		if err != nil {
			return nil, err
		}
		views = append(views, AppointmentView{
			AppointmentID: appt.ID,
			CaregiverID:   appt.CaregiverID,
			DisplayName:   name,
			StartAt:       appt.StartAt,
			Status:        appt.Status,
		})
	}
	return views, nil
}

// ListHistory returns the patient's appointments at or before now with the
// derived display status. The derivation is read-time only.
func (p *Projector) ListHistory(ctx context.Context, patientID string) ([]AppointmentView, error) {
	appts, err := p.appointments.FindByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	now := p.now()
	names := nameCache{}
	views := make([]AppointmentView, 0, len(appts))
	for _, appt := range appts {
		if appt.StartAt.After(now) {
			continue
		}
		name, err := names.resolve(ctx, p.users, appt.CaregiverID)
		if err != nil {
			return nil, err
		}
		views = append(views, AppointmentView{
			AppointmentID: appt.ID,
			CaregiverID:   appt.CaregiverID,
			DisplayName:   name,
			StartAt:       appt.StartAt,
			Status:        DeriveDisplayStatus(appt.Status, appt.StartAt, now),
		})
	}
	return views, nil
}

// ListForCaregiver returns the caregiver's future appointments with the
// patient's display name attached.
func (p *Projector) ListForCaregiver(ctx context.Context, caregiverID string) ([]AppointmentView, error) {
	appts, err := p.appointments.FindByCaregiver(ctx, caregiverID)
	if err != nil {
		return nil, fmt.Errorf("load appointments: %w", err)
	}

	now := p.now()
	names := nameCache{}
	views := make([]AppointmentView, 0, len(appts))
	for _, appt := range appts {
		if !appt.StartAt.After(now) {
			continue
		}
		name, err := names.resolve(ctx, p.users, appt.PatientID)
		if err != nil {
			return nil, err
		}
		views = append(views, AppointmentView{
			AppointmentID: appt.ID,
			CaregiverID:   appt.CaregiverID,
			DisplayName:   name,
			StartAt:       appt.StartAt,
			Status:        appt.Status,
		})
	}
	return views, nil
}

// nameCache memoizes directory lookups within a single projection. A user
// id that does not resolve yields an empty name, not a dropped row.
type nameCache map[string]string

func (c nameCache) resolve(ctx context.Context, users UserDirectory, userID string) (string, error) {
	if name, ok := c[userID]; ok {
		return name, nil
	}
	user, err := users.GetByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		c[userID] = ""
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve user %s: %w", userID, err)
	}
	c[userID] = user.DisplayName()
	return c[userID], nil
}
