package model

import "time"

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "scheduled"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Appointment is a confirmed booking of one caregiver slot by one patient.
// Appointments are never deleted; cancellation is a status change.
type Appointment struct {
	ID          string
	PatientID   string
	CaregiverID string
	StartAt     time.Time
	Status      AppointmentStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
