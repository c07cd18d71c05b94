package model

import "time"

// Feedback is a patient comment attached to one of their own appointments.
type Feedback struct {
	ID            string
	AppointmentID string
	PatientID     string
	Comment       string
	CreatedAt     time.Time
}
