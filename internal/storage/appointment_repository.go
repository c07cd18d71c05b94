package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/healthcare-ab/careapi/internal/model"
	"github.com/healthcare-ab/careapi/internal/outbox"
	"github.com/healthcare-ab/careapi/internal/scheduling"
	"github.com/healthcare-ab/careapi/libs/db"
)

const pgUniqueViolation = "23505"

// AppointmentRepository persists appointments and writes the matching domain
// event to the outbox in the same transaction. Exclusivity comes from the
// partial unique index on (caregiver_id, start_at) WHERE status='scheduled'.
type AppointmentRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewAppointmentRepository(pool *db.Pool, ob *outbox.Repository) *AppointmentRepository {
	return &AppointmentRepository{pool: pool, outbox: ob}
}

type appointmentEvent struct {
	AppointmentID string    `json:"appointment_id"`
	PatientID     string    `json:"patient_id"`
	CaregiverID   string    `json:"caregiver_id"`
	StartAt       time.Time `json:"start_at"`
	Status        string    `json:"status"`
}

func (r *AppointmentRepository) Create(ctx context.Context, appt model.Appointment) (model.Appointment, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Appointment{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO appointments (patient_id, caregiver_id, start_at, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, appt.PatientID, appt.CaregiverID, appt.StartAt, appt.Status).Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return model.Appointment{}, scheduling.ErrSlotUnavailable
		}
		return model.Appointment{}, err
	}

	if err := r.insertEvent(ctx, tx, outbox.EventAppointmentBooked, appt); err != nil {
		return model.Appointment{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id string) (model.Appointment, error) {
	var appt model.Appointment
	err := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, caregiver_id, start_at, status, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`, id).Scan(&appt.ID, &appt.PatientID, &appt.CaregiverID, &appt.StartAt, &appt.Status, &appt.CreatedAt, &appt.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Appointment{}, scheduling.ErrNotFound
	}
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepository) Update(ctx context.Context, appt model.Appointment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = $2,
			updated_at = now()
		WHERE id = $1
	`, appt.ID, appt.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return scheduling.ErrNotFound
	}

	if appt.Status == model.StatusCancelled {
		if err := r.insertEvent(ctx, tx, outbox.EventAppointmentCancelled, appt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *AppointmentRepository) FindByPatient(ctx context.Context, patientID string) ([]model.Appointment, error) {
	return r.list(ctx, `
		SELECT id, patient_id, caregiver_id, start_at, status, created_at, updated_at
		FROM appointments
		WHERE patient_id = $1
		ORDER BY start_at ASC
	`, patientID)
}

func (r *AppointmentRepository) FindByCaregiver(ctx context.Context, caregiverID string) ([]model.Appointment, error) {
	return r.list(ctx, `
		SELECT id, patient_id, caregiver_id, start_at, status, created_at, updated_at
		FROM appointments
		WHERE caregiver_id = $1
		ORDER BY start_at ASC
	`, caregiverID)
}

func (r *AppointmentRepository) list(ctx context.Context, query, arg string) ([]model.Appointment, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		var appt model.Appointment
		if err := rows.Scan(&appt.ID, &appt.PatientID, &appt.CaregiverID, &appt.StartAt, &appt.Status, &appt.CreatedAt, &appt.UpdatedAt); err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func (r *AppointmentRepository) insertEvent(ctx context.Context, tx pgx.Tx, eventType string, appt model.Appointment) error {
	payload, err := json.Marshal(appointmentEvent{
		AppointmentID: appt.ID,
		PatientID:     appt.PatientID,
		CaregiverID:   appt.CaregiverID,
		StartAt:       appt.StartAt,
		Status:        string(appt.Status),
	})
	if err != nil {
		return err
	}
	return r.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       payload,
	})
}
