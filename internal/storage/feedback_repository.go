package storage

import (
	"context"

	"github.com/healthcare-ab/careapi/internal/model"
	"github.com/healthcare-ab/careapi/libs/db"
)

type FeedbackRepository struct {
	pool *db.Pool
}

func NewFeedbackRepository(pool *db.Pool) *FeedbackRepository {
	return &FeedbackRepository{pool: pool}
}

func (r *FeedbackRepository) Create(ctx context.Context, fb model.Feedback) (model.Feedback, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO feedback (appointment_id, patient_id, comment)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, fb.AppointmentID, fb.PatientID, fb.Comment).Scan(&fb.ID, &fb.CreatedAt)
	if err != nil {
		return model.Feedback{}, err
	}
	return fb, nil
}

func (r *FeedbackRepository) FindByAppointment(ctx context.Context, appointmentID string) ([]model.Feedback, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, patient_id, comment, created_at
		FROM feedback
		WHERE appointment_id = $1
		ORDER BY created_at ASC
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Feedback
	for rows.Next() {
		var fb model.Feedback
		if err := rows.Scan(&fb.ID, &fb.AppointmentID, &fb.PatientID, &fb.Comment, &fb.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, fb)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return list, nil
}
