package storage

import (
	"context"
	"time"

	"github.com/healthcare-ab/careapi/internal/model"
	"github.com/healthcare-ab/careapi/internal/scheduling"
	"github.com/healthcare-ab/careapi/libs/db"
)

// AvailabilityRepository stores open slots as child rows of an availability
// record so that claiming a slot is a single conditional DELETE.
type AvailabilityRepository struct {
	pool *db.Pool
}

func NewAvailabilityRepository(pool *db.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{pool: pool}
}

func (r *AvailabilityRepository) Create(ctx context.Context, rec model.Availability) (model.Availability, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Availability{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO availability (caregiver_id)
		VALUES ($1)
		RETURNING id, created_at
	`, rec.CaregiverID).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return model.Availability{}, err
	}

	for _, at := range rec.Slots {
		_, err := tx.Exec(ctx, `
			INSERT INTO availability_slots (availability_id, slot_at)
			VALUES ($1, $2)
			ON CONFLICT (availability_id, slot_at) DO NOTHING
		`, rec.ID, at)
		if err != nil {
			return model.Availability{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Availability{}, err
	}
	return rec, nil
}

func (r *AvailabilityRepository) FindByCaregiver(ctx context.Context, caregiverID string) ([]model.Availability, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.caregiver_id, a.created_at, s.slot_at
		FROM availability a
		LEFT JOIN availability_slots s ON s.availability_id = a.id
		WHERE a.caregiver_id = $1
		ORDER BY a.id, s.slot_at
	`, caregiverID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recs []model.Availability
	for rows.Next() {
		var (
			id        string
			caregiver string
			createdAt time.Time
			slotAt    *time.Time
		)
		if err := rows.Scan(&id, &caregiver, &createdAt, &slotAt); err != nil {
			return nil, err
		}
		if len(recs) == 0 || recs[len(recs)-1].ID != id {
			recs = append(recs, model.Availability{ID: id, CaregiverID: caregiver, CreatedAt: createdAt})
		}
		if slotAt != nil {
			last := &recs[len(recs)-1]
			last.Slots = append(last.Slots, *slotAt)
		}
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return recs, nil
}

func (r *AvailabilityRepository) RemoveSlot(ctx context.Context, recordID string, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability_slots
		WHERE availability_id = $1 AND slot_at = $2
	`, recordID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *AvailabilityRepository) AddSlot(ctx context.Context, recordID string, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO availability_slots (availability_id, slot_at)
		VALUES ($1, $2)
		ON CONFLICT (availability_id, slot_at) DO NOTHING
	`, recordID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *AvailabilityRepository) OpenSlots(ctx context.Context, after time.Time) ([]scheduling.OpenSlot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.caregiver_id, s.slot_at
		FROM availability_slots s
		JOIN availability a ON a.id = s.availability_id
		WHERE s.slot_at > $1
		ORDER BY s.slot_at, a.caregiver_id
	`, after)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var slots []scheduling.OpenSlot
	for rows.Next() {
		var slot scheduling.OpenSlot
		if err := rows.Scan(&slot.CaregiverID, &slot.At); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return slots, nil
}
