package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pawdesk/pawdesk/services/clinic-service/internal/model"
)

func (s *Store) GetDoctor(ctx context.Context, id int64) (model.Doctor, error) {
	var d model.Doctor
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, name, specialization, working_hours, created_at
		FROM doctors
		WHERE id = $1
	`, id).Scan(&d.ID, &d.UserID, &d.Name, &d.Specialization, &d.WorkingHours, &d.CreatedAt)
	if err != nil {
		return model.Doctor{}, err
	}
	return d, nil
}

// ListDoctors returns all doctors, including ones without working hours;
// the availability layer treats those as never bookable.
func (s *Store) ListDoctors(ctx context.Context) ([]model.Doctor, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, name, specialization, working_hours, created_at
		FROM doctors
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var doctors []model.Doctor
	for rows.Next() {
		var d model.Doctor
		if err := rows.Scan(&d.ID, &d.UserID, &d.Name, &d.Specialization, &d.WorkingHours, &d.CreatedAt); err != nil {
			return nil, err
		}
		doctors = append(doctors, d)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return doctors, nil
}

// DoctorIDForUser maps an authenticated user to their doctor row. Used by
// the doctor-facing admin endpoints, where the token carries the user id.
func (s *Store) DoctorIDForUser(ctx context.Context, userID int64) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		SELECT id FROM doctors WHERE user_id = $1
	`, userID).Scan(&id)
	return id, err
}

func (s *Store) UpdateWorkingHours(ctx context.Context, doctorID int64, workingHours string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE doctors
		SET working_hours = $2
		WHERE id = $1
	`, doctorID, workingHours)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
