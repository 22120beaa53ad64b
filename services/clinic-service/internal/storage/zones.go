package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/pawdesk/pawdesk/services/clinic-service/internal/model"
)

func (s *Store) CreateZone(ctx context.Context, z *model.RestrictedZone) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO restricted_zones (doctor_id, start_datetime, end_datetime, reason)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, z.DoctorID, z.StartDatetime, z.EndDatetime, z.Reason).Scan(&z.ID, &z.CreatedAt)
}

func (s *Store) ListZonesForDoctor(ctx context.Context, doctorID int64) ([]model.RestrictedZone, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, doctor_id, start_datetime, end_datetime, COALESCE(reason, ''), created_at
		FROM restricted_zones
		WHERE doctor_id = $1
		ORDER BY start_datetime ASC
	`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []model.RestrictedZone
	for rows.Next() {
		var z model.RestrictedZone
		if err := rows.Scan(&z.ID, &z.DoctorID, &z.StartDatetime, &z.EndDatetime, &z.Reason, &z.CreatedAt); err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return zones, nil
}

// DeleteZone removes a zone only if it belongs to the doctor, so one doctor
// cannot delete another's zones by guessing ids.
func (s *Store) DeleteZone(ctx context.Context, doctorID, zoneID int64) error {
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM restricted_zones
		WHERE id = $1 AND doctor_id = $2
	`, zoneID, doctorID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
