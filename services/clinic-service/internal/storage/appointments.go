package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pawdesk/pawdesk/services/clinic-service/internal/model"
	"github.com/pawdesk/pawdesk/services/clinic-service/internal/schedule"
)

const appointmentColumns = `id, doctor_id, user_id, pet_id, start_datetime, end_datetime,
	appointment_type, duration, COALESCE(notes, ''), status, created_at, updated_at`

// ListFilter narrows ListForUser. Zero values mean "no constraint".
type ListFilter struct {
	Status          model.AppointmentStatus
	DoctorID        int64
	PetID           int64
	AppointmentType string
	From            time.Time
	To              time.Time
	Limit           int
	Offset          int
}

// ListForUser returns the user's appointments matching the filter, soonest
// first. Filters compose with AND.
func (s *Store) ListForUser(ctx context.Context, userID int64, f ListFilter) ([]model.Appointment, error) {
	conds := []string{"user_id = $1"}
	args := []any{userID}

	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.DoctorID > 0 {
		args = append(args, f.DoctorID)
		conds = append(conds, fmt.Sprintf("doctor_id = $%d", len(args)))
	}
	if f.PetID > 0 {
		args = append(args, f.PetID)
		conds = append(conds, fmt.Sprintf("pet_id = $%d", len(args)))
	}
	if f.AppointmentType != "" {
		args = append(args, f.AppointmentType)
		conds = append(conds, fmt.Sprintf("appointment_type = $%d", len(args)))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		conds = append(conds, fmt.Sprintf("start_datetime >= $%d", len(args)))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		conds = append(conds, fmt.Sprintf("start_datetime < $%d", len(args)))
	}

	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)
	limitArg := len(args)
	args = append(args, f.Offset)
	offsetArg := len(args)

	q := fmt.Sprintf(`
		SELECT %s
		FROM appointments
		WHERE %s
		ORDER BY start_datetime ASC
		LIMIT $%d OFFSET $%d
	`, appointmentColumns, strings.Join(conds, " AND "), limitArg, offsetArg)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := rows.Scan(
			&a.ID,
			&a.DoctorID,
			&a.UserID,
			&a.PetID,
			&a.StartDatetime,
			&a.EndDatetime,
			&a.AppointmentType,
			&a.Duration,
			&a.Notes,
			&a.Status,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		appts = append(appts, a)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

// ListConflictIntervals fetches, in one query, every non-cancelled
// appointment interval overlapping [from, to) for the given doctors, grouped
// by doctor. Calendar and multi-doctor availability use this to avoid a
// query per doctor per day.
func (s *Store) ListConflictIntervals(ctx context.Context, doctorIDs []int64, from, to time.Time) (map[int64][]schedule.Interval, error) {
	if len(doctorIDs) == 0 {
		return map[int64][]schedule.Interval{}, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT doctor_id, start_datetime, end_datetime
		FROM appointments
		WHERE doctor_id = ANY($1)
			AND status <> 'cancelled'
			AND start_datetime < $3
			AND end_datetime > $2
		ORDER BY doctor_id, start_datetime ASC
	`, doctorIDs, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGroupedIntervals(rows)
}

// ListZoneIntervals is the restricted-zone counterpart of
// ListConflictIntervals.
func (s *Store) ListZoneIntervals(ctx context.Context, doctorIDs []int64, from, to time.Time) (map[int64][]schedule.Interval, error) {
	if len(doctorIDs) == 0 {
		return map[int64][]schedule.Interval{}, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT doctor_id, start_datetime, end_datetime
		FROM restricted_zones
		WHERE doctor_id = ANY($1)
			AND start_datetime < $3
			AND end_datetime > $2
		ORDER BY doctor_id, start_datetime ASC
	`, doctorIDs, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanGroupedIntervals(rows)
}

func scanGroupedIntervals(rows pgx.Rows) (map[int64][]schedule.Interval, error) {
	out := make(map[int64][]schedule.Interval)
	for rows.Next() {
		var doctorID int64
		var iv schedule.Interval
		if err := rows.Scan(&doctorID, &iv.Start, &iv.End); err != nil {
			return nil, err
		}
		out[doctorID] = append(out[doctorID], iv)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
