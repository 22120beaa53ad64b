package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	otelx "github.com/pawdesk/pawdesk/libs/otel"
	"github.com/pawdesk/pawdesk/services/clinic-service/internal/model"
	"github.com/pawdesk/pawdesk/services/clinic-service/internal/schedule"
)

// Tx wraps a pgx transaction with the queries the booking flow needs. It
// satisfies the booking package's Tx interface.
type Tx struct {
	tx pgx.Tx
}

// LockDoctor takes a transaction-scoped advisory lock on the doctor. Every
// writer for a doctor funnels through this lock, so the conflict check that
// follows sees all committed bookings and no concurrent tx can interleave.
// The lock releases automatically at commit or rollback.
func (t *Tx) LockDoctor(ctx context.Context, doctorID int64) error {
	_, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, doctorID)
	return err
}

func (t *Tx) GetDoctor(ctx context.Context, id int64) (model.Doctor, error) {
	var d model.Doctor
	err := t.tx.QueryRow(ctx, `
		SELECT id, user_id, name, specialization, working_hours, created_at
		FROM doctors
		WHERE id = $1
	`, id).Scan(&d.ID, &d.UserID, &d.Name, &d.Specialization, &d.WorkingHours, &d.CreatedAt)
	if err != nil {
		return model.Doctor{}, err
	}
	return d, nil
}

func (t *Tx) PetOwnedBy(ctx context.Context, petID, userID int64) (bool, error) {
	var owned bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM pets WHERE id = $1 AND owner_id = $2)
	`, petID, userID).Scan(&owned)
	return owned, err
}

func (t *Tx) GetAppointment(ctx context.Context, id int64) (model.Appointment, error) {
	return t.getAppointment(ctx, id, false)
}

// GetAppointmentForUpdate re-reads the row with FOR UPDATE. Callers take the
// doctor advisory lock first so lock acquisition order is uniform.
func (t *Tx) GetAppointmentForUpdate(ctx context.Context, id int64) (model.Appointment, error) {
	return t.getAppointment(ctx, id, true)
}

func (t *Tx) getAppointment(ctx context.Context, id int64, forUpdate bool) (model.Appointment, error) {
	q := `
		SELECT id, doctor_id, user_id, pet_id, start_datetime, end_datetime,
			appointment_type, duration, COALESCE(notes, ''), status, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	var a model.Appointment
	err := t.tx.QueryRow(ctx, q, id).Scan(
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
	)
	if err != nil {
		return model.Appointment{}, err
	}
	return a, nil
}

// ListConflicts returns the intervals of the doctor's non-cancelled
// appointments overlapping [from, to). excludeID > 0 skips that appointment,
// which lets a reschedule ignore its own current slot.
func (t *Tx) ListConflicts(ctx context.Context, doctorID int64, from, to time.Time, excludeID int64) ([]schedule.Interval, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT start_datetime, end_datetime
		FROM appointments
		WHERE doctor_id = $1
			AND status <> 'cancelled'
			AND start_datetime < $3
			AND end_datetime > $2
			AND ($4 = 0 OR id <> $4)
		ORDER BY start_datetime ASC
	`, doctorID, from, to, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIntervals(rows)
}

// ListZones returns the doctor's restricted zones overlapping [from, to).
func (t *Tx) ListZones(ctx context.Context, doctorID int64, from, to time.Time) ([]schedule.Interval, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT start_datetime, end_datetime
		FROM restricted_zones
		WHERE doctor_id = $1
			AND start_datetime < $3
			AND end_datetime > $2
		ORDER BY start_datetime ASC
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanIntervals(rows)
}

func (t *Tx) InsertAppointment(ctx context.Context, a *model.Appointment) error {
	return t.tx.QueryRow(ctx, `
		INSERT INTO appointments
			(doctor_id, user_id, pet_id, start_datetime, end_datetime, appointment_type, duration, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, a.DoctorID, a.UserID, a.PetID, a.StartDatetime, a.EndDatetime,
		a.AppointmentType, a.Duration, a.Notes, a.Status).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (t *Tx) UpdateAppointment(ctx context.Context, a *model.Appointment) error {
	return t.tx.QueryRow(ctx, `
		UPDATE appointments
		SET doctor_id = $2,
			start_datetime = $3,
			end_datetime = $4,
			appointment_type = $5,
			duration = $6,
			notes = $7,
			status = $8,
			updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, a.ID, a.DoctorID, a.StartDatetime, a.EndDatetime,
		a.AppointmentType, a.Duration, a.Notes, a.Status).Scan(&a.UpdatedAt)
}

// AppendEvent writes a domain event to the outbox table in the same
// transaction as the state change that caused it. The relay publishes it to
// Kafka after commit.
func (t *Tx) AppendEvent(ctx context.Context, eventType, aggregateID string, payload []byte) error {
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	_, err := t.tx.Exec(ctx, `
		INSERT INTO outbox_events (event_id, aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate)
		VALUES ($1, 'appointment', $2, $3, $4, $5, $6)
	`, uuid.NewString(), aggregateID, eventType, payload, traceparent, tracestate)
	return err
}

func scanIntervals(rows pgx.Rows) ([]schedule.Interval, error) {
	var out []schedule.Interval
	for rows.Next() {
		var iv schedule.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
