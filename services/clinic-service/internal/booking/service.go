// Package booking owns appointment writes. Every mutation runs inside one
// database transaction that takes the doctor's advisory lock, re-checks
// conflicts against committed state, writes the row and appends the outbox
// event, so two clients racing for a slot can never both win.
package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pawdesk/pawdesk/services/clinic-service/internal/model"
	"github.com/pawdesk/pawdesk/services/clinic-service/internal/schedule"
	"github.com/pawdesk/pawdesk/services/clinic-service/internal/storage"
)

// Kafka topics for appointment lifecycle events; the topic name equals the
// event type.
const (
	EventAppointmentBooked      = "clinic.appointment.booked.v1"
	EventAppointmentRescheduled = "clinic.appointment.rescheduled.v1"
	EventAppointmentCancelled   = "clinic.appointment.cancelled.v1"
)

const (
	MinDurationMinutes     = 15
	MaxDurationMinutes     = 120
	DefaultDurationMinutes = 20
)

// Tx is the slice of the storage transaction the booking flow needs. The
// Postgres implementation lives in internal/storage; tests substitute an
// in-memory fake with the same locking discipline.
type Tx interface {
	LockDoctor(ctx context.Context, doctorID int64) error
	GetDoctor(ctx context.Context, id int64) (model.Doctor, error)
	PetOwnedBy(ctx context.Context, petID, userID int64) (bool, error)
	GetAppointment(ctx context.Context, id int64) (model.Appointment, error)
	GetAppointmentForUpdate(ctx context.Context, id int64) (model.Appointment, error)
	ListConflicts(ctx context.Context, doctorID int64, from, to time.Time, excludeID int64) ([]schedule.Interval, error)
	ListZones(ctx context.Context, doctorID int64, from, to time.Time) ([]schedule.Interval, error)
	InsertAppointment(ctx context.Context, a *model.Appointment) error
	UpdateAppointment(ctx context.Context, a *model.Appointment) error
	AppendEvent(ctx context.Context, eventType, aggregateID string, payload []byte) error
}

// ListFilter narrows ListForUser; zero values mean no constraint.
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

type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
	ListForUser(ctx context.Context, userID int64, f ListFilter) ([]model.Appointment, error)
}

type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

type BookRequest struct {
	UserID          int64
	DoctorID        int64
	PetID           int64
	Start           time.Time
	DurationMinutes int
	AppointmentType string
	Notes           string
}

// Book creates a pending appointment. Checks run in a fixed order so callers
// get stable errors: ownership, doctor working hours, then slot conflicts
// under the doctor lock.
func (s *Service) Book(ctx context.Context, req BookRequest) (model.Appointment, error) {
	duration := req.DurationMinutes
	if duration == 0 {
		duration = DefaultDurationMinutes
	}
	if err := validateBooking(req.DoctorID, req.PetID, req.AppointmentType, req.Start, duration, s.now()); err != nil {
		return model.Appointment{}, err
	}
	end := req.Start.Add(time.Duration(duration) * time.Minute)

	var appt model.Appointment
	err := s.store.InTx(ctx, func(tx Tx) error {
		owned, err := tx.PetOwnedBy(ctx, req.PetID, req.UserID)
		if err != nil {
			return err
		}
		if !owned {
			return &OwnershipError{Message: "Pet not found or you do not own this pet"}
		}

		doctor, err := tx.GetDoctor(ctx, req.DoctorID)
		if err != nil {
			if isNotFound(err) {
				return &ValidationError{Field: "doctor_id", Message: "Doctor not found"}
			}
			return err
		}
		if !doctorWorksAt(doctor, req.Start) {
			return &AvailabilityError{Message: "Doctor is not working at the selected time"}
		}

		if err := tx.LockDoctor(ctx, req.DoctorID); err != nil {
			return err
		}
		free, err := slotFree(ctx, tx, req.DoctorID, req.Start, end, 0)
		if err != nil {
			return err
		}
		if !free {
			return &SlotConflictError{Message: "The selected time slot is not available"}
		}

		appt = model.Appointment{
			DoctorID:        req.DoctorID,
			UserID:          req.UserID,
			PetID:           req.PetID,
			StartDatetime:   req.Start,
			EndDatetime:     end,
			AppointmentType: req.AppointmentType,
			Duration:        duration,
			Notes:           req.Notes,
			Status:          model.StatusPending,
		}
		if err := tx.InsertAppointment(ctx, &appt); err != nil {
			return err
		}
		return appendAppointmentEvent(ctx, tx, EventAppointmentBooked, appt)
	})
	if err != nil {
		return model.Appointment{}, err
	}

	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"doctor_id", appt.DoctorID,
		"user_id", appt.UserID,
		"start", appt.StartDatetime,
	)
	return appt, nil
}

// UpdateRequest is a patch: nil fields keep their current values.
type UpdateRequest struct {
	UserID          int64
	AppointmentID   int64
	DoctorID        *int64
	Start           *time.Time
	DurationMinutes *int
	AppointmentType *string
	Notes           *string
}

// Update reschedules or edits an appointment. The conflict re-check excludes
// the appointment's own row, so keeping the same time while changing notes
// never conflicts with itself.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (model.Appointment, error) {
	var appt model.Appointment
	err := s.store.InTx(ctx, func(tx Tx) error {
		current, err := tx.GetAppointment(ctx, req.AppointmentID)
		if err != nil {
			if isNotFound(err) {
				return ErrAppointmentNotFound
			}
			return err
		}
		if current.UserID != req.UserID {
			return &OwnershipError{Message: "You do not own this appointment"}
		}

		// The first read only picks the doctor whose lock serializes this
		// write; the patch itself is applied to the row re-read under it.
		lockedDoctor := current.DoctorID
		if req.DoctorID != nil {
			lockedDoctor = *req.DoctorID
		}
		// Doctor lock first, then the row lock; every writer uses this order.
		if err := tx.LockDoctor(ctx, lockedDoctor); err != nil {
			return err
		}
		current, err = tx.GetAppointmentForUpdate(ctx, req.AppointmentID)
		if err != nil {
			if isNotFound(err) {
				return ErrAppointmentNotFound
			}
			return err
		}
		if model.Terminal(current.Status) || current.Status == model.StatusNoShow {
			return &InvalidStateError{Message: fmt.Sprintf("Appointment is already %s", current.Status)}
		}

		target := applyPatch(current, req)
		if err := validateBooking(target.DoctorID, target.PetID, target.AppointmentType, target.StartDatetime, target.Duration, s.now()); err != nil {
			return err
		}
		target.EndDatetime = target.StartDatetime.Add(time.Duration(target.Duration) * time.Minute)
		if target.DoctorID != lockedDoctor {
			// a concurrent update moved the appointment to another doctor
			if err := tx.LockDoctor(ctx, target.DoctorID); err != nil {
				return err
			}
		}

		doctor, err := tx.GetDoctor(ctx, target.DoctorID)
		if err != nil {
			if isNotFound(err) {
				return &ValidationError{Field: "doctor_id", Message: "Doctor not found"}
			}
			return err
		}
		if !doctorWorksAt(doctor, target.StartDatetime) {
			return &AvailabilityError{Message: "Doctor is not working at the selected time"}
		}

		free, err := slotFree(ctx, tx, target.DoctorID, target.StartDatetime, target.EndDatetime, current.ID)
		if err != nil {
			return err
		}
		if !free {
			return &SlotConflictError{Message: "The selected time slot is not available"}
		}

		rescheduled := target.DoctorID != current.DoctorID ||
			!target.StartDatetime.Equal(current.StartDatetime) ||
			!target.EndDatetime.Equal(current.EndDatetime)

		target.Status = current.Status
		if err := tx.UpdateAppointment(ctx, &target); err != nil {
			return err
		}
		appt = target
		// Editing notes or the visit type is not a reschedule; only time or
		// doctor changes notify the owner.
		if !rescheduled {
			return nil
		}
		return appendAppointmentEvent(ctx, tx, EventAppointmentRescheduled, appt)
	})
	if err != nil {
		return model.Appointment{}, err
	}

	s.logger.Info("appointment updated",
		"appointment_id", appt.ID,
		"doctor_id", appt.DoctorID,
		"user_id", appt.UserID,
		"start", appt.StartDatetime,
	)
	return appt, nil
}

// Cancel marks an appointment cancelled. Past appointments cannot be
// cancelled, and the past check runs before the status check so a past
// completed appointment reports the timing problem.
func (s *Service) Cancel(ctx context.Context, userID, appointmentID int64) (model.Appointment, error) {
	var appt model.Appointment
	err := s.store.InTx(ctx, func(tx Tx) error {
		current, err := tx.GetAppointmentForUpdate(ctx, appointmentID)
		if err != nil {
			if isNotFound(err) {
				return ErrAppointmentNotFound
			}
			return err
		}
		if current.UserID != userID {
			return &OwnershipError{Message: "You do not own this appointment"}
		}
		if current.StartDatetime.Before(s.now()) {
			return &InvalidStateError{Message: "Cannot cancel past appointments"}
		}
		if model.Terminal(current.Status) {
			return &InvalidStateError{Message: fmt.Sprintf("Appointment is already %s", current.Status)}
		}

		current.Status = model.StatusCancelled
		if err := tx.UpdateAppointment(ctx, &current); err != nil {
			return err
		}
		appt = current
		return appendAppointmentEvent(ctx, tx, EventAppointmentCancelled, appt)
	})
	if err != nil {
		return model.Appointment{}, err
	}

	s.logger.Info("appointment cancelled",
		"appointment_id", appt.ID,
		"user_id", appt.UserID,
	)
	return appt, nil
}

// ListForUser returns the caller's own appointments.
func (s *Service) ListForUser(ctx context.Context, userID int64, f ListFilter) ([]model.Appointment, error) {
	if f.Status != "" && !model.ValidStatus(f.Status) {
		return nil, &ValidationError{Field: "status", Message: "Unknown status"}
	}
	return s.store.ListForUser(ctx, userID, f)
}

func validateBooking(doctorID, petID int64, apptType string, start time.Time, durationMinutes int, now time.Time) error {
	if doctorID <= 0 {
		return &ValidationError{Field: "doctor_id", Message: "Required"}
	}
	if petID <= 0 {
		return &ValidationError{Field: "pet_id", Message: "Required"}
	}
	if apptType == "" {
		return &ValidationError{Field: "appointment_type", Message: "Required"}
	}
	if start.IsZero() {
		return &ValidationError{Field: "start_datetime", Message: "Required"}
	}
	if start.Before(now) {
		return &ValidationError{Field: "start_datetime", Message: "Must be in the future"}
	}
	if durationMinutes < MinDurationMinutes || durationMinutes > MaxDurationMinutes {
		return &ValidationError{
			Field:   "duration",
			Message: fmt.Sprintf("Must be between %d and %d minutes", MinDurationMinutes, MaxDurationMinutes),
		}
	}
	return nil
}

func applyPatch(current model.Appointment, req UpdateRequest) model.Appointment {
	target := current
	if req.DoctorID != nil {
		target.DoctorID = *req.DoctorID
	}
	if req.Start != nil {
		target.StartDatetime = *req.Start
	}
	if req.DurationMinutes != nil {
		target.Duration = *req.DurationMinutes
	}
	if req.AppointmentType != nil {
		target.AppointmentType = *req.AppointmentType
	}
	if req.Notes != nil {
		target.Notes = *req.Notes
	}
	return target
}

// doctorWorksAt checks the appointment's start against the doctor's schedule.
// Only the start has to fall inside the working window; a long appointment
// may run past closing time.
func doctorWorksAt(doctor model.Doctor, start time.Time) bool {
	if doctor.WorkingHours == nil {
		return false
	}
	weekly, ok := schedule.WeeklyFromLegacy(*doctor.WorkingHours)
	if !ok {
		return false
	}
	return weekly.WorksAt(start)
}

func isNotFound(err error) bool {
	return storage.IsNotFound(err)
}

func slotFree(ctx context.Context, tx Tx, doctorID int64, start, end time.Time, excludeID int64) (bool, error) {
	conflicts, err := tx.ListConflicts(ctx, doctorID, start, end, excludeID)
	if err != nil {
		return false, err
	}
	if len(conflicts) > 0 {
		return false, nil
	}
	zones, err := tx.ListZones(ctx, doctorID, start, end)
	if err != nil {
		return false, err
	}
	return len(zones) == 0, nil
}

type appointmentEvent struct {
	AppointmentID   int64     `json:"appointment_id"`
	DoctorID        int64     `json:"doctor_id"`
	UserID          int64     `json:"user_id"`
	PetID           int64     `json:"pet_id"`
	StartDatetime   time.Time `json:"start_datetime"`
	EndDatetime     time.Time `json:"end_datetime"`
	AppointmentType string    `json:"appointment_type"`
	Status          string    `json:"status"`
}

func appendAppointmentEvent(ctx context.Context, tx Tx, eventType string, appt model.Appointment) error {
	payload, err := json.Marshal(appointmentEvent{
		AppointmentID:   appt.ID,
		DoctorID:        appt.DoctorID,
		UserID:          appt.UserID,
		PetID:           appt.PetID,
		StartDatetime:   appt.StartDatetime,
		EndDatetime:     appt.EndDatetime,
		AppointmentType: appt.AppointmentType,
		Status:          string(appt.Status),
	})
	if err != nil {
		return err
	}
	return tx.AppendEvent(ctx, eventType, fmt.Sprintf("%d", appt.ID), payload)
}
