package model

import "time"

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusNoShow    AppointmentStatus = "no-show"
)

// ValidStatus reports whether s is one of the known appointment statuses.
func ValidStatus(s AppointmentStatus) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

// Terminal reports whether an appointment in status s can no longer be cancelled.
func Terminal(s AppointmentStatus) bool {
	return s == StatusCompleted || s == StatusCancelled
}

type Appointment struct {
	ID              int64
	DoctorID        int64
	UserID          int64
	PetID           int64
	StartDatetime   time.Time
	EndDatetime     time.Time
	AppointmentType string
	// Duration in minutes; redundant with EndDatetime-StartDatetime but stored
	// for display, mirroring the appointments table.
	Duration  int
	Notes     string
	Status    AppointmentStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
