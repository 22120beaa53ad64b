package model

import "time"

// Doctor as stored in the doctors table. WorkingHours is the legacy
// "HH:MM-HH:MM" single daily range; nil or malformed means the doctor is not
// bookable on any date.
type Doctor struct {
	ID             int64
	UserID         int64
	Name           string
	Specialization string
	WorkingHours   *string
	CreatedAt      time.Time
}

// RestrictedZone is a doctor-declared blocking interval (vacation, meeting).
// Any time overlapping a zone is unavailable regardless of appointment state.
type RestrictedZone struct {
	ID            int64
	DoctorID      int64
	StartDatetime time.Time
	EndDatetime   time.Time
	Reason        string
	CreatedAt     time.Time
}
