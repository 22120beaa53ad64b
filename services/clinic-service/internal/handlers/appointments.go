package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/pawdesk/pawdesk/services/clinic-service/internal/availability"
	"github.com/pawdesk/pawdesk/services/clinic-service/internal/booking"
	"github.com/pawdesk/pawdesk/services/clinic-service/internal/model"
	"github.com/pawdesk/pawdesk/services/clinic-service/internal/storage"
)

const (
	dateLayout     = "2006-01-02"
	datetimeLayout = "2006-01-02 15:04"
)

type ClinicHandler struct {
	svc    *booking.Service
	calc   *availability.Calculator
	store  *storage.Store
	logger *slog.Logger
}

func NewClinicHandler(svc *booking.Service, calc *availability.Calculator, store *storage.Store, logger *slog.Logger) *ClinicHandler {
	return &ClinicHandler{svc: svc, calc: calc, store: store, logger: logger}
}

type appointmentItem struct {
	ID              int64  `json:"id"`
	DoctorID        int64  `json:"doctor_id"`
	PetID           int64  `json:"pet_id"`
	StartDatetime   string `json:"start_datetime"`
	EndDatetime     string `json:"end_datetime"`
	AppointmentType string `json:"appointment_type"`
	Duration        int    `json:"duration"`
	Notes           string `json:"notes,omitempty"`
	Status          string `json:"status"`
	CreatedAt       string `json:"created_at"`
}

func toAppointmentItem(a model.Appointment) appointmentItem {
	return appointmentItem{
		ID:              a.ID,
		DoctorID:        a.DoctorID,
		PetID:           a.PetID,
		StartDatetime:   a.StartDatetime.Format(time.DateTime),
		EndDatetime:     a.EndDatetime.Format(time.DateTime),
		AppointmentType: a.AppointmentType,
		Duration:        a.Duration,
		Notes:           a.Notes,
		Status:          string(a.Status),
		CreatedAt:       a.CreatedAt.Format(time.DateTime),
	}
}

// Calendar serves GET /api/v1/calendar?start_date=&end_date=: per-day
// availability across all doctors, omitting days with nothing free.
func (h *ClinicHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	loc := h.calc.Location()
	now := time.Now().In(loc)

	// default range starts at today's midnight so end_date=today is valid
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if raw := r.URL.Query().Get("start_date"); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, loc)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid start_date")
			return
		}
		from = parsed
	}
	to := from.AddDate(0, 0, 6)
	if raw := r.URL.Query().Get("end_date"); raw != "" {
		parsed, err := time.ParseInLocation(dateLayout, raw, loc)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid end_date")
			return
		}
		to = parsed
	}
	if to.Before(from) {
		respondError(w, http.StatusUnprocessableEntity, "end_date must not be before start_date")
		return
	}
	if to.Sub(from) > 31*24*time.Hour {
		respondError(w, http.StatusUnprocessableEntity, "Date range too large")
		return
	}

	days, err := h.calc.CalendarForDateRange(r.Context(), from, to)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if days == nil {
		days = []availability.DayAvailability{}
	}
	respond(w, http.StatusOK, "Calendar retrieved", days)
}

// AvailableDoctors serves GET /api/v1/available-doctors (also mounted as
// /calendar-by-doctor). With ?date=&time= or ?datetime= it returns the
// doctors free for the slot at that instant; with ?date= alone it returns
// every doctor's free slots for the whole day.
func (h *ClinicHandler) AvailableDoctors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	loc := h.calc.Location()

	var at time.Time
	switch {
	case q.Get("date") != "" && q.Get("time") != "":
		parsed, err := time.ParseInLocation(datetimeLayout, q.Get("date")+" "+q.Get("time"), loc)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid date or time")
			return
		}
		at = parsed
	case q.Get("datetime") != "":
		parsed, err := parseDatetime(q.Get("datetime"), loc)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid datetime")
			return
		}
		at = parsed
	case q.Get("date") != "":
		date, err := time.ParseInLocation(dateLayout, q.Get("date"), loc)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid date")
			return
		}
		doctors, err := h.calc.MultiDoctorSlots(r.Context(), date)
		if err != nil {
			respondServiceError(w, h.logger, err)
			return
		}
		if doctors == nil {
			doctors = []availability.DoctorSlots{}
		}
		respond(w, http.StatusOK, "Available doctors retrieved", doctors)
		return
	default:
		respondError(w, http.StatusBadRequest, "datetime or date is required")
		return
	}

	doctors, err := h.calc.DoctorsAvailableAt(r.Context(), at)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	type doctorItem struct {
		ID             int64  `json:"id"`
		Name           string `json:"name"`
		Specialization string `json:"specialization"`
	}
	items := make([]doctorItem, 0, len(doctors))
	for _, d := range doctors {
		items = append(items, doctorItem{ID: d.ID, Name: d.Name, Specialization: d.Specialization})
	}
	respond(w, http.StatusOK, "Available doctors retrieved", items)
}

// DoctorSlots serves GET /api/v1/doctors/{id}/available-slots?date=.
func (h *ClinicHandler) DoctorSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || doctorID <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid doctor id")
		return
	}
	loc := h.calc.Location()
	date := time.Now().In(loc)
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err = time.ParseInLocation(dateLayout, raw, loc)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid date")
			return
		}
	}

	slots, err := h.calc.SlotsForDoctorOnDate(r.Context(), doctorID, date)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	if slots == nil {
		slots = []availability.Slot{}
	}
	respond(w, http.StatusOK, "Available slots retrieved", slots)
}

type bookRequest struct {
	DoctorID        int64  `json:"doctor_id"`
	PetID           int64  `json:"pet_id"`
	StartDatetime   string `json:"start_datetime"`
	Duration        int    `json:"duration"`
	AppointmentType string `json:"appointment_type"`
	Notes           string `json:"notes"`
}

// Book serves POST /api/v1/appointments.
func (h *ClinicHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid json body")
		return
	}
	start, err := parseDatetime(req.StartDatetime, h.calc.Location())
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid start_datetime")
		return
	}

	appt, err := h.svc.Book(r.Context(), booking.BookRequest{
		UserID:          UserID(r),
		DoctorID:        req.DoctorID,
		PetID:           req.PetID,
		Start:           start,
		DurationMinutes: req.Duration,
		AppointmentType: req.AppointmentType,
		Notes:           req.Notes,
	})
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respond(w, http.StatusCreated, "Appointment created successfully", toAppointmentItem(appt))
}

type updateRequest struct {
	DoctorID        *int64  `json:"doctor_id"`
	StartDatetime   *string `json:"start_datetime"`
	Duration        *int    `json:"duration"`
	AppointmentType *string `json:"appointment_type"`
	Notes           *string `json:"notes"`
}

// Update serves PUT /api/v1/appointments/{id}. Absent fields keep their
// current values.
func (h *ClinicHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid appointment id")
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid json body")
		return
	}

	update := booking.UpdateRequest{
		UserID:          UserID(r),
		AppointmentID:   id,
		DoctorID:        req.DoctorID,
		DurationMinutes: req.Duration,
		AppointmentType: req.AppointmentType,
		Notes:           req.Notes,
	}
	if req.StartDatetime != nil {
		start, err := parseDatetime(*req.StartDatetime, h.calc.Location())
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid start_datetime")
			return
		}
		update.Start = &start
	}

	appt, err := h.svc.Update(r.Context(), update)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respond(w, http.StatusOK, "Appointment updated successfully", toAppointmentItem(appt))
}

// Cancel serves PATCH /api/v1/appointments/{id}/cancel.
func (h *ClinicHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid appointment id")
		return
	}

	appt, err := h.svc.Cancel(r.Context(), UserID(r), id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respond(w, http.StatusOK, "Appointment cancelled successfully", toAppointmentItem(appt))
}

// List serves GET /api/v1/appointments for the authenticated user.
func (h *ClinicHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := booking.ListFilter{
		Status: model.AppointmentStatus(q.Get("status")),
	}
	if raw := q.Get("doctor_id"); raw != "" {
		doctorID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || doctorID <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid doctor_id")
			return
		}
		filter.DoctorID = doctorID
	}
	if raw := q.Get("pet_id"); raw != "" {
		petID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || petID <= 0 {
			respondError(w, http.StatusBadRequest, "Invalid pet_id")
			return
		}
		filter.PetID = petID
	}
	filter.AppointmentType = q.Get("appointment_type")
	loc := h.calc.Location()
	if raw := q.Get("start_date"); raw != "" {
		from, err := time.ParseInLocation(dateLayout, raw, loc)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid start_date")
			return
		}
		filter.From = from
	}
	if raw := q.Get("end_date"); raw != "" {
		to, err := time.ParseInLocation(dateLayout, raw, loc)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid end_date")
			return
		}
		filter.To = to.AddDate(0, 0, 1) // inclusive end date
	}
	perPage := 0
	if raw := q.Get("per_page"); raw != "" {
		perPage, _ = strconv.Atoi(raw)
	}
	filter.Limit = perPage
	if raw := q.Get("page"); raw != "" {
		if page, _ := strconv.Atoi(raw); page > 1 {
			if perPage <= 0 {
				perPage = 50
			}
			filter.Offset = (page - 1) * perPage
		}
	}

	appts, err := h.svc.ListForUser(r.Context(), UserID(r), filter)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	items := make([]appointmentItem, 0, len(appts))
	for _, a := range appts {
		items = append(items, toAppointmentItem(a))
	}
	respond(w, http.StatusOK, "Appointments retrieved", items)
}

// parseDatetime accepts RFC3339 or "2006-01-02 15:04"; the latter is
// interpreted in the clinic's timezone.
func parseDatetime(raw string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation(datetimeLayout, raw, loc)
}
