package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/pawdesk/pawdesk/services/clinic-service/internal/model"
	"github.com/pawdesk/pawdesk/services/clinic-service/internal/schedule"
	"github.com/pawdesk/pawdesk/services/clinic-service/internal/storage"
)

// Doctor self-service endpoints. The doctor row is resolved from the
// authenticated user, never from a client-supplied doctor id.

type zoneItem struct {
	ID            int64  `json:"id"`
	StartDatetime string `json:"start_datetime"`
	EndDatetime   string `json:"end_datetime"`
	Reason        string `json:"reason,omitempty"`
}

func toZoneItem(z model.RestrictedZone) zoneItem {
	return zoneItem{
		ID:            z.ID,
		StartDatetime: z.StartDatetime.Format(time.DateTime),
		EndDatetime:   z.EndDatetime.Format(time.DateTime),
		Reason:        z.Reason,
	}
}

func (h *ClinicHandler) doctorID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := h.store.DoctorIDForUser(r.Context(), UserID(r))
	if err != nil {
		if storage.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "Doctor profile not found")
		} else {
			respondServiceError(w, h.logger, err)
		}
		return 0, false
	}
	return id, true
}

type createZoneRequest struct {
	StartDatetime string `json:"start_datetime"`
	EndDatetime   string `json:"end_datetime"`
	Reason        string `json:"reason"`
}

// CreateZone serves POST /api/v1/doctor/restricted-zones.
func (h *ClinicHandler) CreateZone(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := h.doctorID(w, r)
	if !ok {
		return
	}
	var req createZoneRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid json body")
		return
	}
	loc := h.calc.Location()
	start, err := parseDatetime(req.StartDatetime, loc)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid start_datetime")
		return
	}
	end, err := parseDatetime(req.EndDatetime, loc)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid end_datetime")
		return
	}
	if !end.After(start) {
		respondError(w, http.StatusUnprocessableEntity, "end_datetime must be after start_datetime")
		return
	}

	zone := model.RestrictedZone{
		DoctorID:      doctorID,
		StartDatetime: start,
		EndDatetime:   end,
		Reason:        req.Reason,
	}
	if err := h.store.CreateZone(r.Context(), &zone); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respond(w, http.StatusCreated, "Restricted zone created", toZoneItem(zone))
}

// ListZones serves GET /api/v1/doctor/restricted-zones.
func (h *ClinicHandler) ListZones(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := h.doctorID(w, r)
	if !ok {
		return
	}
	zones, err := h.store.ListZonesForDoctor(r.Context(), doctorID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	items := make([]zoneItem, 0, len(zones))
	for _, z := range zones {
		items = append(items, toZoneItem(z))
	}
	respond(w, http.StatusOK, "Restricted zones retrieved", items)
}

// DeleteZone serves DELETE /api/v1/doctor/restricted-zones/{id}.
func (h *ClinicHandler) DeleteZone(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := h.doctorID(w, r)
	if !ok {
		return
	}
	zoneID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || zoneID <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid zone id")
		return
	}
	if err := h.store.DeleteZone(r.Context(), doctorID, zoneID); err != nil {
		if storage.IsNotFound(err) {
			respondError(w, http.StatusNotFound, "Restricted zone not found")
			return
		}
		respondServiceError(w, h.logger, err)
		return
	}
	respond(w, http.StatusOK, "Restricted zone deleted", nil)
}

type workingHoursRequest struct {
	WorkingHours string `json:"working_hours"`
}

// UpdateWorkingHours serves PUT /api/v1/doctor/working-hours.
func (h *ClinicHandler) UpdateWorkingHours(w http.ResponseWriter, r *http.Request) {
	doctorID, ok := h.doctorID(w, r)
	if !ok {
		return
	}
	var req workingHoursRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid json body")
		return
	}
	window, parsed := schedule.ParseWorkingHours(req.WorkingHours)
	if !parsed || window.On(time.Now()).Empty() {
		respondError(w, http.StatusUnprocessableEntity, "working_hours must be \"HH:MM-HH:MM\" with start before end")
		return
	}

	if err := h.store.UpdateWorkingHours(r.Context(), doctorID, req.WorkingHours); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	respond(w, http.StatusOK, "Working hours updated", map[string]string{"working_hours": req.WorkingHours})
}
