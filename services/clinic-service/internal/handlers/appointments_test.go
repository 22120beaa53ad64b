package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pawdesk/pawdesk/services/clinic-service/internal/availability"
	"github.com/pawdesk/pawdesk/services/clinic-service/internal/model"
	"github.com/pawdesk/pawdesk/services/clinic-service/internal/schedule"
)

type emptySource struct{}

func (emptySource) GetDoctor(context.Context, int64) (model.Doctor, error) {
	return model.Doctor{}, nil
}

func (emptySource) ListDoctors(context.Context) ([]model.Doctor, error) {
	return nil, nil
}

func (emptySource) ListConflictIntervals(context.Context, []int64, time.Time, time.Time) (map[int64][]schedule.Interval, error) {
	return nil, nil
}

func (emptySource) ListZoneIntervals(context.Context, []int64, time.Time, time.Time) (map[int64][]schedule.Interval, error) {
	return nil, nil
}

func newCalendarHandler() *ClinicHandler {
	logger := discardLogger()
	calc := availability.NewCalculator(emptySource{}, emptySource{}, logger, time.UTC)
	return NewClinicHandler(nil, calc, nil, logger)
}

func TestCalendarAcceptsEndDateToday(t *testing.T) {
	h := newCalendarHandler()

	// the default start is today's midnight, so today as end_date is a
	// valid one-day range
	today := time.Now().In(time.UTC).Format("2006-01-02")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/calendar?end_date="+today, nil)
	rec := httptest.NewRecorder()
	h.Calendar(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s), want 200 for end_date today", rec.Code, rec.Body.String())
	}
}

func TestCalendarRejectsEndBeforeStart(t *testing.T) {
	h := newCalendarHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/calendar?start_date=2026-09-08&end_date=2026-09-07", nil)
	rec := httptest.NewRecorder()
	h.Calendar(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 for inverted range", rec.Code)
	}
}
