package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pawdesk/pawdesk/libs/config"
	"github.com/pawdesk/pawdesk/libs/db"
	"github.com/pawdesk/pawdesk/libs/httpx"
	"github.com/pawdesk/pawdesk/libs/kafkax"
	otelx "github.com/pawdesk/pawdesk/libs/otel"
	"github.com/pawdesk/pawdesk/libs/runtime"
	"github.com/pawdesk/pawdesk/services/clinic-service/internal/availability"
	"github.com/pawdesk/pawdesk/services/clinic-service/internal/booking"
	"github.com/pawdesk/pawdesk/services/clinic-service/internal/handlers"
	"github.com/pawdesk/pawdesk/services/clinic-service/internal/model"
	"github.com/pawdesk/pawdesk/services/clinic-service/internal/outbox"
	"github.com/pawdesk/pawdesk/services/clinic-service/internal/storage"
)

// bookingStore adapts the concrete Postgres store to the booking package's
// interfaces.
type bookingStore struct {
	store *storage.Store
}

func (b bookingStore) InTx(ctx context.Context, fn func(booking.Tx) error) error {
	return b.store.InTx(ctx, func(tx *storage.Tx) error { return fn(tx) })
}

func (b bookingStore) ListForUser(ctx context.Context, userID int64, f booking.ListFilter) ([]model.Appointment, error) {
	return b.store.ListForUser(ctx, userID, storage.ListFilter{
		Status:          f.Status,
		DoctorID:        f.DoctorID,
		PetID:           f.PetID,
		AppointmentType: f.AppointmentType,
		From:            f.From,
		To:              f.To,
		Limit:           f.Limit,
		Offset:          f.Offset,
	})
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	service := config.String("SERVICE_NAME", "clinic-service")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	loc := time.Local
	if tz := config.String("CLINIC_TIMEZONE", ""); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			logger.Error("invalid CLINIC_TIMEZONE, using local", "tz", tz, "err", err)
			loc = time.Local
		}
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	store := storage.New(pool)
	calc := availability.NewCalculator(store, store, logger, loc)
	svc := booking.NewService(bookingStore{store: store}, logger)
	handler := handlers.NewClinicHandler(svc, calc, store, logger)

	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	relay := outbox.NewRelay(pool, logger, outbox.Config{
		Brokers:   kafkaBrokers,
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go relay.Run(ctx)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)},
	}

	// Redis-backed rate limiting is optional; without REDIS_ADDR each replica
	// falls back to its own in-memory window.
	var rateLimit httpx.Middleware
	limit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		rateLimit = httpx.NewRedisRateLimiter(rdb, limit, time.Minute, service).Middleware(logger, true)
		readyChecks = append(readyChecks, runtime.ReadyCheck{
			Name: "redis",
			Check: func(ctx context.Context) error {
				return rdb.Ping(ctx).Err()
			},
		})
	} else {
		rateLimit = httpx.NewRateLimiter(limit, time.Minute).Middleware()
	}

	authed := handlers.RequireAuth(jwtSecret, logger)
	doctorOnly := func(h http.HandlerFunc) http.Handler {
		return authed(handlers.RequireRole(handlers.RoleDoctor, handlers.RoleAdmin)(h))
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.Handle("GET /api/v1/calendar", authed(http.HandlerFunc(handler.Calendar)))
	mux.Handle("GET /api/v1/available-doctors", authed(http.HandlerFunc(handler.AvailableDoctors)))
	mux.Handle("GET /api/v1/calendar-by-doctor", authed(http.HandlerFunc(handler.AvailableDoctors)))
	mux.Handle("GET /api/v1/doctors/{id}/available-slots", authed(http.HandlerFunc(handler.DoctorSlots)))
	mux.Handle("POST /api/v1/appointments", authed(http.HandlerFunc(handler.Book)))
	mux.Handle("GET /api/v1/appointments", authed(http.HandlerFunc(handler.List)))
	mux.Handle("PUT /api/v1/appointments/{id}", authed(http.HandlerFunc(handler.Update)))
	mux.Handle("PATCH /api/v1/appointments/{id}/cancel", authed(http.HandlerFunc(handler.Cancel)))
	mux.Handle("POST /api/v1/doctor/restricted-zones", doctorOnly(handler.CreateZone))
	mux.Handle("GET /api/v1/doctor/restricted-zones", doctorOnly(handler.ListZones))
	mux.Handle("DELETE /api/v1/doctor/restricted-zones/{id}", doctorOnly(handler.DeleteZone))
	mux.Handle("PUT /api/v1/doctor/working-hours", doctorOnly(handler.UpdateWorkingHours))

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: splitCSV(config.String("CORS_ALLOWED_ORIGINS", "*")),
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
		}),
		httpx.WithBodyLimit(1<<20),
		rateLimit,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "clinic")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
