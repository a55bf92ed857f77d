package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/medbridge/hospital-api/internal/auth"
	"github.com/medbridge/hospital-api/internal/pharmacy"
	"github.com/medbridge/hospital-api/internal/prescription"
	"github.com/medbridge/hospital-api/internal/scheduling"
)

type RouterConfig struct {
	Auth         *auth.Service
	Scheduling   *scheduling.Service
	Prescription *prescription.Service
	Pharmacy     *pharmacy.Service
	Blacklist    auth.Blacklist
	JWTSecret    []byte
	CORSOrigins  []string
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Env          string
	Version      string
	Log          zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Public browse and login endpoints
	r.Post("/auth/login", loginHandler(cfg.Auth))
	r.Get("/slots", listSlotsHandler(cfg.Scheduling))
	r.Get("/specialties", listSpecialtiesHandler(cfg.Scheduling))
	r.Get("/doctors", listDoctorsHandler(cfg.Scheduling))

	// Everything below requires a valid, unrevoked bearer token.
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(cfg.JWTSecret, cfg.Blacklist))

		r.Post("/auth/logout", logoutHandler(cfg.Auth))
		r.Get("/auth/me", meHandler())

		// Patient flows
		r.Post("/appointments/{id}/book", bookSlotHandler(cfg.Scheduling))
		r.Post("/appointments/{id}/cancel-request", cancelRequestHandler(cfg.Scheduling))
		r.Post("/appointments/reschedule", rescheduleHandler(cfg.Scheduling))
		r.Get("/appointments", myAppointmentsHandler(cfg.Scheduling))
		r.Get("/prescriptions/{appointmentID}", getPrescriptionHandler(cfg.Prescription))
		r.Post("/lab-tests/order", orderLabTestsHandler(cfg.Prescription))
		r.Get("/lab-tests/types", listTestTypesHandler(cfg.Prescription))

		// Pharmacy cart and checkout
		r.Post("/cart", addCartItemHandler(cfg.Pharmacy))
		r.Get("/cart", getCartHandler(cfg.Pharmacy))
		r.Put("/cart/{id}", updateCartItemHandler(cfg.Pharmacy))
		r.Delete("/cart/{id}", removeCartItemHandler(cfg.Pharmacy))
		r.Post("/orders", createOrderHandler(cfg.Pharmacy))
		r.Get("/orders", myOrdersHandler(cfg.Pharmacy))

		// Doctor-only flows
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleDoctor))

			r.Post("/slots/generate", generateSlotsHandler(cfg.Scheduling))
			r.Get("/schedule", doctorScheduleHandler(cfg.Scheduling))
			r.Post("/appointments/{id}/confirm", confirmAppointmentHandler(cfg.Scheduling))
			r.Post("/appointments/{id}/cancel", approveCancelHandler(cfg.Scheduling))
			r.Post("/prescriptions/{appointmentID}", savePrescriptionHandler(cfg.Prescription))

			// The patient filter is unrestricted, so the listing is staff-side.
			r.Get("/lab-tests", listLabTestsHandler(cfg.Prescription))

			// Order fulfilment runs through the same staff gate.
			r.Get("/admin/orders", adminListOrdersHandler(cfg.Pharmacy))
			r.Get("/admin/orders/{id}", adminGetOrderHandler(cfg.Pharmacy))
			r.Put("/admin/orders/{id}/status", updateOrderStatusHandler(cfg.Pharmacy))
		})
	})

	return r
}
