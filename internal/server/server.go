package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"parking-occupancy/internal/logging"
	"parking-occupancy/internal/notify"
	"parking-occupancy/internal/parking"
)

// Deps are the components the HTTP surface is built on.
type Deps struct {
	Store        parking.SlotStore
	Cache        *parking.SnapshotCache
	Entry        *parking.EntryController
	Exit         *parking.ExitController
	Toast        *notify.Toast
	Hub          *notify.Hub
	PageSize     int
	ServiceName  string
	RateLimitRPS float64
}

type Server struct {
	httpServer *http.Server
}

func NewRouter(deps Deps) http.Handler {
	handler := NewHandler(deps)

	r := chi.NewRouter()

	r.Use(RecoveryMiddleware)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)
	r.Use(TracingMiddleware(deps.ServiceName))
	if deps.RateLimitRPS > 0 {
		r.Use(NewRateLimiter(deps.RateLimitRPS, int(deps.RateLimitRPS)*2).Limit)
	}
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
	}).Handler)

	r.Get("/health", handler.HealthCheck)
	r.Get("/metrics", promhttp.HandlerFor(newRegistry(deps.Cache, deps.Hub), promhttp.HandlerOpts{}).ServeHTTP)
	if deps.Hub != nil {
		r.Get("/ws", deps.Hub.ServeHTTP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/slots", handler.GetSlots)
		r.Post("/slots/refresh", handler.RefreshSlots)

		r.Route("/entry", func(r chi.Router) {
			r.Get("/free", handler.GetFreeSlots)
			r.Post("/assign", handler.AssignVehicle)
		})

		r.Route("/exit", func(r chi.Router) {
			r.Get("/occupied", handler.GetOccupied)
			r.Get("/last", handler.GetLastReceipt)
			r.Post("/{slotID}", handler.ExitSlot)
			r.Get("/{slotID}/bill", handler.GetBill)
		})

		r.Get("/notifications/current", handler.CurrentNotification)
	})

	r.Route("/slots", func(r chi.Router) {
		r.Get("/", handler.ListCollection)
		r.Get("/{slotID}", handler.GetCollectionSlot)
		r.Patch("/{slotID}", handler.PatchCollectionSlot)
	})

	return r
}

func NewServer(port string, deps Deps) *Server {
	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           NewRouter(deps),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
	}
}

func (s *Server) Start() error {
	logging.Info(context.Background()).Str("addr", s.httpServer.Addr).Msg("Starting HTTP server")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info(ctx).Msg("Shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return fmt.Sprintf("http://localhost%s", s.httpServer.Addr)
}
