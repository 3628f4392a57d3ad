package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ai-society/society/internal/database"
	mw "github.com/ai-society/society/internal/middleware"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	CORSAllowedOrigins []string
	ControlRateLimiter func(http.Handler) http.Handler
}

// NatsChecker reports broker connectivity for the readiness probe.
type NatsChecker interface {
	Healthy() bool
}

func NewRouter(pool *pgxpool.Pool, nats NatsChecker, cfg RouterConfig, h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.Logging)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)
	r.Use(cors.Handler(mw.CORS(cfg.CORSAllowedOrigins)))

	// Liveness probe: always 200, no dependency checks
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})

	// Readiness probe. The simulation runs fully in memory, so a down
	// database or broker degrades persistence but not liveness.
	readinessHandler := func(w http.ResponseWriter, r *http.Request) {
		health := map[string]string{
			"status":   "healthy",
			"database": "healthy",
			"nats":     "healthy",
		}

		status := http.StatusOK

		if pool == nil {
			health["database"] = "not configured"
		} else if err := database.HealthCheck(r.Context(), pool); err != nil {
			health["database"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		if nats == nil {
			health["nats"] = "not configured"
		} else if !nats.Healthy() {
			health["nats"] = "unhealthy"
			health["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}

		JSON(w, status, health)
	}

	r.Get("/health/ready", readinessHandler)
	r.Get("/health", readinessHandler)

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		// Resident routes
		r.Route("/agents", func(r chi.Router) {
			r.Post("/", h.CreateAgent)
			r.Get("/", h.ListAgents)

			r.Route("/{agentID}", func(r chi.Router) {
				r.Get("/", h.GetAgent)
				r.Delete("/", h.DeleteAgent)
				r.Get("/memories", h.ListAgentMemories)
				r.Get("/plan", h.GetAgentPlan)
				r.Get("/activity", h.GetAgentActivity)
			})
		})

		// World routes
		r.Get("/world", h.GetWorld)
		r.Get("/events", h.ListEvents)
		r.Get("/llm/usage", h.LLMUsage)
		r.Get("/scheduler", h.SchedulerStatus)

		// Control routes mutate the running simulation, optionally
		// rate-limited.
		r.Group(func(r chi.Router) {
			if cfg.ControlRateLimiter != nil {
				r.Use(cfg.ControlRateLimiter)
			}
			r.Post("/world/pause", h.PauseWorld)
			r.Post("/world/resume", h.ResumeWorld)
			r.Post("/world/timescale", h.SetTimeScale)
			r.Post("/scheduler/start", h.StartScheduler)
			r.Post("/scheduler/stop", h.StopScheduler)
			r.Post("/scheduler/tick", h.TickScheduler)
		})
	})

	return r
}
