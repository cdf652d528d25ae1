package worker

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/zonesentry/zonesentry/internal/detection"
	"github.com/zonesentry/zonesentry/internal/reminder"
	"github.com/zonesentry/zonesentry/internal/throttle"
)

// OpsRouterConfig holds dependencies for the worker's ops endpoints.
type OpsRouterConfig struct {
	Version   string
	BuildTime string
	Engine    *detection.Engine
	Scheduler *reminder.Scheduler
	Throttles *throttle.Store
	Logger    zerolog.Logger
}

// NewOpsRouter builds the health and metrics router the worker exposes for
// the platform's probes.
func NewOpsRouter(cfg OpsRouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(httprate.LimitByIP(60, time.Minute))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":     "healthy",
			"version":    cfg.Version,
			"build_time": cfg.BuildTime,
		})
	})

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]interface{}{
			"detection": cfg.Engine.MetricsSnapshot(),
			"reminders": cfg.Scheduler.MetricsSnapshot(),
		}

		if stats, err := cfg.Throttles.Stats(r.Context()); err != nil {
			cfg.Logger.Warn().Err(err).Msg("throttle stats unavailable")
		} else {
			payload["throttles"] = map[string]interface{}{
				"active":  stats.Active,
				"expired": stats.Expired,
			}
		}

		writeJSON(w, http.StatusOK, payload)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload) //nolint:errcheck // response already committed
}
