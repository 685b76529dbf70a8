// Package api mounts the service's HTTP surface: telephony media-stream
// WebSocket, status webhook, health/readiness/metrics probes, and a minimal
// campaign/lead read/write surface used to seed the durable store for local
// runs and integration tests. Ingestion proper (CSV import, inbox polling)
// is out of scope; these handlers exist only to get leads into a campaign.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/propertyhub/voice-agent/internal/observability"
	"github.com/propertyhub/voice-agent/internal/webhook"
)

// Telephony is the media-stream WebSocket endpoint the telephony provider
// connects to once a call is answered.
type Telephony interface {
	HandleWS(w http.ResponseWriter, r *http.Request)
}

// Router builds the chi router for the whole service.
type Router struct {
	Store          Store
	Telephony      Telephony
	WebhookHandler *webhook.Handler
	HealthChecks   observability.DetailedHealthCheckFuncs
	MetricsEnabled bool
}

// New assembles the chi router, mounting every handler group.
func (rt *Router) New() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(observability.RequestLogger)

	r.Get("/live", observability.HealthCheckHandler())
	r.Get("/ready", observability.ReadinessHandler(rt.HealthChecks.SessionStore, rt.HealthChecks.DurableStore))
	r.Get("/health/detailed", observability.DetailedHealthHandler(rt.HealthChecks))

	if rt.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Post("/webhooks/exotel/call-status", rt.WebhookHandler.ServeCallStatus)

	r.HandleFunc("/streams/exotel", rt.Telephony.HandleWS)

	r.Route("/campaigns", func(r chi.Router) {
		r.Post("/", rt.createCampaign)
		r.Get("/{campaignID}", rt.getCampaign)
		r.Post("/{campaignID}/leads", rt.createLead)
		r.Get("/{campaignID}/leads", rt.listUnscheduledLeads)
	})

	return r
}
