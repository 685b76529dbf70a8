package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"
)

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status       string                      `json:"status"`
	Service      string                      `json:"service"`
	Version      string                      `json:"version"`
	Timestamp    string                      `json:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the status of a dependency
type DependencyStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

// HealthCheckFunc probes a single dependency. It takes only a context rather
// than a concrete client type to avoid import cycles between observability and
// the packages that own those clients.
type HealthCheckFunc func(ctx context.Context) (bool, error)

// HealthCheckHandler serves /live: the process is up and able to answer HTTP.
// It never probes a dependency.
func HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := HealthStatus{
			Status:    "healthy",
			Service:   "voice-agent",
			Version:   "1.0.0",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(status)
	}
}

// runChecks probes every named check with a shared deadline and returns the
// per-dependency results plus whether all of them passed.
func runChecks(ctx context.Context, checks map[string]HealthCheckFunc) (map[string]DependencyStatus, bool) {
	dependencies := make(map[string]DependencyStatus, len(checks))
	allHealthy := true

	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		check := checks[name]
		if check == nil {
			continue
		}
		start := time.Now()
		healthy, err := check(ctx)
		latency := time.Since(start).Milliseconds()

		status := "healthy"
		message := ""
		if err != nil || !healthy {
			status = "unhealthy"
			allHealthy = false
			if err != nil {
				message = err.Error()
			}
		}

		dependencies[name] = DependencyStatus{
			Status:    status,
			Message:   message,
			LatencyMs: latency,
		}
	}

	return dependencies, allHealthy
}

// ReadinessHandler serves /ready: is the service able to take traffic. Scoped
// narrowly to the session store and the durable store, since those are the
// dependencies a load balancer needs to know about before routing a call —
// STT/LLM/TTS outages degrade a call in progress but don't make the service
// unable to accept one.
func ReadinessHandler(sessionStoreCheck, durableStoreCheck HealthCheckFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		dependencies, allHealthy := runChecks(ctx, map[string]HealthCheckFunc{
			"session_store": sessionStoreCheck,
			"durable_store": durableStoreCheck,
		})

		status := HealthStatus{
			Status:       "ready",
			Service:      "voice-agent",
			Version:      "1.0.0",
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
			Dependencies: dependencies,
		}

		if !allHealthy {
			status.Status = "not_ready"
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	}
}

// DetailedHealthCheckFuncs names every external dependency probed by
// DetailedHealthHandler.
type DetailedHealthCheckFuncs struct {
	STT          HealthCheckFunc
	LLM          HealthCheckFunc
	TTS          HealthCheckFunc
	SessionStore HealthCheckFunc
	DurableStore HealthCheckFunc
}

// DetailedHealthHandler serves /health/detailed: every external dependency
// probed, for operators diagnosing a degraded-but-still-serving instance.
func DetailedHealthHandler(checks DetailedHealthCheckFuncs) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		dependencies, allHealthy := runChecks(ctx, map[string]HealthCheckFunc{
			"stt":           checks.STT,
			"llm":           checks.LLM,
			"tts":           checks.TTS,
			"session_store": checks.SessionStore,
			"durable_store": checks.DurableStore,
		})

		status := HealthStatus{
			Status:       "healthy",
			Service:      "voice-agent",
			Version:      "1.0.0",
			Timestamp:    time.Now().UTC().Format(time.RFC3339),
			Dependencies: dependencies,
		}

		if !allHealthy {
			status.Status = "degraded"
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(status)
	}
}
