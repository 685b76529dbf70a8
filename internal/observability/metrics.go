package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Call lifecycle metrics
	activeCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_agent_active_calls",
		Help: "Number of phone calls currently in progress",
	})

	queuedCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_agent_queued_calls",
		Help: "Number of scheduled calls waiting to be dialed",
	})

	websocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "voice_agent_websocket_connections",
		Help: "Number of open media-stream WebSocket connections",
	})

	callsInitiated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_agent_calls_initiated_total",
		Help: "Total number of calls placed",
	}, []string{"campaign", "status"})

	callsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_agent_calls_completed_total",
		Help: "Total number of calls that reached a terminal outcome",
	}, []string{"campaign", "outcome"})

	callDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_agent_call_duration_seconds",
		Help:    "Duration of phone calls in seconds",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	})

	// STT metrics
	sttRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_agent_stt_requests_total",
		Help: "Total number of STT requests",
	}, []string{"status"})

	sttLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_agent_stt_request_duration_seconds",
		Help:    "STT processing latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	// TTS metrics
	ttsRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_agent_tts_requests_total",
		Help: "Total number of TTS requests",
	}, []string{"status"})

	ttsLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "voice_agent_tts_request_duration_seconds",
		Help:    "TTS processing latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
	})

	// LLM metrics
	llmRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_agent_llm_requests_total",
		Help: "Total number of LLM turn-generation requests",
	}, []string{"model", "status"})

	llmLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "voice_agent_llm_request_duration_seconds",
		Help:    "LLM turn-generation latency in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0},
	}, []string{"model"})

	// Error metrics
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_agent_errors_total",
		Help: "Total number of errors",
	}, []string{"type", "component"})

	// Circuit breaker metrics
	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "voice_agent_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=open, 2=half-open)",
	}, []string{"service"})

	circuitBreakerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_agent_circuit_breaker_failures_total",
		Help: "Total circuit breaker failures",
	}, []string{"service"})

	// Audio metrics
	audioBytesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "voice_agent_audio_bytes_total",
		Help: "Total audio bytes processed",
	}, []string{"direction"}) // direction: "in" or "out"
)

// Metrics tracks metrics for a single call
type Metrics struct {
	callID       string
	campaign     string
	llmModel     string
	startTime    time.Time
	sttStartTime time.Time
	ttsStartTime time.Time
	llmStartTime time.Time
	mu           sync.Mutex
}

// NewCallMetrics creates a new metrics tracker for a call using the given
// LLM model name, so llm_request_duration_seconds can be broken down per model.
func NewCallMetrics(callID, llmModel string) *Metrics {
	return &Metrics{
		callID:    callID,
		llmModel:  llmModel,
		startTime: time.Now(),
	}
}

// RecordCallStart records the start of a call
func (m *Metrics) RecordCallStart(campaign string) {
	m.mu.Lock()
	m.campaign = campaign
	m.mu.Unlock()

	activeCalls.Inc()
	callsInitiated.WithLabelValues(campaign, "initiated").Inc()
}

// RecordCallEnd records the end of a call with its terminal outcome
func (m *Metrics) RecordCallEnd(outcome string) {
	m.mu.Lock()
	campaign := m.campaign
	m.mu.Unlock()

	activeCalls.Dec()
	duration := time.Since(m.startTime).Seconds()
	callDuration.Observe(duration)
	callsCompleted.WithLabelValues(campaign, outcome).Inc()
}

// RecordSTTStart records the start of STT processing
func (m *Metrics) RecordSTTStart() {
	m.mu.Lock()
	m.sttStartTime = time.Now()
	m.mu.Unlock()
}

// RecordSTTEnd records the end of STT processing
func (m *Metrics) RecordSTTEnd(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.sttStartTime.IsZero() {
		latency := time.Since(m.sttStartTime).Seconds()
		sttLatency.Observe(latency)
	}

	status := "success"
	if !success {
		status = "error"
	}
	sttRequests.WithLabelValues(status).Inc()
}

// RecordTTSStart records the start of TTS processing
func (m *Metrics) RecordTTSStart() {
	m.mu.Lock()
	m.ttsStartTime = time.Now()
	m.mu.Unlock()
}

// RecordTTSEnd records the end of TTS processing
func (m *Metrics) RecordTTSEnd(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ttsStartTime.IsZero() {
		latency := time.Since(m.ttsStartTime).Seconds()
		ttsLatency.Observe(latency)
	}

	status := "success"
	if !success {
		status = "error"
	}
	ttsRequests.WithLabelValues(status).Inc()
}

// RecordLLMStart records the start of an LLM turn-generation call
func (m *Metrics) RecordLLMStart() {
	m.mu.Lock()
	m.llmStartTime = time.Now()
	m.mu.Unlock()
}

// RecordLLMEnd records the end of an LLM turn-generation call
func (m *Metrics) RecordLLMEnd(success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.llmStartTime.IsZero() {
		latency := time.Since(m.llmStartTime).Seconds()
		llmLatency.WithLabelValues(m.llmModel).Observe(latency)
	}

	status := "success"
	if !success {
		status = "error"
	}
	llmRequests.WithLabelValues(m.llmModel, status).Inc()
}

// RecordError records an error
func (m *Metrics) RecordError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordAudioBytes records audio bytes processed
func (m *Metrics) RecordAudioBytes(direction string, bytes int64) {
	audioBytesProcessed.WithLabelValues(direction).Add(float64(bytes))
}

// SetQueuedCalls reports the number of scheduled calls waiting to be dialed.
func SetQueuedCalls(n int) {
	queuedCalls.Set(float64(n))
}

// IncWebSocketConnections and DecWebSocketConnections track open media-stream
// connections as they're accepted and closed.
func IncWebSocketConnections() {
	websocketConnections.Inc()
}

func DecWebSocketConnections() {
	websocketConnections.Dec()
}

// UpdateCircuitBreakerState updates circuit breaker state metric
func UpdateCircuitBreakerState(service string, state int) {
	circuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// IncrementCircuitBreakerFailures increments circuit breaker failure counter
func IncrementCircuitBreakerFailures(service string) {
	circuitBreakerFailures.WithLabelValues(service).Inc()
}
