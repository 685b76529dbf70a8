package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the voice agent service.
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Public base URL for this service, used to build the status callback URL
	// the telephony provider posts call-lifecycle updates back to.
	OurBaseURL string `envconfig:"OUR_BASE_URL" default:""`

	// Durable store
	DatabaseURL string `envconfig:"DATABASE_URL" default:""`

	// Session store
	RedisURL         string `envconfig:"REDIS_URL" default:""`
	SessionTTLSeconds int   `envconfig:"SESSION_TTL_SECONDS" default:"3600"`

	// Deepgram STT API configuration
	DeepgramAPIKey   string `envconfig:"DEEPGRAM_API_KEY" required:"true"`
	DeepgramModel    string `envconfig:"DEEPGRAM_MODEL" default:"nova-2-phonecall"`
	DeepgramLanguage string `envconfig:"DEEPGRAM_LANGUAGE" default:"en-IN"`
	STTMinConfidence float64 `envconfig:"STT_MIN_CONFIDENCE" default:"0.65"`

	// LLM (OpenAI-compatible) configuration
	OpenAIAPIKey  string  `envconfig:"OPENAI_API_KEY" required:"true"`
	OpenAIBaseURL string  `envconfig:"OPENAI_BASE_URL" default:""`
	LLMModel      string  `envconfig:"LLM_MODEL" default:"gpt-4o-mini"`
	LLMTemperature float64 `envconfig:"LLM_TEMPERATURE" default:"0.8"`
	LLMMaxTokens  int     `envconfig:"LLM_MAX_TOKENS" default:"200"`

	// ElevenLabs-style TTS API configuration
	ElevenLabsAPIKey  string `envconfig:"ELEVENLABS_API_KEY" required:"true"`
	ElevenLabsVoiceID string `envconfig:"ELEVENLABS_VOICE_ID" default:"21m00Tcm4TlvDq8ikWAM"`
	ElevenLabsModelID string `envconfig:"ELEVENLABS_MODEL_ID" default:"eleven_turbo_v2"`

	// Exotel-style telephony provider configuration
	ExotelAccountSID    string `envconfig:"EXOTEL_ACCOUNT_SID" default:""`
	ExotelAPIKey        string `envconfig:"EXOTEL_API_KEY" default:""`
	ExotelAPIToken      string `envconfig:"EXOTEL_API_TOKEN" default:""`
	ExotelVirtualNumber string `envconfig:"EXOTEL_VIRTUAL_NUMBER" default:""`
	ExotelFlowID        string `envconfig:"EXOTEL_FLOW_ID" default:""`

	// Calling policy defaults (overridable per-campaign in the durable store)
	CallingHoursStart  int `envconfig:"CALLING_HOURS_START" default:"10"`
	CallingHoursEnd    int `envconfig:"CALLING_HOURS_END" default:"19"`
	MaxConcurrentCalls int `envconfig:"MAX_CONCURRENT_CALLS" default:"5"`
	MaxCallDurationMinutes int `envconfig:"MAX_CALL_DURATION_MINUTES" default:"10"`

	// Audio processing configuration
	AudioBufferSize    int     `envconfig:"AUDIO_BUFFER_SIZE" default:"8192"`
	VADEnergyThreshold float64 `envconfig:"VAD_ENERGY_THRESHOLD" default:"30.0"`
	VADSilenceFrames   int     `envconfig:"VAD_SILENCE_FRAMES" default:"15"`
	MinUtteranceBytes  int     `envconfig:"MIN_UTTERANCE_BYTES" default:"3200"`

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"`
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`
	ReconnectMaxAttempts       int `envconfig:"RECONNECT_MAX_ATTEMPTS" default:"5"`
	ReconnectBackoff           int `envconfig:"RECONNECT_BACKOFF" default:"1000"`

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
}

// Load reads configuration from environment variables.
// It first attempts to load from a .env file if it exists, then from the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load a .env file (useful for containerized deployments).
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DeepgramAPIKey == "" {
		return fmt.Errorf("DEEPGRAM_API_KEY is required")
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.ElevenLabsAPIKey == "" {
		return fmt.Errorf("ELEVENLABS_API_KEY is required")
	}
	return nil
}

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
