package config

import (
	"os"
	"testing"
)

func setRequiredEnv() {
	os.Setenv("DEEPGRAM_API_KEY", "test-deepgram-key")
	os.Setenv("OPENAI_API_KEY", "test-openai-key")
	os.Setenv("ELEVENLABS_API_KEY", "test-elevenlabs-key")
}

func unsetRequiredEnv() {
	os.Unsetenv("DEEPGRAM_API_KEY")
	os.Unsetenv("OPENAI_API_KEY")
	os.Unsetenv("ELEVENLABS_API_KEY")
}

func TestLoad(t *testing.T) {
	setRequiredEnv()
	defer unsetRequiredEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.DeepgramAPIKey != "test-deepgram-key" {
		t.Errorf("Expected DeepgramAPIKey 'test-deepgram-key', got '%s'", cfg.DeepgramAPIKey)
	}
	if cfg.OpenAIAPIKey != "test-openai-key" {
		t.Errorf("Expected OpenAIAPIKey 'test-openai-key', got '%s'", cfg.OpenAIAPIKey)
	}
	if cfg.ElevenLabsAPIKey != "test-elevenlabs-key" {
		t.Errorf("Expected ElevenLabsAPIKey 'test-elevenlabs-key', got '%s'", cfg.ElevenLabsAPIKey)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	unsetRequiredEnv()

	_, err := Load()
	if err == nil {
		t.Error("Expected error when required keys are missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv()
	defer unsetRequiredEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default Port '8080', got '%s'", cfg.Port)
	}
	if cfg.DeepgramModel != "nova-2-phonecall" {
		t.Errorf("Expected default DeepgramModel 'nova-2-phonecall', got '%s'", cfg.DeepgramModel)
	}
	if cfg.DeepgramLanguage != "en-IN" {
		t.Errorf("Expected default DeepgramLanguage 'en-IN', got '%s'", cfg.DeepgramLanguage)
	}
	if cfg.ElevenLabsModelID != "eleven_turbo_v2" {
		t.Errorf("Expected default ElevenLabsModelID 'eleven_turbo_v2', got '%s'", cfg.ElevenLabsModelID)
	}
	if cfg.AudioBufferSize != 8192 {
		t.Errorf("Expected default AudioBufferSize 8192, got %d", cfg.AudioBufferSize)
	}
	if cfg.VADEnergyThreshold != 30.0 {
		t.Errorf("Expected default VADEnergyThreshold 30.0, got %f", cfg.VADEnergyThreshold)
	}
	if cfg.VADSilenceFrames != 15 {
		t.Errorf("Expected default VADSilenceFrames 15, got %d", cfg.VADSilenceFrames)
	}
	if cfg.CallingHoursStart != 10 || cfg.CallingHoursEnd != 19 {
		t.Errorf("Expected default calling hours [10,19), got [%d,%d)", cfg.CallingHoursStart, cfg.CallingHoursEnd)
	}
}

func TestLoadFromEnv(t *testing.T) {
	setRequiredEnv()
	defer unsetRequiredEnv()

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() failed: %v", err)
	}

	if cfg.DeepgramAPIKey != "test-deepgram-key" {
		t.Errorf("Expected DeepgramAPIKey 'test-deepgram-key', got '%s'", cfg.DeepgramAPIKey)
	}
}

func TestGetEnv(t *testing.T) {
	os.Setenv("TEST_KEY", "test-value")
	defer os.Unsetenv("TEST_KEY")

	value := GetEnv("TEST_KEY", "default")
	if value != "test-value" {
		t.Errorf("Expected 'test-value', got '%s'", value)
	}

	value = GetEnv("NON_EXISTENT_KEY", "default")
	if value != "default" {
		t.Errorf("Expected 'default', got '%s'", value)
	}
}

func TestConfig_ResilienceDefaults(t *testing.T) {
	setRequiredEnv()
	defer unsetRequiredEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.CircuitBreakerMaxFailures != 5 {
		t.Errorf("Expected default CircuitBreakerMaxFailures 5, got %d", cfg.CircuitBreakerMaxFailures)
	}
	if cfg.CircuitBreakerResetTimeout != 30 {
		t.Errorf("Expected default CircuitBreakerResetTimeout 30, got %d", cfg.CircuitBreakerResetTimeout)
	}
	if cfg.RetryMaxAttempts != 3 {
		t.Errorf("Expected default RetryMaxAttempts 3, got %d", cfg.RetryMaxAttempts)
	}
	if cfg.ReconnectMaxAttempts != 5 {
		t.Errorf("Expected default ReconnectMaxAttempts 5, got %d", cfg.ReconnectMaxAttempts)
	}
}

func TestConfig_ObservabilityDefaults(t *testing.T) {
	setRequiredEnv()
	os.Unsetenv("LOG_LEVEL")
	defer unsetRequiredEnv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.LogLevel != "info" {
		t.Errorf("Expected default LogLevel 'info', got '%s'", cfg.LogLevel)
	}
	if cfg.LogPretty {
		t.Error("Expected default LogPretty false, got true")
	}
	if !cfg.MetricsEnabled {
		t.Error("Expected default MetricsEnabled true, got false")
	}
}
