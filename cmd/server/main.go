package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/propertyhub/voice-agent/internal/api"
	"github.com/propertyhub/voice-agent/internal/config"
	"github.com/propertyhub/voice-agent/internal/domain"
	"github.com/propertyhub/voice-agent/internal/executor"
	"github.com/propertyhub/voice-agent/internal/interrupt"
	"github.com/propertyhub/voice-agent/internal/llm"
	"github.com/propertyhub/voice-agent/internal/observability"
	"github.com/propertyhub/voice-agent/internal/scheduler"
	"github.com/propertyhub/voice-agent/internal/session"
	"github.com/propertyhub/voice-agent/internal/store"
	"github.com/propertyhub/voice-agent/internal/stt"
	"github.com/propertyhub/voice-agent/internal/telephony"
	"github.com/propertyhub/voice-agent/internal/tts"
	"github.com/propertyhub/voice-agent/internal/webhook"
	"github.com/propertyhub/voice-agent/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("voice agent service starting")

	ctx, cancelBoot := context.WithTimeout(context.Background(), 30*time.Second)
	durableStore, err := store.New(ctx, cfg.DatabaseURL)
	cancelBoot()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to durable store")
	}
	defer durableStore.Close()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		redisClient = redis.NewClient(opts)
	}
	sessionStore := session.NewStore(redisClient, time.Duration(cfg.SessionTTLSeconds)*time.Second)

	sttClient, err := stt.NewDeepgramClient(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build STT client")
	}
	llmClient := llm.NewOpenAIClient(cfg)
	ttsClient := tts.NewElevenLabsClient(cfg)

	interruptMgr := interrupt.NewManager()

	// finalize persists the conversation's final transcript, extracted data,
	// and business outcome onto the CallSession row the executor created,
	// looked up by the provider call id the gateway uses as the call id.
	finalize := func(sess *domain.ConversationSession, outcome domain.CallOutcome) {
		fctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		cs, err := durableStore.GetCallSessionByProviderID(fctx, sess.CallID)
		if err != nil {
			logger.Error().Err(err).Str("call_id", sess.CallID).Msg("finalize: failed to load call session")
			return
		}
		if cs == nil {
			logger.Warn().Str("call_id", sess.CallID).Msg("finalize: no call session found for provider call id")
			return
		}

		transcript := make([]domain.TranscriptTurn, len(sess.History))
		for i, t := range sess.History {
			transcript[i] = domain.TranscriptTurn{Speaker: t.Role, Text: t.Text, Timestamp: t.Timestamp}
		}
		cs.Transcript = transcript
		cs.ExtractedData = sess.ExtractedData
		cs.Outcome = outcome
		now := time.Now()
		cs.EndedAt = &now

		if err := durableStore.UpdateCallSession(fctx, cs); err != nil {
			logger.Error().Err(err).Str("call_id", sess.CallID).Msg("finalize: failed to persist call session")
		}
	}

	gateway := telephony.NewGateway(cfg, sessionStore, interruptMgr, sttClient, llmClient, ttsClient, finalize)

	exotelClient := executor.NewExotelClient(cfg)
	statusCallbackURL := cfg.OurBaseURL + "/webhooks/exotel/call-status"
	callExecutor := executor.NewExecutor(exotelClient, durableStore, statusCallbackURL, true)

	callScheduler := scheduler.New(durableStore, cfg.CallingHoursStart, cfg.CallingHoursEnd)

	callWorker := worker.New(callScheduler, callExecutor, durableStore, cfg.MaxConcurrentCalls, cfg.MaxConcurrentCalls*2)
	if err := callWorker.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start call worker")
	}
	defer callWorker.Stop()

	webhookHandler := webhook.New(durableStore, callScheduler)

	healthChecks := observability.DetailedHealthCheckFuncs{
		STT: func(ctx context.Context) (bool, error) {
			return sttClient != nil, nil
		},
		LLM: func(ctx context.Context) (bool, error) {
			return llmClient != nil, nil
		},
		TTS: func(ctx context.Context) (bool, error) {
			return ttsClient != nil, nil
		},
		SessionStore: sessionStore.Ping,
		DurableStore: func(ctx context.Context) (bool, error) {
			if err := durableStore.Ping(ctx); err != nil {
				return false, err
			}
			return true, nil
		},
	}

	router := &api.Router{
		Store:          durableStore,
		Telephony:      gateway,
		WebhookHandler: webhookHandler,
		HealthChecks:   healthChecks,
		MetricsEnabled: cfg.MetricsEnabled,
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router.New(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("media_stream_endpoint", fmt.Sprintf("ws://localhost:%s/streams/exotel", cfg.Port)).
			Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited gracefully")
}
