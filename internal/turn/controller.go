// Package turn owns the per-call conversation state machine: it segments
// ingress audio, drives STT/LLM/TTS, applies the deterministic guardrails,
// and paces egress audio back onto the telephony stream with barge-in
// support.
package turn

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/propertyhub/voice-agent/internal/audio"
	"github.com/propertyhub/voice-agent/internal/config"
	"github.com/propertyhub/voice-agent/internal/domain"
	"github.com/propertyhub/voice-agent/internal/interrupt"
	"github.com/propertyhub/voice-agent/internal/llm"
	"github.com/propertyhub/voice-agent/internal/observability"
	"github.com/propertyhub/voice-agent/internal/session"
	"github.com/propertyhub/voice-agent/internal/stt"
	"github.com/propertyhub/voice-agent/internal/tts"
)

const (
	pcmSampleRate      = 8000
	egressChunkMS      = 20
	interruptCheckEvery = 3 // check the barge-in flag every ~60ms of audio
	fillerDelay        = 300 * time.Millisecond
	sttTimeout         = 10 * time.Second
	llmTimeout         = 10 * time.Second
	ttsTimeout         = 10 * time.Second
	maxCallDuration    = 10 * time.Minute
)

var clarificationLines = []string{
	"Sorry, I didn't catch that. Could you repeat?",
	"Hmm, the line broke up a bit. Can you say that again?",
	"Sorry, could you say that once more?",
}

var fillerPhrases = []string{"Hmm", "Okay", "Right"}

// EgressSender writes one outbound media frame (base64 PCM payload) for a
// call's stream back to the telephony gateway.
type EgressSender func(streamSID, base64Payload string) error

// FinalizeFunc is invoked once, when a call reaches Closed, with the final
// session state and the outcome the durable store should record.
type FinalizeFunc func(sess *domain.ConversationSession, outcome domain.CallOutcome)

// StartInfo carries everything the `start` event provides about a new call.
type StartInfo struct {
	CallID       string
	StreamSID    string
	CampaignID   int64
	LeadID       int64
	AgentName    string
	LeadName     string
	PropertyType string
	Location     string
	Budget       string
}

// Controller owns one call's ConversationSession and the goroutine-free,
// mutex-protected state needed to react to ingress events as they arrive on
// the gateway's read loop. All exported methods are safe to call from a
// single per-connection goroutine; the only internal goroutines are the one
// running the LLM call, which always completes by the time its caller
// returns, and the one that finalizes the call after an egress send fails.
type Controller struct {
	mu sync.Mutex

	callID     string
	streamSID  string
	campaignID int64
	leadID     int64
	agentName  string

	systemPrompt string
	leadName     string
	propertyType string
	location     string
	budget       string

	sess *domain.ConversationSession

	sessionStore *session.Store
	interruptMgr *interrupt.Manager
	sttClient    stt.STTClient
	llmClient    llm.Client
	ttsClient    tts.TTSClient
	vad          *audio.VADDetector
	cfg          *config.Config

	send     EgressSender
	finalize FinalizeFunc
	logger   zerolog.Logger
	metrics  *observability.Metrics

	audioBuffer        []byte
	isBotSpeaking      bool
	waitingForResponse bool
	silenceFrames      int

	fillerCacheMu sync.Mutex
	fillerCache   map[string][]byte

	callCtx    context.Context
	cancelCall context.CancelFunc
	startedAt  time.Time
	closed     bool
}

// NewController builds a Controller for one call. It does not start the
// conversation; call HandleStart once the `start` event arrives.
func NewController(
	info StartInfo,
	sessionStore *session.Store,
	interruptMgr *interrupt.Manager,
	sttClient stt.STTClient,
	llmClient llm.Client,
	ttsClient tts.TTSClient,
	cfg *config.Config,
	send EgressSender,
	finalize FinalizeFunc,
) *Controller {
	vadConfig := &audio.VADConfig{
		EnergyThreshold: cfg.VADEnergyThreshold,
		SilenceFrames:   cfg.VADSilenceFrames,
		FrameSize:       160,
	}

	logger := observability.WithCorrelationID(observability.NewCorrelationID()).
		With().Str("call_id", info.CallID).Logger()

	return &Controller{
		callID:       info.CallID,
		streamSID:    info.StreamSID,
		campaignID:   info.CampaignID,
		leadID:       info.LeadID,
		agentName:    info.AgentName,
		leadName:     info.LeadName,
		propertyType: info.PropertyType,
		location:     info.Location,
		budget:       info.Budget,
		systemPrompt: BuildSystemPrompt(info.AgentName, info.LeadName, info.PropertyType, info.Location, info.Budget),
		sessionStore: sessionStore,
		interruptMgr: interruptMgr,
		sttClient:    sttClient,
		llmClient:    llmClient,
		ttsClient:    ttsClient,
		vad:          audio.NewVADDetector(vadConfig),
		cfg:          cfg,
		send:         send,
		finalize:     finalize,
		logger:       logger,
		metrics:      observability.NewCallMetrics(info.CallID, cfg.LLMModel),
		fillerCache:  make(map[string][]byte),
	}
}

// HandleStart creates the conversation session, speaks the deterministic
// intro, and enters ListenForUser. If a session already exists for this call
// id (duplicate start), it is reused rather than recreated.
func (c *Controller) HandleStart(ctx context.Context) error {
	c.mu.Lock()
	if c.sess != nil {
		c.mu.Unlock()
		return nil
	}
	c.callCtx, c.cancelCall = context.WithTimeout(context.Background(), maxCallDuration)
	c.startedAt = time.Now()
	c.mu.Unlock()

	sess, err := c.sessionStore.Create(ctx, c.callID, c.campaignID, c.leadID, c.agentName)
	if err != nil {
		return fmt.Errorf("turn: create session: %w", err)
	}
	c.metrics.RecordCallStart(strconv.FormatInt(c.campaignID, 10))

	intro := BuildIntro(c.agentName, c.leadName, c.propertyType, c.location)
	sess.AppendTurn("agent", intro, time.Now())
	sess.State = domain.TurnGreetingOut

	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()

	c.speak(ctx, intro)

	c.mu.Lock()
	c.sess.State = domain.TurnListenForUser
	c.waitingForResponse = true
	c.mu.Unlock()
	return c.persist(ctx)
}

// HandleMedia processes one base64-encoded ingress audio chunk per §4.6.2.
func (c *Controller) HandleMedia(ctx context.Context, base64Payload string) error {
	pcm, err := audio.DecodeBase64(base64Payload)
	if err != nil {
		c.logger.Warn().Err(err).Msg("turn: dropping malformed media frame")
		return nil
	}
	c.metrics.RecordAudioBytes("in", int64(len(pcm)))

	c.mu.Lock()
	botSpeaking := c.isBotSpeaking
	waiting := c.waitingForResponse
	c.mu.Unlock()

	if botSpeaking {
		if audio.CalculateRMS(bytesToSamples(pcm)) > c.cfg.VADEnergyThreshold {
			c.mu.Lock()
			c.interruptMgr.SetInterrupted(c.callID)
			c.mu.Unlock()
		}
		return nil
	}

	if !waiting {
		return nil
	}

	c.mu.Lock()
	c.audioBuffer = append(c.audioBuffer, pcm...)
	buffered := len(c.audioBuffer)
	c.mu.Unlock()

	_, _, speechEnded := c.vad.ProcessFrame(bytesToSamples(pcm))
	if !speechEnded {
		return nil
	}
	if buffered >= c.cfg.MinUtteranceBytes {
		return c.runTurn(ctx)
	}
	c.logger.Debug().Int("bytes", buffered).Msg("turn: utterance too short, dropping")
	c.mu.Lock()
	c.audioBuffer = nil
	c.mu.Unlock()
	return nil
}

func bytesToSamples(pcm []byte) []int16 {
	n := len(pcm) / 2
	samples := make([]int16, n)
	for i := 0; i < n; i++ {
		samples[i] = int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
	}
	return samples
}

// runTurn drives one full Transcribing → Thinking → Speaking cycle.
func (c *Controller) runTurn(ctx context.Context) error {
	c.mu.Lock()
	c.sess.State = domain.TurnTranscribing
	buffered := c.audioBuffer
	c.audioBuffer = nil
	c.waitingForResponse = false
	c.mu.Unlock()

	sttCtx, cancel := context.WithTimeout(ctx, sttTimeout)
	defer cancel()

	c.metrics.RecordSTTStart()
	result, err := c.sttClient.Transcribe(sttCtx, buffered, c.callID)
	c.metrics.RecordSTTEnd(err == nil && result != nil)
	if err != nil || result == nil || strings.TrimSpace(result.Text) == "" {
		if err != nil {
			c.logger.Warn().Err(err).Msg("turn: transcription failed, asking caller to repeat")
		}
		c.mu.Lock()
		c.sess.State = domain.TurnListenForUser
		c.waitingForResponse = true
		c.vad.Reset()
		c.mu.Unlock()
		c.speak(ctx, clarificationLines[rand.Intn(len(clarificationLines))])
		c.mu.Lock()
		c.waitingForResponse = true
		c.mu.Unlock()
		return c.persist(ctx)
	}

	userText := result.Text

	c.mu.Lock()
	c.sess.AppendTurn("user", userText, time.Now())
	c.sess.State = domain.TurnThinking
	c.mu.Unlock()

	pre := PreprocessUserInput(userText)

	turnResp, err := c.generateWithFiller(ctx, userText)
	if err != nil {
		c.logger.Warn().Err(err).Msg("turn: LLM call failed, using safe default")
		turnResp = llm.DefaultResponse()
	}
	if pre.ResponsePrefix != "" {
		turnResp.ResponseText = pre.ResponsePrefix + turnResp.ResponseText
	}
	turnResp.CustomerMidSentence = turnResp.CustomerMidSentence || pre.IsMidSentence

	c.mu.Lock()
	c.sess.MergeExtractedData(turnResp.ExtractedData)
	ApplyGuardrails(turnResp, c.sess, userText, c.agentName)
	c.sess.AppendTurn("agent", turnResp.ResponseText, time.Now())
	c.sess.ShouldEndCall = turnResp.ShouldEndCall
	c.sess.LastIntent = turnResp.Intent
	c.sess.LastNextAction = string(turnResp.NextAction)
	c.sess.State = domain.TurnSpeaking
	c.mu.Unlock()

	c.speak(ctx, turnResp.ResponseText)

	if turnResp.ShouldEndCall {
		return c.Finalize(ctx)
	}

	c.mu.Lock()
	c.sess.State = domain.TurnListenForUser
	c.waitingForResponse = true
	c.vad.Reset()
	c.mu.Unlock()
	return c.persist(ctx)
}

// generateWithFiller races the LLM call against a 300ms timer; if the timer
// wins, a short filler phrase is spoken first so the caller perceives
// engagement during the wait.
func (c *Controller) generateWithFiller(ctx context.Context, userText string) (*llm.TurnResponse, error) {
	llmCtx, cancel := context.WithTimeout(ctx, llmTimeout)
	defer cancel()

	history := c.historySnapshot()
	leadCtx := llm.LeadContext{
		"lead_name":     c.leadName,
		"property_type": c.propertyType,
		"location":      c.location,
		"budget":        c.budget,
	}

	c.metrics.RecordLLMStart()
	type result struct {
		resp *llm.TurnResponse
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := c.llmClient.GenerateTurn(llmCtx, c.systemPrompt, history, userText, leadCtx)
		done <- result{resp, err}
	}()

	select {
	case r := <-done:
		c.metrics.RecordLLMEnd(r.err == nil)
		return r.resp, r.err
	case <-time.After(fillerDelay):
		c.playFiller(ctx)
		r := <-done
		c.metrics.RecordLLMEnd(r.err == nil)
		return r.resp, r.err
	}
}

func (c *Controller) historySnapshot() []llm.HistoryTurn {
	c.mu.Lock()
	defer c.mu.Unlock()
	recent := c.sess.RecentHistory(8)
	out := make([]llm.HistoryTurn, len(recent))
	for i, t := range recent {
		out[i] = llm.HistoryTurn{Role: t.Role, Text: t.Text}
	}
	return out
}

// playFiller speaks a short cached phrase without touching session state or
// transcript history; it is pure latency-masking, not a conversational turn.
func (c *Controller) playFiller(ctx context.Context) {
	phrase := fillerPhrases[rand.Intn(len(fillerPhrases))]

	c.fillerCacheMu.Lock()
	pcm, cached := c.fillerCache[phrase]
	c.fillerCacheMu.Unlock()

	if !cached {
		synthCtx, cancel := context.WithTimeout(ctx, ttsTimeout)
		defer cancel()
		data, err := c.ttsClient.Synthesize(synthCtx, phrase, c.callID)
		if err != nil {
			return
		}
		c.fillerCacheMu.Lock()
		c.fillerCache[phrase] = data
		c.fillerCacheMu.Unlock()
		pcm = data
	}

	c.sendChunks(pcm)
}

// speak synthesizes text and paces it onto the wire per §4.6.7, stopping
// early on barge-in.
func (c *Controller) speak(ctx context.Context, text string) {
	c.mu.Lock()
	c.isBotSpeaking = true
	c.waitingForResponse = false
	c.interruptMgr.Clear(c.callID)
	c.mu.Unlock()

	synthCtx, cancel := context.WithTimeout(ctx, ttsTimeout)
	defer cancel()

	c.metrics.RecordTTSStart()
	pcm, err := c.ttsClient.Synthesize(synthCtx, text, c.callID)
	c.metrics.RecordTTSEnd(err == nil)
	if err != nil {
		c.logger.Warn().Err(err).Msg("turn: synthesis failed, skipping utterance")
		c.mu.Lock()
		c.isBotSpeaking = false
		c.mu.Unlock()
		return
	}

	c.sendChunks(pcm)

	c.mu.Lock()
	c.isBotSpeaking = false
	c.interruptMgr.Clear(c.callID)
	c.mu.Unlock()
}

func (c *Controller) sendChunks(pcm []byte) {
	chunks := audio.Chunk(pcm, pcmSampleRate, egressChunkMS)
	for i, chunk := range chunks {
		if i%interruptCheckEvery == 0 && c.interruptMgr.CheckInterrupted(c.callID) {
			c.logger.Debug().Msg("turn: barge-in detected, stopping egress")
			break
		}
		if err := c.send(c.streamSID, audio.EncodeBase64(chunk)); err != nil {
			c.logger.Warn().Err(err).Msg("turn: egress send failed, treating as disconnect")
			go c.Finalize(context.Background())
			return
		}
		c.metrics.RecordAudioBytes("out", int64(len(chunk)))
	}
}

// HandleClear responds to a `clear` event by dropping any buffered ingress
// audio without altering conversational state.
func (c *Controller) HandleClear() {
	c.mu.Lock()
	c.audioBuffer = nil
	c.mu.Unlock()
}

// HandleDTMF records a touch-tone digit in the transcript for operator
// visibility; the conversation otherwise continues unaffected.
func (c *Controller) HandleDTMF(ctx context.Context, digit string) error {
	c.mu.Lock()
	if c.sess != nil {
		c.sess.AppendTurn("user", "[dtmf:"+digit+"]", time.Now())
	}
	c.mu.Unlock()
	return c.persist(ctx)
}

// HandleStop finalizes the call on a `stop` event.
func (c *Controller) HandleStop(ctx context.Context) error {
	return c.Finalize(ctx)
}

// Finalize transitions to Closed, derives an outcome, and hands the final
// session snapshot to the caller's FinalizeFunc exactly once.
func (c *Controller) Finalize(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.cancelCall != nil {
		c.cancelCall()
	}
	sess := c.sess
	c.mu.Unlock()

	if sess == nil {
		return nil
	}

	sess.State = domain.TurnClosed
	outcome := deriveOutcome(sess)

	c.metrics.RecordCallEnd(string(outcome))
	c.interruptMgr.Cleanup(c.callID)

	if c.finalize != nil {
		c.finalize(sess, outcome)
	}

	return c.sessionStore.Delete(ctx, c.callID)
}

// deriveOutcome classifies the call from the LLM's last read of the
// conversation: an explicit not_interested intent wins outright, a
// ready-to-visit intent or a schedule-visit next_action counts as
// qualified, and everything else ending the call is a callback request.
func deriveOutcome(sess *domain.ConversationSession) domain.CallOutcome {
	if sess.LastIntent == "not_interested" {
		return domain.OutcomeNotInterested
	}
	if sess.LastIntent == "ready_to_visit" || sess.LastNextAction == string(llm.ActionScheduleVisit) {
		return domain.OutcomeQualified
	}
	return domain.OutcomeCallbackRequested
}

func (c *Controller) persist(ctx context.Context) error {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()
	if sess == nil {
		return nil
	}
	return c.sessionStore.Save(ctx, sess)
}

// Elapsed reports how long this call has been active, used by the gateway
// to log/alert on calls approaching the max-duration cutoff.
func (c *Controller) Elapsed() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.startedAt.IsZero() {
		return 0
	}
	return time.Since(c.startedAt)
}

// Context returns the per-call context, cancelled on Finalize or after the
// maximum call duration elapses.
func (c *Controller) Context() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.callCtx
}
