package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/propertyhub/voice-agent/internal/config"
	"github.com/propertyhub/voice-agent/internal/observability"
	"github.com/propertyhub/voice-agent/internal/resilience"
)

const maxHistoryTurns = 8

// OpenAIClient generates turns via an OpenAI-compatible chat-completions
// endpoint, requesting a JSON object response and decoding it into a
// TurnResponse. Any malformed or incomplete JSON falls back to DefaultResponse.
type OpenAIClient struct {
	client         oai.Client
	model          string
	temperature    float64
	maxTokens      int64
	circuitBreaker *resilience.CircuitBreaker
}

// NewOpenAIClient builds an OpenAIClient from configuration.
func NewOpenAIClient(cfg *config.Config) *OpenAIClient {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.OpenAIAPIKey),
	}
	if cfg.OpenAIBaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.OpenAIBaseURL))
	}
	reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: 10 * time.Second}))

	circuitBreaker := resilience.NewCircuitBreaker(
		"openai",
		cfg.CircuitBreakerMaxFailures,
		time.Duration(cfg.CircuitBreakerResetTimeout)*time.Second,
	)

	return &OpenAIClient{
		client:         oai.NewClient(reqOpts...),
		model:          cfg.LLMModel,
		temperature:    cfg.LLMTemperature,
		maxTokens:      int64(cfg.LLMMaxTokens),
		circuitBreaker: circuitBreaker,
	}
}

// GenerateTurn builds the chat-completion request, truncates history to the
// most recent maxHistoryTurns turns, and decodes the JSON response.
func (c *OpenAIClient) GenerateTurn(ctx context.Context, systemPrompt string, history []HistoryTurn, userInput string, leadCtx LeadContext) (*TurnResponse, error) {
	messages := []oai.ChatCompletionMessageParamUnion{
		oai.SystemMessage(systemPrompt),
	}

	recent := history
	if len(recent) > maxHistoryTurns {
		recent = recent[len(recent)-maxHistoryTurns:]
	}
	for _, turn := range recent {
		if turn.Role == "user" {
			messages = append(messages, oai.UserMessage(turn.Text))
		} else {
			messages = append(messages, oai.AssistantMessage(turn.Text))
		}
	}
	messages = append(messages, oai.UserMessage(userInput))

	params := oai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.model),
		Messages:    messages,
		Temperature: param.NewOpt(c.temperature),
		ResponseFormat: oai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}
	if c.maxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(c.maxTokens)
	}

	var turnResp *TurnResponse
	start := time.Now()
	err := c.circuitBreaker.Call(func() error {
		resp, callErr := c.client.Chat.Completions.New(ctx, params)
		if callErr != nil {
			return fmt.Errorf("llm: chat completion: %w", callErr)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("llm: empty choices in response")
		}

		raw := resp.Choices[0].Message.Content
		parsed, parseErr := decodeTurnResponse(raw)
		if parseErr != nil {
			observability.GetLogger().Warn().
				Err(parseErr).
				Str("raw_response", truncate(raw, 200)).
				Msg("llm: failed to parse turn response, using safe default")
			turnResp = DefaultResponse()
			return nil
		}
		turnResp = parsed
		return nil
	})

	observability.UpdateCircuitBreakerState("openai", int(c.circuitBreaker.GetState()))
	duration := time.Since(start)
	if err != nil {
		observability.IncrementCircuitBreakerFailures("openai")
		observability.GetLogger().Error().Err(err).Dur("duration", duration).Msg("llm: turn generation failed")
		return DefaultResponse(), nil
	}

	observability.GetLogger().Info().
		Str("intent", turnResp.Intent).
		Str("next_action", string(turnResp.NextAction)).
		Dur("duration", duration).
		Msg("llm: turn generated")

	return turnResp, nil
}

// decodeTurnResponse parses the model's JSON output and fills in any
// required fields it omitted, matching the teacher's tolerant-repair
// approach to imperfect JSON-mode output.
func decodeTurnResponse(raw string) (*TurnResponse, error) {
	var generic map[string]any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		return nil, fmt.Errorf("decode turn response: %w", err)
	}

	resp := &TurnResponse{
		Intent:       stringField(generic, "intent", "unclear"),
		NextAction:   NextAction(stringField(generic, "next_action", string(ActionRespond))),
		ResponseText: stringField(generic, "response_text", ""),
		ShouldEndCall: boolField(generic, "should_end_call"),
	}

	if extracted, ok := generic["extracted_data"].(map[string]any); ok {
		resp.ExtractedData = extracted
	} else {
		resp.ExtractedData = map[string]any{}
	}

	resp.LastQuestionAsked = stringField(generic, "last_question_asked", "")
	resp.QuestionType = stringField(generic, "question_type", "")
	resp.CustomerMidSentence = boolField(generic, "customer_mid_sentence")

	if resp.ResponseText == "" {
		return nil, fmt.Errorf("decode turn response: empty response_text")
	}

	return resp, nil
}

func stringField(m map[string]any, key, fallback string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func boolField(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
