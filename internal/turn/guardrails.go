package turn

import (
	"regexp"
	"strings"

	"github.com/propertyhub/voice-agent/internal/domain"
	"github.com/propertyhub/voice-agent/internal/llm"
	"github.com/propertyhub/voice-agent/internal/observability"
)

// engagementSignals are phrases that indicate the customer is still engaged,
// used to veto a premature should_end_call.
var engagementSignals = []string{
	"how much", "when", "where", "what", "tell me",
	"interested", "show me", "visit", "see",
}

// fallbackQuestions are asked, in order, when the LLM repeats a recent
// question; the first one that isn't itself a repeat is used.
var fallbackQuestions = []string{
	"When are you ideally looking to move in?",
	"Have you started seeing any properties yet?",
	"Are you flexible with the location, or pretty set on this area?",
	"Is financing sorted, or would you need a home loan?",
}

const closingFallback = "Based on what you've told me, I think we have some great options. How about I arrange a site visit this weekend?"

// alreadyCollectedPatterns maps an extracted-data field to the question
// phrasings that would be redundant once that field is known, and the
// progression question to ask instead.
var alreadyCollectedPatterns = []struct {
	field       string
	patterns    []*regexp.Regexp
	progression string
}{
	{
		field: "purpose",
		patterns: compilePatterns(
			"own use or investment", "self-use or investment", "for yourself or investment",
			"living or investment", "stay or investment",
		),
		progression: "Got it. Have you started seeing any properties yet, or just exploring?",
	},
	{
		field:       "budget",
		patterns:    compilePatterns("budget", "price range", "how much", "spend"),
		progression: "Perfect! When are you ideally looking to move - next few months?",
	},
	{
		field:       "timeline",
		patterns:    compilePatterns(`when.*move`, `when.*looking to`, "how soon", "timeline"),
		progression: "Great! Should I arrange a site visit for you this weekend?",
	},
	{
		field:       "location",
		patterns:    compilePatterns("which area", "specific area", "location preference", "where exactly"),
		progression: "Cool! Are you flexible with the exact locality, or pretty set on this area?",
	},
	{
		field:       "property_type",
		patterns:    compilePatterns("how many bhk", "2bhk or 3bhk", "what size", "apartment or villa"),
		progression: "Right. Is financing sorted, or would you need a home loan?",
	},
}

func compilePatterns(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile("(?i)" + p)
	}
	return compiled
}

// ApplyGuardrails runs the deterministic post-LLM checks in order: empty
// reply, wrong agent name, still-engaged veto, recent-repetition block,
// already-collected-field block. It mutates resp.ResponseText/ShouldEndCall
// in place and returns the same pointer for convenience.
func ApplyGuardrails(resp *llm.TurnResponse, session *domain.ConversationSession, userInput, agentName string) *llm.TurnResponse {
	logger := observability.GetLogger()

	if strings.TrimSpace(resp.ResponseText) == "" {
		logger.Warn().Str("call_id", session.CallID).Msg("guardrail: empty LLM reply, using fallback")
		resp.ResponseText = "I'm here! Could you repeat that?"
		resp.ShouldEndCall = false
	}

	if DetectWrongName(userInput) && resp.ShouldEndCall {
		logger.Warn().Str("call_id", session.CallID).Msg("guardrail: overriding premature exit due to wrong name")
		resp.ShouldEndCall = false
		if !strings.Contains(strings.ToLower(resp.ResponseText), strings.ToLower(agentName)) {
			resp.ResponseText = "I'm " + agentName + ", but no worries! " + resp.ResponseText
		}
	}

	if resp.ShouldEndCall && containsAnySignal(userInput, engagementSignals) {
		logger.Warn().Str("call_id", session.CallID).Msg("guardrail: overriding exit, customer still engaged")
		resp.ShouldEndCall = false
	}

	recentAgentResponses := recentAgentTurns(session, 3)
	if isRecentRepetition(resp.ResponseText, recentAgentResponses) {
		logger.Warn().Str("call_id", session.CallID).Str("blocked_response", truncate(resp.ResponseText, 100)).Msg("guardrail: blocking repetitive response")
		resp.ResponseText = closingFallback
		for _, candidate := range fallbackQuestions {
			if !isRecentRepetition(candidate, recentAgentResponses) {
				resp.ResponseText = candidate
				break
			}
		}
	}

	if strings.Contains(resp.ResponseText, "?") {
		responseLower := strings.ToLower(resp.ResponseText)
		for _, ac := range alreadyCollectedPatterns {
			if !session.HasField(ac.field) {
				continue
			}
			for _, pattern := range ac.patterns {
				if pattern.MatchString(responseLower) {
					logger.Warn().
						Str("call_id", session.CallID).
						Str("field", ac.field).
						Msg("guardrail: replacing repetitive question about already-collected field")
					resp.ResponseText = ac.progression
					break
				}
			}
		}
	}

	if resp.LastQuestionAsked != "" {
		session.LastQuestionAsked = resp.LastQuestionAsked
		session.LastQuestionType = domain.QuestionType(resp.QuestionType)
	}

	return resp
}

func containsAnySignal(text string, signals []string) bool {
	lower := strings.ToLower(text)
	for _, s := range signals {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

func recentAgentTurns(session *domain.ConversationSession, n int) []string {
	recent := session.RecentHistory(n * 2)
	var agentTexts []string
	for _, t := range recent {
		if t.Role == "agent" {
			agentTexts = append(agentTexts, strings.ToLower(t.Text))
		}
	}
	if len(agentTexts) > n {
		agentTexts = agentTexts[len(agentTexts)-n:]
	}
	return agentTexts
}

// isRecentRepetition reports whether candidate matches a recent agent
// response either exactly or via Jaccard word-set similarity >= 0.80.
// Jaccard is |A∩B|/|A∪B| — a deliberate choice over overlap/max(|A|,|B|),
// which overstates similarity whenever the two sets differ in size.
func isRecentRepetition(candidate string, recentResponses []string) bool {
	candidateLower := strings.ToLower(strings.TrimSpace(candidate))
	candidateWords := wordSet(candidateLower)

	for _, past := range recentResponses {
		if candidateLower == strings.TrimSpace(past) {
			return true
		}

		pastWords := wordSet(past)
		if len(candidateWords) > 3 && len(pastWords) > 3 {
			if jaccardSimilarity(candidateWords, pastWords) >= 0.80 {
				return true
			}
		}
	}
	return false
}

func wordSet(text string) map[string]struct{} {
	words := strings.Fields(text)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func jaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if _, ok := b[w]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
