package turn

import (
	"regexp"
	"strings"
)

// technicalPatterns catches questions about the call itself (audio quality,
// whether the line is connected) so a canned acknowledgement can be prefixed
// to the LLM's reply.
var technicalPatterns = []struct {
	pattern  *regexp.Regexp
	response string
}{
	{regexp.MustCompile(`(?i)\b(am i|can you hear|do you hear|am i audible)\b`), "Haan, I can hear you clearly! "},
	{regexp.MustCompile(`(?i)\b(hello|are you there|you there)\b`), "Haan, I'm here! "},
	{regexp.MustCompile(`(?i)\b(can you understand|are you listening)\b`), "Yes yes, perfectly! "},
}

// fillerWords indicate the customer trailed off rather than finished a thought.
var fillerWords = []string{
	"like", "umm", "uh", "so", "basically",
	"you know", "i mean", "well", "actually",
}

// wrongNamePattern matches a customer addressing the agent by the wrong name.
var wrongNamePattern = regexp.MustCompile(`(?i)\b(amit|rahul|priya|ravi|sanjay|raj)\b`)
var wrongNameGreetingPattern = regexp.MustCompile(`(?i)(hi|hello|hey)\s+(amit|rahul|priya|ravi|sanjay|raj)\b`)

// PreprocessResult is what the preprocessor found in a user utterance before
// it reaches the LLM.
type PreprocessResult struct {
	ResponsePrefix string
	IsTechnical    bool
	IsMidSentence  bool
}

// PreprocessUserInput scans for technical questions and mid-sentence cues
// that should shape how the turn controller handles this utterance.
func PreprocessUserInput(userInput string) PreprocessResult {
	if userInput == "" {
		return PreprocessResult{}
	}

	lower := strings.ToLower(strings.TrimSpace(userInput))

	for _, tp := range technicalPatterns {
		if tp.pattern.MatchString(lower) {
			return PreprocessResult{ResponsePrefix: tp.response, IsTechnical: true}
		}
	}

	return PreprocessResult{IsMidSentence: isMidSentence(userInput)}
}

func isMidSentence(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))

	for _, filler := range fillerWords {
		if strings.HasSuffix(lower, filler) ||
			strings.HasSuffix(lower, filler+",") ||
			strings.HasSuffix(lower, filler+"...") {
			return true
		}
	}

	trimmed := strings.TrimSpace(text)
	if strings.HasSuffix(trimmed, "...") || strings.HasSuffix(trimmed, ",") ||
		strings.HasSuffix(lower, "like") || strings.HasSuffix(lower, "like,") {
		return true
	}

	words := strings.Fields(lower)
	if len(words) <= 3 {
		for _, w := range words {
			for _, filler := range fillerWords {
				if w == filler {
					return true
				}
			}
		}
	}

	return false
}

// DetectWrongName reports whether the customer greeted the agent ("hi",
// "hello" or "hey") followed by one of a fixed list of names. It does not
// compare against the agent name configured for the call.
func DetectWrongName(userInput string) bool {
	return wrongNameGreetingPattern.MatchString(strings.ToLower(userInput))
}

// ShouldWaitForCompletion reports whether the turn controller should hold
// off responding because the customer likely hasn't finished speaking.
func ShouldWaitForCompletion(userInput string, agentIsSpeaking bool) bool {
	words := strings.Fields(strings.TrimSpace(userInput))
	if agentIsSpeaking && len(words) < 3 {
		return true
	}
	return isMidSentence(userInput)
}
