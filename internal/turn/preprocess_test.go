package turn

import "testing"

func TestPreprocessUserInput_TechnicalQuestion(t *testing.T) {
	result := PreprocessUserInput("hello can you hear me okay?")
	if !result.IsTechnical {
		t.Error("expected technical question to be detected")
	}
	if result.ResponsePrefix == "" {
		t.Error("expected a canned response prefix for a technical question")
	}
}

func TestPreprocessUserInput_NonTechnical(t *testing.T) {
	result := PreprocessUserInput("I'm looking for a 2BHK in Whitefield")
	if result.IsTechnical {
		t.Error("did not expect a normal utterance to be flagged as technical")
	}
	if result.ResponsePrefix != "" {
		t.Error("did not expect a response prefix for a non-technical utterance")
	}
}

func TestPreprocessUserInput_Empty(t *testing.T) {
	result := PreprocessUserInput("")
	if result.IsTechnical || result.IsMidSentence || result.ResponsePrefix != "" {
		t.Error("expected zero-value result for empty input")
	}
}

func TestIsMidSentence_TrailingFiller(t *testing.T) {
	if !isMidSentence("I was thinking, like") {
		t.Error("expected trailing filler word to indicate mid-sentence")
	}
}

func TestIsMidSentence_TrailingEllipsis(t *testing.T) {
	if !isMidSentence("so basically I wanted to ask...") {
		t.Error("expected trailing ellipsis to indicate mid-sentence")
	}
}

func TestIsMidSentence_CompleteThought(t *testing.T) {
	if isMidSentence("I want a 3BHK apartment in Koramangala under 1.5 crore") {
		t.Error("did not expect a complete sentence to be flagged as mid-sentence")
	}
}

func TestIsMidSentence_ShortFillerOnly(t *testing.T) {
	if !isMidSentence("umm so") {
		t.Error("expected a short filler-only utterance to be flagged as mid-sentence")
	}
}

func TestDetectWrongName_GreetingPrefixRequired(t *testing.T) {
	if !DetectWrongName("hi Rahul, is this the right number?") {
		t.Error("expected greeting + name to be detected as wrong-name address")
	}
}

func TestDetectWrongName_NameWithoutGreetingNotFlagged(t *testing.T) {
	// Matches the stricter Python-derived behavior: a bare name mention without
	// a preceding greeting word is not treated as a wrong-name address.
	if DetectWrongName("my neighbor Rahul also asked about this property") {
		t.Error("did not expect a bare name mention without greeting to be flagged")
	}
}

func TestDetectWrongName_NoNameMentioned(t *testing.T) {
	if DetectWrongName("hi there, sure tell me more") {
		t.Error("did not expect a greeting with no name at all to be flagged")
	}
}

func TestShouldWaitForCompletion_ShortWhileSpeaking(t *testing.T) {
	if !ShouldWaitForCompletion("yeah but", true) {
		t.Error("expected a short interjection while agent is speaking to wait for completion")
	}
}

func TestShouldWaitForCompletion_MidSentence(t *testing.T) {
	if !ShouldWaitForCompletion("I was wondering, like", false) {
		t.Error("expected mid-sentence cue to require waiting even when agent isn't speaking")
	}
}

func TestShouldWaitForCompletion_CompleteUtterance(t *testing.T) {
	if ShouldWaitForCompletion("Yes, that works for me", false) {
		t.Error("did not expect a complete utterance to require waiting")
	}
}
