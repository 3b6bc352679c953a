package domain

import (
	"encoding/json"
	"strings"
)

// Defaults applied when the backend output cannot be read as a draft list
const (
	DefaultExpression = ExpressionSmile
	DefaultAnimation  = AnimationTalking1
)

// DraftParseResult is either a well-formed draft list or the raw backend text
// kept as a single best-effort draft. Parsing never fails.
type DraftParseResult struct {
	Drafts   []ReplyDraft
	Fallback *RawTextFallback
}

// RawTextFallback holds backend output that was not a JSON array of drafts
type RawTextFallback struct {
	Raw    string
	Reason string
}

// Degraded reports whether the raw-text fallback variant was taken
func (r DraftParseResult) Degraded() bool {
	return r.Fallback != nil
}

// Items returns the drafts to enrich for either variant
func (r DraftParseResult) Items() []ReplyDraft {
	if r.Fallback != nil {
		return []ReplyDraft{{
			Text:             r.Fallback.Raw,
			FacialExpression: DefaultExpression,
			Animation:        DefaultAnimation,
		}}
	}
	return r.Drafts
}

// ParseDrafts reads backend output as a JSON array of drafts. Anything else,
// including a valid JSON value that is not an array, becomes a raw-text fallback.
func ParseDrafts(raw string) DraftParseResult {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "[") {
		var value any
		if err := json.Unmarshal([]byte(trimmed), &value); err != nil {
			return DraftParseResult{Fallback: &RawTextFallback{Raw: raw, Reason: err.Error()}}
		}
		return DraftParseResult{Fallback: &RawTextFallback{Raw: raw, Reason: "response is not a JSON array"}}
	}

	var drafts []ReplyDraft
	if err := json.Unmarshal([]byte(trimmed), &drafts); err != nil {
		return DraftParseResult{Fallback: &RawTextFallback{Raw: raw, Reason: err.Error()}}
	}
	if drafts == nil {
		drafts = []ReplyDraft{}
	}
	return DraftParseResult{Drafts: drafts}
}
