package analysis

import (
	"testing"

	"message-triage/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validVerdict = `{
  "label": "Phishing",
  "score": 92,
  "language": "Hinglish",
  "reasoning": "Promises a lottery prize and asks for bank details.",
  "triggeredRules": ["Reward", "BadLink"],
  "threatType": "Lottery Scam",
  "highlightedTerms": ["lottery prize", "Bank Details"]
}`

func TestDecode_Valid(t *testing.T) {
	result, err := Decode(validVerdict)
	require.NoError(t, err)

	assert.Equal(t, &models.AnalysisResult{
		Label:            models.LabelPhishing,
		Score:            92,
		Language:         "Hinglish",
		Reasoning:        "Promises a lottery prize and asks for bank details.",
		TriggeredRules:   []string{"Reward", "BadLink"},
		ThreatType:       "Lottery Scam",
		HighlightedTerms: []string{"lottery prize", "Bank Details"},
	}, result)
}

func TestDecode_CodeFences(t *testing.T) {
	for _, raw := range []string{
		"```json\n" + validVerdict + "\n```",
		"```\n" + validVerdict + "\n```",
		"\n\n" + validVerdict + "  ",
	} {
		result, err := Decode(raw)
		require.NoError(t, err)
		assert.Equal(t, models.LabelPhishing, result.Label)
	}
}

func TestDecode_EmptyArraysAllowed(t *testing.T) {
	result, err := Decode(`{"label":"Safe","score":0,"language":"English","reasoning":"Routine OTP-free reminder.","triggeredRules":[],"threatType":"None","highlightedTerms":[]}`)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Score)
	assert.Empty(t, result.TriggeredRules)
	assert.NotNil(t, result.TriggeredRules)
}

func TestDecode_HighlightedTermsNotCheckedAgainstMessage(t *testing.T) {
	result, err := Decode(`{"label":"Suspicious","score":45,"language":"Tamil","reasoning":"r","triggeredRules":["Urgency"],"threatType":"Banking Fraud","highlightedTerms":["phrase not in any message"]}`)
	require.NoError(t, err)
	assert.Equal(t, []string{"phrase not in any message"}, result.HighlightedTerms)
}

func TestDecode_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"score above range", `{"label":"Phishing","score":150,"language":"English","reasoning":"r","triggeredRules":[],"threatType":"t","highlightedTerms":[]}`},
		{"score below range", `{"label":"Safe","score":-1,"language":"English","reasoning":"r","triggeredRules":[],"threatType":"t","highlightedTerms":[]}`},
		{"fractional score", `{"label":"Safe","score":12.5,"language":"English","reasoning":"r","triggeredRules":[],"threatType":"t","highlightedTerms":[]}`},
		{"score as string", `{"label":"Safe","score":"12","language":"English","reasoning":"r","triggeredRules":[],"threatType":"t","highlightedTerms":[]}`},
		{"unknown label", `{"label":"Unknown","score":50,"language":"English","reasoning":"r","triggeredRules":[],"threatType":"t","highlightedTerms":[]}`},
		{"lowercase label", `{"label":"phishing","score":80,"language":"English","reasoning":"r","triggeredRules":[],"threatType":"t","highlightedTerms":[]}`},
		{"missing score", `{"label":"Safe","language":"English","reasoning":"r","triggeredRules":[],"threatType":"t","highlightedTerms":[]}`},
		{"missing label", `{"score":10,"language":"English","reasoning":"r","triggeredRules":[],"threatType":"t","highlightedTerms":[]}`},
		{"null language", `{"label":"Safe","score":10,"language":null,"reasoning":"r","triggeredRules":[],"threatType":"t","highlightedTerms":[]}`},
		{"blank reasoning", `{"label":"Safe","score":10,"language":"English","reasoning":"  ","triggeredRules":[],"threatType":"t","highlightedTerms":[]}`},
		{"missing rules", `{"label":"Safe","score":10,"language":"English","reasoning":"r","threatType":"t","highlightedTerms":[]}`},
		{"missing threat type", `{"label":"Safe","score":10,"language":"English","reasoning":"r","triggeredRules":[],"highlightedTerms":[]}`},
		{"missing terms", `{"label":"Safe","score":10,"language":"English","reasoning":"r","triggeredRules":[],"threatType":"t"}`},
		{"rules not array", `{"label":"Safe","score":10,"language":"English","reasoning":"r","triggeredRules":"Urgency","threatType":"t","highlightedTerms":[]}`},
		{"not json", `The message looks like phishing.`},
		{"array", `[{"label":"Safe"}]`},
		{"two objects", validVerdict + validVerdict},
		{"extra closing brace", validVerdict + "}"},
		{"trailing garbage", validVerdict + " ok"},
		{"uppercase keys", `{"LABEL":"Safe","SCORE":5,"language":"English","reasoning":"r","triggeredRules":[],"threatType":"t","highlightedTerms":[]}`},
		{"mixed case key", `{"label":"Safe","score":5,"language":"English","reasoning":"r","TriggeredRules":[],"threatType":"t","highlightedTerms":[]}`},
		{"null rule", `{"label":"Safe","score":5,"language":"English","reasoning":"r","triggeredRules":[null],"threatType":"t","highlightedTerms":[]}`},
		{"null term", `{"label":"Safe","score":5,"language":"English","reasoning":"r","triggeredRules":[],"threatType":"t","highlightedTerms":["ok",null]}`},
		{"blank rule", `{"label":"Safe","score":5,"language":"English","reasoning":"r","triggeredRules":[""],"threatType":"t","highlightedTerms":[]}`},
		{"null payload", `null`},
		{"empty", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Decode(tt.raw)
			require.Error(t, err)
			assert.Nil(t, result, "no partial result on failure")
		})
	}
}

func TestDecode_UnknownFieldsIgnored(t *testing.T) {
	result, err := Decode(`{"label":"Safe","score":5,"language":"English","reasoning":"r","triggeredRules":[],"threatType":"t","highlightedTerms":[],"confidence":0.9}`)
	require.NoError(t, err)
	assert.Equal(t, models.LabelSafe, result.Label)
}

func TestDecode_ErrorNamesField(t *testing.T) {
	_, err := Decode(`{"label":"Phishing","score":150,"language":"English","reasoning":"r","triggeredRules":[],"threatType":"t","highlightedTerms":[]}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "score failed max=100")
}

func TestDecode_ErrorNamesListElement(t *testing.T) {
	_, err := Decode(`{"label":"Safe","score":5,"language":"English","reasoning":"r","triggeredRules":["Urgency",null],"threatType":"t","highlightedTerms":[]}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "triggeredRules[1] failed required")
}
