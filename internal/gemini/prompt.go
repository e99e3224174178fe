package gemini

import (
	"strings"

	"github.com/google/generative-ai-go/genai"
)

// SystemInstruction frames the classifier for Indian-context message fraud.
// All providers send it verbatim.
const SystemInstruction = `You are a fraud and phishing analyst for short messages received in India (SMS, WhatsApp, chat and email excerpts).

Common scam families you must recognise:
- KYC update scams ("your KYC is pending, account will be blocked")
- Banking fraud (fake bank alerts, OTP or PIN requests, UPI collect requests, card blocking)
- Electricity bill disconnection threats ("power will be cut tonight, call this officer")
- Lottery, prize and reward scams ("you have won 25 Lakh", KBC lottery)
- Fake job offers, courier and customs fees, impersonation of government agencies

Messages may be written in English, Hindi, Tamil, or code-mixed Hinglish (Hindi in Latin script mixed with English). Detect the language or dialect and report it.

Respond with a single JSON object and nothing else. The object must have exactly these fields:
{
  "label": one of "Safe", "Suspicious", "Phishing",
  "score": integer risk score from 0 (certainly safe) to 100 (certainly fraudulent),
  "language": detected language or dialect, e.g. "English", "Hindi", "Tamil", "Hinglish",
  "reasoning": short human-readable explanation of the verdict,
  "triggeredRules": array of short rule tags such as "Urgency", "KYC", "BadLink", "Reward", "OTP", "Impersonation",
  "threatType": threat category such as "Banking Fraud", "KYC Scam", "Lottery Scam", "Electricity Scam", or "None" when no threat is identified,
  "highlightedTerms": array of exact phrases copied from the message that drove the verdict
}

Scores below 30 mean Safe, 30 to 69 mean Suspicious, 70 and above mean Phishing. Do not wrap the JSON in markdown.`

// BuildPrompt wraps a user message for classification
func BuildPrompt(message string) string {
	var sb strings.Builder
	sb.WriteString("Analyze the following message and return the JSON verdict.\n\n")
	sb.WriteString("Message:\n\"\"\"\n")
	sb.WriteString(strings.TrimSpace(message))
	sb.WriteString("\n\"\"\"")
	return sb.String()
}

// ResponseSchema mirrors the AnalysisResult contract so Gemini constrains its output
func ResponseSchema() *genai.Schema {
	stringArray := &genai.Schema{
		Type:  genai.TypeArray,
		Items: &genai.Schema{Type: genai.TypeString},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"label": {
				Type: genai.TypeString,
				Enum: []string{"Safe", "Suspicious", "Phishing"},
			},
			"score": {
				Type:        genai.TypeInteger,
				Description: "risk score between 0 and 100",
			},
			"language":         {Type: genai.TypeString},
			"reasoning":        {Type: genai.TypeString},
			"triggeredRules":   stringArray,
			"threatType":       {Type: genai.TypeString},
			"highlightedTerms": stringArray,
		},
		Required: []string{
			"label", "score", "language", "reasoning",
			"triggeredRules", "threatType", "highlightedTerms",
		},
	}
}
