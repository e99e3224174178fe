package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"message-triage/internal/models"

	"github.com/go-playground/validator/v10"
)

// wireResult is the loosely typed classifier payload. Pointers and nil
// slices let the validator tell a missing field from a zero value.
type wireResult struct {
	Label            *string   `json:"label" validate:"required,oneof=Safe Suspicious Phishing"`
	Score            *int      `json:"score" validate:"required,min=0,max=100"`
	Language         *string   `json:"language" validate:"required,notblank"`
	Reasoning        *string   `json:"reasoning" validate:"required,notblank"`
	TriggeredRules   []*string `json:"triggeredRules" validate:"required,dive,required,notblank"`
	ThreatType       *string   `json:"threatType" validate:"required"`
	HighlightedTerms []*string `json:"highlightedTerms" validate:"required,dive,required,notblank"`
}

// schemaFields are the exact key names of the verdict object
var schemaFields = []string{
	"label", "score", "language", "reasoning", "triggeredRules", "threatType", "highlightedTerms",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// stripCodeFence removes a surrounding markdown code block if present
func stripCodeFence(text string) string {
	clean := strings.TrimSpace(text)
	if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```json")
		clean = strings.TrimPrefix(clean, "```JSON")
		clean = strings.TrimPrefix(clean, "```")
		clean = strings.TrimSuffix(clean, "```")
	}
	return strings.TrimSpace(clean)
}

// Decode parses raw classifier text into a validated AnalysisResult. It
// never returns a partially populated result.
func Decode(raw string) (*models.AnalysisResult, error) {
	clean := stripCodeFence(raw)
	if clean == "" {
		return nil, errors.New("empty classifier response")
	}

	dec := json.NewDecoder(strings.NewReader(clean))
	var fields map[string]json.RawMessage
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("failed to parse classifier JSON: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after classifier JSON object")
	}
	if err := checkFieldNames(fields); err != nil {
		return nil, err
	}

	var wire wireResult
	if err := json.Unmarshal([]byte(clean), &wire); err != nil {
		return nil, fmt.Errorf("failed to parse classifier JSON: %w", err)
	}

	if err := validate.Struct(&wire); err != nil {
		return nil, fmt.Errorf("invalid classifier response: %w", describeValidation(err))
	}

	return &models.AnalysisResult{
		Label:            models.Label(*wire.Label),
		Score:            *wire.Score,
		Language:         *wire.Language,
		Reasoning:        *wire.Reasoning,
		TriggeredRules:   derefAll(wire.TriggeredRules),
		ThreatType:       *wire.ThreatType,
		HighlightedTerms: derefAll(wire.HighlightedTerms),
	}, nil
}

// checkFieldNames rejects keys that only match a schema field when case is
// ignored. Unrelated extra keys are allowed.
func checkFieldNames(fields map[string]json.RawMessage) error {
	for key := range fields {
		for _, name := range schemaFields {
			if key != name && strings.EqualFold(key, name) {
				return fmt.Errorf("field %q does not match %q", key, name)
			}
		}
	}
	return nil
}

func derefAll(values []*string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = *v
	}
	return out
}

func describeValidation(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	parts := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return errors.New(strings.Join(parts, "; "))
}
