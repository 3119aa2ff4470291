package ai

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"spendtrack/internal/domain"
)

// defaultCategory is used when the model omits or blanks the category.
const defaultCategory = "Other"

// DecodeCandidates parses the model's raw text into validated candidates.
// Structural problems (not a JSON array, elements that are not objects)
// fail the whole batch. Individual candidates with an empty item or a
// negative or non-finite amount are rejected; bad extraction output must
// not reach storage.
func DecodeCandidates(raw string) ([]domain.Candidate, error) {
	clean := cleanModelJSON(raw)

	var parsed []interface{}
	if err := json.Unmarshal([]byte(clean), &parsed); err != nil {
		return nil, fmt.Errorf("DecodeCandidates: unmarshal JSON: %w\nraw response: %s", err, raw)
	}

	candidates := make([]domain.Candidate, 0, len(parsed))
	for i, item := range parsed {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("DecodeCandidates: element %d is %T, want object", i, item)
		}

		label, err := getStringField(obj, "item", true)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		amount, err := getFloat64Field(obj, "amount", true)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		category, err := getStringField(obj, "category", false)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}

		c := domain.Candidate{
			Item:     strings.TrimSpace(label),
			Amount:   amount,
			Category: strings.TrimSpace(category),
		}
		if c.Category == "" {
			c.Category = defaultCategory
		}
		if !validCandidate(c) {
			continue
		}
		candidates = append(candidates, c)
	}

	return candidates, nil
}

// validCandidate rejects candidates the ledger must never see: blank
// labels, negative amounts and non-finite amounts.
func validCandidate(c domain.Candidate) bool {
	if c.Item == "" {
		return false
	}
	if c.Amount < 0 || math.IsNaN(c.Amount) || math.IsInf(c.Amount, 0) {
		return false
	}
	return true
}

// cleanModelJSON strips Markdown fences and surrounding junk when the
// model ignores the raw-JSON instruction.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}

	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}

	s = strings.TrimSpace(s)

	// If there's still junk around the JSON array, keep only the span from
	// the first '[' to the last ']'.
	if start := strings.Index(s, "["); start != -1 {
		if end := strings.LastIndex(s, "]"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}

	return s
}

func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	switch val := v.(type) {
	case string:
		if required && strings.TrimSpace(val) == "" {
			return "", fmt.Errorf("required field %q is empty", key)
		}
		return val, nil
	default:
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
}

func getFloat64Field(m map[string]interface{}, key string, required bool) (float64, error) {
	v, ok := m[key]
	if !ok {
		if required {
			return 0, fmt.Errorf("missing required field %q", key)
		}
		return 0, nil
	}
	switch val := v.(type) {
	case float64:
		return val, nil
	case int: // unlikely from encoding/json, but harmless to support
		return float64(val), nil
	default:
		return 0, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}
