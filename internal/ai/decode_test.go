package ai

import (
	"testing"
)

func TestDecodeCandidates(t *testing.T) {
	raw := `[
		{"item": "Groceries", "amount": 200, "category": "Groceries"},
		{"item": "Coffee", "amount": 3.5, "category": "Dining"}
	]`

	candidates, err := DecodeCandidates(raw)
	if err != nil {
		t.Fatalf("DecodeCandidates failed: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(candidates))
	}
	if candidates[0].Item != "Groceries" || candidates[0].Amount != 200 {
		t.Errorf("unexpected first candidate: %+v", candidates[0])
	}
}

func TestDecodeCandidates_EmptyArray(t *testing.T) {
	candidates, err := DecodeCandidates("[]")
	if err != nil {
		t.Fatalf("DecodeCandidates failed: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("expected no candidates, got %d", len(candidates))
	}
}

func TestDecodeCandidates_CodeFences(t *testing.T) {
	raw := "```json\n[{\"item\": \"Bus ticket\", \"amount\": 2, \"category\": \"Transport\"}]\n```"

	candidates, err := DecodeCandidates(raw)
	if err != nil {
		t.Fatalf("DecodeCandidates failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Item != "Bus ticket" {
		t.Errorf("unexpected candidates: %+v", candidates)
	}
}

func TestDecodeCandidates_RejectsBadAmounts(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"negative amount", `[{"item": "refund", "amount": -50, "category": "Misc"}]`},
		{"blank item", `[{"item": "   ", "amount": 10, "category": "Misc"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidates, err := DecodeCandidates(tt.raw)
			if err != nil {
				t.Fatalf("DecodeCandidates failed: %v", err)
			}
			if len(candidates) != 0 {
				t.Errorf("expected candidate to be rejected, got %+v", candidates)
			}
		})
	}
}

func TestDecodeCandidates_DefaultsCategory(t *testing.T) {
	candidates, err := DecodeCandidates(`[{"item": "mystery", "amount": 5}]`)
	if err != nil {
		t.Fatalf("DecodeCandidates failed: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Category != defaultCategory {
		t.Errorf("expected default category, got %+v", candidates)
	}
}

func TestDecodeCandidates_StructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not JSON", "sorry, I could not parse that"},
		{"array of scalars", `[1, 2, 3]`},
		{"wrong amount type", `[{"item": "coffee", "amount": "3.50", "category": "Dining"}]`},
		{"missing item", `[{"amount": 10, "category": "Misc"}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeCandidates(tt.raw); err == nil {
				t.Error("expected an error, got nil")
			}
		})
	}
}

func TestCleanModelJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain array", `[{"a":1}]`, `[{"a":1}]`},
		{"fenced", "```json\n[1]\n```", "[1]"},
		{"fenced no language", "```\n[1]\n```", "[1]"},
		{"prose around array", "Here you go: [1] hope that helps", "[1]"},
		{"whitespace", "  [1]  ", "[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cleanModelJSON(tt.input); got != tt.want {
				t.Errorf("cleanModelJSON(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
