package ai

import (
	"encoding/json"
	"fmt"

	"spendtrack/internal/domain"
)

// candidateSchemaPrompt describes the strict JSON shape both extraction
// calls must return.
const candidateSchemaPrompt = "Output STRICT JSON only (no comments, no trailing commas, no extra text).\n" +
	"Output a JSON array of objects, one per transaction found.\n\n" +
	"Each object must have these fields:\n" +
	"- \"item\": string, a short label for what was bought\n" +
	"- \"amount\": number, the amount spent (non-negative)\n" +
	"- \"category\": string, a short spending category (e.g. \"Groceries\", \"Transport\", \"Dining\")\n\n" +
	"If no transaction can be identified, output an empty array [].\n" +
	"Return ONLY valid raw JSON.\n" +
	"Do NOT wrap the response in code fences.\n" +
	"Do NOT use ```json or any Markdown.\n" +
	"Output must begin with \"[\" and end with \"]\".\n"

func buildTextExtractionPrompt(text, memoryContext string) string {
	basePrompt := "You are an expense extraction assistant for a personal spending tracker.\n\n" +
		"Task:\n" +
		"- Extract ALL spending transactions mentioned in the user's message.\n" +
		"- A message may contain zero, one or several transactions.\n\n"

	prompt := basePrompt + candidateSchemaPrompt

	if memoryContext != "" {
		prompt += "\nThe user has previously categorized these items; prefer the same category when an item matches:\n" +
			memoryContext + "\n"
	}

	prompt += fmt.Sprintf("\nUser message: %q\n", text)
	return prompt
}

func buildVisionExtractionPrompt() string {
	return "You are a receipt reader for a personal spending tracker.\n\n" +
		"Task:\n" +
		"- Read the attached receipt photo and extract every purchased line item,\n" +
		"  or a single transaction for the receipt total if line items are unreadable.\n\n" +
		candidateSchemaPrompt
}

func buildSummaryPrompt(question string, snapshot []domain.SnapshotEntry) (string, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("buildSummaryPrompt: marshal snapshot: %w", err)
	}

	return "You are a personal finance assistant. Answer the user's question using\n" +
		"ONLY the transaction list below. Keep the answer short and conversational.\n" +
		"Amounts are in the user's own currency; do not invent a currency symbol\n" +
		"beyond what the question implies.\n\n" +
		"Transactions (JSON):\n" + string(data) + "\n\n" +
		fmt.Sprintf("Question: %q\n", question), nil
}

func buildAdvicePrompt(snapshot []domain.SnapshotEntry) (string, error) {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("buildAdvicePrompt: marshal snapshot: %w", err)
	}

	return "You are a personal finance assistant. Look at the user's recent\n" +
		"transactions below and reply with ONE short, friendly observation about\n" +
		"their spending (a single sentence, no lists, no preamble).\n\n" +
		"Transactions (JSON):\n" + string(data) + "\n", nil
}
