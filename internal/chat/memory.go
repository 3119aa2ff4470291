package chat

import (
	"strings"

	"spendtrack/internal/domain"
)

// memoryContextLimit caps how many distinct item labels are fed back to
// the text-extraction call.
const memoryContextLimit = 50

// BuildMemoryContext builds the item-to-category lookup given to text
// extraction so the model reuses categories the user has seen before.
// Labels are lowercased; only the first category ever recorded for a label
// is kept; the first memoryContextLimit distinct labels, oldest first, make
// the cut. The history arrives newest first, so it is walked from the end.
// Returns an empty string when there is no history.
func BuildMemoryContext(history []domain.Record) string {
	categories := make(map[string]string)
	order := make([]string, 0, memoryContextLimit)

	for i := len(history) - 1; i >= 0; i-- {
		r := history[i]
		label := strings.ToLower(strings.TrimSpace(r.Item))
		if label == "" {
			continue
		}
		if _, seen := categories[label]; seen {
			continue
		}
		if len(order) == memoryContextLimit {
			break
		}
		categories[label] = strings.TrimSpace(r.Category)
		order = append(order, label)
	}

	var b strings.Builder
	for _, label := range order {
		b.WriteString("- ")
		b.WriteString(label)
		b.WriteString(": ")
		b.WriteString(categories[label])
		b.WriteString("\n")
	}
	return b.String()
}
