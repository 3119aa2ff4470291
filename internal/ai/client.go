// Package ai wraps the remote Gemini calls the assistant depends on:
// text extraction, receipt vision extraction, spending summarization and
// the dashboard insight. All calls are one-shot; failures are returned to
// the caller, which degrades per its own rules. Nothing here retries.
package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"spendtrack/internal/domain"
)

// DefaultModelName is the Gemini model used for every call.
const DefaultModelName = "gemini-2.5-flash"

// Client is a thin wrapper over the GenAI SDK.
type Client struct {
	genai *genai.Client
	model string
	log   zerolog.Logger
}

// NewClient creates the Gemini client. The API key may be empty, in which
// case the SDK falls back to its own environment lookup.
func NewClient(ctx context.Context, apiKey string, log zerolog.Logger) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("ai.NewClient: create genai client: %w", err)
	}
	return &Client{genai: client, model: DefaultModelName, log: log}, nil
}

// ExtractText asks the model to pull transactions out of a free-form
// message. memoryContext biases category guesses with labels the user has
// used before; it may be empty.
func (c *Client) ExtractText(ctx context.Context, text, memoryContext string) ([]domain.Candidate, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildTextExtractionPrompt(text, memoryContext)},
			},
		},
	}

	raw, err := c.generate(ctx, contents)
	if err != nil {
		return nil, fmt.Errorf("ExtractText: %w", err)
	}
	candidates, err := DecodeCandidates(raw)
	if err != nil {
		return nil, fmt.Errorf("ExtractText: %w", err)
	}
	return candidates, nil
}

// ExtractImage asks the model to read transactions off a receipt photo.
func (c *Client) ExtractImage(ctx context.Context, data []byte, mimeType string) ([]domain.Candidate, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: buildVisionExtractionPrompt()},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     data,
					},
				},
			},
		},
	}

	raw, err := c.generate(ctx, contents)
	if err != nil {
		return nil, fmt.Errorf("ExtractImage: %w", err)
	}
	candidates, err := DecodeCandidates(raw)
	if err != nil {
		return nil, fmt.Errorf("ExtractImage: %w", err)
	}
	return candidates, nil
}

// Summarize answers a question about spending history from a bounded
// record snapshot. The answer is returned verbatim.
func (c *Client) Summarize(ctx context.Context, question string, snapshot []domain.SnapshotEntry) (string, error) {
	prompt, err := buildSummaryPrompt(question, snapshot)
	if err != nil {
		return "", fmt.Errorf("Summarize: %w", err)
	}

	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
	}
	raw, err := c.generate(ctx, contents)
	if err != nil {
		return "", fmt.Errorf("Summarize: %w", err)
	}
	return strings.TrimSpace(raw), nil
}

// Advise derives one short observation from a bounded record snapshot.
func (c *Client) Advise(ctx context.Context, snapshot []domain.SnapshotEntry) (string, error) {
	prompt, err := buildAdvicePrompt(snapshot)
	if err != nil {
		return "", fmt.Errorf("Advise: %w", err)
	}

	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: prompt}}},
	}
	raw, err := c.generate(ctx, contents)
	if err != nil {
		return "", fmt.Errorf("Advise: %w", err)
	}
	return strings.TrimSpace(raw), nil
}

func (c *Client) generate(ctx context.Context, contents []*genai.Content) (string, error) {
	resp, err := c.genai.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	raw := resp.Text()
	if raw == "" {
		return "", fmt.Errorf("empty response from model")
	}
	return raw, nil
}
