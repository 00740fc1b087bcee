// Package gemini implements the completion client: one non-streaming request
// per query, with a fixed structured-output schema matching the lead-research
// result shape.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/leadscout/leadscout/pkg/leads"
)

const systemInstruction = `You are a professional research assistant providing high-quality business leads.
Use clear, natural human language.

STRICT RULES ON OUTPUT:
- NEVER use AI jargon, intelligence buzzwords, or technical system language.
- NEVER output raw markdown symbols like **asterisks** or double quotes in the summary text.
- Use natural text formatting.
- In TEXT mode, if comparing data, render clean Markdown tables.

LEAD QUANTITY RULE:
- In LEAD mode, return AT LEAST 7 leads. Target 7-12.
- Use as many tokens as needed for rich, accurate data. Never truncate.

CONTINUITY:
- Respect the chat history. Maintain context for follow-up refinements.

SCORING LOGIC (1-100):
- Match Strength: Intent and industry alignment.
- Market Traction: Momentum and growth signals.

OUTPUT MUST BE STRICTLY VALID JSON.`

// Client sends lead-research completions to the Gemini API.
type Client struct {
	client          *genai.Client
	model           string
	maxOutputTokens int32
	thinkingBudget  int32
}

// Options tune the completion call. Zero values fall back to defaults that
// match the completion contract: 3000 output tokens, a 400-token thinking
// budget.
type Options struct {
	Model           string
	MaxOutputTokens int32
	ThinkingBudget  int32
}

func NewClient(ctx context.Context, apiKey string, opts Options) (*Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini API client: %w", err)
	}

	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}
	if opts.MaxOutputTokens == 0 {
		opts.MaxOutputTokens = 3000
	}
	if opts.ThinkingBudget == 0 {
		opts.ThinkingBudget = 400
	}

	return &Client{
		client:          client,
		model:           opts.Model,
		maxOutputTokens: opts.MaxOutputTokens,
		thinkingBudget:  opts.ThinkingBudget,
	}, nil
}

// Complete sends the query with the rolling history and returns the raw text
// payload. The payload is expected to be JSON matching the response schema but
// is not guaranteed to be — truncation and prose wrapping happen, which is why
// callers run it through the salvage layer. Transport and provider errors
// propagate unchanged; there is no retry or backoff here.
func (c *Client) Complete(ctx context.Context, query string, history []leads.ChatMessage) (string, error) {
	prompt, err := BuildPrompt(query, history)
	if err != nil {
		return "", err
	}

	temp := float32(0.1)
	resp, err := c.client.Models.GenerateContent(ctx, c.model, []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
		Temperature:      &temp,
		MaxOutputTokens:  c.maxOutputTokens,
		ThinkingConfig:   &genai.ThinkingConfig{ThinkingBudget: &c.thinkingBudget},
	})
	if err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("completion returned no candidates")
	}

	// Concatenate text parts; truncated responses can still split text.
	var raw string
	for _, p := range resp.Candidates[0].Content.Parts {
		raw += p.Text
	}
	return raw, nil
}

// BuildPrompt concatenates the fixed system-instruction block, the serialized
// rolling history and the current query into the single user turn the
// completion contract calls for.
func BuildPrompt(query string, history []leads.ChatMessage) (string, error) {
	if history == nil {
		history = []leads.ChatMessage{}
	}
	serialized, err := json.Marshal(history)
	if err != nil {
		return "", fmt.Errorf("failed to serialize chat history: %w", err)
	}
	return fmt.Sprintf("System Context: %s\n\nSearch Context: %s\n\nCurrent Request: %s",
		systemInstruction, serialized, query), nil
}
