package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultModel = "gemini-2.5-flash"

type GeminiCoach struct {
	client *genai.Client
	model  string
}

func NewGeminiCoach(ctx context.Context, apiKey, model string) (*GeminiCoach, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiCoach{client: client, model: model}, nil
}

func (c *GeminiCoach) Stream(ctx context.Context, req Request, emit func(chunk string) error) error {
	if err := req.Validate(); err != nil {
		return err
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: SystemPrompt(req.Snapshot)}},
		},
	}
	for resp, err := range c.client.Models.GenerateContentStream(ctx, c.model, buildContents(req), config) {
		if err != nil {
			return fmt.Errorf("generate content: %w", err)
		}
		text := responseText(resp)
		if text == "" {
			continue
		}
		if err := emit(text); err != nil {
			return err
		}
	}
	return nil
}

func buildContents(req Request) []*genai.Content {
	history := trimHistory(req.History)
	contents := make([]*genai.Content, 0, len(history)+1)
	for _, msg := range history {
		if strings.TrimSpace(msg.Content) == "" {
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  normalizeRole(msg.Role),
			Parts: []*genai.Part{{Text: msg.Content}},
		})
	}
	parts := []*genai.Part{{Text: req.Message}}
	if req.Image != nil {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{MIMEType: req.Image.MIMEType, Data: req.Image.Data},
		})
	}
	return append(contents, &genai.Content{Role: RoleUser, Parts: parts})
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	return b.String()
}
