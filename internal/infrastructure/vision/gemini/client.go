package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"github.com/olgamyk/outfit-shopper/internal/core/ports"
	"github.com/olgamyk/outfit-shopper/internal/infrastructure/resilience"
)

// Client adapts the Gemini generative API to the vision port. The genai
// client is injected so one connection serves every model consumer and
// tests can run against a recorded transport.
type Client struct {
	genai    *genai.Client
	model    string
	executor *resilience.Executor
}

type Options struct {
	// Model is the Gemini model name, e.g. "gemini-2.5-flash-image".
	Model string
	// ResilienceExecutor wraps generation calls with retry and a circuit
	// breaker. Optional; calls go out unprotected without it.
	ResilienceExecutor *resilience.Executor
}

func New(client *genai.Client, options Options) (*Client, error) {
	if client == nil {
		return nil, fmt.Errorf("gemini: nil genai client")
	}
	model := strings.TrimSpace(options.Model)
	if model == "" {
		return nil, fmt.Errorf("gemini: model name is required")
	}
	return &Client{
		genai:    client,
		model:    model,
		executor: options.ResilienceExecutor,
	}, nil
}

func (c *Client) Generate(ctx context.Context, prompt string, images []ports.ImageInput) (*ports.GenerationResult, error) {
	parts := make([]genai.Part, 0, len(images)+1)
	parts = append(parts, genai.Text(prompt))
	for _, image := range images {
		parts = append(parts, &genai.Blob{MIMEType: image.MIMEType, Data: image.Data})
	}

	model := c.genai.GenerativeModel(c.model)
	model.GenerationConfig = genai.GenerationConfig{
		Temperature: ptrFloat32(0),
	}

	var resp *genai.GenerateContentResponse
	call := func(ctx context.Context) error {
		var err error
		resp, err = model.GenerateContent(ctx, parts...)
		return err
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "gemini_generate", call, classifyGenerationError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, wrapTemporaryIfNeeded("gemini generate", err)
	}

	result := collectResult(resp)
	if result.Text == "" && len(result.InlineImages) == 0 {
		return nil, fmt.Errorf("gemini generate: empty response")
	}
	return result, nil
}

// collectResult flattens the first candidate's parts into plain text plus
// any inline image data.
func collectResult(resp *genai.GenerateContentResponse) *ports.GenerationResult {
	result := &ports.GenerationResult{}
	if resp == nil || len(resp.Candidates) == 0 {
		return result
	}

	var text strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			switch p := part.(type) {
			case genai.Text:
				text.WriteString(string(p))
			case genai.Blob:
				result.InlineImages = append(result.InlineImages, ports.InlineImage{
					MIMEType: p.MIMEType,
					Data:     p.Data,
				})
			case *genai.Blob:
				result.InlineImages = append(result.InlineImages, ports.InlineImage{
					MIMEType: p.MIMEType,
					Data:     p.Data,
				})
			}
		}
		break
	}
	result.Text = strings.TrimSpace(text.String())
	return result
}

func ptrFloat32(v float32) *float32 { return &v }
