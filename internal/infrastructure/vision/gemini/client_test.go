package gemini

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
)

func TestCollectResultFlattensFirstCandidate(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{
				Content: &genai.Content{
					Parts: []genai.Part{
						genai.Text("  item list "),
						genai.Blob{MIMEType: "image/png", Data: []byte("img")},
					},
				},
			},
			{
				Content: &genai.Content{
					Parts: []genai.Part{genai.Text("second candidate ignored")},
				},
			},
		},
	}

	result := collectResult(resp)
	if result.Text != "item list" {
		t.Errorf("text = %q", result.Text)
	}
	if len(result.InlineImages) != 1 || result.InlineImages[0].MIMEType != "image/png" {
		t.Errorf("inline images = %+v", result.InlineImages)
	}
}

func TestCollectResultNilResponse(t *testing.T) {
	result := collectResult(nil)
	if result.Text != "" || len(result.InlineImages) != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestClassifyGenerationError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		retryable bool
		record    bool
	}{
		{"service unavailable", &googleapi.Error{Code: 503}, true, true},
		{"rate limited", &googleapi.Error{Code: 429}, true, true},
		{"bad request", &googleapi.Error{Code: 400}, false, false},
		{"wrapped api error", fmt.Errorf("call: %w", &googleapi.Error{Code: 500}), true, true},
		{"context canceled", context.Canceled, false, false},
		{"unknown", errors.New("boom"), false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			class := classifyGenerationError(tc.err)
			if class.Retryable != tc.retryable || class.RecordFailure != tc.record {
				t.Fatalf("classification = %+v, want retryable=%v record=%v", class, tc.retryable, tc.record)
			}
		})
	}
}

func TestNewRequiresClientAndModel(t *testing.T) {
	if _, err := New(nil, Options{Model: "gemini-2.5-flash-image"}); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if _, err := New(&genai.Client{}, Options{}); err == nil {
		t.Fatalf("expected error for empty model")
	}
}
