package geminiweb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/olgamyk/outfit-shopper/internal/core/domain"
	"github.com/olgamyk/outfit-shopper/internal/core/ports"
)

const searchPrompt = `Find this exact clothing item for sale online. Search the web for
product listings matching the item in the image.

Return a JSON array only, no other text. Each element:
{"title": "product name", "url": "direct product page link", "price": "$0.00", "retailer": "store name"}

Only include direct product pages where the item can be purchased.
Return [] if nothing matches.`

// Backend asks the generative model to ground a web search on the item's
// crop image. Its answers are free-form web links, so the matcher applies
// the product-page path filter rather than the host allow-list.
type Backend struct {
	vision  ports.VisionModel
	fetcher ports.ImageFetcher
}

func New(vision ports.VisionModel, fetcher ports.ImageFetcher) *Backend {
	return &Backend{vision: vision, fetcher: fetcher}
}

func (b *Backend) Name() string               { return "gemini_web" }
func (b *Backend) Filter() ports.ResultFilter { return ports.FilterProductPath }

type webResult struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Price    string `json:"price"`
	Retailer string `json:"retailer"`
}

func (b *Backend) SearchByImage(ctx context.Context, imageURL string) ([]domain.ProductCandidate, error) {
	data, mimeType, err := b.fetcher.Fetch(ctx, imageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch item image: %w", err)
	}

	result, err := b.vision.Generate(ctx, searchPrompt, []ports.ImageInput{{MIMEType: mimeType, Data: data}})
	if err != nil {
		return nil, fmt.Errorf("grounded search: %w", err)
	}

	results, err := parseWebResults(result.Text)
	if err != nil {
		return nil, fmt.Errorf("parse grounded search response: %w", err)
	}

	candidates := make([]domain.ProductCandidate, 0, len(results))
	for _, r := range results {
		candidates = append(candidates, domain.ProductCandidate{
			Title:    r.Title,
			URL:      r.URL,
			Price:    r.Price,
			Retailer: r.Retailer,
			Source:   b.Name(),
		})
	}
	return candidates, nil
}

// parseWebResults tolerates a fenced code block or prose around the JSON
// array.
func parseWebResults(raw string) ([]webResult, error) {
	text := strings.TrimSpace(raw)
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no json array in model output")
	}

	var results []webResult
	if err := json.Unmarshal([]byte(text[start:end+1]), &results); err != nil {
		return nil, err
	}
	return results, nil
}
