package serpapi

import (
	"context"
	"net/url"

	"github.com/olgamyk/outfit-shopper/internal/core/domain"
	"github.com/olgamyk/outfit-shopper/internal/core/ports"
)

// LensBackend finds visually similar products via the Google Lens engine.
// Lens results span the whole web, so the matcher restricts them to known
// shopping hosts.
type LensBackend struct {
	client *Client
}

func NewLensBackend(client *Client) *LensBackend {
	return &LensBackend{client: client}
}

func (b *LensBackend) Name() string               { return "google_lens" }
func (b *LensBackend) Filter() ports.ResultFilter { return ports.FilterAllowList }

type lensResponse struct {
	VisualMatches []struct {
		Title     string `json:"title"`
		Link      string `json:"link"`
		Source    string `json:"source"`
		Thumbnail string `json:"thumbnail"`
		Price     struct {
			Value string `json:"value"`
		} `json:"price"`
	} `json:"visual_matches"`
}

func (b *LensBackend) SearchByImage(ctx context.Context, imageURL string) ([]domain.ProductCandidate, error) {
	params := url.Values{}
	params.Set("engine", "google_lens")
	params.Set("url", imageURL)

	var response lensResponse
	if err := b.client.getJSON(ctx, params, &response, "lens"); err != nil {
		return nil, err
	}

	candidates := make([]domain.ProductCandidate, 0, len(response.VisualMatches))
	for _, match := range response.VisualMatches {
		candidates = append(candidates, domain.ProductCandidate{
			Title:    match.Title,
			URL:      match.Link,
			Price:    match.Price.Value,
			Retailer: match.Source,
			ImageURL: match.Thumbnail,
			Source:   b.Name(),
		})
	}
	return candidates, nil
}
