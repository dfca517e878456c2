package serpapi

import (
	"context"
	"net/url"

	"github.com/olgamyk/outfit-shopper/internal/core/domain"
)

// ShoppingBackend runs text-query product search via the Google Shopping
// engine. Only consulted for items without a usable crop image.
type ShoppingBackend struct {
	client *Client
}

func NewShoppingBackend(client *Client) *ShoppingBackend {
	return &ShoppingBackend{client: client}
}

func (b *ShoppingBackend) Name() string { return "google_shopping" }

type shoppingResponse struct {
	ShoppingResults []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		ProductLink string `json:"product_link"`
		Price       string `json:"price"`
		Source      string `json:"source"`
		Thumbnail   string `json:"thumbnail"`
	} `json:"shopping_results"`
}

func (b *ShoppingBackend) SearchByText(ctx context.Context, query string) ([]domain.ProductCandidate, error) {
	params := url.Values{}
	params.Set("engine", "google_shopping")
	params.Set("q", query)

	var response shoppingResponse
	if err := b.client.getJSON(ctx, params, &response, "shopping"); err != nil {
		return nil, err
	}

	candidates := make([]domain.ProductCandidate, 0, len(response.ShoppingResults))
	for _, result := range response.ShoppingResults {
		link := result.Link
		if link == "" {
			link = result.ProductLink
		}
		candidates = append(candidates, domain.ProductCandidate{
			Title:    result.Title,
			URL:      link,
			Price:    result.Price,
			Retailer: result.Source,
			ImageURL: result.Thumbnail,
			Source:   b.Name(),
		})
	}
	return candidates, nil
}
