package ports

import (
	"context"
	"io"

	"github.com/olgamyk/outfit-shopper/internal/core/domain"
)

// OutfitRepository persists and reads outfit state.
type OutfitRepository interface {
	Create(ctx context.Context, outfit *domain.Outfit) error
	GetByID(ctx context.Context, id string) (*domain.Outfit, error)
	UpdateStatus(ctx context.Context, id string, status domain.OutfitStatus, errMessage string) error
	SaveFlatLay(ctx context.Context, id, flatLayURL string) error
	SaveResults(ctx context.Context, id string, items []domain.ExtractedItem, shopping []domain.ItemShoppingResult) error
}

// BlobStore stores uploaded photos and generated crop images and exposes
// them by public URL. Save failures during crop generation are non-fatal to
// extraction.
type BlobStore interface {
	Save(ctx context.Context, key string, data io.Reader) error
	URL(key string) string
}

// MessageQueue publishes/consumes outfit submission events.
type MessageQueue interface {
	PublishOutfitSubmitted(ctx context.Context, outfitID string) error
	SubscribeOutfitSubmitted(ctx context.Context, handler func(context.Context, string) error) error
}

// ImageFetcher downloads image bytes from a URL.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (data []byte, mimeType string, err error)
}

// ImageInput is one image part submitted alongside a prompt.
type ImageInput struct {
	MIMEType string
	Data     []byte
}

// InlineImage is image data returned inline by the generative model.
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// GenerationResult is the raw output of one generative call: free text plus
// any inline image parts.
type GenerationResult struct {
	Text         string
	InlineImages []InlineImage
}

// VisionModel is the generative image/vision backend. It is used for
// flat-lay generation, item description extraction and per-item crops.
type VisionModel interface {
	Generate(ctx context.Context, prompt string, images []ImageInput) (*GenerationResult, error)
}

// ResultFilter selects which candidate filter the matcher applies to a
// backend's results, matching that backend's result shape.
type ResultFilter string

const (
	// FilterAllowList keeps only candidates whose URL host is on the
	// shopping-site allow-list. Used for image-search backends.
	FilterAllowList ResultFilter = "allow_list"
	// FilterProductPath keeps candidates whose URL path looks like a
	// product page. Used for generic web-search backends.
	FilterProductPath ResultFilter = "product_path"
)

// SearchBackend performs reverse-image product lookup for one item crop.
// Results are raw: the matcher filters and the fusion stage ranks them.
type SearchBackend interface {
	Name() string
	Filter() ResultFilter
	SearchByImage(ctx context.Context, imageURL string) ([]domain.ProductCandidate, error)
}

// TextSearchBackend performs text-query product lookup. Only consulted when
// the text-fallback policy is enabled and an item has no crop image.
type TextSearchBackend interface {
	Name() string
	SearchByText(ctx context.Context, query string) ([]domain.ProductCandidate, error)
}
