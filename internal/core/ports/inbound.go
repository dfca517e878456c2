package ports

import (
	"context"
	"io"

	"github.com/olgamyk/outfit-shopper/internal/core/domain"
)

// OutfitSubmitter is the inbound contract for outfit photo submission.
type OutfitSubmitter interface {
	Submit(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Outfit, error)
}

// OutfitProcessor is the inbound contract for the asynchronous shopping
// pipeline: flat-lay generation, item extraction, product matching.
type OutfitProcessor interface {
	ProcessByID(ctx context.Context, outfitID string) error
}

// OutfitReader is the inbound read model for outfit state and results.
type OutfitReader interface {
	GetByID(ctx context.Context, id string) (*domain.Outfit, error)
}
