package usecase

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/olgamyk/outfit-shopper/internal/core/domain"
	"github.com/olgamyk/outfit-shopper/internal/core/ports"
)

// ItemExtractor and ProductMatcher are satisfied by the extract and match
// use cases; kept as interfaces so the orchestration is testable with
// fakes.
type ItemExtractor interface {
	Extract(ctx context.Context, flatLayURL string) ([]domain.ExtractedItem, error)
}

type ProductMatcher interface {
	MatchAll(ctx context.Context, items []domain.ExtractedItem) ([]domain.ItemShoppingResult, error)
}

// ProcessOutfitUseCase runs the full shopping pipeline for one submitted
// outfit: flat-lay generation, item extraction, product matching, result
// persistence, with status transitions around it.
type ProcessOutfitUseCase struct {
	repo      ports.OutfitRepository
	vision    ports.VisionModel
	fetcher   ports.ImageFetcher
	blobs     ports.BlobStore
	extractor ItemExtractor
	matcher   ProductMatcher
}

func NewProcessOutfitUseCase(
	repo ports.OutfitRepository,
	vision ports.VisionModel,
	fetcher ports.ImageFetcher,
	blobs ports.BlobStore,
	extractor ItemExtractor,
	matcher ProductMatcher,
) *ProcessOutfitUseCase {
	return &ProcessOutfitUseCase{
		repo:      repo,
		vision:    vision,
		fetcher:   fetcher,
		blobs:     blobs,
		extractor: extractor,
		matcher:   matcher,
	}
}

func (uc *ProcessOutfitUseCase) ProcessByID(ctx context.Context, outfitID string) error {
	if err := uc.markStatus(ctx, outfitID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	if err := uc.processPipeline(ctx, outfitID); err != nil {
		if failErr := uc.markFailed(ctx, outfitID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.markStatus(ctx, outfitID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessOutfitUseCase) processPipeline(ctx context.Context, outfitID string) error {
	outfit, err := uc.repo.GetByID(ctx, outfitID)
	if err != nil {
		return fmt.Errorf("fetch outfit by id: %w", err)
	}

	flatLayURL := uc.generateFlatLay(ctx, outfit)

	items, err := uc.extractor.Extract(ctx, flatLayURL)
	if err != nil {
		return fmt.Errorf("extract items: %w", err)
	}

	shopping, err := uc.matcher.MatchAll(ctx, items)
	if err != nil {
		return fmt.Errorf("match products: %w", err)
	}

	if err := uc.repo.SaveResults(ctx, outfit.ID, items, shopping); err != nil {
		return fmt.Errorf("save shopping results: %w", err)
	}
	return nil
}

// generateFlatLay asks the vision model for a product-style flat-lay render
// of the outfit photo. The flat lay is a quality improvement, not a
// requirement: any failure falls back to extracting from the original
// photo.
func (uc *ProcessOutfitUseCase) generateFlatLay(ctx context.Context, outfit *domain.Outfit) string {
	photoData, mimeType, err := uc.fetcher.Fetch(ctx, outfit.PhotoURL)
	if err != nil {
		slog.Warn("flat_lay_fetch_failed", "outfit_id", outfit.ID, "error", err)
		return outfit.PhotoURL
	}

	result, err := uc.vision.Generate(ctx, flatLayPrompt, []ports.ImageInput{{MIMEType: mimeType, Data: photoData}})
	if err != nil || len(result.InlineImages) == 0 {
		slog.Warn("flat_lay_generation_failed", "outfit_id", outfit.ID, "error", err)
		return outfit.PhotoURL
	}

	inline := result.InlineImages[0]
	key := "flatlay_" + outfit.ID + imageExtension(inline.MIMEType)
	if err := uc.blobs.Save(ctx, key, bytes.NewReader(inline.Data)); err != nil {
		slog.Warn("flat_lay_save_failed", "outfit_id", outfit.ID, "error", err)
		return outfit.PhotoURL
	}

	flatLayURL := uc.blobs.URL(key)
	if err := uc.repo.SaveFlatLay(ctx, outfit.ID, flatLayURL); err != nil {
		slog.Warn("flat_lay_record_failed", "outfit_id", outfit.ID, "error", err)
	}
	return flatLayURL
}

func (uc *ProcessOutfitUseCase) markStatus(ctx context.Context, outfitID string, status domain.OutfitStatus, errMessage string) error {
	return uc.repo.UpdateStatus(ctx, outfitID, status, errMessage)
}

func (uc *ProcessOutfitUseCase) markFailed(ctx context.Context, outfitID string, processErr error) error {
	if processErr == nil {
		return nil
	}
	return uc.markStatus(ctx, outfitID, domain.StatusFailed, processErr.Error())
}

func imageExtension(mimeType string) string {
	switch mimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
