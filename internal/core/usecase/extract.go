package usecase

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/olgamyk/outfit-shopper/internal/core/catalog"
	"github.com/olgamyk/outfit-shopper/internal/core/domain"
	"github.com/olgamyk/outfit-shopper/internal/core/ports"
)

// ExtractConfig tunes the item extractor.
type ExtractConfig struct {
	// MaxItems caps how many items one extraction run may produce.
	MaxItems int
	// CropEnabled controls per-item isolated crop generation.
	CropEnabled bool
	// PlaceholderOnFailure substitutes a fixed set of generic items when
	// the vision backend call fails outright, instead of propagating the
	// error. Off by default: degraded data is an explicit opt-in, never a
	// silent fallback.
	PlaceholderOnFailure bool
}

func (c ExtractConfig) normalize() ExtractConfig {
	out := c
	if out.MaxItems <= 0 {
		out.MaxItems = 12
	}
	return out
}

// ExtractItemsUseCase turns one flat-lay image into a deduplicated list of
// clothing items, each optionally with an isolated crop image.
type ExtractItemsUseCase struct {
	vision  ports.VisionModel
	fetcher ports.ImageFetcher
	blobs   ports.BlobStore
	tables  *catalog.Tables
	cfg     ExtractConfig
}

func NewExtractItemsUseCase(
	vision ports.VisionModel,
	fetcher ports.ImageFetcher,
	blobs ports.BlobStore,
	tables *catalog.Tables,
	cfg ExtractConfig,
) *ExtractItemsUseCase {
	return &ExtractItemsUseCase{
		vision:  vision,
		fetcher: fetcher,
		blobs:   blobs,
		tables:  tables,
		cfg:     cfg.normalize(),
	}
}

// Extract implements the extraction pipeline: fetch image, ask the vision
// model for item descriptors, parse tolerantly, dedupe paired items, crop,
// enhance descriptions. A missing vision backend is fatal for the whole
// request; per-item crop errors are not.
func (uc *ExtractItemsUseCase) Extract(ctx context.Context, flatLayURL string) ([]domain.ExtractedItem, error) {
	if uc.vision == nil {
		return nil, domain.WrapError(domain.ErrBackendNotConfigured, "extract items", errors.New("no vision model"))
	}

	imageData, mimeType, err := uc.fetcher.Fetch(ctx, flatLayURL)
	if err != nil {
		return nil, domain.WrapError(domain.ErrUpstream, "fetch flat lay image", err)
	}
	image := ports.ImageInput{MIMEType: mimeType, Data: imageData}

	result, err := uc.vision.Generate(ctx, itemExtractionPrompt, []ports.ImageInput{image})
	if err != nil {
		if uc.cfg.PlaceholderOnFailure {
			slog.Warn("extraction_placeholder_fallback", "flat_lay_url", flatLayURL, "error", err)
			return uc.finalize(ctx, flatLayURL, image, placeholderItems()), nil
		}
		return nil, domain.WrapError(domain.ErrUpstream, "extract items", err)
	}

	items, parseErr := uc.parseDescriptors(result.Text)
	if parseErr != nil {
		slog.Warn("extraction_keyword_fallback", "flat_lay_url", flatLayURL, "error", parseErr)
		items = keywordScanItems(uc.tables, result.Text)
	}

	return uc.finalize(ctx, flatLayURL, image, items), nil
}

func (uc *ExtractItemsUseCase) parseDescriptors(text string) ([]domain.ExtractedItem, error) {
	descriptors, err := parseItemDescriptors(text)
	if err != nil {
		return nil, domain.WrapError(domain.ErrParse, "parse item descriptors", err)
	}

	items := make([]domain.ExtractedItem, 0, len(descriptors))
	for _, d := range descriptors {
		if strings.TrimSpace(d.PieceType) == "" {
			continue
		}
		items = append(items, domain.ExtractedItem{
			PieceType:   uc.tables.CanonicalPieceType(d.PieceType),
			Description: strings.TrimSpace(d.Description),
			BoundingBox: clampBox(d.BoundingBox),
			Confidence:  clamp01(d.Confidence),
			Color:       strings.ToLower(strings.TrimSpace(d.Color)),
			Pattern:     strings.ToLower(strings.TrimSpace(d.Pattern)),
			Style:       strings.ToLower(strings.TrimSpace(d.Style)),
		})
	}
	return items, nil
}

// finalize applies the order-preserving tail of the pipeline: dedup, cap,
// deterministic IDs, crops, description enhancement.
func (uc *ExtractItemsUseCase) finalize(ctx context.Context, flatLayURL string, image ports.ImageInput, items []domain.ExtractedItem) []domain.ExtractedItem {
	items = dedupeExtractedItems(uc.tables, items)
	if len(items) > uc.cfg.MaxItems {
		items = items[:uc.cfg.MaxItems]
	}

	for i := range items {
		items[i].ID = itemID(flatLayURL, i)
	}

	if uc.cfg.CropEnabled && uc.blobs != nil {
		for i := range items {
			uc.generateCrop(ctx, image, &items[i])
		}
	}

	for i := range items {
		items[i].Description = enhanceDescription(uc.tables, items[i])
	}
	return items
}

// generateCrop asks the vision model for an isolated image of one item and
// persists it. Failures leave the item without an image; such items are
// text-search-only downstream.
func (uc *ExtractItemsUseCase) generateCrop(ctx context.Context, image ports.ImageInput, item *domain.ExtractedItem) {
	subject := item.Description
	if subject == "" {
		subject = item.PieceType
	}

	inline, err := uc.requestInlineImage(ctx, fmt.Sprintf(itemCropPrompt, subject), image)
	if err != nil {
		inline, err = uc.requestInlineImage(ctx, fmt.Sprintf(itemCropRetryPrompt, subject), image)
	}
	if err != nil {
		slog.Warn("item_crop_skipped", "item_id", item.ID, "error", err)
		return
	}

	key := "crop_" + item.ID + imageExtension(inline.MIMEType)
	if err := uc.blobs.Save(ctx, key, bytes.NewReader(inline.Data)); err != nil {
		slog.Warn("item_crop_save_failed", "item_id", item.ID, "error", err)
		return
	}

	item.ExtractedImagePath = key
	item.ExtractedImageURL = uc.blobs.URL(key)
}

func (uc *ExtractItemsUseCase) requestInlineImage(ctx context.Context, prompt string, image ports.ImageInput) (ports.InlineImage, error) {
	result, err := uc.vision.Generate(ctx, prompt, []ports.ImageInput{image})
	if err != nil {
		return ports.InlineImage{}, err
	}
	if len(result.InlineImages) == 0 {
		return ports.InlineImage{}, errors.New("no inline image in response")
	}
	return result.InlineImages[0], nil
}

// enhanceDescription reassembles the shopping description from structured
// attributes, skipping non-informative values, and appends the category's
// shopping keywords.
func enhanceDescription(tables *catalog.Tables, item domain.ExtractedItem) string {
	parts := make([]string, 0, 4)
	if meaningfulAttr(item.Color) {
		parts = append(parts, item.Color)
	}
	if meaningfulAttr(item.Pattern) {
		parts = append(parts, item.Pattern)
	}
	parts = append(parts, item.PieceType)
	if meaningfulAttr(item.Style) {
		parts = append(parts, item.Style)
	}

	description := strings.Join(parts, " ")
	if len(parts) == 1 && item.Description != "" {
		// No informative attributes: the model's own wording is richer
		// than the bare piece type.
		description = item.Description
	}

	if keyword := tables.CategoryKeyword(item.PieceType); keyword != "" {
		description += ", " + keyword
	}
	return description
}

func meaningfulAttr(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", domain.AttrUnknown, domain.AttrVarious, domain.AttrSolid:
		return false
	default:
		return true
	}
}

// itemID is stable across runs for the same image and item position.
func itemID(sourceRef string, index int) string {
	sum := sha256.Sum256([]byte(sourceRef))
	return fmt.Sprintf("%s-item-%d", hex.EncodeToString(sum[:4]), index)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampBox(box domain.BoundingBox) domain.BoundingBox {
	box.X = clamp01(box.X)
	box.Y = clamp01(box.Y)
	box.Width = clamp01(box.Width)
	box.Height = clamp01(box.Height)
	if box.X+box.Width > 1 {
		box.Width = 1 - box.X
	}
	if box.Y+box.Height > 1 {
		box.Height = 1 - box.Y
	}
	return box
}
