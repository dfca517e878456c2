package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/olgamyk/outfit-shopper/internal/core/catalog"
	"github.com/olgamyk/outfit-shopper/internal/core/domain"
	"github.com/olgamyk/outfit-shopper/internal/core/ports"
)

// MatchConfig tunes the product matcher.
type MatchConfig struct {
	// TextFallbackEnabled permits text-query search for items without a
	// crop image. Off by default: strict visual-only policy.
	TextFallbackEnabled bool
	// ItemDelay is the fixed pacing between successive items, protecting
	// external services from bursts. Not a backoff mechanism.
	ItemDelay time.Duration
	// BackendTimeout bounds each individual backend call.
	BackendTimeout time.Duration
	// CandidateCap limits each item's final ranked list.
	CandidateCap int
}

func (c MatchConfig) normalize() MatchConfig {
	out := c
	if out.ItemDelay <= 0 {
		out.ItemDelay = 1200 * time.Millisecond
	}
	if out.BackendTimeout <= 0 {
		out.BackendTimeout = 15 * time.Second
	}
	if out.CandidateCap <= 0 {
		out.CandidateCap = DefaultCandidateCap
	}
	return out
}

// MatchProductsUseCase finds shoppable product candidates for extracted
// items. Items are processed sequentially with fixed pacing; within one
// item all visual backends are queried concurrently and independently.
type MatchProductsUseCase struct {
	backends    []ports.SearchBackend
	textBackend ports.TextSearchBackend
	tables      *catalog.Tables
	limiter     *rate.Limiter
	cfg         MatchConfig
}

func NewMatchProductsUseCase(
	backends []ports.SearchBackend,
	textBackend ports.TextSearchBackend,
	tables *catalog.Tables,
	cfg MatchConfig,
) *MatchProductsUseCase {
	cfg = cfg.normalize()
	return &MatchProductsUseCase{
		backends:    backends,
		textBackend: textBackend,
		tables:      tables,
		limiter:     rate.NewLimiter(rate.Every(cfg.ItemDelay), 1),
		cfg:         cfg,
	}
}

// MatchAll runs the matcher over a batch of items. Per-item and per-backend
// failures yield empty candidate lists and never abort the batch; only a
// cancelled context does.
func (uc *MatchProductsUseCase) MatchAll(ctx context.Context, items []domain.ExtractedItem) ([]domain.ItemShoppingResult, error) {
	results := make([]domain.ItemShoppingResult, 0, len(items))
	for _, item := range items {
		if err := uc.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("pacing wait: %w", err)
		}
		results = append(results, uc.matchItem(ctx, item))
	}
	return results, nil
}

func (uc *MatchProductsUseCase) matchItem(ctx context.Context, item domain.ExtractedItem) domain.ItemShoppingResult {
	result := domain.ItemShoppingResult{
		ItemID:            item.ID,
		PieceType:         item.PieceType,
		ExtractedImageURL: item.ExtractedImageURL,
		Candidates:        []domain.ProductCandidate{},
		Confidence:        item.Confidence,
	}

	if !item.HasImage() {
		if !uc.cfg.TextFallbackEnabled || uc.textBackend == nil {
			result.SearchMethod = domain.SearchMethodNoImage
			return result
		}
		result.SearchMethod = domain.SearchMethodText
		result.Candidates = FuseCandidates(uc.tables, uc.searchByText(ctx, item), uc.cfg.CandidateCap)
		return result
	}

	result.SearchMethod = domain.SearchMethodVisual
	result.Candidates = FuseCandidates(uc.tables, uc.searchByImage(ctx, item), uc.cfg.CandidateCap)
	return result
}

// searchByImage fans out over all visual backends concurrently and collects
// results in backend registration order, so fusion input order is
// deterministic regardless of backend latency.
func (uc *MatchProductsUseCase) searchByImage(ctx context.Context, item domain.ExtractedItem) []domain.ProductCandidate {
	perBackend := make([][]domain.ProductCandidate, len(uc.backends))

	var wg sync.WaitGroup
	for i, backend := range uc.backends {
		wg.Add(1)
		go func(i int, backend ports.SearchBackend) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, uc.cfg.BackendTimeout)
			defer cancel()

			candidates, err := backend.SearchByImage(callCtx, item.ExtractedImageURL)
			if err != nil {
				slog.Warn("search_backend_failed",
					"backend", backend.Name(),
					"item_id", item.ID,
					"error", err,
				)
				return
			}
			perBackend[i] = uc.filterCandidates(backend.Name(), backend.Filter(), candidates)
		}(i, backend)
	}
	wg.Wait()

	merged := make([]domain.ProductCandidate, 0, 16)
	for _, candidates := range perBackend {
		merged = append(merged, candidates...)
	}
	return merged
}

func (uc *MatchProductsUseCase) searchByText(ctx context.Context, item domain.ExtractedItem) []domain.ProductCandidate {
	callCtx, cancel := context.WithTimeout(ctx, uc.cfg.BackendTimeout)
	defer cancel()

	candidates, err := uc.textBackend.SearchByText(callCtx, item.Description)
	if err != nil {
		slog.Warn("text_search_failed",
			"backend", uc.textBackend.Name(),
			"item_id", item.ID,
			"error", err,
		)
		return nil
	}
	// Text results come from a shopping-specific API; only the generic
	// validity and audience filters apply.
	return uc.filterCandidates(uc.textBackend.Name(), "", candidates)
}

// filterCandidates normalizes and filters one backend's raw results. The
// URL filter mode matches the backend's result shape: allow-list for
// image-search results, product-page path heuristic for generic web
// results, one or the other, never both.
func (uc *MatchProductsUseCase) filterCandidates(source string, filter ports.ResultFilter, candidates []domain.ProductCandidate) []domain.ProductCandidate {
	kept := make([]domain.ProductCandidate, 0, len(candidates))
	for _, candidate := range candidates {
		if !candidate.Valid() {
			continue
		}
		if !uc.tables.AllowedAudience(candidate.Title) {
			continue
		}

		switch filter {
		case ports.FilterAllowList:
			if !uc.tables.IsShoppingHost(candidate.URL) {
				continue
			}
		case ports.FilterProductPath:
			if !uc.tables.LooksLikeProductPage(candidate.URL) {
				continue
			}
		}

		if candidate.Source == "" {
			candidate.Source = source
		}
		if candidate.Retailer == "" {
			candidate.Retailer = uc.tables.RetailerForURL(candidate.URL)
		}
		if candidate.Price == "" {
			candidate.Price = domain.PriceUnavailable
		}
		kept = append(kept, candidate)
	}
	return kept
}
