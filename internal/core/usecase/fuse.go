package usecase

import (
	"net/url"
	"sort"
	"strings"

	"github.com/olgamyk/outfit-shopper/internal/core/catalog"
	"github.com/olgamyk/outfit-shopper/internal/core/domain"
)

// DefaultCandidateCap limits each item's final ranked list.
const DefaultCandidateCap = 8

const (
	preferredRetailerBoost = 3
	priceBoost             = 2
	imageBoost             = 1
	titleKeyLength         = 60
)

// FuseCandidates merges raw candidates gathered from multiple backends for
// one item into a single ranked list: URL dedup, near-duplicate title dedup
// with source-trust tie-break, trust-based scoring, stable sort, cap. Pure
// function of its input; candidates are processed in arrival order.
func FuseCandidates(tables *catalog.Tables, candidates []domain.ProductCandidate, limit int) []domain.ProductCandidate {
	if limit <= 0 {
		limit = DefaultCandidateCap
	}

	kept := make([]domain.ProductCandidate, 0, len(candidates))
	seenURL := make(map[string]struct{}, len(candidates))
	titleSlot := make(map[string]int, len(candidates))

	for _, candidate := range candidates {
		if !candidate.Valid() {
			continue
		}

		urlKey := normalizeURLKey(candidate.URL)
		if _, dup := seenURL[urlKey]; dup {
			continue
		}
		seenURL[urlKey] = struct{}{}

		titleKey := normalizeTitleKey(candidate.Title)
		if slot, collides := titleSlot[titleKey]; collides {
			// Near-duplicate title: keep whichever source is more
			// trusted, earlier arrival wins ties.
			if tables.Trust(candidate.Source) > tables.Trust(kept[slot].Source) {
				kept[slot] = candidate
			}
			continue
		}
		titleSlot[titleKey] = len(kept)
		kept = append(kept, candidate)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return scoreCandidate(tables, kept[i]) > scoreCandidate(tables, kept[j])
	})

	if len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

func scoreCandidate(tables *catalog.Tables, c domain.ProductCandidate) int {
	score := tables.Trust(c.Source)
	if tables.IsPreferredRetailer(c.Retailer) {
		score += preferredRetailerBoost
	}
	if c.Price != "" && c.Price != domain.PriceUnavailable {
		score += priceBoost
	}
	if c.ImageURL != "" {
		score += imageBoost
	}
	return score
}

// normalizeTitleKey builds the near-duplicate key: lowercase, any run of
// punctuation or whitespace collapsed to a single space, truncated to the
// first 60 characters. Punctuation is a word break, so "Ankle-Boots" and
// "ankle boots" collide.
func normalizeTitleKey(title string) string {
	var b strings.Builder
	lastSpace := true
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastSpace = false
		} else if !lastSpace {
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	key := strings.TrimSpace(b.String())
	if len(key) > titleKeyLength {
		key = key[:titleKeyLength]
	}
	return key
}

func normalizeURLKey(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.Fragment = ""
	parsed.Host = strings.ToLower(parsed.Host)
	key := parsed.String()
	return strings.TrimSuffix(key, "/")
}
