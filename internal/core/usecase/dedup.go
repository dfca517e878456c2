package usecase

import (
	"strings"

	"github.com/olgamyk/outfit-shopper/internal/core/catalog"
	"github.com/olgamyk/outfit-shopper/internal/core/domain"
)

const (
	pairWordOverlapThreshold = 0.6
	pairBoxOverlapThreshold  = 0.3
	descPrefixWords          = 3
)

// dedupeExtractedItems removes model double-reports from one extraction
// result. First pass groups by a composite key (canonical type, color,
// description prefix); second pass drops the later of any two same-type
// paired items (shoes, earrings, gloves, socks) the pair predicate marks as
// halves of one physical object. Earlier items always win.
func dedupeExtractedItems(tables *catalog.Tables, items []domain.ExtractedItem) []domain.ExtractedItem {
	kept := make([]domain.ExtractedItem, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for _, item := range items {
		key := compositeItemKey(tables, item)
		if _, dup := seen[key]; dup {
			continue
		}

		duplicate := false
		for _, earlier := range kept {
			if pairDuplicate(tables, earlier, item) {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}

		seen[key] = struct{}{}
		kept = append(kept, item)
	}
	return kept
}

// pairDuplicate reports whether two items describe the two halves of one
// physical paired object: same paired canonical type, matching color group,
// and either strongly overlapping descriptions or overlapping boxes.
func pairDuplicate(tables *catalog.Tables, a, b domain.ExtractedItem) bool {
	typeA := tables.CanonicalPieceType(a.PieceType)
	if typeA != tables.CanonicalPieceType(b.PieceType) || !tables.IsPairedType(typeA) {
		return false
	}
	if tables.ColorGroup(a.Color) != tables.ColorGroup(b.Color) {
		return false
	}
	return wordOverlap(a.Description, b.Description) > pairWordOverlapThreshold ||
		boxOverlap(a.BoundingBox, b.BoundingBox) > pairBoxOverlapThreshold
}

func compositeItemKey(tables *catalog.Tables, item domain.ExtractedItem) string {
	tokens := splitAlphaNumLower(item.Description)
	if len(tokens) > descPrefixWords {
		tokens = tokens[:descPrefixWords]
	}
	return tables.CanonicalPieceType(item.PieceType) + "|" +
		strings.ToLower(strings.TrimSpace(item.Color)) + "|" +
		strings.Join(tokens, " ")
}

// wordOverlap is the shared-token ratio of two descriptions, measured
// against the smaller token set so a subset description still counts as
// overlapping.
func wordOverlap(a, b string) float64 {
	tokensA := toTokenSet(a)
	tokensB := toTokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	matches := 0
	for token := range tokensA {
		if _, ok := tokensB[token]; ok {
			matches++
		}
	}

	smaller := len(tokensA)
	if len(tokensB) < smaller {
		smaller = len(tokensB)
	}
	return float64(matches) / float64(smaller)
}

// boxOverlap is intersection area over union area of two normalized boxes.
func boxOverlap(a, b domain.BoundingBox) float64 {
	interW := overlap1D(a.X, a.X+a.Width, b.X, b.X+b.Width)
	interH := overlap1D(a.Y, a.Y+a.Height, b.Y, b.Y+b.Height)
	inter := interW * interH
	if inter <= 0 {
		return 0
	}

	union := a.Width*a.Height + b.Width*b.Height - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func overlap1D(aLow, aHigh, bLow, bHigh float64) float64 {
	low := aLow
	if bLow > low {
		low = bLow
	}
	high := aHigh
	if bHigh < high {
		high = bHigh
	}
	if high <= low {
		return 0
	}
	return high - low
}

func toTokenSet(s string) map[string]struct{} {
	tokens := splitAlphaNumLower(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}

func splitAlphaNumLower(s string) []string {
	if s == "" {
		return nil
	}

	tokens := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		if r >= 'A' && r <= 'Z' {
			r += 'a' - 'A'
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			tokens = append(tokens, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
