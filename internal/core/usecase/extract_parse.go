package usecase

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/olgamyk/outfit-shopper/internal/core/catalog"
	"github.com/olgamyk/outfit-shopper/internal/core/domain"
)

const (
	keywordFallbackConfidence = 0.7
	keywordFallbackMaxItems   = 5
	placeholderConfidence     = 0.6
)

var errNoJSONArray = errors.New("no json array in model output")

type itemDescriptor struct {
	PieceType   string             `json:"piece_type"`
	Description string             `json:"description"`
	BoundingBox domain.BoundingBox `json:"bounding_box"`
	Confidence  float64            `json:"confidence"`
	Color       string             `json:"color"`
	Pattern     string             `json:"pattern"`
	Style       string             `json:"style"`
}

// parseItemDescriptors reads the model's free-text answer as a JSON array of
// item descriptors, tolerating a fenced code block or surrounding prose.
func parseItemDescriptors(raw string) ([]itemDescriptor, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return nil, errNoJSONArray
	}

	candidates := []string{text}
	if fenced := stripCodeFences(text); fenced != text {
		candidates = append(candidates, fenced)
	}
	if embedded := extractJSONArray(text); embedded != "" && embedded != text {
		candidates = append(candidates, embedded)
	}

	var lastErr error = errNoJSONArray
	for _, candidate := range candidates {
		var descriptors []itemDescriptor
		if err := json.Unmarshal([]byte(candidate), &descriptors); err != nil {
			lastErr = err
			continue
		}
		return descriptors, nil
	}
	return nil, lastErr
}

// stripCodeFences returns the content of the first fenced block, or the
// input unchanged when there is none.
func stripCodeFences(text string) string {
	start := strings.Index(text, "```")
	if start < 0 {
		return text
	}
	rest := text[start+3:]
	if newline := strings.IndexByte(rest, '\n'); newline >= 0 {
		// Drop the language tag line ("json").
		if lang := strings.TrimSpace(rest[:newline]); len(lang) <= 10 && !strings.ContainsAny(lang, "[{") {
			rest = rest[newline+1:]
		}
	}
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

func extractJSONArray(text string) string {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return ""
}

// keywordScanItems recovers something usable from unparseable model output:
// one low-confidence item per known clothing keyword found in the raw text,
// with placeholder boxes tiled across the image.
func keywordScanItems(tables *catalog.Tables, raw string) []domain.ExtractedItem {
	lower := strings.ToLower(raw)
	items := make([]domain.ExtractedItem, 0, keywordFallbackMaxItems)
	seen := make(map[string]struct{})

	for _, keyword := range tables.ClothingKeywords {
		if len(items) == keywordFallbackMaxItems {
			break
		}
		if !strings.Contains(lower, keyword) {
			continue
		}
		canonical := tables.CanonicalPieceType(keyword)
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}

		items = append(items, domain.ExtractedItem{
			PieceType:   canonical,
			Description: keyword,
			BoundingBox: tiledBox(len(items)),
			Confidence:  keywordFallbackConfidence,
			Color:       domain.AttrUnknown,
			Pattern:     domain.AttrUnknown,
			Style:       domain.AttrUnknown,
		})
	}
	return items
}

// placeholderItems is the degraded output for a total extraction backend
// failure. Only used when the caller opted in; see ExtractConfig.
func placeholderItems() []domain.ExtractedItem {
	types := []struct{ pieceType, description string }{
		{"dress", "dress"},
		{"shoes", "pair of shoes"},
		{"bag", "handbag"},
	}

	items := make([]domain.ExtractedItem, 0, len(types))
	for i, t := range types {
		items = append(items, domain.ExtractedItem{
			PieceType:   t.pieceType,
			Description: t.description,
			BoundingBox: tiledBox(i),
			Confidence:  placeholderConfidence,
			Color:       domain.AttrUnknown,
			Pattern:     domain.AttrUnknown,
			Style:       domain.AttrUnknown,
		})
	}
	return items
}

// tiledBox lays placeholder boxes out on a 3-column grid.
func tiledBox(index int) domain.BoundingBox {
	col := index % 3
	row := index / 3
	return domain.BoundingBox{
		X:      0.05 + 0.32*float64(col),
		Y:      0.05 + 0.32*float64(row),
		Width:  0.28,
		Height: 0.28,
	}
}
