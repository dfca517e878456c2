// Package catalog holds the static lookup tables used by the extraction and
// matching pipeline: retailer names by domain, source trust weights, piece
// type synonyms, color groups and the various keyword lists. The data lives
// in an embedded YAML file; it is configuration, not behavior.
package catalog

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	_ "embed"

	"gopkg.in/yaml.v3"
)

//go:embed tables.yaml
var tablesYAML []byte

type Tables struct {
	SourceTrust         map[string]int      `yaml:"source_trust"`
	DefaultTrust        int                 `yaml:"default_trust"`
	Retailers           map[string]string   `yaml:"retailers"`
	PreferredRetailers  []string            `yaml:"preferred_retailers"`
	ProductPathPatterns []string            `yaml:"product_path_patterns"`
	PairedTypes         []string            `yaml:"paired_types"`
	PieceTypeSynonyms   map[string][]string `yaml:"piece_type_synonyms"`
	ColorGroups         map[string][]string `yaml:"color_groups"`
	CategoryKeywords    map[string]string   `yaml:"category_keywords"`
	ClothingKeywords    []string            `yaml:"clothing_keywords"`
	AudienceBlocklist   []string            `yaml:"audience_blocklist"`

	// Derived indexes, built once at load.
	synonymToCanonical map[string]string
	colorToGroup       map[string]string
	pairedSet          map[string]struct{}
	preferredSet       map[string]struct{}
}

var (
	defaultOnce   sync.Once
	defaultTables *Tables
	defaultErr    error
)

// Default returns the tables parsed from the embedded YAML. The embedded
// data is validated at first use; a broken table file is a programmer error.
func Default() *Tables {
	defaultOnce.Do(func() {
		defaultTables, defaultErr = Parse(tablesYAML)
	})
	if defaultErr != nil {
		panic(fmt.Sprintf("catalog: embedded tables: %v", defaultErr))
	}
	return defaultTables
}

func Parse(raw []byte) (*Tables, error) {
	var t Tables
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("unmarshal tables: %w", err)
	}
	if len(t.SourceTrust) == 0 {
		return nil, fmt.Errorf("tables: source_trust is empty")
	}
	if t.DefaultTrust <= 0 {
		return nil, fmt.Errorf("tables: default_trust must be positive")
	}
	t.buildIndexes()
	return &t, nil
}

func (t *Tables) buildIndexes() {
	t.synonymToCanonical = make(map[string]string)
	for canonical, synonyms := range t.PieceTypeSynonyms {
		t.synonymToCanonical[canonical] = canonical
		for _, s := range synonyms {
			t.synonymToCanonical[strings.ToLower(s)] = canonical
		}
	}

	t.colorToGroup = make(map[string]string)
	for group, colors := range t.ColorGroups {
		for _, c := range colors {
			t.colorToGroup[strings.ToLower(c)] = group
		}
	}

	t.pairedSet = make(map[string]struct{}, len(t.PairedTypes))
	for _, p := range t.PairedTypes {
		t.pairedSet[p] = struct{}{}
	}

	t.preferredSet = make(map[string]struct{}, len(t.PreferredRetailers))
	for _, r := range t.PreferredRetailers {
		t.preferredSet[strings.ToLower(r)] = struct{}{}
	}
}

// Trust returns the static trust weight for a search backend source tag.
func (t *Tables) Trust(source string) int {
	if v, ok := t.SourceTrust[source]; ok {
		return v
	}
	return t.DefaultTrust
}

// CanonicalPieceType maps raw model output ("boot", "sneakers") onto its
// canonical category ("shoes"). Unrecognized types pass through lowercased.
func (t *Tables) CanonicalPieceType(raw string) string {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if canonical, ok := t.synonymToCanonical[normalized]; ok {
		return canonical
	}
	normalized = strings.TrimSuffix(normalized, "s")
	if canonical, ok := t.synonymToCanonical[normalized]; ok {
		return canonical
	}
	return strings.ToLower(strings.TrimSpace(raw))
}

// IsPairedType reports whether a canonical piece type physically occurs as
// two mirrored pieces sold as one unit.
func (t *Tables) IsPairedType(canonical string) bool {
	_, ok := t.pairedSet[canonical]
	return ok
}

// ColorGroup buckets a free-text color into a semantic group ("charcoal" ->
// "black"). Colors outside every group map to themselves.
func (t *Tables) ColorGroup(color string) string {
	normalized := strings.ToLower(strings.TrimSpace(color))
	if group, ok := t.colorToGroup[normalized]; ok {
		return group
	}
	return normalized
}

// CategoryKeyword returns extra shopping keywords for a canonical piece
// type, or "" when the category has none.
func (t *Tables) CategoryKeyword(canonical string) string {
	return t.CategoryKeywords[canonical]
}

// RetailerForURL resolves the retailer display name from a product URL via
// the lookup table, falling back to the bare hostname.
func (t *Tables) RetailerForURL(rawURL string) string {
	host := hostOf(rawURL)
	if host == "" {
		return ""
	}
	if name, ok := t.Retailers[host]; ok {
		return name
	}
	return host
}

// IsShoppingHost reports whether the URL host is on the shopping-site
// allow-list (the retailer table doubles as the allow-list).
func (t *Tables) IsShoppingHost(rawURL string) bool {
	_, ok := t.Retailers[hostOf(rawURL)]
	return ok
}

// IsPreferredRetailer reports whether the retailer is in the short
// preferred list used for ranking boosts.
func (t *Tables) IsPreferredRetailer(name string) bool {
	_, ok := t.preferredSet[strings.ToLower(name)]
	return ok
}

// LooksLikeProductPage applies the path-pattern heuristic for generic web
// results ("/product/", "/dp/", ...).
func (t *Tables) LooksLikeProductPage(rawURL string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(parsed.Path)
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	for _, pattern := range t.ProductPathPatterns {
		if strings.Contains(path, pattern) {
			return true
		}
	}
	return false
}

// AllowedAudience rejects titles aimed at irrelevant audiences unless the
// title also mentions women.
func (t *Tables) AllowedAudience(title string) bool {
	lower := strings.ToLower(title)
	if strings.Contains(lower, "women") {
		return true
	}
	for _, term := range t.AudienceBlocklist {
		if strings.Contains(lower, term) {
			return false
		}
	}
	return true
}

func hostOf(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}
