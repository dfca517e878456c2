package catalog

import "testing"

func TestCanonicalPieceTypeMapsSynonyms(t *testing.T) {
	tables := Default()

	cases := map[string]string{
		"boot":     "shoes",
		"Sneakers": "shoes",
		"heel":     "shoes",
		"handbag":  "bag",
		"blazer":   "jacket",
		"earring":  "earrings",
		"dress":    "dress",
		"poncho":   "poncho",
	}
	for raw, want := range cases {
		if got := tables.CanonicalPieceType(raw); got != want {
			t.Errorf("CanonicalPieceType(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestColorGroupBucketsShades(t *testing.T) {
	tables := Default()

	if got := tables.ColorGroup("Charcoal"); got != "black" {
		t.Fatalf("ColorGroup(Charcoal) = %q, want black", got)
	}
	if got := tables.ColorGroup("navy"); got != "blue" {
		t.Fatalf("ColorGroup(navy) = %q, want blue", got)
	}
	if got := tables.ColorGroup("chartreuse"); got != "chartreuse" {
		t.Fatalf("ColorGroup(chartreuse) = %q, want pass-through", got)
	}
}

func TestRetailerForURL(t *testing.T) {
	tables := Default()

	if got := tables.RetailerForURL("https://www.nordstrom.com/s/boots/123"); got != "Nordstrom" {
		t.Fatalf("RetailerForURL = %q, want Nordstrom", got)
	}
	if got := tables.RetailerForURL("https://tiny-boutique.example/item/1"); got != "tiny-boutique.example" {
		t.Fatalf("RetailerForURL fallback = %q, want bare hostname", got)
	}
}

func TestLooksLikeProductPage(t *testing.T) {
	tables := Default()

	if !tables.LooksLikeProductPage("https://shop.example.com/product/black-boots") {
		t.Fatalf("expected /product/ path to match")
	}
	if !tables.LooksLikeProductPage("https://amazon.com/dp/B0ABCDEF") {
		t.Fatalf("expected /dp/ path to match")
	}
	if tables.LooksLikeProductPage("https://blog.example.com/2024/top-10-boots") {
		t.Fatalf("did not expect editorial path to match")
	}
}

func TestAllowedAudience(t *testing.T) {
	tables := Default()

	if tables.AllowedAudience("Men's Leather Boots") {
		t.Fatalf("expected men's title to be rejected")
	}
	if !tables.AllowedAudience("Women's & Men's Unisex Boots") {
		t.Fatalf("expected title mentioning women to pass")
	}
	if !tables.AllowedAudience("Black Ankle Boots") {
		t.Fatalf("expected neutral title to pass")
	}
}

func TestTrustFallsBackToDefault(t *testing.T) {
	tables := Default()

	if got := tables.Trust("google_lens"); got != 25 {
		t.Fatalf("Trust(google_lens) = %d, want 25", got)
	}
	if got := tables.Trust("nonexistent"); got != tables.DefaultTrust {
		t.Fatalf("Trust(nonexistent) = %d, want default %d", got, tables.DefaultTrust)
	}
}

func TestParseRejectsEmptyTrustTable(t *testing.T) {
	if _, err := Parse([]byte("default_trust: 8")); err == nil {
		t.Fatalf("expected error for empty source_trust")
	}
}
