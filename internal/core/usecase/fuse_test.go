package usecase

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/olgamyk/outfit-shopper/internal/core/catalog"
	"github.com/olgamyk/outfit-shopper/internal/core/domain"
)

func TestFuseCandidatesDropsDuplicateURLs(t *testing.T) {
	tables := catalog.Default()
	candidates := []domain.ProductCandidate{
		{Title: "Black Ankle Boots", URL: "https://www.nordstrom.com/s/boots/1", Source: "google_lens"},
		{Title: "Black Ankle Boots Leather", URL: "https://www.nordstrom.com/s/boots/1", Source: "gemini_web"},
	}

	fused := FuseCandidates(tables, candidates, 8)
	if len(fused) != 1 {
		t.Fatalf("expected 1 candidate after URL dedup, got %d", len(fused))
	}
	if fused[0].Source != "google_lens" {
		t.Fatalf("expected first arrival kept, got source %s", fused[0].Source)
	}
}

func TestFuseCandidatesTitleDedupKeepsHigherTrust(t *testing.T) {
	tables := catalog.Default()
	candidates := []domain.ProductCandidate{
		{Title: "Black Ankle Boots!", URL: "https://a.example/p/1", Source: "text_web"},
		{Title: "black ankle   boots", URL: "https://b.example/p/2", Source: "google_lens"},
	}

	fused := FuseCandidates(tables, candidates, 8)
	if len(fused) != 1 {
		t.Fatalf("expected 1 candidate after title dedup, got %d", len(fused))
	}
	if fused[0].Source != "google_lens" {
		t.Fatalf("expected higher-trust source kept, got %s", fused[0].Source)
	}
}

func TestFuseCandidatesTitleDedupTieKeepsEarlier(t *testing.T) {
	tables := catalog.Default()
	candidates := []domain.ProductCandidate{
		{Title: "Red Silk Dress", URL: "https://a.example/p/1", Source: "google_lens"},
		{Title: "red silk dress", URL: "https://b.example/p/2", Source: "google_lens"},
	}

	fused := FuseCandidates(tables, candidates, 8)
	if len(fused) != 1 || fused[0].URL != "https://a.example/p/1" {
		t.Fatalf("expected earlier candidate kept on trust tie, got %+v", fused)
	}
}

func TestFuseCandidatesCapsAndSorts(t *testing.T) {
	tables := catalog.Default()

	candidates := make([]domain.ProductCandidate, 0, 10)
	for i := 0; i < 10; i++ {
		source := "text_web"
		if i%2 == 0 {
			source = "google_lens"
		}
		candidates = append(candidates, domain.ProductCandidate{
			Title:  fmt.Sprintf("Distinct Product %d", i),
			URL:    fmt.Sprintf("https://shop.example/p/%d", i),
			Source: source,
		})
	}

	fused := FuseCandidates(tables, candidates, 8)
	if len(fused) != 8 {
		t.Fatalf("expected cap of 8, got %d", len(fused))
	}
	for i := 1; i < len(fused); i++ {
		if scoreCandidate(tables, fused[i-1]) < scoreCandidate(tables, fused[i]) {
			t.Fatalf("candidates not sorted by score at index %d", i)
		}
	}
}

func TestFuseCandidatesIdempotent(t *testing.T) {
	tables := catalog.Default()
	candidates := []domain.ProductCandidate{
		{Title: "Gold Hoop Earrings", URL: "https://a.example/p/1", Source: "google_lens", Price: "$48"},
		{Title: "Leather Tote", URL: "https://b.example/p/2", Source: "gemini_web", ImageURL: "https://img.example/2.jpg"},
		{Title: "Navy Blazer", URL: "https://c.example/p/3", Source: "text_web"},
	}

	once := FuseCandidates(tables, candidates, 8)
	twice := FuseCandidates(tables, once, 8)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("fusion not idempotent:\nonce:  %+v\ntwice: %+v", once, twice)
	}
}

func TestFuseCandidatesDeterministic(t *testing.T) {
	tables := catalog.Default()
	candidates := []domain.ProductCandidate{
		{Title: "Suede Pumps", URL: "https://a.example/p/1", Source: "gemini_web"},
		{Title: "Silk Scarf", URL: "https://b.example/p/2", Source: "google_lens"},
		{Title: "Denim Jacket", URL: "https://c.example/p/3", Source: "google_shopping"},
	}

	first := FuseCandidates(tables, candidates, 8)
	second := FuseCandidates(tables, candidates, 8)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("fusion not deterministic for identical input")
	}
}

func TestFuseCandidatesDiscardsInvalid(t *testing.T) {
	tables := catalog.Default()
	candidates := []domain.ProductCandidate{
		{Title: "", URL: "https://a.example/p/1", Source: "google_lens"},
		{Title: "No URL Product", URL: "", Source: "google_lens"},
		{Title: "Valid Product", URL: "https://b.example/p/2", Source: "google_lens"},
	}

	fused := FuseCandidates(tables, candidates, 8)
	if len(fused) != 1 || fused[0].Title != "Valid Product" {
		t.Fatalf("expected only the valid candidate, got %+v", fused)
	}
}

func TestScoreMonotonicInSourceTrust(t *testing.T) {
	tables := catalog.Default()
	high := domain.ProductCandidate{Title: "Leather Boots", URL: "https://a.example/p/1", Source: "google_lens", Price: "$120", ImageURL: "https://img.example/1.jpg"}
	low := high
	low.Title = "Suede Loafers"
	low.URL = "https://b.example/p/2"
	low.Source = "text_web"

	if scoreCandidate(tables, high) <= scoreCandidate(tables, low) {
		t.Fatalf("expected higher-trust source to score strictly higher")
	}

	fused := FuseCandidates(tables, []domain.ProductCandidate{low, high}, 8)
	if len(fused) != 2 || fused[0].Source != "google_lens" {
		t.Fatalf("expected higher-trust candidate ranked first, got %+v", fused)
	}
}

func TestScoreBoostsPriceAndImage(t *testing.T) {
	tables := catalog.Default()
	bare := domain.ProductCandidate{Title: "Boots", URL: "https://a.example/p/1", Source: "gemini_web", Price: domain.PriceUnavailable}
	rich := bare
	rich.Price = "$99"
	rich.ImageURL = "https://img.example/1.jpg"

	if got, want := scoreCandidate(tables, rich)-scoreCandidate(tables, bare), priceBoost+imageBoost; got != want {
		t.Fatalf("boost delta = %d, want %d", got, want)
	}
}

func TestFuseCandidatesDedupsHyphenatedTitles(t *testing.T) {
	tables := catalog.Default()
	candidates := []domain.ProductCandidate{
		{Title: "black ankle boots", URL: "https://a.example/p/1", Source: "text_web"},
		{Title: "Black: Ankle-Boots!!", URL: "https://b.example/p/2", Source: "google_lens"},
	}

	fused := FuseCandidates(tables, candidates, 8)
	if len(fused) != 1 {
		t.Fatalf("expected hyphenated near-duplicate to collapse, got %+v", fused)
	}
	if fused[0].Source != "google_lens" {
		t.Fatalf("expected the more trusted source to survive, got %+v", fused[0])
	}
}

func TestNormalizeTitleKey(t *testing.T) {
	a := normalizeTitleKey("  Black: Ankle-Boots!! ")
	b := normalizeTitleKey("black ankle boots")
	if a != b {
		t.Fatalf("expected equal keys, got %q vs %q", a, b)
	}
	long := normalizeTitleKey(strings.Repeat("leather boots ", 20))
	if len(long) > titleKeyLength {
		t.Fatalf("key longer than %d: %d", titleKeyLength, len(long))
	}
}
