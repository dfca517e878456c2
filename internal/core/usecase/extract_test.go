package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/olgamyk/outfit-shopper/internal/core/catalog"
	"github.com/olgamyk/outfit-shopper/internal/core/domain"
	"github.com/olgamyk/outfit-shopper/internal/core/ports"
)

type visionFake struct {
	extractText string
	extractErr  error

	cropImage    ports.InlineImage
	cropFailures int
	cropCalls    int
}

func (f *visionFake) Generate(_ context.Context, prompt string, _ []ports.ImageInput) (*ports.GenerationResult, error) {
	if prompt == itemExtractionPrompt {
		if f.extractErr != nil {
			return nil, f.extractErr
		}
		return &ports.GenerationResult{Text: f.extractText}, nil
	}

	f.cropCalls++
	if f.cropCalls <= f.cropFailures {
		return nil, errors.New("crop generation failed")
	}
	return &ports.GenerationResult{InlineImages: []ports.InlineImage{f.cropImage}}, nil
}

type fetcherFake struct {
	data []byte
	mime string
	err  error
}

func (f *fetcherFake) Fetch(context.Context, string) ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.data, f.mime, nil
}

type blobStoreFake struct {
	saved   map[string][]byte
	saveErr error
}

func newBlobStoreFake() *blobStoreFake {
	return &blobStoreFake{saved: make(map[string][]byte)}
}

func (f *blobStoreFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(data); err != nil {
		return err
	}
	f.saved[key] = buf.Bytes()
	return nil
}

func (f *blobStoreFake) URL(key string) string { return "http://blobs.local/" + key }

const fencedExtractionResponse = "Here are the items:\n```json\n" + `[
  {"piece_type": "gown", "description": "long black evening gown", "bounding_box": {"x": 0.1, "y": 0.1, "width": 0.3, "height": 0.6}, "confidence": 0.92, "color": "black", "pattern": "solid", "style": "formal"},
  {"piece_type": "boots", "description": "brown ankle boots", "bounding_box": {"x": 0.5, "y": 0.6, "width": 0.2, "height": 0.3}, "confidence": 1.4, "color": "brown", "pattern": "unknown", "style": "casual"}
]` + "\n```\n"

func newExtractUC(vision ports.VisionModel, fetcher ports.ImageFetcher, blobs ports.BlobStore, cfg ExtractConfig) *ExtractItemsUseCase {
	return NewExtractItemsUseCase(vision, fetcher, blobs, catalog.Default(), cfg)
}

func okFetcher() *fetcherFake {
	return &fetcherFake{data: []byte("image-bytes"), mime: "image/jpeg"}
}

func TestExtractParsesFencedJSON(t *testing.T) {
	vision := &visionFake{extractText: fencedExtractionResponse}
	uc := newExtractUC(vision, okFetcher(), nil, ExtractConfig{})

	items, err := uc.Extract(context.Background(), "http://blobs.local/flatlay_1.png")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	if items[0].PieceType != "dress" {
		t.Errorf("piece type = %q, want canonical dress", items[0].PieceType)
	}
	if items[1].PieceType != "shoes" {
		t.Errorf("piece type = %q, want canonical shoes", items[1].PieceType)
	}
	if items[1].Confidence != 1 {
		t.Errorf("confidence = %v, want clamped to 1", items[1].Confidence)
	}
	if want := "black dress formal, women's fashion"; items[0].Description != want {
		t.Errorf("description = %q, want %q", items[0].Description, want)
	}
	if !strings.HasSuffix(items[1].Description, ", footwear") {
		t.Errorf("description = %q, want footwear keyword appended", items[1].Description)
	}
}

func TestExtractKeywordFallbackOnProse(t *testing.T) {
	vision := &visionFake{extractText: "The photo shows a lovely dress with matching shoes and a handbag."}
	uc := newExtractUC(vision, okFetcher(), nil, ExtractConfig{})

	items, err := uc.Extract(context.Background(), "http://blobs.local/flatlay_1.png")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 keyword items, got %d", len(items))
	}
	for _, item := range items {
		if item.Confidence != keywordFallbackConfidence {
			t.Errorf("item %q confidence = %v, want %v", item.PieceType, item.Confidence, keywordFallbackConfidence)
		}
	}
	types := []string{items[0].PieceType, items[1].PieceType, items[2].PieceType}
	if types[0] != "dress" || types[1] != "shoes" || types[2] != "bag" {
		t.Fatalf("keyword items = %v", types)
	}
}

func TestExtractPlaceholderIsOptIn(t *testing.T) {
	vision := &visionFake{extractErr: errors.New("model unavailable")}
	uc := newExtractUC(vision, okFetcher(), nil, ExtractConfig{PlaceholderOnFailure: true})

	items, err := uc.Extract(context.Background(), "http://blobs.local/flatlay_1.png")
	if err != nil {
		t.Fatalf("Extract() error = %v, want placeholder fallback", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 placeholder items, got %d", len(items))
	}
	for _, item := range items {
		if item.Confidence != placeholderConfidence {
			t.Errorf("item %q confidence = %v, want %v", item.PieceType, item.Confidence, placeholderConfidence)
		}
	}
}

func TestExtractFailurePropagatesByDefault(t *testing.T) {
	vision := &visionFake{extractErr: errors.New("model unavailable")}
	uc := newExtractUC(vision, okFetcher(), nil, ExtractConfig{})

	_, err := uc.Extract(context.Background(), "http://blobs.local/flatlay_1.png")
	if !domain.IsKind(err, domain.ErrUpstream) {
		t.Fatalf("error = %v, want %v", err, domain.ErrUpstream)
	}
}

func TestExtractWithoutVisionModel(t *testing.T) {
	uc := newExtractUC(nil, okFetcher(), nil, ExtractConfig{})

	_, err := uc.Extract(context.Background(), "http://blobs.local/flatlay_1.png")
	if !domain.IsKind(err, domain.ErrBackendNotConfigured) {
		t.Fatalf("error = %v, want %v", err, domain.ErrBackendNotConfigured)
	}
}

func TestExtractFetchFailureIsFatal(t *testing.T) {
	vision := &visionFake{extractText: fencedExtractionResponse}
	uc := newExtractUC(vision, &fetcherFake{err: errors.New("404")}, nil, ExtractConfig{})

	_, err := uc.Extract(context.Background(), "http://blobs.local/flatlay_1.png")
	if !domain.IsKind(err, domain.ErrUpstream) {
		t.Fatalf("error = %v, want %v", err, domain.ErrUpstream)
	}
}

func TestExtractCropRetriesOnce(t *testing.T) {
	vision := &visionFake{
		extractText:  fencedExtractionResponse,
		cropImage:    ports.InlineImage{MIMEType: "image/png", Data: []byte("crop-bytes")},
		cropFailures: 1,
	}
	blobs := newBlobStoreFake()
	uc := newExtractUC(vision, okFetcher(), blobs, ExtractConfig{CropEnabled: true})

	items, err := uc.Extract(context.Background(), "http://blobs.local/flatlay_1.png")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if !items[0].HasImage() {
		t.Fatalf("first item missing crop after retry")
	}
	wantKey := "crop_" + items[0].ID + ".png"
	if _, ok := blobs.saved[wantKey]; !ok {
		t.Fatalf("crop not saved under %q, saved keys: %v", wantKey, blobs.saved)
	}
	if items[0].ExtractedImageURL != blobs.URL(wantKey) {
		t.Fatalf("crop URL = %q", items[0].ExtractedImageURL)
	}
}

func TestExtractCropFailureLeavesItemWithoutImage(t *testing.T) {
	vision := &visionFake{
		extractText:  fencedExtractionResponse,
		cropFailures: 100,
	}
	uc := newExtractUC(vision, okFetcher(), newBlobStoreFake(), ExtractConfig{CropEnabled: true})

	items, err := uc.Extract(context.Background(), "http://blobs.local/flatlay_1.png")
	if err != nil {
		t.Fatalf("crop failures must not fail extraction: %v", err)
	}
	for _, item := range items {
		if item.HasImage() {
			t.Fatalf("item %q has image despite crop failures", item.ID)
		}
	}
}

func TestExtractIDsAreStable(t *testing.T) {
	run := func() []domain.ExtractedItem {
		vision := &visionFake{extractText: fencedExtractionResponse}
		uc := newExtractUC(vision, okFetcher(), nil, ExtractConfig{})
		items, err := uc.Extract(context.Background(), "http://blobs.local/flatlay_1.png")
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		return items
	}

	first, second := run(), run()
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("unstable ID at %d: %q vs %q", i, first[i].ID, second[i].ID)
		}
	}
}

func TestExtractCapsItemCount(t *testing.T) {
	vision := &visionFake{extractText: `[
		{"piece_type": "dress", "confidence": 0.9},
		{"piece_type": "jacket", "confidence": 0.9},
		{"piece_type": "hat", "confidence": 0.9}
	]`}
	uc := newExtractUC(vision, okFetcher(), nil, ExtractConfig{MaxItems: 2})

	items, err := uc.Extract(context.Background(), "http://blobs.local/flatlay_1.png")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected cap of 2, got %d", len(items))
	}
}
