package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/olgamyk/outfit-shopper/internal/core/domain"
)

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishOutfitSubmitted(_ context.Context, outfitID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, outfitID)
	return nil
}

func (f *queueFake) SubscribeOutfitSubmitted(context.Context, func(context.Context, string) error) error {
	return nil
}

func TestSubmitStoresRecordsAndPublishes(t *testing.T) {
	repo := newRepoFake()
	blobs := newBlobStoreFake()
	queue := &queueFake{}
	uc := NewSubmitOutfitUseCase(repo, blobs, queue)

	outfit, err := uc.Submit(context.Background(), "outfit.jpg", "image/jpeg", strings.NewReader("photo-bytes"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if outfit.ID == "" {
		t.Fatalf("expected generated outfit ID")
	}
	if outfit.Status != domain.StatusSubmitted {
		t.Fatalf("status = %q, want %q", outfit.Status, domain.StatusSubmitted)
	}
	if !strings.HasSuffix(outfit.StoragePath, "_outfit.jpg") {
		t.Fatalf("storage path = %q", outfit.StoragePath)
	}
	if outfit.PhotoURL != blobs.URL(outfit.StoragePath) {
		t.Fatalf("photo URL = %q", outfit.PhotoURL)
	}
	if string(blobs.saved[outfit.StoragePath]) != "photo-bytes" {
		t.Fatalf("photo bytes not stored under %q", outfit.StoragePath)
	}
	if _, ok := repo.outfits[outfit.ID]; !ok {
		t.Fatalf("outfit record not created")
	}
	if len(queue.published) != 1 || queue.published[0] != outfit.ID {
		t.Fatalf("published = %v, want outfit ID", queue.published)
	}
	if outfit.CreatedAt.IsZero() || outfit.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set")
	}
}

func TestSubmitSanitizesFilename(t *testing.T) {
	repo := newRepoFake()
	blobs := newBlobStoreFake()
	uc := NewSubmitOutfitUseCase(repo, blobs, &queueFake{})

	outfit, err := uc.Submit(context.Background(), "../my outfit!.png", "image/png", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if !strings.HasSuffix(outfit.StoragePath, "_my_outfit_.png") {
		t.Fatalf("storage path = %q, want sanitized base name", outfit.StoragePath)
	}
	if strings.Contains(outfit.StoragePath, "..") || strings.Contains(outfit.StoragePath, "/") {
		t.Fatalf("storage path %q escapes the store", outfit.StoragePath)
	}
}

func TestSubmitBlobFailureStopsEarly(t *testing.T) {
	repo := newRepoFake()
	blobs := newBlobStoreFake()
	blobs.saveErr = errors.New("disk full")
	queue := &queueFake{}
	uc := NewSubmitOutfitUseCase(repo, blobs, queue)

	if _, err := uc.Submit(context.Background(), "outfit.jpg", "image/jpeg", strings.NewReader("x")); err == nil {
		t.Fatalf("expected blob store error")
	}
	if len(repo.outfits) != 0 {
		t.Fatalf("record created despite blob failure")
	}
	if len(queue.published) != 0 {
		t.Fatalf("event published despite blob failure")
	}
}

func TestSubmitPublishFailurePropagates(t *testing.T) {
	uc := NewSubmitOutfitUseCase(newRepoFake(), newBlobStoreFake(), &queueFake{err: errors.New("nats down")})

	if _, err := uc.Submit(context.Background(), "outfit.jpg", "image/jpeg", strings.NewReader("x")); err == nil {
		t.Fatalf("expected publish error")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct{ in, want string }{
		{"outfit.jpg", "outfit.jpg"},
		{"my outfit.jpg", "my_outfit.jpg"},
		{"../../etc/passwd", "passwd"},
		{"", "photo.bin"},
		{"???", "___"},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
