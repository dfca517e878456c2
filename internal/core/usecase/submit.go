package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olgamyk/outfit-shopper/internal/core/domain"
	"github.com/olgamyk/outfit-shopper/internal/core/ports"
)

type SubmitOutfitUseCase struct {
	repo  ports.OutfitRepository
	blobs ports.BlobStore
	queue ports.MessageQueue
}

func NewSubmitOutfitUseCase(
	repo ports.OutfitRepository,
	blobs ports.BlobStore,
	queue ports.MessageQueue,
) *SubmitOutfitUseCase {
	return &SubmitOutfitUseCase{
		repo:  repo,
		blobs: blobs,
		queue: queue,
	}
}

func (uc *SubmitOutfitUseCase) Submit(
	ctx context.Context,
	filename, mimeType string,
	body io.Reader,
) (*domain.Outfit, error) {
	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	if err := uc.blobs.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save photo to blob store: %w", err)
	}

	outfit := &domain.Outfit{
		ID:          id,
		Filename:    filename,
		MimeType:    mimeType,
		StoragePath: storageKey,
		PhotoURL:    uc.blobs.URL(storageKey),
		Status:      domain.StatusSubmitted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, outfit); err != nil {
		return nil, fmt.Errorf("create outfit record: %w", err)
	}

	if err := uc.queue.PublishOutfitSubmitted(ctx, outfit.ID); err != nil {
		return nil, fmt.Errorf("publish submission event: %w", err)
	}

	return outfit, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		return "photo.bin"
	}
	return base
}
