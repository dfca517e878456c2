package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/olgamyk/outfit-shopper/internal/core/domain"
)

type OutfitRepository struct {
	db *sql.DB
}

func NewOutfitRepository(db *sql.DB) *OutfitRepository {
	return &OutfitRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *OutfitRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS outfits (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	photo_url TEXT NOT NULL DEFAULT '',
	flat_lay_url TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	items JSONB NOT NULL DEFAULT '[]'::jsonb,
	shopping JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outfits_status ON outfits(status);
CREATE INDEX IF NOT EXISTS idx_outfits_created_at ON outfits(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *OutfitRepository) Create(ctx context.Context, outfit *domain.Outfit) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO outfits (
	id, filename, mime_type, storage_path, photo_url, flat_lay_url, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		outfit.ID, outfit.Filename, outfit.MimeType, outfit.StoragePath, outfit.PhotoURL,
		outfit.FlatLayURL, string(outfit.Status), outfit.Error, outfit.CreatedAt, outfit.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outfit: %w", err)
	}
	return nil
}

func (r *OutfitRepository) GetByID(ctx context.Context, id string) (*domain.Outfit, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, mime_type, storage_path, photo_url, flat_lay_url, status, error_message, items, shopping, created_at, updated_at
FROM outfits
WHERE id = $1
`, id)

	var outfit domain.Outfit
	var status string
	var itemsRaw, shoppingRaw []byte

	err := row.Scan(
		&outfit.ID, &outfit.Filename, &outfit.MimeType, &outfit.StoragePath, &outfit.PhotoURL,
		&outfit.FlatLayURL, &status, &outfit.Error, &itemsRaw, &shoppingRaw, &outfit.CreatedAt, &outfit.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrOutfitNotFound, "get outfit", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan outfit: %w", err)
	}

	if err := json.Unmarshal(itemsRaw, &outfit.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items: %w", err)
	}
	if err := json.Unmarshal(shoppingRaw, &outfit.Shopping); err != nil {
		return nil, fmt.Errorf("unmarshal shopping: %w", err)
	}
	outfit.Status = domain.OutfitStatus(status)
	return &outfit, nil
}

func (r *OutfitRepository) UpdateStatus(ctx context.Context, id string, status domain.OutfitStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE outfits
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update outfit status: %w", err)
	}
	return requireRowFound("update outfit status", id, result)
}

func (r *OutfitRepository) SaveFlatLay(ctx context.Context, id, flatLayURL string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE outfits
SET flat_lay_url = $2, updated_at = $3
WHERE id = $1
`, id, flatLayURL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save flat lay url: %w", err)
	}
	return requireRowFound("save flat lay url", id, result)
}

func (r *OutfitRepository) SaveResults(ctx context.Context, id string, items []domain.ExtractedItem, shopping []domain.ItemShoppingResult) error {
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	shoppingJSON, err := json.Marshal(shopping)
	if err != nil {
		return fmt.Errorf("marshal shopping: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE outfits
SET items = $2, shopping = $3, updated_at = $4
WHERE id = $1
`, id, itemsJSON, shoppingJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save shopping results: %w", err)
	}
	return requireRowFound("save shopping results", id, result)
}

func requireRowFound(operation, id string, result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrOutfitNotFound, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}
