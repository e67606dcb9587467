package twin

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS twin_profiles (
	id         TEXT PRIMARY KEY,
	twin_name  TEXT NOT NULL,
	texts      TEXT[] NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type pgRepo struct {
	db *sql.DB
}

func NewPGRepo(db *sql.DB) Repo {
	return &pgRepo{db: db}
}

// EnsurePGSchema creates the profiles table if it does not exist.
func EnsurePGSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, pgSchema); err != nil {
		return fmt.Errorf("creating twin_profiles: %w", err)
	}
	return nil
}

func (r *pgRepo) Append(ctx context.Context, p *Profile) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO twin_profiles (id, twin_name, texts, created_at)
		VALUES ($1, $2, $3, $4)
	`,
		p.ID,
		p.TwinName,
		pq.Array(p.Texts),
		p.CreatedAt,
	)
	return err
}

func (r *pgRepo) Get(ctx context.Context, id string) (*Profile, error) {
	var p Profile
	var texts pq.StringArray

	err := r.db.QueryRowContext(ctx, `
		SELECT id, twin_name, texts, created_at
		FROM twin_profiles
		WHERE id = $1
	`, id).Scan(
		&p.ID,
		&p.TwinName,
		&texts,
		&p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	p.Texts = []string(texts)
	if p.Texts == nil {
		p.Texts = []string{}
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}
