package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crmkit/segmint/internal/rules"
)

const schema = `
CREATE TABLE IF NOT EXISTS rule_generations (
	id          UUID PRIMARY KEY,
	prompt      TEXT NOT NULL,
	provider    TEXT NOT NULL,
	rules       JSONB NOT NULL,
	fingerprint TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL DEFAULT 0,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS rule_generations_created_at_idx ON rule_generations (created_at DESC);
`

const generationColumns = `id, prompt, provider, rules, fingerprint, status, error, duration_ms, created_at`

// PostgresStore is a PostgreSQL implementation of the Store interface.
// Rule trees are stored as JSONB in their wire shape.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the history table if it does not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate rule_generations: %w", err)
	}
	return nil
}

// RecordGeneration inserts a generation row.
func (p *PostgresStore) RecordGeneration(ctx context.Context, params RecordParams) (*Generation, error) {
	g := newGeneration(params)

	rulesJSON, err := json.Marshal(g.Rules)
	if err != nil {
		return nil, err
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO rule_generations (`+generationColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		pgtype.UUID{Bytes: g.ID, Valid: true}, g.Prompt, g.Provider, rulesJSON, g.Fingerprint, g.Status, g.Error, g.DurationMS, g.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// ListGenerations returns up to limit generations, newest first.
func (p *PostgresStore) ListGenerations(ctx context.Context, limit int) ([]Generation, error) {
	query := `SELECT ` + generationColumns + ` FROM rule_generations ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]Generation, 0)
	for rows.Next() {
		g, err := scanGeneration(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

// GetGeneration retrieves a generation by ID.
func (p *PostgresStore) GetGeneration(ctx context.Context, id uuid.UUID) (*Generation, error) {
	row := p.pool.QueryRow(ctx,
		`SELECT `+generationColumns+` FROM rule_generations WHERE id = $1`,
		pgtype.UUID{Bytes: id, Valid: true},
	)
	g, err := scanGeneration(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &g, nil
}

// Close closes the database connection pool.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

func scanGeneration(row pgx.Row) (Generation, error) {
	var (
		id        pgtype.UUID
		rulesJSON []byte
		createdAt pgtype.Timestamptz
		g         Generation
	)
	if err := row.Scan(&id, &g.Prompt, &g.Provider, &rulesJSON, &g.Fingerprint, &g.Status, &g.Error, &g.DurationMS, &createdAt); err != nil {
		return Generation{}, err
	}
	tree, err := decodeRules(rulesJSON)
	if err != nil {
		return Generation{}, err
	}
	g.ID = uuid.UUID(id.Bytes)
	g.Rules = tree
	g.CreatedAt = createdAt.Time.UTC()
	return g, nil
}

// decodeRules decodes a JSONB rules column. Empty and null columns yield an
// empty AND group.
func decodeRules(raw []byte) (rules.Group, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return rules.NewGroup(rules.And), nil
	}
	return rules.ParseJSON(raw)
}
