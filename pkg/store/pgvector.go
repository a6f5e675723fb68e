package store

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/OmarAI2003/AI-Legal-Checker/internal/models"
	"github.com/OmarAI2003/AI-Legal-Checker/internal/types"
)

type PGVectorConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
	// Lists is the ivfflat list count of the cosine index.
	Lists int
	// Probes is the number of lists scanned per query. It defaults to Lists:
	// the category filter is applied after the index scan, so probing fewer
	// lists can return less than k rows while eligible rows exist.
	Probes int
}

// PGVectorStore is a reference corpus kept in a pgvector table. The pool is
// safe for concurrent use.
type PGVectorStore struct {
	config PGVectorConfig
	table  string
	pool   *pgxpool.Pool
}

func NewPGVectorStore(ctx context.Context, config PGVectorConfig) (*PGVectorStore, error) {
	if config.TableName == "" {
		config.TableName = "reference_clauses"
	}
	if config.VectorDim <= 0 {
		return nil, fmt.Errorf("pgvector: vector dimension must be positive, got %d", config.VectorDim)
	}
	if config.Lists == 0 {
		config.Lists = 100
	}
	if config.Probes <= 0 || config.Probes > config.Lists {
		config.Probes = config.Lists
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &PGVectorStore{
		config: config,
		table:  pgx.Identifier{config.TableName}.Sanitize(),
		pool:   pool,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *PGVectorStore) initialize(ctx context.Context) error {
	// Enable pgvector extension
	_, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	// seq records insertion order and breaks score ties.
	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			seq BIGSERIAL,
			id TEXT PRIMARY KEY,
			clause_text TEXT NOT NULL,
			clause_type TEXT NOT NULL,
			document_type TEXT,
			source_contract TEXT,
			embedding vector(%d)
		)`, vs.table, vs.config.VectorDim)

	_, err = vs.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s
		ON %s
		USING ivfflat (embedding vector_cosine_ops)
		WITH (lists = %d)`,
		pgx.Identifier{vs.config.TableName + "_embedding_idx"}.Sanitize(), vs.table, vs.config.Lists)

	_, err = vs.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

// Add upserts refs in a single transaction.
func (vs *PGVectorStore) Add(ctx context.Context, refs []Reference) error {
	for _, ref := range refs {
		if err := ref.validate(vs.config.VectorDim); err != nil {
			return err
		}
	}

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, clause_text, clause_type, document_type, source_contract, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			clause_text = EXCLUDED.clause_text,
			clause_type = EXCLUDED.clause_type,
			document_type = EXCLUDED.document_type,
			source_contract = EXCLUDED.source_contract,
			embedding = EXCLUDED.embedding`,
		vs.table)

	for _, ref := range refs {
		_, err = tx.Exec(ctx, stmt,
			ref.ID,
			sanitizeUTF8(ref.Text),
			string(ref.Category),
			sanitizeUTF8(ref.DocumentType),
			sanitizeUTF8(ref.Source),
			pgvector.NewVector(ref.Vector),
		)
		if err != nil {
			return fmt.Errorf("failed to insert reference clause %s: %w", ref.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Search returns up to k reference clauses whose category is one of
// categories, by descending cosine similarity (1 - cosine distance).
func (vs *PGVectorStore) Search(ctx context.Context, vector []float32, categories []models.Category, k int) ([]types.ReferenceHit, error) {
	if k <= 0 || len(categories) == 0 {
		return nil, nil
	}
	if len(vector) != vs.config.VectorDim {
		return nil, fmt.Errorf("pgvector: query has %d components, want %d", len(vector), vs.config.VectorDim)
	}

	query := fmt.Sprintf(`
		SELECT id, clause_text, clause_type, COALESCE(document_type, ''), COALESCE(source_contract, ''),
			1 - (embedding <=> $1) AS score
		FROM %s
		WHERE clause_type = ANY($2)
		ORDER BY embedding <=> $1, seq
		LIMIT $3`,
		vs.table)

	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// SET does not take bind parameters; Probes is an int.
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL ivfflat.probes = %d", vs.config.Probes)); err != nil {
		return nil, fmt.Errorf("failed to set ivfflat probes: %w", err)
	}

	rows, err := tx.Query(ctx, query, pgvector.NewVector(vector), categoryStrings(categories), k)
	if err != nil {
		return nil, fmt.Errorf("failed to query reference clauses: %w", err)
	}
	defer rows.Close()

	var hits []types.ReferenceHit
	for rows.Next() {
		var (
			hit      types.ReferenceHit
			category string
		)
		if err := rows.Scan(&hit.ID, &hit.Text, &category, &hit.DocumentType, &hit.Source, &hit.Score); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		hit.Category = models.Category(category)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reference clauses: %w", err)
	}

	return hits, nil
}

func (vs *PGVectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if !utf8.ValidString(s) {
		v := make([]rune, 0, len(s))
		for i, r := range s {
			if r == utf8.RuneError {
				_, size := utf8.DecodeRuneInString(s[i:])
				if size == 1 {
					continue
				}
			}
			v = append(v, r)
		}
		return string(v)
	}
	return s
}
