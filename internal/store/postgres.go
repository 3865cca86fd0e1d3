package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps documents in a single JSONB table partitioned by
// document type, mirroring a schemaless container with per-document ETags.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgres builds a document store backed by PostgreSQL.
func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the documents table and its indexes when absent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	const ddl = `
        CREATE TABLE IF NOT EXISTS documents (
            doc_type   text        NOT NULL,
            id         text        NOT NULL,
            etag       uuid        NOT NULL,
            body       jsonb       NOT NULL,
            created_at timestamptz NOT NULL,
            updated_at timestamptz NOT NULL,
            PRIMARY KEY (doc_type, id)
        );
        CREATE INDEX IF NOT EXISTS documents_type_created_idx
            ON documents (doc_type, created_at DESC);`
	_, err := s.db.Exec(ctx, ddl)
	return err
}

func (s *PostgresStore) Get(ctx context.Context, docType, id string) (Document, error) {
	const query = `SELECT etag, body, created_at, updated_at
        FROM documents WHERE doc_type = $1 AND id = $2`
	doc := Document{ID: id, Type: docType}
	var etag uuid.UUID
	row := s.db.QueryRow(ctx, query, docType, id)
	if err := row.Scan(&etag, &doc.Body, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	doc.ETag = etag.String()
	return doc, nil
}

func (s *PostgresStore) Query(ctx context.Context, q Query) ([]Document, error) {
	sql, args := buildQuery("SELECT id, etag, body, created_at, updated_at FROM documents", q, true)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		doc := Document{Type: q.Type}
		var etag uuid.UUID
		if err := rows.Scan(&doc.ID, &etag, &doc.Body, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, err
		}
		doc.ETag = etag.String()
		out = append(out, doc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Count(ctx context.Context, q Query) (int, error) {
	counted := q
	counted.Offset = 0
	counted.Limit = 0
	sql, args := buildQuery("SELECT COUNT(1) FROM documents", counted, false)

	var count int
	if err := s.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *PostgresStore) Create(ctx context.Context, docType, id string, body any) (string, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	etag := uuid.New()
	now := time.Now().UTC()
	tag, err := s.db.Exec(ctx, `INSERT INTO documents (doc_type, id, etag, body, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $5) ON CONFLICT (doc_type, id) DO NOTHING`,
		docType, id, etag, raw, now)
	if err != nil {
		return "", err
	}
	if tag.RowsAffected() == 0 {
		return "", ErrConflict
	}
	return etag.String(), nil
}

func (s *PostgresStore) Replace(ctx context.Context, docType, id string, body any, etag string) (string, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	expected, err := uuid.Parse(etag)
	if err != nil {
		return "", fmt.Errorf("invalid etag: %w", err)
	}
	next := uuid.New()
	tag, err := s.db.Exec(ctx, `UPDATE documents SET body = $1, etag = $2, updated_at = $3
        WHERE doc_type = $4 AND id = $5 AND etag = $6`,
		raw, next, time.Now().UTC(), docType, id, expected)
	if err != nil {
		return "", err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a lost race from an absent document.
		var exists bool
		if err := s.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE doc_type = $1 AND id = $2)`,
			docType, id).Scan(&exists); err != nil {
			return "", err
		}
		if exists {
			return "", ErrETagMismatch
		}
		return "", ErrNotFound
	}
	return next.String(), nil
}

func (s *PostgresStore) Upsert(ctx context.Context, docType, id string, body any) (string, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	etag := uuid.New()
	now := time.Now().UTC()
	_, err = s.db.Exec(ctx, `INSERT INTO documents (doc_type, id, etag, body, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $5)
        ON CONFLICT (doc_type, id) DO UPDATE SET body = EXCLUDED.body, etag = EXCLUDED.etag, updated_at = EXCLUDED.updated_at`,
		docType, id, etag, raw, now)
	if err != nil {
		return "", err
	}
	return etag.String(), nil
}

// Batch applies all operations inside one transaction. Postgres gives the
// batch real atomicity even though the store contract only promises best
// effort.
func (s *PostgresStore) Batch(ctx context.Context, ops []Op) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	now := time.Now().UTC()
	for _, op := range ops {
		raw, err := json.Marshal(op.Body)
		if err != nil {
			return err
		}
		next := uuid.New()
		switch op.Kind {
		case OpCreate:
			tag, err := tx.Exec(ctx, `INSERT INTO documents (doc_type, id, etag, body, created_at, updated_at)
                VALUES ($1, $2, $3, $4, $5, $5) ON CONFLICT (doc_type, id) DO NOTHING`,
				op.Type, op.ID, next, raw, now)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return ErrConflict
			}
		case OpReplace:
			expected, err := uuid.Parse(op.ETag)
			if err != nil {
				return fmt.Errorf("invalid etag: %w", err)
			}
			tag, err := tx.Exec(ctx, `UPDATE documents SET body = $1, etag = $2, updated_at = $3
                WHERE doc_type = $4 AND id = $5 AND etag = $6`,
				raw, next, now, op.Type, op.ID, expected)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return ErrETagMismatch
			}
		case OpUpsert:
			if _, err := tx.Exec(ctx, `INSERT INTO documents (doc_type, id, etag, body, created_at, updated_at)
                VALUES ($1, $2, $3, $4, $5, $5)
                ON CONFLICT (doc_type, id) DO UPDATE SET body = EXCLUDED.body, etag = EXCLUDED.etag, updated_at = EXCLUDED.updated_at`,
				op.Type, op.ID, next, raw, now); err != nil {
				return err
			}
		}
	}
	return tx.Commit(ctx)
}

func buildQuery(selectClause string, q Query, paginate bool) (string, []any) {
	var sb strings.Builder
	sb.WriteString(selectClause)
	sb.WriteString(" WHERE doc_type = $1")
	args := []any{q.Type}

	for _, f := range q.Filters {
		args = append(args, f.Value)
		fmt.Fprintf(&sb, " AND body->>%s = $%d", quoteLiteral(f.Field), len(args))
	}
	if !q.CreatedAfter.IsZero() {
		args = append(args, q.CreatedAfter)
		fmt.Fprintf(&sb, " AND created_at > $%d", len(args))
	}
	if paginate {
		if q.NewestFirst {
			sb.WriteString(" ORDER BY created_at DESC")
		} else {
			sb.WriteString(" ORDER BY created_at ASC")
		}
		if q.Offset > 0 {
			args = append(args, q.Offset)
			fmt.Fprintf(&sb, " OFFSET $%d", len(args))
		}
		if q.Limit > 0 {
			args = append(args, q.Limit)
			fmt.Fprintf(&sb, " LIMIT $%d", len(args))
		}
	}
	return sb.String(), args
}

// quoteLiteral quotes a JSON field name for use as a SQL string literal.
// Field names come from compile-time constants in the repositories, never
// from user input.
func quoteLiteral(field string) string {
	return "'" + strings.ReplaceAll(field, "'", "''") + "'"
}
