package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vasiliy-maslov/jersey-storefront/internal/apperr"
)

// DB is the subset of pgxpool.Pool the Postgres store needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres stores every document as a jsonb row keyed by (collection, id).
type Postgres struct {
	db DB
}

func NewPostgres(db DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := validate(collection, id); err != nil {
		return Document{}, err
	}

	query := `
		SELECT id, data, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2
	`
	var doc Document
	err := p.db.QueryRow(ctx, query, collection, id).Scan(&doc.ID, &doc.Data, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Document{}, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
		}
		return Document{}, classify(fmt.Sprintf("docstore: get %s/%s", collection, id), err)
	}
	return doc, nil
}

func (p *Postgres) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	if err := validate(collection, ""); err != nil {
		return nil, err
	}

	match := make(map[string]any, len(filters))
	for _, f := range filters {
		match[f.Field] = f.Value
	}
	matchJSON, err := json.Marshal(match)
	if err != nil {
		return nil, fmt.Errorf("docstore: encode filters: %w", err)
	}

	query := `
		SELECT id, data, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND data @> $2::jsonb
		ORDER BY seq
	`
	rows, err := p.db.Query(ctx, query, collection, string(matchJSON))
	if err != nil {
		return nil, classify(fmt.Sprintf("docstore: query %s", collection), err)
	}
	defer rows.Close()

	docs := make([]Document, 0)
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.Data, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("docstore: scan %s: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(fmt.Sprintf("docstore: iterate %s", collection), err)
	}
	return docs, nil
}

func (p *Postgres) Create(ctx context.Context, collection, id string, doc any) (string, error) {
	if id == "" {
		var err error
		if id, err = newID(); err != nil {
			return "", err
		}
	}
	if err := validate(collection, id); err != nil {
		return "", err
	}
	raw, err := encode(doc)
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
	`
	if _, err := p.db.Exec(ctx, query, collection, id, string(raw)); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", fmt.Errorf("%w: %s/%s", ErrAlreadyExists, collection, id)
		}
		return "", classify(fmt.Sprintf("docstore: create %s/%s", collection, id), err)
	}
	return id, nil
}

func (p *Postgres) Set(ctx context.Context, collection, id string, doc any) error {
	if err := validate(collection, id); err != nil {
		return err
	}
	raw, err := encode(doc)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id)
		DO UPDATE SET data = EXCLUDED.data, updated_at = now()
	`
	if _, err := p.db.Exec(ctx, query, collection, id, string(raw)); err != nil {
		return classify(fmt.Sprintf("docstore: set %s/%s", collection, id), err)
	}
	return nil
}

func (p *Postgres) Merge(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := validate(collection, id); err != nil {
		return err
	}
	raw, err := encode(fields)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (collection, id)
		DO UPDATE SET data = documents.data || EXCLUDED.data, updated_at = now()
	`
	if _, err := p.db.Exec(ctx, query, collection, id, string(raw)); err != nil {
		return classify(fmt.Sprintf("docstore: merge %s/%s", collection, id), err)
	}
	return nil
}

func (p *Postgres) Increment(ctx context.Context, collection, id, field string, delta, limit int64) error {
	if err := validate(collection, id); err != nil {
		return err
	}

	query := `
		UPDATE documents
		SET data = jsonb_set(data, ARRAY[$3::text], to_jsonb(COALESCE((data->>$3::text)::bigint, 0) + $4::bigint)),
			updated_at = now()
		WHERE collection = $1 AND id = $2
			AND $4::bigint <= $5::bigint - COALESCE((data->>$3::text)::bigint, 0)
	`
	tag, err := p.db.Exec(ctx, query, collection, id, field, delta, limit)
	if err != nil {
		return classify(fmt.Sprintf("docstore: increment %s/%s.%s", collection, id, field), err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	err = p.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE collection = $1 AND id = $2)`, collection, id).Scan(&exists)
	if err != nil {
		return classify(fmt.Sprintf("docstore: increment %s/%s.%s", collection, id, field), err)
	}
	if exists {
		return fmt.Errorf("%w: %s/%s.%s", ErrLimitExceeded, collection, id, field)
	}
	return fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	if err := validate(collection, id); err != nil {
		return err
	}

	query := `
		DELETE FROM documents
		WHERE collection = $1 AND id = $2
	`
	if _, err := p.db.Exec(ctx, query, collection, id); err != nil {
		return classify(fmt.Sprintf("docstore: delete %s/%s", collection, id), err)
	}
	return nil
}

// classify marks connection-level and resource failures as BackendUnavailable
// so callers can offer a retry.
func classify(msg string, err error) error {
	if isUnavailable(err) {
		return apperr.Wrap(apperr.KindBackendUnavailable, msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgerrcode.IsConnectionException(pgErr.Code) ||
			pgerrcode.IsInsufficientResources(pgErr.Code) ||
			pgerrcode.IsOperatorIntervention(pgErr.Code)
	}
	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
