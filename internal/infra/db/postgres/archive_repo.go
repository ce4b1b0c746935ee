package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	domain "github.com/bryanwahyu/veritas/internal/domain/archive"
)

const schema = `
CREATE TABLE IF NOT EXISTS analysis_archive (
  id          TEXT        PRIMARY KEY,
  session_id  TEXT        NOT NULL,
  source      TEXT        NOT NULL,
  score       INTEGER     NOT NULL,
  verdict     TEXT        NOT NULL,
  input_kind  TEXT        NOT NULL,
  input       TEXT        NOT NULL,
  image_url   TEXT,
  result_json JSONB       NOT NULL,
  created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_archive_session_created ON analysis_archive (session_id, created_at DESC);
`

type ArchiveRepository struct {
	db *sql.DB
}

func NewArchiveRepository(db *sql.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

func (r *ArchiveRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// Save inserts or updates an entry
func (r *ArchiveRepository) Save(ctx context.Context, e *domain.Entry) error {
	const q = `
INSERT INTO analysis_archive
  (id, session_id, source, score, verdict, input_kind, input, image_url, result_json, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  source=EXCLUDED.source,
  score=EXCLUDED.score,
  verdict=EXCLUDED.verdict,
  image_url=EXCLUDED.image_url,
  result_json=EXCLUDED.result_json;
`
	session := e.SessionID
	if strings.TrimSpace(session) == "" {
		session = "-"
	}
	result := e.Result
	if strings.TrimSpace(result) == "" {
		result = "{}"
	}
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var image sql.NullString
	if e.ImageURL != "" {
		image = sql.NullString{String: e.ImageURL, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, q, e.ID, session, e.Source, e.Score, e.Verdict,
		e.InputKind, e.Input, image, result, createdAt)
	return err
}

// Paginate returns a page of entries ordered by created_at desc
func (r *ArchiveRepository) Paginate(ctx context.Context, sessionID string, page, pageSize int) ([]*domain.Entry, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	const q = `
SELECT id, session_id, source, score, verdict, input_kind, input, image_url, result_json, created_at
FROM analysis_archive
WHERE session_id=$1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3;
`
	rows, err := r.db.QueryContext(ctx, q, sessionID, pageSize, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Entry{}
	for rows.Next() {
		var e domain.Entry
		var image sql.NullString
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Source, &e.Score, &e.Verdict,
			&e.InputKind, &e.Input, &image, &e.Result, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.ImageURL = image.String
		out = append(out, &e)
	}
	return out, rows.Err()
}
