package mysql

import (
	"context"
	"database/sql"

	domain "github.com/bryanwahyu/veritas/internal/domain/archive"
)

const schema = `
CREATE TABLE IF NOT EXISTS analysis_archive (
  id          VARCHAR(36)  NOT NULL PRIMARY KEY,
  session_id  VARCHAR(64)  NOT NULL,
  source      TEXT         NOT NULL,
  score       INT          NOT NULL,
  verdict     TEXT         NOT NULL,
  input_kind  VARCHAR(16)  NOT NULL,
  input       TEXT         NOT NULL,
  image_url   TEXT         NULL,
  result_json JSON         NOT NULL,
  created_at  DATETIME(6)  NOT NULL,
  INDEX idx_archive_session_created (session_id, created_at)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
`

// widenColumns upgrades tables created when source and verdict were VARCHAR. The verdict
// is model free text and strict mode rejects anything longer than the column.
const widenColumns = `ALTER TABLE analysis_archive MODIFY source TEXT NOT NULL, MODIFY verdict TEXT NOT NULL`

type ArchiveRepository struct {
	db *sql.DB
}

func NewArchiveRepository(db *sql.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// EnsureSchema creates the archive table when missing and widens older free-text columns.
func (r *ArchiveRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, widenColumns)
	return err
}

// Save inserts an entry, replacing the mutable columns if the ID already exists
func (r *ArchiveRepository) Save(ctx context.Context, e *domain.Entry) error {
	const q = `
INSERT INTO analysis_archive
  (id, session_id, source, score, verdict, input_kind, input, image_url, result_json, created_at)
VALUES (?,?,?,?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  source=VALUES(source), score=VALUES(score), verdict=VALUES(verdict), image_url=VALUES(image_url), result_json=VALUES(result_json);
`
	var image sql.NullString
	if e.ImageURL != "" {
		image = sql.NullString{String: e.ImageURL, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, q,
		e.ID, stringOrDash(e.SessionID), stringOrDash(e.Source), e.Score, e.Verdict,
		e.InputKind, e.Input, image, jsonOrEmpty(e.Result), nowIfZero(e.CreatedAt))
	return err
}

// Paginate returns a page of entries ordered by created_at desc
func (r *ArchiveRepository) Paginate(ctx context.Context, sessionID string, page, pageSize int) ([]*domain.Entry, error) {
	limit, offset := pageBounds(page, pageSize)

	const q = `
SELECT id, session_id, source, score, verdict, input_kind, input, image_url, result_json, created_at
FROM analysis_archive
WHERE session_id=?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;
`
	rows, err := r.db.QueryContext(ctx, q, sessionID, limit, offset)
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
