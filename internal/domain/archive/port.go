package archive

import "context"

// Repository port for persisting and paging archived analyses
type Repository interface {
	Save(ctx context.Context, e *Entry) error
	Paginate(ctx context.Context, sessionID string, page, pageSize int) ([]*Entry, error)
}
