package analysis

import "context"

// HistoryStore is the append-only list of completed analyses owned by the caller.
type HistoryStore interface {
	// Append stores rec, assigns its Order and returns the stored copy.
	Append(rec Record) *Record
}

// ImageStore keeps uploaded screenshots so history entries can show them.
type ImageStore interface {
	PutImage(ctx context.Context, data []byte, mime string) (string, error)
}
