package archive

import (
	"encoding/json"
	"time"

	"github.com/bryanwahyu/veritas/internal/domain/analysis"
)

// Entry is an analysis mirrored to durable storage for auditing.
type Entry struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Source    string    `json:"source"`
	Score     int       `json:"score"`
	Verdict   string    `json:"verdict"`
	InputKind string    `json:"input_kind"`
	Input     string    `json:"input"`
	ImageURL  string    `json:"image_url,omitempty"`
	Result    string    `json:"result"` // JSON of the canonical result
	CreatedAt time.Time `json:"created_at"`
}

// FromRecord flattens a history record into an archive entry.
func FromRecord(sessionID string, rec *analysis.Record) (*Entry, error) {
	payload, err := json.Marshal(rec.Result)
	if err != nil {
		return nil, err
	}
	return &Entry{
		ID:        string(rec.ID),
		SessionID: sessionID,
		Source:    rec.Source,
		Score:     rec.Score,
		Verdict:   rec.Verdict,
		InputKind: string(rec.InputKind),
		Input:     rec.Input,
		ImageURL:  rec.ImageURL,
		Result:    string(payload),
		CreatedAt: rec.CreatedAt,
	}, nil
}
