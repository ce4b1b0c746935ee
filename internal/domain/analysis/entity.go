package analysis

import "time"

// RecordID identifier type
type RecordID string

// InputKind tells how a record's evidence was supplied.
type InputKind string

const (
	InputURL   InputKind = "url"
	InputImage InputKind = "image"
)

// Path names the strategy that produced a report.
type Path string

const (
	PathDirect        Path = "direct"
	PathInvestigative Path = "investigative"
	PathVision        Path = "vision"
	PathScreenshot    Path = "screenshot"
	PathReplay        Path = "replay"
)

// Result is the canonical trust verdict extracted from a model response.
type Result struct {
	ProductName               string     `json:"product_name"`
	Score                     int        `json:"score"`
	Verdict                   string     `json:"verdict"`
	RedFlags                  []string   `json:"red_flags"`
	KeyComplaints             []string   `json:"key_complaints"`
	ReviewsSummary            TextOrList `json:"reviews_summary"`
	DetailedTechnicalAnalysis Details    `json:"detailed_technical_analysis"`
}

// Record is an immutable history entry. Order is assigned by the history store.
type Record struct {
	ID        RecordID  `json:"id"`
	Source    string    `json:"source"`
	Score     int       `json:"score"`
	Verdict   string    `json:"verdict"`
	Result    Result    `json:"result"`
	ImageURL  string    `json:"image_url,omitempty"`
	Order     int       `json:"created_order"`
	InputKind InputKind `json:"input_kind"`
	Input     string    `json:"input"`
	CreatedAt time.Time `json:"created_at"`
}

// Report is what an analysis hands back to the caller.
type Report struct {
	Source   string  `json:"source"`
	Score    int     `json:"score"`
	Verdict  string  `json:"verdict"`
	ImageURL string  `json:"image_url,omitempty"`
	Path     Path    `json:"path"`
	Result   Result  `json:"result"`
	Record   *Record `json:"record,omitempty"`
}

// Request is one user action. It is one of URLRequest, ImageRequest or ReplayRequest.
type Request interface {
	isRequest()
}

type URLRequest struct {
	URL string
	// Refresh drops any cached evidence for URL before acquiring.
	Refresh bool
}

type ImageRequest struct {
	Data []byte
	MIME string
}

// ReplayRequest re-displays a stored record without calling any collaborator.
type ReplayRequest struct {
	Record *Record
}

func (URLRequest) isRequest()    {}
func (ImageRequest) isRequest()  {}
func (ReplayRequest) isRequest() {}
