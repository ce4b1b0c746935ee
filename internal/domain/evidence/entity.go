package evidence

import "time"

// State of one acquisition.
type State string

const (
	StateAttempting State = "attempting"
	StateSucceeded  State = "succeeded"
	StateBlocked    State = "blocked"
	StateExhausted  State = "exhausted"
)

// Format requested from the scraper.
type Format string

const (
	FormatMarkdown   Format = "markdown"
	FormatHTML       Format = "html"
	FormatScreenshot Format = "screenshot"
)

// ScrapeOptions value object
type ScrapeOptions struct {
	Formats []Format
	Mobile  bool
	WaitFor time.Duration
}

// ScrapeResult is the scraper's answer, already normalised by the adapter.
type ScrapeResult struct {
	Markdown      string
	HTML          string
	ScreenshotURL string
	ImageURL      string // Open-Graph image hint from page metadata
}

// PageContent is usable evidence for a URL.
type PageContent struct {
	Text     string `json:"text"`
	ImageURL string `json:"image_url,omitempty"`
}

// Outcome is the terminal result of an acquisition. Page is set only when State is
// StateSucceeded.
type Outcome struct {
	State         State
	Page          *PageContent
	Attempts      int
	ScreenshotURL string
	Hostile       bool
	Cached        bool
	Err           error // last transport error, if any
}

func (o Outcome) Succeeded() bool { return o.State == StateSucceeded && o.Page != nil }
