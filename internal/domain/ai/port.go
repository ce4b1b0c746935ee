package ai

import "context"

// Image is a picture attached to a prompt. Either Data (with MIME) or URL is set.
type Image struct {
	Data []byte
	MIME string
	URL  string
}

// Prompt is one request to the reasoning model.
type Prompt struct {
	System      string
	User        string
	Image       *Image
	WebSearch   bool     // ask for a model that can look things up on its own
	Temperature *float32 // nil keeps the provider default
}

type Client interface {
	Generate(ctx context.Context, p Prompt) (string, error)
}
