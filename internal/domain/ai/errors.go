package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider kept returning a quota/limit error (HTTP 429 or similar)
// for every configured model.
var ErrQuotaExceeded = errors.New("ai quota exceeded, try again shortly")

// ErrModelUnavailable is returned when none of the configured models could be reached.
var ErrModelUnavailable = errors.New("ai model unavailable")
