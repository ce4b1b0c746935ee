package analysis

import "errors"

var (
	// ErrMissingCredentials means a required collaborator credential was not configured.
	ErrMissingCredentials = errors.New("missing credentials")
	ErrUnsupportedImage   = errors.New("unsupported image type")
	ErrEmptyInput         = errors.New("empty input")
)
