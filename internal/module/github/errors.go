package github

import "errors"

// Client errors.
var (
	// ErrUnavailable covers transport failures, non-2xx responses other than
	// auth rejections, and payloads that do not match the expected shape.
	ErrUnavailable = errors.New("github api unavailable")

	// ErrAuthRejected covers 401 and 403 responses.
	ErrAuthRejected = errors.New("github api rejected credentials")
)
