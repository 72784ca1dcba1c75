// Package media turns raw upload bytes into the fixed-shape numeric
// representations the classifiers consume. Decoded values are transient:
// they live for one request and are never persisted.
package media

import "errors"

// ErrUnprocessable marks input that cannot be decoded (corrupt bytes,
// unsupported container, empty upload). Handlers map it to 422.
var ErrUnprocessable = errors.New("unprocessable input")
