package common

import "time"

const (
	// MaxRequestBody limits JSON request bodies.
	MaxRequestBody = 1 << 20
	// DefaultStoreLimit is the admin store search page size.
	DefaultStoreLimit = 20
	// RequestTimeout bounds repository calls made from a handler.
	RequestTimeout = 5 * time.Second
	// ReportTimeout bounds the all-stores invoice fan-out.
	ReportTimeout = 30 * time.Second
)
