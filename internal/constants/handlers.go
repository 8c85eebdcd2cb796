// Package constants provides shared constants used across the codebase.
package constants

import "time"

// Handler pagination constants
const (
	// DefaultLogsPageSize is the page size used when walking the backend audit log
	DefaultLogsPageSize = 50

	// DefaultJournalLimit is the default number of journal rows listed
	DefaultJournalLimit = 50

	// MaxJournalLimit caps a single journal listing
	MaxJournalLimit = 1000
)

// Status endpoint constants
const (
	// StatusAwaitTimeout bounds how long GET /gate/status?await= blocks
	StatusAwaitTimeout = 30 * time.Second

	// SSEKeepAlive is the interval between comment lines on idle streams
	SSEKeepAlive = 25 * time.Second
)

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// File upload constants
const (
	// MaxUploadSize is the maximum image upload size in bytes (20MB)
	MaxUploadSize = 20 << 20
)
