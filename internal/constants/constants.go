// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Image constants
const (
	// MaxImageSize is the maximum dimension (width or height) of a face frame sent to the backend
	MaxImageSize = 1280

	// FaceJPEGQuality is the JPEG quality used when re-encoding face frames
	FaceJPEGQuality = 85

	// MaxSnapshotBytes caps the size of a single camera still frame
	MaxSnapshotBytes = 20 << 20
)

// Gate constants
const (
	// DefaultEventLogSize is the number of access events kept in memory
	DefaultEventLogSize = 200

	// DefaultFaceWindow is how long a verified token waits for the face capture
	DefaultFaceWindow = 60 * time.Second

	// SinkTimeout bounds a single event sink write (journal, bus)
	SinkTimeout = 5 * time.Second

	// SinkQueueSize is the number of events buffered for asynchronous sinks
	SinkQueueSize = 256
)
