// Package constants provides shared constants used across the codebase.
package constants

// Event channel constants
const (
	// EventChannelBuffer is the buffer size for event channels
	EventChannelBuffer = 100
)

// Stream constants
const (
	// StreamBoundary is the multipart boundary of the video feeds
	StreamBoundary = "frame"

	// LiveClientBuffer is the per-client buffer of the live attendance feed
	LiveClientBuffer = 32
)
