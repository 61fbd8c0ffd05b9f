// Package constants provides shared constants used across the codebase.
// Centralizing these values ensures consistency and makes them easier to modify.
package constants

import "time"

// Registration constants
const (
	// SamplesPerSession is the number of face samples a registration session collects
	SamplesPerSession = 5

	// CaptureThrottle is the pause after an accepted sample, so consecutive
	// samples are not near-duplicates of the same pose
	CaptureThrottle = 500 * time.Millisecond
)

// Frame acquisition constants
const (
	// ReadRetryDelay is the first pause after an unreadable frame. It doubles
	// with every consecutive failure up to ReadRetryDelay << MaxReadRetryShift.
	ReadRetryDelay = 10 * time.Millisecond

	// MaxReadRetryShift caps the read retry backoff
	MaxReadRetryShift = 5
)

// Recognition constants
const (
	// RecognitionThreshold is the LBPH distance a prediction must stay strictly
	// below to be accepted. Lower distances are better matches.
	RecognitionThreshold = 80.0

	// FaceSize is the side of the square gray image faces are normalized to
	// before histogram extraction
	FaceSize = 100
)

// LBPH defaults, matching the usual OpenCV parameters
const (
	DefaultLBPHRadius    = 1
	DefaultLBPHNeighbors = 8
)

// Encoding constants
const (
	// JPEGQuality is used for stored samples and streamed frames
	JPEGQuality = 90

	// LedgerTimeLayout is the timestamp layout of ledger rows
	LedgerTimeLayout = "2006-01-02 15:04:05"
)
