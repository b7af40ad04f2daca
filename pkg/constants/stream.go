package constants

import "time"

// Dashboard streaming client tuning
const (
	StreamMaxRetries     = 10               // consecutive transport failures before falling back to polling
	StreamBaseBackoff    = time.Second      // delay unit for exponential reconnect backoff
	StreamMaxBackoff     = 30 * time.Second // reconnect delay ceiling
	SnapshotPollInterval = 5 * time.Second  // snapshot polling period once streaming is abandoned
)

// Frame types on the session stream
const (
	FrameInitial = "initial"
	FrameInsert  = "insert"
	FrameUpdate  = "update"
	FrameDelete  = "delete"
	FrameError   = "error"
)

// ContentTypeNDJSON is the media type of streamed frames
const ContentTypeNDJSON = "application/x-ndjson"
