package storagemodels

import (
	"time"
)

// StreamResult represents a single document in a stream with metadata
type StreamResult[T any] struct {
	Item  T          // The decoded document
	Error error      // Set on the final result when the query failed
	Meta  StreamMeta // Metadata about this item
}

// StreamMeta contains metadata about a streamed item
type StreamMeta struct {
	Index      int64     // Item index in stream (0-based)
	PageNumber int       // Feed page number (1-based)
	Timestamp  time.Time // When item was retrieved
}

// StreamOptions configures streaming behavior
type StreamOptions struct {
	BufferSize      int                  // Channel buffer size (default: 0, unbuffered)
	ProgressHandler func(StreamProgress) // Optional progress callback, called after each page
}

// StreamProgress tracks streaming progress
type StreamProgress struct {
	ItemsProcessed    int64     // Total items delivered
	PagesProcessed    int       // Total pages fetched
	ContinuationToken string    // Token of the last fetched page
	RequestCharge     float64   // Accumulated request charge
	StartTime         time.Time // When streaming started
	CurrentRate       float64   // Items per second
}

// StreamOption is a functional option for configuring streaming
type StreamOption func(*StreamOptions)

// DefaultStreamOptions returns default streaming options. The channel is
// unbuffered so the producer stays at most one page ahead of the consumer.
func DefaultStreamOptions() StreamOptions {
	return StreamOptions{}
}

// WithBufferSize sets the channel buffer size
func WithBufferSize(size int) StreamOption {
	return func(opts *StreamOptions) {
		if size >= 0 {
			opts.BufferSize = size
		}
	}
}

// WithProgressHandler sets a progress callback
func WithProgressHandler(handler func(StreamProgress)) StreamOption {
	return func(opts *StreamOptions) {
		opts.ProgressHandler = handler
	}
}
