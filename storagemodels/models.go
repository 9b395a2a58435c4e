/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

// ConsistencyLevel names a read consistency the store can be asked for.
// The values match the Cosmos DB consistency levels.
type ConsistencyLevel string

const (
	ConsistencyStrong           ConsistencyLevel = "Strong"
	ConsistencyBoundedStaleness ConsistencyLevel = "BoundedStaleness"
	ConsistencySession          ConsistencyLevel = "Session"
	ConsistencyConsistentPrefix ConsistencyLevel = "ConsistentPrefix"
	ConsistencyEventual         ConsistencyLevel = "Eventual"
)

// ItemRequestOptions carries per-operation overrides for point operations.
// A nil *ItemRequestOptions means the store's default behavior.
type ItemRequestOptions struct {
	// IfMatchETag makes the write conditional on the stored document's ETag.
	IfMatchETag string
	// ConsistencyLevel overrides the account/client consistency for this call.
	ConsistencyLevel ConsistencyLevel
	// SessionToken is used with session consistency.
	SessionToken string
	// PreTriggers and PostTriggers name server-side triggers to run.
	PreTriggers  []string
	PostTriggers []string
	// EnableContentResponseOnWrite overrides the client default for returning
	// the persisted document on writes.
	EnableContentResponseOnWrite *bool
}

// QueryRequestOptions carries per-query overrides.
// A nil *QueryRequestOptions means the store's default behavior.
type QueryRequestOptions struct {
	// PartitionKey restricts the query to a single logical partition.
	PartitionKey *PartitionKey
	// MaxItemCount is the page size hint; 0 lets the store decide.
	MaxItemCount int32
	// ContinuationToken resumes a query from a previous page.
	ContinuationToken string
	// ConsistencyLevel overrides the client consistency for this query.
	ConsistencyLevel ConsistencyLevel
	// SessionToken is used with session consistency.
	SessionToken string
}

// ItemResponse is the store's envelope for a point operation.
type ItemResponse[T any] struct {
	// Resource is the document returned by the store. It is the zero value
	// when the store was asked not to echo the document on writes.
	Resource T
	// StatusCode is the HTTP-style status of the call (200, 201, ...).
	StatusCode int
	// RequestCharge is the cost of the call in the store's unit
	// (request units for Cosmos DB, capacity units for DynamoDB).
	RequestCharge float64
	// ETag identifies the stored version of the document.
	ETag string
	// ActivityID correlates the call with the store's diagnostics.
	ActivityID string
	// SessionToken is returned for session consistency.
	SessionToken string
}

// FeedResponse is one page of query results.
type FeedResponse[T any] struct {
	Items []T
	// ContinuationToken resumes the query after this page; empty when exhausted.
	ContinuationToken string
	RequestCharge     float64
	ActivityID        string
}

// Count returns the number of documents in the page.
func (r *FeedResponse[T]) Count() int {
	return len(r.Items)
}
