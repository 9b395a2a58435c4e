/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datastore

import (
	"context"

	"github.com/suparena/docproxy/query"
	"github.com/suparena/docproxy/storagemodels"
)

// Container is a handle to one container (collection, table) in a document store.
// Implementations must be safe for concurrent use.
type Container[T any] interface {
	CreateItem(ctx context.Context, item T, pk storagemodels.PartitionKey, opts *storagemodels.ItemRequestOptions) (*storagemodels.ItemResponse[T], error)

	ReplaceItem(ctx context.Context, item T, id string, pk storagemodels.PartitionKey, opts *storagemodels.ItemRequestOptions) (*storagemodels.ItemResponse[T], error)

	UpsertItem(ctx context.Context, item T, pk storagemodels.PartitionKey, opts *storagemodels.ItemRequestOptions) (*storagemodels.ItemResponse[T], error)

	ReadItem(ctx context.Context, id string, pk storagemodels.PartitionKey, opts *storagemodels.ItemRequestOptions) (*storagemodels.ItemResponse[T], error)

	// NewQueryIterator prepares a server-side feed for q. No request is made
	// until the first ReadNext.
	NewQueryIterator(q query.Query, opts *storagemodels.QueryRequestOptions) (FeedIterator[T], error)
}

// FeedIterator is a stateful cursor over the pages of a query.
type FeedIterator[T any] interface {
	// HasMoreResults reports whether another ReadNext may return documents.
	// It is true before the first page.
	HasMoreResults() bool

	// ReadNext fetches the next page.
	ReadNext(ctx context.Context) (*storagemodels.FeedResponse[T], error)

	// Close releases the cursor. After Close, HasMoreResults is false.
	Close() error
}
