/*
Package datastore defines the store contract the document proxy drives.

Container[T] is a handle to one container of a document store:

	type Container[T any] interface {
	    CreateItem(ctx, item T, pk, opts) (*storagemodels.ItemResponse[T], error)
	    ReplaceItem(ctx, item T, id string, pk, opts) (*storagemodels.ItemResponse[T], error)
	    UpsertItem(ctx, item T, pk, opts) (*storagemodels.ItemResponse[T], error)
	    ReadItem(ctx, id string, pk, opts) (*storagemodels.ItemResponse[T], error)
	    NewQueryIterator(q query.Query, opts) (FeedIterator[T], error)
	}

FeedIterator[T] is the store's paginated cursor: HasMoreResults, ReadNext and Close.

Implementations:
  - cosmos: Azure Cosmos DB through the azcosmos SDK
  - ddb: Amazon DynamoDB through aws-sdk-go-v2
  - mock: In-memory container for tests and local development

Document types are Go type parameters; each backend does its own encoding
(JSON for Cosmos DB and the mock, attribute values for DynamoDB), keyed on
the documents' json tags.
*/
package datastore
