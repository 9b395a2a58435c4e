/*
Package ddb provides a DynamoDB implementation of the datastore.Container interface.

One container maps to one table keyed by a hash key holding the partition key
(default attribute "_pk") and a range key holding the document id (default "id").
Documents are encoded with their json tags.

Point operations:
  - CreateItem: PutItem with attribute_not_exists(id); conflicts surface as AlreadyExistsError
  - ReplaceItem: PutItem with attribute_exists(id); a missing document surfaces as NotFoundError
  - UpsertItem: unconditional PutItem
  - ReadItem: GetItem, strongly consistent when asked for Strong consistency

Every write stamps a fresh "_etag" attribute; ItemRequestOptions.IfMatchETag
turns into a condition on it, giving the same optimistic concurrency as
Cosmos DB's If-Match header.

Queries:
A query restricted to one partition runs as a Query, anything else as a Scan.
Predicates become a FilterExpression and projections a ProjectionExpression:

	pk := storagemodels.NewPartitionKeyString("customer-1")
	feed, _ := store.NewQueryIterator(
	    query.New().Where("status", query.Eq, "open").OrderByDesc("id"),
	    &storagemodels.QueryRequestOptions{PartitionKey: &pk, MaxItemCount: 25},
	)

Only the range key can be ordered on, and only within a partition. Continuation
tokens encode LastEvaluatedKey.

The container accepts any client satisfying API, so tests can substitute a fake
for *dynamodb.Client.
*/
package ddb
