/*
Package cosmos provides an Azure Cosmos DB implementation of the
datastore.Container interface on top of the azcosmos SDK.

A container is resolved once from a connection string, database id and
container id:

	store, err := cosmos.NewContainer[Order](ctx, cfg, config.DefaultClientOptions(), logger)

Point operations map one-to-one onto the SDK's CreateItem, ReplaceItem,
UpsertItem and ReadItem. Errors are returned exactly as the SDK produced them
(*azcore.ResponseError for service failures), so errors.StatusCode and the
Is* helpers can classify them.

Query conditions are rendered to Cosmos SQL with named parameters; nested
fields use bracket notation and projections keep the document's nesting:

	SELECT TOP 10 * FROM c WHERE c["status"] = @p0 ORDER BY c["createdAt"] DESC

Feeds wrap the SDK pager and fetch one page per ReadNext. Without a partition
key the query fans out across partitions.
*/
package cosmos
