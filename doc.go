/*
Package docproxy is a thin generic proxy over a document database container.

A Proxy binds to exactly one container and forwards create, replace, upsert,
read and query calls to it. Retries, consistency, partition routing and the
wire format stay with the store's SDK; errors come back exactly as the store
raised them, so callers classify them with the errors package:

	proxy, err := docproxy.New[Order](ctx, cfg, clientOpts, docproxy.WithLogger(logger))
	if err != nil {
	    return err
	}

	pk := storagemodels.NewPartitionKeyString(order.CustomerID)
	if _, err := proxy.Create(ctx, order, pk, nil); errors.IsAlreadyExists(err) {
	    ...
	}

Queries take a Condition that refines the query over the whole container.
GetDocuments reads every page before returning; GetDocumentsIterator,
Documents and Stream read one page at a time as the caller consumes:

	open := func(q query.Query) query.Query {
	    return q.Where("status", query.Eq, "open").OrderByDesc("createdAt")
	}
	for order, err := range proxy.Documents(ctx, open, nil) {
	    if err != nil {
	        return err
	    }
	    ...
	}

Backends live under datastore: cosmos (Azure Cosmos DB), ddb (Amazon
DynamoDB) and mock (in memory, also used for the "memory" backend).
*/
package docproxy
