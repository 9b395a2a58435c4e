/*
Package storagemodels defines the data structures shared by the proxy and its backends.

Key Types:

PartitionKey:
The caller-supplied partition value, passed through to the store:

	pk := storagemodels.NewPartitionKeyString("tenant-42")
	pk := storagemodels.NewPartitionKeyNumber(7)
	pk := storagemodels.NullPartitionKey

ItemRequestOptions / QueryRequestOptions:
Per-call overrides. nil means store defaults:

	opts := &storagemodels.ItemRequestOptions{
	    IfMatchETag:      resp.ETag,
	    ConsistencyLevel: storagemodels.ConsistencyStrong,
	}

	qopts := &storagemodels.QueryRequestOptions{
	    PartitionKey: &pk,
	    MaxItemCount: 50,
	}

ItemResponse / FeedResponse:
The store's envelopes, returned as-is:

	type ItemResponse[T any] struct {
	    Resource      T
	    StatusCode    int
	    RequestCharge float64
	    ETag          string
	    ActivityID    string
	    SessionToken  string
	}

StreamResult:
Results from channel streaming with metadata:

	for r := range proxy.Stream(ctx, cond, nil, storagemodels.WithBufferSize(10)) {
	    if r.Error != nil {
	        return r.Error
	    }
	    use(r.Item)
	}
*/
package storagemodels
