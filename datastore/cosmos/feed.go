/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cosmos

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"

	"github.com/suparena/docproxy/storagemodels"
)

// feed adapts the SDK pager to datastore.FeedIterator.
type feed[T any] struct {
	pager  *runtime.Pager[azcosmos.QueryItemsResponse]
	closed bool
}

func (f *feed[T]) HasMoreResults() bool {
	return !f.closed && f.pager.More()
}

func (f *feed[T]) ReadNext(ctx context.Context) (*storagemodels.FeedResponse[T], error) {
	if f.closed {
		return nil, fmt.Errorf("feed is closed")
	}
	page, err := f.pager.NextPage(ctx)
	if err != nil {
		return nil, err
	}

	resp := &storagemodels.FeedResponse[T]{
		Items:         make([]T, 0, len(page.Items)),
		RequestCharge: float64(page.RequestCharge),
		ActivityID:    page.ActivityID,
	}
	if page.ContinuationToken != nil {
		resp.ContinuationToken = *page.ContinuationToken
	}
	for _, raw := range page.Items {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document: %w", err)
		}
		resp.Items = append(resp.Items, item)
	}
	return resp, nil
}

// Close drops the pager. The SDK pager holds no connection between pages, so
// there is nothing to release server-side.
func (f *feed[T]) Close() error {
	f.closed = true
	f.pager = nil
	return nil
}
