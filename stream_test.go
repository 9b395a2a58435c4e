/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docproxy_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/suparena/docproxy"
	"github.com/suparena/docproxy/datastore/mock"
	"github.com/suparena/docproxy/datastore/testmodels"
	"github.com/suparena/docproxy/query"
	"github.com/suparena/docproxy/storagemodels"
)

func TestProxyStream(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers documents in order with metadata", func(t *testing.T) {
		proxy, store := newOrderProxy(t, 3)
		orders := testmodels.Orders("c1", 7)
		seed(t, proxy, orders)

		var progress []storagemodels.StreamProgress
		var got []testmodels.Order
		for result := range proxy.Stream(ctx, nil, nil, storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) {
			progress = append(progress, p)
		})) {
			require.NoError(t, result.Error)
			require.Equal(t, int64(len(got)), result.Meta.Index)
			require.Equal(t, len(got)/3+1, result.Meta.PageNumber)
			require.False(t, result.Meta.Timestamp.IsZero())
			got = append(got, result.Item)
		}
		requireOrdersEqual(t, orders, got)
		require.Equal(t, int64(0), store.OpenFeeds())

		// one report per page
		require.Len(t, progress, 3)
		for i, p := range progress {
			require.Equal(t, i+1, p.PagesProcessed)
		}
		last := progress[len(progress)-1]
		require.Equal(t, int64(7), last.ItemsProcessed)
		require.Equal(t, 3, last.PagesProcessed)
		require.False(t, last.StartTime.IsZero())
	})

	t.Run("empty result still reports its page", func(t *testing.T) {
		proxy, _ := newOrderProxy(t, 3)

		var progress []storagemodels.StreamProgress
		for result := range proxy.Stream(ctx, nil, nil, storagemodels.WithProgressHandler(func(p storagemodels.StreamProgress) {
			progress = append(progress, p)
		})) {
			t.Fatalf("unexpected result %+v", result)
		}
		require.Len(t, progress, 1)
		require.Equal(t, int64(0), progress[0].ItemsProcessed)
		require.Equal(t, 1, progress[0].PagesProcessed)
	})

	t.Run("matches the eager result", func(t *testing.T) {
		proxy, _ := newOrderProxy(t, 2)
		seed(t, proxy, testmodels.Orders("c1", 5))
		cond := func(q query.Query) query.Query {
			return q.Where("total", query.Ge, 200).OrderByDesc("total")
		}

		eager, err := proxy.GetDocuments(ctx, cond, nil)
		require.NoError(t, err)

		var streamed []testmodels.Order
		for result := range proxy.Stream(ctx, cond, nil, storagemodels.WithBufferSize(4)) {
			require.NoError(t, result.Error)
			streamed = append(streamed, result.Item)
		}
		requireOrdersEqual(t, eager, streamed)
	})

	t.Run("failure is sent as the final result", func(t *testing.T) {
		unavailable := stderrors.New("service unavailable")
		store := mock.New[testmodels.Order]().WithQueryError(unavailable)
		proxy := docproxy.NewWithContainer[testmodels.Order](store)

		var results []storagemodels.StreamResult[testmodels.Order]
		for result := range proxy.Stream(ctx, nil, nil) {
			results = append(results, result)
		}
		require.Len(t, results, 1)
		require.True(t, results[0].Error == unavailable)
		require.Equal(t, int64(0), store.OpenFeeds())
	})

	t.Run("cancel stops the producer and releases the feed", func(t *testing.T) {
		proxy, store := newOrderProxy(t, 2)
		seed(t, proxy, testmodels.Orders("c1", 10))

		streamCtx, cancel := context.WithCancel(ctx)
		ch := proxy.Stream(streamCtx, nil, nil)

		first := <-ch
		require.NoError(t, first.Error)
		cancel()

		// drain until the producer closes the channel
		deadline := time.After(2 * time.Second)
		for {
			select {
			case _, ok := <-ch:
				if !ok {
					require.Eventually(t, func() bool { return store.OpenFeeds() == 0 }, time.Second, 5*time.Millisecond)
					require.Less(t, store.FetchCount(), int64(5))
					return
				}
			case <-deadline:
				t.Fatal("stream did not close after cancel")
			}
		}
	})
}
