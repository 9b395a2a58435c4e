/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docproxy

import (
	"context"
	"time"

	"github.com/suparena/docproxy/query"
	"github.com/suparena/docproxy/storagemodels"
)

// Stream delivers the query results on a channel. One goroutine drives the
// lazy iterator; with the default unbuffered channel it fetches the next page
// only after the consumer has taken the last document of the current one.
//
// The channel is closed when the results are exhausted, after a failure
// (sent as a final result with Error set) or when ctx is done. Consumers that
// stop early must cancel ctx so the producer can release the feed.
func (p *Proxy[T]) Stream(ctx context.Context, cond query.Condition, opts *storagemodels.QueryRequestOptions, streamOpts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult[T] {
	options := storagemodels.DefaultStreamOptions()
	for _, opt := range streamOpts {
		opt(&options)
	}

	resultCh := make(chan storagemodels.StreamResult[T], options.BufferSize)
	go p.streamWorker(ctx, cond, opts, options, resultCh)
	return resultCh
}

func (p *Proxy[T]) streamWorker(
	ctx context.Context,
	cond query.Condition,
	opts *storagemodels.QueryRequestOptions,
	options storagemodels.StreamOptions,
	resultCh chan<- storagemodels.StreamResult[T],
) {
	defer close(resultCh)

	startTime := time.Now()
	sendErr := func(err error, index int64, page int) {
		select {
		case <-ctx.Done():
		case resultCh <- storagemodels.StreamResult[T]{
			Error: err,
			Meta: storagemodels.StreamMeta{
				Index:      index,
				PageNumber: page,
				Timestamp:  time.Now(),
			},
		}:
		}
	}

	it, err := p.GetDocumentsIterator(ctx, cond, opts)
	if err != nil {
		sendErr(err, 0, 0)
		return
	}
	defer it.Close()

	// One report per page fetched, taken once the page has been delivered.
	reported := -1
	reportProgress := func() {
		if options.ProgressHandler == nil || it.pages == reported {
			return
		}
		reported = it.pages
		progress := it.Progress()
		progress.StartTime = startTime
		if elapsed := time.Since(startTime).Seconds(); elapsed > 0 {
			progress.CurrentRate = float64(progress.ItemsProcessed) / elapsed
		}
		options.ProgressHandler(progress)
	}

	var index int64
	for it.Next(ctx) {
		result := storagemodels.StreamResult[T]{
			Item: it.Document(),
			Meta: storagemodels.StreamMeta{
				Index:      index,
				PageNumber: it.pages,
				Timestamp:  time.Now(),
			},
		}
		select {
		case <-ctx.Done():
			return
		case resultCh <- result:
		}
		index++

		if it.pos == len(it.page) {
			reportProgress()
		}
	}

	if err := it.Err(); err != nil {
		sendErr(err, index, it.pages)
		return
	}

	// Covers trailing empty pages and a query with no pages at all
	reportProgress()
}
