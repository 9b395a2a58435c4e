/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docproxy

import (
	"context"
	"iter"

	"go.uber.org/zap"

	"github.com/suparena/docproxy/datastore"
	"github.com/suparena/docproxy/storagemodels"
)

// DocumentIterator walks query results one document at a time. It reads a
// page from the store only when the buffered page is used up, so stopping
// early leaves the remaining pages unfetched.
//
// Typical use:
//
//	it, err := proxy.GetDocumentsIterator(ctx, cond, nil)
//	if err != nil {
//	    return err
//	}
//	defer it.Close()
//	for it.Next(ctx) {
//	    doc := it.Document()
//	    ...
//	}
//	return it.Err()
//
// A DocumentIterator is single-pass and not safe for concurrent use.
type DocumentIterator[T any] struct {
	feed   datastore.FeedIterator[T]
	logger *zap.Logger

	page    []T
	pos     int
	current T
	err     error
	closed  bool

	pages         int
	delivered     int64
	token         string
	requestCharge float64
}

func newDocumentIterator[T any](feed datastore.FeedIterator[T], logger *zap.Logger) *DocumentIterator[T] {
	return &DocumentIterator[T]{feed: feed, logger: logger}
}

// Next advances to the next document, fetching a page if the buffered one is
// exhausted. It returns false once the results are exhausted, an error
// occurred or the iterator was closed; the feed is released in all three cases.
func (it *DocumentIterator[T]) Next(ctx context.Context) bool {
	if it.closed {
		return false
	}

	for it.pos >= len(it.page) {
		if !it.feed.HasMoreResults() {
			if cerr := it.Close(); cerr != nil {
				it.logger.Warn("failed to close feed", zap.Error(cerr))
			}
			return false
		}
		if err := ctx.Err(); err != nil {
			it.fail(err)
			return false
		}

		resp, err := it.feed.ReadNext(ctx)
		if err != nil {
			it.fail(err)
			return false
		}
		it.page = resp.Items
		it.pos = 0
		it.pages++
		it.token = resp.ContinuationToken
		it.requestCharge += resp.RequestCharge

		it.logger.Debug("fetched feed page",
			zap.Int("page", it.pages),
			zap.Int("items", resp.Count()),
			zap.Float64("request_charge", resp.RequestCharge))
	}

	it.current = it.page[it.pos]
	it.pos++
	it.delivered++
	return true
}

// Document returns the document Next advanced to.
func (it *DocumentIterator[T]) Document() T {
	return it.current
}

// Err returns the error that stopped iteration, if any. It is the store's
// error, unchanged.
func (it *DocumentIterator[T]) Err() error {
	return it.err
}

// Close releases the underlying feed. It is safe to call more than once.
func (it *DocumentIterator[T]) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	it.page = nil
	var zero T
	it.current = zero
	return it.feed.Close()
}

// All adapts the iterator to a range-over-func sequence. The iterator is
// closed when the loop ends. A failure is yielded once with the zero
// document.
func (it *DocumentIterator[T]) All(ctx context.Context) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer it.Close()
		for it.Next(ctx) {
			if !yield(it.Document(), nil) {
				return
			}
		}
		if err := it.Err(); err != nil {
			var zero T
			yield(zero, err)
		}
	}
}

// Progress reports how far the iterator has read.
func (it *DocumentIterator[T]) Progress() storagemodels.StreamProgress {
	return storagemodels.StreamProgress{
		ItemsProcessed:    it.delivered,
		PagesProcessed:    it.pages,
		ContinuationToken: it.token,
		RequestCharge:     it.requestCharge,
	}
}

func (it *DocumentIterator[T]) fail(err error) {
	it.err = err
	if cerr := it.Close(); cerr != nil {
		it.logger.Warn("failed to close feed", zap.Error(cerr))
	}
}
