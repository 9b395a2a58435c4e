/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package docproxy

import (
	"context"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/suparena/docproxy/config"
	"github.com/suparena/docproxy/datastore"
	"github.com/suparena/docproxy/datastore/cosmos"
	"github.com/suparena/docproxy/datastore/ddb"
	"github.com/suparena/docproxy/datastore/mock"
	"github.com/suparena/docproxy/query"
	"github.com/suparena/docproxy/storagemodels"
)

// Proxy forwards document operations to one bound container. It holds no
// mutable state and is safe for concurrent use.
type Proxy[T any] struct {
	container datastore.Container[T]
	logger    *zap.Logger
}

// Option configures a Proxy.
type Option func(*proxyOptions)

type proxyOptions struct {
	logger *zap.Logger
}

// WithLogger sets the logger used for construction and feed lifecycle events.
func WithLogger(logger *zap.Logger) Option {
	return func(o *proxyOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func applyOptions(opts []Option) proxyOptions {
	o := proxyOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New resolves the container named by cfg once and binds a proxy to it.
func New[T any](ctx context.Context, cfg config.Config, clientOpts config.ClientOptions, opts ...Option) (*Proxy[T], error) {
	o := applyOptions(opts)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := clientOpts.Validate(); err != nil {
		return nil, err
	}
	if clientOpts.ApplicationName == "" {
		clientOpts.ApplicationName = "docproxy/" + Version
	}

	var container datastore.Container[T]
	switch cfg.Backend {
	case config.BackendCosmos, "":
		c, err := cosmos.NewContainer[T](ctx, cfg, clientOpts, o.logger)
		if err != nil {
			return nil, err
		}
		container = c
	case config.BackendDynamoDB:
		c, err := ddb.NewContainer[T](ctx, cfg, clientOpts, o.logger)
		if err != nil {
			return nil, err
		}
		container = c
	case config.BackendMemory:
		container = mock.New[T]().WithName(cfg.ContainerID)
	default:
		return nil, fmt.Errorf("unsupported backend %q", cfg.Backend)
	}

	o.logger.Debug("document proxy bound",
		zap.String("backend", string(cfg.Backend)),
		zap.String("database", cfg.DatabaseID),
		zap.String("container", cfg.ContainerID))

	return &Proxy[T]{container: container, logger: o.logger}, nil
}

// NewWithContainer binds a proxy to an already constructed container.
func NewWithContainer[T any](container datastore.Container[T], opts ...Option) *Proxy[T] {
	o := applyOptions(opts)
	return &Proxy[T]{container: container, logger: o.logger}
}

// Container returns the bound container.
func (p *Proxy[T]) Container() datastore.Container[T] {
	return p.container
}

// Create stores a new document. It fails if a document with the same id
// already exists in the partition.
func (p *Proxy[T]) Create(ctx context.Context, doc T, pk storagemodels.PartitionKey, opts *storagemodels.ItemRequestOptions) (*storagemodels.ItemResponse[T], error) {
	return p.container.CreateItem(ctx, doc, pk, opts)
}

// Replace overwrites the document with the given id. It never creates one.
func (p *Proxy[T]) Replace(ctx context.Context, doc T, id string, pk storagemodels.PartitionKey, opts *storagemodels.ItemRequestOptions) (*storagemodels.ItemResponse[T], error) {
	return p.container.ReplaceItem(ctx, doc, id, pk, opts)
}

// Upsert creates the document or replaces the existing one.
func (p *Proxy[T]) Upsert(ctx context.Context, doc T, pk storagemodels.PartitionKey, opts *storagemodels.ItemRequestOptions) (*storagemodels.ItemResponse[T], error) {
	return p.container.UpsertItem(ctx, doc, pk, opts)
}

// GetByID reads one document.
func (p *Proxy[T]) GetByID(ctx context.Context, id string, pk storagemodels.PartitionKey, opts *storagemodels.ItemRequestOptions) (*storagemodels.ItemResponse[T], error) {
	return p.container.ReadItem(ctx, id, pk, opts)
}

// GetDocuments runs the query built by cond and returns every matching
// document in the order the store delivered them. A nil cond matches all
// documents. The whole result is held in memory.
func (p *Proxy[T]) GetDocuments(ctx context.Context, cond query.Condition, opts *storagemodels.QueryRequestOptions) ([]T, error) {
	feed, err := p.openFeed(cond, opts)
	if err != nil {
		return nil, err
	}
	defer feed.Close()

	docs := make([]T, 0)
	for feed.HasMoreResults() {
		page, err := feed.ReadNext(ctx)
		if err != nil {
			return nil, err
		}
		docs = append(docs, page.Items...)
	}
	return docs, nil
}

// GetDocumentsIterator runs the same query as GetDocuments but fetches pages
// only as the caller advances. The caller must Close the iterator if it stops
// before exhaustion.
func (p *Proxy[T]) GetDocumentsIterator(ctx context.Context, cond query.Condition, opts *storagemodels.QueryRequestOptions) (*DocumentIterator[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	feed, err := p.openFeed(cond, opts)
	if err != nil {
		return nil, err
	}
	return newDocumentIterator(feed, p.logger), nil
}

// Documents is the range-over-func form of GetDocumentsIterator. The feed is
// released when the loop ends, including on break. A failure is yielded once
// with the zero document and ends the sequence.
func (p *Proxy[T]) Documents(ctx context.Context, cond query.Condition, opts *storagemodels.QueryRequestOptions) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		it, err := p.GetDocumentsIterator(ctx, cond, opts)
		if err != nil {
			var zero T
			yield(zero, err)
			return
		}
		it.All(ctx)(yield)
	}
}

func (p *Proxy[T]) openFeed(cond query.Condition, opts *storagemodels.QueryRequestOptions) (datastore.FeedIterator[T], error) {
	q := query.Apply(cond, query.New())
	return p.container.NewQueryIterator(q, opts)
}
