/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package mock provides an in-memory implementation of datastore.Container for testing
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/suparena/docproxy/datastore"
	"github.com/suparena/docproxy/errors"
	"github.com/suparena/docproxy/query"
	"github.com/suparena/docproxy/storagemodels"
)

// DefaultPageSize is the page size used when neither the container nor the
// query sets one.
const DefaultPageSize = 100

const requestCharge = 1.0

type document struct {
	pk   storagemodels.PartitionKey
	id   string
	body []byte
	etag string
}

// Container is an in-memory datastore.Container[T]. Documents are kept in
// insertion order; replacing a document keeps its position.
type Container[T any] struct {
	name string

	mu    sync.RWMutex
	docs  []*document
	index map[string]*document

	pageSize     int
	latency      time.Duration
	createError  error
	replaceError error
	upsertError  error
	readError    error
	queryError   error

	fetches   atomic.Int64
	openFeeds atomic.Int64
}

var _ datastore.Container[struct{}] = (*Container[struct{}])(nil)

// New creates a new empty mock Container
func New[T any]() *Container[T] {
	return &Container[T]{
		name:     "mock",
		index:    make(map[string]*document),
		pageSize: DefaultPageSize,
	}
}

// WithName sets the container name used in error messages
func (m *Container[T]) WithName(name string) *Container[T] {
	m.name = name
	return m
}

// WithPageSize sets the default number of documents per feed page
func (m *Container[T]) WithPageSize(size int) *Container[T] {
	if size > 0 {
		m.pageSize = size
	}
	return m
}

// WithLatency makes every operation wait d before touching the data. The wait
// ends early, with the context's error, if the context is done.
func (m *Container[T]) WithLatency(d time.Duration) *Container[T] {
	m.latency = d
	return m
}

// WithCreateError makes CreateItem return err
func (m *Container[T]) WithCreateError(err error) *Container[T] {
	m.createError = err
	return m
}

// WithReplaceError makes ReplaceItem return err
func (m *Container[T]) WithReplaceError(err error) *Container[T] {
	m.replaceError = err
	return m
}

// WithUpsertError makes UpsertItem return err
func (m *Container[T]) WithUpsertError(err error) *Container[T] {
	m.upsertError = err
	return m
}

// WithReadError makes ReadItem return err
func (m *Container[T]) WithReadError(err error) *Container[T] {
	m.readError = err
	return m
}

// WithQueryError makes every feed page fetch return err
func (m *Container[T]) WithQueryError(err error) *Container[T] {
	m.queryError = err
	return m
}

// CreateItem stores item, failing with a conflict if the id already exists in pk
func (m *Container[T]) CreateItem(ctx context.Context, item T, pk storagemodels.PartitionKey, opts *storagemodels.ItemRequestOptions) (*storagemodels.ItemResponse[T], error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.createError != nil {
		return nil, m.createError
	}

	id, body, err := encode(item)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := docKey(pk, id)
	if _, exists := m.index[key]; exists {
		return nil, errors.NewAlreadyExistsError(m.name, key)
	}
	doc := &document{pk: pk, id: id, body: body, etag: newETag()}
	m.docs = append(m.docs, doc)
	m.index[key] = doc
	return m.response(doc, http.StatusCreated, opts)
}

// ReplaceItem overwrites an existing document, failing with not found if absent
func (m *Container[T]) ReplaceItem(ctx context.Context, item T, id string, pk storagemodels.PartitionKey, opts *storagemodels.ItemRequestOptions) (*storagemodels.ItemResponse[T], error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.replaceError != nil {
		return nil, m.replaceError
	}

	bodyID, body, err := encode(item)
	if err != nil {
		return nil, err
	}
	if bodyID != id {
		return nil, errors.NewValidationError(storagemodels.IDField, fmt.Sprintf("document id %q does not match %q", bodyID, id))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := docKey(pk, id)
	doc, exists := m.index[key]
	if !exists {
		return nil, errors.NewNotFoundError(m.name, key)
	}
	if err := checkETag(doc, opts, "replace"); err != nil {
		return nil, err
	}
	doc.body = body
	doc.etag = newETag()
	return m.response(doc, http.StatusOK, opts)
}

// UpsertItem creates or replaces the document with item's id in pk
func (m *Container[T]) UpsertItem(ctx context.Context, item T, pk storagemodels.PartitionKey, opts *storagemodels.ItemRequestOptions) (*storagemodels.ItemResponse[T], error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.upsertError != nil {
		return nil, m.upsertError
	}

	id, body, err := encode(item)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := docKey(pk, id)
	if doc, exists := m.index[key]; exists {
		if err := checkETag(doc, opts, "upsert"); err != nil {
			return nil, err
		}
		doc.body = body
		doc.etag = newETag()
		return m.response(doc, http.StatusOK, opts)
	}

	doc := &document{pk: pk, id: id, body: body, etag: newETag()}
	m.docs = append(m.docs, doc)
	m.index[key] = doc
	return m.response(doc, http.StatusCreated, opts)
}

// ReadItem returns the document with id in pk
func (m *Container[T]) ReadItem(ctx context.Context, id string, pk storagemodels.PartitionKey, opts *storagemodels.ItemRequestOptions) (*storagemodels.ItemResponse[T], error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	if m.readError != nil {
		return nil, m.readError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	key := docKey(pk, id)
	doc, exists := m.index[key]
	if !exists {
		return nil, errors.NewNotFoundError(m.name, key)
	}
	// reads always carry the document
	return m.response(doc, http.StatusOK, &storagemodels.ItemRequestOptions{EnableContentResponseOnWrite: ptr(true)})
}

// NewQueryIterator returns a feed over the documents matching q. Matching is
// evaluated against a snapshot taken on the first ReadNext.
func (m *Container[T]) NewQueryIterator(q query.Query, opts *storagemodels.QueryRequestOptions) (datastore.FeedIterator[T], error) {
	if err := q.Validate(); err != nil {
		return nil, errors.NewValidationError("query", err.Error())
	}

	pageSize := m.pageSize
	var offset int
	var pk *storagemodels.PartitionKey
	if opts != nil {
		if opts.MaxItemCount > 0 {
			pageSize = int(opts.MaxItemCount)
		}
		if opts.ContinuationToken != "" {
			n, err := decodeToken(opts.ContinuationToken)
			if err != nil {
				return nil, err
			}
			offset = n
		}
		pk = opts.PartitionKey
	}

	m.openFeeds.Add(1)
	return &feed[T]{
		container: m,
		query:     q,
		pk:        pk,
		pageSize:  pageSize,
		offset:    offset,
	}, nil
}

// Helper methods for testing

// FetchCount returns the number of feed pages fetched so far
func (m *Container[T]) FetchCount() int64 {
	return m.fetches.Load()
}

// OpenFeeds returns the number of feeds created and not yet closed or exhausted
func (m *Container[T]) OpenFeeds() int64 {
	return m.openFeeds.Load()
}

// Count returns the number of stored documents
func (m *Container[T]) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// Clear removes all documents
func (m *Container[T]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = nil
	m.index = make(map[string]*document)
}

func (m *Container[T]) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.latency <= 0 {
		return nil
	}
	timer := time.NewTimer(m.latency)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (m *Container[T]) response(doc *document, status int, opts *storagemodels.ItemRequestOptions) (*storagemodels.ItemResponse[T], error) {
	resp := &storagemodels.ItemResponse[T]{
		StatusCode:    status,
		RequestCharge: requestCharge,
		ETag:          doc.etag,
		ActivityID:    uuid.NewString(),
	}
	if opts == nil || opts.EnableContentResponseOnWrite == nil || *opts.EnableContentResponseOnWrite {
		if err := json.Unmarshal(doc.body, &resp.Resource); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
	}
	return resp, nil
}

// snapshot returns the decoded documents visible to a query, in insertion order.
func (m *Container[T]) snapshot(pk *storagemodels.PartitionKey) ([]map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]map[string]any, 0, len(m.docs))
	for _, doc := range m.docs {
		if pk != nil && !pk.IsNone() && doc.pk != *pk {
			continue
		}
		var fields map[string]any
		if err := json.Unmarshal(doc.body, &fields); err != nil {
			return nil, fmt.Errorf("failed to decode document %q: %w", doc.id, err)
		}
		out = append(out, fields)
	}
	return out, nil
}

func checkETag(doc *document, opts *storagemodels.ItemRequestOptions, op string) error {
	if opts == nil || opts.IfMatchETag == "" || opts.IfMatchETag == doc.etag {
		return nil
	}
	return errors.NewConditionFailedError(op, fmt.Sprintf("if-match %s", opts.IfMatchETag))
}

func encode(item any) (string, []byte, error) {
	id, err := storagemodels.DocumentID(item)
	if err != nil {
		return "", nil, errors.NewValidationError(storagemodels.IDField, err.Error())
	}
	if id == "" {
		return "", nil, errors.NewValidationError(storagemodels.IDField, "document has no id")
	}
	body, err := json.Marshal(item)
	if err != nil {
		return "", nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return id, body, nil
}

func docKey(pk storagemodels.PartitionKey, id string) string {
	return fmt.Sprintf("%s|%s", pk.String(), id)
}

func newETag() string {
	return `"` + uuid.NewString() + `"`
}

func ptr[V any](v V) *V {
	return &v
}
