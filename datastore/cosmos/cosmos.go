/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package cosmos

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/data/azcosmos"
	"go.uber.org/zap"

	"github.com/suparena/docproxy/config"
	"github.com/suparena/docproxy/datastore"
	"github.com/suparena/docproxy/errors"
	"github.com/suparena/docproxy/query"
	"github.com/suparena/docproxy/storagemodels"
)

// ContainerAPI is the subset of *azcosmos.ContainerClient the container uses.
type ContainerAPI interface {
	CreateItem(ctx context.Context, partitionKey azcosmos.PartitionKey, item []byte, o *azcosmos.ItemOptions) (azcosmos.ItemResponse, error)
	ReplaceItem(ctx context.Context, partitionKey azcosmos.PartitionKey, itemId string, item []byte, o *azcosmos.ItemOptions) (azcosmos.ItemResponse, error)
	UpsertItem(ctx context.Context, partitionKey azcosmos.PartitionKey, item []byte, o *azcosmos.ItemOptions) (azcosmos.ItemResponse, error)
	ReadItem(ctx context.Context, partitionKey azcosmos.PartitionKey, itemId string, o *azcosmos.ItemOptions) (azcosmos.ItemResponse, error)
	NewQueryItemsPager(query string, partitionKey azcosmos.PartitionKey, o *azcosmos.QueryOptions) *runtime.Pager[azcosmos.QueryItemsResponse]
}

// Container implements datastore.Container[T] on one Cosmos DB container.
// Documents are encoded as JSON; the store requires an "id" property.
type Container[T any] struct {
	client           ContainerAPI
	consistencyLevel storagemodels.ConsistencyLevel
	contentOnWrite   bool
}

var _ datastore.Container[struct{}] = (*Container[struct{}])(nil)

// NewCosmosClient creates an account client from a connection string.
func NewCosmosClient(connectionString string, opts config.ClientOptions) (*azcosmos.Client, error) {
	clientOpts := &azcosmos.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    opts.MaxRetries,
				RetryDelay:    opts.RetryDelay,
				MaxRetryDelay: opts.MaxRetryDelay,
			},
			Telemetry: policy.TelemetryOptions{
				ApplicationID: opts.ApplicationName,
			},
		},
		EnableContentResponseOnWrite: opts.EnableContentResponseOnWrite,
		PreferredRegions:             opts.PreferredRegions,
	}

	client, err := azcosmos.NewClientFromConnectionString(connectionString, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create Cosmos DB client: %w", err)
	}
	return client, nil
}

// NewContainer resolves cfg.DatabaseID/cfg.ContainerID once. With
// cfg.VerifyContainer set it also reads the container's properties, so a
// missing database or container fails here with the store's error.
func NewContainer[T any](ctx context.Context, cfg config.Config, opts config.ClientOptions, logger *zap.Logger) (*Container[T], error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client, err := NewCosmosClient(cfg.ConnectionString, opts)
	if err != nil {
		return nil, err
	}

	cc, err := client.NewContainer(cfg.DatabaseID, cfg.ContainerID)
	if err != nil {
		return nil, err
	}

	if cfg.VerifyContainer {
		if _, err := cc.Read(ctx, nil); err != nil {
			return nil, err
		}
	}

	logger.Info("Cosmos DB container initialized",
		zap.String("endpoint", client.Endpoint()),
		zap.String("database", cfg.DatabaseID),
		zap.String("container", cfg.ContainerID),
		zap.Strings("preferred_regions", opts.PreferredRegions))

	return NewWithClient[T](cc, opts), nil
}

// NewWithClient wraps an existing container client.
func NewWithClient[T any](client ContainerAPI, opts config.ClientOptions) *Container[T] {
	return &Container[T]{
		client:           client,
		consistencyLevel: opts.ConsistencyLevel,
		contentOnWrite:   opts.EnableContentResponseOnWrite,
	}
}

func (c *Container[T]) CreateItem(ctx context.Context, item T, pk storagemodels.PartitionKey, opts *storagemodels.ItemRequestOptions) (*storagemodels.ItemResponse[T], error) {
	body, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	resp, err := c.client.CreateItem(ctx, PartitionKey(pk), body, c.itemOptions(opts))
	if err != nil {
		return nil, err
	}
	return newItemResponse[T](resp)
}

func (c *Container[T]) ReplaceItem(ctx context.Context, item T, id string, pk storagemodels.PartitionKey, opts *storagemodels.ItemRequestOptions) (*storagemodels.ItemResponse[T], error) {
	body, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	resp, err := c.client.ReplaceItem(ctx, PartitionKey(pk), id, body, c.itemOptions(opts))
	if err != nil {
		return nil, err
	}
	return newItemResponse[T](resp)
}

func (c *Container[T]) UpsertItem(ctx context.Context, item T, pk storagemodels.PartitionKey, opts *storagemodels.ItemRequestOptions) (*storagemodels.ItemResponse[T], error) {
	body, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	resp, err := c.client.UpsertItem(ctx, PartitionKey(pk), body, c.itemOptions(opts))
	if err != nil {
		return nil, err
	}
	return newItemResponse[T](resp)
}

func (c *Container[T]) ReadItem(ctx context.Context, id string, pk storagemodels.PartitionKey, opts *storagemodels.ItemRequestOptions) (*storagemodels.ItemResponse[T], error) {
	resp, err := c.client.ReadItem(ctx, PartitionKey(pk), id, c.itemOptions(opts))
	if err != nil {
		return nil, err
	}
	return newItemResponse[T](resp)
}

// NewQueryIterator renders q to SQL and opens a pager. Without a partition key
// in opts the query fans out across partitions.
func (c *Container[T]) NewQueryIterator(q query.Query, opts *storagemodels.QueryRequestOptions) (datastore.FeedIterator[T], error) {
	sql, params, err := BuildSQL(q)
	if err != nil {
		return nil, errors.NewValidationError("query", err.Error())
	}

	qo := &azcosmos.QueryOptions{QueryParameters: params}
	pk := azcosmos.NewPartitionKey()
	level := c.consistencyLevel
	if opts != nil {
		if opts.PartitionKey != nil && !opts.PartitionKey.IsNone() {
			pk = PartitionKey(*opts.PartitionKey)
		}
		qo.PageSizeHint = opts.MaxItemCount
		if opts.ContinuationToken != "" {
			token := opts.ContinuationToken
			qo.ContinuationToken = &token
		}
		if opts.SessionToken != "" {
			session := opts.SessionToken
			qo.SessionToken = &session
		}
		if opts.ConsistencyLevel != "" {
			level = opts.ConsistencyLevel
		}
	}
	if level != "" {
		cl := azcosmos.ConsistencyLevel(level)
		qo.ConsistencyLevel = &cl
	}

	return &feed[T]{pager: c.client.NewQueryItemsPager(sql, pk, qo)}, nil
}

func (c *Container[T]) itemOptions(opts *storagemodels.ItemRequestOptions) *azcosmos.ItemOptions {
	io := &azcosmos.ItemOptions{EnableContentResponseOnWrite: c.contentOnWrite}
	level := c.consistencyLevel
	if opts != nil {
		io.PreTriggers = opts.PreTriggers
		io.PostTriggers = opts.PostTriggers
		if opts.IfMatchETag != "" {
			etag := azcore.ETag(opts.IfMatchETag)
			io.IfMatchEtag = &etag
		}
		if opts.SessionToken != "" {
			session := opts.SessionToken
			io.SessionToken = &session
		}
		if opts.EnableContentResponseOnWrite != nil {
			io.EnableContentResponseOnWrite = *opts.EnableContentResponseOnWrite
		}
		if opts.ConsistencyLevel != "" {
			level = opts.ConsistencyLevel
		}
	}
	if level != "" {
		cl := azcosmos.ConsistencyLevel(level)
		io.ConsistencyLevel = &cl
	}
	return io
}

// PartitionKey converts a proxy partition key to the SDK's representation.
// The zero key maps to the empty key the SDK uses for cross-partition queries.
func PartitionKey(pk storagemodels.PartitionKey) azcosmos.PartitionKey {
	switch v := pk.Value().(type) {
	case string:
		return azcosmos.NewPartitionKeyString(v)
	case float64:
		return azcosmos.NewPartitionKeyNumber(v)
	case bool:
		return azcosmos.NewPartitionKeyBool(v)
	}
	if pk.IsNull() {
		return azcosmos.NullPartitionKey
	}
	return azcosmos.NewPartitionKey()
}

func newItemResponse[T any](resp azcosmos.ItemResponse) (*storagemodels.ItemResponse[T], error) {
	out := &storagemodels.ItemResponse[T]{
		RequestCharge: float64(resp.RequestCharge),
		ETag:          string(resp.ETag),
		ActivityID:    resp.ActivityID,
	}
	if resp.RawResponse != nil {
		out.StatusCode = resp.RawResponse.StatusCode
	}
	if resp.SessionToken != nil {
		out.SessionToken = *resp.SessionToken
	}
	if len(resp.Value) > 0 {
		if err := json.Unmarshal(resp.Value, &out.Resource); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document: %w", err)
		}
	}
	return out, nil
}
