/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/docproxy/datastore"
	"github.com/suparena/docproxy/errors"
	"github.com/suparena/docproxy/query"
	"github.com/suparena/docproxy/storagemodels"
)

// NewQueryIterator runs q as a Query when opts restricts it to one partition
// and as a Scan otherwise. DynamoDB can only order by the sort key inside a
// partition, so other orderings are rejected.
func (d *Container[T]) NewQueryIterator(q query.Query, opts *storagemodels.QueryRequestOptions) (datastore.FeedIterator[T], error) {
	if err := q.Validate(); err != nil {
		return nil, errors.NewValidationError("query", err.Error())
	}
	if opts == nil {
		opts = &storagemodels.QueryRequestOptions{}
	}

	b := newExpressionBuilder()
	f := &feed[T]{
		container: d,
		remaining: q.Limit(),
	}

	var startKey map[string]types.AttributeValue
	if opts.ContinuationToken != "" {
		key, err := decodeToken(opts.ContinuationToken)
		if err != nil {
			return nil, err
		}
		startKey = key
	}

	var limit *int32
	if opts.MaxItemCount > 0 {
		limit = aws.Int32(opts.MaxItemCount)
	}
	consistent := d.consistentRead
	if opts.ConsistencyLevel != "" {
		consistent = opts.ConsistencyLevel == storagemodels.ConsistencyStrong
	}

	filterExpr, err := b.filter(q.Filters())
	if err != nil {
		return nil, errors.NewValidationError("query", err.Error())
	}
	var projection *string
	if fields := q.Projection(); fields != nil {
		projection = aws.String(b.projection(fields))
	}

	partitioned := opts.PartitionKey != nil && !opts.PartitionKey.IsNone()
	orders := q.Orders()
	if len(orders) > 1 || (len(orders) == 1 && (!partitioned || orders[0].Field != d.idAttr)) {
		return nil, errors.NewValidationError("orderBy", fmt.Sprintf("DynamoDB can only order by %q within a single partition", d.idAttr))
	}

	if partitioned {
		keyCond := fmt.Sprintf("%s = %s", b.path(d.pkAttr), mustValue(b, opts.PartitionKey.String()))
		input := &sdk.QueryInput{
			TableName:              &d.tableName,
			KeyConditionExpression: &keyCond,
			ProjectionExpression:   projection,
			Limit:                  limit,
			ConsistentRead:         aws.Bool(consistent),
			ExclusiveStartKey:      startKey,
			ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
		}
		if filterExpr != "" {
			input.FilterExpression = &filterExpr
		}
		if len(orders) == 1 {
			input.ScanIndexForward = aws.Bool(!orders[0].Descending)
		}
		input.ExpressionAttributeNames = b.attributeNames()
		input.ExpressionAttributeValues = b.attributeValues()
		f.query = input
		return f, nil
	}

	input := &sdk.ScanInput{
		TableName:              &d.tableName,
		ProjectionExpression:   projection,
		Limit:                  limit,
		ConsistentRead:         aws.Bool(consistent),
		ExclusiveStartKey:      startKey,
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	}
	if filterExpr != "" {
		input.FilterExpression = &filterExpr
	}
	input.ExpressionAttributeNames = b.attributeNames()
	input.ExpressionAttributeValues = b.attributeValues()
	f.scan = input
	return f, nil
}

// feed pages through a Query or Scan by LastEvaluatedKey.
type feed[T any] struct {
	container *Container[T]
	query     *sdk.QueryInput
	scan      *sdk.ScanInput
	// remaining counts down a Top limit; 0 means unlimited.
	remaining int
	done      bool
}

func (f *feed[T]) HasMoreResults() bool {
	return !f.done
}

func (f *feed[T]) ReadNext(ctx context.Context) (*storagemodels.FeedResponse[T], error) {
	if f.done {
		return nil, fmt.Errorf("feed has no more results")
	}

	var (
		items   []map[string]types.AttributeValue
		lastKey map[string]types.AttributeValue
		cc      *types.ConsumedCapacity
	)
	if f.query != nil {
		out, err := f.container.client.Query(ctx, f.query)
		if err != nil {
			return nil, fmt.Errorf("query error: %w", err)
		}
		items, lastKey, cc = out.Items, out.LastEvaluatedKey, out.ConsumedCapacity
		f.query.ExclusiveStartKey = lastKey
	} else {
		out, err := f.container.client.Scan(ctx, f.scan)
		if err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		items, lastKey, cc = out.Items, out.LastEvaluatedKey, out.ConsumedCapacity
		f.scan.ExclusiveStartKey = lastKey
	}

	limited := false
	if f.remaining > 0 {
		if len(items) >= f.remaining {
			items = items[:f.remaining]
			limited = true
		}
		f.remaining -= len(items)
	}

	resp := &storagemodels.FeedResponse[T]{
		Items:         make([]T, 0, len(items)),
		RequestCharge: capacity(cc),
	}
	for _, item := range items {
		var doc T
		if err := f.container.unmarshalItem(item, &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal item: %w", err)
		}
		resp.Items = append(resp.Items, doc)
	}

	if limited || len(lastKey) == 0 {
		f.done = true
		return resp, nil
	}
	token, err := encodeToken(lastKey)
	if err != nil {
		return nil, err
	}
	resp.ContinuationToken = token
	return resp, nil
}

func (f *feed[T]) Close() error {
	f.done = true
	return nil
}

func mustValue(b *expressionBuilder, s string) string {
	// strings always marshal
	ph, _ := b.value(s)
	return ph
}

// encodeToken serializes a LastEvaluatedKey. Table and index keys here are
// always strings.
func encodeToken(key map[string]types.AttributeValue) (string, error) {
	plain := make(map[string]string, len(key))
	for k, v := range key {
		s, ok := v.(*types.AttributeValueMemberS)
		if !ok {
			return "", fmt.Errorf("unsupported key attribute type for %q", k)
		}
		plain[k] = s.Value
	}
	raw, err := json.Marshal(plain)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeToken(token string) (map[string]types.AttributeValue, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, errors.NewValidationError("continuationToken", "malformed token")
	}
	var plain map[string]string
	if err := json.Unmarshal(raw, &plain); err != nil {
		return nil, errors.NewValidationError("continuationToken", "malformed token")
	}
	key := make(map[string]types.AttributeValue, len(plain))
	for k, v := range plain {
		key[k] = &types.AttributeValueMemberS{Value: v}
	}
	return key, nil
}
