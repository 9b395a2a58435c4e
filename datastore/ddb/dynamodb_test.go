/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"

	"github.com/suparena/docproxy/errors"
	"github.com/suparena/docproxy/query"
	"github.com/suparena/docproxy/storagemodels"
)

// TestEntity for testing
type TestEntity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Age  int    `json:"age"`
}

// fakeTable is a single-table stand-in for the DynamoDB client. It understands
// the condition expressions the container emits and serves Query/Scan from
// canned pages.
type fakeTable struct {
	items map[string]map[string]types.AttributeValue

	puts    []*sdk.PutItemInput
	gets    []*sdk.GetItemInput
	queries []*sdk.QueryInput
	scans   []*sdk.ScanInput

	queryPages []*sdk.QueryOutput
	scanPages  []*sdk.ScanOutput
	err        error
}

func newFakeTable() *fakeTable {
	return &fakeTable{items: make(map[string]map[string]types.AttributeValue)}
}

func rowKey(item map[string]types.AttributeValue) string {
	return stringAttr(item, DefaultPartitionKeyAttribute) + "|" + stringAttr(item, "id")
}

func (f *fakeTable) GetItem(_ context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	f.gets = append(f.gets, in)
	if f.err != nil {
		return nil, f.err
	}
	return &sdk.GetItemOutput{Item: f.items[rowKey(in.Key)]}, nil
}

func (f *fakeTable) PutItem(_ context.Context, in *sdk.PutItemInput, _ ...func(*sdk.Options)) (*sdk.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	if f.err != nil {
		return nil, f.err
	}
	key := rowKey(in.Item)
	old, exists := f.items[key]

	if in.ConditionExpression != nil {
		cond := *in.ConditionExpression
		ok := true
		if strings.Contains(cond, "attribute_not_exists") && exists {
			ok = false
		}
		if strings.Contains(cond, "attribute_exists(") && !exists {
			ok = false
		}
		if strings.Contains(cond, ":etag") {
			want := in.ExpressionAttributeValues[":etag"].(*types.AttributeValueMemberS).Value
			if !exists || stringAttr(old, ETagAttribute) != want {
				ok = false
			}
		}
		if !ok {
			cfe := &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
			if in.ReturnValuesOnConditionCheckFailure == types.ReturnValuesOnConditionCheckFailureAllOld {
				cfe.Item = old
			}
			return nil, cfe
		}
	}

	f.items[key] = in.Item
	out := &sdk.PutItemOutput{ConsumedCapacity: &types.ConsumedCapacity{CapacityUnits: aws.Float64(1)}}
	if in.ReturnValues == types.ReturnValueAllOld {
		out.Attributes = old
	}
	return out, nil
}

func (f *fakeTable) Query(_ context.Context, in *sdk.QueryInput, _ ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
	copied := *in
	f.queries = append(f.queries, &copied)
	if f.err != nil {
		return nil, f.err
	}
	page := f.queryPages[0]
	f.queryPages = f.queryPages[1:]
	return page, nil
}

func (f *fakeTable) Scan(_ context.Context, in *sdk.ScanInput, _ ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
	copied := *in
	f.scans = append(f.scans, &copied)
	if f.err != nil {
		return nil, f.err
	}
	page := f.scanPages[0]
	f.scanPages = f.scanPages[1:]
	return page, nil
}

func item(id, name string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"_pk":  &types.AttributeValueMemberS{Value: `"p"`},
		"id":   &types.AttributeValueMemberS{Value: id},
		"name": &types.AttributeValueMemberS{Value: name},
	}
}

func TestPointOperations(t *testing.T) {
	ctx := context.Background()
	table := newFakeTable()
	store := NewWithClient[TestEntity](table, "test-table", "", "")
	pk := storagemodels.NewPartitionKeyString("p")

	t.Run("CreateThenRead", func(t *testing.T) {
		resp, err := store.CreateItem(ctx, TestEntity{ID: "1", Name: "Ada", Age: 36}, pk, nil)
		require.NoError(t, err)
		require.Equal(t, 201, resp.StatusCode)
		require.NotEmpty(t, resp.ETag)
		require.Equal(t, 1.0, resp.RequestCharge)

		put := table.puts[len(table.puts)-1]
		require.Equal(t, "attribute_not_exists(#id)", *put.ConditionExpression)
		require.Equal(t, `"p"`, stringAttr(put.Item, "_pk"))

		read, err := store.ReadItem(ctx, "1", pk, nil)
		require.NoError(t, err)
		require.Equal(t, TestEntity{ID: "1", Name: "Ada", Age: 36}, read.Resource)
		require.Equal(t, resp.ETag, read.ETag)
	})

	t.Run("CreateConflict", func(t *testing.T) {
		_, err := store.CreateItem(ctx, TestEntity{ID: "1", Name: "Dup"}, pk, nil)
		require.True(t, errors.IsAlreadyExists(err))
		var cfe *types.ConditionalCheckFailedException
		require.ErrorAs(t, err, &cfe)
	})

	t.Run("ReplaceMissing", func(t *testing.T) {
		_, err := store.ReplaceItem(ctx, TestEntity{ID: "missing"}, "missing", pk, nil)
		require.True(t, errors.IsNotFound(err))
		_, ok := table.items[`"p"|missing`]
		require.False(t, ok, "replace must not create")
	})

	t.Run("ReplaceWithETag", func(t *testing.T) {
		current, err := store.ReadItem(ctx, "1", pk, nil)
		require.NoError(t, err)

		_, err = store.ReplaceItem(ctx, TestEntity{ID: "1", Name: "Stale"}, "1", pk,
			&storagemodels.ItemRequestOptions{IfMatchETag: "not-the-etag"})
		require.True(t, errors.IsConditionFailed(err))

		resp, err := store.ReplaceItem(ctx, TestEntity{ID: "1", Name: "Fresh"}, "1", pk,
			&storagemodels.ItemRequestOptions{IfMatchETag: current.ETag})
		require.NoError(t, err)
		require.Equal(t, 200, resp.StatusCode)
		require.NotEqual(t, current.ETag, resp.ETag)
	})

	t.Run("ReplaceIDMismatch", func(t *testing.T) {
		_, err := store.ReplaceItem(ctx, TestEntity{ID: "2"}, "1", pk, nil)
		require.True(t, errors.IsValidationError(err))
	})

	t.Run("Upsert", func(t *testing.T) {
		created, err := store.UpsertItem(ctx, TestEntity{ID: "u", Name: "one"}, pk, nil)
		require.NoError(t, err)
		require.Equal(t, 201, created.StatusCode)

		replaced, err := store.UpsertItem(ctx, TestEntity{ID: "u", Name: "two"}, pk, nil)
		require.NoError(t, err)
		require.Equal(t, 200, replaced.StatusCode)

		read, err := store.ReadItem(ctx, "u", pk, nil)
		require.NoError(t, err)
		require.Equal(t, "two", read.Resource.Name)
	})

	t.Run("ReadMissing", func(t *testing.T) {
		_, err := store.ReadItem(ctx, "nope", pk, nil)
		require.True(t, errors.IsNotFound(err))
	})

	t.Run("ReadConsistency", func(t *testing.T) {
		_, err := store.ReadItem(ctx, "1", pk, &storagemodels.ItemRequestOptions{ConsistencyLevel: storagemodels.ConsistencyStrong})
		require.NoError(t, err)
		require.True(t, *table.gets[len(table.gets)-1].ConsistentRead)

		_, err = store.ReadItem(ctx, "1", pk, nil)
		require.NoError(t, err)
		require.False(t, *table.gets[len(table.gets)-1].ConsistentRead)
	})

	t.Run("Validation", func(t *testing.T) {
		_, err := store.CreateItem(ctx, TestEntity{Name: "no id"}, pk, nil)
		require.True(t, errors.IsValidationError(err))

		_, err = store.CreateItem(ctx, TestEntity{ID: "x"}, storagemodels.PartitionKey{}, nil)
		require.True(t, errors.IsValidationError(err))
	})

	t.Run("ContentResponseOnWrite", func(t *testing.T) {
		off := false
		resp, err := store.UpsertItem(ctx, TestEntity{ID: "quiet", Name: "q"}, pk,
			&storagemodels.ItemRequestOptions{EnableContentResponseOnWrite: &off})
		require.NoError(t, err)
		require.Equal(t, TestEntity{}, resp.Resource)
	})
}

// keyedEntity carries its own pk property next to the store's key attribute.
type keyedEntity struct {
	ID   string `json:"id"`
	PK   string `json:"pk"`
	Name string `json:"name"`
}

func TestStoredDocumentsRoundTrip(t *testing.T) {
	ctx := context.Background()
	pk := storagemodels.NewPartitionKeyString("p")

	t.Run("StructWithPKField", func(t *testing.T) {
		table := newFakeTable()
		store := NewWithClient[keyedEntity](table, "test-table", "", "")

		doc := keyedEntity{ID: "1", PK: "c1", Name: "Ada"}
		_, err := store.CreateItem(ctx, doc, pk, nil)
		require.NoError(t, err)

		put := table.puts[len(table.puts)-1]
		require.Equal(t, "c1", stringAttr(put.Item, "pk"))
		require.Equal(t, `"p"`, stringAttr(put.Item, DefaultPartitionKeyAttribute))

		read, err := store.ReadItem(ctx, "1", pk, nil)
		require.NoError(t, err)
		require.Equal(t, doc, read.Resource)
	})

	t.Run("MapDocument", func(t *testing.T) {
		table := newFakeTable()
		store := NewWithClient[map[string]any](table, "test-table", "", "")

		_, err := store.UpsertItem(ctx, map[string]any{"id": "m", "pk": "own", "name": "Map"}, pk, nil)
		require.NoError(t, err)

		read, err := store.ReadItem(ctx, "m", pk, nil)
		require.NoError(t, err)
		require.Equal(t, map[string]any{"id": "m", "pk": "own", "name": "Map"}, read.Resource)
		require.NotEmpty(t, read.ETag)
	})

	t.Run("QueryResultsOmitStoreAttributes", func(t *testing.T) {
		table := newFakeTable()
		stored := item("1", "Ada")
		stored[ETagAttribute] = &types.AttributeValueMemberS{Value: "v1"}
		table.scanPages = []*sdk.ScanOutput{{Items: []map[string]types.AttributeValue{stored}}}
		store := NewWithClient[map[string]any](table, "test-table", "", "")

		feed, err := store.NewQueryIterator(query.New(), nil)
		require.NoError(t, err)
		page, err := feed.ReadNext(ctx)
		require.NoError(t, err)
		require.Equal(t, []map[string]any{{"id": "1", "name": "Ada"}}, page.Items)
	})

	t.Run("ReservedPropertyRejected", func(t *testing.T) {
		table := newFakeTable()
		store := NewWithClient[map[string]any](table, "test-table", "", "")

		for _, name := range []string{DefaultPartitionKeyAttribute, ETagAttribute} {
			_, err := store.CreateItem(ctx, map[string]any{"id": "r", name: "x"}, pk, nil)
			require.True(t, errors.IsValidationError(err), name)
		}
		require.Empty(t, table.puts)
	})
}

func TestStoreErrorsPassThrough(t *testing.T) {
	table := newFakeTable()
	table.err = &types.ProvisionedThroughputExceededException{Message: aws.String("slow down")}
	store := NewWithClient[TestEntity](table, "test-table", "", "")

	_, err := store.ReadItem(context.Background(), "1", storagemodels.NewPartitionKeyString("p"), nil)
	require.True(t, errors.IsThrottled(err))
	var pte *types.ProvisionedThroughputExceededException
	require.ErrorAs(t, err, &pte)
}

func TestQueryFeed(t *testing.T) {
	ctx := context.Background()

	t.Run("ScanPagination", func(t *testing.T) {
		table := newFakeTable()
		table.scanPages = []*sdk.ScanOutput{
			{Items: []map[string]types.AttributeValue{item("1", "a"), item("2", "b")}, LastEvaluatedKey: map[string]types.AttributeValue{
				"_pk": &types.AttributeValueMemberS{Value: `"p"`},
				"id": &types.AttributeValueMemberS{Value: "2"},
			}},
			{Items: []map[string]types.AttributeValue{item("3", "c")}},
		}
		store := NewWithClient[TestEntity](table, "test-table", "", "")

		feed, err := store.NewQueryIterator(query.New().Where("name", query.Ne, "z"), &storagemodels.QueryRequestOptions{MaxItemCount: 2})
		require.NoError(t, err)
		require.Empty(t, table.scans, "creating a feed must not hit the table")

		var ids []string
		for feed.HasMoreResults() {
			page, err := feed.ReadNext(ctx)
			require.NoError(t, err)
			for _, e := range page.Items {
				ids = append(ids, e.ID)
			}
		}
		require.Equal(t, []string{"1", "2", "3"}, ids)
		require.Len(t, table.scans, 2)
		require.Nil(t, table.scans[0].ExclusiveStartKey)
		require.Equal(t, "2", stringAttr(table.scans[1].ExclusiveStartKey, "id"))
		require.Equal(t, int32(2), *table.scans[0].Limit)
		require.Equal(t, "#f0 <> :v0", *table.scans[0].FilterExpression)
		require.Equal(t, map[string]string{"#f0": "name"}, table.scans[0].ExpressionAttributeNames)
	})

	t.Run("PartitionQueryOrderedByID", func(t *testing.T) {
		table := newFakeTable()
		table.queryPages = []*sdk.QueryOutput{{Items: []map[string]types.AttributeValue{item("9", "x")}}}
		store := NewWithClient[TestEntity](table, "test-table", "", "")
		pk := storagemodels.NewPartitionKeyString("p")

		q := query.New().Where("age", query.Gt, 30).OrderByDesc("id").Select("id", "name")
		feed, err := store.NewQueryIterator(q, &storagemodels.QueryRequestOptions{PartitionKey: &pk})
		require.NoError(t, err)

		page, err := feed.ReadNext(ctx)
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		require.False(t, feed.HasMoreResults())
		require.Empty(t, page.ContinuationToken)

		in := table.queries[0]
		require.Equal(t, "#f3 = :v1", *in.KeyConditionExpression)
		require.Equal(t, "#f0 > :v0", *in.FilterExpression)
		require.Equal(t, "#f1, #f2", *in.ProjectionExpression)
		require.False(t, *in.ScanIndexForward)
		require.Equal(t, "_pk", in.ExpressionAttributeNames["#f3"])
		require.Equal(t, `"p"`, in.ExpressionAttributeValues[":v1"].(*types.AttributeValueMemberS).Value)
	})

	t.Run("TopStopsEarly", func(t *testing.T) {
		table := newFakeTable()
		table.scanPages = []*sdk.ScanOutput{
			{Items: []map[string]types.AttributeValue{item("1", "a"), item("2", "b"), item("3", "c")},
				LastEvaluatedKey: map[string]types.AttributeValue{"_pk": &types.AttributeValueMemberS{Value: `"p"`}, "id": &types.AttributeValueMemberS{Value: "3"}}},
		}
		store := NewWithClient[TestEntity](table, "test-table", "", "")

		feed, err := store.NewQueryIterator(query.New().Top(2), nil)
		require.NoError(t, err)
		page, err := feed.ReadNext(ctx)
		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		require.False(t, feed.HasMoreResults())
	})

	t.Run("UnsupportedOrder", func(t *testing.T) {
		store := NewWithClient[TestEntity](newFakeTable(), "test-table", "", "")
		_, err := store.NewQueryIterator(query.New().OrderBy("name"), nil)
		require.True(t, errors.IsValidationError(err))

		_, err = store.NewQueryIterator(query.New().OrderBy("id"), nil)
		require.True(t, errors.IsValidationError(err), "ordering needs a partition")
	})

	t.Run("ContinuationToken", func(t *testing.T) {
		key := map[string]types.AttributeValue{
			"_pk": &types.AttributeValueMemberS{Value: `"p"`},
			"id": &types.AttributeValueMemberS{Value: "7"},
		}
		token, err := encodeToken(key)
		require.NoError(t, err)
		decoded, err := decodeToken(token)
		require.NoError(t, err)
		require.Equal(t, key, decoded)

		_, err = decodeToken("%%%")
		require.True(t, errors.IsValidationError(err))

		table := newFakeTable()
		table.scanPages = []*sdk.ScanOutput{{}}
		store := NewWithClient[TestEntity](table, "test-table", "", "")
		feed, err := store.NewQueryIterator(query.New(), &storagemodels.QueryRequestOptions{ContinuationToken: token})
		require.NoError(t, err)
		_, err = feed.ReadNext(ctx)
		require.NoError(t, err)
		require.Equal(t, "7", stringAttr(table.scans[0].ExclusiveStartKey, "id"))
	})

	t.Run("Close", func(t *testing.T) {
		store := NewWithClient[TestEntity](newFakeTable(), "test-table", "", "")
		feed, err := store.NewQueryIterator(query.New(), nil)
		require.NoError(t, err)
		require.True(t, feed.HasMoreResults())
		require.NoError(t, feed.Close())
		require.False(t, feed.HasMoreResults())
		_, err = feed.ReadNext(ctx)
		require.Error(t, err)
	})
}
