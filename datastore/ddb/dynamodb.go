/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	proxyconfig "github.com/suparena/docproxy/config"
	"github.com/suparena/docproxy/datastore"
	"github.com/suparena/docproxy/errors"
	"github.com/suparena/docproxy/storagemodels"
)

const (
	// DefaultPartitionKeyAttribute is the table hash key when none is configured.
	// It is kept out of the document body like ETagAttribute.
	DefaultPartitionKeyAttribute = "_pk"
	// DefaultIDAttribute is the table range key when none is configured.
	DefaultIDAttribute = "id"
	// ETagAttribute holds the document version used for If-Match writes.
	ETagAttribute = "_etag"
)

// API is the subset of the DynamoDB client the container uses.
// *dynamodb.Client satisfies it.
type API interface {
	GetItem(ctx context.Context, params *sdk.GetItemInput, optFns ...func(*sdk.Options)) (*sdk.GetItemOutput, error)
	PutItem(ctx context.Context, params *sdk.PutItemInput, optFns ...func(*sdk.Options)) (*sdk.PutItemOutput, error)
	Query(ctx context.Context, params *sdk.QueryInput, optFns ...func(*sdk.Options)) (*sdk.QueryOutput, error)
	Scan(ctx context.Context, params *sdk.ScanInput, optFns ...func(*sdk.Options)) (*sdk.ScanOutput, error)
}

// Container implements datastore.Container[T] on one DynamoDB table. The table
// is keyed by (partition key attribute, id attribute); the partition key value
// is stored in its String form.
type Container[T any] struct {
	client         API
	tableName      string
	pkAttr         string
	idAttr         string
	consistentRead bool
}

var _ datastore.Container[struct{}] = (*Container[struct{}])(nil)

// NewDynamoDBClient initializes a DynamoDB client from the proxy configuration.
// Static credentials are used when both keys are set; otherwise the default
// AWS credential chain applies.
func NewDynamoDBClient(ctx context.Context, cfg proxyconfig.DynamoDBConfig, opts proxyconfig.ClientOptions) (*sdk.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRetryMaxAttempts(int(opts.MaxRetries) + 1),
	}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	if opts.ApplicationName != "" {
		loadOpts = append(loadOpts, config.WithAppID(opts.ApplicationName))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := sdk.NewFromConfig(awsCfg, func(o *sdk.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return client, nil
}

// NewContainer builds a Container[T] for cfg.ContainerID. With
// cfg.VerifyContainer set it issues a one-item Scan so a missing table fails
// construction.
func NewContainer[T any](ctx context.Context, cfg proxyconfig.Config, opts proxyconfig.ClientOptions, logger *zap.Logger) (*Container[T], error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := NewDynamoDBClient(ctx, cfg.DynamoDB, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB client: %w", err)
	}

	c := NewWithClient[T](client, cfg.ContainerID, cfg.DynamoDB.PartitionKeyAttribute, cfg.DynamoDB.IDAttribute)
	c.consistentRead = opts.ConsistencyLevel == storagemodels.ConsistencyStrong

	if cfg.VerifyContainer {
		if _, err := client.Scan(ctx, &sdk.ScanInput{TableName: &c.tableName, Limit: aws.Int32(1)}); err != nil {
			return nil, err
		}
	}

	logger.Info("DynamoDB container initialized",
		zap.String("table", cfg.ContainerID),
		zap.String("region", cfg.DynamoDB.Region),
		zap.Bool("consistent_read", c.consistentRead))
	return c, nil
}

// NewWithClient wraps an existing client. Empty attribute names fall back to
// the defaults.
func NewWithClient[T any](client API, tableName, pkAttr, idAttr string) *Container[T] {
	if pkAttr == "" {
		pkAttr = DefaultPartitionKeyAttribute
	}
	if idAttr == "" {
		idAttr = DefaultIDAttribute
	}
	return &Container[T]{
		client:    client,
		tableName: tableName,
		pkAttr:    pkAttr,
		idAttr:    idAttr,
	}
}

// CreateItem puts item if no document with its id exists in pk.
func (d *Container[T]) CreateItem(ctx context.Context, item T, pk storagemodels.PartitionKey, opts *storagemodels.ItemRequestOptions) (*storagemodels.ItemResponse[T], error) {
	av, id, err := d.marshalItem(item, pk)
	if err != nil {
		return nil, err
	}

	cond := "attribute_not_exists(#id)"
	out, err := d.client.PutItem(ctx, &sdk.PutItemInput{
		TableName:                &d.tableName,
		Item:                     av,
		ConditionExpression:      &cond,
		ExpressionAttributeNames: map[string]string{"#id": d.idAttr},
		ReturnConsumedCapacity:   types.ReturnConsumedCapacityTotal,
	})
	if err != nil {
		var cfe *types.ConditionalCheckFailedException
		if stderrors.As(err, &cfe) {
			return nil, &errors.AlreadyExistsError{Container: d.tableName, Key: itemKey(pk, id), Err: err}
		}
		return nil, fmt.Errorf("PutItem failed: %w", err)
	}
	return d.writeResponse(item, av, http.StatusCreated, out.ConsumedCapacity, opts), nil
}

// ReplaceItem overwrites the document with id in pk; it never creates.
func (d *Container[T]) ReplaceItem(ctx context.Context, item T, id string, pk storagemodels.PartitionKey, opts *storagemodels.ItemRequestOptions) (*storagemodels.ItemResponse[T], error) {
	av, bodyID, err := d.marshalItem(item, pk)
	if err != nil {
		return nil, err
	}
	if bodyID != id {
		return nil, errors.NewValidationError(storagemodels.IDField, fmt.Sprintf("document id %q does not match %q", bodyID, id))
	}

	cond := "attribute_exists(#id)"
	names := map[string]string{"#id": d.idAttr}
	var values map[string]types.AttributeValue
	if opts != nil && opts.IfMatchETag != "" {
		cond += " AND #etag = :etag"
		names["#etag"] = ETagAttribute
		values = map[string]types.AttributeValue{":etag": &types.AttributeValueMemberS{Value: opts.IfMatchETag}}
	}

	out, err := d.client.PutItem(ctx, &sdk.PutItemInput{
		TableName:                           &d.tableName,
		Item:                                av,
		ConditionExpression:                 &cond,
		ExpressionAttributeNames:            names,
		ExpressionAttributeValues:           values,
		ReturnConsumedCapacity:              types.ReturnConsumedCapacityTotal,
		ReturnValuesOnConditionCheckFailure: types.ReturnValuesOnConditionCheckFailureAllOld,
	})
	if err != nil {
		return nil, d.conditionError(err, "replace", cond, pk, id)
	}
	return d.writeResponse(item, av, http.StatusOK, out.ConsumedCapacity, opts), nil
}

// UpsertItem puts item unconditionally, or conditioned on IfMatchETag.
func (d *Container[T]) UpsertItem(ctx context.Context, item T, pk storagemodels.PartitionKey, opts *storagemodels.ItemRequestOptions) (*storagemodels.ItemResponse[T], error) {
	av, id, err := d.marshalItem(item, pk)
	if err != nil {
		return nil, err
	}

	input := &sdk.PutItemInput{
		TableName:              &d.tableName,
		Item:                   av,
		ReturnValues:           types.ReturnValueAllOld,
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	}
	var cond string
	if opts != nil && opts.IfMatchETag != "" {
		cond = "#etag = :etag"
		input.ConditionExpression = &cond
		input.ExpressionAttributeNames = map[string]string{"#etag": ETagAttribute}
		input.ExpressionAttributeValues = map[string]types.AttributeValue{":etag": &types.AttributeValueMemberS{Value: opts.IfMatchETag}}
		input.ReturnValuesOnConditionCheckFailure = types.ReturnValuesOnConditionCheckFailureAllOld
	}

	out, err := d.client.PutItem(ctx, input)
	if err != nil {
		return nil, d.conditionError(err, "upsert", cond, pk, id)
	}

	status := http.StatusOK
	if len(out.Attributes) == 0 {
		status = http.StatusCreated
	}
	return d.writeResponse(item, av, status, out.ConsumedCapacity, opts), nil
}

// ReadItem gets the document with id in pk.
func (d *Container[T]) ReadItem(ctx context.Context, id string, pk storagemodels.PartitionKey, opts *storagemodels.ItemRequestOptions) (*storagemodels.ItemResponse[T], error) {
	consistent := d.consistentRead
	if opts != nil && opts.ConsistencyLevel != "" {
		consistent = opts.ConsistencyLevel == storagemodels.ConsistencyStrong
	}

	out, err := d.client.GetItem(ctx, &sdk.GetItemInput{
		TableName:              &d.tableName,
		Key:                    d.key(pk, id),
		ConsistentRead:         aws.Bool(consistent),
		ReturnConsumedCapacity: types.ReturnConsumedCapacityTotal,
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem error: %w", err)
	}
	if out.Item == nil {
		return nil, errors.NewNotFoundError(d.tableName, itemKey(pk, id))
	}

	resp := &storagemodels.ItemResponse[T]{
		StatusCode:    http.StatusOK,
		RequestCharge: capacity(out.ConsumedCapacity),
		ETag:          stringAttr(out.Item, ETagAttribute),
	}
	if err := d.unmarshalItem(out.Item, &resp.Resource); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return resp, nil
}

// marshalItem encodes item with its json tags and adds the key and version
// attributes.
func (d *Container[T]) marshalItem(item T, pk storagemodels.PartitionKey) (map[string]types.AttributeValue, string, error) {
	if pk.IsNone() {
		return nil, "", errors.NewValidationError("partitionKey", "required for point operations")
	}

	av, err := attributevalue.MarshalMapWithOptions(item, func(o *attributevalue.EncoderOptions) {
		o.TagKey = "json"
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal document: %w", err)
	}

	for _, reserved := range []string{d.pkAttr, ETagAttribute} {
		if _, taken := av[reserved]; taken {
			return nil, "", errors.NewValidationError(reserved, "document property collides with an attribute the store manages")
		}
	}

	idVal, ok := av[d.idAttr].(*types.AttributeValueMemberS)
	if !ok || idVal.Value == "" {
		return nil, "", errors.NewValidationError(d.idAttr, "document has no string id")
	}

	av[d.pkAttr] = &types.AttributeValueMemberS{Value: pk.String()}
	av[ETagAttribute] = &types.AttributeValueMemberS{Value: uuid.NewString()}
	return av, idVal.Value, nil
}

func (d *Container[T]) writeResponse(item T, av map[string]types.AttributeValue, status int, cc *types.ConsumedCapacity, opts *storagemodels.ItemRequestOptions) *storagemodels.ItemResponse[T] {
	resp := &storagemodels.ItemResponse[T]{
		StatusCode:    status,
		RequestCharge: capacity(cc),
		ETag:          stringAttr(av, ETagAttribute),
	}
	if opts == nil || opts.EnableContentResponseOnWrite == nil || *opts.EnableContentResponseOnWrite {
		resp.Resource = item
	}
	return resp
}

// conditionError tells a missing document from a stale ETag using the old
// item DynamoDB returns on a failed condition.
func (d *Container[T]) conditionError(err error, op, cond string, pk storagemodels.PartitionKey, id string) error {
	var cfe *types.ConditionalCheckFailedException
	if !stderrors.As(err, &cfe) {
		return fmt.Errorf("PutItem failed: %w", err)
	}
	if len(cfe.Item) == 0 && op == "replace" {
		return &errors.NotFoundError{Container: d.tableName, Key: itemKey(pk, id), Err: err}
	}
	return &errors.ConditionFailedError{Operation: op, Condition: cond, Err: err}
}

func (d *Container[T]) key(pk storagemodels.PartitionKey, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		d.pkAttr: &types.AttributeValueMemberS{Value: pk.String()},
		d.idAttr: &types.AttributeValueMemberS{Value: id},
	}
}

// unmarshalItem decodes item into out without the key and version attributes
// marshalItem added.
func (d *Container[T]) unmarshalItem(item map[string]types.AttributeValue, out any) error {
	body := make(map[string]types.AttributeValue, len(item))
	for name, v := range item {
		if name == d.pkAttr || name == ETagAttribute {
			continue
		}
		body[name] = v
	}
	return attributevalue.UnmarshalMapWithOptions(body, out, func(o *attributevalue.DecoderOptions) {
		o.TagKey = "json"
	})
}

func itemKey(pk storagemodels.PartitionKey, id string) string {
	return fmt.Sprintf("%s|%s", pk.String(), id)
}

func stringAttr(item map[string]types.AttributeValue, name string) string {
	if s, ok := item[name].(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func capacity(cc *types.ConsumedCapacity) float64 {
	if cc == nil || cc.CapacityUnits == nil {
		return 0
	}
	return *cc.CapacityUnits
}
