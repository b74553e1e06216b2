package todos

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dmitrijs2005/gophtodo/internal/common"
	"github.com/dmitrijs2005/gophtodo/internal/server/cursor"
	"github.com/dmitrijs2005/gophtodo/internal/server/models"
)

// DynamoDBAPI is the subset of *dynamodb.Client used by the document stores.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoDBRepository stores one item per todo keyed by "id". Listing uses
// Scan, so order is whatever the table yields.
type DynamoDBRepository struct {
	client DynamoDBAPI
	table  string
}

func NewDynamoDBRepository(client DynamoDBAPI, table string) *DynamoDBRepository {
	return &DynamoDBRepository{client: client, table: table}
}

func itemKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func (r *DynamoDBRepository) Get(ctx context.Context, id string) (*models.Todo, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            itemKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb get: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, common.ErrorNotFound
	}

	var t models.Todo
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, fmt.Errorf("unmarshal todo: %w", err)
	}
	return &t, nil
}

func (r *DynamoDBRepository) List(ctx context.Context, limit int, after cursor.Key) ([]*models.Todo, cursor.Key, error) {
	if limit < 1 {
		limit = 1
	}
	in := &dynamodb.ScanInput{
		TableName: aws.String(r.table),
		Limit:     aws.Int32(int32(limit)),
	}
	if after != nil {
		id, ok := after.String("id")
		if !ok || len(after) != 1 {
			return nil, nil, fmt.Errorf("%w: start key must hold only id", common.ErrorDecode)
		}
		in.ExclusiveStartKey = itemKey(id)
	}

	out, err := r.client.Scan(ctx, in)
	if err != nil {
		return nil, nil, fmt.Errorf("dynamodb scan: %w", err)
	}

	items := make([]*models.Todo, 0, len(out.Items))
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, nil, fmt.Errorf("unmarshal todos: %w", err)
	}

	if len(out.LastEvaluatedKey) == 0 {
		return items, nil, nil
	}
	var next map[string]any
	if err := attributevalue.UnmarshalMap(out.LastEvaluatedKey, &next); err != nil {
		return nil, nil, fmt.Errorf("unmarshal last key: %w", err)
	}
	return items, cursor.Key(next), nil
}

func (r *DynamoDBRepository) Put(ctx context.Context, t *models.Todo) error {
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return fmt.Errorf("marshal todo: %w", err)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb put: %w", err)
	}
	return nil
}

// UpdateFields issues one UpdateItem guarded by attribute_exists(id).
func (r *DynamoDBRepository) UpdateFields(ctx context.Context, id string, patch models.Patch, updatedAt time.Time) (*models.Todo, error) {
	update := expression.Set(expression.Name("updatedAt"), expression.Value(updatedAt.UTC()))
	for _, f := range patch.Fields() {
		v, _ := patch.Get(f)
		update = update.Set(expression.Name(string(f)), expression.Value(v))
	}

	expr, err := expression.NewBuilder().
		WithUpdate(update).
		WithCondition(expression.AttributeExists(expression.Name("id"))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build update expression: %w", err)
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       itemKey(id),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("dynamodb update: %w", err)
	}

	var t models.Todo
	if err := attributevalue.UnmarshalMap(out.Attributes, &t); err != nil {
		return nil, fmt.Errorf("unmarshal todo: %w", err)
	}
	return &t, nil
}

func (r *DynamoDBRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.table),
		Key:                 itemKey(id),
		ConditionExpression: aws.String("attribute_exists(id)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("dynamodb delete: %w", err)
	}
	return nil
}
