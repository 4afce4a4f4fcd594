// Package dynamo implements ports.Store on a DynamoDB table with hash key
// appId and range key identifier.
package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"extid/internal/externalid/models"
	"extid/pkg/platform/sentinel"
)

// Attribute names in the table.
const (
	attrAppID      = "appId"
	attrIdentifier = "identifier"
	attrHealthCode = "healthCode"
)

// API is the subset of *dynamodb.Client the store calls.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

type item struct {
	AppID      string `dynamodbav:"appId"`
	Identifier string `dynamodbav:"identifier"`
	StudyID    string `dynamodbav:"studyId,omitempty"`
	HealthCode string `dynamodbav:"healthCode,omitempty"`
}

func (i item) toModel() *models.ExternalID {
	return &models.ExternalID{
		AppID:      i.AppID,
		Identifier: i.Identifier,
		StudyID:    i.StudyID,
		HealthCode: i.HealthCode,
	}
}

// Store reads and writes one DynamoDB table. All reads are strongly consistent.
type Store struct {
	client API
	table  string
}

// New creates a store over table.
func New(client API, table string) *Store {
	return &Store{client: client, table: table}
}

func key(appID, identifier string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrAppID:      &types.AttributeValueMemberS{Value: appID},
		attrIdentifier: &types.AttributeValueMemberS{Value: identifier},
	}
}

// CreateTable provisions the table on demand. An existing table is not an error.
func (s *Store) CreateTable(ctx context.Context) error {
	_, err := s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(attrAppID), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(attrIdentifier), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(attrAppID), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(attrIdentifier), KeyType: types.KeyTypeRange},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return nil
		}
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, appID, identifier string) (*models.ExternalID, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            key(appID, identifier),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, wrapErr("get external id", err)
	}
	if len(out.Item) == 0 {
		return nil, sentinel.ErrNotFound
	}
	var it item
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return nil, fmt.Errorf("unmarshal external id: %w", err)
	}
	return it.toModel(), nil
}

// guardUnassignedCondition requires the item to exist so a commit can never
// recreate a deleted identifier.
const guardUnassignedCondition = "attribute_exists(#id) AND attribute_not_exists(#hc)"

func (s *Store) Save(ctx context.Context, externalID *models.ExternalID, guard models.SaveGuard) error {
	if externalID == nil {
		return errors.New("external ID is required")
	}
	av, err := attributevalue.MarshalMap(item{
		AppID:      externalID.AppID,
		Identifier: externalID.Identifier,
		StudyID:    externalID.StudyID,
		HealthCode: externalID.HealthCode,
	})
	if err != nil {
		return fmt.Errorf("marshal external id: %w", err)
	}
	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      av,
	}
	switch guard {
	case models.GuardUnassigned:
		input.ConditionExpression = aws.String(guardUnassignedCondition)
		input.ExpressionAttributeNames = map[string]string{"#id": attrIdentifier, "#hc": attrHealthCode}
	}

	if _, err := s.client.PutItem(ctx, input); err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return sentinel.ErrConflict
		}
		return wrapErr("save external id", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, appID, identifier string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.table),
		Key:       key(appID, identifier),
	})
	if err != nil {
		return wrapErr("delete external id", err)
	}
	return nil
}

// Query issues one consistent Query call. DynamoDB applies Limit before the
// filter expression, so Items may be shorter than ScannedCount.
func (s *Store) Query(ctx context.Context, query models.RangeQuery) (*models.RangePage, error) {
	if query.Limit < 1 {
		return nil, errors.New("query limit must be positive")
	}
	input := buildQueryInput(s.table, query)

	out, err := s.client.Query(ctx, input)
	if err != nil {
		return nil, wrapErr("query external ids", err)
	}

	page := &models.RangePage{
		Items:        make([]*models.ExternalID, 0, len(out.Items)),
		ScannedCount: int(out.ScannedCount),
	}
	for _, raw := range out.Items {
		var it item
		if err := attributevalue.UnmarshalMap(raw, &it); err != nil {
			return nil, fmt.Errorf("unmarshal external id: %w", err)
		}
		page.Items = append(page.Items, it.toModel())
	}
	if lek, ok := out.LastEvaluatedKey[attrIdentifier].(*types.AttributeValueMemberS); ok {
		page.LastEvaluatedKey = lek.Value
	}
	if out.ConsumedCapacity != nil && out.ConsumedCapacity.CapacityUnits != nil {
		page.ConsumedCapacity = *out.ConsumedCapacity.CapacityUnits
	}
	return page, nil
}

func buildQueryInput(table string, query models.RangeQuery) *dynamodb.QueryInput {
	names := map[string]string{"#app": attrAppID}
	values := map[string]types.AttributeValue{
		":app": &types.AttributeValueMemberS{Value: query.AppID},
	}
	keyCondition := "#app = :app"
	if query.IDPrefix != "" {
		keyCondition += " AND begins_with(#id, :prefix)"
		names["#id"] = attrIdentifier
		values[":prefix"] = &types.AttributeValueMemberS{Value: query.IDPrefix}
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(table),
		KeyConditionExpression:    aws.String(keyCondition),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		Limit:                     aws.Int32(int32(query.Limit)),
		ConsistentRead:            aws.Bool(true),
		ReturnConsumedCapacity:    types.ReturnConsumedCapacityTotal,
	}
	switch query.Assignment {
	case models.AssignmentAssigned:
		input.FilterExpression = aws.String("attribute_exists(#hc)")
		names["#hc"] = attrHealthCode
	case models.AssignmentUnassigned:
		input.FilterExpression = aws.String("attribute_not_exists(#hc)")
		names["#hc"] = attrHealthCode
	}
	if query.StartAfter != "" {
		input.ExclusiveStartKey = key(query.AppID, query.StartAfter)
	}
	return input
}

// wrapErr marks throughput throttling as sentinel.ErrUnavailable so callers
// can tell a transient capacity shortfall from a broken request.
func wrapErr(op string, err error) error {
	var pte *types.ProvisionedThroughputExceededException
	var rle *types.RequestLimitExceeded
	if errors.As(err, &pte) || errors.As(err, &rle) {
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
