// Package dynamodb stores mind map forests in a single DynamoDB table.
package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"github.com/zhaizeyu/smart-mind/application/ports"
	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
	"github.com/zhaizeyu/smart-mind/domain/core/valueobjects"
	"github.com/zhaizeyu/smart-mind/infrastructure/persistence"
	"github.com/zhaizeyu/smart-mind/pkg/utils"
)

const (
	entityType = "MINDMAP"
	forestSK   = "FOREST"
)

// API is the subset of the DynamoDB client the repository uses
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

var (
	_ API                    = (*dynamodb.Client)(nil)
	_ ports.ForestRepository = (*ForestRepository)(nil)
)

// forestItem represents the DynamoDB item holding one mind map
type forestItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	EntityType string `dynamodbav:"EntityType"`
	MapID      string `dynamodbav:"MapID"`
	Nodes      string `dynamodbav:"Nodes"`
	NodeCount  int    `dynamodbav:"NodeCount"`
	UpdatedAt  string `dynamodbav:"UpdatedAt"`
	Version    int    `dynamodbav:"Version"`
}

// ForestRepository implements ports.ForestRepository using DynamoDB. The
// forest is kept as its JSON wire form in one item per map.
type ForestRepository struct {
	client    API
	tableName string
	logger    *zap.Logger
	lock      *MapLock
	now       func() time.Time
}

// Option configures a ForestRepository
type Option func(*ForestRepository)

// WithLock makes Save and Clear hold the map's lock while they write
func WithLock(lock *MapLock) Option {
	return func(r *ForestRepository) {
		r.lock = lock
	}
}

// NewForestRepository creates a new ForestRepository
func NewForestRepository(client API, tableName string, logger *zap.Logger, opts ...Option) *ForestRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &ForestRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ForestRepository) acquire(ctx context.Context, mapID string) (func(), error) {
	if r.lock == nil {
		return func() {}, nil
	}
	return r.lock.Lock(ctx, mapID)
}

func itemKey(mapID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("MINDMAP#%s", mapID)},
		"SK": &types.AttributeValueMemberS{Value: forestSK},
	}
}

// Load returns the stored forest, or nil when mapID has no item
func (r *ForestRepository) Load(ctx context.Context, mapID string) ([]aggregates.NodeSnapshot, error) {
	if err := valueobjects.ValidateMapID(mapID); err != nil {
		return nil, err
	}

	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            itemKey(mapID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get mind map: %w", err)
	}
	if len(result.Item) == 0 {
		return nil, nil
	}

	var item forestItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mind map: %w", err)
	}

	r.logger.Debug("Mind map loaded from DynamoDB",
		zap.String("map_id", mapID),
		zap.Int("version", item.Version),
		zap.Int("node_count", item.NodeCount),
	)
	return persistence.DecodeForest([]byte(item.Nodes))
}

// Save replaces the stored forest and bumps the item version
func (r *ForestRepository) Save(ctx context.Context, mapID string, forest []aggregates.NodeSnapshot) error {
	if err := valueobjects.ValidateMapID(mapID); err != nil {
		return err
	}
	data, err := persistence.EncodeForest(forest)
	if err != nil {
		return err
	}

	update := expression.
		Set(expression.Name("EntityType"), expression.Value(entityType)).
		Set(expression.Name("MapID"), expression.Value(mapID)).
		Set(expression.Name("Nodes"), expression.Value(string(data))).
		Set(expression.Name("NodeCount"), expression.Value(aggregates.Count(forest))).
		Set(expression.Name("UpdatedAt"), expression.Value(utils.FormatTimestamp(r.now()))).
		Add(expression.Name("Version"), expression.Value(1))
	expr, err := expression.NewBuilder().WithUpdate(update).Build()
	if err != nil {
		return fmt.Errorf("failed to build update expression: %w", err)
	}

	unlock, err := r.acquire(ctx, mapID)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       itemKey(mapID),
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}); err != nil {
		r.logger.Error("Failed to save mind map to DynamoDB",
			zap.String("map_id", mapID),
			zap.Error(err),
		)
		return fmt.Errorf("failed to save mind map: %w", err)
	}

	r.logger.Debug("Mind map saved to DynamoDB",
		zap.String("map_id", mapID),
		zap.Int("bytes", len(data)),
	)
	return nil
}

// Clear deletes the item of mapID
func (r *ForestRepository) Clear(ctx context.Context, mapID string) error {
	if err := valueobjects.ValidateMapID(mapID); err != nil {
		return err
	}
	unlock, err := r.acquire(ctx, mapID)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       itemKey(mapID),
	}); err != nil {
		return fmt.Errorf("failed to delete mind map: %w", err)
	}
	return nil
}
