package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	lockSK             = "LOCK"
	defaultLockTTL     = 10 * time.Second
	defaultLockWait    = 5 * time.Second
	initialLockBackoff = 50 * time.Millisecond
)

// ErrLockHeld is returned while another writer owns the lock of a map
var ErrLockHeld = errors.New("mind map is locked by another writer")

// LockAPI is the subset of the DynamoDB client MapLock uses
type LockAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

var _ LockAPI = (*dynamodb.Client)(nil)

// MapLock serializes writers of the same mind map across processes with a
// conditional put on a LOCK item next to the forest item. An expired lock
// can be taken over, so a crashed holder blocks others for at most ttl.
type MapLock struct {
	client    LockAPI
	tableName string
	owner     string
	ttl       time.Duration
	wait      time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewMapLock creates a lock whose holder is identified by a fresh owner id
func NewMapLock(client LockAPI, tableName string, logger *zap.Logger) *MapLock {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MapLock{
		client:    client,
		tableName: tableName,
		owner:     uuid.NewString(),
		ttl:       defaultLockTTL,
		wait:      defaultLockWait,
		logger:    logger,
		now:       time.Now,
	}
}

func lockKey(mapID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("MINDMAP#%s", mapID)},
		"SK": &types.AttributeValueMemberS{Value: lockSK},
	}
}

// acquire takes the lock of mapID once and returns its token
func (l *MapLock) acquire(ctx context.Context, mapID string) (string, error) {
	now := l.now()
	token := fmt.Sprintf("%s_%d", l.owner, now.UnixNano())

	item := lockKey(mapID)
	item["Token"] = &types.AttributeValueMemberS{Value: token}
	item["Owner"] = &types.AttributeValueMemberS{Value: l.owner}
	item["ExpiresAt"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Add(l.ttl).UnixMilli(), 10)}
	// DynamoDB TTL works in seconds and only cleans up; ExpiresAt decides.
	item["TTL"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Add(l.ttl).Unix(), 10)}

	_, err := l.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(l.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.UnixMilli(), 10)},
		},
	})
	if err != nil {
		var held *types.ConditionalCheckFailedException
		if errors.As(err, &held) {
			return "", ErrLockHeld
		}
		return "", fmt.Errorf("failed to acquire lock: %w", err)
	}
	return token, nil
}

// Lock blocks until the lock of mapID is taken, ctx ends or the wait
// budget runs out. The returned func releases it.
func (l *MapLock) Lock(ctx context.Context, mapID string) (func(), error) {
	deadline := l.now().Add(l.wait)
	backoff := initialLockBackoff

	for {
		token, err := l.acquire(ctx, mapID)
		if err == nil {
			l.logger.Debug("Mind map lock acquired", zap.String("map_id", mapID))
			return func() { l.release(mapID, token) }, nil
		}
		if !errors.Is(err, ErrLockHeld) {
			return nil, err
		}
		if !l.now().Add(backoff).Before(deadline) {
			return nil, fmt.Errorf("%w: %s", ErrLockHeld, mapID)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < time.Second {
			backoff = backoff * 3 / 2
		}
	}
}

// release deletes the lock item if it still carries token. A lock taken
// over after expiry belongs to someone else and is left alone.
func (l *MapLock) release(mapID, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := l.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(l.tableName),
		Key:                 lockKey(mapID),
		ConditionExpression: aws.String("#token = :token"),
		ExpressionAttributeNames: map[string]string{
			"#token": "Token",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":token": &types.AttributeValueMemberS{Value: token},
		},
	})
	if err != nil {
		var gone *types.ConditionalCheckFailedException
		if errors.As(err, &gone) {
			l.logger.Warn("Mind map lock was taken over before release", zap.String("map_id", mapID))
			return
		}
		l.logger.Error("Failed to release mind map lock", zap.String("map_id", mapID), zap.Error(err))
	}
}
