package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// CounterAPI is the part of the DynamoDB client the distributed limiter uses
type CounterAPI interface {
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// DistributedRateLimiter counts requests per fixed window in DynamoDB so the
// limit holds across Lambda instances.
type DistributedRateLimiter struct {
	client    CounterAPI
	tableName string
	limit     int
	window    time.Duration
	keyPrefix string
	now       func() time.Time
}

type rateLimitEntry struct {
	Count int `dynamodbav:"Count"`
}

// NewDistributedRateLimiter allows limit requests per window and key
func NewDistributedRateLimiter(client CounterAPI, tableName string, limit int, window time.Duration, keyPrefix string) *DistributedRateLimiter {
	return &DistributedRateLimiter{
		client:    client,
		tableName: tableName,
		limit:     limit,
		window:    window,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

// Allow increments the window counter unless it already reached the limit.
// Storage errors fail open and are returned alongside true.
func (r *DistributedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	windowStart := r.now().Truncate(r.window)
	windowEnd := windowStart.Add(r.window)

	pk := fmt.Sprintf("RATELIMIT#%s#%s", r.keyPrefix, key)
	sk := fmt.Sprintf("WINDOW#%d", windowStart.Unix())

	result, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
		UpdateExpression:    aws.String("SET #count = if_not_exists(#count, :zero) + :incr, #ttl = :ttl"),
		ConditionExpression: aws.String("attribute_not_exists(#count) OR #count < :limit"),
		ExpressionAttributeNames: map[string]string{
			"#count": "Count",
			"#ttl":   "TTL",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":zero":  &types.AttributeValueMemberN{Value: "0"},
			":incr":  &types.AttributeValueMemberN{Value: "1"},
			":limit": &types.AttributeValueMemberN{Value: strconv.Itoa(r.limit)},
			":ttl":   &types.AttributeValueMemberN{Value: strconv.FormatInt(windowEnd.Add(time.Hour).Unix(), 10)},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return false, nil
		}
		return true, fmt.Errorf("rate limiter error (failing open): %w", err)
	}

	var entry rateLimitEntry
	if err := attributevalue.UnmarshalMap(result.Attributes, &entry); err != nil {
		return true, fmt.Errorf("failed to parse rate limit entry (failing open): %w", err)
	}
	return entry.Count <= r.limit, nil
}
