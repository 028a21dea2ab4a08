package dynamodb

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhaizeyu/smart-mind/infrastructure/persistence/persistencetest"
)

type fakeLockAPI struct {
	mu      sync.Mutex
	busy    int // conditional failures left before a put succeeds
	putErr  error
	puts    []*dynamodb.PutItemInput
	deletes []*dynamodb.DeleteItemInput
}

func (f *fakeLockAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, in)
	if f.putErr != nil {
		return nil, f.putErr
	}
	if f.busy > 0 {
		f.busy--
		return nil, &types.ConditionalCheckFailedException{}
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeLockAPI) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, in)
	return &dynamodb.DeleteItemOutput{}, nil
}

func TestMapLock_Lock(t *testing.T) {
	tests := []struct {
		name        string
		busy        int
		putErr      error
		wait        time.Duration
		wantErr     error
		wantPuts    int
		wantRelease bool
	}{
		{name: "free", wantPuts: 1, wantRelease: true},
		{name: "released by another writer", busy: 2, wait: time.Second, wantPuts: 3, wantRelease: true},
		{name: "held past the wait budget", busy: 100, wait: 0, wantErr: ErrLockHeld, wantPuts: 1},
		{name: "client failure", putErr: errors.New("throttled"), wait: time.Second, wantPuts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			api := &fakeLockAPI{busy: tt.busy, putErr: tt.putErr}
			lock := NewMapLock(api, "smartmind", nil)
			lock.wait = tt.wait

			// Act
			unlock, err := lock.Lock(context.Background(), "mindmap")

			// Assert
			assert.Len(t, api.puts, tt.wantPuts)
			if tt.wantErr != nil || tt.putErr != nil {
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "MINDMAP#mindmap", keyString(t, api.puts[0].Item, "PK"))
			assert.Equal(t, "LOCK", keyString(t, api.puts[0].Item, "SK"))

			unlock()
			require.Len(t, api.deletes, 1)
			token := keyString(t, api.puts[len(api.puts)-1].Item, "Token")
			assert.Equal(t, token, keyString(t, api.deletes[0].ExpressionAttributeValues, ":token"))
		})
	}
}

func TestMapLock_ContextCancelled(t *testing.T) {
	api := &fakeLockAPI{busy: 100}
	lock := NewMapLock(api, "smartmind", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := lock.Lock(ctx, "mindmap")

	assert.ErrorIs(t, err, context.Canceled)
}

func TestForestRepository_SaveHoldsLock(t *testing.T) {
	// Arrange
	api := &fakeAPI{}
	lockAPI := &fakeLockAPI{}
	repo := NewForestRepository(api, "smartmind", nil, WithLock(NewMapLock(lockAPI, "smartmind", nil)))

	// Act
	require.NoError(t, repo.Save(context.Background(), "mindmap", persistencetest.Forest()))
	require.NoError(t, repo.Clear(context.Background(), "mindmap"))

	// Assert
	assert.Len(t, api.updates, 1)
	assert.Len(t, api.deletes, 1)
	assert.Len(t, lockAPI.puts, 2)
	assert.Len(t, lockAPI.deletes, 2)
}

func TestForestRepository_SaveSkippedWhileLocked(t *testing.T) {
	// Arrange
	api := &fakeAPI{}
	lock := NewMapLock(&fakeLockAPI{busy: 100}, "smartmind", nil)
	lock.wait = 0
	repo := NewForestRepository(api, "smartmind", nil, WithLock(lock))

	// Act
	err := repo.Save(context.Background(), "mindmap", persistencetest.Forest())

	// Assert
	assert.ErrorIs(t, err, ErrLockHeld)
	assert.Empty(t, api.updates)
}
