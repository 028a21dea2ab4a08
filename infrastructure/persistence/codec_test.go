package persistence_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zhaizeyu/smart-mind/application/ports/mocks"
	"github.com/zhaizeyu/smart-mind/infrastructure/persistence"
	"github.com/zhaizeyu/smart-mind/infrastructure/persistence/persistencetest"
)

func TestEncodeForest_KeepsWireShape(t *testing.T) {
	// Act
	data, err := persistence.EncodeForest(persistencetest.Forest())

	// Assert
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.HasPrefix(text, "[\n  {"))
	assert.Contains(t, text, `"parentId": null`)
	assert.Contains(t, text, `"question": "输入一个中心问题"`)
	assert.Contains(t, text, `"createdAt": "2024-01-02T03:04:05.000Z"`)
}

func TestEncodeForest_NilIsEmptyArray(t *testing.T) {
	data, err := persistence.EncodeForest(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestDecodeForest(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantNil   bool
		wantRoots int
		wantErr   bool
	}{
		{name: "blank", input: "  \n", wantNil: true},
		{name: "empty array", input: "[]", wantRoots: 0},
		{name: "null", input: "null", wantRoots: 0},
		{name: "one root", input: `[{"id":"r","parentId":null,"question":"q","children":[]}]`, wantRoots: 1},
		{name: "corrupt", input: `[{"id":`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := persistence.DecodeForest([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Len(t, got, tt.wantRoots)
		})
	}
}

func TestBind_ForwardsToMapID(t *testing.T) {
	// Arrange
	repo := &mocks.MockForestRepository{}
	repo.On("Load", mock.Anything, "graph").Return(persistencetest.Forest(), nil)
	repo.On("Save", mock.Anything, "graph", mock.Anything).Return(nil)
	repo.On("Clear", mock.Anything, "graph").Return(nil)
	store := persistence.Bind(repo, "graph")
	ctx := context.Background()

	// Act
	got, err := store.Load(ctx)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, got))
	require.NoError(t, store.Clear(ctx))

	// Assert
	assert.Len(t, got, 1)
	repo.AssertExpectations(t)
}
