// Package persistencetest holds the behaviour every ports.ForestRepository
// must show, shared by the adapter test suites.
package persistencetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhaizeyu/smart-mind/application/ports"
	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
	"github.com/zhaizeyu/smart-mind/domain/core/valueobjects"
)

// Forest returns a small two-level forest with non-ASCII text
func Forest() []aggregates.NodeSnapshot {
	root := "root"
	answer := "答案"
	return []aggregates.NodeSnapshot{{
		ID:       "root",
		Question: "输入一个中心问题",
		Children: []aggregates.NodeSnapshot{{
			ID:        "child",
			ParentID:  &root,
			Question:  "why?",
			Answer:    &answer,
			Children:  []aggregates.NodeSnapshot{},
			Position:  valueobjects.Position{X: 340, Y: 100},
			CreatedAt: "2024-01-02T03:04:05.000Z",
			UpdatedAt: "2024-01-02T03:04:05.000Z",
		}},
		Position:  valueobjects.Position{X: 80, Y: 100},
		CreatedAt: "2024-01-02T03:04:05.000Z",
		UpdatedAt: "2024-01-02T03:04:05.000Z",
	}}
}

// Run exercises repo through its whole lifecycle
func Run(t *testing.T, newRepo func(t *testing.T) ports.ForestRepository) {
	t.Run("empty store loads nil", func(t *testing.T) {
		repo := newRepo(t)
		got, err := repo.Load(context.Background(), "mindmap")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("save then load round trips", func(t *testing.T) {
		// Arrange
		repo := newRepo(t)
		ctx := context.Background()

		// Act
		require.NoError(t, repo.Save(ctx, "mindmap", Forest()))
		got, err := repo.Load(ctx, "mindmap")

		// Assert
		require.NoError(t, err)
		assert.Equal(t, Forest(), got)
	})

	t.Run("save replaces", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.Save(ctx, "mindmap", Forest()))
		require.NoError(t, repo.Save(ctx, "mindmap", Forest()[:0]))

		got, err := repo.Load(ctx, "mindmap")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("maps are isolated", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.Save(ctx, "a", Forest()))

		got, err := repo.Load(ctx, "b")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("clear removes", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		require.NoError(t, repo.Save(ctx, "mindmap", Forest()))

		require.NoError(t, repo.Clear(ctx, "mindmap"))
		got, err := repo.Load(ctx, "mindmap")

		require.NoError(t, err)
		assert.Nil(t, got)
		assert.NoError(t, repo.Clear(ctx, "mindmap"), "clearing twice is fine")
	})

	t.Run("unsafe map id is rejected", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Load(context.Background(), "../etc/passwd")
		assert.Error(t, err)
	})
}
