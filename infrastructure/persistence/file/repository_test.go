package file

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zhaizeyu/smart-mind/application/ports"
	"github.com/zhaizeyu/smart-mind/infrastructure/persistence/persistencetest"
)

func newTestRepository(t *testing.T) (*Repository, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	repo, err := NewRepository(fs, "data", nil)
	require.NoError(t, err)
	return repo, fs
}

func TestRepository(t *testing.T) {
	persistencetest.Run(t, func(t *testing.T) ports.ForestRepository {
		repo, _ := newTestRepository(t)
		return repo
	})
}

func TestRepository_WritesMapFile(t *testing.T) {
	// Arrange
	repo, fs := newTestRepository(t)

	// Act
	require.NoError(t, repo.Save(context.Background(), "mindmap", persistencetest.Forest()))

	// Assert
	exists, err := afero.Exists(fs, "data/mindmap.json")
	require.NoError(t, err)
	assert.True(t, exists)
	tmp, err := afero.Exists(fs, "data/mindmap.json.tmp")
	require.NoError(t, err)
	assert.False(t, tmp)
}

func TestRepository_CorruptFileIsAnError(t *testing.T) {
	// Arrange
	repo, fs := newTestRepository(t)
	require.NoError(t, afero.WriteFile(fs, "data/mindmap.json", []byte("{oops"), 0o644))

	// Act
	_, err := repo.Load(context.Background(), "mindmap")

	// Assert
	assert.Error(t, err)
}

func TestRepository_ReadsLegacyEmptyArray(t *testing.T) {
	repo, fs := newTestRepository(t)
	require.NoError(t, afero.WriteFile(fs, "data/mindmap.json", []byte("[]"), 0o644))

	got, err := repo.Load(context.Background(), "mindmap")

	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
