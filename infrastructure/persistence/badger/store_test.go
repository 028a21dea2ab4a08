package badger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zhaizeyu/smart-mind/application/ports"
	"github.com/zhaizeyu/smart-mind/infrastructure/persistence/persistencetest"
)

func TestStore(t *testing.T) {
	persistencetest.Run(t, func(t *testing.T) ports.ForestRepository {
		store, err := Open(InMemoryConfig())
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		return store
	})
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	require.Error(t, err)
}

func TestOpen_OnDisk(t *testing.T) {
	store, err := Open(DefaultConfig(t.TempDir()))
	require.NoError(t, err)
	require.NoError(t, store.Close())
}
