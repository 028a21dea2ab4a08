package ai

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHistory_CreatesEmptyFile(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := NewHistory(fs, "data/history.json")

	require.NoError(t, err)
	data, err := afero.ReadFile(fs, "data/history.json")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestHistory_AppendKeepsOrderAndText(t *testing.T) {
	// Arrange
	fs := afero.NewMemMapFs()
	h, err := NewHistory(fs, "history.json")
	require.NoError(t, err)
	h.now = func() time.Time { return time.Date(2024, 5, 1, 8, 0, 0, 0, time.FixedZone("CST", 8*3600)) }

	// Act
	require.NoError(t, h.Append("问题一", "<b>答案</b>"))
	require.NoError(t, h.Append("second", "two"))

	// Assert
	records, err := h.Records()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "问题一", records[0].Question)
	assert.Equal(t, "second", records[1].Question)
	assert.Equal(t, time.UTC, records[0].Timestamp.Location())

	raw, err := afero.ReadFile(fs, "history.json")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<b>答案</b>")
	assert.Contains(t, string(raw), "2024-05-01T00:00:00Z")
}

func TestHistory_CorruptFileStartsOver(t *testing.T) {
	// Arrange
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "history.json", []byte("not json"), 0o644))
	h, err := NewHistory(fs, "history.json")
	require.NoError(t, err)

	// Act
	err = h.Append("q", "a")

	// Assert
	require.NoError(t, err)
	records, err := h.Records()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
