package aggregates_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
	"github.com/zhaizeyu/smart-mind/domain/core/valueobjects"
)

const storedForest = `[
  {
    "id": "r",
    "parentId": null,
    "question": "root",
    "answer": "root answer",
    "children": [
      {
        "id": "c1",
        "parentId": "r",
        "question": "first",
        "children": [],
        "position": {"x": 1, "y": 2},
        "createdAt": "2024-01-01T00:00:00.000Z",
        "updatedAt": "2024-01-01T00:00:01.000Z"
      },
      {
        "id": "c2",
        "parentId": "somewhere-else",
        "question": "second",
        "children": [],
        "position": {"x": 3, "y": 4},
        "createdAt": "2024-01-01T00:00:00Z",
        "updatedAt": "not a time"
      }
    ],
    "position": {"x": 0, "y": 0},
    "createdAt": "2024-01-01T00:00:00.000Z",
    "updatedAt": "2024-01-01T00:00:00.000Z"
  }
]`

func decodeForest(t *testing.T, raw string) []aggregates.NodeSnapshot {
	t.Helper()
	var forest []aggregates.NodeSnapshot
	require.NoError(t, json.Unmarshal([]byte(raw), &forest))
	return forest
}

func TestMindMap_ReplaceAll(t *testing.T) {
	// Arrange
	m := newTestMindMap()
	addNode(t, m, valueobjects.NodeID{}, "to be replaced")

	// Act
	dropped := m.ReplaceAll(decodeForest(t, storedForest))

	// Assert
	assert.Zero(t, dropped)
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, "0:r;1:c1;1:c2;", shape(m))
	assert.Equal(t, "r", m.SelectedID().String(), "first root is selected")

	c2, ok := m.Node(nid(t, "c2"))
	require.True(t, ok)
	assert.Equal(t, "r", c2.ParentID().String(), "parentId follows placement")
	assert.Equal(t, c2.CreatedAt(), c2.UpdatedAt(), "bad updatedAt falls back to createdAt")

	r, _ := m.Node(nid(t, "r"))
	answer, has := r.Answer()
	assert.True(t, has)
	assert.Equal(t, "root answer", answer)
	assert.Equal(t, valueobjects.Position{X: 80, Y: 190}, r.Position(), "forest is re-laid out")
	assertConsistent(t, m)
}

func TestMindMap_ReplaceAll_DropsInvalidNodes(t *testing.T) {
	m := newTestMindMap()
	forest := []aggregates.NodeSnapshot{
		{ID: "a", Children: []aggregates.NodeSnapshot{
			{ID: "dup"},
			{ID: "", Children: []aggregates.NodeSnapshot{{ID: "lost"}}},
		}},
		{ID: "dup", Children: []aggregates.NodeSnapshot{{ID: "also-lost"}}},
		{ID: "   "},
	}

	dropped := m.ReplaceAll(forest)

	assert.Equal(t, 5, dropped)
	assert.Equal(t, "0:a;1:dup;", shape(m))
	assert.False(t, m.Contains(nid(t, "lost")))
	assert.False(t, m.Contains(nid(t, "also-lost")))
}

func TestMindMap_ReplaceAll_EmptyForestSynthesizesRoot(t *testing.T) {
	tests := []struct {
		name   string
		forest []aggregates.NodeSnapshot
	}{
		{"nil", nil},
		{"empty", []aggregates.NodeSnapshot{}},
		{"only invalid", []aggregates.NodeSnapshot{{ID: ""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMindMap()

			m.ReplaceAll(tt.forest)

			require.Equal(t, 1, m.Len())
			root, ok := m.SelectedNode()
			require.True(t, ok)
			assert.Equal(t, "输入一个中心问题", root.Question())
		})
	}
}

func TestMindMap_SnapshotWireShape(t *testing.T) {
	m := newTestMindMap()
	root := addNode(t, m, valueobjects.NodeID{}, "root")
	addNode(t, m, root, "child")

	raw, err := json.Marshal(m.Snapshot())
	require.NoError(t, err)

	var generic []map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &generic))
	require.Len(t, generic, 1)

	r := generic[0]
	assert.Equal(t, "n1", r["id"])
	assert.Nil(t, r["parentId"])
	assert.Contains(t, r, "parentId", "roots carry an explicit null parentId")
	assert.NotContains(t, r, "answer", "absent answers are omitted")
	assert.Equal(t, "2024-01-02T03:04:05.000Z", r["createdAt"])
	assert.Equal(t, map[string]interface{}{"x": 80.0, "y": 100.0}, r["position"])

	children := r["children"].([]interface{})
	require.Len(t, children, 1)
	child := children[0].(map[string]interface{})
	assert.Equal(t, "n1", child["parentId"])
	assert.Equal(t, []interface{}{}, child["children"], "leaves encode an empty array")
}

func TestMindMap_SnapshotRoundTrip(t *testing.T) {
	original := newTestMindMap()
	original.ReplaceAll(decodeForest(t, storedForest))

	restored := newTestMindMap()
	restored.ReplaceAll(original.Snapshot())

	assert.Equal(t, original.Snapshot(), restored.Snapshot())
}

func TestCount(t *testing.T) {
	assert.Equal(t, 3, aggregates.Count(decodeForest(t, storedForest)))
	assert.Zero(t, aggregates.Count(nil))
}
