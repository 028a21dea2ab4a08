package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zhaizeyu/smart-mind/application/commands"
	"github.com/zhaizeyu/smart-mind/application/commands/bus"
	"github.com/zhaizeyu/smart-mind/application/ports/mocks"
	"github.com/zhaizeyu/smart-mind/application/services"
	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
	"github.com/zhaizeyu/smart-mind/domain/core/valueobjects"
	pkgerrors "github.com/zhaizeyu/smart-mind/pkg/errors"
	"go.uber.org/zap"
)

const testMap = "m1"

func setup(t *testing.T) (*bus.CommandBus, *services.Workspace, *mocks.MockForestRepository, *mocks.MockEventPublisher) {
	t.Helper()

	repo := &mocks.MockForestRepository{}
	repo.On("Load", mock.Anything, testMap).Return(nil, nil)

	publisher := &mocks.MockEventPublisher{}
	publisher.On("PublishBatch", mock.Anything, mock.Anything).Return(nil)

	ws := services.NewWorkspace(repo, nil, zap.NewNop(), services.WithEventPublisher(publisher))
	b := bus.NewCommandBus()
	require.NoError(t, NewMindMapHandler(ws, zap.NewNop()).Register(b))
	return b, ws, repo, publisher
}

func rootID(t *testing.T, ws *services.Workspace) string {
	t.Helper()
	var id string
	require.NoError(t, ws.View(context.Background(), testMap, func(m *aggregates.MindMap) error {
		id = m.Roots()[0].String()
		return nil
	}))
	return id
}

func TestMindMapHandler_AddNodePersistsAndPublishes(t *testing.T) {
	// Arrange
	b, ws, repo, publisher := setup(t)
	repo.On("Save", mock.Anything, testMap, mock.Anything).Return(nil)
	parent := rootID(t, ws)
	question := "why?"

	// Act
	err := b.Send(context.Background(), commands.AddNodeCommand{
		MapID:    testMap,
		NodeID:   "child-1",
		ParentID: parent,
		Question: &question,
	})

	// Assert
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "Save", 1)
	publisher.AssertNumberOfCalls(t, "PublishBatch", 1)

	saved := repo.Calls[len(repo.Calls)-1].Arguments.Get(2).([]aggregates.NodeSnapshot)
	require.Len(t, saved, 1)
	require.Len(t, saved[0].Children, 1)
	assert.Equal(t, "child-1", saved[0].Children[0].ID)
	assert.Equal(t, "why?", saved[0].Children[0].Question)

	require.NoError(t, ws.View(context.Background(), testMap, func(m *aggregates.MindMap) error {
		assert.Equal(t, "child-1", m.SelectedID().String())
		return nil
	}))
}

func TestMindMapHandler_EffectTableDecidesPersistence(t *testing.T) {
	tests := []struct {
		name      string
		cmd       func(root string) bus.Command
		wantSaves int
	}{
		{
			name:      "select is not saved",
			cmd:       func(root string) bus.Command { return commands.SelectNodeCommand{MapID: testMap, NodeID: root} },
			wantSaves: 0,
		},
		{
			name: "move is saved",
			cmd: func(root string) bus.Command {
				return commands.MoveNodeCommand{MapID: testMap, NodeID: root, Position: valueobjects.Position{X: 1, Y: 2}}
			},
			wantSaves: 1,
		},
		{
			name:      "arrange is saved",
			cmd:       func(string) bus.Command { return commands.AutoArrangeCommand{MapID: testMap} },
			wantSaves: 1,
		},
		{
			name:      "ensure root on a non-empty map changes nothing",
			cmd:       func(string) bus.Command { return commands.EnsureRootCommand{MapID: testMap} },
			wantSaves: 0,
		},
		{
			name: "reparent under current parent changes nothing",
			cmd: func(root string) bus.Command {
				return commands.ReparentNodeCommand{MapID: testMap, NodeID: root}
			},
			wantSaves: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			b, ws, repo, _ := setup(t)
			repo.On("Save", mock.Anything, testMap, mock.Anything).Return(nil)
			root := rootID(t, ws)

			// Act
			err := b.Send(context.Background(), tt.cmd(root))

			// Assert
			require.NoError(t, err)
			repo.AssertNumberOfCalls(t, "Save", tt.wantSaves)
		})
	}
}

func TestMindMapHandler_MissingNodeIsNotFound(t *testing.T) {
	// Arrange
	b, ws, repo, _ := setup(t)
	before := rootID(t, ws)
	answer := "42"

	// Act
	err := b.Send(context.Background(), commands.UpdateNodeCommand{
		MapID:  testMap,
		NodeID: "missing",
		Answer: &answer,
	})

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, before, rootID(t, ws))
}

func TestMindMapHandler_AddUnderMissingParentIsRejected(t *testing.T) {
	// Arrange
	b, ws, repo, _ := setup(t)

	// Act
	err := b.Send(context.Background(), commands.AddNodeCommand{MapID: testMap, ParentID: "ghost"})

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrParentNotFound(""))
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
	require.NoError(t, ws.View(context.Background(), testMap, func(m *aggregates.MindMap) error {
		assert.Equal(t, 1, m.Len())
		return nil
	}))
}

func TestMindMapHandler_CyclicReparentIsRejected(t *testing.T) {
	// Arrange
	b, ws, repo, _ := setup(t)
	repo.On("Save", mock.Anything, testMap, mock.Anything).Return(nil)
	root := rootID(t, ws)
	require.NoError(t, b.Send(context.Background(), commands.AddNodeCommand{MapID: testMap, NodeID: "c", ParentID: root}))

	// Act
	err := b.Send(context.Background(), commands.ReparentNodeCommand{MapID: testMap, NodeID: root, ParentID: "c"})

	// Assert
	require.Error(t, err)
	assert.ErrorIs(t, err, pkgerrors.ErrCyclicReparent("", ""))
	repo.AssertNumberOfCalls(t, "Save", 1)
}

func TestMindMapHandler_SaveFailureReloadsStoredState(t *testing.T) {
	// Arrange
	b, ws, repo, publisher := setup(t)
	repo.On("Save", mock.Anything, testMap, mock.Anything).Return(errors.New("disk full"))
	rootID(t, ws)

	// Act
	err := b.Send(context.Background(), commands.AddNodeCommand{MapID: testMap, NodeID: "lost"})

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeStorage))
	publisher.AssertNotCalled(t, "PublishBatch", mock.Anything, mock.Anything)

	require.NoError(t, ws.View(context.Background(), testMap, func(m *aggregates.MindMap) error {
		_, found := m.Node(mustID("lost"))
		assert.False(t, found)
		return nil
	}))
	repo.AssertNumberOfCalls(t, "Load", 2)
}

func TestMindMapHandler_InvalidCommandNeverReachesWorkspace(t *testing.T) {
	// Arrange
	b, _, repo, _ := setup(t)

	// Act
	err := b.Send(context.Background(), commands.RemoveNodeCommand{MapID: testMap})

	// Assert
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
	repo.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
}

func mustID(s string) valueobjects.NodeID {
	id, err := valueobjects.NewNodeIDFromString(s)
	if err != nil {
		panic(err)
	}
	return id
}
