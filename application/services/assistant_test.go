package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zhaizeyu/smart-mind/application/commands/bus"
	"github.com/zhaizeyu/smart-mind/application/commands/handlers"
	"github.com/zhaizeyu/smart-mind/application/ports"
	"github.com/zhaizeyu/smart-mind/application/ports/mocks"
	"github.com/zhaizeyu/smart-mind/application/services"
	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
	pkgerrors "github.com/zhaizeyu/smart-mind/pkg/errors"
	"go.uber.org/zap"
)

func newAssistant(t *testing.T, ai ports.AIService) (*services.Assistant, *services.Workspace) {
	t.Helper()
	repo := &mocks.MockForestRepository{}
	repo.On("Load", mock.Anything, "m").Return(storedForest(), nil)
	repo.On("Save", mock.Anything, "m", mock.Anything).Return(nil)

	ws := services.NewWorkspace(repo, nil, zap.NewNop())
	b := bus.NewCommandBus()
	require.NoError(t, handlers.NewMindMapHandler(ws, zap.NewNop()).Register(b))
	return services.NewAssistant(ai, b, ws, zap.NewNop()), ws
}

func TestSummaryRequestFor(t *testing.T) {
	// Arrange
	m := aggregates.NewMindMap("m")
	m.ReplaceAll(storedForest())
	answer := "an answer"
	m.UpdateNode(mustID("a"), aggregates.NodeUpdate{Answer: &answer})

	tests := []struct {
		name        string
		id          string
		wantOK      bool
		wantTopic   string
		wantDepths  []int
		wantAnswers []bool
	}{
		{name: "root subtree", id: "root", wantOK: true, wantTopic: "topic", wantDepths: []int{0, 1, 1}, wantAnswers: []bool{false, true, false}},
		{name: "leaf is its own topic", id: "a", wantOK: true, wantTopic: "first", wantDepths: []int{0}, wantAnswers: []bool{true}},
		{name: "missing node", id: "ghost", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Act
			req, ok := services.SummaryRequestFor(m, mustID(tt.id))

			// Assert
			require.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.wantTopic, req.Topic)
			require.Len(t, req.Entries, len(tt.wantDepths))
			for i, e := range req.Entries {
				assert.Equal(t, tt.wantDepths[i], e.Depth)
				assert.Equal(t, tt.wantAnswers[i], e.Answer != nil)
			}
		})
	}
}

func TestExpandCommands_SkipsBlankQuestions(t *testing.T) {
	// Act
	cmds := services.ExpandCommands("m", "root", []string{" one ", "", "two"}, []string{"a1", "", "a2"})

	// Assert
	require.Len(t, cmds, 2)
	assert.Equal(t, "one", *cmds[0].Question)
	assert.Equal(t, "a1", *cmds[0].Answer)
	assert.Equal(t, "two", *cmds[1].Question)
	assert.Equal(t, "a2", *cmds[1].Answer)
	for _, c := range cmds {
		assert.Equal(t, "root", c.ParentID)
		assert.NotEmpty(t, c.NodeID)
	}
}

func TestAssistant_AnswerNodeStoresAnswer(t *testing.T) {
	// Arrange
	ai := &mocks.MockAIService{}
	ai.On("Ask", mock.Anything, "first").Return("because", nil)
	assistant, ws := newAssistant(t, ai)

	// Act
	answer, err := assistant.AnswerNode(context.Background(), "m", "a")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "because", answer)
	require.NoError(t, ws.View(context.Background(), "m", func(m *aggregates.MindMap) error {
		n, _ := m.Node(mustID("a"))
		got, ok := n.Answer()
		assert.True(t, ok)
		assert.Equal(t, "because", got)
		return nil
	}))
}

func TestAssistant_AnswerNodeFailures(t *testing.T) {
	tests := []struct {
		name   string
		nodeID string
		askErr error
		check  func(t *testing.T, err error)
	}{
		{
			name:   "missing node",
			nodeID: "ghost",
			check:  func(t *testing.T, err error) { assert.True(t, pkgerrors.IsNotFound(err)) },
		},
		{
			name:   "model failure",
			nodeID: "a",
			askErr: errors.New("timeout"),
			check:  func(t *testing.T, err error) { assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeExternal)) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			ai := &mocks.MockAIService{}
			ai.On("Ask", mock.Anything, mock.Anything).Return("", tt.askErr)
			assistant, _ := newAssistant(t, ai)

			// Act
			_, err := assistant.AnswerNode(context.Background(), "m", tt.nodeID)

			// Assert
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestAssistant_ExpandNodeAddsChildrenUnderTopic(t *testing.T) {
	// Arrange
	ai := &mocks.MockAIService{}
	ai.On("GenerateChildren", mock.Anything, ports.GenerateRequest{Topic: "first", Count: 3}).
		Return([]string{"q1", "q2", "q3", "q4"}, nil)
	ai.On("Ask", mock.Anything, mock.Anything).Return("ans", nil)
	assistant, ws := newAssistant(t, ai)

	// Act
	ids, err := assistant.ExpandNode(context.Background(), "m", "a", services.ExpandOptions{Count: 3, Answer: true})

	// Assert
	require.NoError(t, err)
	require.Len(t, ids, 3)
	ai.AssertNumberOfCalls(t, "Ask", 3)
	require.NoError(t, ws.View(context.Background(), "m", func(m *aggregates.MindMap) error {
		children := m.Children(mustID("a"))
		require.Len(t, children, 3)
		for i, id := range children {
			assert.Equal(t, ids[i], id.String())
			n, _ := m.Node(id)
			answer, ok := n.Answer()
			assert.True(t, ok)
			assert.Equal(t, "ans", answer)
		}
		return nil
	}))
}

func TestAssistant_ExpandNodeDefaultCount(t *testing.T) {
	// Arrange
	ai := &mocks.MockAIService{}
	ai.On("GenerateChildren", mock.Anything, ports.GenerateRequest{Topic: "topic", Count: ports.DefaultGenerateCount}).
		Return([]string{"x", "y"}, nil)
	assistant, _ := newAssistant(t, ai)

	// Act
	ids, err := assistant.ExpandNode(context.Background(), "m", "root", services.ExpandOptions{})

	// Assert
	require.NoError(t, err)
	assert.Len(t, ids, 2)
	ai.AssertNotCalled(t, "Ask", mock.Anything, mock.Anything)
}

func TestAssistant_SummarizeNode(t *testing.T) {
	// Arrange
	ai := &mocks.MockAIService{}
	ai.On("Summarize", mock.Anything, mock.MatchedBy(func(req ports.SummaryRequest) bool {
		return req.Topic == "topic" && len(req.Entries) == 3
	})).Return("short", nil)
	assistant, _ := newAssistant(t, ai)

	// Act
	summary, err := assistant.SummarizeNode(context.Background(), "m", "root")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "short", summary)
}
