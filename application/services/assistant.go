package services

import (
	"context"
	"strings"

	"github.com/zhaizeyu/smart-mind/application/commands"
	"github.com/zhaizeyu/smart-mind/application/commands/bus"
	"github.com/zhaizeyu/smart-mind/application/ports"
	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
	"github.com/zhaizeyu/smart-mind/domain/core/valueobjects"
	pkgerrors "github.com/zhaizeyu/smart-mind/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentAsks bounds the answers fetched in parallel by ExpandNode
const maxConcurrentAsks = 4

// CommandSender dispatches commands; *bus.CommandBus implements it
type CommandSender interface {
	Send(ctx context.Context, cmd bus.Command) error
}

// MindMapViewer gives read access to a mind map; *Workspace implements it
type MindMapViewer interface {
	View(ctx context.Context, mapID string, fn func(m *aggregates.MindMap) error) error
}

// SummaryRequestFor builds the summarize payload for the subtree rooted at
// id. The topic node is the first entry at depth 0.
func SummaryRequestFor(m *aggregates.MindMap, id valueobjects.NodeID) (ports.SummaryRequest, bool) {
	subtree := m.Subtree(id)
	if len(subtree) == 0 {
		return ports.SummaryRequest{}, false
	}
	entries := make([]ports.SummaryEntry, 0, len(subtree))
	for _, e := range subtree {
		entries = append(entries, ports.SummaryEntry{
			Question: e.Node.Question(),
			Answer:   e.Node.Content().AnswerPtr(),
			Depth:    e.Depth,
		})
	}
	return ports.SummaryRequest{
		Topic:   subtree[0].Node.Question(),
		Entries: entries,
	}, true
}

// ExpandCommands turns generated questions into AddNode commands under the
// topic node. Blank questions are skipped. answers, when given, is indexed
// like questions.
func ExpandCommands(mapID, topicID string, questions, answers []string) []commands.AddNodeCommand {
	cmds := make([]commands.AddNodeCommand, 0, len(questions))
	for i, q := range questions {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		question := q
		cmd := commands.AddNodeCommand{
			MapID:    mapID,
			NodeID:   valueobjects.NewNodeID().String(),
			ParentID: topicID,
			Question: &question,
		}
		if i < len(answers) && answers[i] != "" {
			answer := answers[i]
			cmd.Answer = &answer
		}
		cmds = append(cmds, cmd)
	}
	return cmds
}

// ExpandOptions tunes ExpandNode
type ExpandOptions struct {
	// Count is the number of child questions requested, 1..5, 0 for the default
	Count int
	// Answer fetches an answer for every generated question before adding it
	Answer bool
}

// Assistant drives the AI collaborator against a mind map. AI calls never
// run while a mind map is locked: node content is read first, the model is
// called, then the result is applied through commands.
type Assistant struct {
	ai     ports.AIService
	sender CommandSender
	viewer MindMapViewer
	logger *zap.Logger
}

// NewAssistant creates a new assistant
func NewAssistant(ai ports.AIService, sender CommandSender, viewer MindMapViewer, logger *zap.Logger) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assistant{
		ai:     ai,
		sender: sender,
		viewer: viewer,
		logger: logger,
	}
}

// AnswerNode asks the node's question and stores the answer on the node
func (a *Assistant) AnswerNode(ctx context.Context, mapID, nodeID string) (string, error) {
	question, _, err := a.readNode(ctx, mapID, nodeID)
	if err != nil {
		return "", err
	}

	answer, err := a.ai.Ask(ctx, question)
	if err != nil {
		return "", pkgerrors.NewExternalError("ai", err)
	}

	if err := a.sender.Send(ctx, commands.UpdateNodeCommand{
		MapID:  mapID,
		NodeID: nodeID,
		Answer: &answer,
	}); err != nil {
		return "", err
	}
	return answer, nil
}

// ExpandNode generates child questions for a node and adds them under it.
// It returns the ids of the added children in order.
func (a *Assistant) ExpandNode(ctx context.Context, mapID, nodeID string, opts ExpandOptions) ([]string, error) {
	topic, answer, err := a.readNode(ctx, mapID, nodeID)
	if err != nil {
		return nil, err
	}

	req := ports.GenerateRequest{Topic: topic, Answer: answer, Count: opts.Count}
	req.Count = req.NormalizedCount()
	questions, err := a.ai.GenerateChildren(ctx, req)
	if err != nil {
		return nil, pkgerrors.NewExternalError("ai", err)
	}
	if len(questions) > req.Count {
		questions = questions[:req.Count]
	}

	var answers []string
	if opts.Answer {
		answers, err = a.askAll(ctx, questions)
		if err != nil {
			return nil, err
		}
	}

	cmds := ExpandCommands(mapID, nodeID, questions, answers)
	ids := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		if err := a.sender.Send(ctx, cmd); err != nil {
			return ids, err
		}
		ids = append(ids, cmd.NodeID)
	}

	a.logger.Info("Node expanded",
		zap.String("map_id", mapID),
		zap.String("node_id", nodeID),
		zap.Int("children", len(ids)),
	)
	return ids, nil
}

// SummarizeNode summarizes the subtree rooted at a node
func (a *Assistant) SummarizeNode(ctx context.Context, mapID, nodeID string) (string, error) {
	req, err := a.SummaryRequest(ctx, mapID, nodeID)
	if err != nil {
		return "", err
	}
	summary, err := a.ai.Summarize(ctx, req)
	if err != nil {
		return "", pkgerrors.NewExternalError("ai", err)
	}
	return summary, nil
}

// SummaryRequest builds the summarize payload for a node without calling the model
func (a *Assistant) SummaryRequest(ctx context.Context, mapID, nodeID string) (ports.SummaryRequest, error) {
	id, err := valueobjects.NewNodeIDFromString(nodeID)
	if err != nil {
		return ports.SummaryRequest{}, pkgerrors.ErrNodeNotFound(nodeID)
	}

	var req ports.SummaryRequest
	err = a.viewer.View(ctx, mapID, func(m *aggregates.MindMap) error {
		var ok bool
		if req, ok = SummaryRequestFor(m, id); !ok {
			return pkgerrors.ErrNodeNotFound(nodeID)
		}
		return nil
	})
	return req, err
}

func (a *Assistant) readNode(ctx context.Context, mapID, nodeID string) (question, answer string, err error) {
	id, err := valueobjects.NewNodeIDFromString(nodeID)
	if err != nil {
		return "", "", pkgerrors.ErrNodeNotFound(nodeID)
	}
	err = a.viewer.View(ctx, mapID, func(m *aggregates.MindMap) error {
		n, ok := m.Node(id)
		if !ok {
			return pkgerrors.ErrNodeNotFound(nodeID)
		}
		question = n.Question()
		answer, _ = n.Answer()
		return nil
	})
	return question, answer, err
}

func (a *Assistant) askAll(ctx context.Context, questions []string) ([]string, error) {
	answers := make([]string, len(questions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentAsks)
	for i, q := range questions {
		if strings.TrimSpace(q) == "" {
			continue
		}
		g.Go(func() error {
			answer, err := a.ai.Ask(gctx, q)
			if err != nil {
				return pkgerrors.NewExternalError("ai", err)
			}
			answers[i] = answer
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return answers, nil
}
