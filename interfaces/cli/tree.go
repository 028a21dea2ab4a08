package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zhaizeyu/smart-mind/application/commands"
	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
	"github.com/zhaizeyu/smart-mind/domain/core/valueobjects"
)

func newShowCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the mind map with positions",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(ctx context.Context, app *App, _ []string) error {
			view, err := app.MindMap(ctx)
			if err != nil {
				return err
			}
			selected := ""
			if view.SelectedID != nil {
				selected = *view.SelectedID
			}
			printForest(app.out, view.Nodes, selected)
			return nil
		}),
	}
}

// printForest writes one line per node, children indented under their
// parent. The selected node is marked with "*".
func printForest(w io.Writer, forest []aggregates.NodeSnapshot, selected string) {
	var walk func(nodes []aggregates.NodeSnapshot, depth int)
	walk = func(nodes []aggregates.NodeSnapshot, depth int) {
		for _, n := range nodes {
			indent := strings.Repeat("  ", depth)
			mark := "-"
			if n.ID == selected {
				mark = "*"
			}
			fmt.Fprintf(w, "%s%s %s  %q  (%.0f, %.0f)\n", indent, mark, n.ID, n.Question, n.Position.X, n.Position.Y)
			if n.Answer != nil && *n.Answer != "" {
				fmt.Fprintf(w, "%s    = %s\n", indent, firstLine(*n.Answer))
			}
			walk(n.Children, depth+1)
		}
	}
	walk(forest, 0)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}

func newAddCommand(opts *Options) *cobra.Command {
	var (
		parent   string
		question string
		x, y     float64
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a node, under --parent or as a new root",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = withApp(opts, func(ctx context.Context, app *App, _ []string) error {
		add := commands.AddNodeCommand{
			MapID:    MapID,
			NodeID:   valueobjects.NewNodeID().String(),
			ParentID: parent,
		}
		if cmd.Flags().Changed("question") {
			add.Question = &question
		}
		if cmd.Flags().Changed("x") || cmd.Flags().Changed("y") {
			add.Position = &valueobjects.Position{X: x, Y: y}
		}
		if err := app.Send(ctx, add); err != nil {
			return err
		}
		fmt.Fprintln(app.out, add.NodeID)
		return nil
	})

	cmd.Flags().StringVarP(&parent, "parent", "p", "", "parent node id")
	cmd.Flags().StringVarP(&question, "question", "q", "", "question text")
	cmd.Flags().Float64Var(&x, "x", 0, "initial x position")
	cmd.Flags().Float64Var(&y, "y", 0, "initial y position")
	return cmd
}

func newUpdateCommand(opts *Options) *cobra.Command {
	var question, answer string
	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Change the question or answer of a node",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = withApp(opts, func(ctx context.Context, app *App, args []string) error {
		update := commands.UpdateNodeCommand{MapID: MapID, NodeID: args[0]}
		if cmd.Flags().Changed("question") {
			update.Question = &question
		}
		if cmd.Flags().Changed("answer") {
			update.Answer = &answer
		}
		if update.Question == nil && update.Answer == nil {
			return fmt.Errorf("nothing to update, pass --question or --answer")
		}
		return app.Send(ctx, update)
	})

	cmd.Flags().StringVarP(&question, "question", "q", "", "new question text")
	cmd.Flags().StringVarP(&answer, "answer", "a", "", "new answer text")
	return cmd
}

func newMoveCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "move ID X Y",
		Short: "Place a node at a position",
		Args:  cobra.ExactArgs(3),
		RunE: withApp(opts, func(ctx context.Context, app *App, args []string) error {
			x, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid x %q: %w", args[1], err)
			}
			y, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid y %q: %w", args[2], err)
			}
			pos, err := valueobjects.NewPosition(x, y)
			if err != nil {
				return err
			}
			return app.Send(ctx, commands.MoveNodeCommand{MapID: MapID, NodeID: args[0], Position: pos})
		}),
	}
}

func newRemoveCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:     "remove ID",
		Aliases: []string{"rm"},
		Short:   "Remove a node and its subtree",
		Args:    cobra.ExactArgs(1),
		RunE: withApp(opts, func(ctx context.Context, app *App, args []string) error {
			return app.Send(ctx, commands.RemoveNodeCommand{MapID: MapID, NodeID: args[0]})
		}),
	}
}

func newReparentCommand(opts *Options) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "reparent ID",
		Short: "Move a node under --to, or detach it as a root",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = withApp(opts, func(ctx context.Context, app *App, args []string) error {
		return app.Send(ctx, commands.ReparentNodeCommand{MapID: MapID, NodeID: args[0], ParentID: to})
	})
	cmd.Flags().StringVar(&to, "to", "", "new parent id, empty to detach")
	return cmd
}

func newSelectCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "select [ID]",
		Short: "Select a node, or clear the selection without an id",
		Args:  cobra.MaximumNArgs(1),
		RunE: withApp(opts, func(ctx context.Context, app *App, args []string) error {
			sel := commands.SelectNodeCommand{MapID: MapID}
			if len(args) == 1 {
				sel.NodeID = args[0]
			}
			return app.Send(ctx, sel)
		}),
	}
}

func newArrangeCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "arrange",
		Short: "Recompute every node position",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(ctx context.Context, app *App, _ []string) error {
			return app.Send(ctx, commands.AutoArrangeCommand{MapID: MapID})
		}),
	}
}

func newClearCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete the local mind map",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(ctx context.Context, app *App, _ []string) error {
			return app.Clear(ctx)
		}),
	}
}
