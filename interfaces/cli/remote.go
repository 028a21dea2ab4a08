package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zhaizeyu/smart-mind/application/commands"
	"github.com/zhaizeyu/smart-mind/application/services"
	"github.com/zhaizeyu/smart-mind/domain/core/aggregates"
)

func newPullCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Replace the local mind map with the server copy",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(ctx context.Context, app *App, _ []string) error {
			if app.remote == nil {
				return errNoServer
			}
			forest := app.remote.Fetch(ctx)
			if forest == nil {
				fmt.Fprintln(app.out, "server unavailable, local map unchanged")
				return nil
			}
			if err := app.Send(ctx, commands.ReplaceAllCommand{MapID: MapID, Nodes: forest}); err != nil {
				return err
			}
			fmt.Fprintf(app.out, "pulled %d nodes\n", aggregates.Count(forest))
			return nil
		}),
	}
}

func newPushCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Send the local mind map to the server",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(ctx context.Context, app *App, _ []string) error {
			if app.remote == nil {
				return errNoServer
			}
			view, err := app.MindMap(ctx)
			if err != nil {
				return err
			}
			app.remote.Persist(ctx, view.Nodes)
			fmt.Fprintf(app.out, "pushed %d nodes\n", view.NodeCount)
			return nil
		}),
	}
}

func newAskCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "ask ID",
		Short: "Answer a node's question and store the answer",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(ctx context.Context, app *App, args []string) error {
			if app.assistant == nil {
				return errNoAI
			}
			answer, err := app.assistant.AnswerNode(ctx, MapID, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(app.out, answer)
			return nil
		}),
	}
}

func newExpandCommand(opts *Options) *cobra.Command {
	var expand services.ExpandOptions
	cmd := &cobra.Command{
		Use:   "expand ID",
		Short: "Generate follow-up questions as children of a node",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(ctx context.Context, app *App, args []string) error {
			if app.assistant == nil {
				return errNoAI
			}
			ids, err := app.assistant.ExpandNode(ctx, MapID, args[0], expand)
			for _, id := range ids {
				fmt.Fprintln(app.out, id)
			}
			return err
		}),
	}
	cmd.Flags().IntVarP(&expand.Count, "count", "n", 0, "number of questions, 1 to 5 (default 2)")
	cmd.Flags().BoolVar(&expand.Answer, "answer", false, "answer every generated question too")
	return cmd
}

func newSummarizeCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "summarize ID",
		Short: "Summarize the subtree rooted at a node",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(ctx context.Context, app *App, args []string) error {
			if app.assistant == nil {
				return errNoAI
			}
			summary, err := app.assistant.SummarizeNode(ctx, MapID, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(app.out, summary)
			return nil
		}),
	}
}
