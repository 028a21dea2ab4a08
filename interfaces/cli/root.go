package cli

import (
	"context"

	"github.com/spf13/cobra"

	pkgerrors "github.com/zhaizeyu/smart-mind/pkg/errors"
)

// Exit statuses of the smartmind binary
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitInvalid  = 2
	ExitNotFound = 3
)

// ExitCode maps the error of a command run to a process exit status
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case pkgerrors.IsValidation(err):
		return ExitInvalid
	case pkgerrors.IsNotFound(err):
		return ExitNotFound
	default:
		return ExitFailure
	}
}

// NewRootCommand builds the smartmind command tree
func NewRootCommand() *cobra.Command {
	opts := &Options{}

	root := &cobra.Command{
		Use:   "smartmind",
		Short: "SmartMind keeps a question mind map in a local store.",
		Long: `SmartMind keeps a forest of question/answer nodes in a local store,
lays it out as a left-to-right tree, mirrors it to a SmartMind server and asks
an AI backend to answer, expand and summarize nodes.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.Store, "store", StoreBadger, "local store: badger, sqlite or file")
	flags.StringVar(&opts.DataDir, "data", DefaultDataDir(), "directory of the local store")
	flags.StringVar(&opts.Server, "server", "", "SmartMind server URL for pull and push")
	flags.StringVar(&opts.AI, "ai", "", "AI backend URL for ask, expand and summarize")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(
		newShowCommand(opts),
		newAddCommand(opts),
		newUpdateCommand(opts),
		newMoveCommand(opts),
		newRemoveCommand(opts),
		newReparentCommand(opts),
		newSelectCommand(opts),
		newArrangeCommand(opts),
		newClearCommand(opts),
		newPullCommand(opts),
		newPushCommand(opts),
		newAskCommand(opts),
		newExpandCommand(opts),
		newSummarizeCommand(opts),
	)
	return root
}

type runFunc func(ctx context.Context, app *App, args []string) error

// withApp opens the local workspace around fn
func withApp(opts *Options, fn runFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		app, err := Open(ctx, *opts, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer app.Close()

		return fn(ctx, app, args)
	}
}
