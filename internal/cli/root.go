// Package cli wires configuration, storage and the completion client into the
// parley command.
package cli

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

func NewRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:           "parley",
		Short:         "Chat with an OpenAI-compatible model from the terminal",
		Long:          "parley keeps one conversation on disk and trims its oldest turns to stay within the configured token limit.",
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          runCmd,
	}
}

func runCmd(cmd *cobra.Command, args []string) error {
	app, err := newApp(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	var renderer *glamour.TermRenderer
	if isInteractive() {
		renderer = newMarkdownRenderer()
	} else {
		disableStyling()
	}

	session, err := app.newSession(cmd.InOrStdin(), newTerminalView(cmd.OutOrStdout(), renderer))
	if err != nil {
		return err
	}

	if err := session.Run(cmd.Context()); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	return nil
}

// Execute runs the root command with a context cancelled on interrupt.
func Execute(ctx context.Context) error {
	cmd := NewRootCommand()
	cmd.SetIn(os.Stdin)
	return cmd.ExecuteContext(ctx)
}
