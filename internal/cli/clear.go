package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty every collection atomically",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return NewExitError(ExitCommandError, "refusing to clear without --yes")
			}

			log := newLogger(cmd.ErrOrStderr(), rootOpts.Verbose)
			defer log.Sync()

			st, err := openUnlocked(rootOpts, log)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.ClearAll(cmd.Context()); err != nil {
				return WrapExitError(ExitFailure, "clear", err)
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Emit(
				map[string]string{"status": "cleared"},
				func(w io.Writer) { fmt.Fprintln(w, "All collections cleared.") },
			)
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm clearing all data")
	return cmd
}
