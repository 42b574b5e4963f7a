package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Replace store content with the sample compliance data set",
		Long: `Replace every collection's content with the sample data set: two controlled
documents, two audits with an ISO 9001 checklist, two NCRs, and three KPIs.
Runs as one atomic transaction.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(cmd.ErrOrStderr(), rootOpts.Verbose)
			defer log.Sync()

			st, err := openUnlocked(rootOpts, log)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Seed(cmd.Context(), time.Now()); err != nil {
				return WrapExitError(ExitFailure, "seed", err)
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Emit(
				map[string]string{"status": "seeded"},
				func(w io.Writer) { fmt.Fprintln(w, "Sample data seeded.") },
			)
		},
	}
}
