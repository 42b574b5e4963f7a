package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aegisaudit/aegis/internal/extract"
	"github.com/aegisaudit/aegis/internal/ingest"
)

// IngestResult is the machine-readable outcome of an ingest run.
type IngestResult struct {
	Created int    `json:"created"`
	State   string `json:"state"`
}

// NewIngestCommand creates the ingest command.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ingest <dir>",
		Short: "Bulk-ingest a folder into draft documents",
		Long: `Walk every file under <dir>, derive one draft document per file (optical
text extraction on images, entity-derived tags), and load the batch.
Re-running on the same folder replaces the previous ingested batch; documents
you created yourself are never touched.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]
			info, err := os.Stat(dir)
			if err != nil {
				return WrapExitError(ExitCommandError, "ingest source", err)
			}
			if !info.IsDir() {
				return NewExitError(ExitCommandError, fmt.Sprintf("%s is not a directory", dir))
			}

			log := newLogger(cmd.ErrOrStderr(), rootOpts.Verbose)
			defer log.Sync()

			st, err := openUnlocked(rootOpts, log)
			if err != nil {
				return err
			}
			defer st.Close()

			progress := func(processed, total int, name string) {
				fmt.Fprintf(cmd.ErrOrStderr(), "(%d/%d) Processing: %s\n", processed, total, name)
			}
			pipeline := ingest.New(st, extract.KeywordExtractor{},
				ingest.WithLogger(log),
				ingest.WithProgress(progress),
			)

			result, err := pipeline.Ingest(cmd.Context(), os.DirFS(dir))
			if err != nil {
				return WrapExitError(ExitFailure, "ingest", err)
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Emit(
				IngestResult{Created: result.Created, State: string(pipeline.State())},
				func(w io.Writer) {
					fmt.Fprintf(w, "Complete! %d documents added.\n", result.Created)
				},
			)
		},
	}
}
