package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aegisaudit/aegis/internal/store"
)

// StatusResult reports the store's schema version and per-collection counts.
// Counting needs no session key, so status works on a locked store.
type StatusResult struct {
	SchemaVersion int            `json:"schemaVersion"`
	InstallID     string         `json:"installId"`
	Counts        map[string]int `json:"counts"`
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show schema version and collection counts",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(cmd.ErrOrStderr(), rootOpts.Verbose)
			defer log.Sync()

			st, err := store.Open(rootOpts.DBPath, store.WithLogger(log))
			if err != nil {
				return WrapExitError(ExitCommandError, "open store", err)
			}
			defer st.Close()

			version, err := st.SchemaVersion()
			if err != nil {
				return WrapExitError(ExitFailure, "schema version", err)
			}
			installID, err := st.InstallID()
			if err != nil {
				return WrapExitError(ExitFailure, "install id", err)
			}

			ctx := cmd.Context()
			counts := map[string]int{}
			for name, count := range map[string]func() (int, error){
				"documents":       func() (int, error) { return st.Documents.Count(ctx, st.DB()) },
				"audits":          func() (int, error) { return st.Audits.Count(ctx, st.DB()) },
				"nonConformances": func() (int, error) { return st.NonConformances.Count(ctx, st.DB()) },
				"kpis":            func() (int, error) { return st.Kpis.Count(ctx, st.DB()) },
				"checklists":      func() (int, error) { return st.Checklists.Count(ctx, st.DB()) },
				"checklistItems":  func() (int, error) { return st.ChecklistItems.Count(ctx, st.DB()) },
				"capaActions":     func() (int, error) { return st.CapaActions.Count(ctx, st.DB()) },
				"evidence":        func() (int, error) { return st.Evidence.Count(ctx, st.DB()) },
			} {
				n, err := count()
				if err != nil {
					return WrapExitError(ExitFailure, "count "+name, err)
				}
				counts[name] = n
			}

			result := StatusResult{SchemaVersion: version, InstallID: installID, Counts: counts}
			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Emit(result, func(w io.Writer) {
				fmt.Fprintf(w, "Schema version: %d\n", result.SchemaVersion)
				fmt.Fprintf(w, "Install id:     %s\n", result.InstallID)
				for _, name := range []string{
					"documents", "audits", "nonConformances", "kpis",
					"checklists", "checklistItems", "capaActions", "evidence",
				} {
					fmt.Fprintf(w, "%-16s %d\n", name, counts[name])
				}
			})
		},
	}
}
