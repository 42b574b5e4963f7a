package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aegisaudit/aegis/internal/alert"
	"github.com/aegisaudit/aegis/internal/record"
)

// DocumentView is one document annotated with its alerts.
type DocumentView struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	DocNumber      string    `json:"docNumber"`
	Revision       int       `json:"revision"`
	Owner          string    `json:"owner"`
	Status         string    `json:"status"`
	NextReviewDate time.Time `json:"nextReviewDate"`
	Tags           []string  `json:"tags,omitempty"`
	Alerts         []string  `json:"alerts,omitempty"`
}

// NewDocsCommand creates the docs command.
func NewDocsCommand(rootOpts *RootOptions) *cobra.Command {
	var owner string
	var tag string

	cmd := &cobra.Command{
		Use:   "docs",
		Short: "List documents with their review alerts",
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

			var docs []record.Document
			switch {
			case owner != "":
				docs, err = st.Documents.Query(cmd.Context(), st.DB(), "owner", owner)
			case tag != "":
				docs, err = st.Documents.Query(cmd.Context(), st.DB(), "tag", tag)
			default:
				docs, err = st.Documents.All(cmd.Context(), st.DB())
			}
			if err != nil {
				return WrapExitError(ExitFailure, "list documents", err)
			}

			engine, err := alert.New()
			if err != nil {
				return WrapExitError(ExitCommandError, "alert rules", err)
			}
			alerts := engine.EvaluateAll(docs)

			views := make([]DocumentView, 0, len(docs))
			for _, d := range docs {
				views = append(views, DocumentView{
					ID:             d.ID,
					Title:          d.Title,
					DocNumber:      d.DocNumber,
					Revision:       d.Revision,
					Owner:          d.Owner,
					Status:         string(d.Status),
					NextReviewDate: d.NextReviewDate,
					Tags:           d.Tags,
					Alerts:         alerts[d.ID],
				})
			}

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			return formatter.Emit(views, func(w io.Writer) {
				for _, v := range views {
					fmt.Fprintf(w, "%-12s rev%-3d %-10s %s\n", v.DocNumber, v.Revision, v.Status, v.Title)
					if len(v.Tags) > 0 {
						fmt.Fprintf(w, "             tags: %s\n", strings.Join(v.Tags, ", "))
					}
					for _, a := range v.Alerts {
						fmt.Fprintf(w, "             ALERT: %s\n", a)
					}
				}
				if len(views) == 0 {
					fmt.Fprintln(w, "No documents.")
				}
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "filter by owner")
	cmd.Flags().StringVar(&tag, "tag", "", "filter by tag")
	return cmd
}
