// Package cli implements the aegis command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aegisaudit/aegis/internal/store"
)

// passphraseEnv names the environment variable holding the session
// passphrase. The derived key never leaves process memory.
const passphraseEnv = "AEGIS_PASSPHRASE"

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DBPath  string
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the aegis CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "aegis",
		Short: "Aegis - encrypted local compliance record store",
		Long: "Aegis keeps compliance records (documents, audits, NCRs, CAPA actions,\n" +
			"checklists, KPIs) in a versioned SQLite store, encrypted at rest, and can\n" +
			"bulk-ingest a folder of files into draft documents.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "aegis.db", "path to the store database")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewIngestCommand(opts))
	cmd.AddCommand(NewDocsCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// openUnlocked opens the store at the configured path and derives the
// session key from the passphrase environment variable. Commands that read
// or write records go through here; stores without a passphrase stay locked
// and fail closed.
func openUnlocked(opts *RootOptions, log *zap.Logger) (*store.Store, error) {
	passphrase := os.Getenv(passphraseEnv)
	if passphrase == "" {
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("%s is not set: encrypted operations require the session passphrase", passphraseEnv))
	}

	st, err := store.Open(opts.DBPath, store.WithLogger(log))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open store", err)
	}
	if err := st.Unlock(passphrase); err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "unlock store", err)
	}
	return st, nil
}
