package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/aegisaudit/aegis/internal/cli"
)

func main() {
	// Passphrase and overrides may come from a local .env file; absent one,
	// the process environment is used as-is.
	_ = godotenv.Load()

	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
