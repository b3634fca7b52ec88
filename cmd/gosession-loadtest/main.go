package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "gosession-loadtest",
		Short: "Stress the session expiry reaction",
		Long: `gosession-loadtest signs a client in against an in-process development
backend, revokes the session, then fires many concurrent calls at it.

Every call sees a 401. The report shows how many times the client logged
out and navigated to the login page (expected: once per round) and the
latency distribution of the rejected calls.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
	}

	rootCmd.AddCommand(runCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}
