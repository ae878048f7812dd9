// Package main provides the rxcheck command line tool for checking
// prescriptions and operating the service's reference data, topics and schema.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// errInvalidPrescription makes validate exit with status 2
var errInvalidPrescription = errors.New("prescription is not valid")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, errInvalidPrescription) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "rxcheck",
		Short:         "Care-home prescription checks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(referenceCmd())
	rootCmd.AddCommand(topicsCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(submitCmd())
	return rootCmd
}
