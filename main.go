package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "carehome",
	Short: "Care home records and alert sweep service",
	Long: `carehome serves the staff API and runs the periodic alert sweeps that
check every active resident for missed meals, low fluids, overdue night
checks and medication rounds.`,
	SilenceUsage: true,
	Version:      version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server and the sweep scheduler",
	RunE:  runServe,
}

var sweepCmd = &cobra.Command{
	Use:       "sweep <job>",
	Short:     "Run a single sweep pass (care, night or medication)",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"care", "night", "medication"},
	RunE:      runSweep,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE:  runMigrate,
}

var noScheduler bool

func init() {
	serveCmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "serve HTTP only; sweeps run elsewhere")
	rootCmd.AddCommand(serveCmd, sweepCmd, migrateCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
