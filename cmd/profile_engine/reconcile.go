package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/profile-engine/internal/observability"
	"github.com/jonathan/profile-engine/internal/reconcile"
)

var (
	reconcileDryRun      bool
	reconcileGrace       time.Duration
	reconcileConcurrency int
	reconcileJSON        bool
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Delete stored artifacts that no profile or document references",
	Long: `Lists the artifact store, compares it with the locators referenced by documents
and profile images, and deletes unreferenced artifacts older than the grace
period. Referenced locators whose artifact is missing are reported.`,
	Args: cobra.NoArgs,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "Report orphans without deleting them")
	reconcileCmd.Flags().DurationVar(&reconcileGrace, "grace", reconcile.DefaultGrace, "Minimum age of an orphan before it is deleted")
	reconcileCmd.Flags().IntVar(&reconcileConcurrency, "concurrency", reconcile.DefaultConcurrency, "Parallel deletions")
	reconcileCmd.Flags().BoolVar(&reconcileJSON, "json", false, "Print the report as JSON")
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	if reconcileGrace <= 0 {
		return fmt.Errorf("--grace must be positive")
	}
	if reconcileConcurrency < 1 {
		return fmt.Errorf("--concurrency must be at least 1")
	}

	rt, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer rt.Close()

	report, err := reconcile.Run(cmd.Context(), rt.db, rt.store, reconcile.Options{
		Grace:       reconcileGrace,
		DryRun:      reconcileDryRun,
		Concurrency: reconcileConcurrency,
	}, rt.log)
	if report != nil {
		if perr := printReport(cmd.OutOrStdout(), report, reconcileJSON); perr != nil && err == nil {
			err = perr
		}
	}
	if err != nil {
		return err
	}
	if report.Failed > 0 {
		return fmt.Errorf("%d orphaned artifacts could not be deleted", report.Failed)
	}
	return nil
}

func printReport(w io.Writer, report *reconcile.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	observability.NewPrinter(w).PrintReconcileReport(report)
	return nil
}
