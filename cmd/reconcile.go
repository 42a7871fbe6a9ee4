package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/learntrack/internal/progress"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Recompute topic and module rollups",
	Long:  "Recomputes the rollups of one enrollment (--enrollment) or of every active enrollment, emitting any missed completion transitions.",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDeps(false)
		if err != nil {
			return err
		}
		defer d.Close()

		var results []progress.ReconcileResult
		if v, _ := cmd.Flags().GetString("enrollment"); v != "" {
			enrollmentID, err := uuidFlag(cmd, "enrollment")
			if err != nil {
				return err
			}
			res, err := d.service.Reconcile(cmd.Context(), enrollmentID)
			if err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}
			results = append(results, res)
		} else {
			// Partial results are still printed when some enrollments fail.
			results, err = d.service.ReconcileAll(cmd.Context())
		}

		if len(results) == 0 {
			if err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}
			fmt.Println("No active enrollments.")
			return nil
		}

		fmt.Printf("%-36s  %6s  %7s  %11s  %6s\n",
			"Enrollment", "Topics", "Skipped", "Transitions", "Module")
		fmt.Println(strings.Repeat("─", 76))
		for _, r := range results {
			fmt.Printf("%-36s  %6d  %7d  %11d  %5d%%\n",
				r.EnrollmentID, r.Topics, r.Skipped, r.Transitions, r.ModulePercent)
		}
		fmt.Printf("\n%d enrollments reconciled\n", len(results))
		if err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
		return nil
	},
}

func init() {
	reconcileCmd.Flags().String("enrollment", "", "Reconcile only this enrollment")
}
