package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/learntrack/internal/report"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show a student's progress in a module",
	RunE: func(cmd *cobra.Command, args []string) error {
		studentID, err := uuidFlag(cmd, "student")
		if err != nil {
			return err
		}
		moduleID, err := uuidFlag(cmd, "module")
		if err != nil {
			return err
		}
		width, _ := cmd.Flags().GetInt("width")

		d, err := openDeps(false)
		if err != nil {
			return err
		}
		defer d.Close()

		snap, err := d.service.GetModuleProgress(cmd.Context(), moduleID, studentID)
		if err != nil {
			return fmt.Errorf("get module progress: %w", err)
		}

		fmt.Println(report.Module(snap, width))
		return nil
	},
}

func init() {
	showCmd.Flags().String("student", "", "Student ID")
	showCmd.Flags().String("module", "", "Module ID")
	showCmd.Flags().Int("width", report.DefaultWidth, "Render width")
}
