package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Enroll a student in a module",
	RunE: func(cmd *cobra.Command, args []string) error {
		studentID, err := uuidFlag(cmd, "student")
		if err != nil {
			return err
		}
		moduleID, err := uuidFlag(cmd, "module")
		if err != nil {
			return err
		}

		d, err := openDeps(false)
		if err != nil {
			return err
		}
		defer d.Close()

		enr, err := d.service.Enroll(cmd.Context(), studentID, moduleID)
		if err != nil {
			return fmt.Errorf("enroll: %w", err)
		}

		fmt.Printf("Enrollment:  %s\n", enr.ID)
		fmt.Printf("Student:     %s\n", enr.StudentID)
		fmt.Printf("Module:      %s\n", enr.ModuleID)
		fmt.Printf("Enrolled at: %s\n", enr.EnrolledAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Progress:    %d/%d lessons (%d%%)\n",
			enr.Progress.CompletedLessons, enr.Progress.TotalLessons, enr.Progress.Percentage)
		return nil
	},
}

func init() {
	enrollCmd.Flags().String("student", "", "Student ID")
	enrollCmd.Flags().String("module", "", "Module ID")
}
