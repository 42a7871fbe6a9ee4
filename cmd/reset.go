package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset a student's progress on a lesson",
	Long:  "Returns the lesson record to not started and recomputes the topic and module rollups.",
	RunE: func(cmd *cobra.Command, args []string) error {
		lessonID, err := uuidFlag(cmd, "lesson")
		if err != nil {
			return err
		}
		enrollmentID, err := uuidFlag(cmd, "enrollment")
		if err != nil {
			return err
		}

		d, err := openDeps(false)
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.service.ResetLessonProgress(cmd.Context(), lessonID, enrollmentID); err != nil {
			return fmt.Errorf("reset lesson: %w", err)
		}
		fmt.Printf("Lesson %s reset for enrollment %s.\n", lessonID, enrollmentID)
		return nil
	},
}

func init() {
	resetCmd.Flags().String("lesson", "", "Lesson ID")
	resetCmd.Flags().String("enrollment", "", "Enrollment ID")
}
