package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Devprenuer/ai-tutor/internal/lessons"
)

var lessonsCmd = &cobra.Command{
	Use:   "lessons",
	Short: "Manage lessons",
}

var lessonsGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a lesson for each question that has none",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := cmd.Flags().GetUintSlice("questions")
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return fmt.Errorf("--questions is required")
		}

		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		provider, err := rt.provider(cmd, nil)
		if err != nil {
			return fmt.Errorf("build LLM provider: %w", err)
		}
		svc := lessons.NewService(rt.store.DB(), rt.trackers, provider, rt.cfg.Lessons, rt.log)

		results, err := svc.GenerateForQuestions(cmd.Context(), ids, func(r lessons.GenerateResult) {
			if r.Skipped {
				fmt.Printf("Question %d already has a lesson, skipped.\n", r.QuestionID)
				return
			}
			fmt.Printf("Question %d: created lesson %d %q\n", r.QuestionID, r.Lesson.ID, r.Lesson.Title)
		})
		if err != nil {
			return err
		}

		created := 0
		for _, r := range results {
			if !r.Skipped {
				created++
			}
		}
		fmt.Printf("\n%d lessons created, %d skipped\n", created, len(results)-created)
		return nil
	},
}

func init() {
	lessonsGenerateCmd.Flags().UintSlice("questions", nil, "Comma-separated question IDs (e.g. 1,2,3)")

	lessonsCmd.AddCommand(lessonsGenerateCmd)
}
