package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Devprenuer/ai-tutor/internal/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the default industries and topics",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd)
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.store.Seed(cmd.Context(), store.DefaultSeed); err != nil {
			return fmt.Errorf("seed: %w", err)
		}

		var topics []store.Topic
		if err := rt.store.DB().WithContext(cmd.Context()).Preload("Industry").Order("id").Find(&topics).Error; err != nil {
			return fmt.Errorf("list topics: %w", err)
		}
		fmt.Printf("%-5s  %-24s  %s\n", "ID", "Industry", "Topic")
		for _, t := range topics {
			industry := ""
			if t.Industry != nil {
				industry = t.Industry.Name
			}
			fmt.Printf("%-5d  %-24s  %s\n", t.ID, industry, t.Name)
		}
		return nil
	},
}
