package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var memoryProject string

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect memory items persisted across sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return memoryListRun(cmd)
	},
}

var memoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored memory items",
	RunE: func(cmd *cobra.Command, args []string) error {
		return memoryListRun(cmd)
	},
}

func init() {
	memoryCmd.PersistentFlags().StringVar(&memoryProject, "project", "", "Filter by project id")
	memoryCmd.AddCommand(memoryListCmd)
	rootCmd.AddCommand(memoryCmd)
}

func memoryListRun(cmd *cobra.Command) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	projectID := memoryProject
	if projectID == "" {
		projectID = viper.GetString("project_id")
	}
	items, err := s.ListMemoryItems(cmd.Context(), projectID, 100)
	if err != nil {
		return fmt.Errorf("list memory items: %w", err)
	}
	if len(items) == 0 {
		ui.Info("No memory items stored yet.")
		return nil
	}
	ui.MemoryTable(items)
	return nil
}
