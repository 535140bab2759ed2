package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/harvester/internal/core/domain"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse saved harvests",
	Long:  `List, show and delete harvests saved in ~/.harvester/data/history.db.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent harvests",
	Args:  cobra.NoArgs,
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show [harvest-id]",
	Short: "Show the fragments of a harvest",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete [harvest-id]",
	Short: "Delete a saved harvest",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

func init() {
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of harvests")
	historyShowCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistoryList(cmd *cobra.Command, _ []string) error {
	if harvestService == nil {
		return errors.New("harvest service not configured")
	}

	results, err := harvestService.History(context.Background(), historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list harvests: %w", err)
	}

	if len(results) == 0 {
		cmd.Println("No harvests saved.")
		return nil
	}

	cmd.Println("Recent harvests:")
	for _, r := range results {
		status := string(r.Status)
		cmd.Printf("  %s  %-10s %s  %d fragments  %q  %s\n",
			r.ID,
			r.Source,
			statusStyle(status).Render(fmt.Sprintf("%-9s", status)),
			len(r.Fragments),
			r.Keyword,
			mutedStyle.Render(r.StartedAt.Local().Format("2006-01-02 15:04")),
		)
	}
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	if harvestService == nil {
		return errors.New("harvest service not configured")
	}

	result, err := harvestService.Get(context.Background(), args[0])
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("harvest not found: %s", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to get harvest: %w", err)
	}

	if historyJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal harvest: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	outputHarvestText(cmd, &domain.AggregateResult{
		Keyword: result.Keyword,
		Results: []*domain.HarvestResult{result},
	})
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	if harvestService == nil {
		return errors.New("harvest service not configured")
	}

	err := harvestService.Delete(context.Background(), args[0])
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("harvest not found: %s", args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to delete harvest: %w", err)
	}

	cmd.Printf("Deleted harvest: %s\n", args[0])
	return nil
}
