package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show knowledge base statistics and component health",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.close()

	stats := app.service.GetSystemStatistics()

	if flagJSON {
		return printJSON(stats)
	}

	fmt.Println("Knowledge base:")
	fmt.Printf("  Investigations: %d across %d domains\n", stats.Store.Investigations, stats.Store.Domains)
	fmt.Printf("  Workflows:      %d\n", stats.Store.Workflows)
	fmt.Printf("  Elements:       %d\n", stats.Store.Elements)
	fmt.Printf("  Commands:       %d (%d distinct phrases)\n", stats.Store.Commands, stats.Store.CommandPhrases)
	fmt.Printf("  Active runs:    %d\n", stats.ActiveInvestigations)

	fmt.Println("Health:")
	names := make([]string, 0, len(stats.Health))
	for name := range stats.Health {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		state := "ok"
		if !stats.Health[name] {
			state = "unavailable"
		}
		fmt.Printf("  %-12s %s\n", name, state)
	}
	return nil
}
