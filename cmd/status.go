package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <url>",
	Short: "Show where an investigation stands",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.close()

	status := app.service.GetInvestigationStatus(args[0])

	if flagJSON {
		return printJSON(status)
	}

	switch status.State {
	case "in_progress":
		fmt.Printf("%s: in progress (%.0fs elapsed)\n", status.URL, status.ElapsedSeconds)
	case "completed":
		fmt.Printf("%s: completed, result available in the knowledge base\n", status.URL)
	case "failed":
		fmt.Printf("%s: failed: %s\n", status.URL, status.Error)
	default:
		fmt.Printf("%s: never investigated\n", status.URL)
	}
	return nil
}
