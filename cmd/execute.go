package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var executeCmd = &cobra.Command{
	Use:   "execute <command text>",
	Short: "Resolve a free-text command into an execution plan",
	Long: `Match the given text against the commands learned for a site and expand
the best match into a step-by-step execution plan with concrete selectors.
When nothing matches, the closest known commands are suggested instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExecute,
}

var (
	executeURL    string
	executeParams []string
)

func init() {
	rootCmd.AddCommand(executeCmd)

	executeCmd.Flags().StringVar(&executeURL, "url", "", "Target site url (required)")
	executeCmd.Flags().StringArrayVar(&executeParams, "param", nil, "Plan parameter as key=value, repeatable")
	executeCmd.MarkFlagRequired("url")
}

func runExecute(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	params := make(map[string]string)
	for _, p := range executeParams {
		k, v, ok := strings.Cut(p, "=")
		if !ok {
			return fmt.Errorf("invalid --param %q, expected key=value", p)
		}
		params[k] = v
	}

	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.close()

	resp := app.service.ExecuteNaturalLanguageCommand(text, executeURL, params)

	if flagJSON {
		return printJSON(resp)
	}

	if !resp.Success {
		fmt.Printf("Could not resolve %q: %s\n", text, resp.Message)
		if len(resp.Suggestions) > 0 {
			fmt.Println("Did you mean:")
			for _, s := range resp.Suggestions {
				fmt.Printf("  %-30s (confidence %.2f)\n", s.Command, s.Confidence)
			}
		}
		return nil
	}

	fmt.Printf("Matched %q (confidence %.2f)\n", resp.MatchedCommand, resp.MatchConfidence)
	fmt.Printf("Plan: %s [%s], ~%ds\n", resp.Plan.Name, resp.Plan.Category, resp.Plan.EstimatedSeconds)
	for _, p := range resp.Plan.Prerequisites {
		fmt.Printf("  Requires: %s\n", p)
	}
	for _, step := range resp.Plan.Steps {
		target := step.Selector
		if target == "" {
			target = step.XPath
		}
		fmt.Printf("  %d. %s %s", step.Order, step.Action, target)
		if step.Description != "" {
			fmt.Printf("  (%s)", step.Description)
		}
		fmt.Println()
	}
	for _, indicator := range resp.Plan.SuccessIndicators {
		fmt.Printf("  Success when: %s\n", indicator)
	}
	return nil
}
