package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var commandsCmd = &cobra.Command{
	Use:   "commands <url>",
	Short: "List the natural-language commands learned for a site",
	Args:  cobra.ExactArgs(1),
	RunE:  runCommands,
}

var commandsCategory string

func init() {
	rootCmd.AddCommand(commandsCmd)

	commandsCmd.Flags().StringVar(&commandsCategory, "category", "", "Only show commands with this intent (authentication, search, forms, ecommerce, navigation)")
}

func runCommands(cmd *cobra.Command, args []string) error {
	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.close()

	grouped := app.service.GetNaturalLanguageCommands(args[0], commandsCategory)

	if flagJSON {
		return printJSON(grouped)
	}

	if len(grouped) == 0 {
		fmt.Println("No commands known for this site. Run `sitescout investigate` first.")
		return nil
	}

	intents := make([]string, 0, len(grouped))
	for intent := range grouped {
		intents = append(intents, intent)
	}
	sort.Strings(intents)

	for _, intent := range intents {
		fmt.Printf("%s:\n", intent)
		for _, c := range grouped[intent] {
			fmt.Printf("  %-30s (confidence %.2f, ~%ds)\n", c.Command, c.Confidence, c.EstimatedSeconds)
			for _, example := range c.Examples {
				fmt.Printf("    e.g. %q\n", example)
			}
		}
	}
	return nil
}
