package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var investigateCmd = &cobra.Command{
	Use:   "investigate <url>",
	Short: "Run a full investigation of a website",
	Long: `Open a browser session against the url, run every discovery phase, and
store the result in the knowledge base. Re-running against an already
investigated url answers from the store unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runInvestigate,
}

var (
	investigateDeep  bool
	investigateForce bool
)

func init() {
	rootCmd.AddCommand(investigateCmd)

	investigateCmd.Flags().BoolVar(&investigateDeep, "deep", false, "Enable deep scan phases (screenshots); defaults to enable_deep_scan from config")
	investigateCmd.Flags().BoolVar(&investigateForce, "force", false, "Discard any stored result and re-investigate")
}

// effectiveDeep resolves the deep flag: an explicit --deep wins, otherwise
// the configured enable_deep_scan default applies.
func effectiveDeep(flagSet, flagValue, configDefault bool) bool {
	if flagSet {
		return flagValue
	}
	return configDefault
}

func runInvestigate(cmd *cobra.Command, args []string) error {
	url := args[0]
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "https://" + url
	}

	app, err := buildApp()
	if err != nil {
		return err
	}
	defer app.close()

	deep := effectiveDeep(cmd.Flags().Changed("deep"), investigateDeep, app.cfg.Investigation.EnableDeepScan)
	summary := app.service.InvestigateComprehensive(context.Background(), url, deep, investigateForce)

	if flagJSON {
		return printJSON(summary)
	}

	if summary.Conflict {
		fmt.Printf("An investigation of %s is already running: %s\n", url, summary.Error)
		return nil
	}
	if !summary.Success {
		return fmt.Errorf("investigation failed: %s", summary.Error)
	}

	source := "fresh run"
	if summary.FromCache {
		source = "knowledge base"
	}
	fmt.Printf("Investigated %s (%s)\n", summary.URL, source)
	fmt.Printf("  Elements:  %d\n", summary.ElementCount)
	fmt.Printf("  Workflows: %d\n", summary.WorkflowCount)
	fmt.Printf("  Commands:  %d\n", summary.CommandCount)

	var caps []string
	for name, present := range summary.Capabilities {
		if present {
			caps = append(caps, name)
		}
	}
	if len(caps) > 0 {
		fmt.Printf("  Detected:  %s\n", strings.Join(caps, ", "))
	}
	for _, insight := range summary.TopInsights {
		fmt.Printf("  Insight:   %s\n", insight)
	}
	if len(summary.SampleCommands) > 0 {
		fmt.Println("\nTry these commands:")
		for _, c := range summary.SampleCommands {
			fmt.Printf("  sitescout execute %q --url %s\n", c, summary.URL)
		}
	}
	return nil
}
