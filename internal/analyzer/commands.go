package analyzer

import (
	"strings"

	"sitescout/internal/types"
)

// commandTemplate holds the phrasings generated for one workflow category.
type commandTemplate struct {
	phrases  []string
	examples []string
}

var commandTemplates = map[string]commandTemplate{
	"authentication": {
		phrases:  []string{"log in", "sign in to the site"},
		examples: []string{"log in with my account", "sign in please", "authenticate me"},
	},
	"search": {
		phrases:  []string{"search the site"},
		examples: []string{"search for laptops", "find articles about pricing", "look up a product"},
	},
	"forms": {
		phrases:  []string{"fill out the form"},
		examples: []string{"submit the contact form", "complete the form"},
	},
	"ecommerce": {
		phrases:  []string{"add the item to the cart"},
		examples: []string{"buy this product", "put it in my basket", "start checkout"},
	},
	"navigation": {
		phrases:  []string{"navigate the site"},
		examples: []string{"go to the pricing page", "open the about section"},
	},
}

// generateCommands is the final phase: project every workflow into one or
// more natural-language commands.
func (a *Analyzer) generateCommands(inv *investigation) error {
	var commands []types.ActionCommand

	for _, workflow := range inv.result.Workflows {
		template, ok := commandTemplates[workflow.Category]
		if !ok {
			template = commandTemplate{
				phrases: []string{strings.ToLower(workflow.Name)},
			}
		}

		for _, phrase := range template.phrases {
			commands = append(commands, types.ActionCommand{
				Command:          phrase,
				Intent:           workflow.Category,
				WorkflowID:       workflow.WorkflowID,
				Confidence:       types.ClampConfidence(workflow.Confidence * 0.95),
				EstimatedSeconds: workflow.EstimatedSeconds,
				Examples:         template.examples,
			})
		}
	}

	inv.result.Commands = commands
	return nil
}
