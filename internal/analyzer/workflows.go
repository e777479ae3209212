package analyzer

import (
	"fmt"
	"strings"

	"sitescout/internal/types"
)

// workflowDetector inspects the discovered element set and emits at most one
// workflow.
type workflowDetector func(elements []types.DiscoveredElement) *types.DiscoveredWorkflow

// mineWorkflows is phase 4: run the hand-coded detectors over the phase-3
// element set. Detector order fixes workflow id assignment.
func (a *Analyzer) mineWorkflows(inv *investigation) error {
	detectors := []workflowDetector{
		detectLogin,
		detectSiteSearch,
		detectFormSubmission,
		detectAddToCart,
		detectNavigation,
	}

	var workflows []types.DiscoveredWorkflow
	for _, detect := range detectors {
		if w := detect(inv.result.Elements); w != nil {
			w.WorkflowID = fmt.Sprintf("workflow_%d", len(workflows))
			w.Confidence = types.ClampConfidence(w.Confidence)
			workflows = append(workflows, *w)
		}
	}

	inv.result.Workflows = workflows
	return nil
}

// detectLogin recognizes a login surface: a username-like input, a password
// input, and a submit-like button. Emits a 3-step plan with confidence 0.9.
func detectLogin(elements []types.DiscoveredElement) *types.DiscoveredWorkflow {
	username := findElement(elements, isUsernameInput)
	password := findElement(elements, isPasswordInput)
	submit := findElement(elements, isSubmitButton)
	if username == nil || password == nil || submit == nil {
		return nil
	}

	return &types.DiscoveredWorkflow{
		Name:        "User Login",
		Description: "Sign into an existing account with username and password",
		Category:    "authentication",
		Complexity:  2,
		Steps: []types.WorkflowStep{
			{
				ElementID:   username.ElementID,
				Action:      "type",
				Parameters:  map[string]string{"field": "username"},
				Description: "Enter the account username or email",
			},
			{
				ElementID:   password.ElementID,
				Action:      "type",
				Parameters:  map[string]string{"field": "password"},
				Description: "Enter the account password",
			},
			{
				ElementID:   submit.ElementID,
				Action:      "click",
				Description: "Submit the login form",
			},
		},
		SuccessIndicators: []string{"redirect away from login page", "logout control appears", "account name visible"},
		Prerequisites:     []string{"valid account credentials"},
		EstimatedSeconds:  15,
		Confidence:        0.9,
	}
}

// detectSiteSearch recognizes a search surface: a search box, optionally
// paired with a submit button.
func detectSiteSearch(elements []types.DiscoveredElement) *types.DiscoveredWorkflow {
	box := findElement(elements, func(el types.DiscoveredElement) bool {
		return el.Type == types.ElementSearchBox
	})
	if box == nil {
		return nil
	}

	steps := []types.WorkflowStep{
		{
			ElementID:   box.ElementID,
			Action:      "type",
			Parameters:  map[string]string{"field": "query"},
			Description: "Enter the search query",
		},
	}

	confidence := 0.8
	if submit := findElement(elements, isSearchButton); submit != nil {
		steps = append(steps, types.WorkflowStep{
			ElementID:   submit.ElementID,
			Action:      "click",
			Description: "Submit the search",
		})
		confidence = 0.85
	} else {
		steps = append(steps, types.WorkflowStep{
			ElementID:   box.ElementID,
			Action:      "press_enter",
			Description: "Submit the search with Enter",
		})
	}

	return &types.DiscoveredWorkflow{
		Name:              "Site Search",
		Description:       "Search the site for content or products",
		Category:          "search",
		Complexity:        1,
		Steps:             steps,
		SuccessIndicators: []string{"results list appears", "url contains the query"},
		EstimatedSeconds:  8,
		Confidence:        confidence,
	}
}

// detectFormSubmission recognizes a generic fillable form with a submit
// control.
func detectFormSubmission(elements []types.DiscoveredElement) *types.DiscoveredWorkflow {
	form := findElement(elements, func(el types.DiscoveredElement) bool {
		return el.Type == types.ElementForm
	})
	input := findElement(elements, func(el types.DiscoveredElement) bool {
		return el.Type == types.ElementTextInput
	})
	submit := findElement(elements, func(el types.DiscoveredElement) bool {
		return el.Type == types.ElementButton
	})
	if form == nil || input == nil || submit == nil {
		return nil
	}

	return &types.DiscoveredWorkflow{
		Name:        "Form Submission",
		Description: "Fill out and submit a form on the page",
		Category:    "forms",
		Complexity:  2,
		Steps: []types.WorkflowStep{
			{
				ElementID:   input.ElementID,
				Action:      "type",
				Parameters:  map[string]string{"field": "value"},
				Description: "Fill the form field",
			},
			{
				ElementID:   submit.ElementID,
				Action:      "click",
				Description: "Submit the form",
			},
		},
		SuccessIndicators: []string{"confirmation message appears", "form clears or page changes"},
		EstimatedSeconds:  20,
		Confidence:        0.7,
	}
}

// detectAddToCart recognizes an e-commerce purchase surface.
func detectAddToCart(elements []types.DiscoveredElement) *types.DiscoveredWorkflow {
	button := findElement(elements, func(el types.DiscoveredElement) bool {
		if el.Type != types.ElementButton && el.Type != types.ElementLink {
			return false
		}
		text := strings.ToLower(el.Text)
		return strings.Contains(text, "add to cart") ||
			strings.Contains(text, "add to basket") ||
			strings.Contains(text, "buy now") ||
			strings.Contains(text, "checkout")
	})
	if button == nil {
		return nil
	}

	return &types.DiscoveredWorkflow{
		Name:        "Add to Cart",
		Description: "Add a product to the shopping cart",
		Category:    "ecommerce",
		Complexity:  1,
		Steps: []types.WorkflowStep{
			{
				ElementID:   button.ElementID,
				Action:      "click",
				Description: "Add the product to the cart",
			},
		},
		SuccessIndicators: []string{"cart count increases", "cart notification appears"},
		Prerequisites:     []string{"a product page is open"},
		EstimatedSeconds:  5,
		Confidence:        0.75,
	}
}

// detectNavigation recognizes a primary navigation surface.
func detectNavigation(elements []types.DiscoveredElement) *types.DiscoveredWorkflow {
	link := findElement(elements, func(el types.DiscoveredElement) bool {
		if el.Type != types.ElementLink {
			return false
		}
		parent := strings.ToLower(el.ParentContext)
		return strings.HasPrefix(parent, "nav") || strings.Contains(parent, "menu") ||
			strings.Contains(parent, "header")
	})
	if link == nil {
		link = findElement(elements, func(el types.DiscoveredElement) bool {
			return el.Type == types.ElementLink
		})
	}
	if link == nil {
		return nil
	}

	return &types.DiscoveredWorkflow{
		Name:        "Site Navigation",
		Description: "Navigate to a section of the site through its links",
		Category:    "navigation",
		Complexity:  1,
		Steps: []types.WorkflowStep{
			{
				ElementID:   link.ElementID,
				Action:      "click",
				Parameters:  map[string]string{"target": link.Text},
				Description: "Follow the navigation link",
			},
		},
		SuccessIndicators: []string{"url changes", "new page content loads"},
		EstimatedSeconds:  5,
		Confidence:        0.8,
	}
}

// Element predicates

func findElement(elements []types.DiscoveredElement, match func(types.DiscoveredElement) bool) *types.DiscoveredElement {
	for i := range elements {
		if match(elements[i]) {
			return &elements[i]
		}
	}
	return nil
}

func isUsernameInput(el types.DiscoveredElement) bool {
	if el.Type != types.ElementTextInput {
		return false
	}
	if el.Attributes["type"] == "email" {
		return true
	}
	if el.Attributes["type"] == "password" {
		return false
	}
	ident := strings.ToLower(el.Attributes["name"] + " " + el.Attributes["id"] + " " +
		el.Attributes["placeholder"] + " " + el.Attributes["aria-label"])
	for _, hint := range []string{"user", "email", "login", "account"} {
		if strings.Contains(ident, hint) {
			return true
		}
	}
	return false
}

func isPasswordInput(el types.DiscoveredElement) bool {
	if el.Type != types.ElementTextInput {
		return false
	}
	if el.Attributes["type"] == "password" {
		return true
	}
	ident := strings.ToLower(el.Attributes["name"] + " " + el.Attributes["id"])
	return strings.Contains(ident, "pass")
}

func isSubmitButton(el types.DiscoveredElement) bool {
	if el.Type != types.ElementButton {
		return false
	}
	if el.Attributes["type"] == "submit" {
		return true
	}
	text := strings.ToLower(el.Text)
	for _, hint := range []string{"sign in", "log in", "login", "submit", "continue"} {
		if strings.Contains(text, hint) {
			return true
		}
	}
	return false
}

func isSearchButton(el types.DiscoveredElement) bool {
	if el.Type != types.ElementButton {
		return false
	}
	text := strings.ToLower(el.Text + " " + el.Attributes["aria-label"])
	return strings.Contains(text, "search") || strings.Contains(text, "find") ||
		strings.Contains(text, "go")
}
