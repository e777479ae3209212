package analyzer

import (
	"context"
	"fmt"
	"strings"

	"sitescout/internal/browser"
	"sitescout/internal/types"
)

// elementCategory describes one entry of the fixed discovery catalog: which
// selectors to probe, what text usually labels this kind of element, and
// which actions it supports.
type elementCategory struct {
	elementType types.ElementType
	selectors   []string
	hints       []string
	actions     []string
}

// elementCatalog is the fixed catalog probed during element discovery.
// Order matters: earlier categories claim nodes that would also match a
// later, broader selector.
var elementCatalog = []elementCategory{
	{
		elementType: types.ElementSearchBox,
		selectors: []string{
			`input[type="search"]`,
			`input[name*="search" i]`,
			`input[placeholder*="search" i]`,
			`input[aria-label*="search" i]`,
		},
		hints:   []string{"search", "find", "query", "look up"},
		actions: []string{"type", "submit"},
	},
	{
		elementType: types.ElementUpload,
		selectors:   []string{`input[type="file"]`},
		hints:       []string{"upload", "file", "attach", "browse"},
		actions:     []string{"upload"},
	},
	{
		elementType: types.ElementSlider,
		selectors:   []string{`input[type="range"]`},
		hints:       []string{"slider", "range", "volume", "amount"},
		actions:     []string{"drag", "set_value"},
	},
	{
		elementType: types.ElementCheckbox,
		selectors:   []string{`input[type="checkbox"]`},
		hints:       []string{"remember me", "agree", "accept", "subscribe", "toggle"},
		actions:     []string{"check", "uncheck"},
	},
	{
		elementType: types.ElementRadio,
		selectors:   []string{`input[type="radio"]`},
		hints:       []string{"option", "choice", "select"},
		actions:     []string{"select"},
	},
	{
		elementType: types.ElementDropdown,
		selectors:   []string{"select", `[role="listbox"]`},
		hints:       []string{"select", "choose", "country", "category", "sort"},
		actions:     []string{"select_option"},
	},
	{
		elementType: types.ElementTextInput,
		selectors: []string{
			`input[type="text"]`,
			`input[type="email"]`,
			`input[type="password"]`,
			`input[type="tel"]`,
			`input[type="number"]`,
			`input[type="url"]`,
			"input:not([type])",
			"textarea",
		},
		hints:   []string{"email", "password", "username", "name", "phone", "address", "message"},
		actions: []string{"type", "clear"},
	},
	{
		elementType: types.ElementButton,
		selectors: []string{
			"button",
			`input[type="submit"]`,
			`input[type="button"]`,
			`[role="button"]`,
		},
		hints:   []string{"submit", "sign in", "log in", "login", "register", "sign up", "search", "buy", "add to cart", "checkout", "save", "send", "continue", "next", "subscribe"},
		actions: []string{"click"},
	},
	{
		elementType: types.ElementLink,
		selectors:   []string{"a[href]"},
		hints:       []string{"home", "about", "contact", "products", "pricing", "blog", "help", "account", "cart"},
		actions:     []string{"click", "navigate"},
	},
	{
		elementType: types.ElementForm,
		selectors:   []string{"form"},
		hints:       []string{"login", "register", "search", "contact", "checkout", "subscribe"},
		actions:     []string{"submit"},
	},
}

// maxElementsPerCategory bounds how many survivors each category keeps.
const maxElementsPerCategory = 50

// discoverElements is phase 3: probe the catalog, deduplicate, drop
// non-visible candidates, and score each survivor. Later phases consume the
// resulting element set.
func (a *Analyzer) discoverElements(ctx context.Context, inv *investigation) error {
	seen := make(map[string]bool)
	var elements []types.DiscoveredElement

	for _, category := range elementCatalog {
		count := 0
		for _, selector := range category.selectors {
			infos, err := inv.driver.QuerySelectorAll(ctx, selector)
			if err != nil {
				// A bad selector degrades that probe only.
				continue
			}
			for _, info := range infos {
				key := info.XPath
				if key == "" {
					key = info.Selector
				}
				if seen[key] {
					continue
				}
				seen[key] = true

				if !info.Visible && category.elementType != types.ElementForm {
					continue
				}
				if count >= maxElementsPerCategory {
					break
				}

				el := buildElement(len(elements), category, info)
				elements = append(elements, el)
				count++
			}
		}
	}

	if len(elements) == 0 {
		return fmt.Errorf("no interactive elements discovered")
	}

	inv.result.Elements = elements
	return nil
}

// buildElement classifies and scores one probe survivor.
func buildElement(index int, category elementCategory, info browser.ElementInfo) types.DiscoveredElement {
	el := types.DiscoveredElement{
		ElementID:     fmt.Sprintf("element_%d", index),
		Type:          category.elementType,
		Tag:           info.Tag,
		Selector:      info.Selector,
		XPath:         info.XPath,
		Text:          info.Text,
		Attributes:    info.Attributes,
		Position:      info.Position,
		Visible:       info.Visible,
		Enabled:       info.Enabled,
		ParentContext: info.ParentContext,
		ChildCount:    info.ChildCount,
		Actions:       category.actions,
	}
	el.Confidence = scoreElement(el, category)
	el.Description = describeElement(el)
	return el
}

// scoreElement applies the weighted discovery rubric: text-similarity to any
// hint x0.4, x0.1 per matched attribute (up to 5), visible +0.2, enabled
// +0.1, type match +0.2, clipped to 1.0.
func scoreElement(el types.DiscoveredElement, category elementCategory) float64 {
	score := textSimilarity(el.Text, category.hints) * 0.4

	matched := 0
	for _, key := range []string{"id", "name", "type", "placeholder", "aria-label", "href", "value", "title", "data-testid"} {
		if el.Attributes[key] != "" {
			matched++
			if matched == 5 {
				break
			}
		}
	}
	score += float64(matched) * 0.1

	if el.Visible {
		score += 0.2
	}
	if el.Enabled {
		score += 0.1
	}
	if tagMatchesType(el.Tag, el.Attributes["type"], category.elementType) {
		score += 0.2
	}

	return types.ClampConfidence(score)
}

// textSimilarity returns the best token-overlap similarity between the
// element text and any hint, in [0, 1].
func textSimilarity(text string, hints []string) float64 {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return 0
	}

	best := 0.0
	for _, hint := range hints {
		hint = strings.ToLower(hint)
		if text == hint {
			return 1.0
		}
		if strings.Contains(text, hint) || strings.Contains(hint, text) {
			if 0.8 > best {
				best = 0.8
			}
			continue
		}
		if s := tokenOverlap(text, hint); s > best {
			best = s
		}
	}
	return best
}

// tokenOverlap computes the shared-token ratio of two phrases.
func tokenOverlap(a, b string) float64 {
	aTokens := strings.Fields(a)
	bTokens := strings.Fields(b)
	if len(aTokens) == 0 || len(bTokens) == 0 {
		return 0
	}

	set := make(map[string]bool, len(aTokens))
	for _, t := range aTokens {
		set[t] = true
	}
	shared := 0
	for _, t := range bTokens {
		if set[t] {
			shared++
		}
	}

	denom := len(aTokens)
	if len(bTokens) > denom {
		denom = len(bTokens)
	}
	return float64(shared) / float64(denom)
}

// tagMatchesType reports whether the underlying tag is the canonical one for
// the classified element type.
func tagMatchesType(tag, inputType string, elementType types.ElementType) bool {
	switch elementType {
	case types.ElementButton:
		return tag == "button" || (tag == "input" && (inputType == "submit" || inputType == "button"))
	case types.ElementLink:
		return tag == "a"
	case types.ElementTextInput:
		return tag == "textarea" || (tag == "input" && (inputType == "" || inputType == "text" || inputType == "email" || inputType == "password" || inputType == "tel" || inputType == "number" || inputType == "url"))
	case types.ElementDropdown:
		return tag == "select"
	case types.ElementCheckbox:
		return tag == "input" && inputType == "checkbox"
	case types.ElementRadio:
		return tag == "input" && inputType == "radio"
	case types.ElementForm:
		return tag == "form"
	case types.ElementSearchBox:
		return tag == "input"
	case types.ElementUpload:
		return tag == "input" && inputType == "file"
	case types.ElementSlider:
		return tag == "input" && inputType == "range"
	}
	return false
}

// describeElement generates a user-facing description of the element.
func describeElement(el types.DiscoveredElement) string {
	text := strings.TrimSpace(el.Text)
	if len(text) > 60 {
		text = text[:57] + "..."
	}

	switch el.Type {
	case types.ElementButton:
		if text != "" {
			return fmt.Sprintf("Click %q button", text)
		}
		return "Click button"
	case types.ElementLink:
		if text != "" {
			return fmt.Sprintf("Navigate to %q", text)
		}
		if href := el.Attributes["href"]; href != "" {
			return "Go to " + href
		}
		return "Click link"
	case types.ElementTextInput:
		switch el.Attributes["type"] {
		case "email":
			return "Fill email address"
		case "password":
			return "Enter password"
		case "tel":
			return "Fill phone number"
		}
		if p := el.Attributes["placeholder"]; p != "" {
			return fmt.Sprintf("Fill %q", p)
		}
		if l := el.Attributes["aria-label"]; l != "" {
			return fmt.Sprintf("Fill %q", l)
		}
		return "Fill text field"
	case types.ElementSearchBox:
		return "Enter search query"
	case types.ElementDropdown:
		if text != "" {
			return fmt.Sprintf("Select from %q", text)
		}
		return "Select from dropdown"
	case types.ElementCheckbox:
		if text != "" {
			return "Toggle " + text
		}
		return "Toggle checkbox"
	case types.ElementRadio:
		if text != "" {
			return "Select " + text
		}
		return "Select option"
	case types.ElementForm:
		return "Submit form"
	case types.ElementUpload:
		return "Upload a file"
	case types.ElementSlider:
		return "Adjust slider"
	}

	if text != "" {
		return fmt.Sprintf("Interact with %q", text)
	}
	return "Interact with element"
}
