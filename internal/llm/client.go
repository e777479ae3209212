package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Provider represents different language-model providers.
type Provider string

const (
	OpenAI    Provider = "openai"
	Anthropic Provider = "anthropic"
	Mock      Provider = "mock"
)

// Response is the result of one model request.
type Response struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Client is the language-model surface consumed by the analyzer. The
// collaborator is optional: callers degrade to empty insights when a request
// fails.
type Client interface {
	Request(ctx context.Context, prompt string) (*Response, error)
}

// NewClient creates a new model client for the given provider.
func NewClient(provider Provider, apiKey, model string) (Client, error) {
	switch provider {
	case OpenAI:
		return newOpenAIClient(apiKey, model)
	case Anthropic:
		return newAnthropicClient(apiKey, model)
	case Mock:
		return newMockClient(), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}

// insightPrompt asks the model for a short JSON list of site insights.
const insightPrompt = `You are analyzing a website for automation opportunities.

Site: %s (%s)
Title: %s
Discovered elements: %d (buttons/links/inputs/forms)
Discovered workflows: %s
Simplified page HTML:
%s

Return a JSON array of 3-5 short insight strings describing what this site
does, which automation workflows look most valuable, and anything notable
about its structure. Example:

["E-commerce storefront with a guest checkout flow", "Login form uses email plus password with no 2FA prompt"]

Return ONLY the JSON array.`

// BuildInsightPrompt renders the insight prompt for a page summary.
func BuildInsightPrompt(url, domain, title string, elementCount int, workflowNames []string, simplifiedHTML string) string {
	return fmt.Sprintf(insightPrompt, url, domain, title, elementCount,
		strings.Join(workflowNames, ", "), simplifiedHTML)
}

// ParseInsights extracts the insight strings from a model response. Models
// wrap JSON in prose or code fences often enough that this is tolerant: it
// scans for the first JSON array in the text.
func ParseInsights(text string) []string {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil
	}

	var insights []string
	gjson.Parse(text[start : end+1]).ForEach(func(_, value gjson.Result) bool {
		if s := strings.TrimSpace(value.String()); s != "" {
			insights = append(insights, s)
		}
		return true
	})
	return insights
}
