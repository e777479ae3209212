package llm

import (
	"context"
	"strings"
)

// mockClient is a model client for tests and offline runs.
type mockClient struct{}

func newMockClient() Client {
	return &mockClient{}
}

// Request returns canned insights shaped like a real model reply.
func (m *mockClient) Request(ctx context.Context, prompt string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	insights := []string{
		"Interactive site with automatable form surfaces",
	}
	if strings.Contains(strings.ToLower(prompt), "login") {
		insights = append(insights, "Login flow detected, suitable for scripted sign-in")
	}
	if strings.Contains(strings.ToLower(prompt), "search") {
		insights = append(insights, "Search capability can be driven programmatically")
	}

	return &Response{
		Text:       `["` + strings.Join(insights, `", "`) + `"]`,
		Confidence: 0.9,
	}, nil
}
