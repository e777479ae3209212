package browser

import (
	"context"

	"sitescout/internal/types"
)

// ElementInfo is the raw description of one DOM node returned by a driver
// probe. The analyzer classifies and scores these into DiscoveredElements.
type ElementInfo struct {
	Tag           string            `json:"tag"`
	Text          string            `json:"text"`
	Selector      string            `json:"selector"`
	XPath         string            `json:"xpath"`
	Attributes    map[string]string `json:"attributes"`
	Position      types.Position    `json:"position"`
	Visible       bool              `json:"visible"`
	Enabled       bool              `json:"enabled"`
	ParentContext string            `json:"parent_context"`
	ChildCount    int               `json:"child_count"`
}

// Driver is the browser-control surface the analyzer depends on. A driver
// owns one browser session; Close releases it.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	PageTitle(ctx context.Context) (string, error)
	QuerySelectorAll(ctx context.Context, selector string) ([]ElementInfo, error)
	PageSource(ctx context.Context) (string, error)
	Screenshot(ctx context.Context, path string) error
	Close() error
}

// Factory opens a new browser session. Each analyzer run acquires one
// session and must release it via Close on every exit path.
type Factory func(ctx context.Context) (Driver, error)
