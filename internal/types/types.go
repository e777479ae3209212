// Package types holds the shared data model of the investigation engine:
// discovered elements and workflows, the investigation result aggregate, and
// the execution plan produced from a resolved command.
package types

import (
	"net/url"
	"strings"
	"time"
)

// ElementType classifies an interactive element found on a page.
type ElementType string

const (
	ElementButton    ElementType = "button"
	ElementLink      ElementType = "link"
	ElementTextInput ElementType = "text_input"
	ElementDropdown  ElementType = "dropdown"
	ElementCheckbox  ElementType = "checkbox"
	ElementRadio     ElementType = "radio"
	ElementForm      ElementType = "form"
	ElementSearchBox ElementType = "search_box"
	ElementUpload    ElementType = "upload"
	ElementSlider    ElementType = "slider"
)

// Position is an element's bounding box in CSS pixels.
type Position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DiscoveredElement is one scored interactive element. ElementID is stable
// only within its owning investigation result.
type DiscoveredElement struct {
	ElementID     string            `json:"element_id"`
	Type          ElementType       `json:"type"`
	Tag           string            `json:"tag"`
	Selector      string            `json:"selector"`
	XPath         string            `json:"xpath"`
	Text          string            `json:"text,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	Position      Position          `json:"position"`
	Visible       bool              `json:"visible"`
	Enabled       bool              `json:"enabled"`
	ParentContext string            `json:"parent_context,omitempty"`
	ChildCount    int               `json:"child_count,omitempty"`
	Actions       []string          `json:"actions,omitempty"`
	Confidence    float64           `json:"confidence"`
	Description   string            `json:"description,omitempty"`
}

// WorkflowStep is one action of a mined workflow, referencing an element by
// id within the same result.
type WorkflowStep struct {
	ElementID   string            `json:"element_id"`
	Action      string            `json:"action"`
	Parameters  map[string]string `json:"parameters,omitempty"`
	Description string            `json:"description,omitempty"`
}

// DiscoveredWorkflow is a multi-step interaction mined from the element set.
type DiscoveredWorkflow struct {
	WorkflowID        string         `json:"workflow_id"`
	Name              string         `json:"name"`
	Description       string         `json:"description,omitempty"`
	Category          string         `json:"category"`
	Complexity        int            `json:"complexity"`
	Steps             []WorkflowStep `json:"steps"`
	SuccessIndicators []string       `json:"success_indicators,omitempty"`
	Prerequisites     []string       `json:"prerequisites,omitempty"`
	EstimatedSeconds  int            `json:"estimated_seconds"`
	Confidence        float64        `json:"confidence"`
}

// ActionCommand maps a natural-language phrase to a workflow.
type ActionCommand struct {
	Command          string            `json:"command"`
	Intent           string            `json:"intent"`
	WorkflowID       string            `json:"workflow_id"`
	Parameters       map[string]string `json:"parameters,omitempty"`
	Confidence       float64           `json:"confidence"`
	EstimatedSeconds int               `json:"estimated_seconds"`
	Examples         []string          `json:"examples,omitempty"`
}

// Diagnostic records one degraded pipeline phase.
type Diagnostic struct {
	Phase   string `json:"phase"`
	Message string `json:"message"`
}

// PageStructure describes a page's layout skeleton.
type PageStructure struct {
	LayoutType  string         `json:"layout_type"`
	Sections    []string       `json:"sections,omitempty"`
	Headings    map[string]int `json:"headings,omitempty"`
	LinkCount   int            `json:"link_count"`
	FormCount   int            `json:"form_count"`
	Breakpoints []string       `json:"breakpoints,omitempty"`
}

type NavigationSummary struct {
	HasNavBar     bool     `json:"has_nav_bar"`
	HasFooter     bool     `json:"has_footer"`
	HasSidebar    bool     `json:"has_sidebar"`
	HasBreadcrumb bool     `json:"has_breadcrumb"`
	MenuItems     []string `json:"menu_items,omitempty"`
}

type FormSummary struct {
	FormCount     int      `json:"form_count"`
	FieldCount    int      `json:"field_count"`
	HasFileUpload bool     `json:"has_file_upload"`
	FormPurposes  []string `json:"form_purposes,omitempty"`
}

type AuthSummary struct {
	HasLogin    bool     `json:"has_login"`
	HasRegister bool     `json:"has_register"`
	HasLogout   bool     `json:"has_logout"`
	HasOAuth    bool     `json:"has_oauth"`
	Methods     []string `json:"methods,omitempty"`
}

type EcommerceSummary struct {
	HasCart     bool `json:"has_cart"`
	HasCheckout bool `json:"has_checkout"`
	HasProducts bool `json:"has_products"`
	HasPricing  bool `json:"has_pricing"`
}

type SearchSummary struct {
	HasSearch    bool   `json:"has_search"`
	SearchMethod string `json:"search_method,omitempty"`
}

type SocialSummary struct {
	ShareLinks  []string `json:"share_links,omitempty"`
	HasComments bool     `json:"has_comments"`
}

// PerformanceMetrics carries the coarse timings measured during a run.
type PerformanceMetrics struct {
	NavigationMillis int64 `json:"navigation_millis"`
	AnalysisMillis   int64 `json:"analysis_millis"`
	DOMNodeCount     int   `json:"dom_node_count"`
}

// AccessibilityReport is the 0-100 static accessibility score with the
// issues that lowered it.
type AccessibilityReport struct {
	Score  float64  `json:"score"`
	Issues []string `json:"issues,omitempty"`
}

type MobileReport struct {
	HasViewportMeta bool `json:"has_viewport_meta"`
	Responsive      bool `json:"responsive"`
}

// InvestigationResult is the complete knowledge gathered about one url.
type InvestigationResult struct {
	ID             string    `json:"id"`
	URL            string    `json:"url"`
	Domain         string    `json:"domain"`
	Title          string    `json:"title,omitempty"`
	Description    string    `json:"description,omitempty"`
	Keywords       []string  `json:"keywords,omitempty"`
	InvestigatedAt time.Time `json:"investigated_at"`
	Deep           bool      `json:"deep"`

	Structure     PageStructure        `json:"structure"`
	Elements      []DiscoveredElement  `json:"elements,omitempty"`
	Workflows     []DiscoveredWorkflow `json:"workflows,omitempty"`
	Navigation    NavigationSummary    `json:"navigation"`
	Forms         FormSummary          `json:"forms"`
	Auth          AuthSummary          `json:"auth"`
	Ecommerce     EcommerceSummary     `json:"ecommerce"`
	Search        SearchSummary        `json:"search"`
	Social        SocialSummary        `json:"social"`
	Performance   PerformanceMetrics   `json:"performance"`
	Accessibility AccessibilityReport  `json:"accessibility"`
	Mobile        MobileReport         `json:"mobile"`

	TechStack      []string        `json:"tech_stack,omitempty"`
	APIEndpoints   []string        `json:"api_endpoints,omitempty"`
	Security       []string        `json:"security,omitempty"`
	Insights       []string        `json:"insights,omitempty"`
	Commands       []ActionCommand `json:"commands,omitempty"`
	ScreenshotPath string          `json:"screenshot_path,omitempty"`
	Diagnostics    []Diagnostic    `json:"diagnostics,omitempty"`
}

// PlanStep is one executable step of a resolved plan, decorated with the
// referenced element's targeting details.
type PlanStep struct {
	Order       int               `json:"order"`
	ElementID   string            `json:"element_id"`
	Action      string            `json:"action"`
	Parameters  map[string]string `json:"parameters,omitempty"`
	Selector    string            `json:"selector,omitempty"`
	XPath       string            `json:"xpath,omitempty"`
	Text        string            `json:"text,omitempty"`
	Position    Position          `json:"position"`
	Description string            `json:"description,omitempty"`
}

// ExecutionPlan is a workflow expanded into directly executable steps.
type ExecutionPlan struct {
	WorkflowID        string     `json:"workflow_id"`
	Name              string     `json:"name"`
	Category          string     `json:"category"`
	Steps             []PlanStep `json:"steps"`
	EstimatedSeconds  int        `json:"estimated_seconds"`
	SuccessIndicators []string   `json:"success_indicators,omitempty"`
	Prerequisites     []string   `json:"prerequisites,omitempty"`
}

// ClampConfidence clips a confidence score into [0, 1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// DomainOf extracts the host (without port) from a url. Unparseable input
// yields an empty string.
func DomainOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := u.Host
	if host == "" {
		return ""
	}
	if i := strings.LastIndex(host, ":"); i > 0 && !strings.Contains(host, "]") {
		host = host[:i]
	}
	return strings.ToLower(host)
}
