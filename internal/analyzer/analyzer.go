package analyzer

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"sitescout/internal/browser"
	"sitescout/internal/config"
	"sitescout/internal/llm"
	"sitescout/internal/logging"
	"sitescout/internal/types"
)

// cacheTTL is the freshness window for repeated investigations of the same
// domain.
const cacheTTL = time.Hour

// SetupError is a fatal investigation failure: the browser session could not
// be opened or initial navigation failed. Any other phase failure degrades
// that phase instead of aborting.
type SetupError struct {
	URL string
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("investigation setup failed for %s: %v", e.URL, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// Analyzer runs the phased discovery pipeline against one URL.
type Analyzer struct {
	factory browser.Factory
	model   llm.Client // nil disables the insight phase
	cfg     *config.Config

	mu    sync.Mutex
	cache map[cacheKey]*cacheEntry

	now func() time.Time
}

type cacheKey struct {
	domain string
	deep   bool
}

type cacheEntry struct {
	result   *types.InvestigationResult
	storedAt time.Time
}

// New creates a new website analyzer. The model client may be nil; the
// insight phase then contributes nothing.
func New(factory browser.Factory, model llm.Client, cfg *config.Config) *Analyzer {
	return &Analyzer{
		factory: factory,
		model:   model,
		cfg:     cfg,
		cache:   make(map[cacheKey]*cacheEntry),
		now:     time.Now,
	}
}

// investigation carries the per-run state shared between phases.
type investigation struct {
	driver browser.Driver
	result *types.InvestigationResult
	source string
	doc    *goquery.Document
}

// Investigate runs the full discovery pipeline against the URL. A recent
// result for the same (domain, deep) pair short-circuits the pipeline.
func (a *Analyzer) Investigate(ctx context.Context, url string, deep bool) (*types.InvestigationResult, error) {
	domain := types.DomainOf(url)

	if cached := a.cachedResult(domain, deep); cached != nil {
		logging.Info("Analyzer cache hit for %s (deep=%v)", domain, deep)
		return cached, nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout())
	defer cancel()

	driver, err := a.factory(ctx)
	if err != nil {
		return nil, &SetupError{URL: url, Err: err}
	}
	defer driver.Close()

	navStart := a.now()
	if err := driver.Navigate(ctx, url); err != nil {
		return nil, &SetupError{URL: url, Err: err}
	}
	navMillis := time.Since(navStart).Milliseconds()

	analysisStart := a.now()
	inv := &investigation{
		driver: driver,
		result: &types.InvestigationResult{
			ID:             uuid.NewString(),
			URL:            url,
			Domain:         domain,
			InvestigatedAt: a.now(),
			Deep:           deep,
			Performance:    types.PerformanceMetrics{NavigationMillis: navMillis},
		},
	}

	a.runPhase(inv, "basic_info", func() error { return a.collectBasicInfo(ctx, inv) })
	a.runPhase(inv, "dom_structure", func() error { return a.classifyStructure(inv) })
	a.runPhase(inv, "element_discovery", func() error { return a.discoverElements(ctx, inv) })
	a.runPhase(inv, "workflow_mining", func() error { return a.mineWorkflows(inv) })
	a.runPhase(inv, "navigation", func() error { return a.detectNavigation(inv) })
	a.runPhase(inv, "forms", func() error { return a.detectForms(inv) })
	a.runPhase(inv, "auth", func() error { return a.detectAuth(inv) })
	a.runPhase(inv, "ecommerce", func() error { return a.detectEcommerce(inv) })
	a.runPhase(inv, "search", func() error { return a.detectSearch(inv) })
	a.runPhase(inv, "social", func() error { return a.detectSocial(inv) })
	a.runPhase(inv, "tech_stack", func() error { return a.fingerprintTechStack(inv) })
	a.runPhase(inv, "api_endpoints", func() error { return a.extractAPIEndpoints(inv) })
	a.runPhase(inv, "accessibility", func() error { return a.scoreAccessibility(inv) })
	a.runPhase(inv, "mobile", func() error { return a.checkMobileCompatibility(inv) })
	if deep {
		a.runPhase(inv, "screenshot", func() error { return a.captureScreenshot(ctx, inv) })
	}
	a.runPhase(inv, "ai_insights", func() error { return a.generateInsights(ctx, inv) })
	a.runPhase(inv, "command_generation", func() error { return a.generateCommands(inv) })

	inv.result.Performance.AnalysisMillis = time.Since(analysisStart).Milliseconds()

	a.storeCached(domain, deep, inv.result)
	logging.Info("Investigation of %s complete: %d elements, %d workflows, %d commands, %d diagnostics",
		url, len(inv.result.Elements), len(inv.result.Workflows), len(inv.result.Commands),
		len(inv.result.Diagnostics))

	return inv.result, nil
}

// runPhase executes one pipeline phase under the soft-failure policy: an
// error degrades the phase's contribution to its zero value and is recorded
// as a diagnostic instead of aborting the run.
func (a *Analyzer) runPhase(inv *investigation, name string, fn func() error) {
	if err := fn(); err != nil {
		logging.Warn("Phase %s degraded for %s: %v", name, inv.result.URL, err)
		inv.result.Diagnostics = append(inv.result.Diagnostics, types.Diagnostic{
			Phase:   name,
			Message: err.Error(),
		})
	}
}

func (a *Analyzer) cachedResult(domain string, deep bool) *types.InvestigationResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	entry, ok := a.cache[cacheKey{domain: domain, deep: deep}]
	if !ok {
		return nil
	}
	if a.now().Sub(entry.storedAt) > cacheTTL {
		delete(a.cache, cacheKey{domain: domain, deep: deep})
		return nil
	}
	return entry.result
}

func (a *Analyzer) storeCached(domain string, deep bool, result *types.InvestigationResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cache[cacheKey{domain: domain, deep: deep}] = &cacheEntry{result: result, storedAt: a.now()}
}

// InvalidateCache drops any cached result for the domain. Used by
// force-refresh.
func (a *Analyzer) InvalidateCache(domain string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.cache, cacheKey{domain: domain, deep: true})
	delete(a.cache, cacheKey{domain: domain, deep: false})
}

// captureScreenshot stores a full-page screenshot next to the knowledge base.
func (a *Analyzer) captureScreenshot(ctx context.Context, inv *investigation) error {
	dir := a.cfg.Browser.ScreenshotDir
	if dir == "" {
		dir = ".sitescout/screenshots"
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%d.png", inv.result.Domain, a.now().Unix()))
	if err := inv.driver.Screenshot(ctx, path); err != nil {
		return err
	}
	inv.result.ScreenshotPath = path
	return nil
}

// generateInsights asks the model for narrative insights about the site.
// Absence of a model or any request failure yields an empty insight list.
func (a *Analyzer) generateInsights(ctx context.Context, inv *investigation) error {
	if a.model == nil || !a.cfg.Investigation.EnableAI {
		return nil
	}

	simplified := ""
	if inv.source != "" {
		var err error
		simplified, err = browser.SimplifyHTML(inv.source)
		if err != nil {
			simplified = ""
		}
	}

	workflowNames := make([]string, 0, len(inv.result.Workflows))
	for _, w := range inv.result.Workflows {
		workflowNames = append(workflowNames, w.Name)
	}

	prompt := llm.BuildInsightPrompt(inv.result.URL, inv.result.Domain, inv.result.Title,
		len(inv.result.Elements), workflowNames, simplified)

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := a.model.Request(reqCtx, prompt)
	if err != nil {
		return fmt.Errorf("insight request failed: %w", err)
	}

	inv.result.Insights = llm.ParseInsights(resp.Text)
	return nil
}
