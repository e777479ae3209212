package orchestrator

import (
	"context"
	"sync"
	"time"

	"sitescout/internal/config"
	"sitescout/internal/knowledge"
	"sitescout/internal/logging"
	"sitescout/internal/types"
)

// Analyzer is the discovery pipeline the orchestrator drives.
type Analyzer interface {
	Investigate(ctx context.Context, url string, deep bool) (*types.InvestigationResult, error)
	InvalidateCache(domain string)
}

// Investigation states
const (
	StateNotStarted = "not_started"
	StateInProgress = "in_progress"
	StateCompleted  = "completed"
	StateFailed     = "failed"
)

type urlState struct {
	status      string
	startedAt   time.Time
	completedAt time.Time
	lastError   string
}

// Service composes the analyzer and the knowledge store, owning per-URL
// lifecycle, dedup, and the public query/execute surface. Construct one at
// startup and pass it to every handler.
type Service struct {
	analyzer Analyzer
	store    *knowledge.Store
	cfg      *config.Config

	mu     sync.Mutex
	active map[string]time.Time // urls with an in-flight investigation
	states map[string]*urlState

	now func() time.Time
}

// New creates the investigation orchestrator.
func New(analyzer Analyzer, store *knowledge.Store, cfg *config.Config) *Service {
	return &Service{
		analyzer: analyzer,
		store:    store,
		cfg:      cfg,
		active:   make(map[string]time.Time),
		states:   make(map[string]*urlState),
		now:      time.Now,
	}
}

// Summary is the caller-facing digest of one investigate call. Callers
// always get a structured response with an explicit success flag.
type Summary struct {
	Success        bool            `json:"success"`
	Conflict       bool            `json:"conflict,omitempty"`
	FromCache      bool            `json:"from_cache"`
	URL            string          `json:"url"`
	Domain         string          `json:"domain"`
	ElementCount   int             `json:"element_count"`
	WorkflowCount  int             `json:"workflow_count"`
	CommandCount   int             `json:"command_count"`
	Capabilities   map[string]bool `json:"capabilities,omitempty"`
	TopInsights    []string        `json:"top_insights,omitempty"`
	SampleCommands []string        `json:"sample_commands,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// InvestigateComprehensive runs (or reuses) a full investigation of the url.
// A second call while one is in flight returns a conflict summary instead of
// starting another run. A completed url is served from the store unless
// forceRefresh resets it.
func (s *Service) InvestigateComprehensive(ctx context.Context, url string, deep, forceRefresh bool) Summary {
	domain := types.DomainOf(url)

	s.mu.Lock()
	if startedAt, inFlight := s.active[url]; inFlight {
		s.mu.Unlock()
		return Summary{
			Conflict: true,
			URL:      url,
			Domain:   domain,
			Error:    "investigation already in progress since " + startedAt.Format(time.RFC3339),
		}
	}

	if forceRefresh {
		s.states[url] = &urlState{status: StateNotStarted}
		s.analyzer.InvalidateCache(domain)
	} else if cached := s.store.Get(url); cached != nil {
		s.states[url] = &urlState{status: StateCompleted, completedAt: s.now()}
		s.mu.Unlock()
		return summarize(cached, true)
	}

	s.active[url] = s.now()
	s.states[url] = &urlState{status: StateInProgress, startedAt: s.now()}
	s.mu.Unlock()

	result, err := s.analyzer.Investigate(ctx, url, deep)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, url) // a url is never left stuck in_progress

	if err != nil {
		logging.Error("Investigation of %s failed: %v", url, err)
		s.states[url] = &urlState{status: StateFailed, lastError: err.Error(), completedAt: s.now()}
		return Summary{
			URL:    url,
			Domain: domain,
			Error:  err.Error(),
		}
	}

	if !s.store.Store(result) {
		logging.Warn("Investigation of %s stored with degraded persistence", url)
	}
	s.states[url] = &urlState{status: StateCompleted, completedAt: s.now()}

	return summarize(result, false)
}

func summarize(result *types.InvestigationResult, fromCache bool) Summary {
	summary := Summary{
		Success:       true,
		FromCache:     fromCache,
		URL:           result.URL,
		Domain:        result.Domain,
		ElementCount:  len(result.Elements),
		WorkflowCount: len(result.Workflows),
		CommandCount:  len(result.Commands),
		Capabilities: map[string]bool{
			"login":     result.Auth.HasLogin,
			"search":    result.Search.HasSearch,
			"ecommerce": result.Ecommerce.HasCart || result.Ecommerce.HasCheckout,
			"forms":     result.Forms.FormCount > 0,
			"social":    len(result.Social.ShareLinks) > 0,
		},
	}

	for i, insight := range result.Insights {
		if i == 3 {
			break
		}
		summary.TopInsights = append(summary.TopInsights, insight)
	}
	for i, command := range result.Commands {
		if i == 5 {
			break
		}
		summary.SampleCommands = append(summary.SampleCommands, command.Command)
	}
	return summary
}

// GetNaturalLanguageCommands returns the url's commands grouped by intent,
// optionally filtered to one category.
func (s *Service) GetNaturalLanguageCommands(url, category string) map[string][]types.ActionCommand {
	domain := types.DomainOf(url)
	grouped := make(map[string][]types.ActionCommand)

	for _, command := range s.store.GetNaturalLanguageCommands(domain) {
		if category != "" && command.Intent != category {
			continue
		}
		grouped[command.Intent] = append(grouped[command.Intent], command)
	}
	return grouped
}

// Suggestion is one alternative offered when a command does not resolve.
type Suggestion struct {
	Command    string  `json:"command"`
	Confidence float64 `json:"confidence"`
}

// ExecutionResponse is the result of resolving a free-text command.
type ExecutionResponse struct {
	Success         bool                 `json:"success"`
	MatchedCommand  string               `json:"matched_command,omitempty"`
	MatchConfidence float64              `json:"match_confidence,omitempty"`
	Plan            *types.ExecutionPlan `json:"plan,omitempty"`
	Parameters      map[string]string    `json:"parameters,omitempty"`
	Suggestions     []Suggestion         `json:"suggestions,omitempty"`
	Message         string               `json:"message,omitempty"`
}

// ExecuteNaturalLanguageCommand resolves free text against the url's learned
// commands and expands the best match into an execution plan. On no match it
// returns up to 5 confidence-ranked suggestions.
func (s *Service) ExecuteNaturalLanguageCommand(text, url string, parameters map[string]string) ExecutionResponse {
	domain := types.DomainOf(url)

	matches := s.store.SearchByNaturalLanguage(text, domain)
	if len(matches) == 0 {
		return ExecutionResponse{
			Message:     "no matching command found",
			Suggestions: s.suggestions(domain),
		}
	}

	top := matches[0]
	plan := s.store.GetWorkflowExecutionPlan(top.Command.WorkflowID, domain)
	if plan == nil {
		return ExecutionResponse{
			Message:     "matched command references an unknown workflow",
			Suggestions: s.suggestions(domain),
		}
	}

	return ExecutionResponse{
		Success:         true,
		MatchedCommand:  top.Command.Command,
		MatchConfidence: top.Command.Confidence,
		Plan:            plan,
		Parameters:      parameters,
	}
}

// suggestions ranks the domain's known commands by confidence, capped at 5.
func (s *Service) suggestions(domain string) []Suggestion {
	commands := s.store.GetNaturalLanguageCommands(domain)

	var out []Suggestion
	for _, c := range commands {
		out = append(out, Suggestion{Command: c.Command, Confidence: c.Confidence})
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Confidence > out[j-1].Confidence; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

// Status describes where one url is in its investigation lifecycle.
type Status struct {
	URL            string  `json:"url"`
	State          string  `json:"state"`
	FromCache      bool    `json:"from_cache,omitempty"`
	ElapsedSeconds float64 `json:"elapsed_seconds,omitempty"`
	Error          string  `json:"error,omitempty"`
}

// GetInvestigationStatus reports in_progress, completed, failed, or
// not_found for the url.
func (s *Service) GetInvestigationStatus(url string) Status {
	s.mu.Lock()
	state, tracked := s.states[url]
	var started time.Time
	if tracked {
		started = state.startedAt
	}
	s.mu.Unlock()

	if tracked {
		switch state.status {
		case StateInProgress:
			return Status{
				URL:            url,
				State:          StateInProgress,
				ElapsedSeconds: s.now().Sub(started).Seconds(),
			}
		case StateFailed:
			return Status{URL: url, State: StateFailed, Error: state.lastError}
		case StateCompleted:
			return Status{URL: url, State: StateCompleted, FromCache: true}
		}
	}

	if s.store.Get(url) != nil {
		return Status{URL: url, State: StateCompleted, FromCache: true}
	}
	return Status{URL: url, State: "not_found"}
}

// SystemStatistics aggregates store statistics with orchestrator state.
type SystemStatistics struct {
	Store                knowledge.Statistics `json:"store"`
	ActiveInvestigations int                  `json:"active_investigations"`
	Health               map[string]bool      `json:"health"`
}

// GetSystemStatistics returns store statistics, the active-investigation
// count, and component health flags.
func (s *Service) GetSystemStatistics() SystemStatistics {
	s.mu.Lock()
	activeCount := len(s.active)
	s.mu.Unlock()

	return SystemStatistics{
		Store:                s.store.GetStatistics(),
		ActiveInvestigations: activeCount,
		Health:               s.Health(),
	}
}

// Health reports component health flags.
func (s *Service) Health() map[string]bool {
	return map[string]bool{
		"store":       s.store.Healthy(),
		"analyzer":    s.analyzer != nil,
		"ai_analysis": s.cfg != nil && s.cfg.Investigation.EnableAI,
	}
}
