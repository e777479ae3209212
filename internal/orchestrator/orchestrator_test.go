package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitescout/internal/config"
	"sitescout/internal/knowledge"
	"sitescout/internal/types"
)

// fakeAnalyzer counts runs and can block or fail on demand.
type fakeAnalyzer struct {
	mu          sync.Mutex
	calls       int
	invalidated []string

	result  *types.InvestigationResult
	err     error
	started chan struct{} // closed when Investigate begins, if non-nil
	release chan struct{} // Investigate blocks until closed, if non-nil
}

func (f *fakeAnalyzer) Investigate(ctx context.Context, url string, deep bool) (*types.InvestigationResult, error) {
	f.mu.Lock()
	f.calls++
	started := f.started
	f.started = nil
	f.mu.Unlock()

	if started != nil {
		close(started)
	}
	if f.release != nil {
		<-f.release
	}
	if f.err != nil {
		return nil, f.err
	}

	result := *f.result
	result.URL = url
	result.Domain = types.DomainOf(url)
	return &result, nil
}

func (f *fakeAnalyzer) InvalidateCache(domain string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, domain)
}

func (f *fakeAnalyzer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func loginResult() *types.InvestigationResult {
	return &types.InvestigationResult{
		ID:             "inv-1",
		URL:            "https://example.com",
		Domain:         "example.com",
		Title:          "Example",
		InvestigatedAt: time.Now(),
		Auth:           types.AuthSummary{HasLogin: true},
		Elements: []types.DiscoveredElement{
			{ElementID: "element_0", Type: types.ElementTextInput, Selector: "#user", XPath: "/html/body/form/input[1]"},
			{ElementID: "element_1", Type: types.ElementTextInput, Selector: "#pass", XPath: "/html/body/form/input[2]"},
			{ElementID: "element_2", Type: types.ElementButton, Selector: "form > button", Text: "Sign In"},
		},
		Workflows: []types.DiscoveredWorkflow{
			{
				WorkflowID: "workflow_0",
				Name:       "User Login",
				Category:   "authentication",
				Steps: []types.WorkflowStep{
					{ElementID: "element_0", Action: "type"},
					{ElementID: "element_1", Action: "type"},
					{ElementID: "element_2", Action: "click"},
				},
				EstimatedSeconds: 15,
				Confidence:       0.9,
			},
		},
		Commands: []types.ActionCommand{
			{Command: "log in", Intent: "authentication", WorkflowID: "workflow_0", Confidence: 0.855},
			{Command: "sign in to the site", Intent: "authentication", WorkflowID: "workflow_0", Confidence: 0.855},
		},
		Insights: []string{"Login page with a single form"},
	}
}

func newTestService(fa *fakeAnalyzer) *Service {
	return New(fa, knowledge.NewStore(), config.DefaultConfig())
}

func TestInvestigateComprehensiveStoresResult(t *testing.T) {
	fa := &fakeAnalyzer{result: loginResult()}
	svc := newTestService(fa)

	summary := svc.InvestigateComprehensive(context.Background(), "https://example.com", false, false)

	require.True(t, summary.Success)
	assert.False(t, summary.FromCache)
	assert.Equal(t, "example.com", summary.Domain)
	assert.Equal(t, 3, summary.ElementCount)
	assert.Equal(t, 1, summary.WorkflowCount)
	assert.Equal(t, 2, summary.CommandCount)
	assert.True(t, summary.Capabilities["login"])
	assert.Equal(t, []string{"Login page with a single form"}, summary.TopInsights)
	assert.Len(t, summary.SampleCommands, 2)

	status := svc.GetInvestigationStatus("https://example.com")
	assert.Equal(t, StateCompleted, status.State)
}

func TestInvestigateComprehensiveIdempotent(t *testing.T) {
	fa := &fakeAnalyzer{result: loginResult()}
	svc := newTestService(fa)

	first := svc.InvestigateComprehensive(context.Background(), "https://example.com", false, false)
	require.True(t, first.Success)

	second := svc.InvestigateComprehensive(context.Background(), "https://example.com", false, false)
	require.True(t, second.Success)
	assert.True(t, second.FromCache)
	assert.Equal(t, 1, fa.callCount())
}

func TestInvestigateComprehensiveForceRefresh(t *testing.T) {
	fa := &fakeAnalyzer{result: loginResult()}
	svc := newTestService(fa)

	svc.InvestigateComprehensive(context.Background(), "https://example.com", false, false)
	summary := svc.InvestigateComprehensive(context.Background(), "https://example.com", false, true)

	require.True(t, summary.Success)
	assert.False(t, summary.FromCache)
	assert.Equal(t, 2, fa.callCount())
	assert.Contains(t, fa.invalidated, "example.com")
}

func TestInvestigateComprehensiveConflict(t *testing.T) {
	fa := &fakeAnalyzer{
		result:  loginResult(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	started := fa.started
	svc := newTestService(fa)

	done := make(chan Summary, 1)
	go func() {
		done <- svc.InvestigateComprehensive(context.Background(), "https://example.com", false, false)
	}()

	<-started
	conflict := svc.InvestigateComprehensive(context.Background(), "https://example.com", false, false)
	assert.True(t, conflict.Conflict)
	assert.False(t, conflict.Success)

	close(fa.release)
	first := <-done
	assert.True(t, first.Success)
	assert.Equal(t, 1, fa.callCount())
}

func TestInvestigateFailureClearsActiveMarker(t *testing.T) {
	fa := &fakeAnalyzer{err: fmt.Errorf("chrome not found")}
	svc := newTestService(fa)

	summary := svc.InvestigateComprehensive(context.Background(), "https://example.com", false, false)
	require.False(t, summary.Success)
	assert.Equal(t, "chrome not found", summary.Error)

	status := svc.GetInvestigationStatus("https://example.com")
	assert.Equal(t, StateFailed, status.State)
	assert.Equal(t, "chrome not found", status.Error)

	// The failed url is not stuck: a retry runs the analyzer again.
	fa.err = nil
	fa.result = loginResult()
	retry := svc.InvestigateComprehensive(context.Background(), "https://example.com", false, false)
	assert.True(t, retry.Success)
	assert.Equal(t, 2, fa.callCount())
}

func TestGetNaturalLanguageCommandsGrouping(t *testing.T) {
	fa := &fakeAnalyzer{result: loginResult()}
	svc := newTestService(fa)
	svc.InvestigateComprehensive(context.Background(), "https://example.com", false, false)

	grouped := svc.GetNaturalLanguageCommands("https://example.com", "")
	require.Contains(t, grouped, "authentication")
	assert.Len(t, grouped["authentication"], 2)

	filtered := svc.GetNaturalLanguageCommands("https://example.com", "search")
	assert.Empty(t, filtered)
}

func TestExecuteNaturalLanguageCommand(t *testing.T) {
	fa := &fakeAnalyzer{result: loginResult()}
	svc := newTestService(fa)
	svc.InvestigateComprehensive(context.Background(), "https://example.com", false, false)

	resp := svc.ExecuteNaturalLanguageCommand("sign in please", "https://example.com", map[string]string{"username": "demo"})
	require.True(t, resp.Success)
	assert.Equal(t, 0.855, resp.MatchConfidence)
	require.NotNil(t, resp.Plan)
	assert.Equal(t, "User Login", resp.Plan.Name)
	require.Len(t, resp.Plan.Steps, 3)
	assert.Equal(t, "#user", resp.Plan.Steps[0].Selector)
	assert.Equal(t, "demo", resp.Parameters["username"])
}

func TestExecuteNoMatchSuggests(t *testing.T) {
	fa := &fakeAnalyzer{result: loginResult()}
	svc := newTestService(fa)
	svc.InvestigateComprehensive(context.Background(), "https://example.com", false, false)

	resp := svc.ExecuteNaturalLanguageCommand("purchase a llama", "https://example.com", nil)
	require.False(t, resp.Success)
	assert.Nil(t, resp.Plan)
	require.NotEmpty(t, resp.Suggestions)
	assert.LessOrEqual(t, len(resp.Suggestions), 5)
	for i := 1; i < len(resp.Suggestions); i++ {
		assert.GreaterOrEqual(t, resp.Suggestions[i-1].Confidence, resp.Suggestions[i].Confidence)
	}
}

func TestGetInvestigationStatusUnknownURL(t *testing.T) {
	svc := newTestService(&fakeAnalyzer{result: loginResult()})
	status := svc.GetInvestigationStatus("https://never.example")
	assert.Equal(t, "not_found", status.State)
}

func TestGetSystemStatistics(t *testing.T) {
	fa := &fakeAnalyzer{result: loginResult()}
	svc := newTestService(fa)
	svc.InvestigateComprehensive(context.Background(), "https://example.com", false, false)

	stats := svc.GetSystemStatistics()
	assert.Equal(t, 1, stats.Store.Investigations)
	assert.Equal(t, 0, stats.ActiveInvestigations)
	assert.True(t, stats.Health["store"])
	assert.True(t, stats.Health["analyzer"])
	assert.False(t, stats.Health["ai_analysis"])
}
