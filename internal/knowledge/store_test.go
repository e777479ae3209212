package knowledge

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitescout/internal/types"
)

func sampleResult(url, domain string) *types.InvestigationResult {
	return &types.InvestigationResult{
		ID:             "inv-" + domain,
		URL:            url,
		Domain:         domain,
		Title:          "Sample",
		InvestigatedAt: time.Now(),
		Elements: []types.DiscoveredElement{
			{
				ElementID:  "element_0",
				Type:       types.ElementTextInput,
				Tag:        "input",
				Selector:   "#user",
				XPath:      "/html/body/form/input[1]",
				Attributes: map[string]string{"type": "text", "name": "username"},
				Position:   types.Position{X: 10, Y: 40, Width: 200, Height: 30},
				Visible:    true,
				Enabled:    true,
				Confidence: 0.7,
			},
			{
				ElementID:  "element_1",
				Type:       types.ElementTextInput,
				Tag:        "input",
				Selector:   "#pass",
				XPath:      "/html/body/form/input[2]",
				Attributes: map[string]string{"type": "password"},
				Visible:    true,
				Enabled:    true,
				Confidence: 0.7,
			},
			{
				ElementID:  "element_2",
				Type:       types.ElementButton,
				Tag:        "button",
				Selector:   "form > button",
				XPath:      "/html/body/form/button",
				Text:       "Sign In",
				Visible:    true,
				Enabled:    true,
				Confidence: 0.9,
			},
		},
		Workflows: []types.DiscoveredWorkflow{
			{
				WorkflowID: "workflow_0",
				Name:       "User Login",
				Category:   "authentication",
				Steps: []types.WorkflowStep{
					{ElementID: "element_0", Action: "type", Parameters: map[string]string{"field": "username"}},
					{ElementID: "element_1", Action: "type", Parameters: map[string]string{"field": "password"}},
					{ElementID: "element_2", Action: "click"},
				},
				Prerequisites:    []string{"valid account credentials"},
				EstimatedSeconds: 15,
				Confidence:       0.9,
			},
		},
		Commands: []types.ActionCommand{
			{
				Command:    "log in",
				Intent:     "authentication",
				WorkflowID: "workflow_0",
				Confidence: 0.855,
			},
			{
				Command:    "sign in to the site",
				Intent:     "authentication",
				WorkflowID: "workflow_0",
				Confidence: 0.855,
			},
		},
	}
}

func TestStoreAndGet(t *testing.T) {
	s := NewStore()

	result := sampleResult("https://example.com", "example.com")
	assert.True(t, s.Store(result))
	assert.Same(t, result, s.Get("https://example.com"))
	assert.Nil(t, s.Get("https://unknown.example"))
}

func TestStoreRejectsInvalid(t *testing.T) {
	s := NewStore()
	assert.False(t, s.Store(nil))
	assert.False(t, s.Store(&types.InvestigationResult{}))
}

func TestSQLitePersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "knowledge.db")
	cachePath := filepath.Join(dir, "cache.json")

	s, err := Open(dbPath, cachePath)
	require.NoError(t, err)

	result := sampleResult("https://example.com", "example.com")
	require.True(t, s.Store(result))
	require.NoError(t, s.Close())

	reopened, err := Open(dbPath, cachePath)
	require.NoError(t, err)
	defer reopened.Close()

	restored := reopened.Get("https://example.com")
	require.NotNil(t, restored)
	assert.Equal(t, result.ID, restored.ID)
	assert.Len(t, restored.Elements, 3)
	assert.Len(t, restored.Workflows, 1)

	// Indices are rebuilt from restored rows.
	assert.Len(t, reopened.FindWorkflowsByIntent("authentication", ""), 1)
	assert.FileExists(t, cachePath)
}

func TestSQLiteUpsertKeepsOneRow(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "knowledge.db"), filepath.Join(dir, "cache.json"))
	require.NoError(t, err)

	require.True(t, s.Store(sampleResult("https://example.com", "example.com")))
	updated := sampleResult("https://example.com", "example.com")
	updated.Title = "Updated"
	require.True(t, s.Store(updated))
	require.NoError(t, s.Close())

	reopened, err := Open(filepath.Join(dir, "knowledge.db"), filepath.Join(dir, "cache.json"))
	require.NoError(t, err)
	defer reopened.Close()

	stats := reopened.GetStatistics()
	assert.Equal(t, 1, stats.Investigations)
	assert.Equal(t, "Updated", reopened.Get("https://example.com").Title)
}

func TestFindWorkflowsByIntent(t *testing.T) {
	s := NewStore()
	s.Store(sampleResult("https://a.example.com", "a.example.com"))
	s.Store(sampleResult("https://b.example.com", "b.example.com"))

	all := s.FindWorkflowsByIntent("authentication", "")
	assert.Len(t, all, 2)

	// Name and category both resolve, case-insensitively.
	byName := s.FindWorkflowsByIntent("User Login", "a.example.com")
	require.Len(t, byName, 1)
	assert.Equal(t, "User Login", byName[0].Name)

	assert.Empty(t, s.FindWorkflowsByIntent("authentication", "c.example.com"))
	assert.Empty(t, s.FindWorkflowsByIntent("checkout", ""))
}

func TestFindElementsByType(t *testing.T) {
	s := NewStore()
	s.Store(sampleResult("https://a.example.com", "a.example.com"))
	s.Store(sampleResult("https://b.example.com", "b.example.com"))

	inputs := s.FindElementsByType(types.ElementTextInput, "")
	assert.Len(t, inputs, 4)

	buttons := s.FindElementsByType(types.ElementButton, "a.example.com")
	require.Len(t, buttons, 1)
	assert.Equal(t, "Sign In", buttons[0].Text)

	assert.Empty(t, s.FindElementsByType(types.ElementSlider, ""))
}

func TestSearchByNaturalLanguage(t *testing.T) {
	s := NewStore()
	s.Store(sampleResult("https://example.com", "example.com"))

	matches := s.SearchByNaturalLanguage("sign in please", "example.com")
	require.NotEmpty(t, matches)
	// Both phrases share a token with the query ("in"/"sign").
	assert.Len(t, matches, 2)
	for _, m := range matches {
		assert.Equal(t, "example.com", m.Domain)
	}

	assert.Empty(t, s.SearchByNaturalLanguage("sign in please", "other.example"))
	assert.Empty(t, s.SearchByNaturalLanguage("purchase a llama", "example.com"))
	assert.Empty(t, s.SearchByNaturalLanguage("   ", "example.com"))
}

func TestSearchRanksByConfidence(t *testing.T) {
	s := NewStore()

	result := sampleResult("https://example.com", "example.com")
	result.Commands = []types.ActionCommand{
		{Command: "search the site", Intent: "search", WorkflowID: "workflow_0", Confidence: 0.76},
		{Command: "search for products", Intent: "search", WorkflowID: "workflow_0", Confidence: 0.9},
	}
	s.Store(result)

	matches := s.SearchByNaturalLanguage("search", "example.com")
	require.Len(t, matches, 2)
	assert.Equal(t, "search for products", matches[0].Command.Command)
	assert.Equal(t, "search the site", matches[1].Command.Command)
}

func TestSearchCapsAtTen(t *testing.T) {
	s := NewStore()

	result := sampleResult("https://example.com", "example.com")
	result.Commands = nil
	for i := 0; i < 15; i++ {
		result.Commands = append(result.Commands, types.ActionCommand{
			Command:    "search option " + string(rune('a'+i)),
			Intent:     "search",
			WorkflowID: "workflow_0",
			Confidence: 0.5,
		})
	}
	s.Store(result)

	matches := s.SearchByNaturalLanguage("search", "example.com")
	assert.Len(t, matches, 10)
}

func TestGetWorkflowExecutionPlan(t *testing.T) {
	s := NewStore()
	s.Store(sampleResult("https://example.com", "example.com"))

	plan := s.GetWorkflowExecutionPlan("workflow_0", "example.com")
	require.NotNil(t, plan)
	assert.Equal(t, "User Login", plan.Name)
	assert.Equal(t, []string{"valid account credentials"}, plan.Prerequisites)
	require.Len(t, plan.Steps, 3)

	first := plan.Steps[0]
	assert.Equal(t, 1, first.Order)
	assert.Equal(t, "#user", first.Selector)
	assert.Equal(t, "/html/body/form/input[1]", first.XPath)
	assert.Equal(t, "type", first.Action)

	last := plan.Steps[2]
	assert.Equal(t, 3, last.Order)
	assert.Equal(t, "Sign In", last.Text)

	assert.Nil(t, s.GetWorkflowExecutionPlan("workflow_99", "example.com"))
	assert.Nil(t, s.GetWorkflowExecutionPlan("workflow_0", "other.example"))
}

func TestReStoreRetractsStaleIndexEntries(t *testing.T) {
	s := NewStore()
	s.Store(sampleResult("https://example.com", "example.com"))

	// Re-investigation found a search surface instead of a login.
	updated := sampleResult("https://example.com", "example.com")
	updated.Workflows = []types.DiscoveredWorkflow{
		{
			WorkflowID: "workflow_0",
			Name:       "Site Search",
			Category:   "search",
			Steps: []types.WorkflowStep{
				{ElementID: "element_0", Action: "type"},
			},
			Confidence: 0.85,
		},
	}
	updated.Commands = []types.ActionCommand{
		{Command: "search the site", Intent: "search", WorkflowID: "workflow_0", Confidence: 0.8},
	}
	updated.Elements = updated.Elements[:1]
	s.Store(updated)

	assert.Empty(t, s.FindWorkflowsByIntent("authentication", ""))
	assert.Len(t, s.FindWorkflowsByIntent("search", ""), 1)
	assert.Empty(t, s.FindElementsByType(types.ElementButton, ""))
	assert.Empty(t, s.SearchByNaturalLanguage("log in", "example.com"))
	assert.NotEmpty(t, s.SearchByNaturalLanguage("search", "example.com"))
}

func TestGetNaturalLanguageCommands(t *testing.T) {
	s := NewStore()
	s.Store(sampleResult("https://example.com", "example.com"))

	commands := s.GetNaturalLanguageCommands("example.com")
	assert.Len(t, commands, 2)
	assert.Nil(t, s.GetNaturalLanguageCommands("unknown.example"))
}

func TestGetStatistics(t *testing.T) {
	s := NewStore()
	s.Store(sampleResult("https://a.example.com", "a.example.com"))
	s.Store(sampleResult("https://b.example.com", "b.example.com"))

	stats := s.GetStatistics()
	assert.Equal(t, 2, stats.Investigations)
	assert.Equal(t, 2, stats.Domains)
	assert.Equal(t, 2, stats.Workflows)
	assert.Equal(t, 6, stats.Elements)
	assert.Equal(t, 4, stats.Commands)
	assert.Equal(t, 2, stats.CommandPhrases)
	assert.Equal(t, 2, stats.DomainKeys)
	assert.Equal(t, 2, stats.PrereqKeys)
}

func TestExecutionPlanPrerequisitesFollowReStore(t *testing.T) {
	s := NewStore()
	s.Store(sampleResult("https://example.com", "example.com"))

	plan := s.GetWorkflowExecutionPlan("workflow_0", "example.com")
	require.NotNil(t, plan)
	assert.Equal(t, []string{"valid account credentials"}, plan.Prerequisites)

	// Re-investigation dropped the prerequisite; the plan must not serve the
	// stale one.
	updated := sampleResult("https://example.com", "example.com")
	updated.Workflows[0].Prerequisites = nil
	s.Store(updated)

	plan = s.GetWorkflowExecutionPlan("workflow_0", "example.com")
	require.NotNil(t, plan)
	assert.Empty(t, plan.Prerequisites)
	assert.Equal(t, 0, s.GetStatistics().PrereqKeys)
}

func TestHealthy(t *testing.T) {
	assert.True(t, NewStore().Healthy())

	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "knowledge.db"), filepath.Join(dir, "cache.json"))
	require.NoError(t, err)
	assert.True(t, s.Healthy())
	require.NoError(t, s.Close())
}
