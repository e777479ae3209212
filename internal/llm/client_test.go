package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientProviders(t *testing.T) {
	c, err := NewClient(Mock, "", "")
	require.NoError(t, err)
	assert.NotNil(t, c)

	c, err = NewClient(OpenAI, "sk-test", "")
	require.NoError(t, err)
	assert.NotNil(t, c)

	c, err = NewClient(Anthropic, "sk-test", "")
	require.NoError(t, err)
	assert.NotNil(t, c)

	_, err = NewClient(Provider("smoke-signals"), "", "")
	assert.Error(t, err)
}

func TestParseInsights(t *testing.T) {
	insights := ParseInsights(`["first insight", "second insight"]`)
	assert.Equal(t, []string{"first insight", "second insight"}, insights)

	// Prose and code fences around the array are tolerated.
	wrapped := "Here are my findings:\n```json\n[\"wrapped insight\"]\n```\nHope that helps."
	assert.Equal(t, []string{"wrapped insight"}, ParseInsights(wrapped))

	assert.Nil(t, ParseInsights("no array here"))
	assert.Nil(t, ParseInsights(""))
	assert.Empty(t, ParseInsights("[]"))
}

func TestParseInsightsSkipsBlankEntries(t *testing.T) {
	insights := ParseInsights(`["keep", "", "   ", "also keep"]`)
	assert.Equal(t, []string{"keep", "also keep"}, insights)
}

func TestMockClientRespondsToPromptHints(t *testing.T) {
	c := newMockClient()

	resp, err := c.Request(context.Background(), "Site has a login form and a search box")
	require.NoError(t, err)

	insights := ParseInsights(resp.Text)
	require.NotEmpty(t, insights)
	assert.Contains(t, insights, "Login flow detected, suitable for scripted sign-in")
	assert.Contains(t, insights, "Search capability can be driven programmatically")
}

func TestMockClientHonorsCancelledContext(t *testing.T) {
	c := newMockClient()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Request(ctx, "anything")
	assert.Error(t, err)
}

func TestBuildInsightPrompt(t *testing.T) {
	prompt := BuildInsightPrompt("https://example.com", "example.com", "Example",
		12, []string{"User Login", "Site Search"}, "<form></form>")

	assert.Contains(t, prompt, "https://example.com")
	assert.Contains(t, prompt, "User Login, Site Search")
	assert.Contains(t, prompt, "<form></form>")
}
