package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitescout/internal/types"
)

func loginElements() []types.DiscoveredElement {
	return []types.DiscoveredElement{
		{
			ElementID:  "element_0",
			Type:       types.ElementTextInput,
			Tag:        "input",
			Attributes: map[string]string{"type": "text", "name": "username"},
		},
		{
			ElementID:  "element_1",
			Type:       types.ElementTextInput,
			Tag:        "input",
			Attributes: map[string]string{"type": "password"},
		},
		{
			ElementID:  "element_2",
			Type:       types.ElementButton,
			Tag:        "button",
			Text:       "Sign In",
			Attributes: map[string]string{"type": "submit"},
		},
	}
}

func TestDetectLogin(t *testing.T) {
	w := detectLogin(loginElements())
	require.NotNil(t, w)

	assert.Equal(t, "User Login", w.Name)
	assert.Equal(t, "authentication", w.Category)
	assert.InDelta(t, 0.9, w.Confidence, 1e-9)
	require.Len(t, w.Steps, 3)
	assert.Equal(t, "element_0", w.Steps[0].ElementID)
	assert.Equal(t, "element_1", w.Steps[1].ElementID)
	assert.Equal(t, "element_2", w.Steps[2].ElementID)
	assert.Equal(t, []string{"valid account credentials"}, w.Prerequisites)
}

func TestDetectLoginMissingPassword(t *testing.T) {
	elements := loginElements()[:1]
	assert.Nil(t, detectLogin(elements))
}

func TestDetectSiteSearchWithButton(t *testing.T) {
	elements := []types.DiscoveredElement{
		{ElementID: "element_0", Type: types.ElementSearchBox, Tag: "input"},
		{ElementID: "element_1", Type: types.ElementButton, Tag: "button", Text: "Search"},
	}

	w := detectSiteSearch(elements)
	require.NotNil(t, w)
	assert.InDelta(t, 0.85, w.Confidence, 1e-9)
	require.Len(t, w.Steps, 2)
	assert.Equal(t, "click", w.Steps[1].Action)
}

func TestDetectSiteSearchEnterFallback(t *testing.T) {
	elements := []types.DiscoveredElement{
		{ElementID: "element_0", Type: types.ElementSearchBox, Tag: "input"},
	}

	w := detectSiteSearch(elements)
	require.NotNil(t, w)
	assert.InDelta(t, 0.8, w.Confidence, 1e-9)
	require.Len(t, w.Steps, 2)
	assert.Equal(t, "press_enter", w.Steps[1].Action)
}

func TestDetectAddToCart(t *testing.T) {
	elements := []types.DiscoveredElement{
		{ElementID: "element_0", Type: types.ElementButton, Tag: "button", Text: "Add to Cart"},
	}

	w := detectAddToCart(elements)
	require.NotNil(t, w)
	assert.Equal(t, "ecommerce", w.Category)
	assert.InDelta(t, 0.75, w.Confidence, 1e-9)
}

func TestDetectNavigationPrefersNavLinks(t *testing.T) {
	elements := []types.DiscoveredElement{
		{ElementID: "element_0", Type: types.ElementLink, Text: "Random", ParentContext: "div"},
		{ElementID: "element_1", Type: types.ElementLink, Text: "Pricing", ParentContext: "nav"},
	}

	w := detectNavigation(elements)
	require.NotNil(t, w)
	assert.Equal(t, "element_1", w.Steps[0].ElementID)
	assert.Equal(t, "Pricing", w.Steps[0].Parameters["target"])
}

func TestMineWorkflowsAssignsSequentialIDs(t *testing.T) {
	elements := append(loginElements(), types.DiscoveredElement{
		ElementID: "element_3", Type: types.ElementSearchBox, Tag: "input",
	})

	inv := &investigation{result: &types.InvestigationResult{Elements: elements}}
	a := newTestAnalyzer(nil)
	require.NoError(t, a.mineWorkflows(inv))

	require.GreaterOrEqual(t, len(inv.result.Workflows), 2)
	assert.Equal(t, "workflow_0", inv.result.Workflows[0].WorkflowID)
	assert.Equal(t, "workflow_1", inv.result.Workflows[1].WorkflowID)
	assert.Equal(t, "User Login", inv.result.Workflows[0].Name)
	assert.Equal(t, "Site Search", inv.result.Workflows[1].Name)
}

func TestIsUsernameInput(t *testing.T) {
	assert.True(t, isUsernameInput(types.DiscoveredElement{
		Type: types.ElementTextInput, Attributes: map[string]string{"type": "email"},
	}))
	assert.True(t, isUsernameInput(types.DiscoveredElement{
		Type: types.ElementTextInput, Attributes: map[string]string{"placeholder": "Your email"},
	}))
	assert.False(t, isUsernameInput(types.DiscoveredElement{
		Type: types.ElementTextInput, Attributes: map[string]string{"type": "password"},
	}))
	assert.False(t, isUsernameInput(types.DiscoveredElement{
		Type: types.ElementButton, Attributes: map[string]string{"type": "email"},
	}))
}

func TestIsSubmitButton(t *testing.T) {
	assert.True(t, isSubmitButton(types.DiscoveredElement{
		Type: types.ElementButton, Attributes: map[string]string{"type": "submit"},
	}))
	assert.True(t, isSubmitButton(types.DiscoveredElement{
		Type: types.ElementButton, Text: "Log In", Attributes: map[string]string{},
	}))
	assert.False(t, isSubmitButton(types.DiscoveredElement{
		Type: types.ElementButton, Text: "Cancel", Attributes: map[string]string{},
	}))
}
