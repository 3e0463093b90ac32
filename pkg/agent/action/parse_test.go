package action

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlanComplete(t *testing.T) {
	plan, err := ParsePlan(`{"explanation":"done","actions":[{"type":"complete","text":"Found it."}]}`)
	require.NoError(t, err)

	assert.Equal(t, "done", plan.Explanation)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, Complete{Text: "Found it."}, plan.Actions[0])
	assert.True(t, IsTerminal(plan.Actions[0]))
}

func TestParsePlanSurroundingProse(t *testing.T) {
	raw := "Sure! Here is my plan:\n```json\n" +
		`{"explanation":"search","actions":[{"type":"type","selector":"#q","text":"blue mug"},{"type":"click","selector":"#go"}]}` +
		"\n```\nLet me know {if} that works."

	plan, err := ParsePlan(raw)
	require.NoError(t, err)

	assert.Equal(t, []Action{
		Type{Selector: "#q", Text: "blue mug"},
		Click{Selector: "#go"},
	}, plan.Actions)
}

func TestParsePlanPrefersObjectWithActions(t *testing.T) {
	raw := `Example shape: {"type":"scroll"}. Actual: {"explanation":"look","actions":[{"type":"scroll","direction":"up","amount":"400"}]}`

	plan, err := ParsePlan(raw)
	require.NoError(t, err)
	assert.Equal(t, []Action{Scroll{Direction: ScrollUp, Amount: 400}}, plan.Actions)
}

func TestParsePlanFailures(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "prose only", raw: "I think you should scroll down"},
		{name: "truncated json", raw: `{"explanation":"x","actions":[{"type":"click"`},
		{name: "missing actions", raw: `{"explanation":"nothing to do"}`},
		{name: "empty actions", raw: `{"explanation":"x","actions":[]}`},
		{name: "empty", raw: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := ParsePlan(tt.raw)
			assert.Nil(t, plan)
			assert.True(t, errors.Is(err, ErrPlanParse), "got %v", err)
		})
	}
}

func TestParsePlanDegradesUnknownKinds(t *testing.T) {
	plan, err := ParsePlan(`{"explanation":"x","actions":[
		{"type":"teleport","where":"mars"},
		"not an object",
		{"type":"navigate"},
		{"type":"propose_product","price":"$3"},
		{"type":"NAVIGATE","url":"https://shop.test","extra":{"nested":true}}
	]}`)
	require.NoError(t, err)

	assert.Equal(t, []Action{
		Extract{},
		Extract{},
		Extract{},
		Extract{},
		Navigate{URL: "https://shop.test"},
	}, plan.Actions)
}

func TestParsePlanFieldDefaults(t *testing.T) {
	plan, err := ParsePlan(`{"actions":[
		{"type":"wait"},
		{"type":"wait","duration":250},
		{"type":"wait","seconds":"2"},
		{"type":"scroll"},
		{"type":"click"},
		{"type":"look"},
		{"type":"complete"},
		{"type":"propose_product","text":"Blue Mug","price":"$12","imageUrl":"https://img.test/m.png"},
		{"type":"done","text":"ok"},
		{"type":"finding","text":"Mugs ship free over $30"}
	]}`)
	require.NoError(t, err)

	assert.Equal(t, DefaultExplanation, plan.Explanation)
	assert.Equal(t, []Action{
		Wait{Duration: DefaultWait},
		Wait{Duration: 250 * time.Millisecond},
		Wait{Duration: 2 * time.Second},
		Scroll{Direction: ScrollDown},
		Click{},
		Look{},
		Complete{},
		ProposeProduct{Title: "Blue Mug", Price: "$12", ImageURL: "https://img.test/m.png"},
		Complete{Text: "ok"},
		RecordFinding{Text: "Mugs ship free over $30"},
	}, plan.Actions)
}

func TestParsePlanSingleActionObject(t *testing.T) {
	plan, err := ParsePlan(`{"explanation":"x","actions":{"type":"extract"}}`)
	require.NoError(t, err)
	assert.Equal(t, []Action{Extract{}}, plan.Actions)
}

func TestDefaultPlan(t *testing.T) {
	plan := DefaultPlan()
	assert.Equal(t, DefaultExplanation, plan.Explanation)
	assert.Equal(t, []Action{Extract{}}, plan.Actions)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "Navigating to https://a.test", Describe(Navigate{URL: "https://a.test"}))
	assert.Equal(t, "Clicking (unspecified)", Describe(Click{}))
	assert.Equal(t, `Typing "mug" into #q`, Describe(Type{Selector: "#q", Text: "mug"}))
	assert.Equal(t, "Scrolling down", Describe(Scroll{}))
	assert.Equal(t, "Waiting 1s", Describe(Wait{Duration: time.Second}))
	assert.Equal(t, "Proposing Blue Mug", Describe(ProposeProduct{Title: "Blue Mug"}))
}
