package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyActive(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		wantKind  Kind
		wantTool  string
	}{
		{name: "tool embedded in sentence", utterance: "please give me the hammer now", wantKind: ToolRequest, wantTool: "hammer"},
		{name: "multi word tool", utterance: "I need the measuring tape", wantKind: ToolRequest, wantTool: "measuring tape"},
		{name: "first catalog tool wins", utterance: "wrench or bolt please", wantKind: ToolRequest, wantTool: "bolt"},
		{name: "plier matches pliers", utterance: "pass the pliers", wantKind: ToolRequest, wantTool: "plier"},
		{name: "tool beats guidance", utterance: "help me find the screwdriver", wantKind: ToolRequest, wantTool: "screwdriver"},
		{name: "guidance keyword", utterance: "read the manual", wantKind: Guidance},
		{name: "tire topic", utterance: "how do I fix a flat tire", wantKind: Guidance},
		{name: "oil topic", utterance: "engine oil change", wantKind: Guidance},
		{name: "guidance beats deactivate", utterance: "help me stop the leak", wantKind: Guidance},
		{name: "deactivate", utterance: "deactivate", wantKind: Deactivate},
		{name: "sleep", utterance: "go to sleep", wantKind: Deactivate},
		{name: "deactivate beats time", utterance: "stop wasting my time", wantKind: Deactivate},
		{name: "time", utterance: "what time is it", wantKind: Time},
		{name: "organize", utterance: "organize tools", wantKind: Organize},
		{name: "arrange", utterance: "arrange everything", wantKind: Organize},
		{name: "unknown", utterance: "sing a song", wantKind: Unknown},
		{name: "activation phrase is not a command when active", utterance: "hey guido", wantKind: Unknown},
		{name: "uppercase is normalized", utterance: "  GIVE ME THE WRENCH ", wantKind: ToolRequest, wantTool: "wrench"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.utterance, ModeActive)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.Equal(t, tt.wantTool, got.Tool)
		})
	}
}

func TestClassifyHammerExample(t *testing.T) {
	got := Classify("please give me the hammer now", ModeActive)
	assert.Equal(t, Command{Kind: ToolRequest, Tool: "hammer", Utterance: "please give me the hammer now"}, got)
}

func TestClassifyEmptyIsUnknown(t *testing.T) {
	for _, in := range []string{"", "   ", "\n\t"} {
		for _, mode := range []Mode{ModeDormant, ModeActive} {
			got := Classify(in, mode)
			assert.True(t, got.IsUnknown(), "input %q mode %s", in, mode)
			assert.Empty(t, got.Utterance)
		}
	}
}

func TestClassifyDormant(t *testing.T) {
	for _, phrase := range ActivationPhrases {
		t.Run(phrase, func(t *testing.T) {
			got := Classify("ok "+phrase+" please", ModeDormant)
			assert.Equal(t, Activation, got.Kind)
		})
	}

	// Commands are ignored while dormant.
	assert.Equal(t, Unknown, Classify("give me the hammer", ModeDormant).Kind)
	assert.Equal(t, Unknown, Classify("what time is it", ModeDormant).Kind)
	assert.Equal(t, Unknown, Classify("guido", ModeDormant).Kind)
}

func TestGuidanceTopicIsUtterance(t *testing.T) {
	got := Classify("How do I change the OIL", ModeActive)
	require.Equal(t, Guidance, got.Kind)
	assert.Equal(t, "how do i change the oil", got.Topic)
}

func TestRulesOrder(t *testing.T) {
	c := NewClassifier(nil)

	active := c.Rules(ModeActive)
	kinds := make([]Kind, len(active))
	for i, r := range active {
		kinds[i] = r.Kind
	}
	assert.Equal(t, []Kind{ToolRequest, Guidance, Deactivate, Time, Organize}, kinds)
	assert.Equal(t, DefaultTools, active[0].Keywords)

	dormant := c.Rules(ModeDormant)
	require.Len(t, dormant, 1)
	assert.Equal(t, Activation, dormant[0].Kind)

	// Returned rules are copies.
	active[0].Keywords[0] = "mutated"
	assert.Equal(t, "bolt", c.Rules(ModeActive)[0].Keywords[0])
}

func TestCustomCatalog(t *testing.T) {
	c := NewClassifier(NewCatalog("Torque Wrench", "wrench", "wrench", ""))
	assert.Equal(t, 2, c.Catalog().Len())

	got := c.Classify("hand me the torque wrench", ModeActive)
	assert.Equal(t, "torque wrench", got.Tool)

	assert.Equal(t, Unknown, c.Classify("give me the hammer", ModeActive).Kind)
}

func TestCatalogLookup(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, 2, c.Index(" Measuring Tape "))
	assert.Equal(t, -1, c.Index("jack"))
	assert.True(t, c.Contains("wrench"))
	assert.False(t, c.Contains(""))
	assert.Equal(t, DefaultTools, c.Names())
}

func TestIsActivation(t *testing.T) {
	c := NewClassifier(nil)
	assert.True(t, c.IsActivation("hello guido how are you"))
	assert.False(t, c.IsActivation("hello there"))
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "tool_request", ToolRequest.String())
	assert.Equal(t, "organize", Organize.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
	assert.Equal(t, `tool_request("wrench")`, Command{Kind: ToolRequest, Tool: "wrench"}.String())
	assert.Equal(t, "active", ModeActive.String())
}
