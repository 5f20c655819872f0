package procedure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLibrary(t *testing.T) {
	lib := Default()

	assert.Equal(t, []string{OilChange, TireChange}, lib.Keys())

	tire, ok := lib.Get(TireChange)
	require.True(t, ok)
	assert.Equal(t, "How to Change a Car Tire", tire.Title)
	assert.Len(t, tire.Steps, 9)
	assert.Equal(t, "Find a safe, flat location and turn on hazard lights", tire.Steps[0])
	assert.Equal(t, "Stow all equipment and have spare tire repaired", tire.Steps[8])
	assert.Equal(t, []string{"jack", "lug wrench", "wheel wedges", "spare tire"}, tire.ToolsNeeded)

	oil, ok := lib.Get(OilChange)
	require.True(t, ok)
	assert.Equal(t, "How to Change Engine Oil", oil.Title)
	assert.Len(t, oil.Steps, 11)
	assert.Len(t, oil.ToolsNeeded, 5)

	_, ok = lib.Get("brake_change")
	assert.False(t, ok)
}

func TestLookup(t *testing.T) {
	lib := Default()

	tests := []struct {
		topic   string
		wantKey string
		generic bool
	}{
		{topic: "how do i fix a flat tire", wantKey: TireChange},
		{topic: "my tyre is punctured", wantKey: TireChange},
		{topic: "change the wheel", wantKey: TireChange},
		{topic: "engine oil change guide", wantKey: OilChange},
		{topic: "which lubricant", wantKey: OilChange},
		{topic: "tire and oil", wantKey: TireChange},
		{topic: "read the manual", generic: true},
		{topic: "help me", generic: true},
		{topic: "repair instructions"},
		{topic: ""},
	}

	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			m := lib.Lookup(tt.topic)
			assert.Equal(t, tt.generic, m.Generic)
			if tt.wantKey == "" {
				assert.False(t, m.Found())
				return
			}
			require.True(t, m.Found())
			assert.Equal(t, tt.wantKey, m.Procedure.Key)
		})
	}
}

func TestLibraryIsImmutable(t *testing.T) {
	lib := Default()

	p, _ := lib.Get(TireChange)
	p.Steps[0] = "mutated"
	p.ToolsNeeded = nil

	m := lib.Lookup("tire")
	m.Procedure.Title = "mutated"

	for _, all := range lib.All() {
		all.Steps = nil
	}

	fresh, _ := lib.Get(TireChange)
	assert.Equal(t, "Find a safe, flat location and turn on hazard lights", fresh.Steps[0])
	assert.Equal(t, "How to Change a Car Tire", fresh.Title)
	assert.Len(t, fresh.ToolsNeeded, 4)
}
