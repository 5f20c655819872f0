// Package procedure holds the static library of spoken maintenance procedures.
package procedure

import (
	"sort"
	"strings"
)

// Library keys.
const (
	TireChange = "tire_change"
	OilChange  = "oil_change"
)

// Procedure is a named, ordered sequence of spoken steps.
type Procedure struct {
	Key         string   `json:"key" yaml:"key"`
	Title       string   `json:"title" yaml:"title"`
	Subject     string   `json:"subject" yaml:"subject"` // e.g. "changing a car tire"
	Steps       []string `json:"steps" yaml:"steps"`
	ToolsNeeded []string `json:"tools_needed" yaml:"tools_needed"`
}

// clone returns a deep copy so callers cannot mutate library contents.
func (p *Procedure) clone() *Procedure {
	c := *p
	c.Steps = append([]string(nil), p.Steps...)
	c.ToolsNeeded = append([]string(nil), p.ToolsNeeded...)
	return &c
}

// Library is an immutable set of procedures plus the keyword routes into them.
type Library struct {
	procedures map[string]*Procedure
	routes     []route
	general    []string
}

// route sends a topic to a procedure when any keyword is contained in it.
type route struct {
	key      string
	keywords []string
}

// Match is the result of routing a guidance topic.
type Match struct {
	// Procedure is set when the topic selected a specific procedure.
	Procedure *Procedure

	// Generic is true when the topic only asked for help in general.
	Generic bool
}

// Found reports whether the topic routed to a specific procedure.
func (m Match) Found() bool {
	return m.Procedure != nil
}

// Default returns the built-in tire and oil change library.
func Default() *Library {
	return &Library{
		procedures: map[string]*Procedure{
			TireChange: {
				Key:     TireChange,
				Title:   "How to Change a Car Tire",
				Subject: "changing a car tire",
				Steps: []string{
					"Find a safe, flat location and turn on hazard lights",
					"Apply parking brake and place wheel wedges",
					"Remove hubcap and loosen lug nuts",
					"Jack up the vehicle about 6 inches",
					"Remove lug nuts and take off flat tire",
					"Mount spare tire and hand-tighten lug nuts",
					"Lower vehicle and tighten lug nuts in star pattern",
					"Replace hubcap and check tire pressure",
					"Stow all equipment and have spare tire repaired",
				},
				ToolsNeeded: []string{"jack", "lug wrench", "wheel wedges", "spare tire"},
			},
			OilChange: {
				Key:     OilChange,
				Title:   "How to Change Engine Oil",
				Subject: "changing engine oil",
				Steps: []string{
					"Run engine for 5 minutes to warm oil, then turn off",
					"Locate oil drain plug and oil filter",
					"Place drain pan under drain plug",
					"Remove drain plug and drain old oil completely",
					"Replace drain plug and washer",
					"Remove old oil filter and lubricate new filter gasket",
					"Install new oil filter hand-tight",
					"Add new engine oil through fill hole",
					"Check oil level with dipstick",
					"Run engine and check for leaks",
					"Properly dispose of old oil and filter",
				},
				ToolsNeeded: []string{"oil drain pan", "wrench set", "new oil filter", "funnel", "new engine oil"},
			},
		},
		// Tire is checked before oil.
		routes: []route{
			{key: TireChange, keywords: []string{"tire", "tyre", "wheel", "flat", "puncture"}},
			{key: OilChange, keywords: []string{"oil", "engine oil", "lubricant"}},
		},
		general: []string{"guide", "help", "manual"},
	}
}

// Get returns a copy of the procedure stored under key.
func (l *Library) Get(key string) (*Procedure, bool) {
	p, ok := l.procedures[key]
	if !ok {
		return nil, false
	}
	return p.clone(), true
}

// Keys returns the procedure keys in sorted order.
func (l *Library) Keys() []string {
	keys := make([]string, 0, len(l.procedures))
	for k := range l.procedures {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// All returns copies of every procedure, sorted by key.
func (l *Library) All() []*Procedure {
	out := make([]*Procedure, 0, len(l.procedures))
	for _, k := range l.Keys() {
		out = append(out, l.procedures[k].clone())
	}
	return out
}

// Lookup routes a guidance topic to a procedure by keyword containment.
func (l *Library) Lookup(topic string) Match {
	topic = strings.ToLower(topic)
	for _, r := range l.routes {
		for _, kw := range r.keywords {
			if strings.Contains(topic, kw) {
				return Match{Procedure: l.procedures[r.key].clone()}
			}
		}
	}
	for _, kw := range l.general {
		if strings.Contains(topic, kw) {
			return Match{Generic: true}
		}
	}
	return Match{}
}
