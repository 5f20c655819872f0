package command

import "strings"

// Rule maps a set of trigger keywords to a command kind.
// A rule matches when any keyword is a substring of the utterance.
type Rule struct {
	Kind     Kind
	Keywords []string
}

// matches returns true if any keyword is contained in utterance.
func (r Rule) matches(utterance string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(utterance, kw) {
			return true
		}
	}
	return false
}

// Keyword sets for the default rule table.
var (
	ActivationPhrases = []string{
		"guido wake up",
		"guido activate",
		"hey guido",
		"wake up guido",
		"hello guido",
	}

	GuidanceKeywords = []string{
		"guide", "help", "manual", "procedure", "instruction", "repair", "maintenance",
		"tire", "tyre", "wheel", "flat", "puncture",
		"oil", "lubricant",
	}

	DeactivateKeywords = []string{"deactivate", "sleep", "stop"}

	TimeKeywords = []string{"time"}

	OrganizeKeywords = []string{"organize", "organise", "arrange", "clean up", "put in order"}
)

// Classifier evaluates the ordered rule tables for each mode.
type Classifier struct {
	catalog *Catalog
	dormant []Rule
	active  []Rule
}

// NewClassifier builds the default rule tables around catalog.
// A nil catalog uses DefaultCatalog.
func NewClassifier(catalog *Catalog) *Classifier {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	return &Classifier{
		catalog: catalog,
		dormant: []Rule{
			{Kind: Activation, Keywords: ActivationPhrases},
		},
		active: []Rule{
			{Kind: ToolRequest, Keywords: catalog.Names()},
			{Kind: Guidance, Keywords: GuidanceKeywords},
			{Kind: Deactivate, Keywords: DeactivateKeywords},
			{Kind: Time, Keywords: TimeKeywords},
			{Kind: Organize, Keywords: OrganizeKeywords},
		},
	}
}

var defaultClassifier = NewClassifier(nil)

// Classify classifies utterance with the default catalog and rule tables.
func Classify(utterance string, mode Mode) Command {
	return defaultClassifier.Classify(utterance, mode)
}

// Catalog returns the tool catalog backing the classifier.
func (c *Classifier) Catalog() *Catalog {
	return c.catalog
}

// Rules returns a copy of the rule table for mode, in evaluation order.
func (c *Classifier) Rules(mode Mode) []Rule {
	src := c.dormant
	if mode == ModeActive {
		src = c.active
	}
	out := make([]Rule, len(src))
	for i, r := range src {
		out[i] = Rule{Kind: r.Kind, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}

// Classify maps utterance to a Command. Empty input is always Unknown.
func (c *Classifier) Classify(utterance string, mode Mode) Command {
	text := Normalize(utterance)
	if text == "" {
		return Command{Kind: Unknown}
	}

	rules := c.dormant
	if mode == ModeActive {
		rules = c.active
	}

	for _, r := range rules {
		if !r.matches(text) {
			continue
		}
		cmd := Command{Kind: r.Kind, Utterance: text}
		switch r.Kind {
		case ToolRequest:
			cmd.Tool, _ = c.catalog.Match(text)
		case Guidance:
			cmd.Topic = text
		}
		return cmd
	}

	return Command{Kind: Unknown, Utterance: text}
}

// IsActivation reports whether utterance contains an activation phrase.
func (c *Classifier) IsActivation(utterance string) bool {
	return c.Classify(utterance, ModeDormant).Kind == Activation
}

// Normalize lowercases and trims an utterance.
func Normalize(utterance string) string {
	return strings.ToLower(strings.TrimSpace(utterance))
}
