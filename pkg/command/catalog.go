package command

import "strings"

// DefaultTools is the fixed tool catalog in declared order. The order is the
// tie-break when an utterance names more than one tool.
var DefaultTools = []string{
	"bolt",
	"hammer",
	"measuring tape",
	"plier",
	"screwdriver",
	"wrench",
}

// Catalog is a read-only, ordered set of tool names.
type Catalog struct {
	names []string
	index map[string]int
}

// NewCatalog builds a catalog from names in the given order.
// Names are lowercased; duplicates keep their first position.
func NewCatalog(names ...string) *Catalog {
	c := &Catalog{index: make(map[string]int, len(names))}
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if _, dup := c.index[n]; dup {
			continue
		}
		c.index[n] = len(c.names)
		c.names = append(c.names, n)
	}
	return c
}

// DefaultCatalog returns the six-tool catalog used by the robot.
func DefaultCatalog() *Catalog {
	return NewCatalog(DefaultTools...)
}

// Names returns the tool names in declared order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Contains reports whether name is a catalog tool.
func (c *Catalog) Contains(name string) bool {
	return c.Index(name) >= 0
}

// Index returns the class index of a tool, or -1.
func (c *Catalog) Index(name string) int {
	if i, ok := c.index[strings.ToLower(strings.TrimSpace(name))]; ok {
		return i
	}
	return -1
}

// Match returns the first catalog tool, in declared order, contained in utterance.
func (c *Catalog) Match(utterance string) (string, bool) {
	for _, name := range c.names {
		if strings.Contains(utterance, name) {
			return name, true
		}
	}
	return "", false
}

// Len returns the number of tools.
func (c *Catalog) Len() int {
	return len(c.names)
}
