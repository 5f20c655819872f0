package assistant

import (
	"fmt"
	"strings"
	"time"

	"github.com/teslashibe/go-guido/pkg/procedure"
)

// Messages holds every line the assistant speaks.
type Messages struct {
	Ready        string
	Activated    string
	Deactivated  string
	TimedOut     string
	Asleep       string
	Unknown      string
	MissingTool  string
	Organizing   string
	NoProcedure  string
	GuidanceMenu []string
	Shutdown     string
	TimeLayout   string
	// DeliverFormat takes the tool name as its only verb.
	DeliverFormat string
}

const (
	defaultDeliverFormat = "I will bring you the %s. Please show me your hand."
	defaultTimeLayout    = "03:04 PM"
)

// DefaultMessages returns Guido's standard English phrasing.
func DefaultMessages() Messages {
	return Messages{
		Ready:       "Voice system ready. Say 'Guido wake up' to activate me.",
		Activated:   "I am activated sir! How can I assist you today?",
		Deactivated: "Deactivating now. Goodbye!",
		TimedOut:    "I'm deactivating due to inactivity. Say 'Guido wake up' when you need me.",
		Asleep:      "Sorry, I had just gone to sleep. Say 'Guido wake up' to wake me.",
		Unknown:     "I didn't understand that command. Please try again.",
		MissingTool: "I didn't catch which tool you need. Please say it again.",
		Organizing:  "I'm organizing the tools according to their classes.",
		NoProcedure: "I can help with tire changes or engine oil changes. Please specify which procedure you need.",
		GuidanceMenu: []string{
			"I can help you with two main procedures:",
			"1. Changing a car tire",
			"2. Changing engine oil",
			"Which procedure would you like me to explain?",
		},
		Shutdown:      "Shutting down Guido system. Goodbye!",
		TimeLayout:    defaultTimeLayout,
		DeliverFormat: defaultDeliverFormat,
	}
}

// Deliver is the acknowledgment for a tool request.
func (m Messages) Deliver(tool string) string {
	format := m.DeliverFormat
	if format == "" {
		format = defaultDeliverFormat
	}
	return fmt.Sprintf(format, tool)
}

// Time reports t on a 12-hour clock.
func (m Messages) Time(t time.Time) string {
	layout := m.TimeLayout
	if layout == "" {
		layout = defaultTimeLayout
	}
	return "The current time is " + t.Format(layout)
}

// Recital returns the lines spoken before the steps of p.
func (m Messages) Recital(p *procedure.Procedure) []string {
	lines := []string{
		fmt.Sprintf("I'll guide you through %s.", p.Subject),
		"Procedure: " + p.Title,
	}
	if len(p.ToolsNeeded) > 0 {
		lines = append(lines, "You will need: "+strings.Join(p.ToolsNeeded, ", "))
	}
	return lines
}

// Step formats step i (zero based) of a procedure.
func (m Messages) Step(i int, step string) string {
	return fmt.Sprintf("Step %d: %s", i+1, step)
}
