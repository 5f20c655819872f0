// Package command classifies transcribed utterances into assistant commands.
//
// Classification is an ordered rule table evaluated top to bottom; the first
// rule whose keyword appears anywhere in the lowercased utterance wins. The
// table differs by Mode: while dormant only activation phrases are recognised,
// while active the tool, guidance, deactivation, time and organize rules apply
// in that order.
//
// Matching is plain substring containment on the whole utterance, so
// "could you please give me the hammer now" still yields a tool request.
//
//	cmd := command.Classify("please give me the hammer now", command.ModeActive)
//	// cmd.Kind == command.ToolRequest, cmd.Tool == "hammer"
package command

import "fmt"

// Kind identifies the category of a classified utterance.
type Kind int

const (
	// Unknown is returned for empty input and for input no rule matched.
	Unknown Kind = iota
	// Activation is a wake phrase heard while dormant.
	Activation
	// ToolRequest asks the robot to deliver a tool.
	ToolRequest
	// Guidance asks for a maintenance procedure.
	Guidance
	// Time asks for the current wall-clock time.
	Time
	// Deactivate puts the assistant back to sleep.
	Deactivate
	// Organize asks the robot to rearrange its tools by class.
	Organize
)

var kindNames = map[Kind]string{
	Unknown:     "unknown",
	Activation:  "activation",
	ToolRequest: "tool_request",
	Guidance:    "guidance",
	Time:        "time",
	Deactivate:  "deactivate",
	Organize:    "organize",
}

// String returns the snake_case name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Mode selects which rule list Classify evaluates.
type Mode int

const (
	// ModeDormant only recognises activation phrases.
	ModeDormant Mode = iota
	// ModeActive recognises every command except activation.
	ModeActive
)

// String returns "dormant" or "active".
func (m Mode) String() string {
	if m == ModeActive {
		return "active"
	}
	return "dormant"
}

// Command is the immutable result of classifying one utterance.
type Command struct {
	Kind Kind

	// Tool is the catalog tool for ToolRequest. Empty when the utterance
	// triggered the tool rule but named no catalog tool.
	Tool string

	// Topic is the utterance a Guidance command was derived from.
	Topic string

	// Utterance is the normalized input.
	Utterance string
}

// IsUnknown reports whether no handler should run for the command.
func (c Command) IsUnknown() bool {
	return c.Kind == Unknown
}

// String renders the command for logs.
func (c Command) String() string {
	switch c.Kind {
	case ToolRequest:
		return fmt.Sprintf("%s(%q)", c.Kind, c.Tool)
	case Guidance:
		return fmt.Sprintf("%s(%q)", c.Kind, c.Topic)
	default:
		return c.Kind.String()
	}
}
