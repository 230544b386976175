package drafter

import (
	"encoding/json"
	"fmt"

	"github.com/andreaswittus/emas/internal/llm"
	"github.com/andreaswittus/emas/internal/mail"
)

// Kind discriminates the action union.
type Kind string

const (
	KindNewDraft      Kind = "new_draft"
	KindResponseDraft Kind = "response_draft"
	KindQuestion      Kind = "question"
	KindIgnore        Kind = "ignore"
)

// Tool names offered to the model. These are the public face of each Kind.
const (
	ToolNewEmailDraft      = "NewEmailDraft"
	ToolResponseEmailDraft = "ResponseEmailDraft"
	ToolQuestion           = "Question"
	ToolIgnore             = "Ignore"
)

// Action is the single structured proposal produced per generation pass.
// Values are immutable once built; a human edit produces a new Action.
type Action struct {
	Kind    Kind   `json:"kind"`
	Content string `json:"content,omitempty"`
	// Recipients is set for new_draft actions.
	Recipients []string `json:"recipients,omitempty"`
	// NewRecipients is set for response_draft actions (extra recipients only).
	NewRecipients []string `json:"new_recipients,omitempty"`
}

// ToolName returns the tool identifier for the action's kind.
func (a Action) ToolName() string {
	switch a.Kind {
	case KindNewDraft:
		return ToolNewEmailDraft
	case KindResponseDraft:
		return ToolResponseEmailDraft
	case KindQuestion:
		return ToolQuestion
	case KindIgnore:
		return ToolIgnore
	}
	return ""
}

// State is the conversation for one in-flight email run. It is owned by a
// single processing run; only the orchestrator and the components it calls
// mutate it.
type State struct {
	Email    mail.Email    `json:"email"`
	Topic    string        `json:"topic,omitempty"`
	Messages []llm.Message `json:"messages,omitempty"`
	// Pending is the unresolved action, at most one at any time.
	Pending *Action `json:"pending,omitempty"`
}

// parseAction converts a model tool call into an Action.
func parseAction(tc llm.ToolCall) (Action, error) {
	switch tc.Name {
	case ToolNewEmailDraft:
		var args struct {
			Content    string   `json:"content"`
			Recipients []string `json:"recipients"`
		}
		if err := json.Unmarshal(tc.Args, &args); err != nil {
			return Action{}, fmt.Errorf("parse %s args: %w", tc.Name, err)
		}
		return Action{Kind: KindNewDraft, Content: args.Content, Recipients: args.Recipients}, nil

	case ToolResponseEmailDraft:
		var args struct {
			Content       string   `json:"content"`
			NewRecipients []string `json:"new_recipients"`
		}
		if err := json.Unmarshal(tc.Args, &args); err != nil {
			return Action{}, fmt.Errorf("parse %s args: %w", tc.Name, err)
		}
		return Action{Kind: KindResponseDraft, Content: args.Content, NewRecipients: args.NewRecipients}, nil

	case ToolQuestion:
		var args struct {
			Content string `json:"content"`
		}
		if err := json.Unmarshal(tc.Args, &args); err != nil {
			return Action{}, fmt.Errorf("parse %s args: %w", tc.Name, err)
		}
		return Action{Kind: KindQuestion, Content: args.Content}, nil

	case ToolIgnore:
		return Action{Kind: KindIgnore}, nil
	}
	return Action{}, fmt.Errorf("unknown tool %q", tc.Name)
}
