// Package drafter produces exactly one structured action per inbound email
// by invoking the language model with a bounded retry loop.
package drafter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/andreaswittus/emas/internal/llm"
	"github.com/andreaswittus/emas/internal/topics"
)

// ErrGenerationFailed is returned when the model never converges on exactly
// one valid action within the retry budget.
var ErrGenerationFailed = errors.New("generation failed: no single valid action")

// maxAttempts bounds the corrective retry loop.
const maxAttempts = 5

// Completer abstracts the LLM backend. Implemented by llm.Client.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Completion, error)
}

// PreferenceStore is the namespace-scoped key-value store for assistant
// preference blobs.
type PreferenceStore interface {
	GetPreference(ctx context.Context, namespace, kind string) (string, bool, error)
	PutPreference(ctx context.Context, namespace, kind, content string) error
}

// Identity is the explicit assistant configuration passed into each call.
type Identity struct {
	AssistantID string
	Name        string
	FullName    string
}

type Drafter struct {
	llm    Completer
	prefs  PreferenceStore
	id     Identity
	logger *slog.Logger
}

func New(llm Completer, prefs PreferenceStore, id Identity, logger *slog.Logger) *Drafter {
	return &Drafter{llm: llm, prefs: prefs, id: id, logger: logger}
}

// Generate produces the single next action for the conversation. It appends
// the model's tool-call message to state.Messages and sets state.Pending.
//
// The Ignore tool is only offered once prior messages exist: an empty thread
// has nothing to dismiss yet.
func (d *Drafter) Generate(ctx context.Context, state *State) (Action, error) {
	if state.Pending != nil {
		return Action{}, fmt.Errorf("pending action unresolved for email %s", state.Email.ID)
	}

	background, err := d.loadPreference(ctx, PrefBackground, defaultBackground)
	if err != nil {
		return Action{}, fmt.Errorf("load background preference: %w", err)
	}
	style, err := d.loadPreference(ctx, PrefStyle, defaultStyle)
	if err != nil {
		return Action{}, fmt.Errorf("load style preference: %w", err)
	}

	system := d.buildSystem(background, style, state.Topic)

	tools := []llm.Tool{
		{Name: ToolNewEmailDraft, Description: "Start a new email thread.", Parameters: toolNewEmailDraft},
		{Name: ToolResponseEmailDraft, Description: "Draft a reply on the current thread.", Parameters: toolResponseEmailDraft},
		{Name: ToolQuestion, Description: "Ask the user a clarifying question.", Parameters: toolQuestion},
	}
	if len(state.Messages) > 0 {
		tools = append(tools, llm.Tool{Name: ToolIgnore, Description: "Dismiss this email.", Parameters: toolIgnore})
	}

	emailText := fmt.Sprintf(emailTemplate, state.Email.From, state.Email.To, state.Email.Subject, state.Email.Body)
	messages := append([]llm.Message{
		{Role: "user", Content: fmt.Sprintf(draftPrompt, system, emailText)},
	}, state.Messages...)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		resp, err := d.llm.Complete(ctx, llm.Request{
			Messages:    messages,
			Tools:       tools,
			RequireTool: true,
			MaxTokens:   1024,
		})
		if err != nil {
			return Action{}, fmt.Errorf("llm draft: %w", err)
		}

		if len(resp.ToolCalls) != 1 {
			d.logger.Warn("model did not return a single tool call",
				"email_id", state.Email.ID,
				"attempt", attempt,
				"tool_calls", len(resp.ToolCalls),
			)
			messages = append(messages, llm.Message{Role: "user", Content: retryNudge})
			continue
		}

		action, err := parseAction(resp.ToolCalls[0])
		if err != nil {
			d.logger.Warn("malformed tool call",
				"email_id", state.Email.ID,
				"attempt", attempt,
				"error", err,
			)
			messages = append(messages, llm.Message{Role: "user", Content: retryNudge})
			continue
		}

		state.Messages = append(state.Messages, llm.Message{
			Role:      "assistant",
			ToolCalls: []llm.ToolCall{resp.ToolCalls[0]},
		})
		if action.Kind != KindIgnore {
			state.Pending = &action
		}

		d.logger.Info("action generated",
			"email_id", state.Email.ID,
			"kind", string(action.Kind),
			"attempt", attempt,
		)
		return action, nil
	}

	return Action{}, fmt.Errorf("%w after %d attempts for email %s", ErrGenerationFailed, maxAttempts, state.Email.ID)
}

// loadPreference reads the blob for the assistant namespace, seeding the
// default on first miss. Seed races are benign: the value written is constant,
// last writer wins.
func (d *Drafter) loadPreference(ctx context.Context, kind, fallback string) (string, error) {
	content, ok, err := d.prefs.GetPreference(ctx, d.id.AssistantID, kind)
	if err != nil {
		return "", err
	}
	if ok {
		return content, nil
	}
	if err := d.prefs.PutPreference(ctx, d.id.AssistantID, kind, fallback); err != nil {
		return "", err
	}
	return fallback, nil
}

func (d *Drafter) buildSystem(background, style, topic string) string {
	name, full := d.id.Name, d.id.FullName

	system := fmt.Sprintf(writingInstructions,
		full, name, name, name, name, name, name, name, name, name, name,
		style, background,
	)
	if g := topics.Guidelines(topic); g != "" {
		system = system + "\n\n" + fmt.Sprintf(departmentSection, g)
	}
	return strings.TrimSpace(system)
}
