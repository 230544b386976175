package topics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Generator is the slice of the LLM client the classifier needs.
type Generator interface {
	GenerateText(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

// Classifier assigns one taxonomy label to raw email text. It never fails:
// malformed model output, unknown labels, and LLM errors all fall back to
// "other".
type Classifier struct {
	llm    Generator
	logger *slog.Logger
}

func NewClassifier(llm Generator, logger *slog.Logger) *Classifier {
	return &Classifier{llm: llm, logger: logger}
}

const classifyPrompt = `You are a classification assistant. Read the email or request below
and assign it exactly one topic from the following list.

TOPICS:
%s

Respond ONLY with a JSON object like:
{ "topic": "<label>", "confidence": 0.00 }
Do not include any additional text, explanation, or formatting.

EMAIL / NOTES:
%s`

type classifyResponse struct {
	Topic      string  `json:"topic"`
	Confidence float64 `json:"confidence"`
}

// Classify returns the best taxonomy label for the text.
func (c *Classifier) Classify(ctx context.Context, text string) string {
	raw, err := c.llm.GenerateText(ctx, fmt.Sprintf(classifyPrompt, taxonomyJSON(), text), 0.0, 60)
	if err != nil {
		c.logger.Warn("topic classification failed", "error", err)
		return TopicOther
	}

	var resp classifyResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &resp); err != nil {
		c.logger.Warn("unparseable topic response", "raw", raw)
		return TopicOther
	}
	if !Valid(resp.Topic) {
		return TopicOther
	}
	return resp.Topic
}

func taxonomyJSON() string {
	labels := make([]string, 0, len(Taxonomy))
	for label := range Taxonomy {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var sb strings.Builder
	sb.WriteString("{\n")
	for i, label := range labels {
		desc, _ := json.Marshal(Taxonomy[label])
		fmt.Fprintf(&sb, "  %q: %s", label, desc)
		if i < len(labels)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}")
	return sb.String()
}
