package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// NATS subjects used by the assistant.
const (
	// SubjectMailReceived is published by the ingestor for each newly stored email.
	SubjectMailReceived = "emas.mail.received"
	// SubjectReviewResolved is published when a human verdict lands on a review ticket.
	SubjectReviewResolved = "emas.review.resolved"
	// SubjectRedraftRequested carries feedback to the out-of-process reflection job.
	SubjectRedraftRequested = "emas.reflection.redraft"
	// SubjectRegistered announces the service on startup.
	SubjectRegistered = "emas.agent.registered"
)

// MailReceivedEvent is the payload for SubjectMailReceived.
type MailReceivedEvent struct {
	EmailID string `json:"email_id"`
}

// ReviewResolvedEvent is the payload for SubjectReviewResolved.
type ReviewResolvedEvent struct {
	ReviewID string `json:"review_id"`
}

// RedraftTask is the payload for SubjectRedraftRequested. PromptScopes names
// which prompt sections the reflection job may revise ("tone", "email",
// "background").
type RedraftTask struct {
	AssistantID  string          `json:"assistant_id"`
	EmailID      string          `json:"email_id"`
	Messages     json.RawMessage `json:"messages"`
	Feedback     string          `json:"feedback"`
	PromptScopes []string        `json:"prompt_scopes"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
