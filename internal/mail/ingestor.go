package mail

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/andreaswittus/emas/internal/bus"
)

// Source lists messages from a mailbox. Implemented by GraphClient.
type Source interface {
	FetchMessages(ctx context.Context, folderName string, limit int) ([]Email, error)
}

// Store is the slice of persistence the ingestor needs.
type Store interface {
	// UpsertEmail stores the email and reports whether it was newly inserted.
	UpsertEmail(ctx context.Context, e Email) (bool, error)
}

// Publisher announces newly stored emails.
type Publisher interface {
	Publish(subject string, data any) error
}

// Ingestor pulls mailbox messages into the store and emits one
// mail.received event per new email. Re-runs are cheap: upserts keyed by
// message id make the sync idempotent and already-seen mail is never
// republished.
type Ingestor struct {
	source   Source
	store    Store
	pub      Publisher
	folder   string
	pageSize int
	logger   *slog.Logger
}

func NewIngestor(source Source, store Store, pub Publisher, folder string, pageSize int, logger *slog.Logger) *Ingestor {
	if pageSize <= 0 {
		pageSize = 25
	}
	return &Ingestor{
		source:   source,
		store:    store,
		pub:      pub,
		folder:   folder,
		pageSize: pageSize,
		logger:   logger,
	}
}

// SyncResult summarizes one ingest pass.
type SyncResult struct {
	Fetched int `json:"fetched"`
	New     int `json:"new"`
}

// Sync fetches one page of mailbox messages, stores the new ones, and
// publishes a mail.received event for each.
func (in *Ingestor) Sync(ctx context.Context) (*SyncResult, error) {
	emails, err := in.source.FetchMessages(ctx, in.folder, in.pageSize)
	if err != nil {
		return nil, fmt.Errorf("fetch messages: %w", err)
	}

	res := &SyncResult{Fetched: len(emails)}
	for _, e := range emails {
		inserted, err := in.store.UpsertEmail(ctx, e)
		if err != nil {
			return res, fmt.Errorf("store email %s: %w", e.ID, err)
		}
		if !inserted {
			continue
		}
		res.New++

		if err := in.pub.Publish(bus.SubjectMailReceived, bus.MailReceivedEvent{EmailID: e.ID}); err != nil {
			in.logger.Error("failed to publish mail received", "email_id", e.ID, "error", err)
		}
	}

	in.logger.Info("mailbox synced", "fetched", res.Fetched, "new", res.New)
	return res, nil
}
