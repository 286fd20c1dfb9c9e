package worker

import (
	"context"
	"fmt"
	"log/slog"

	"finanzas/internal/amqp"
	"finanzas/internal/storage"
)

// Recorder persists journal entries.
type Recorder interface {
	Record(ctx context.Context, e storage.JournalEntry) (bool, error)
}

// JournalWorker stores every mutation event it receives.
type JournalWorker struct {
	journal Recorder
}

func NewJournalWorker(journal Recorder) *JournalWorker {
	return &JournalWorker{journal: journal}
}

// HandleMutation is the amqp consumer callback. A returned error makes the
// broker redeliver the event.
func (w *JournalWorker) HandleMutation(ctx context.Context, msg *amqp.MutationEvent) error {
	inserted, err := w.journal.Record(ctx, EntryFromEvent(msg))
	if err != nil {
		return fmt.Errorf("record mutation: %w", err)
	}

	if !inserted {
		slog.InfoContext(ctx, "Duplicate mutation event ignored",
			"kind", msg.Kind,
			"operation", msg.Operation,
			"item_id", msg.ItemID)
		return nil
	}

	slog.InfoContext(ctx, "Mutation journaled",
		"kind", msg.Kind,
		"operation", msg.Operation,
		"item_id", msg.ItemID,
		"item_name", msg.ItemName,
		"date_to", msg.DateTo)
	return nil
}

func EntryFromEvent(msg *amqp.MutationEvent) storage.JournalEntry {
	return storage.JournalEntry{
		Kind:       msg.Kind,
		Operation:  msg.Operation,
		ItemID:     msg.ItemID,
		ItemName:   msg.ItemName,
		Month:      msg.Month,
		DateTo:     msg.DateTo,
		OccurredAt: msg.Timestamp,
	}
}
