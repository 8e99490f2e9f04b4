package sink

import (
	"chat-hub/contract"
	"chat-hub/domain/event"
	"context"
	"fmt"
	"log/slog"
)

// ArchiveSink writes every appended event to the archive.
type ArchiveSink struct {
	archive contract.EventArchive
	log     *slog.Logger
}

func NewArchiveSink(archive contract.EventArchive, log *slog.Logger) ArchiveSink {
	return ArchiveSink{archive: archive, log: log}
}

func (a ArchiveSink) Name() string { return "archive" }

func (a ArchiveSink) Consume(ctx context.Context, e event.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := a.archive.Store(e); err != nil {
		return fmt.Errorf("archive event %d: %w", e.Sequence(), err)
	}
	a.log.Debug("Event archived", "sequence", e.Sequence(), "kind", e.Kind())
	return nil
}
