package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/suibid/internal/domain"
)

// archiveBatchLimit caps how many journal rows one archive run exports. A day
// that somehow exceeds it is truncated and logged rather than blowing memory.
const archiveBatchLimit = 100_000

// JournalArchiver exports the durable event journal to object storage as
// daily CSV files, one file per UTC day. The journal rows stay in Postgres;
// the export exists for offline analysis and cold backup.
type JournalArchiver struct {
	journal domain.EventJournal
	writer  domain.BlobWriter
	logger  *slog.Logger
}

// NewJournalArchiver creates a new JournalArchiver.
func NewJournalArchiver(journal domain.EventJournal, writer domain.BlobWriter, logger *slog.Logger) *JournalArchiver {
	return &JournalArchiver{
		journal: journal,
		writer:  writer,
		logger:  logger,
	}
}

// ArchiveDay exports all journal rows whose ledger timestamp falls on the UTC
// day containing the given time. It returns the number of rows exported.
func (a *JournalArchiver) ArchiveDay(ctx context.Context, day time.Time) (int, error) {
	from := day.UTC().Truncate(24 * time.Hour)
	to := from.Add(24 * time.Hour)

	rows, err := a.journal.ListRange(ctx, from, to, archiveBatchLimit)
	if err != nil {
		return 0, fmt.Errorf("pipeline: listing journal rows for %s: %w", from.Format("2006-01-02"), err)
	}
	if len(rows) == 0 {
		a.logger.Info("no journal rows to archive", slog.Time("day", from))
		return 0, nil
	}
	if len(rows) == archiveBatchLimit {
		a.logger.Warn("archive batch limit reached, export truncated", slog.Time("day", from))
	}

	csvData, err := eventsToCSV(rows)
	if err != nil {
		return 0, fmt.Errorf("pipeline: converting journal rows to CSV: %w", err)
	}

	path := fmt.Sprintf("journal/events/%s.csv", from.Format("2006-01-02"))
	if err := a.writer.Put(ctx, path, bytes.NewReader(csvData), "text/csv"); err != nil {
		return 0, fmt.Errorf("pipeline: uploading CSV to %s: %w", path, err)
	}

	a.logger.Info("journal archive complete",
		slog.Int("rows", len(rows)),
		slog.String("s3_path", path),
	)
	return len(rows), nil
}

// RunDaily archives the previous UTC day shortly after each midnight until
// the context is cancelled. A failed run is retried the next day; rows are
// never deleted from the journal, so a miss loses nothing.
func (a *JournalArchiver) RunDaily(ctx context.Context) error {
	for {
		next := nextArchiveTime(time.Now().UTC())
		a.logger.Info("archiver waiting for next run", slog.Time("next_run", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			a.logger.Info("archiver stopped")
			return ctx.Err()
		case <-timer.C:
			if _, err := a.ArchiveDay(ctx, next.Add(-24*time.Hour)); err != nil {
				a.logger.Error("archive run failed", slog.String("error", err.Error()))
			}
		}
	}
}

// nextArchiveTime returns the next 00:05 UTC after the given time. The five
// minute offset leaves room for events timestamped right at the day boundary
// to land in the journal first.
func nextArchiveTime(now time.Time) time.Time {
	day := now.Truncate(24 * time.Hour)
	next := day.Add(5 * time.Minute)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next
}

// eventsToCSV converts journal rows to CSV bytes with a header row. Payloads
// are embedded as raw JSON in the final column.
func eventsToCSV(rows []domain.AppliedEvent) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{
		"timestamp",
		"tx_digest",
		"kind",
		"entity_id",
		"applied_at",
		"payload",
	}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("writing CSV header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.Timestamp.UTC().Format(time.RFC3339Nano),
			row.TxDigest,
			string(row.Kind),
			row.EntityID,
			row.AppliedAt.UTC().Format(time.RFC3339Nano),
			string(row.Payload),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("writing CSV row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing CSV writer: %w", err)
	}

	return buf.Bytes(), nil
}
