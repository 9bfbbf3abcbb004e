package pipeline

import (
	"context"
	"encoding/csv"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/suibid/internal/domain"
)

type fakeBlobWriter struct {
	path        string
	contentType string
	data        []byte
}

func (w *fakeBlobWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	buf, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.path = path
	w.contentType = contentType
	w.data = buf
	return nil
}

func TestArchiveDayExportsCSV(t *testing.T) {
	journal := &fakeJournal{seen: map[string]bool{}}
	day := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	_, err := journal.MarkApplied(context.Background(), domain.AppliedEvent{
		TxDigest:  "tx1:0",
		Kind:      domain.EventBidPlaced,
		EntityID:  "0xa1",
		Payload:   []byte(`{"bidder":"0xalice"}`),
		Timestamp: day.Add(10 * time.Hour),
	})
	require.NoError(t, err)
	// Next day's row must not be exported.
	_, err = journal.MarkApplied(context.Background(), domain.AppliedEvent{
		TxDigest:  "tx2:0",
		Kind:      domain.EventAuctionEnded,
		EntityID:  "0xa1",
		Payload:   []byte(`{}`),
		Timestamp: day.Add(25 * time.Hour),
	})
	require.NoError(t, err)

	writer := &fakeBlobWriter{}
	archiver := NewJournalArchiver(journal, writer, testLogger())

	n, err := archiver.ArchiveDay(context.Background(), day.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	assert.Equal(t, "journal/events/2025-06-01.csv", writer.path)
	assert.Equal(t, "text/csv", writer.contentType)

	records, err := csv.NewReader(strings.NewReader(string(writer.data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"timestamp", "tx_digest", "kind", "entity_id", "applied_at", "payload"}, records[0])
	assert.Equal(t, "tx1:0", records[1][1])
	assert.Equal(t, string(domain.EventBidPlaced), records[1][2])
	assert.Equal(t, `{"bidder":"0xalice"}`, records[1][5])
}

func TestArchiveDayEmptyDaySkipsUpload(t *testing.T) {
	journal := &fakeJournal{seen: map[string]bool{}}
	writer := &fakeBlobWriter{}
	archiver := NewJournalArchiver(journal, writer, testLogger())

	n, err := archiver.ArchiveDay(context.Background(), testNow)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, writer.path)
}

func TestNextArchiveTime(t *testing.T) {
	midnight := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// Before the offset on the same day.
	assert.Equal(t, midnight.Add(5*time.Minute), nextArchiveTime(midnight.Add(time.Minute)))
	// After the offset rolls to the next day.
	assert.Equal(t, midnight.Add(24*time.Hour+5*time.Minute), nextArchiveTime(midnight.Add(time.Hour)))
	// Exactly at the offset rolls forward too.
	assert.Equal(t, midnight.Add(24*time.Hour+5*time.Minute), nextArchiveTime(midnight.Add(5*time.Minute)))
}
