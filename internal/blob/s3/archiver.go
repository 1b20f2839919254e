package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// archiveBatchSize is the number of journal entries fetched per store query.
const archiveBatchSize = 500

// Archiver drains the marketplace event journal into cold storage. Each run
// uploads the entries appended since the previous run as one JSONL object
// keyed by day and starting sequence number.
//
// Archived entries are NOT deleted from the journal; the journal is the
// system of record and uploads are a redundant copy for offline analysis.
type Archiver struct {
	writer domain.BlobWriter
	events domain.EventStore
	logger *slog.Logger

	// cursor is the highest sequence number already archived. Starts at
	// zero on boot; Resume and SetCursor reposition it.
	cursor int64
}

// NewArchiver creates an Archiver that uploads journal entries from the
// given store.
func NewArchiver(writer domain.BlobWriter, events domain.EventStore, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer: writer,
		events: events,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// SetCursor positions the archiver after the given sequence number. Entries
// at or below it are skipped on the next run.
func (a *Archiver) SetCursor(seq int64) {
	a.cursor = seq
}

// Resume repositions the cursor from the bucket listing so a restarted
// archiver skips ranges already uploaded. Object names carry the sequence
// range; the cursor becomes the highest last-seq found. Unparseable names
// are ignored.
func (a *Archiver) Resume(ctx context.Context, reader domain.BlobReader) error {
	infos, err := reader.List(ctx, "archive/events/")
	if err != nil {
		return fmt.Errorf("s3blob: resume listing: %w", err)
	}

	var max int64
	for _, info := range infos {
		var first, last int64
		name := path.Base(info.Path)
		if n, err := fmt.Sscanf(name, "events-%d-%d.jsonl", &first, &last); err != nil || n != 2 {
			continue
		}
		if last > max {
			max = last
		}
	}

	a.cursor = max
	a.logger.InfoContext(ctx, "archiver: cursor resumed",
		slog.Int64("last_seq", max),
		slog.Int("objects", len(infos)),
	)
	return nil
}

// ArchiveEvents uploads every journal entry after the cursor and advances
// the cursor past them. It returns the number of entries archived.
func (a *Archiver) ArchiveEvents(ctx context.Context) (int64, error) {
	var batch []domain.Event
	next := a.cursor
	for {
		page, err := a.events.ListSince(ctx, next, archiveBatchSize)
		if err != nil {
			return 0, fmt.Errorf("s3blob: archive events query: %w", err)
		}
		batch = append(batch, page...)
		if len(page) < archiveBatchSize {
			break
		}
		next = page[len(page)-1].Seq
	}
	if len(batch) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(batch)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive events marshal: %w", err)
	}

	first := batch[0].Seq
	last := batch[len(batch)-1].Seq
	path := archivePath(batch[0].At, first, last)

	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive events upload: %w", err)
	}

	a.cursor = last
	a.logger.InfoContext(ctx, "archiver: events uploaded",
		slog.String("path", path),
		slog.Int("count", len(batch)),
		slog.Int64("last_seq", last),
	)
	return int64(len(batch)), nil
}

// Run archives on a fixed interval until the context is cancelled. Errors
// are logged and retried on the next tick.
func (a *Archiver) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Final drain so a clean shutdown leaves nothing behind.
			flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			_, err := a.ArchiveEvents(flushCtx)
			cancel()
			if err != nil {
				a.logger.Error("archiver: final drain failed",
					slog.String("error", err.Error()),
				)
			}
			return ctx.Err()

		case <-ticker.C:
			if _, err := a.ArchiveEvents(ctx); err != nil {
				a.logger.ErrorContext(ctx, "archiver: run failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// archivePath builds the S3 key for an archive object, partitioned by the
// day of the first entry and tagged with the sequence range.
//
//	archive/events/2025/01/15/events-000001-000500.jsonl
func archivePath(at time.Time, first, last int64) string {
	return fmt.Sprintf("archive/events/%s/events-%06d-%06d.jsonl",
		at.UTC().Format("2006/01/02"), first, last)
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
