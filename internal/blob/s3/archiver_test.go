package s3blob

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

type capturedObject struct {
	path        string
	contentType string
	body        []byte
}

type memBlobWriter struct {
	objects []capturedObject
}

func (w *memBlobWriter) Put(_ context.Context, path string, data io.Reader, contentType string) error {
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	w.objects = append(w.objects, capturedObject{path: path, contentType: contentType, body: body})
	return nil
}

type memEventStore struct {
	events []domain.Event
}

func (s *memEventStore) Append(_ context.Context, ev domain.Event) (int64, error) {
	ev.Seq = int64(len(s.events) + 1)
	s.events = append(s.events, ev)
	return ev.Seq, nil
}

func (s *memEventStore) ListSince(_ context.Context, seq int64, limit int) ([]domain.Event, error) {
	var out []domain.Event
	for _, ev := range s.events {
		if ev.Seq > seq {
			out = append(out, ev)
			if len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (s *memEventStore) LastSeq(context.Context) (int64, error) {
	return int64(len(s.events)), nil
}

func seedEvents(t *testing.T, store *memEventStore, n int) {
	t.Helper()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		_, err := store.Append(context.Background(), domain.Event{
			Kind:   domain.EventListed,
			At:     at.Add(time.Duration(i) * time.Second),
			ItemID: uint64(i + 1),
		})
		require.NoError(t, err)
	}
}

func TestArchiveEventsUploadsJSONL(t *testing.T) {
	writer := &memBlobWriter{}
	store := &memEventStore{}
	seedEvents(t, store, 3)

	a := NewArchiver(writer, store, slog.Default())
	count, err := a.ArchiveEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	require.Len(t, writer.objects, 1)
	obj := writer.objects[0]
	assert.Equal(t, "application/x-ndjson", obj.contentType)
	assert.Equal(t, "archive/events/2025/06/01/events-000001-000003.jsonl", obj.path)

	var lines int
	sc := bufio.NewScanner(bytes.NewReader(obj.body))
	for sc.Scan() {
		var ev domain.Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		lines++
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, 3, lines)
}

func TestArchiveEventsAdvancesCursor(t *testing.T) {
	writer := &memBlobWriter{}
	store := &memEventStore{}
	seedEvents(t, store, 2)

	a := NewArchiver(writer, store, slog.Default())

	count, err := a.ArchiveEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// Nothing new: no upload.
	count, err = a.ArchiveEvents(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Len(t, writer.objects, 1)

	// Two more entries: only they are uploaded.
	seedEvents(t, store, 2)
	count, err = a.ArchiveEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	require.Len(t, writer.objects, 2)
	assert.True(t, strings.HasSuffix(writer.objects[1].path, "events-000003-000004.jsonl"))
}

type memBlobReader struct {
	infos []domain.BlobInfo
}

func (r *memBlobReader) Get(context.Context, string) (io.ReadCloser, error) {
	return nil, domain.ErrNotFound
}

func (r *memBlobReader) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	var out []domain.BlobInfo
	for _, info := range r.infos {
		if strings.HasPrefix(info.Path, prefix) {
			out = append(out, info)
		}
	}
	return out, nil
}

func (r *memBlobReader) Exists(context.Context, string) (bool, error) {
	return false, nil
}

func TestResumeSkipsUploadedRanges(t *testing.T) {
	writer := &memBlobWriter{}
	store := &memEventStore{}
	seedEvents(t, store, 5)

	reader := &memBlobReader{infos: []domain.BlobInfo{
		{Path: "archive/events/2025/05/31/events-000001-000002.jsonl"},
		{Path: "archive/events/2025/06/01/events-000003-000003.jsonl"},
		{Path: "archive/events/2025/06/01/manifest.txt"},
	}}

	a := NewArchiver(writer, store, slog.Default())
	require.NoError(t, a.Resume(context.Background(), reader))

	count, err := a.ArchiveEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	require.Len(t, writer.objects, 1)
	assert.True(t, strings.HasSuffix(writer.objects[0].path, "events-000004-000005.jsonl"))
}

func TestResumeEmptyBucket(t *testing.T) {
	writer := &memBlobWriter{}
	store := &memEventStore{}
	seedEvents(t, store, 2)

	a := NewArchiver(writer, store, slog.Default())
	require.NoError(t, a.Resume(context.Background(), &memBlobReader{}))

	count, err := a.ArchiveEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestSetCursorSkipsArchivedEntries(t *testing.T) {
	writer := &memBlobWriter{}
	store := &memEventStore{}
	seedEvents(t, store, 5)

	a := NewArchiver(writer, store, slog.Default())
	a.SetCursor(3)

	count, err := a.ArchiveEvents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	require.Len(t, writer.objects, 1)
	assert.True(t, strings.HasSuffix(writer.objects[0].path, "events-000004-000005.jsonl"))
}
