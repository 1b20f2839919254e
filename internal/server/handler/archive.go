package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// archiveBasePrefix is where the archiver writes journal segments. The
// handler refuses to serve anything outside it.
const archiveBasePrefix = "archive/events/"

// ArchiveReader defines the blob-store methods the archive handler requires.
type ArchiveReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]domain.BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// ArchiveHandler serves the cold-storage event archive over HTTP. Segments
// are JSONL files the archiver uploaded; this endpoint lets operators and
// backfill jobs enumerate and fetch them without S3 credentials.
type ArchiveHandler struct {
	reader ArchiveReader
	logger *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler with the given reader and
// logger.
func NewArchiveHandler(reader ArchiveReader, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		reader: reader,
		logger: logger,
	}
}

// archiveEntry is one archived segment in a listing response.
type archiveEntry struct {
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	LastModified string `json:"last_modified"`
}

// listArchivesResponse wraps the archive listing output.
type listArchivesResponse struct {
	Archives []archiveEntry `json:"archives"`
}

// ListArchives enumerates archived journal segments. The optional prefix
// query narrows the listing to a subtree, e.g. ?prefix=2026/08 for one month.
// GET /api/archives
func (h *ArchiveHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	prefix := archiveBasePrefix
	if v := r.URL.Query().Get("prefix"); v != "" {
		if strings.Contains(v, "..") {
			writeError(w, http.StatusBadRequest, "invalid prefix")
			return
		}
		prefix += strings.TrimPrefix(v, "/")
	}

	infos, err := h.reader.List(r.Context(), prefix)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list archives failed",
			slog.String("prefix", prefix),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list archives")
		return
	}

	entries := make([]archiveEntry, 0, len(infos))
	for _, info := range infos {
		entries = append(entries, archiveEntry{
			Path:         info.Path,
			Size:         info.Size,
			LastModified: info.LastModified.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}

	writeJSON(w, http.StatusOK, listArchivesResponse{Archives: entries})
}

// GetArchive streams a single archived segment as newline-delimited JSON.
// The path parameter is relative to the archive root.
// GET /api/archives/{path...}
func (h *ArchiveHandler) GetArchive(w http.ResponseWriter, r *http.Request) {
	rel := r.PathValue("path")
	if rel == "" || strings.Contains(rel, "..") {
		writeError(w, http.StatusBadRequest, "invalid archive path")
		return
	}
	path := archiveBasePrefix + rel

	ok, err := h.reader.Exists(r.Context(), path)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: archive lookup failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to fetch archive")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	body, err := h.reader.Get(r.Context(), path)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: archive fetch failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.WarnContext(r.Context(), "handler: archive stream interrupted",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
