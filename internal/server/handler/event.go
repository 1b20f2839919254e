package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// EventService defines the methods that the event handler requires from the
// service layer.
type EventService interface {
	Events(ctx context.Context, sinceSeq int64, limit int) ([]domain.Event, error)
}

// EventHandler serves the notification feed over HTTP. Live consumers use
// the WebSocket endpoint; this endpoint exists for catch-up reads.
type EventHandler struct {
	events EventService
	logger *slog.Logger
}

// NewEventHandler creates an EventHandler with the given service and logger.
func NewEventHandler(events EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		events: events,
		logger: logger,
	}
}

// listEventsResponse wraps the feed output. NextSeq is the cursor for the
// following page: pass it back as ?since= to continue.
type listEventsResponse struct {
	Events  []domain.Event `json:"events"`
	NextSeq int64          `json:"next_seq"`
}

// ListEvents returns journal entries after a sequence cursor.
// GET /api/events?since=0&limit=50
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var since int64
	if v := q.Get("since"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid since cursor")
			return
		}
		since = n
	}

	opts := parseListOpts(r)

	events, err := h.events.Events(r.Context(), since, opts.Limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list events failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	next := since
	if len(events) > 0 {
		next = events[len(events)-1].Seq
	}
	if events == nil {
		events = []domain.Event{}
	}

	writeJSON(w, http.StatusOK, listEventsResponse{
		Events:  events,
		NextSeq: next,
	})
}
