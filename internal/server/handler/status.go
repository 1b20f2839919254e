package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// StatusService defines the methods that the status handler requires from
// the service layer.
type StatusService interface {
	Counts(ctx context.Context) (items, auctions int64, err error)
	LastEventSeq(ctx context.Context) (int64, error)
	FeePolicy(ctx context.Context) domain.FeePolicy
}

// StatusHandler serves a marketplace status snapshot for dashboards.
type StatusHandler struct {
	status    StatusService
	startedAt time.Time
	logger    *slog.Logger
}

// NewStatusHandler creates a StatusHandler with the given service and logger.
func NewStatusHandler(status StatusService, startedAt time.Time, logger *slog.Logger) *StatusHandler {
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}
	return &StatusHandler{
		status:    status,
		startedAt: startedAt,
		logger:    logger,
	}
}

// statusResponse is the JSON shape of the status snapshot.
type statusResponse struct {
	Items         int64  `json:"items"`
	Auctions      int64  `json:"auctions"`
	LastEventSeq  int64  `json:"last_event_seq"`
	FeeRateBps    uint64 `json:"fee_rate_bps"`
	Beneficiary   string `json:"beneficiary"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// GetStatus returns record totals, the fee policy, and process uptime.
// GET /api/status
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	items, auctions, err := h.status.Counts(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: status counts failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read status")
		return
	}

	lastSeq, err := h.status.LastEventSeq(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: status journal tail failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read status")
		return
	}

	policy := h.status.FeePolicy(r.Context())

	uptime := int64(time.Since(h.startedAt).Seconds())
	if uptime < 0 {
		uptime = 0
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Items:         items,
		Auctions:      auctions,
		LastEventSeq:  lastSeq,
		FeeRateBps:    policy.RateBps,
		Beneficiary:   policy.Beneficiary.Hex(),
		UptimeSeconds: uptime,
	})
}
