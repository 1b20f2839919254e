package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// FeeService defines the methods that the fee handler requires from the
// service layer.
type FeeService interface {
	FeePolicy(ctx context.Context) domain.FeePolicy
	SetFee(ctx context.Context, caller common.Address, newBps uint64) error
}

// FeeHandler serves fee policy endpoints.
type FeeHandler struct {
	fees   FeeService
	logger *slog.Logger
}

// NewFeeHandler creates a FeeHandler with the given service and logger.
func NewFeeHandler(fees FeeService, logger *slog.Logger) *FeeHandler {
	return &FeeHandler{
		fees:   fees,
		logger: logger,
	}
}

// feePolicyResponse is the JSON shape of the fee policy.
type feePolicyResponse struct {
	RateBps     uint64 `json:"rate_bps"`
	Beneficiary string `json:"beneficiary"`
}

// GetFeePolicy returns the current fee rate and beneficiary.
// GET /api/fees
func (h *FeeHandler) GetFeePolicy(w http.ResponseWriter, r *http.Request) {
	policy := h.fees.FeePolicy(r.Context())
	writeJSON(w, http.StatusOK, feePolicyResponse{
		RateBps:     policy.RateBps,
		Beneficiary: policy.Beneficiary.Hex(),
	})
}

// updateFeeRequest is the JSON body for changing the fee rate. Only the
// current beneficiary is authorized.
type updateFeeRequest struct {
	Caller  string `json:"caller"`
	RateBps uint64 `json:"rate_bps"`
}

// UpdateFee changes the platform fee rate.
// PUT /api/fees
func (h *FeeHandler) UpdateFee(w http.ResponseWriter, r *http.Request) {
	var req updateFeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	if err := h.fees.SetFee(r.Context(), caller, req.RateBps); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: update fee failed",
			slog.String("caller", caller.Hex()),
			slog.Uint64("rate_bps", req.RateBps),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	policy := h.fees.FeePolicy(r.Context())
	writeJSON(w, http.StatusOK, feePolicyResponse{
		RateBps:     policy.RateBps,
		Beneficiary: policy.Beneficiary.Hex(),
	})
}
