package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// AuctionService defines the methods that the auction handler requires from
// the service layer.
type AuctionService interface {
	CreateAuction(ctx context.Context, caller common.Address, assetRef common.Address, assetID, startingBid *big.Int, duration time.Duration) (domain.Auction, error)
	PlaceBid(ctx context.Context, caller common.Address, value *big.Int, auctionID uint64) (domain.Auction, error)
	ConcludeAuction(ctx context.Context, caller common.Address, auctionID uint64) (domain.Auction, error)
	CancelAuction(ctx context.Context, caller common.Address, auctionID uint64) (domain.Auction, error)
	GetAuction(ctx context.Context, id uint64) (domain.Auction, error)
	ListAuctions(ctx context.Context, opts domain.ListOpts) ([]domain.Auction, error)
}

// AuctionHandler serves auction endpoints.
type AuctionHandler struct {
	auctions AuctionService
	logger   *slog.Logger
}

// NewAuctionHandler creates an AuctionHandler with the given service and logger.
func NewAuctionHandler(auctions AuctionService, logger *slog.Logger) *AuctionHandler {
	return &AuctionHandler{
		auctions: auctions,
		logger:   logger,
	}
}

// listAuctionsResponse wraps the list endpoint output with pagination metadata.
type listAuctionsResponse struct {
	Auctions []domain.Auction `json:"auctions"`
	Limit    int              `json:"limit"`
	Offset   int              `json:"offset"`
}

// ListAuctions returns auction records with pagination.
// GET /api/auctions?limit=50&offset=0
func (h *AuctionHandler) ListAuctions(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	auctions, err := h.auctions.ListAuctions(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list auctions failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list auctions")
		return
	}

	if auctions == nil {
		auctions = []domain.Auction{}
	}

	writeJSON(w, http.StatusOK, listAuctionsResponse{
		Auctions: auctions,
		Limit:    opts.Limit,
		Offset:   opts.Offset,
	})
}

// GetAuction returns a single auction by its ID.
// GET /api/auctions/{id}
func (h *AuctionHandler) GetAuction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	a, err := h.auctions.GetAuction(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "auction not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get auction failed",
			slog.Uint64("auction_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get auction")
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// createAuctionRequest is the JSON body for opening an auction.
type createAuctionRequest struct {
	Caller          string `json:"caller"`
	AssetRef        string `json:"asset_ref"`
	AssetID         string `json:"asset_id"`
	StartingBid     string `json:"starting_bid"`
	DurationSeconds int64  `json:"duration_seconds"`
}

// CreateAuction escrows an asset and opens a time-boxed ascending auction.
// POST /api/auctions
func (h *AuctionHandler) CreateAuction(w http.ResponseWriter, r *http.Request) {
	var req createAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}
	assetRef, err := parseAddress(req.AssetRef)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset_ref address")
		return
	}
	assetID, err := parseAmount(req.AssetID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid asset_id")
		return
	}
	startingBid, err := parseAmount(req.StartingBid)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid starting_bid")
		return
	}
	if req.DurationSeconds <= 0 {
		writeError(w, http.StatusBadRequest, "duration_seconds must be positive")
		return
	}

	a, err := h.auctions.CreateAuction(r.Context(), caller, assetRef, assetID, startingBid,
		time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: create auction failed",
			slog.String("caller", caller.Hex()),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, a)
}

// bidRequest is the JSON body for placing a bid. Value is the full bid
// amount, which must strictly exceed the current highest bid.
type bidRequest struct {
	Caller string `json:"caller"`
	Value  string `json:"value"`
}

// PlaceBid submits a bid on an active auction.
// POST /api/auctions/{id}/bids
func (h *AuctionHandler) PlaceBid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req bidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}
	value, err := parseAmount(req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid value")
		return
	}

	a, err := h.auctions.PlaceBid(r.Context(), caller, value, id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: place bid failed",
			slog.Uint64("auction_id", id),
			slog.String("caller", caller.Hex()),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// concludeRequest is the JSON body for concluding an auction.
type concludeRequest struct {
	Caller string `json:"caller"`
}

// ConcludeAuction settles an ended auction: the highest bidder takes the
// asset, or the owner takes it back when no bids arrived.
// POST /api/auctions/{id}/conclude
func (h *AuctionHandler) ConcludeAuction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req concludeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	a, err := h.auctions.ConcludeAuction(r.Context(), caller, id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: conclude auction failed",
			slog.Uint64("auction_id", id),
			slog.String("caller", caller.Hex()),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// CancelAuction withdraws a bidless auction before its end time.
// DELETE /api/auctions/{id}?caller=0x...
func (h *AuctionHandler) CancelAuction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	caller, err := parseAddress(r.URL.Query().Get("caller"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	a, err := h.auctions.CancelAuction(r.Context(), caller, id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: cancel auction failed",
			slog.Uint64("auction_id", id),
			slog.String("caller", caller.Hex()),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}
