package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/nftmarket/internal/domain"
)

// ItemService defines the methods that the item handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type ItemService interface {
	ListItem(ctx context.Context, caller common.Address, assetRef common.Address, assetID, price *big.Int) (domain.Item, error)
	BuyItem(ctx context.Context, caller common.Address, value *big.Int, itemID uint64) (domain.Item, error)
	CancelListing(ctx context.Context, caller common.Address, itemID uint64) (domain.Item, error)
	GetItem(ctx context.Context, id uint64) (domain.Item, error)
	ListItems(ctx context.Context, opts domain.ListOpts) ([]domain.Item, error)
	ListItemsByOwner(ctx context.Context, owner common.Address, opts domain.ListOpts) ([]domain.Item, error)
	VerifyCustody(ctx context.Context, itemID uint64) (domain.CustodyReport, error)
}

// ItemHandler serves fixed-price listing endpoints.
type ItemHandler struct {
	items  ItemService
	logger *slog.Logger
}

// NewItemHandler creates an ItemHandler with the given service and logger.
func NewItemHandler(items ItemService, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{
		items:  items,
		logger: logger,
	}
}

// listItemsResponse wraps the list endpoint output with pagination metadata.
type listItemsResponse struct {
	Items  []domain.Item `json:"items"`
	Limit  int           `json:"limit"`
	Offset int           `json:"offset"`
}

// ListItems returns item records with pagination, optionally filtered by
// owner address.
// GET /api/items?owner=0x...&limit=50&offset=0
func (h *ItemHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	var items []domain.Item
	var err error

	if raw := r.URL.Query().Get("owner"); raw != "" {
		owner, perr := parseAddress(raw)
		if perr != nil {
			writeError(w, http.StatusBadRequest, "invalid owner address")
			return
		}
		items, err = h.items.ListItemsByOwner(r.Context(), owner, opts)
	} else {
		items, err = h.items.ListItems(r.Context(), opts)
	}

	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list items failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	if items == nil {
		items = []domain.Item{}
	}

	writeJSON(w, http.StatusOK, listItemsResponse{
		Items:  items,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// GetItem returns a single item by its ID.
// GET /api/items/{id}
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.items.GetItem(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get item failed",
			slog.Uint64("item_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get item")
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// custodyResponse is the JSON shape of a custody audit.
type custodyResponse struct {
	ItemID   uint64 `json:"item_id"`
	AssetRef string `json:"asset_ref"`
	AssetID  string `json:"asset_id"`
	Holder   string `json:"holder"`
	Held     bool   `json:"held"`
}

// GetCustody audits an escrowed item against the asset registry and reports
// whether the custodian actually holds it.
// GET /api/items/{id}/custody
func (h *ItemHandler) GetCustody(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.items.VerifyCustody(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: custody audit failed",
			slog.Uint64("item_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, custodyResponse{
		ItemID:   report.ItemID,
		AssetRef: report.AssetRef.Hex(),
		AssetID:  report.AssetID.String(),
		Holder:   report.Holder.Hex(),
		Held:     report.Held,
	})
}

// createListingRequest is the JSON body for listing an asset.
type createListingRequest struct {
	Caller   string `json:"caller"`
	AssetRef string `json:"asset_ref"`
	AssetID  string `json:"asset_id"`
	Price    string `json:"price"`
}

// CreateListing escrows an asset and opens a fixed-price listing.
// POST /api/items
func (h *ItemHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req createListingRequest
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
	price, err := parseAmount(req.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid price")
		return
	}

	item, err := h.items.ListItem(r.Context(), caller, assetRef, assetID, price)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: create listing failed",
			slog.String("caller", caller.Hex()),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

// buyRequest is the JSON body for purchasing an item. Value must equal the
// listed price exactly.
type buyRequest struct {
	Caller string `json:"caller"`
	Value  string `json:"value"`
}

// BuyItem settles a fixed-price purchase.
// POST /api/items/{id}/buy
func (h *ItemHandler) BuyItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req buyRequest
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

	item, err := h.items.BuyItem(r.Context(), caller, value, id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: buy item failed",
			slog.Uint64("item_id", id),
			slog.String("caller", caller.Hex()),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

// CancelListing delists an unsold item and returns the asset to its owner.
// The caller address comes from the query string since DELETE bodies are not
// universally supported.
// DELETE /api/items/{id}?caller=0x...
func (h *ItemHandler) CancelListing(w http.ResponseWriter, r *http.Request) {
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

	item, err := h.items.CancelListing(r.Context(), caller, id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: cancel listing failed",
			slog.Uint64("item_id", id),
			slog.String("caller", caller.Hex()),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}
