package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/nftmarket/internal/domain"
	"github.com/alanyoungcy/nftmarket/internal/server/handler"
)

var (
	testSeller   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testBuyer    = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testContract = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubItemService implements handler.ItemService with per-method overrides.
type stubItemService struct {
	listItem      func(ctx context.Context, caller, assetRef common.Address, assetID, price *big.Int) (domain.Item, error)
	buyItem       func(ctx context.Context, caller common.Address, value *big.Int, itemID uint64) (domain.Item, error)
	cancelListing func(ctx context.Context, caller common.Address, itemID uint64) (domain.Item, error)
	getItem       func(ctx context.Context, id uint64) (domain.Item, error)
	listItems     func(ctx context.Context, opts domain.ListOpts) ([]domain.Item, error)
	listByOwner   func(ctx context.Context, owner common.Address, opts domain.ListOpts) ([]domain.Item, error)
	verifyCustody func(ctx context.Context, itemID uint64) (domain.CustodyReport, error)
}

func (s *stubItemService) ListItem(ctx context.Context, caller, assetRef common.Address, assetID, price *big.Int) (domain.Item, error) {
	return s.listItem(ctx, caller, assetRef, assetID, price)
}

func (s *stubItemService) BuyItem(ctx context.Context, caller common.Address, value *big.Int, itemID uint64) (domain.Item, error) {
	return s.buyItem(ctx, caller, value, itemID)
}

func (s *stubItemService) CancelListing(ctx context.Context, caller common.Address, itemID uint64) (domain.Item, error) {
	return s.cancelListing(ctx, caller, itemID)
}

func (s *stubItemService) GetItem(ctx context.Context, id uint64) (domain.Item, error) {
	return s.getItem(ctx, id)
}

func (s *stubItemService) ListItems(ctx context.Context, opts domain.ListOpts) ([]domain.Item, error) {
	return s.listItems(ctx, opts)
}

func (s *stubItemService) ListItemsByOwner(ctx context.Context, owner common.Address, opts domain.ListOpts) ([]domain.Item, error) {
	return s.listByOwner(ctx, owner, opts)
}

func (s *stubItemService) VerifyCustody(ctx context.Context, itemID uint64) (domain.CustodyReport, error) {
	return s.verifyCustody(ctx, itemID)
}

func testItem(id uint64) domain.Item {
	return domain.Item{
		ID:        id,
		AssetRef:  testContract,
		AssetID:   big.NewInt(7),
		Owner:     testSeller,
		Price:     big.NewInt(1000),
		CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

// itemMux registers the item routes the way the server does, so path
// parameters resolve in tests.
func itemMux(h *handler.ItemHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/items", h.ListItems)
	mux.HandleFunc("POST /api/items", h.CreateListing)
	mux.HandleFunc("GET /api/items/{id}", h.GetItem)
	mux.HandleFunc("POST /api/items/{id}/buy", h.BuyItem)
	mux.HandleFunc("GET /api/items/{id}/custody", h.GetCustody)
	mux.HandleFunc("DELETE /api/items/{id}", h.CancelListing)
	return mux
}

func TestListItems(t *testing.T) {
	svc := &stubItemService{
		listItems: func(_ context.Context, opts domain.ListOpts) ([]domain.Item, error) {
			assert.Equal(t, 50, opts.Limit)
			return []domain.Item{testItem(1), testItem(2)}, nil
		},
	}
	mux := itemMux(handler.NewItemHandler(svc, testLogger()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Items  []domain.Item `json:"items"`
		Limit  int           `json:"limit"`
		Offset int           `json:"offset"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, 50, resp.Limit)
}

func TestListItemsOwnerFilter(t *testing.T) {
	var gotOwner common.Address
	svc := &stubItemService{
		listByOwner: func(_ context.Context, owner common.Address, _ domain.ListOpts) ([]domain.Item, error) {
			gotOwner = owner
			return []domain.Item{testItem(1)}, nil
		},
	}
	mux := itemMux(handler.NewItemHandler(svc, testLogger()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items?owner="+testSeller.Hex(), nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, testSeller, gotOwner)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items?owner=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetItemNotFound(t *testing.T) {
	svc := &stubItemService{
		getItem: func(_ context.Context, id uint64) (domain.Item, error) {
			return domain.Item{}, domain.ErrNotFound
		},
	}
	mux := itemMux(handler.NewItemHandler(svc, testLogger()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/42", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateListing(t *testing.T) {
	svc := &stubItemService{
		listItem: func(_ context.Context, caller, assetRef common.Address, assetID, price *big.Int) (domain.Item, error) {
			assert.Equal(t, testSeller, caller)
			assert.Equal(t, testContract, assetRef)
			assert.Zero(t, price.Cmp(big.NewInt(1000)))
			return testItem(1), nil
		},
	}
	mux := itemMux(handler.NewItemHandler(svc, testLogger()))

	body := `{"caller":"` + testSeller.Hex() + `","asset_ref":"` + testContract.Hex() + `","asset_id":"7","price":"1000"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	var item domain.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.Equal(t, uint64(1), item.ID)
}

func TestCreateListingRejectsBadAmounts(t *testing.T) {
	mux := itemMux(handler.NewItemHandler(&stubItemService{}, testLogger()))

	for _, body := range []string{
		`{"caller":"nope","asset_ref":"` + testContract.Hex() + `","asset_id":"7","price":"1000"}`,
		`{"caller":"` + testSeller.Hex() + `","asset_ref":"` + testContract.Hex() + `","asset_id":"7","price":"-5"}`,
		`{"caller":"` + testSeller.Hex() + `","asset_ref":"` + testContract.Hex() + `","asset_id":"7","price":"1.5"}`,
	} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/items", strings.NewReader(body)))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestBuyItemDomainErrors(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrInvalidValue, http.StatusBadRequest},
		{domain.ErrAlreadySold, http.StatusConflict},
		{domain.ErrNotFound, http.StatusNotFound},
		{domain.ErrRateLimited, http.StatusTooManyRequests},
		{domain.ErrPayoutFailed, http.StatusBadGateway},
	}
	for _, tc := range cases {
		svc := &stubItemService{
			buyItem: func(_ context.Context, _ common.Address, _ *big.Int, _ uint64) (domain.Item, error) {
				return domain.Item{}, tc.err
			},
		}
		mux := itemMux(handler.NewItemHandler(svc, testLogger()))

		body := `{"caller":"` + testBuyer.Hex() + `","value":"1000"}`
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/items/1/buy", strings.NewReader(body)))
		assert.Equal(t, tc.code, rec.Code, tc.err.Error())
	}
}

func TestCancelListingRequiresOwner(t *testing.T) {
	svc := &stubItemService{
		cancelListing: func(_ context.Context, caller common.Address, _ uint64) (domain.Item, error) {
			if caller != testSeller {
				return domain.Item{}, domain.ErrNotItemOwner
			}
			it := testItem(1)
			it.Sold = true
			return it, nil
		},
	}
	mux := itemMux(handler.NewItemHandler(svc, testLogger()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/items/1?caller="+testBuyer.Hex(), nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/items/1?caller="+testSeller.Hex(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var item domain.Item
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.True(t, item.Sold)
}

func TestGetCustody(t *testing.T) {
	custodian := common.HexToAddress("0x4444444444444444444444444444444444444444")
	svc := &stubItemService{
		verifyCustody: func(_ context.Context, itemID uint64) (domain.CustodyReport, error) {
			return domain.CustodyReport{
				ItemID:   itemID,
				AssetRef: testContract,
				AssetID:  big.NewInt(7),
				Holder:   custodian,
				Held:     true,
			}, nil
		},
	}
	mux := itemMux(handler.NewItemHandler(svc, testLogger()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/1/custody", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		ItemID  uint64 `json:"item_id"`
		AssetID string `json:"asset_id"`
		Holder  string `json:"holder"`
		Held    bool   `json:"held"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(1), resp.ItemID)
	assert.Equal(t, "7", resp.AssetID)
	assert.Equal(t, custodian.Hex(), resp.Holder)
	assert.True(t, resp.Held)
}

func TestGetCustodySoldItem(t *testing.T) {
	svc := &stubItemService{
		verifyCustody: func(_ context.Context, _ uint64) (domain.CustodyReport, error) {
			return domain.CustodyReport{}, domain.ErrAlreadySold
		},
	}
	mux := itemMux(handler.NewItemHandler(svc, testLogger()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/items/1/custody", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// stubAuctionService implements handler.AuctionService.
type stubAuctionService struct {
	create   func(ctx context.Context, caller, assetRef common.Address, assetID, startingBid *big.Int, duration time.Duration) (domain.Auction, error)
	bid      func(ctx context.Context, caller common.Address, value *big.Int, auctionID uint64) (domain.Auction, error)
	conclude func(ctx context.Context, caller common.Address, auctionID uint64) (domain.Auction, error)
	cancel   func(ctx context.Context, caller common.Address, auctionID uint64) (domain.Auction, error)
	get      func(ctx context.Context, id uint64) (domain.Auction, error)
	list     func(ctx context.Context, opts domain.ListOpts) ([]domain.Auction, error)
}

func (s *stubAuctionService) CreateAuction(ctx context.Context, caller, assetRef common.Address, assetID, startingBid *big.Int, duration time.Duration) (domain.Auction, error) {
	return s.create(ctx, caller, assetRef, assetID, startingBid, duration)
}

func (s *stubAuctionService) PlaceBid(ctx context.Context, caller common.Address, value *big.Int, auctionID uint64) (domain.Auction, error) {
	return s.bid(ctx, caller, value, auctionID)
}

func (s *stubAuctionService) ConcludeAuction(ctx context.Context, caller common.Address, auctionID uint64) (domain.Auction, error) {
	return s.conclude(ctx, caller, auctionID)
}

func (s *stubAuctionService) CancelAuction(ctx context.Context, caller common.Address, auctionID uint64) (domain.Auction, error) {
	return s.cancel(ctx, caller, auctionID)
}

func (s *stubAuctionService) GetAuction(ctx context.Context, id uint64) (domain.Auction, error) {
	return s.get(ctx, id)
}

func (s *stubAuctionService) ListAuctions(ctx context.Context, opts domain.ListOpts) ([]domain.Auction, error) {
	return s.list(ctx, opts)
}

func auctionMux(h *handler.AuctionHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/auctions", h.ListAuctions)
	mux.HandleFunc("POST /api/auctions", h.CreateAuction)
	mux.HandleFunc("GET /api/auctions/{id}", h.GetAuction)
	mux.HandleFunc("POST /api/auctions/{id}/bids", h.PlaceBid)
	mux.HandleFunc("POST /api/auctions/{id}/conclude", h.ConcludeAuction)
	mux.HandleFunc("DELETE /api/auctions/{id}", h.CancelAuction)
	return mux
}

func TestCreateAuction(t *testing.T) {
	var gotDuration time.Duration
	svc := &stubAuctionService{
		create: func(_ context.Context, caller, _ common.Address, _, startingBid *big.Int, duration time.Duration) (domain.Auction, error) {
			gotDuration = duration
			return domain.Auction{
				ID:         1,
				Owner:      caller,
				HighestBid: startingBid,
				Active:     true,
				EndsAt:     time.Now().Add(duration),
			}, nil
		},
	}
	mux := auctionMux(handler.NewAuctionHandler(svc, testLogger()))

	body := `{"caller":"` + testSeller.Hex() + `","asset_ref":"` + testContract.Hex() + `","asset_id":"7","starting_bid":"500","duration_seconds":3600}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auctions", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, time.Hour, gotDuration)
}

func TestCreateAuctionRejectsNonPositiveDuration(t *testing.T) {
	mux := auctionMux(handler.NewAuctionHandler(&stubAuctionService{}, testLogger()))

	body := `{"caller":"` + testSeller.Hex() + `","asset_ref":"` + testContract.Hex() + `","asset_id":"7","starting_bid":"500","duration_seconds":0}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auctions", strings.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlaceBidConflicts(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{domain.ErrBidTooLow, http.StatusConflict},
		{domain.ErrAuctionEnded, http.StatusConflict},
		{domain.ErrAuctionInactive, http.StatusConflict},
		{domain.ErrBidAlreadyExists, http.StatusConflict},
		{domain.ErrRefundFailed, http.StatusBadGateway},
	}
	for _, tc := range cases {
		svc := &stubAuctionService{
			bid: func(_ context.Context, _ common.Address, _ *big.Int, _ uint64) (domain.Auction, error) {
				return domain.Auction{}, tc.err
			},
		}
		mux := auctionMux(handler.NewAuctionHandler(svc, testLogger()))

		body := `{"caller":"` + testBuyer.Hex() + `","value":"600"}`
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auctions/1/bids", strings.NewReader(body)))
		assert.Equal(t, tc.code, rec.Code, tc.err.Error())
	}
}

func TestConcludeAuction(t *testing.T) {
	svc := &stubAuctionService{
		conclude: func(_ context.Context, _ common.Address, id uint64) (domain.Auction, error) {
			return domain.Auction{ID: id, Concluded: true}, nil
		},
	}
	mux := auctionMux(handler.NewAuctionHandler(svc, testLogger()))

	body := `{"caller":"` + testSeller.Hex() + `"}`
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auctions/3/conclude", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var a domain.Auction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &a))
	assert.True(t, a.Concluded)
	assert.Equal(t, uint64(3), a.ID)
}

func TestCancelAuctionOngoing(t *testing.T) {
	svc := &stubAuctionService{
		cancel: func(_ context.Context, _ common.Address, _ uint64) (domain.Auction, error) {
			return domain.Auction{}, domain.ErrBidAlreadyExists
		},
	}
	mux := auctionMux(handler.NewAuctionHandler(svc, testLogger()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/auctions/1?caller="+testSeller.Hex(), nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// stubFeeService implements handler.FeeService.
type stubFeeService struct {
	policy domain.FeePolicy
	setFee func(ctx context.Context, caller common.Address, newBps uint64) error
}

func (s *stubFeeService) FeePolicy(context.Context) domain.FeePolicy { return s.policy }

func (s *stubFeeService) SetFee(ctx context.Context, caller common.Address, newBps uint64) error {
	return s.setFee(ctx, caller, newBps)
}

func TestGetFeePolicy(t *testing.T) {
	svc := &stubFeeService{
		policy: domain.FeePolicy{RateBps: 250, Beneficiary: testSeller},
	}
	h := handler.NewFeeHandler(svc, testLogger())

	rec := httptest.NewRecorder()
	h.GetFeePolicy(rec, httptest.NewRequest(http.MethodGet, "/api/fees", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		RateBps     uint64 `json:"rate_bps"`
		Beneficiary string `json:"beneficiary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(250), resp.RateBps)
	assert.Equal(t, testSeller.Hex(), resp.Beneficiary)
}

func TestUpdateFee(t *testing.T) {
	svc := &stubFeeService{
		policy: domain.FeePolicy{RateBps: 500, Beneficiary: testSeller},
		setFee: func(_ context.Context, caller common.Address, newBps uint64) error {
			if caller != testSeller {
				return domain.ErrNotAuthorized
			}
			return nil
		},
	}
	h := handler.NewFeeHandler(svc, testLogger())

	body := `{"caller":"` + testBuyer.Hex() + `","rate_bps":500}`
	rec := httptest.NewRecorder()
	h.UpdateFee(rec, httptest.NewRequest(http.MethodPut, "/api/fees", strings.NewReader(body)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	body = `{"caller":"` + testSeller.Hex() + `","rate_bps":500}`
	rec = httptest.NewRecorder()
	h.UpdateFee(rec, httptest.NewRequest(http.MethodPut, "/api/fees", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		RateBps uint64 `json:"rate_bps"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(500), resp.RateBps)
}

// stubEventService implements handler.EventService.
type stubEventService struct {
	events func(ctx context.Context, sinceSeq int64, limit int) ([]domain.Event, error)
}

func (s *stubEventService) Events(ctx context.Context, sinceSeq int64, limit int) ([]domain.Event, error) {
	return s.events(ctx, sinceSeq, limit)
}

func TestListEventsCursor(t *testing.T) {
	svc := &stubEventService{
		events: func(_ context.Context, since int64, limit int) ([]domain.Event, error) {
			assert.Equal(t, int64(5), since)
			return []domain.Event{
				{Seq: 6, Kind: domain.EventListed},
				{Seq: 7, Kind: domain.EventBought},
			}, nil
		},
	}
	h := handler.NewEventHandler(svc, testLogger())

	rec := httptest.NewRecorder()
	h.ListEvents(rec, httptest.NewRequest(http.MethodGet, "/api/events?since=5", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Events  []json.RawMessage `json:"events"`
		NextSeq int64             `json:"next_seq"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Events, 2)
	assert.Equal(t, int64(7), resp.NextSeq)
}

func TestListEventsBadCursor(t *testing.T) {
	h := handler.NewEventHandler(&stubEventService{}, testLogger())

	rec := httptest.NewRecorder()
	h.ListEvents(rec, httptest.NewRequest(http.MethodGet, "/api/events?since=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// stubArchiveReader implements handler.ArchiveReader over a path -> content
// map.
type stubArchiveReader struct {
	objects map[string]string
	listed  string
}

func (s *stubArchiveReader) Get(_ context.Context, path string) (io.ReadCloser, error) {
	body, ok := s.objects[path]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (s *stubArchiveReader) List(_ context.Context, prefix string) ([]domain.BlobInfo, error) {
	s.listed = prefix
	var infos []domain.BlobInfo
	for path, body := range s.objects {
		if strings.HasPrefix(path, prefix) {
			infos = append(infos, domain.BlobInfo{
				Path:         path,
				Size:         int64(len(body)),
				LastModified: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			})
		}
	}
	return infos, nil
}

func (s *stubArchiveReader) Exists(_ context.Context, path string) (bool, error) {
	_, ok := s.objects[path]
	return ok, nil
}

func archiveMux(h *handler.ArchiveHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/archives", h.ListArchives)
	mux.HandleFunc("GET /api/archives/{path...}", h.GetArchive)
	return mux
}

func TestListArchives(t *testing.T) {
	reader := &stubArchiveReader{objects: map[string]string{
		"archive/events/2025/06/01/events-000001-000003.jsonl": "{}\n{}\n{}\n",
	}}
	mux := archiveMux(handler.NewArchiveHandler(reader, testLogger()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/archives", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "archive/events/", reader.listed)
	var resp struct {
		Archives []struct {
			Path string `json:"path"`
			Size int64  `json:"size"`
		} `json:"archives"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Archives, 1)
	assert.Equal(t, "archive/events/2025/06/01/events-000001-000003.jsonl", resp.Archives[0].Path)
	assert.Equal(t, int64(9), resp.Archives[0].Size)
}

func TestListArchivesPrefixFilter(t *testing.T) {
	reader := &stubArchiveReader{objects: map[string]string{}}
	mux := archiveMux(handler.NewArchiveHandler(reader, testLogger()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/archives?prefix=2025/06", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "archive/events/2025/06", reader.listed)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/archives?prefix=../secrets", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetArchiveStreamsJSONL(t *testing.T) {
	content := `{"seq":1}` + "\n" + `{"seq":2}` + "\n"
	reader := &stubArchiveReader{objects: map[string]string{
		"archive/events/2025/06/01/events-000001-000002.jsonl": content,
	}}
	mux := archiveMux(handler.NewArchiveHandler(reader, testLogger()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/archives/2025/06/01/events-000001-000002.jsonl", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))
	assert.Equal(t, content, rec.Body.String())
}

func TestGetArchiveNotFound(t *testing.T) {
	mux := archiveMux(handler.NewArchiveHandler(&stubArchiveReader{objects: map[string]string{}}, testLogger()))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/archives/2025/06/01/missing.jsonl", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// stubStatusService implements handler.StatusService.
type stubStatusService struct {
	items    int64
	auctions int64
	lastSeq  int64
	policy   domain.FeePolicy
}

func (s *stubStatusService) Counts(context.Context) (int64, int64, error) {
	return s.items, s.auctions, nil
}

func (s *stubStatusService) LastEventSeq(context.Context) (int64, error) {
	return s.lastSeq, nil
}

func (s *stubStatusService) FeePolicy(context.Context) domain.FeePolicy { return s.policy }

func TestGetStatus(t *testing.T) {
	svc := &stubStatusService{
		items:    12,
		auctions: 3,
		lastSeq:  40,
		policy:   domain.FeePolicy{RateBps: 250, Beneficiary: testSeller},
	}
	h := handler.NewStatusHandler(svc, time.Now().Add(-90*time.Second), testLogger())

	rec := httptest.NewRecorder()
	h.GetStatus(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Items         int64  `json:"items"`
		Auctions      int64  `json:"auctions"`
		LastEventSeq  int64  `json:"last_event_seq"`
		FeeRateBps    uint64 `json:"fee_rate_bps"`
		UptimeSeconds int64  `json:"uptime_seconds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(12), resp.Items)
	assert.Equal(t, int64(3), resp.Auctions)
	assert.Equal(t, int64(40), resp.LastEventSeq)
	assert.Equal(t, uint64(250), resp.FeeRateBps)
	assert.GreaterOrEqual(t, resp.UptimeSeconds, int64(90))
}
