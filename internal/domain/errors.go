package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidPrice     = errors.New("price must be greater than zero")
	ErrInvalidValue     = errors.New("attached value does not match asking price")
	ErrAlreadySold      = errors.New("item already sold")
	ErrNotItemOwner     = errors.New("caller is not the item owner")
	ErrAuctionInactive  = errors.New("auction is not active")
	ErrAuctionEnded     = errors.New("auction has ended")
	ErrAuctionOngoing   = errors.New("auction has not ended yet")
	ErrAlreadyConcluded = errors.New("auction already concluded")
	ErrBidTooLow        = errors.New("bid does not exceed current highest bid")
	ErrBidAlreadyExists = errors.New("auction already has a bid")
	ErrRefundFailed     = errors.New("refund transfer failed")
	ErrAssetRejected    = errors.New("asset transfer rejected by registry")
	ErrPayoutFailed     = errors.New("payout transfer failed")
	ErrNotAuthorized    = errors.New("caller is not authorized")
	ErrInvalidFee       = errors.New("fee rate exceeds 10000 basis points")
	ErrReentrantCall    = errors.New("reentrant call")
	ErrRateLimited      = errors.New("rate limited")
	ErrLockHeld         = errors.New("lock already held")
)
