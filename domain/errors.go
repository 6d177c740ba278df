package domain

import "errors"

var (
	// ErrInternalServerError will throw if any the Internal Server Error happen
	ErrInternalServerError = errors.New("Internal Server Error")
	// ErrNotFound will throw if the requested item is not exists
	ErrNotFound = errors.New("Your requested Item is not found")
	// ErrConflict will throw if the action violates an exclusivity or state
	// machine rule, e.g. double listing or bidding on a closed auction
	ErrConflict = errors.New("Your Item already exist")
	// ErrStaleWrite will throw when a conditional write lost the optimistic
	// concurrency race; callers should reload and retry
	ErrStaleWrite = errors.New("stale write, version mismatch")
	// ErrBadParamInput will throw if the given request-body or params is not valid
	ErrBadParamInput = errors.New("Given Param is not valid")
	// ErrUnauthorized will throw if the actor lacks rights over the entity
	ErrUnauthorized = errors.New("not allowed to act on this item")
	// ErrLedger will throw when a ledger submission or confirmation failed
	ErrLedger = errors.New("ledger write failed")

	ErrBidTooLow           = errors.New("bid amount too low")
	ErrAuctionClosed       = errors.New("auction already closed")
	ErrListingNotActive    = errors.New("listing is not active")
	ErrSelfTrade           = errors.New("buyer and seller are the same account")
	ErrInvalidNumberFormat = errors.New("invalid number format")
	ErrInvalidChainId      = errors.New("invalid chain id")

	// request error
	ErrInvalidAddress = errors.New("Invalid address")
)
