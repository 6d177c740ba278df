package market

import (
	"time"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/domain"
	"github.com/openmint/goapi/domain/asset"
	"github.com/openmint/goapi/domain/auction"
	"github.com/openmint/goapi/domain/ledger"
	"github.com/openmint/goapi/domain/listing"
)

type MintParams struct {
	ChainId         domain.ChainId `json:"chainId" validate:"required"`
	ContractAddress domain.Address `json:"contractAddress" validate:"required"`
	TokenId         domain.TokenId `json:"tokenId" validate:"required"`
	Creator         domain.Address `json:"-"`
	Collection      domain.Address `json:"collection"`
	TokenUri        string         `json:"tokenUri" validate:"required"`
}

type ListParams struct {
	Asset    asset.Id       `json:"asset"`
	Seller   domain.Address `json:"-"`
	Price    string         `json:"price" validate:"required"`
	Currency domain.Address `json:"currency"`
}

type StartAuctionParams struct {
	Asset        asset.Id       `json:"asset"`
	Seller       domain.Address `json:"-"`
	ReservePrice string         `json:"reservePrice"`
	Duration     time.Duration  `json:"duration" validate:"required"`
}

// UseCase is the consistency engine: the sole writer of derived marketplace
// state. Every operation is atomic with respect to the targeted asset via
// compare and swap on entity versions; losers of a race receive
// domain.ErrStaleWrite or domain.ErrConflict and are expected to retry with
// fresh state.
type UseCase interface {
	Mint(ctx ctx.Ctx, params MintParams) (ledger.Ref, error)
	List(ctx ctx.Ctx, params ListParams) (*listing.Listing, error)
	CancelListing(ctx ctx.Ctx, id listing.Id, requester domain.Address) error
	Buy(ctx ctx.Ctx, id listing.Id, buyer domain.Address) (ledger.Ref, error)
	StartAuction(ctx ctx.Ctx, params StartAuctionParams) (*auction.Auction, error)
	CancelAuction(ctx ctx.Ctx, id auction.Id, requester domain.Address) error
	PlaceBid(ctx ctx.Ctx, id auction.Id, bidder domain.Address, amount string) (*auction.Bid, error)

	// SettleAuction is idempotent: invoked by the auction clock on expiry or
	// lazily by any operation observing an expired open auction. Invocations
	// against a non open auction return the current terminal state.
	SettleAuction(ctx ctx.Ctx, id auction.Id) (*auction.Auction, error)

	// ApplyConfirmation finalizes the intent behind ref once the ledger
	// confirmed it. Replays for an already applied ref are no-ops.
	ApplyConfirmation(ctx ctx.Ctx, ref ledger.Ref, txHash domain.TxHash) error

	// FailPendingWrite reverts the entity locked by ref to its prior stable
	// status and marks the write failed.
	FailPendingWrite(ctx ctx.Ctx, ref ledger.Ref, reason string) error
}
