package auction

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/domain"
	"github.com/openmint/goapi/domain/asset"
)

type Id string

func (i Id) String() string {
	return string(i)
}

type Status string

const (
	StatusOpen      Status = "open"
	StatusSettling  Status = "settling"
	StatusSettled   Status = "settled"
	StatusCancelled Status = "cancelled"
)

// Auction is a time bounded bidding process. EndTime is fixed at creation and
// the highest bid only increases while the auction is open. Settlement
// transitions advance forward only: open -> settling -> settled.
type Auction struct {
	AuctionId       Id             `json:"auctionId" bson:"auctionId"`
	ChainId         domain.ChainId `json:"chainId" bson:"chainId"`
	ContractAddress domain.Address `json:"contractAddress" bson:"contractAddress"`
	TokenId         domain.TokenId `json:"tokenId" bson:"tokenId"`
	Seller          domain.Address `json:"seller" bson:"seller"`
	ReservePrice    string         `json:"reservePrice" bson:"reservePrice"`
	StartTime       time.Time      `json:"startTime" bson:"startTime"`
	EndTime         time.Time      `json:"endTime" bson:"endTime"`
	HighestBid      string         `json:"highestBid" bson:"highestBid"`
	HighestBidder   domain.Address `json:"highestBidder" bson:"highestBidder"`
	Status          Status         `json:"status" bson:"status"`
	Version         int64          `json:"version" bson:"version"`
	CreatedAt       time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt" bson:"updatedAt"`
}

func (a *Auction) AssetId() asset.Id {
	return asset.Id{
		ChainId:         a.ChainId,
		ContractAddress: a.ContractAddress,
		TokenId:         a.TokenId,
	}
}

func (a *Auction) Expired(now time.Time) bool {
	return !now.Before(a.EndTime)
}

func (a *Auction) HasBid() bool {
	return !a.HighestBidder.IsEmpty()
}

func (a *Auction) HighestBidDecimal() (decimal.Decimal, error) {
	if a.HighestBid == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(a.HighestBid)
	if err != nil {
		return decimal.Zero, domain.ErrInvalidNumberFormat
	}
	return d, nil
}

func (a *Auction) ReservePriceDecimal() (decimal.Decimal, error) {
	if a.ReservePrice == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(a.ReservePrice)
	if err != nil {
		return decimal.Zero, domain.ErrInvalidNumberFormat
	}
	return d, nil
}

type Patchable struct {
	HighestBid    *string         `bson:"highestBid,omitempty"`
	HighestBidder *domain.Address `bson:"highestBidder,omitempty"`
	Status        *Status         `bson:"status,omitempty"`
	UpdatedAt     *time.Time      `bson:"updatedAt,omitempty"`
}

// Bid is an append only audit record; superseded bids stay recorded but are
// never the current highest.
type Bid struct {
	AuctionId Id             `json:"auctionId" bson:"auctionId"`
	Bidder    domain.Address `json:"bidder" bson:"bidder"`
	Amount    string         `json:"amount" bson:"amount"`
	PlacedAt  time.Time      `json:"placedAt" bson:"placedAt"`
	Accepted  bool           `json:"accepted" bson:"accepted"`
}

type FindAllOptions struct {
	Asset       *asset.Id
	Seller      *domain.Address
	Statuses    []Status
	EndTimeLT   *time.Time
	EndTimeGTE  *time.Time
	Offset      *int32
	Limit       *int32
	SortEndTime bool
}

type FindAllOptionsFunc func(*FindAllOptions) error

func GetFindAllOptions(opts ...FindAllOptionsFunc) (FindAllOptions, error) {
	res := FindAllOptions{}
	for _, opt := range opts {
		if err := opt(&res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func WithAsset(id asset.Id) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Asset = &id
		return nil
	}
}

func WithSeller(seller domain.Address) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		seller = seller.ToLower()
		options.Seller = &seller
		return nil
	}
}

func WithStatuses(statuses ...Status) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Statuses = statuses
		return nil
	}
}

func WithEndTimeLT(t time.Time) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.EndTimeLT = &t
		return nil
	}
}

func WithEndTimeGTE(t time.Time) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.EndTimeGTE = &t
		return nil
	}
}

func WithPagination(offset, limit int32) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Offset = &offset
		options.Limit = &limit
		return nil
	}
}

func WithSortByEndTime() FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.SortEndTime = true
		return nil
	}
}

type Repo interface {
	FindOne(ctx ctx.Ctx, id Id) (*Auction, error)
	FindAll(ctx ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Auction, error)
	Count(ctx ctx.Ctx, opts ...FindAllOptionsFunc) (int, error)
	Create(ctx ctx.Ctx, auction *Auction) error

	// UpdateWithVersion serializes concurrent bids and settlement triggers on
	// one auction. Returns domain.ErrStaleWrite on version mismatch.
	UpdateWithVersion(ctx ctx.Ctx, id Id, expectedVersion int64, patchable Patchable) error
}

type BidFindAllOptions struct {
	AuctionId *Id
	Bidder    *domain.Address
	Accepted  *bool
	Offset    *int32
	Limit     *int32
}

type BidFindAllOptionsFunc func(*BidFindAllOptions) error

func GetBidFindAllOptions(opts ...BidFindAllOptionsFunc) (BidFindAllOptions, error) {
	res := BidFindAllOptions{}
	for _, opt := range opts {
		if err := opt(&res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func BidWithAuctionId(id Id) BidFindAllOptionsFunc {
	return func(options *BidFindAllOptions) error {
		options.AuctionId = &id
		return nil
	}
}

func BidWithBidder(bidder domain.Address) BidFindAllOptionsFunc {
	return func(options *BidFindAllOptions) error {
		bidder = bidder.ToLower()
		options.Bidder = &bidder
		return nil
	}
}

func BidWithAccepted(accepted bool) BidFindAllOptionsFunc {
	return func(options *BidFindAllOptions) error {
		options.Accepted = &accepted
		return nil
	}
}

func BidWithPagination(offset, limit int32) BidFindAllOptionsFunc {
	return func(options *BidFindAllOptions) error {
		options.Offset = &offset
		options.Limit = &limit
		return nil
	}
}

type BidRepo interface {
	Insert(ctx ctx.Ctx, bid *Bid) error
	FindAll(ctx ctx.Ctx, opts ...BidFindAllOptionsFunc) ([]*Bid, error)
}
