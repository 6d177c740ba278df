package listing

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
	StatusActive      Status = "active"
	StatusPendingSale Status = "pendingSale"
	StatusCancelled   Status = "cancelled"
	StatusFulfilled   Status = "fulfilled"
)

// Listing is a fixed price sale offer. At most one active listing may exist
// per asset; fulfilment and cancellation are status transitions, never
// deletions.
type Listing struct {
	ListingId       Id             `json:"listingId" bson:"listingId"`
	ChainId         domain.ChainId `json:"chainId" bson:"chainId"`
	ContractAddress domain.Address `json:"contractAddress" bson:"contractAddress"`
	TokenId         domain.TokenId `json:"tokenId" bson:"tokenId"`
	Seller          domain.Address `json:"seller" bson:"seller"`
	Price           string         `json:"price" bson:"price"`
	Currency        domain.Address `json:"currency" bson:"currency"`
	Status          Status         `json:"status" bson:"status"`
	Version         int64          `json:"version" bson:"version"`
	CreatedAt       time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt" bson:"updatedAt"`
}

func (l *Listing) AssetId() asset.Id {
	return asset.Id{
		ChainId:         l.ChainId,
		ContractAddress: l.ContractAddress,
		TokenId:         l.TokenId,
	}
}

func (l *Listing) PriceDecimal() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(l.Price)
	if err != nil {
		return decimal.Zero, domain.ErrInvalidNumberFormat
	}
	return d, nil
}

type Patchable struct {
	Status    *Status    `bson:"status,omitempty"`
	UpdatedAt *time.Time `bson:"updatedAt,omitempty"`
}

type FindAllOptions struct {
	Asset    *asset.Id
	Seller   *domain.Address
	Statuses []Status
	Offset   *int32
	Limit    *int32
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

func WithPagination(offset, limit int32) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Offset = &offset
		options.Limit = &limit
		return nil
	}
}

type Repo interface {
	FindOne(ctx ctx.Ctx, id Id) (*Listing, error)
	FindAll(ctx ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Listing, error)
	Count(ctx ctx.Ctx, opts ...FindAllOptionsFunc) (int, error)
	Create(ctx ctx.Ctx, listing *Listing) error

	// UpdateWithVersion is the compare and swap guarding concurrent buys and
	// cancellations. Returns domain.ErrStaleWrite on version mismatch.
	UpdateWithVersion(ctx ctx.Ctx, id Id, expectedVersion int64, patchable Patchable) error
}
