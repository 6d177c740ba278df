package asset

import (
	"fmt"
	"time"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/domain"
)

type Id struct {
	ChainId         domain.ChainId `json:"chainId" bson:"chainId"`
	ContractAddress domain.Address `json:"contractAddress" bson:"contractAddress"`
	TokenId         domain.TokenId `json:"tokenId" bson:"tokenId"`
}

func (i Id) String() string {
	return fmt.Sprintf("%d:%s:%s", i.ChainId, i.ContractAddress.ToLowerStr(), i.TokenId)
}

// Asset is one non fungible token mirrored off chain. Assets are never
// deleted; ownership and lifecycle flags are superseded through validated
// transitions only.
type Asset struct {
	ChainId         domain.ChainId `json:"chainId" bson:"chainId"`
	ContractAddress domain.Address `json:"contractAddress" bson:"contractAddress"`
	TokenId         domain.TokenId `json:"tokenId" bson:"tokenId"`
	Owner           domain.Address `json:"owner" bson:"owner"`
	Creator         domain.Address `json:"creator" bson:"creator"`
	Collection      domain.Address `json:"collection" bson:"collection"`
	TokenUri        string         `json:"tokenUri" bson:"tokenUri"`
	Listed          bool           `json:"listed" bson:"listed"`
	AuctionActive   bool           `json:"auctionActive" bson:"auctionActive"`
	Version         int64          `json:"version" bson:"version"`
	CreatedAt       time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt" bson:"updatedAt"`
}

func (a *Asset) ToId() Id {
	return Id{
		ChainId:         a.ChainId,
		ContractAddress: a.ContractAddress,
		TokenId:         a.TokenId,
	}
}

type Patchable struct {
	Owner         *domain.Address `bson:"owner,omitempty"`
	Listed        *bool           `bson:"listed,omitempty"`
	AuctionActive *bool           `bson:"auctionActive,omitempty"`
	TokenUri      *string         `bson:"tokenUri,omitempty"`
	UpdatedAt     *time.Time      `bson:"updatedAt,omitempty"`
}

type FindAllOptions struct {
	Owner         *domain.Address
	Collection    *domain.Address
	ChainId       *domain.ChainId
	Listed        *bool
	AuctionActive *bool
	Offset        *int32
	Limit         *int32
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

func WithOwner(owner domain.Address) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		owner = owner.ToLower()
		options.Owner = &owner
		return nil
	}
}

func WithCollection(collection domain.Address) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		collection = collection.ToLower()
		options.Collection = &collection
		return nil
	}
}

func WithChainId(chainId domain.ChainId) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.ChainId = &chainId
		return nil
	}
}

func WithListed(listed bool) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.Listed = &listed
		return nil
	}
}

func WithAuctionActive(active bool) FindAllOptionsFunc {
	return func(options *FindAllOptions) error {
		options.AuctionActive = &active
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
	FindOne(ctx ctx.Ctx, id Id) (*Asset, error)
	FindAll(ctx ctx.Ctx, opts ...FindAllOptionsFunc) ([]*Asset, error)
	Create(ctx ctx.Ctx, asset *Asset) error

	// UpdateWithVersion applies the patch only when the stored version still
	// equals expectedVersion, bumping the version on success. Returns
	// domain.ErrStaleWrite when an intervening update won the race.
	UpdateWithVersion(ctx ctx.Ctx, id Id, expectedVersion int64, patchable Patchable) error
}
