package ledger

import (
	"time"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/domain"
	"github.com/openmint/goapi/domain/asset"
)

// Ref correlates a pending write with its ledger transaction. Submissions are
// idempotent per ref by contract with the ledger adapter: re-submitting the
// same ref never produces a second on chain transaction.
type Ref string

func (r Ref) String() string {
	return string(r)
}

type IntentType string

const (
	IntentMint              IntentType = "mint"
	IntentPurchase          IntentType = "purchase"
	IntentAuctionSettlement IntentType = "auctionSettlement"
	IntentTransfer          IntentType = "transfer"
)

// Intent is the state transition a pending write will apply once the ledger
// confirms it.
type Intent struct {
	Type            IntentType     `json:"type" bson:"type"`
	ChainId         domain.ChainId `json:"chainId" bson:"chainId"`
	ContractAddress domain.Address `json:"contractAddress" bson:"contractAddress"`
	TokenId         domain.TokenId `json:"tokenId" bson:"tokenId"`
	From            domain.Address `json:"from" bson:"from"`
	To              domain.Address `json:"to" bson:"to"`
	Price           string         `json:"price" bson:"price"`
	Currency        domain.Address `json:"currency" bson:"currency"`
	ListingId       string         `json:"listingId,omitempty" bson:"listingId,omitempty"`
	AuctionId       string         `json:"auctionId,omitempty" bson:"auctionId,omitempty"`
	TokenUri        string         `json:"tokenUri,omitempty" bson:"tokenUri,omitempty"`
}

func (i *Intent) AssetId() asset.Id {
	return asset.Id{
		ChainId:         i.ChainId,
		ContractAddress: i.ContractAddress,
		TokenId:         i.TokenId,
	}
}

type WriteStatus string

const (
	WriteStatusPending   WriteStatus = "pending"
	WriteStatusConfirmed WriteStatus = "confirmed"
	WriteStatusFailed    WriteStatus = "failed"
)

// PendingWrite tracks a write submitted to the ledger but not yet confirmed.
// It drives reconciliation and restart recovery.
type PendingWrite struct {
	Ref         Ref         `json:"ref" bson:"ref"`
	Intent      Intent      `json:"intent" bson:"intent"`
	Status      WriteStatus `json:"status" bson:"status"`
	RetryCount  int         `json:"retryCount" bson:"retryCount"`
	SubmittedAt time.Time   `json:"submittedAt" bson:"submittedAt"`
	UpdatedAt   time.Time   `json:"updatedAt" bson:"updatedAt"`
	Reason      string      `json:"reason,omitempty" bson:"reason,omitempty"`
}

type PendingWritePatchable struct {
	Status     *WriteStatus `bson:"status,omitempty"`
	RetryCount *int         `bson:"retryCount,omitempty"`
	UpdatedAt  *time.Time   `bson:"updatedAt,omitempty"`
	Reason     *string      `bson:"reason,omitempty"`
}

type TransactionType string

const (
	TxTypeMint              TransactionType = "mint"
	TxTypeSale              TransactionType = "sale"
	TxTypeAuctionSettlement TransactionType = "auctionSettlement"
	TxTypeTransfer          TransactionType = "transfer"
)

// TransactionRecord is the immutable record of a completed transfer, unique
// per correlation ref so replayed confirmations cannot duplicate it.
type TransactionRecord struct {
	ChainId         domain.ChainId  `json:"chainId" bson:"chainId"`
	ContractAddress domain.Address  `json:"contractAddress" bson:"contractAddress"`
	TokenId         domain.TokenId  `json:"tokenId" bson:"tokenId"`
	Seller          domain.Address  `json:"seller" bson:"seller"`
	Buyer           domain.Address  `json:"buyer" bson:"buyer"`
	Price           string          `json:"price" bson:"price"`
	Currency        domain.Address  `json:"currency" bson:"currency"`
	TxHash          domain.TxHash   `json:"txHash" bson:"txHash"`
	Type            TransactionType `json:"type" bson:"type"`
	Ref             Ref             `json:"ref" bson:"ref"`
	Time            time.Time       `json:"time" bson:"time"`
}

func (t *TransactionRecord) AssetId() asset.Id {
	return asset.Id{
		ChainId:         t.ChainId,
		ContractAddress: t.ContractAddress,
		TokenId:         t.TokenId,
	}
}

// SubmitStatus is what PollStatus reports about a submitted write
type SubmitStatus struct {
	State  WriteStatus   `json:"state"`
	TxHash domain.TxHash `json:"txHash,omitempty"`
	Reason string        `json:"reason,omitempty"`
}

// Client is the narrow port to the external blockchain. Submit is idempotent
// per ref; PollStatus may report pending indefinitely on a stalled ledger and
// the reconciler bounds retries.
type Client interface {
	Submit(ctx ctx.Ctx, intent *Intent, ref Ref) error
	PollStatus(ctx ctx.Ctx, ref Ref) (*SubmitStatus, error)
}

type PendingWriteFindAllOptions struct {
	Status          *WriteStatus
	SubmittedBefore *time.Time
	Limit           *int32
}

type PendingWriteFindAllOptionsFunc func(*PendingWriteFindAllOptions) error

func GetPendingWriteFindAllOptions(opts ...PendingWriteFindAllOptionsFunc) (PendingWriteFindAllOptions, error) {
	res := PendingWriteFindAllOptions{}
	for _, opt := range opts {
		if err := opt(&res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func PendingWriteWithStatus(status WriteStatus) PendingWriteFindAllOptionsFunc {
	return func(options *PendingWriteFindAllOptions) error {
		options.Status = &status
		return nil
	}
}

func PendingWriteWithSubmittedBefore(t time.Time) PendingWriteFindAllOptionsFunc {
	return func(options *PendingWriteFindAllOptions) error {
		options.SubmittedBefore = &t
		return nil
	}
}

func PendingWriteWithLimit(limit int32) PendingWriteFindAllOptionsFunc {
	return func(options *PendingWriteFindAllOptions) error {
		options.Limit = &limit
		return nil
	}
}

type PendingWriteRepo interface {
	Create(ctx ctx.Ctx, write *PendingWrite) error
	FindOne(ctx ctx.Ctx, ref Ref) (*PendingWrite, error)
	FindAll(ctx ctx.Ctx, opts ...PendingWriteFindAllOptionsFunc) ([]*PendingWrite, error)
	Update(ctx ctx.Ctx, ref Ref, patchable PendingWritePatchable) error
}

type TxRecordFindAllOptions struct {
	Asset   *asset.Id
	Account *domain.Address
	Type    *TransactionType
	Offset  *int32
	Limit   *int32
}

type TxRecordFindAllOptionsFunc func(*TxRecordFindAllOptions) error

func GetTxRecordFindAllOptions(opts ...TxRecordFindAllOptionsFunc) (TxRecordFindAllOptions, error) {
	res := TxRecordFindAllOptions{}
	for _, opt := range opts {
		if err := opt(&res); err != nil {
			return res, err
		}
	}
	return res, nil
}

func TxRecordWithAsset(id asset.Id) TxRecordFindAllOptionsFunc {
	return func(options *TxRecordFindAllOptions) error {
		options.Asset = &id
		return nil
	}
}

func TxRecordWithAccount(account domain.Address) TxRecordFindAllOptionsFunc {
	return func(options *TxRecordFindAllOptions) error {
		account = account.ToLower()
		options.Account = &account
		return nil
	}
}

func TxRecordWithType(t TransactionType) TxRecordFindAllOptionsFunc {
	return func(options *TxRecordFindAllOptions) error {
		options.Type = &t
		return nil
	}
}

func TxRecordWithPagination(offset, limit int32) TxRecordFindAllOptionsFunc {
	return func(options *TxRecordFindAllOptions) error {
		options.Offset = &offset
		options.Limit = &limit
		return nil
	}
}

type TxRecordRepo interface {
	// Insert returns domain.ErrConflict when a record with the same ref was
	// already applied, which makes confirmation replays no-ops.
	Insert(ctx ctx.Ctx, record *TransactionRecord) error
	FindOneByRef(ctx ctx.Ctx, ref Ref) (*TransactionRecord, error)
	FindAll(ctx ctx.Ctx, opts ...TxRecordFindAllOptionsFunc) ([]*TransactionRecord, error)
}
