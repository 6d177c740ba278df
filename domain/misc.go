package domain

import (
	"strings"
)

type SortDir int8

const (
	SortDirAsc  = 1
	SortDirDesc = -1
)

type ChainId int32

type Address string

const EmptyAddress = Address("0x0000000000000000000000000000000000000000")

func (a Address) ToLower() Address {
	return Address(strings.ToLower(string(a)))
}

func (a Address) ToLowerStr() string {
	return strings.ToLower(string(a))
}

func (a Address) IsEmpty() bool {
	return len(a) == 0
}

func (a Address) Equals(b Address) bool {
	return a.ToLowerStr() == b.ToLowerStr()
}

type TokenId string

func (i TokenId) String() string {
	return string(i)
}

type TxHash string

type BlockNumber uint64

// Table is a mongo collection name
type Table string

const (
	TableAccounts           Table = "accounts"
	TableAssets             Table = "assets"
	TableListings           Table = "listings"
	TableAuctions           Table = "auctions"
	TableBids               Table = "bids"
	TableTransactionRecords Table = "transaction_records"
	TablePendingWrites      Table = "pending_ledger_writes"
)
