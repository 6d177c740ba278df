package repository

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/base/log"
	"github.com/openmint/goapi/domain"
	"github.com/openmint/goapi/domain/ledger"
	"github.com/openmint/goapi/service/query"
)

type txRecordRepoImpl struct {
	q query.Mongo
}

func NewTxRecordRepo(q query.Mongo) ledger.TxRecordRepo {
	return &txRecordRepoImpl{q}
}

// EnsureIndexes creates the unique index over ref. Confirmation replay
// protection depends on it, so every binary runs this before serving.
func EnsureIndexes(c ctx.Ctx, q query.Mongo) error {
	return q.EnsureIndex(c, domain.TableTransactionRecords, bson.D{{Key: "ref", Value: 1}}, true)
}

// Insert relies on the unique index over ref to reject replays
func (im *txRecordRepoImpl) Insert(ctx ctx.Ctx, record *ledger.TransactionRecord) error {
	if err := im.q.Insert(ctx, domain.TableTransactionRecords, record); err == query.ErrDuplicateKey {
		return domain.ErrConflict
	} else if err != nil {
		ctx.WithFields(log.Fields{
			"err":    err,
			"record": *record,
		}).Error("failed to q.Insert")
		return err
	}
	return nil
}

func (im *txRecordRepoImpl) FindOneByRef(ctx ctx.Ctx, ref ledger.Ref) (*ledger.TransactionRecord, error) {
	res := ledger.TransactionRecord{}
	err := im.q.FindOne(ctx, domain.TableTransactionRecords, bson.M{"ref": ref}, &res)
	if err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	} else if err != nil {
		ctx.WithFields(log.Fields{
			"err": err,
			"ref": ref,
		}).Error("failed to q.FindOne")
		return nil, err
	}

	return &res, nil
}

func (im *txRecordRepoImpl) FindAll(ctx ctx.Ctx, opts ...ledger.TxRecordFindAllOptionsFunc) ([]*ledger.TransactionRecord, error) {
	options, err := ledger.GetTxRecordFindAllOptions(opts...)
	if err != nil {
		ctx.WithFields(log.Fields{
			"err": err,
		}).Error("ledger.GetTxRecordFindAllOptions")
		return nil, err
	}

	qry := bson.M{}
	if options.Asset != nil {
		qry["chainId"] = options.Asset.ChainId
		qry["contractAddress"] = options.Asset.ContractAddress
		qry["tokenId"] = options.Asset.TokenId
	}
	if options.Account != nil {
		qry["$or"] = []bson.M{
			{"seller": *options.Account},
			{"buyer": *options.Account},
		}
	}
	if options.Type != nil {
		qry["type"] = *options.Type
	}

	offset, limit := 0, 0
	if options.Offset != nil {
		offset = int(*options.Offset)
	}
	if options.Limit != nil {
		limit = int(*options.Limit)
	}

	res := []*ledger.TransactionRecord{}
	if err := im.q.Search(ctx, domain.TableTransactionRecords, offset, limit, "-time", qry, &res); err != nil {
		ctx.WithFields(log.Fields{
			"err":   err,
			"query": qry,
		}).Error("failed to q.Search")
		return nil, err
	}

	return res, nil
}
