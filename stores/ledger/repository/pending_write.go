package repository

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/base/database/mongoclient"
	"github.com/openmint/goapi/base/log"
	"github.com/openmint/goapi/domain"
	"github.com/openmint/goapi/domain/ledger"
	"github.com/openmint/goapi/service/query"
)

type pendingWriteRepoImpl struct {
	q query.Mongo
}

func NewPendingWriteRepo(q query.Mongo) ledger.PendingWriteRepo {
	return &pendingWriteRepoImpl{q}
}

func (im *pendingWriteRepoImpl) Create(ctx ctx.Ctx, write *ledger.PendingWrite) error {
	if err := im.q.Insert(ctx, domain.TablePendingWrites, write); err == query.ErrDuplicateKey {
		return domain.ErrConflict
	} else if err != nil {
		ctx.WithFields(log.Fields{
			"err":   err,
			"write": *write,
		}).Error("failed to q.Insert")
		return err
	}
	return nil
}

func (im *pendingWriteRepoImpl) FindOne(ctx ctx.Ctx, ref ledger.Ref) (*ledger.PendingWrite, error) {
	res := ledger.PendingWrite{}
	err := im.q.FindOne(ctx, domain.TablePendingWrites, bson.M{"ref": ref}, &res)
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

func (im *pendingWriteRepoImpl) FindAll(ctx ctx.Ctx, opts ...ledger.PendingWriteFindAllOptionsFunc) ([]*ledger.PendingWrite, error) {
	options, err := ledger.GetPendingWriteFindAllOptions(opts...)
	if err != nil {
		ctx.WithFields(log.Fields{
			"err": err,
		}).Error("ledger.GetPendingWriteFindAllOptions")
		return nil, err
	}

	qry := bson.M{}
	if options.Status != nil {
		qry["status"] = *options.Status
	}
	if options.SubmittedBefore != nil {
		qry["submittedAt"] = bson.M{"$lt": *options.SubmittedBefore}
	}

	limit := 0
	if options.Limit != nil {
		limit = int(*options.Limit)
	}

	res := []*ledger.PendingWrite{}
	if err := im.q.Search(ctx, domain.TablePendingWrites, 0, limit, "submittedAt", qry, &res); err != nil {
		ctx.WithFields(log.Fields{
			"err":   err,
			"query": qry,
		}).Error("failed to q.Search")
		return nil, err
	}

	return res, nil
}

func (im *pendingWriteRepoImpl) Update(ctx ctx.Ctx, ref ledger.Ref, patchable ledger.PendingWritePatchable) error {
	updater, err := mongoclient.MakeBsonM(patchable)
	if err != nil {
		ctx.WithFields(log.Fields{
			"err":       err,
			"patchable": patchable,
		}).Error("failed to mongoclient.MakeBsonM")
		return err
	}

	err = im.q.Patch(ctx, domain.TablePendingWrites, bson.M{"ref": ref}, updater)
	if err == query.ErrNotFound {
		return domain.ErrNotFound
	} else if err != nil {
		ctx.WithFields(log.Fields{
			"err":     err,
			"ref":     ref,
			"updater": updater,
		}).Error("failed to q.Patch")
		return err
	}

	return nil
}
