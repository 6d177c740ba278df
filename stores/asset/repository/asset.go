package repository

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/base/database/mongoclient"
	"github.com/openmint/goapi/base/log"
	"github.com/openmint/goapi/domain"
	"github.com/openmint/goapi/domain/asset"
	"github.com/openmint/goapi/service/query"
)

type assetRepoImpl struct {
	q query.Mongo
}

func NewAssetRepo(q query.Mongo) asset.Repo {
	return &assetRepoImpl{q}
}

func (im *assetRepoImpl) makeQuery(opts ...asset.FindAllOptionsFunc) (bson.M, error) {
	options, err := asset.GetFindAllOptions(opts...)
	if err != nil {
		return nil, err
	}
	query := bson.M{}

	if options.Owner != nil {
		query["owner"] = *options.Owner
	}

	if options.Collection != nil {
		query["collection"] = *options.Collection
	}

	if options.ChainId != nil {
		query["chainId"] = *options.ChainId
	}

	if options.Listed != nil {
		query["listed"] = *options.Listed
	}

	if options.AuctionActive != nil {
		query["auctionActive"] = *options.AuctionActive
	}

	return query, nil
}

func (im *assetRepoImpl) FindOne(ctx ctx.Ctx, id asset.Id) (*asset.Asset, error) {
	qry, err := mongoclient.MakeBsonM(id)
	if err != nil {
		ctx.WithFields(log.Fields{
			"err": err,
			"id":  id,
		}).Error("failed to mongoclient.MakeBsonM")
		return nil, err
	}

	res := asset.Asset{}
	err = im.q.FindOne(ctx, domain.TableAssets, qry, &res)
	if err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	} else if err != nil {
		ctx.WithFields(log.Fields{
			"err":   err,
			"query": qry,
		}).Error("failed to q.FindOne")
		return nil, err
	}

	return &res, nil
}

func (im *assetRepoImpl) FindAll(ctx ctx.Ctx, opts ...asset.FindAllOptionsFunc) ([]*asset.Asset, error) {
	qry, err := im.makeQuery(opts...)
	if err != nil {
		ctx.WithFields(log.Fields{
			"err": err,
		}).Error("im.makeQuery")
		return nil, err
	}

	options, _ := asset.GetFindAllOptions(opts...)
	offset, limit := 0, 0
	if options.Offset != nil {
		offset = int(*options.Offset)
	}
	if options.Limit != nil {
		limit = int(*options.Limit)
	}

	res := []*asset.Asset{}
	if err := im.q.Search(ctx, domain.TableAssets, offset, limit, "_id", qry, &res); err != nil {
		ctx.WithFields(log.Fields{
			"err":   err,
			"query": qry,
		}).Error("failed to q.Search")
		return nil, err
	}

	return res, nil
}

func (im *assetRepoImpl) Create(ctx ctx.Ctx, a *asset.Asset) error {
	if err := im.q.Insert(ctx, domain.TableAssets, a); err == query.ErrDuplicateKey {
		return domain.ErrConflict
	} else if err != nil {
		ctx.WithFields(log.Fields{
			"err":   err,
			"asset": *a,
		}).Error("failed to q.Insert")
		return err
	}
	return nil
}

func (im *assetRepoImpl) UpdateWithVersion(ctx ctx.Ctx, id asset.Id, expectedVersion int64, patchable asset.Patchable) error {
	selector, err := mongoclient.MakeBsonM(id)
	if err != nil {
		ctx.WithFields(log.Fields{
			"err": err,
			"id":  id,
		}).Error("failed to mongoclient.MakeBsonM")
		return err
	}
	selector["version"] = expectedVersion

	updater, err := mongoclient.MakeBsonM(patchable)
	if err != nil {
		ctx.WithFields(log.Fields{
			"err":       err,
			"patchable": patchable,
		}).Error("failed to mongoclient.MakeBsonM")
		return err
	}

	update := bson.M{
		"$set": updater,
		"$inc": bson.M{"version": 1},
	}

	err = im.q.CustomPatch(ctx, domain.TableAssets, selector, update, false)
	if err == query.ErrNotFound {
		// another writer superseded this version, or the asset vanished;
		// either way the caller's view is stale
		return domain.ErrStaleWrite
	} else if err != nil {
		ctx.WithFields(log.Fields{
			"err":      err,
			"selector": selector,
			"update":   update,
		}).Error("failed to q.CustomPatch")
		return err
	}

	return nil
}
