package repository

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/base/database/mongoclient"
	"github.com/openmint/goapi/base/log"
	"github.com/openmint/goapi/domain"
	"github.com/openmint/goapi/domain/auction"
	"github.com/openmint/goapi/service/query"
)

type auctionRepoImpl struct {
	q query.Mongo
}

func NewAuctionRepo(q query.Mongo) auction.Repo {
	return &auctionRepoImpl{q}
}

func (im *auctionRepoImpl) makeQuery(opts ...auction.FindAllOptionsFunc) (bson.M, error) {
	options, err := auction.GetFindAllOptions(opts...)
	if err != nil {
		return nil, err
	}
	query := bson.M{}

	if options.Asset != nil {
		query["chainId"] = options.Asset.ChainId
		query["contractAddress"] = options.Asset.ContractAddress
		query["tokenId"] = options.Asset.TokenId
	}

	if options.Seller != nil {
		query["seller"] = *options.Seller
	}

	if len(options.Statuses) > 0 {
		query["status"] = bson.M{"$in": options.Statuses}
	}

	endTimeQuery := bson.M{}
	if options.EndTimeLT != nil {
		endTimeQuery["$lt"] = *options.EndTimeLT
	}
	if options.EndTimeGTE != nil {
		endTimeQuery["$gte"] = *options.EndTimeGTE
	}
	if len(endTimeQuery) > 0 {
		query["endTime"] = endTimeQuery
	}

	return query, nil
}

func (im *auctionRepoImpl) FindOne(ctx ctx.Ctx, id auction.Id) (*auction.Auction, error) {
	res := auction.Auction{}
	err := im.q.FindOne(ctx, domain.TableAuctions, bson.M{"auctionId": id}, &res)
	if err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	} else if err != nil {
		ctx.WithFields(log.Fields{
			"err":       err,
			"auctionId": id,
		}).Error("failed to q.FindOne")
		return nil, err
	}

	return &res, nil
}

func (im *auctionRepoImpl) FindAll(ctx ctx.Ctx, opts ...auction.FindAllOptionsFunc) ([]*auction.Auction, error) {
	qry, err := im.makeQuery(opts...)
	if err != nil {
		ctx.WithFields(log.Fields{
			"err": err,
		}).Error("im.makeQuery")
		return nil, err
	}

	options, _ := auction.GetFindAllOptions(opts...)
	offset, limit := 0, 0
	if options.Offset != nil {
		offset = int(*options.Offset)
	}
	if options.Limit != nil {
		limit = int(*options.Limit)
	}
	sort := "-createdAt"
	if options.SortEndTime {
		sort = "endTime"
	}

	res := []*auction.Auction{}
	if err := im.q.Search(ctx, domain.TableAuctions, offset, limit, sort, qry, &res); err != nil {
		ctx.WithFields(log.Fields{
			"err":   err,
			"query": qry,
		}).Error("failed to q.Search")
		return nil, err
	}

	return res, nil
}

func (im *auctionRepoImpl) Count(ctx ctx.Ctx, opts ...auction.FindAllOptionsFunc) (int, error) {
	qry, err := im.makeQuery(opts...)
	if err != nil {
		ctx.WithFields(log.Fields{
			"err": err,
		}).Error("im.makeQuery")
		return 0, err
	}

	cnt, err := im.q.Count(ctx, domain.TableAuctions, qry)
	if err != nil {
		ctx.WithFields(log.Fields{
			"err":   err,
			"query": qry,
		}).Error("failed to q.Count")
		return 0, err
	}

	return cnt, nil
}

func (im *auctionRepoImpl) Create(ctx ctx.Ctx, a *auction.Auction) error {
	if err := im.q.Insert(ctx, domain.TableAuctions, a); err == query.ErrDuplicateKey {
		return domain.ErrConflict
	} else if err != nil {
		ctx.WithFields(log.Fields{
			"err":     err,
			"auction": *a,
		}).Error("failed to q.Insert")
		return err
	}
	return nil
}

func (im *auctionRepoImpl) UpdateWithVersion(ctx ctx.Ctx, id auction.Id, expectedVersion int64, patchable auction.Patchable) error {
	selector := bson.M{
		"auctionId": id,
		"version":   expectedVersion,
	}

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

	err = im.q.CustomPatch(ctx, domain.TableAuctions, selector, update, false)
	if err == query.ErrNotFound {
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
