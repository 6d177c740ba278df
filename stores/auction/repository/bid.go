package repository

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/base/log"
	"github.com/openmint/goapi/domain"
	"github.com/openmint/goapi/domain/auction"
	"github.com/openmint/goapi/service/query"
)

type bidRepoImpl struct {
	q query.Mongo
}

func NewBidRepo(q query.Mongo) auction.BidRepo {
	return &bidRepoImpl{q}
}

func (im *bidRepoImpl) Insert(ctx ctx.Ctx, bid *auction.Bid) error {
	if err := im.q.Insert(ctx, domain.TableBids, bid); err != nil {
		ctx.WithFields(log.Fields{
			"err": err,
			"bid": *bid,
		}).Error("failed to q.Insert")
		return err
	}
	return nil
}

func (im *bidRepoImpl) FindAll(ctx ctx.Ctx, opts ...auction.BidFindAllOptionsFunc) ([]*auction.Bid, error) {
	options, err := auction.GetBidFindAllOptions(opts...)
	if err != nil {
		ctx.WithFields(log.Fields{
			"err": err,
		}).Error("auction.GetBidFindAllOptions")
		return nil, err
	}

	qry := bson.M{}
	if options.AuctionId != nil {
		qry["auctionId"] = *options.AuctionId
	}
	if options.Bidder != nil {
		qry["bidder"] = *options.Bidder
	}
	if options.Accepted != nil {
		qry["accepted"] = *options.Accepted
	}

	offset, limit := 0, 0
	if options.Offset != nil {
		offset = int(*options.Offset)
	}
	if options.Limit != nil {
		limit = int(*options.Limit)
	}

	res := []*auction.Bid{}
	if err := im.q.Search(ctx, domain.TableBids, offset, limit, "-placedAt", qry, &res); err != nil {
		ctx.WithFields(log.Fields{
			"err":   err,
			"query": qry,
		}).Error("failed to q.Search")
		return nil, err
	}

	return res, nil
}
