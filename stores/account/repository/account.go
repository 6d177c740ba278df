package repository

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/base/log"
	"github.com/openmint/goapi/domain"
	"github.com/openmint/goapi/domain/account"
	"github.com/openmint/goapi/service/query"
)

type accountRepoImpl struct {
	q query.Mongo
}

func NewAccountRepo(q query.Mongo) account.Repo {
	return &accountRepoImpl{q}
}

func (im *accountRepoImpl) Get(ctx ctx.Ctx, address domain.Address) (*account.Account, error) {
	res := account.Account{}
	err := im.q.FindOne(ctx, domain.TableAccounts, bson.M{"address": address.ToLower()}, &res)
	if err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	} else if err != nil {
		ctx.WithFields(log.Fields{
			"err":     err,
			"address": address,
		}).Error("failed to q.FindOne")
		return nil, err
	}

	return &res, nil
}

func (im *accountRepoImpl) Insert(ctx ctx.Ctx, a *account.Account) error {
	if err := im.q.Insert(ctx, domain.TableAccounts, a); err == query.ErrDuplicateKey {
		return domain.ErrConflict
	} else if err != nil {
		ctx.WithFields(log.Fields{
			"err":     err,
			"account": *a,
		}).Error("failed to q.Insert")
		return err
	}
	return nil
}
