package usecase

import (
	"time"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/domain"
	"github.com/openmint/goapi/domain/account"
)

var timeNow = time.Now

type impl struct {
	repo account.Repo
}

func New(repo account.Repo) account.Usecase {
	return &impl{repo: repo}
}

func (im *impl) Get(c ctx.Ctx, address domain.Address) (*account.Account, error) {
	acc, err := im.repo.Get(c, address)
	if err == domain.ErrNotFound {
		return nil, err
	} else if err != nil {
		c.WithField("err", err).Error("repo.Get failed")
		return nil, err
	}
	return acc, nil
}

func (im *impl) Create(c ctx.Ctx, address domain.Address) (*account.Account, error) {
	acc := &account.Account{
		Address:   address.ToLower(),
		CreatedAt: timeNow(),
	}

	if err := im.repo.Insert(c, acc); err == domain.ErrConflict {
		// concurrent first login, the stored row wins
		return im.repo.Get(c, address)
	} else if err != nil {
		c.WithField("err", err).Error("repo.Insert failed")
		return nil, err
	}
	return acc, nil
}
