package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/domain"
	"github.com/openmint/goapi/domain/account"
	mAccount "github.com/openmint/goapi/domain/account/mocks"
)

type accountSuite struct {
	suite.Suite

	repo *mAccount.Repo
	uc   account.Usecase
	now  time.Time
}

func TestAccountSuite(t *testing.T) {
	suite.Run(t, new(accountSuite))
}

func (s *accountSuite) SetupTest() {
	s.repo = &mAccount.Repo{}
	s.now = time.Date(2022, 7, 1, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return s.now }
	s.uc = New(s.repo)
}

func (s *accountSuite) TearDownTest() {
	timeNow = time.Now
	s.repo.AssertExpectations(s.T())
}

func (s *accountSuite) TestGet() {
	acc := &account.Account{Address: "0xabc", CreatedAt: s.now}
	s.repo.On("Get", mock.Anything, domain.Address("0xabc")).Return(acc, nil).Once()

	res, err := s.uc.Get(ctx.Background(), "0xabc")
	s.Require().NoError(err)
	s.Equal(acc, res)
}

func (s *accountSuite) TestCreateLowercasesAddress() {
	s.repo.On("Insert", mock.Anything, &account.Account{
		Address:   "0xabc",
		CreatedAt: s.now,
	}).Return(nil).Once()

	res, err := s.uc.Create(ctx.Background(), "0xABC")
	s.Require().NoError(err)
	s.Equal(domain.Address("0xabc"), res.Address)
}

func (s *accountSuite) TestCreateRaceReturnsExisting() {
	existing := &account.Account{Address: "0xabc", Alias: "early bird"}
	s.repo.On("Insert", mock.Anything, mock.AnythingOfType("*account.Account")).
		Return(domain.ErrConflict).Once()
	s.repo.On("Get", mock.Anything, domain.Address("0xabc")).Return(existing, nil).Once()

	res, err := s.uc.Create(ctx.Background(), "0xabc")
	s.Require().NoError(err)
	s.Equal(existing, res)
}
