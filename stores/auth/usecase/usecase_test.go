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

type authSuite struct {
	suite.Suite

	account *mAccount.Usecase
	uc      domain.AuthUsecase
}

func TestAuthSuite(t *testing.T) {
	suite.Run(t, new(authSuite))
}

func (s *authSuite) SetupTest() {
	s.account = &mAccount.Usecase{}
	s.uc = New("test-secret", s.account)
}

func (s *authSuite) TearDownTest() {
	timeNow = time.Now
	s.account.AssertExpectations(s.T())
}

func (s *authSuite) TestSignAndParseRoundTrip() {
	s.account.On("Get", mock.Anything, domain.Address("0xABC")).
		Return(&account.Account{Address: "0xabc"}, nil).Once()

	token, err := s.uc.SignToken(ctx.Background(), "0xABC")
	s.Require().NoError(err)
	s.Require().NotEmpty(token)

	address, err := s.uc.ParseToken(ctx.Background(), token)
	s.Require().NoError(err)
	s.Equal("0xabc", address)
}

func (s *authSuite) TestSignTokenCreatesFirstTimeAccount() {
	s.account.On("Get", mock.Anything, domain.Address("0xabc")).
		Return(nil, domain.ErrNotFound).Once()
	s.account.On("Create", mock.Anything, domain.Address("0xabc")).
		Return(&account.Account{Address: "0xabc"}, nil).Once()

	token, err := s.uc.SignToken(ctx.Background(), "0xabc")
	s.Require().NoError(err)
	s.NotEmpty(token)
}

func (s *authSuite) TestParseTokenRejectsExpired() {
	s.account.On("Get", mock.Anything, domain.Address("0xabc")).
		Return(&account.Account{Address: "0xabc"}, nil).Once()

	timeNow = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	token, err := s.uc.SignToken(ctx.Background(), "0xabc")
	s.Require().NoError(err)

	_, err = s.uc.ParseToken(ctx.Background(), token)
	s.Error(err)
}

func (s *authSuite) TestParseTokenRejectsForeignSecret() {
	other := New("other-secret", s.account)
	s.account.On("Get", mock.Anything, domain.Address("0xabc")).
		Return(&account.Account{Address: "0xabc"}, nil).Once()

	token, err := other.SignToken(ctx.Background(), "0xabc")
	s.Require().NoError(err)

	_, err = s.uc.ParseToken(ctx.Background(), token)
	s.Error(err)
}

func (s *authSuite) TestParseTokenRejectsGarbage() {
	_, err := s.uc.ParseToken(ctx.Background(), "not-a-token")
	s.Error(err)
}
