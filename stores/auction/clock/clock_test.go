package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/base/metrics"
	"github.com/openmint/goapi/domain"
	"github.com/openmint/goapi/domain/auction"
	mAuction "github.com/openmint/goapi/domain/auction/mocks"
	mMarket "github.com/openmint/goapi/domain/market/mocks"
)

type clockSuite struct {
	suite.Suite

	auctionRepo *mAuction.Repo
	marketUC    *mMarket.UseCase

	now time.Time
	cl  *Clock
}

func TestClockSuite(t *testing.T) {
	suite.Run(t, new(clockSuite))
}

func (s *clockSuite) SetupTest() {
	s.auctionRepo = &mAuction.Repo{}
	s.marketUC = &mMarket.UseCase{}
	s.now = time.Date(2022, 7, 1, 12, 0, 0, 0, time.UTC)

	s.cl = New(&ClockCfg{
		AuctionRepo: s.auctionRepo,
		MarketUC:    s.marketUC,
		Metrics:     metrics.NewNop(),
	})
}

func (s *clockSuite) TearDownTest() {
	s.auctionRepo.AssertExpectations(s.T())
	s.marketUC.AssertExpectations(s.T())
}

func (s *clockSuite) TestFireDueSettlesExpiredInDeadlineOrder() {
	s.cl.Track("late", s.now.Add(-time.Minute))
	s.cl.Track("early", s.now.Add(-time.Hour))
	s.cl.Track("future", s.now.Add(time.Hour))

	var fired []auction.Id
	s.marketUC.On("SettleAuction", mock.Anything, mock.AnythingOfType("auction.Id")).
		Run(func(args mock.Arguments) { fired = append(fired, args.Get(1).(auction.Id)) }).
		Return(nil, nil).Twice()

	s.cl.fireDue(ctx.Background(), s.now)

	s.Equal([]auction.Id{"early", "late"}, fired)
}

func (s *clockSuite) TestFireDueToleratesSettlementConflicts() {
	s.cl.Track("a", s.now.Add(-time.Minute))

	// another instance already settled it
	s.marketUC.On("SettleAuction", mock.Anything, auction.Id("a")).
		Return(nil, domain.ErrConflict).Once()

	s.cl.fireDue(ctx.Background(), s.now)
}

func (s *clockSuite) TestTrackDeduplicates() {
	s.cl.Track("a", s.now.Add(-time.Minute))
	s.cl.Track("a", s.now.Add(-time.Minute))

	s.marketUC.On("SettleAuction", mock.Anything, auction.Id("a")).
		Return(nil, nil).Once()

	s.cl.fireDue(ctx.Background(), s.now)
}

func (s *clockSuite) TestExpiredAuctionCanBeTrackedAgainAfterFiring() {
	s.cl.Track("a", s.now.Add(-time.Minute))

	s.marketUC.On("SettleAuction", mock.Anything, auction.Id("a")).
		Return(nil, nil).Twice()

	s.cl.fireDue(ctx.Background(), s.now)

	// a rescan may rediscover it while settlement is still in flight;
	// firing again is harmless because settlement is idempotent
	s.cl.Track("a", s.now.Add(-time.Minute))
	s.cl.fireDue(ctx.Background(), s.now)
}

func (s *clockSuite) TestScanTracksOpenAuctions() {
	auctions := []*auction.Auction{
		{AuctionId: "a", EndTime: s.now.Add(-time.Minute), Status: auction.StatusOpen},
		{AuctionId: "b", EndTime: s.now.Add(time.Hour), Status: auction.StatusOpen},
	}
	s.auctionRepo.On("FindAll", mock.Anything,
		mock.AnythingOfType("auction.FindAllOptionsFunc"),
		mock.AnythingOfType("auction.FindAllOptionsFunc"),
		mock.AnythingOfType("auction.FindAllOptionsFunc")).
		Return(auctions, nil).Once()

	s.marketUC.On("SettleAuction", mock.Anything, auction.Id("a")).
		Return(nil, nil).Once()

	s.cl.scan(ctx.Background())
	s.cl.fireDue(ctx.Background(), s.now)
}

func (s *clockSuite) TestUntilNextCapsAtScanInterval() {
	s.Equal(s.cl.scanInterval, s.cl.untilNext(s.now))

	s.cl.Track("far", s.now.Add(10*time.Hour))
	s.Equal(s.cl.scanInterval, s.cl.untilNext(s.now))

	s.cl.Track("soon", s.now.Add(time.Second))
	s.Equal(time.Second, s.cl.untilNext(s.now))

	s.cl.Track("past", s.now.Add(-time.Second))
	s.Equal(time.Duration(0), s.cl.untilNext(s.now))
}
