package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/base/ptr"
	"github.com/openmint/goapi/domain"
	"github.com/openmint/goapi/domain/asset"
	mAsset "github.com/openmint/goapi/domain/asset/mocks"
	"github.com/openmint/goapi/domain/auction"
	mAuction "github.com/openmint/goapi/domain/auction/mocks"
	"github.com/openmint/goapi/domain/ledger"
	mLedger "github.com/openmint/goapi/domain/ledger/mocks"
	"github.com/openmint/goapi/domain/listing"
	mListing "github.com/openmint/goapi/domain/listing/mocks"
	"github.com/openmint/goapi/domain/market"
	mDomain "github.com/openmint/goapi/domain/mocks"
)

type testSuite struct {
	suite.Suite

	assetRepo        *mAsset.Repo
	listingRepo      *mListing.Repo
	auctionRepo      *mAuction.Repo
	bidRepo          *mAuction.BidRepo
	pendingWriteRepo *mLedger.PendingWriteRepo
	txRecordRepo     *mLedger.TxRecordRepo
	ledgerClient     *mLedger.Client
	publisher        *mDomain.EventPublisher

	now time.Time
	im  market.UseCase
}

func TestSuite(t *testing.T) {
	suite.Run(t, new(testSuite))
}

func (s *testSuite) SetupTest() {
	s.assetRepo = &mAsset.Repo{}
	s.listingRepo = &mListing.Repo{}
	s.auctionRepo = &mAuction.Repo{}
	s.bidRepo = &mAuction.BidRepo{}
	s.pendingWriteRepo = &mLedger.PendingWriteRepo{}
	s.txRecordRepo = &mLedger.TxRecordRepo{}
	s.ledgerClient = &mLedger.Client{}
	s.publisher = &mDomain.EventPublisher{}

	s.now = time.Date(2022, 7, 1, 12, 0, 0, 0, time.UTC)
	timeNow = func() time.Time { return s.now }

	s.im = New(&MarketUseCaseCfg{
		AssetRepo:        s.assetRepo,
		ListingRepo:      s.listingRepo,
		AuctionRepo:      s.auctionRepo,
		BidRepo:          s.bidRepo,
		PendingWriteRepo: s.pendingWriteRepo,
		TxRecordRepo:     s.txRecordRepo,
		LedgerClient:     s.ledgerClient,
		EventPublisher:   s.publisher,
	})
}

func (s *testSuite) TearDownTest() {
	timeNow = time.Now
	s.assetRepo.AssertExpectations(s.T())
	s.listingRepo.AssertExpectations(s.T())
	s.auctionRepo.AssertExpectations(s.T())
	s.bidRepo.AssertExpectations(s.T())
	s.pendingWriteRepo.AssertExpectations(s.T())
	s.txRecordRepo.AssertExpectations(s.T())
	s.ledgerClient.AssertExpectations(s.T())
	s.publisher.AssertExpectations(s.T())
}

var (
	seller = domain.Address("0x1111111111111111111111111111111111111111")
	buyer  = domain.Address("0x2222222222222222222222222222222222222222")
	bidder = domain.Address("0x3333333333333333333333333333333333333333")
	other  = domain.Address("0x4444444444444444444444444444444444444444")
)

func (s *testSuite) mockAsset(version int64) *asset.Asset {
	return &asset.Asset{
		ChainId:         1,
		ContractAddress: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		TokenId:         "7",
		Owner:           seller,
		Creator:         seller,
		Version:         version,
		CreatedAt:       s.now.Add(-time.Hour),
		UpdatedAt:       s.now.Add(-time.Hour),
	}
}

func (s *testSuite) mockListing(status listing.Status, version int64) *listing.Listing {
	return &listing.Listing{
		ListingId:       "listing-1",
		ChainId:         1,
		ContractAddress: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		TokenId:         "7",
		Seller:          seller,
		Price:           "100",
		Status:          status,
		Version:         version,
		CreatedAt:       s.now.Add(-time.Hour),
		UpdatedAt:       s.now.Add(-time.Hour),
	}
}

func (s *testSuite) mockAuction(status auction.Status, version int64, endsIn time.Duration) *auction.Auction {
	return &auction.Auction{
		AuctionId:       "auction-1",
		ChainId:         1,
		ContractAddress: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		TokenId:         "7",
		Seller:          seller,
		ReservePrice:    "10",
		StartTime:       s.now.Add(-time.Hour),
		EndTime:         s.now.Add(endsIn),
		Status:          status,
		Version:         version,
		CreatedAt:       s.now.Add(-time.Hour),
		UpdatedAt:       s.now.Add(-time.Hour),
	}
}

func (s *testSuite) TestListHappyPath() {
	a := s.mockAsset(2)
	id := a.ToId()

	s.assetRepo.On("FindOne", mock.Anything, id).Return(a, nil).Once()
	s.assetRepo.On("UpdateWithVersion", mock.Anything, id, int64(2), asset.Patchable{
		Listed:    ptr.Bool(true),
		UpdatedAt: &s.now,
	}).Return(nil).Once()

	var created *listing.Listing
	s.listingRepo.On("Create", mock.Anything, mock.AnythingOfType("*listing.Listing")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*listing.Listing) }).
		Return(nil).Once()
	s.publisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.Event")).Return().Once()

	l, err := s.im.List(ctx.Background(), market.ListParams{
		Asset:  id,
		Seller: seller,
		Price:  "100",
	})
	s.NoError(err)
	s.Equal(created, l)
	s.Equal(listing.StatusActive, l.Status)
	s.Equal("100", l.Price)
	s.NotEmpty(l.ListingId)
	s.Equal(int64(0), l.Version)
}

func (s *testSuite) TestListRejectsBusyAsset() {
	a := s.mockAsset(2)
	a.Listed = true

	s.assetRepo.On("FindOne", mock.Anything, a.ToId()).Return(a, nil).Once()

	_, err := s.im.List(ctx.Background(), market.ListParams{Asset: a.ToId(), Seller: seller, Price: "100"})
	s.Equal(domain.ErrConflict, err)
}

func (s *testSuite) TestListRejectsNonOwner() {
	a := s.mockAsset(2)

	s.assetRepo.On("FindOne", mock.Anything, a.ToId()).Return(a, nil).Once()

	_, err := s.im.List(ctx.Background(), market.ListParams{Asset: a.ToId(), Seller: other, Price: "100"})
	s.Equal(domain.ErrUnauthorized, err)
}

func (s *testSuite) TestListLosesRace() {
	a := s.mockAsset(2)

	s.assetRepo.On("FindOne", mock.Anything, a.ToId()).Return(a, nil).Once()
	s.assetRepo.On("UpdateWithVersion", mock.Anything, a.ToId(), int64(2), mock.AnythingOfType("asset.Patchable")).
		Return(domain.ErrStaleWrite).Once()

	_, err := s.im.List(ctx.Background(), market.ListParams{Asset: a.ToId(), Seller: seller, Price: "100"})
	s.Equal(domain.ErrStaleWrite, err)
}

func (s *testSuite) TestListRejectsBadPrice() {
	_, err := s.im.List(ctx.Background(), market.ListParams{Seller: seller, Price: "not-a-number"})
	s.Equal(domain.ErrInvalidNumberFormat, err)

	_, err = s.im.List(ctx.Background(), market.ListParams{Seller: seller, Price: "-5"})
	s.Equal(domain.ErrBadParamInput, err)
}

func (s *testSuite) TestBuyHappyPath() {
	l := s.mockListing(listing.StatusActive, 1)

	s.listingRepo.On("FindOne", mock.Anything, l.ListingId).Return(l, nil).Once()
	pendingSale := listing.StatusPendingSale
	s.listingRepo.On("UpdateWithVersion", mock.Anything, l.ListingId, int64(1), listing.Patchable{
		Status:    &pendingSale,
		UpdatedAt: &s.now,
	}).Return(nil).Once()

	var write *ledger.PendingWrite
	s.pendingWriteRepo.On("Create", mock.Anything, mock.AnythingOfType("*ledger.PendingWrite")).
		Run(func(args mock.Arguments) { write = args.Get(1).(*ledger.PendingWrite) }).
		Return(nil).Once()
	s.ledgerClient.On("Submit", mock.Anything, mock.AnythingOfType("*ledger.Intent"), mock.AnythingOfType("ledger.Ref")).
		Return(nil).Once()

	ref, err := s.im.Buy(ctx.Background(), l.ListingId, buyer)
	s.NoError(err)
	s.NotEmpty(ref)
	s.Equal(write.Ref, ref)
	s.Equal(ledger.IntentPurchase, write.Intent.Type)
	s.Equal(seller, write.Intent.From)
	s.Equal(buyer, write.Intent.To)
	s.Equal("100", write.Intent.Price)
	s.Equal(ledger.WriteStatusPending, write.Status)
}

func (s *testSuite) TestBuyLosesRace() {
	l := s.mockListing(listing.StatusActive, 1)

	s.listingRepo.On("FindOne", mock.Anything, l.ListingId).Return(l, nil).Once()
	s.listingRepo.On("UpdateWithVersion", mock.Anything, l.ListingId, int64(1), mock.AnythingOfType("listing.Patchable")).
		Return(domain.ErrStaleWrite).Once()

	_, err := s.im.Buy(ctx.Background(), l.ListingId, buyer)
	s.Equal(domain.ErrStaleWrite, err)
}

func (s *testSuite) TestBuyRejectsInactiveListing() {
	l := s.mockListing(listing.StatusCancelled, 2)

	s.listingRepo.On("FindOne", mock.Anything, l.ListingId).Return(l, nil).Once()

	_, err := s.im.Buy(ctx.Background(), l.ListingId, buyer)
	s.Equal(domain.ErrListingNotActive, err)
}

func (s *testSuite) TestBuyRejectsSelfTrade() {
	l := s.mockListing(listing.StatusActive, 1)

	s.listingRepo.On("FindOne", mock.Anything, l.ListingId).Return(l, nil).Once()

	_, err := s.im.Buy(ctx.Background(), l.ListingId, seller)
	s.Equal(domain.ErrSelfTrade, err)
}

func (s *testSuite) TestBuyLedgerDownRevertsListing() {
	l := s.mockListing(listing.StatusActive, 1)

	s.listingRepo.On("FindOne", mock.Anything, l.ListingId).Return(l, nil).Once()
	pendingSale := listing.StatusPendingSale
	s.listingRepo.On("UpdateWithVersion", mock.Anything, l.ListingId, int64(1), listing.Patchable{
		Status:    &pendingSale,
		UpdatedAt: &s.now,
	}).Return(nil).Once()

	var write *ledger.PendingWrite
	s.pendingWriteRepo.On("Create", mock.Anything, mock.AnythingOfType("*ledger.PendingWrite")).
		Run(func(args mock.Arguments) { write = args.Get(1).(*ledger.PendingWrite) }).
		Return(nil).Once()
	s.ledgerClient.On("Submit", mock.Anything, mock.AnythingOfType("*ledger.Intent"), mock.AnythingOfType("ledger.Ref")).
		Return(errors.New("ledger down")).Once()

	// FailPendingWrite reloads the write and reverts the locked listing
	s.pendingWriteRepo.On("FindOne", mock.Anything, mock.AnythingOfType("ledger.Ref")).
		Return(func(ctx.Ctx, ledger.Ref) *ledger.PendingWrite { return write }, nil).Once()
	locked := s.mockListing(listing.StatusPendingSale, 2)
	s.listingRepo.On("FindOne", mock.Anything, l.ListingId).Return(locked, nil).Once()
	active := listing.StatusActive
	s.listingRepo.On("UpdateWithVersion", mock.Anything, l.ListingId, int64(2), listing.Patchable{
		Status:    &active,
		UpdatedAt: &s.now,
	}).Return(nil).Once()
	s.pendingWriteRepo.On("Update", mock.Anything, mock.AnythingOfType("ledger.Ref"), mock.AnythingOfType("ledger.PendingWritePatchable")).
		Return(nil).Once()

	_, err := s.im.Buy(ctx.Background(), l.ListingId, buyer)
	s.Equal(domain.ErrLedger, err)
}

func (s *testSuite) TestCancelListingHappyPath() {
	l := s.mockListing(listing.StatusActive, 1)

	s.listingRepo.On("FindOne", mock.Anything, l.ListingId).Return(l, nil).Once()
	cancelled := listing.StatusCancelled
	s.listingRepo.On("UpdateWithVersion", mock.Anything, l.ListingId, int64(1), listing.Patchable{
		Status:    &cancelled,
		UpdatedAt: &s.now,
	}).Return(nil).Once()

	a := s.mockAsset(3)
	a.Listed = true
	s.assetRepo.On("FindOne", mock.Anything, l.AssetId()).Return(a, nil).Once()
	s.assetRepo.On("UpdateWithVersion", mock.Anything, l.AssetId(), int64(3), asset.Patchable{
		Listed:    ptr.Bool(false),
		UpdatedAt: &s.now,
	}).Return(nil).Once()
	s.publisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.Event")).Return().Once()

	err := s.im.CancelListing(ctx.Background(), l.ListingId, seller)
	s.NoError(err)
}

func (s *testSuite) TestCancelListingRejectsNonSeller() {
	l := s.mockListing(listing.StatusActive, 1)

	s.listingRepo.On("FindOne", mock.Anything, l.ListingId).Return(l, nil).Once()

	err := s.im.CancelListing(ctx.Background(), l.ListingId, other)
	s.Equal(domain.ErrUnauthorized, err)
}

func (s *testSuite) TestCancelListingRejectsLockedListing() {
	l := s.mockListing(listing.StatusPendingSale, 2)

	s.listingRepo.On("FindOne", mock.Anything, l.ListingId).Return(l, nil).Once()

	err := s.im.CancelListing(ctx.Background(), l.ListingId, seller)
	s.Equal(domain.ErrNotFound, err)
}

func (s *testSuite) TestCancelListingOnCancelledListingReportsNotFound() {
	l := s.mockListing(listing.StatusCancelled, 2)

	s.listingRepo.On("FindOne", mock.Anything, l.ListingId).Return(l, nil).Once()

	err := s.im.CancelListing(ctx.Background(), l.ListingId, seller)
	s.Equal(domain.ErrNotFound, err)
}

func (s *testSuite) TestPlaceBidHappyPath() {
	au := s.mockAuction(auction.StatusOpen, 3, time.Hour)

	s.auctionRepo.On("FindOne", mock.Anything, au.AuctionId).Return(au, nil).Once()
	amount := "15"
	newBidder := bidder
	s.auctionRepo.On("UpdateWithVersion", mock.Anything, au.AuctionId, int64(3), auction.Patchable{
		HighestBid:    &amount,
		HighestBidder: &newBidder,
		UpdatedAt:     &s.now,
	}).Return(nil).Once()

	var inserted *auction.Bid
	s.bidRepo.On("Insert", mock.Anything, mock.AnythingOfType("*auction.Bid")).
		Run(func(args mock.Arguments) { inserted = args.Get(1).(*auction.Bid) }).
		Return(nil).Once()
	s.publisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.Event")).Return().Once()

	b, err := s.im.PlaceBid(ctx.Background(), au.AuctionId, bidder, "15")
	s.NoError(err)
	s.Equal(inserted, b)
	s.Equal("15", b.Amount)
	s.True(b.Accepted)
}

func (s *testSuite) TestPlaceBidEnforcesMonotonicBids() {
	au := s.mockAuction(auction.StatusOpen, 3, time.Hour)
	au.HighestBid = "20"
	au.HighestBidder = other

	s.auctionRepo.On("FindOne", mock.Anything, au.AuctionId).Return(au, nil).Times(3)

	// equal to current highest
	_, err := s.im.PlaceBid(ctx.Background(), au.AuctionId, bidder, "20")
	s.Equal(domain.ErrBidTooLow, err)

	// below current highest
	_, err = s.im.PlaceBid(ctx.Background(), au.AuctionId, bidder, "15")
	s.Equal(domain.ErrBidTooLow, err)

	// below reserve
	_, err = s.im.PlaceBid(ctx.Background(), au.AuctionId, bidder, "5")
	s.Equal(domain.ErrBidTooLow, err)
}

func (s *testSuite) TestPlaceBidLosesRace() {
	au := s.mockAuction(auction.StatusOpen, 3, time.Hour)

	s.auctionRepo.On("FindOne", mock.Anything, au.AuctionId).Return(au, nil).Once()
	s.auctionRepo.On("UpdateWithVersion", mock.Anything, au.AuctionId, int64(3), mock.AnythingOfType("auction.Patchable")).
		Return(domain.ErrStaleWrite).Once()

	_, err := s.im.PlaceBid(ctx.Background(), au.AuctionId, bidder, "15")
	s.Equal(domain.ErrStaleWrite, err)
}

func (s *testSuite) TestPlaceBidRejectsSellerBid() {
	au := s.mockAuction(auction.StatusOpen, 3, time.Hour)

	s.auctionRepo.On("FindOne", mock.Anything, au.AuctionId).Return(au, nil).Once()

	_, err := s.im.PlaceBid(ctx.Background(), au.AuctionId, seller, "15")
	s.Equal(domain.ErrSelfTrade, err)
}

func (s *testSuite) TestPlaceBidOnExpiredAuctionTriggersSettlement() {
	au := s.mockAuction(auction.StatusOpen, 3, -time.Minute)

	// first load by PlaceBid, second by the lazy settlement trigger
	s.auctionRepo.On("FindOne", mock.Anything, au.AuctionId).Return(au, nil).Twice()

	// no bid above reserve, settles without the ledger
	settled := auction.StatusSettled
	s.auctionRepo.On("UpdateWithVersion", mock.Anything, au.AuctionId, int64(3), auction.Patchable{
		Status:    &settled,
		UpdatedAt: &s.now,
	}).Return(nil).Once()

	a := s.mockAsset(5)
	a.AuctionActive = true
	s.assetRepo.On("FindOne", mock.Anything, au.AssetId()).Return(a, nil).Once()
	s.assetRepo.On("UpdateWithVersion", mock.Anything, au.AssetId(), int64(5), asset.Patchable{
		AuctionActive: ptr.Bool(false),
		UpdatedAt:     &s.now,
	}).Return(nil).Once()
	s.publisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.Event")).Return().Once()

	_, err := s.im.PlaceBid(ctx.Background(), au.AuctionId, bidder, "15")
	s.Equal(domain.ErrAuctionClosed, err)
}

func (s *testSuite) TestSettleAuctionWithoutBids() {
	au := s.mockAuction(auction.StatusOpen, 3, -time.Minute)

	s.auctionRepo.On("FindOne", mock.Anything, au.AuctionId).Return(au, nil).Once()
	settled := auction.StatusSettled
	s.auctionRepo.On("UpdateWithVersion", mock.Anything, au.AuctionId, int64(3), auction.Patchable{
		Status:    &settled,
		UpdatedAt: &s.now,
	}).Return(nil).Once()

	a := s.mockAsset(5)
	a.AuctionActive = true
	s.assetRepo.On("FindOne", mock.Anything, au.AssetId()).Return(a, nil).Once()
	s.assetRepo.On("UpdateWithVersion", mock.Anything, au.AssetId(), int64(5), mock.AnythingOfType("asset.Patchable")).
		Return(nil).Once()
	s.publisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.Event")).Return().Once()

	res, err := s.im.SettleAuction(ctx.Background(), au.AuctionId)
	s.NoError(err)
	s.Equal(auction.StatusSettled, res.Status)
}

func (s *testSuite) TestSettleAuctionWithWinningBid() {
	au := s.mockAuction(auction.StatusOpen, 3, -time.Minute)
	au.HighestBid = "50"
	au.HighestBidder = bidder

	s.auctionRepo.On("FindOne", mock.Anything, au.AuctionId).Return(au, nil).Once()
	settling := auction.StatusSettling
	s.auctionRepo.On("UpdateWithVersion", mock.Anything, au.AuctionId, int64(3), auction.Patchable{
		Status:    &settling,
		UpdatedAt: &s.now,
	}).Return(nil).Once()

	var write *ledger.PendingWrite
	s.pendingWriteRepo.On("Create", mock.Anything, mock.AnythingOfType("*ledger.PendingWrite")).
		Run(func(args mock.Arguments) { write = args.Get(1).(*ledger.PendingWrite) }).
		Return(nil).Once()
	s.ledgerClient.On("Submit", mock.Anything, mock.AnythingOfType("*ledger.Intent"), mock.AnythingOfType("ledger.Ref")).
		Return(nil).Once()

	res, err := s.im.SettleAuction(ctx.Background(), au.AuctionId)
	s.NoError(err)
	s.Equal(auction.StatusSettling, res.Status)
	s.Equal(ledger.IntentAuctionSettlement, write.Intent.Type)
	s.Equal(seller, write.Intent.From)
	s.Equal(bidder, write.Intent.To)
	s.Equal("50", write.Intent.Price)
}

func (s *testSuite) TestSettleAuctionBelowReserve() {
	au := s.mockAuction(auction.StatusOpen, 3, -time.Minute)
	au.HighestBid = "5"
	au.HighestBidder = bidder

	s.auctionRepo.On("FindOne", mock.Anything, au.AuctionId).Return(au, nil).Once()
	settled := auction.StatusSettled
	s.auctionRepo.On("UpdateWithVersion", mock.Anything, au.AuctionId, int64(3), auction.Patchable{
		Status:    &settled,
		UpdatedAt: &s.now,
	}).Return(nil).Once()

	a := s.mockAsset(5)
	s.assetRepo.On("FindOne", mock.Anything, au.AssetId()).Return(a, nil).Once()
	s.assetRepo.On("UpdateWithVersion", mock.Anything, au.AssetId(), int64(5), mock.AnythingOfType("asset.Patchable")).
		Return(nil).Once()
	s.publisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.Event")).Return().Once()

	res, err := s.im.SettleAuction(ctx.Background(), au.AuctionId)
	s.NoError(err)
	s.Equal(auction.StatusSettled, res.Status)
}

func (s *testSuite) TestSettleAuctionIsIdempotent() {
	au := s.mockAuction(auction.StatusSettled, 6, -time.Hour)

	s.auctionRepo.On("FindOne", mock.Anything, au.AuctionId).Return(au, nil).Once()

	res, err := s.im.SettleAuction(ctx.Background(), au.AuctionId)
	s.NoError(err)
	s.Equal(au, res)
}

func (s *testSuite) TestSettleAuctionInFlightIsNoOp() {
	au := s.mockAuction(auction.StatusSettling, 4, -time.Minute)

	s.auctionRepo.On("FindOne", mock.Anything, au.AuctionId).Return(au, nil).Once()

	res, err := s.im.SettleAuction(ctx.Background(), au.AuctionId)
	s.NoError(err)
	s.Equal(auction.StatusSettling, res.Status)
}

func (s *testSuite) TestSettleAuctionBeforeExpiry() {
	au := s.mockAuction(auction.StatusOpen, 3, time.Hour)

	s.auctionRepo.On("FindOne", mock.Anything, au.AuctionId).Return(au, nil).Once()

	_, err := s.im.SettleAuction(ctx.Background(), au.AuctionId)
	s.Equal(domain.ErrConflict, err)
}

func (s *testSuite) TestSettleAuctionLostRaceReturnsFreshState() {
	au := s.mockAuction(auction.StatusOpen, 3, -time.Minute)
	au.HighestBid = "50"
	au.HighestBidder = bidder

	s.auctionRepo.On("FindOne", mock.Anything, au.AuctionId).Return(au, nil).Once()
	s.auctionRepo.On("UpdateWithVersion", mock.Anything, au.AuctionId, int64(3), mock.AnythingOfType("auction.Patchable")).
		Return(domain.ErrStaleWrite).Once()

	won := s.mockAuction(auction.StatusSettling, 4, -time.Minute)
	s.auctionRepo.On("FindOne", mock.Anything, au.AuctionId).Return(won, nil).Once()

	res, err := s.im.SettleAuction(ctx.Background(), au.AuctionId)
	s.NoError(err)
	s.Equal(auction.StatusSettling, res.Status)
}

func (s *testSuite) TestCancelAuctionHappyPath() {
	au := s.mockAuction(auction.StatusOpen, 2, time.Hour)

	s.auctionRepo.On("FindOne", mock.Anything, au.AuctionId).Return(au, nil).Once()
	cancelled := auction.StatusCancelled
	s.auctionRepo.On("UpdateWithVersion", mock.Anything, au.AuctionId, int64(2), auction.Patchable{
		Status:    &cancelled,
		UpdatedAt: &s.now,
	}).Return(nil).Once()

	a := s.mockAsset(4)
	a.AuctionActive = true
	s.assetRepo.On("FindOne", mock.Anything, au.AssetId()).Return(a, nil).Once()
	s.assetRepo.On("UpdateWithVersion", mock.Anything, au.AssetId(), int64(4), mock.AnythingOfType("asset.Patchable")).
		Return(nil).Once()
	s.publisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.Event")).Return().Once()

	err := s.im.CancelAuction(ctx.Background(), au.AuctionId, seller)
	s.NoError(err)
}

func (s *testSuite) TestCancelAuctionRejectsNonSeller() {
	au := s.mockAuction(auction.StatusOpen, 2, time.Hour)

	s.auctionRepo.On("FindOne", mock.Anything, au.AuctionId).Return(au, nil).Once()

	err := s.im.CancelAuction(ctx.Background(), au.AuctionId, other)
	s.Equal(domain.ErrUnauthorized, err)
}

func (s *testSuite) TestMintHappyPath() {
	s.assetRepo.On("FindOne", mock.Anything, mock.AnythingOfType("asset.Id")).
		Return(nil, domain.ErrNotFound).Once()

	var write *ledger.PendingWrite
	s.pendingWriteRepo.On("Create", mock.Anything, mock.AnythingOfType("*ledger.PendingWrite")).
		Run(func(args mock.Arguments) { write = args.Get(1).(*ledger.PendingWrite) }).
		Return(nil).Once()
	s.ledgerClient.On("Submit", mock.Anything, mock.AnythingOfType("*ledger.Intent"), mock.AnythingOfType("ledger.Ref")).
		Return(nil).Once()

	ref, err := s.im.Mint(ctx.Background(), market.MintParams{
		ChainId:         1,
		ContractAddress: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		TokenId:         "7",
		Creator:         seller,
		TokenUri:        "ipfs://QmToken",
	})
	s.NoError(err)
	s.Equal(write.Ref, ref)
	s.Equal(ledger.IntentMint, write.Intent.Type)
	s.Equal(seller, write.Intent.To)
	s.Equal("ipfs://QmToken", write.Intent.TokenUri)
}

func (s *testSuite) TestMintRejectsExistingAsset() {
	a := s.mockAsset(1)

	s.assetRepo.On("FindOne", mock.Anything, mock.AnythingOfType("asset.Id")).Return(a, nil).Once()

	_, err := s.im.Mint(ctx.Background(), market.MintParams{
		ChainId:         1,
		ContractAddress: a.ContractAddress,
		TokenId:         a.TokenId,
		Creator:         seller,
		TokenUri:        "ipfs://QmToken",
	})
	s.Equal(domain.ErrConflict, err)
}

func (s *testSuite) TestApplyConfirmationForPurchase() {
	l := s.mockListing(listing.StatusPendingSale, 2)
	write := &ledger.PendingWrite{
		Ref: "ref-1",
		Intent: ledger.Intent{
			Type:            ledger.IntentPurchase,
			ChainId:         1,
			ContractAddress: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			TokenId:         "7",
			From:            seller,
			To:              buyer,
			Price:           "100",
			ListingId:       l.ListingId.String(),
		},
		Status: ledger.WriteStatusPending,
	}

	s.pendingWriteRepo.On("FindOne", mock.Anything, ledger.Ref("ref-1")).Return(write, nil).Once()

	var record *ledger.TransactionRecord
	s.txRecordRepo.On("Insert", mock.Anything, mock.AnythingOfType("*ledger.TransactionRecord")).
		Run(func(args mock.Arguments) { record = args.Get(1).(*ledger.TransactionRecord) }).
		Return(nil).Once()

	s.listingRepo.On("FindOne", mock.Anything, l.ListingId).Return(l, nil).Once()
	fulfilled := listing.StatusFulfilled
	s.listingRepo.On("UpdateWithVersion", mock.Anything, l.ListingId, int64(2), listing.Patchable{
		Status:    &fulfilled,
		UpdatedAt: &s.now,
	}).Return(nil).Once()

	a := s.mockAsset(3)
	a.Listed = true
	s.assetRepo.On("FindOne", mock.Anything, write.Intent.AssetId()).Return(a, nil).Once()
	newOwner := buyer
	s.assetRepo.On("UpdateWithVersion", mock.Anything, write.Intent.AssetId(), int64(3), asset.Patchable{
		Owner:     &newOwner,
		Listed:    ptr.Bool(false),
		UpdatedAt: &s.now,
	}).Return(nil).Once()

	s.pendingWriteRepo.On("Update", mock.Anything, ledger.Ref("ref-1"), mock.AnythingOfType("ledger.PendingWritePatchable")).
		Return(nil).Once()
	s.publisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.Event")).Return().Once()

	err := s.im.ApplyConfirmation(ctx.Background(), "ref-1", "0xtxhash")
	s.NoError(err)
	s.Equal(ledger.TxTypeSale, record.Type)
	s.Equal(ledger.Ref("ref-1"), record.Ref)
	s.Equal(domain.TxHash("0xtxhash"), record.TxHash)
}

func (s *testSuite) TestApplyConfirmationOnConfirmedWriteIsNoOp() {
	write := &ledger.PendingWrite{
		Ref: "ref-1",
		Intent: ledger.Intent{
			Type:      ledger.IntentPurchase,
			ListingId: "listing-1",
		},
		Status: ledger.WriteStatusConfirmed,
	}

	// no Insert, no entity patch, no event: a replayed confirmation for a
	// write that already reached a terminal state must change nothing
	s.pendingWriteRepo.On("FindOne", mock.Anything, ledger.Ref("ref-1")).Return(write, nil).Once()

	err := s.im.ApplyConfirmation(ctx.Background(), "ref-1", "0xtxhash")
	s.NoError(err)
	s.txRecordRepo.AssertNotCalled(s.T(), "Insert", mock.Anything, mock.Anything)
	s.publisher.AssertNotCalled(s.T(), "Publish", mock.Anything, mock.Anything)
}

func (s *testSuite) TestApplyConfirmationRecoversFromPartialApply() {
	// the record landed but the write was never marked confirmed, e.g. a
	// crash in between; the duplicate insert is the signal to finish the job
	write := &ledger.PendingWrite{
		Ref: "ref-1",
		Intent: ledger.Intent{
			Type:      ledger.IntentPurchase,
			ListingId: "listing-1",
		},
		Status: ledger.WriteStatusPending,
	}

	s.pendingWriteRepo.On("FindOne", mock.Anything, ledger.Ref("ref-1")).Return(write, nil).Once()
	s.txRecordRepo.On("Insert", mock.Anything, mock.AnythingOfType("*ledger.TransactionRecord")).
		Return(domain.ErrConflict).Once()
	s.pendingWriteRepo.On("Update", mock.Anything, ledger.Ref("ref-1"), mock.AnythingOfType("ledger.PendingWritePatchable")).
		Return(nil).Once()

	err := s.im.ApplyConfirmation(ctx.Background(), "ref-1", "0xtxhash")
	s.NoError(err)
}

func (s *testSuite) TestApplyConfirmationForMintCreatesAsset() {
	write := &ledger.PendingWrite{
		Ref: "ref-2",
		Intent: ledger.Intent{
			Type:            ledger.IntentMint,
			ChainId:         1,
			ContractAddress: "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			TokenId:         "7",
			To:              seller,
			TokenUri:        "ipfs://QmToken",
		},
		Status: ledger.WriteStatusPending,
	}

	s.pendingWriteRepo.On("FindOne", mock.Anything, ledger.Ref("ref-2")).Return(write, nil).Once()
	s.txRecordRepo.On("Insert", mock.Anything, mock.AnythingOfType("*ledger.TransactionRecord")).
		Return(nil).Once()

	var created *asset.Asset
	s.assetRepo.On("Create", mock.Anything, mock.AnythingOfType("*asset.Asset")).
		Run(func(args mock.Arguments) { created = args.Get(1).(*asset.Asset) }).
		Return(nil).Once()
	s.pendingWriteRepo.On("Update", mock.Anything, ledger.Ref("ref-2"), mock.AnythingOfType("ledger.PendingWritePatchable")).
		Return(nil).Once()
	s.publisher.On("Publish", mock.Anything, mock.AnythingOfType("*domain.Event")).Return().Once()

	err := s.im.ApplyConfirmation(ctx.Background(), "ref-2", "0xtxhash")
	s.NoError(err)
	s.Equal(seller, created.Owner)
	s.Equal(seller, created.Creator)
	s.Equal("ipfs://QmToken", created.TokenUri)
	s.Equal(int64(0), created.Version)
}

func (s *testSuite) TestFailPendingWriteRevertsSettlingAuction() {
	au := s.mockAuction(auction.StatusSettling, 4, -time.Minute)
	write := &ledger.PendingWrite{
		Ref: "ref-3",
		Intent: ledger.Intent{
			Type:      ledger.IntentAuctionSettlement,
			AuctionId: au.AuctionId.String(),
		},
		Status: ledger.WriteStatusPending,
	}

	s.pendingWriteRepo.On("FindOne", mock.Anything, ledger.Ref("ref-3")).Return(write, nil).Once()
	s.auctionRepo.On("FindOne", mock.Anything, au.AuctionId).Return(au, nil).Once()
	open := auction.StatusOpen
	s.auctionRepo.On("UpdateWithVersion", mock.Anything, au.AuctionId, int64(4), auction.Patchable{
		Status:    &open,
		UpdatedAt: &s.now,
	}).Return(nil).Once()
	s.pendingWriteRepo.On("Update", mock.Anything, ledger.Ref("ref-3"), mock.AnythingOfType("ledger.PendingWritePatchable")).
		Return(nil).Once()

	err := s.im.FailPendingWrite(ctx.Background(), "ref-3", "receipt reverted")
	s.NoError(err)
}

func (s *testSuite) TestFailPendingWriteIgnoresTerminalWrite() {
	write := &ledger.PendingWrite{
		Ref:    "ref-4",
		Intent: ledger.Intent{Type: ledger.IntentPurchase, ListingId: "listing-1"},
		Status: ledger.WriteStatusConfirmed,
	}

	s.pendingWriteRepo.On("FindOne", mock.Anything, ledger.Ref("ref-4")).Return(write, nil).Once()

	err := s.im.FailPendingWrite(ctx.Background(), "ref-4", "late failure")
	s.NoError(err)
}
