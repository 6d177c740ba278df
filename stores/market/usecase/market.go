package usecase

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/base/log"
	"github.com/openmint/goapi/base/ptr"
	"github.com/openmint/goapi/domain"
	"github.com/openmint/goapi/domain/asset"
	"github.com/openmint/goapi/domain/auction"
	"github.com/openmint/goapi/domain/ledger"
	"github.com/openmint/goapi/domain/listing"
	"github.com/openmint/goapi/domain/market"
)

// confirmation paths retry asset updates a few times because they may race
// with lazy settlement triggers, never with user writes
const casRetries = 3

var timeNow = time.Now

type MarketUseCaseCfg struct {
	AssetRepo        asset.Repo
	ListingRepo      listing.Repo
	AuctionRepo      auction.Repo
	BidRepo          auction.BidRepo
	PendingWriteRepo ledger.PendingWriteRepo
	TxRecordRepo     ledger.TxRecordRepo
	LedgerClient     ledger.Client
	EventPublisher   domain.EventPublisher
}

type impl struct {
	assetRepo        asset.Repo
	listingRepo      listing.Repo
	auctionRepo      auction.Repo
	bidRepo          auction.BidRepo
	pendingWriteRepo ledger.PendingWriteRepo
	txRecordRepo     ledger.TxRecordRepo
	ledgerClient     ledger.Client
	eventPublisher   domain.EventPublisher
}

// New creates the market usecase, the sole writer of derived marketplace state
func New(cfg *MarketUseCaseCfg) market.UseCase {
	return &impl{
		assetRepo:        cfg.AssetRepo,
		listingRepo:      cfg.ListingRepo,
		auctionRepo:      cfg.AuctionRepo,
		bidRepo:          cfg.BidRepo,
		pendingWriteRepo: cfg.PendingWriteRepo,
		txRecordRepo:     cfg.TxRecordRepo,
		ledgerClient:     cfg.LedgerClient,
		eventPublisher:   cfg.EventPublisher,
	}
}

func (im *impl) Mint(c ctx.Ctx, params market.MintParams) (ledger.Ref, error) {
	c = ctx.WithValues(c, map[string]interface{}{
		"chainId":         params.ChainId,
		"contractAddress": params.ContractAddress,
		"tokenId":         params.TokenId,
		"creator":         params.Creator,
	})

	id := asset.Id{
		ChainId:         params.ChainId,
		ContractAddress: params.ContractAddress.ToLower(),
		TokenId:         params.TokenId,
	}
	if _, err := im.assetRepo.FindOne(c, id); err == nil {
		return "", domain.ErrConflict
	} else if err != domain.ErrNotFound {
		c.WithField("err", err).Error("assetRepo.FindOne failed")
		return "", err
	}

	ref := ledger.Ref(uuid.New().String())
	now := timeNow()
	write := &ledger.PendingWrite{
		Ref: ref,
		Intent: ledger.Intent{
			Type:            ledger.IntentMint,
			ChainId:         id.ChainId,
			ContractAddress: id.ContractAddress,
			TokenId:         id.TokenId,
			To:              params.Creator.ToLower(),
			TokenUri:        params.TokenUri,
		},
		Status:      ledger.WriteStatusPending,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	if err := im.pendingWriteRepo.Create(c, write); err != nil {
		c.WithField("err", err).Error("pendingWriteRepo.Create failed")
		return "", err
	}

	if err := im.ledgerClient.Submit(c, &write.Intent, ref); err != nil {
		c.WithFields(log.Fields{"err": err, "ref": ref}).Error("ledgerClient.Submit failed")
		if err := im.FailPendingWrite(c, ref, err.Error()); err != nil {
			c.WithFields(log.Fields{"err": err, "ref": ref}).Error("FailPendingWrite failed")
		}
		return "", domain.ErrLedger
	}

	return ref, nil
}

func (im *impl) List(c ctx.Ctx, params market.ListParams) (*listing.Listing, error) {
	c = ctx.WithValues(c, map[string]interface{}{
		"asset":  params.Asset.String(),
		"seller": params.Seller,
	})

	price, err := decimal.NewFromString(params.Price)
	if err != nil {
		return nil, domain.ErrInvalidNumberFormat
	}
	if !price.IsPositive() {
		return nil, domain.ErrBadParamInput
	}

	a, err := im.assetRepo.FindOne(c, params.Asset)
	if err != nil {
		return nil, err
	}
	if !a.Owner.Equals(params.Seller) {
		return nil, domain.ErrUnauthorized
	}
	if a.Listed || a.AuctionActive {
		return nil, domain.ErrConflict
	}

	now := timeNow()

	// flip the asset flag first so concurrent listers and auction starters
	// are serialized on the asset version
	err = im.assetRepo.UpdateWithVersion(c, params.Asset, a.Version, asset.Patchable{
		Listed:    ptr.Bool(true),
		UpdatedAt: &now,
	})
	if err != nil {
		return nil, err
	}

	l := &listing.Listing{
		ListingId:       listing.Id(uuid.New().String()),
		ChainId:         params.Asset.ChainId,
		ContractAddress: params.Asset.ContractAddress.ToLower(),
		TokenId:         params.Asset.TokenId,
		Seller:          params.Seller.ToLower(),
		Price:           price.String(),
		Currency:        params.Currency.ToLower(),
		Status:          listing.StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := im.listingRepo.Create(c, l); err != nil {
		c.WithField("err", err).Error("listingRepo.Create failed")
		im.unlockAsset(c, params.Asset, asset.Patchable{Listed: ptr.Bool(false)})
		return nil, err
	}

	im.eventPublisher.Publish(c, &domain.Event{
		Type:      domain.EventListed,
		AssetId:   params.Asset.String(),
		ActorId:   params.Seller.ToLower(),
		Payload:   l,
		Timestamp: now,
		Users:     []domain.Address{l.Seller},
	})

	return l, nil
}

func (im *impl) CancelListing(c ctx.Ctx, id listing.Id, requester domain.Address) error {
	c = ctx.WithValues(c, map[string]interface{}{
		"listingId": id,
		"requester": requester,
	})

	l, err := im.listingRepo.FindOne(c, id)
	if err != nil {
		return err
	}
	if !l.Seller.Equals(requester) {
		return domain.ErrUnauthorized
	}
	// a listing that is no longer active is gone from the caller's point of
	// view, there is nothing left to cancel
	if l.Status != listing.StatusActive {
		return domain.ErrNotFound
	}

	now := timeNow()
	status := listing.StatusCancelled
	err = im.listingRepo.UpdateWithVersion(c, id, l.Version, listing.Patchable{
		Status:    &status,
		UpdatedAt: &now,
	})
	if err != nil {
		return err
	}

	im.unlockAsset(c, l.AssetId(), asset.Patchable{Listed: ptr.Bool(false)})

	im.eventPublisher.Publish(c, &domain.Event{
		Type:      domain.EventCancelled,
		AssetId:   l.AssetId().String(),
		ActorId:   requester.ToLower(),
		Payload:   l,
		Timestamp: now,
		Users:     []domain.Address{l.Seller},
	})

	return nil
}

func (im *impl) Buy(c ctx.Ctx, id listing.Id, buyer domain.Address) (ledger.Ref, error) {
	c = ctx.WithValues(c, map[string]interface{}{
		"listingId": id,
		"buyer":     buyer,
	})

	l, err := im.listingRepo.FindOne(c, id)
	if err != nil {
		return "", err
	}
	if l.Status != listing.StatusActive {
		return "", domain.ErrListingNotActive
	}
	if l.Seller.Equals(buyer) {
		return "", domain.ErrSelfTrade
	}

	// winning this compare and swap locks the listing; the loser of a
	// concurrent buy observes a stale version here
	now := timeNow()
	status := listing.StatusPendingSale
	err = im.listingRepo.UpdateWithVersion(c, id, l.Version, listing.Patchable{
		Status:    &status,
		UpdatedAt: &now,
	})
	if err != nil {
		return "", err
	}

	ref := ledger.Ref(uuid.New().String())
	write := &ledger.PendingWrite{
		Ref: ref,
		Intent: ledger.Intent{
			Type:            ledger.IntentPurchase,
			ChainId:         l.ChainId,
			ContractAddress: l.ContractAddress,
			TokenId:         l.TokenId,
			From:            l.Seller,
			To:              buyer.ToLower(),
			Price:           l.Price,
			Currency:        l.Currency,
			ListingId:       l.ListingId.String(),
		},
		Status:      ledger.WriteStatusPending,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	if err := im.pendingWriteRepo.Create(c, write); err != nil {
		c.WithField("err", err).Error("pendingWriteRepo.Create failed")
		im.revertListing(c, id, l.Version+1)
		return "", err
	}

	if err := im.ledgerClient.Submit(c, &write.Intent, ref); err != nil {
		c.WithFields(log.Fields{"err": err, "ref": ref}).Error("ledgerClient.Submit failed")
		if err := im.FailPendingWrite(c, ref, err.Error()); err != nil {
			c.WithFields(log.Fields{"err": err, "ref": ref}).Error("FailPendingWrite failed")
		}
		return "", domain.ErrLedger
	}

	return ref, nil
}

func (im *impl) StartAuction(c ctx.Ctx, params market.StartAuctionParams) (*auction.Auction, error) {
	c = ctx.WithValues(c, map[string]interface{}{
		"asset":  params.Asset.String(),
		"seller": params.Seller,
	})

	if params.Duration <= 0 {
		return nil, domain.ErrBadParamInput
	}
	reserve := decimal.Zero
	if params.ReservePrice != "" {
		var err error
		if reserve, err = decimal.NewFromString(params.ReservePrice); err != nil {
			return nil, domain.ErrInvalidNumberFormat
		}
		if reserve.IsNegative() {
			return nil, domain.ErrBadParamInput
		}
	}

	a, err := im.assetRepo.FindOne(c, params.Asset)
	if err != nil {
		return nil, err
	}
	if !a.Owner.Equals(params.Seller) {
		return nil, domain.ErrUnauthorized
	}
	if a.Listed || a.AuctionActive {
		return nil, domain.ErrConflict
	}

	now := timeNow()
	err = im.assetRepo.UpdateWithVersion(c, params.Asset, a.Version, asset.Patchable{
		AuctionActive: ptr.Bool(true),
		UpdatedAt:     &now,
	})
	if err != nil {
		return nil, err
	}

	au := &auction.Auction{
		AuctionId:       auction.Id(uuid.New().String()),
		ChainId:         params.Asset.ChainId,
		ContractAddress: params.Asset.ContractAddress.ToLower(),
		TokenId:         params.Asset.TokenId,
		Seller:          params.Seller.ToLower(),
		ReservePrice:    reserve.String(),
		StartTime:       now,
		EndTime:         now.Add(params.Duration),
		Status:          auction.StatusOpen,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := im.auctionRepo.Create(c, au); err != nil {
		c.WithField("err", err).Error("auctionRepo.Create failed")
		im.unlockAsset(c, params.Asset, asset.Patchable{AuctionActive: ptr.Bool(false)})
		return nil, err
	}

	im.eventPublisher.Publish(c, &domain.Event{
		Type:      domain.EventAuctionStarted,
		AssetId:   params.Asset.String(),
		ActorId:   au.Seller,
		Payload:   au,
		Timestamp: now,
		Users:     []domain.Address{au.Seller},
	})

	return au, nil
}

func (im *impl) CancelAuction(c ctx.Ctx, id auction.Id, requester domain.Address) error {
	c = ctx.WithValues(c, map[string]interface{}{
		"auctionId": id,
		"requester": requester,
	})

	au, err := im.auctionRepo.FindOne(c, id)
	if err != nil {
		return err
	}
	if !au.Seller.Equals(requester) {
		return domain.ErrUnauthorized
	}
	if au.Status != auction.StatusOpen {
		return domain.ErrAuctionClosed
	}

	now := timeNow()
	if au.Expired(now) {
		// too late to cancel; settle lazily instead
		if _, err := im.SettleAuction(c, id); err != nil {
			c.WithField("err", err).Error("lazy SettleAuction failed")
		}
		return domain.ErrAuctionClosed
	}

	status := auction.StatusCancelled
	err = im.auctionRepo.UpdateWithVersion(c, id, au.Version, auction.Patchable{
		Status:    &status,
		UpdatedAt: &now,
	})
	if err != nil {
		return err
	}

	im.unlockAsset(c, au.AssetId(), asset.Patchable{AuctionActive: ptr.Bool(false)})

	users := []domain.Address{au.Seller}
	if au.HasBid() {
		users = append(users, au.HighestBidder)
	}
	im.eventPublisher.Publish(c, &domain.Event{
		Type:      domain.EventAuctionCancelled,
		AssetId:   au.AssetId().String(),
		ActorId:   requester.ToLower(),
		Payload:   au,
		Timestamp: now,
		Users:     users,
	})

	return nil
}

func (im *impl) PlaceBid(c ctx.Ctx, id auction.Id, bidder domain.Address, amount string) (*auction.Bid, error) {
	c = ctx.WithValues(c, map[string]interface{}{
		"auctionId": id,
		"bidder":    bidder,
		"amount":    amount,
	})

	au, err := im.auctionRepo.FindOne(c, id)
	if err != nil {
		return nil, err
	}
	if au.Status != auction.StatusOpen {
		return nil, domain.ErrAuctionClosed
	}

	now := timeNow()
	if au.Expired(now) {
		if _, err := im.SettleAuction(c, id); err != nil {
			c.WithField("err", err).Error("lazy SettleAuction failed")
		}
		return nil, domain.ErrAuctionClosed
	}

	if au.Seller.Equals(bidder) {
		return nil, domain.ErrSelfTrade
	}

	bid, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, domain.ErrInvalidNumberFormat
	}
	highest, err := au.HighestBidDecimal()
	if err != nil {
		return nil, err
	}
	reserve, err := au.ReservePriceDecimal()
	if err != nil {
		return nil, err
	}
	if bid.LessThan(reserve) || (au.HasBid() && !bid.GreaterThan(highest)) || !bid.IsPositive() {
		return nil, domain.ErrBidTooLow
	}

	// losers of concurrent bids fail this compare and swap and must re-read
	prevBidder := au.HighestBidder
	bidStr := bid.String()
	newBidder := bidder.ToLower()
	err = im.auctionRepo.UpdateWithVersion(c, id, au.Version, auction.Patchable{
		HighestBid:    &bidStr,
		HighestBidder: &newBidder,
		UpdatedAt:     &now,
	})
	if err != nil {
		return nil, err
	}

	b := &auction.Bid{
		AuctionId: id,
		Bidder:    bidder.ToLower(),
		Amount:    bidStr,
		PlacedAt:  now,
		Accepted:  true,
	}
	if err := im.bidRepo.Insert(c, b); err != nil {
		c.WithField("err", err).Error("bidRepo.Insert failed")
		return nil, err
	}

	users := []domain.Address{au.Seller, b.Bidder}
	if !prevBidder.IsEmpty() {
		users = append(users, prevBidder)
	}
	im.eventPublisher.Publish(c, &domain.Event{
		Type:      domain.EventBidAccepted,
		AssetId:   au.AssetId().String(),
		ActorId:   b.Bidder,
		Payload:   b,
		Timestamp: now,
		Users:     users,
	})

	return b, nil
}

func (im *impl) SettleAuction(c ctx.Ctx, id auction.Id) (*auction.Auction, error) {
	c = ctx.WithValues(c, map[string]interface{}{
		"auctionId": id,
	})

	au, err := im.auctionRepo.FindOne(c, id)
	if err != nil {
		return nil, err
	}

	switch au.Status {
	case auction.StatusSettled, auction.StatusCancelled, auction.StatusSettling:
		// already terminal or in flight; settlement is idempotent
		return au, nil
	case auction.StatusOpen:
	default:
		return nil, domain.ErrInternalServerError
	}

	now := timeNow()
	if !au.Expired(now) {
		return nil, domain.ErrConflict
	}

	highest, err := au.HighestBidDecimal()
	if err != nil {
		return nil, err
	}
	reserve, err := au.ReservePriceDecimal()
	if err != nil {
		return nil, err
	}

	if !au.HasBid() || highest.LessThan(reserve) {
		// no sale; close out without touching the ledger
		status := auction.StatusSettled
		err := im.auctionRepo.UpdateWithVersion(c, id, au.Version, auction.Patchable{
			Status:    &status,
			UpdatedAt: &now,
		})
		if err == domain.ErrStaleWrite {
			// another trigger won; report whatever it produced
			return im.auctionRepo.FindOne(c, id)
		} else if err != nil {
			return nil, err
		}

		im.unlockAsset(c, au.AssetId(), asset.Patchable{AuctionActive: ptr.Bool(false)})

		au.Status = status
		im.eventPublisher.Publish(c, &domain.Event{
			Type:      domain.EventAuctionSettled,
			AssetId:   au.AssetId().String(),
			ActorId:   au.Seller,
			Payload:   au,
			Timestamp: now,
			Users:     []domain.Address{au.Seller},
		})
		return au, nil
	}

	status := auction.StatusSettling
	err = im.auctionRepo.UpdateWithVersion(c, id, au.Version, auction.Patchable{
		Status:    &status,
		UpdatedAt: &now,
	})
	if err == domain.ErrStaleWrite {
		return im.auctionRepo.FindOne(c, id)
	} else if err != nil {
		return nil, err
	}
	au.Status = status

	ref := ledger.Ref(uuid.New().String())
	write := &ledger.PendingWrite{
		Ref: ref,
		Intent: ledger.Intent{
			Type:            ledger.IntentAuctionSettlement,
			ChainId:         au.ChainId,
			ContractAddress: au.ContractAddress,
			TokenId:         au.TokenId,
			From:            au.Seller,
			To:              au.HighestBidder,
			Price:           au.HighestBid,
			AuctionId:       au.AuctionId.String(),
		},
		Status:      ledger.WriteStatusPending,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	if err := im.pendingWriteRepo.Create(c, write); err != nil {
		c.WithField("err", err).Error("pendingWriteRepo.Create failed")
		im.revertAuction(c, id, au.Version+1)
		return nil, err
	}

	if err := im.ledgerClient.Submit(c, &write.Intent, ref); err != nil {
		c.WithFields(log.Fields{"err": err, "ref": ref}).Error("ledgerClient.Submit failed")
		if err := im.FailPendingWrite(c, ref, err.Error()); err != nil {
			c.WithFields(log.Fields{"err": err, "ref": ref}).Error("FailPendingWrite failed")
		}
		return nil, domain.ErrLedger
	}

	return au, nil
}

func (im *impl) ApplyConfirmation(c ctx.Ctx, ref ledger.Ref, txHash domain.TxHash) error {
	c = ctx.WithValues(c, map[string]interface{}{
		"ref":    ref,
		"txHash": txHash,
	})

	write, err := im.pendingWriteRepo.FindOne(c, ref)
	if err != nil {
		return err
	}
	if write.Status != ledger.WriteStatusPending {
		return nil
	}

	record := recordFromIntent(&write.Intent, ref, txHash, timeNow())
	if err := im.txRecordRepo.Insert(c, record); err == domain.ErrConflict {
		// replayed confirmation; the record is the idempotency anchor
		return im.markWrite(c, ref, ledger.WriteStatusConfirmed, "")
	} else if err != nil {
		return err
	}

	switch write.Intent.Type {
	case ledger.IntentMint:
		if err := im.applyMint(c, &write.Intent); err != nil {
			return err
		}
	case ledger.IntentPurchase:
		if err := im.applyPurchase(c, &write.Intent); err != nil {
			return err
		}
	case ledger.IntentAuctionSettlement:
		if err := im.applySettlement(c, &write.Intent); err != nil {
			return err
		}
	default:
		c.WithField("type", write.Intent.Type).Error("unknown intent type")
		return domain.ErrInternalServerError
	}

	if err := im.markWrite(c, ref, ledger.WriteStatusConfirmed, ""); err != nil {
		return err
	}

	im.publishConfirmed(c, write, record)
	return nil
}

func (im *impl) FailPendingWrite(c ctx.Ctx, ref ledger.Ref, reason string) error {
	c = ctx.WithValues(c, map[string]interface{}{
		"ref":    ref,
		"reason": reason,
	})

	write, err := im.pendingWriteRepo.FindOne(c, ref)
	if err != nil {
		return err
	}
	if write.Status != ledger.WriteStatusPending {
		return nil
	}

	now := timeNow()
	switch write.Intent.Type {
	case ledger.IntentMint:
		// nothing was locked; the asset is only created on confirmation
	case ledger.IntentPurchase:
		l, err := im.listingRepo.FindOne(c, listing.Id(write.Intent.ListingId))
		if err != nil {
			return err
		}
		if l.Status == listing.StatusPendingSale {
			status := listing.StatusActive
			err := im.listingRepo.UpdateWithVersion(c, l.ListingId, l.Version, listing.Patchable{
				Status:    &status,
				UpdatedAt: &now,
			})
			if err != nil && err != domain.ErrStaleWrite {
				return err
			}
		}
	case ledger.IntentAuctionSettlement:
		au, err := im.auctionRepo.FindOne(c, auction.Id(write.Intent.AuctionId))
		if err != nil {
			return err
		}
		if au.Status == auction.StatusSettling {
			status := auction.StatusOpen
			err := im.auctionRepo.UpdateWithVersion(c, au.AuctionId, au.Version, auction.Patchable{
				Status:    &status,
				UpdatedAt: &now,
			})
			if err != nil && err != domain.ErrStaleWrite {
				return err
			}
		}
	}

	return im.markWrite(c, ref, ledger.WriteStatusFailed, reason)
}

func (im *impl) applyMint(c ctx.Ctx, intent *ledger.Intent) error {
	now := timeNow()
	a := &asset.Asset{
		ChainId:         intent.ChainId,
		ContractAddress: intent.ContractAddress,
		TokenId:         intent.TokenId,
		Owner:           intent.To,
		Creator:         intent.To,
		TokenUri:        intent.TokenUri,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := im.assetRepo.Create(c, a); err == domain.ErrConflict {
		return nil
	} else if err != nil {
		return err
	}
	return nil
}

func (im *impl) applyPurchase(c ctx.Ctx, intent *ledger.Intent) error {
	now := timeNow()
	l, err := im.listingRepo.FindOne(c, listing.Id(intent.ListingId))
	if err != nil {
		return err
	}
	if l.Status == listing.StatusPendingSale {
		status := listing.StatusFulfilled
		err := im.listingRepo.UpdateWithVersion(c, l.ListingId, l.Version, listing.Patchable{
			Status:    &status,
			UpdatedAt: &now,
		})
		if err != nil && err != domain.ErrStaleWrite {
			return err
		}
	}

	owner := intent.To
	return im.updateAssetWithRetry(c, intent.AssetId(), asset.Patchable{
		Owner:  &owner,
		Listed: ptr.Bool(false),
	})
}

func (im *impl) applySettlement(c ctx.Ctx, intent *ledger.Intent) error {
	now := timeNow()
	au, err := im.auctionRepo.FindOne(c, auction.Id(intent.AuctionId))
	if err != nil {
		return err
	}
	if au.Status == auction.StatusSettling {
		status := auction.StatusSettled
		err := im.auctionRepo.UpdateWithVersion(c, au.AuctionId, au.Version, auction.Patchable{
			Status:    &status,
			UpdatedAt: &now,
		})
		if err != nil && err != domain.ErrStaleWrite {
			return err
		}
	}

	owner := intent.To
	return im.updateAssetWithRetry(c, intent.AssetId(), asset.Patchable{
		Owner:         &owner,
		AuctionActive: ptr.Bool(false),
	})
}

func (im *impl) markWrite(c ctx.Ctx, ref ledger.Ref, status ledger.WriteStatus, reason string) error {
	now := timeNow()
	patch := ledger.PendingWritePatchable{
		Status:    &status,
		UpdatedAt: &now,
	}
	if reason != "" {
		patch.Reason = &reason
	}
	if err := im.pendingWriteRepo.Update(c, ref, patch); err != nil {
		c.WithFields(log.Fields{"err": err, "ref": ref}).Error("pendingWriteRepo.Update failed")
		return err
	}
	return nil
}

// unlockAsset clears lifecycle flags with a short retry, used on paths where
// losing means a flag leaks and blocks the asset forever
func (im *impl) unlockAsset(c ctx.Ctx, id asset.Id, patch asset.Patchable) {
	if err := im.updateAssetWithRetry(c, id, patch); err != nil {
		c.WithFields(log.Fields{"err": err, "asset": id.String()}).Error("unlockAsset failed")
	}
}

func (im *impl) updateAssetWithRetry(c ctx.Ctx, id asset.Id, patch asset.Patchable) error {
	var lastErr error
	for i := 0; i < casRetries; i++ {
		a, err := im.assetRepo.FindOne(c, id)
		if err != nil {
			return err
		}
		now := timeNow()
		patch.UpdatedAt = &now
		err = im.assetRepo.UpdateWithVersion(c, id, a.Version, patch)
		if err == nil {
			return nil
		}
		if err != domain.ErrStaleWrite {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (im *impl) revertListing(c ctx.Ctx, id listing.Id, version int64) {
	now := timeNow()
	status := listing.StatusActive
	err := im.listingRepo.UpdateWithVersion(c, id, version, listing.Patchable{
		Status:    &status,
		UpdatedAt: &now,
	})
	if err != nil {
		c.WithFields(log.Fields{"err": err, "listingId": id}).Error("revertListing failed")
	}
}

func (im *impl) revertAuction(c ctx.Ctx, id auction.Id, version int64) {
	now := timeNow()
	status := auction.StatusOpen
	err := im.auctionRepo.UpdateWithVersion(c, id, version, auction.Patchable{
		Status:    &status,
		UpdatedAt: &now,
	})
	if err != nil {
		c.WithFields(log.Fields{"err": err, "auctionId": id}).Error("revertAuction failed")
	}
}

func (im *impl) publishConfirmed(c ctx.Ctx, write *ledger.PendingWrite, record *ledger.TransactionRecord) {
	now := timeNow()
	switch write.Intent.Type {
	case ledger.IntentPurchase:
		im.eventPublisher.Publish(c, &domain.Event{
			Type:      domain.EventSold,
			AssetId:   write.Intent.AssetId().String(),
			ActorId:   write.Intent.To,
			Payload:   record,
			Timestamp: now,
			Users:     []domain.Address{write.Intent.From, write.Intent.To},
		})
	case ledger.IntentAuctionSettlement:
		im.eventPublisher.Publish(c, &domain.Event{
			Type:      domain.EventAuctionSettled,
			AssetId:   write.Intent.AssetId().String(),
			ActorId:   write.Intent.To,
			Payload:   record,
			Timestamp: now,
			Users:     []domain.Address{write.Intent.From, write.Intent.To},
		})
	case ledger.IntentMint:
		im.eventPublisher.Publish(c, &domain.Event{
			Type:      domain.EventMinted,
			AssetId:   write.Intent.AssetId().String(),
			ActorId:   write.Intent.To,
			Payload:   record,
			Timestamp: now,
			Users:     []domain.Address{write.Intent.To},
		})
	}
}

func recordFromIntent(intent *ledger.Intent, ref ledger.Ref, txHash domain.TxHash, now time.Time) *ledger.TransactionRecord {
	var txType ledger.TransactionType
	switch intent.Type {
	case ledger.IntentMint:
		txType = ledger.TxTypeMint
	case ledger.IntentPurchase:
		txType = ledger.TxTypeSale
	case ledger.IntentAuctionSettlement:
		txType = ledger.TxTypeAuctionSettlement
	default:
		txType = ledger.TxTypeTransfer
	}
	return &ledger.TransactionRecord{
		ChainId:         intent.ChainId,
		ContractAddress: intent.ContractAddress,
		TokenId:         intent.TokenId,
		Seller:          intent.From,
		Buyer:           intent.To,
		Price:           intent.Price,
		Currency:        intent.Currency,
		TxHash:          txHash,
		Type:            txType,
		Ref:             ref,
		Time:            now,
	}
}
