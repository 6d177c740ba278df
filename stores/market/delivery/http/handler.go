package http

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/labstack/echo/v4"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/base/delivery"
	"github.com/openmint/goapi/domain"
	"github.com/openmint/goapi/domain/asset"
	"github.com/openmint/goapi/domain/auction"
	"github.com/openmint/goapi/domain/ledger"
	"github.com/openmint/goapi/domain/listing"
	"github.com/openmint/goapi/domain/market"
	"github.com/openmint/goapi/service/hub"
	authMiddleware "github.com/openmint/goapi/stores/auth/delivery/http/middleware"
)

const (
	defaultPageSize = int32(20)
	maxPageSize     = int32(100)
)

type handler struct {
	marketUC    market.UseCase
	assetRepo   asset.Repo
	listingRepo listing.Repo
	auctionRepo auction.Repo
	bidRepo     auction.BidRepo
	txRepo      ledger.TxRecordRepo
}

func New(
	e *echo.Echo,
	marketUC market.UseCase,
	assetRepo asset.Repo,
	listingRepo listing.Repo,
	auctionRepo auction.Repo,
	bidRepo auction.BidRepo,
	txRepo ledger.TxRecordRepo,
	eventHub *hub.Hub,
	auth *authMiddleware.AuthMiddleware,
) {
	h := &handler{
		marketUC:    marketUC,
		assetRepo:   assetRepo,
		listingRepo: listingRepo,
		auctionRepo: auctionRepo,
		bidRepo:     bidRepo,
		txRepo:      txRepo,
	}

	g := e.Group("/market")
	g.POST("/mint", h.mint, auth.Auth())
	g.POST("/listings", h.list, auth.Auth())
	g.DELETE("/listings/:listingId", h.cancelListing, auth.Auth())
	g.POST("/listings/:listingId/buy", h.buy, auth.Auth())
	g.POST("/auctions", h.startAuction, auth.Auth())
	g.DELETE("/auctions/:auctionId", h.cancelAuction, auth.Auth())
	g.POST("/auctions/:auctionId/bids", h.placeBid, auth.Auth())
	// settlement is permissionless, anyone may crank an expired auction
	g.POST("/auctions/:auctionId/settle", h.settleAuction)

	g.GET("/assets", h.getAssets)
	g.GET("/assets/:chainId/:contract/:tokenId", h.getAsset)
	g.GET("/listings", h.getListings)
	g.GET("/auctions", h.getAuctions)
	g.GET("/auctions/:auctionId", h.getAuction)
	g.GET("/auctions/:auctionId/bids", h.getBids)
	g.GET("/transactions", h.getTransactions)

	e.GET("/ws", eventHub.ServeWs, auth.OptionalAuth())
}

func (h *handler) mint(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	address := c.Get("address").(domain.Address)

	p := market.MintParams{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}
	if err := c.Validate(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}
	p.Creator = address

	if ref, err := h.marketUC.Mint(ctx, p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusAccepted, ref)
	}
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	address := c.Get("address").(domain.Address)

	p := market.ListParams{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}
	if err := c.Validate(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}
	p.Seller = address

	if l, err := h.marketUC.List(ctx, p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusCreated, l)
	}
}

func (h *handler) cancelListing(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	address := c.Get("address").(domain.Address)
	id := listing.Id(c.Param("listingId"))

	if err := h.marketUC.CancelListing(ctx, id, address); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) buy(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	address := c.Get("address").(domain.Address)
	id := listing.Id(c.Param("listingId"))

	if ref, err := h.marketUC.Buy(ctx, id, address); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusAccepted, ref)
	}
}

func (h *handler) startAuction(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	address := c.Get("address").(domain.Address)

	p := market.StartAuctionParams{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}
	if err := c.Validate(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}
	p.Seller = address

	if au, err := h.marketUC.StartAuction(ctx, p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusCreated, au)
	}
}

func (h *handler) cancelAuction(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	address := c.Get("address").(domain.Address)
	id := auction.Id(c.Param("auctionId"))

	if err := h.marketUC.CancelAuction(ctx, id, address); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}
	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) placeBid(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	address := c.Get("address").(domain.Address)
	id := auction.Id(c.Param("auctionId"))

	type params struct {
		Amount string `json:"amount" validate:"required"`
	}
	p := params{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}
	if err := c.Validate(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	if bid, err := h.marketUC.PlaceBid(ctx, id, address, p.Amount); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusCreated, bid)
	}
}

func (h *handler) settleAuction(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	id := auction.Id(c.Param("auctionId"))

	if au, err := h.marketUC.SettleAuction(ctx, id); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, au)
	}
}

func (h *handler) getAssets(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	type params struct {
		Owner         *domain.Address `query:"owner"`
		Collection    *domain.Address `query:"collection"`
		ChainId       *domain.ChainId `query:"chainId"`
		Listed        *bool           `query:"listed"`
		AuctionActive *bool           `query:"auctionActive"`
		Offset        int32           `query:"offset"`
		Limit         int32           `query:"limit"`
	}
	p := params{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	opts := []asset.FindAllOptionsFunc{
		asset.WithPagination(p.Offset, pageSize(p.Limit)),
	}
	if p.Owner != nil {
		opts = append(opts, asset.WithOwner(*p.Owner))
	}
	if p.Collection != nil {
		opts = append(opts, asset.WithCollection(*p.Collection))
	}
	if p.ChainId != nil {
		opts = append(opts, asset.WithChainId(*p.ChainId))
	}
	if p.Listed != nil {
		opts = append(opts, asset.WithListed(*p.Listed))
	}
	if p.AuctionActive != nil {
		opts = append(opts, asset.WithAuctionActive(*p.AuctionActive))
	}

	if assets, err := h.assetRepo.FindAll(ctx, opts...); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, assets)
	}
}

func (h *handler) getAsset(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	id, err := parseAssetId(c)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	if a, err := h.assetRepo.FindOne(ctx, id); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, a)
	}
}

func (h *handler) getListings(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	type params struct {
		ChainId  *domain.ChainId `query:"chainId"`
		Contract *domain.Address `query:"contract"`
		TokenId  *domain.TokenId `query:"tokenId"`
		Seller   *domain.Address `query:"seller"`
		Status   *listing.Status `query:"status"`
		Offset   int32           `query:"offset"`
		Limit    int32           `query:"limit"`
	}
	p := params{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	opts := []listing.FindAllOptionsFunc{
		listing.WithPagination(p.Offset, pageSize(p.Limit)),
	}
	if p.ChainId != nil && p.Contract != nil && p.TokenId != nil {
		opts = append(opts, listing.WithAsset(asset.Id{
			ChainId:         *p.ChainId,
			ContractAddress: *p.Contract,
			TokenId:         *p.TokenId,
		}))
	}
	if p.Seller != nil {
		opts = append(opts, listing.WithSeller(*p.Seller))
	}
	if p.Status != nil {
		opts = append(opts, listing.WithStatuses(*p.Status))
	}

	if listings, err := h.listingRepo.FindAll(ctx, opts...); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, listings)
	}
}

func (h *handler) getAuctions(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	type params struct {
		ChainId  *domain.ChainId `query:"chainId"`
		Contract *domain.Address `query:"contract"`
		TokenId  *domain.TokenId `query:"tokenId"`
		Seller   *domain.Address `query:"seller"`
		Status   *auction.Status `query:"status"`
		Offset   int32           `query:"offset"`
		Limit    int32           `query:"limit"`
	}
	p := params{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	opts := []auction.FindAllOptionsFunc{
		auction.WithPagination(p.Offset, pageSize(p.Limit)),
	}
	if p.ChainId != nil && p.Contract != nil && p.TokenId != nil {
		opts = append(opts, auction.WithAsset(asset.Id{
			ChainId:         *p.ChainId,
			ContractAddress: *p.Contract,
			TokenId:         *p.TokenId,
		}))
	}
	if p.Seller != nil {
		opts = append(opts, auction.WithSeller(*p.Seller))
	}
	if p.Status != nil {
		opts = append(opts, auction.WithStatuses(*p.Status))
	}

	if auctions, err := h.auctionRepo.FindAll(ctx, opts...); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, auctions)
	}
}

func (h *handler) getAuction(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	id := auction.Id(c.Param("auctionId"))

	if au, err := h.auctionRepo.FindOne(ctx, id); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, au)
	}
}

func (h *handler) getBids(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)
	id := auction.Id(c.Param("auctionId"))

	if bids, err := h.bidRepo.FindAll(ctx, auction.BidWithAuctionId(id)); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, bids)
	}
}

func (h *handler) getTransactions(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	type params struct {
		ChainId  *domain.ChainId `query:"chainId"`
		Contract *domain.Address `query:"contract"`
		TokenId  *domain.TokenId `query:"tokenId"`
		Account  *domain.Address `query:"account"`
		Offset   int32           `query:"offset"`
		Limit    int32           `query:"limit"`
	}
	p := params{}
	if err := c.Bind(&p); err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, err)
	}

	opts := []ledger.TxRecordFindAllOptionsFunc{
		ledger.TxRecordWithPagination(p.Offset, pageSize(p.Limit)),
	}
	if p.ChainId != nil && p.Contract != nil && p.TokenId != nil {
		opts = append(opts, ledger.TxRecordWithAsset(asset.Id{
			ChainId:         *p.ChainId,
			ContractAddress: *p.Contract,
			TokenId:         *p.TokenId,
		}))
	}
	if p.Account != nil {
		opts = append(opts, ledger.TxRecordWithAccount(*p.Account))
	}

	if records, err := h.txRepo.FindAll(ctx, opts...); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, records)
	}
}

func parseAssetId(c echo.Context) (asset.Id, error) {
	chainId, err := strconv.ParseInt(c.Param("chainId"), 10, 32)
	if err != nil || chainId <= 0 {
		return asset.Id{}, domain.ErrInvalidChainId
	}
	contract := c.Param("contract")
	if !common.IsHexAddress(contract) {
		return asset.Id{}, domain.ErrInvalidAddress
	}
	tokenId := c.Param("tokenId")
	if tokenId == "" {
		return asset.Id{}, domain.ErrBadParamInput
	}
	return asset.Id{
		ChainId:         domain.ChainId(chainId),
		ContractAddress: domain.Address(contract),
		TokenId:         domain.TokenId(tokenId),
	}, nil
}

func pageSize(limit int32) int32 {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}
