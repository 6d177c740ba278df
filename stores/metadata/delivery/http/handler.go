package http

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/base/delivery"
	"github.com/openmint/goapi/domain"
	"github.com/openmint/goapi/domain/asset"
)

type handler struct {
	metadata  domain.MetadataUseCase
	assetRepo asset.Repo
}

func New(e *echo.Echo, metadata domain.MetadataUseCase, assetRepo asset.Repo) {
	h := &handler{metadata: metadata, assetRepo: assetRepo}
	e.GET("/market/assets/:chainId/:contract/:tokenId/metadata", h.getMetadata)
}

func (h *handler) getMetadata(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	chainId, err := strconv.ParseInt(c.Param("chainId"), 10, 32)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, domain.ErrBadParamInput)
	}

	a, err := h.assetRepo.FindOne(ctx, asset.Id{
		ChainId:         domain.ChainId(chainId),
		ContractAddress: domain.Address(c.Param("contract")),
		TokenId:         domain.TokenId(c.Param("tokenId")),
	})
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}

	if meta, err := h.metadata.Resolve(ctx, a.TokenUri); err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, meta)
	}
}
