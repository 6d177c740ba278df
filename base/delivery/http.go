package delivery

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/openmint/goapi/domain"
	"github.com/openmint/goapi/service/query"
)

type JsonResponseStatus string

const (
	JsonResponseStatusSuccess JsonResponseStatus = "success"
	JsonResponseStatusFail    JsonResponseStatus = "fail"
)

type JsonResponse struct {
	Data   interface{}        `json:"data"`
	Status JsonResponseStatus `json:"status"`
}

// MakeJsonResp writes the uniform response envelope. Errors passed as data
// override the status code so handlers never hand-pick codes for domain
// failures.
func MakeJsonResp(c echo.Context, status int, data interface{}) error {
	if err, ok := data.(error); ok {
		status = statusOf(err, status)
		data = err.Error()
	}

	if status >= 400 {
		return c.JSON(status, JsonResponse{data, JsonResponseStatusFail})
	}

	if status >= 200 && status < 300 {
		return c.JSON(status, JsonResponse{data, JsonResponseStatusSuccess})
	}

	return c.JSON(status, data)
}

func statusOf(err error, fallback int) int {
	switch {
	case errors.Is(err, domain.ErrNotFound) || errors.Is(err, query.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrStaleWrite):
		return http.StatusConflict
	case errors.Is(err, domain.ErrAuctionClosed) ||
		errors.Is(err, domain.ErrListingNotActive) ||
		errors.Is(err, domain.ErrSelfTrade):
		return http.StatusConflict
	case errors.Is(err, domain.ErrBadParamInput) ||
		errors.Is(err, domain.ErrBidTooLow) ||
		errors.Is(err, domain.ErrInvalidNumberFormat) ||
		errors.Is(err, domain.ErrInvalidChainId) ||
		errors.Is(err, domain.ErrInvalidAddress):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrLedger):
		return http.StatusBadGateway
	}
	return fallback
}
