package delivery

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/openmint/goapi/domain"
	"github.com/openmint/goapi/service/query"
)

func TestStatusOf(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{query.ErrNotFound, http.StatusNotFound},
		{domain.ErrConflict, http.StatusConflict},
		{domain.ErrStaleWrite, http.StatusConflict},
		{domain.ErrAuctionClosed, http.StatusConflict},
		{domain.ErrListingNotActive, http.StatusConflict},
		{domain.ErrSelfTrade, http.StatusConflict},
		{domain.ErrBadParamInput, http.StatusBadRequest},
		{domain.ErrBidTooLow, http.StatusBadRequest},
		{domain.ErrInvalidNumberFormat, http.StatusBadRequest},
		{domain.ErrInvalidChainId, http.StatusBadRequest},
		{domain.ErrInvalidAddress, http.StatusBadRequest},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrLedger, http.StatusBadGateway},
		{domain.ErrInternalServerError, http.StatusInternalServerError},
	}

	for _, c := range cases {
		assert.Equal(t, c.status, statusOf(c.err, http.StatusInternalServerError), c.err.Error())
	}
}
