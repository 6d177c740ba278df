package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/openmint/goapi/domain"
)

func newAssetIdContext(chainId, contract, tokenId string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("chainId", "contract", "tokenId")
	c.SetParamValues(chainId, contract, tokenId)
	return c
}

func TestParseAssetId(t *testing.T) {
	id, err := parseAssetId(newAssetIdContext("1", "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "7"))
	assert.NoError(t, err)
	assert.Equal(t, domain.ChainId(1), id.ChainId)
	assert.Equal(t, domain.TokenId("7"), id.TokenId)

	_, err = parseAssetId(newAssetIdContext("abc", "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "7"))
	assert.Equal(t, domain.ErrInvalidChainId, err)

	_, err = parseAssetId(newAssetIdContext("0", "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "7"))
	assert.Equal(t, domain.ErrInvalidChainId, err)

	_, err = parseAssetId(newAssetIdContext("1", "not-an-address", "7"))
	assert.Equal(t, domain.ErrInvalidAddress, err)

	_, err = parseAssetId(newAssetIdContext("1", "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", ""))
	assert.Equal(t, domain.ErrBadParamInput, err)
}
