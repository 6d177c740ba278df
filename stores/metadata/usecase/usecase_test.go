package usecase

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/base/metrics"
	"github.com/openmint/goapi/domain"
	"github.com/openmint/goapi/domain/mocks"
)

type metadataSuite struct {
	suite.Suite

	webResource *mocks.WebResourceRepo
	uc          domain.MetadataUseCase
}

func TestMetadataSuite(t *testing.T) {
	suite.Run(t, new(metadataSuite))
}

func (s *metadataSuite) SetupTest() {
	s.webResource = &mocks.WebResourceRepo{}
	s.uc = New(&MetadataCfg{
		WebResource: s.webResource,
		Metrics:     metrics.NewNop(),
	})
}

func (s *metadataSuite) TearDownTest() {
	s.webResource.AssertExpectations(s.T())
}

func (s *metadataSuite) TestResolveFetchesOnceThenServesFromCache() {
	raw := []byte(`{"name":"token #42"}`)
	s.webResource.On("Get", mock.Anything, "ipfs://Qm123").Return(raw, nil).Once()

	for i := 0; i < 3; i++ {
		meta, err := s.uc.Resolve(ctx.Background(), "ipfs://Qm123")
		s.Require().NoError(err)
		s.JSONEq(`{"name":"token #42"}`, string(meta.RawMessage))
	}
}

func (s *metadataSuite) TestResolveRejectsNonJsonPayload() {
	s.webResource.On("Get", mock.Anything, "https://example.com/meta").
		Return([]byte("<html>not json</html>"), nil).Once()

	_, err := s.uc.Resolve(ctx.Background(), "https://example.com/meta")
	s.Equal(domain.ErrBadParamInput, err)
}

func (s *metadataSuite) TestResolvePropagatesFetchError() {
	s.webResource.On("Get", mock.Anything, "ipfs://QmDown").
		Return(nil, errors.New("gateway timeout")).Once()

	_, err := s.uc.Resolve(ctx.Background(), "ipfs://QmDown")
	s.Error(err)
}
