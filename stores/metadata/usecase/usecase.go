package usecase

import (
	"encoding/json"

	"github.com/coocood/freecache"

	"github.com/openmint/goapi/base/ctx"
	"github.com/openmint/goapi/base/metrics"
	"github.com/openmint/goapi/domain"
)

const (
	cacheSizeMb  = 64
	cacheTtlSecs = 10 * 60
)

type impl struct {
	webResource domain.WebResourceRepo
	cache       *freecache.Cache
	met         metrics.Service
}

type MetadataCfg struct {
	WebResource domain.WebResourceRepo
	Metrics     metrics.Service
}

// New resolves token uris through an in process cache. Metadata is immutable
// in practice, the ttl only bounds memory spent on assets nobody looks at.
func New(cfg *MetadataCfg) domain.MetadataUseCase {
	met := cfg.Metrics
	if met == nil {
		met = metrics.New("metadata")
	}
	return &impl{
		webResource: cfg.WebResource,
		cache:       freecache.NewCache(cacheSizeMb * 1024 * 1024),
		met:         met,
	}
}

func (im *impl) Resolve(c ctx.Ctx, tokenUri string) (*domain.Metadata, error) {
	key := []byte(tokenUri)

	if val, err := im.cache.Get(key); err == nil {
		im.met.BumpSum("cache.hit", 1)
		return &domain.Metadata{RawMessage: val}, nil
	} else if err != freecache.ErrNotFound {
		c.WithField("err", err).Warn("cache.Get failed")
	}
	im.met.BumpSum("cache.miss", 1)

	raw, err := im.webResource.Get(c, tokenUri)
	if err != nil {
		return nil, err
	}
	if !json.Valid(raw) {
		c.WithField("tokenUri", tokenUri).Warn("metadata is not valid json")
		return nil, domain.ErrBadParamInput
	}

	if err := im.cache.Set(key, raw, cacheTtlSecs); err != nil {
		c.WithField("err", err).Warn("cache.Set failed")
	}

	return &domain.Metadata{RawMessage: raw}, nil
}
