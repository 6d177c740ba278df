package domain

import (
	"encoding/json"

	"github.com/openmint/goapi/base/ctx"
)

type Metadata struct {
	json.RawMessage
}

// WebResourceRepo reads raw bytes behind a content reference (http(s) url or
// ipfs cid)
type WebResourceRepo interface {
	Get(ctx ctx.Ctx, uri string) ([]byte, error)
}

// MetadataUseCase resolves an asset's token uri to display metadata. The
// engine only ever stores the reference, never the content.
type MetadataUseCase interface {
	Resolve(ctx ctx.Ctx, tokenUri string) (*Metadata, error)
}
