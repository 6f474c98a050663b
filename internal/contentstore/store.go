// Package contentstore uploads post media and metadata to an IPFS-compatible
// content store and returns the content paths used in ipfs:// URIs.
package contentstore

import (
	"context"
	"errors"
	"io"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

var (
	ErrInvalidEndpoint = errors.New("contentstore: invalid endpoint")
	ErrInvalidCID      = errors.New("contentstore: invalid cid")
	ErrNotFound        = errors.New("contentstore: not found")
	ErrUploadFailed    = errors.New("contentstore: upload failed")
)

// Store is implemented by the IPFS HTTP client and MemoryStore.
type Store interface {
	Add(ctx context.Context, name string, r io.Reader) (AddResult, error)
}

type AddResult struct {
	Path string  `json:"path"`
	CID  cid.Cid `json:"-"`
	Size int64   `json:"size"`
}

// URI returns the ipfs:// form of the added content.
func (r AddResult) URI() string {
	return "ipfs://" + r.Path
}

// CIDv1Raw returns the CIDv1 (raw codec, sha2-256) of data.
func CIDv1Raw(data []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}
