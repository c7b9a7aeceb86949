package announcements

import (
	"github.com/pkg/errors"

	"github.com/tonwatch/liteserver-tracker/domain/blocks"
)

var (
	ErrEmptyPayload       = errors.New("empty announcement payload")
	ErrUnknownCompression = errors.New("unknown compression codec")
	ErrBadHash            = errors.New("block hash must be 32 bytes")
)

// HeadAnnouncement is the message block producers publish when a new
// masterchain block is sealed.
type HeadAnnouncement struct {
	Workchain int32  `cbor:"workchain"`
	Shard     uint64 `cbor:"shard"`
	Seqno     uint32 `cbor:"seqno"`
	RootHash  []byte `cbor:"root_hash"`
	FileHash  []byte `cbor:"file_hash"`
	GenUtime  uint32 `cbor:"gen_utime"`
}

// ToChainHead validates the announcement and converts it into the
// domain head value.
func (a *HeadAnnouncement) ToChainHead() (*blocks.ChainHead, error) {
	if len(a.RootHash) != 32 || len(a.FileHash) != 32 {
		return nil, ErrBadHash
	}

	head := &blocks.ChainHead{
		Last: blocks.BlockIDExt{
			BlockID: blocks.BlockID{
				Workchain: a.Workchain,
				Shard:     a.Shard,
				Seqno:     a.Seqno,
			},
		},
		Utime: a.GenUtime,
	}
	copy(head.Last.RootHash[:], a.RootHash)
	copy(head.Last.FileHash[:], a.FileHash)
	return head, nil
}

// FromChainHead builds the announcement for a head, for publishers and
// tests.
func FromChainHead(head *blocks.ChainHead) *HeadAnnouncement {
	return &HeadAnnouncement{
		Workchain: head.Last.Workchain,
		Shard:     head.Last.Shard,
		Seqno:     head.Last.Seqno,
		RootHash:  append([]byte(nil), head.Last.RootHash[:]...),
		FileHash:  append([]byte(nil), head.Last.FileHash[:]...),
		GenUtime:  head.Utime,
	}
}
