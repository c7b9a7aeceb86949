package blocks

import (
	"encoding/hex"
	"fmt"
)

const (
	// MasterchainID is the workchain id of the TON masterchain.
	MasterchainID int32 = -1

	// MasterchainShard is the only shard of the masterchain.
	MasterchainShard uint64 = 0x8000000000000000
)

// BlockID addresses a block by its chain coordinate alone,
// without integrity hashes. This is what seqno lookups operate on.
type BlockID struct {
	Workchain int32
	Shard     uint64
	Seqno     uint32
}

func MasterchainBlockID(seqno uint32) BlockID {
	return BlockID{
		Workchain: MasterchainID,
		Shard:     MasterchainShard,
		Seqno:     seqno,
	}
}

func (id BlockID) String() string {
	return fmt.Sprintf("(%d,%016x,%d)", id.Workchain, id.Shard, id.Seqno)
}

// BlockIDExt is a full block identifier: chain coordinate plus the
// root-cell and file hashes that pin down the exact block contents.
// Immutable once constructed.
type BlockIDExt struct {
	BlockID
	RootHash [32]byte
	FileHash [32]byte
}

func (id BlockIDExt) String() string {
	return fmt.Sprintf(
		"(%d,%016x,%d):%s:%s",
		id.Workchain, id.Shard, id.Seqno,
		hex.EncodeToString(id.RootHash[:]),
		hex.EncodeToString(id.FileHash[:]),
	)
}
