package blocks

// ChainHead is the newest known masterchain block, as reported by a
// liteserver or announced on a block feed. Seqno never decreases over
// time, though a locally held value may lag behind the network.
type ChainHead struct {
	Last          BlockIDExt
	StateRootHash [32]byte
	Utime         uint32
}
