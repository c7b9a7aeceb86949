package blocks

// Header is the block metadata returned by a liteserver for a single
// block id. Immutable value, safe to share between goroutines.
type Header struct {
	ID                BlockIDExt
	GlobalID          int32
	Version           uint32
	PrevKeyBlockSeqno uint32
	GenUtime          uint32
	IsKeyBlock        bool
}
