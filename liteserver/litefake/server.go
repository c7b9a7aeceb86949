package litefake

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tonwatch/liteserver-tracker/domain/blocks"
	"github.com/tonwatch/liteserver-tracker/liteserver"
)

// Server is an in-memory liteserver holding masterchain blocks
// [boundary, head]. Everything below the boundary counts as pruned.
// It implements liteserver.Client directly, plus knobs to move the
// head and the pruning boundary and to script per-seqno failures.
type Server struct {
	mu       sync.Mutex
	boundary uint32
	head     uint32
	advanced chan struct{}
	scripts  map[uint32][]error
	hold     chan struct{}
	probes   int

	inflight int32
}

func New(boundary, head uint32) *Server {
	return &Server{
		boundary: boundary,
		head:     head,
		advanced: make(chan struct{}),
		scripts:  make(map[uint32][]error),
	}
}

// SetBoundary archives away all blocks below seqno.
func (s *Server) SetBoundary(seqno uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seqno > s.boundary {
		s.boundary = seqno
	}
}

// AdvanceHead grows the chain and wakes blocked WaitMasterchainSeqno calls.
func (s *Server) AdvanceHead(seqno uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seqno <= s.head {
		return
	}
	s.head = seqno
	close(s.advanced)
	s.advanced = make(chan struct{})
}

// ScriptLookup queues results for upcoming LookupBlock calls on the
// given seqno; each queued error is consumed by exactly one call.
func (s *Server) ScriptLookup(seqno uint32, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[seqno] = append(s.scripts[seqno], errs...)
}

// HoldLookups makes LookupBlock calls block until the returned release
// func is called (or the caller's context ends).
func (s *Server) HoldLookups() (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hold := make(chan struct{})
	s.hold = hold
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.hold == hold {
			s.hold = nil
		}
		close(hold)
	}
}

// Probes returns the number of LookupBlock calls made so far.
func (s *Server) Probes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.probes
}

// InFlight returns the number of client calls currently executing.
func (s *Server) InFlight() int32 {
	return atomic.LoadInt32(&s.inflight)
}

func (s *Server) GetMasterchainInfo(ctx context.Context) (*blocks.ChainHead, error) {
	atomic.AddInt32(&s.inflight, 1)
	defer atomic.AddInt32(&s.inflight, -1)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chainHeadLocked(), nil
}

func (s *Server) WaitMasterchainSeqno(ctx context.Context, seqno uint32, timeout time.Duration) (*blocks.ChainHead, error) {
	atomic.AddInt32(&s.inflight, 1)
	defer atomic.AddInt32(&s.inflight, -1)

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		s.mu.Lock()
		if s.head >= seqno {
			head := s.chainHeadLocked()
			s.mu.Unlock()
			return head, nil
		}
		advanced := s.advanced
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, fmt.Errorf("wait for seqno %d: %w", seqno, liteserver.ErrTimeout)
		case <-advanced:
		}
	}
}

func (s *Server) LookupBlock(ctx context.Context, id blocks.BlockID) (*blocks.Header, error) {
	atomic.AddInt32(&s.inflight, 1)
	defer atomic.AddInt32(&s.inflight, -1)

	s.mu.Lock()
	s.probes++
	hold := s.hold
	var scripted error
	if q := s.scripts[id.Seqno]; len(q) > 0 {
		scripted, s.scripts[id.Seqno] = q[0], q[1:]
	}
	boundary, head := s.boundary, s.head
	s.mu.Unlock()

	if hold != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-hold:
		}
	}

	if scripted != nil {
		return nil, scripted
	}
	if id.Workchain != blocks.MasterchainID || id.Shard != blocks.MasterchainShard {
		return nil, fmt.Errorf("fake serves masterchain only, got %s: %w", id, liteserver.ErrNotFound)
	}
	if id.Seqno < boundary || id.Seqno > head {
		return nil, &liteserver.ServerError{Code: 651, Message: "block is not in db"}
	}
	return s.header(id.Seqno), nil
}

func (s *Server) GetBlockHeader(ctx context.Context, id blocks.BlockIDExt) (*blocks.Header, error) {
	atomic.AddInt32(&s.inflight, 1)
	defer atomic.AddInt32(&s.inflight, -1)

	s.mu.Lock()
	boundary, head := s.boundary, s.head
	s.mu.Unlock()

	if id.Seqno < boundary || id.Seqno > head {
		return nil, &liteserver.ServerError{Code: 651, Message: "block is not in db"}
	}
	hdr := s.header(id.Seqno)
	if hdr.ID != id {
		return nil, fmt.Errorf("unknown block %s: %w", id, liteserver.ErrProtocol)
	}
	return hdr, nil
}

func (s *Server) chainHeadLocked() *blocks.ChainHead {
	return &blocks.ChainHead{
		Last:  BlockID(s.head),
		Utime: uint32(time.Now().Unix()),
	}
}

func (s *Server) header(seqno uint32) *blocks.Header {
	return &blocks.Header{
		ID:       BlockID(seqno),
		GlobalID: -239,
		Version:  0,
		GenUtime: 1700000000 + seqno,
	}
}

// BlockID builds the deterministic full id the fake assigns to the
// masterchain block with the given seqno.
func BlockID(seqno uint32) blocks.BlockIDExt {
	id := blocks.BlockIDExt{BlockID: blocks.MasterchainBlockID(seqno)}
	binary.BigEndian.PutUint32(id.RootHash[:4], seqno)
	id.RootHash[4] = 'r'
	binary.BigEndian.PutUint32(id.FileHash[:4], seqno)
	id.FileHash[4] = 'f'
	return id
}
