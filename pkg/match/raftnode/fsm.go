package raftnode

import (
	"io"
	"sync"

	"github.com/hashicorp/raft"
	"go.uber.org/zap"

	"github.com/openexch/matchengine/pkg/match/model"
	"github.com/openexch/matchengine/pkg/match/orderbook"
	"github.com/openexch/matchengine/pkg/match/processor"
)

// FSM adapts the order processor to the raft state machine contract.
// Raft drives Apply/Snapshot/Restore from a single goroutine; the lock
// only fences the read-only query path used by the RPC front-end.
type FSM struct {
	mu   sync.RWMutex
	proc *processor.OrderProcessor
	log  *zap.Logger
}

func NewFSM(proc *processor.OrderProcessor, logger *zap.Logger) *FSM {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FSM{proc: proc, log: logger}
}

// Apply decodes a committed log entry and executes it. A command that
// cannot be decoded is answered with InternalError: every replica sees
// the same bytes, so every replica answers identically.
func (f *FSM) Apply(l *raft.Log) interface{} {
	cmd, err := model.DecodeCommand(l.Data)
	if err != nil {
		f.log.Error("undecodable log entry",
			zap.Uint64("index", l.Index),
			zap.Error(err))
		return &processor.ApplyResult{Code: model.CodeInternalError, Message: err.Error()}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.proc.Apply(cmd)
}

// Snapshot captures the engine state between commands.
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return &fsmSnapshot{data: f.proc.Snapshot()}, nil
}

// Restore replaces the engine state from a snapshot stream.
func (f *FSM) Restore(rc io.ReadCloser) error {
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.proc.Restore(data)
}

// QueryOrder serves the read-only order lookup, bypassing the log.
func (f *FSM) QueryOrder(symbol, orderID string) (*model.Order, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.proc.QueryOrder(symbol, orderID)
}

// ListSymbols serves the read-only symbol listing.
func (f *FSM) ListSymbols() []*model.Symbol {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.proc.ListSymbols()
}

// Depth serves the read-only aggregated book depth.
func (f *FSM) Depth(symbol string, limit int) (bids, asks []orderbook.Level, err error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.proc.Depth(symbol, limit)
}

type fsmSnapshot struct {
	data []byte
}

func (s *fsmSnapshot) Persist(sink raft.SnapshotSink) error {
	if _, err := sink.Write(s.data); err != nil {
		sink.Cancel() //nolint:errcheck
		return err
	}
	return sink.Close()
}

func (s *fsmSnapshot) Release() {}
