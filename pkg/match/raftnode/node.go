package raftnode

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hashicorp/raft"
	"go.uber.org/zap"

	"github.com/openexch/matchengine/pkg/match/model"
	"github.com/openexch/matchengine/pkg/match/processor"
	"github.com/openexch/matchengine/pkg/raftstore"
)

// ErrNotLeader is returned when a proposal reaches a follower. The
// caller should redirect to LeaderAddr.
var ErrNotLeader = errors.New("node is not the raft leader")

// Config wires one engine replica into its consensus group.
type Config struct {
	// NodeID is this node's id; it must appear as a key in Peers.
	NodeID string
	// Peers maps node id to raft address for the whole group.
	Peers map[string]string
	// DataDir holds the raft log store and snapshots.
	DataDir string
	// SnapshotThreshold is the number of committed entries between
	// snapshots; zero keeps the raft default.
	SnapshotThreshold uint64
	// ProposeTimeout bounds how long a proposal may wait for apply.
	ProposeTimeout time.Duration
}

// Node owns the raft group membership and the propose path. All
// state-changing requests funnel through Propose; the FSM applies them
// in commit order on every replica.
type Node struct {
	raft  *raft.Raft
	fsm   *FSM
	store *raftstore.Store
	cfg   *Config
	log   *zap.Logger
}

// NewNode opens the log store, starts the raft instance and, on a
// fresh data dir, bootstraps the cluster from the configured peers.
func NewNode(cfg *Config, fsm *FSM, logger *zap.Logger) (*Node, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	bindAddr, ok := cfg.Peers[cfg.NodeID]
	if !ok {
		return nil, fmt.Errorf("node id %q not present in raft_peers", cfg.NodeID)
	}
	if cfg.ProposeTimeout <= 0 {
		cfg.ProposeTimeout = 5 * time.Second
	}

	rc := raft.DefaultConfig()
	rc.LocalID = raft.ServerID(cfg.NodeID)
	rc.LogOutput = zap.NewStdLog(logger.Named("raft")).Writer()
	if cfg.SnapshotThreshold > 0 {
		rc.SnapshotThreshold = cfg.SnapshotThreshold
	}

	store, err := raftstore.Open(filepath.Join(cfg.DataDir, "raft"))
	if err != nil {
		return nil, fmt.Errorf("open raft store: %w", err)
	}
	snaps, err := raft.NewFileSnapshotStore(cfg.DataDir, 2, os.Stderr)
	if err != nil {
		store.Close() //nolint:errcheck
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	addr, err := net.ResolveTCPAddr("tcp", bindAddr)
	if err != nil {
		store.Close() //nolint:errcheck
		return nil, fmt.Errorf("resolve raft addr %s: %w", bindAddr, err)
	}
	transport, err := raft.NewTCPTransport(bindAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		store.Close() //nolint:errcheck
		return nil, fmt.Errorf("raft transport: %w", err)
	}

	hasState, err := raft.HasExistingState(store, store, snaps)
	if err != nil {
		store.Close() //nolint:errcheck
		return nil, err
	}

	r, err := raft.NewRaft(rc, fsm, store, store, snaps, transport)
	if err != nil {
		store.Close() //nolint:errcheck
		return nil, fmt.Errorf("start raft: %w", err)
	}

	if !hasState {
		var servers []raft.Server
		ids := make([]string, 0, len(cfg.Peers))
		for id := range cfg.Peers {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			servers = append(servers, raft.Server{
				ID:      raft.ServerID(id),
				Address: raft.ServerAddress(cfg.Peers[id]),
			})
		}
		if err := r.BootstrapCluster(raft.Configuration{Servers: servers}).Error(); err != nil &&
			!errors.Is(err, raft.ErrCantBootstrap) {
			return nil, fmt.Errorf("bootstrap cluster: %w", err)
		}
		logger.Info("bootstrapped raft cluster", zap.Int("peers", len(servers)))
	}

	return &Node{raft: r, fsm: fsm, store: store, cfg: cfg, log: logger}, nil
}

// Propose stamps the command with the leader's clock, replicates it
// and waits for the local apply. Once accepted by raft the command
// will be applied even if the caller has gone away.
func (n *Node) Propose(cmd *model.Command) (*processor.ApplyResult, error) {
	if n.raft.State() != raft.Leader {
		return nil, ErrNotLeader
	}
	cmd.ApplyTime = time.Now().UnixNano()
	data, err := model.EncodeCommand(cmd)
	if err != nil {
		return nil, err
	}

	fut := n.raft.Apply(data, n.cfg.ProposeTimeout)
	done := make(chan error, 1)
	go func() { done <- fut.Error() }()
	select {
	case err = <-done:
	case <-time.After(n.cfg.ProposeTimeout):
		return nil, fmt.Errorf("proposal not applied within %s", n.cfg.ProposeTimeout)
	}
	if err != nil {
		if errors.Is(err, raft.ErrNotLeader) || errors.Is(err, raft.ErrLeadershipLost) {
			return nil, ErrNotLeader
		}
		return nil, err
	}
	res, ok := fut.Response().(*processor.ApplyResult)
	if !ok {
		return nil, fmt.Errorf("unexpected apply response %T", fut.Response())
	}
	return res, nil
}

// FSM exposes the state machine for read-only queries.
func (n *Node) FSM() *FSM {
	return n.fsm
}

// IsLeader reports whether this node currently leads the group.
func (n *Node) IsLeader() bool {
	return n.raft.State() == raft.Leader
}

// LeaderAddr returns the current leader's raft address, if known.
func (n *Node) LeaderAddr() string {
	addr, _ := n.raft.LeaderWithID()
	return string(addr)
}

// Shutdown stops raft and closes the log store.
func (n *Node) Shutdown() error {
	if err := n.raft.Shutdown().Error(); err != nil {
		n.store.Close() //nolint:errcheck
		return err
	}
	return n.store.Close()
}
