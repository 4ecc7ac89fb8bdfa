// Package raftstore backs the raft log and stable stores with pebble.
package raftstore

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/hashicorp/raft"
)

const (
	prefixLog    = 'l'
	prefixStable = 's'
)

// Store implements raft.LogStore and raft.StableStore on one pebble
// database. Log keys are the prefix byte followed by the big-endian
// index so that pebble's key order is the log order.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) the store at dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func logKey(index uint64) []byte {
	key := make([]byte, 9)
	key[0] = prefixLog
	binary.BigEndian.PutUint64(key[1:], index)
	return key
}

func stableKey(k []byte) []byte {
	return append([]byte{prefixStable}, k...)
}

// FirstIndex returns the first index written, 0 for an empty log.
func (s *Store) FirstIndex() (uint64, error) {
	return s.boundaryIndex(func(it *pebble.Iterator) bool { return it.First() })
}

// LastIndex returns the last index written, 0 for an empty log.
func (s *Store) LastIndex() (uint64, error) {
	return s.boundaryIndex(func(it *pebble.Iterator) bool { return it.Last() })
}

func (s *Store) boundaryIndex(position func(*pebble.Iterator) bool) (uint64, error) {
	it, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: logKey(0),
		UpperBound: []byte{prefixLog + 1},
	})
	if err != nil {
		return 0, err
	}
	defer it.Close() //nolint:errcheck
	if !position(it) {
		return 0, nil
	}
	return binary.BigEndian.Uint64(it.Key()[1:]), nil
}

// GetLog reads the log entry at index into out.
func (s *Store) GetLog(index uint64, out *raft.Log) error {
	value, closer, err := s.db.Get(logKey(index))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return raft.ErrLogNotFound
		}
		return err
	}
	defer closer.Close() //nolint:errcheck
	return decodeLog(value, out)
}

// StoreLog appends a single log entry.
func (s *Store) StoreLog(l *raft.Log) error {
	return s.StoreLogs([]*raft.Log{l})
}

// StoreLogs appends a batch of log entries atomically.
func (s *Store) StoreLogs(logs []*raft.Log) error {
	batch := s.db.NewBatch()
	defer batch.Close() //nolint:errcheck
	for _, l := range logs {
		if err := batch.Set(logKey(l.Index), encodeLog(l), nil); err != nil {
			return err
		}
	}
	return s.db.Apply(batch, pebble.Sync)
}

// DeleteRange removes entries in [min, max] inclusive.
func (s *Store) DeleteRange(min, max uint64) error {
	return s.db.DeleteRange(logKey(min), logKey(max+1), pebble.Sync)
}

// Set stores a stable-store key.
func (s *Store) Set(k, v []byte) error {
	return s.db.Set(stableKey(k), v, pebble.Sync)
}

// Get reads a stable-store key. Raft expects the literal "not found"
// error text for missing keys.
func (s *Store) Get(k []byte) ([]byte, error) {
	value, closer, err := s.db.Get(stableKey(k))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, errors.New("not found")
		}
		return nil, err
	}
	defer closer.Close() //nolint:errcheck
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// SetUint64 stores a stable-store counter.
func (s *Store) SetUint64(k []byte, v uint64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return s.Set(k, buf[:])
}

// GetUint64 reads a stable-store counter.
func (s *Store) GetUint64(k []byte) (uint64, error) {
	v, err := s.Get(k)
	if err != nil {
		return 0, err
	}
	if len(v) != 8 {
		return 0, fmt.Errorf("stable value for %q has length %d", k, len(v))
	}
	return binary.BigEndian.Uint64(v), nil
}

func encodeLog(l *raft.Log) []byte {
	var buf bytes.Buffer
	var scratch [8]byte

	binary.BigEndian.PutUint64(scratch[:], l.Index)
	buf.Write(scratch[:])
	binary.BigEndian.PutUint64(scratch[:], l.Term)
	buf.Write(scratch[:])
	buf.WriteByte(byte(l.Type))

	binary.BigEndian.PutUint32(scratch[:4], uint32(len(l.Data)))
	buf.Write(scratch[:4])
	buf.Write(l.Data)

	binary.BigEndian.PutUint32(scratch[:4], uint32(len(l.Extensions)))
	buf.Write(scratch[:4])
	buf.Write(l.Extensions)

	binary.BigEndian.PutUint64(scratch[:], uint64(l.AppendedAt.UnixNano()))
	buf.Write(scratch[:])
	return buf.Bytes()
}

func decodeLog(data []byte, out *raft.Log) error {
	r := bytes.NewReader(data)
	var scratch [8]byte

	if _, err := io.ReadFull(r, scratch[:]); err != nil {
		return err
	}
	out.Index = binary.BigEndian.Uint64(scratch[:])
	if _, err := io.ReadFull(r, scratch[:]); err != nil {
		return err
	}
	out.Term = binary.BigEndian.Uint64(scratch[:])

	typ, err := r.ReadByte()
	if err != nil {
		return err
	}
	out.Type = raft.LogType(typ)

	if _, err := io.ReadFull(r, scratch[:4]); err != nil {
		return err
	}
	out.Data = make([]byte, binary.BigEndian.Uint32(scratch[:4]))
	if _, err := io.ReadFull(r, out.Data); err != nil {
		return err
	}

	if _, err := io.ReadFull(r, scratch[:4]); err != nil {
		return err
	}
	n := binary.BigEndian.Uint32(scratch[:4])
	if n > 0 {
		out.Extensions = make([]byte, n)
		if _, err := io.ReadFull(r, out.Extensions); err != nil {
			return err
		}
	}

	if _, err := io.ReadFull(r, scratch[:]); err != nil {
		return err
	}
	out.AppendedAt = time.Unix(0, int64(binary.BigEndian.Uint64(scratch[:])))
	return nil
}
