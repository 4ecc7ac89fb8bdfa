package tradesink

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openexch/matchengine/pkg/match/model"
)

// Sink drains trades emitted on the leader into the external stores.
// It runs off the apply path: losing egress never affects engine state,
// trades can always be rebuilt by replaying the log, and the sink
// dedups on trade_id so the replay is idempotent.
type Sink struct {
	db       *gorm.DB
	producer *Producer
	rdb      *redis.Client
	topic    string
	dedupTTL time.Duration

	ch     chan []*model.Trade
	stopCh chan struct{}
	wg     sync.WaitGroup
	log    *zap.Logger
}

type Config struct {
	Topic     string
	QueueSize int
	DedupTTL  time.Duration
}

// New wires the sink. db, producer and rdb may each be nil; absent
// backends are skipped.
func New(db *gorm.DB, producer *Producer, rdb *redis.Client, cfg Config, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 24 * time.Hour
	}
	return &Sink{
		db:       db,
		producer: producer,
		rdb:      rdb,
		topic:    cfg.Topic,
		dedupTTL: cfg.DedupTTL,
		ch:       make(chan []*model.Trade, cfg.QueueSize),
		stopCh:   make(chan struct{}),
		log:      logger,
	}
}

// Start launches the egress goroutine.
func (s *Sink) Start() {
	s.wg.Add(1)
	go s.run()
}

// Publish enqueues a batch of trades. When the queue is full the batch
// is dropped with a warning rather than stalling the caller.
func (s *Sink) Publish(trades []*model.Trade) {
	if len(trades) == 0 {
		return
	}
	select {
	case s.ch <- trades:
	default:
		s.log.Warn("trade sink queue full, dropping batch",
			zap.Int("trades", len(trades)),
			zap.Uint64("first_trade_id", trades[0].TradeID))
	}
}

// Stop drains the queue and stops the egress goroutine.
func (s *Sink) Stop() {
	close(s.stopCh)
	s.wg.Wait()
	if s.producer != nil {
		s.producer.Close() //nolint:errcheck
	}
}

func (s *Sink) run() {
	defer s.wg.Done()
	for {
		select {
		case batch := <-s.ch:
			s.flush(batch)
		case <-s.stopCh:
			for {
				select {
				case batch := <-s.ch:
					s.flush(batch)
				default:
					return
				}
			}
		}
	}
}

func (s *Sink) flush(trades []*model.Trade) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fresh := trades
	if s.rdb != nil {
		fresh = fresh[:0:0]
		for _, t := range trades {
			ok, err := s.rdb.SetNX(ctx, "trade:"+strconv.FormatUint(t.TradeID, 10), 1, s.dedupTTL).Result()
			if err != nil {
				s.log.Warn("trade dedup check failed", zap.Uint64("trade_id", t.TradeID), zap.Error(err))
				fresh = append(fresh, t)
				continue
			}
			if ok {
				fresh = append(fresh, t)
			}
		}
		if len(fresh) == 0 {
			return
		}
	}

	if s.db != nil {
		records := make([]*TradeRecord, len(fresh))
		for i, t := range fresh {
			records[i] = recordFromTrade(t)
		}
		err := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&records).Error
		if err != nil {
			s.log.Error("trade sink insert failed",
				zap.Int("trades", len(records)), zap.Error(err))
		}
	}

	if s.producer != nil && s.topic != "" {
		for _, t := range fresh {
			payload, err := json.Marshal(t)
			if err != nil {
				s.log.Error("trade marshal failed", zap.Uint64("trade_id", t.TradeID), zap.Error(err))
				continue
			}
			key := []byte(t.Symbol)
			if err := s.producer.Publish(ctx, s.topic, key, payload); err != nil {
				s.log.Warn("trade publish failed", zap.Uint64("trade_id", t.TradeID), zap.Error(err))
			}
		}
	}
}
