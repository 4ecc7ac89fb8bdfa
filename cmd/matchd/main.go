package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/redis/go-redis/v9"

	"github.com/openexch/matchengine/config"
	"github.com/openexch/matchengine/pkg/api"
	postgres_wrapper "github.com/openexch/matchengine/pkg/infra/postgres"
	redis_wrapper "github.com/openexch/matchengine/pkg/infra/redis"
	"github.com/openexch/matchengine/pkg/logging"
	"github.com/openexch/matchengine/pkg/match/processor"
	"github.com/openexch/matchengine/pkg/match/raftnode"
	"github.com/openexch/matchengine/pkg/tradesink"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	logger := logging.NewZapLogger(logging.ParseLevel(cfg.LogLevel))
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	sink := buildSink(cfg, logger)
	if sink != nil {
		sink.Start()
	}

	proc := processor.New(cfg.HistoryRetention, logger.Named("processor"))
	fsm := raftnode.NewFSM(proc, logger.Named("fsm"))

	node, err := raftnode.NewNode(&raftnode.Config{
		NodeID:            cfg.NodeID,
		Peers:             cfg.PeerMap(),
		DataDir:           cfg.DataDir,
		SnapshotThreshold: cfg.SnapshotIntervalEntries,
		ProposeTimeout:    5 * time.Second,
	}, fsm, logger.Named("raft"))
	if err != nil {
		logger.Fatal("start raft node", zap.Error(err))
	}

	server := api.NewServer(node, sink, logger.Named("api"))
	go func() {
		if err := server.Start(cfg.ListenAddr); err != nil {
			logger.Fatal("api server", zap.Error(err))
		}
	}()

	fmt.Println("match engine started. Press Ctrl+C to exit.")

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs

	fmt.Println("Shutting down...")
	if err := node.Shutdown(); err != nil {
		logger.Error("raft shutdown", zap.Error(err))
	}
	if sink != nil {
		sink.Stop()
	}
	fmt.Println("Exited cleanly.")
}

func buildSink(cfg *config.AppConfig, logger *zap.Logger) *tradesink.Sink {
	sinkCfg := cfg.SinkConfig()
	if sinkCfg == nil && len(cfg.KafkaBrokers) == 0 {
		return nil
	}

	var db *gorm.DB
	if sinkCfg != nil {
		db = postgres_wrapper.InitPostgresWithBackoff(sinkCfg)
	}

	var producer *tradesink.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer = tradesink.NewProducer(tradesink.ProducerConfig{Brokers: cfg.KafkaBrokers})
	}

	rdb := buildRedis(cfg, logger)

	return tradesink.New(db, producer, rdb, tradesink.Config{
		Topic: cfg.TradeTopic,
	}, logger.Named("tradesink"))
}

func buildRedis(cfg *config.AppConfig, logger *zap.Logger) *redis.Client {
	if cfg.Redis == nil {
		return nil
	}
	rdb, err := redis_wrapper.InitRedis(cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, trade dedup disabled", zap.Error(err))
		return nil
	}
	return rdb
}
