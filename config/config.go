package config

import (
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	postgres_wrapper "github.com/openexch/matchengine/pkg/infra/postgres"
	redis_wrapper "github.com/openexch/matchengine/pkg/infra/redis"
)

// RaftPeer is one member of the consensus group.
type RaftPeer struct {
	ID   string `yaml:"id"`
	Addr string `yaml:"addr"`
}

type AppConfig struct {
	ServiceName string `yaml:"service_name"`

	NodeID                  string     `yaml:"node_id"`
	RaftPeers               []RaftPeer `yaml:"raft_peers"`
	ListenAddr              string     `yaml:"listen_addr"`
	DataDir                 string     `yaml:"data_dir"`
	SnapshotIntervalEntries uint64     `yaml:"snapshot_interval_entries"`
	LogLevel                string     `yaml:"log_level"`
	// HistoryRetention is how many terminal orders stay queryable.
	HistoryRetention int `yaml:"history_retention"`

	// Trade sink. TradeSinkURL is the postgres DSN; the block tunes
	// the pool and migrations.
	TradeSinkURL string                           `yaml:"trade_sink_url"`
	TradeSink    *postgres_wrapper.PostgresConfig `yaml:"trade_sink"`
	TradeTopic   string                           `yaml:"trade_topic"`
	KafkaBrokers []string                         `yaml:"kafka_brokers"`
	Redis        *redis_wrapper.RedisConfig       `yaml:"redis"`
}

// PeerMap returns the raft peers as id -> address.
func (c *AppConfig) PeerMap() map[string]string {
	peers := make(map[string]string, len(c.RaftPeers))
	for _, p := range c.RaftPeers {
		peers[p.ID] = p.Addr
	}
	return peers
}

// SinkConfig resolves the effective postgres config for the trade sink,
// nil when no sink is configured.
func (c *AppConfig) SinkConfig() *postgres_wrapper.PostgresConfig {
	if c.TradeSink != nil {
		if c.TradeSink.DataSource == "" {
			c.TradeSink.DataSource = c.TradeSinkURL
		}
		return c.TradeSink
	}
	if c.TradeSinkURL != "" {
		return &postgres_wrapper.PostgresConfig{DataSource: c.TradeSinkURL}
	}
	return nil
}

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	fields := []interface{}{
		"func",
		"config.readFromFile",
		"filePath",
		filePath,
	}

	sugar := zap.S().With(fields...)

	sugar.Debug("Load config...")
	zap.S().Debugf("CONFIG_FILE=%v", filePath)

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	cfg := &AppConfig{}

	err = yaml.Unmarshal(configBytes, cfg)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}
