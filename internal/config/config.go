package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/out/kafka"
	"github.com/JoeShih716/go-bank-ledger/pkg/database"
	"github.com/JoeShih716/go-bank-ledger/pkg/logger"
)

// 帳本後端
const (
	BackendSQL    = "sql"
	BackendMemory = "memory"
)

// DefaultPath 預設設定檔位置
const DefaultPath = "config/config.yaml"

type Config struct {
	Store  StoreConfig   `yaml:"store"`
	Memory MemoryConfig  `yaml:"memory"`
	Ledger LedgerConfig  `yaml:"ledger"`
	GRPC   GRPCConfig    `yaml:"grpc"`
	HTTP   HTTPConfig    `yaml:"http"`
	Log    logger.Config `yaml:"log"`
	Kafka  kafka.Config  `yaml:"kafka"`
}

// StoreConfig 選擇帳本後端；sql 時使用 Database
type StoreConfig struct {
	Backend  string          `yaml:"backend"` // sql / memory
	Database database.Config `yaml:"database"`
}

// MemoryConfig 記憶體帳本設定
type MemoryConfig struct {
	WALPath  string `yaml:"wal_path"`  // 空字串表示不寫 WAL
	SeedPath string `yaml:"seed_path"` // 初始使用者與帳戶
}

type LedgerConfig struct {
	// OpTimeout 單次操作 (含資料庫交易) 的最長時間
	OpTimeout time.Duration `yaml:"op_timeout"`
}

type GRPCConfig struct {
	Addr       string `yaml:"addr"`
	Reflection bool   `yaml:"reflection"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// Load 讀取 YAML 設定檔 (支援 ${ENV} 展開)，補上預設值後驗證
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults 補全 yaml 沒寫的設定
func (c *Config) SetDefaults() {
	if c.Store.Backend == "" {
		c.Store.Backend = BackendSQL
	}
	if c.Store.Backend == BackendSQL {
		c.Store.Database.SetDefaults()
	}
	if c.Ledger.OpTimeout == 0 {
		c.Ledger.OpTimeout = 5 * time.Second
	}
	if c.GRPC.Addr == "" {
		c.GRPC.Addr = ":50051"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "ledger.events"
	}
	if c.Kafka.WriteTimeout == 0 {
		c.Kafka.WriteTimeout = 5 * time.Second
	}
}

// Validate 檢查設定是否合理
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case BackendSQL:
		if err := c.Store.Database.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("store.database: %w", err))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("store.backend: unsupported %q", c.Store.Backend))
	}
	if c.Ledger.OpTimeout < 0 {
		errs = append(errs, errors.New("ledger.op_timeout: must not be negative"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers: required when kafka is enabled"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
