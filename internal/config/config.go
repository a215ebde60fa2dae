package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	StoreMemory = "memory"
	StoreMySQL  = "mysql"

	IDSequence = "sequence"
	IDRedis    = "redis"

	BusMemory = "memory"
	BusRedis  = "redis"
	BusKafka  = "kafka"
	BusAsynq  = "asynq"
)

// Config holds runtime configuration read from the environment.
type Config struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	GRPCAddr        string        `envconfig:"GRPC_ADDR" default:":50051"`
	RequestTimeout  time.Duration `envconfig:"REQUEST_TIMEOUT" default:"5s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
	RateLimit       int           `envconfig:"RATE_LIMIT" default:"100"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"memory"`
	MySQLDSN    string `envconfig:"MYSQL_DSN" default:"root:root@tcp(localhost:3306)/inventory?parseTime=true&multiStatements=true"`
	IDStrategy  string `envconfig:"ID_STRATEGY" default:"sequence"`

	RedisAddr         string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisStream       string `envconfig:"REDIS_STREAM" default:"inventory-events"`
	RedisStreamMaxLen int64  `envconfig:"REDIS_STREAM_MAXLEN" default:"100000"`

	BusDriver    string   `envconfig:"BUS_DRIVER" default:"memory"`
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"fourthcafe"`
	AsynqQueue   string   `envconfig:"ASYNQ_QUEUE" default:"events"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory, StoreMySQL:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.IDStrategy {
	case IDSequence, IDRedis:
	default:
		return fmt.Errorf("unknown ID_STRATEGY %q", c.IDStrategy)
	}
	switch c.BusDriver {
	case BusMemory, BusRedis, BusKafka, BusAsynq:
	default:
		return fmt.Errorf("unknown BUS_DRIVER %q", c.BusDriver)
	}
	return nil
}

// NewLogger builds the process logger from LOG_LEVEL and LOG_FORMAT.
func (c *Config) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("parse LOG_LEVEL: %w", err)
	}

	log := logrus.New()
	log.SetLevel(level)
	if c.LogFormat == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}
