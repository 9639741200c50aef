// Package config loads LiveBoard settings from an optional YAML file and
// LIVEBOARD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Room string `mapstructure:"room"`
	Mode string `mapstructure:"mode"`

	Transport struct {
		Kind             string        `mapstructure:"kind"`
		Relay            string        `mapstructure:"relay"`
		RedisURL         string        `mapstructure:"redis_url"`
		KafkaBrokers     []string      `mapstructure:"kafka_brokers"`
		KafkaTopicPrefix string        `mapstructure:"kafka_topic_prefix"`
		QueueSize        int           `mapstructure:"queue_size"`
		MaxRetry         int           `mapstructure:"max_retry"`
		BaseBackoff      time.Duration `mapstructure:"base_backoff"`
		MaxBackoff       time.Duration `mapstructure:"max_backoff"`
	} `mapstructure:"transport"`

	Sync struct {
		FlushInterval       time.Duration `mapstructure:"flush_interval"`
		MaxPointsPerMessage int           `mapstructure:"max_points_per_message"`
		MinDistance         float64       `mapstructure:"min_distance"`
		MaxStep             float64       `mapstructure:"max_step"`
		CheckpointInterval  time.Duration `mapstructure:"checkpoint_interval"`
		Warmup              time.Duration `mapstructure:"warmup"`
		MaxStrokes          int           `mapstructure:"max_strokes"`
	} `mapstructure:"sync"`

	Relay struct {
		Addr       string `mapstructure:"addr"`
		Advertise  bool   `mapstructure:"advertise"`
		CORSOrigin string `mapstructure:"cors_origin"`
	} `mapstructure:"relay"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

const (
	ModeDraw = "draw"
	ModeView = "view"

	TransportWebSocket = "websocket"
	TransportRedis     = "redis"
	TransportKafka     = "kafka"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("room", "default-room")
	v.SetDefault("mode", ModeView)

	v.SetDefault("transport.kind", TransportWebSocket)
	v.SetDefault("transport.relay", "")
	v.SetDefault("transport.redis_url", "redis://localhost:6379/0")
	v.SetDefault("transport.kafka_brokers", []string{"localhost:9092"})
	v.SetDefault("transport.kafka_topic_prefix", "liveboard")
	v.SetDefault("transport.queue_size", 1024)
	v.SetDefault("transport.max_retry", 3)
	v.SetDefault("transport.base_backoff", 50*time.Millisecond)
	v.SetDefault("transport.max_backoff", time.Second)

	v.SetDefault("sync.flush_interval", 33*time.Millisecond)
	v.SetDefault("sync.max_points_per_message", 64)
	v.SetDefault("sync.min_distance", 0.001)
	v.SetDefault("sync.max_step", 0.02)
	v.SetDefault("sync.checkpoint_interval", 2*time.Second)
	v.SetDefault("sync.warmup", time.Duration(0))
	v.SetDefault("sync.max_strokes", 1000)

	v.SetDefault("relay.addr", ":8888")
	v.SetDefault("relay.advertise", true)
	v.SetDefault("relay.cors_origin", "*")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads path if given, otherwise liveboard.yaml from . or ./config when
// present. Environment variables win over the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LIVEBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("liveboard")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeDraw, ModeView:
	default:
		return fmt.Errorf("config: mode %q is not draw or view", c.Mode)
	}
	switch c.Transport.Kind {
	case TransportWebSocket, TransportRedis, TransportKafka:
	default:
		return fmt.Errorf("config: unknown transport %q", c.Transport.Kind)
	}
	if c.Room == "" {
		return errors.New("config: room is empty")
	}
	if c.Transport.Kind == TransportKafka && len(c.Transport.KafkaBrokers) == 0 {
		return errors.New("config: kafka transport needs brokers")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}
