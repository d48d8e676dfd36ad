package fanout_worker_config

import (
	"time"

	"github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/obs"
	kafkax "github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/repository/kafka"
	pginfra "github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/repository/postgres"
	redisinfra "github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/repository/redis"
)

type KafkaIn struct {
	Brokers       []string `mapstructure:"brokers"`
	RequestsTopic string   `mapstructure:"requests_topic"`
	RemovalsTopic string   `mapstructure:"removals_topic"`
	GroupID       string   `mapstructure:"group_id"`
	FromBeginning bool     `mapstructure:"from_beginning"`
}

func (k KafkaIn) AsConsumerConfig(topic string) *kafkax.ConsumerConfig {
	return &kafkax.ConsumerConfig{
		Brokers:       k.Brokers,
		GroupID:       k.GroupID,
		Topic:         topic,
		FromBeginning: k.FromBeginning,
	}
}

type Fanout struct {
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
	UpsertWorkers  int           `mapstructure:"upsert_workers"`
}

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
	App    string `mapstructure:"app"`
	Env    string `mapstructure:"env"`
	Ver    string `mapstructure:"ver"`
}

func (l Log) AsLoggerConfig() obs.LogConfig {
	return obs.LogConfig{Level: l.Level, Pretty: l.Pretty, App: l.App, Env: l.Env, Ver: l.Ver}
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

func (o OTEL) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:      o.Enable,
		Endpoint:    o.OTLPEndpoint,
		ServiceName: o.ServiceName,
		SampleRatio: o.SampleRatio,
	}
}

type Config struct {
	DB     pginfra.Config    `mapstructure:"db"`
	Redis  redisinfra.Config `mapstructure:"redis"`
	In     KafkaIn           `mapstructure:"kafka_in"`
	Fanout Fanout            `mapstructure:"fanout"`
	Server Server            `mapstructure:"server"`
	Log    Log               `mapstructure:"log"`
	OTEL   OTEL              `mapstructure:"otel"`
}
