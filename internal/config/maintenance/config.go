package maintenance_config

import (
	"time"

	"github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/obs"
	pginfra "github.com/Buddhika-Atapattu/PropEase-BackEnd-sub000/internal/repository/postgres"
)

type Sweep struct {
	Interval    time.Duration `mapstructure:"interval"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
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
	DB    pginfra.Config `mapstructure:"db"`
	Sweep Sweep          `mapstructure:"sweep"`
	Log   Log            `mapstructure:"log"`
	OTEL  OTEL           `mapstructure:"otel"`
}
