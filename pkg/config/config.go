// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用配置结构体
type Config struct {
	Engine     EngineConfig     `mapstructure:"engine"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Signals    SignalsConfig    `mapstructure:"signals"`
	Log        LogConfig        `mapstructure:"log"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// EngineConfig 级联预测引擎参数
type EngineConfig struct {
	TemporalWindow      string  `mapstructure:"temporal_window"`      // 相关性时间窗口，如 "1h"
	CacheTTL            string  `mapstructure:"cache_ttl"`            // 预测缓存有效期，如 "60s"
	MaxChainLength      int     `mapstructure:"max_chain_length"`     // 默认最大链长度
	MinConfidence       float64 `mapstructure:"min_confidence"`       // 默认最小置信度
	ResultLimit         int     `mapstructure:"result_limit"`         // 默认返回链数量
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"` // 指纹相似度阈值（严格大于）
	FrequencyFactor     float64 `mapstructure:"frequency_factor"`     // 边权重中的频率因子（常量）
	SeedLookback        string  `mapstructure:"seed_lookback"`        // 启动时加载的历史范围，如 "24h"
	DecayHalfLife       string  `mapstructure:"decay_half_life"`      // 默认时间衰减半衰期
}

// StorageConfig 存储配置
type StorageConfig struct {
	History HistoryConfig `mapstructure:"history"`
	Cache   CacheConfig   `mapstructure:"cache"`
}

// HistoryConfig 历史错误存储配置
type HistoryConfig struct {
	Type     string `mapstructure:"type"` // memory | postgres
	DSN      string `mapstructure:"dsn"`  // Postgres 连接串，type=postgres 时必填
	MaxItems int    `mapstructure:"max_items"`
}

// CacheConfig 预测缓存配置
type CacheConfig struct {
	Type     string `mapstructure:"type"` // memory | redis
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	Password string `mapstructure:"password"`
	Prefix   string `mapstructure:"prefix"`
}

// SignalsConfig 外部协作服务（相似度等）配置
type SignalsConfig struct {
	Similarity SimilarityConfig `mapstructure:"similarity"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
}

// SimilarityConfig 相似度服务配置
type SimilarityConfig struct {
	Type     string `mapstructure:"type"`     // token | http
	Endpoint string `mapstructure:"endpoint"` // type=http 时必填
	Timeout  string `mapstructure:"timeout"`
}

// RateLimitConfig 相似度调用限流，QPS<=0 表示不限流
type RateLimitConfig struct {
	QPS   float64 `mapstructure:"qps"`
	Burst int     `mapstructure:"burst"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
}

// TracingConfig 链路追踪配置（OpenTelemetry）
type TracingConfig struct {
	Enable         bool   `mapstructure:"enable"`
	ServiceName    string `mapstructure:"service_name"`
	ExportEndpoint string `mapstructure:"export_endpoint"`
	Insecure       bool   `mapstructure:"insecure"`
}

// PrometheusConfig Prometheus 配置
type PrometheusConfig struct {
	Enable bool `mapstructure:"enable"`
	Port   int  `mapstructure:"port"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.temporal_window", "1h")
	v.SetDefault("engine.cache_ttl", "60s")
	v.SetDefault("engine.max_chain_length", 5)
	v.SetDefault("engine.min_confidence", 0.6)
	v.SetDefault("engine.result_limit", 10)
	v.SetDefault("engine.similarity_threshold", 0.5)
	v.SetDefault("engine.frequency_factor", 0.5)
	v.SetDefault("engine.seed_lookback", "24h")
	v.SetDefault("engine.decay_half_life", "1h")
	v.SetDefault("storage.history.type", "memory")
	v.SetDefault("storage.cache.type", "memory")
	v.SetDefault("storage.cache.prefix", "errcascade:")
	v.SetDefault("signals.similarity.type", "token")
	v.SetDefault("signals.similarity.timeout", "2s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("monitoring.prometheus.port", 9090)
	v.SetDefault("monitoring.tracing.service_name", "errcascade")
}

// Default 返回仅含默认值的配置，未提供配置文件时使用
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// 只有默认值时不会出错
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// LoadConfig 加载配置文件
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configPath)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("无法读取配置文件: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法解析配置文件: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验互相依赖的字段
func (c *Config) Validate() error {
	if c.Storage.History.Type == "postgres" && c.Storage.History.DSN == "" {
		return fmt.Errorf("storage.history.dsn is required when type=postgres")
	}
	if c.Storage.Cache.Type == "redis" && c.Storage.Cache.Addr == "" {
		return fmt.Errorf("storage.cache.addr is required when type=redis")
	}
	// 清空缓存按前缀 SCAN，空前缀会删除整个 Redis 库
	if c.Storage.Cache.Type == "redis" && c.Storage.Cache.Prefix == "" {
		return fmt.Errorf("storage.cache.prefix is required when type=redis")
	}
	if c.Signals.Similarity.Type == "http" && c.Signals.Similarity.Endpoint == "" {
		return fmt.Errorf("signals.similarity.endpoint is required when type=http")
	}
	if c.Engine.MinConfidence < 0 || c.Engine.MinConfidence > 1 {
		return fmt.Errorf("engine.min_confidence must be within [0,1], got %v", c.Engine.MinConfidence)
	}
	return nil
}

// DurationOr 解析形如 "30s" 的时长，空串或非法值返回 def
func DurationOr(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return def
	}
	return d
}
