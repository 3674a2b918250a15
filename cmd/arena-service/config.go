package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"codeclash/internal/arena/audit"
	"codeclash/internal/arena/executor"
	"codeclash/pkg/utils/logger"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8086"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second

	defaultMaxWarnings        = 3
	defaultAutoSubmitFallback = 300 * time.Second
	defaultViolationLogTTL    = 24 * time.Hour
	defaultViolationLogPrefix = "arena:violations"
	defaultArchiveDir         = "data/archives"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// RedisConfig holds redis connection settings. An empty addr disables the
// redis violation log.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// ExecutorConfig holds sandbox engine settings.
type ExecutorConfig struct {
	WorkRoot           string `yaml:"workRoot"`
	MaxOutputBytes     int64  `yaml:"maxOutputBytes"`
	MaxSourceBytes     int64  `yaml:"maxSourceBytes"`
	DefaultTimeLimitMs int64  `yaml:"defaultTimeLimitMs"`
}

// IntegrityConfig holds violation tracking settings.
type IntegrityConfig struct {
	MaxWarnings        int           `yaml:"maxWarnings"`
	AutoSubmitFallback time.Duration `yaml:"autoSubmitFallback"`
}

// AuditConfig holds violation log retention settings. Kafka publishing is
// enabled by listing brokers; archiving by setting a directory.
type AuditConfig struct {
	KeyPrefix  string            `yaml:"keyPrefix"`
	TTL        time.Duration     `yaml:"ttl"`
	ArchiveDir string            `yaml:"archiveDir"`
	Kafka      audit.KafkaConfig `yaml:"kafka"`
}

// AppConfig holds arena-service config.
type AppConfig struct {
	Server    ServerConfig    `yaml:"server"`
	Logger    logger.Config   `yaml:"logger"`
	Redis     RedisConfig     `yaml:"redis"`
	Executor  ExecutorConfig  `yaml:"executor"`
	Integrity IntegrityConfig `yaml:"integrity"`
	Audit     AuditConfig     `yaml:"audit"`
}

func loadAppConfig(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file failed: %w", err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file failed: %w", err)
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Integrity.MaxWarnings <= 0 {
		cfg.Integrity.MaxWarnings = defaultMaxWarnings
	}
	if cfg.Integrity.AutoSubmitFallback <= 0 {
		cfg.Integrity.AutoSubmitFallback = defaultAutoSubmitFallback
	}
	if cfg.Audit.KeyPrefix == "" {
		cfg.Audit.KeyPrefix = defaultViolationLogPrefix
	}
	if cfg.Audit.TTL <= 0 {
		cfg.Audit.TTL = defaultViolationLogTTL
	}
	if cfg.Audit.ArchiveDir == "" {
		cfg.Audit.ArchiveDir = defaultArchiveDir
	}
	return &cfg, nil
}

func (e ExecutorConfig) toEngineConfig() executor.Config {
	return executor.Config{
		WorkRoot:           e.WorkRoot,
		MaxOutputBytes:     e.MaxOutputBytes,
		MaxSourceBytes:     e.MaxSourceBytes,
		DefaultTimeLimitMs: e.DefaultTimeLimitMs,
	}
}
