package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Redis     RedisConfig
	NATS      NATSConfig
	LLM       LLMConfig
	World     WorldConfig
	Scheduler SchedulerConfig
	Agent     AgentConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
	Enabled  bool
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	Enabled  bool
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type NATSConfig struct {
	URL     string
	Enabled bool
}

type LLMConfig struct {
	APIKey           string
	BaseURL          string
	DefaultModel     string
	Timeout          time.Duration
	CacheTTL         time.Duration
	RequestsPerMin   int
	DailyBudgetCents int
}

type WorldConfig struct {
	TimeScale float64
	StartTime string
}

type SchedulerConfig struct {
	TickInterval  time.Duration
	BatchSize     int
	PlanStartHour int
}

type AgentConfig struct {
	MemoryCapacity      int
	ReflectionThreshold float64
	PerceptionRadius    float64
	MaxAgents           int
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host: k.String("server.host"),
			Port: k.Int("server.port"),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),
			Enabled:  k.Bool("db.enabled"),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
			Enabled:  k.Bool("redis.enabled"),
		},
		NATS: NATSConfig{
			URL:     k.String("nats.url"),
			Enabled: k.Bool("nats.enabled"),
		},
		LLM: LLMConfig{
			APIKey:           k.String("llm.api.key"),
			BaseURL:          k.String("llm.base.url"),
			DefaultModel:     k.String("llm.default.model"),
			RequestsPerMin:   k.Int("llm.requests.per.min"),
			DailyBudgetCents: k.Int("llm.daily.budget.cents"),
		},
		World: WorldConfig{
			TimeScale: k.Float64("world.time.scale"),
			StartTime: k.String("world.start.time"),
		},
		Scheduler: SchedulerConfig{
			BatchSize:     k.Int("scheduler.batch.size"),
			PlanStartHour: k.Int("scheduler.plan.start.hour"),
		},
		Agent: AgentConfig{
			MemoryCapacity:      k.Int("agent.memory.capacity"),
			ReflectionThreshold: k.Float64("agent.reflection.threshold"),
			PerceptionRadius:    k.Float64("agent.perception.radius"),
			MaxAgents:           k.Int("agent.max.agents"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "society"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "society"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.NATS.URL == "" {
		cfg.NATS.URL = "nats://localhost:4222"
	}
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = "https://api.deepseek.com"
	}
	if cfg.LLM.DefaultModel == "" {
		cfg.LLM.DefaultModel = "deepseek-chat"
	}
	if cfg.LLM.RequestsPerMin == 0 {
		cfg.LLM.RequestsPerMin = 60
	}
	if cfg.World.TimeScale == 0 {
		cfg.World.TimeScale = 10
	}
	if cfg.World.StartTime == "" {
		cfg.World.StartTime = "2026-01-01T08:00:00Z"
	}
	if cfg.Scheduler.BatchSize == 0 {
		cfg.Scheduler.BatchSize = 5
	}
	if cfg.Scheduler.PlanStartHour == 0 {
		cfg.Scheduler.PlanStartHour = 6
	}
	if cfg.Agent.MemoryCapacity == 0 {
		cfg.Agent.MemoryCapacity = 200
	}
	if cfg.Agent.ReflectionThreshold == 0 {
		cfg.Agent.ReflectionThreshold = 150
	}
	if cfg.Agent.PerceptionRadius == 0 {
		cfg.Agent.PerceptionRadius = 15
	}
	if cfg.Agent.MaxAgents == 0 {
		cfg.Agent.MaxAgents = 100
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "debug"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	tickStr := k.String("scheduler.tick.interval")
	if tickStr == "" {
		tickStr = "6s"
	}
	cfg.Scheduler.TickInterval, err = time.ParseDuration(tickStr)
	if err != nil {
		return nil, fmt.Errorf("parsing scheduler tick interval: %w", err)
	}

	timeoutStr := k.String("llm.timeout")
	if timeoutStr == "" {
		timeoutStr = "30s"
	}
	cfg.LLM.Timeout, err = time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("parsing llm timeout: %w", err)
	}

	ttlStr := k.String("llm.cache.ttl")
	if ttlStr == "" {
		ttlStr = "1h"
	}
	cfg.LLM.CacheTTL, err = time.ParseDuration(ttlStr)
	if err != nil {
		return nil, fmt.Errorf("parsing llm cache ttl: %w", err)
	}

	return cfg, nil
}
