package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Validate checks Config for production-critical problems.
// It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// LLM credentials: without a key every decision falls back to idle
	if c.LLM.APIKey == "" {
		slog.Warn("LLM_API_KEY is empty, inference calls will fail and agents will idle")
	}
	if c.LLM.Timeout < time.Second {
		errs = append(errs, fmt.Sprintf("LLM_TIMEOUT must be at least 1s, got %s", c.LLM.Timeout))
	}
	if c.LLM.RequestsPerMin < 1 {
		errs = append(errs, fmt.Sprintf("LLM_REQUESTS_PER_MIN must be positive, got %d", c.LLM.RequestsPerMin))
	}

	// DB password only matters when the archive is on
	if c.DB.Enabled && c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required when DB_ENABLED is set")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1-65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1-65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1-65535, got %d", c.Redis.Port))
	}

	// Simulation parameters
	if c.World.TimeScale <= 0 {
		errs = append(errs, fmt.Sprintf("WORLD_TIME_SCALE must be positive, got %g", c.World.TimeScale))
	}
	if _, err := time.Parse(time.RFC3339, c.World.StartTime); err != nil {
		errs = append(errs, fmt.Sprintf("WORLD_START_TIME must be RFC3339, got %q", c.World.StartTime))
	}
	if c.Scheduler.TickInterval < 100*time.Millisecond {
		errs = append(errs, fmt.Sprintf("SCHEDULER_TICK_INTERVAL must be at least 100ms, got %s", c.Scheduler.TickInterval))
	}
	if c.Scheduler.BatchSize < 1 {
		errs = append(errs, fmt.Sprintf("SCHEDULER_BATCH_SIZE must be positive, got %d", c.Scheduler.BatchSize))
	}
	if c.Scheduler.PlanStartHour < 0 || c.Scheduler.PlanStartHour > 23 {
		errs = append(errs, fmt.Sprintf("SCHEDULER_PLAN_START_HOUR must be 0-23, got %d", c.Scheduler.PlanStartHour))
	}
	if c.Agent.MemoryCapacity < 1 {
		errs = append(errs, fmt.Sprintf("AGENT_MEMORY_CAPACITY must be positive, got %d", c.Agent.MemoryCapacity))
	}
	if c.Agent.ReflectionThreshold <= 0 {
		errs = append(errs, fmt.Sprintf("AGENT_REFLECTION_THRESHOLD must be positive, got %g", c.Agent.ReflectionThreshold))
	}
	if c.Agent.MaxAgents < 1 {
		errs = append(errs, fmt.Sprintf("AGENT_MAX_AGENTS must be positive, got %d", c.Agent.MaxAgents))
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
