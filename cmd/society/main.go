package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ai-society/society/internal/activity"
	"github.com/ai-society/society/internal/agent"
	"github.com/ai-society/society/internal/api"
	"github.com/ai-society/society/internal/config"
	"github.com/ai-society/society/internal/database"
	"github.com/ai-society/society/internal/events"
	"github.com/ai-society/society/internal/llm"
	mw "github.com/ai-society/society/internal/middleware"
	iredis "github.com/ai-society/society/internal/redis"
	"github.com/ai-society/society/internal/scheduler"
	"github.com/ai-society/society/internal/server"
	"github.com/ai-society/society/internal/world"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.Log)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// World clock and town layout
	startTime, err := time.Parse(time.RFC3339, cfg.World.StartTime)
	if err != nil {
		slog.Error("parsing world start time", "error", err)
		os.Exit(1)
	}
	clock := world.NewClock(cfg.World.TimeScale, startTime)
	locations := world.DefaultTown()
	agents := agent.NewDirectory(locations, cfg.Agent.MaxAgents)

	// Event bus, mirrored to NATS when configured
	var busOpts []events.BusOption
	var natsClient *events.Client
	if cfg.NATS.Enabled {
		natsClient, err = events.NewClient(ctx, cfg.NATS)
		if err != nil {
			slog.Error("connecting to nats", "error", err)
			os.Exit(1)
		}
		defer natsClient.Close()
		busOpts = append(busOpts, events.WithSink(events.NewNATSSink(natsClient)))
	}
	bus := events.NewBus(busOpts...)

	// Published events become perceivable town happenings.
	feed := agent.NewEventFeed(0)
	bus.SubscribeAll(func(e events.Event) {
		if text := feedText(e); text != "" {
			feed.Record(text, "")
		}
	})

	// LLM routing: an OpenAI-compatible backend behind an optional cache,
	// rate limit and daily budget
	backend := llm.NewOpenAIClient(func(o *llm.OpenAIOptions) {
		o.APIKey = cfg.LLM.APIKey
		if cfg.LLM.BaseURL != "" {
			o.BaseURL = cfg.LLM.BaseURL
		}
		if cfg.LLM.DefaultModel != "" {
			o.DefaultModel = cfg.LLM.DefaultModel
		}
	})
	var routerOpts []llm.RouterOption
	if cfg.LLM.RequestsPerMin > 0 {
		routerOpts = append(routerOpts, llm.WithRateLimiter(llm.NewRateLimiter(cfg.LLM.RequestsPerMin, time.Minute)))
	}
	if cfg.LLM.DailyBudgetCents > 0 {
		routerOpts = append(routerOpts, llm.WithDailyBudget(llm.NewDailyBudget(cfg.LLM.DailyBudgetCents)))
	}

	// Redis backs the LLM response cache and the control-route rate limit
	apiCfg := api.RouterConfig{}
	if cfg.Redis.Enabled {
		redisClient, err := iredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Error("connecting to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		routerOpts = append(routerOpts, llm.WithCache(llm.NewCache(redisClient, cfg.LLM.CacheTTL)))
		apiCfg.ControlRateLimiter = mw.NewRateLimiter(redisClient, 30, 60).Middleware
	}
	llmRouter := llm.NewRouter(llm.WithTimeout(backend, cfg.LLM.Timeout), cfg.LLM.DefaultModel, routerOpts...)

	// Cognitive engines
	planner := agent.NewPlanner(llmRouter, slog.Default())
	perception := agent.NewPerceptionBuilder(agents, feed, nil, cfg.Agent.PerceptionRadius)
	reactions := agent.NewReactionEngine(llmRouter, planner, slog.Default())
	reflections := agent.NewReflectionEngine(llmRouter, cfg.Agent.ReflectionThreshold, slog.Default())

	// PostgreSQL persists the activity log; the simulation itself is
	// memory-resident and runs without it.
	var pool *pgxpool.Pool
	var activityLog *activity.Log
	var archive *activity.Archive
	if cfg.DB.Enabled {
		pool, err = database.NewPostgresPool(ctx, cfg.DB)
		if err != nil {
			slog.Error("connecting to postgres", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := database.RunMigrations(cfg.DB.DSN(), "migrations"); err != nil {
			slog.Error("running migrations", "error", err)
			os.Exit(1)
		}
		activityLog = activity.NewLog(pool)
		archive = activity.NewArchive(pool, nil, slog.Default())
	}

	sched := scheduler.New(scheduler.Config{
		TickInterval:  cfg.Scheduler.TickInterval,
		BatchSize:     cfg.Scheduler.BatchSize,
		PlanStartHour: cfg.Scheduler.PlanStartHour,
	}, scheduler.Deps{
		Clock:       clock,
		Agents:      agents,
		Perception:  perception,
		Reactions:   reactions,
		Reflections: reflections,
		Planner:     planner,
		Client:      llmRouter,
		Bus:         bus,
		Activity:    sink(activityLog),
		Logger:      slog.Default(),
	})

	sched.Start(ctx)
	defer sched.Stop()

	handlers := api.NewHandlers(api.HandlersConfig{
		Agents:         agents,
		Locations:      locations,
		Clock:          clock,
		Scheduler:      sched,
		Bus:            bus,
		LLMRouter:      llmRouter,
		ActivityLog:    activityLog,
		Archive:        archiver(archive),
		Perception:     perception,
		MemoryCapacity: cfg.Agent.MemoryCapacity,
	})

	var natsChecker api.NatsChecker
	if natsClient != nil {
		natsChecker = natsClient
	}
	httpRouter := api.NewRouter(pool, natsChecker, apiCfg, handlers)

	srv := server.New(cfg.Server, httpRouter)
	if err := srv.Start(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// sink keeps the scheduler's ActivitySink interface nil when there is no
// database, instead of a non-nil interface around a nil pointer.
func sink(log *activity.Log) scheduler.ActivitySink {
	if log == nil {
		return nil
	}
	return log
}

// archiver does the same for the memory archive.
func archiver(a *activity.Archive) api.MemoryArchiver {
	if a == nil {
		return nil
	}
	return a
}

// feedText renders the few event types other residents can plausibly
// notice. Internal bookkeeping events stay out of the perception feed.
func feedText(e events.Event) string {
	if e.AgentName == "" {
		return ""
	}
	switch e.Type {
	case events.TypeAgentMoved:
		if to, ok := e.Data["location"].(string); ok {
			return e.AgentName + " 来到了" + to
		}
	case events.TypeAgentCreated:
		return e.AgentName + " 搬进了小镇"
	case events.TypeAgentLeft:
		return e.AgentName + " 离开了小镇"
	case events.TypeChatRequested:
		return e.AgentName + " 想找人聊天"
	}
	return ""
}

func setupLogger(cfg config.LogConfig) {
	var handler slog.Handler

	opts := &slog.HandlerOptions{}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "info":
		opts.Level = slog.LevelInfo
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	default:
		opts.Level = slog.LevelInfo
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
