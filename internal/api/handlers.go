package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/ai-society/society/internal/activity"
	"github.com/ai-society/society/internal/agent"
	"github.com/ai-society/society/internal/events"
	"github.com/ai-society/society/internal/llm"
	"github.com/ai-society/society/internal/metrics"
	"github.com/ai-society/society/internal/scheduler"
	"github.com/ai-society/society/internal/world"
)

// MemoryArchiver receives memories evicted from an agent's bounded store
// so eviction is not pure loss.
type MemoryArchiver interface {
	Attach(agentID uuid.UUID, store *agent.MemoryStore)
}

// PerceptionCleaner drops per-agent perception bookkeeping once a
// resident leaves the town.
type PerceptionCleaner interface {
	Forget(id uuid.UUID)
}

// Handlers serves the admin and dashboard API over the live simulation.
// Agent state is read through the same directories the scheduler uses.
type Handlers struct {
	agents      *agent.Directory
	locations   *world.LocationDirectory
	clock       *world.Clock
	scheduler   *scheduler.Scheduler
	bus         *events.Bus
	llmRouter   *llm.Router
	activityLog *activity.Log
	archive     MemoryArchiver
	perception  PerceptionCleaner

	memoryCapacity int
	validate       *validator.Validate
}

type HandlersConfig struct {
	Agents         *agent.Directory
	Locations      *world.LocationDirectory
	Clock          *world.Clock
	Scheduler      *scheduler.Scheduler
	Bus            *events.Bus
	LLMRouter      *llm.Router
	ActivityLog    *activity.Log
	Archive        MemoryArchiver
	Perception     PerceptionCleaner
	MemoryCapacity int
}

func NewHandlers(cfg HandlersConfig) *Handlers {
	return &Handlers{
		agents:         cfg.Agents,
		locations:      cfg.Locations,
		clock:          cfg.Clock,
		scheduler:      cfg.Scheduler,
		bus:            cfg.Bus,
		llmRouter:      cfg.LLMRouter,
		activityLog:    cfg.ActivityLog,
		archive:        cfg.Archive,
		perception:     cfg.Perception,
		memoryCapacity: cfg.MemoryCapacity,
		validate:       validator.New(),
	}
}

type agentSummary struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Occupation string  `json:"occupation"`
	State      string  `json:"state"`
	Location   string  `json:"location,omitempty"`
	Action     string  `json:"action"`
	Balance    float64 `json:"balance"`
	Wellbeing  float64 `json:"wellbeing"`
}

func summarize(a *agent.Agent) agentSummary {
	return agentSummary{
		ID:         a.ID.String(),
		Name:       a.Name,
		Occupation: a.Occupation,
		State:      string(a.State()),
		Location:   a.LocationName(),
		Action:     string(a.Action().Type),
		Balance:    a.Balance(),
		Wellbeing:  a.Needs.Wellbeing(),
	}
}

func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	all := h.agents.All()
	out := make([]agentSummary, 0, len(all))
	for _, a := range all {
		out = append(out, summarize(a))
	}
	JSON(w, http.StatusOK, out)
}

type createAgentRequest struct {
	Name       string  `json:"name" validate:"required,min=1,max=64"`
	Age        int     `json:"age" validate:"required,gte=1,lte=120"`
	Gender     string  `json:"gender" validate:"max=16"`
	Occupation string  `json:"occupation" validate:"required,max=64"`
	Backstory  string  `json:"backstory" validate:"max=2000"`
	Home       string  `json:"home" validate:"max=64"`
	Workplace  string  `json:"workplace" validate:"max=64"`
	HourlyWage float64 `json:"hourly_wage" validate:"gte=0"`
	Balance    float64 `json:"balance" validate:"gte=0"`
}

func (h *Handlers) CreateAgent(w http.ResponseWriter, r *http.Request) {
	var req createAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		HandleError(w, ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		HandleError(w, NewValidationError(err.Error()))
		return
	}

	a := agent.New(agent.AgentConfig{
		Name:           req.Name,
		Age:            req.Age,
		Gender:         req.Gender,
		Occupation:     req.Occupation,
		Backstory:      req.Backstory,
		Home:           req.Home,
		Workplace:      req.Workplace,
		HourlyWage:     req.HourlyWage,
		Balance:        req.Balance,
		Personality:    agent.RandomPersonality(20),
		MemoryCapacity: h.memoryCapacity,
	})
	if err := h.agents.Add(a); err != nil {
		HandleError(w, ErrTownFull)
		return
	}
	if h.archive != nil {
		h.archive.Attach(a.ID, a.Memory)
	}
	metrics.AgentsRegistered.Set(float64(h.agents.Count()))

	// Residents start at home when the place exists; failure just leaves
	// them on the street.
	if req.Home != "" {
		if _, err := h.agents.MoveAgent(a, req.Home); err == nil {
			a.SetAction(agent.ActionIdle, "", "", 0, h.clock.Now())
		}
	}

	if h.bus != nil {
		e := events.New(events.TypeAgentCreated, map[string]any{"occupation": a.Occupation})
		e.AgentID, e.AgentName = a.ID, a.Name
		h.bus.Publish(r.Context(), e)
	}
	JSON(w, http.StatusCreated, summarize(a))
}

func (h *Handlers) agentFromPath(r *http.Request) (*agent.Agent, error) {
	id, err := uuid.Parse(chi.URLParam(r, "agentID"))
	if err != nil {
		return nil, NewBadRequestError("invalid agent id")
	}
	a, ok := h.agents.Get(id)
	if !ok {
		return nil, NewNotFoundError("agent not found")
	}
	return a, nil
}

func (h *Handlers) GetAgent(w http.ResponseWriter, r *http.Request) {
	a, err := h.agentFromPath(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	action := a.Action()
	JSON(w, http.StatusOK, map[string]any{
		"summary":     summarize(a),
		"age":         a.Age,
		"gender":      a.Gender,
		"backstory":   a.Backstory,
		"home":        a.Home,
		"workplace":   a.Workplace,
		"personality": a.Personality,
		"needs":       a.Needs.Snapshot(),
		"action": map[string]any{
			"type":             string(action.Type),
			"target":           action.Target,
			"reason":           action.Reason,
			"started_at":       action.StartedAt,
			"duration_minutes": action.Duration,
		},
		"memory": map[string]any{
			"size":                   a.Memory.Size(),
			"capacity":               a.Memory.Capacity(),
			"accumulated_importance": a.Memory.AccumulatedImportance(),
			"last_reflection_at":     a.Memory.LastReflectionAt(),
		},
		"work_hours_today": a.WorkHoursToday(),
	})
}

func (h *Handlers) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	a, err := h.agentFromPath(r)
	if err != nil {
		HandleError(w, err)
		return
	}
	h.agents.Remove(a.ID)
	if h.perception != nil {
		h.perception.Forget(a.ID)
	}
	metrics.AgentsRegistered.Set(float64(h.agents.Count()))

	if h.bus != nil {
		e := events.New(events.TypeAgentLeft, nil)
		e.AgentID, e.AgentName = a.ID, a.Name
		h.bus.Publish(r.Context(), e)
	}
	JSONMessage(w, http.StatusOK, "agent removed")
}

type memoryView struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind"`
	Content    string  `json:"content"`
	Importance float64 `json:"importance"`
	OccurredAt string  `json:"occurred_at"`
	Location   string  `json:"location,omitempty"`
}

func (h *Handlers) ListAgentMemories(w http.ResponseWriter, r *http.Request) {
	a, err := h.agentFromPath(r)
	if err != nil {
		HandleError(w, err)
		return
	}

	limit := queryInt(r, "limit", 20)
	var memories []*agent.Memory
	if kind := r.URL.Query().Get("kind"); kind != "" {
		memories = a.Memory.RetrieveByKind(agent.MemoryKind(kind), limit)
	} else if query := r.URL.Query().Get("q"); query != "" {
		for _, sm := range a.Memory.RetrieveRelevant(query, limit, 0.1) {
			memories = append(memories, sm.Memory)
		}
	} else {
		memories = a.Memory.RetrieveRecent(limit)
	}

	out := make([]memoryView, 0, len(memories))
	for _, m := range memories {
		out = append(out, memoryView{
			ID:         m.ID.String(),
			Kind:       string(m.Kind),
			Content:    m.Content,
			Importance: m.Importance,
			OccurredAt: m.OccurredAt.Format("2006-01-02 15:04"),
			Location:   m.Location,
		})
	}
	JSON(w, http.StatusOK, out)
}

func (h *Handlers) GetAgentPlan(w http.ResponseWriter, r *http.Request) {
	a, err := h.agentFromPath(r)
	if err != nil {
		HandleError(w, err)
		return
	}
	plan := a.Plan()
	if plan == nil {
		HandleError(w, NewNotFoundError("agent has no plan today"))
		return
	}
	JSON(w, http.StatusOK, plan)
}

func (h *Handlers) GetAgentActivity(w http.ResponseWriter, r *http.Request) {
	a, err := h.agentFromPath(r)
	if err != nil {
		HandleError(w, err)
		return
	}
	if h.activityLog == nil {
		JSON(w, http.StatusOK, []activity.Entry{})
		return
	}
	entries, err := h.activityLog.RecentByAgent(r.Context(), a.ID.String(), queryInt(r, "limit", 50))
	if err != nil {
		HandleError(w, err)
		return
	}
	JSON(w, http.StatusOK, entries)
}

func (h *Handlers) GetWorld(w http.ResponseWriter, r *http.Request) {
	info := h.clock.Snapshot()

	type locationView struct {
		ID        string `json:"id"`
		Name      string `json:"name"`
		Kind      string `json:"kind"`
		Occupants int    `json:"occupants"`
		Capacity  int    `json:"capacity"`
		Open      bool   `json:"open"`
	}
	locations := make([]locationView, 0)
	for _, loc := range h.locations.All() {
		locations = append(locations, locationView{
			ID:        loc.ID,
			Name:      loc.Name,
			Kind:      string(loc.Kind),
			Occupants: loc.OccupantCount(),
			Capacity:  loc.Capacity,
			Open:      loc.IsOpenAt(info.Time),
		})
	}

	JSON(w, http.StatusOK, map[string]any{
		"time":        info.Time.Format("2006-01-02 15:04"),
		"day":         info.Day,
		"time_of_day": string(info.TimeOfDay),
		"is_daytime":  info.IsDaytime,
		"time_scale":  h.clock.TimeScale(),
		"paused":      h.clock.IsPaused(),
		"population":  h.agents.Stats(),
		"locations":   locations,
	})
}

func (h *Handlers) PauseWorld(w http.ResponseWriter, r *http.Request) {
	h.clock.Pause()
	JSONMessage(w, http.StatusOK, "world paused")
}

func (h *Handlers) ResumeWorld(w http.ResponseWriter, r *http.Request) {
	h.clock.Resume()
	JSONMessage(w, http.StatusOK, "world resumed")
}

type timeScaleRequest struct {
	Scale float64 `json:"scale" validate:"required,gte=1,lte=100"`
}

func (h *Handlers) SetTimeScale(w http.ResponseWriter, r *http.Request) {
	var req timeScaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		HandleError(w, ErrBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		HandleError(w, NewValidationError(err.Error()))
		return
	}
	if err := h.clock.SetTimeScale(req.Scale); err != nil {
		HandleError(w, NewBadRequestError(err.Error()))
		return
	}
	JSON(w, http.StatusOK, map[string]any{"scale": req.Scale})
}

func (h *Handlers) SchedulerStatus(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]any{"running": h.scheduler.Running()})
}

func (h *Handlers) StartScheduler(w http.ResponseWriter, r *http.Request) {
	// The request context dies with the request; the loop needs its own.
	h.scheduler.Start(context.Background())
	JSONMessage(w, http.StatusOK, "scheduler started")
}

func (h *Handlers) StopScheduler(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Stop()
	JSONMessage(w, http.StatusOK, "scheduler stopped")
}

func (h *Handlers) TickScheduler(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Tick(r.Context())
	JSONMessage(w, http.StatusOK, "tick executed")
}

func (h *Handlers) ListEvents(w http.ResponseWriter, r *http.Request) {
	if h.bus == nil {
		JSON(w, http.StatusOK, []events.Event{})
		return
	}
	JSON(w, http.StatusOK, h.bus.Recent(queryInt(r, "limit", 50)))
}

func (h *Handlers) LLMUsage(w http.ResponseWriter, r *http.Request) {
	if h.llmRouter == nil {
		JSON(w, http.StatusOK, map[string]int64{})
		return
	}
	JSON(w, http.StatusOK, h.llmRouter.UsageSnapshot())
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
