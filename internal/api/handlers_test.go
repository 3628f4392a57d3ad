package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-society/society/internal/agent"
	"github.com/ai-society/society/internal/events"
	"github.com/ai-society/society/internal/llm"
	"github.com/ai-society/society/internal/scheduler"
	"github.com/ai-society/society/internal/world"
)

type apiFixture struct {
	router    http.Handler
	handlers  *Handlers
	agents    *agent.Directory
	clock     *world.Clock
	bus       *events.Bus
	scheduler *scheduler.Scheduler
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()

	locations := world.NewLocationDirectory()
	locations.Add(world.NewLocation("cafe-1", "星光咖啡馆", world.KindCafe, world.Position{X: 0, Y: 0}, 10))
	locations.Add(world.NewLocation("home-1", "幸福公寓", world.KindHome, world.Position{X: 5, Y: 5}, 100))

	clock := world.NewClock(10, time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC))
	agents := agent.NewDirectory(locations, 3)
	bus := events.NewBus()
	mock := llm.NewMock()
	planner := agent.NewPlanner(mock, nil)

	sched := scheduler.New(scheduler.Config{TickInterval: 10 * time.Millisecond, BatchSize: 5, PlanStartHour: 6}, scheduler.Deps{
		Clock:       clock,
		Agents:      agents,
		Perception:  agent.NewPerceptionBuilder(agents, agent.NewEventFeed(0), nil, 15),
		Reactions:   agent.NewReactionEngine(mock, planner, nil),
		Reflections: agent.NewReflectionEngine(mock, 150, nil),
		Planner:     planner,
		Client:      mock,
		Bus:         bus,
	})

	h := NewHandlers(HandlersConfig{
		Agents:         agents,
		Locations:      locations,
		Clock:          clock,
		Scheduler:      sched,
		Bus:            bus,
		MemoryCapacity: 100,
	})
	router := NewRouter(nil, nil, RouterConfig{}, h)
	return &apiFixture{router: router, handlers: h, agents: agents, clock: clock, bus: bus, scheduler: sched}
}

func (f *apiFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NoError(t, json.Unmarshal(resp.Data, out))
}

func createResident(t *testing.T, f *apiFixture, name string) string {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/agents", map[string]any{
		"name":        name,
		"age":         28,
		"occupation":  "程序员",
		"home":        "幸福公寓",
		"hourly_wage": 50,
		"balance":     1000,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID string `json:"id"`
	}
	decodeData(t, rec, &created)
	require.NotEmpty(t, created.ID)
	return created.ID
}

func TestCreateAndGetAgent(t *testing.T) {
	f := setupAPI(t)
	id := createResident(t, f, "张三")

	rec := f.do(t, http.MethodGet, "/api/v1/agents/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var detail struct {
		Summary struct {
			Name     string `json:"name"`
			State    string `json:"state"`
			Location string `json:"location"`
		} `json:"summary"`
		Home string `json:"home"`
	}
	decodeData(t, rec, &detail)
	assert.Equal(t, "张三", detail.Summary.Name)
	assert.Equal(t, "幸福公寓", detail.Summary.Location)
	assert.Equal(t, "幸福公寓", detail.Home)
}

func TestCreateAgentValidation(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(t, http.MethodPost, "/api/v1/agents", map[string]any{
		"name": "无业游民",
		"age":  0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, f.agents.Count())
}

func TestCreateAgentTownFull(t *testing.T) {
	f := setupAPI(t)
	createResident(t, f, "甲")
	createResident(t, f, "乙")
	createResident(t, f, "丙")

	rec := f.do(t, http.MethodPost, "/api/v1/agents", map[string]any{
		"name":       "丁",
		"age":        40,
		"occupation": "医生",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDeleteAgentFreesSlot(t *testing.T) {
	f := setupAPI(t)
	id := createResident(t, f, "张三")

	rec := f.do(t, http.MethodDelete, "/api/v1/agents/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, f.agents.Count())

	rec = f.do(t, http.MethodGet, "/api/v1/agents/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetAgentBadID(t *testing.T) {
	f := setupAPI(t)
	rec := f.do(t, http.MethodGet, "/api/v1/agents/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAgentMemories(t *testing.T) {
	f := setupAPI(t)
	id := createResident(t, f, "张三")

	a, ok := f.agents.GetByName("张三")
	require.True(t, ok)
	a.Memory.Add(agent.NewMemory(agent.MemoryEvent, "在咖啡馆遇到了老朋友", 6.0))
	a.Memory.Add(agent.NewMemory(agent.MemoryObservation, "公园里很安静", 3.0))

	rec := f.do(t, http.MethodGet, "/api/v1/agents/"+id+"/memories?limit=10", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var memories []struct {
		Kind    string `json:"kind"`
		Content string `json:"content"`
	}
	decodeData(t, rec, &memories)
	require.Len(t, memories, 2)

	rec = f.do(t, http.MethodGet, "/api/v1/agents/"+id+"/memories?kind=observation", nil)
	decodeData(t, rec, &memories)
	require.Len(t, memories, 1)
	assert.Equal(t, "公园里很安静", memories[0].Content)
}

func TestGetAgentPlanMissing(t *testing.T) {
	f := setupAPI(t)
	id := createResident(t, f, "张三")

	rec := f.do(t, http.MethodGet, "/api/v1/agents/"+id+"/plan", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWorldSnapshotAndControls(t *testing.T) {
	f := setupAPI(t)
	createResident(t, f, "张三")

	rec := f.do(t, http.MethodGet, "/api/v1/world", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var snapshot struct {
		TimeScale float64 `json:"time_scale"`
		Paused    bool    `json:"paused"`
		Locations []struct {
			Name      string `json:"name"`
			Occupants int    `json:"occupants"`
		} `json:"locations"`
	}
	decodeData(t, rec, &snapshot)
	assert.Equal(t, 10.0, snapshot.TimeScale)
	assert.False(t, snapshot.Paused)
	require.Len(t, snapshot.Locations, 2)

	rec = f.do(t, http.MethodPost, "/api/v1/world/pause", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.clock.IsPaused())

	rec = f.do(t, http.MethodPost, "/api/v1/world/resume", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, f.clock.IsPaused())

	rec = f.do(t, http.MethodPost, "/api/v1/world/timescale", map[string]any{"scale": 30})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 30.0, f.clock.TimeScale())

	rec = f.do(t, http.MethodPost, "/api/v1/world/timescale", map[string]any{"scale": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSchedulerControls(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(t, http.MethodGet, "/api/v1/scheduler", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var status struct {
		Running bool `json:"running"`
	}
	decodeData(t, rec, &status)
	assert.False(t, status.Running)

	rec = f.do(t, http.MethodPost, "/api/v1/scheduler/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.scheduler.Running())

	rec = f.do(t, http.MethodPost, "/api/v1/scheduler/stop", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, f.scheduler.Running())

	rec = f.do(t, http.MethodPost, "/api/v1/scheduler/tick", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListEvents(t *testing.T) {
	f := setupAPI(t)
	createResident(t, f, "张三")

	rec := f.do(t, http.MethodGet, "/api/v1/events?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var evts []struct {
		Type string `json:"type"`
	}
	decodeData(t, rec, &evts)
	require.NotEmpty(t, evts)
	assert.Equal(t, string(events.TypeAgentCreated), evts[0].Type)
}

func TestHealthEndpoints(t *testing.T) {
	f := setupAPI(t)

	rec := f.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Pool and broker are not wired in tests, so readiness treats them as
	// not configured rather than failing.
	rec = f.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	var health struct {
		Data map[string]string `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "not configured", health.Data["database"])
	assert.Equal(t, "not configured", health.Data["nats"])
}

func TestLLMUsageWithoutRouter(t *testing.T) {
	f := setupAPI(t)
	rec := f.do(t, http.MethodGet, "/api/v1/llm/usage", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	usage := map[string]int64{}
	decodeData(t, rec, &usage)
	assert.Empty(t, usage)
}

type recordingArchiver struct {
	attached []uuid.UUID
}

func (r *recordingArchiver) Attach(agentID uuid.UUID, store *agent.MemoryStore) {
	r.attached = append(r.attached, agentID)
}

type recordingCleaner struct {
	forgotten []uuid.UUID
}

func (r *recordingCleaner) Forget(id uuid.UUID) {
	r.forgotten = append(r.forgotten, id)
}

func TestCreateAgentAttachesArchive(t *testing.T) {
	f := setupAPI(t)
	archiver := &recordingArchiver{}
	f.handlers.archive = archiver

	id := createResident(t, f, "张三")

	require.Len(t, archiver.attached, 1)
	assert.Equal(t, id, archiver.attached[0].String())
}

func TestDeleteAgentForgetsPerceptionState(t *testing.T) {
	f := setupAPI(t)
	cleaner := &recordingCleaner{}
	f.handlers.perception = cleaner

	id := createResident(t, f, "张三")
	rec := f.do(t, http.MethodDelete, "/api/v1/agents/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Len(t, cleaner.forgotten, 1)
	assert.Equal(t, id, cleaner.forgotten[0].String())
}
