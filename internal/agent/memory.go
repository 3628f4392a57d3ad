package agent

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

type MemoryKind string

const (
	MemoryEvent        MemoryKind = "event"
	MemoryConversation MemoryKind = "conversation"
	MemoryObservation  MemoryKind = "observation"
	MemoryEmotion      MemoryKind = "emotion"
	MemorySocial       MemoryKind = "social"
	MemoryReflection   MemoryKind = "reflection"
)

// Memory is one scored, timestamped fact an agent recorded. OccurredAt is
// in-world time, RecordedAt wall time. Keywords are derived once at
// creation and never recomputed.
type Memory struct {
	ID            uuid.UUID
	Kind          MemoryKind
	Content       string
	Importance    float64 // 0-10
	OccurredAt    time.Time
	RecordedAt    time.Time
	RelatedAgents []uuid.UUID
	Location      string
	Emotion       string
	Keywords      map[string]struct{}
	AccessCount   int
	LastAccessed  time.Time

	seq uint64 // insertion order, breaks RecordedAt ties
}

// NewMemory builds a memory with clamped importance and extracted
// keywords.
func NewMemory(kind MemoryKind, content string, importance float64) *Memory {
	if importance < 0 {
		importance = 0
	}
	if importance > 10 {
		importance = 10
	}
	now := time.Now()
	return &Memory{
		ID:         uuid.New(),
		Kind:       kind,
		Content:    content,
		Importance: importance,
		OccurredAt: now,
		RecordedAt: now,
		Keywords:   ExtractKeywords(content),
	}
}

// ExtractKeywords splits text on whitespace and common Chinese punctuation
// and keeps tokens of at least two runes.
func ExtractKeywords(text string) map[string]struct{} {
	replacer := strings.NewReplacer("，", " ", "。", " ", "、", " ", "：", " ", ",", " ", ".", " ")
	out := make(map[string]struct{})
	for _, w := range strings.Fields(replacer.Replace(text)) {
		if utf8.RuneCountInString(w) >= 2 {
			out[w] = struct{}{}
		}
	}
	return out
}

func (m *Memory) access(now time.Time) {
	m.AccessCount++
	m.LastAccessed = now
}

// recencyScore decays exponentially with age: about 0.37 after a day,
// floored at 0.01.
func (m *Memory) recencyScore(now time.Time) float64 {
	ageHours := now.Sub(m.RecordedAt).Hours()
	s := math.Exp(-ageHours / 24)
	return math.Max(0.01, math.Min(1.0, s))
}

// relevanceScore is the Jaccard similarity of keyword sets.
func (m *Memory) relevanceScore(queryKeywords map[string]struct{}) float64 {
	if len(queryKeywords) == 0 || len(m.Keywords) == 0 {
		return 0
	}
	intersection := 0
	for k := range m.Keywords {
		if _, ok := queryKeywords[k]; ok {
			intersection++
		}
	}
	union := len(m.Keywords) + len(queryKeywords) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// retrievalScore combines importance, recency and relevance 0.4/0.3/0.3.
// With no query keywords, relevance defaults to 0.5.
func (m *Memory) retrievalScore(queryKeywords map[string]struct{}, now time.Time) float64 {
	relevance := 0.5
	if queryKeywords != nil {
		relevance = m.relevanceScore(queryKeywords)
	}
	return m.Importance/10*0.4 + m.recencyScore(now)*0.3 + relevance*0.3
}

// ScoredMemory pairs a retrieved memory with its retrieval score.
type ScoredMemory struct {
	Memory *Memory
	Score  float64
}

// MemoryStore is one agent's bounded memory collection with kind and
// related-agent indices. Inserting past capacity immediately evicts the
// lowest-scoring tenth. The store tracks accumulated importance as the
// reflection trigger signal.
//
// An agent's pipeline is the only writer, but dashboard reads may come
// from other goroutines, so the store carries its own lock.
type MemoryStore struct {
	mu       sync.RWMutex
	capacity int
	memories map[uuid.UUID]*Memory
	byKind   map[MemoryKind][]uuid.UUID
	byAgent  map[uuid.UUID][]uuid.UUID

	accumulated    float64
	lastReflection time.Time
	seq            uint64
	nowFn          func() time.Time
	onEvict        func(*Memory)
}

const DefaultMemoryCapacity = 200

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{
		capacity: capacity,
		memories: make(map[uuid.UUID]*Memory),
		byKind:   make(map[MemoryKind][]uuid.UUID),
		byAgent:  make(map[uuid.UUID][]uuid.UUID),
		nowFn:    time.Now,
	}
}

// Add inserts the memory, updates both indices and the accumulated
// importance, then restores the capacity bound by evicting the
// lowest-scoring 10% (at least one) if the insert overflowed.
func (s *MemoryStore) Add(m *Memory) uuid.UUID {
	s.mu.Lock()

	s.seq++
	m.seq = s.seq
	s.memories[m.ID] = m
	s.byKind[m.Kind] = append(s.byKind[m.Kind], m.ID)
	for _, agentID := range m.RelatedAgents {
		s.byAgent[agentID] = append(s.byAgent[agentID], m.ID)
	}
	s.accumulated += m.Importance

	var evicted []*Memory
	if len(s.memories) > s.capacity {
		evicted = s.evictLocked()
	}
	onEvict := s.onEvict
	s.mu.Unlock()

	if onEvict != nil {
		for _, e := range evicted {
			onEvict(e)
		}
	}
	return m.ID
}

// OnEvict registers a callback receiving every evicted memory, invoked
// outside the store lock. Used to archive forgotten memories durably.
func (s *MemoryStore) OnEvict(fn func(*Memory)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEvict = fn
}

// evictLocked drops the lowest-scoring 10% of memories, at least one,
// scored with the no-query formula.
func (s *MemoryStore) evictLocked() []*Memory {
	now := s.nowFn()
	all := make([]*Memory, 0, len(s.memories))
	for _, m := range s.memories {
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool {
		si, sj := all[i].retrievalScore(nil, now), all[j].retrievalScore(nil, now)
		if si != sj {
			return si < sj
		}
		return all[i].seq < all[j].seq
	})
	toRemove := len(all) / 10
	if toRemove < 1 {
		toRemove = 1
	}
	for _, m := range all[:toRemove] {
		s.removeLocked(m.ID)
	}
	return all[:toRemove]
}

func (s *MemoryStore) removeLocked(id uuid.UUID) bool {
	m, ok := s.memories[id]
	if !ok {
		return false
	}
	s.byKind[m.Kind] = removeID(s.byKind[m.Kind], id)
	for _, agentID := range m.RelatedAgents {
		s.byAgent[agentID] = removeID(s.byAgent[agentID], id)
	}
	delete(s.memories, id)
	return true
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func (s *MemoryStore) Remove(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(id)
}

// Get returns a memory by id and records the access.
func (s *MemoryStore) Get(id uuid.UUID) (*Memory, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memories[id]
	if ok {
		m.access(s.nowFn())
	}
	return m, ok
}

func (s *MemoryStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.memories)
}

func (s *MemoryStore) Capacity() int {
	return s.capacity
}

func (s *MemoryStore) AccumulatedImportance() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accumulated
}

// ResetAccumulatedImportance zeroes the reflection counter and stamps the
// reflection time. Only a successful reflection run calls this.
func (s *MemoryStore) ResetAccumulatedImportance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := s.accumulated
	s.accumulated = 0
	s.lastReflection = s.nowFn()
	return old
}

func (s *MemoryStore) LastReflectionAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastReflection
}

// RetrieveRecent returns up to limit memories newest first. No side
// effects: repeated calls without intervening adds return the same list.
func (s *MemoryStore) RetrieveRecent(limit int) []*Memory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.sortedByRecencyLocked()
	if limit < len(all) {
		all = all[:limit]
	}
	return all
}

func (s *MemoryStore) sortedByRecencyLocked() []*Memory {
	all := make([]*Memory, 0, len(s.memories))
	for _, m := range s.memories {
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].RecordedAt.Equal(all[j].RecordedAt) {
			return all[i].RecordedAt.After(all[j].RecordedAt)
		}
		return all[i].seq > all[j].seq
	})
	return all
}

// RetrieveByKind returns up to limit memories of one kind, most important
// first.
func (s *MemoryStore) RetrieveByKind(kind MemoryKind, limit int) []*Memory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byKind[kind]
	out := make([]*Memory, 0, len(ids))
	for _, id := range ids {
		if m, ok := s.memories[id]; ok {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Importance != out[j].Importance {
			return out[i].Importance > out[j].Importance
		}
		return out[i].seq > out[j].seq
	})
	if limit < len(out) {
		out = out[:limit]
	}
	return out
}

// RetrieveByRelatedAgent returns up to limit memories involving the agent,
// newest first.
func (s *MemoryStore) RetrieveByRelatedAgent(agentID uuid.UUID, limit int) []*Memory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := s.byAgent[agentID]
	out := make([]*Memory, 0, len(ids))
	for _, id := range ids {
		if m, ok := s.memories[id]; ok {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].RecordedAt.After(out[j].RecordedAt)
		}
		return out[i].seq > out[j].seq
	})
	if limit < len(out) {
		out = out[:limit]
	}
	return out
}

// RetrieveRelevant scores every memory against the query and returns the
// top matches at or above minScore, best first. Returned memories get
// their access count bumped; this is the only retrieval that mutates
// state.
func (s *MemoryStore) RetrieveRelevant(query string, limit int, minScore float64) []ScoredMemory {
	s.mu.Lock()
	defer s.mu.Unlock()

	queryKeywords := ExtractKeywords(query)
	now := s.nowFn()

	var scored []ScoredMemory
	for _, m := range s.memories {
		score := m.retrievalScore(queryKeywords, now)
		if score >= minScore {
			scored = append(scored, ScoredMemory{Memory: m, Score: score})
		}
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Memory.seq > scored[j].Memory.seq
	})
	if limit < len(scored) {
		scored = scored[:limit]
	}
	for _, sm := range scored {
		sm.Memory.access(now)
	}
	return scored
}

// ContextForPrompt renders recent memories as prompt lines.
func (s *MemoryStore) ContextForPrompt(limit int) string {
	recent := s.RetrieveRecent(limit)
	if len(recent) == 0 {
		return "（暂无近期记忆）"
	}
	var b strings.Builder
	for i, m := range recent {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- [")
		b.WriteString(m.OccurredAt.Format("15:04"))
		b.WriteString("] ")
		b.WriteString(m.Content)
	}
	return b.String()
}
