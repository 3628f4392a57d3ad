package agent

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Perception is a short-lived snapshot of what an agent can see this
// tick. It is consumed once and never stored.
type Perception struct {
	LocationID     string
	LocationName   string
	AgentsNearby   []NearbyAgent
	NewEvents      []string
	BeingAddressed bool
	AddressedBy    string
	NotableChanges []string
}

type NearbyAgent struct {
	ID   uuid.UUID
	Name string
}

func (p *Perception) IsEmpty() bool {
	return len(p.AgentsNearby) == 0 &&
		len(p.NewEvents) == 0 &&
		!p.BeingAddressed &&
		len(p.NotableChanges) == 0
}

// Describe renders the perception as prompt text.
func (p *Perception) Describe() string {
	if p.IsEmpty() {
		return "周围没有什么特别的事情。"
	}
	var parts []string
	if len(p.AgentsNearby) > 0 {
		names := make([]string, len(p.AgentsNearby))
		for i, n := range p.AgentsNearby {
			names[i] = n.Name
		}
		parts = append(parts, "附近的人："+joinChinese(names))
	}
	for _, e := range p.NewEvents {
		parts = append(parts, "发生了："+e)
	}
	for _, c := range p.NotableChanges {
		parts = append(parts, c)
	}
	if p.BeingAddressed {
		parts = append(parts, fmt.Sprintf("%s 正在和你说话", p.AddressedBy))
	}
	out := parts[0]
	for _, s := range parts[1:] {
		out += "；" + s
	}
	return out
}

func joinChinese(names []string) string {
	out := names[0]
	for _, n := range names[1:] {
		out += "、" + n
	}
	return out
}

// ConversationSource reports active conversational partners. The dialogue
// subsystem lives outside this process; a nil source means nobody is ever
// addressed.
type ConversationSource interface {
	PartnerOf(agentID uuid.UUID) (partnerName string, ok bool)
}

// WorldEvent is one entry in the rolling perception feed. Location is the
// location name the event happened at; empty means town-wide.
type WorldEvent struct {
	Text     string
	Location string
	At       time.Time
}

// EventFeed keeps a short rolling window of world events for perception.
type EventFeed struct {
	mu     sync.Mutex
	window time.Duration
	items  []WorldEvent
	nowFn  func() time.Time
}

const defaultFeedWindow = 5 * time.Minute

func NewEventFeed(window time.Duration) *EventFeed {
	if window <= 0 {
		window = defaultFeedWindow
	}
	return &EventFeed{window: window, nowFn: time.Now}
}

func (f *EventFeed) Record(text, location string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.nowFn()
	f.items = append(f.items, WorldEvent{Text: text, Location: location, At: now})
	f.pruneLocked(now)
}

func (f *EventFeed) pruneLocked(now time.Time) {
	cutoff := now.Add(-f.window)
	i := 0
	for i < len(f.items) && f.items[i].At.Before(cutoff) {
		i++
	}
	f.items = f.items[i:]
}

// Since returns event texts newer than after, matching the location or
// carrying no location.
func (f *EventFeed) Since(after time.Time, location string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pruneLocked(f.nowFn())
	var out []string
	for _, e := range f.items {
		if !e.At.After(after) {
			continue
		}
		if e.Location != "" && e.Location != location {
			continue
		}
		out = append(out, e.Text)
	}
	return out
}

// PerceptionBuilder snapshots an agent's surroundings from the directory,
// the conversation source and the event feed.
type PerceptionBuilder struct {
	directory     *Directory
	conversations ConversationSource
	feed          *EventFeed
	radius        float64

	mu         sync.Mutex
	lastNearby map[uuid.UUID]map[uuid.UUID]string
}

func NewPerceptionBuilder(directory *Directory, feed *EventFeed, conversations ConversationSource, radius float64) *PerceptionBuilder {
	if radius <= 0 {
		radius = 15
	}
	return &PerceptionBuilder{
		directory:     directory,
		conversations: conversations,
		feed:          feed,
		radius:        radius,
		lastNearby:    make(map[uuid.UUID]map[uuid.UUID]string),
	}
}

// Perceive builds this tick's snapshot for the agent and advances its
// perception checkpoint. Agents newly arrived nearby since the previous
// call show up as notable changes.
func (b *PerceptionBuilder) Perceive(a *Agent, now time.Time) *Perception {
	p := &Perception{}
	loc := a.Location()
	if loc != nil {
		p.LocationID = loc.ID
		p.LocationName = loc.Name
	}

	nearby := b.directory.Nearby(a, b.radius)
	current := make(map[uuid.UUID]string, len(nearby))
	for _, n := range nearby {
		p.AgentsNearby = append(p.AgentsNearby, NearbyAgent{ID: n.ID, Name: n.Name})
		current[n.ID] = n.Name
	}

	b.mu.Lock()
	prev := b.lastNearby[a.ID]
	for id, name := range current {
		if _, seen := prev[id]; !seen && prev != nil {
			p.NotableChanges = append(p.NotableChanges, name+" 来到了附近")
		}
	}
	b.lastNearby[a.ID] = current
	b.mu.Unlock()

	a.mu.Lock()
	lastCheck := a.lastPerceptionCheck
	a.lastPerceptionCheck = now
	a.mu.Unlock()
	if b.feed != nil {
		p.NewEvents = b.feed.Since(lastCheck, p.LocationName)
	}

	if b.conversations != nil {
		if partner, ok := b.conversations.PartnerOf(a.ID); ok {
			p.BeingAddressed = true
			p.AddressedBy = partner
		}
	}
	return p
}

// Forget drops the builder's nearby snapshot for a departed agent.
func (b *PerceptionBuilder) Forget(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.lastNearby, id)
}
