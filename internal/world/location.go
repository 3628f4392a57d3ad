package world

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type LocationKind string

const (
	KindHome       LocationKind = "home"
	KindRestaurant LocationKind = "restaurant"
	KindCafe       LocationKind = "cafe"
	KindOffice     LocationKind = "office"
	KindShop       LocationKind = "shop"
	KindPark       LocationKind = "park"
	KindGym        LocationKind = "gym"
	KindHospital   LocationKind = "hospital"
	KindBank       LocationKind = "bank"
	KindBar        LocationKind = "bar"
)

type ActivityKind string

const (
	ActivitySleep     ActivityKind = "sleep"
	ActivityEat       ActivityKind = "eat"
	ActivityWork      ActivityKind = "work"
	ActivityShop      ActivityKind = "shop"
	ActivityExercise  ActivityKind = "exercise"
	ActivityRelax     ActivityKind = "relax"
	ActivityStudy     ActivityKind = "study"
	ActivitySocialize ActivityKind = "socialize"
)

type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Position) DistanceTo(other Position) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// OpeningHours in 24h clock. CloseHour before OpenHour means the place
// stays open across midnight (a bar at 22-4).
type OpeningHours struct {
	OpenHour  int `json:"open_hour"`
	CloseHour int `json:"close_hour"`
}

// AllDay is open around the clock.
var AllDay = OpeningHours{OpenHour: 0, CloseHour: 24}

func (h OpeningHours) IsOpen(hour int) bool {
	if h.OpenHour <= h.CloseHour {
		return hour >= h.OpenHour && hour < h.CloseHour
	}
	return hour >= h.OpenHour || hour < h.CloseHour
}

// Location is one named place in the town. Occupancy is runtime state
// guarded by the location's own lock; every other field is immutable after
// construction.
type Location struct {
	ID          string
	Name        string
	Kind        LocationKind
	Position    Position
	Capacity    int
	Activities  []ActivityKind
	Hours       OpeningHours
	Description string

	mu        sync.Mutex
	occupants map[uuid.UUID]struct{}
}

func NewLocation(id, name string, kind LocationKind, pos Position, capacity int) *Location {
	return &Location{
		ID:        id,
		Name:      name,
		Kind:      kind,
		Position:  pos,
		Capacity:  capacity,
		Hours:     AllDay,
		occupants: make(map[uuid.UUID]struct{}),
	}
}

// Enter admits the agent unless the location is at capacity.
func (l *Location) Enter(agentID uuid.UUID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.occupants) >= l.Capacity {
		return false
	}
	l.occupants[agentID] = struct{}{}
	return true
}

func (l *Location) Leave(agentID uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.occupants, agentID)
}

func (l *Location) IsFull() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.occupants) >= l.Capacity
}

func (l *Location) OccupantCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.occupants)
}

func (l *Location) Occupants() []uuid.UUID {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]uuid.UUID, 0, len(l.occupants))
	for id := range l.occupants {
		out = append(out, id)
	}
	return out
}

func (l *Location) CanDo(activity ActivityKind) bool {
	for _, a := range l.Activities {
		if a == activity {
			return true
		}
	}
	return false
}

func (l *Location) IsOpenAt(t time.Time) bool {
	return l.Hours.IsOpen(t.Hour())
}

// LocationDirectory is the process-wide registry of locations. Lookups and
// mutations are safe for concurrent use from agent pipelines.
type LocationDirectory struct {
	mu   sync.RWMutex
	byID map[string]*Location
}

func NewLocationDirectory() *LocationDirectory {
	return &LocationDirectory{byID: make(map[string]*Location)}
}

func (d *LocationDirectory) Add(loc *Location) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byID[loc.ID] = loc
}

func (d *LocationDirectory) Get(id string) (*Location, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	loc, ok := d.byID[id]
	return loc, ok
}

// GetByName resolves a location by name, preferring an exact match and
// falling back to substring containment in either direction.
func (d *LocationDirectory) GetByName(name string) (*Location, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, loc := range d.byID {
		if loc.Name == name {
			return loc, true
		}
	}
	for _, loc := range d.byID {
		if strings.Contains(loc.Name, name) || strings.Contains(name, loc.Name) {
			return loc, true
		}
	}
	return nil, false
}

func (d *LocationDirectory) All() []*Location {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Location, 0, len(d.byID))
	for _, loc := range d.byID {
		out = append(out, loc)
	}
	return out
}

// Available returns locations that are open at t, not full, and (when
// activity is non-empty) support the activity.
func (d *LocationDirectory) Available(activity ActivityKind, t time.Time) []*Location {
	var out []*Location
	for _, loc := range d.All() {
		if loc.IsFull() || !loc.IsOpenAt(t) {
			continue
		}
		if activity != "" && !loc.CanDo(activity) {
			continue
		}
		out = append(out, loc)
	}
	return out
}

// Nearest returns the closest location supporting activity, or nil.
func (d *LocationDirectory) Nearest(from Position, activity ActivityKind) *Location {
	var nearest *Location
	minDist := math.Inf(1)
	for _, loc := range d.All() {
		if activity != "" && !loc.CanDo(activity) {
			continue
		}
		if dist := from.DistanceTo(loc.Position); dist < minDist {
			minDist = dist
			nearest = loc
		}
	}
	return nearest
}
