package agent

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ai-society/society/internal/world"
)

// Directory is the process-wide agent registry. It owns placement: moving
// an agent between locations goes through MoveAgent so occupancy stays
// consistent. Safe for concurrent use from parallel pipelines.
type Directory struct {
	mu        sync.RWMutex
	byID      map[uuid.UUID]*Agent
	locations *world.LocationDirectory
	maxAgents int
}

func NewDirectory(locations *world.LocationDirectory, maxAgents int) *Directory {
	if maxAgents <= 0 {
		maxAgents = 100
	}
	return &Directory{
		byID:      make(map[uuid.UUID]*Agent),
		locations: locations,
		maxAgents: maxAgents,
	}
}

func (d *Directory) Locations() *world.LocationDirectory {
	return d.locations
}

func (d *Directory) Add(a *Agent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.byID) >= d.maxAgents {
		return fmt.Errorf("agent directory full: %d agents", len(d.byID))
	}
	if _, exists := d.byID[a.ID]; exists {
		return fmt.Errorf("agent %s already registered", a.ID)
	}
	d.byID[a.ID] = a
	return nil
}

func (d *Directory) Remove(id uuid.UUID) {
	d.mu.Lock()
	a, ok := d.byID[id]
	delete(d.byID, id)
	d.mu.Unlock()
	if ok {
		if loc := a.Location(); loc != nil {
			loc.Leave(id)
			a.setLocation(nil)
		}
	}
}

func (d *Directory) Get(id uuid.UUID) (*Agent, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.byID[id]
	return a, ok
}

func (d *Directory) GetByName(name string) (*Agent, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, a := range d.byID {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

func (d *Directory) All() []*Agent {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]*Agent, 0, len(d.byID))
	for _, a := range d.byID {
		out = append(out, a)
	}
	return out
}

func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}

// MoveAgent relocates an agent to the named location. It refuses when the
// location is unknown or full, leaving the agent where it was.
func (d *Directory) MoveAgent(a *Agent, locationName string) (*world.Location, error) {
	dest, ok := d.locations.GetByName(locationName)
	if !ok {
		return nil, fmt.Errorf("location %q not found", locationName)
	}
	prev := a.Location()
	if prev != nil && prev.ID == dest.ID {
		return dest, nil
	}
	if !dest.Enter(a.ID) {
		return nil, fmt.Errorf("location %s is full", dest.Name)
	}
	if prev != nil {
		prev.Leave(a.ID)
	}
	a.setLocation(dest)
	return dest, nil
}

// AgentsAt returns every agent currently at the location, excluding the
// given id.
func (d *Directory) AgentsAt(loc *world.Location, exclude uuid.UUID) []*Agent {
	if loc == nil {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []*Agent
	for _, id := range loc.Occupants() {
		if id == exclude {
			continue
		}
		if a, ok := d.byID[id]; ok {
			out = append(out, a)
		}
	}
	return out
}

// Nearby returns agents within radius of the given agent, in two tiers:
// those sharing its location first, then those at other locations whose
// position falls inside the radius.
func (d *Directory) Nearby(a *Agent, radius float64) []*Agent {
	here := a.Location()
	if here == nil {
		return nil
	}
	out := d.AgentsAt(here, a.ID)
	seen := make(map[uuid.UUID]struct{}, len(out)+1)
	seen[a.ID] = struct{}{}
	for _, n := range out {
		seen[n.ID] = struct{}{}
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, other := range d.byID {
		if _, dup := seen[other.ID]; dup {
			continue
		}
		loc := other.Location()
		if loc == nil {
			continue
		}
		if here.Position.DistanceTo(loc.Position) <= radius {
			out = append(out, other)
		}
	}
	return out
}

// Stats summarizes the population for dashboards.
type DirectoryStats struct {
	Total   int            `json:"total"`
	ByState map[State]int  `json:"by_state"`
	ByLoc   map[string]int `json:"by_location"`
}

func (d *Directory) Stats() DirectoryStats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	stats := DirectoryStats{
		Total:   len(d.byID),
		ByState: make(map[State]int),
		ByLoc:   make(map[string]int),
	}
	for _, a := range d.byID {
		stats.ByState[a.State()]++
		if name := a.LocationName(); name != "" {
			stats.ByLoc[name]++
		}
	}
	return stats
}
