package agent

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
)

type NeedKind string

const (
	NeedHunger        NeedKind = "hunger"
	NeedFatigue       NeedKind = "fatigue"
	NeedSocial        NeedKind = "social"
	NeedEntertainment NeedKind = "entertainment"
	NeedHygiene       NeedKind = "hygiene"
	NeedComfort       NeedKind = "comfort"
)

var needKinds = []NeedKind{
	NeedHunger, NeedFatigue, NeedSocial, NeedEntertainment, NeedHygiene, NeedComfort,
}

type needConfig struct {
	label             string
	growthRate        float64 // per in-world hour
	urgentThreshold   float64
	criticalThreshold float64
	decayAmount       float64
}

var needConfigs = map[NeedKind]needConfig{
	NeedHunger:        {label: "饥饿", growthRate: 4.0, urgentThreshold: 70, criticalThreshold: 90, decayAmount: 60},
	NeedFatigue:       {label: "疲劳", growthRate: 2.5, urgentThreshold: 75, criticalThreshold: 95, decayAmount: 80},
	NeedSocial:        {label: "社交", growthRate: 1.5, urgentThreshold: 65, criticalThreshold: 85, decayAmount: 40},
	NeedEntertainment: {label: "娱乐", growthRate: 1.8, urgentThreshold: 60, criticalThreshold: 80, decayAmount: 35},
	NeedHygiene:       {label: "卫生", growthRate: 1.0, urgentThreshold: 70, criticalThreshold: 90, decayAmount: 70},
	NeedComfort:       {label: "舒适", growthRate: 0.8, urgentThreshold: 55, criticalThreshold: 75, decayAmount: 30},
}

// Needs tracks six 0-100 pressure values that grow with in-world time and
// shrink when the matching activity completes. Higher is more urgent.
// Pipelines mutate them while API handlers read them, so every accessor
// takes the internal lock.
type Needs struct {
	mu     sync.Mutex
	values map[NeedKind]float64
}

func NewNeeds() *Needs {
	return &Needs{values: map[NeedKind]float64{
		NeedHunger:        20,
		NeedFatigue:       15,
		NeedSocial:        30,
		NeedEntertainment: 25,
		NeedHygiene:       10,
		NeedComfort:       20,
	}}
}

func clamp100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func (n *Needs) Get(kind NeedKind) float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.values[kind]
}

func (n *Needs) Set(kind NeedKind, value float64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.values[kind] = clamp100(value)
}

// Grow advances every need by elapsed in-world hours. Personality skews the
// rates: extraverts hunger for company faster, neurotics tire faster.
func (n *Needs) Grow(elapsedHours float64, p *Personality) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, kind := range needKinds {
		cfg := needConfigs[kind]
		modifier := 1.0
		if p != nil {
			switch kind {
			case NeedSocial:
				modifier = 0.7 + float64(p.Extraversion)/100*0.6
			case NeedEntertainment:
				modifier = 0.8 + float64(p.Openness)/100*0.4
			case NeedFatigue:
				modifier = 0.9 + float64(p.Neuroticism)/100*0.2
			}
		}
		growth := cfg.growthRate * modifier * elapsedHours
		growth *= 0.9 + rand.Float64()*0.2
		n.values[kind] = clamp100(n.values[kind] + growth)
	}
}

// Satisfy reduces a need by its configured amount and returns the actual
// decrease.
func (n *Needs) Satisfy(kind NeedKind) float64 {
	return n.SatisfyBy(kind, needConfigs[kind].decayAmount)
}

func (n *Needs) SatisfyBy(kind NeedKind, amount float64) float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	old := n.values[kind]
	n.values[kind] = clamp100(old - amount)
	return old - n.values[kind]
}

type UrgentNeed struct {
	Kind  NeedKind
	Value float64
}

// Urgent returns needs at or above their urgent threshold, most pressing
// first.
func (n *Needs) Urgent() []UrgentNeed {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []UrgentNeed
	for _, kind := range needKinds {
		if v := n.values[kind]; v >= needConfigs[kind].urgentThreshold {
			out = append(out, UrgentNeed{Kind: kind, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Value > out[j].Value })
	return out
}

// Wellbeing is the inverse of average need pressure, 0-100.
func (n *Needs) Wellbeing() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	var total float64
	for _, kind := range needKinds {
		total += n.values[kind]
	}
	return 100 - total/float64(len(needKinds))
}

// StatusDescription renders the need state for prompts.
func (n *Needs) StatusDescription() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var lines []string
	for _, kind := range needKinds {
		cfg := needConfigs[kind]
		v := n.values[kind]
		var desc string
		switch {
		case v >= cfg.criticalThreshold:
			desc = "极度需要"
		case v >= cfg.urgentThreshold:
			desc = "比较需要"
		case v >= 40:
			desc = "有些需要"
		default:
			desc = "暂时满足"
		}
		lines = append(lines, fmt.Sprintf("- %s：%.0f/100（%s）", cfg.label, v, desc))
	}
	return strings.Join(lines, "\n")
}

// Snapshot copies the raw values for API responses.
func (n *Needs) Snapshot() map[NeedKind]float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make(map[NeedKind]float64, len(n.values))
	for k, v := range n.values {
		out[k] = v
	}
	return out
}
