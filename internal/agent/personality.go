package agent

import (
	"fmt"
	"math/rand"
	"strings"
)

// Personality holds Big Five trait scores, each 0-100. Traits are fixed at
// creation and skew decisions, social behavior and need growth.
type Personality struct {
	Openness          int `json:"openness"`
	Conscientiousness int `json:"conscientiousness"`
	Extraversion      int `json:"extraversion"`
	Agreeableness     int `json:"agreeableness"`
	Neuroticism       int `json:"neuroticism"`
}

func DefaultPersonality() *Personality {
	return &Personality{50, 50, 50, 50, 50}
}

// RandomPersonality samples traits around the midpoint with the given
// spread.
func RandomPersonality(variation int) *Personality {
	sample := func() int {
		v := 50 + rand.Intn(2*variation+1) - variation
		if v < 0 {
			return 0
		}
		if v > 100 {
			return 100
		}
		return v
	}
	return &Personality{sample(), sample(), sample(), sample(), sample()}
}

type traitLevel string

const (
	levelLow  traitLevel = "low"
	levelMid  traitLevel = "mid"
	levelHigh traitLevel = "high"
)

func level(value int) traitLevel {
	switch {
	case value <= 35:
		return levelLow
	case value <= 65:
		return levelMid
	default:
		return levelHigh
	}
}

var traitDescriptors = map[string]map[traitLevel][]string{
	"openness": {
		levelLow:  {"保守", "传统", "务实", "脚踏实地"},
		levelMid:  {"平衡", "适度开放", "有选择地尝新"},
		levelHigh: {"富有想象力", "有创造力", "好奇心强", "思想开放"},
	},
	"conscientiousness": {
		levelLow:  {"随性", "灵活", "即兴", "不拘小节"},
		levelMid:  {"适度自律", "基本可靠", "有时拖延"},
		levelHigh: {"自律", "有条理", "可靠", "勤奋", "做事认真"},
	},
	"extraversion": {
		levelLow:  {"内向", "安静", "独处爱好者", "深思熟虑"},
		levelMid:  {"外向内向兼具", "社交适度", "选择性社交"},
		levelHigh: {"外向", "健谈", "精力充沛", "喜欢社交", "热情"},
	},
	"agreeableness": {
		levelLow:  {"独立", "直率", "竞争意识强", "质疑型"},
		levelMid:  {"基本友善", "有时固执", "理性同情"},
		levelHigh: {"友善", "乐于助人", "有同理心", "信任他人", "温和"},
	},
	"neuroticism": {
		levelLow:  {"情绪稳定", "冷静", "抗压能力强", "乐观"},
		levelMid:  {"偶尔焦虑", "情绪正常波动", "压力下可控"},
		levelHigh: {"敏感", "容易焦虑", "情绪波动大", "多虑"},
	},
}

// Description picks one descriptor per trait for prompt context.
func (p *Personality) Description() string {
	traits := []struct {
		name  string
		value int
	}{
		{"openness", p.Openness},
		{"conscientiousness", p.Conscientiousness},
		{"extraversion", p.Extraversion},
		{"agreeableness", p.Agreeableness},
		{"neuroticism", p.Neuroticism},
	}
	var parts []string
	for _, t := range traits {
		descriptors := traitDescriptors[t.name][level(t.value)]
		parts = append(parts, descriptors[rand.Intn(len(descriptors))])
	}
	return strings.Join(parts, "、")
}

// FullDescription lists each trait with its score and level.
func (p *Personality) FullDescription() string {
	names := []struct {
		label string
		value int
	}{
		{"开放性", p.Openness},
		{"尽责性", p.Conscientiousness},
		{"外向性", p.Extraversion},
		{"宜人性", p.Agreeableness},
		{"神经质", p.Neuroticism},
	}
	var lines []string
	for _, n := range names {
		lines = append(lines, fmt.Sprintf("%s: %d/100 (%s)", n.label, n.value, level(n.value)))
	}
	return strings.Join(lines, "\n")
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// SocialTendency is 0-1: how readily the agent seeks company.
func (p *Personality) SocialTendency() float64 {
	base := float64(p.Extraversion) / 100
	modifier := float64(p.Agreeableness-50) / 200
	anxiety := float64(p.Neuroticism-50) / 400
	return clamp01(base + modifier - anxiety)
}

// WorkEfficiency is 0-1: conscientiousness weighted by focus.
func (p *Personality) WorkEfficiency() float64 {
	base := float64(p.Conscientiousness) / 100
	focus := float64(100-p.Neuroticism) / 200
	return clamp01(base*0.7 + focus*0.3)
}

// RiskTolerance is 0-1.
func (p *Personality) RiskTolerance() float64 {
	openness := float64(p.Openness) / 100
	stability := float64(100-p.Neuroticism) / 100
	caution := float64(100-p.Conscientiousness) / 100
	return openness*0.4 + stability*0.4 + caution*0.2
}

// EmotionalStability is 0-1, the inverse of neuroticism.
func (p *Personality) EmotionalStability() float64 {
	return float64(100-p.Neuroticism) / 100
}
