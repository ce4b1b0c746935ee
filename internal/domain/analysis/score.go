package analysis

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
)

const (
	DefaultGranularity = 5
	// DefaultScore is used when the model gives no usable score. It sits in the
	// high-risk bucket: insufficient evidence is treated as risky.
	DefaultScore = 40
)

// Verdict labels, by inclusive upper bound.
const (
	VerdictCritical  = "Critical warning: scam/fake"
	VerdictHighRisk  = "High risk: likely misleading"
	VerdictCaution   = "Caution: mediocre quality"
	VerdictGood      = "Good: safe to buy"
	VerdictExcellent = "Excellent: top-tier authentic"
)

var digitRun = regexp.MustCompile(`\d+`)

// ScoreNormalizer turns heterogeneous score values into an integer in [0,100] that is a
// multiple of Granularity. Rounding is half-up.
type ScoreNormalizer struct {
	Granularity int
	Default     int
}

func NewScoreNormalizer(granularity, def int) ScoreNormalizer {
	return ScoreNormalizer{Granularity: granularity, Default: def}
}

func (n ScoreNormalizer) granularity() int {
	if n.Granularity <= 0 {
		return DefaultGranularity
	}
	return n.Granularity
}

// DefaultScore is the snapped fallback score.
func (n ScoreNormalizer) DefaultScore() int {
	return n.Snap(n.Default)
}

// Normalize reads the score field from the model output.
func (n ScoreNormalizer) Normalize(f Fields) int {
	raw, ok := f.lookup("score", "trust_score", "trustScore")
	if !ok {
		return n.DefaultScore()
	}
	v, ok := rawScore(raw)
	if !ok {
		return n.DefaultScore()
	}
	return n.Snap(v)
}

// Snap clamps to [0,100] and rounds half-up to the nearest multiple of the granularity.
func (n ScoreNormalizer) Snap(v int) int {
	g := n.granularity()
	v = clamp(v)
	q := (v + g/2) / g * g
	for q > 100 {
		q -= g
	}
	return q
}

// Verdict maps a score to its bucket label.
func Verdict(score int) string {
	switch {
	case score <= 25:
		return VerdictCritical
	case score <= 45:
		return VerdictHighRisk
	case score <= 65:
		return VerdictCaution
	case score <= 85:
		return VerdictGood
	default:
		return VerdictExcellent
	}
}

func rawScore(raw json.RawMessage) (int, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, false
	}
	switch c := raw[0]; {
	case c == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		return firstDigits(s)
	case c == '-' || (c >= '0' && c <= '9'):
		var fl float64
		if err := json.Unmarshal(raw, &fl); err != nil {
			return 0, false
		}
		return truncate(fl), true
	case c == '{':
		var obj Fields
		if err := json.Unmarshal(raw, &obj); err != nil {
			return 0, false
		}
		if v, ok := obj.lookup("value", "overall", "score", "total"); ok {
			return rawScore(v)
		}
	}
	return 0, false
}

func firstDigits(s string) (int, bool) {
	m := digitRun.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.Atoi(m)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 100, true
		}
		return 0, false
	}
	return v, true
}

func truncate(fl float64) int {
	switch {
	case math.IsNaN(fl):
		return 0
	case fl > 1000:
		return 1000
	case fl < -1000:
		return -1000
	}
	return int(math.Trunc(fl))
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
