package analysis

import "testing"

func TestNormalize(t *testing.T) {
	n := NewScoreNormalizer(DefaultGranularity, DefaultScore)
	tests := []struct {
		raw  string
		want int
	}{
		{`{"score": 47}`, 45},
		{`{"score": 48}`, 50},
		{`{"score": 103}`, 100},
		{`{"score": -5}`, 0},
		{`{"score": 72.9}`, 70},
		{`{"score": 97.5}`, 95},
		{`{"score": 98}`, 100},
		{`{"score": "85/100"}`, 85},
		{`{"score": "Score: 62 points"}`, 60},
		{`{"score": "n/a"}`, 40},
		{`{"score": "99999999999999999999999"}`, 100},
		{`{"score": null}`, 40},
		{`{"score": true}`, 40},
		{`{"score": {"overall": 33}}`, 35},
		{`{"trust_score": 12}`, 10},
		{`{"trustScore": 3}`, 5},
		{`{}`, 40},
		{`{"score": 1e9}`, 100},
	}
	for _, tt := range tests {
		if got := n.Normalize(Parse(tt.raw)); got != tt.want {
			t.Errorf("Normalize(%s) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestSnapInvariant(t *testing.T) {
	for _, g := range []int{1, 3, 5, 7, 10, 25} {
		n := NewScoreNormalizer(g, DefaultScore)
		for v := -50; v <= 150; v++ {
			got := n.Snap(v)
			if got < 0 || got > 100 || got%g != 0 {
				t.Fatalf("g=%d Snap(%d) = %d", g, v, got)
			}
		}
	}
}

func TestVerdictBuckets(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, VerdictCritical},
		{25, VerdictCritical},
		{26, VerdictHighRisk},
		{45, VerdictHighRisk},
		{46, VerdictCaution},
		{65, VerdictCaution},
		{66, VerdictGood},
		{85, VerdictGood},
		{86, VerdictExcellent},
		{100, VerdictExcellent},
	}
	for _, tt := range tests {
		if got := Verdict(tt.score); got != tt.want {
			t.Errorf("Verdict(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestDefaultScoreIsSnapped(t *testing.T) {
	if got := NewScoreNormalizer(10, 43).DefaultScore(); got != 40 {
		t.Fatalf("DefaultScore = %d", got)
	}
}
