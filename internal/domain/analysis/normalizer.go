package analysis

import "strings"

// Normalizer runs a raw model response through the parser, score normalizer and name
// resolver and reports how trustworthy the answer itself looks.
type Normalizer struct {
	Scores ScoreNormalizer
	Names  NameResolver
	// StandardVerdict replaces the model's verdict with the score bucket label.
	StandardVerdict bool
}

// Assessment is a canonical Result plus what was learned while producing it.
type Assessment struct {
	Result       Result
	Parsed       bool // the response contained a JSON object
	NameAccepted bool // the model's own product name was usable
	DefaultScore bool // the score fell back to (or landed on) the default
}

// Zombie reports a syntactically valid but non-committal answer.
func (a Assessment) Zombie() bool {
	return !a.NameAccepted || a.DefaultScore
}

func (n Normalizer) Finalize(raw, sourceURL string) Assessment {
	f := Parse(raw)
	r := Decode(f)
	modelName := r.ProductName

	r.Score = n.Scores.Normalize(f)
	r.ProductName = n.Names.Resolve(modelName, sourceURL)
	if n.StandardVerdict || strings.TrimSpace(r.Verdict) == "" {
		r.Verdict = Verdict(r.Score)
	}
	return Assessment{
		Result:       r,
		Parsed:       len(f) > 0,
		NameAccepted: n.Names.Accepts(modelName),
		DefaultScore: r.Score == n.Scores.DefaultScore(),
	}
}
