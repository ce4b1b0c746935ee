package analysis

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestParseStrategies(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantKey string
		empty   bool
	}{
		{name: "clean object", raw: `{"score": 70}`, wantKey: "score"},
		{name: "json fence with prose", raw: "Sure! Here it is:\n```json\n{\"score\": 70}\n```\nHope that helps.", wantKey: "score"},
		{name: "upper case fence label", raw: "```JSON\n{\"score\": 70}\n```", wantKey: "score"},
		{name: "plain fence", raw: "```\n{\"score\": 70}\n```", wantKey: "score"},
		{name: "raw newline in string", raw: "{\"verdict\": \"line one\nline two\"}", wantKey: "verdict"},
		{name: "control byte outside string", raw: "{\"score\":\x0170}", wantKey: "score"},
		{name: "object buried in prose", raw: `The answer is {"score": 55, "verdict": "ok"} as requested.`, wantKey: "verdict"},
		{name: "nothing usable", raw: "I cannot help with that.", empty: true},
		{name: "top level array", raw: `[1,2,3]`, empty: true},
		{name: "empty", raw: "", empty: true},
		{name: "broken braces", raw: `{"score": 70`, empty: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Parse(tt.raw)
			if f == nil {
				t.Fatal("Parse returned nil")
			}
			if tt.empty {
				if len(f) != 0 {
					t.Fatalf("want empty, got %v", f)
				}
				return
			}
			if _, ok := f[tt.wantKey]; !ok {
				t.Fatalf("missing %q in %v", tt.wantKey, f)
			}
		})
	}
}

func TestParseIsStableAcrossWrapping(t *testing.T) {
	clean := `{"product_name":"Acme Kettle","score":72,"red_flags":["a","b"]}`
	wrapped := "Of course.\n```json\n" + clean + "\n```\nLet me know!"
	if !reflect.DeepEqual(Decode(Parse(clean)), Decode(Parse(wrapped))) {
		t.Fatal("fenced and clean inputs decode differently")
	}
}

func TestRawNewlinePreserved(t *testing.T) {
	f := Parse("{\"verdict\": \"line one\nline two\"}")
	if got := f.Text("verdict"); got != "line one\nline two" {
		t.Fatalf("verdict = %q", got)
	}
}

func TestDecodeShapes(t *testing.T) {
	f := Parse(`{
		"productName": "Acme Kettle",
		"redFlags": "ships from unknown seller",
		"complaints": ["loud", 3, null, {"a":1}],
		"reviews_summary": ["fast", "sturdy"],
		"detailed_technical_analysis": {"Build": "steel", "Power": ["1500W", "fast"], "Rating": 4.5}
	}`)
	r := Decode(f)
	if r.ProductName != "Acme Kettle" {
		t.Fatalf("name = %q", r.ProductName)
	}
	if !reflect.DeepEqual(r.RedFlags, []string{"ships from unknown seller"}) {
		t.Fatalf("red flags = %#v", r.RedFlags)
	}
	if !reflect.DeepEqual(r.KeyComplaints, []string{"loud", "3", `{"a":1}`}) {
		t.Fatalf("complaints = %#v", r.KeyComplaints)
	}
	if !r.ReviewsSummary.IsList() || len(r.ReviewsSummary.Items) != 2 {
		t.Fatalf("reviews = %+v", r.ReviewsSummary)
	}
	d := r.DetailedTechnicalAnalysis
	if d.Sections == nil || len(d.Sections) != 3 {
		t.Fatalf("details = %+v", d)
	}
	titles := []string{d.Sections[0].Title, d.Sections[1].Title, d.Sections[2].Title}
	if !reflect.DeepEqual(titles, []string{"Build", "Power", "Rating"}) {
		t.Fatalf("section order = %v", titles)
	}
	if d.Sections[2].Body.Text != "4.5" {
		t.Fatalf("scalar section = %+v", d.Sections[2].Body)
	}
}

func TestDecodeDefaults(t *testing.T) {
	r := Decode(Fields{})
	if r.RedFlags == nil || r.KeyComplaints == nil {
		t.Fatal("lists must be empty, not nil")
	}
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	var back map[string]json.RawMessage
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if string(back["red_flags"]) != "[]" || string(back["reviews_summary"]) != `""` {
		t.Fatalf("encoded = %s", b)
	}
}

func TestResultShapesSurviveJSON(t *testing.T) {
	in := `{"product_name":"A","score":50,"verdict":"v","red_flags":[],"key_complaints":[],"reviews_summary":["x","y"],"detailed_technical_analysis":{"Zeta":"1","Alpha":["2","3"]}}`
	var r Result
	if err := json.Unmarshal([]byte(in), &r); err != nil {
		t.Fatal(err)
	}
	out, err := json.Marshal(r)
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != in {
		t.Fatalf("got  %s\nwant %s", out, in)
	}
}
