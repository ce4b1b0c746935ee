package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Fields is the loosely-typed object decoded from a model response.
// An empty Fields means nothing usable was found.
type Fields map[string]json.RawMessage

var (
	jsonFence  = regexp.MustCompile("(?is)```json[ \t]*\\r?\\n?(.*?)```")
	plainFence = regexp.MustCompile("(?s)```[ \t]*\\r?\\n(.*?)```")
	objectSpan = regexp.MustCompile(`(?s)\{.*\}`)
)

// Parse extracts a JSON object from free-form model output. It never fails: when every
// strategy is exhausted it returns an empty Fields.
func Parse(raw string) Fields {
	body := strings.TrimSpace(raw)
	if m := jsonFence.FindStringSubmatch(raw); m != nil {
		body = strings.TrimSpace(m[1])
	} else if m := plainFence.FindStringSubmatch(raw); m != nil {
		body = strings.TrimSpace(m[1])
	}

	if f, ok := decodeObject(body); ok {
		return f
	}
	if f, ok := decodeObject(scrubControl(body)); ok {
		return f
	}
	if span := objectSpan.FindString(raw); span != "" {
		if f, ok := decodeObject(span); ok {
			return f
		}
		if f, ok := decodeObject(scrubControl(span)); ok {
			return f
		}
	}
	return Fields{}
}

func decodeObject(s string) (Fields, bool) {
	if s == "" {
		return nil, false
	}
	var f Fields
	if err := json.Unmarshal(escapeControlInStrings(s), &f); err != nil || f == nil {
		return nil, false
	}
	return f, true
}

// escapeControlInStrings rewrites raw control characters found inside string literals
// as JSON escapes, so that text like "line one<LF>line two" still decodes.
func escapeControlInStrings(s string) []byte {
	var buf bytes.Buffer
	buf.Grow(len(s))
	inString, escaped := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString && c < 0x20:
			switch c {
			case '\n':
				buf.WriteString(`\n`)
			case '\r':
				buf.WriteString(`\r`)
			case '\t':
				buf.WriteString(`\t`)
			default:
				fmt.Fprintf(&buf, `\u%04x`, c)
			}
			continue
		}
		buf.WriteByte(c)
	}
	return buf.Bytes()
}

// scrubControl replaces C0 control characters and DEL with a space.
func scrubControl(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
}

func (f Fields) lookup(keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := f[k]; ok {
			return v, true
		}
	}
	return nil, false
}

// Text returns the first present key rendered as text.
func (f Fields) Text(keys ...string) string {
	v, ok := f.lookup(keys...)
	if !ok {
		return ""
	}
	return scalarText(v)
}

// Decode copies the recognised fields into a Result. Score and the product name are
// taken as-is; the ScoreNormalizer and NameResolver canonicalise them afterwards.
func Decode(f Fields) Result {
	r := Result{
		ProductName:   f.Text("product_name", "productName", "name"),
		Verdict:       f.Text("verdict"),
		RedFlags:      []string{},
		KeyComplaints: []string{},
	}
	if v, ok := f.lookup("red_flags", "redFlags"); ok {
		r.RedFlags = stringList(v)
	}
	if v, ok := f.lookup("key_complaints", "keyComplaints", "complaints"); ok {
		r.KeyComplaints = stringList(v)
	}
	if v, ok := f.lookup("reviews_summary", "reviewsSummary"); ok {
		r.ReviewsSummary = textOrList(v)
	}
	if v, ok := f.lookup("detailed_technical_analysis", "detailedTechnicalAnalysis", "detailed_analysis"); ok {
		r.DetailedTechnicalAnalysis = details(v)
	}
	return r
}
