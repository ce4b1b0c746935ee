package analysis

import (
	"bytes"
	"encoding/json"
	"strings"
)

// TextOrList holds a field the model returns either as a string or as a list of strings.
// Items is non-nil exactly when the source was a list (or an object flattened into one).
type TextOrList struct {
	Text  string
	Items []string
}

// IsList reports whether the value came in list form.
func (t TextOrList) IsList() bool { return t.Items != nil }

func (t TextOrList) String() string {
	if t.Items != nil {
		return strings.Join(t.Items, "\n")
	}
	return t.Text
}

func (t TextOrList) MarshalJSON() ([]byte, error) {
	if t.Items != nil {
		return json.Marshal(t.Items)
	}
	return json.Marshal(t.Text)
}

func (t *TextOrList) UnmarshalJSON(b []byte) error {
	*t = textOrList(b)
	return nil
}

func textOrList(raw json.RawMessage) TextOrList {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return TextOrList{}
	}
	switch raw[0] {
	case '[':
		return TextOrList{Items: stringList(raw)}
	case '{':
		var out []string
		_ = eachMember(raw, func(key string, value json.RawMessage) {
			if s := scalarText(value); s != "" {
				out = append(out, key+": "+s)
			}
		})
		if out == nil {
			out = []string{}
		}
		return TextOrList{Items: out}
	default:
		return TextOrList{Text: scalarText(raw)}
	}
}

// Section is one titled block of the technical analysis.
type Section struct {
	Title string     `json:"title"`
	Body  TextOrList `json:"body"`
}

// Details is detailed_technical_analysis: free text, or titled sections kept in the
// order the model wrote them.
type Details struct {
	Text     string
	Sections []Section
}

func (d Details) MarshalJSON() ([]byte, error) {
	if d.Sections == nil {
		return json.Marshal(d.Text)
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range d.Sections {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(s.Title)
		if err != nil {
			return nil, err
		}
		v, err := s.Body.MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (d *Details) UnmarshalJSON(b []byte) error {
	*d = details(b)
	return nil
}

func details(raw json.RawMessage) Details {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Details{}
	}
	switch raw[0] {
	case '{':
		sections := []Section{}
		if err := eachMember(raw, func(key string, value json.RawMessage) {
			sections = append(sections, Section{Title: key, Body: textOrList(value)})
		}); err != nil {
			return Details{Text: string(raw)}
		}
		return Details{Sections: sections}
	case '[':
		return Details{Text: strings.Join(stringList(raw), "\n")}
	default:
		return Details{Text: scalarText(raw)}
	}
}

// stringList accepts a list of anything, or a single scalar, and returns strings.
func stringList(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []string{}
	}
	if raw[0] != '[' {
		if s := scalarText(raw); s != "" {
			return []string{s}
		}
		return []string{}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s := scalarText(it); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// scalarText renders a JSON value as display text. Strings are unquoted, null is empty,
// anything else is kept as compact JSON.
func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return strings.TrimSpace(s)
		}
	}
	if raw[0] == '[' {
		return strings.Join(stringList(raw), "; ")
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// eachMember walks a JSON object in document order.
func eachMember(raw json.RawMessage, fn func(key string, value json.RawMessage)) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return err
		}
		fn(key, value)
	}
	return nil
}
