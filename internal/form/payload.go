package form

import (
	"net/url"
	"strings"
)

// Field is one key/value pair of a form submission.
type Field struct {
	Key   string
	Value string
}

// Payload is an ordered form body. Keys may repeat; order is preserved on the wire.
type Payload struct {
	fields []Field
}

// Add appends a field.
func (p *Payload) Add(key, value string) {
	p.fields = append(p.fields, Field{Key: key, Value: value})
}

// Get returns the first value for key, or "" if key is absent.
func (p *Payload) Get(key string) string {
	for _, f := range p.fields {
		if f.Key == key {
			return f.Value
		}
	}
	return ""
}

// Values returns every value for key in order.
func (p *Payload) Values(key string) []string {
	var out []string
	for _, f := range p.fields {
		if f.Key == key {
			out = append(out, f.Value)
		}
	}
	return out
}

// Fields returns a copy of the fields in order.
func (p *Payload) Fields() []Field {
	out := make([]Field, len(p.fields))
	copy(out, p.fields)
	return out
}

// Len returns the number of fields.
func (p *Payload) Len() int {
	return len(p.fields)
}

var newlines = strings.NewReplacer("\r", "", "\n", "")

// Encode serializes the payload as application/x-www-form-urlencoded in
// insertion order. Line breaks are removed from keys and values first.
func (p *Payload) Encode() string {
	var b strings.Builder
	for i, f := range p.fields {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(newlines.Replace(f.Key)))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(newlines.Replace(f.Value)))
	}
	return b.String()
}
