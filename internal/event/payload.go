package event

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/valyala/fastjson"
)

// Payload is the body of a log event: either plain text or a structured
// object.
type Payload struct {
	text   string
	fields map[string]Value
}

// PlainText builds a text payload.
func PlainText(s string) Payload { return Payload{text: s} }

// Structured builds an object payload.
func Structured(fields map[string]Value) Payload {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Payload{fields: fields}
}

// ParsePayload treats s as a structured payload when it is a JSON object
// and as plain text otherwise.
func ParsePayload(s string) Payload {
	var p fastjson.Parser
	fv, err := p.Parse(s)
	if err != nil || fv.Type() != fastjson.TypeObject {
		return PlainText(s)
	}
	m, _ := FromFastJSON(fv).AsMap()
	return Structured(m)
}

func (p Payload) IsStructured() bool { return p.fields != nil }

// Fields returns the structured members, or nil for plain text.
func (p Payload) Fields() map[string]Value { return p.fields }

// Text is the searchable rendering: the text itself, or compact JSON.
func (p Payload) Text() string {
	if p.fields == nil {
		return p.text
	}
	var buf bytes.Buffer
	writeMap(&buf, p.fields)
	return buf.String()
}

func (p Payload) MarshalJSON() ([]byte, error) {
	if p.fields == nil {
		return json.Marshal(p.text)
	}
	return Map(p.fields).MarshalJSON()
}

func (p *Payload) UnmarshalJSON(data []byte) error {
	var parser fastjson.Parser
	fv, err := parser.ParseBytes(data)
	if err != nil {
		return fmt.Errorf("event payload: %w", err)
	}
	switch fv.Type() {
	case fastjson.TypeString:
		*p = PlainText(string(fv.GetStringBytes()))
	case fastjson.TypeObject:
		m, _ := FromFastJSON(fv).AsMap()
		*p = Structured(m)
	default:
		*p = PlainText(string(data))
	}
	return nil
}
