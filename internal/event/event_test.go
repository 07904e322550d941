package event_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gyaneshwarpardhi/otelrecorder/internal/event"
)

func TestParsePayload_Object(t *testing.T) {
	p := event.ParsePayload(`{"email":{"account_id":"acc_1"},"metrics":{"sent_count":150}}`)
	if !p.IsStructured() {
		t.Fatalf("expected structured payload")
	}
	email, ok := p.Fields()["email"].Get("account_id")
	if !ok {
		t.Fatalf("missing email.account_id")
	}
	if s, _ := email.AsString(); s != "acc_1" {
		t.Errorf("account_id = %q, want acc_1", s)
	}
	n, _ := p.Fields()["metrics"].Get("sent_count")
	if f, ok := n.AsNumber(); !ok || f != 150 {
		t.Errorf("sent_count = %v, want 150", f)
	}
}

func TestParsePayload_PlainText(t *testing.T) {
	for _, in := range []string{"Application is running smoothly", "42", `"quoted"`, "[1,2]", "{broken"} {
		p := event.ParsePayload(in)
		if p.IsStructured() {
			t.Errorf("%q: expected plain text", in)
		}
		if p.Text() != in {
			t.Errorf("%q: Text() = %q", in, p.Text())
		}
	}
}

func TestPayloadJSON(t *testing.T) {
	logs := []event.Log{
		{ID: "a", Level: event.LevelInfo, Message: event.PlainText("hello"), Timestamp: "2024-01-01T00:00:00.000Z"},
		{ID: "b", Level: event.LevelWarn, Message: event.Structured(map[string]event.Value{
			"type":   event.String("api_request"),
			"status": event.Int(500),
			"error":  event.Null(),
			"tags":   event.List(event.String("x"), event.Bool(true)),
		})},
	}
	data, err := json.Marshal(logs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(data), `"message":"hello"`) {
		t.Errorf("plain text should encode as a JSON string: %s", data)
	}
	if !strings.Contains(string(data), `"message":{"error":null,"status":500,"tags":["x",true],"type":"api_request"}`) {
		t.Errorf("structured payload should encode as an object: %s", data)
	}

	var back []event.Log
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back[0].Message.IsStructured() || back[0].Message.Text() != "hello" {
		t.Errorf("plain payload lost: %+v", back[0].Message)
	}
	if !back[1].Message.IsStructured() {
		t.Fatalf("structured payload lost")
	}
	if back[1].Message.Text() != logs[1].Message.Text() {
		t.Errorf("structured text = %s, want %s", back[1].Message.Text(), logs[1].Message.Text())
	}
}

func TestFromAny(t *testing.T) {
	v := event.FromAny(map[string]any{
		"n":    3,
		"f":    0.5,
		"s":    "x",
		"list": []any{1, "two", nil},
	})
	if v.Kind() != event.KindMap {
		t.Fatalf("kind = %v, want map", v.Kind())
	}
	if got := v.Text(); got != `{"f":0.5,"list":[1,"two",null],"n":3,"s":"x"}` {
		t.Errorf("Text() = %s", got)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]event.Level{
		"debug":   event.LevelDebug,
		"WARNING": event.LevelWarn,
		"warn":    event.LevelWarn,
		"Error":   event.LevelError,
		"info":    event.LevelInfo,
		"verbose": event.LevelInfo,
		"":        event.LevelInfo,
	}
	for in, want := range cases {
		if got := event.ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTimestamps(t *testing.T) {
	ts := event.FormatTimestamp(time.Date(2024, 3, 5, 10, 11, 12, 345_000_000, time.FixedZone("x", 3600)))
	if ts != "2024-03-05T09:11:12.345Z" {
		t.Errorf("FormatTimestamp = %s", ts)
	}
	if event.Day(ts) != "2024-03-05" {
		t.Errorf("Day = %s", event.Day(ts))
	}
	if _, ok := event.ParseTimestamp(ts); !ok {
		t.Errorf("ParseTimestamp(%s) failed", ts)
	}
	if _, ok := event.ParseTimestamp("2024-03-05"); !ok {
		t.Errorf("date-only timestamp should parse")
	}
	if _, ok := event.ParseTimestamp("not a date"); ok {
		t.Errorf("garbage should not parse")
	}
}
