package query

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gyaneshwarpardhi/otelrecorder/internal/condition"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/event"
)

// parser collects diagnostics for parameters it had to ignore.
type parser struct {
	v     url.Values
	diags []string
}

func (p *parser) skip(name, raw, why string) {
	p.diags = append(p.diags, fmt.Sprintf("ignored %s=%q: %s", name, raw, why))
}

func (p *parser) str(names ...string) *string {
	for _, n := range names {
		if s := strings.TrimSpace(p.v.Get(n)); s != "" {
			return &s
		}
	}
	return nil
}

func (p *parser) where() *condition.Condition {
	raw := p.str("where")
	if raw == nil {
		return nil
	}
	c, err := condition.Compile(*raw)
	if err != nil {
		p.skip("where", *raw, err.Error())
		return nil
	}
	return c
}

func (p *parser) integer(name string) *int64 {
	raw := strings.TrimSpace(p.v.Get(name))
	if raw == "" {
		return nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		p.skip(name, raw, "not an integer")
		return nil
	}
	return &n
}

// page reads a non-negative integer; absent or invalid yields 0.
func (p *parser) page(name string) int {
	n := p.integer(name)
	if n == nil {
		return 0
	}
	if *n < 0 {
		p.skip(name, strconv.FormatInt(*n, 10), "must not be negative")
		return 0
	}
	return int(*n)
}

func (p *parser) timestamp(names ...string) *time.Time {
	for _, n := range names {
		raw := strings.TrimSpace(p.v.Get(n))
		if raw == "" {
			continue
		}
		t, ok := event.ParseTimestamp(raw)
		if !ok {
			p.skip(n, raw, "not an ISO-8601 date")
			return nil
		}
		return &t
	}
	return nil
}

// ParseTraceQuery reads trace filters from URL parameters. Parameters that
// cannot be parsed are left out of the query and reported as diagnostics.
func ParseTraceQuery(v url.Values) (TraceQuery, []string) {
	p := &parser{v: v}
	q := TraceQuery{
		Operation:   p.str("operation"),
		Service:     p.str("service", "serviceName"),
		MinDuration: p.integer("minDuration"),
		MaxDuration: p.integer("maxDuration"),
		From:        p.timestamp("from", "startTime"),
		To:          p.timestamp("to", "endTime"),
		Search:      p.str("search"),
		Limit:       p.page("limit"),
		Offset:      p.page("offset"),
	}
	if s := p.str("status"); s != nil {
		switch st := event.Status(strings.ToLower(*s)); st {
		case event.StatusSuccess, event.StatusError:
			q.Status = &st
		default:
			p.skip("status", *s, "want success or error")
		}
	}
	if a := p.str("attribute"); a != nil {
		key, val, ok := strings.Cut(*a, "=")
		if !ok || key == "" {
			p.skip("attribute", *a, "want key=value")
		} else {
			q.Attribute = &AttributeMatch{Key: key, Value: val}
		}
	}
	q.Where = p.where()
	return q, p.diags
}

// ParseLogQuery reads log filters from URL parameters. Parameters that
// cannot be parsed are left out of the query and reported as diagnostics.
func ParseLogQuery(v url.Values) (LogQuery, []string) {
	p := &parser{v: v}
	q := LogQuery{
		Service: p.str("service", "serviceName"),
		Level:   p.str("level"),
		Context: p.str("context"),
		Search:  p.str("search"),
		Since:   p.timestamp("since"),
		Limit:   p.page("limit"),
		Offset:  p.page("offset"),
		Where:   p.where(),
	}
	return q, p.diags
}

// ParseSince reads the since parameter of a statistics request. An
// unparsable value is reported and the statistics stay unfiltered.
func ParseSince(v url.Values) (*time.Time, []string) {
	p := &parser{v: v}
	return p.timestamp("since"), p.diags
}
