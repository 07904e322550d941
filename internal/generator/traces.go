package generator

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gyaneshwarpardhi/otelrecorder/internal/event"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/idgen"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/weighted"
)

// TraceCategories is the weight table for synthetic trace types.
var TraceCategories = weighted.Table[string]{
	{Key: "api_request", Weight: 10},
	{Key: "database_query", Weight: 8},
	{Key: "user_action", Weight: 6},
	{Key: "background_job", Weight: 4},
	{Key: "microservice_call", Weight: 5},
	{Key: "external_api", Weight: 3},
}

var (
	httpMethods   = []string{"GET", "POST", "PUT", "DELETE"}
	apiEndpoints  = []string{"/api/users", "/api/products", "/api/orders", "/api/auth"}
	sqlOperations = []string{"SELECT", "INSERT", "UPDATE", "DELETE"}
	traceTables   = []string{"users", "products", "orders", "payments"}
	userActions   = []string{"login", "logout", "profile_update", "password_change"}
	jobs          = []string{"email_sending", "data_processing", "cleanup", "report_generation"}
	services      = []string{"auth-service", "payment-service", "notification-service", "user-service"}
	serviceCalls  = []string{"getUser", "processPayment", "sendNotification", "validateToken"}
	externalAPIs  = []string{"stripe", "twilio", "mailchimp", "aws-s3"}
	externalCalls = []string{"getData", "sendData", "authenticate", "validate"}
	subEventNames = []string{"start", "process", "complete"}
)

// TraceSynth builds traces, both for recorded operations and synthetic ticks.
type TraceSynth struct {
	ids     *idgen.Generator
	rnd     weighted.Rand
	now     func() time.Time
	service string
}

func NewTraceSynth(ids *idgen.Generator, rnd weighted.Rand, now func() time.Time, service string) *TraceSynth {
	if now == nil {
		now = time.Now
	}
	if service == "" {
		service = event.DefaultServiceName
	}
	return &TraceSynth{ids: ids, rnd: rnd, now: now, service: service}
}

// Build assembles a trace for operation. Operations mentioning "database" or
// "http" get matching span attributes; ones mentioning "error" are marked
// failed with exception attributes.
func (s *TraceSynth) Build(operation, message string, attrs map[string]event.Value) event.Trace {
	now := s.now()
	if attrs == nil {
		attrs = map[string]event.Value{}
	}
	attrs["span.kind"] = event.String("server")

	status := event.StatusSuccess
	switch {
	case strings.Contains(operation, "database"):
		attrs["db.system"] = event.String("postgresql")
		attrs["db.statement"] = event.String("SELECT * FROM users WHERE id = ?")
		attrs["db.user"] = event.String("db_user")
	case strings.Contains(operation, "http"):
		attrs["http.method"] = event.String("GET")
		attrs["http.url"] = event.String("https://api.example.com/data")
		attrs["http.status_code"] = event.Int(200)
	}
	if strings.Contains(operation, "error") {
		status = event.StatusError
		attrs["error"] = event.Bool(true)
		attrs["exception.message"] = event.String("Simulated error for testing")
		attrs["exception.type"] = event.String("SimulatedError")
	}

	return event.Trace{
		ID:          s.ids.RecordID("trace"),
		TraceID:     s.ids.TraceID(),
		SpanID:      s.ids.SpanID(),
		Operation:   operation,
		Message:     message,
		Timestamp:   event.FormatTimestamp(now),
		DurationMs:  int64(weighted.Between(10, 200, s.rnd)),
		Attributes:  attrs,
		Events:      s.subEvents(now),
		ServiceName: s.service,
		Status:      status,
	}
}

func (s *TraceSynth) subEvents(now time.Time) []event.SubEvent {
	n := weighted.Between(1, 3, s.rnd)
	out := make([]event.SubEvent, 0, n)
	for i := 0; i < n; i++ {
		at := now.Add(time.Duration(s.rnd.IntN(500)) * time.Millisecond)
		out = append(out, event.SubEvent{
			Name:      subEventNames[i%len(subEventNames)],
			Timestamp: event.FormatTimestamp(at),
			Attributes: map[string]event.Value{
				"event.id":       event.String(fmt.Sprintf("evt_%d_%d", now.UnixMilli(), i)),
				"event.sequence": event.String(strconv.Itoa(i)),
			},
		})
	}
	return out
}

// Next synthesizes one trace from a weighted category. With probability
// errorRate it is marked as an error and carries an exception sub-event.
func (s *TraceSynth) Next(errorRate float64) event.Trace {
	category := weighted.MustPick(TraceCategories, s.rnd)
	operation, message, tags := s.describe(category)
	tags["auto"] = event.Bool(true)
	tags["app.synthetic"] = event.Bool(true)
	tags["trace.category"] = event.String(category)

	tr := s.Build(operation, message, tags)
	if errorRate > 0 && s.rnd.Float64() < errorRate {
		tr.Status = event.StatusError
		tr.Attributes["error"] = event.Bool(true)
		tr.Events = append(tr.Events, event.SubEvent{
			Name:      "exception",
			Timestamp: tr.Timestamp,
			Attributes: map[string]event.Value{
				"exception.type":    event.String("SyntheticError"),
				"exception.message": event.String(operation + " failed"),
			},
		})
	}
	return tr
}

func (s *TraceSynth) describe(category string) (operation, message string, tags map[string]event.Value) {
	at := s.now().Format(time.TimeOnly)
	pick := func(items []string) string { return weighted.Choice(items, s.rnd) }

	switch category {
	case "api_request":
		method, endpoint := pick(httpMethods), pick(apiEndpoints)
		return strings.ToLower(method) + "_" + strings.ReplaceAll(endpoint, "/", "_"),
			fmt.Sprintf("API Request: %s %s at %s", method, endpoint, at),
			map[string]event.Value{"method": event.String(method), "endpoint": event.String(endpoint)}
	case "database_query":
		op, table := pick(sqlOperations), pick(traceTables)
		return "db_" + strings.ToLower(op) + "_" + table,
			fmt.Sprintf("Database Query: %s on %s table at %s", op, table, at),
			map[string]event.Value{"operation": event.String(op), "table": event.String(table)}
	case "user_action":
		action := pick(userActions)
		user := "user_" + strconv.Itoa(s.rnd.IntN(1000))
		return "user_action_" + action,
			fmt.Sprintf("User action: %s for %s at %s", action, user, at),
			map[string]event.Value{"action": event.String(action), "userId": event.String(user)}
	case "background_job":
		job := pick(jobs)
		return "job_" + job,
			fmt.Sprintf("Background job: %s started at %s", job, at),
			map[string]event.Value{"job": event.String(job), "scheduled": event.Bool(true)}
	case "microservice_call":
		svc, method := pick(services), pick(serviceCalls)
		return strings.Replace(svc, "-", "_", 1) + "_" + method,
			fmt.Sprintf("Microservice call: %s.%s at %s", svc, method, at),
			map[string]event.Value{"service": event.String(svc), "method": event.String(method)}
	case "external_api":
		api, call := pick(externalAPIs), pick(externalCalls)
		return "external_" + api + "_" + call,
			fmt.Sprintf("External API call: %s %s at %s", api, call, at),
			map[string]event.Value{"api": event.String(api), "action": event.String(call), "external": event.Bool(true)}
	default:
		return "generic_trace", "Auto-generated trace at " + at, map[string]event.Value{}
	}
}
