package generator

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gyaneshwarpardhi/otelrecorder/internal/event"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/idgen"
	"github.com/gyaneshwarpardhi/otelrecorder/internal/weighted"
)

// PlainTextCategory is the log category whose payload is a bare string.
const PlainTextCategory = "plain_text"

// LogCategories is the weight table for synthetic log types.
var LogCategories = weighted.Table[string]{
	{Key: "user_activity", Weight: 8},
	{Key: "system_metrics", Weight: 6},
	{Key: "api_request", Weight: 10},
	{Key: "database_operation", Weight: 7},
	{Key: "payment_processing", Weight: 4},
	{Key: PlainTextCategory, Weight: 3},
}

// Severities is the weight table for synthetic log levels.
var Severities = weighted.Table[event.Level]{
	{Key: event.LevelDebug, Weight: 4},
	{Key: event.LevelInfo, Weight: 10},
	{Key: event.LevelWarn, Weight: 3},
	{Key: event.LevelError, Weight: 1},
}

var statusCodes = weighted.Table[int64]{
	{Key: 200, Weight: 70},
	{Key: 201, Weight: 10},
	{Key: 400, Weight: 5},
	{Key: 401, Weight: 5},
	{Key: 403, Weight: 3},
	{Key: 404, Weight: 5},
	{Key: 500, Weight: 2},
}

var plainMessages = []string{
	"Application is running smoothly",
	"Cache invalidation completed successfully",
	"Background job scheduler initialized",
	"Memory usage within acceptable limits",
	"User session expired due to inactivity",
	"Database connection pool stats: 5 active, 15 idle",
	"Webhook delivery attempt failed, will retry in 60 seconds",
	"Failed to connect to third-party API, timeout after 5000ms",
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15",
}

var (
	pageActions    = []string{"login", "logout", "view_page", "update_profile", "delete_account"}
	logTables      = []string{"users", "products", "orders", "payments", "sessions"}
	databases      = []string{"main", "analytics", "archive"}
	currencies     = []string{"USD", "EUR", "GBP", "JPY"}
	paymentStates  = []string{"pending", "completed", "failed", "refunded"}
	providers      = []string{"stripe", "paypal", "adyen", "braintree"}
	paymentMethods = []string{"credit_card", "bank_transfer", "digital_wallet"}
	paymentErrors  = []string{"insufficient_funds", "card_declined", "expired_card"}
)

const randomAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// LogSynth builds log events, both for recorded payloads and synthetic ticks.
type LogSynth struct {
	ids     *idgen.Generator
	rnd     weighted.Rand
	now     func() time.Time
	service string
}

func NewLogSynth(ids *idgen.Generator, rnd weighted.Rand, now func() time.Time, service string) *LogSynth {
	if now == nil {
		now = time.Now
	}
	if service == "" {
		service = event.DefaultServiceName
	}
	return &LogSynth{ids: ids, rnd: rnd, now: now, service: service}
}

// Build wraps a payload into a log event.
func (s *LogSynth) Build(payload event.Payload, level event.Level, context string) event.Log {
	return event.Log{
		ID:          s.ids.RecordID("log"),
		Level:       level,
		Context:     context,
		Message:     payload,
		Timestamp:   event.FormatTimestamp(s.now()),
		ServiceName: s.service,
	}
}

// Next synthesizes one log. A non-zero errorRate forces that share of logs
// to error severity.
func (s *LogSynth) Next(errorRate float64) event.Log {
	level := weighted.MustPick(Severities, s.rnd)
	category := weighted.MustPick(LogCategories, s.rnd)
	if errorRate > 0 && s.rnd.Float64() < errorRate {
		level = event.LevelError
	}

	if category == PlainTextCategory {
		return s.Build(event.PlainText(weighted.Choice(plainMessages, s.rnd)), level, category)
	}
	fields := s.fields(category)
	fields["timestamp"] = event.String(event.FormatTimestamp(s.now()))
	fields["type"] = event.String(category)
	return s.Build(event.Structured(fields), level, category)
}

func (s *LogSynth) fields(category string) map[string]event.Value {
	pick := func(items []string) event.Value { return event.String(weighted.Choice(items, s.rnd)) }
	n := func(upto int) event.Value { return event.Int(int64(s.rnd.IntN(upto))) }

	switch category {
	case "user_activity":
		return map[string]event.Value{
			"user_id":    event.String("user_" + strconv.Itoa(s.rnd.IntN(1000))),
			"session_id": event.String("sess_" + s.randomString(12)),
			"action":     pick(pageActions),
			"ip_address": event.String(s.ip()),
			"user_agent": pick(userAgents),
		}
	case "system_metrics":
		return map[string]event.Value{
			"host": event.String("server-" + strconv.Itoa(s.rnd.IntN(10))),
			"metrics": event.Map(map[string]event.Value{
				"cpu_usage":    event.String(strconv.FormatFloat(s.rnd.Float64(), 'f', 2, 64)),
				"memory_usage": event.String(strconv.Itoa(s.rnd.IntN(8*1024)) + "MB"),
				"disk_space": event.Map(map[string]event.Value{
					"total": event.String("500GB"),
					"used":  event.String(strconv.Itoa(s.rnd.IntN(500)) + "GB"),
					"free":  event.String(strconv.Itoa(s.rnd.IntN(300)) + "GB"),
				}),
				"network": event.Map(map[string]event.Value{
					"rx_bytes": n(1000000),
					"tx_bytes": n(1000000),
				}),
			}),
			"uptime": event.String(fmt.Sprintf("%dd %dh %dm", s.rnd.IntN(30), s.rnd.IntN(24), s.rnd.IntN(60))),
		}
	case "api_request":
		return map[string]event.Value{
			"request_id":  event.String("req_" + s.randomString(16)),
			"method":      pick(httpMethods),
			"endpoint":    pick(apiEndpoints),
			"status_code": event.Int(weighted.MustPick(statusCodes, s.rnd)),
			"duration_ms": n(1000),
			"client_ip":   event.String(s.ip()),
			"headers": event.Map(map[string]event.Value{
				"user-agent":   event.String("Mozilla/5.0"),
				"content-type": event.String("application/json"),
				"x-request-id": event.String(s.randomString(8)),
			}),
		}
	case "database_operation":
		return map[string]event.Value{
			"operation":     pick(sqlOperations),
			"table":         pick(logTables),
			"duration_ms":   n(200),
			"rows_affected": n(100),
			"query_id":      event.String("query_" + s.randomString(10)),
			"connection_id": n(100),
			"database":      pick(databases),
		}
	case "payment_processing":
		errVal := event.Null()
		if s.rnd.Float64() < 0.2 {
			errVal = event.Map(map[string]event.Value{
				"code":    pick(paymentErrors),
				"message": event.String("Payment could not be processed"),
			})
		}
		return map[string]event.Value{
			"payment_id":     event.String("pmt_" + s.randomString(16)),
			"customer_id":    event.String("cust_" + strconv.Itoa(s.rnd.IntN(10000))),
			"amount":         event.Number(math.Round(s.rnd.Float64()*100000) / 100),
			"currency":       pick(currencies),
			"status":         pick(paymentStates),
			"provider":       pick(providers),
			"payment_method": pick(paymentMethods),
			"error":          errVal,
		}
	default:
		return map[string]event.Value{
			"message":      event.String("Unspecified log type: " + category),
			"random_value": event.Number(s.rnd.Float64()),
		}
	}
}

func (s *LogSynth) randomString(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(randomAlphabet[s.rnd.IntN(len(randomAlphabet))])
	}
	return b.String()
}

func (s *LogSynth) ip() string {
	return fmt.Sprintf("%d.%d.%d.%d", s.rnd.IntN(256), s.rnd.IntN(256), s.rnd.IntN(256), s.rnd.IntN(256))
}
