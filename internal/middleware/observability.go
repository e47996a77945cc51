package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tvet-apply/applicants-api/pkg/logger"
	"github.com/tvet-apply/applicants-api/pkg/metrics"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// query keys never written to logs
var redactedQueryKeys = map[string]bool{
	"token": true, "password": true, "secret": true, "key": true,
	"auth": true, "api_key": true, "apikey": true, "national_id": true,
}

// ObservabilityMiddleware records request metrics under the matched route
// template and writes one access log line per request
func ObservabilityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method

		active := metrics.ActiveRequests.WithLabelValues(method)
		active.Inc()
		defer active.Dec()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		code := strconv.Itoa(status)
		duration := metrics.MeasureDuration(start)

		metrics.HTTPRequestDuration.WithLabelValues(method, route, code).Observe(duration)
		metrics.HTTPRequestTotal.WithLabelValues(method, route, code).Inc()

		fields := append(requestFields(c), traceFields(c)...)
		if status >= 400 {
			fields = append(fields, failureFields(c)...)
		}
		logger.LogHTTPRequest(method, c.Request.URL.Path, status, duration, fields...)
	}
}

func requestFields(c *gin.Context) []zap.Field {
	return []zap.Field{
		zap.String("client_ip", c.ClientIP()),
		zap.String("user_agent", c.Request.UserAgent()),
		zap.Int("response_size", c.Writer.Size()),
	}
}

// traceFields ties the log line to the span started by otelgin
func traceFields(c *gin.Context) []zap.Field {
	sc := trace.SpanContextFromContext(c.Request.Context())
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}

func failureFields(c *gin.Context) []zap.Field {
	var fields []zap.Field
	if len(c.Params) > 0 {
		params := make(map[string]string, len(c.Params))
		for _, p := range c.Params {
			params[p.Key] = p.Value
		}
		fields = append(fields, zap.Any("route_params", params))
	}
	if query := redactQuery(c); len(query) > 0 {
		fields = append(fields, zap.Any("query_params", query))
	}
	if len(c.Errors) > 0 {
		fields = append(fields, zap.String("error", c.Errors.String()))
	}
	return fields
}

func redactQuery(c *gin.Context) map[string]string {
	out := map[string]string{}
	for k, v := range c.Request.URL.Query() {
		if len(v) == 0 || redactedQueryKeys[strings.ToLower(k)] {
			continue
		}
		out[k] = v[0]
	}
	return out
}
