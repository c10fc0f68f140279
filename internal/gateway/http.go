package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const maxResponseBytes = 2 << 20

// Doer is the subset of *http.Client the gateways use.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response is a fully read upstream answer.
type Response struct {
	StatusCode int
	Body       string
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

var tracer = otel.Tracer("domainpark/gateway")

// StartSpan opens a span named "<gateway>.<op>" for one logical gateway call.
func StartSpan(ctx context.Context, gateway, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("gateway.name", gateway),
		attribute.String("gateway.operation", op),
	)
	return tracer.Start(ctx, gateway+"."+op, trace.WithAttributes(attrs...))
}

// EndSpan records err on span (if any) and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// Send performs one HTTP exchange and reads the body. Transport failures,
// 429 and 5xx become retryable CategoryNetwork errors; every other status is
// returned to the caller for interpretation.
func Send(ctx context.Context, client Doer, gateway, op string, req *http.Request) (*Response, error) {
	ctx, span := tracer.Start(ctx, gateway+".http", trace.WithAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("gateway.operation", op),
	))
	var err error
	defer func() { EndSpan(span, err) }()

	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		err = NewError(CategoryNetwork, gateway, op, "request failed", err)
		return nil, err
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if readErr != nil {
		err = NewError(CategoryNetwork, gateway, op, "reading response failed", readErr)
		return nil, err
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		err = NewError(CategoryNetwork, gateway, op, fmt.Sprintf("upstream returned status %d", resp.StatusCode), nil)
		return nil, err
	}

	return &Response{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}, nil
}
