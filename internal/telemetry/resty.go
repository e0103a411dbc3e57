package telemetry

import (
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentResty opens a span per request on client and closes it when the
// response (or error) arrives.
func InstrumentResty(client *resty.Client, tracerName string) {
	tracer := otel.Tracer(tracerName)

	client.OnBeforeRequest(onBeforeRequest(tracer))
	client.OnAfterResponse(onAfterResponse)
	client.OnError(onError)
}

func onBeforeRequest(tracer trace.Tracer) resty.RequestMiddleware {
	return func(_ *resty.Client, req *resty.Request) error {
		ctx, _ := tracer.Start(req.Context(), fmt.Sprintf("http %s", req.Method))
		req.SetContext(ctx)
		return nil
	}
}

func requestHeaderAttributes(out *[]attribute.KeyValue, headers http.Header) {
	for _, header := range []string{"User-Agent", "Referer", "Origin", "Content-Type"} {
		if v := headers.Get(header); v != "" {
			*out = append(*out, attribute.String("request/header: "+header, v))
		}
	}
}

func onAfterResponse(_ *resty.Client, res *resty.Response) error {
	span := trace.SpanFromContext(res.Request.Context())
	defer span.End()

	attrs := []attribute.KeyValue{
		attribute.String("http.method", res.Request.Method),
		attribute.String("http.url", res.Request.URL),
		attribute.Int("http.status_code", res.StatusCode()),
		attribute.Int64("http.response.body.size", res.Size()),
	}
	if location := res.Header().Get("Location"); location != "" {
		attrs = append(attrs, attribute.String("response/header: Location", location))
	}
	requestHeaderAttributes(&attrs, res.Request.Header)
	span.SetAttributes(attrs...)

	if res.StatusCode() >= http.StatusBadRequest {
		span.SetStatus(codes.Error, res.Status())
	}
	return nil
}

func onError(req *resty.Request, err error) {
	span := trace.SpanFromContext(req.Context())
	defer span.End()

	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)

	attrs := []attribute.KeyValue{
		attribute.String("http.method", req.Method),
		attribute.String("http.url", req.URL),
	}
	requestHeaderAttributes(&attrs, req.Header)
	span.SetAttributes(attrs...)
}
