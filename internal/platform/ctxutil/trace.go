package ctxutil

import (
	"context"
	"strings"
)

type traceDataKey struct{}

// TraceData follows a request from the HTTP edge into the jobs it enqueues,
// so worker logs for a paper_read or idea_search run share the caller's ids.
type TraceData struct {
	TraceID   string
	RequestID string
}

const (
	payloadTraceID   = "trace_id"
	payloadRequestID = "request_id"
)

func WithTraceData(ctx context.Context, td *TraceData) context.Context {
	return context.WithValue(ctx, traceDataKey{}, td)
}

func GetTraceData(ctx context.Context) *TraceData {
	if ctx == nil {
		return nil
	}
	if td, ok := ctx.Value(traceDataKey{}).(*TraceData); ok {
		return td
	}
	return nil
}

// InjectPayload copies the trace ids on ctx into a job payload. Keys the
// caller already set win.
func InjectPayload(ctx context.Context, payload map[string]any) {
	td := GetTraceData(ctx)
	if td == nil || payload == nil {
		return
	}
	if _, ok := payload[payloadTraceID]; !ok && td.TraceID != "" {
		payload[payloadTraceID] = td.TraceID
	}
	if _, ok := payload[payloadRequestID]; !ok && td.RequestID != "" {
		payload[payloadRequestID] = td.RequestID
	}
}

// FromPayload restores the ids written by InjectPayload. ctx is returned
// unchanged when the payload carries none.
func FromPayload(ctx context.Context, payload map[string]any) context.Context {
	traceID, _ := payload[payloadTraceID].(string)
	reqID, _ := payload[payloadRequestID].(string)
	traceID, reqID = strings.TrimSpace(traceID), strings.TrimSpace(reqID)
	if traceID == "" && reqID == "" {
		return ctx
	}
	return WithTraceData(ctx, &TraceData{TraceID: traceID, RequestID: reqID})
}
