package ctxutil

import (
	"context"
	"testing"
)

func TestPayloadRoundTrip(t *testing.T) {
	ctx := WithTraceData(context.Background(), &TraceData{TraceID: "t-1", RequestID: "r-1"})
	payload := map[string]any{"analysis_id": "a", "request_id": "caller"}
	InjectPayload(ctx, payload)
	if payload["trace_id"] != "t-1" {
		t.Fatalf("trace_id = %v", payload["trace_id"])
	}
	if payload["request_id"] != "caller" {
		t.Fatalf("existing request_id overwritten: %v", payload["request_id"])
	}

	got := GetTraceData(FromPayload(context.Background(), payload))
	if got == nil || got.TraceID != "t-1" || got.RequestID != "caller" {
		t.Fatalf("restored = %+v", got)
	}
}

func TestFromPayloadWithoutIDs(t *testing.T) {
	ctx := context.Background()
	if GetTraceData(FromPayload(ctx, map[string]any{"trace_id": "  "})) != nil {
		t.Fatalf("blank ids should not attach trace data")
	}
}
