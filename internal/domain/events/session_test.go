package events

import (
	"encoding/json"
	"testing"

	"github.com/convoidx/convoidx/internal/domain/types"
)

func TestNewSessionUpdatedEvent(t *testing.T) {
	item := types.SessionListItem{SessionID: "S1", Status: "idle"}
	event := NewSessionUpdatedEvent(item)

	if event.Type() != EventTypeSessionUpdated {
		t.Fatalf("type = %v, want %v", event.Type(), EventTypeSessionUpdated)
	}
	if event.GetSessionID() != "S1" {
		t.Fatalf("session id = %q, want S1", event.GetSessionID())
	}

	data, err := event.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}
	var decoded struct {
		Event   string                 `json:"event"`
		Payload types.SessionListItem `json:"payload"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Payload.Status != "idle" {
		t.Fatalf("payload status = %q, want idle", decoded.Payload.Status)
	}
}

func TestNewIndexProgressEvent(t *testing.T) {
	progress := types.IndexProgress{Phase: types.PhaseIndexing, Current: 10, Total: 100}
	event := NewIndexProgressEvent(progress)

	if event.Type() != EventTypeIndexProgress {
		t.Fatalf("type = %v, want %v", event.Type(), EventTypeIndexProgress)
	}
	payload, ok := event.Payload.(types.IndexProgress)
	if !ok {
		t.Fatalf("payload type = %T, want types.IndexProgress", event.Payload)
	}
	if payload.Current != 10 || payload.Total != 100 {
		t.Fatalf("payload = %+v, want current=10 total=100", payload)
	}
}
