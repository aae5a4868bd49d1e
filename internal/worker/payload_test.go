package worker

import (
	"encoding/json"
	"testing"
)

// The session service marshals queue items as string maps; the workers decode
// them into their payload structs. These tests pin that contract.

func TestSnapshotPayloadDecodesProducerShape(t *testing.T) {
	raw, err := json.Marshal(map[string]interface{}{
		"invitation_id": "0c2e1f58-3f6a-4a8e-9d8a-6a0a0a1b2c3d",
		"question_id":   "a7b5b7a0-1111-4222-8333-444455556666",
		"answer":        "B",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var p snapshotPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.InvitationID != "0c2e1f58-3f6a-4a8e-9d8a-6a0a0a1b2c3d" {
		t.Errorf("invitation_id mismatch: %s", p.InvitationID)
	}
	if p.QuestionID != "a7b5b7a0-1111-4222-8333-444455556666" {
		t.Errorf("question_id mismatch: %s", p.QuestionID)
	}
	if p.Answer != "B" {
		t.Errorf("answer mismatch: %s", p.Answer)
	}
}

func TestProctorPayloadDecodesProducerShape(t *testing.T) {
	raw, err := json.Marshal(map[string]interface{}{
		"invitation_id": "0c2e1f58-3f6a-4a8e-9d8a-6a0a0a1b2c3d",
		"assessment_id": "a7b5b7a0-1111-4222-8333-444455556666",
		"kind":          "blur",
		"detail":        "window blur",
		"timestamp":     int64(1756684800),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var p proctorPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Kind != "blur" || p.Detail != "window blur" {
		t.Errorf("kind/detail mismatch: %s %s", p.Kind, p.Detail)
	}
	if p.Timestamp != 1756684800 {
		t.Errorf("timestamp mismatch: %d", p.Timestamp)
	}
}
