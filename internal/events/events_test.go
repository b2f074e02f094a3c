package events

import (
	"context"
	"testing"
	"time"
)

func TestNewStateChanged(t *testing.T) {
	msg := NewStateChanged("cuentas:cartera:v1", ComponentLedger, "add", 7)

	if msg.Key != "cuentas:cartera:v1" || msg.Component != ComponentLedger || msg.Revision != 7 {
		t.Errorf("unexpected message %+v", msg)
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("Timestamp should be recent")
	}
}

func TestStateChanged_JSON(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := &StateChanged{
		Key:       "k",
		Component: ComponentSalary,
		Operation: "update_extra",
		ID:        "abc",
		Revision:  3,
		Timestamp: ts,
	}

	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	parsed, err := StateChangedFromJSON(data)
	if err != nil {
		t.Fatalf("StateChangedFromJSON() error = %v", err)
	}
	if *parsed != *msg {
		t.Errorf("round trip = %+v, want %+v", parsed, msg)
	}
}

func TestStateChangedFromJSON_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"malformed", `{"key":`},
		{"wrong type", `{"key":"k","revision":"x"}`},
		{"missing key", `{"component":"ledger"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := StateChangedFromJSON([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNop(t *testing.T) {
	var p Publisher = Nop{}
	if err := p.PublishStateChanged(context.Background(), NewStateChanged("k", "ledger", "add", 1)); err != nil {
		t.Fatalf("Nop publish: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Nop close: %v", err)
	}
}
