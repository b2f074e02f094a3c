// Package events defines the change notification published after every
// persisted mutation and the transports that carry it.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Components that emit StateChanged.
const (
	ComponentLedger = "ledger"
	ComponentSalary = "salary"
)

// StateChanged tells consumers that the blob stored under Key was rewritten.
// It carries no record data: consumers read the blob themselves.
type StateChanged struct {
	Key       string    `json:"key"`
	Component string    `json:"component"`
	Operation string    `json:"operation"`
	Kind      string    `json:"kind,omitempty"`
	ID        string    `json:"id,omitempty"`
	Revision  uint64    `json:"revision"`
	Timestamp time.Time `json:"timestamp"`
}

// NewStateChanged stamps a message with the current time.
func NewStateChanged(key, component, operation string, revision uint64) *StateChanged {
	return &StateChanged{
		Key:       key,
		Component: component,
		Operation: operation,
		Revision:  revision,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *StateChanged) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// StateChangedFromJSON decodes a message and checks the fields every consumer
// relies on.
func StateChangedFromJSON(data []byte) (*StateChanged, error) {
	var msg StateChanged
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Key == "" {
		return nil, fmt.Errorf("state changed message without key")
	}
	return &msg, nil
}

// Publisher delivers StateChanged messages to a broker.
type Publisher interface {
	PublishStateChanged(ctx context.Context, msg *StateChanged) error
	Close() error
}

// Handler processes one consumed message. Returning an error asks the
// transport to redeliver it.
type Handler func(ctx context.Context, msg *StateChanged) error

// Consumer blocks delivering messages to h until ctx is done.
type Consumer interface {
	ConsumeStateChanged(ctx context.Context, h Handler) error
	Close() error
}

// Nop discards every message. It is used when no broker is configured.
type Nop struct{}

func (Nop) PublishStateChanged(context.Context, *StateChanged) error { return nil }
func (Nop) Close() error                                          { return nil }
