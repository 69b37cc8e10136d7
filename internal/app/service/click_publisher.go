package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/zhoufan91/ZipLink/internal/app/analytics"
)

const (
	DispatchStreamName   = "CLICKS"
	DispatchSubject      = "clicks.dispatch"
	DispatchConsumerName = "click-dispatcher"
	DispatchStreamBytes  = 1024 * 1024 * 100 // 100MB
)

// Dispatch is the envelope placed on the durable queue: one click record
// addressed at the webhook that will persist it.
type Dispatch struct {
	TargetURL string                `json:"target_url"`
	Record    analytics.ClickRecord `json:"record"`
}

// ClickPublisher hands click records to JetStream. It only guarantees
// enqueue; delivery and persistence happen later on the dispatcher side.
type ClickPublisher struct {
	js        nats.JetStreamContext
	targetURL string
}

// NewClickPublisher creates a publisher addressed at the given webhook URL.
func NewClickPublisher(js nats.JetStreamContext, targetURL string) *ClickPublisher {
	return &ClickPublisher{js: js, targetURL: targetURL}
}

// Publish enqueues one click record and returns its stream sequence as the
// dispatch identifier.
func (p *ClickPublisher) Publish(ctx context.Context, record analytics.ClickRecord) (uint64, error) {
	data, err := json.Marshal(Dispatch{
		TargetURL: p.targetURL,
		Record:    record,
	})
	if err != nil {
		return 0, fmt.Errorf("publish click: marshal: %w", err)
	}

	ack, err := p.js.Publish(DispatchSubject, data, nats.Context(ctx))
	if err != nil {
		return 0, fmt.Errorf("publish click: %w", err)
	}
	return ack.Sequence, nil
}
