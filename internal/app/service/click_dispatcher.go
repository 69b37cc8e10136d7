package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/zhoufan91/ZipLink/internal/http/util"
	infraprom "github.com/zhoufan91/ZipLink/internal/infra/prometheus"
	"go.uber.org/zap"
)

const (
	dispatchFetchBatch   = 10
	dispatchFetchWait    = 5 * time.Second
	dispatchFetchBackoff = time.Second
	dispatchHTTPTimeout  = 10 * time.Second
	dispatchContentType  = "application/json"
)

// clickSource is the part of nats.Subscription the pull loop depends on.
type clickSource interface {
	Fetch(batch int, opts ...nats.PullOpt) ([]*nats.Msg, error)
}

// ClickDispatcher drains the dispatch stream and delivers each click record
// to its webhook target. Delivery is at-least-once: a failed POST is Nak'd
// and redelivered by JetStream.
type ClickDispatcher struct {
	js     nats.JetStreamContext
	logger *zap.Logger
	signer *util.Signer
	client *http.Client
	stop   chan struct{}
}

// NewClickDispatcher creates a dispatcher that signs deliveries with signer.
func NewClickDispatcher(js nats.JetStreamContext, logger *zap.Logger, signer *util.Signer) *ClickDispatcher {
	return &ClickDispatcher{
		js:     js,
		logger: logger,
		signer: signer,
		client: &http.Client{Timeout: dispatchHTTPTimeout},
		stop:   make(chan struct{}),
	}
}

// Start ensures the stream and durable consumer exist, then begins pulling
// dispatch envelopes in the background.
func (d *ClickDispatcher) Start() error {
	if _, err := d.js.StreamInfo(DispatchStreamName); err != nil {
		_, err = d.js.AddStream(&nats.StreamConfig{
			Name:     DispatchStreamName,
			Subjects: []string{DispatchSubject},
			MaxBytes: DispatchStreamBytes,
		})
		if err != nil {
			return fmt.Errorf("dispatcher: create stream: %w", err)
		}
	}

	if _, err := d.js.ConsumerInfo(DispatchStreamName, DispatchConsumerName); err != nil {
		_, err = d.js.AddConsumer(DispatchStreamName, &nats.ConsumerConfig{
			Durable:   DispatchConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("dispatcher: create consumer: %w", err)
		}
	}

	sub, err := d.js.PullSubscribe(DispatchSubject, DispatchConsumerName)
	if err != nil {
		return fmt.Errorf("dispatcher: subscribe: %w", err)
	}

	go d.run(sub)
	return nil
}

// Stop ends the pull loop after the current fetch completes.
func (d *ClickDispatcher) Stop() {
	close(d.stop)
}

func (d *ClickDispatcher) run(sub clickSource) {
	for {
		select {
		case <-d.stop:
			d.logger.Info("click dispatcher stopped")
			return
		default:
		}

		msgs, err := sub.Fetch(dispatchFetchBatch, nats.MaxWait(dispatchFetchWait))
		if err != nil && !errors.Is(err, nats.ErrTimeout) {
			d.logger.Error("dispatcher fetch failed", zap.Error(err))
			// A dead subscription returns immediately; without a pause the
			// loop would spin on it.
			select {
			case <-d.stop:
				d.logger.Info("click dispatcher stopped")
				return
			case <-time.After(dispatchFetchBackoff):
			}
			continue
		}

		for _, msg := range msgs {
			var envelope Dispatch
			if err := json.Unmarshal(msg.Data, &envelope); err != nil {
				d.logger.Error("malformed dispatch envelope", zap.Error(err))
				// Redelivery cannot fix a malformed payload.
				msg.Ack()
				continue
			}

			if err := d.deliver(envelope); err != nil {
				infraprom.DispatchDeliveries.WithLabelValues("failed").Inc()
				d.logger.Error("webhook delivery failed",
					zap.String("code", envelope.Record.ShortCode),
					zap.String("target", envelope.TargetURL),
					zap.Error(err))
				msg.Nak()
				continue
			}

			infraprom.DispatchDeliveries.WithLabelValues("delivered").Inc()
			d.logger.Debug("click delivered",
				zap.String("code", envelope.Record.ShortCode),
				zap.String("target", envelope.TargetURL),
			)
			msg.Ack()
		}
	}
}

func (d *ClickDispatcher) deliver(envelope Dispatch) error {
	body, err := json.Marshal(envelope.Record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, envelope.TargetURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", dispatchContentType)

	if d.signer != nil {
		signature, err := d.signer.Sign(body)
		if err == nil {
			req.Header.Set(util.SignatureHeader, signature)
		} else if !errors.Is(err, util.ErrMissingSecret) {
			return fmt.Errorf("sign body: %w", err)
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}
