// Package events publishes search events to Kafka without blocking the
// request path.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"github.com/dante-alig/lovelyplace-back/internal/core/observability"
)

type SearchEvent struct {
	SearchID   string    `json:"searchId,omitempty"`
	OriginCell string    `json:"originCell,omitempty"`
	Category   string    `json:"category,omitempty"`
	RadiusKm   float64   `json:"radiusKm"`
	Candidates int       `json:"candidates"`
	Results    int       `json:"results"`
	Dropped    int       `json:"dropped"`
	Outcome    string    `json:"outcome"`
	DurationMs int64     `json:"durationMs"`
	TS         time.Time `json:"ts"`
}

type Publisher struct {
	topic   string
	events  chan SearchEvent
	prod    sarama.AsyncProducer
	logger  *slog.Logger
	stopped chan struct{}
	errDone chan struct{}
}

func NewPublisher(brokers []string, topic string, queueSize int, logger *slog.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false

	prod, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("events: create async producer: %w", err)
	}
	return newPublisher(prod, topic, queueSize, logger), nil
}

func newPublisher(prod sarama.AsyncProducer, topic string, queueSize int, logger *slog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	p := &Publisher{
		topic:   topic,
		events:  make(chan SearchEvent, queueSize),
		prod:    prod,
		logger:  logger,
		stopped: make(chan struct{}),
		errDone: make(chan struct{}),
	}

	go func() {
		defer close(p.stopped)
		for ev := range p.events {
			b, err := json.Marshal(ev)
			if err != nil {
				p.logger.Warn("events: marshal", "err", err)
				continue
			}
			msg := &sarama.ProducerMessage{
				Topic: p.topic,
				Value: sarama.ByteEncoder(b),
			}
			if ev.OriginCell != "" {
				msg.Key = sarama.StringEncoder(ev.OriginCell)
			}
			p.prod.Input() <- msg
		}
	}()

	go func() {
		defer close(p.errDone)
		for err := range p.prod.Errors() {
			if err != nil {
				observability.IncKafkaProducerError()
				p.logger.Warn("events: producer error", "err", err)
			}
		}
	}()

	return p
}

// Publish enqueues ev, dropping it when the queue is full.
func (p *Publisher) Publish(ev SearchEvent) {
	if ev.TS.IsZero() {
		ev.TS = time.Now().UTC()
	}
	select {
	case p.events <- ev:
	default:
	}
}

func (p *Publisher) Close() error {
	close(p.events)
	<-p.stopped

	if err := p.prod.Close(); err != nil {
		return fmt.Errorf("events: close producer: %w", err)
	}
	<-p.errDone
	return nil
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(SearchEvent) {}
