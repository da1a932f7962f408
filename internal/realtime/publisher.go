package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"food-market/internal/model"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// LocalPublisher broadcasts straight into this instance's hub.
type LocalPublisher struct {
	hub *Hub
}

// NewLocalPublisher creates a publisher for single-instance deployments.
func NewLocalPublisher(hub *Hub) *LocalPublisher {
	return &LocalPublisher{hub: hub}
}

func (p *LocalPublisher) Publish(_ context.Context, event model.OrderEvent) error {
	p.hub.Broadcast(event.StoreID, event)
	return nil
}

// messageWriter is the subset of kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes order events to a topic keyed by store id, so every
// event of a store lands on the same partition.
type KafkaPublisher struct {
	writer messageWriter
	logger zerolog.Logger
}

// NewKafkaPublisher creates a publisher writing to topic.
func NewKafkaPublisher(brokers []string, topic string, logger zerolog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &KafkaPublisher{
		writer: writer,
		logger: logger.With().Str("component", "kafka-publisher").Logger(),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event model.OrderEvent) error {
	msg, err := encodeEvent(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write order event: %w", err)
	}

	p.logger.Debug().Str("store_id", event.StoreID).Str("event", event.Event).Msg("order event published")
	return nil
}

// Close flushes pending writes.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func encodeEvent(event model.OrderEvent) (kafka.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to encode order event: %w", err)
	}
	return kafka.Message{Key: []byte(event.StoreID), Value: data, Time: time.Now().UTC()}, nil
}

// messageReader is the subset of kafka.Reader the relay uses.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Relay consumes the order event topic and broadcasts each event into the local
// hub. Each instance uses its own consumer group so every instance sees every event.
type Relay struct {
	reader     messageReader
	hub        *Hub
	retryDelay time.Duration
	logger     zerolog.Logger
}

// NewRelay creates a relay reading topic as groupID. It starts from the newest
// offset; missed events are recovered by clients refreshing.
func NewRelay(brokers []string, topic, groupID string, hub *Hub, logger zerolog.Logger) *Relay {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     500 * time.Millisecond,
	})
	return newRelay(reader, hub, logger.With().Str("group_id", groupID).Logger())
}

func newRelay(reader messageReader, hub *Hub, logger zerolog.Logger) *Relay {
	return &Relay{
		reader:     reader,
		hub:        hub,
		retryDelay: time.Second,
		logger:     logger.With().Str("component", "kafka-relay").Logger(),
	}
}

// Run relays events until ctx is cancelled. A cancelled context is not an error.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info().Msg("relay started")

	for {
		msg, err := r.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				r.logger.Info().Msg("relay stopped")
				return nil
			}
			r.logger.Error().Err(err).Msg("failed to read order event")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(r.retryDelay):
			}
			continue
		}

		if err := r.handle(msg); err != nil {
			r.logger.Error().Err(err).Str("key", string(msg.Key)).Msg("skipping undecodable order event")
		}
	}
}

func (r *Relay) handle(msg kafka.Message) error {
	var event model.OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to decode order event: %w", err)
	}
	if event.StoreID == "" || event.Order == nil {
		return errors.New("order event without store or order")
	}

	delivered, dropped := r.hub.Broadcast(event.StoreID, event)
	r.logger.Debug().
		Str("store_id", event.StoreID).
		Str("event", event.Event).
		Int("delivered", delivered).
		Int("dropped", dropped).
		Msg("order event relayed")
	return nil
}

// Close stops the underlying reader.
func (r *Relay) Close() error {
	return r.reader.Close()
}
