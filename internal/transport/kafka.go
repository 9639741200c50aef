package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"

	"LiveBoard/internal/protocol"
)

// Rooms map to two single-partition topics. The retained state is simply
// the last record of the state topic.
const (
	kafkaPartition  int32 = 0
	retainedTimeout       = 3 * time.Second
)

// OffsetSource reports partition offsets. sarama.Client satisfies it.
type OffsetSource interface {
	GetOffset(topic string, partitionID int32, time int64) (int64, error)
}

// KafkaTopic names the topic carrying ch for room. Characters Kafka does
// not allow in topic names become '_'.
func KafkaTopic(prefix, room string, ch protocol.Channel) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, room)
	return prefix + "." + clean + "." + string(ch)
}

type Kafka struct {
	producer sarama.SyncProducer
	consumer sarama.Consumer
	offsets  OffsetSource
	closer   func() error

	room        string
	eventsTopic string
	stateTopic  string

	connected atomic.Bool
	log       *slog.Logger
}

// NewKafka assembles a transport from existing sarama parts.
func NewKafka(producer sarama.SyncProducer, consumer sarama.Consumer, offsets OffsetSource, prefix, room string) *Kafka {
	return &Kafka{
		producer:    producer,
		consumer:    consumer,
		offsets:     offsets,
		room:        room,
		eventsTopic: KafkaTopic(prefix, room, protocol.Events),
		stateTopic:  KafkaTopic(prefix, room, protocol.State),
		log:         slog.Default().With("component", "kafka", "room", room),
	}
}

// DialKafka connects to brokers with one client shared by producer and
// consumer.
func DialKafka(brokers []string, prefix, room string) (*Kafka, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Consumer.Return.Errors = true

	client, err := sarama.NewClient(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	producer, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	consumer, err := sarama.NewConsumerFromClient(client)
	if err != nil {
		producer.Close()
		client.Close()
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}

	k := NewKafka(producer, consumer, client, prefix, room)
	k.closer = func() error {
		return errors.Join(consumer.Close(), producer.Close(), client.Close())
	}
	return k, nil
}

func (k *Kafka) Close() error {
	if k.closer != nil {
		return k.closer()
	}
	return errors.Join(k.consumer.Close(), k.producer.Close())
}

func (k *Kafka) Publish(ctx context.Context, ch protocol.Channel, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	topic := k.eventsTopic
	if ch == protocol.State {
		topic = k.stateTopic
	}
	_, _, err := k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(k.room),
		Value: sarama.ByteEncoder(data),
	})
	if err != nil {
		return fmt.Errorf("send to %s: %w", topic, err)
	}
	return nil
}

func (k *Kafka) Run(ctx context.Context, h Handler) error {
	newest, err := k.offsets.GetOffset(k.stateTopic, kafkaPartition, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("state offset: %w", err)
	}
	start := sarama.OffsetNewest
	if newest > 0 {
		start = newest - 1
	}

	state, err := k.consumer.ConsumePartition(k.stateTopic, kafkaPartition, start)
	if err != nil {
		return fmt.Errorf("consume %s: %w", k.stateTopic, err)
	}
	defer state.Close()
	events, err := k.consumer.ConsumePartition(k.eventsTopic, kafkaPartition, sarama.OffsetNewest)
	if err != nil {
		return fmt.Errorf("consume %s: %w", k.eventsTopic, err)
	}
	defer events.Close()

	if newest > 0 {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-state.Messages():
			if !ok {
				return ErrClosed
			}
			h.Receive(protocol.State, m.Value)
		case <-time.After(retainedTimeout):
			k.log.Warn("retained state did not arrive", "topic", k.stateTopic, "offset", start)
		}
	}

	k.connected.Store(true)
	defer k.connected.Store(false)
	h.Connected()

	eventErrs, stateErrs := events.Errors(), state.Errors()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-events.Messages():
			if !ok {
				return ErrClosed
			}
			h.Receive(protocol.Events, m.Value)
		case m, ok := <-state.Messages():
			if !ok {
				return ErrClosed
			}
			h.Receive(protocol.State, m.Value)
		case err, ok := <-eventErrs:
			if !ok {
				eventErrs = nil
				continue
			}
			return fmt.Errorf("consume %s: %w", k.eventsTopic, err)
		case err, ok := <-stateErrs:
			if !ok {
				stateErrs = nil
				continue
			}
			return fmt.Errorf("consume %s: %w", k.stateTopic, err)
		}
	}
}

// Connected reports whether Run is past its retained-state read.
func (k *Kafka) Connected() bool { return k.connected.Load() }
