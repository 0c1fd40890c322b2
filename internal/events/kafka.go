package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/IBM/sarama"
)

// KafkaPublisher writes events to a topic keyed by order id, so every event of
// one order lands on the same partition in publish order. Publish only queues
// the message; delivery results are logged from the producer's channels.
type KafkaPublisher struct {
	producer sarama.AsyncProducer
	topic    string
	logger   *log.Logger
	wg       sync.WaitGroup
}

// DialKafka connects an async producer, retrying while the brokers come up.
func DialKafka(brokers []string, attempts int, wait time.Duration, logger *log.Logger) (sarama.AsyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll

	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 1; i <= attempts; i++ {
		var producer sarama.AsyncProducer
		producer, err = sarama.NewAsyncProducer(brokers, cfg)
		if err == nil {
			return producer, nil
		}
		if logger != nil {
			logger.Printf("kafka: waiting for brokers (%d/%d) error=%v", i, attempts, err)
		}
		if i < attempts {
			time.Sleep(wait)
		}
	}
	return nil, fmt.Errorf("kafka producer: %w", err)
}

func NewKafkaPublisher(producer sarama.AsyncProducer, topic string, logger *log.Logger) *KafkaPublisher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	p := &KafkaPublisher{producer: producer, topic: topic, logger: logger}
	p.wg.Add(2)
	go func() {
		defer p.wg.Done()
		for msg := range producer.Successes() {
			ev, _ := msg.Metadata.(Event)
			p.logger.Printf("events: published kind=%s order_id=%s partition=%d offset=%d", ev.Kind, ev.OrderID, msg.Partition, msg.Offset)
		}
	}()
	go func() {
		defer p.wg.Done()
		for perr := range producer.Errors() {
			var ev Event
			if perr.Msg != nil {
				ev, _ = perr.Msg.Metadata.(Event)
			}
			p.logger.Printf("events: publish kind=%s order_id=%s error=%v", ev.Kind, ev.OrderID, perr.Err)
		}
	}()
	return p
}

// Publish queues ev. It blocks only while the producer's input buffer is
// full, and gives up when ctx ends.
func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(ev.OrderID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("kind"), Value: []byte(ev.Kind)},
		},
		Metadata: ev,
	}
	select {
	case p.producer.Input() <- msg:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue event %s: %w", ev.ID, ctx.Err())
	}
}

// Close flushes queued messages and waits until their results are logged.
func (p *KafkaPublisher) Close() error {
	p.producer.AsyncClose()
	p.wg.Wait()
	return nil
}

// Consumer feeds a consumer group's messages to a Handler. A failing handler
// is retried with backoff before the offset is committed; after the last
// attempt the message is logged and skipped so one poison event cannot stall
// its partition. If the session ends mid-retry the offset stays uncommitted
// and the message is redelivered after the rebalance.
type Consumer struct {
	group    sarama.ConsumerGroup
	topic    string
	handler  Handler
	logger   *log.Logger
	attempts int
	backoff  time.Duration
}

func NewConsumerGroup(brokers []string, groupID string) (sarama.ConsumerGroup, error) {
	cfg := sarama.NewConfig()
	cfg.Consumer.Return.Errors = true
	cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	group, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer group: %w", err)
	}
	return group, nil
}

func NewConsumer(group sarama.ConsumerGroup, topic string, handler Handler, logger *log.Logger) *Consumer {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Consumer{group: group, topic: topic, handler: handler, logger: logger, attempts: 5, backoff: 500 * time.Millisecond}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	go func() {
		for err := range c.group.Errors() {
			c.logger.Printf("events: consumer error=%v", err)
		}
	}()
	for {
		if err := c.group.Consume(ctx, []string{c.topic}, groupHandler{c}); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("consume %s: %w", c.topic, err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

type groupHandler struct{ c *Consumer }

func (groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if !h.c.deliver(sess.Context(), msg.Value) {
				return nil
			}
			sess.MarkMessage(msg, "")
		case <-sess.Context().Done():
			return nil
		}
	}
}

// deliver hands payload to the handler until it succeeds or the attempts run
// out. It returns false only when ctx ended first, meaning the message must
// not be marked.
func (c *Consumer) deliver(ctx context.Context, payload []byte) bool {
	for attempt := 1; ; attempt++ {
		err := c.dispatch(ctx, payload)
		if err == nil {
			return true
		}
		if attempt >= c.attempts {
			c.logger.Printf("events: giving up after %d attempts error=%v", attempt, err)
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.backoff * time.Duration(attempt)):
		}
	}
}

// dispatch returns an error only for handler failures; malformed payloads are
// dropped since a retry cannot fix them.
func (c *Consumer) dispatch(ctx context.Context, payload []byte) error {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		c.logger.Printf("events: drop malformed message error=%v", err)
		return nil
	}
	if err := c.handler.Handle(ctx, ev); err != nil {
		c.logger.Printf("events: handle kind=%s order_id=%s error=%v", ev.Kind, ev.OrderID, err)
		return err
	}
	return nil
}
