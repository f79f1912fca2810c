package repository

import (
	"context"

	"TradeScore/internal/domain/models"
	domrepo "TradeScore/internal/domain/repository"
	pkgkafka "TradeScore/pkg/kafka"
)

// batchProducer is the part of *pkgkafka.Producer the publishers use.
type batchProducer interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
}

// KafkaPublisher writes scored trades to the score topic and raw trades to the inbound topic, both
// keyed by pair so one pair stays on one partition.
type KafkaPublisher struct {
	producer   batchProducer
	scoreTopic string
	rawTopic   string
}

var (
	_ domrepo.ScorePublisher = (*KafkaPublisher)(nil)
	_ domrepo.EventPublisher = (*KafkaPublisher)(nil)
)

func NewKafkaPublisher(producer batchProducer, rawTopic, scoreTopic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, rawTopic: rawTopic, scoreTopic: scoreTopic}
}

func (p *KafkaPublisher) PublishScore(ctx context.Context, ev models.ScoredTradeEvent) error {
	return p.publish(ctx, p.scoreTopic, ev.Pair, ev)
}

func (p *KafkaPublisher) PublishEvent(ctx context.Context, ev models.TradeEvent) error {
	return p.publish(ctx, p.rawTopic, ev.Pair, ev)
}

func (p *KafkaPublisher) publish(ctx context.Context, topic, key string, value interface{}) error {
	msg := pkgkafka.Message{Key: []byte(key), Value: value}
	if id := pkgkafka.TraceIDFrom(ctx); id != "" {
		msg.Headers = map[string]string{pkgkafka.TraceHeader: id}
	}
	if err := p.producer.PublishBatch(ctx, topic, []pkgkafka.Message{msg}); err != nil {
		return &models.PublishError{Topic: topic, Err: err}
	}
	return nil
}
