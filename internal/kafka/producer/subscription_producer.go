package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Dhoini/isp-subscription-service/internal/domain"
	"github.com/Dhoini/isp-subscription-service/internal/kafka"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v4"
)

// SubscriptionProducer отправляет события подписок в Kafka
type SubscriptionProducer struct {
	producer sarama.SyncProducer
	cfg      kafka.ProducerConfig
	log      *logger.Logger
}

// NewSubscriptionProducer создает новый продюсер событий подписок
func NewSubscriptionProducer(producer sarama.SyncProducer, cfg kafka.ProducerConfig, log *logger.Logger) *SubscriptionProducer {
	return &SubscriptionProducer{
		producer: producer,
		cfg:      cfg,
		log:      log,
	}
}

// Publish публикует событие. Ключ сообщения ID подписки, чтобы события одной подписки шли по порядку.
func (p *SubscriptionProducer) Publish(ctx context.Context, event domain.SubscriptionEvent) error {
	topic := kafka.TopicFor(event.Type)

	messageValue, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal subscription event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(event.SubscriptionID.String()),
		Value: sarama.ByteEncoder(messageValue),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("event_type"),
				Value: []byte(event.Type),
			},
			{
				Key:   []byte("event_id"),
				Value: []byte(event.ID.String()),
			},
		},
		Timestamp: event.OccurredAt,
	}

	var partition int32
	var offset int64
	operation := func() error {
		var sendErr error
		partition, offset, sendErr = p.producer.SendMessage(message)
		if errors.Is(sendErr, sarama.ErrMessageSizeTooLarge) || errors.Is(sendErr, sarama.ErrInvalidMessage) {
			return backoff.Permanent(sendErr)
		}
		return sendErr
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.cfg.RetryInitialInterval
	bo.MaxElapsedTime = p.cfg.RetryMaxElapsedTime
	bo.Reset()

	notify := func(err error, wait time.Duration) {
		p.log.Warnw("Retrying Kafka publish", "topic", topic, "subscriptionID", event.SubscriptionID, "wait", wait, "error", err)
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(backoff.WithMaxRetries(bo, p.cfg.RetryMaxAttempts), ctx), notify); err != nil {
		p.log.Errorw("Failed to publish subscription event", "topic", topic, "subscriptionID", event.SubscriptionID, "error", err)
		return fmt.Errorf("failed to publish subscription event: %w", err)
	}

	p.log.Infow("Published subscription event",
		"topic", topic, "partition", partition, "offset", offset, "subscriptionID", event.SubscriptionID)
	return nil
}

// Close закрывает продюсер
func (p *SubscriptionProducer) Close() error {
	return p.producer.Close()
}

// NopPublisher используется, когда Kafka отключена
type NopPublisher struct {
	log *logger.Logger
}

// NewNopPublisher создает публикатор без отправки
func NewNopPublisher(log *logger.Logger) *NopPublisher {
	return &NopPublisher{log: log}
}

// Publish только пишет событие в debug лог
func (p *NopPublisher) Publish(ctx context.Context, event domain.SubscriptionEvent) error {
	p.log.Debugw("Kafka disabled, event dropped", "type", event.Type, "subscriptionID", event.SubscriptionID)
	return nil
}

// Close ничего не делает
func (p *NopPublisher) Close() error {
	return nil
}
