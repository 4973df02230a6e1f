package kafka

import (
	"fmt"
	"time"

	"github.com/Dhoini/isp-subscription-service/internal/domain"
	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/IBM/sarama"
)

// Config конфигурация для Kafka
type Config struct {
	Brokers  []string
	ClientID string
	Producer ProducerConfig
	Topics   []TopicConfig
}

// ProducerConfig конфигурация для продюсера
type ProducerConfig struct {
	MaxMessageBytes  int
	Compression      sarama.CompressionCodec
	RequiredAcks     sarama.RequiredAcks
	FlushMaxMessages int
	// Повторы отправки поверх встроенных повторов sarama
	RetryMaxAttempts     uint64
	RetryInitialInterval time.Duration
	RetryMaxElapsedTime  time.Duration
}

// TopicConfig параметры создаваемого топика
type TopicConfig struct {
	Name              string
	NumPartitions     int32
	ReplicationFactor int16
}

// NewConfig создает новую конфигурацию Kafka
func NewConfig(brokers []string) *Config {
	topics := make([]TopicConfig, 0, len(domain.EventTypes))
	for _, t := range domain.EventTypes {
		topics = append(topics, TopicConfig{
			Name:              TopicFor(t),
			NumPartitions:     3,
			ReplicationFactor: 1,
		})
	}

	return &Config{
		Brokers:  brokers,
		ClientID: "isp-subscription-service",
		Producer: ProducerConfig{
			MaxMessageBytes:      1000000,
			Compression:          sarama.CompressionSnappy,
			RequiredAcks:         sarama.WaitForAll,
			FlushMaxMessages:     100,
			RetryMaxAttempts:     3,
			RetryInitialInterval: 200 * time.Millisecond,
			RetryMaxElapsedTime:  10 * time.Second,
		},
		Topics: topics,
	}
}

// TopicFor имя топика для типа события
func TopicFor(eventType domain.EventType) string {
	return string(eventType)
}

// NewSaramaConfig создает новую конфигурацию Sarama
func NewSaramaConfig(cfg *Config, log *logger.Logger) *sarama.Config {
	saramaConfig := sarama.NewConfig()

	// Версия Kafka
	saramaConfig.Version = sarama.V3_3_0_0
	saramaConfig.ClientID = cfg.ClientID

	// Настройки продюсера
	saramaConfig.Producer.MaxMessageBytes = cfg.Producer.MaxMessageBytes
	saramaConfig.Producer.Compression = cfg.Producer.Compression
	saramaConfig.Producer.RequiredAcks = cfg.Producer.RequiredAcks
	saramaConfig.Producer.Flush.MaxMessages = cfg.Producer.FlushMaxMessages
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true

	log.Debugw("Sarama config prepared", "clientID", cfg.ClientID, "version", saramaConfig.Version.String())
	return saramaConfig
}

// NewSyncProducer подключается к брокерам и создает синхронный продюсер
func NewSyncProducer(cfg *Config, log *logger.Logger) (sarama.SyncProducer, error) {
	producer, err := sarama.NewSyncProducer(cfg.Brokers, NewSaramaConfig(cfg, log))
	if err != nil {
		log.Errorw("Failed to create Kafka producer", "brokers", cfg.Brokers, "error", err)
		return nil, fmt.Errorf("kafka: create sync producer: %w", err)
	}
	log.Infow("Kafka producer connected", "brokers", cfg.Brokers)
	return producer, nil
}
