package kafka

import (
	"errors"
	"fmt"

	"github.com/Dhoini/isp-subscription-service/pkg/logger"
	"github.com/IBM/sarama"
)

// EnsureTopics проверяет и создает необходимые топики Kafka.
func EnsureTopics(cfg *Config, log *logger.Logger) error {
	if len(cfg.Brokers) == 0 || cfg.Brokers[0] == "" {
		log.Errorw("Kafka broker address is empty")
		return errors.New("kafka broker address is empty")
	}

	admin, err := sarama.NewClusterAdmin(cfg.Brokers, NewSaramaConfig(cfg, log))
	if err != nil {
		log.Errorw("Failed to create Kafka admin client", "brokers", cfg.Brokers, "error", err)
		return fmt.Errorf("kafka: create cluster admin: %w", err)
	}
	defer admin.Close()

	return ensureTopics(admin, cfg.Topics, log)
}

func ensureTopics(admin sarama.ClusterAdmin, topics []TopicConfig, log *logger.Logger) error {
	log.Infow("Ensuring Kafka topics exist...", "topics", topicNames(topics))

	existing, err := admin.ListTopics()
	if err != nil {
		log.Errorw("Failed to list Kafka topics", "error", err)
		return fmt.Errorf("kafka: list topics: %w", err)
	}
	log.Debugw("Found existing topics", "count", len(existing))

	created := make([]string, 0, len(topics))
	for _, topic := range topics {
		if _, ok := existing[topic.Name]; ok {
			log.Debugw("Topic already exists", "topic", topic.Name)
			continue
		}

		detail := &sarama.TopicDetail{
			NumPartitions:     topic.NumPartitions,
			ReplicationFactor: topic.ReplicationFactor,
		}
		if err := admin.CreateTopic(topic.Name, detail, false); err != nil {
			// Топик мог создать другой экземпляр сервиса
			if errors.Is(err, sarama.ErrTopicAlreadyExists) {
				log.Warnw("Topic already existed during creation attempt", "topic", topic.Name)
				continue
			}
			log.Errorw("Failed to create topic", "topic", topic.Name, "error", err)
			return fmt.Errorf("kafka: create topic %s: %w", topic.Name, err)
		}
		created = append(created, topic.Name)
	}

	if len(created) > 0 {
		log.Infow("Successfully created topics", "topics", created)
	} else {
		log.Infow("All required topics already exist.")
	}
	return nil
}

func topicNames(topics []TopicConfig) []string {
	names := make([]string, 0, len(topics))
	for _, t := range topics {
		names = append(names, t.Name)
	}
	return names
}
