package lib

import (
	"encoding/json"
	"log"
	"os"

	"github.com/confluentinc/confluent-kafka-go/kafka"
)

func GetKafkaProducerConfig() kafka.ConfigMap {
	return kafka.ConfigMap{
		"bootstrap.servers": os.Getenv("KAFKA_BROKER"),
		"client.id":         "carpoolProducer",
		"acks":              "all",
	}
}

// KafkaProduceMessage publishes a JSON payload to a topic. A missing broker
// configuration makes this a no-op so local and test runs stay quiet.
func KafkaProduceMessage(clientId string, topic string, payload map[string]any) error {
	broker := os.Getenv("KAFKA_BROKER")
	if broker == "" {
		return nil
	}
	cfg := GetKafkaProducerConfig()
	cfg["client.id"] = clientId
	p, err := kafka.NewProducer(&cfg)
	if err != nil {
		log.Printf("[kafka] Error creating producer: %s\n", err.Error())
		return err
	}
	defer p.Close()

	value, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[kafka] Error serializing payload: %s\n", err.Error())
		return err
	}
	err = p.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Value:          value,
	}, nil)
	if err != nil {
		log.Printf("[kafka] Error producing message to %s: %s\n", topic, err.Error())
		return err
	}
	return nil
}
