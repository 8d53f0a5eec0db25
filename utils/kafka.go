package utils

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// RegistrationEvent is published whenever a registration changes status.
// The notification consumer turns these into in-app and email notifications.
type RegistrationEvent struct {
	RegistrationID     uint   `json:"registration_id"`
	RegistrationNumber string `json:"registration_number"`
	YatraID            uint   `json:"yatra_id"`
	YatraName          string `json:"yatra_name"`
	DevoteeID          uint   `json:"devotee_id"`
	FromStatus         string `json:"from_status,omitempty"`
	ToStatus           string `json:"to_status"`
	Remarks            string `json:"remarks,omitempty"`
	OccurredAt         string `json:"occurred_at"`
}

var (
	kafkaWriter  *kafka.Writer
	kafkaBrokers []string
	kafkaTopic   string
)

// InitializeKafka sets up the registration event writer. Kafka is optional:
// when KAFKA_BROKERS is unset, events are dropped with a log line.
func InitializeKafka() {
	brokers := os.Getenv("KAFKA_BROKERS")
	if brokers == "" {
		log.Println("⚠️ KAFKA_BROKERS not set, registration events disabled")
		return
	}

	kafkaTopic = os.Getenv("KAFKA_TOPIC")
	if kafkaTopic == "" {
		kafkaTopic = "registration-events"
	}

	kafkaBrokers = strings.Split(brokers, ",")
	kafkaWriter = &kafka.Writer{
		Addr:         kafka.TCP(kafkaBrokers...),
		Topic:        kafkaTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}

	log.Println("✅ Kafka writer initialized:", brokers, "topic:", kafkaTopic)
}

// KafkaEnabled reports whether the writer was configured
func KafkaEnabled() bool {
	return kafkaWriter != nil
}

// PublishRegistrationEvent sends the event async; failures are logged, never
// surfaced to the caller, since the registration itself already committed.
func PublishRegistrationEvent(event RegistrationEvent) {
	if kafkaWriter == nil {
		return
	}
	if event.OccurredAt == "" {
		event.OccurredAt = time.Now().Format(time.RFC3339)
	}

	go func() {
		payload, err := json.Marshal(event)
		if err != nil {
			log.Printf("❌ Failed to marshal registration event: %v", err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err = kafkaWriter.WriteMessages(ctx, kafka.Message{
			Key:   []byte(event.RegistrationNumber),
			Value: payload,
		})
		if err != nil {
			log.Printf("❌ Failed to publish registration event %s: %v", event.RegistrationNumber, err)
		}
	}()
}

// NewRegistrationEventReader builds a consumer for the registration topic
func NewRegistrationEventReader(groupID string) *kafka.Reader {
	if len(kafkaBrokers) == 0 {
		return nil
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  kafkaBrokers,
		GroupID:  groupID,
		Topic:    kafkaTopic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
}
