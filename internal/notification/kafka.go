package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/krishnadas018/yatra-management-backend/utils"
)

// StartKafkaConsumer tails the registration event stream and turns events
// the admins care about into in-app notifications. Runs until ctx is
// cancelled; call it from a goroutine at boot.
func StartKafkaConsumer(ctx context.Context, svc Service) {
	if !utils.KafkaEnabled() {
		log.Println("⚠️ Kafka disabled, registration event consumer not started")
		return
	}

	reader := utils.NewRegistrationEventReader("notification-service")
	defer reader.Close()

	log.Println("🔄 Registration event consumer started")

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("❌ Kafka read error: %v", err)
			continue
		}

		var event utils.RegistrationEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Printf("❌ Failed to decode registration event: %v", err)
			continue
		}

		handleRegistrationEvent(ctx, svc, event)
	}
}

func handleRegistrationEvent(ctx context.Context, svc Service, event utils.RegistrationEvent) {
	var title, message string

	switch event.ToStatus {
	case "PENDING":
		if event.FromStatus != "" {
			return // payment rejection revert, admin triggered it themselves
		}
		title = "New registration"
		message = fmt.Sprintf("%s was created for %s", event.RegistrationNumber, event.YatraName)
	case "PAYMENT_SUBMITTED":
		title = "Payment awaiting verification"
		message = fmt.Sprintf("%s uploaded payment proof for %s", event.RegistrationNumber, event.YatraName)
	case "CANCELLED_BY_USER":
		title = "Registration cancelled"
		message = fmt.Sprintf("%s was cancelled by the devotee", event.RegistrationNumber)
	default:
		return
	}

	if err := svc.NotifyAdmins(ctx, title, message, &event.YatraID); err != nil {
		log.Printf("❌ Admin notification fanout failed for %s: %v", event.RegistrationNumber, err)
	}
}
