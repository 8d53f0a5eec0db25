package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"

	"github.com/krishnadas018/yatra-management-backend/config"
	"github.com/krishnadas018/yatra-management-backend/internal/auditlog"
	"github.com/krishnadas018/yatra-management-backend/internal/auth"
	"github.com/krishnadas018/yatra-management-backend/utils"
)

type Service interface {
	// Broadcasts (admin announcements, one log row per send)
	SendNotification(ctx context.Context, senderID uint, yatraID *uint, channel, subject, body string, recipients []string, ip string) error
	GetNotificationsByUser(ctx context.Context, userID uint) ([]NotificationLog, error)
	GetEmailsByAudience(audience string) ([]string, error)

	// In-app notifications
	NotifyUser(ctx context.Context, userID uint, title, message string, yatraID *uint) error
	NotifyAdmins(ctx context.Context, title, message string, yatraID *uint) error
	ListInAppByUser(ctx context.Context, userID uint, yatraID *uint, limit int) ([]InAppNotification, error)
	MarkInAppAsRead(ctx context.Context, id uint, userID uint) error
	CountUnread(ctx context.Context, userID uint) (int64, error)
}

type service struct {
	repo     Repository
	authRepo auth.Repository
	auditSvc auditlog.Service
	email    Channel
}

func NewService(repo Repository, authRepo auth.Repository, cfg *config.Config, auditSvc auditlog.Service) Service {
	return &service{
		repo:     repo,
		authRepo: authRepo,
		auditSvc: auditSvc,
		email:    NewEmailSender(cfg),
	}
}

func (s *service) SendNotification(ctx context.Context, senderID uint, yatraID *uint, channel, subject, body string, recipients []string, ip string) error {
	if len(recipients) == 0 {
		return errors.New("no recipients specified")
	}
	if channel != "email" {
		return fmt.Errorf("unsupported channel: %s", channel)
	}

	recipientsJSON, _ := json.Marshal(recipients)
	log := &NotificationLog{
		UserID:     senderID,
		YatraID:    yatraID,
		Channel:    channel,
		Subject:    subject,
		Body:       body,
		Recipients: datatypes.JSON(recipientsJSON),
		Status:     "pending",
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := s.repo.CreateNotificationLog(ctx, log); err != nil {
		return err
	}

	fmt.Printf("📨 Starting notification send: channel=%s, recipients=%d\n", channel, len(recipients))

	sendErr := s.sendEmailInBatches(recipients, subject, body, 50)

	if sendErr != nil {
		errMsg := sendErr.Error()
		log.Status = "failed"
		log.Error = &errMsg
		fmt.Printf("❌ Notification send failed: %v\n", sendErr)
	} else {
		log.Status = "sent"
		fmt.Printf("✅ Notification sent successfully to %d recipients\n", len(recipients))
	}

	log.UpdatedAt = time.Now()
	updateErr := s.repo.UpdateNotificationLog(ctx, log)

	status := "success"
	if sendErr != nil {
		status = "failure"
	}

	auditErr := s.auditSvc.LogAction(ctx, &senderID, yatraID, "EMAIL_SENT", map[string]interface{}{
		"channel":          channel,
		"recipients_count": len(recipients),
		"subject":          subject,
	}, ip, status)
	if auditErr != nil {
		fmt.Printf("❌ Audit log error: %v\n", auditErr)
	}

	if sendErr != nil {
		return sendErr
	}
	return updateErr
}

func (s *service) sendEmailInBatches(recipients []string, subject, body string, batchSize int) error {
	totalRecipients := len(recipients)
	var lastErr error
	successCount := 0
	failedCount := 0

	fmt.Printf("📧 Sending emails in batches of %d (total: %d)\n", batchSize, totalRecipients)

	for i := 0; i < totalRecipients; i += batchSize {
		end := i + batchSize
		if end > totalRecipients {
			end = totalRecipients
		}

		batch := recipients[i:end]
		batchNum := (i / batchSize) + 1
		totalBatches := (totalRecipients + batchSize - 1) / batchSize

		fmt.Printf("📤 Processing batch %d/%d: sending to %d recipients\n",
			batchNum, totalBatches, len(batch))

		if err := s.email.Send(batch, subject, body); err != nil {
			fmt.Printf("❌ Batch %d/%d failed: %v\n", batchNum, totalBatches, err)
			lastErr = err
			failedCount += len(batch)
		} else {
			successCount += len(batch)
			fmt.Printf("✅ Batch %d/%d sent successfully\n", batchNum, totalBatches)
		}

		if end < totalRecipients {
			time.Sleep(200 * time.Millisecond)
		}
	}

	fmt.Printf("📊 Email send complete: %d succeeded, %d failed out of %d total\n",
		successCount, failedCount, totalRecipients)

	if successCount > 0 && failedCount > 0 {
		return fmt.Errorf("partial success: %d/%d emails sent, last error: %v",
			successCount, totalRecipients, lastErr)
	}

	if failedCount == totalRecipients && lastErr != nil {
		return fmt.Errorf("all batches failed: %v", lastErr)
	}

	return nil
}

// NotifyUser stores a bell notification and pushes it over the user's
// redis channel for live SSE delivery.
func (s *service) NotifyUser(ctx context.Context, userID uint, title, message string, yatraID *uint) error {
	item := &InAppNotification{
		UserID:    userID,
		YatraID:   yatraID,
		Title:     title,
		Message:   message,
		Category:  "registration",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.repo.CreateInApp(ctx, item); err != nil {
		return err
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"id":         item.ID,
		"user_id":    item.UserID,
		"yatra_id":   item.YatraID,
		"title":      item.Title,
		"message":    item.Message,
		"category":   item.Category,
		"is_read":    item.IsRead,
		"created_at": item.CreatedAt,
	})
	channel := fmt.Sprintf("notifications:user:%d", userID)
	_ = utils.RedisClient.Publish(utils.Ctx, channel, string(payload)).Err()
	return nil
}

// NotifyAdmins fans one bell notification out to every admin user.
func (s *service) NotifyAdmins(ctx context.Context, title, message string, yatraID *uint) error {
	ids, err := s.authRepo.GetUserIDsByRole("admin")
	if err != nil {
		return err
	}
	for _, uid := range ids {
		if err := s.NotifyUser(ctx, uid, title, message, yatraID); err != nil {
			fmt.Printf("in-app fanout error for user %d: %v\n", uid, err)
		}
	}
	return nil
}

func (s *service) ListInAppByUser(ctx context.Context, userID uint, yatraID *uint, limit int) ([]InAppNotification, error) {
	return s.repo.ListInAppByUser(ctx, userID, yatraID, limit)
}

func (s *service) MarkInAppAsRead(ctx context.Context, id uint, userID uint) error {
	return s.repo.MarkInAppAsRead(ctx, id, userID)
}

func (s *service) CountUnread(ctx context.Context, userID uint) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

func (s *service) GetNotificationsByUser(ctx context.Context, userID uint) ([]NotificationLog, error) {
	return s.repo.GetNotificationsByUser(ctx, userID)
}

func (s *service) GetEmailsByAudience(audience string) ([]string, error) {
	switch audience {
	case "devotees":
		return s.authRepo.GetUserEmailsByRole("devotee")
	case "admins":
		return s.authRepo.GetUserEmailsByRole("admin")
	case "all":
		devotees, err1 := s.authRepo.GetUserEmailsByRole("devotee")
		admins, err2 := s.authRepo.GetUserEmailsByRole("admin")

		if err1 != nil && err2 != nil {
			return nil, fmt.Errorf("failed to fetch both audiences: %v | %v", err1, err2)
		}
		if err1 != nil {
			return admins, nil
		}
		if err2 != nil {
			return devotees, nil
		}

		return append(devotees, admins...), nil
	default:
		return nil, fmt.Errorf("invalid audience: %s", audience)
	}
}
