package registration

import (
	"context"
	"errors"
	"time"

	"github.com/krishnadas018/yatra-management-backend/internal/auditlog"
	"github.com/krishnadas018/yatra-management-backend/internal/notification"
	"github.com/krishnadas018/yatra-management-backend/middleware"
	"github.com/krishnadas018/yatra-management-backend/utils"
)

type Service interface {
	CreateRegistration(ctx context.Context, req CreateRegistrationRequest, access middleware.AccessContext, ip string) (*Registration, error)
	UpdateRegistration(ctx context.Context, regID uint, req UpdateRegistrationRequest, access middleware.AccessContext, ip string) (*Registration, error)
	UploadPayment(ctx context.Context, regID uint, reference, method, screenshotPath string, access middleware.AccessContext, ip string) (*Registration, error)
	CancelRegistration(ctx context.Context, regID uint, remarks string, access middleware.AccessContext, ip string) (*Registration, error)
	AdminUpdateStatus(ctx context.Context, regID uint, newStatus, remarks string, access middleware.AccessContext, ip string) (*Registration, error)

	GetRegistration(ctx context.Context, regID uint, access middleware.AccessContext) (*Registration, error)
	GetByNumber(ctx context.Context, number string, access middleware.AccessContext) (*Registration, error)
	ListMyRegistrations(ctx context.Context, access middleware.AccessContext, status string) ([]Registration, error)
	ListByYatra(ctx context.Context, filter RegistrationFilter, access middleware.AccessContext) ([]Registration, int64, error)
	GetStatusCounts(ctx context.Context, yatraID uint, access middleware.AccessContext) (StatusCounts, error)

	SetNotifService(n notification.Service)
}

type service struct {
	repo     Repository
	auditSvc auditlog.Service
	notifSvc notification.Service
}

func NewService(repo Repository, auditSvc auditlog.Service) Service {
	return &service{
		repo:     repo,
		auditSvc: auditSvc,
	}
}

func (s *service) SetNotifService(n notification.Service) {
	s.notifSvc = n
}

func (s *service) CreateRegistration(ctx context.Context, req CreateRegistrationRequest, access middleware.AccessContext, ip string) (*Registration, error) {
	now := time.Now()

	categories, err := s.repo.GetYatraCategories(ctx, req.YatraID)
	if err != nil {
		return nil, err
	}

	members, total, err := BuildMembers(req.Members, categories, access.UserID, now)
	if err != nil {
		s.auditSvc.LogAction(ctx, &access.UserID, &req.YatraID, "REGISTRATION_CREATE_FAILED", map[string]interface{}{
			"reason": err.Error(),
		}, ip, "failure")
		return nil, err
	}

	history, err := appendStatusChange(nil, StatusChange{
		ToStatus:  StatusPending,
		Timestamp: now.UTC(),
		ChangedBy: access.UserID,
	})
	if err != nil {
		return nil, err
	}

	reg := &Registration{
		YatraID:       req.YatraID,
		DevoteeID:     access.UserID,
		Status:        StatusPending,
		TotalAmount:   total,
		StatusHistory: history,
		ContactEmail:  req.ContactEmail,
		ContactPhone:  req.ContactPhone,
		Members:       members,
	}

	if err := s.repo.CreateGroup(ctx, reg, now); err != nil {
		s.auditSvc.LogAction(ctx, &access.UserID, &req.YatraID, "REGISTRATION_CREATE_FAILED", map[string]interface{}{
			"reason":       err.Error(),
			"member_count": len(members),
		}, ip, "failure")
		return nil, err
	}

	s.auditSvc.LogAction(ctx, &access.UserID, &req.YatraID, "REGISTRATION_CREATED", map[string]interface{}{
		"registration_id":     reg.ID,
		"registration_number": reg.RegistrationNumber,
		"member_count":        len(members),
		"total_amount":        total,
	}, ip, "success")

	s.afterTransition(ctx, reg, "", StatusPending, "")

	if y, err := s.repo.GetYatra(ctx, reg.YatraID); err == nil {
		go utils.SendRegistrationCreatedEmail(reg.ContactEmail, primaryName(reg), y.Name, reg.RegistrationNumber, reg.TotalAmount)
	}

	return reg, nil
}

func (s *service) UpdateRegistration(ctx context.Context, regID uint, req UpdateRegistrationRequest, access middleware.AccessContext, ip string) (*Registration, error) {
	existing, err := s.repo.GetByID(ctx, regID)
	if err != nil {
		return nil, err
	}
	if existing.DevoteeID != access.UserID && !access.IsAdmin() {
		return nil, ErrNotOwner
	}

	categories, err := s.repo.GetYatraCategories(ctx, existing.YatraID)
	if err != nil {
		return nil, err
	}

	members, total, err := BuildMembers(req.Members, categories, existing.DevoteeID, time.Now())
	if err != nil {
		return nil, err
	}

	reg, err := s.repo.ReplaceMembers(ctx, regID, members, total, req.ContactEmail, req.ContactPhone)
	if err != nil {
		s.auditSvc.LogAction(ctx, &access.UserID, &existing.YatraID, "REGISTRATION_UPDATE_FAILED", map[string]interface{}{
			"registration_id": regID,
			"reason":          err.Error(),
		}, ip, "failure")
		return nil, err
	}

	s.auditSvc.LogAction(ctx, &access.UserID, &reg.YatraID, "REGISTRATION_UPDATED", map[string]interface{}{
		"registration_id":     reg.ID,
		"registration_number": reg.RegistrationNumber,
		"member_count":        len(members),
		"total_amount":        total,
	}, ip, "success")

	return reg, nil
}

func (s *service) UploadPayment(ctx context.Context, regID uint, reference, method, screenshotPath string, access middleware.AccessContext, ip string) (*Registration, error) {
	existing, err := s.repo.GetByID(ctx, regID)
	if err != nil {
		return nil, err
	}
	if existing.DevoteeID != access.UserID {
		return nil, ErrNotOwner
	}
	if screenshotPath == "" {
		return nil, validationErrorf("payment screenshot is required")
	}

	now := time.Now()
	reg, err := s.repo.Transition(ctx, regID, StatusPaymentSubmitted, access.UserID, "payment proof uploaded",
		func(current string) error {
			if current != StatusPending {
				return &InvalidTransitionError{From: current, To: StatusPaymentSubmitted}
			}
			return nil
		},
		func(r *Registration) {
			r.PaymentScreenshot = &screenshotPath
			if reference != "" {
				r.PaymentReference = &reference
			}
			if method != "" {
				r.PaymentMethod = &method
			}
			r.SubmittedAt = &now
		})
	if err != nil {
		s.auditSvc.LogAction(ctx, &access.UserID, &existing.YatraID, "PAYMENT_UPLOAD_FAILED", map[string]interface{}{
			"registration_id": regID,
			"reason":          err.Error(),
		}, ip, "failure")
		return nil, err
	}

	s.auditSvc.LogAction(ctx, &access.UserID, &reg.YatraID, "PAYMENT_UPLOADED", map[string]interface{}{
		"registration_id":     reg.ID,
		"registration_number": reg.RegistrationNumber,
		"payment_reference":   reference,
	}, ip, "success")

	s.afterTransition(ctx, reg, StatusPending, StatusPaymentSubmitted, "payment proof uploaded")

	return reg, nil
}

func (s *service) CancelRegistration(ctx context.Context, regID uint, remarks string, access middleware.AccessContext, ip string) (*Registration, error) {
	existing, err := s.repo.GetByID(ctx, regID)
	if err != nil {
		return nil, err
	}
	if existing.DevoteeID != access.UserID {
		return nil, ErrNotOwner
	}

	fromStatus := existing.Status
	reg, err := s.repo.Transition(ctx, regID, StatusCancelledByUser, access.UserID, remarks,
		func(current string) error {
			if !userCancellable[current] {
				return &InvalidTransitionError{From: current, To: StatusCancelledByUser}
			}
			return nil
		}, nil)
	if err != nil {
		s.auditSvc.LogAction(ctx, &access.UserID, &existing.YatraID, "REGISTRATION_CANCEL_FAILED", map[string]interface{}{
			"registration_id": regID,
			"reason":          err.Error(),
		}, ip, "failure")
		return nil, err
	}

	s.auditSvc.LogAction(ctx, &access.UserID, &reg.YatraID, "REGISTRATION_CANCELLED", map[string]interface{}{
		"registration_id":     reg.ID,
		"registration_number": reg.RegistrationNumber,
		"remarks":             remarks,
	}, ip, "success")

	s.afterTransition(ctx, reg, fromStatus, StatusCancelledByUser, remarks)
	s.sendStatusEmail(ctx, reg, remarks)

	return reg, nil
}

func (s *service) AdminUpdateStatus(ctx context.Context, regID uint, newStatus, remarks string, access middleware.AccessContext, ip string) (*Registration, error) {
	if !access.IsAdmin() {
		return nil, errors.New("admin access required")
	}

	existing, err := s.repo.GetByID(ctx, regID)
	if err != nil {
		return nil, err
	}

	fromStatus := existing.Status
	now := time.Now()
	reg, err := s.repo.Transition(ctx, regID, newStatus, access.UserID, remarks,
		func(current string) error {
			if !CanTransition(current, newStatus) {
				return &InvalidTransitionError{From: current, To: newStatus}
			}
			return nil
		},
		func(r *Registration) {
			switch newStatus {
			case StatusPaymentVerified:
				r.ReviewedBy = &access.UserID
				r.ReviewedAt = &now
			case StatusConfirmed:
				r.ConfirmedBy = &access.UserID
				r.ConfirmedAt = &now
			}
		})
	if err != nil {
		s.auditSvc.LogAction(ctx, &access.UserID, &existing.YatraID, "REGISTRATION_STATUS_UPDATE_FAILED", map[string]interface{}{
			"registration_id": regID,
			"from_status":     fromStatus,
			"to_status":       newStatus,
			"reason":          err.Error(),
		}, ip, "failure")
		return nil, err
	}

	s.auditSvc.LogAction(ctx, &access.UserID, &reg.YatraID, "REGISTRATION_STATUS_UPDATED", map[string]interface{}{
		"registration_id":     reg.ID,
		"registration_number": reg.RegistrationNumber,
		"from_status":         fromStatus,
		"to_status":           newStatus,
		"remarks":             remarks,
	}, ip, "success")

	s.afterTransition(ctx, reg, fromStatus, newStatus, remarks)
	s.sendStatusEmail(ctx, reg, remarks)

	return reg, nil
}

func (s *service) GetRegistration(ctx context.Context, regID uint, access middleware.AccessContext) (*Registration, error) {
	reg, err := s.repo.GetByID(ctx, regID)
	if err != nil {
		return nil, err
	}
	if reg.DevoteeID != access.UserID && !access.IsAdmin() {
		return nil, ErrNotOwner
	}
	return reg, nil
}

func (s *service) GetByNumber(ctx context.Context, number string, access middleware.AccessContext) (*Registration, error) {
	reg, err := s.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if reg.DevoteeID != access.UserID && !access.IsAdmin() {
		return nil, ErrNotOwner
	}
	return reg, nil
}

func (s *service) ListMyRegistrations(ctx context.Context, access middleware.AccessContext, status string) ([]Registration, error) {
	return s.repo.ListByDevotee(ctx, access.UserID, status)
}

func (s *service) ListByYatra(ctx context.Context, filter RegistrationFilter, access middleware.AccessContext) ([]Registration, int64, error) {
	if !access.IsAdmin() {
		return nil, 0, errors.New("admin access required")
	}
	return s.repo.ListByYatra(ctx, filter)
}

func (s *service) GetStatusCounts(ctx context.Context, yatraID uint, access middleware.AccessContext) (StatusCounts, error) {
	if !access.IsAdmin() {
		return StatusCounts{}, errors.New("admin access required")
	}
	return s.repo.GetStatusCounts(ctx, yatraID)
}

// afterTransition fans the change out to the event stream and in-app
// notifications. Failures here never fail the transition itself.
func (s *service) afterTransition(ctx context.Context, reg *Registration, from, to, remarks string) {
	yatraName := ""
	if y, err := s.repo.GetYatra(ctx, reg.YatraID); err == nil {
		yatraName = y.Name
	}

	if utils.KafkaEnabled() {
		utils.PublishRegistrationEvent(utils.RegistrationEvent{
			RegistrationID:     reg.ID,
			RegistrationNumber: reg.RegistrationNumber,
			YatraID:            reg.YatraID,
			YatraName:          yatraName,
			DevoteeID:          reg.DevoteeID,
			FromStatus:         from,
			ToStatus:           to,
			Remarks:            remarks,
		})
	}

	if s.notifSvc != nil {
		title := "Registration " + reg.RegistrationNumber
		message := "Status is now " + to
		if to == StatusPending && from == "" {
			message = "Your registration for " + yatraName + " was received"
		}
		_ = s.notifSvc.NotifyUser(ctx, reg.DevoteeID, title, message, &reg.YatraID)
	}
}

func (s *service) sendStatusEmail(ctx context.Context, reg *Registration, remarks string) {
	yatraName := ""
	if y, err := s.repo.GetYatra(ctx, reg.YatraID); err == nil {
		yatraName = y.Name
	}
	go utils.SendRegistrationStatusEmail(reg.ContactEmail, primaryName(reg), yatraName, reg.RegistrationNumber, reg.Status, remarks)
}

func primaryName(reg *Registration) string {
	for _, m := range reg.Members {
		if m.IsPrimaryRegistrant {
			return m.FullName
		}
	}
	return ""
}
