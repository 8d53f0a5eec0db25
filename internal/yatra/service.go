package yatra

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"github.com/krishnadas018/yatra-management-backend/config"
	"github.com/krishnadas018/yatra-management-backend/internal/auditlog"
	"github.com/krishnadas018/yatra-management-backend/middleware"
)

type Service interface {
	// Yatra Core
	CreateYatra(ctx context.Context, req CreateYatraRequest, access middleware.AccessContext, ip string) (*Yatra, error)
	UpdateYatra(ctx context.Context, yatraID uint, req UpdateYatraRequest, access middleware.AccessContext, ip string) (*Yatra, error)
	UpdateYatraStatus(ctx context.Context, yatraID uint, status string, access middleware.AccessContext, ip string) error
	DeleteYatra(ctx context.Context, yatraID uint, access middleware.AccessContext, ip string) error
	GetYatraByID(ctx context.Context, id uint) (*Yatra, error)
	ListYatras(ctx context.Context, includeAll bool) ([]Yatra, error)

	// Room Categories
	AddRoomCategory(ctx context.Context, yatraID uint, input RoomCategoryInput, access middleware.AccessContext, ip string) (*RoomCategory, error)
	UpdateRoomCategory(ctx context.Context, categoryID uint, input RoomCategoryInput, access middleware.AccessContext, ip string) (*RoomCategory, error)
	DeleteRoomCategory(ctx context.Context, categoryID uint, access middleware.AccessContext, ip string) error
	ListRoomCategories(ctx context.Context, yatraID uint) ([]RoomCategory, error)

	// Payment Options
	CreatePaymentOption(ctx context.Context, req CreatePaymentOptionRequest, access middleware.AccessContext, ip string) (*PaymentOption, error)
	ListPaymentOptions(ctx context.Context) ([]PaymentOption, error)
	DeactivatePaymentOption(ctx context.Context, optionID uint, access middleware.AccessContext, ip string) error
	AttachPaymentOption(ctx context.Context, yatraID, optionID uint, access middleware.AccessContext, ip string) error
	DetachPaymentOption(ctx context.Context, yatraID, optionID uint, access middleware.AccessContext, ip string) error
}

type service struct {
	repo     Repository
	auditSvc auditlog.Service
}

func NewService(repo Repository, auditSvc auditlog.Service) Service {
	return &service{
		repo:     repo,
		auditSvc: auditSvc,
	}
}

const dateLayout = "2006-01-02"

func parseDates(start, end, opensAt, closesAt string) (s, e, o, c time.Time, err error) {
	if s, err = time.Parse(dateLayout, start); err != nil {
		return s, e, o, c, errors.New("invalid start_date. Use YYYY-MM-DD")
	}
	if e, err = time.Parse(dateLayout, end); err != nil {
		return s, e, o, c, errors.New("invalid end_date. Use YYYY-MM-DD")
	}
	if o, err = time.Parse(dateLayout, opensAt); err != nil {
		return s, e, o, c, errors.New("invalid registration_opens_at. Use YYYY-MM-DD")
	}
	if c, err = time.Parse(dateLayout, closesAt); err != nil {
		return s, e, o, c, errors.New("invalid registration_closes_at. Use YYYY-MM-DD")
	}
	if e.Before(s) {
		return s, e, o, c, errors.New("end_date cannot be before start_date")
	}
	if c.Before(o) {
		return s, e, o, c, errors.New("registration window closes before it opens")
	}
	if c.After(s) {
		return s, e, o, c, errors.New("registration must close on or before the start date")
	}
	return s, e, o, c, nil
}

func (s *service) CreateYatra(ctx context.Context, req CreateYatraRequest, access middleware.AccessContext, ip string) (*Yatra, error) {
	if !access.CanWrite() {
		s.auditSvc.LogAction(ctx, &access.UserID, nil, "YATRA_CREATE_FAILED", map[string]interface{}{
			"reason":     "write access denied",
			"yatra_name": req.Name,
		}, ip, "failure")
		return nil, errors.New("write access denied")
	}

	startDate, endDate, opensAt, closesAt, err := parseDates(req.StartDate, req.EndDate, req.RegistrationOpensAt, req.RegistrationClosesAt)
	if err != nil {
		return nil, err
	}
	if req.MaxCapacity < 0 {
		return nil, errors.New("max_capacity cannot be negative")
	}

	y := &Yatra{
		Name:                 req.Name,
		Description:          req.Description,
		Destination:          req.Destination,
		StartDate:            startDate,
		EndDate:              endDate,
		RegistrationOpensAt:  opensAt,
		RegistrationClosesAt: closesAt,
		MaxCapacity:          req.MaxCapacity,
		Status:               StatusDraft,
		CreatedBy:            access.UserID,
	}

	for _, cat := range req.RoomCategories {
		if cat.PricePerPerson <= 0 {
			return nil, fmt.Errorf("room category %q must have a positive price", cat.Name)
		}
		active := true
		if cat.IsActive != nil {
			active = *cat.IsActive
		}
		y.RoomCategories = append(y.RoomCategories, RoomCategory{
			Name:           cat.Name,
			Description:    cat.Description,
			PricePerPerson: cat.PricePerPerson,
			IsActive:       active,
		})
	}

	if err := s.repo.Create(ctx, y); err != nil {
		s.auditSvc.LogAction(ctx, &access.UserID, nil, "YATRA_CREATE_FAILED", map[string]interface{}{
			"yatra_name": req.Name,
			"error":      err.Error(),
		}, ip, "failure")
		return nil, err
	}

	s.auditSvc.LogAction(ctx, &access.UserID, &y.ID, "YATRA_CREATED", map[string]interface{}{
		"yatra_name":   y.Name,
		"destination":  y.Destination,
		"max_capacity": y.MaxCapacity,
	}, ip, "success")

	return y, nil
}

func (s *service) UpdateYatra(ctx context.Context, yatraID uint, req UpdateYatraRequest, access middleware.AccessContext, ip string) (*Yatra, error) {
	if !access.CanWrite() {
		return nil, errors.New("write access denied")
	}

	y, err := s.repo.GetByID(ctx, yatraID)
	if err != nil {
		return nil, errors.New("yatra not found")
	}
	if y.Status == StatusCompleted || y.Status == StatusCancelled {
		return nil, errors.New("cannot edit a completed or cancelled yatra")
	}

	startDate, endDate, opensAt, closesAt, err := parseDates(req.StartDate, req.EndDate, req.RegistrationOpensAt, req.RegistrationClosesAt)
	if err != nil {
		return nil, err
	}
	if req.MaxCapacity < 0 {
		return nil, errors.New("max_capacity cannot be negative")
	}

	// Capacity can never shrink below seats already booked; 0 is unlimited
	if req.MaxCapacity > 0 {
		booked, err := s.repo.CountBookedSeats(ctx, yatraID)
		if err != nil {
			return nil, err
		}
		if int64(req.MaxCapacity) < booked {
			return nil, fmt.Errorf("max_capacity %d is below the %d seats already booked", req.MaxCapacity, booked)
		}
	}

	y.Name = req.Name
	y.Description = req.Description
	y.Destination = req.Destination
	y.StartDate = startDate
	y.EndDate = endDate
	y.RegistrationOpensAt = opensAt
	y.RegistrationClosesAt = closesAt
	y.MaxCapacity = req.MaxCapacity

	if err := s.repo.Update(ctx, y); err != nil {
		s.auditSvc.LogAction(ctx, &access.UserID, &yatraID, "YATRA_UPDATE_FAILED", map[string]interface{}{
			"error": err.Error(),
		}, ip, "failure")
		return nil, err
	}

	s.auditSvc.LogAction(ctx, &access.UserID, &yatraID, "YATRA_UPDATED", map[string]interface{}{
		"yatra_name":   y.Name,
		"max_capacity": y.MaxCapacity,
	}, ip, "success")

	return y, nil
}

func (s *service) UpdateYatraStatus(ctx context.Context, yatraID uint, status string, access middleware.AccessContext, ip string) error {
	if !access.CanWrite() {
		return errors.New("write access denied")
	}
	if !ValidStatuses[status] {
		return fmt.Errorf("invalid yatra status %q", status)
	}

	y, err := s.repo.GetByID(ctx, yatraID)
	if err != nil {
		return errors.New("yatra not found")
	}
	if y.Status == StatusCompleted || y.Status == StatusCancelled {
		return errors.New("yatra status is terminal")
	}

	if err := s.repo.UpdateStatus(ctx, yatraID, status); err != nil {
		s.auditSvc.LogAction(ctx, &access.UserID, &yatraID, "YATRA_STATUS_UPDATE_FAILED", map[string]interface{}{
			"from_status": y.Status,
			"to_status":   status,
			"error":       err.Error(),
		}, ip, "failure")
		return err
	}

	s.auditSvc.LogAction(ctx, &access.UserID, &yatraID, "YATRA_STATUS_UPDATED", map[string]interface{}{
		"from_status": y.Status,
		"to_status":   status,
	}, ip, "success")

	return nil
}

func (s *service) DeleteYatra(ctx context.Context, yatraID uint, access middleware.AccessContext, ip string) error {
	if !access.CanWrite() {
		return errors.New("write access denied")
	}

	live, err := s.repo.CountLiveRegistrations(ctx, yatraID)
	if err != nil {
		return err
	}
	if live > 0 {
		s.auditSvc.LogAction(ctx, &access.UserID, &yatraID, "YATRA_DELETE_FAILED", map[string]interface{}{
			"reason":             "live registrations exist",
			"live_registrations": live,
		}, ip, "failure")
		return fmt.Errorf("yatra has %d live registrations and cannot be deleted", live)
	}

	if err := s.repo.Delete(ctx, yatraID); err != nil {
		return err
	}

	s.auditSvc.LogAction(ctx, &access.UserID, &yatraID, "YATRA_DELETED", nil, ip, "success")
	return nil
}

func (s *service) GetYatraByID(ctx context.Context, id uint) (*Yatra, error) {
	y, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if booked, err := s.repo.CountBookedSeats(ctx, id); err == nil {
		y.ConfirmedSeats = int(booked)
	}
	return y, nil
}

func (s *service) ListYatras(ctx context.Context, includeAll bool) ([]Yatra, error) {
	if includeAll {
		return s.repo.ListAll(ctx)
	}
	return s.repo.ListPublic(ctx)
}

// ======================
// Room categories
// ======================

func (s *service) AddRoomCategory(ctx context.Context, yatraID uint, input RoomCategoryInput, access middleware.AccessContext, ip string) (*RoomCategory, error) {
	if !access.CanWrite() {
		return nil, errors.New("write access denied")
	}
	if input.PricePerPerson <= 0 {
		return nil, errors.New("price_per_person must be positive")
	}
	if _, err := s.repo.GetByID(ctx, yatraID); err != nil {
		return nil, errors.New("yatra not found")
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	cat := &RoomCategory{
		YatraID:        yatraID,
		Name:           input.Name,
		Description:    input.Description,
		PricePerPerson: input.PricePerPerson,
		IsActive:       active,
	}

	if err := s.repo.CreateCategory(ctx, cat); err != nil {
		s.auditSvc.LogAction(ctx, &access.UserID, &yatraID, "ROOM_CATEGORY_CREATE_FAILED", map[string]interface{}{
			"category_name": input.Name,
			"error":         err.Error(),
		}, ip, "failure")
		return nil, err
	}

	s.auditSvc.LogAction(ctx, &access.UserID, &yatraID, "ROOM_CATEGORY_CREATED", map[string]interface{}{
		"category_id":      cat.ID,
		"category_name":    cat.Name,
		"price_per_person": cat.PricePerPerson,
	}, ip, "success")

	return cat, nil
}

func (s *service) UpdateRoomCategory(ctx context.Context, categoryID uint, input RoomCategoryInput, access middleware.AccessContext, ip string) (*RoomCategory, error) {
	if !access.CanWrite() {
		return nil, errors.New("write access denied")
	}
	if input.PricePerPerson <= 0 {
		return nil, errors.New("price_per_person must be positive")
	}

	cat, err := s.repo.GetCategoryByID(ctx, categoryID)
	if err != nil {
		return nil, errors.New("room category not found")
	}

	cat.Name = input.Name
	cat.Description = input.Description
	cat.PricePerPerson = input.PricePerPerson
	if input.IsActive != nil {
		cat.IsActive = *input.IsActive
	}

	if err := s.repo.UpdateCategory(ctx, cat); err != nil {
		return nil, err
	}

	s.auditSvc.LogAction(ctx, &access.UserID, &cat.YatraID, "ROOM_CATEGORY_UPDATED", map[string]interface{}{
		"category_id":      cat.ID,
		"category_name":    cat.Name,
		"price_per_person": cat.PricePerPerson,
		"is_active":        cat.IsActive,
	}, ip, "success")

	return cat, nil
}

func (s *service) DeleteRoomCategory(ctx context.Context, categoryID uint, access middleware.AccessContext, ip string) error {
	if !access.CanWrite() {
		return errors.New("write access denied")
	}

	cat, err := s.repo.GetCategoryByID(ctx, categoryID)
	if err != nil {
		return errors.New("room category not found")
	}

	members, err := s.repo.CountLiveMembersForCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if members > 0 {
		s.auditSvc.LogAction(ctx, &access.UserID, &cat.YatraID, "ROOM_CATEGORY_DELETE_FAILED", map[string]interface{}{
			"category_id":  categoryID,
			"reason":       "live members booked into category",
			"member_count": members,
		}, ip, "failure")
		return fmt.Errorf("room category has %d members in live registrations and cannot be deleted", members)
	}

	if err := s.repo.DeleteCategory(ctx, categoryID); err != nil {
		return err
	}

	s.auditSvc.LogAction(ctx, &access.UserID, &cat.YatraID, "ROOM_CATEGORY_DELETED", map[string]interface{}{
		"category_id":   categoryID,
		"category_name": cat.Name,
	}, ip, "success")

	return nil
}

func (s *service) ListRoomCategories(ctx context.Context, yatraID uint) ([]RoomCategory, error) {
	return s.repo.ListCategories(ctx, yatraID)
}

// ======================
// Payment options
// ======================

func (s *service) CreatePaymentOption(ctx context.Context, req CreatePaymentOptionRequest, access middleware.AccessContext, ip string) (*PaymentOption, error) {
	if !access.CanWrite() {
		return nil, errors.New("write access denied")
	}

	opt := &PaymentOption{
		Name:     req.Name,
		Method:   req.Method,
		IsActive: true,
	}

	switch req.Method {
	case PaymentMethodUPI:
		if req.UPIID == "" {
			return nil, errors.New("upi_id is required for UPI payment options")
		}
		opt.UPIID = req.UPIID

		qrPath, err := generateUPIQRCode(req.UPIID, req.Name)
		if err != nil {
			s.auditSvc.LogAction(ctx, &access.UserID, nil, "PAYMENT_OPTION_CREATE_FAILED", map[string]interface{}{
				"name":  req.Name,
				"error": err.Error(),
			}, ip, "failure")
			return nil, fmt.Errorf("failed to generate UPI QR code: %w", err)
		}
		opt.QRCodePath = qrPath

	case PaymentMethodBankTransfer:
		if req.AccountNumber == "" || req.IFSCCode == "" {
			return nil, errors.New("account_number and ifsc_code are required for bank transfer options")
		}
		opt.BankName = req.BankName
		opt.AccountNumber = req.AccountNumber
		opt.IFSCCode = req.IFSCCode
		opt.AccountHolderName = req.AccountHolderName

	default:
		return nil, errors.New("invalid payment method. Must be 'UPI' or 'BANK_TRANSFER'")
	}

	if err := s.repo.CreatePaymentOption(ctx, opt); err != nil {
		return nil, err
	}

	s.auditSvc.LogAction(ctx, &access.UserID, nil, "PAYMENT_OPTION_CREATED", map[string]interface{}{
		"option_id": opt.ID,
		"name":      opt.Name,
		"method":    opt.Method,
	}, ip, "success")

	return opt, nil
}

// generateUPIQRCode renders a upi:// deep link as a PNG under the upload directory
func generateUPIQRCode(upiID, payeeName string) (string, error) {
	uri := fmt.Sprintf("upi://pay?pa=%s&pn=%s", url.QueryEscape(upiID), url.QueryEscape(payeeName))

	dir := filepath.Join(config.UploadPath, "qrcodes")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	filename := uuid.New().String() + ".png"
	fullPath := filepath.Join(dir, filename)
	if err := qrcode.WriteFile(uri, qrcode.Medium, 256, fullPath); err != nil {
		return "", err
	}

	return filepath.Join("qrcodes", filename), nil
}

func (s *service) ListPaymentOptions(ctx context.Context) ([]PaymentOption, error) {
	return s.repo.ListPaymentOptions(ctx)
}

func (s *service) DeactivatePaymentOption(ctx context.Context, optionID uint, access middleware.AccessContext, ip string) error {
	if !access.CanWrite() {
		return errors.New("write access denied")
	}

	opt, err := s.repo.GetPaymentOptionByID(ctx, optionID)
	if err != nil {
		return errors.New("payment option not found")
	}

	opt.IsActive = false
	if err := s.repo.UpdatePaymentOption(ctx, opt); err != nil {
		return err
	}

	s.auditSvc.LogAction(ctx, &access.UserID, nil, "PAYMENT_OPTION_DEACTIVATED", map[string]interface{}{
		"option_id": optionID,
		"name":      opt.Name,
	}, ip, "success")

	return nil
}

func (s *service) AttachPaymentOption(ctx context.Context, yatraID, optionID uint, access middleware.AccessContext, ip string) error {
	if !access.CanWrite() {
		return errors.New("write access denied")
	}
	if _, err := s.repo.GetByID(ctx, yatraID); err != nil {
		return errors.New("yatra not found")
	}
	if _, err := s.repo.GetPaymentOptionByID(ctx, optionID); err != nil {
		return errors.New("payment option not found")
	}

	if err := s.repo.AttachPaymentOption(ctx, yatraID, optionID); err != nil {
		return err
	}

	s.auditSvc.LogAction(ctx, &access.UserID, &yatraID, "PAYMENT_OPTION_ATTACHED", map[string]interface{}{
		"option_id": optionID,
	}, ip, "success")

	return nil
}

func (s *service) DetachPaymentOption(ctx context.Context, yatraID, optionID uint, access middleware.AccessContext, ip string) error {
	if !access.CanWrite() {
		return errors.New("write access denied")
	}

	if err := s.repo.DetachPaymentOption(ctx, yatraID, optionID); err != nil {
		return err
	}

	s.auditSvc.LogAction(ctx, &access.UserID, &yatraID, "PAYMENT_OPTION_DETACHED", map[string]interface{}{
		"option_id": optionID,
	}, ip, "success")

	return nil
}
