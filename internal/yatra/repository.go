package yatra

import (
	"context"

	"gorm.io/gorm"
)

// Statuses under which a registration still holds seats.
var liveRegistrationStatuses = []string{"PENDING", "PAYMENT_SUBMITTED", "PAYMENT_VERIFIED", "CONFIRMED"}

type Repository interface {
	Create(ctx context.Context, y *Yatra) error
	GetByID(ctx context.Context, id uint) (*Yatra, error)
	ListPublic(ctx context.Context) ([]Yatra, error)
	ListAll(ctx context.Context) ([]Yatra, error)
	Update(ctx context.Context, y *Yatra) error
	UpdateStatus(ctx context.Context, id uint, status string) error
	Delete(ctx context.Context, id uint) error
	CountLiveRegistrations(ctx context.Context, yatraID uint) (int64, error)
	CountBookedSeats(ctx context.Context, yatraID uint) (int64, error)

	CreateCategory(ctx context.Context, c *RoomCategory) error
	GetCategoryByID(ctx context.Context, id uint) (*RoomCategory, error)
	ListCategories(ctx context.Context, yatraID uint) ([]RoomCategory, error)
	UpdateCategory(ctx context.Context, c *RoomCategory) error
	DeleteCategory(ctx context.Context, id uint) error
	CountLiveMembersForCategory(ctx context.Context, categoryID uint) (int64, error)

	CreatePaymentOption(ctx context.Context, p *PaymentOption) error
	GetPaymentOptionByID(ctx context.Context, id uint) (*PaymentOption, error)
	ListPaymentOptions(ctx context.Context) ([]PaymentOption, error)
	UpdatePaymentOption(ctx context.Context, p *PaymentOption) error
	AttachPaymentOption(ctx context.Context, yatraID, optionID uint) error
	DetachPaymentOption(ctx context.Context, yatraID, optionID uint) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, y *Yatra) error {
	return r.db.WithContext(ctx).Create(y).Error
}

func (r *repository) GetByID(ctx context.Context, id uint) (*Yatra, error) {
	var y Yatra
	err := r.db.WithContext(ctx).
		Preload("RoomCategories").
		Preload("PaymentOptions", "is_active = ?", true).
		First(&y, id).Error
	if err != nil {
		return nil, err
	}
	return &y, nil
}

// ListPublic returns yatras visible to devotees (drafts hidden)
func (r *repository) ListPublic(ctx context.Context) ([]Yatra, error) {
	var yatras []Yatra
	err := r.db.WithContext(ctx).
		Preload("RoomCategories", "is_active = ?", true).
		Where("status IN ?", []string{StatusUpcoming, StatusRegistrationClosed, StatusOngoing}).
		Order("start_date ASC").
		Find(&yatras).Error
	return yatras, err
}

func (r *repository) ListAll(ctx context.Context) ([]Yatra, error) {
	var yatras []Yatra
	err := r.db.WithContext(ctx).
		Preload("RoomCategories").
		Order("start_date DESC").
		Find(&yatras).Error
	return yatras, err
}

func (r *repository) Update(ctx context.Context, y *Yatra) error {
	return r.db.WithContext(ctx).Save(y).Error
}

func (r *repository) UpdateStatus(ctx context.Context, id uint, status string) error {
	return r.db.WithContext(ctx).
		Model(&Yatra{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&Yatra{}, id).Error
}

// CountLiveRegistrations counts registrations still holding seats on the yatra
func (r *repository) CountLiveRegistrations(ctx context.Context, yatraID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("yatra_registrations").
		Where("yatra_id = ? AND status IN ? AND deleted_at IS NULL", yatraID, liveRegistrationStatuses).
		Count(&count).Error
	return count, err
}

// CountBookedSeats counts members across all live registrations of the yatra
func (r *repository) CountBookedSeats(ctx context.Context, yatraID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("registration_members m").
		Joins("JOIN yatra_registrations r ON m.registration_id = r.id").
		Where("r.yatra_id = ? AND r.status IN ? AND r.deleted_at IS NULL", yatraID, liveRegistrationStatuses).
		Count(&count).Error
	return count, err
}

// ======================
// Room categories
// ======================

func (r *repository) CreateCategory(ctx context.Context, c *RoomCategory) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *repository) GetCategoryByID(ctx context.Context, id uint) (*RoomCategory, error) {
	var c RoomCategory
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) ListCategories(ctx context.Context, yatraID uint) ([]RoomCategory, error) {
	var categories []RoomCategory
	err := r.db.WithContext(ctx).
		Where("yatra_id = ?", yatraID).
		Order("price_per_person ASC").
		Find(&categories).Error
	return categories, err
}

func (r *repository) UpdateCategory(ctx context.Context, c *RoomCategory) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *repository) DeleteCategory(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&RoomCategory{}, id).Error
}

// CountLiveMembersForCategory counts live-registration members booked into the category
func (r *repository) CountLiveMembersForCategory(ctx context.Context, categoryID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("registration_members m").
		Joins("JOIN yatra_registrations r ON m.registration_id = r.id").
		Where("m.room_category_id = ? AND r.status IN ? AND r.deleted_at IS NULL", categoryID, liveRegistrationStatuses).
		Count(&count).Error
	return count, err
}

// ======================
// Payment options
// ======================

func (r *repository) CreatePaymentOption(ctx context.Context, p *PaymentOption) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *repository) GetPaymentOptionByID(ctx context.Context, id uint) (*PaymentOption, error) {
	var p PaymentOption
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repository) ListPaymentOptions(ctx context.Context) ([]PaymentOption, error) {
	var options []PaymentOption
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&options).Error
	return options, err
}

func (r *repository) UpdatePaymentOption(ctx context.Context, p *PaymentOption) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *repository) AttachPaymentOption(ctx context.Context, yatraID, optionID uint) error {
	return r.db.WithContext(ctx).
		Model(&Yatra{ID: yatraID}).
		Association("PaymentOptions").
		Append(&PaymentOption{ID: optionID})
}

func (r *repository) DetachPaymentOption(ctx context.Context, yatraID, optionID uint) error {
	return r.db.WithContext(ctx).
		Model(&Yatra{ID: yatraID}).
		Association("PaymentOptions").
		Delete(&PaymentOption{ID: optionID})
}
