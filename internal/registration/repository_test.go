package registration

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/krishnadas018/yatra-management-backend/internal/auditlog"
	"github.com/krishnadas018/yatra-management-backend/internal/yatra"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}

	if err := db.AutoMigrate(
		&yatra.Yatra{},
		&yatra.RoomCategory{},
		&Registration{},
		&Member{},
		&auditlog.AuditLog{},
	); err != nil {
		t.Fatalf("migration failed: %v", err)
	}

	return db
}

// seedYatra creates an UPCOMING yatra whose registration window is open right
// now, with a single 8000-rupee category.
func seedYatra(t *testing.T, db *gorm.DB, capacity int) (*yatra.Yatra, *yatra.RoomCategory) {
	t.Helper()

	now := time.Now()
	y := &yatra.Yatra{
		Name:                 "Vrindavan Yatra",
		Destination:          "Vrindavan",
		StartDate:            now.AddDate(0, 2, 0),
		EndDate:              now.AddDate(0, 2, 7),
		RegistrationOpensAt:  now.AddDate(0, 0, -7),
		RegistrationClosesAt: now.AddDate(0, 1, 0),
		MaxCapacity:          capacity,
		Status:               yatra.StatusUpcoming,
		CreatedBy:            1,
	}
	if err := db.Create(y).Error; err != nil {
		t.Fatalf("failed to seed yatra: %v", err)
	}

	cat := &yatra.RoomCategory{
		YatraID:        y.ID,
		Name:           "Dormitory",
		PricePerPerson: 8000,
		IsActive:       true,
	}
	if err := db.Create(cat).Error; err != nil {
		t.Fatalf("failed to seed room category: %v", err)
	}

	return y, cat
}

func newTestRegistration(y *yatra.Yatra, cat *yatra.RoomCategory, devoteeID uint, seats int) *Registration {
	members := make([]Member, seats)
	for i := range members {
		members[i] = Member{
			FullName:         fmt.Sprintf("Member %d", i+1),
			DateOfBirth:      time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
			RoomCategoryID:   cat.ID,
			RoomCategoryName: cat.Name,
			PriceCharged:     cat.PricePerPerson,
		}
	}
	members[0].IsPrimaryRegistrant = true
	members[0].DevoteeID = &devoteeID

	return &Registration{
		YatraID:      y.ID,
		DevoteeID:    devoteeID,
		Status:       StatusPending,
		TotalAmount:  cat.PricePerPerson * seats,
		ContactEmail: fmt.Sprintf("devotee%d@example.com", devoteeID),
		Members:      members,
	}
}

func TestCreateGroup_AssignsSequentialNumbers(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	y, cat := seedYatra(t, db, 100)
	now := time.Now()
	year := now.Year()

	for i := uint(1); i <= 3; i++ {
		reg := newTestRegistration(y, cat, i, 2)
		if err := repo.CreateGroup(context.Background(), reg, now); err != nil {
			t.Fatalf("CreateGroup for devotee %d failed: %v", i, err)
		}
		want := FormatRegistrationNumber(year, int(i))
		if reg.RegistrationNumber != want {
			t.Errorf("expected number %s, got %s", want, reg.RegistrationNumber)
		}
	}
}

func TestCreateGroup_DuplicateLiveRegistration(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	y, cat := seedYatra(t, db, 100)
	now := time.Now()

	first := newTestRegistration(y, cat, 5, 2)
	if err := repo.CreateGroup(context.Background(), first, now); err != nil {
		t.Fatalf("first CreateGroup failed: %v", err)
	}

	second := newTestRegistration(y, cat, 5, 1)
	err := repo.CreateGroup(context.Background(), second, now)
	if !errors.Is(err, ErrDuplicateRegistration) {
		t.Fatalf("expected ErrDuplicateRegistration, got %v", err)
	}

	// Cancel the first, then a fresh booking must be allowed
	if err := db.Model(first).Update("status", StatusCancelledByUser).Error; err != nil {
		t.Fatalf("failed to cancel: %v", err)
	}
	third := newTestRegistration(y, cat, 5, 1)
	if err := repo.CreateGroup(context.Background(), third, now); err != nil {
		t.Fatalf("rebooking after cancellation should succeed, got %v", err)
	}
}

func TestCreateGroup_CapacityGuard(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	y, cat := seedYatra(t, db, 5)
	now := time.Now()

	if err := repo.CreateGroup(context.Background(), newTestRegistration(y, cat, 1, 3), now); err != nil {
		t.Fatalf("first group failed: %v", err)
	}

	// 3 seats taken of 5: a 3-member group must be rejected
	err := repo.CreateGroup(context.Background(), newTestRegistration(y, cat, 2, 3), now)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}

	// but a 2-member group exactly fills the yatra
	if err := repo.CreateGroup(context.Background(), newTestRegistration(y, cat, 3, 2), now); err != nil {
		t.Fatalf("filling to exact capacity should succeed, got %v", err)
	}
}

func TestCreateGroup_CancelledSeatsAreReleased(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	y, cat := seedYatra(t, db, 4)
	now := time.Now()

	first := newTestRegistration(y, cat, 1, 4)
	if err := repo.CreateGroup(context.Background(), first, now); err != nil {
		t.Fatalf("first group failed: %v", err)
	}

	if err := repo.CreateGroup(context.Background(), newTestRegistration(y, cat, 2, 1), now); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded while full, got %v", err)
	}

	if err := db.Model(first).Update("status", StatusCancelledByAdmin).Error; err != nil {
		t.Fatalf("failed to cancel: %v", err)
	}

	if err := repo.CreateGroup(context.Background(), newTestRegistration(y, cat, 2, 4), now); err != nil {
		t.Fatalf("cancelled seats should be released, got %v", err)
	}
}

func TestCreateGroup_RegistrationWindow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	y, cat := seedYatra(t, db, 100)

	cases := []struct {
		name string
		now  time.Time
		ok   bool
	}{
		{"before window opens", y.RegistrationOpensAt.Add(-time.Hour), false},
		{"window just opened", y.RegistrationOpensAt.Add(time.Minute), true},
		{"on the closing date", y.RegistrationClosesAt.Add(2 * time.Hour), true},
		{"day after closing", y.RegistrationClosesAt.Add(25 * time.Hour), false},
	}

	for i, tc := range cases {
		reg := newTestRegistration(y, cat, uint(10+i), 1)
		err := repo.CreateGroup(context.Background(), reg, tc.now)
		if tc.ok && err != nil {
			t.Errorf("%s: expected success, got %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrRegistrationClosed) {
			t.Errorf("%s: expected ErrRegistrationClosed, got %v", tc.name, err)
		}
	}
}

func TestCreateGroup_YatraMustBeUpcoming(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	y, cat := seedYatra(t, db, 100)
	now := time.Now()

	for _, status := range []string{yatra.StatusDraft, yatra.StatusRegistrationClosed, yatra.StatusOngoing, yatra.StatusCancelled} {
		if err := db.Model(y).Update("status", status).Error; err != nil {
			t.Fatalf("failed to set status: %v", err)
		}
		err := repo.CreateGroup(context.Background(), newTestRegistration(y, cat, 1, 1), now)
		if !errors.Is(err, ErrRegistrationClosed) {
			t.Errorf("status %s: expected ErrRegistrationClosed, got %v", status, err)
		}
	}
}

func TestNumberSequence_SkipsNothingAfterCancellation(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	y, cat := seedYatra(t, db, 100)
	now := time.Now()
	year := now.Year()

	first := newTestRegistration(y, cat, 1, 1)
	if err := repo.CreateGroup(context.Background(), first, now); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	// Soft-delete the first registration; its number must never be reused
	if err := db.Delete(first).Error; err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	second := newTestRegistration(y, cat, 2, 1)
	if err := repo.CreateGroup(context.Background(), second, now); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if want := FormatRegistrationNumber(year, 2); second.RegistrationNumber != want {
		t.Errorf("expected %s after soft delete, got %s", want, second.RegistrationNumber)
	}
}

func TestReplaceMembers(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	y, cat := seedYatra(t, db, 10)
	now := time.Now()

	reg := newTestRegistration(y, cat, 1, 2)
	if err := repo.CreateGroup(context.Background(), reg, now); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	devID := uint(1)
	replacement := []Member{
		{FullName: "New Primary", DateOfBirth: date(1980, 1, 1), RoomCategoryID: cat.ID, RoomCategoryName: cat.Name, PriceCharged: 8000, IsPrimaryRegistrant: true, DevoteeID: &devID},
		{FullName: "Guest One", DateOfBirth: date(1985, 1, 1), RoomCategoryID: cat.ID, RoomCategoryName: cat.Name, PriceCharged: 8000},
		{FullName: "Guest Two", DateOfBirth: date(1988, 1, 1), RoomCategoryID: cat.ID, RoomCategoryName: cat.Name, PriceCharged: 8000},
	}

	updated, err := repo.ReplaceMembers(context.Background(), reg.ID, replacement, 24000, "new@example.com", "9999999999")
	if err != nil {
		t.Fatalf("ReplaceMembers failed: %v", err)
	}
	if updated.TotalAmount != 24000 {
		t.Errorf("expected total 24000, got %d", updated.TotalAmount)
	}
	if updated.ContactEmail != "new@example.com" {
		t.Errorf("contact email not updated: %s", updated.ContactEmail)
	}

	var count int64
	db.Model(&Member{}).Where("registration_id = ?", reg.ID).Count(&count)
	if count != 3 {
		t.Errorf("expected 3 members after replacement, got %d", count)
	}
}

func TestReplaceMembers_OnlyWhilePending(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	y, cat := seedYatra(t, db, 10)
	now := time.Now()

	reg := newTestRegistration(y, cat, 1, 1)
	if err := repo.CreateGroup(context.Background(), reg, now); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if err := db.Model(reg).Update("status", StatusPaymentSubmitted).Error; err != nil {
		t.Fatalf("failed to set status: %v", err)
	}

	devID := uint(1)
	members := []Member{{FullName: "X", DateOfBirth: date(1980, 1, 1), RoomCategoryID: cat.ID, PriceCharged: 8000, IsPrimaryRegistrant: true, DevoteeID: &devID}}
	_, err := repo.ReplaceMembers(context.Background(), reg.ID, members, 8000, "x@example.com", "")
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError once payment is submitted, got %v", err)
	}
}

func TestTransition_AppendsHistory(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	y, cat := seedYatra(t, db, 10)
	now := time.Now()

	reg := newTestRegistration(y, cat, 1, 1)
	if err := repo.CreateGroup(context.Background(), reg, now); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	noValidate := func(string) error { return nil }

	updated, err := repo.Transition(context.Background(), reg.ID, StatusPaymentSubmitted, 1, "proof uploaded", noValidate, nil)
	if err != nil {
		t.Fatalf("first transition failed: %v", err)
	}
	updated, err = repo.Transition(context.Background(), reg.ID, StatusPaymentVerified, 2, "verified", noValidate, nil)
	if err != nil {
		t.Fatalf("second transition failed: %v", err)
	}

	history, err := ParseStatusHistory(updated.StatusHistory)
	if err != nil {
		t.Fatalf("failed to parse history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history))
	}
	if history[0].FromStatus != StatusPending || history[0].ToStatus != StatusPaymentSubmitted {
		t.Errorf("unexpected first entry: %+v", history[0])
	}
	if history[1].FromStatus != StatusPaymentSubmitted || history[1].ToStatus != StatusPaymentVerified {
		t.Errorf("unexpected second entry: %+v", history[1])
	}
	if history[1].ChangedBy != 2 || history[1].Remarks != "verified" {
		t.Errorf("history entry missing actor or remarks: %+v", history[1])
	}
}

func TestGetByNumber(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	y, cat := seedYatra(t, db, 10)
	now := time.Now()

	reg := newTestRegistration(y, cat, 1, 2)
	if err := repo.CreateGroup(context.Background(), reg, now); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	found, err := repo.GetByNumber(context.Background(), reg.RegistrationNumber)
	if err != nil {
		t.Fatalf("GetByNumber failed: %v", err)
	}
	if found.ID != reg.ID {
		t.Errorf("expected registration %d, got %d", reg.ID, found.ID)
	}
	if len(found.Members) != 2 {
		t.Errorf("expected members preloaded, got %d", len(found.Members))
	}

	if _, err := repo.GetByNumber(context.Background(), "YTR-1999-0001"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for unknown number, got %v", err)
	}
}

func TestGetStatusCounts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	y, cat := seedYatra(t, db, 100)
	now := time.Now()

	statuses := []string{StatusPending, StatusPaymentSubmitted, StatusConfirmed, StatusCancelledByUser, StatusCancelledByAdmin}
	for i, status := range statuses {
		reg := newTestRegistration(y, cat, uint(i+1), 1)
		if err := repo.CreateGroup(context.Background(), reg, now); err != nil {
			t.Fatalf("CreateGroup failed: %v", err)
		}
		if status != StatusPending {
			if err := db.Model(reg).Update("status", status).Error; err != nil {
				t.Fatalf("failed to set status: %v", err)
			}
		}
	}

	counts, err := repo.GetStatusCounts(context.Background(), y.ID)
	if err != nil {
		t.Fatalf("GetStatusCounts failed: %v", err)
	}
	if counts.Total != 5 {
		t.Errorf("expected total 5, got %d", counts.Total)
	}
	if counts.Pending != 1 || counts.PaymentSubmitted != 1 || counts.Confirmed != 1 {
		t.Errorf("unexpected counts: %+v", counts)
	}
	if counts.Cancelled != 2 {
		t.Errorf("both cancellation kinds should be counted together, got %d", counts.Cancelled)
	}
}

func TestCreateGroup_ZeroCapacityIsUnlimited(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	y, cat := seedYatra(t, db, 0)
	now := time.Now()

	if err := repo.CreateGroup(context.Background(), newTestRegistration(y, cat, 1, 12), now); err != nil {
		t.Fatalf("booking on an unlimited yatra failed: %v", err)
	}
	if err := repo.CreateGroup(context.Background(), newTestRegistration(y, cat, 2, 15), now); err != nil {
		t.Fatalf("second large booking on an unlimited yatra failed: %v", err)
	}
}

func TestCreateGroup_TravelDatesOutsideWindowRejected(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	y, cat := seedYatra(t, db, 10)
	now := time.Now()

	early := y.StartDate.AddDate(0, -1, 0)
	reg := newTestRegistration(y, cat, 1, 1)
	reg.Members[0].ArrivalDate = &early

	var ve *ValidationError
	if err := repo.CreateGroup(context.Background(), reg, now); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for arrival before the yatra starts, got %v", err)
	}
}

func TestPriceChargedSurvivesCategoryPriceChange(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db)
	y, cat := seedYatra(t, db, 10)
	now := time.Now()

	reg := newTestRegistration(y, cat, 1, 2)
	if err := repo.CreateGroup(context.Background(), reg, now); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	if err := db.Model(&yatra.RoomCategory{}).Where("id = ?", cat.ID).
		Update("price_per_person", 99999).Error; err != nil {
		t.Fatalf("failed to change category price: %v", err)
	}

	got, err := repo.GetByID(context.Background(), reg.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.TotalAmount != 16000 {
		t.Errorf("total must keep the booking-time price, got %d", got.TotalAmount)
	}
	for _, m := range got.Members {
		if m.PriceCharged != 8000 {
			t.Errorf("member price must keep the booking-time snapshot, got %d", m.PriceCharged)
		}
	}
}

func TestUniqueViolationClassification(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		devotee bool
	}{
		{
			"postgres devotee index",
			fmt.Errorf(`duplicate key value violates unique constraint "idx_live_registration_per_devotee"`),
			true,
		},
		{
			"sqlite devotee index",
			fmt.Errorf("UNIQUE constraint failed: yatra_registrations.yatra_id, yatra_registrations.devotee_id"),
			true,
		},
		{
			"postgres registration number",
			fmt.Errorf(`duplicate key value violates unique constraint "uni_yatra_registrations_registration_number"`),
			false,
		},
		{
			"sqlite registration number",
			fmt.Errorf("UNIQUE constraint failed: yatra_registrations.registration_number"),
			false,
		},
		{
			"unrelated error",
			fmt.Errorf("connection reset"),
			false,
		},
	}

	for _, tc := range cases {
		if got := isDuplicateDevoteeViolation(tc.err); got != tc.devotee {
			t.Errorf("%s: isDuplicateDevoteeViolation = %v, want %v", tc.name, got, tc.devotee)
		}
	}
}
