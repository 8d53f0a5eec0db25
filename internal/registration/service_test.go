package registration

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/krishnadas018/yatra-management-backend/internal/auditlog"
	"github.com/krishnadas018/yatra-management-backend/internal/yatra"
	"github.com/krishnadas018/yatra-management-backend/middleware"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	auditSvc := auditlog.NewService(auditlog.NewRepository(db))
	return NewService(NewRepository(db), auditSvc), db
}

func devoteeAccess(id uint) middleware.AccessContext {
	return middleware.AccessContext{UserID: id, RoleName: middleware.RoleDevotee, PermissionType: "readonly"}
}

func adminAccess(id uint) middleware.AccessContext {
	return middleware.AccessContext{UserID: id, RoleName: middleware.RoleAdmin, PermissionType: "full"}
}

func createTestRegistration(t *testing.T, svc Service, db *gorm.DB, devoteeID uint) *Registration {
	t.Helper()
	y, cat := seedYatra(t, db, 100)

	req := CreateRegistrationRequest{
		YatraID:      y.ID,
		ContactEmail: "pilgrim@example.com",
		ContactPhone: "9876543210",
		Members: []MemberInput{
			{FullName: "Radha Sharma", DateOfBirth: "1985-02-10", RoomCategoryID: cat.ID, IsPrimaryRegistrant: true},
			{FullName: "Gopal Sharma", DateOfBirth: "2023-08-20", RoomCategoryID: cat.ID},
		},
	}

	reg, err := svc.CreateRegistration(context.Background(), req, devoteeAccess(devoteeID), "127.0.0.1")
	if err != nil {
		t.Fatalf("CreateRegistration failed: %v", err)
	}
	return reg
}

func TestFullLifecycle(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	devotee := devoteeAccess(11)
	admin := adminAccess(99)

	reg := createTestRegistration(t, svc, db, 11)

	if reg.Status != StatusPending {
		t.Fatalf("new registration should be PENDING, got %s", reg.Status)
	}
	if reg.TotalAmount != 8000 {
		t.Errorf("under-5 member must be free: expected total 8000, got %d", reg.TotalAmount)
	}

	// Devotee uploads payment proof
	reg, err := svc.UploadPayment(ctx, reg.ID, "UTR12345", "UPI", "payments/proof.png", devotee, "127.0.0.1")
	if err != nil {
		t.Fatalf("UploadPayment failed: %v", err)
	}
	if reg.Status != StatusPaymentSubmitted {
		t.Fatalf("expected PAYMENT_SUBMITTED, got %s", reg.Status)
	}
	if reg.PaymentReference == nil || *reg.PaymentReference != "UTR12345" {
		t.Errorf("payment reference not recorded")
	}
	if reg.SubmittedAt == nil {
		t.Errorf("submitted_at not stamped")
	}

	// Admin verifies, confirms, completes
	reg, err = svc.AdminUpdateStatus(ctx, reg.ID, StatusPaymentVerified, "bank statement matched", admin, "10.0.0.1")
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if reg.ReviewedBy == nil || *reg.ReviewedBy != 99 || reg.ReviewedAt == nil {
		t.Errorf("verification stamps missing: %+v", reg)
	}

	reg, err = svc.AdminUpdateStatus(ctx, reg.ID, StatusConfirmed, "", admin, "10.0.0.1")
	if err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	if reg.ConfirmedBy == nil || *reg.ConfirmedBy != 99 || reg.ConfirmedAt == nil {
		t.Errorf("confirmation stamps missing: %+v", reg)
	}

	reg, err = svc.AdminUpdateStatus(ctx, reg.ID, StatusCompleted, "yatra done", admin, "10.0.0.1")
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	history, err := ParseStatusHistory(reg.StatusHistory)
	if err != nil {
		t.Fatalf("failed to parse history: %v", err)
	}
	// Initial PENDING entry plus four transitions
	if len(history) != 5 {
		t.Fatalf("expected 5 history entries, got %d", len(history))
	}
	wantOrder := []string{StatusPending, StatusPaymentSubmitted, StatusPaymentVerified, StatusConfirmed, StatusCompleted}
	for i, to := range wantOrder {
		if history[i].ToStatus != to {
			t.Errorf("history[%d]: expected ToStatus %s, got %s", i, to, history[i].ToStatus)
		}
	}

	// Nothing moves out of COMPLETED
	if _, err := svc.AdminUpdateStatus(ctx, reg.ID, StatusPending, "", admin, "10.0.0.1"); err == nil {
		t.Errorf("transition out of COMPLETED should fail")
	}
}

func TestAdminTransitionTable(t *testing.T) {
	all := []string{
		StatusPending, StatusPaymentSubmitted, StatusPaymentVerified,
		StatusConfirmed, StatusCompleted, StatusCancelledByUser, StatusCancelledByAdmin,
	}

	allowed := map[string][]string{
		StatusPending:          {StatusPaymentSubmitted, StatusCancelledByUser, StatusCancelledByAdmin},
		StatusPaymentSubmitted: {StatusPaymentVerified, StatusPending, StatusCancelledByAdmin},
		StatusPaymentVerified:  {StatusConfirmed, StatusCancelledByAdmin},
		StatusConfirmed:        {StatusCompleted, StatusCancelledByAdmin},
	}

	for _, from := range all {
		allowedSet := map[string]bool{}
		for _, to := range allowed[from] {
			allowedSet[to] = true
		}
		for _, to := range all {
			got := CanTransition(from, to)
			if got != allowedSet[to] {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, allowedSet[to])
			}
		}
	}

	for _, status := range []string{StatusCompleted, StatusCancelledByUser, StatusCancelledByAdmin} {
		if !IsTerminal(status) {
			t.Errorf("%s should be terminal", status)
		}
	}
	for _, status := range []string{StatusPending, StatusPaymentSubmitted, StatusPaymentVerified, StatusConfirmed} {
		if IsTerminal(status) {
			t.Errorf("%s should not be terminal", status)
		}
	}
}

func TestUserCancellation(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	devotee := devoteeAccess(21)

	reg := createTestRegistration(t, svc, db, 21)

	// Cancellable while PENDING
	cancelled, err := svc.CancelRegistration(ctx, reg.ID, "plans changed", devotee, "127.0.0.1")
	if err != nil {
		t.Fatalf("CancelRegistration failed: %v", err)
	}
	if cancelled.Status != StatusCancelledByUser {
		t.Fatalf("expected CANCELLED_BY_USER, got %s", cancelled.Status)
	}

	// No un-cancel
	if _, err := svc.CancelRegistration(ctx, reg.ID, "", devotee, "127.0.0.1"); err == nil {
		t.Errorf("cancelling a cancelled registration should fail")
	}
	var ite *InvalidTransitionError
	_, err = svc.AdminUpdateStatus(ctx, reg.ID, StatusPending, "", adminAccess(1), "10.0.0.1")
	if !errors.As(err, &ite) {
		t.Errorf("expected InvalidTransitionError reviving a cancelled registration, got %v", err)
	}
}

func TestUserCannotCancelAfterVerification(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	devotee := devoteeAccess(31)
	admin := adminAccess(99)

	reg := createTestRegistration(t, svc, db, 31)

	if _, err := svc.UploadPayment(ctx, reg.ID, "UTR777", "UPI", "payments/proof.png", devotee, "127.0.0.1"); err != nil {
		t.Fatalf("UploadPayment failed: %v", err)
	}
	if _, err := svc.AdminUpdateStatus(ctx, reg.ID, StatusPaymentVerified, "", admin, "10.0.0.1"); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	var ite *InvalidTransitionError
	_, err := svc.CancelRegistration(ctx, reg.ID, "too late", devotee, "127.0.0.1")
	if !errors.As(err, &ite) {
		t.Fatalf("expected InvalidTransitionError after verification, got %v", err)
	}
}

func TestOwnershipChecks(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	reg := createTestRegistration(t, svc, db, 41)
	stranger := devoteeAccess(42)

	if _, err := svc.GetRegistration(ctx, reg.ID, stranger); !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected ErrNotOwner on read, got %v", err)
	}
	if _, err := svc.UploadPayment(ctx, reg.ID, "UTR1", "UPI", "payments/proof.png", stranger, "127.0.0.1"); !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected ErrNotOwner on payment upload, got %v", err)
	}
	if _, err := svc.CancelRegistration(ctx, reg.ID, "", stranger, "127.0.0.1"); !errors.Is(err, ErrNotOwner) {
		t.Errorf("expected ErrNotOwner on cancel, got %v", err)
	}

	// Admins read anything
	if _, err := svc.GetRegistration(ctx, reg.ID, adminAccess(1)); err != nil {
		t.Errorf("admin read failed: %v", err)
	}
}

func TestAdminOnlyOperations(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	reg := createTestRegistration(t, svc, db, 51)
	devotee := devoteeAccess(51)

	if _, err := svc.AdminUpdateStatus(ctx, reg.ID, StatusPaymentSubmitted, "", devotee, "127.0.0.1"); err == nil {
		t.Errorf("devotee must not drive the admin status machine")
	}
	if _, _, err := svc.ListByYatra(ctx, RegistrationFilter{YatraID: &reg.YatraID}, devotee); err == nil {
		t.Errorf("devotee must not list a yatra's registrations")
	}
	if _, err := svc.GetStatusCounts(ctx, reg.YatraID, devotee); err == nil {
		t.Errorf("devotee must not read status counts")
	}

	admin := adminAccess(99)
	regs, total, err := svc.ListByYatra(ctx, RegistrationFilter{YatraID: &reg.YatraID}, admin)
	if err != nil {
		t.Fatalf("admin ListByYatra failed: %v", err)
	}
	if total != 1 || len(regs) != 1 {
		t.Errorf("expected one registration, got total=%d len=%d", total, len(regs))
	}
}

func TestPaymentRejectionRevertsToPending(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	devotee := devoteeAccess(61)
	admin := adminAccess(99)

	reg := createTestRegistration(t, svc, db, 61)

	if _, err := svc.UploadPayment(ctx, reg.ID, "UTR-BAD", "UPI", "payments/first.png", devotee, "127.0.0.1"); err != nil {
		t.Fatalf("UploadPayment failed: %v", err)
	}

	reg, err := svc.AdminUpdateStatus(ctx, reg.ID, StatusPending, "UTR not found in statement", admin, "10.0.0.1")
	if err != nil {
		t.Fatalf("rejecting payment proof failed: %v", err)
	}
	if reg.Status != StatusPending {
		t.Fatalf("expected PENDING after rejection, got %s", reg.Status)
	}

	// Devotee can resubmit
	reg, err = svc.UploadPayment(ctx, reg.ID, "UTR-GOOD", "UPI", "payments/second.png", devotee, "127.0.0.1")
	if err != nil {
		t.Fatalf("resubmission failed: %v", err)
	}
	if *reg.PaymentReference != "UTR-GOOD" {
		t.Errorf("resubmitted reference not recorded: %v", *reg.PaymentReference)
	}
}

func TestUpdateRegistrationReprices(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	devotee := devoteeAccess(71)

	reg := createTestRegistration(t, svc, db, 71)

	var cat yatra.RoomCategory
	if err := db.Where("yatra_id = ?", reg.YatraID).First(&cat).Error; err != nil {
		t.Fatalf("failed to load category: %v", err)
	}

	req := UpdateRegistrationRequest{
		ContactEmail: "updated@example.com",
		Members: []MemberInput{
			{FullName: "Radha Sharma", DateOfBirth: "1985-02-10", RoomCategoryID: cat.ID, IsPrimaryRegistrant: true},
			{FullName: "Mohan Sharma", DateOfBirth: "1982-06-01", RoomCategoryID: cat.ID},
			{FullName: "Gopal Sharma", DateOfBirth: "2023-08-20", RoomCategoryID: cat.ID},
		},
	}

	updated, err := svc.UpdateRegistration(ctx, reg.ID, req, devotee, "127.0.0.1")
	if err != nil {
		t.Fatalf("UpdateRegistration failed: %v", err)
	}
	// Two paying adults, one free child
	if updated.TotalAmount != 16000 {
		t.Errorf("expected repriced total 16000, got %d", updated.TotalAmount)
	}
	if len(updated.Members) != 3 {
		t.Errorf("expected 3 members, got %d", len(updated.Members))
	}
}

func TestCreateRegistration_TravelDatesMustFitYatraWindow(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	y, cat := seedYatra(t, db, 100)
	inside := y.StartDate.AddDate(0, 0, 1).Format("2006-01-02")

	req := CreateRegistrationRequest{
		YatraID:      y.ID,
		ContactEmail: "pilgrim@example.com",
		Members: []MemberInput{
			{
				FullName:            "Radha Sharma",
				DateOfBirth:         "1985-02-10",
				RoomCategoryID:      cat.ID,
				IsPrimaryRegistrant: true,
				ArrivalDate:         "2020-01-01",
				DepartureDate:       "2031-01-01",
			},
		},
	}

	var ve *ValidationError
	if _, err := svc.CreateRegistration(ctx, req, devoteeAccess(81), "127.0.0.1"); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for travel dates outside the yatra window, got %v", err)
	}

	// Departure past the yatra end is rejected even when arrival fits
	req.Members[0].ArrivalDate = inside
	if _, err := svc.CreateRegistration(ctx, req, devoteeAccess(81), "127.0.0.1"); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError for out-of-window departure, got %v", err)
	}

	// Both inside the window books fine
	req.Members[0].DepartureDate = y.EndDate.Format("2006-01-02")
	reg, err := svc.CreateRegistration(ctx, req, devoteeAccess(81), "127.0.0.1")
	if err != nil {
		t.Fatalf("in-window travel dates must be accepted: %v", err)
	}
	if reg.Members[0].ArrivalDate == nil || reg.Members[0].DepartureDate == nil {
		t.Errorf("travel dates not persisted")
	}
}

func TestUploadPayment_ScreenshotRequiredReferenceOptional(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	devotee := devoteeAccess(91)

	reg := createTestRegistration(t, svc, db, 91)

	var ve *ValidationError
	if _, err := svc.UploadPayment(ctx, reg.ID, "UTR555", "UPI", "", devotee, "127.0.0.1"); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError without a screenshot, got %v", err)
	}

	// The screenshot alone is enough; the reference string is optional
	reg, err := svc.UploadPayment(ctx, reg.ID, "", "UPI", "payments/proof.png", devotee, "127.0.0.1")
	if err != nil {
		t.Fatalf("upload with screenshot and no reference failed: %v", err)
	}
	if reg.Status != StatusPaymentSubmitted {
		t.Fatalf("expected PAYMENT_SUBMITTED, got %s", reg.Status)
	}
	if reg.PaymentScreenshot == nil || *reg.PaymentScreenshot != "payments/proof.png" {
		t.Errorf("screenshot path not recorded")
	}
	if reg.PaymentReference != nil {
		t.Errorf("empty reference must stay unset, got %v", *reg.PaymentReference)
	}
}
