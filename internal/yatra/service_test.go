package yatra

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/krishnadas018/yatra-management-backend/internal/auditlog"
	"github.com/krishnadas018/yatra-management-backend/middleware"
)

func setupTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&Yatra{}, &RoomCategory{}, &PaymentOption{}, &auditlog.AuditLog{}); err != nil {
		t.Fatalf("migration failed: %v", err)
	}
	// Tables the live-seat queries join against
	if err := db.Exec(`CREATE TABLE yatra_registrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		yatra_id INTEGER NOT NULL,
		devotee_id INTEGER NOT NULL,
		status TEXT NOT NULL,
		deleted_at DATETIME
	)`).Error; err != nil {
		t.Fatalf("failed to create registrations table: %v", err)
	}
	if err := db.Exec(`CREATE TABLE registration_members (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		registration_id INTEGER NOT NULL,
		room_category_id INTEGER NOT NULL
	)`).Error; err != nil {
		t.Fatalf("failed to create members table: %v", err)
	}

	auditSvc := auditlog.NewService(auditlog.NewRepository(db))
	return NewService(NewRepository(db), auditSvc), db
}

func adminWriter() middleware.AccessContext {
	return middleware.AccessContext{UserID: 1, RoleName: middleware.RoleAdmin, PermissionType: "full"}
}

func validCreateRequest() CreateYatraRequest {
	return CreateYatraRequest{
		Name:                 "Kedarnath Yatra",
		Destination:          "Kedarnath",
		StartDate:            "2026-10-01",
		EndDate:              "2026-10-10",
		RegistrationOpensAt:  "2026-08-01",
		RegistrationClosesAt: "2026-09-15",
		MaxCapacity:          60,
		RoomCategories: []RoomCategoryInput{
			{Name: "Dormitory", PricePerPerson: 6000},
			{Name: "Deluxe Room", PricePerPerson: 14000},
		},
	}
}

func TestCreateYatra(t *testing.T) {
	svc, _ := setupTestService(t)

	y, err := svc.CreateYatra(context.Background(), validCreateRequest(), adminWriter(), "10.0.0.1")
	if err != nil {
		t.Fatalf("CreateYatra failed: %v", err)
	}
	if y.Status != StatusDraft {
		t.Errorf("new yatra should start in DRAFT, got %s", y.Status)
	}
	if len(y.RoomCategories) != 2 {
		t.Errorf("expected 2 categories, got %d", len(y.RoomCategories))
	}
}

func TestCreateYatra_DateValidation(t *testing.T) {
	svc, _ := setupTestService(t)

	cases := []struct {
		name   string
		mutate func(*CreateYatraRequest)
	}{
		{"end before start", func(r *CreateYatraRequest) { r.EndDate = "2026-09-01" }},
		{"closes before opens", func(r *CreateYatraRequest) { r.RegistrationClosesAt = "2026-07-01" }},
		{"closes after start", func(r *CreateYatraRequest) { r.RegistrationClosesAt = "2026-10-05" }},
		{"bad date format", func(r *CreateYatraRequest) { r.StartDate = "01-10-2026" }},
		{"negative capacity", func(r *CreateYatraRequest) { r.MaxCapacity = -1 }},
		{"free category", func(r *CreateYatraRequest) { r.RoomCategories[0].PricePerPerson = 0 }},
	}

	for _, tc := range cases {
		req := validCreateRequest()
		tc.mutate(&req)
		if _, err := svc.CreateYatra(context.Background(), req, adminWriter(), "10.0.0.1"); err == nil {
			t.Errorf("%s: expected error, got nil", tc.name)
		}
	}
}

func TestCreateYatra_ZeroCapacityMeansUnlimited(t *testing.T) {
	svc, _ := setupTestService(t)

	req := validCreateRequest()
	req.MaxCapacity = 0
	y, err := svc.CreateYatra(context.Background(), req, adminWriter(), "10.0.0.1")
	if err != nil {
		t.Fatalf("zero capacity must be accepted as unlimited: %v", err)
	}
	if y.MaxCapacity != 0 {
		t.Errorf("expected MaxCapacity 0, got %d", y.MaxCapacity)
	}
}

func TestCreateYatra_RequiresWriteAccess(t *testing.T) {
	svc, _ := setupTestService(t)

	readonly := middleware.AccessContext{UserID: 2, RoleName: middleware.RoleAdmin, PermissionType: "readonly"}
	if _, err := svc.CreateYatra(context.Background(), validCreateRequest(), readonly, "10.0.0.1"); err == nil {
		t.Errorf("readonly admin must not create yatras")
	}
}

func TestUpdateYatraStatus_TerminalGuard(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()
	access := adminWriter()

	y, err := svc.CreateYatra(ctx, validCreateRequest(), access, "10.0.0.1")
	if err != nil {
		t.Fatalf("CreateYatra failed: %v", err)
	}

	if err := svc.UpdateYatraStatus(ctx, y.ID, "SOMETHING_ELSE", access, "10.0.0.1"); err == nil {
		t.Errorf("invalid status value should be rejected")
	}

	if err := svc.UpdateYatraStatus(ctx, y.ID, StatusUpcoming, access, "10.0.0.1"); err != nil {
		t.Fatalf("DRAFT -> UPCOMING failed: %v", err)
	}
	if err := svc.UpdateYatraStatus(ctx, y.ID, StatusCancelled, access, "10.0.0.1"); err != nil {
		t.Fatalf("UPCOMING -> CANCELLED failed: %v", err)
	}
	if err := svc.UpdateYatraStatus(ctx, y.ID, StatusUpcoming, access, "10.0.0.1"); err == nil {
		t.Errorf("cancelled yatra must not be revived")
	}
}

func TestUpdateYatra_CapacityFloor(t *testing.T) {
	svc, db := setupTestService(t)
	ctx := context.Background()
	access := adminWriter()

	y, err := svc.CreateYatra(ctx, validCreateRequest(), access, "10.0.0.1")
	if err != nil {
		t.Fatalf("CreateYatra failed: %v", err)
	}

	// Simulate a live registration holding 4 seats
	if err := db.Exec(`INSERT INTO yatra_registrations (yatra_id, devotee_id, status) VALUES (?, 7, 'CONFIRMED')`, y.ID).Error; err != nil {
		t.Fatalf("failed to seed registration: %v", err)
	}
	for i := 0; i < 4; i++ {
		if err := db.Exec(`INSERT INTO registration_members (registration_id, room_category_id) VALUES (1, 1)`).Error; err != nil {
			t.Fatalf("failed to seed member: %v", err)
		}
	}

	req := UpdateYatraRequest{
		Name:                 y.Name,
		Destination:          y.Destination,
		StartDate:            "2026-10-01",
		EndDate:              "2026-10-10",
		RegistrationOpensAt:  "2026-08-01",
		RegistrationClosesAt: "2026-09-15",
		MaxCapacity:          3,
	}
	if _, err := svc.UpdateYatra(ctx, y.ID, req, access, "10.0.0.1"); err == nil {
		t.Errorf("capacity below booked seats should be rejected")
	}

	req.MaxCapacity = 4
	if _, err := svc.UpdateYatra(ctx, y.ID, req, access, "10.0.0.1"); err != nil {
		t.Errorf("capacity equal to booked seats should be accepted, got %v", err)
	}
}

func TestDeleteYatra_BlockedByLiveRegistrations(t *testing.T) {
	svc, db := setupTestService(t)
	ctx := context.Background()
	access := adminWriter()

	y, err := svc.CreateYatra(ctx, validCreateRequest(), access, "10.0.0.1")
	if err != nil {
		t.Fatalf("CreateYatra failed: %v", err)
	}

	if err := db.Exec(`INSERT INTO yatra_registrations (yatra_id, devotee_id, status) VALUES (?, 7, 'PENDING')`, y.ID).Error; err != nil {
		t.Fatalf("failed to seed registration: %v", err)
	}

	if err := svc.DeleteYatra(ctx, y.ID, access, "10.0.0.1"); err == nil {
		t.Errorf("yatra with live registrations must not be deleted")
	}

	if err := db.Exec(`UPDATE yatra_registrations SET status = 'CANCELLED_BY_USER' WHERE yatra_id = ?`, y.ID).Error; err != nil {
		t.Fatalf("failed to cancel: %v", err)
	}
	if err := svc.DeleteYatra(ctx, y.ID, access, "10.0.0.1"); err != nil {
		t.Errorf("yatra with only cancelled registrations should be deletable, got %v", err)
	}
}

func TestListYatras_PublicHidesDrafts(t *testing.T) {
	svc, db := setupTestService(t)
	ctx := context.Background()
	access := adminWriter()

	draft, err := svc.CreateYatra(ctx, validCreateRequest(), access, "10.0.0.1")
	if err != nil {
		t.Fatalf("CreateYatra failed: %v", err)
	}

	req := validCreateRequest()
	req.Name = "Rameswaram Yatra"
	published, err := svc.CreateYatra(ctx, req, access, "10.0.0.1")
	if err != nil {
		t.Fatalf("CreateYatra failed: %v", err)
	}
	if err := db.Model(&Yatra{}).Where("id = ?", published.ID).Update("status", StatusUpcoming).Error; err != nil {
		t.Fatalf("failed to publish: %v", err)
	}

	public, err := svc.ListYatras(ctx, false)
	if err != nil {
		t.Fatalf("ListYatras failed: %v", err)
	}
	if len(public) != 1 || public[0].ID != published.ID {
		t.Errorf("public list should contain only the published yatra, got %d entries", len(public))
	}

	all, err := svc.ListYatras(ctx, true)
	if err != nil {
		t.Fatalf("ListYatras(all) failed: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("admin list should contain both yatras, got %d", len(all))
	}
	found := false
	for _, y := range all {
		if y.ID == draft.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("admin list should include the draft yatra")
	}
}
