package report

import (
	"context"
	"testing"

	"lf-go-app/backend/internal/apperr"
	catalogdomain "lf-go-app/backend/internal/domain/catalog"
	userdomain "lf-go-app/backend/internal/domain/user"
	"lf-go-app/backend/internal/repository"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupReportService(t *testing.T, name string) (*Service, *gorm.DB) {
	t.Helper()
	dsn := "file:" + name + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&userdomain.User{}, &catalogdomain.Report{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })
	return NewService(repository.NewReportRepository(db), repository.NewUserRepository(db), zap.NewNop().Sugar()), db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *userdomain.User {
	t.Helper()
	u := userdomain.User{Username: username, Email: username + "@example.com", ExternalAuthID: "sub-" + username, Slug: username}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return &u
}

func TestCreateRequiresTarget(t *testing.T) {
	service, db := setupReportService(t, "report-validation")
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	// 目标用户与目标包至少填一个。
	if _, err := service.Create(ctx, CreateInput{ReporterID: alice.ID, Reason: "垃圾信息"}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error without target, got %v", err)
	}
	if _, err := service.Create(ctx, CreateInput{ReporterID: alice.ID, TargetUserID: &bob.ID}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for blank reason, got %v", err)
	}

	created, err := service.Create(ctx, CreateInput{ReporterID: alice.ID, Reason: "冒充官方账号", TargetUserID: &bob.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.TargetUserID == nil || *created.TargetUserID != bob.ID {
		t.Fatalf("expected target user persisted, got %+v", created)
	}

	pkgID := uint(12)
	if _, err := service.Create(ctx, CreateInput{ReporterID: bob.ID, Reason: "盗版内容", PackageID: &pkgID}); err != nil {
		t.Fatalf("create package report: %v", err)
	}
}

func TestListAllAttachesBriefs(t *testing.T) {
	service, db := setupReportService(t, "report-list")
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	if _, err := service.Create(ctx, CreateInput{ReporterID: alice.ID, Reason: "骚扰", TargetUserID: &bob.ID}); err != nil {
		t.Fatalf("create: %v", err)
	}

	reports, err := service.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	entry := reports[0]
	if entry.Reporter == nil || entry.Reporter.Username != "alice" {
		t.Fatalf("expected reporter brief, got %+v", entry.Reporter)
	}
	if entry.TargetUser == nil || entry.TargetUser.Username != "bob" {
		t.Fatalf("expected target user brief, got %+v", entry.TargetUser)
	}
}
