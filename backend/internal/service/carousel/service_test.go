package carousel

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

func setupCarouselService(t *testing.T, name string) (*Service, *gorm.DB) {
	t.Helper()
	dsn := "file:" + name + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&userdomain.User{}, &catalogdomain.Package{}, &catalogdomain.Carousel{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })
	service := NewService(
		repository.NewCarouselRepository(db),
		repository.NewPackageRepository(db),
		repository.NewUserRepository(db),
		zap.NewNop().Sugar(),
	)
	return service, db
}

func TestCreateChecksPackageReference(t *testing.T) {
	service, db := setupCarouselService(t, "carousel-create")
	ctx := context.Background()

	owner := userdomain.User{Username: "alice", Email: "alice@example.com", ExternalAuthID: "sub-alice", Slug: "alice"}
	if err := db.Create(&owner).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	pkg := catalogdomain.Package{Title: "App", Slug: "app-1", CatID: 1, UserID: owner.ID, Status: catalogdomain.PackageStatusPublished}
	if err := db.Create(&pkg).Error; err != nil {
		t.Fatalf("create package: %v", err)
	}

	if _, err := service.Create(ctx, CreateInput{CatID: 1, UserID: owner.ID}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for blank title, got %v", err)
	}
	missing := pkg.ID + 10
	if _, err := service.Create(ctx, CreateInput{Title: "推荐", CatID: 1, UserID: owner.ID, PackageID: &missing}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for dangling package, got %v", err)
	}

	created, err := service.Create(ctx, CreateInput{Title: "推荐", CatID: 1, UserID: owner.ID, PackageID: &pkg.ID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.PackageID == nil || *created.PackageID != pkg.ID {
		t.Fatalf("expected package reference kept, got %+v", created)
	}

	entries, err := service.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].User == nil || entries[0].User.Username != "alice" {
		t.Fatalf("expected user brief, got %+v", entries[0].User)
	}
	if entries[0].PackageSlug != "app-1" {
		t.Fatalf("expected package slug resolved, got %q", entries[0].PackageSlug)
	}
}

func TestDeleteMissingEntry(t *testing.T) {
	service, _ := setupCarouselService(t, "carousel-delete")
	ctx := context.Background()

	if err := service.Delete(ctx, 99); !apperr.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}
