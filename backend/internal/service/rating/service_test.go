package rating

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

func setupRatingService(t *testing.T, name string) (*Service, *gorm.DB) {
	t.Helper()
	dsn := "file:" + name + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&userdomain.User{}, &catalogdomain.Category{}, &catalogdomain.Package{}, &catalogdomain.Rating{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })
	service := NewService(repository.NewRatingRepository(db), repository.NewPackageRepository(db), zap.NewNop().Sugar())
	return service, db
}

func seedPackage(t *testing.T, db *gorm.DB, ownerID uint) *catalogdomain.Package {
	t.Helper()
	pkg := catalogdomain.Package{
		Title:  "测试包",
		CatID:  1,
		UserID: ownerID,
		Status: catalogdomain.PackageStatusPublished,
	}
	if err := db.Create(&pkg).Error; err != nil {
		t.Fatalf("create package: %v", err)
	}
	return &pkg
}

func seedUser(t *testing.T, db *gorm.DB, username, email string) *userdomain.User {
	t.Helper()
	u := userdomain.User{Username: username, Email: email, ExternalAuthID: "sub-" + username, Slug: username}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &u
}

func TestRateRecomputesAggregate(t *testing.T) {
	service, db := setupRatingService(t, "rating-aggregate")
	ctx := context.Background()
	alice := seedUser(t, db, "alice", "alice@example.com")
	bob := seedUser(t, db, "bob", "bob@example.com")
	pkg := seedPackage(t, db, alice.ID)

	if _, err := service.Rate(ctx, alice.ID, pkg.ID, 5); err != nil {
		t.Fatalf("first rate: %v", err)
	}
	result, err := service.Rate(ctx, bob.ID, pkg.ID, 4)
	if err != nil {
		t.Fatalf("second rate: %v", err)
	}
	if result.RatingCount != 2 {
		t.Fatalf("expected count 2, got %d", result.RatingCount)
	}
	if result.RatingAvg != 4.5 {
		t.Fatalf("expected avg 4.5, got %v", result.RatingAvg)
	}

	var stored catalogdomain.Package
	if err := db.First(&stored, pkg.ID).Error; err != nil {
		t.Fatalf("reload package: %v", err)
	}
	if stored.RatingCount != 2 || stored.RatingAvg != 4.5 {
		t.Fatalf("aggregate not written back: count=%d avg=%v", stored.RatingCount, stored.RatingAvg)
	}
}

func TestRateOverwritesExistingRow(t *testing.T) {
	service, db := setupRatingService(t, "rating-overwrite")
	ctx := context.Background()
	alice := seedUser(t, db, "alice", "alice@example.com")
	pkg := seedPackage(t, db, alice.ID)

	if _, err := service.Rate(ctx, alice.ID, pkg.ID, 2); err != nil {
		t.Fatalf("first rate: %v", err)
	}
	result, err := service.Rate(ctx, alice.ID, pkg.ID, 5)
	if err != nil {
		t.Fatalf("re-rate: %v", err)
	}
	if result.RatingCount != 1 {
		t.Fatalf("expected single row, got count %d", result.RatingCount)
	}
	if result.RatingAvg != 5 {
		t.Fatalf("expected avg 5 after overwrite, got %v", result.RatingAvg)
	}

	var rows []catalogdomain.Rating
	if err := db.Where("package_id = ?", pkg.ID).Find(&rows).Error; err != nil {
		t.Fatalf("list ratings: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected exactly one rating row, got %d", len(rows))
	}
	if rows[0].Score != 5 {
		t.Fatalf("expected second score in effect, got %d", rows[0].Score)
	}
}

func TestRateRejectsOutOfRangeScore(t *testing.T) {
	service, db := setupRatingService(t, "rating-validation")
	ctx := context.Background()
	alice := seedUser(t, db, "alice", "alice@example.com")
	pkg := seedPackage(t, db, alice.ID)

	for _, score := range []int{0, 6, -1} {
		if _, err := service.Rate(ctx, alice.ID, pkg.ID, score); !apperr.IsValidation(err) {
			t.Fatalf("score %d: expected validation error, got %v", score, err)
		}
	}
}

func TestMyRatingAbsentIsNotAnError(t *testing.T) {
	service, db := setupRatingService(t, "rating-my")
	ctx := context.Background()
	alice := seedUser(t, db, "alice", "alice@example.com")
	pkg := seedPackage(t, db, alice.ID)

	result, err := service.MyRating(ctx, alice.ID, pkg.ID)
	if err != nil {
		t.Fatalf("my rating: %v", err)
	}
	if result != nil {
		t.Fatalf("expected explicit no-rating result, got %+v", result)
	}

	if _, err := service.Rate(ctx, alice.ID, pkg.ID, 3); err != nil {
		t.Fatalf("rate: %v", err)
	}
	result, err = service.MyRating(ctx, alice.ID, pkg.ID)
	if err != nil {
		t.Fatalf("my rating after rate: %v", err)
	}
	if result == nil || result.Score != 3 {
		t.Fatalf("expected score 3, got %+v", result)
	}
}
