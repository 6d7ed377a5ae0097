package social

import (
	"context"
	"testing"

	"lf-go-app/backend/internal/apperr"
	userdomain "lf-go-app/backend/internal/domain/user"
	"lf-go-app/backend/internal/repository"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSocialService(t *testing.T, name string) (*Service, *gorm.DB) {
	t.Helper()
	dsn := "file:" + name + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&userdomain.User{}, &userdomain.Follow{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })
	service := NewService(repository.NewFollowRepository(db), repository.NewUserRepository(db), zap.NewNop().Sugar(), Config{})
	return service, db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *userdomain.User {
	t.Helper()
	u := userdomain.User{Username: username, Email: username + "@example.com", ExternalAuthID: "sub-" + username, Slug: username}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return &u
}

func TestToggleAlternatesState(t *testing.T) {
	service, db := setupSocialService(t, "social-toggle")
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")

	expected := []bool{true, false, true}
	for i, want := range expected {
		result, err := service.Toggle(ctx, alice.ID, bob.ID)
		if err != nil {
			t.Fatalf("toggle #%d: %v", i+1, err)
		}
		if result.Followed != want {
			t.Fatalf("toggle #%d: expected followed=%v, got %v", i+1, want, result.Followed)
		}
	}

	var count int64
	if err := db.Model(&userdomain.Follow{}).Where("follower_id = ? AND following_id = ?", alice.ID, bob.ID).Count(&count).Error; err != nil {
		t.Fatalf("count edges: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single edge after odd number of toggles, got %d", count)
	}
}

func TestToggleRejectsSelfFollow(t *testing.T) {
	service, db := setupSocialService(t, "social-self")
	ctx := context.Background()
	alice := seedUser(t, db, "alice")

	// 自我关注无论当前状态如何都直接拒绝，不产生边。
	for i := 0; i < 2; i++ {
		if _, err := service.Toggle(ctx, alice.ID, alice.ID); !apperr.IsValidation(err) {
			t.Fatalf("attempt #%d: expected validation error, got %v", i+1, err)
		}
	}
}

func TestToggleUnknownTarget(t *testing.T) {
	service, db := setupSocialService(t, "social-missing")
	ctx := context.Background()
	alice := seedUser(t, db, "alice")

	if _, err := service.Toggle(ctx, alice.ID, alice.ID+100); !apperr.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestListFollowingNewestFirst(t *testing.T) {
	service, db := setupSocialService(t, "social-list")
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	carol := seedUser(t, db, "carol")

	if _, err := service.Toggle(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("follow bob: %v", err)
	}
	if _, err := service.Toggle(ctx, alice.ID, carol.ID); err != nil {
		t.Fatalf("follow carol: %v", err)
	}

	result, err := service.ListFollowing(ctx, alice.ID, 1, 10)
	if err != nil {
		t.Fatalf("list following: %v", err)
	}
	if result.Total != 2 || len(result.Items) != 2 {
		t.Fatalf("expected 2 entries, got total=%d len=%d", result.Total, len(result.Items))
	}
	for _, entry := range result.Items {
		if entry.User == nil || entry.User.Username == "" {
			t.Fatalf("entry missing user brief: %+v", entry)
		}
		if entry.FollowedAt == "" {
			t.Fatalf("entry missing followed_at: %+v", entry)
		}
	}
}
