package user

import (
	"context"
	"strconv"
	"testing"

	"lf-go-app/backend/internal/apperr"
	domain "lf-go-app/backend/internal/domain/user"
	"lf-go-app/backend/internal/repository"
	"lf-go-app/backend/internal/slug"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupUserService(t *testing.T, name string) (*Service, *gorm.DB) {
	t.Helper()
	dsn := "file:" + name + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.User{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })
	return NewService(repository.NewUserRepository(db), zap.NewNop().Sugar()), db
}

func seedUser(t *testing.T, db *gorm.DB, username string) *domain.User {
	t.Helper()
	u := domain.User{Username: username, Email: username + "@example.com", ExternalAuthID: "sub-" + username, Status: domain.StatusActive}
	if err := db.Create(&u).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	u.Slug = slug.WithID(username, u.ID)
	if err := db.Model(&domain.User{}).Where("id = ?", u.ID).Update("slug", u.Slug).Error; err != nil {
		t.Fatalf("assign slug: %v", err)
	}
	return &u
}

func TestPublicProfileResolution(t *testing.T) {
	service, db := setupUserService(t, "user-profile")
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	idText := strconv.FormatUint(uint64(alice.ID), 10)

	for _, ref := range []string{idText, alice.Slug, idText + "-old-handle"} {
		profile, err := service.PublicProfile(ctx, ref)
		if err != nil {
			t.Fatalf("resolve %q: %v", ref, err)
		}
		if profile.ID != alice.ID {
			t.Fatalf("resolve %q: expected user %d, got %d", ref, alice.ID, profile.ID)
		}
	}
	if _, err := service.PublicProfile(ctx, "no-such-user"); !apperr.IsNotFound(err) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestUpdateProfileUsernameConflict(t *testing.T) {
	service, db := setupUserService(t, "user-update")
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	seedUser(t, db, "bob")

	taken := "bob"
	if _, err := service.UpdateProfile(ctx, alice.ID, UpdateInput{Username: &taken}); !apperr.IsConflict(err) {
		t.Fatalf("expected conflict for taken username, got %v", err)
	}

	short := "al"
	if _, err := service.UpdateProfile(ctx, alice.ID, UpdateInput{Username: &short}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for short username, got %v", err)
	}

	fresh := "alice-two"
	updated, err := service.UpdateProfile(ctx, alice.ID, UpdateInput{Username: &fresh})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if updated.Username != fresh {
		t.Fatalf("expected username %q, got %q", fresh, updated.Username)
	}
	if updated.Slug != slug.WithID(fresh, alice.ID) {
		t.Fatalf("expected slug re-derived from new username, got %q", updated.Slug)
	}
}

func TestUpdateProfileDisplayFields(t *testing.T) {
	service, db := setupUserService(t, "user-display")
	ctx := context.Background()
	alice := seedUser(t, db, "alice")

	display := "  Alice Liddell  "
	avatar := "https://cdn.example.com/alice.png"
	updated, err := service.UpdateProfile(ctx, alice.ID, UpdateInput{DisplayName: &display, AvatarURL: &avatar})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.DisplayName != "Alice Liddell" {
		t.Fatalf("expected trimmed display name, got %q", updated.DisplayName)
	}
	if updated.AvatarURL != avatar {
		t.Fatalf("expected avatar url kept, got %q", updated.AvatarURL)
	}
	// 未触碰用户名时 slug 保持不变。
	if updated.Slug != alice.Slug {
		t.Fatalf("slug must not change without rename, got %q", updated.Slug)
	}
}
