package comment

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

func setupCommentService(t *testing.T, name string) (*Service, *gorm.DB) {
	t.Helper()
	dsn := "file:" + name + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&userdomain.User{}, &catalogdomain.Category{}, &catalogdomain.Package{}, &catalogdomain.Comment{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })
	service := NewService(
		repository.NewCommentRepository(db),
		repository.NewPackageRepository(db),
		repository.NewUserRepository(db),
		zap.NewNop().Sugar(),
		Config{},
	)
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

func seedPackage(t *testing.T, db *gorm.DB, ownerID uint, title string) *catalogdomain.Package {
	t.Helper()
	pkg := catalogdomain.Package{Title: title, Slug: title, CatID: 1, UserID: ownerID, Status: catalogdomain.PackageStatusPublished}
	if err := db.Create(&pkg).Error; err != nil {
		t.Fatalf("create package %s: %v", title, err)
	}
	return &pkg
}

func TestCreateTopLevelAndReply(t *testing.T) {
	service, db := setupCommentService(t, "comment-create")
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	pkg := seedPackage(t, db, alice.ID, "App")

	root, err := service.Create(ctx, CreateInput{PackageID: pkg.ID, AuthorID: alice.ID, Content: "不错的工具"})
	if err != nil {
		t.Fatalf("create root comment: %v", err)
	}
	if root.ParentID != nil {
		t.Fatalf("expected top-level comment, got parent %v", root.ParentID)
	}
	if !root.IsMine || root.Author == nil || root.Author.Username != "alice" {
		t.Fatalf("expected author decoration, got %+v", root)
	}

	reply, err := service.Create(ctx, CreateInput{PackageID: pkg.ID, AuthorID: bob.ID, ParentID: &root.ID, Content: "同感"})
	if err != nil {
		t.Fatalf("create reply: %v", err)
	}
	if reply.ParentID == nil || *reply.ParentID != root.ID {
		t.Fatalf("expected reply to root %d, got %v", root.ID, reply.ParentID)
	}
}

func TestCreateEnforcesTwoLevelThreads(t *testing.T) {
	service, db := setupCommentService(t, "comment-depth")
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	pkg := seedPackage(t, db, alice.ID, "App")
	other := seedPackage(t, db, alice.ID, "Other")

	root, err := service.Create(ctx, CreateInput{PackageID: pkg.ID, AuthorID: alice.ID, Content: "顶层"})
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	reply, err := service.Create(ctx, CreateInput{PackageID: pkg.ID, AuthorID: alice.ID, ParentID: &root.ID, Content: "回复"})
	if err != nil {
		t.Fatalf("create reply: %v", err)
	}

	// 回复一条回复被拒绝。
	if _, err := service.Create(ctx, CreateInput{PackageID: pkg.ID, AuthorID: alice.ID, ParentID: &reply.ID, Content: "再回复"}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for reply-to-reply, got %v", err)
	}
	// 回复目标必须属于同一个包。
	if _, err := service.Create(ctx, CreateInput{PackageID: other.ID, AuthorID: alice.ID, ParentID: &root.ID, Content: "跨包"}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for cross-package reply, got %v", err)
	}
	// 悬挂的回复目标同样拒绝。
	missing := reply.ID + 100
	if _, err := service.Create(ctx, CreateInput{PackageID: pkg.ID, AuthorID: alice.ID, ParentID: &missing, Content: "空指"}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for dangling parent, got %v", err)
	}
}

func TestListByPackageGroupsReplies(t *testing.T) {
	service, db := setupCommentService(t, "comment-list")
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	pkg := seedPackage(t, db, alice.ID, "App")

	root, err := service.Create(ctx, CreateInput{PackageID: pkg.ID, AuthorID: alice.ID, Content: "顶层"})
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	if _, err := service.Create(ctx, CreateInput{PackageID: pkg.ID, AuthorID: bob.ID, ParentID: &root.ID, Content: "回复一"}); err != nil {
		t.Fatalf("create reply: %v", err)
	}
	if _, err := service.Create(ctx, CreateInput{PackageID: pkg.ID, AuthorID: alice.ID, ParentID: &root.ID, Content: "回复二"}); err != nil {
		t.Fatalf("create second reply: %v", err)
	}

	result, err := service.ListByPackage(ctx, ListInput{PackageID: pkg.ID, ViewerID: bob.ID})
	if err != nil {
		t.Fatalf("list comments: %v", err)
	}
	if result.Total != 1 || len(result.Items) != 1 {
		t.Fatalf("replies must not count as top-level rows: total=%d len=%d", result.Total, len(result.Items))
	}
	item := result.Items[0]
	if len(item.Replies) != 2 {
		t.Fatalf("expected 2 replies attached, got %d", len(item.Replies))
	}
	if item.IsMine {
		t.Fatalf("root authored by alice must not be mine for bob")
	}
	var mine int
	for _, reply := range item.Replies {
		if reply.IsMine {
			mine++
		}
	}
	if mine != 1 {
		t.Fatalf("expected exactly one reply marked mine for bob, got %d", mine)
	}
}

func TestDeleteOnlyByAuthor(t *testing.T) {
	service, db := setupCommentService(t, "comment-delete")
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	pkg := seedPackage(t, db, alice.ID, "App")

	root, err := service.Create(ctx, CreateInput{PackageID: pkg.ID, AuthorID: alice.ID, Content: "顶层"})
	if err != nil {
		t.Fatalf("create root: %v", err)
	}

	if err := service.Delete(ctx, bob.ID, root.ID); !apperr.IsAuthorization(err) {
		t.Fatalf("expected authorization error for foreign delete, got %v", err)
	}
	if err := service.Delete(ctx, alice.ID, root.ID); err != nil {
		t.Fatalf("author delete: %v", err)
	}
	if err := service.Delete(ctx, alice.ID, root.ID); !apperr.IsNotFound(err) {
		t.Fatalf("expected not-found on second delete, got %v", err)
	}
}
