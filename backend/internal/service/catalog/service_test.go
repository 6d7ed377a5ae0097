package catalog

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"lf-go-app/backend/internal/apperr"
	catalogdomain "lf-go-app/backend/internal/domain/catalog"
	userdomain "lf-go-app/backend/internal/domain/user"
	"lf-go-app/backend/internal/repository"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCatalogService(t *testing.T, name string) (*Service, *gorm.DB) {
	t.Helper()
	dsn := "file:" + name + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(
		&userdomain.User{},
		&catalogdomain.Category{},
		&catalogdomain.Package{},
		&catalogdomain.Image{},
		&catalogdomain.Url{},
		&catalogdomain.Version{},
		&catalogdomain.PackageVersion{},
		&catalogdomain.Rating{},
		&catalogdomain.Comment{},
		&catalogdomain.Report{},
		&catalogdomain.Carousel{},
	); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })
	service := NewService(
		repository.NewPackageRepository(db),
		repository.NewVersionRepository(db),
		repository.NewCommentRepository(db),
		repository.NewUserRepository(db),
		repository.NewCategoryRepository(db),
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

func seedCategory(t *testing.T, db *gorm.DB, name, param string) *catalogdomain.Category {
	t.Helper()
	cat := catalogdomain.Category{Name: name, Param: param}
	if err := db.Create(&cat).Error; err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	return &cat
}

func TestCreateForOwnerStartsAsDraft(t *testing.T) {
	service, db := setupCatalogService(t, "catalog-create")
	ctx := context.Background()
	owner := seedUser(t, db, "alice")
	cat := seedCategory(t, db, "工具", "tools")

	pkg, err := service.CreateForOwner(ctx, owner.ID, CreateInput{
		Title:        "My Cool App",
		ShortSummary: "一个很酷的应用",
		CatID:        cat.ID,
		Images:       []string{"https://cdn.example.com/a.png"},
		Urls:         []UrlInput{{Name: "官网", URL: "https://example.com"}},
	})
	if err != nil {
		t.Fatalf("create package: %v", err)
	}
	if pkg.Status != catalogdomain.PackageStatusDraft {
		t.Fatalf("expected draft status, got %d", pkg.Status)
	}
	if !strings.HasPrefix(pkg.Slug, "my-cool-app-") {
		t.Fatalf("unexpected slug %q", pkg.Slug)
	}
	if !strings.HasSuffix(pkg.Slug, "-"+strconv.FormatUint(uint64(pkg.ID), 10)) {
		t.Fatalf("slug %q missing id suffix for package %d", pkg.Slug, pkg.ID)
	}
	if len(pkg.Images) != 1 || len(pkg.Urls) != 1 {
		t.Fatalf("expected media to be attached, images=%d urls=%d", len(pkg.Images), len(pkg.Urls))
	}
}

func TestDraftVisibility(t *testing.T) {
	service, db := setupCatalogService(t, "catalog-visibility")
	ctx := context.Background()
	owner := seedUser(t, db, "alice")
	cat := seedCategory(t, db, "工具", "tools")

	pkg, err := service.CreateForOwner(ctx, owner.ID, CreateInput{Title: "Hidden App", CatID: cat.ID})
	if err != nil {
		t.Fatalf("create package: %v", err)
	}

	// 草稿走公共路径对任何人不可见，作者也不例外。
	if _, err := service.GetPublic(ctx, strconv.FormatUint(uint64(pkg.ID), 10), owner.ID); !apperr.IsNotFound(err) {
		t.Fatalf("expected not-found for draft via public path, got %v", err)
	}
	listed, err := service.ListPublic(ctx, ListInput{})
	if err != nil {
		t.Fatalf("list public: %v", err)
	}
	if listed.Total != 0 {
		t.Fatalf("public list must not contain drafts, total=%d", listed.Total)
	}

	// 作者路径忽略发布状态。
	owned, err := service.GetOwned(ctx, owner.ID, pkg.ID)
	if err != nil {
		t.Fatalf("get owned: %v", err)
	}
	if owned.ID != pkg.ID {
		t.Fatalf("expected package %d, got %d", pkg.ID, owned.ID)
	}

	if err := service.Publish(ctx, pkg.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}
	detail, err := service.GetPublic(ctx, pkg.Slug, 0)
	if err != nil {
		t.Fatalf("get public after publish: %v", err)
	}
	if detail.Status != catalogdomain.PackageStatusPublished {
		t.Fatalf("expected published status, got %d", detail.Status)
	}
}

func TestUpdateForOwnerResetsToDraft(t *testing.T) {
	service, db := setupCatalogService(t, "catalog-update")
	ctx := context.Background()
	owner := seedUser(t, db, "alice")
	stranger := seedUser(t, db, "bob")
	cat := seedCategory(t, db, "工具", "tools")

	pkg, err := service.CreateForOwner(ctx, owner.ID, CreateInput{Title: "App", CatID: cat.ID})
	if err != nil {
		t.Fatalf("create package: %v", err)
	}
	if err := service.Publish(ctx, pkg.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}

	summary := "更新后的简介"
	updated, err := service.UpdateForOwner(ctx, owner.ID, pkg.ID, UpdateInput{ShortSummary: &summary})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != catalogdomain.PackageStatusDraft {
		t.Fatalf("owner edit must reset to draft, got status %d", updated.Status)
	}
	if updated.ShortSummary != summary {
		t.Fatalf("expected summary %q, got %q", summary, updated.ShortSummary)
	}

	// 非所有者的更新与“不存在”不可区分。
	if _, err := service.UpdateForOwner(ctx, stranger.ID, pkg.ID, UpdateInput{ShortSummary: &summary}); !apperr.IsNotFound(err) {
		t.Fatalf("expected not-found for foreign package, got %v", err)
	}
}

func TestUpdateReplacesCollections(t *testing.T) {
	service, db := setupCatalogService(t, "catalog-collections")
	ctx := context.Background()
	owner := seedUser(t, db, "alice")
	cat := seedCategory(t, db, "工具", "tools")

	pkg, err := service.CreateForOwner(ctx, owner.ID, CreateInput{
		Title:  "App",
		CatID:  cat.ID,
		Images: []string{"https://cdn.example.com/a.png", "https://cdn.example.com/b.png"},
	})
	if err != nil {
		t.Fatalf("create package: %v", err)
	}

	images := []string{"https://cdn.example.com/c.png"}
	updated, err := service.UpdateForOwner(ctx, owner.ID, pkg.ID, UpdateInput{Images: &images})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(updated.Images) != 1 || updated.Images[0].URL != images[0] {
		t.Fatalf("expected images replaced wholesale, got %+v", updated.Images)
	}
}

func TestResolveBySlugAndLegacyPrefix(t *testing.T) {
	service, db := setupCatalogService(t, "catalog-resolve")
	ctx := context.Background()
	owner := seedUser(t, db, "alice")
	cat := seedCategory(t, db, "工具", "tools")

	pkg, err := service.CreateForOwner(ctx, owner.ID, CreateInput{Title: "Cool App", CatID: cat.ID})
	if err != nil {
		t.Fatalf("create package: %v", err)
	}
	if err := service.Publish(ctx, pkg.ID); err != nil {
		t.Fatalf("publish: %v", err)
	}
	idText := strconv.FormatUint(uint64(pkg.ID), 10)

	// 纯数字按主键解析。
	if got, err := service.GetPublic(ctx, idText, 0); err != nil || got.ID != pkg.ID {
		t.Fatalf("resolve by id: got=%v err=%v", got, err)
	}
	// 当前 slug 正常命中。
	if got, err := service.GetPublic(ctx, pkg.Slug, 0); err != nil || got.ID != pkg.ID {
		t.Fatalf("resolve by slug: got=%v err=%v", got, err)
	}
	// 历史 "id-标题" 链接靠整数前缀回退命中同一个包。
	if got, err := service.GetPublic(ctx, idText+"-old-cool-app", 0); err != nil || got.ID != pkg.ID {
		t.Fatalf("resolve by legacy prefix: got=%v err=%v", got, err)
	}
	if _, err := service.GetPublic(ctx, "no-such-slug", 0); !apperr.IsNotFound(err) {
		t.Fatalf("expected not-found for unknown slug, got %v", err)
	}
}

func TestCreateRejectsUnknownVersionIDs(t *testing.T) {
	service, db := setupCatalogService(t, "catalog-versions")
	ctx := context.Background()
	owner := seedUser(t, db, "alice")
	cat := seedCategory(t, db, "工具", "tools")
	version := catalogdomain.Version{VersionNumber: "1.0.0"}
	if err := db.Create(&version).Error; err != nil {
		t.Fatalf("create version: %v", err)
	}

	if _, err := service.CreateForOwner(ctx, owner.ID, CreateInput{
		Title:      "App",
		CatID:      cat.ID,
		VersionIDs: []uint{version.ID, version.ID + 50},
	}); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for dangling version id, got %v", err)
	}

	pkg, err := service.CreateForOwner(ctx, owner.ID, CreateInput{
		Title:      "App",
		CatID:      cat.ID,
		VersionIDs: []uint{version.ID},
	})
	if err != nil {
		t.Fatalf("create with valid version: %v", err)
	}
	if len(pkg.Versions) != 1 || pkg.Versions[0].ID != version.ID {
		t.Fatalf("expected connected version, got %+v", pkg.Versions)
	}
}

func TestDeleteForOwnerCascades(t *testing.T) {
	service, db := setupCatalogService(t, "catalog-delete")
	ctx := context.Background()
	owner := seedUser(t, db, "alice")
	rater := seedUser(t, db, "bob")
	cat := seedCategory(t, db, "工具", "tools")

	pkg, err := service.CreateForOwner(ctx, owner.ID, CreateInput{
		Title:  "Doomed App",
		CatID:  cat.ID,
		Images: []string{"https://cdn.example.com/a.png"},
		Urls:   []UrlInput{{Name: "官网", URL: "https://example.com"}},
	})
	if err != nil {
		t.Fatalf("create package: %v", err)
	}

	root := catalogdomain.Comment{Content: "顶层", UserID: rater.ID, PackageID: pkg.ID}
	if err := db.Create(&root).Error; err != nil {
		t.Fatalf("create comment: %v", err)
	}
	reply := catalogdomain.Comment{Content: "回复", UserID: owner.ID, PackageID: pkg.ID, ParentID: &root.ID}
	if err := db.Create(&reply).Error; err != nil {
		t.Fatalf("create reply: %v", err)
	}
	if err := db.Create(&catalogdomain.Rating{UserID: rater.ID, PackageID: pkg.ID, Score: 4}).Error; err != nil {
		t.Fatalf("create rating: %v", err)
	}
	if err := db.Create(&catalogdomain.Report{Reason: "测试", UserID: rater.ID, PackageID: &pkg.ID}).Error; err != nil {
		t.Fatalf("create report: %v", err)
	}

	if err := service.DeleteForOwner(ctx, owner.ID, pkg.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	for _, probe := range []struct {
		name  string
		model any
	}{
		{"package", &catalogdomain.Package{}},
		{"images", &catalogdomain.Image{}},
		{"urls", &catalogdomain.Url{}},
		{"comments", &catalogdomain.Comment{}},
		{"ratings", &catalogdomain.Rating{}},
	} {
		var count int64
		if err := db.Model(probe.model).Count(&count).Error; err != nil {
			t.Fatalf("count %s: %v", probe.name, err)
		}
		if count != 0 {
			t.Fatalf("expected %s purged, %d rows remain", probe.name, count)
		}
	}
	var reportCount int64
	if err := db.Model(&catalogdomain.Report{}).Where("package_id = ?", pkg.ID).Count(&reportCount).Error; err != nil {
		t.Fatalf("count reports: %v", err)
	}
	if reportCount != 0 {
		t.Fatalf("expected package reports purged, %d remain", reportCount)
	}

	// 重复删除报不存在而非静默成功。
	if err := service.DeleteForOwner(ctx, owner.ID, pkg.ID); !apperr.IsNotFound(err) {
		t.Fatalf("expected not-found on second delete, got %v", err)
	}
}

func TestListPublicSearchAndCategoryFilter(t *testing.T) {
	service, db := setupCatalogService(t, "catalog-list")
	ctx := context.Background()
	owner := seedUser(t, db, "alice")
	tools := seedCategory(t, db, "工具", "tools")
	games := seedCategory(t, db, "游戏", "games")

	for _, seed := range []struct {
		title string
		catID uint
	}{
		{"Terminal Helper", tools.ID},
		{"Puzzle Quest", games.ID},
		{"Terminal Quest", games.ID},
	} {
		pkg, err := service.CreateForOwner(ctx, owner.ID, CreateInput{Title: seed.title, CatID: seed.catID})
		if err != nil {
			t.Fatalf("create %s: %v", seed.title, err)
		}
		if err := service.Publish(ctx, pkg.ID); err != nil {
			t.Fatalf("publish %s: %v", seed.title, err)
		}
	}

	result, err := service.ListPublic(ctx, ListInput{Search: "terminal"})
	if err != nil {
		t.Fatalf("search list: %v", err)
	}
	if result.Total != 2 {
		t.Fatalf("expected 2 search hits, got %d", result.Total)
	}

	result, err = service.ListPublic(ctx, ListInput{Search: "terminal", CatID: games.ID})
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if result.Total != 1 || result.Items[0].Title != "Terminal Quest" {
		t.Fatalf("expected single filtered hit, got total=%d items=%+v", result.Total, result.Items)
	}
	if result.Items[0].Owner == nil {
		t.Fatalf("list items must carry owner brief")
	}
}
