package appupdate

import (
	"context"
	"testing"

	"lf-go-app/backend/internal/apperr"
	catalogdomain "lf-go-app/backend/internal/domain/catalog"
	"lf-go-app/backend/internal/repository"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupAppUpdateService(t *testing.T, name string) *Service {
	t.Helper()
	dsn := "file:" + name + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&catalogdomain.AppUpdate{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })
	return NewService(repository.NewAppUpdateRepository(db), zap.NewNop().Sugar())
}

func TestLatestPicksHighestVersionCode(t *testing.T) {
	service := setupAppUpdateService(t, "appupdate-latest")
	ctx := context.Background()

	seeds := []CreateInput{
		{Platform: "Windows", VersionName: "1.2.0", VersionCode: 120, DownloadURL: "https://dl.example.com/win/120"},
		{Platform: "windows", VersionName: "1.0.0", VersionCode: 100, DownloadURL: "https://dl.example.com/win/100"},
		{Platform: "darwin", VersionName: "1.1.0", VersionCode: 110, DownloadURL: "https://dl.example.com/mac/110"},
	}
	for _, seed := range seeds {
		if _, err := service.Create(ctx, seed); err != nil {
			t.Fatalf("create %s/%d: %v", seed.Platform, seed.VersionCode, err)
		}
	}

	// 平台标识大小写不敏感，最新按 versionCode 而非发布顺序。
	latest, err := service.Latest(ctx, "WINDOWS")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest == nil || latest.VersionCode != 120 {
		t.Fatalf("expected version code 120, got %+v", latest)
	}

	// 尚无记录的平台返回 nil 而非错误。
	latest, err = service.Latest(ctx, "linux")
	if err != nil {
		t.Fatalf("latest for empty platform: %v", err)
	}
	if latest != nil {
		t.Fatalf("expected nil for platform without releases, got %+v", latest)
	}

	if _, err := service.Latest(ctx, "  "); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error for blank platform, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	service := setupAppUpdateService(t, "appupdate-validation")
	ctx := context.Background()

	cases := []struct {
		name  string
		input CreateInput
	}{
		{"missing platform", CreateInput{VersionName: "1.0.0", VersionCode: 100, DownloadURL: "https://dl.example.com"}},
		{"missing version name", CreateInput{Platform: "windows", VersionCode: 100, DownloadURL: "https://dl.example.com"}},
		{"non-positive code", CreateInput{Platform: "windows", VersionName: "1.0.0", VersionCode: 0, DownloadURL: "https://dl.example.com"}},
		{"missing download url", CreateInput{Platform: "windows", VersionName: "1.0.0", VersionCode: 100}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := service.Create(ctx, tc.input); !apperr.IsValidation(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}

	created, err := service.Create(ctx, CreateInput{Platform: "Android", VersionName: "2.0.0", VersionCode: 200, IsForce: true, DownloadURL: "https://dl.example.com/apk"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Platform != "android" {
		t.Fatalf("expected platform lowercased, got %q", created.Platform)
	}
	if !created.IsForce {
		t.Fatalf("expected force flag kept")
	}
}
