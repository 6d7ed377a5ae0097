package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	domain "lf-go-app/backend/internal/domain/user"
	"lf-go-app/backend/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// stubTokenManager 签发自描述的假令牌，免去测试对真实 JWT 实现的依赖。
type stubTokenManager struct {
	mu      sync.Mutex
	counter int
	claims  map[string]RefreshTokenClaims
	ttl     time.Duration
}

func newStubTokenManager(ttl time.Duration) *stubTokenManager {
	return &stubTokenManager{claims: make(map[string]RefreshTokenClaims), ttl: ttl}
}

func (m *stubTokenManager) GenerateTokens(_ context.Context, user *domain.User) (TokenPair, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counter++
	tokenID := fmt.Sprintf("jti-%d", m.counter)
	refresh := fmt.Sprintf("refresh-%d", m.counter)
	expires := time.Now().Add(m.ttl)
	m.claims[refresh] = RefreshTokenClaims{UserID: user.ID, TokenID: tokenID, ExpiresAt: expires}
	return TokenPair{
		AccessToken:           fmt.Sprintf("access-%d", m.counter),
		RefreshToken:          refresh,
		ExpiresIn:             int64(m.ttl / time.Second),
		RefreshTokenID:        tokenID,
		RefreshTokenExpiresAt: expires,
	}, nil
}

func (m *stubTokenManager) ParseRefreshToken(token string) (RefreshTokenClaims, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	claims, ok := m.claims[token]
	if !ok {
		return RefreshTokenClaims{}, errors.New("unknown token")
	}
	return claims, nil
}

// memoryStore 是刷新令牌指纹的进程内实现，语义与 Redis 存储保持一致。
type memoryStore struct {
	mu   sync.Mutex
	keys map[string]time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{keys: make(map[string]time.Time)}
}

func (s *memoryStore) key(userID uint, tokenID string) string {
	return fmt.Sprintf("%d:%s", userID, tokenID)
}

func (s *memoryStore) Save(_ context.Context, userID uint, tokenID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[s.key(userID, tokenID)] = expiresAt
	return nil
}

func (s *memoryStore) Delete(_ context.Context, userID uint, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, s.key(userID, tokenID))
	return nil
}

func (s *memoryStore) Exists(_ context.Context, userID uint, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expires, ok := s.keys[s.key(userID, tokenID)]
	if !ok || time.Now().After(expires) {
		return false, nil
	}
	return true, nil
}

func setupAuthService(t *testing.T, name string) (*Service, *gorm.DB) {
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
	service := NewService(repository.NewUserRepository(db), newStubTokenManager(time.Hour), newMemoryStore(), nil)
	return service, db
}

func TestRegisterAndLogin(t *testing.T) {
	service, db := setupAuthService(t, "auth-register")
	ctx := context.Background()

	user, tokens, err := service.Register(ctx, RegisterParams{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected token pair, got %+v", tokens)
	}
	if user.Slug == "" {
		t.Fatalf("expected slug assigned after create")
	}
	if user.Status != domain.StatusActive {
		t.Fatalf("expected active status, got %q", user.Status)
	}

	var stored domain.User
	if err := db.First(&stored, user.ID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if stored.PasswordHash == "" || stored.PasswordHash == "s3cret-pass" {
		t.Fatalf("password must be stored hashed")
	}

	// 邮箱与用户名都可以作为登录标识。
	for _, identifier := range []string{"alice@example.com", "alice"} {
		if _, _, err := service.Login(ctx, LoginParams{Identifier: identifier, Password: "s3cret-pass"}); err != nil {
			t.Fatalf("login with %q: %v", identifier, err)
		}
	}
	if _, _, err := service.Login(ctx, LoginParams{Identifier: "alice", Password: "wrong"}); !errors.Is(err, ErrInvalidLogin) {
		t.Fatalf("expected invalid login, got %v", err)
	}
}

func TestRegisterUniqueness(t *testing.T) {
	service, _ := setupAuthService(t, "auth-unique")
	ctx := context.Background()

	if _, _, err := service.Register(ctx, RegisterParams{Username: "alice", Email: "alice@example.com", Password: "pw123456"}); err != nil {
		t.Fatalf("first register: %v", err)
	}

	cases := []struct {
		name     string
		username string
		email    string
		want     error
	}{
		{"email taken", "bob", "alice@example.com", ErrEmailTaken},
		{"username taken", "alice", "bob@example.com", ErrUsernameTaken},
		{"both taken", "alice", "alice@example.com", ErrEmailAndUsernameTaken},
		{"username too short", "al", "short@example.com", ErrUsernameInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := service.Register(ctx, RegisterParams{Username: tc.username, Email: tc.email, Password: "pw123456"})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestEnsureExternalProvisionsOnce(t *testing.T) {
	service, db := setupAuthService(t, "auth-external")
	ctx := context.Background()

	first, tokens, err := service.EnsureExternal(ctx, "idp|sub-123", "carol@example.com")
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	if tokens.AccessToken == "" {
		t.Fatalf("expected tokens on first authentication")
	}
	if first.Username == "" || first.Slug == "" {
		t.Fatalf("expected derived username and slug, got %+v", first)
	}

	second, _, err := service.EnsureExternal(ctx, "idp|sub-123", "carol@example.com")
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same account on repeat authentication, got %d and %d", first.ID, second.ID)
	}

	var count int64
	if err := db.Model(&domain.User{}).Count(&count).Error; err != nil {
		t.Fatalf("count users: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected single provisioned user, got %d", count)
	}
}

func TestSuspendedAccountCannotLogin(t *testing.T) {
	service, db := setupAuthService(t, "auth-suspended")
	ctx := context.Background()

	user, _, err := service.Register(ctx, RegisterParams{Username: "alice", Email: "alice@example.com", Password: "pw123456"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := db.Model(&domain.User{}).Where("id = ?", user.ID).Update("status", domain.StatusSuspended).Error; err != nil {
		t.Fatalf("suspend: %v", err)
	}

	if _, _, err := service.Login(ctx, LoginParams{Identifier: "alice", Password: "pw123456"}); !errors.Is(err, ErrAccountSuspended) {
		t.Fatalf("expected suspended error on login, got %v", err)
	}
	if _, _, err := service.EnsureExternal(ctx, user.ExternalAuthID, user.Email); !errors.Is(err, ErrAccountSuspended) {
		t.Fatalf("expected suspended error on external path, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	service, _ := setupAuthService(t, "auth-refresh")
	ctx := context.Background()

	_, tokens, err := service.Register(ctx, RegisterParams{Username: "alice", Email: "alice@example.com", Password: "pw123456"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	renewed, err := service.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if renewed.RefreshToken == tokens.RefreshToken {
		t.Fatalf("expected rotated refresh token")
	}

	// 旧令牌单次使用，再刷新即视为已吊销。
	if _, err := service.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, ErrRefreshTokenRevoked) {
		t.Fatalf("expected revoked error on reuse, got %v", err)
	}

	if err := service.Logout(ctx, renewed.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := service.Refresh(ctx, renewed.RefreshToken); !errors.Is(err, ErrRefreshTokenRevoked) {
		t.Fatalf("expected revoked error after logout, got %v", err)
	}

	if _, err := service.Refresh(ctx, ""); !errors.Is(err, ErrRefreshTokenRequired) {
		t.Fatalf("expected required error for empty token, got %v", err)
	}
	if _, err := service.Refresh(ctx, "garbage"); !errors.Is(err, ErrRefreshTokenInvalid) {
		t.Fatalf("expected invalid error for unknown token, got %v", err)
	}
}
