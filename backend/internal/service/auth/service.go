package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "lf-go-app/backend/internal/domain/user"
	"lf-go-app/backend/internal/infra/captcha"
	appLogger "lf-go-app/backend/internal/infra/logger"
	"lf-go-app/backend/internal/repository"
	"lf-go-app/backend/internal/slug"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken            = errors.New("email already registered")
	ErrUsernameTaken         = errors.New("username already taken")
	ErrEmailAndUsernameTaken = errors.New("email and username already taken")
	ErrUsernameInvalid       = errors.New("username must be 3-20 characters")
	ErrInvalidLogin          = errors.New("invalid email or password")
	ErrAccountSuspended      = errors.New("account suspended")
	ErrCaptchaRequired       = errors.New("captcha is required")
	ErrCaptchaInvalid        = errors.New("captcha verification failed")
	ErrCaptchaExpired        = errors.New("captcha expired or not found")
	ErrCaptchaRateLimited    = errors.New("captcha requests too frequent")
	ErrRefreshTokenInvalid   = errors.New("refresh token is invalid")
	ErrRefreshTokenExpired   = errors.New("refresh token expired")
	ErrRefreshTokenRevoked   = errors.New("refresh token revoked")
	ErrRefreshTokenRequired  = errors.New("refresh token is required")
)

const (
	usernameMinLen = 3
	usernameMaxLen = 20
	// localSubjectPrefix 标记本地注册账号的 externalAuthId，与外部身份主体共用同一唯一列。
	localSubjectPrefix = "local:"
)

// CaptchaManager 聚合验证码生成与校验能力，便于在服务层替换实现。
type CaptchaManager interface {
	captcha.Generator
	captcha.Verifier
}

// TokenPair 表示一次鉴权流程中生成的访问令牌、刷新令牌及其过期时间。
// AccessToken 用于每次请求的身份校验；RefreshToken 用于续签新的 TokenPair。
// RefreshTokenID/RefreshTokenExpiresAt 是内部使用的元信息，帮助我们把刷新令牌写入存储并控制生命周期。
type TokenPair struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	ExpiresIn             int64     `json:"expires_in"` // seconds
	RefreshTokenID        string    `json:"-"`
	RefreshTokenExpiresAt time.Time `json:"-"`
}

// TokenManager 抽象出签发 JWT 或其他令牌的能力，便于在不同实现之间切换。
type TokenManager interface {
	GenerateTokens(ctx context.Context, user *domain.User) (TokenPair, error)
	ParseRefreshToken(token string) (RefreshTokenClaims, error)
}

// RefreshTokenClaims 描述解析刷新令牌后得到的关键信息。
type RefreshTokenClaims struct {
	UserID    uint
	TokenID   string
	ExpiresAt time.Time
}

// RefreshTokenStore 负责存储和验证刷新令牌，用于登出和令牌续期。
type RefreshTokenStore interface {
	Save(ctx context.Context, userID uint, tokenID string, expiresAt time.Time) error
	Delete(ctx context.Context, userID uint, tokenID string) error
	Exists(ctx context.Context, userID uint, tokenID string) (bool, error)
}

// Service 负责处理用户注册、登录、刷新、登出等鉴权业务，
// 并向核心域兜底提供“已验证的调用者身份”。
//
// 依赖说明：
//   - UserRepository：读写用户数据。
//   - TokenManager：生成 / 解析 access token 与 refresh token。
//   - RefreshTokenStore：保存刷新令牌的指纹（userID + jti），用于防重复使用与登出。
//   - CaptchaManager：在注册时提供验证码校验能力，按需注入。
type Service struct {
	users        *repository.UserRepository
	tokenManager TokenManager
	logger       *zap.SugaredLogger
	captcha      CaptchaManager
	refreshStore RefreshTokenStore
}

// NewService 创建鉴权服务实例，并注入用户仓储与令牌管理器等核心依赖。
func NewService(users *repository.UserRepository, tm TokenManager, store RefreshTokenStore, cm CaptchaManager) *Service {
	return &Service{
		users:        users,
		tokenManager: tm,
		logger:       appLogger.S().With("component", "auth.service"),
		captcha:      cm,
		refreshStore: store,
	}
}

// RegisterParams 封装注册接口所需的输入参数。
type RegisterParams struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
	AvatarURL   string
	CaptchaID   string
	CaptchaCode string
}

// LoginParams 封装登录接口所需的输入参数。
type LoginParams struct {
	Identifier string
	Password   string
}

// Register 完成注册流程：校验唯一性、校验验证码（若启用）、加密密码、
// 持久化用户、派生用户 slug 并签发 TokenPair。
func (s *Service) Register(ctx context.Context, params RegisterParams) (*domain.User, TokenPair, error) {
	log := s.scope("register").With(
		"email", params.Email,
		"username", params.Username,
	)

	log.Infow("register attempt")

	username := strings.TrimSpace(params.Username)
	if n := len([]rune(username)); n < usernameMinLen || n > usernameMaxLen {
		return nil, TokenPair{}, ErrUsernameInvalid
	}

	if s.captcha != nil {
		if strings.TrimSpace(params.CaptchaID) == "" || strings.TrimSpace(params.CaptchaCode) == "" {
			log.Warn("captcha required but missing")
			return nil, TokenPair{}, ErrCaptchaRequired
		}

		if err := s.captcha.Verify(ctx, params.CaptchaID, params.CaptchaCode); err != nil {
			switch {
			case errors.Is(err, captcha.ErrCaptchaNotFound):
				log.Warnw("captcha expired or not found", "captcha_id", params.CaptchaID)
				return nil, TokenPair{}, ErrCaptchaExpired
			case errors.Is(err, captcha.ErrCaptchaMismatch):
				log.Warnw("captcha mismatch", "captcha_id", params.CaptchaID)
				return nil, TokenPair{}, ErrCaptchaInvalid
			default:
				log.Errorw("captcha verify failed", "error", err)
				return nil, TokenPair{}, fmt.Errorf("captcha verify: %w", err)
			}
		}
	}

	// 先确认邮箱/用户名是否占用：若任一字段在库中已存在，记录标记，稍后统一返回。
	emailTaken := false
	if _, err := s.users.FindByEmail(ctx, params.Email); err == nil {
		emailTaken = true
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Errorw("check email unique failed", "error", err)
		return nil, TokenPair{}, fmt.Errorf("check email unique: %w", err)
	}

	usernameTaken := false
	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		usernameTaken = true
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Errorw("check username unique failed", "error", err)
		return nil, TokenPair{}, fmt.Errorf("check username unique: %w", err)
	}

	if emailTaken && usernameTaken {
		log.Warnw("email and username already taken")
		return nil, TokenPair{}, ErrEmailAndUsernameTaken
	}
	if emailTaken {
		log.Warnw("email already registered")
		return nil, TokenPair{}, ErrEmailTaken
	}
	if usernameTaken {
		log.Warnw("username already taken")
		return nil, TokenPair{}, ErrUsernameTaken
	}

	hash, err := hashPassword(params.Password)
	if err != nil {
		log.Errorw("hash password failed", "error", err)
		return nil, TokenPair{}, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Username:       username,
		Email:          strings.TrimSpace(params.Email),
		ExternalAuthID: localSubjectPrefix + uuid.NewString(),
		DisplayName:    strings.TrimSpace(params.DisplayName),
		AvatarURL:      strings.TrimSpace(params.AvatarURL),
		PasswordHash:   hash,
		Status:         domain.StatusActive,
	}

	if err := s.users.Create(ctx, user); err != nil {
		log.Errorw("create user failed", "error", err)
		return nil, TokenPair{}, fmt.Errorf("create user: %w", err)
	}

	// slug 以主键做去重后缀，必须在拿到 ID 后回写。
	user.Slug = slug.WithID(user.Username, user.ID)
	if err := s.users.UpdateSlug(ctx, user.ID, user.Slug); err != nil {
		log.Warnw("assign user slug failed", "error", err, "user_id", user.ID)
	}

	tokens, err := s.issueAndStoreTokens(ctx, user)
	if err != nil {
		return nil, TokenPair{}, err
	}

	log.With("user_id", user.ID).Infow("user registered")

	return user, tokens, nil
}

// Login 校验用户凭证（支持邮箱或用户名），更新登录时间，并重新签发新的 TokenPair。
func (s *Service) Login(ctx context.Context, params LoginParams) (*domain.User, TokenPair, error) {
	identifier := strings.TrimSpace(params.Identifier)
	log := s.scope("login").With("identifier", identifier)

	log.Infow("login attempt")

	var (
		user *domain.User
		err  error
	)

	if strings.Contains(identifier, "@") {
		user, err = s.users.FindByEmail(ctx, identifier)
	} else {
		user, err = s.users.FindByUsername(ctx, identifier)
	}

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 按另一种方式再查一次，容忍用双方式登录的用户。
			if strings.Contains(identifier, "@") {
				user, err = s.users.FindByUsername(ctx, identifier)
			} else {
				user, err = s.users.FindByEmail(ctx, identifier)
			}
		}
	}

	if err != nil {
		log.Warnw("login identifier not found or repo error", "error", err)
		return nil, TokenPair{}, ErrInvalidLogin
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(params.Password)); err != nil {
		log.Warnw("password mismatch")
		return nil, TokenPair{}, ErrInvalidLogin
	}

	if user.Status == domain.StatusSuspended {
		log.Warnw("account suspended", "user_id", user.ID)
		return nil, TokenPair{}, ErrAccountSuspended
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		log.Errorw("update last login failed", "error", err, "user_id", user.ID)
		return nil, TokenPair{}, fmt.Errorf("update last login: %w", err)
	}

	tokens, err := s.issueAndStoreTokens(ctx, user)
	if err != nil {
		return nil, TokenPair{}, err
	}

	log.With("user_id", user.ID).Infow("login success")

	return user, tokens, nil
}

// EnsureExternal 按外部身份主体查找用户，首次认证时自动建档。
// 这是身份提供方接入路径：上游已验证 subject 与邮箱，这里只负责落库与发令牌。
func (s *Service) EnsureExternal(ctx context.Context, subject, email string) (*domain.User, TokenPair, error) {
	subject = strings.TrimSpace(subject)
	email = strings.TrimSpace(email)
	log := s.scope("ensure_external").With("subject", subject)

	if subject == "" || email == "" {
		return nil, TokenPair{}, ErrInvalidLogin
	}

	user, err := s.users.FindByExternalAuthID(ctx, subject)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, TokenPair{}, fmt.Errorf("find by subject: %w", err)
		}
		user = &domain.User{
			Email:          email,
			ExternalAuthID: subject,
			Username:       deriveUsername(email),
			Status:         domain.StatusActive,
		}
		if err := s.users.Create(ctx, user); err != nil {
			log.Errorw("create external user failed", "error", err)
			return nil, TokenPair{}, fmt.Errorf("create user: %w", err)
		}
		user.Slug = slug.WithID(user.Username, user.ID)
		if err := s.users.UpdateSlug(ctx, user.ID, user.Slug); err != nil {
			log.Warnw("assign user slug failed", "error", err, "user_id", user.ID)
		}
		log.With("user_id", user.ID).Infow("external user provisioned")
	}

	if user.Status == domain.StatusSuspended {
		return nil, TokenPair{}, ErrAccountSuspended
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.users.Update(ctx, user); err != nil {
		log.Warnw("update last login failed", "error", err, "user_id", user.ID)
	}

	tokens, err := s.issueAndStoreTokens(ctx, user)
	if err != nil {
		return nil, TokenPair{}, err
	}
	return user, tokens, nil
}

// Refresh 使用刷新令牌换取新的访问令牌与刷新令牌。
//
// 链路说明：
//  1. 解析 refresh token -> 得到 userID、jti（令牌指纹）、过期时间。
//  2. 校验是否过期；若刷新令牌也过期，则返回 ErrRefreshTokenExpired，前端需要重新登录。
//  3. 到存储层查 jti 是否存在，确保这张令牌没有被提前吊销或重复使用。
//  4. 删除旧 jti（单次使用），重新签发 access/refresh，并将新的 jti 写回存储。
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	log := s.scope("refresh")

	if strings.TrimSpace(refreshToken) == "" {
		log.Warn("missing refresh token")
		return TokenPair{}, ErrRefreshTokenRequired
	}

	claims, err := s.tokenManager.ParseRefreshToken(refreshToken)
	if err != nil {
		log.Warnw("parse refresh token failed", "error", err)
		return TokenPair{}, ErrRefreshTokenInvalid
	}

	if claims.ExpiresAt.IsZero() {
		log.Warnw("refresh token missing expiry", "user_id", claims.UserID)
		return TokenPair{}, ErrRefreshTokenInvalid
	}

	if time.Now().After(claims.ExpiresAt) {
		log.Warnw("refresh token expired", "user_id", claims.UserID)
		return TokenPair{}, ErrRefreshTokenExpired
	}

	if s.refreshStore == nil {
		log.Error("refresh store not configured")
		return TokenPair{}, fmt.Errorf("refresh token store missing")
	}

	ok, storeErr := s.refreshStore.Exists(ctx, claims.UserID, claims.TokenID)
	if storeErr != nil {
		log.Errorw("refresh store check failed", "error", storeErr)
		return TokenPair{}, fmt.Errorf("check refresh token: %w", storeErr)
	}
	if !ok {
		log.Warnw("refresh token revoked", "user_id", claims.UserID)
		return TokenPair{}, ErrRefreshTokenRevoked
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		log.Errorw("load user failed", "error", err, "user_id", claims.UserID)
		return TokenPair{}, fmt.Errorf("load user: %w", err)
	}

	// 旋转刷新令牌：删除旧的，再生成新的。
	if err := s.refreshStore.Delete(ctx, claims.UserID, claims.TokenID); err != nil {
		log.Errorw("delete old refresh token failed", "error", err, "token_id", claims.TokenID)
		return TokenPair{}, fmt.Errorf("delete refresh token: %w", err)
	}

	return s.issueAndStoreTokens(ctx, user)
}

// Logout 撤销指定刷新令牌。删除成功后这张令牌无法再换取新的访问令牌。
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	log := s.scope("logout")

	if strings.TrimSpace(refreshToken) == "" {
		log.Warn("missing refresh token")
		return ErrRefreshTokenRequired
	}

	claims, err := s.tokenManager.ParseRefreshToken(refreshToken)
	if err != nil {
		log.Warnw("parse refresh token failed", "error", err)
		return ErrRefreshTokenInvalid
	}

	if s.refreshStore == nil {
		log.Error("refresh store not configured")
		return fmt.Errorf("refresh token store missing")
	}

	if err := s.refreshStore.Delete(ctx, claims.UserID, claims.TokenID); err != nil {
		log.Errorw("delete refresh token failed", "error", err, "token_id", claims.TokenID)
		return fmt.Errorf("delete refresh token: %w", err)
	}

	return nil
}

// CaptchaEnabled 表示当前服务是否启用了验证码依赖。
func (s *Service) CaptchaEnabled() bool {
	return s != nil && s.captcha != nil
}

// GenerateCaptcha 调用底层验证码管理器生成图形验证码。
func (s *Service) GenerateCaptcha(ctx context.Context, ip string) (string, string, error) {
	if !s.CaptchaEnabled() {
		return "", "", ErrCaptchaRequired
	}

	id, b64, err := s.captcha.Generate(ctx, ip)
	if err != nil {
		if errors.Is(err, captcha.ErrRateLimited) {
			return "", "", ErrCaptchaRateLimited
		}
		return "", "", fmt.Errorf("generate captcha: %w", err)
	}

	return id, b64, nil
}

// issueAndStoreTokens 是注册/登录/刷新等场景的公共步骤：
// 生成访问令牌 + 刷新令牌，并把刷新令牌指纹写入存储。
// 若保存失败直接冒泡错误，确保不会下发“不可刷新”的令牌对。
func (s *Service) issueAndStoreTokens(ctx context.Context, user *domain.User) (TokenPair, error) {
	log := s.scope("issue_tokens").With("user_id", user.ID)

	tokens, err := s.tokenManager.GenerateTokens(ctx, user)
	if err != nil {
		log.Errorw("generate tokens failed", "error", err)
		return TokenPair{}, fmt.Errorf("generate tokens: %w", err)
	}

	if err := s.storeRefreshToken(ctx, user.ID, tokens); err != nil {
		return TokenPair{}, err
	}

	return tokens, nil
}

// storeRefreshToken 将刷新令牌指纹写入存储，供后续刷新/登出使用。
func (s *Service) storeRefreshToken(ctx context.Context, userID uint, tokens TokenPair) error {
	if s.refreshStore == nil {
		return fmt.Errorf("refresh token store missing")
	}
	if tokens.RefreshTokenID == "" {
		return fmt.Errorf("refresh token id missing")
	}
	if tokens.RefreshTokenExpiresAt.IsZero() {
		return fmt.Errorf("refresh token expiry missing")
	}

	if err := s.refreshStore.Save(ctx, userID, tokens.RefreshTokenID, tokens.RefreshTokenExpiresAt); err != nil {
		s.scope("store_refresh").Errorw("save refresh token failed", "error", err, "user_id", userID)
		return fmt.Errorf("store refresh token: %w", err)
	}
	return nil
}

// hashPassword 使用 bcrypt 对明文密码加盐哈希，确保存储安全。
func hashPassword(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// deriveUsername 从邮箱本地部分生成初始用户名，保证长度落在合法区间。
func deriveUsername(email string) string {
	local := email
	if idx := strings.Index(email, "@"); idx > 0 {
		local = email[:idx]
	}
	runes := []rune(local)
	if len(runes) > usernameMaxLen {
		runes = runes[:usernameMaxLen]
	}
	name := string(runes)
	if len([]rune(name)) < usernameMinLen {
		name = name + "-" + uuid.NewString()[:8]
	}
	return name
}

func (s *Service) ensureLogger() *zap.SugaredLogger {
	if s.logger == nil {
		s.logger = appLogger.S().With("component", "auth.service")
	}
	return s.logger
}

func (s *Service) scope(operation string) *zap.SugaredLogger {
	return s.ensureLogger().With("operation", operation)
}
