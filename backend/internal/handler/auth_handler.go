package handler

import (
	"errors"
	"net/http"

	response "lf-go-app/backend/internal/infra/common"
	"lf-go-app/backend/internal/service/auth"

	"github.com/gin-gonic/gin"
)

// AuthHandler 负责对接 Gin，处理鉴权相关的 HTTP 请求。
type AuthHandler struct {
	service *auth.Service
}

// NewAuthHandler 构造鉴权 handler，注入业务层服务做实际处理。
func NewAuthHandler(service *auth.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

type registerRequest struct {
	Username    string `json:"username" binding:"required,min=3"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=6"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	CaptchaID   string `json:"captcha_id"`
	CaptchaCode string `json:"captcha_code"`
}

type loginRequest struct {
	// Identifier 支持邮箱或用户名。
	Identifier string `json:"identifier" binding:"required"`
	Password   string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type externalRequest struct {
	Subject string `json:"subject" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
}

// Register 处理用户注册的 HTTP 请求，验证参数并调用业务逻辑。
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	user, tokens, err := h.service.Register(c.Request.Context(), auth.RegisterParams{
		Username:    req.Username,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
		CaptchaID:   req.CaptchaID,
		CaptchaCode: req.CaptchaCode,
	})
	if err != nil {
		h.failAuth(c, err)
		return
	}

	response.Created(c, gin.H{
		"user":   user,
		"tokens": tokens,
	}, nil)
}

// Login 处理用户登录请求，校验凭证并返回令牌。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	user, tokens, err := h.service.Login(c.Request.Context(), auth.LoginParams{
		Identifier: req.Identifier,
		Password:   req.Password,
	})
	if err != nil {
		h.failAuth(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":   user,
		"tokens": tokens,
	}, nil)
}

// External 处理身份提供方回调后的建档与令牌签发。
// 上游网关已完成对 subject 的验证，本接口只负责 find-or-create。
func (h *AuthHandler) External(c *gin.Context) {
	var req externalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	user, tokens, err := h.service.EnsureExternal(c.Request.Context(), req.Subject, req.Email)
	if err != nil {
		h.failAuth(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user":   user,
		"tokens": tokens,
	}, nil)
}

// Refresh 以刷新令牌换取新的令牌对。
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	tokens, err := h.service.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.failAuth(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"tokens": tokens}, nil)
}

// Logout 撤销刷新令牌。
func (h *AuthHandler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	if err := h.service.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		h.failAuth(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"logged_out": true}, nil)
}

// Captcha 生成图形验证码；未启用验证码时返回 enabled=false。
func (h *AuthHandler) Captcha(c *gin.Context) {
	if !h.service.CaptchaEnabled() {
		response.Success(c, http.StatusOK, gin.H{"enabled": false}, nil)
		return
	}

	id, image, err := h.service.GenerateCaptcha(c.Request.Context(), c.ClientIP())
	if err != nil {
		if errors.Is(err, auth.ErrCaptchaRateLimited) {
			response.Fail(c, http.StatusTooManyRequests, response.ErrTooManyRequests, "验证码请求过于频繁", nil)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "生成验证码失败", nil)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"enabled":      true,
		"captcha_id":   id,
		"captcha_b64s": image,
	}, nil)
}

// failAuth 把鉴权服务的哨兵错误映射到 HTTP 状态码与错误码。
func (h *AuthHandler) failAuth(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, auth.ErrUsernameTaken),
		errors.Is(err, auth.ErrEmailAndUsernameTaken):
		response.Fail(c, http.StatusConflict, response.ErrConflict, err.Error(), nil)
	case errors.Is(err, auth.ErrUsernameInvalid):
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
	case errors.Is(err, auth.ErrInvalidLogin):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials, err.Error(), nil)
	case errors.Is(err, auth.ErrAccountSuspended):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, err.Error(), nil)
	case errors.Is(err, auth.ErrCaptchaRequired):
		response.Fail(c, http.StatusBadRequest, response.ErrCaptchaRequired, err.Error(), nil)
	case errors.Is(err, auth.ErrCaptchaInvalid):
		response.Fail(c, http.StatusBadRequest, response.ErrCaptchaInvalid, err.Error(), nil)
	case errors.Is(err, auth.ErrCaptchaExpired):
		response.Fail(c, http.StatusBadRequest, response.ErrCaptchaExpired, err.Error(), nil)
	case errors.Is(err, auth.ErrCaptchaRateLimited):
		response.Fail(c, http.StatusTooManyRequests, response.ErrTooManyRequests, err.Error(), nil)
	case errors.Is(err, auth.ErrRefreshTokenRequired),
		errors.Is(err, auth.ErrRefreshTokenInvalid):
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
	case errors.Is(err, auth.ErrRefreshTokenExpired),
		errors.Is(err, auth.ErrRefreshTokenRevoked):
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, err.Error(), nil)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "服务内部错误", nil)
	}
}
