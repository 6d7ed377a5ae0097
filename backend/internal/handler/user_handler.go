package handler

import (
	"net/http"
	"strings"

	response "lf-go-app/backend/internal/infra/common"
	appLogger "lf-go-app/backend/internal/infra/logger"
	socialsvc "lf-go-app/backend/internal/service/social"
	usersvc "lf-go-app/backend/internal/service/user"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UserHandler 负责用户档案相关的 HTTP 接口。
type UserHandler struct {
	users  *usersvc.Service
	social *socialsvc.Service
	logger *zap.SugaredLogger
}

// NewUserHandler 创建用户 handler。
func NewUserHandler(users *usersvc.Service, social *socialsvc.Service) *UserHandler {
	return &UserHandler{
		users:  users,
		social: social,
		logger: appLogger.S().With("component", "user.handler"),
	}
}

// GetMe 返回当前登录用户的完整档案。
func (h *UserHandler) GetMe(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "缺少用户信息", nil)
		return
	}

	user, err := h.users.Me(c.Request.Context(), userID)
	if err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": user}, nil)
}

type updateMeRequest struct {
	Username    *string `json:"username"`
	DisplayName *string `json:"display_name"`
	AvatarURL   *string `json:"avatar_url"`
}

// UpdateMe 更新当前登录用户的资料。
func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "缺少用户信息", nil)
		return
	}

	var req updateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	user, err := h.users.UpdateProfile(c.Request.Context(), userID, usersvc.UpdateInput{
		Username:    req.Username,
		DisplayName: req.DisplayName,
		AvatarURL:   req.AvatarURL,
	})
	if err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": user}, nil)
}

// PublicProfile 返回某个用户的公开主页，路径参数支持 id 或 slug。
func (h *UserHandler) PublicProfile(c *gin.Context) {
	ref := strings.TrimSpace(c.Param("id"))
	if ref == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "缺少用户标识", nil)
		return
	}

	profile, err := h.users.PublicProfile(c.Request.Context(), ref)
	if err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": profile}, nil)
}

// ToggleFollow 切换当前用户对目标用户的关注状态。
func (h *UserHandler) ToggleFollow(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "缺少用户信息", nil)
		return
	}
	targetID, ok := pathID(c, "id")
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "无效的用户编号", nil)
		return
	}

	result, err := h.social.Toggle(c.Request.Context(), userID, targetID)
	if err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, result, nil)
}

// ListFollowing 返回当前用户关注的人的分页列表。
func (h *UserHandler) ListFollowing(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "缺少用户信息", nil)
		return
	}
	page := queryInt(c, "page", 1)
	limit := queryInt(c, "limit", 0)

	result, err := h.social.ListFollowing(c.Request.Context(), userID, page, limit)
	if err != nil {
		h.logger.Errorw("list following failed", "error", err, "user_id", userID)
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}

	meta := response.MetaPagination{
		Page:         result.Page,
		PageSize:     result.Limit,
		TotalItems:   int(result.Total),
		TotalPages:   result.TotalPages,
		CurrentCount: len(result.Items),
	}
	response.Success(c, http.StatusOK, gin.H{"items": result.Items}, meta)
}
