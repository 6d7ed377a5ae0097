package handler

import (
	"net/http"

	response "lf-go-app/backend/internal/infra/common"
	appupdatesvc "lf-go-app/backend/internal/service/appupdate"

	"github.com/gin-gonic/gin"
)

// AppUpdateHandler 负责客户端更新通道的 HTTP 接口。
type AppUpdateHandler struct {
	service *appupdatesvc.Service
}

// NewAppUpdateHandler 创建更新通道 handler。
func NewAppUpdateHandler(service *appupdatesvc.Service) *AppUpdateHandler {
	return &AppUpdateHandler{service: service}
}

// Latest 返回指定平台最新发布的更新；尚无记录时 update 为 null。
func (h *AppUpdateHandler) Latest(c *gin.Context) {
	update, err := h.service.Latest(c.Request.Context(), c.Query("platform"))
	if err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"update": update}, nil)
}

// List 返回全部更新记录，仅管理员可见。
func (h *AppUpdateHandler) List(c *gin.Context) {
	if !isAdmin(c) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "仅管理员可管理更新通道", nil)
		return
	}
	items, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"items": items}, nil)
}

type createAppUpdateRequest struct {
	Platform    string `json:"platform" binding:"required"`
	VersionName string `json:"version_name" binding:"required"`
	VersionCode int    `json:"version_code" binding:"required"`
	IsForce     bool   `json:"is_force"`
	DownloadURL string `json:"download_url" binding:"required"`
	Changelog   string `json:"changelog"`
}

// Create 发布一条新的更新记录，仅管理员可用。
func (h *AppUpdateHandler) Create(c *gin.Context) {
	if !isAdmin(c) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "仅管理员可管理更新通道", nil)
		return
	}

	var req createAppUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	update, err := h.service.Create(c.Request.Context(), appupdatesvc.CreateInput{
		Platform:    req.Platform,
		VersionName: req.VersionName,
		VersionCode: req.VersionCode,
		IsForce:     req.IsForce,
		DownloadURL: req.DownloadURL,
		Changelog:   req.Changelog,
	})
	if err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Created(c, gin.H{"update": update}, nil)
}
