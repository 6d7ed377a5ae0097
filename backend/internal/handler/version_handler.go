package handler

import (
	"net/http"

	response "lf-go-app/backend/internal/infra/common"
	versionsvc "lf-go-app/backend/internal/service/version"

	"github.com/gin-gonic/gin"
)

// VersionHandler 负责共享版本记录的管理接口，全部仅管理员可用。
type VersionHandler struct {
	service *versionsvc.Service
}

// NewVersionHandler 创建版本 handler。
func NewVersionHandler(service *versionsvc.Service) *VersionHandler {
	return &VersionHandler{service: service}
}

// List 返回全部版本记录。
func (h *VersionHandler) List(c *gin.Context) {
	if !isAdmin(c) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "仅管理员可管理版本", nil)
		return
	}
	items, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"items": items}, nil)
}

type createVersionRequest struct {
	VersionNumber string `json:"version_number" binding:"required"`
	URL           string `json:"url"`
	PackageID     *uint  `json:"package_id"`
	PlatformType  *int   `json:"platform_type"`
}

// Create 写入一条新的版本记录。
func (h *VersionHandler) Create(c *gin.Context) {
	if !isAdmin(c) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "仅管理员可管理版本", nil)
		return
	}

	var req createVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	version, err := h.service.Create(c.Request.Context(), versionsvc.CreateInput{
		VersionNumber: req.VersionNumber,
		URL:           req.URL,
		PackageID:     req.PackageID,
		PlatformType:  req.PlatformType,
	})
	if err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Created(c, gin.H{"version": version}, nil)
}

type updateVersionRequest struct {
	VersionNumber *string `json:"version_number"`
	URL           *string `json:"url"`
	PlatformType  *int    `json:"platform_type"`
}

// Update 对版本记录执行部分更新。
func (h *VersionHandler) Update(c *gin.Context) {
	if !isAdmin(c) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "仅管理员可管理版本", nil)
		return
	}
	versionID, ok := pathID(c, "id")
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "无效的版本编号", nil)
		return
	}

	var req updateVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	version, err := h.service.Update(c.Request.Context(), versionID, versionsvc.UpdateInput{
		VersionNumber: req.VersionNumber,
		URL:           req.URL,
		PlatformType:  req.PlatformType,
	})
	if err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"version": version}, nil)
}

// Delete 删除版本记录并清理包对它的连接。
func (h *VersionHandler) Delete(c *gin.Context) {
	if !isAdmin(c) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "仅管理员可管理版本", nil)
		return
	}
	versionID, ok := pathID(c, "id")
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "无效的版本编号", nil)
		return
	}

	if err := h.service.Delete(c.Request.Context(), versionID); err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": versionID}, nil)
}
