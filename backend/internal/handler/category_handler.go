package handler

import (
	"net/http"
	"strings"

	response "lf-go-app/backend/internal/infra/common"
	appLogger "lf-go-app/backend/internal/infra/logger"
	categorysvc "lf-go-app/backend/internal/service/category"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CategoryHandler 负责分类树与按分类浏览的 HTTP 接口。
type CategoryHandler struct {
	service *categorysvc.Service
	logger  *zap.SugaredLogger
}

// NewCategoryHandler 创建分类 handler。
func NewCategoryHandler(service *categorysvc.Service) *CategoryHandler {
	return &CategoryHandler{
		service: service,
		logger:  appLogger.S().With("component", "category.handler"),
	}
}

// ListRoots 返回全部根分类，每个根节点附带一层子节点。
func (h *CategoryHandler) ListRoots(c *gin.Context) {
	items, err := h.service.ListRoots(c.Request.Context())
	if err != nil {
		h.logger.Errorw("list categories failed", "error", err)
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"items": items}, nil)
}

type createCategoryRequest struct {
	Name     string `json:"name" binding:"required"`
	Param    string `json:"param" binding:"required"`
	ParentID *uint  `json:"parent_id"`
}

// Create 新建分类节点，仅管理员可用。
func (h *CategoryHandler) Create(c *gin.Context) {
	if !isAdmin(c) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "仅管理员可管理分类", nil)
		return
	}

	var req createCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	category, err := h.service.Create(c.Request.Context(), categorysvc.CreateInput{
		Name:     req.Name,
		Param:    req.Param,
		ParentID: req.ParentID,
	})
	if err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Created(c, gin.H{"category": category}, nil)
}

type updateCategoryRequest struct {
	Name        *string `json:"name"`
	Param       *string `json:"param"`
	ParentID    *uint   `json:"parent_id"`
	ClearParent bool    `json:"clear_parent"`
}

// Update 更新分类节点，仅管理员可用。
func (h *CategoryHandler) Update(c *gin.Context) {
	if !isAdmin(c) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "仅管理员可管理分类", nil)
		return
	}
	categoryID, ok := pathID(c, "id")
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "无效的分类编号", nil)
		return
	}

	var req updateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	category, err := h.service.Update(c.Request.Context(), categoryID, categorysvc.UpdateInput{
		Name:        req.Name,
		Param:       req.Param,
		ParentID:    req.ParentID,
		ClearParent: req.ClearParent,
	})
	if err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"category": category}, nil)
}

// Packages 按分类 param 返回已发布的包分页。
func (h *CategoryHandler) Packages(c *gin.Context) {
	// 路径参数是分类的 URL 片段（param），与管理接口共用同名占位符。
	param := strings.TrimSpace(c.Param("id"))
	if param == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "缺少分类参数", nil)
		return
	}

	result, err := h.service.PackagesByParam(c.Request.Context(), categorysvc.PackagesByCategoryInput{
		Param: param,
		Page:  queryInt(c, "page", 1),
		Limit: queryInt(c, "limit", 0),
	})
	if err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"category": result.Category,
		"items":    result.Items,
	}, paginationMeta(result.Page, result.Limit, result.Total, result.TotalPages, len(result.Items)))
}
