package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	response "lf-go-app/backend/internal/infra/common"
	appLogger "lf-go-app/backend/internal/infra/logger"
	"lf-go-app/backend/internal/infra/ratelimit"
	catalogsvc "lf-go-app/backend/internal/service/catalog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PackageWriteRateLimit 控制包写操作（创建/更新）的频率。
type PackageWriteRateLimit struct {
	WriteLimit  int
	WriteWindow time.Duration
}

// PackageHandler 负责包目录相关的 HTTP 接口。
type PackageHandler struct {
	service     *catalogsvc.Service
	limiter     ratelimit.Limiter
	writeLimit  int
	writeWindow time.Duration
	logger      *zap.SugaredLogger
}

// NewPackageHandler 创建包 handler。
func NewPackageHandler(service *catalogsvc.Service, limiter ratelimit.Limiter, cfg PackageWriteRateLimit) *PackageHandler {
	if cfg.WriteLimit < 0 {
		cfg.WriteLimit = 0
	}
	if cfg.WriteWindow < 0 {
		cfg.WriteWindow = 0
	}
	return &PackageHandler{
		service:     service,
		limiter:     limiter,
		writeLimit:  cfg.WriteLimit,
		writeWindow: cfg.WriteWindow,
		logger:      appLogger.S().With("component", "package.handler"),
	}
}

// allow 结合限流器检查用户是否可以继续执行写操作。
func (h *PackageHandler) allow(c *gin.Context, userID uint) bool {
	if h.limiter == nil || h.writeLimit <= 0 {
		return true
	}
	key := fmt.Sprintf("package:write:%d", userID)
	res, err := h.limiter.Allow(c.Request.Context(), key, h.writeLimit, h.writeWindow)
	if err != nil {
		h.logger.Warnw("package rate limiter failed", "error", err, "key", key)
		return true
	}
	if res.Allowed {
		return true
	}
	response.Fail(c, http.StatusTooManyRequests, response.ErrTooManyRequests, "操作过于频繁，请稍后再试", gin.H{
		"retry_after_seconds": int(res.RetryAfter.Seconds()),
	})
	return false
}

type urlRequest struct {
	Name string `json:"name"`
	URL  string `json:"url" binding:"required"`
}

type createPackageRequest struct {
	Title        string       `json:"title" binding:"required"`
	ShortSummary string       `json:"short_summary"`
	Description  string       `json:"description"`
	Changelog    string       `json:"changelog"`
	CatID        uint         `json:"cat_id" binding:"required"`
	Images       []string     `json:"images"`
	Urls         []urlRequest `json:"urls"`
	VersionIDs   []uint       `json:"version_ids"`
}

// Create 为当前用户创建一个新包，初始状态恒为草稿。
func (h *PackageHandler) Create(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "缺少用户信息", nil)
		return
	}
	if !h.allow(c, userID) {
		return
	}

	var req createPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	pkg, err := h.service.CreateForOwner(c.Request.Context(), userID, catalogsvc.CreateInput{
		Title:        req.Title,
		ShortSummary: req.ShortSummary,
		Description:  req.Description,
		Changelog:    req.Changelog,
		CatID:        req.CatID,
		Images:       req.Images,
		Urls:         buildUrlInputs(req.Urls),
		VersionIDs:   req.VersionIDs,
	})
	if err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Created(c, gin.H{"package": pkg}, nil)
}

type updatePackageRequest struct {
	Title        *string       `json:"title"`
	ShortSummary *string       `json:"short_summary"`
	Description  *string       `json:"description"`
	Changelog    *string       `json:"changelog"`
	CatID        *uint         `json:"cat_id"`
	Images       *[]string     `json:"images"`
	Urls         *[]urlRequest `json:"urls"`
	VersionIDs   *[]uint       `json:"version_ids"`
}

// Update 更新当前用户名下的包，任何修改都会把状态重置为草稿。
func (h *PackageHandler) Update(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "缺少用户信息", nil)
		return
	}
	packageID, ok := pathID(c, "id")
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "无效的包编号", nil)
		return
	}
	if !h.allow(c, userID) {
		return
	}

	var req updatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	input := catalogsvc.UpdateInput{
		Title:        req.Title,
		ShortSummary: req.ShortSummary,
		Description:  req.Description,
		Changelog:    req.Changelog,
		CatID:        req.CatID,
		Images:       req.Images,
		VersionIDs:   req.VersionIDs,
	}
	if req.Urls != nil {
		urls := buildUrlInputs(*req.Urls)
		input.Urls = &urls
	}

	pkg, err := h.service.UpdateForOwner(c.Request.Context(), userID, packageID, input)
	if err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"package": pkg}, nil)
}

// ListPublic 返回已发布包的分页列表，支持检索与分类过滤。
func (h *PackageHandler) ListPublic(c *gin.Context) {
	result, err := h.service.ListPublic(c.Request.Context(), catalogsvc.ListInput{
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 0),
		Search: c.Query("search"),
		CatID:  uint(queryInt(c, "cat_id", 0)),
	})
	if err != nil {
		h.logger.Errorw("list public packages failed", "error", err)
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"items": result.Items}, paginationMeta(result.Page, result.Limit, result.Total, result.TotalPages, len(result.Items)))
}

// ListOwned 返回当前用户名下的包分页（含草稿）。
func (h *PackageHandler) ListOwned(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "缺少用户信息", nil)
		return
	}
	result, err := h.service.ListOwned(c.Request.Context(), userID, catalogsvc.ListInput{
		Page:   queryInt(c, "page", 1),
		Limit:  queryInt(c, "limit", 0),
		Search: c.Query("search"),
		CatID:  uint(queryInt(c, "cat_id", 0)),
	})
	if err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"items": result.Items}, paginationMeta(result.Page, result.Limit, result.Total, result.TotalPages, len(result.Items)))
}

// GetPublic 返回已发布包的完整详情，路径参数支持 id 或 slug。
func (h *PackageHandler) GetPublic(c *gin.Context) {
	// 路径参数既可能是数字主键也可能是 slug，原样交给服务层解析。
	ref := strings.TrimSpace(c.Param("id"))
	if ref == "" {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "缺少包标识", nil)
		return
	}
	viewerID, _ := extractUserID(c)

	pkg, err := h.service.GetPublic(c.Request.Context(), ref, viewerID)
	if err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"package": pkg}, nil)
}

// GetOwned 返回当前用户名下的包详情，忽略发布状态。
func (h *PackageHandler) GetOwned(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "缺少用户信息", nil)
		return
	}
	packageID, ok := pathID(c, "id")
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "无效的包编号", nil)
		return
	}

	pkg, err := h.service.GetOwned(c.Request.Context(), userID, packageID)
	if err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"package": pkg}, nil)
}

// Publish 把包从草稿切换到已发布，仅管理员可用。
func (h *PackageHandler) Publish(c *gin.Context) {
	if !isAdmin(c) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "仅管理员可发布包", nil)
		return
	}
	packageID, ok := pathID(c, "id")
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "无效的包编号", nil)
		return
	}

	if err := h.service.Publish(c.Request.Context(), packageID); err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": packageID, "published": true}, nil)
}

// Delete 删除当前用户名下的包及其全部附属数据。
func (h *PackageHandler) Delete(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "缺少用户信息", nil)
		return
	}
	packageID, ok := pathID(c, "id")
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "无效的包编号", nil)
		return
	}

	if err := h.service.DeleteForOwner(c.Request.Context(), userID, packageID); err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": packageID}, nil)
}

func buildUrlInputs(reqs []urlRequest) []catalogsvc.UrlInput {
	urls := make([]catalogsvc.UrlInput, 0, len(reqs))
	for _, req := range reqs {
		urls = append(urls, catalogsvc.UrlInput{Name: req.Name, URL: req.URL})
	}
	return urls
}

func paginationMeta(page, limit int, total int64, totalPages, current int) response.MetaPagination {
	return response.MetaPagination{
		Page:         page,
		PageSize:     limit,
		TotalItems:   int(total),
		TotalPages:   totalPages,
		CurrentCount: current,
	}
}
