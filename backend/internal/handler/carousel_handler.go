package handler

import (
	"net/http"

	response "lf-go-app/backend/internal/infra/common"
	appLogger "lf-go-app/backend/internal/infra/logger"
	carouselsvc "lf-go-app/backend/internal/service/carousel"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CarouselHandler 负责首页轮播位的 HTTP 接口。
type CarouselHandler struct {
	service *carouselsvc.Service
	logger  *zap.SugaredLogger
}

// NewCarouselHandler 创建轮播 handler。
func NewCarouselHandler(service *carouselsvc.Service) *CarouselHandler {
	return &CarouselHandler{
		service: service,
		logger:  appLogger.S().With("component", "carousel.handler"),
	}
}

// List 返回全部轮播条目，匿名可访问。
func (h *CarouselHandler) List(c *gin.Context) {
	entries, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		h.logger.Errorw("list carousels failed", "error", err)
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"items": entries}, nil)
}

type createCarouselRequest struct {
	Title     string `json:"title" binding:"required"`
	Summary   string `json:"summary"`
	ImageURL  string `json:"image_url"`
	CatID     uint   `json:"cat_id" binding:"required"`
	UserID    uint   `json:"user_id" binding:"required"`
	PackageID *uint  `json:"package_id"`
}

// Create 新建轮播条目，仅管理员可用。
func (h *CarouselHandler) Create(c *gin.Context) {
	if !isAdmin(c) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "仅管理员可管理轮播", nil)
		return
	}

	var req createCarouselRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	entry, err := h.service.Create(c.Request.Context(), carouselsvc.CreateInput{
		Title:     req.Title,
		Summary:   req.Summary,
		ImageURL:  req.ImageURL,
		CatID:     req.CatID,
		UserID:    req.UserID,
		PackageID: req.PackageID,
	})
	if err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Created(c, gin.H{"carousel": entry}, nil)
}

// Delete 移除轮播条目，仅管理员可用。
func (h *CarouselHandler) Delete(c *gin.Context) {
	if !isAdmin(c) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "仅管理员可管理轮播", nil)
		return
	}
	entryID, ok := pathID(c, "id")
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "无效的轮播编号", nil)
		return
	}

	if err := h.service.Delete(c.Request.Context(), entryID); err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": entryID}, nil)
}
