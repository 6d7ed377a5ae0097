package handler

import (
	"fmt"
	"net/http"
	"time"

	response "lf-go-app/backend/internal/infra/common"
	appLogger "lf-go-app/backend/internal/infra/logger"
	"lf-go-app/backend/internal/infra/ratelimit"
	commentsvc "lf-go-app/backend/internal/service/comment"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CommentRateLimit 控制评论创建频率。
type CommentRateLimit struct {
	CreateLimit  int
	CreateWindow time.Duration
}

// CommentHandler 负责包评论相关的 HTTP 接口。
type CommentHandler struct {
	service      *commentsvc.Service
	limiter      ratelimit.Limiter
	createLimit  int
	createWindow time.Duration
	logger       *zap.SugaredLogger
}

// NewCommentHandler 创建评论 handler。
func NewCommentHandler(service *commentsvc.Service, limiter ratelimit.Limiter, cfg CommentRateLimit) *CommentHandler {
	if cfg.CreateLimit < 0 {
		cfg.CreateLimit = 0
	}
	if cfg.CreateWindow < 0 {
		cfg.CreateWindow = 0
	}
	return &CommentHandler{
		service:      service,
		limiter:      limiter,
		createLimit:  cfg.CreateLimit,
		createWindow: cfg.CreateWindow,
		logger:       appLogger.S().With("component", "comment.handler"),
	}
}

// allow 结合限流器检查用户是否可以继续发表评论。
func (h *CommentHandler) allow(c *gin.Context, userID uint) bool {
	if h.limiter == nil || h.createLimit <= 0 {
		return true
	}
	key := fmt.Sprintf("comment:create:%d", userID)
	res, err := h.limiter.Allow(c.Request.Context(), key, h.createLimit, h.createWindow)
	if err != nil {
		h.logger.Warnw("comment rate limiter failed", "error", err, "key", key)
		return true
	}
	if res.Allowed {
		return true
	}
	response.Fail(c, http.StatusTooManyRequests, response.ErrTooManyRequests, "评论过于频繁，请稍后再试", gin.H{
		"retry_after_seconds": int(res.RetryAfter.Seconds()),
	})
	return false
}

// List 返回目标包的顶层评论分页，每条附带全部回复。
func (h *CommentHandler) List(c *gin.Context) {
	packageID, ok := pathID(c, "id")
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "无效的包编号", nil)
		return
	}
	viewerID, _ := extractUserID(c)

	result, err := h.service.ListByPackage(c.Request.Context(), commentsvc.ListInput{
		PackageID: packageID,
		Page:      queryInt(c, "page", 1),
		Limit:     queryInt(c, "limit", 0),
		ViewerID:  viewerID,
	})
	if err != nil {
		h.logger.Errorw("list comments failed", "error", err, "package_id", packageID)
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"items": result.Items}, paginationMeta(result.Page, result.Limit, result.Total, result.TotalPages, len(result.Items)))
}

type createCommentRequest struct {
	Content  string `json:"content" binding:"required"`
	ParentID *uint  `json:"parent_id"`
}

// Create 发表顶层评论或回复。
func (h *CommentHandler) Create(c *gin.Context) {
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

	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	comment, err := h.service.Create(c.Request.Context(), commentsvc.CreateInput{
		PackageID: packageID,
		AuthorID:  userID,
		ParentID:  req.ParentID,
		Content:   req.Content,
	})
	if err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Created(c, gin.H{"comment": comment}, nil)
}

// Delete 删除一条评论，仅作者本人可删。
func (h *CommentHandler) Delete(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "缺少用户信息", nil)
		return
	}
	commentID, ok := pathID(c, "commentId")
	if !ok {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "无效的评论编号", nil)
		return
	}

	if err := h.service.Delete(c.Request.Context(), userID, commentID); err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": commentID}, nil)
}
