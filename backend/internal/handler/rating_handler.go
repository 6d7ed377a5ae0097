package handler

import (
	"fmt"
	"net/http"
	"time"

	response "lf-go-app/backend/internal/infra/common"
	appLogger "lf-go-app/backend/internal/infra/logger"
	"lf-go-app/backend/internal/infra/ratelimit"
	ratingsvc "lf-go-app/backend/internal/service/rating"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RatingRateLimit 控制评分写入频率。
type RatingRateLimit struct {
	WriteLimit  int
	WriteWindow time.Duration
}

// RatingHandler 负责包评分相关的 HTTP 接口。
type RatingHandler struct {
	service     *ratingsvc.Service
	limiter     ratelimit.Limiter
	writeLimit  int
	writeWindow time.Duration
	logger      *zap.SugaredLogger
}

// NewRatingHandler 创建评分 handler。
func NewRatingHandler(service *ratingsvc.Service, limiter ratelimit.Limiter, cfg RatingRateLimit) *RatingHandler {
	if cfg.WriteLimit < 0 {
		cfg.WriteLimit = 0
	}
	if cfg.WriteWindow < 0 {
		cfg.WriteWindow = 0
	}
	return &RatingHandler{
		service:     service,
		limiter:     limiter,
		writeLimit:  cfg.WriteLimit,
		writeWindow: cfg.WriteWindow,
		logger:      appLogger.S().With("component", "rating.handler"),
	}
}

// allow 结合限流器检查用户是否可以继续提交评分。
func (h *RatingHandler) allow(c *gin.Context, userID uint) bool {
	if h.limiter == nil || h.writeLimit <= 0 {
		return true
	}
	key := fmt.Sprintf("rating:write:%d", userID)
	res, err := h.limiter.Allow(c.Request.Context(), key, h.writeLimit, h.writeWindow)
	if err != nil {
		h.logger.Warnw("rating rate limiter failed", "error", err, "key", key)
		return true
	}
	if res.Allowed {
		return true
	}
	response.Fail(c, http.StatusTooManyRequests, response.ErrTooManyRequests, "评分过于频繁，请稍后再试", gin.H{
		"retry_after_seconds": int(res.RetryAfter.Seconds()),
	})
	return false
}

type rateRequest struct {
	Score int `json:"score" binding:"required"`
}

// Rate 提交或覆盖当前用户对包的评分，返回最新聚合值。
func (h *RatingHandler) Rate(c *gin.Context) {
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

	var req rateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	result, err := h.service.Rate(c.Request.Context(), userID, packageID, req.Score)
	if err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, result, nil)
}

// MyRating 返回当前用户对包的评分；未评分时 rating 为 null。
func (h *RatingHandler) MyRating(c *gin.Context) {
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

	result, err := h.service.MyRating(c.Request.Context(), userID, packageID)
	if err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"rating": result}, nil)
}
