package handler

import (
	"net/http"

	response "lf-go-app/backend/internal/infra/common"
	appLogger "lf-go-app/backend/internal/infra/logger"
	reportsvc "lf-go-app/backend/internal/service/report"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReportHandler 负责举报相关的 HTTP 接口。
type ReportHandler struct {
	service *reportsvc.Service
	logger  *zap.SugaredLogger
}

// NewReportHandler 创建举报 handler。
func NewReportHandler(service *reportsvc.Service) *ReportHandler {
	return &ReportHandler{
		service: service,
		logger:  appLogger.S().With("component", "report.handler"),
	}
}

type createReportRequest struct {
	Reason       string `json:"reason" binding:"required"`
	TargetUserID *uint  `json:"target_user_id"`
	PackageID    *uint  `json:"package_id"`
}

// Create 提交一条举报，目标用户与目标包至少填一个。
func (h *ReportHandler) Create(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "缺少用户信息", nil)
		return
	}

	var req createReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, err.Error(), nil)
		return
	}

	report, err := h.service.Create(c.Request.Context(), reportsvc.CreateInput{
		ReporterID:   userID,
		Reason:       req.Reason,
		TargetUserID: req.TargetUserID,
		PackageID:    req.PackageID,
	})
	if err != nil {
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Created(c, gin.H{"report": report}, nil)
}

// List 返回全部举报记录，仅管理员可见。
func (h *ReportHandler) List(c *gin.Context) {
	if !isAdmin(c) {
		response.Fail(c, http.StatusForbidden, response.ErrForbidden, "仅管理员可查看举报", nil)
		return
	}

	reports, err := h.service.ListAll(c.Request.Context())
	if err != nil {
		h.logger.Errorw("list reports failed", "error", err)
		response.FailWithError(c, http.StatusInternalServerError, err, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"items": reports}, nil)
}
