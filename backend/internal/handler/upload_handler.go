package handler

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	response "lf-go-app/backend/internal/infra/common"
	appLogger "lf-go-app/backend/internal/infra/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxUploadSize = 5 * 1024 * 1024

// UploadHandler 负责文件上传请求（用户头像与包截图）。
//
// 它会将文件写入指定的 storageRoot 目录，并返回可通过静态路由访问的相对路径。
type UploadHandler struct {
	storageRoot string
	logger      *zap.SugaredLogger
}

// NewUploadHandler 构造上传 handler，storageRoot 指向静态资源根目录，例如 public。
func NewUploadHandler(storageRoot string) *UploadHandler {
	return &UploadHandler{
		storageRoot: storageRoot,
		logger:      appLogger.S().With("component", "upload.handler"),
	}
}

// UploadAvatar 处理头像上传，返回 `/static/avatars/<filename>` 路径。
// 注册阶段也会调用该接口，因此不强制登录。
func (h *UploadHandler) UploadAvatar(c *gin.Context) {
	h.upload(c, "avatar", "avatars")
}

// UploadImage 处理包截图上传，返回 `/static/images/<filename>` 路径。
func (h *UploadHandler) UploadImage(c *gin.Context) {
	if _, ok := extractUserID(c); !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrUnauthorized, "缺少用户信息", nil)
		return
	}
	h.upload(c, "image", "images")
}

// upload 校验文件大小与格式，以 UUID 文件名写入 storageRoot/<subdir>。
func (h *UploadHandler) upload(c *gin.Context, field, subdir string) {
	log := h.logger.With("operation", "upload_"+field)

	file, err := c.FormFile(field)
	if err != nil {
		log.Warnw("missing upload file", "error", err)
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, field+" file is required", nil)
		return
	}
	if file.Size == 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, field+" file is empty", nil)
		return
	}
	if file.Size > maxUploadSize {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, field+" file is too large", nil)
		return
	}
	if !isSupportedImage(file) {
		response.Fail(c, http.StatusBadRequest, response.ErrBadRequest, "unsupported image format", nil)
		return
	}

	dir := filepath.Join(h.storageRoot, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Errorw("ensure storage dir failed", "error", err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "failed to prepare storage", nil)
		return
	}

	filename := generateFilename(file.Filename)
	if err := c.SaveUploadedFile(file, filepath.Join(dir, filename)); err != nil {
		log.Errorw("save upload failed", "error", err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal, "failed to save file", nil)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{
		"url": fmt.Sprintf("/static/%s/%s", subdir, filename),
	}, nil)
}

// generateFilename 使用 UUID 与原始扩展名生成存储文件名，避免重复覆盖。
func generateFilename(original string) string {
	ext := strings.ToLower(filepath.Ext(original))
	if ext == "" {
		ext = ".png"
	}
	return uuid.NewString() + ext
}

// isSupportedImage 根据 Content-Type 判断文件是否为允许的图片格式。
func isSupportedImage(fileHeader *multipart.FileHeader) bool {
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}
	switch {
	case strings.HasPrefix(contentType, "image/jpeg"):
		return true
	case strings.HasPrefix(contentType, "image/png"):
		return true
	case strings.HasPrefix(contentType, "image/gif"):
		return true
	case strings.HasPrefix(contentType, "image/webp"):
		return true
	default:
		return false
	}
}
