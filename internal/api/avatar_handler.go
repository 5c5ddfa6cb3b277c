package api

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"recipebox/internal/account"
	"recipebox/internal/api/middleware"
	"recipebox/internal/errcode"
	"recipebox/internal/metrics"
	"recipebox/internal/tasks"
	"recipebox/internal/validate"
)

const (
	maxAvatarBytes   = 2 << 20
	avatarURLExpires = 15 * time.Minute
)

var allowedAvatarTypes = []string{"image/png", "image/jpeg", "image/webp", "image/gif"}

// AvatarHandler 负责头像的上传与访问。上传前按内容识别类型并扫描病毒。
type AvatarHandler struct {
	accounts *account.Store
	storage  ObjectStorage
	scanner  VirusScanner
	enqueuer TaskEnqueuer
}

// NewAvatarHandler 返回 AvatarHandler。scanner 为 nil 时跳过扫描。
func NewAvatarHandler(accounts *account.Store, storage ObjectStorage, scanner VirusScanner, enqueuer TaskEnqueuer) *AvatarHandler {
	return &AvatarHandler{
		accounts: accounts,
		storage:  storage,
		scanner:  scanner,
		enqueuer: enqueuer,
	}
}

// Get 返回头像对象键与限时访问链接。
func (h *AvatarHandler) Get(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	view, err := h.accounts.GetProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.response(c, userID, view.Profile.Avatar))
}

// Upload 处理 multipart 字段 avatar，替换当前头像并异步清理旧对象。
func (h *AvatarHandler) Upload(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}
	if h.storage == nil {
		Error(c, http.StatusServiceUnavailable, errcode.SystemError, "avatar storage is not configured")
		return
	}

	logger := middleware.LoggerFromContext(c).With(slog.Uint64("user_id", uint64(userID)))

	file, err := c.FormFile("avatar")
	if err != nil {
		respondError(c, validate.Field("avatar", "No file was submitted."))
		return
	}
	if file.Size > maxAvatarBytes {
		metrics.ObserveAvatarUpload("rejected")
		respondError(c, validate.Field("avatar", fmt.Sprintf("Ensure the file is at most %d bytes.", maxAvatarBytes)))
		return
	}

	detected, err := detectType(file)
	if err != nil {
		logger.Error("detect avatar type", slog.Any("error", err))
		Internal(c)
		return
	}
	if !mimetype.EqualsAny(detected.String(), allowedAvatarTypes...) {
		metrics.ObserveAvatarUpload("rejected")
		respondError(c, validate.Field("avatar", "Upload a valid image. The file you uploaded was either not an image or a corrupted image."))
		return
	}

	if h.scanner != nil {
		if err := h.scan(file); err != nil {
			if errors.Is(err, errInfected) {
				metrics.ObserveAvatarUpload("rejected")
				logger.Warn("avatar rejected by virus scan")
				respondError(c, validate.Field("avatar", "The uploaded file was rejected by the virus scanner."))
				return
			}
			metrics.ObserveAvatarUpload("failed")
			logger.Error("scan avatar", slog.Any("error", err))
			Internal(c)
			return
		}
	}

	reader, err := file.Open()
	if err != nil {
		Internal(c)
		return
	}
	defer reader.Close()

	ctx := c.Request.Context()
	objectKey := fmt.Sprintf("%s%s%s", avatarKeyPrefixFor(userID), uuid.NewString(), detected.Extension())
	if _, err := h.storage.UploadFile(ctx, objectKey, reader, file.Size, detected.String()); err != nil {
		metrics.ObserveAvatarUpload("failed")
		logger.Error("upload avatar", slog.Any("error", err))
		Internal(c)
		return
	}

	previous, err := h.accounts.SetAvatar(ctx, userID, objectKey)
	if err != nil {
		respondError(c, err)
		return
	}
	metrics.ObserveAvatarUpload("stored")
	logger.Info("avatar updated", slog.String("object_key", objectKey))

	if previous != "" && previous != objectKey {
		correlationID := middleware.GetCorrelationID(c)
		enqueue(c, h.enqueuer, func() (*asynq.Task, error) {
			return tasks.NewAvatarCleanupTask(previous, correlationID)
		})
	}

	c.JSON(http.StatusOK, h.response(c, userID, objectKey))
}

func (h *AvatarHandler) response(c *gin.Context, userID uint, objectKey string) avatarResponse {
	out := avatarResponse{Avatar: objectKey}
	if objectKey == "" || h.storage == nil || !isValidAvatarObjectKey(userID, objectKey) {
		return out
	}

	url, err := h.storage.GeneratePresignedURL(c.Request.Context(), objectKey, avatarURLExpires)
	if err != nil {
		middleware.LoggerFromContext(c).Error("generate avatar url", slog.String("object_key", objectKey), slog.Any("error", err))
		return out
	}
	out.AvatarURL = url
	return out
}

func (h *AvatarHandler) scan(file *multipart.FileHeader) error {
	reader, err := file.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer reader.Close()
	return h.scanner.Scan(reader)
}

func detectType(file *multipart.FileHeader) (*mimetype.MIME, error) {
	reader, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer reader.Close()
	return mimetype.DetectReader(reader)
}
