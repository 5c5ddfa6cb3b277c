// Package worker 实现 asynq 后台任务的处理器。
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"recipebox/internal/tasks"
)

// ObjectDeleter 删除对象存储中的对象，由 *storage.Client 实现。
type ObjectDeleter interface {
	DeleteObject(ctx context.Context, objectKey string) error
}

// AvatarCleanupHandler 删除被替换或随账号删除的头像对象。
type AvatarCleanupHandler struct {
	storage ObjectDeleter
	logger  *slog.Logger
}

// NewAvatarCleanupHandler 创建头像清理任务处理器。
func NewAvatarCleanupHandler(storage ObjectDeleter, logger *slog.Logger) *AvatarCleanupHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AvatarCleanupHandler{storage: storage, logger: logger}
}

// ProcessTask 实现 asynq.Handler。
func (h *AvatarCleanupHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.AvatarCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal avatar cleanup payload failed", slog.Any("error", err))
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("object_key", payload.ObjectKey),
	)

	// 只允许删除头像前缀下的对象，防止任务被用来删除任意对象。
	if !strings.HasPrefix(payload.ObjectKey, "avatars/") {
		log.Warn("refusing to delete object outside avatar prefix")
		return nil
	}

	if err := h.storage.DeleteObject(ctx, payload.ObjectKey); err != nil {
		log.Error("delete avatar object failed", slog.Any("error", err), slog.Bool("final_attempt", isFinalAsynqAttempt(ctx)))
		return err
	}
	log.Info("avatar object deleted")
	return nil
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
