package api

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"

	"recipebox/internal/api/middleware"
	"recipebox/internal/policy"
)

// ObjectStorage 是头像所需的对象存储能力，由 *storage.Client 实现。
type ObjectStorage interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	GeneratePresignedURL(ctx context.Context, objectKey string, duration time.Duration) (string, error)
}

// TaskEnqueuer 投递后台任务，由 *asynq.Client 实现。
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// enqueue 投递任务；enqueuer 为 nil 或投递失败时只记录日志，不影响请求结果。
func enqueue(c *gin.Context, enqueuer TaskEnqueuer, build func() (*asynq.Task, error)) {
	if enqueuer == nil {
		return
	}
	logger := middleware.LoggerFromContext(c)

	task, err := build()
	if err != nil {
		logger.Error("build task failed", slog.Any("error", err))
		return
	}
	if _, err := enqueuer.EnqueueContext(c.Request.Context(), task, asynq.Queue("default")); err != nil {
		logger.Error("enqueue task failed", slog.String("task_type", task.Type()), slog.Any("error", err))
		return
	}
	logger.Info("task enqueued", slog.String("task_type", task.Type()))
}

func userIDFromContext(c *gin.Context) (uint, bool) {
	return middleware.UserID(c)
}

func subjectFromContext(c *gin.Context) policy.Subject {
	if id, ok := userIDFromContext(c); ok {
		return policy.User(id)
	}
	return policy.Anonymous
}
