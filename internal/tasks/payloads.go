// Package tasks 定义 API 与 worker 之间的异步任务契约。
package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeAvatarCleanup = "avatar:cleanup"
	TypeWelcomeMail   = "mail:welcome"
)

// AvatarCleanupPayload 指向一个已被替换或随账号删除的头像对象。
type AvatarCleanupPayload struct {
	ObjectKey     string `json:"object_key"`
	CorrelationID string `json:"correlation_id"`
}

// WelcomeMailPayload 描述欢迎邮件的收件人。
type WelcomeMailPayload struct {
	UserID        uint   `json:"user_id"`
	Email         string `json:"email"`
	Username      string `json:"username"`
	CorrelationID string `json:"correlation_id"`
}

// NewAvatarCleanupTask 构造删除旧头像对象的任务。
func NewAvatarCleanupTask(objectKey, correlationID string) (*asynq.Task, error) {
	if objectKey == "" {
		return nil, fmt.Errorf("avatar cleanup: object key is required")
	}
	payload, err := json.Marshal(AvatarCleanupPayload{ObjectKey: objectKey, CorrelationID: correlationID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAvatarCleanup, payload, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

// NewWelcomeMailTask 构造注册后发送欢迎邮件的任务。
func NewWelcomeMailTask(userID uint, email, username, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(WelcomeMailPayload{
		UserID:        userID,
		Email:         email,
		Username:      username,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeWelcomeMail, payload, asynq.MaxRetry(3), asynq.Timeout(time.Minute)), nil
}
