package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"

	"github.com/hibiken/asynq"
	"gopkg.in/gomail.v2"

	"recipebox/internal/config"
	"recipebox/internal/tasks"
)

// Mailer 投递邮件，由 *gomail.Dialer 实现。
type Mailer interface {
	DialAndSend(m ...*gomail.Message) error
}

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<p>Hi {{.Username}},</p>
<p>Welcome to recipebox! Your account is ready. Start by sharing your first recipe or bookmarking the ones you love.</p>
<p>Happy cooking.</p>`))

// WelcomeMailHandler 在注册后发送欢迎邮件。mailer 为 nil 时记录日志并跳过。
type WelcomeMailHandler struct {
	mailer Mailer
	from   string
	logger *slog.Logger
}

// NewWelcomeMailHandler 根据 SMTP 配置创建处理器，未配置 SMTP 时只记录日志。
func NewWelcomeMailHandler(cfg config.MailConfig, logger *slog.Logger) *WelcomeMailHandler {
	var mailer Mailer
	if cfg.Enabled() {
		mailer = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}
	return NewWelcomeMailHandlerWithMailer(mailer, cfg.From, logger)
}

// NewWelcomeMailHandlerWithMailer 使用指定的 Mailer 创建处理器。
func NewWelcomeMailHandlerWithMailer(mailer Mailer, from string, logger *slog.Logger) *WelcomeMailHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WelcomeMailHandler{mailer: mailer, from: from, logger: logger}
}

// ProcessTask 实现 asynq.Handler。
func (h *WelcomeMailHandler) ProcessTask(_ context.Context, t *asynq.Task) error {
	var payload tasks.WelcomeMailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		h.logger.Error("unmarshal welcome mail payload failed", slog.Any("error", err))
		return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
	}

	log := h.logger.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Uint64("user_id", uint64(payload.UserID)),
	)
	if payload.Email == "" {
		log.Warn("welcome mail without recipient, skipping")
		return nil
	}
	if h.mailer == nil {
		log.Info("smtp not configured, welcome mail skipped")
		return nil
	}

	msg, err := h.buildMessage(payload)
	if err != nil {
		return fmt.Errorf("build welcome mail: %v: %w", err, asynq.SkipRetry)
	}
	if err := h.mailer.DialAndSend(msg); err != nil {
		log.Error("send welcome mail failed", slog.Any("error", err))
		return err
	}
	log.Info("welcome mail sent")
	return nil
}

func (h *WelcomeMailHandler) buildMessage(payload tasks.WelcomeMailPayload) (*gomail.Message, error) {
	var body bytes.Buffer
	if err := welcomeTemplate.Execute(&body, payload); err != nil {
		return nil, err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", h.from)
	msg.SetHeader("To", payload.Email)
	msg.SetHeader("Subject", "Welcome to recipebox")
	msg.SetBody("text/html", body.String())
	return msg, nil
}
