package worker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hibiken/asynq"
	"gopkg.in/gomail.v2"

	"recipebox/internal/tasks"
)

type fakeDeleter struct {
	deleted []string
	err     error
}

func (d *fakeDeleter) DeleteObject(_ context.Context, key string) error {
	if d.err != nil {
		return d.err
	}
	d.deleted = append(d.deleted, key)
	return nil
}

type fakeMailer struct {
	sent []*gomail.Message
}

func (m *fakeMailer) DialAndSend(msgs ...*gomail.Message) error {
	m.sent = append(m.sent, msgs...)
	return nil
}

func TestAvatarCleanupDeletesObject(t *testing.T) {
	deleter := &fakeDeleter{}
	h := NewAvatarCleanupHandler(deleter, nil)

	task, err := tasks.NewAvatarCleanupTask("avatars/3/old.png", "cid")
	if err != nil {
		t.Fatalf("new task: %v", err)
	}
	if err := h.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(deleter.deleted) != 1 || deleter.deleted[0] != "avatars/3/old.png" {
		t.Fatalf("unexpected deletions %v", deleter.deleted)
	}
}

func TestAvatarCleanupIgnoresForeignPrefix(t *testing.T) {
	deleter := &fakeDeleter{}
	h := NewAvatarCleanupHandler(deleter, nil)

	task, _ := tasks.NewAvatarCleanupTask("backups/db.sql", "")
	if err := h.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(deleter.deleted) != 0 {
		t.Fatalf("object outside avatar prefix must not be deleted, got %v", deleter.deleted)
	}
}

func TestAvatarCleanupRetriesOnStorageError(t *testing.T) {
	h := NewAvatarCleanupHandler(&fakeDeleter{err: errors.New("minio down")}, nil)

	task, _ := tasks.NewAvatarCleanupTask("avatars/3/old.png", "")
	if err := h.ProcessTask(context.Background(), task); err == nil {
		t.Fatalf("expected storage error to be returned for retry")
	}
}

func TestMalformedPayloadSkipsRetry(t *testing.T) {
	h := NewAvatarCleanupHandler(&fakeDeleter{}, nil)
	err := h.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeAvatarCleanup, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected SkipRetry, got %v", err)
	}
}

func TestWelcomeMailIsSent(t *testing.T) {
	mailer := &fakeMailer{}
	h := NewWelcomeMailHandlerWithMailer(mailer, "no-reply@recipebox.local", nil)

	task, _ := tasks.NewWelcomeMailTask(1, "anna@example.com", "<anna>", "cid")
	if err := h.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(mailer.sent))
	}
	msg := mailer.sent[0]
	if to := msg.GetHeader("To"); len(to) != 1 || to[0] != "anna@example.com" {
		t.Fatalf("unexpected recipient %v", to)
	}

	var body strings.Builder
	if _, err := msg.WriteTo(&body); err != nil {
		t.Fatalf("render message: %v", err)
	}
	if strings.Contains(body.String(), "<anna>") {
		t.Fatalf("username must be escaped in the mail body")
	}
}

func TestWelcomeMailWithoutSMTPIsSkipped(t *testing.T) {
	h := NewWelcomeMailHandlerWithMailer(nil, "", nil)
	task, _ := tasks.NewWelcomeMailTask(1, "anna@example.com", "anna", "")
	if err := h.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("expected skip without error, got %v", err)
	}
}
