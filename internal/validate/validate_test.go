package validate

import (
	"errors"
	"fmt"
	"testing"
)

type sample struct {
	Name     string   `json:"name" validate:"required,max=5"`
	Email    string   `json:"email" validate:"omitempty,email"`
	Username string   `json:"username" validate:"omitempty,username"`
	Tags     []string `json:"tags" validate:"min=1"`
	Level    string   `json:"level" validate:"omitempty,oneof=easy hard"`
}

func TestStructUsesJSONFieldNames(t *testing.T) {
	errs := Struct(sample{Name: "too-long", Email: "nope", Username: "bad name", Level: "medium"})

	for _, field := range []string{"name", "email", "username", "tags", "level"} {
		if !errs.Has(field) {
			t.Fatalf("expected error on %q, got %v", field, errs)
		}
	}
	if got := errs["tags"][0]; got != "Ensure this field has at least 1 items." {
		t.Fatalf("unexpected tags message %q", got)
	}
}

func TestStructPassesValidInput(t *testing.T) {
	errs := Struct(sample{Name: "ok", Email: "a@b.co", Username: "chef.ann+1", Tags: []string{"x"}, Level: "easy"})
	if err := errs.Err(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestAsFieldErrorsUnwraps(t *testing.T) {
	wrapped := fmt.Errorf("register: %w", Field("email", "taken"))

	fe, ok := AsFieldErrors(wrapped)
	if !ok {
		t.Fatalf("expected field errors")
	}
	if fe["email"][0] != "taken" {
		t.Fatalf("unexpected message %v", fe)
	}
	if _, ok := AsFieldErrors(errors.New("plain")); ok {
		t.Fatalf("plain error must not be field errors")
	}
}
