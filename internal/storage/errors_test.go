package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/minio/minio-go/v7"
)

func TestIsNoSuchKey(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "minio code", err: minio.ErrorResponse{Code: "NoSuchKey"}, want: true},
		{name: "wrapped minio code", err: fmt.Errorf("remove: %w", minio.ErrorResponse{Code: "NotFound"}), want: true},
		{name: "other minio code", err: minio.ErrorResponse{Code: "AccessDenied"}, want: false},
		{name: "text only", err: errors.New("The specified key does not exist."), want: true},
		{name: "unrelated", err: errors.New("connection refused"), want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsNoSuchKey(tc.err); got != tc.want {
				t.Fatalf("IsNoSuchKey(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
