package policy

import (
	"errors"
	"net/http"
	"testing"
)

func TestAllow(t *testing.T) {
	const author uint = 10

	cases := []struct {
		name    string
		mode    Mode
		method  string
		subject Subject
		want    error
	}{
		{"public read anonymous", PublicRead, http.MethodGet, Anonymous, nil},
		{"authenticated anonymous", Authenticated, http.MethodPost, Anonymous, ErrUnauthenticated},
		{"authenticated user", Authenticated, http.MethodPost, User(3), nil},
		{"author rule anonymous read", AuthorOrReadOnly, http.MethodGet, Anonymous, nil},
		{"author rule other user read", AuthorOrReadOnly, http.MethodHead, User(3), nil},
		{"author rule anonymous write", AuthorOrReadOnly, http.MethodPut, Anonymous, ErrUnauthenticated},
		{"author rule other user write", AuthorOrReadOnly, http.MethodPut, User(3), ErrForbidden},
		{"author rule other user delete", AuthorOrReadOnly, http.MethodDelete, User(3), ErrForbidden},
		{"author rule author write", AuthorOrReadOnly, http.MethodPut, User(author), nil},
		{"author rule author delete", AuthorOrReadOnly, http.MethodDelete, User(author), nil},
		{"unknown mode", Mode(99), http.MethodGet, User(author), ErrForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Allow(tc.mode, tc.method, tc.subject, author); !errors.Is(got, tc.want) {
				t.Fatalf("Allow() = %v, want %v", got, tc.want)
			}
		})
	}
}
