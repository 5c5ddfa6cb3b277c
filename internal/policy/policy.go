// Package policy 决定调用方能否读写某个资源。
package policy

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthenticated = errors.New("authentication credentials were not provided")
	ErrForbidden       = errors.New("you do not have permission to perform this action")
)

// Mode 是资源的访问规则。
type Mode int

const (
	// PublicRead 允许任何人访问。
	PublicRead Mode = iota
	// Authenticated 要求有效的会话身份。
	Authenticated
	// AuthorOrReadOnly 允许任何人读取，写操作仅限资源作者。
	AuthorOrReadOnly
)

// Subject 是发起请求的调用方，匿名调用方的 Authenticated 为 false。
type Subject struct {
	UserID        uint
	Authenticated bool
}

// Anonymous 表示未认证的调用方。
var Anonymous = Subject{}

// User 构造已认证的调用方。
func User(id uint) Subject {
	return Subject{UserID: id, Authenticated: true}
}

// IsSafeMethod 判断方法是否只读。
func IsSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}

// Allow 按 mode 判断 subject 能否以 method 访问 ownerID 拥有的资源。
func Allow(mode Mode, method string, subject Subject, ownerID uint) error {
	switch mode {
	case PublicRead:
		return nil
	case Authenticated:
		if !subject.Authenticated {
			return ErrUnauthenticated
		}
		return nil
	case AuthorOrReadOnly:
		if IsSafeMethod(method) {
			return nil
		}
		if !subject.Authenticated {
			return ErrUnauthenticated
		}
		if subject.UserID != ownerID {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}
