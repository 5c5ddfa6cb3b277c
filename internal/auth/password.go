package auth

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"recipebox/internal/validate"
)

const (
	minPasswordLength = 8
	// bcrypt 只处理前 72 字节。
	maxPasswordBytes = 72
)

// 常见弱口令，命中即拒绝。
var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password123": {}, "12345678": {}, "123456789": {},
	"1234567890": {}, "qwerty123": {}, "qwertyuiop": {}, "iloveyou": {}, "sunshine": {},
	"princess": {}, "football": {}, "baseball": {}, "welcome1": {}, "abc12345": {},
	"letmein1": {}, "trustno1": {}, "superman": {}, "starwars": {}, "passw0rd": {},
	"11111111": {}, "00000000": {}, "88888888": {}, "a1b2c3d4": {}, "dragon12": {},
}

// HashPassword 使用 bcrypt 生成密码哈希。
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPasswordHash 校验密码是否匹配哈希。
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword 检查密码强度，返回的消息全部针对 field 字段。
func ValidatePassword(field, password, username, email string) error {
	errs := validate.FieldErrors{}

	if len([]rune(password)) < minPasswordLength {
		errs.Add(field, fmt.Sprintf("This password is too short. It must contain at least %d characters.", minPasswordLength))
	}
	if len(password) > maxPasswordBytes {
		errs.Add(field, fmt.Sprintf("This password is too long. It must contain at most %d bytes.", maxPasswordBytes))
	}
	if password != "" && strings.IndexFunc(password, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		errs.Add(field, "This password is entirely numeric.")
	}
	if _, ok := commonPasswords[strings.ToLower(password)]; ok {
		errs.Add(field, "This password is too common.")
	}
	if tooSimilar(password, username, email) {
		errs.Add(field, "The password is too similar to the username or email.")
	}

	return errs.Err()
}

func tooSimilar(password, username, email string) bool {
	lower := strings.ToLower(password)
	local, _, _ := strings.Cut(strings.ToLower(email), "@")
	for _, attr := range []string{strings.ToLower(username), local} {
		if len(attr) < 3 {
			continue
		}
		if strings.Contains(lower, attr) || strings.Contains(attr, lower) {
			return true
		}
	}
	return false
}
