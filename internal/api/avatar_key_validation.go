package api

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const avatarKeyPrefix = "avatars/"

func avatarKeyPrefixFor(userID uint) string {
	return fmt.Sprintf("%s%d/", avatarKeyPrefix, userID)
}

// isValidAvatarObjectKey 校验对象键属于该用户的头像目录，且是受支持的图片扩展名。
func isValidAvatarObjectKey(userID uint, key string) bool {
	if key == "" || !utf8.ValidString(key) || len(key) > 200 {
		return false
	}
	if !strings.HasPrefix(key, avatarKeyPrefixFor(userID)) {
		return false
	}
	if strings.Contains(key, "..") || strings.Contains(key, "\\") || strings.Contains(key, "//") {
		return false
	}
	lower := strings.ToLower(key)
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".webp", ".gif"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
