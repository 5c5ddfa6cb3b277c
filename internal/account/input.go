package account

import (
	"strings"

	"recipebox/internal/auth"
	"recipebox/internal/validate"
)

// RegisterInput 是注册请求体。
type RegisterInput struct {
	Username  string `json:"username" validate:"required,max=150,username"`
	Email     string `json:"email" validate:"required,max=254,email"`
	Password  string `json:"password" validate:"required"`
	FirstName string `json:"first_name" validate:"max=150"`
	LastName  string `json:"last_name" validate:"max=150"`
}

func (in RegisterInput) normalized() RegisterInput {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	return in
}

// ValidateRegistration 检查字段格式与密码强度，不涉及数据库。
func ValidateRegistration(in RegisterInput) error {
	errs := validate.Struct(in)
	if !errs.Has("password") {
		if err := auth.ValidatePassword("password", in.Password, in.Username, in.Email); err != nil {
			fe, _ := validate.AsFieldErrors(err)
			for _, msg := range fe["password"] {
				errs.Add("password", msg)
			}
		}
	}
	return errs.Err()
}

// UserPatch 是账号的部分更新，nil 字段保持不变。
type UserPatch struct {
	Username  *string `json:"username" validate:"omitempty,max=150,username"`
	Email     *string `json:"email" validate:"omitempty,max=254,email"`
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
}

func (p UserPatch) normalized() UserPatch {
	trim := func(v *string) *string {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		return &t
	}
	p.Username = trim(p.Username)
	p.FirstName = trim(p.FirstName)
	p.LastName = trim(p.LastName)
	if p.Email != nil {
		e := normalizeEmail(*p.Email)
		p.Email = &e
	}
	return p
}

// ValidateUserPatch 检查部分更新的字段；显式传入的用户名与邮箱不能为空。
func ValidateUserPatch(p UserPatch) error {
	errs := validate.Struct(p)
	if p.Username != nil && *p.Username == "" {
		errs.Add("username", "This field may not be blank.")
	}
	if p.Email != nil && *p.Email == "" {
		errs.Add("email", "This field may not be blank.")
	}
	return errs.Err()
}

func (p UserPatch) updates() map[string]any {
	updates := map[string]any{}
	if p.Username != nil {
		updates["username"] = *p.Username
	}
	if p.Email != nil {
		updates["email"] = *p.Email
	}
	if p.FirstName != nil {
		updates["first_name"] = *p.FirstName
	}
	if p.LastName != nil {
		updates["last_name"] = *p.LastName
	}
	return updates
}

// PasswordChangeInput 是修改密码请求体。
type PasswordChangeInput struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

// ProfilePatch 是资料的部分更新。Bookmarks 非 nil 时整体替换收藏集合。
type ProfilePatch struct {
	Bio       *string `json:"bio" validate:"omitempty,max=5000"`
	Bookmarks *[]uint `json:"bookmarks"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
