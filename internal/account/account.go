// Package account 管理用户账号与个人资料。
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"recipebox/internal/auth"
	"recipebox/internal/database"
	"recipebox/internal/relation"
	"recipebox/internal/validate"
)

var (
	ErrNotFound           = errors.New("user not found")
	ErrInvalidCredentials = errors.New("incorrect credentials")
	ErrInactive           = errors.New("user inactive")
)

// Store 是账号与资料的持久层。
type Store struct {
	db        *gorm.DB
	bookmarks *relation.Store
}

// NewStore 构造 Store；bookmarks 用于读写资料中的收藏集合。
func NewStore(db *gorm.DB, bookmarks *relation.Store) *Store {
	return &Store{db: db, bookmarks: bookmarks}
}

// Register 校验输入、哈希密码，并在同一事务中创建用户及其资料。
func (s *Store) Register(ctx context.Context, in RegisterInput) (*database.User, error) {
	in = in.normalized()
	if err := ValidateRegistration(in); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, 0, in.Username, in.Email); err != nil {
		return nil, err
	}

	hashed, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := database.User{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: hashed,
		IsActive:     true,
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Profile", "Recipes").Create(&user).Error; err != nil {
			return err
		}
		user.Profile = database.Profile{UserID: user.ID}
		return tx.Create(&user.Profile).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.duplicateFieldErrors(ctx, 0, in.Username, in.Email)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// Authenticate 通过邮箱与密码校验凭据，仅返回激活状态的用户。
func (s *Store) Authenticate(ctx context.Context, email, password string) (*database.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	var user database.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	if !auth.CheckPasswordHash(password, user.PasswordHash) || !user.IsActive {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// Get 按 ID 查询用户。
func (s *Store) Get(ctx context.Context, id uint) (*database.User, error) {
	var user database.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user %d: %w", id, err)
	}
	return &user, nil
}

// CheckActive 确认用户存在且处于激活状态，供令牌主体校验使用。
func (s *Store) CheckActive(ctx context.Context, id uint) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !user.IsActive {
		return ErrInactive
	}
	return nil
}

// GetByUsername 按用户名查询用户。
func (s *Store) GetByUsername(ctx context.Context, username string) (*database.User, error) {
	var user database.User
	if err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query user by username: %w", err)
	}
	return &user, nil
}

// UpdateUser 部分更新账号字段，只写入 patch 中出现的字段。
func (s *Store) UpdateUser(ctx context.Context, id uint, patch UserPatch) (*database.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	patch = patch.normalized()
	if err := ValidateUserPatch(patch); err != nil {
		return nil, err
	}

	updates := patch.updates()
	if len(updates) == 0 {
		return user, nil
	}

	username, email := user.Username, user.Email
	if patch.Username != nil {
		username = *patch.Username
	}
	if patch.Email != nil {
		email = *patch.Email
	}
	if err := s.checkUnique(ctx, id, username, email); err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.duplicateFieldErrors(ctx, id, username, email)
		}
		return nil, fmt.Errorf("update user %d: %w", id, err)
	}
	return s.Get(ctx, id)
}

// ChangePassword 校验旧密码后写入新密码哈希。
func (s *Store) ChangePassword(ctx context.Context, id uint, in PasswordChangeInput) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	errs := validate.Struct(in)
	if !errs.Has("old_password") && !auth.CheckPasswordHash(in.OldPassword, user.PasswordHash) {
		errs.Add("old_password", "Invalid old password.")
	}
	if !errs.Has("new_password") {
		if err := auth.ValidatePassword("new_password", in.NewPassword, user.Username, user.Email); err != nil {
			fe, _ := validate.AsFieldErrors(err)
			for _, msg := range fe["new_password"] {
				errs.Add("new_password", msg)
			}
		}
		if in.NewPassword == in.OldPassword && !errs.Has("old_password") {
			errs.Add("new_password", "The new password must differ from the old password.")
		}
	}
	if err := errs.Err(); err != nil {
		return err
	}

	hashed, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("password_hash", hashed).Error; err != nil {
		return fmt.Errorf("update password for user %d: %w", id, err)
	}
	return nil
}

// Delete 删除账号以及其拥有的资料、菜谱、点赞与收藏。
func (s *Store) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var recipeIDs []uint
		if err := tx.Model(&database.Recipe{}).Where("author_id = ?", id).Pluck("id", &recipeIDs).Error; err != nil {
			return fmt.Errorf("list recipes of user %d: %w", id, err)
		}

		steps := []struct {
			model any
			where string
			args  []any
		}{
			{&database.RecipeLike{}, "user_id = ? OR recipe_id IN ?", []any{id, recipeIDs}},
			{&database.RecipeBookmark{}, "user_id = ? OR recipe_id IN ?", []any{id, recipeIDs}},
			{&database.Recipe{}, "author_id = ?", []any{id}},
			{&database.Profile{}, "user_id = ?", []any{id}},
			{&database.User{}, "id = ?", []any{id}},
		}
		for _, step := range steps {
			if err := tx.Where(step.where, step.args...).Delete(step.model).Error; err != nil {
				return fmt.Errorf("delete account %d: %w", id, err)
			}
		}
		return nil
	})
}

func (s *Store) checkUnique(ctx context.Context, selfID uint, username, email string) error {
	errs := validate.FieldErrors{}
	taken := func(column, value string) (bool, error) {
		var count int64
		q := s.db.WithContext(ctx).Model(&database.User{}).Where(column+" = ?", value)
		if selfID != 0 {
			q = q.Where("id <> ?", selfID)
		}
		if err := q.Count(&count).Error; err != nil {
			return false, fmt.Errorf("check %s uniqueness: %w", column, err)
		}
		return count > 0, nil
	}

	if dup, err := taken("username", username); err != nil {
		return err
	} else if dup {
		errs.Add("username", "A user with that username already exists.")
	}
	if dup, err := taken("email", email); err != nil {
		return err
	} else if dup {
		errs.Add("email", "user with this email already exists.")
	}
	return errs.Err()
}

// duplicateFieldErrors 在唯一索引冲突后重新定位冲突字段。
func (s *Store) duplicateFieldErrors(ctx context.Context, selfID uint, username, email string) error {
	if err := s.checkUnique(ctx, selfID, username, email); err != nil {
		return err
	}
	return validate.Field("non_field_errors", "A user with these details already exists.")
}
