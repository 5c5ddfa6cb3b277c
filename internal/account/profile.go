package account

import (
	"context"
	"errors"
	"fmt"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"gorm.io/gorm"

	"recipebox/internal/database"
	"recipebox/internal/relation"
	"recipebox/internal/validate"
)

// 简介只保留纯文本。
var bioPolicy = bluemonday.StrictPolicy()

// plainBio 去掉标签后还原 Sanitize 产生的实体。
func plainBio(raw string) string {
	return html.UnescapeString(bioPolicy.Sanitize(raw))
}

// ProfileView 是资料及其收藏集合。
type ProfileView struct {
	Profile   database.Profile
	Bookmarks []uint
}

// GetProfile 返回用户资料与收藏的菜谱 ID。
func (s *Store) GetProfile(ctx context.Context, userID uint) (*ProfileView, error) {
	profile, err := s.profile(ctx, s.db, userID)
	if err != nil {
		return nil, err
	}
	bookmarks, err := s.bookmarks.RecipeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ProfileView{Profile: *profile, Bookmarks: bookmarks}, nil
}

// UpdateProfile 部分更新简介，并在提供 bookmarks 时整体替换收藏集合。
func (s *Store) UpdateProfile(ctx context.Context, userID uint, patch ProfilePatch) (*ProfileView, error) {
	if err := validate.Struct(patch).Err(); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		profile, err := s.profile(ctx, tx, userID)
		if err != nil {
			return err
		}
		if patch.Bio != nil {
			if err := tx.Model(profile).Update("bio", plainBio(*patch.Bio)).Error; err != nil {
				return fmt.Errorf("update bio: %w", err)
			}
		}
		if patch.Bookmarks != nil {
			if err := s.bookmarks.Replace(ctx, tx, userID, *patch.Bookmarks); err != nil {
				if errors.Is(err, relation.ErrRecipeNotFound) {
					return validate.Field("bookmarks", "Invalid pk - object does not exist.")
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}

// SetAvatar 记录新的头像对象键，并返回被替换的旧键（可能为空）。
func (s *Store) SetAvatar(ctx context.Context, userID uint, objectKey string) (string, error) {
	profile, err := s.profile(ctx, s.db, userID)
	if err != nil {
		return "", err
	}
	previous := profile.Avatar
	if err := s.db.WithContext(ctx).Model(profile).Update("avatar", objectKey).Error; err != nil {
		return "", fmt.Errorf("update avatar: %w", err)
	}
	return previous, nil
}

func (s *Store) profile(ctx context.Context, db *gorm.DB, userID uint) (*database.Profile, error) {
	var profile database.Profile
	if err := db.WithContext(ctx).Where("user_id = ?", userID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query profile of user %d: %w", userID, err)
	}
	return &profile, nil
}
