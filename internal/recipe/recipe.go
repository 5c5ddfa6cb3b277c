// Package recipe 提供菜谱的持久化与渲染。
package recipe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"recipebox/internal/database"
	"recipebox/internal/relation"
)

var (
	ErrNotFound       = errors.New("recipe not found")
	ErrAuthorNotFound = errors.New("author not found")
)

// ListFilter 约束列表查询。AuthorUsername 为空表示不过滤。
type ListFilter struct {
	AuthorUsername string
}

// Store 是菜谱的持久层。删除菜谱时同时清理 relations 中的关系。
type Store struct {
	db        *gorm.DB
	relations []*relation.Store
}

// NewStore 构造 Store。
func NewStore(db *gorm.DB, relations ...*relation.Store) *Store {
	return &Store{db: db, relations: relations}
}

// List 返回菜谱列表，按创建时间倒序。
func (s *Store) List(ctx context.Context, filter ListFilter) ([]database.Recipe, error) {
	q := s.db.WithContext(ctx).Preload("Author").Order("created_at DESC, id DESC")

	if name := strings.TrimSpace(filter.AuthorUsername); name != "" {
		var author database.User
		if err := s.db.WithContext(ctx).Select("id").Where("username = ?", name).First(&author).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrAuthorNotFound
			}
			return nil, fmt.Errorf("query author %q: %w", name, err)
		}
		q = q.Where("author_id = ?", author.ID)
	}

	var recipes []database.Recipe
	if err := q.Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("list recipes: %w", err)
	}
	return recipes, nil
}

// ListByIDs 按给定顺序返回菜谱，不存在的 ID 被忽略。
func (s *Store) ListByIDs(ctx context.Context, ids []uint) ([]database.Recipe, error) {
	if len(ids) == 0 {
		return []database.Recipe{}, nil
	}

	var recipes []database.Recipe
	if err := s.db.WithContext(ctx).Preload("Author").Where("id IN ?", ids).Find(&recipes).Error; err != nil {
		return nil, fmt.Errorf("list recipes by id: %w", err)
	}

	byID := make(map[uint]database.Recipe, len(recipes))
	for _, r := range recipes {
		byID[r.ID] = r
	}
	ordered := make([]database.Recipe, 0, len(recipes))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			ordered = append(ordered, r)
		}
	}
	return ordered, nil
}

// Get 按 ID 查询菜谱并加载作者。
func (s *Store) Get(ctx context.Context, id uint) (*database.Recipe, error) {
	var recipe database.Recipe
	if err := s.db.WithContext(ctx).Preload("Author").First(&recipe, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query recipe %d: %w", id, err)
	}
	return &recipe, nil
}

// Create 以 authorID 为作者创建菜谱。
func (s *Store) Create(ctx context.Context, authorID uint, in Input) (*database.Recipe, error) {
	in = in.normalized()
	if err := ValidateInput(in); err != nil {
		return nil, err
	}

	ingredients, err := encodeIngredients(in.Ingredients)
	if err != nil {
		return nil, err
	}
	recipe := database.Recipe{
		AuthorID:        authorID,
		Title:           in.Title,
		Description:     in.Description,
		Ingredients:     ingredients,
		Instructions:    in.Instructions,
		PrepTimeMinutes: in.PrepTimeMinutes,
		CookTimeMinutes: in.CookTimeMinutes,
		Servings:        in.Servings,
		Difficulty:      in.Difficulty,
		Cuisine:         in.Cuisine,
	}
	if err := s.db.WithContext(ctx).Omit("Author").Create(&recipe).Error; err != nil {
		return nil, fmt.Errorf("create recipe: %w", err)
	}
	return s.Get(ctx, recipe.ID)
}

// Update 整体覆盖菜谱字段，作者不变。
func (s *Store) Update(ctx context.Context, id uint, in Input) (*database.Recipe, error) {
	recipe, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	in = in.normalized()
	if err := ValidateInput(in); err != nil {
		return nil, err
	}
	ingredients, err := encodeIngredients(in.Ingredients)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{
		"title":             in.Title,
		"description":       in.Description,
		"ingredients":       ingredients,
		"instructions":      in.Instructions,
		"prep_time_minutes": in.PrepTimeMinutes,
		"cook_time_minutes": in.CookTimeMinutes,
		"servings":          in.Servings,
		"difficulty":        in.Difficulty,
		"cuisine":           in.Cuisine,
	}
	if err := s.db.WithContext(ctx).Model(&database.Recipe{ID: recipe.ID}).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update recipe %d: %w", id, err)
	}
	return s.Get(ctx, id)
}

// Delete 删除菜谱及其点赞、收藏。
func (s *Store) Delete(ctx context.Context, id uint) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, rel := range s.relations {
			if err := rel.DeleteForRecipe(ctx, tx, id); err != nil {
				return err
			}
		}
		if err := tx.Delete(&database.Recipe{}, id).Error; err != nil {
			return fmt.Errorf("delete recipe %d: %w", id, err)
		}
		return nil
	})
}

// Ingredients 解码菜谱的配料列表。
func Ingredients(r database.Recipe) []string {
	items := []string{}
	if len(r.Ingredients) == 0 {
		return items
	}
	if err := json.Unmarshal(r.Ingredients, &items); err != nil {
		return []string{}
	}
	return items
}

func encodeIngredients(items []string) (datatypes.JSON, error) {
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode ingredients: %w", err)
	}
	return datatypes.JSON(raw), nil
}
