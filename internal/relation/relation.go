// Package relation 维护用户与菜谱之间的点赞、收藏关系。
//
// 两种关系共享同一套契约：POST 语义为切换（不存在则创建，存在则删除），
// DELETE 语义为严格删除（不存在时返回 ErrNotRelated）。
package relation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"recipebox/internal/database"
)

var (
	// ErrNotRelated 表示删除的关系并不存在。
	ErrNotRelated = errors.New("relation does not exist")
	// ErrRecipeNotFound 表示目标菜谱不存在。
	ErrRecipeNotFound = errors.New("recipe not found")
)

// Kind 描述一种关系及其存储表。
type Kind struct {
	Name  string
	table string
}

var (
	Likes     = Kind{Name: "like", table: "recipe_likes"}
	Bookmarks = Kind{Name: "bookmark", table: "recipe_bookmarks"}
)

// Outcome 是一次切换的结果。
type Outcome int

const (
	Added Outcome = iota + 1
	Removed
)

func (o Outcome) String() string {
	switch o {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "unknown"
	}
}

// row 对应 recipe_likes / recipe_bookmarks 的公共列。
type row struct {
	ID        uint `gorm:"primaryKey"`
	UserID    uint
	RecipeID  uint
	CreatedAt time.Time
}

// Store 操作某一种关系。
type Store struct {
	db   *gorm.DB
	kind Kind
}

// NewStore 为 kind 构造 Store。
func NewStore(db *gorm.DB, kind Kind) *Store {
	return &Store{db: db, kind: kind}
}

// Kind returns the relation this store operates on.
func (s *Store) Kind() Kind {
	return s.kind
}

// Toggle 先尝试插入；唯一索引冲突说明关系已存在（包括并发插入的情况），此时改为删除。
func (s *Store) Toggle(ctx context.Context, userID, recipeID uint) (Outcome, error) {
	if err := s.ensureRecipe(ctx, s.db, recipeID); err != nil {
		return 0, err
	}

	err := s.table(ctx, s.db).Create(&row{UserID: userID, RecipeID: recipeID}).Error
	switch {
	case err == nil:
		return Added, nil
	case errors.Is(err, gorm.ErrDuplicatedKey):
		if err := s.delete(ctx, s.db, userID, recipeID); err != nil && !errors.Is(err, ErrNotRelated) {
			return 0, err
		}
		return Removed, nil
	default:
		return 0, fmt.Errorf("insert %s: %w", s.kind.Name, err)
	}
}

// Remove 删除关系；关系不存在时返回 ErrNotRelated。
func (s *Store) Remove(ctx context.Context, userID, recipeID uint) error {
	if err := s.ensureRecipe(ctx, s.db, recipeID); err != nil {
		return err
	}
	return s.delete(ctx, s.db, userID, recipeID)
}

// Ensure 幂等地建立关系。
func (s *Store) Ensure(ctx context.Context, userID, recipeID uint) error {
	if err := s.ensureRecipe(ctx, s.db, recipeID); err != nil {
		return err
	}
	err := s.table(ctx, s.db).Create(&row{UserID: userID, RecipeID: recipeID}).Error
	if err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("insert %s: %w", s.kind.Name, err)
	}
	return nil
}

// Discard 幂等地解除关系。
func (s *Store) Discard(ctx context.Context, userID, recipeID uint) error {
	if err := s.ensureRecipe(ctx, s.db, recipeID); err != nil {
		return err
	}
	if err := s.delete(ctx, s.db, userID, recipeID); err != nil && !errors.Is(err, ErrNotRelated) {
		return err
	}
	return nil
}

// Exists reports whether userID is related to recipeID.
func (s *Store) Exists(ctx context.Context, userID, recipeID uint) (bool, error) {
	var count int64
	if err := s.table(ctx, s.db).Where("user_id = ? AND recipe_id = ?", userID, recipeID).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count %s: %w", s.kind.Name, err)
	}
	return count > 0, nil
}

// RecipeIDs 返回用户关联的菜谱 ID，按建立时间排序。
func (s *Store) RecipeIDs(ctx context.Context, userID uint) ([]uint, error) {
	ids := []uint{}
	if err := s.table(ctx, s.db).Where("user_id = ?", userID).Order("created_at, id").Pluck("recipe_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list %s recipe ids: %w", s.kind.Name, err)
	}
	return ids, nil
}

// RelatedAmong 返回 recipeIDs 中与 userID 存在关系的子集。
func (s *Store) RelatedAmong(ctx context.Context, userID uint, recipeIDs []uint) (map[uint]bool, error) {
	related := make(map[uint]bool, len(recipeIDs))
	if len(recipeIDs) == 0 {
		return related, nil
	}
	var ids []uint
	if err := s.table(ctx, s.db).Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).Pluck("recipe_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list %s among recipes: %w", s.kind.Name, err)
	}
	for _, id := range ids {
		related[id] = true
	}
	return related, nil
}

// Counts 返回每个菜谱的关系数量，未出现的菜谱计数为 0。
func (s *Store) Counts(ctx context.Context, recipeIDs []uint) (map[uint]int64, error) {
	counts := make(map[uint]int64, len(recipeIDs))
	if len(recipeIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		RecipeID uint
		Total    int64
	}
	if err := s.table(ctx, s.db).
		Select("recipe_id, COUNT(*) AS total").
		Where("recipe_id IN ?", recipeIDs).
		Group("recipe_id").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("count %s per recipe: %w", s.kind.Name, err)
	}
	for _, r := range rows {
		counts[r.RecipeID] = r.Total
	}
	return counts, nil
}

// Replace 在事务 tx 中将用户的关系集合整体替换为 recipeIDs。
func (s *Store) Replace(ctx context.Context, tx *gorm.DB, userID uint, recipeIDs []uint) error {
	unique := make([]uint, 0, len(recipeIDs))
	seen := make(map[uint]struct{}, len(recipeIDs))
	for _, id := range recipeIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	if len(unique) > 0 {
		var found int64
		if err := tx.WithContext(ctx).Model(&database.Recipe{}).Where("id IN ?", unique).Count(&found).Error; err != nil {
			return fmt.Errorf("check recipes: %w", err)
		}
		if found != int64(len(unique)) {
			return ErrRecipeNotFound
		}
	}

	if err := s.table(ctx, tx).Where("user_id = ?", userID).Delete(&row{}).Error; err != nil {
		return fmt.Errorf("clear %s: %w", s.kind.Name, err)
	}
	if len(unique) == 0 {
		return nil
	}

	rows := make([]row, 0, len(unique))
	for _, id := range unique {
		rows = append(rows, row{UserID: userID, RecipeID: id})
	}
	if err := s.table(ctx, tx).Create(&rows).Error; err != nil {
		return fmt.Errorf("insert %s: %w", s.kind.Name, err)
	}
	return nil
}

// DeleteForRecipe 删除某个菜谱上的全部关系，用于菜谱删除。
func (s *Store) DeleteForRecipe(ctx context.Context, tx *gorm.DB, recipeID uint) error {
	if err := s.table(ctx, tx).Where("recipe_id = ?", recipeID).Delete(&row{}).Error; err != nil {
		return fmt.Errorf("delete %s of recipe %d: %w", s.kind.Name, recipeID, err)
	}
	return nil
}

func (s *Store) delete(ctx context.Context, db *gorm.DB, userID, recipeID uint) error {
	result := s.table(ctx, db).Where("user_id = ? AND recipe_id = ?", userID, recipeID).Delete(&row{})
	if result.Error != nil {
		return fmt.Errorf("delete %s: %w", s.kind.Name, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotRelated
	}
	return nil
}

func (s *Store) ensureRecipe(ctx context.Context, db *gorm.DB, recipeID uint) error {
	var count int64
	if err := db.WithContext(ctx).Model(&database.Recipe{}).Where("id = ?", recipeID).Count(&count).Error; err != nil {
		return fmt.Errorf("check recipe %d: %w", recipeID, err)
	}
	if count == 0 {
		return ErrRecipeNotFound
	}
	return nil
}

func (s *Store) table(ctx context.Context, db *gorm.DB) *gorm.DB {
	return db.WithContext(ctx).Table(s.kind.table)
}
