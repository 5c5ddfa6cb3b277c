package database

import (
	"time"

	"gorm.io/datatypes"
)

// User 表示系统中的账号信息。删除账号时其资料、菜谱、点赞与收藏一并删除。
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;size:150;not null"`
	Email        string `gorm:"uniqueIndex;size:254;not null"`
	FirstName    string `gorm:"size:150"`
	LastName     string `gorm:"size:150"`
	PasswordHash string `gorm:"size:255;not null"`
	IsActive     bool   `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Profile Profile  `gorm:"constraint:OnDelete:CASCADE"`
	Recipes []Recipe `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE"`
}

// Profile 与 User 一一对应，收藏集合保存在 recipe_bookmarks 中。
type Profile struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"uniqueIndex;not null"`
	Bio       string `gorm:"type:text"`
	Avatar    string `gorm:"size:512"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Recipe 表示用户发布的菜谱。
type Recipe struct {
	ID              uint           `gorm:"primaryKey"`
	AuthorID        uint           `gorm:"index;not null"`
	Author          User           `gorm:"foreignKey:AuthorID"`
	Title           string         `gorm:"size:255;not null"`
	Description     string         `gorm:"type:text"`
	Ingredients     datatypes.JSON `gorm:"type:jsonb"`
	Instructions    string         `gorm:"type:text"`
	PrepTimeMinutes int
	CookTimeMinutes int
	Servings        int
	Difficulty      string `gorm:"size:16"`
	Cuisine         string `gorm:"size:64"`
	CreatedAt       time.Time `gorm:"index"`
	UpdatedAt       time.Time
}

// RecipeLike 是用户与菜谱之间的点赞关系，(user_id, recipe_id) 唯一。
type RecipeLike struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_recipe_likes_user_recipe"`
	RecipeID  uint   `gorm:"not null;index;uniqueIndex:idx_recipe_likes_user_recipe"`
	User      User   `gorm:"constraint:OnDelete:CASCADE"`
	Recipe    Recipe `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

// RecipeBookmark 是用户与菜谱之间的收藏关系，(user_id, recipe_id) 唯一。
type RecipeBookmark struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_recipe_bookmarks_user_recipe"`
	RecipeID  uint   `gorm:"not null;index;uniqueIndex:idx_recipe_bookmarks_user_recipe"`
	User      User   `gorm:"constraint:OnDelete:CASCADE"`
	Recipe    Recipe `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
}

// Models lists every table owned by the service, in migration order.
func Models() []any {
	return []any{&User{}, &Profile{}, &Recipe{}, &RecipeLike{}, &RecipeBookmark{}}
}
