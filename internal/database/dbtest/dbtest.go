// Package dbtest opens migrated in-memory SQLite databases for tests.
package dbtest

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"recipebox/internal/database"
)

var seq atomic.Int64

// Open returns a fresh migrated database private to t.
// Foreign keys are enforced like in Postgres. A single connection serializes access
// so concurrent tests never hit SQLITE_LOCKED.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_foreign_keys=1", name, seq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sqlite: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// SeedUser inserts a user with a profile and returns it. The password hash is not usable for login.
func SeedUser(t testing.TB, db *gorm.DB, username string) database.User {
	t.Helper()
	user := database.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "seeded",
		IsActive:     true,
	}
	if err := db.Omit("Profile", "Recipes").Create(&user).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	user.Profile = database.Profile{UserID: user.ID}
	if err := db.Create(&user.Profile).Error; err != nil {
		t.Fatalf("seed profile %s: %v", username, err)
	}
	return user
}

// SeedRecipe inserts a recipe authored by authorID.
func SeedRecipe(t testing.TB, db *gorm.DB, authorID uint, title string) database.Recipe {
	t.Helper()
	recipe := database.Recipe{
		AuthorID:     authorID,
		Title:        title,
		Ingredients:  []byte(`["salt"]`),
		Instructions: "Cook it.",
	}
	if err := db.Omit("Author").Create(&recipe).Error; err != nil {
		t.Fatalf("seed recipe %s: %v", title, err)
	}
	return recipe
}
