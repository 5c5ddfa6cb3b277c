package dbtest

import (
	"testing"

	"recipebox/internal/database"
)

func TestOpenEnforcesForeignKeys(t *testing.T) {
	db := Open(t)

	orphan := database.Recipe{AuthorID: 999, Title: "Orphan", Ingredients: []byte(`[]`), Instructions: "None."}
	if err := db.Omit("Author").Create(&orphan).Error; err == nil {
		t.Fatalf("expected foreign key violation for unknown author")
	}

	user := SeedUser(t, db, "cook")
	if err := db.Delete(&database.User{}, user.ID).Error; err != nil {
		t.Fatalf("delete user: %v", err)
	}
	var profiles int64
	db.Model(&database.Profile{}).Where("user_id = ?", user.ID).Count(&profiles)
	if profiles != 0 {
		t.Fatalf("expected profile to cascade with user, got %d", profiles)
	}
}
