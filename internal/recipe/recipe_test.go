package recipe

import (
	"context"
	"errors"
	"strings"
	"testing"

	"recipebox/internal/database"
	"recipebox/internal/database/dbtest"
	"recipebox/internal/relation"
	"recipebox/internal/validate"
)

func validInput() Input {
	return Input{
		Title:           "  Tomato Soup ",
		Description:     "Weeknight soup",
		Ingredients:     []string{"tomatoes", " salt "},
		Instructions:    "1. Chop\n2. Simmer",
		PrepTimeMinutes: 10,
		CookTimeMinutes: 30,
		Servings:        4,
		Difficulty:      "Easy",
		Cuisine:         "Italian",
	}
}

func TestCreateAndGet(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	author := dbtest.SeedUser(t, db, "anna")
	store := NewStore(db)

	created, err := store.Create(ctx, author.ID, validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Title != "Tomato Soup" || created.Difficulty != "easy" {
		t.Fatalf("expected normalized fields, got %+v", created)
	}
	if created.Author.Username != "anna" {
		t.Fatalf("expected author to be loaded, got %+v", created.Author)
	}
	if got := Ingredients(*created); len(got) != 2 || got[1] != "salt" {
		t.Fatalf("unexpected ingredients %v", got)
	}

	if _, err := store.Get(ctx, created.ID+100); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestValidateInput(t *testing.T) {
	in := validInput()
	in.Title = ""
	in.Ingredients = []string{"ok", ""}
	in.Difficulty = "extreme"
	in.Servings = -1

	fe, ok := validate.AsFieldErrors(ValidateInput(in))
	if !ok {
		t.Fatalf("expected field errors")
	}
	for _, field := range []string{"title", "ingredients[1]", "difficulty", "servings"} {
		if !fe.Has(field) {
			t.Fatalf("expected error on %q, got %v", field, fe)
		}
	}

	in = validInput()
	in.Ingredients = nil
	fe, _ = validate.AsFieldErrors(ValidateInput(in))
	if !fe.Has("ingredients") {
		t.Fatalf("expected ingredients to be required, got %v", fe)
	}
}

func TestListFiltersByAuthor(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	anna := dbtest.SeedUser(t, db, "anna")
	ben := dbtest.SeedUser(t, db, "ben")
	dbtest.SeedRecipe(t, db, anna.ID, "First")
	dbtest.SeedRecipe(t, db, ben.ID, "Second")
	dbtest.SeedRecipe(t, db, anna.ID, "Third")
	store := NewStore(db)

	all, err := store.List(ctx, ListFilter{})
	if err != nil || len(all) != 3 {
		t.Fatalf("list all: n=%d err=%v", len(all), err)
	}
	if all[0].Title != "Third" {
		t.Fatalf("expected newest first, got %q", all[0].Title)
	}

	annas, err := store.List(ctx, ListFilter{AuthorUsername: "anna"})
	if err != nil || len(annas) != 2 {
		t.Fatalf("list anna: n=%d err=%v", len(annas), err)
	}
	for _, r := range annas {
		if r.AuthorID != anna.ID {
			t.Fatalf("unexpected author %d", r.AuthorID)
		}
	}

	if _, err := store.List(ctx, ListFilter{AuthorUsername: "ghost"}); !errors.Is(err, ErrAuthorNotFound) {
		t.Fatalf("expected ErrAuthorNotFound, got %v", err)
	}
}

func TestUpdateReplacesFields(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	anna := dbtest.SeedUser(t, db, "anna")
	seeded := dbtest.SeedRecipe(t, db, anna.ID, "Draft")
	store := NewStore(db)

	in := validInput()
	in.Cuisine = ""
	updated, err := store.Update(ctx, seeded.ID, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "Tomato Soup" || updated.Cuisine != "" || updated.AuthorID != anna.ID {
		t.Fatalf("unexpected recipe after update %+v", updated)
	}

	in.Title = ""
	if _, err := store.Update(ctx, seeded.ID, in); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := store.Update(ctx, 999, validInput()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteRemovesRelations(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	anna := dbtest.SeedUser(t, db, "anna")
	ben := dbtest.SeedUser(t, db, "ben")
	seeded := dbtest.SeedRecipe(t, db, anna.ID, "Soup")
	likes := relation.NewStore(db, relation.Likes)
	bookmarks := relation.NewStore(db, relation.Bookmarks)
	store := NewStore(db, likes, bookmarks)

	if _, err := likes.Toggle(ctx, ben.ID, seeded.ID); err != nil {
		t.Fatalf("like: %v", err)
	}
	if err := bookmarks.Ensure(ctx, ben.ID, seeded.ID); err != nil {
		t.Fatalf("bookmark: %v", err)
	}

	if err := store.Delete(ctx, seeded.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var remaining int64
	db.Model(&database.RecipeLike{}).Count(&remaining)
	if remaining != 0 {
		t.Fatalf("expected likes removed, found %d", remaining)
	}
	db.Model(&database.RecipeBookmark{}).Count(&remaining)
	if remaining != 0 {
		t.Fatalf("expected bookmarks removed, found %d", remaining)
	}
	if err := store.Delete(ctx, seeded.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListByIDsKeepsOrder(t *testing.T) {
	db := dbtest.Open(t)
	anna := dbtest.SeedUser(t, db, "anna")
	first := dbtest.SeedRecipe(t, db, anna.ID, "First")
	second := dbtest.SeedRecipe(t, db, anna.ID, "Second")

	got, err := NewStore(db).ListByIDs(context.Background(), []uint{second.ID, 999, first.ID})
	if err != nil {
		t.Fatalf("list by ids: %v", err)
	}
	if len(got) != 2 || got[0].ID != second.ID || got[1].ID != first.ID {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestRendererSanitizesAndCaches(t *testing.T) {
	r, err := NewRenderer(8)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	recipe := database.Recipe{ID: 1, Instructions: "**Stir** well <script>alert(1)</script>"}
	out := r.Render(recipe)
	if !strings.Contains(out, "<strong>Stir</strong>") {
		t.Fatalf("expected markdown rendered, got %q", out)
	}
	if strings.Contains(out, "<script>") {
		t.Fatalf("expected script stripped, got %q", out)
	}
	if r.Len() != 1 {
		t.Fatalf("expected one cached entry, got %d", r.Len())
	}

	r.Render(recipe)
	if r.Len() != 1 {
		t.Fatalf("expected cache hit, got %d entries", r.Len())
	}
	if r.Render(database.Recipe{Instructions: "plain"}) == "" || r.Len() != 1 {
		t.Fatalf("unsaved recipes must not be cached")
	}
}
