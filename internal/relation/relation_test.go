package relation_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"recipebox/internal/database"
	"recipebox/internal/database/dbtest"
	"recipebox/internal/relation"
)

func TestToggleIsSymmetric(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	author := dbtest.SeedUser(t, db, "author")
	fan := dbtest.SeedUser(t, db, "fan")
	recipe := dbtest.SeedRecipe(t, db, author.ID, "Soup")
	likes := relation.NewStore(db, relation.Likes)

	outcome, err := likes.Toggle(ctx, fan.ID, recipe.ID)
	if err != nil || outcome != relation.Added {
		t.Fatalf("first toggle: outcome=%v err=%v", outcome, err)
	}
	if ok, _ := likes.Exists(ctx, fan.ID, recipe.ID); !ok {
		t.Fatalf("expected like to exist after first toggle")
	}

	outcome, err = likes.Toggle(ctx, fan.ID, recipe.ID)
	if err != nil || outcome != relation.Removed {
		t.Fatalf("second toggle: outcome=%v err=%v", outcome, err)
	}
	if ok, _ := likes.Exists(ctx, fan.ID, recipe.ID); ok {
		t.Fatalf("expected like to be gone after second toggle")
	}
}

func TestRemoveAbsentRelationFails(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	author := dbtest.SeedUser(t, db, "author")
	recipe := dbtest.SeedRecipe(t, db, author.ID, "Soup")
	likes := relation.NewStore(db, relation.Likes)

	if err := likes.Remove(ctx, author.ID, recipe.ID); !errors.Is(err, relation.ErrNotRelated) {
		t.Fatalf("expected ErrNotRelated, got %v", err)
	}

	var count int64
	db.Model(&database.RecipeLike{}).Count(&count)
	if count != 0 {
		t.Fatalf("remove must never create a like, found %d", count)
	}
}

func TestUnknownRecipeIsNotFound(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	user := dbtest.SeedUser(t, db, "someone")
	bookmarks := relation.NewStore(db, relation.Bookmarks)

	if _, err := bookmarks.Toggle(ctx, user.ID, 404); !errors.Is(err, relation.ErrRecipeNotFound) {
		t.Fatalf("toggle: expected ErrRecipeNotFound, got %v", err)
	}
	if err := bookmarks.Remove(ctx, user.ID, 404); !errors.Is(err, relation.ErrRecipeNotFound) {
		t.Fatalf("remove: expected ErrRecipeNotFound, got %v", err)
	}
	if err := bookmarks.Ensure(ctx, user.ID, 404); !errors.Is(err, relation.ErrRecipeNotFound) {
		t.Fatalf("ensure: expected ErrRecipeNotFound, got %v", err)
	}
}

// dbtest 只开一个连接，这里的 Toggle 实际上逐个执行：每隔一次插入都会撞上唯一索引，
// 测到的是冲突后转为删除的分支。真正的并发插入竞争由 Postgres 上的唯一索引兜底。
func TestConcurrentTogglesKeepAtMostOneRow(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	author := dbtest.SeedUser(t, db, "author")
	fan := dbtest.SeedUser(t, db, "fan")
	recipe := dbtest.SeedRecipe(t, db, author.ID, "Stew")
	likes := relation.NewStore(db, relation.Likes)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := likes.Toggle(ctx, fan.ID, recipe.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("toggle failed: %v", err)
	}

	var count int64
	db.Model(&database.RecipeLike{}).Where("user_id = ? AND recipe_id = ?", fan.ID, recipe.ID).Count(&count)
	if count > 1 {
		t.Fatalf("expected at most one like row, found %d", count)
	}
}

func TestEnsureAndDiscardAreIdempotent(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	author := dbtest.SeedUser(t, db, "author")
	recipe := dbtest.SeedRecipe(t, db, author.ID, "Pie")
	bookmarks := relation.NewStore(db, relation.Bookmarks)

	for i := 0; i < 2; i++ {
		if err := bookmarks.Ensure(ctx, author.ID, recipe.ID); err != nil {
			t.Fatalf("ensure #%d: %v", i, err)
		}
	}
	ids, err := bookmarks.RecipeIDs(ctx, author.ID)
	if err != nil || len(ids) != 1 || ids[0] != recipe.ID {
		t.Fatalf("expected single bookmark, got %v err=%v", ids, err)
	}

	for i := 0; i < 2; i++ {
		if err := bookmarks.Discard(ctx, author.ID, recipe.ID); err != nil {
			t.Fatalf("discard #%d: %v", i, err)
		}
	}
	if ok, _ := bookmarks.Exists(ctx, author.ID, recipe.ID); ok {
		t.Fatalf("expected bookmark to be discarded")
	}
}

func TestLikesAndBookmarksAreIndependent(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	author := dbtest.SeedUser(t, db, "author")
	recipe := dbtest.SeedRecipe(t, db, author.ID, "Tart")
	likes := relation.NewStore(db, relation.Likes)
	bookmarks := relation.NewStore(db, relation.Bookmarks)

	if _, err := likes.Toggle(ctx, author.ID, recipe.ID); err != nil {
		t.Fatalf("like: %v", err)
	}
	if ok, _ := bookmarks.Exists(ctx, author.ID, recipe.ID); ok {
		t.Fatalf("liking must not bookmark")
	}
}

func TestCountsAndRelatedAmong(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	author := dbtest.SeedUser(t, db, "author")
	a := dbtest.SeedUser(t, db, "a")
	b := dbtest.SeedUser(t, db, "b")
	first := dbtest.SeedRecipe(t, db, author.ID, "First")
	second := dbtest.SeedRecipe(t, db, author.ID, "Second")
	likes := relation.NewStore(db, relation.Likes)

	for _, userID := range []uint{a.ID, b.ID} {
		if _, err := likes.Toggle(ctx, userID, first.ID); err != nil {
			t.Fatalf("like: %v", err)
		}
	}

	counts, err := likes.Counts(ctx, []uint{first.ID, second.ID})
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts[first.ID] != 2 || counts[second.ID] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}

	related, err := likes.RelatedAmong(ctx, a.ID, []uint{first.ID, second.ID})
	if err != nil {
		t.Fatalf("related among: %v", err)
	}
	if !related[first.ID] || related[second.ID] {
		t.Fatalf("unexpected related set %v", related)
	}
}

func TestReplaceSwapsWholeSet(t *testing.T) {
	db := dbtest.Open(t)
	ctx := context.Background()
	author := dbtest.SeedUser(t, db, "author")
	first := dbtest.SeedRecipe(t, db, author.ID, "First")
	second := dbtest.SeedRecipe(t, db, author.ID, "Second")
	bookmarks := relation.NewStore(db, relation.Bookmarks)

	if err := bookmarks.Ensure(ctx, author.ID, first.ID); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := bookmarks.Replace(ctx, db, author.ID, []uint{second.ID, second.ID}); err != nil {
		t.Fatalf("replace: %v", err)
	}
	ids, _ := bookmarks.RecipeIDs(ctx, author.ID)
	if len(ids) != 1 || ids[0] != second.ID {
		t.Fatalf("expected only second recipe, got %v", ids)
	}

	if err := bookmarks.Replace(ctx, db, author.ID, []uint{first.ID, 999}); !errors.Is(err, relation.ErrRecipeNotFound) {
		t.Fatalf("expected ErrRecipeNotFound, got %v", err)
	}
	ids, _ = bookmarks.RecipeIDs(ctx, author.ID)
	if len(ids) != 1 || ids[0] != second.ID {
		t.Fatalf("failed replace must not change the set, got %v", ids)
	}
}
