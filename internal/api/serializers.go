package api

import (
	"context"
	"time"

	"recipebox/internal/database"
	"recipebox/internal/recipe"
	"recipebox/internal/relation"
)

type userResponse struct {
	ID         uint      `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	IsActive   bool      `json:"is_active"`
	DateJoined time.Time `json:"date_joined"`
}

type tokensResponse struct {
	Refresh string `json:"refresh"`
	Access  string `json:"access"`
}

type authResponse struct {
	userResponse
	Tokens tokensResponse `json:"tokens"`
}

type authorResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

type recipeResponse struct {
	ID               uint           `json:"id"`
	Author           authorResponse `json:"author"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Ingredients      []string       `json:"ingredients"`
	Instructions     string         `json:"instructions"`
	InstructionsHTML string         `json:"instructions_html"`
	PrepTimeMinutes  int            `json:"prep_time_minutes"`
	CookTimeMinutes  int            `json:"cook_time_minutes"`
	Servings         int            `json:"servings"`
	Difficulty       string         `json:"difficulty"`
	Cuisine          string         `json:"cuisine"`
	LikesCount       int64          `json:"likes_count"`
	BookmarksCount   int64          `json:"bookmarks_count"`
	IsLiked          *bool          `json:"is_liked,omitempty"`
	IsBookmarked     *bool          `json:"is_bookmarked,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

type profileResponse struct {
	Bio       string `json:"bio"`
	Bookmarks []uint `json:"bookmarks"`
}

type avatarResponse struct {
	Avatar    string `json:"avatar"`
	AvatarURL string `json:"avatar_url"`
}

func newUserResponse(u *database.User) userResponse {
	return userResponse{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		IsActive:   u.IsActive,
		DateJoined: u.CreatedAt,
	}
}

// recipeSerializer 组装菜谱响应，批量查询计数与当前用户的关系状态。
type recipeSerializer struct {
	likes     *relation.Store
	bookmarks *relation.Store
	renderer  *recipe.Renderer
}

func (s recipeSerializer) one(ctx context.Context, r database.Recipe, viewer uint) (recipeResponse, error) {
	out, err := s.many(ctx, []database.Recipe{r}, viewer)
	if err != nil {
		return recipeResponse{}, err
	}
	return out[0], nil
}

// many 序列化 recipes；viewer 为 0 表示匿名，此时不输出 is_liked / is_bookmarked。
func (s recipeSerializer) many(ctx context.Context, recipes []database.Recipe, viewer uint) ([]recipeResponse, error) {
	ids := make([]uint, 0, len(recipes))
	for _, r := range recipes {
		ids = append(ids, r.ID)
	}

	likeCounts, err := s.likes.Counts(ctx, ids)
	if err != nil {
		return nil, err
	}
	bookmarkCounts, err := s.bookmarks.Counts(ctx, ids)
	if err != nil {
		return nil, err
	}

	var liked, bookmarked map[uint]bool
	if viewer != 0 {
		if liked, err = s.likes.RelatedAmong(ctx, viewer, ids); err != nil {
			return nil, err
		}
		if bookmarked, err = s.bookmarks.RelatedAmong(ctx, viewer, ids); err != nil {
			return nil, err
		}
	}

	out := make([]recipeResponse, 0, len(recipes))
	for _, r := range recipes {
		resp := recipeResponse{
			ID:               r.ID,
			Author:           authorResponse{ID: r.Author.ID, Username: r.Author.Username},
			Title:            r.Title,
			Description:      r.Description,
			Ingredients:      recipe.Ingredients(r),
			Instructions:     r.Instructions,
			InstructionsHTML: s.renderer.Render(r),
			PrepTimeMinutes:  r.PrepTimeMinutes,
			CookTimeMinutes:  r.CookTimeMinutes,
			Servings:         r.Servings,
			Difficulty:       r.Difficulty,
			Cuisine:          r.Cuisine,
			LikesCount:       likeCounts[r.ID],
			BookmarksCount:   bookmarkCounts[r.ID],
			CreatedAt:        r.CreatedAt,
			UpdatedAt:        r.UpdatedAt,
		}
		if viewer != 0 {
			isLiked, isBookmarked := liked[r.ID], bookmarked[r.ID]
			resp.IsLiked = &isLiked
			resp.IsBookmarked = &isBookmarked
		}
		out = append(out, resp)
	}
	return out, nil
}
