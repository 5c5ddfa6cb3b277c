package recipe

import (
	"strings"

	"recipebox/internal/validate"
)

// Input 是创建与整体更新菜谱的请求体。
type Input struct {
	Title           string   `json:"title" validate:"required,max=255"`
	Description     string   `json:"description" validate:"max=2000"`
	Ingredients     []string `json:"ingredients" validate:"min=1,max=100,dive,required,max=255"`
	Instructions    string   `json:"instructions" validate:"required,max=20000"`
	PrepTimeMinutes int      `json:"prep_time_minutes" validate:"min=0,max=10080"`
	CookTimeMinutes int      `json:"cook_time_minutes" validate:"min=0,max=10080"`
	Servings        int      `json:"servings" validate:"min=0,max=1000"`
	Difficulty      string   `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Cuisine         string   `json:"cuisine" validate:"max=64"`
}

func (in Input) normalized() Input {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Instructions = strings.TrimSpace(in.Instructions)
	in.Difficulty = strings.ToLower(strings.TrimSpace(in.Difficulty))
	in.Cuisine = strings.TrimSpace(in.Cuisine)

	items := make([]string, 0, len(in.Ingredients))
	for _, item := range in.Ingredients {
		items = append(items, strings.TrimSpace(item))
	}
	in.Ingredients = items
	return in
}

// ValidateInput 检查菜谱字段。配料中的空项以 ingredients[i] 报告。
func ValidateInput(in Input) error {
	return validate.Struct(in).Err()
}
