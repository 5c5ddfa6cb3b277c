package recipe

import (
	"bytes"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"recipebox/internal/database"
)

// Renderer 将做法（Markdown）渲染为净化后的 HTML。
// 结果按 (id, updated_at) 缓存，菜谱更新后旧条目自然失效。
type Renderer struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
	cache  *lru.Cache[string, string]
}

// NewRenderer 构造 Renderer，size 为缓存条目上限。
func NewRenderer(size int) (*Renderer, error) {
	if size <= 0 {
		size = 512
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("create render cache: %w", err)
	}

	policy := bluemonday.UGCPolicy()
	policy.RequireNoReferrerOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)

	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
		policy: policy,
		cache:  cache,
	}, nil
}

// Render 返回菜谱做法的 HTML。
func (r *Renderer) Render(recipe database.Recipe) string {
	key := fmt.Sprintf("%d:%d", recipe.ID, recipe.UpdatedAt.UnixNano())
	if out, ok := r.cache.Get(key); ok {
		return out
	}

	out := r.RenderMarkdown(recipe.Instructions)
	if recipe.ID != 0 {
		r.cache.Add(key, out)
	}
	return out
}

// RenderMarkdown 渲染任意 Markdown 文本，不经过缓存。
func (r *Renderer) RenderMarkdown(source string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(source), &buf); err != nil {
		return r.policy.Sanitize(source)
	}
	return r.policy.Sanitize(buf.String())
}

// Len 返回当前缓存的条目数。
func (r *Renderer) Len() int {
	return r.cache.Len()
}
