// Package models contains data structures for the blog's domain models.
package models

import "strings"

// Category is one of the fixed post categories.
type Category string

const (
	CategoryGeneral Category = "General"
	CategoryTech    Category = "Tech"
	CategoryLife    Category = "Life"
	CategoryTravel  Category = "Travel"
)

// DefaultCategory is used when a post is created without a category.
const DefaultCategory = CategoryGeneral

// Categories returns the fixed category set in display order.
func Categories() []Category {
	return []Category{CategoryGeneral, CategoryTech, CategoryLife, CategoryTravel}
}

// ParseCategory resolves raw into a known category. Matching ignores case and
// surrounding whitespace; an empty value resolves to DefaultCategory.
func ParseCategory(raw string) (Category, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultCategory, nil
	}
	for _, c := range Categories() {
		if strings.EqualFold(raw, string(c)) {
			return c, nil
		}
	}
	return "", NewInvalidCategoryError(raw)
}

// Post represents a blog post.
type Post struct {
	ID       uint       `json:"id"`
	Title    string     `json:"title"`
	Content  string     `json:"content"`
	Author   string     `json:"author"`
	Category Category   `json:"category"`
	Likes    int        `json:"likes"`
	Dislikes int        `json:"dislikes"`
	Comments []*Comment `json:"comments"`
}

// Comment is a reply on a post. Comments are never edited or deleted on their own.
type Comment struct {
	ID     uint   `json:"id"`
	Text   string `json:"text"`
	Author string `json:"author"`
}

// Clone returns a deep copy of the post so callers cannot mutate stored state.
func (p *Post) Clone() *Post {
	if p == nil {
		return nil
	}
	out := *p
	out.Comments = make([]*Comment, len(p.Comments))
	for i, c := range p.Comments {
		cc := *c
		out.Comments[i] = &cc
	}
	return &out
}

// Matches reports whether the post's title, content or category contains
// query, ignoring case. An empty query matches every post.
func (p *Post) Matches(query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(p.Title), q) ||
		strings.Contains(strings.ToLower(p.Content), q) ||
		strings.Contains(strings.ToLower(string(p.Category)), q)
}

// ReactionKind distinguishes likes from dislikes.
type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)
