package repository

import (
	"context"

	"letsblog/internal/models"
)

// PostRepository defines the interface for post data operations. Every method
// returning posts hands out copies; mutations go through Update or the
// dedicated counters.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context) ([]*models.Post, error)
	Search(ctx context.Context, query string) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id uint) error
	AddComment(ctx context.Context, postID uint, comment *models.Comment) error
	IncrementReaction(ctx context.Context, postID uint, kind models.ReactionKind) (*models.Post, error)
	HasReacted(ctx context.Context, username string, postID uint) (bool, error)
	RecordReaction(ctx context.Context, username string, postID uint, kind models.ReactionKind) error
}

type reactionKey struct {
	username string
	postID   uint
}

// memoryPostRepository keeps posts in insertion order. It does no locking of
// its own: callers serialize access.
type memoryPostRepository struct {
	posts         []*models.Post
	nextPostID    uint
	nextCommentID uint
	reactions     map[reactionKey]models.ReactionKind
}

// NewMemoryPostRepository creates an empty in-memory post repository
func NewMemoryPostRepository() PostRepository {
	return &memoryPostRepository{
		nextPostID:    1,
		nextCommentID: 1,
		reactions:     make(map[reactionKey]models.ReactionKind),
	}
}

// Create assigns the next post ID and appends the post.
func (r *memoryPostRepository) Create(_ context.Context, post *models.Post) error {
	post.ID = r.nextPostID
	r.nextPostID++
	if post.Comments == nil {
		post.Comments = []*models.Comment{}
	}
	r.posts = append(r.posts, post.Clone())
	return nil
}

func (r *memoryPostRepository) GetByID(_ context.Context, id uint) (*models.Post, error) {
	i := r.indexOf(id)
	if i < 0 {
		return nil, models.NewNotFoundError("Post", id)
	}
	return r.posts[i].Clone(), nil
}

func (r *memoryPostRepository) List(_ context.Context) ([]*models.Post, error) {
	out := make([]*models.Post, 0, len(r.posts))
	for _, p := range r.posts {
		out = append(out, p.Clone())
	}
	return out, nil
}

func (r *memoryPostRepository) Search(_ context.Context, query string) ([]*models.Post, error) {
	out := make([]*models.Post, 0, len(r.posts))
	for _, p := range r.posts {
		if p.Matches(query) {
			out = append(out, p.Clone())
		}
	}
	return out, nil
}

func (r *memoryPostRepository) Update(_ context.Context, post *models.Post) error {
	i := r.indexOf(post.ID)
	if i < 0 {
		return models.NewNotFoundError("Post", post.ID)
	}
	r.posts[i] = post.Clone()
	return nil
}

// Delete removes the post together with its comments and recorded reactions.
func (r *memoryPostRepository) Delete(_ context.Context, id uint) error {
	i := r.indexOf(id)
	if i < 0 {
		return models.NewNotFoundError("Post", id)
	}
	r.posts = append(r.posts[:i], r.posts[i+1:]...)
	for k := range r.reactions {
		if k.postID == id {
			delete(r.reactions, k)
		}
	}
	return nil
}

// AddComment assigns the next comment ID and appends the comment to the post.
func (r *memoryPostRepository) AddComment(_ context.Context, postID uint, comment *models.Comment) error {
	i := r.indexOf(postID)
	if i < 0 {
		return models.NewNotFoundError("Post", postID)
	}
	comment.ID = r.nextCommentID
	r.nextCommentID++
	cc := *comment
	r.posts[i].Comments = append(r.posts[i].Comments, &cc)
	return nil
}

func (r *memoryPostRepository) IncrementReaction(_ context.Context, postID uint, kind models.ReactionKind) (*models.Post, error) {
	i := r.indexOf(postID)
	if i < 0 {
		return nil, models.NewNotFoundError("Post", postID)
	}
	switch kind {
	case models.ReactionLike:
		r.posts[i].Likes++
	case models.ReactionDislike:
		r.posts[i].Dislikes++
	default:
		return nil, models.NewValidationError("unknown reaction " + string(kind))
	}
	return r.posts[i].Clone(), nil
}

func (r *memoryPostRepository) HasReacted(_ context.Context, username string, postID uint) (bool, error) {
	_, ok := r.reactions[reactionKey{username: username, postID: postID}]
	return ok, nil
}

func (r *memoryPostRepository) RecordReaction(_ context.Context, username string, postID uint, kind models.ReactionKind) error {
	if r.indexOf(postID) < 0 {
		return models.NewNotFoundError("Post", postID)
	}
	r.reactions[reactionKey{username: username, postID: postID}] = kind
	return nil
}

func (r *memoryPostRepository) indexOf(id uint) int {
	for i, p := range r.posts {
		if p.ID == id {
			return i
		}
	}
	return -1
}
