// Package seed fills a content store with fake demo data. All data goes
// through the public store operations, so every store invariant holds for
// seeded content too.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"letsblog/internal/models"
	"letsblog/internal/observability"

	"github.com/brianvoe/gofakeit/v6"
)

// Store is the subset of the content store used for seeding.
type Store interface {
	Signup(ctx context.Context, username, password string) (*models.Session, error)
	Login(ctx context.Context, username, password string) (*models.Session, error)
	Logout(ctx context.Context)
	CreatePost(ctx context.Context, title, content, category string) (uint, error)
	Like(ctx context.Context, postID uint) error
	Dislike(ctx context.Context, postID uint) error
	AddComment(ctx context.Context, postID uint, text string) (uint, error)
}

// Options controls how much demo data is generated.
type Options struct {
	Posts       int
	Users       int
	MaxComments int
	MaxLikes    int
	MaxDislikes int
	// Seed makes the output reproducible; zero picks a time-based seed.
	Seed int64
}

// Account is a seeded user. Passwords are returned so demo users can log in.
type Account struct {
	Username string
	Password string
}

// Result summarises what was seeded.
type Result struct {
	Accounts []Account
	PostIDs  []uint
	Comments int
}

func (o Options) withDefaults() Options {
	if o.Users <= 0 {
		o.Users = 3
	}
	if o.MaxComments <= 0 {
		o.MaxComments = 3
	}
	if o.MaxLikes <= 0 {
		o.MaxLikes = 10
	}
	if o.MaxDislikes <= 0 {
		o.MaxDislikes = 3
	}
	if o.Seed == 0 {
		o.Seed = time.Now().UnixNano()
	}
	return o
}

// Demo creates opts.Posts fake posts from a handful of fake users with random
// categories, reactions and comments. The store is logged out afterwards.
func Demo(ctx context.Context, store Store, opts Options) (*Result, error) {
	if opts.Posts <= 0 {
		return &Result{}, nil
	}
	opts = opts.withDefaults()
	f := gofakeit.New(opts.Seed)
	res := &Result{}
	defer store.Logout(ctx)

	for i := 0; i < opts.Users; i++ {
		acct, err := signupFake(ctx, f, store)
		if err != nil {
			return res, err
		}
		res.Accounts = append(res.Accounts, acct)
	}

	categories := models.Categories()
	for i := 0; i < opts.Posts; i++ {
		author := res.Accounts[f.IntRange(0, len(res.Accounts)-1)]
		if _, err := store.Login(ctx, author.Username, author.Password); err != nil {
			return res, fmt.Errorf("login %s: %w", author.Username, err)
		}

		category := categories[f.IntRange(0, len(categories)-1)]
		id, err := store.CreatePost(ctx, title(f), f.Paragraph(1, 3, 12, "\n"), string(category))
		if err != nil {
			return res, fmt.Errorf("create post: %w", err)
		}
		res.PostIDs = append(res.PostIDs, id)

		for n := f.IntRange(0, opts.MaxLikes); n > 0; n-- {
			if err := store.Like(ctx, id); err != nil && !errors.Is(err, models.ErrAlreadyReacted) {
				return res, fmt.Errorf("like post %d: %w", id, err)
			}
		}
		for n := f.IntRange(0, opts.MaxDislikes); n > 0; n-- {
			if err := store.Dislike(ctx, id); err != nil && !errors.Is(err, models.ErrAlreadyReacted) {
				return res, fmt.Errorf("dislike post %d: %w", id, err)
			}
		}

		for n := f.IntRange(0, opts.MaxComments); n > 0; n-- {
			commenter := res.Accounts[f.IntRange(0, len(res.Accounts)-1)]
			if _, err := store.Login(ctx, commenter.Username, commenter.Password); err != nil {
				return res, fmt.Errorf("login %s: %w", commenter.Username, err)
			}
			if _, err := store.AddComment(ctx, id, f.Sentence(f.IntRange(3, 10))); err != nil {
				return res, fmt.Errorf("comment on post %d: %w", id, err)
			}
			res.Comments++
		}
	}

	observability.Logger.InfoContext(ctx, "seeded demo content",
		"users", len(res.Accounts), "posts", len(res.PostIDs), "comments", res.Comments)
	return res, nil
}

func signupFake(ctx context.Context, f *gofakeit.Faker, store Store) (Account, error) {
	const attempts = 5
	for i := 0; i < attempts; i++ {
		acct := Account{
			Username: strings.ToLower(f.Username()),
			Password: f.Password(true, true, true, false, false, 12),
		}
		_, err := store.Signup(ctx, acct.Username, acct.Password)
		if err == nil {
			return acct, nil
		}
		if !errors.Is(err, models.ErrDuplicateUser) {
			return Account{}, fmt.Errorf("signup %s: %w", acct.Username, err)
		}
	}
	return Account{}, fmt.Errorf("no free username after %d attempts", attempts)
}

func title(f *gofakeit.Faker) string {
	return strings.TrimSuffix(f.Sentence(f.IntRange(2, 6)), ".")
}
