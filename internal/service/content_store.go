// Package service holds the content store: the single owner of users, the
// active session, posts, comments and reactions.
package service

import (
	"context"
	"log/slog"
	"sync"

	"letsblog/internal/featureflags"
	"letsblog/internal/models"
	"letsblog/internal/observability"
	"letsblog/internal/repository"
)

// Observer receives a snapshot after every successful mutating call.
// Publish runs outside the store lock; snapshots carry a sequence number so
// receivers can drop stale ones.
type Observer interface {
	Publish(ctx context.Context, snap *models.Snapshot)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, snap *models.Snapshot)

// Publish calls f.
func (f ObserverFunc) Publish(ctx context.Context, snap *models.Snapshot) { f(ctx, snap) }

// ContentStore owns the full application state. Every operation holds one
// mutex for its whole duration, so callers observe operations one at a time.
type ContentStore struct {
	mu        sync.Mutex
	users     repository.UserRepository
	posts     repository.PostRepository
	session   *models.UserAccount
	flags     *featureflags.Manager
	observers []Observer
	seq       uint64
	log       *observability.StoreLogger
}

// Option configures a ContentStore.
type Option func(*ContentStore)

// WithObserver registers an observer for snapshots.
func WithObserver(o Observer) Option {
	return func(s *ContentStore) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithFeatureFlags sets the flag manager consulted for optional behaviour.
func WithFeatureFlags(m *featureflags.Manager) Option {
	return func(s *ContentStore) { s.flags = m }
}

// WithLogger routes store logs to l instead of the global logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *ContentStore) { s.log = observability.NewStoreLoggerWith("content_store", l) }
}

// NewContentStore creates a store over the given repositories.
func NewContentStore(users repository.UserRepository, posts repository.PostRepository, opts ...Option) *ContentStore {
	s := &ContentStore{
		users: users,
		posts: posts,
		log:   observability.NewStoreLogger("content_store"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryContentStore creates a store backed by fresh in-memory repositories.
func NewInMemoryContentStore(opts ...Option) *ContentStore {
	return NewContentStore(repository.NewMemoryUserRepository(), repository.NewMemoryPostRepository(), opts...)
}

// AddObserver registers an observer after construction.
func (s *ContentStore) AddObserver(o Observer) {
	if o == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

// Close detaches all observers and ends the active session. The store must
// not be used afterwards.
func (s *ContentStore) Close() {
	s.mu.Lock()
	s.observers = nil
	s.session = nil
	s.mu.Unlock()
}

// mutate runs fn under the store lock and, on success, publishes a fresh
// snapshot to every observer once the lock is released.
func (s *ContentStore) mutate(ctx context.Context, op string, fields map[string]interface{}, fn func(context.Context) error) error {
	return s.run(ctx, op, fields, true, fn)
}

// read runs fn under the store lock without publishing.
func (s *ContentStore) read(ctx context.Context, op string, fn func(context.Context) error) error {
	return s.run(ctx, op, nil, false, fn)
}

func (s *ContentStore) run(ctx context.Context, op string, fields map[string]interface{}, publish bool, fn func(context.Context) error) error {
	span, ctx := observability.NewSpan(ctx, "store."+op)

	s.mu.Lock()
	if s.session != nil {
		ctx = observability.WithUsername(ctx, s.session.Username)
	}
	err := fn(ctx)
	var snap *models.Snapshot
	var observers []Observer
	if err == nil && publish {
		s.seq++
		var snapErr error
		snap, snapErr = s.snapshotLocked(ctx, "")
		if snapErr != nil {
			observability.Logger.ErrorContext(ctx, "snapshot failed",
				slog.String("operation", op), slog.String("error", snapErr.Error()))
		}
		observers = append(observers, s.observers...)
	}
	s.mu.Unlock()

	span.End(err)
	observability.RecordStoreOperation(op, err)
	if publish || err != nil {
		s.log.LogOperation(ctx, op, err, fields)
	}

	if snap != nil {
		recordSnapshot(ctx, snap)
		for _, o := range observers {
			o.Publish(ctx, snap)
		}
	}
	return err
}

func (s *ContentStore) snapshotLocked(ctx context.Context, query string) (*models.Snapshot, error) {
	posts, err := s.posts.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return &models.Snapshot{
		Sequence: s.seq,
		Session:  models.SessionFor(s.session),
		Posts:    posts,
		Query:    query,
	}, nil
}

// Snapshot returns the current session and posts, filtered by query when it
// is non-empty.
func (s *ContentStore) Snapshot(ctx context.Context, query string) (*models.Snapshot, error) {
	var snap *models.Snapshot
	err := s.read(ctx, "snapshot", func(ctx context.Context) error {
		var err error
		snap, err = s.snapshotLocked(ctx, query)
		return err
	})
	return snap, err
}

// Stats counts registered users, posts and comments.
type Stats struct {
	Users    int `json:"users"`
	Posts    int `json:"posts"`
	Comments int `json:"comments"`
}

// Stats returns the current content counts.
func (s *ContentStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.read(ctx, "stats", func(ctx context.Context) error {
		users, err := s.users.Count(ctx)
		if err != nil {
			return err
		}
		posts, err := s.posts.List(ctx)
		if err != nil {
			return err
		}
		st.Users = users
		st.Posts = len(posts)
		for _, p := range posts {
			st.Comments += len(p.Comments)
		}
		return nil
	})
	return st, err
}
