package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"letsblog/internal/featureflags"
	"letsblog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingObserver collects published snapshots.
type recordingObserver struct {
	mu    sync.Mutex
	snaps []*models.Snapshot
}

func (o *recordingObserver) Publish(_ context.Context, snap *models.Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.snaps = append(o.snaps, snap)
}

func (o *recordingObserver) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.snaps)
}

func (o *recordingObserver) last() *models.Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.snaps) == 0 {
		return nil
	}
	return o.snaps[len(o.snaps)-1]
}

// assertKind asserts that err is an AppError of the given kind.
func assertKind(t *testing.T, kind *models.AppError, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, kind.Code, appErr.Code)
	assert.True(t, errors.Is(err, kind))
}

func newStoreWithUser(t *testing.T, username string) *ContentStore {
	t.Helper()
	s := NewInMemoryContentStore()
	_, err := s.Signup(context.Background(), username, "pw")
	require.NoError(t, err)
	return s
}

func TestContentStore_Signup(t *testing.T) {
	ctx := context.Background()

	t.Run("activates the new account", func(t *testing.T) {
		s := NewInMemoryContentStore()
		session, err := s.Signup(ctx, "alice", "pw1")
		require.NoError(t, err)
		assert.Equal(t, "alice", session.Username)
		assert.Equal(t, "alice", s.Session(ctx).Username)
	})

	t.Run("missing fields", func(t *testing.T) {
		s := NewInMemoryContentStore()
		for _, tc := range [][2]string{{"", "pw"}, {"alice", ""}, {"", ""}} {
			_, err := s.Signup(ctx, tc[0], tc[1])
			assertKind(t, models.ErrMissingField, err)
		}
		assert.Nil(t, s.Session(ctx))
	})

	t.Run("duplicate leaves registry and session unchanged", func(t *testing.T) {
		s := NewInMemoryContentStore()
		_, err := s.Signup(ctx, "alice", "pw1")
		require.NoError(t, err)
		_, err = s.Signup(ctx, "bob", "pw2")
		require.NoError(t, err)

		_, err = s.Signup(ctx, "alice", "different")
		assertKind(t, models.ErrDuplicateUser, err)
		assert.Equal(t, "bob", s.Session(ctx).Username)

		// the original password still works, the rejected one does not
		_, err = s.Login(ctx, "alice", "different")
		assertKind(t, models.ErrInvalidCredentials, err)
		_, err = s.Login(ctx, "alice", "pw1")
		require.NoError(t, err)
	})
}

func TestContentStore_Login(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryContentStore()
	_, err := s.Signup(ctx, "alice", "pw1")
	require.NoError(t, err)
	_, err = s.Signup(ctx, "bob", "pw2")
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "alice", "nope"},
		{"unknown user", "carol", "pw1"},
		{"password of another user", "alice", "pw2"},
		{"case differs", "Alice", "pw1"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Login(ctx, tt.username, tt.password)
			assertKind(t, models.ErrInvalidCredentials, err)
			assert.Equal(t, "bob", s.Session(ctx).Username, "existing session must survive a failed login")
		})
	}

	session, err := s.Login(ctx, "alice", "pw1")
	require.NoError(t, err)
	assert.Equal(t, &models.Session{Username: "alice"}, session)
	assert.Equal(t, session, s.Session(ctx))
}

func TestContentStore_LogoutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newStoreWithUser(t, "alice")

	s.Logout(ctx)
	assert.Nil(t, s.Session(ctx))
	s.Logout(ctx)
	assert.Nil(t, s.Session(ctx))
}

func TestContentStore_CreatePost(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a session", func(t *testing.T) {
		s := NewInMemoryContentStore()
		_, err := s.CreatePost(ctx, "t", "c", "General")
		assertKind(t, models.ErrUnauthenticated, err)
		posts, err := s.Posts(ctx)
		require.NoError(t, err)
		assert.Empty(t, posts)
	})

	t.Run("validation", func(t *testing.T) {
		s := newStoreWithUser(t, "alice")
		_, err := s.CreatePost(ctx, "", "c", "General")
		assertKind(t, models.ErrMissingField, err)
		_, err = s.CreatePost(ctx, "t", "", "General")
		assertKind(t, models.ErrMissingField, err)
		_, err = s.CreatePost(ctx, "t", "c", "Gardening")
		assertKind(t, models.ErrInvalidCategory, err)
		posts, err := s.Posts(ctx)
		require.NoError(t, err)
		assert.Empty(t, posts)
	})

	t.Run("appends in insertion order with zeroed counters", func(t *testing.T) {
		s := newStoreWithUser(t, "alice")
		first, err := s.CreatePost(ctx, "first", "one", "Tech")
		require.NoError(t, err)
		second, err := s.CreatePost(ctx, "second", "two", "")
		require.NoError(t, err)
		assert.Greater(t, second, first)

		posts, err := s.Posts(ctx)
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, first, posts[0].ID)
		assert.Equal(t, second, posts[1].ID)
		assert.Equal(t, models.CategoryTech, posts[0].Category)
		assert.Equal(t, models.CategoryGeneral, posts[1].Category)
		assert.Equal(t, "alice", posts[0].Author)
		assert.Zero(t, posts[0].Likes)
		assert.Zero(t, posts[0].Dislikes)
		assert.Empty(t, posts[0].Comments)
	})
}

func TestContentStore_EditPost(t *testing.T) {
	ctx := context.Background()
	s := newStoreWithUser(t, "alice")
	id, err := s.CreatePost(ctx, "Hello", "World", "Life")
	require.NoError(t, err)
	require.NoError(t, s.Like(ctx, id))
	_, err = s.AddComment(ctx, id, "first!")
	require.NoError(t, err)

	_, err = s.Signup(ctx, "bob", "pw")
	require.NoError(t, err)

	err = s.EditPost(ctx, id, "Hijacked", "content")
	assertKind(t, models.ErrForbidden, err)
	post, err := s.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Hello", post.Title)
	assert.Equal(t, "World", post.Content)

	err = s.EditPost(ctx, 999, "x", "y")
	assertKind(t, models.ErrNotFound, err)

	s.Logout(ctx)
	err = s.EditPost(ctx, id, "x", "y")
	assertKind(t, models.ErrUnauthenticated, err)

	_, err = s.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	require.NoError(t, s.EditPost(ctx, id, "", "Only content"))
	post, err = s.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Hello", post.Title)
	assert.Equal(t, "Only content", post.Content)

	require.NoError(t, s.EditPost(ctx, id, "Only title", ""))
	post, err = s.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Only title", post.Title)
	assert.Equal(t, "Only content", post.Content)

	require.NoError(t, s.EditPost(ctx, id, "Hello again", "New world"))
	post, err = s.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Hello again", post.Title)
	assert.Equal(t, "New world", post.Content)
	assert.Equal(t, id, post.ID)
	assert.Equal(t, "alice", post.Author)
	assert.Equal(t, models.CategoryLife, post.Category)
	assert.Equal(t, 1, post.Likes)
	require.Len(t, post.Comments, 1)
	assert.Equal(t, "first!", post.Comments[0].Text)
}

func TestContentStore_DeletePost(t *testing.T) {
	ctx := context.Background()
	s := newStoreWithUser(t, "alice")
	keep, err := s.CreatePost(ctx, "keep", "me", "General")
	require.NoError(t, err)
	drop, err := s.CreatePost(ctx, "drop", "me", "General")
	require.NoError(t, err)
	_, err = s.AddComment(ctx, drop, "bye")
	require.NoError(t, err)

	_, err = s.Signup(ctx, "bob", "pw")
	require.NoError(t, err)
	err = s.DeletePost(ctx, drop)
	assertKind(t, models.ErrForbidden, err)
	_, err = s.GetPost(ctx, drop)
	require.NoError(t, err)

	_, err = s.Login(ctx, "alice", "pw")
	require.NoError(t, err)
	require.NoError(t, s.DeletePost(ctx, drop))

	_, err = s.GetPost(ctx, drop)
	assertKind(t, models.ErrNotFound, err)
	err = s.DeletePost(ctx, drop)
	assertKind(t, models.ErrNotFound, err)

	posts, err := s.Posts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, keep, posts[0].ID)
}

func TestContentStore_ReactionsCountExactly(t *testing.T) {
	ctx := context.Background()
	s := newStoreWithUser(t, "alice")
	id, err := s.CreatePost(ctx, "t", "c", "General")
	require.NoError(t, err)

	// reactions need no session
	s.Logout(ctx)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Like(ctx, id))
	}
	require.NoError(t, s.Dislike(ctx, id))

	post, err := s.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 3, post.Likes)
	assert.Equal(t, 1, post.Dislikes)

	assertKind(t, models.ErrNotFound, s.Like(ctx, 404))
	assertKind(t, models.ErrNotFound, s.Dislike(ctx, 404))
}

func TestContentStore_ConcurrentLikesAreSerialized(t *testing.T) {
	ctx := context.Background()
	s := newStoreWithUser(t, "alice")
	id, err := s.CreatePost(ctx, "t", "c", "General")
	require.NoError(t, err)

	const workers, perWorker = 8, 25
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_ = s.Like(ctx, id)
				_ = s.Dislike(ctx, id)
			}
		}()
	}
	wg.Wait()

	post, err := s.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, workers*perWorker, post.Likes)
	assert.Equal(t, workers*perWorker, post.Dislikes)
}

func TestContentStore_OneVotePerUserFlag(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryContentStore(WithFeatureFlags(featureflags.NewManager("one_vote_per_user=on")))
	_, err := s.Signup(ctx, "alice", "pw")
	require.NoError(t, err)
	id, err := s.CreatePost(ctx, "t", "c", "General")
	require.NoError(t, err)

	require.NoError(t, s.Like(ctx, id))
	assertKind(t, models.ErrAlreadyReacted, s.Like(ctx, id))
	assertKind(t, models.ErrAlreadyReacted, s.Dislike(ctx, id))

	_, err = s.Signup(ctx, "bob", "pw")
	require.NoError(t, err)
	require.NoError(t, s.Dislike(ctx, id))

	s.Logout(ctx)
	assertKind(t, models.ErrUnauthenticated, s.Like(ctx, id))

	post, err := s.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, post.Likes)
	assert.Equal(t, 1, post.Dislikes)
}

func TestContentStore_AddComment(t *testing.T) {
	ctx := context.Background()
	s := newStoreWithUser(t, "alice")
	id, err := s.CreatePost(ctx, "t", "c", "General")
	require.NoError(t, err)

	_, err = s.AddComment(ctx, id, "")
	assertKind(t, models.ErrMissingField, err)
	_, err = s.AddComment(ctx, 404, "hello")
	assertKind(t, models.ErrNotFound, err)

	c1, err := s.AddComment(ctx, id, "one")
	require.NoError(t, err)
	_, err = s.Signup(ctx, "bob", "pw")
	require.NoError(t, err)
	c2, err := s.AddComment(ctx, id, "two")
	require.NoError(t, err)
	assert.NotEqual(t, c1, c2)

	s.Logout(ctx)
	_, err = s.AddComment(ctx, id, "anonymous")
	assertKind(t, models.ErrUnauthenticated, err)

	post, err := s.GetPost(ctx, id)
	require.NoError(t, err)
	require.Len(t, post.Comments, 2)
	assert.Equal(t, models.Comment{ID: c1, Text: "one", Author: "alice"}, *post.Comments[0])
	assert.Equal(t, models.Comment{ID: c2, Text: "two", Author: "bob"}, *post.Comments[1])
}

func TestContentStore_Search(t *testing.T) {
	ctx := context.Background()
	s := newStoreWithUser(t, "alice")

	mustCreate := func(title, content, category string) uint {
		id, err := s.CreatePost(ctx, title, content, category)
		require.NoError(t, err)
		return id
	}
	byCategory := mustCreate("Gadgets", "new phone", "Tech")
	byTitle := mustCreate("TECHNO night", "music", "Life")
	byContent := mustCreate("Trip", "fintech conference in Lisbon", "Travel")
	mustCreate("Garden", "tomatoes", "General")

	got, err := s.Search(ctx, "tech")
	require.NoError(t, err)
	ids := make([]uint, 0, len(got))
	for _, p := range got {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []uint{byCategory, byTitle, byContent}, ids)

	all, err := s.Search(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	none, err := s.Search(ctx, "zzz")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestContentStore_ReturnedPostsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := newStoreWithUser(t, "alice")
	id, err := s.CreatePost(ctx, "t", "c", "General")
	require.NoError(t, err)

	posts, err := s.Posts(ctx)
	require.NoError(t, err)
	posts[0].Likes = 100
	posts[0].Comments = append(posts[0].Comments, &models.Comment{Text: "forged"})

	post, err := s.GetPost(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, post.Likes)
	assert.Empty(t, post.Comments)
}

func TestContentStore_PublishesSnapshotsAfterMutations(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	s := NewInMemoryContentStore(WithObserver(obs))

	_, err := s.Signup(ctx, "alice", "pw")
	require.NoError(t, err)
	require.Equal(t, 1, obs.count())
	assert.Equal(t, "alice", obs.last().Session.Username)

	id, err := s.CreatePost(ctx, "t", "c", "General")
	require.NoError(t, err)
	require.NoError(t, s.Like(ctx, id))
	require.Equal(t, 3, obs.count())
	assert.Equal(t, uint64(3), obs.last().Sequence)
	require.Len(t, obs.last().Posts, 1)
	assert.Equal(t, 1, obs.last().Posts[0].Likes)

	// failures and reads publish nothing
	_, err = s.Signup(ctx, "alice", "pw")
	require.Error(t, err)
	_, err = s.Search(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, obs.count())

	s.Logout(ctx)
	assert.Equal(t, 4, obs.count())
	assert.Nil(t, obs.last().Session)

	s.Close()
	s.Logout(ctx)
	assert.Equal(t, 4, obs.count(), "closed store has no observers")
}

func TestContentStore_Snapshot(t *testing.T) {
	ctx := context.Background()
	s := newStoreWithUser(t, "alice")
	_, err := s.CreatePost(ctx, "Go", "generics", "Tech")
	require.NoError(t, err)
	_, err = s.CreatePost(ctx, "Rome", "pasta", "Travel")
	require.NoError(t, err)

	snap, err := s.Snapshot(ctx, "rome")
	require.NoError(t, err)
	assert.Equal(t, "alice", snap.Session.Username)
	assert.Equal(t, "rome", snap.Query)
	require.Len(t, snap.Posts, 1)
	assert.Equal(t, "Rome", snap.Posts[0].Title)
}

func TestContentStore_EndToEndScenario(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryContentStore()

	_, err := s.Signup(ctx, "alice", "pw1")
	require.NoError(t, err)
	id, err := s.CreatePost(ctx, "Hello", "World", "General")
	require.NoError(t, err)
	require.NoError(t, s.Like(ctx, id))
	require.NoError(t, s.Like(ctx, id))
	_, err = s.AddComment(ctx, id, "nice")
	require.NoError(t, err)

	posts, err := s.Posts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	post := posts[0]
	assert.Equal(t, 2, post.Likes)
	assert.Equal(t, 0, post.Dislikes)
	require.Len(t, post.Comments, 1)
	assert.Equal(t, "alice", post.Comments[0].Author)
	assert.Equal(t, "nice", post.Comments[0].Text)
}

func TestContentStore_ActorMustHoldSession(t *testing.T) {
	ctx := context.Background()
	s := newStoreWithUser(t, "alice")
	id, err := s.CreatePost(ctx, "Hello", "World", "")
	require.NoError(t, err)

	// bob logs in after alice's request was authenticated
	_, err = s.Signup(ctx, "bob", "pw")
	require.NoError(t, err)
	asAlice := WithActor(ctx, "alice")

	_, err = s.CreatePost(asAlice, "Mine", "really", "")
	assertKind(t, models.ErrUnauthenticated, err)
	_, err = s.AddComment(asAlice, id, "hi")
	assertKind(t, models.ErrUnauthenticated, err)
	err = s.EditPost(asAlice, id, "x", "y")
	assertKind(t, models.ErrUnauthenticated, err)
	err = s.DeletePost(asAlice, id)
	assertKind(t, models.ErrUnauthenticated, err)

	posts, err := s.Posts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Empty(t, posts[0].Comments)

	asBob := WithActor(ctx, "bob")
	_, err = s.CreatePost(asBob, "Bob's", "post", "")
	require.NoError(t, err)
	posts, err = s.Posts(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "bob", posts[1].Author)
}

func TestContentStore_CaptureSnapshotMatchesPublished(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	s := NewInMemoryContentStore(WithObserver(obs))
	_, err := s.Signup(ctx, "alice", "pw")
	require.NoError(t, err)

	captureCtx, captured := CaptureSnapshot(ctx)
	assert.Nil(t, captured())
	id, err := s.CreatePost(captureCtx, "Hello", "World", "")
	require.NoError(t, err)

	snap := captured()
	require.NotNil(t, snap)
	assert.Same(t, obs.last(), snap)
	require.Len(t, snap.Posts, 1)
	assert.Equal(t, id, snap.Posts[0].ID)

	// later changes by other callers do not leak into the captured snapshot
	require.NoError(t, s.Like(ctx, id))
	assert.Equal(t, 0, captured().Posts[0].Likes)
	assert.Less(t, captured().Sequence, obs.last().Sequence)

	failCtx, failed := CaptureSnapshot(ctx)
	_, err = s.CreatePost(failCtx, "", "", "")
	require.Error(t, err)
	assert.Nil(t, failed())
}

func TestContentStore_Stats(t *testing.T) {
	ctx := context.Background()
	s := newStoreWithUser(t, "alice")
	_, err := s.Signup(ctx, "bob", "pw")
	require.NoError(t, err)
	id, err := s.CreatePost(ctx, "Hello", "World", "")
	require.NoError(t, err)
	_, err = s.AddComment(ctx, id, "one")
	require.NoError(t, err)
	_, err = s.AddComment(ctx, id, "two")
	require.NoError(t, err)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Users: 2, Posts: 1, Comments: 2}, st)
}
