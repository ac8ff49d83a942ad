package service

import (
	"context"

	"letsblog/internal/featureflags"
	"letsblog/internal/models"
)

// Like increments the post's like counter by one.
func (s *ContentStore) Like(ctx context.Context, postID uint) error {
	return s.react(ctx, "like", postID, models.ReactionLike)
}

// Dislike increments the post's dislike counter by one.
func (s *ContentStore) Dislike(ctx context.Context, postID uint) error {
	return s.react(ctx, "dislike", postID, models.ReactionDislike)
}

// react applies a reaction. Reactions are repeatable and need no session
// unless the one_vote_per_user flag is on, in which case each user gets a
// single reaction of either kind per post.
func (s *ContentStore) react(ctx context.Context, op string, postID uint, kind models.ReactionKind) error {
	return s.mutate(ctx, op, map[string]interface{}{"post_id": postID}, func(ctx context.Context) error {
		if _, err := s.posts.GetByID(ctx, postID); err != nil {
			return err
		}

		var username string
		if s.session != nil {
			username = s.session.Username
		}
		if !s.flags.Enabled(featureflags.OneVotePerUser, username) {
			_, err := s.posts.IncrementReaction(ctx, postID, kind)
			return err
		}

		user, err := s.requireSession(ctx, "react to posts")
		if err != nil {
			return err
		}
		reacted, err := s.posts.HasReacted(ctx, user.Username, postID)
		if err != nil {
			return err
		}
		if reacted {
			return models.NewAlreadyReactedError(postID)
		}
		if _, err := s.posts.IncrementReaction(ctx, postID, kind); err != nil {
			return err
		}
		return s.posts.RecordReaction(ctx, user.Username, postID, kind)
	})
}
