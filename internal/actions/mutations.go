package actions

import (
	"context"
	"strings"

	"github.com/five82/momento/internal/momento"
	"github.com/five82/momento/internal/queries"
	"github.com/five82/momento/internal/query"
)

func postSet(postID string) Set {
	return Set{
		Keys: keys(
			queries.PostKey(postID),
			queries.RecentPostsKey(),
			queries.InfinitePostsKey(),
			queries.CurrentUserKey(),
		),
		Prefixes: keys(query.K(queries.LikedPostsName), query.K(queries.SavedPostsName)),
	}
}

func notificationSet() Set {
	return Set{Keys: keys(queries.NotificationsKey(), queries.UnreadNotificationsKey())}
}

func chatSet() Set {
	return Set{Keys: keys(queries.ChatHistoryKey())}
}

// SendChat sends a prompt to the assistant.
func (r *Runner) SendChat(content string) *Pending[[]momento.ChatMessage] {
	const action = "send message to assistant"
	content = strings.TrimSpace(content)
	if content == "" {
		return invalid[[]momento.ChatMessage](r, action, "message is empty")
	}
	return run(r, action, "chat", chatSet(), func(ctx context.Context) ([]momento.ChatMessage, error) {
		return r.client().SendChatMessage(ctx, content)
	}, nil)
}

// RateReply sets or clears the feedback on an assistant reply.
func (r *Runner) RateReply(messageID string, feedback momento.Feedback) *Pending[struct{}] {
	const action = "update feedback"
	if messageID == "" {
		return invalid[struct{}](r, action, "message id required")
	}
	return run(r, action, "chat", chatSet(), noValue(func(ctx context.Context) error {
		return r.client().UpdateFeedback(ctx, messageID, feedback)
	}), nil)
}

// ClearChat deletes the assistant conversation.
func (r *Runner) ClearChat() *Pending[struct{}] {
	return run(r, "clear chat", "chat", chatSet(), noValue(r.client().ClearChat), nil)
}

// SendMessage sends a direct message to peerID.
func (r *Runner) SendMessage(peerID, content string) *Pending[momento.DirectMessage] {
	const action = "send message"
	content = strings.TrimSpace(content)
	switch {
	case peerID == "" || peerID == momento.AIPeerID:
		return invalid[momento.DirectMessage](r, action, "recipient required")
	case content == "":
		return invalid[momento.DirectMessage](r, action, "message is empty")
	}
	set := Set{Keys: keys(
		queries.ConversationKey(peerID),
		queries.ConversationPartnersKey(),
		queries.UnreadMessagesKey(),
	)}
	return run(r, action, "conversation/"+peerID, set, func(ctx context.Context) (momento.DirectMessage, error) {
		return r.client().SendMessage(ctx, peerID, content)
	}, nil)
}

// MarkConversationRead acknowledges peerID's messages. The badge queries are
// refetched before the mutation reports done, so a caller awaiting it can
// trust the zeroed count.
func (r *Runner) MarkConversationRead(peerID string) *Pending[struct{}] {
	const action = "mark conversation read"
	if peerID == "" || peerID == momento.AIPeerID {
		return invalid[struct{}](r, action, "peer required")
	}
	set := Set{Keys: keys(queries.UnreadMessagesKey(), queries.ConversationPartnersKey())}
	return run(r, action, "conversation/"+peerID, set, noValue(func(ctx context.Context) error {
		return r.client().MarkConversationRead(ctx, peerID)
	}), func(ctx context.Context, _ struct{}) {
		_, _ = r.q.UnreadMessages().Refetch(ctx)
		_, _ = r.q.ConversationPartners().Refetch(ctx)
	})
}

func followSet(targetID string) Set {
	return Set{
		Keys:     keys(queries.FollowersKey(targetID), queries.UserKey(targetID)),
		Prefixes: keys(query.K(queries.FollowingName)),
	}
}

// Follow makes the current user follow targetID.
func (r *Runner) Follow(targetID string) *Pending[struct{}] {
	if targetID == "" {
		return invalid[struct{}](r, "follow", "user required")
	}
	return run(r, "follow", "follow/"+targetID, followSet(targetID), noValue(func(ctx context.Context) error {
		return r.client().Follow(ctx, targetID)
	}), nil)
}

// Unfollow reverses Follow.
func (r *Runner) Unfollow(targetID string) *Pending[struct{}] {
	if targetID == "" {
		return invalid[struct{}](r, "unfollow", "user required")
	}
	return run(r, "unfollow", "follow/"+targetID, followSet(targetID), noValue(func(ctx context.Context) error {
		return r.client().Unfollow(ctx, targetID)
	}), nil)
}

func (r *Runner) postToggle(action, postID string, fn func(context.Context, string) (momento.Post, error)) *Pending[momento.Post] {
	if postID == "" {
		return invalid[momento.Post](r, action, "post required")
	}
	return run(r, action, "post/"+postID, postSet(postID), func(ctx context.Context) (momento.Post, error) {
		return fn(ctx, postID)
	}, nil)
}

func (r *Runner) LikePost(postID string) *Pending[momento.Post] {
	return r.postToggle("like post", postID, r.client().LikePost)
}

func (r *Runner) UnlikePost(postID string) *Pending[momento.Post] {
	return r.postToggle("unlike post", postID, r.client().UnlikePost)
}

func (r *Runner) SavePost(postID string) *Pending[momento.Post] {
	return r.postToggle("save post", postID, r.client().SavePost)
}

func (r *Runner) UnsavePost(postID string) *Pending[momento.Post] {
	return r.postToggle("unsave post", postID, r.client().UnsavePost)
}

// CreatePost publishes a post.
func (r *Runner) CreatePost(post momento.NewPost) *Pending[momento.Post] {
	const action = "create post"
	post.Caption = strings.TrimSpace(post.Caption)
	if post.Caption == "" && post.ImageURL == "" {
		return invalid[momento.Post](r, action, "caption or image required")
	}
	set := Set{
		Keys:     keys(queries.RecentPostsKey(), queries.InfinitePostsKey()),
		Prefixes: keys(query.K(queries.UserPostsName)),
	}
	return run(r, action, "", set, func(ctx context.Context) (momento.Post, error) {
		return r.client().CreatePost(ctx, post)
	}, nil)
}

// UpdatePost edits one of the current user's posts.
func (r *Runner) UpdatePost(update momento.PostUpdate) *Pending[momento.Post] {
	const action = "update post"
	if update.PostID == "" {
		return invalid[momento.Post](r, action, "post required")
	}
	set := Set{Keys: keys(queries.PostKey(update.PostID))}
	return run(r, action, "post/"+update.PostID, set, func(ctx context.Context) (momento.Post, error) {
		return r.client().UpdatePost(ctx, update)
	}, nil)
}

// DeletePost removes one of the current user's posts.
func (r *Runner) DeletePost(postID string) *Pending[struct{}] {
	const action = "delete post"
	if postID == "" {
		return invalid[struct{}](r, action, "post required")
	}
	set := postSet(postID)
	set.Prefixes = append(set.Prefixes, query.K(queries.UserPostsName))
	return run(r, action, "post/"+postID, set, noValue(func(ctx context.Context) error {
		return r.client().DeletePost(ctx, postID)
	}), nil)
}

// UpdateProfile edits the current user's profile.
func (r *Runner) UpdateProfile(update momento.UserUpdate) *Pending[momento.User] {
	const action = "update profile"
	if update.UserID == "" {
		update.UserID = r.session.UserID()
	}
	if update.UserID == "" {
		return invalid[momento.User](r, action, "not signed in")
	}
	set := Set{Keys: keys(queries.CurrentUserKey(), queries.UserKey(update.UserID))}
	return run(r, action, "user/"+update.UserID, set, func(ctx context.Context) (momento.User, error) {
		return r.client().UpdateUser(ctx, update)
	}, func(_ context.Context, user momento.User) {
		r.session.Replace(user)
	})
}

// DeleteAccount removes the current user's account and clears the session.
func (r *Runner) DeleteAccount() *Pending[struct{}] {
	const action = "delete account"
	userID := r.session.UserID()
	if userID == "" {
		return invalid[struct{}](r, action, "not signed in")
	}
	return run(r, action, "user/"+userID, Set{}, noValue(func(ctx context.Context) error {
		return r.client().DeleteUser(ctx, userID)
	}), func(context.Context, struct{}) {
		r.session.Reset()
	})
}

// MarkNotificationRead flips a single notification.
func (r *Runner) MarkNotificationRead(notificationID string) *Pending[struct{}] {
	const action = "mark notification read"
	if notificationID == "" {
		return invalid[struct{}](r, action, "notification required")
	}
	return run(r, action, "notifications", notificationSet(), noValue(func(ctx context.Context) error {
		return r.client().MarkNotificationRead(ctx, notificationID)
	}), nil)
}

// MarkAllNotificationsRead flips every notification.
func (r *Runner) MarkAllNotificationsRead() *Pending[struct{}] {
	return run(r, "mark all notifications read", "notifications", notificationSet(),
		noValue(r.client().MarkAllNotificationsRead), nil)
}

// DeleteNotification removes a notification.
func (r *Runner) DeleteNotification(notificationID string) *Pending[struct{}] {
	const action = "delete notification"
	if notificationID == "" {
		return invalid[struct{}](r, action, "notification required")
	}
	return run(r, action, "notifications", notificationSet(), noValue(func(ctx context.Context) error {
		return r.client().DeleteNotification(ctx, notificationID)
	}), nil)
}

// reviewSet covers the review list of a post or an external photo.
func reviewSet(postID, externalID string) Set {
	if externalID != "" {
		return Set{Keys: keys(queries.ExternalReviewsKey(externalID))}
	}
	return Set{Keys: keys(queries.ReviewsKey(postID))}
}

func reviewResource(postID, externalID string) string {
	if externalID != "" {
		return "externalReviews/" + externalID
	}
	return "reviews/" + postID
}

// CreateReview attaches a review to a post or an external photo.
func (r *Runner) CreateReview(review momento.NewReview) *Pending[momento.Review] {
	const action = "create review"
	review.Review = strings.TrimSpace(review.Review)
	switch {
	case review.PostID == "" && review.ExternalContentID == "":
		return invalid[momento.Review](r, action, "post required")
	case review.PostID != "" && review.ExternalContentID != "":
		return invalid[momento.Review](r, action, "review either a post or a photo")
	case review.Review == "":
		return invalid[momento.Review](r, action, "review is empty")
	case review.Rating < 0 || review.Rating > 5:
		return invalid[momento.Review](r, action, "rating must be between 0 and 5")
	}
	set := reviewSet(review.PostID, review.ExternalContentID)
	resource := reviewResource(review.PostID, review.ExternalContentID)
	return run(r, action, resource, set, func(ctx context.Context) (momento.Review, error) {
		return r.client().CreateReview(ctx, review)
	}, nil)
}

// UpdateReview edits one of the current user's reviews. The list the
// review belongs to is taken from the server's answer.
func (r *Runner) UpdateReview(review momento.Review, text string, rating int) *Pending[momento.Review] {
	const action = "update review"
	text = strings.TrimSpace(text)
	switch {
	case review.ID == "":
		return invalid[momento.Review](r, action, "review required")
	case text == "":
		return invalid[momento.Review](r, action, "review is empty")
	case rating < 0 || rating > 5:
		return invalid[momento.Review](r, action, "rating must be between 0 and 5")
	}
	update := momento.ReviewUpdate{ReviewID: review.ID, Review: text, Rating: rating}
	resource := reviewResource(review.PostID, review.ExternalContentID)
	return run(r, action, resource, Set{}, func(ctx context.Context) (momento.Review, error) {
		return r.client().UpdateReview(ctx, update)
	}, func(_ context.Context, updated momento.Review) {
		r.invalidate(reviewSet(updated.PostID, updated.ExternalContentID))
	})
}

// DeleteReview removes one of the current user's reviews.
func (r *Runner) DeleteReview(review momento.Review) *Pending[struct{}] {
	const action = "delete review"
	if review.ID == "" || (review.PostID == "" && review.ExternalContentID == "") {
		return invalid[struct{}](r, action, "review required")
	}
	set := reviewSet(review.PostID, review.ExternalContentID)
	return run(r, action, reviewResource(review.PostID, review.ExternalContentID), set, noValue(func(ctx context.Context) error {
		return r.client().DeleteReview(ctx, review.ID)
	}), nil)
}

// AdminDeleteUser removes any account.
func (r *Runner) AdminDeleteUser(userID string) *Pending[struct{}] {
	const action = "delete user"
	if userID == "" {
		return invalid[struct{}](r, action, "user required")
	}
	set := Set{
		Keys:     keys(queries.CurrentUserKey()),
		Prefixes: keys(query.K(queries.UsersName)),
	}
	return run(r, action, "user/"+userID, set, noValue(func(ctx context.Context) error {
		return r.client().AdminDeleteUser(ctx, userID)
	}), nil)
}

// AdminDeletePost removes any post.
func (r *Runner) AdminDeletePost(postID string) *Pending[struct{}] {
	const action = "delete post"
	if postID == "" {
		return invalid[struct{}](r, action, "post required")
	}
	set := Set{Keys: keys(queries.InfinitePostsKey(), queries.RecentPostsKey(), queries.PostKey(postID))}
	return run(r, action, "post/"+postID, set, noValue(func(ctx context.Context) error {
		return r.client().AdminDeletePost(ctx, postID)
	}), nil)
}
