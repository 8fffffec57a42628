package queries

import (
	"context"
	"time"

	"github.com/five82/momento/internal/momento"
	"github.com/five82/momento/internal/query"
)

// Greeting is shown in the assistant conversation before the first prompt.
const Greeting = "Hi! I'm the Momento assistant. Ask me about photography, captions or what to post next."

// Query pairs a cache key with the request that fills it.
type Query[T any] struct {
	Key   query.Key
	Fetch func(context.Context) (T, error)
	store *query.Store
}

// Get returns the cached value when fresh and fetches otherwise.
func (q Query[T]) Get(ctx context.Context) (T, error) {
	return query.Get(ctx, q.store, q.Key, q.Fetch)
}

// Refetch always goes to the API (deduplicated against in-flight requests).
func (q Query[T]) Refetch(ctx context.Context) (T, error) {
	return query.Fetch(ctx, q.store, q.Key, q.Fetch)
}

// Cached returns the last known value without fetching.
func (q Query[T]) Cached() (T, query.Entry, bool) {
	return query.Cached[T](q.store, q.Key)
}

// Fetcher adapts the query for poll groups.
func (q Query[T]) Fetcher() query.Fetcher {
	return query.Wrap(q.Fetch)
}

// Set builds the queries a session reads. Every query shares the session's
// store.
type Set struct {
	client *momento.Client
	store  *query.Store
}

// New binds client and store.
func New(client *momento.Client, store *query.Store) *Set {
	return &Set{client: client, store: store}
}

// Store returns the backing cache.
func (s *Set) Store() *query.Store { return s.store }

// Client returns the API client.
func (s *Set) Client() *momento.Client { return s.client }

func bind[T any](s *Set, key query.Key, fetch func(context.Context) (T, error)) Query[T] {
	return Query[T]{Key: key, Fetch: fetch, store: s.store}
}

func (s *Set) CurrentUser() Query[momento.User] {
	return bind(s, CurrentUserKey(), s.client.CurrentUser)
}

func (s *Set) Users(limit int) Query[[]momento.User] {
	return bind(s, UsersKey(limit), func(ctx context.Context) ([]momento.User, error) {
		return s.client.Users(ctx, limit)
	})
}

func (s *Set) AdminUsers() Query[[]momento.User] {
	return bind(s, AdminUsersKey(), s.client.AdminUsers)
}

func (s *Set) User(userID string) Query[momento.User] {
	return bind(s, UserKey(userID), func(ctx context.Context) (momento.User, error) {
		return s.client.User(ctx, userID)
	})
}

func (s *Set) Post(postID string) Query[momento.Post] {
	return bind(s, PostKey(postID), func(ctx context.Context) (momento.Post, error) {
		return s.client.Post(ctx, postID)
	})
}

func (s *Set) RecentPosts() Query[[]momento.Post] {
	return bind(s, RecentPostsKey(), s.client.RecentPosts)
}

// Search queries posts for term. The empty term resolves to no results
// without a request.
func (s *Set) Search(term string) Query[[]momento.Post] {
	return bind(s, SearchKey(term), func(ctx context.Context) ([]momento.Post, error) {
		return s.client.SearchPosts(ctx, term)
	})
}

func (s *Set) UserPosts(userID string) Query[[]momento.Post] {
	return bind(s, UserPostsKey(userID), func(ctx context.Context) ([]momento.Post, error) {
		return s.client.UserPosts(ctx, userID)
	})
}

func (s *Set) LikedPosts(userID string) Query[[]momento.Post] {
	return bind(s, LikedPostsKey(userID), func(ctx context.Context) ([]momento.Post, error) {
		return s.client.LikedPosts(ctx, userID)
	})
}

func (s *Set) SavedPosts(userID string) Query[[]momento.Post] {
	return bind(s, SavedPostsKey(userID), func(ctx context.Context) ([]momento.Post, error) {
		return s.client.SavedPosts(ctx, userID)
	})
}

func (s *Set) Followers(userID string) Query[[]momento.User] {
	return bind(s, FollowersKey(userID), func(ctx context.Context) ([]momento.User, error) {
		return s.client.Followers(ctx, userID)
	})
}

func (s *Set) Following(userID string) Query[[]momento.User] {
	return bind(s, FollowingKey(userID), func(ctx context.Context) ([]momento.User, error) {
		return s.client.Following(ctx, userID)
	})
}

func (s *Set) Reviews(postID string) Query[[]momento.Review] {
	return bind(s, ReviewsKey(postID), func(ctx context.Context) ([]momento.Review, error) {
		return s.client.PostReviews(ctx, postID)
	})
}

func (s *Set) ExternalReviews(contentID string) Query[[]momento.Review] {
	return bind(s, ExternalReviewsKey(contentID), func(ctx context.Context) ([]momento.Review, error) {
		return s.client.ExternalReviews(ctx, contentID)
	})
}

// ExternalSearch queries the external photo library. Page is one-based.
func (s *Set) ExternalSearch(term string, page int) Query[momento.ExternalResults] {
	page = max(page, 1)
	return bind(s, ExternalSearchKey(term, page), func(ctx context.Context) (momento.ExternalResults, error) {
		return s.client.SearchExternal(ctx, term, page)
	})
}

func (s *Set) ExternalDetails(contentID string) Query[momento.ExternalPhoto] {
	return bind(s, ExternalDetailsKey(contentID), func(ctx context.Context) (momento.ExternalPhoto, error) {
		return s.client.ExternalDetails(ctx, contentID)
	})
}

func (s *Set) Notifications() Query[[]momento.Notification] {
	return bind(s, NotificationsKey(), s.client.Notifications)
}

func (s *Set) UnreadNotifications() Query[int] {
	return bind(s, UnreadNotificationsKey(), s.client.UnreadNotificationCount)
}

func (s *Set) ChatHistory() Query[[]momento.ChatMessage] {
	return bind(s, ChatHistoryKey(), s.client.ChatHistory)
}

func (s *Set) Conversation(peerID string) Query[[]momento.DirectMessage] {
	return bind(s, ConversationKey(peerID), func(ctx context.Context) ([]momento.DirectMessage, error) {
		return s.client.Conversation(ctx, peerID)
	})
}

func (s *Set) ConversationPartners() Query[[]momento.ConversationPartner] {
	return bind(s, ConversationPartnersKey(), s.client.ConversationPartners)
}

func (s *Set) UnreadMessages() Query[int] {
	return bind(s, UnreadMessagesKey(), s.client.UnreadMessageCount)
}

// Transcript returns the assistant history, opening with the greeting when
// nothing has been said yet.
func Transcript(history []momento.ChatMessage, now time.Time) []momento.ChatMessage {
	if len(history) > 0 {
		return history
	}
	return []momento.ChatMessage{{
		ID:        "greeting",
		Role:      momento.ChatRoleAssistant,
		Content:   Greeting,
		CreatedAt: now,
	}}
}
