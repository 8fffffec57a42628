package queries

import (
	"strconv"

	"github.com/five82/momento/internal/query"
)

// Resource names used as the first key element. Prefix invalidation matches
// on these.
const (
	CurrentUserName          = "currentUser"
	UsersName                = "users"
	UserName                 = "user"
	PostName                 = "post"
	RecentPostsName          = "recentPosts"
	InfinitePostsName        = "infinitePosts"
	SearchName               = "search"
	UserPostsName            = "userPosts"
	LikedPostsName           = "likedPosts"
	SavedPostsName           = "savedPosts"
	FollowersName            = "followers"
	FollowingName            = "following"
	ReviewsName              = "reviews"
	ExternalReviewsName      = "externalReviews"
	ExternalSearchName       = "searchExternal"
	ExternalDetailsName      = "externalDetails"
	NotificationsName        = "notifications"
	UnreadNotificationsName  = "unreadNotificationCount"
	ChatHistoryName          = "chatHistory"
	ConversationName         = "userConversation"
	ConversationPartnersName = "conversationPartners"
	UnreadMessagesName       = "unreadMessageCount"
)

func CurrentUserKey() query.Key { return query.K(CurrentUserName) }

// UsersKey is the member list; limit <= 0 lists everyone.
func UsersKey(limit int) query.Key {
	if limit <= 0 {
		return query.K(UsersName, "all")
	}
	return query.K(UsersName, strconv.Itoa(limit))
}

// AdminUsersKey sits under the users prefix so member invalidation covers it.
func AdminUsersKey() query.Key { return query.K(UsersName, "admin") }

func UserKey(userID string) query.Key       { return query.K(UserName, userID) }
func PostKey(postID string) query.Key       { return query.K(PostName, postID) }
func RecentPostsKey() query.Key             { return query.K(RecentPostsName) }
func InfinitePostsKey() query.Key           { return query.K(InfinitePostsName) }
func SearchKey(term string) query.Key       { return query.K(SearchName, term) }
func UserPostsKey(userID string) query.Key  { return query.K(UserPostsName, userID) }
func LikedPostsKey(userID string) query.Key { return query.K(LikedPostsName, userID) }
func SavedPostsKey(userID string) query.Key { return query.K(SavedPostsName, userID) }
func FollowersKey(userID string) query.Key  { return query.K(FollowersName, userID) }
func FollowingKey(userID string) query.Key  { return query.K(FollowingName, userID) }
func ReviewsKey(postID string) query.Key    { return query.K(ReviewsName, postID) }
func NotificationsKey() query.Key           { return query.K(NotificationsName) }
func UnreadNotificationsKey() query.Key     { return query.K(UnreadNotificationsName) }
func ChatHistoryKey() query.Key             { return query.K(ChatHistoryName) }
func ConversationKey(peerID string) query.Key {
	return query.K(ConversationName, peerID)
}
func ConversationPartnersKey() query.Key { return query.K(ConversationPartnersName) }

func ExternalReviewsKey(contentID string) query.Key {
	return query.K(ExternalReviewsName, contentID)
}

func ExternalSearchKey(term string, page int) query.Key {
	return query.K(ExternalSearchName, term, strconv.Itoa(page))
}

func ExternalDetailsKey(contentID string) query.Key {
	return query.K(ExternalDetailsName, contentID)
}
func UnreadMessagesKey() query.Key       { return query.K(UnreadMessagesName) }
