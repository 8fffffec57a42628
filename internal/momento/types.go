package momento

import (
	"strings"
	"time"
)

// AIPeerID is the pseudo user id of the assistant conversation.
const AIPeerID = "ai"

// Role distinguishes regular members from administrators.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User mirrors the user records returned by /api/users.
type User struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	ImageURL string `json:"imageUrl"`
	Bio      string `json:"bio"`
	Role     Role   `json:"role,omitempty"`
}

// IsAdmin reports whether the user may open the admin views.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// DisplayName prefers the full name and falls back to the handle.
func (u User) DisplayName() string {
	if name := strings.TrimSpace(u.Name); name != "" {
		return name
	}
	if u.Username != "" {
		return "@" + u.Username
	}
	return "Someone"
}

// NewUser is the sign-up payload.
type NewUser struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// UserUpdate carries editable profile fields.
type UserUpdate struct {
	UserID   string `json:"-"`
	Name     string `json:"name"`
	Bio      string `json:"bio"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Post is a feed entry.
type Post struct {
	ID        string    `json:"_id"`
	Creator   User      `json:"creator"`
	Caption   string    `json:"caption"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Location  string    `json:"location,omitempty"`
	Tags      []string  `json:"tags,omitempty"`
	Likes     []string  `json:"likes"`
	Saves     []string  `json:"saves"`
	CreatedAt time.Time `json:"createdAt"`
}

// LikedBy reports whether userID appears in the post's like list.
func (p Post) LikedBy(userID string) bool {
	return containsID(p.Likes, userID)
}

// SavedBy reports whether userID saved the post.
func (p Post) SavedBy(userID string) bool {
	return containsID(p.Saves, userID)
}

// NewPost is the create-post payload.
type NewPost struct {
	Caption  string   `json:"caption"`
	ImageURL string   `json:"imageUrl,omitempty"`
	Location string   `json:"location,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// PostUpdate carries editable post fields.
type PostUpdate struct {
	PostID   string   `json:"-"`
	Caption  string   `json:"caption"`
	Location string   `json:"location,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// PostList mirrors list endpoints that wrap posts in a documents array.
type PostList struct {
	Documents []Post `json:"documents"`
}

// UserList mirrors list endpoints that wrap users in a documents array.
type UserList struct {
	Documents []User `json:"documents"`
}

// Review is a comment with an optional star rating. It is attached either
// to a post or to an external photo.
type Review struct {
	ID                string    `json:"_id"`
	PostID            string    `json:"post,omitempty"`
	ExternalContentID string    `json:"externalContentId,omitempty"`
	Author            User      `json:"author"`
	Review            string    `json:"review"`
	Rating            int       `json:"rating,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// NewReview is the create-review payload. Exactly one of PostID and
// ExternalContentID is set.
type NewReview struct {
	PostID            string `json:"postId,omitempty"`
	ExternalContentID string `json:"externalContentId,omitempty"`
	Review            string `json:"review"`
	Rating            int    `json:"rating,omitempty"`
}

// ReviewUpdate carries the editable review fields.
type ReviewUpdate struct {
	ReviewID string `json:"-"`
	Review   string `json:"review"`
	Rating   int    `json:"rating,omitempty"`
}

// ReviewList wraps reviews for a post or an external photo.
type ReviewList struct {
	Documents []Review `json:"documents"`
}

// ExternalPhoto is a photo from the external image library, proxied by the
// backend.
type ExternalPhoto struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Author      string `json:"author"`
	ImageURL    string `json:"imageUrl"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Likes       int    `json:"likes,omitempty"`
}

// ExternalResults is one page of an external photo search.
type ExternalResults struct {
	Results    []ExternalPhoto `json:"results"`
	Total      int             `json:"total"`
	TotalPages int             `json:"totalPages"`
}

// NotificationType is the closed set of notification kinds.
type NotificationType string

const (
	NotificationLike   NotificationType = "LIKE"
	NotificationFollow NotificationType = "FOLLOW"
	NotificationReview NotificationType = "REVIEW"
)

// Notification is an activity record addressed to the current user.
type Notification struct {
	ID        string           `json:"_id"`
	Type      NotificationType `json:"type"`
	Actor     *User            `json:"actor,omitempty"`
	Post      *Post            `json:"post,omitempty"`
	Target    *User            `json:"target,omitempty"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Summary renders the one-line description shown in lists.
func (n Notification) Summary() string {
	actor := "Someone"
	if n.Actor != nil {
		actor = n.Actor.DisplayName()
	}
	switch n.Type {
	case NotificationLike:
		return actor + " liked your post"
	case NotificationFollow:
		return actor + " started following you"
	case NotificationReview:
		return actor + " reviewed your post"
	default:
		return actor + " interacted with you"
	}
}

// NotificationList wraps notifications.
type NotificationList struct {
	Documents []Notification `json:"documents"`
}

// UnreadCount is the payload of the unread-count endpoints.
type UnreadCount struct {
	Count int `json:"count"`
}

// ChatRole identifies the author of an assistant conversation message.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// Feedback is the optional rating on an assistant reply.
type Feedback string

const (
	FeedbackNone Feedback = ""
	FeedbackUp   Feedback = "up"
	FeedbackDown Feedback = "down"
)

// ChatMessage is one entry in the assistant conversation.
type ChatMessage struct {
	ID        string    `json:"_id"`
	UserID    string    `json:"userId"`
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Feedback  Feedback  `json:"feedback,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ChatHistory is the assistant conversation for the current user.
type ChatHistory struct {
	Messages []ChatMessage `json:"messages"`
}

// DirectMessage is a user-to-user message.
type DirectMessage struct {
	ID         string    `json:"_id"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	Content    string    `json:"content"`
	ImageURL   string    `json:"imageUrl,omitempty"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Conversation is the thread between the current user and one peer.
type Conversation struct {
	Messages []DirectMessage `json:"messages"`
}

// ConversationPartner summarises a thread for the inbox list.
type ConversationPartner struct {
	User          User      `json:"user"`
	LastMessage   string    `json:"lastMessage"`
	LastSenderID  string    `json:"lastSenderId"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	UnreadCount   int       `json:"unreadCount"`
}

// PartnerList wraps conversation partners, most recent first.
type PartnerList struct {
	Partners []ConversationPartner `json:"partners"`
}

func containsID(ids []string, id string) bool {
	if id == "" {
		return false
	}
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
