package queries

import (
	"testing"
	"time"

	"github.com/five82/momento/internal/momento"
	"github.com/five82/momento/internal/query"
)

func TestKeys_PrefixFamilies(t *testing.T) {
	tests := []struct {
		name   string
		key    query.Key
		prefix query.Key
		want   bool
	}{
		{"member list under users", UsersKey(10), query.K(UsersName), true},
		{"admin list under users", AdminUsersKey(), query.K(UsersName), true},
		{"single user is not under users", UserKey("u1"), query.K(UsersName), false},
		{"conversation under its family", ConversationKey("u1"), query.K(ConversationName), true},
		{"partners not under conversation", ConversationPartnersKey(), query.K(ConversationName), false},
		{"liked posts of one user", LikedPostsKey("u1"), query.K(LikedPostsName), true},
		{"saved posts of one user", SavedPostsKey("u1"), query.K(SavedPostsName), true},
		{"external reviews apart from post reviews", ExternalReviewsKey("x1"), query.K(ReviewsName), false},
		{"external search pages share a term", ExternalSearchKey("fog", 2), query.K(ExternalSearchName, "fog"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.key.HasPrefix(tt.prefix); got != tt.want {
				t.Errorf("%s.HasPrefix(%s) = %v, want %v", tt.key, tt.prefix, got, tt.want)
			}
		})
	}
}

func TestUsersKey_LimitsAreDistinct(t *testing.T) {
	if UsersKey(0).String() != UsersKey(-1).String() {
		t.Fatalf("non-positive limits should share the all-members key")
	}
	if UsersKey(0).String() == UsersKey(5).String() {
		t.Fatalf("limited and full member lists share a key")
	}
}

func TestTranscript(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	greeting := Transcript(nil, now)
	if len(greeting) != 1 || greeting[0].Role != momento.ChatRoleAssistant || greeting[0].Content != Greeting {
		t.Fatalf("empty history transcript = %+v, want the greeting", greeting)
	}
	if !greeting[0].CreatedAt.Equal(now) {
		t.Fatalf("greeting time = %v, want %v", greeting[0].CreatedAt, now)
	}

	history := []momento.ChatMessage{{ID: "1", Role: momento.ChatRoleUser, Content: "hi"}}
	if got := Transcript(history, now); len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("transcript = %+v, want history unchanged", got)
	}
}
