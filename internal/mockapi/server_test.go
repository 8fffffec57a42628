package mockapi

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/five82/momento/internal/momento"
)

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	srv := New(Options{BcryptCost: bcrypt.MinCost})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, ts.URL + "/api"
}

func signedInClient(t *testing.T, apiURL, email string) *momento.Client {
	t.Helper()
	client, err := momento.NewClient(apiURL, momento.Options{RequestsPerSecond: 1000})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, err := client.SignIn(context.Background(), email, "secret-pass"); err != nil {
		t.Fatalf("SignIn(%s): %v", email, err)
	}
	return client
}

func seedUser(t *testing.T, srv *Server, username string) momento.User {
	t.Helper()
	user, err := srv.SeedUser(momento.NewUser{
		Name:     username,
		Email:    username + "@example.com",
		Username: username,
		Password: "secret-pass",
	}, momento.RoleUser)
	if err != nil {
		t.Fatalf("SeedUser(%s): %v", username, err)
	}
	return user
}

func TestServer_RequiresSession(t *testing.T) {
	_, apiURL := newTestServer(t)
	client, err := momento.NewClient(apiURL, momento.Options{})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	_, err = client.Notifications(context.Background())
	if !errors.Is(err, momento.ErrUnauthorized) {
		t.Fatalf("Notifications without session error = %v, want ErrUnauthorized", err)
	}
	if _, err := client.CurrentUser(context.Background()); !errors.Is(err, momento.ErrUnauthorized) {
		t.Fatalf("CurrentUser without session error = %v, want ErrUnauthorized", err)
	}
}

func TestServer_SignInSignOut(t *testing.T) {
	srv, apiURL := newTestServer(t)
	sam := seedUser(t, srv, "sam")
	client := signedInClient(t, apiURL, "sam@example.com")

	me, err := client.CurrentUser(context.Background())
	if err != nil || me.ID != sam.ID {
		t.Fatalf("CurrentUser = %+v, %v, want %s", me, err, sam.ID)
	}
	if err := client.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if _, err := client.CurrentUser(context.Background()); !errors.Is(err, momento.ErrUnauthorized) {
		t.Fatalf("CurrentUser after sign-out error = %v, want ErrUnauthorized", err)
	}
}

func TestServer_BadCredentialsAreNotUnauthorized(t *testing.T) {
	srv, apiURL := newTestServer(t)
	seedUser(t, srv, "sam")
	client, _ := momento.NewClient(apiURL, momento.Options{})

	_, err := client.SignIn(context.Background(), "sam@example.com", "wrong")
	var apiErr *momento.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 400 || errors.Is(err, momento.ErrUnauthorized) {
		t.Fatalf("SignIn with bad password error = %v, want 400 APIError", err)
	}
	if apiErr.Message != "Invalid email or password" {
		t.Fatalf("message = %q", apiErr.Message)
	}
}

func TestServer_PartnersAndUnreadCounts(t *testing.T) {
	srv, apiURL := newTestServer(t)
	sam := seedUser(t, srv, "sam")
	alice := seedUser(t, srv, "alice")
	bob := seedUser(t, srv, "bob")
	for _, text := range []string{"one", "two", "three"} {
		if _, err := srv.SeedMessage(alice.ID, sam.ID, text); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := srv.SeedMessage(bob.ID, sam.ID, "hi"); err != nil {
		t.Fatal(err)
	}
	client := signedInClient(t, apiURL, "sam@example.com")
	ctx := context.Background()

	partners, err := client.ConversationPartners(ctx)
	if err != nil {
		t.Fatalf("ConversationPartners: %v", err)
	}
	if len(partners) != 2 || partners[0].User.ID != bob.ID {
		t.Fatalf("partners = %+v, want bob first then alice", partners)
	}
	if partners[1].UnreadCount != 3 || partners[1].LastMessage != "three" {
		t.Fatalf("alice partner = %+v, want unread 3 and last message three", partners[1])
	}
	total, err := client.UnreadMessageCount(ctx)
	if err != nil || total != 4 {
		t.Fatalf("UnreadMessageCount = %d, %v, want 4", total, err)
	}

	if err := client.MarkConversationRead(ctx, alice.ID); err != nil {
		t.Fatalf("MarkConversationRead: %v", err)
	}
	total, _ = client.UnreadMessageCount(ctx)
	if total != 1 {
		t.Fatalf("UnreadMessageCount after read = %d, want 1", total)
	}
	if got := srv.Hits("GET /api/messages/partners"); got != 1 {
		t.Fatalf("partners hits = %d, want 1", got)
	}
	if got := srv.Hits("GET /api/messages/{id}"); got != 0 {
		t.Fatalf("partners request routed to conversation handler %d times", got)
	}
}

func TestServer_PostsPagination(t *testing.T) {
	srv, apiURL := newTestServer(t)
	sam := seedUser(t, srv, "sam")
	for i := 0; i < 23; i++ {
		if _, err := srv.SeedPost(sam.ID, momento.NewPost{Caption: "post"}); err != nil {
			t.Fatal(err)
		}
	}
	client := signedInClient(t, apiURL, "sam@example.com")

	tests := []struct {
		page int
		want int
	}{
		{0, 10},
		{1, 10},
		{2, 3},
		{3, 0},
	}
	for _, tt := range tests {
		posts, err := client.Posts(context.Background(), tt.page, 10)
		if err != nil {
			t.Fatalf("Posts(%d): %v", tt.page, err)
		}
		if len(posts) != tt.want {
			t.Errorf("Posts(%d) returned %d, want %d", tt.page, len(posts), tt.want)
		}
	}
}

func TestServer_LikeToggleIsIdempotentAndNotifies(t *testing.T) {
	srv, apiURL := newTestServer(t)
	sam := seedUser(t, srv, "sam")
	alice := seedUser(t, srv, "alice")
	post, _ := srv.SeedPost(sam.ID, momento.NewPost{Caption: "sunset"})

	client := signedInClient(t, apiURL, "alice@example.com")
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		got, err := client.LikePost(ctx, post.ID)
		if err != nil || !got.LikedBy(alice.ID) || len(got.Likes) != 1 {
			t.Fatalf("LikePost #%d = %+v, %v", i, got.Likes, err)
		}
	}
	got, err := client.UnlikePost(ctx, post.ID)
	if err != nil || got.LikedBy(alice.ID) {
		t.Fatalf("UnlikePost = %+v, %v", got.Likes, err)
	}

	samClient := signedInClient(t, apiURL, "sam@example.com")
	list, err := samClient.Notifications(ctx)
	if err != nil || len(list) != 1 || list[0].Type != momento.NotificationLike {
		t.Fatalf("Notifications = %+v, %v, want a single LIKE", list, err)
	}
	if list[0].Actor == nil || list[0].Actor.ID != alice.ID || list[0].Post == nil {
		t.Fatalf("notification = %+v, want actor alice and the post", list[0])
	}
}

func TestServer_AdminRoutesRequireRole(t *testing.T) {
	srv, apiURL := newTestServer(t)
	seedUser(t, srv, "sam")
	if _, err := srv.SeedUser(momento.NewUser{Email: "root@example.com", Password: "secret-pass"}, momento.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	member := signedInClient(t, apiURL, "sam@example.com")
	_, err := member.AdminUsers(ctx)
	var apiErr *momento.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 403 {
		t.Fatalf("AdminUsers as member error = %v, want 403", err)
	}

	admin := signedInClient(t, apiURL, "root@example.com")
	users, err := admin.AdminUsers(ctx)
	if err != nil || len(users) != 2 {
		t.Fatalf("AdminUsers = %d users, %v, want 2", len(users), err)
	}
}

func TestServer_ChatHistoryAndFeedback(t *testing.T) {
	srv, apiURL := newTestServer(t)
	seedUser(t, srv, "sam")
	client := signedInClient(t, apiURL, "sam@example.com")
	ctx := context.Background()

	history, err := client.SendChatMessage(ctx, "caption ideas?")
	if err != nil || len(history) != 2 {
		t.Fatalf("SendChatMessage = %d messages, %v, want 2", len(history), err)
	}
	reply := history[1]
	if reply.Role != momento.ChatRoleAssistant {
		t.Fatalf("second message role = %q, want assistant", reply.Role)
	}
	if err := client.UpdateFeedback(ctx, reply.ID, momento.FeedbackUp); err != nil {
		t.Fatalf("UpdateFeedback: %v", err)
	}
	history, _ = client.ChatHistory(ctx)
	if history[1].Feedback != momento.FeedbackUp {
		t.Fatalf("feedback = %q, want up", history[1].Feedback)
	}
	if err := client.UpdateFeedback(ctx, reply.ID, momento.FeedbackNone); err != nil {
		t.Fatalf("clear feedback: %v", err)
	}
	if err := client.ClearChat(ctx); err != nil {
		t.Fatalf("ClearChat: %v", err)
	}
	history, _ = client.ChatHistory(ctx)
	if len(history) != 0 {
		t.Fatalf("history after clear = %d messages, want 0", len(history))
	}
}

func TestServer_SeedDemo(t *testing.T) {
	srv, apiURL := newTestServer(t)
	me, err := srv.SeedDemo()
	if err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}
	client, _ := momento.NewClient(apiURL, momento.Options{})
	if _, err := client.SignIn(context.Background(), me.Email, DemoPassword); err != nil {
		t.Fatalf("SignIn demo user: %v", err)
	}
	count, err := client.UnreadMessageCount(context.Background())
	if err != nil || count != 4 {
		t.Fatalf("UnreadMessageCount = %d, %v, want 4", count, err)
	}
	unread, err := client.UnreadNotificationCount(context.Background())
	if err != nil || unread != 3 {
		t.Fatalf("UnreadNotificationCount = %d, %v, want 3", unread, err)
	}
}

func TestServer_SavedPostsFollowSaveToggle(t *testing.T) {
	srv, apiURL := newTestServer(t)
	sam := seedUser(t, srv, "sam")
	alice := seedUser(t, srv, "alice")
	post, err := srv.SeedPost(alice.ID, momento.NewPost{Caption: "lake"})
	if err != nil {
		t.Fatal(err)
	}
	client := signedInClient(t, apiURL, "sam@example.com")
	ctx := context.Background()

	if _, err := client.SavePost(ctx, post.ID); err != nil {
		t.Fatalf("SavePost: %v", err)
	}
	saved, err := client.SavedPosts(ctx, sam.ID)
	if err != nil || len(saved) != 1 || saved[0].ID != post.ID {
		t.Fatalf("SavedPosts = %v, %v, want the saved post", saved, err)
	}
	if _, err := client.UnsavePost(ctx, post.ID); err != nil {
		t.Fatalf("UnsavePost: %v", err)
	}
	if saved, _ := client.SavedPosts(ctx, sam.ID); len(saved) != 0 {
		t.Fatalf("SavedPosts after unsave = %d, want 0", len(saved))
	}
}

func TestServer_UpdateReviewOnlyByAuthor(t *testing.T) {
	srv, apiURL := newTestServer(t)
	seedUser(t, srv, "sam")
	alice := seedUser(t, srv, "alice")
	post, err := srv.SeedPost(alice.ID, momento.NewPost{Caption: "lake"})
	if err != nil {
		t.Fatal(err)
	}
	sam := signedInClient(t, apiURL, "sam@example.com")
	ctx := context.Background()

	review, err := sam.CreateReview(ctx, momento.NewReview{PostID: post.ID, Review: "nice", Rating: 3})
	if err != nil {
		t.Fatalf("CreateReview: %v", err)
	}
	updated, err := sam.UpdateReview(ctx, momento.ReviewUpdate{ReviewID: review.ID, Review: "stunning", Rating: 5})
	if err != nil || updated.Review != "stunning" || updated.Rating != 5 || updated.PostID != post.ID {
		t.Fatalf("UpdateReview = %+v, %v", updated, err)
	}

	other := signedInClient(t, apiURL, "alice@example.com")
	_, err = other.UpdateReview(ctx, momento.ReviewUpdate{ReviewID: review.ID, Review: "meh"})
	var apiErr *momento.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 403 {
		t.Fatalf("UpdateReview by another user error = %v, want 403", err)
	}
}

func TestServer_ExternalSearchAndReviews(t *testing.T) {
	srv, apiURL := newTestServer(t)
	seedUser(t, srv, "sam")
	client := signedInClient(t, apiURL, "sam@example.com")
	ctx := context.Background()

	res, err := client.SearchExternal(ctx, "sunrise", 1)
	if err != nil || res.Total != 1 || len(res.Results) != 1 || res.Results[0].ID != "ext-alpine-lake" {
		t.Fatalf("SearchExternal = %+v, %v", res, err)
	}
	if res, _ := client.SearchExternal(ctx, "sunrise", 2); len(res.Results) != 0 {
		t.Fatalf("page 2 = %d results, want 0", len(res.Results))
	}
	photo, err := client.ExternalDetails(ctx, "ext-alpine-lake")
	if err != nil || photo.Author != "Jonas Weber" {
		t.Fatalf("ExternalDetails = %+v, %v", photo, err)
	}
	if _, err := client.ExternalDetails(ctx, "missing"); !errors.Is(err, momento.ErrNotFound) {
		t.Fatalf("ExternalDetails(missing) error = %v, want ErrNotFound", err)
	}

	if _, err := client.CreateReview(ctx, momento.NewReview{ExternalContentID: photo.ID, Review: "wow"}); err != nil {
		t.Fatalf("CreateReview(external): %v", err)
	}
	reviews, err := client.ExternalReviews(ctx, photo.ID)
	if err != nil || len(reviews) != 1 || reviews[0].ExternalContentID != photo.ID || reviews[0].PostID != "" {
		t.Fatalf("ExternalReviews = %+v, %v", reviews, err)
	}
	if _, err := client.CreateReview(ctx, momento.NewReview{PostID: "p", ExternalContentID: photo.ID, Review: "both"}); err == nil {
		t.Fatalf("review with both targets accepted")
	}
}
