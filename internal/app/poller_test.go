package app

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/five82/momento/internal/config"
	"github.com/five82/momento/internal/mockapi"
	"github.com/five82/momento/internal/momento"
	"github.com/five82/momento/internal/session"
	"github.com/five82/momento/internal/state"
)

func newTestClient(t *testing.T) (*Client, *mockapi.Server) {
	t.Helper()
	srv := mockapi.New(mockapi.Options{BcryptCost: bcrypt.MinCost})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	cfg := config.Default()
	cfg.APIURL = ts.URL + "/api"
	cfg.RequestsPerSecond = 1000
	client, err := Connect(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(client.Close)
	return client, srv
}

func seedUser(t *testing.T, srv *mockapi.Server, name string) momento.User {
	t.Helper()
	u, err := srv.SeedUser(momento.NewUser{Name: name, Email: name + "@example.com", Username: name, Password: "pw"}, momento.RoleUser)
	if err != nil {
		t.Fatalf("SeedUser(%s): %v", name, err)
	}
	return u
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestBadgePoller_FollowsSession(t *testing.T) {
	client, srv := newTestClient(t)
	sam := seedUser(t, srv, "sam")
	alice := seedUser(t, srv, "alice")
	for _, text := range []string{"hi", "there"} {
		if _, err := srv.SeedMessage(alice.ID, sam.ID, text); err != nil {
			t.Fatal(err)
		}
	}
	post, err := srv.SeedPost(sam.ID, momento.NewPost{Caption: "cat"})
	if err != nil {
		t.Fatal(err)
	}
	if err := srv.SeedLike(alice.ID, post.ID); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	badges := NewBadgePoller(ctx, client.Header, client.Queries, 20*time.Millisecond)
	badges.Follow(client.Session)
	defer badges.Stop()

	time.Sleep(50 * time.Millisecond)
	if hits := srv.Hits("GET /api/messages/unread-count"); hits != 0 {
		t.Fatalf("polled %d times before sign-in", hits)
	}

	if _, err := client.SignIn(ctx, "sam@example.com", "pw"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	want := state.Badges{Messages: 2, Notifications: 1}
	waitFor(t, "badges", func() bool {
		snap := client.Header.Snapshot()
		return snap.HasBadges && snap.Badges == want
	})

	if err := client.Session.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if snap := client.Header.Snapshot(); snap.HasBadges {
		t.Fatalf("badges survived sign-out: %+v", snap.Badges)
	}
	time.Sleep(30 * time.Millisecond)
	before := srv.Hits("GET /api/messages/unread-count")
	time.Sleep(80 * time.Millisecond)
	if after := srv.Hits("GET /api/messages/unread-count"); after != before {
		t.Fatalf("still polling after sign-out: %d -> %d", before, after)
	}
	if snap := client.Header.Snapshot(); snap.HasBadges {
		t.Fatalf("late poll result repopulated badges")
	}
}

func TestBadgePoller_ExpiryStopsPolling(t *testing.T) {
	client, srv := newTestClient(t)
	seedUser(t, srv, "sam")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	badges := NewBadgePoller(ctx, client.Header, client.Queries, 20*time.Millisecond)
	badges.Follow(client.Session)
	defer badges.Stop()

	if _, err := client.SignIn(ctx, "sam@example.com", "pw"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	waitFor(t, "first badges", func() bool { return client.Header.Snapshot().HasBadges })

	// Without the cookie the next poll is rejected with 401.
	client.API.ResetSession()
	waitFor(t, "expiry", func() bool { return client.Session.State() == session.Expired })
	if snap := client.Header.Snapshot(); snap.HasBadges {
		t.Fatalf("badges survived expiry")
	}
}

func TestBadgePoller_MarkReadClearsHeaderBadgeBeforeNextTick(t *testing.T) {
	client, srv := newTestClient(t)
	sam := seedUser(t, srv, "sam")
	alice := seedUser(t, srv, "alice")
	bob := seedUser(t, srv, "bob")
	for _, text := range []string{"one", "two", "three"} {
		if _, err := srv.SeedMessage(alice.ID, sam.ID, text); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := srv.SeedMessage(bob.ID, sam.ID, "hey"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	badges := NewBadgePoller(ctx, client.Header, client.Queries, time.Hour)
	badges.Follow(client.Session)
	defer badges.Stop()

	if _, err := client.SignIn(ctx, "sam@example.com", "pw"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	waitFor(t, "initial badge", func() bool { return client.Header.Snapshot().Badges.Messages == 4 })

	if _, err := client.Actions.MarkConversationRead(alice.ID).Wait(ctx); err != nil {
		t.Fatalf("MarkConversationRead: %v", err)
	}
	if got := client.Header.Snapshot().Badges.Messages; got != 1 {
		t.Fatalf("header message badge = %d right after mark-read, want 1", got)
	}
	if hits := srv.Hits("GET /api/messages/unread-count"); hits != 2 {
		t.Fatalf("unread-count requests = %d, want the first poll plus one refetch", hits)
	}
}

func TestBadgePoller_FocusRefetchesCounters(t *testing.T) {
	client, srv := newTestClient(t)
	sam := seedUser(t, srv, "sam")
	alice := seedUser(t, srv, "alice")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	badges := NewBadgePoller(ctx, client.Header, client.Queries, time.Hour)
	badges.Focus()
	badges.Follow(client.Session)
	defer badges.Stop()

	if _, err := client.SignIn(ctx, "sam@example.com", "pw"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	waitFor(t, "first poll", func() bool { return client.Header.Snapshot().HasBadges })
	if _, err := srv.SeedMessage(alice.ID, sam.ID, "back?"); err != nil {
		t.Fatal(err)
	}

	badges.Focus()
	waitFor(t, "badge after focus", func() bool { return client.Header.Snapshot().Badges.Messages == 1 })
	waitFor(t, "notification count refetch", func() bool {
		return srv.Hits("GET /api/notifications/unread-count") == 2
	})
}
