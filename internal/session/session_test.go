package session

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/five82/momento/internal/mockapi"
	"github.com/five82/momento/internal/momento"
	"github.com/five82/momento/internal/queries"
	"github.com/five82/momento/internal/query"
)

func setup(t *testing.T) (*Session, *momento.Client, *query.Store) {
	t.Helper()
	srv := mockapi.New(mockapi.Options{BcryptCost: bcrypt.MinCost})
	if _, err := srv.SeedUser(momento.NewUser{Name: "Sam", Email: "sam@example.com", Username: "sam", Password: "pw"}, momento.RoleUser); err != nil {
		t.Fatalf("SeedUser: %v", err)
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	client, err := momento.NewClient(ts.URL+"/api", momento.Options{RequestsPerSecond: 1000})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	store := query.New(context.Background(), query.Options{})
	t.Cleanup(store.Close)
	return New(client, store), client, store
}

func TestSession_RestoreWithoutCookieIsSignedOut(t *testing.T) {
	sess, _, _ := setup(t)
	if sess.State() != Unknown {
		t.Fatalf("initial state = %v, want unknown", sess.State())
	}
	user, err := sess.Restore(context.Background())
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if user.ID != "" || sess.State() != SignedOut || sess.Authenticated() {
		t.Fatalf("after Restore: user=%+v state=%v", user, sess.State())
	}
}

func TestSession_SignInThenRestore(t *testing.T) {
	sess, _, store := setup(t)
	ctx := context.Background()

	var transitions []State
	sess.OnChange(func(s State) { transitions = append(transitions, s) })

	user, err := sess.SignIn(ctx, "sam@example.com", "pw")
	if err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if sess.UserID() != user.ID || !sess.Authenticated() {
		t.Fatalf("session user = %q, want %q", sess.UserID(), user.ID)
	}
	entry, ok := store.Peek(queries.CurrentUserKey())
	if !ok || !entry.HasValue || !entry.Stale {
		t.Fatalf("currentUser entry = %#v, want stored and invalidated", entry)
	}

	restored, err := sess.Restore(ctx)
	if err != nil || restored.ID != user.ID {
		t.Fatalf("Restore = %+v, %v", restored, err)
	}
	if len(transitions) != 1 || transitions[0] != SignedIn {
		t.Fatalf("transitions = %v, want [signed in]", transitions)
	}
}

func TestSession_BadPasswordKeepsSignedOut(t *testing.T) {
	sess, _, _ := setup(t)
	if _, err := sess.SignIn(context.Background(), "sam@example.com", "nope"); err == nil {
		t.Fatalf("SignIn with bad password succeeded")
	}
	if sess.Authenticated() {
		t.Fatalf("session authenticated after failed sign-in")
	}
}

func TestSession_UnauthorizedResponseExpiresSession(t *testing.T) {
	sess, client, store := setup(t)
	ctx := context.Background()
	if _, err := sess.SignIn(ctx, "sam@example.com", "pw"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	store.Write(queries.NotificationsKey(), []momento.Notification{{ID: "n1"}})

	// Losing the cookie makes the next request come back 401.
	client.ResetSession()
	_, err := client.Notifications(ctx)
	if !errors.Is(err, momento.ErrUnauthorized) {
		t.Fatalf("Notifications error = %v, want ErrUnauthorized", err)
	}
	if sess.State() != Expired {
		t.Fatalf("state = %v, want expired", sess.State())
	}
	if store.Len() != 0 {
		t.Fatalf("store has %d entries after expiry, want 0", store.Len())
	}
}

func TestSession_SignOutClearsStore(t *testing.T) {
	sess, _, store := setup(t)
	ctx := context.Background()
	if _, err := sess.SignIn(ctx, "sam@example.com", "pw"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	store.Write(queries.UnreadMessagesKey(), 3)

	if err := sess.SignOut(ctx); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if sess.State() != SignedOut {
		t.Fatalf("state = %v, want signed out", sess.State())
	}
	if _, _, ok := query.Cached[int](store, queries.UnreadMessagesKey()); ok {
		t.Fatalf("unread count survived sign-out")
	}
}
