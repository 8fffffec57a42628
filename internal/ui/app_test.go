package ui

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/crypto/bcrypt"

	"github.com/five82/momento/internal/actions"
	"github.com/five82/momento/internal/config"
	"github.com/five82/momento/internal/mockapi"
	"github.com/five82/momento/internal/momento"
	"github.com/five82/momento/internal/queries"
	"github.com/five82/momento/internal/query"
	"github.com/five82/momento/internal/session"
)

type harness struct {
	srv   *mockapi.Server
	sess  *session.Session
	q     *queries.Set
	users map[string]momento.User
}

func newHarness(t *testing.T, names ...string) *harness {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	srv := mockapi.New(mockapi.Options{BcryptCost: bcrypt.MinCost})
	h := &harness{srv: srv, users: make(map[string]momento.User)}
	for i, name := range names {
		role := momento.RoleUser
		if i == 0 && name == "admin" {
			role = momento.RoleAdmin
		}
		u, err := srv.SeedUser(momento.NewUser{Name: name, Email: name + "@example.com", Username: name, Password: "pw"}, role)
		if err != nil {
			t.Fatalf("SeedUser(%s): %v", name, err)
		}
		h.users[name] = u
	}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	client, err := momento.NewClient(ts.URL+"/api", momento.Options{RequestsPerSecond: 1000})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	store := query.New(context.Background(), query.Options{})
	t.Cleanup(store.Close)
	h.q = queries.New(client, store)
	h.sess = session.New(client, store)
	return h
}

func (h *harness) signIn(t *testing.T, name string) {
	t.Helper()
	if _, err := h.sess.SignIn(context.Background(), name+"@example.com", "pw"); err != nil {
		t.Fatalf("SignIn(%s): %v", name, err)
	}
}

func (h *harness) model(t *testing.T) Model {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	runner := actions.New(ctx, h.q, h.sess, actions.Options{})
	m := New(Options{
		Context:   ctx,
		Session:   h.sess,
		Queries:   h.q,
		Actions:   runner,
		Config:    config.Default(),
		PrefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
	})
	return update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm
}

func enter(t *testing.T, m Model, v View) Model {
	t.Helper()
	next, _ := m.switchView(v)
	return next.(Model)
}

func TestParseView(t *testing.T) {
	tests := map[string]View{
		"feed":          ViewFeed,
		"explore":       ViewExplore,
		"notifications": ViewNotifications,
		"activity":      ViewActivity,
		"saved":         ViewSaved,
		"external":      ViewFeed,
		"post":          ViewFeed,
		"signin":        ViewFeed,
		"":              ViewFeed,
	}
	for name, want := range tests {
		if got := parseView(name); got != want {
			t.Errorf("parseView(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestSessionSignedInLeavesSignIn(t *testing.T) {
	h := newHarness(t, "sam")
	m := h.model(t)
	if m.view != ViewSignIn {
		t.Fatalf("initial view = %v, want signin", m.view)
	}
	h.signIn(t, "sam")
	m = update(t, m, sessionMsg{state: session.SignedIn})
	if m.view != ViewFeed {
		t.Fatalf("view after sign-in = %v, want feed", m.view)
	}
	if m.profile.userID != h.users["sam"].ID {
		t.Fatalf("profile user = %q, want sam", m.profile.userID)
	}
}

func TestSessionExpiredReturnsToSignIn(t *testing.T) {
	h := newHarness(t, "sam")
	h.signIn(t, "sam")
	m := h.model(t)
	m = update(t, m, sessionMsg{state: session.SignedIn})
	m = enter(t, m, ViewMessages)
	if m.group == nil {
		t.Fatalf("messages view has no poll group")
	}

	m = update(t, m, sessionMsg{state: session.Expired})
	if m.view != ViewSignIn {
		t.Fatalf("view after expiry = %v, want signin", m.view)
	}
	if m.group != nil {
		t.Fatalf("poll group still running after expiry")
	}
	if m.signin.err == "" {
		t.Fatalf("expiry left no explanation on the sign-in form")
	}
	if len(m.history) != 0 {
		t.Fatalf("history = %v, want empty", m.history)
	}
}

func keyStrings(keys []query.Key) map[string]bool {
	out := make(map[string]bool, len(keys))
	for _, k := range keys {
		out[k.String()] = true
	}
	return out
}

func TestViewsBindTheirPollers(t *testing.T) {
	h := newHarness(t, "sam", "alice")
	h.signIn(t, "sam")
	m := h.model(t)
	m = update(t, m, sessionMsg{state: session.SignedIn})

	m = enter(t, m, ViewNotifications)
	got := keyStrings(m.group.Keys())
	if len(got) != 2 || !got[queries.NotificationsKey().String()] || !got[queries.UnreadNotificationsKey().String()] {
		t.Fatalf("notifications polls %v", got)
	}

	m = enter(t, m, ViewMessages)
	got = keyStrings(m.group.Keys())
	if len(got) != 2 || !got[queries.ConversationPartnersKey().String()] || !got[queries.UnreadMessagesKey().String()] {
		t.Fatalf("messages polls %v", got)
	}

	next, _ := m.openConversation(h.users["alice"].ID, "alice")
	m = next.(Model)
	got = keyStrings(m.group.Keys())
	if len(got) != 1 || !got[queries.ConversationKey(h.users["alice"].ID).String()] {
		t.Fatalf("conversation polls %v", got)
	}

	next, _ = m.back()
	m = next.(Model)
	next, _ = m.openConversation(aiPeer, "assistant")
	m = next.(Model)
	got = keyStrings(m.group.Keys())
	if len(got) != 1 || !got[queries.ChatHistoryKey().String()] {
		t.Fatalf("assistant conversation polls %v", got)
	}

	m = enter(t, m, ViewFeed)
	if m.group != nil {
		t.Fatalf("feed polls %v, want nothing", m.group.Keys())
	}
}

func TestStaleGenerationIsDropped(t *testing.T) {
	h := newHarness(t, "sam")
	h.signIn(t, "sam")
	m := h.model(t)
	m = update(t, m, sessionMsg{state: session.SignedIn})
	m = enter(t, m, ViewNotifications)
	old := m.gen
	m = enter(t, m, ViewFeed)

	boom := errors.New("boom")
	m = update(t, m, pollMsg{gen: old, key: queries.NotificationsKey(), err: boom})
	if m.status != "" {
		t.Fatalf("stale poll result changed status to %q", m.status)
	}
	m = update(t, m, loadedMsg{gen: old, err: boom})
	if m.status != "" {
		t.Fatalf("stale load changed status to %q", m.status)
	}
	m = update(t, m, loadedMsg{gen: m.gen, err: boom})
	if m.status == "" {
		t.Fatalf("current load error not reported")
	}
}

func TestBackReturnsToPreviousView(t *testing.T) {
	h := newHarness(t, "sam")
	h.signIn(t, "sam")
	m := h.model(t)
	m = update(t, m, sessionMsg{state: session.SignedIn})
	m = enter(t, m, ViewExplore)
	m = enter(t, m, ViewNotifications)

	next, _ := m.back()
	m = next.(Model)
	if m.view != ViewExplore {
		t.Fatalf("back() = %v, want explore", m.view)
	}
	next, _ = m.back()
	m = next.(Model)
	if m.view != ViewFeed {
		t.Fatalf("second back() = %v, want feed", m.view)
	}
}

func TestNextTabSkipsAdminForMembers(t *testing.T) {
	h := newHarness(t, "sam")
	h.signIn(t, "sam")
	m := h.model(t)
	m = update(t, m, sessionMsg{state: session.SignedIn})
	m = enter(t, m, ViewProfile)
	if got := m.nextTab(1); got != ViewActivity {
		t.Fatalf("nextTab from profile = %v, want activity", got)
	}
	m = enter(t, m, ViewFeed)
	if got := m.nextTab(-1); got != ViewSaved {
		t.Fatalf("nextTab(-1) from feed = %v, want saved", got)
	}
}

func TestNextTabIncludesAdminForAdmins(t *testing.T) {
	h := newHarness(t, "admin")
	h.signIn(t, "admin")
	m := h.model(t)
	m = update(t, m, sessionMsg{state: session.SignedIn})
	m = enter(t, m, ViewProfile)
	if got := m.nextTab(1); got != ViewAdmin {
		t.Fatalf("nextTab from profile = %v, want admin", got)
	}
}

func TestOpeningConversationClearsItsBadge(t *testing.T) {
	h := newHarness(t, "sam", "alice")
	sam, alice := h.users["sam"], h.users["alice"]
	for _, text := range []string{"one", "two"} {
		if _, err := h.srv.SeedMessage(alice.ID, sam.ID, text); err != nil {
			t.Fatal(err)
		}
	}
	h.signIn(t, "sam")
	m := h.model(t)
	m = update(t, m, sessionMsg{state: session.SignedIn})

	ctx := context.Background()
	if _, err := h.q.ConversationPartners().Get(ctx); err != nil {
		t.Fatalf("partners: %v", err)
	}
	if got := m.conversations.Badge(alice.ID); got != 2 {
		t.Fatalf("badge before open = %d, want 2", got)
	}

	next, _ := m.openConversation(alice.ID, "alice")
	m = next.(Model)
	msg := m.openConversationCmd()()
	loaded, ok := msg.(loadedMsg)
	if !ok || loaded.err != nil || loaded.gen != m.gen {
		t.Fatalf("open conversation = %#v", msg)
	}
	if got := m.conversations.Badge(alice.ID); got != 0 {
		t.Fatalf("badge after open = %d, want 0", got)
	}
}

func TestSearchUsesSettledTerm(t *testing.T) {
	h := newHarness(t, "sam")
	if _, err := h.srv.SeedPost(h.users["sam"].ID, momento.NewPost{Caption: "orange cat"}); err != nil {
		t.Fatal(err)
	}
	h.signIn(t, "sam")
	m := h.model(t)
	m = update(t, m, sessionMsg{state: session.SignedIn})
	m = enter(t, m, ViewExplore)

	next, cmd := m.handleSearch(" cat ")
	m = next.(Model)
	if m.explore.term != "cat" || cmd == nil {
		t.Fatalf("term = %q, cmd = %v", m.explore.term, cmd)
	}
	if msg := cmd(); msg.(loadedMsg).err != nil {
		t.Fatalf("search: %v", msg.(loadedMsg).err)
	}
	posts := m.visiblePosts()
	if len(posts) != 1 || posts[0].Caption != "orange cat" {
		t.Fatalf("results = %v", posts)
	}
	if hits := h.srv.Hits("GET /api/posts/search"); hits != 1 {
		t.Fatalf("search requests = %d, want 1", hits)
	}
}

type focusCounter struct{ n int }

func (f *focusCounter) Focus() { f.n++ }

func TestFocusRefreshesHeaderBadges(t *testing.T) {
	h := newHarness(t, "sam")
	h.signIn(t, "sam")
	badges := &focusCounter{}
	m := New(Options{
		Context:   context.Background(),
		Session:   h.sess,
		Queries:   h.q,
		Actions:   actions.New(context.Background(), h.q, h.sess, actions.Options{}),
		Badges:    badges,
		Config:    config.Default(),
		PrefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
	})
	m = update(t, m, sessionMsg{state: session.SignedIn})
	m = enter(t, m, ViewFeed)
	t.Cleanup(m.stopGroup)

	update(t, m, tea.FocusMsg{})
	if badges.n != 1 {
		t.Fatalf("badge refreshes on focus = %d, want 1", badges.n)
	}
}

func TestSessionChangeSurvivesFullEventQueue(t *testing.T) {
	h := newHarness(t, "sam")
	m := h.model(t)
	for i := 0; i < cap(m.events); i++ {
		emit(m.events, pollMsg{gen: m.gen})
	}

	h.signIn(t, "sam")
	listen := m.listen()
	for i := 0; i <= cap(m.events); i++ {
		raw := listen()
		msg, ok := raw.(eventMsg)
		if !ok {
			t.Fatalf("listen returned %T", raw)
		}
		if s, ok := msg.inner.(sessionMsg); ok {
			if s.state != session.SignedIn {
				t.Fatalf("session state = %v, want signed in", s.state)
			}
			return
		}
	}
	t.Fatalf("session change never delivered")
}

func TestSessionBoxKeepsLatestState(t *testing.T) {
	box := newSessionBox()
	box.put(session.SignedIn)
	box.put(session.Expired)
	if got := <-box.ch; got != session.Expired {
		t.Fatalf("state = %v, want expired", got)
	}
	select {
	case s := <-box.ch:
		t.Fatalf("extra state %v queued", s)
	default:
	}
}
