package momento

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testCtx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestParseBaseURL_DefaultsAndNormalizes(t *testing.T) {
	u, err := parseBaseURL("")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.String() != defaultAPIURL {
		t.Fatalf("url = %q, want %q", u.String(), defaultAPIURL)
	}

	u, err = parseBaseURL("example.com:1234/api/?x=1#frag")
	if err != nil {
		t.Fatalf("parseBaseURL returned error: %v", err)
	}
	if u.Scheme != "http" || u.Path != "/api" || u.RawQuery != "" || u.Fragment != "" {
		t.Fatalf("url not normalized: %q", u.String())
	}

	if _, err := parseBaseURL("http:///api"); err == nil {
		t.Fatal("parseBaseURL accepted a URL without host")
	}
}

func TestClient_SetsHeadersAndEncodesQueries(t *testing.T) {
	t.Parallel()

	var gotQuery url.Values
	var gotUA, gotRequestID, gotContentType string
	var gotBody map[string]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/posts":
			gotQuery = r.URL.Query()
			_ = json.NewEncoder(w).Encode(PostList{Documents: []Post{{ID: "p1"}}})
		case "/api/messages/alice":
			gotContentType = r.Header.Get("Content-Type")
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(DirectMessage{ID: "m1", Content: gotBody["content"]})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL+"/api/", Options{})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := testCtx(t)

	posts, err := c.Posts(ctx, 2, 10)
	if err != nil {
		t.Fatalf("Posts returned error: %v", err)
	}
	if len(posts) != 1 || posts[0].ID != "p1" {
		t.Fatalf("Posts = %#v", posts)
	}
	if gotQuery.Get("page") != "2" || gotQuery.Get("limit") != "10" {
		t.Fatalf("query = %v, want page=2 limit=10", gotQuery)
	}
	if gotUA != defaultUserAgent {
		t.Fatalf("User-Agent = %q, want %q", gotUA, defaultUserAgent)
	}
	if _, err := uuid.Parse(gotRequestID); err != nil {
		t.Fatalf("X-Request-ID = %q, want a uuid", gotRequestID)
	}

	msg, err := c.SendMessage(ctx, "alice", "hi")
	if err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if msg.Content != "hi" || gotBody["content"] != "hi" || gotContentType != "application/json" {
		t.Fatalf("SendMessage = %#v, body %v, content type %q", msg, gotBody, gotContentType)
	}
}

func TestClient_ErrorMapping(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/notifications":
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Unauthorized"}`))
		case "/api/posts/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"post not found"}`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("  boom  "))
		}
	}))
	t.Cleanup(server.Close)

	var hooks atomic.Int32
	c, err := NewClient(server.URL+"/api", Options{OnUnauthorized: func() { hooks.Add(1) }})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := testCtx(t)

	_, err = c.Notifications(ctx)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("Notifications error = %v, want ErrUnauthorized", err)
	}
	if hooks.Load() != 1 {
		t.Fatalf("unauthorized hook ran %d times, want 1", hooks.Load())
	}

	_, err = c.Post(ctx, "missing")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !errors.Is(err, ErrNotFound) {
		t.Fatalf("Post error = %v, want APIError wrapping ErrNotFound", err)
	}
	if apiErr.Message != "post not found" || apiErr.Status != http.StatusNotFound {
		t.Fatalf("APIError = %#v", apiErr)
	}

	_, err = c.RecentPosts(ctx)
	if !errors.As(err, &apiErr) || apiErr.Message != "boom" {
		t.Fatalf("RecentPosts error = %v, want message boom", err)
	}
	if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrNotFound) {
		t.Fatalf("500 mapped onto a sentinel: %v", err)
	}
	if hooks.Load() != 1 {
		t.Fatalf("hook ran for a non-401 response")
	}
}

func TestClient_CurrentUserNullIsUnauthorized(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("null"))
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, Options{})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	if _, err := c.CurrentUser(testCtx(t)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("CurrentUser error = %v, want ErrUnauthorized", err)
	}
}

func TestClient_KeepsAndResetsSessionCookie(t *testing.T) {
	t.Parallel()

	var sawCookie atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/users/signin":
			http.SetCookie(w, &http.Cookie{Name: "momento_session", Value: "abc", Path: "/"})
			_ = json.NewEncoder(w).Encode(User{ID: "u1"})
		case "/api/notifications":
			_, err := r.Cookie("momento_session")
			sawCookie.Store(err == nil)
			_ = json.NewEncoder(w).Encode(NotificationList{})
		}
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL+"/api", Options{})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	ctx := testCtx(t)
	if _, err := c.SignIn(ctx, "sam@example.com", "pw"); err != nil {
		t.Fatalf("SignIn returned error: %v", err)
	}
	if _, err := c.Notifications(ctx); err != nil {
		t.Fatalf("Notifications returned error: %v", err)
	}
	if !sawCookie.Load() {
		t.Fatal("session cookie not sent after sign-in")
	}

	c.ResetSession()
	if _, err := c.Notifications(ctx); err != nil {
		t.Fatalf("Notifications returned error: %v", err)
	}
	if sawCookie.Load() {
		t.Fatal("session cookie sent after ResetSession")
	}
}

func TestClient_EmptySearchSkipsRequest(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(PostList{})
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(server.URL, Options{})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	posts, err := c.SearchPosts(testCtx(t), "   ")
	if err != nil || posts != nil {
		t.Fatalf("SearchPosts(blank) = %v, %v, want nil, nil", posts, err)
	}
	if hits.Load() != 0 {
		t.Fatalf("blank search issued %d requests", hits.Load())
	}
}
