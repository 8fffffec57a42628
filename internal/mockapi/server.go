package mockapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/five82/momento/internal/momento"
)

// SessionCookie names the session cookie issued on sign-in.
const SessionCookie = "momento_session"

const recentLimit = 20

// Options tune a Server.
type Options struct {
	// BcryptCost defaults to bcrypt.DefaultCost. Tests use bcrypt.MinCost.
	BcryptCost int
	// Reply produces the assistant's answer to a prompt.
	Reply func(prompt string) string
	Now   func() time.Time
	// Catalog is the external photo library; nil uses a small built-in set.
	Catalog []momento.ExternalPhoto
}

// Server is an in-memory implementation of the Momento REST API mounted under
// /api.
type Server struct {
	router *mux.Router
	cost   int
	reply  func(string) string
	now    func() time.Time

	mu            sync.Mutex
	last          time.Time
	accounts      map[string]*account
	byEmail       map[string]string
	sessions      map[string]string
	posts         map[string]*momento.Post
	follows       map[string]map[string]bool
	reviews       map[string]*momento.Review
	notifications map[string]*notification
	chats         map[string][]momento.ChatMessage
	messages      []*momento.DirectMessage
	catalog       []momento.ExternalPhoto
	hits          map[string]int
	delay         func(*http.Request)
}

type account struct {
	user momento.User
	hash []byte
}

type notification struct {
	id        string
	recipient string
	kind      momento.NotificationType
	actorID   string
	postID    string
	targetID  string
	read      bool
	createdAt time.Time
}

type ctxKey struct{}

// New builds a Server with no data.
func New(opts Options) *Server {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if opts.Reply == nil {
		opts.Reply = defaultReply
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Catalog == nil {
		opts.Catalog = defaultCatalog
	}
	s := &Server{
		cost:          opts.BcryptCost,
		reply:         opts.Reply,
		now:           opts.Now,
		accounts:      make(map[string]*account),
		byEmail:       make(map[string]string),
		sessions:      make(map[string]string),
		posts:         make(map[string]*momento.Post),
		follows:       make(map[string]map[string]bool),
		reviews:       make(map[string]*momento.Review),
		notifications: make(map[string]*notification),
		chats:         make(map[string][]momento.ChatMessage),
		catalog:       append([]momento.ExternalPhoto(nil), opts.Catalog...),
		hits:          make(map[string]int),
	}
	s.router = s.routes()
	return s
}

func defaultReply(prompt string) string {
	return "Nice idea! For \"" + strings.TrimSpace(prompt) + "\" try shooting in the golden hour and keep the caption short."
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Hits returns how many requests matched route, written as
// "METHOD /api/template", for example "GET /api/messages/partners".
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// SetDelay installs a hook run before every handler, outside the server lock.
func (s *Server) SetDelay(fn func(*http.Request)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = fn
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.instrument)

	api.HandleFunc("/users/signup", s.handleSignUp).Methods(http.MethodPost)
	api.HandleFunc("/users/signin", s.handleSignIn).Methods(http.MethodPost)
	api.HandleFunc("/users/signout", s.handleSignOut).Methods(http.MethodPost)
	api.HandleFunc("/users/profile", s.handleProfile).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(s.requireSession)

	authed.HandleFunc("/users", s.handleUsers).Methods(http.MethodGet)
	authed.HandleFunc("/users/{id}", s.handleUser).Methods(http.MethodGet)
	authed.HandleFunc("/users/{id}", s.handleUpdateUser).Methods(http.MethodPut)
	authed.HandleFunc("/users/{id}", s.handleDeleteUser).Methods(http.MethodDelete)
	authed.HandleFunc("/users/{id}/followers", s.handleFollowers).Methods(http.MethodGet)
	authed.HandleFunc("/users/{id}/following", s.handleFollowing).Methods(http.MethodGet)
	authed.HandleFunc("/users/{id}/posts", s.handleUserPosts).Methods(http.MethodGet)
	authed.HandleFunc("/users/{id}/liked", s.handleLikedPosts).Methods(http.MethodGet)
	authed.HandleFunc("/users/{id}/saved", s.handleSavedPosts).Methods(http.MethodGet)
	authed.HandleFunc("/follows/{id}", s.handleFollow).Methods(http.MethodPost)
	authed.HandleFunc("/follows/{id}", s.handleUnfollow).Methods(http.MethodDelete)

	authed.HandleFunc("/posts/recent", s.handleRecentPosts).Methods(http.MethodGet)
	authed.HandleFunc("/posts/search", s.handleSearchPosts).Methods(http.MethodGet)
	authed.HandleFunc("/posts", s.handlePosts).Methods(http.MethodGet)
	authed.HandleFunc("/posts", s.handleCreatePost).Methods(http.MethodPost)
	authed.HandleFunc("/posts/{id}", s.handlePost).Methods(http.MethodGet)
	authed.HandleFunc("/posts/{id}", s.handleUpdatePost).Methods(http.MethodPut)
	authed.HandleFunc("/posts/{id}", s.handleDeletePost).Methods(http.MethodDelete)
	authed.HandleFunc("/posts/{id}/like", s.toggle(likes, true)).Methods(http.MethodPost)
	authed.HandleFunc("/posts/{id}/like", s.toggle(likes, false)).Methods(http.MethodDelete)
	authed.HandleFunc("/posts/{id}/save", s.toggle(saves, true)).Methods(http.MethodPost)
	authed.HandleFunc("/posts/{id}/save", s.toggle(saves, false)).Methods(http.MethodDelete)

	authed.HandleFunc("/reviews", s.handleCreateReview).Methods(http.MethodPost)
	authed.HandleFunc("/reviews/post/{id}", s.handlePostReviews).Methods(http.MethodGet)
	authed.HandleFunc("/reviews/external/{id}", s.handleExternalReviews).Methods(http.MethodGet)
	authed.HandleFunc("/reviews/{id}", s.handleUpdateReview).Methods(http.MethodPut)
	authed.HandleFunc("/reviews/{id}", s.handleDeleteReview).Methods(http.MethodDelete)

	authed.HandleFunc("/external/search", s.handleSearchExternal).Methods(http.MethodGet)
	authed.HandleFunc("/external/{id}", s.handleExternalDetails).Methods(http.MethodGet)

	authed.HandleFunc("/notifications", s.handleNotifications).Methods(http.MethodGet)
	authed.HandleFunc("/notifications/unread-count", s.handleUnreadNotifications).Methods(http.MethodGet)
	authed.HandleFunc("/notifications/read-all", s.handleReadAllNotifications).Methods(http.MethodPut)
	authed.HandleFunc("/notifications/{id}/read", s.handleReadNotification).Methods(http.MethodPut)
	authed.HandleFunc("/notifications/{id}", s.handleDeleteNotification).Methods(http.MethodDelete)

	authed.HandleFunc("/chat/history", s.handleChatHistory).Methods(http.MethodGet)
	authed.HandleFunc("/chat/history", s.handleClearChat).Methods(http.MethodDelete)
	authed.HandleFunc("/chat/messages", s.handleSendChat).Methods(http.MethodPost)
	authed.HandleFunc("/chat/messages/{id}/feedback", s.handleFeedback).Methods(http.MethodPut)

	authed.HandleFunc("/messages/partners", s.handlePartners).Methods(http.MethodGet)
	authed.HandleFunc("/messages/unread-count", s.handleUnreadMessages).Methods(http.MethodGet)
	authed.HandleFunc("/messages/{id}", s.handleConversation).Methods(http.MethodGet)
	authed.HandleFunc("/messages/{id}", s.handleSendMessage).Methods(http.MethodPost)
	authed.HandleFunc("/messages/{id}/read", s.handleReadConversation).Methods(http.MethodPut)

	admin := authed.PathPrefix("/admin").Subrouter()
	admin.Use(s.requireAdmin)
	admin.HandleFunc("/users", s.handleAdminUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id}", s.handleAdminDeleteUser).Methods(http.MethodDelete)
	admin.HandleFunc("/posts/{id}", s.handleAdminDeletePost).Methods(http.MethodDelete)

	return r
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				s.mu.Lock()
				s.hits[r.Method+" "+tpl]++
				delay := s.delay
				s.mu.Unlock()
				if delay != nil {
					delay(r)
				}
			}
		}
		log.Debug("mock api request", "method", r.Method, "path", r.URL.Path, "request_id", r.Header.Get("X-Request-ID"))
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		userID, ok := s.sessionUserLocked(r)
		s.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), userID)))
	})
}

func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		acct := s.accounts[currentUser(r)]
		s.mu.Unlock()
		if acct == nil || !acct.user.IsAdmin() {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) sessionUserLocked(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	userID, ok := s.sessions[cookie.Value]
	if !ok {
		return "", false
	}
	if _, exists := s.accounts[userID]; !exists {
		delete(s.sessions, cookie.Value)
		return "", false
	}
	return userID, true
}

// tickLocked returns a strictly increasing timestamp so ordering by time is
// stable even when the clock does not advance between writes.
func (s *Server) tickLocked() time.Time {
	now := s.now().UTC()
	if !now.After(s.last) {
		now = s.last.Add(time.Microsecond)
	}
	s.last = now
	return now
}

func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("mock api encode failed", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("request body required")
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

func sortPostsNewest(posts []momento.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].CreatedAt.After(posts[j].CreatedAt)
	})
}
