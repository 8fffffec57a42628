package mockapi

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/five82/momento/internal/momento"
)

var (
	errEmailPassword = errors.New("email and password are required")
	errEmailTaken    = errors.New("email already registered")
)

func withUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

func currentUser(r *http.Request) string {
	userID, _ := r.Context().Value(ctxKey{}).(string)
	return userID
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req momento.NewUser
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := s.createAccount(req, momento.RoleUser)
	switch {
	case errors.Is(err, errEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	acct := s.accounts[s.byEmail[strings.ToLower(strings.TrimSpace(req.Email))]]
	s.mu.Unlock()
	// Bad credentials are a 400 so a failed sign-in is not mistaken for an
	// expired session.
	if acct == nil || bcrypt.CompareHashAndPassword(acct.hash, []byte(req.Password)) != nil {
		writeError(w, http.StatusBadRequest, "Invalid email or password")
		return
	}

	token := newID()
	s.mu.Lock()
	s.sessions[token] = acct.user.ID
	user := acct.user
	s.mu.Unlock()

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		s.mu.Lock()
		delete(s.sessions, cookie.Value)
		s.mu.Unlock()
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Signed out"})
}

// handleProfile answers null when nobody is signed in.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.sessionUserLocked(r)
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, s.accounts[userID].user)
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	s.mu.Lock()
	users := s.usersLocked()
	s.mu.Unlock()
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	acct := s.accounts[mux.Vars(r)["id"]]
	s.mu.Unlock()
	if acct == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, acct.user)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id != currentUser(r) {
		writeError(w, http.StatusForbidden, "Cannot edit another user")
		return
	}
	var req momento.UserUpdate
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.accounts[id]
	if acct == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if name := strings.TrimSpace(req.Name); name != "" {
		acct.user.Name = name
	}
	acct.user.Bio = req.Bio
	if req.ImageURL != "" {
		acct.user.ImageURL = req.ImageURL
	}
	s.syncCreatorLocked(acct.user)
	writeJSON(w, http.StatusOK, acct.user)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if id != currentUser(r) {
		writeError(w, http.StatusForbidden, "Cannot delete another user")
		return
	}
	s.mu.Lock()
	found := s.deleteUserLocked(id)
	s.mu.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Account deleted"})
}

func (s *Server) handleFollowers(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	var users []momento.User
	for follower, set := range s.follows {
		if set[id] && s.accounts[follower] != nil {
			users = append(users, s.accounts[follower].user)
		}
	}
	s.mu.Unlock()
	sortUsers(users)
	writeJSON(w, http.StatusOK, momento.UserList{Documents: nonNilUsers(users)})
}

func (s *Server) handleFollowing(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	var users []momento.User
	for followee := range s.follows[id] {
		if acct := s.accounts[followee]; acct != nil {
			users = append(users, acct.user)
		}
	}
	s.mu.Unlock()
	sortUsers(users)
	writeJSON(w, http.StatusOK, momento.UserList{Documents: nonNilUsers(users)})
}

func (s *Server) handleFollow(w http.ResponseWriter, r *http.Request) {
	me, target := currentUser(r), mux.Vars(r)["id"]
	if me == target {
		writeError(w, http.StatusBadRequest, "Cannot follow yourself")
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accounts[target] == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if s.follows[me] == nil {
		s.follows[me] = make(map[string]bool)
	}
	if !s.follows[me][target] {
		s.follows[me][target] = true
		s.notifyLocked(target, momento.NotificationFollow, me, "", me)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Followed"})
}

func (s *Server) handleUnfollow(w http.ResponseWriter, r *http.Request) {
	me, target := currentUser(r), mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.follows[me][target] {
		writeError(w, http.StatusNotFound, "Not following")
		return
	}
	delete(s.follows[me], target)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Unfollowed"})
}

func (s *Server) handleAdminUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	users := s.usersLocked()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, momento.UserList{Documents: users})
}

func (s *Server) handleAdminDeleteUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	found := s.deleteUserLocked(mux.Vars(r)["id"])
	s.mu.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted"})
}

func (s *Server) createAccount(req momento.NewUser, role momento.Role) (momento.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return momento.User{}, errEmailPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return momento.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.byEmail[email]; taken {
		return momento.User{}, errEmailTaken
	}
	username := strings.TrimSpace(req.Username)
	if username == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}
	user := momento.User{
		ID:       newID(),
		Name:     strings.TrimSpace(req.Name),
		Username: username,
		Email:    email,
		Role:     role,
	}
	s.accounts[user.ID] = &account{user: user, hash: hash}
	s.byEmail[email] = user.ID
	return user, nil
}

func (s *Server) usersLocked() []momento.User {
	users := make([]momento.User, 0, len(s.accounts))
	for _, acct := range s.accounts {
		users = append(users, acct.user)
	}
	sortUsers(users)
	return users
}

func (s *Server) deleteUserLocked(id string) bool {
	acct, ok := s.accounts[id]
	if !ok {
		return false
	}
	delete(s.accounts, id)
	delete(s.byEmail, acct.user.Email)
	for token, userID := range s.sessions {
		if userID == id {
			delete(s.sessions, token)
		}
	}
	delete(s.follows, id)
	for _, set := range s.follows {
		delete(set, id)
	}
	for postID, post := range s.posts {
		if post.Creator.ID == id {
			s.deletePostLocked(postID)
		}
	}
	for reviewID, review := range s.reviews {
		if review.Author.ID == id {
			delete(s.reviews, reviewID)
		}
	}
	for nid, n := range s.notifications {
		if n.recipient == id || n.actorID == id || n.targetID == id {
			delete(s.notifications, nid)
		}
	}
	kept := s.messages[:0]
	for _, msg := range s.messages {
		if msg.SenderID != id && msg.ReceiverID != id {
			kept = append(kept, msg)
		}
	}
	s.messages = kept
	delete(s.chats, id)
	return true
}

// syncCreatorLocked refreshes the embedded creator copy on every post.
func (s *Server) syncCreatorLocked(user momento.User) {
	for _, post := range s.posts {
		if post.Creator.ID == user.ID {
			post.Creator = user
		}
	}
}

func sortUsers(users []momento.User) {
	sort.SliceStable(users, func(i, j int) bool {
		return users[i].Username < users[j].Username
	})
}

func nonNilUsers(users []momento.User) []momento.User {
	if users == nil {
		return []momento.User{}
	}
	return users
}
