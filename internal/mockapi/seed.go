package mockapi

import (
	"fmt"

	"github.com/five82/momento/internal/momento"
)

// SeedUser registers an account directly, bypassing the HTTP layer.
func (s *Server) SeedUser(req momento.NewUser, role momento.Role) (momento.User, error) {
	if role == "" {
		role = momento.RoleUser
	}
	return s.createAccount(req, role)
}

// SeedPost publishes a post on behalf of creatorID.
func (s *Server) SeedPost(creatorID string, req momento.NewPost) (momento.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accounts[creatorID] == nil {
		return momento.Post{}, fmt.Errorf("seed post: unknown creator %q", creatorID)
	}
	return s.createPostLocked(creatorID, req), nil
}

// SeedMessage stores an unread direct message from one user to another.
func (s *Server) SeedMessage(fromID, toID, content string) (momento.DirectMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accounts[fromID] == nil || s.accounts[toID] == nil {
		return momento.DirectMessage{}, fmt.Errorf("seed message: unknown user")
	}
	return s.appendMessageLocked(fromID, toID, content, ""), nil
}

// SeedLike records userID liking postID and notifies the creator.
func (s *Server) SeedLike(userID, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[postID]
	if !ok || s.accounts[userID] == nil {
		return fmt.Errorf("seed like: unknown post or user")
	}
	if setMember(&post.Likes, userID, true) && post.Creator.ID != userID {
		s.notifyLocked(post.Creator.ID, momento.NotificationLike, userID, postID, "")
	}
	return nil
}

// SeedFollow records followerID following targetID and notifies the target.
func (s *Server) SeedFollow(followerID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accounts[followerID] == nil || s.accounts[targetID] == nil || followerID == targetID {
		return fmt.Errorf("seed follow: invalid users")
	}
	if s.follows[followerID] == nil {
		s.follows[followerID] = make(map[string]bool)
	}
	if !s.follows[followerID][targetID] {
		s.follows[followerID][targetID] = true
		s.notifyLocked(targetID, momento.NotificationFollow, followerID, "", followerID)
	}
	return nil
}

// PostLikes returns the like list of a post as the server sees it.
func (s *Server) PostLikes(postID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[postID]
	if !ok {
		return nil
	}
	return append([]string(nil), post.Likes...)
}

// DemoPassword is the password of every account created by SeedDemo.
const DemoPassword = "momento-demo"

// SeedDemo fills the server with a small community for local development:
// an admin, three members, a handful of posts, unread messages and
// notifications for the first member.
func (s *Server) SeedDemo() (momento.User, error) {
	admin, err := s.SeedUser(momento.NewUser{Name: "Admin", Email: "admin@momento.test", Username: "admin", Password: DemoPassword}, momento.RoleAdmin)
	if err != nil {
		return momento.User{}, err
	}
	me, err := s.SeedUser(momento.NewUser{Name: "Sam Rivera", Email: "sam@momento.test", Username: "sam", Password: DemoPassword}, momento.RoleUser)
	if err != nil {
		return momento.User{}, err
	}
	alice, err := s.SeedUser(momento.NewUser{Name: "Alice Chen", Email: "alice@momento.test", Username: "alice", Password: DemoPassword}, momento.RoleUser)
	if err != nil {
		return momento.User{}, err
	}
	bob, err := s.SeedUser(momento.NewUser{Name: "Bob Okafor", Email: "bob@momento.test", Username: "bob", Password: DemoPassword}, momento.RoleUser)
	if err != nil {
		return momento.User{}, err
	}

	captions := []momento.NewPost{
		{Caption: "Morning fog over the harbour", Location: "Lisbon", Tags: []string{"travel", "fog"}},
		{Caption: "My cat judging my breakfast", Tags: []string{"cat", "home"}},
		{Caption: "Golden hour on the ridge", Location: "Dolomites", Tags: []string{"mountains", "sunset"}},
		{Caption: "Street food crawl", Location: "Bangkok", Tags: []string{"food"}},
	}
	var mine momento.Post
	for i, p := range captions {
		creator := []string{me.ID, alice.ID, bob.ID, me.ID}[i]
		post, err := s.SeedPost(creator, p)
		if err != nil {
			return momento.User{}, err
		}
		if creator == me.ID {
			mine = post
		}
	}
	for i := 0; i < 15; i++ {
		if _, err := s.SeedPost(admin.ID, momento.NewPost{Caption: fmt.Sprintf("Archive shot #%d", i+1), Tags: []string{"archive"}}); err != nil {
			return momento.User{}, err
		}
	}

	for _, text := range []string{"Hey!", "Are you coming tonight?", "Bring the camera"} {
		if _, err := s.SeedMessage(alice.ID, me.ID, text); err != nil {
			return momento.User{}, err
		}
	}
	if _, err := s.SeedMessage(bob.ID, me.ID, "Nice shot yesterday"); err != nil {
		return momento.User{}, err
	}
	if err := s.SeedLike(alice.ID, mine.ID); err != nil {
		return momento.User{}, err
	}
	if err := s.SeedLike(bob.ID, mine.ID); err != nil {
		return momento.User{}, err
	}
	if err := s.SeedFollow(alice.ID, me.ID); err != nil {
		return momento.User{}, err
	}
	return me, nil
}
