package mockapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/five82/momento/internal/momento"
)

const (
	likes = "like"
	saves = "save"
)

func (s *Server) handleRecentPosts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	posts := s.postsLocked(func(*momento.Post) bool { return true })
	s.mu.Unlock()
	if len(posts) > recentLimit {
		posts = posts[:recentLimit]
	}
	writeJSON(w, http.StatusOK, momento.PostList{Documents: posts})
}

// handlePosts pages through every post, newest first. Pages are zero-based.
func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 0 {
		page = 0
	}
	if limit <= 0 {
		limit = momento.DefaultPageSize
	}
	s.mu.Lock()
	posts := s.postsLocked(func(*momento.Post) bool { return true })
	s.mu.Unlock()

	start := page * limit
	if start > len(posts) {
		start = len(posts)
	}
	end := min(start+limit, len(posts))
	writeJSON(w, http.StatusOK, momento.PostList{Documents: posts[start:end]})
}

func (s *Server) handleSearchPosts(w http.ResponseWriter, r *http.Request) {
	term := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	s.mu.Lock()
	posts := s.postsLocked(func(p *momento.Post) bool {
		if term == "" {
			return false
		}
		if strings.Contains(strings.ToLower(p.Caption), term) || strings.Contains(strings.ToLower(p.Location), term) {
			return true
		}
		for _, tag := range p.Tags {
			if strings.Contains(strings.ToLower(tag), term) {
				return true
			}
		}
		return false
	})
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, momento.PostList{Documents: posts})
}

func (s *Server) handleUserPosts(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	posts := s.postsLocked(func(p *momento.Post) bool { return p.Creator.ID == id })
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, momento.PostList{Documents: posts})
}

func (s *Server) handleLikedPosts(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	posts := s.postsLocked(func(p *momento.Post) bool { return p.LikedBy(id) })
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, momento.PostList{Documents: posts})
}

func (s *Server) handleSavedPosts(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	posts := s.postsLocked(func(p *momento.Post) bool { return p.SavedBy(id) })
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, momento.PostList{Documents: posts})
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req momento.NewPost
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Caption) == "" && req.ImageURL == "" {
		writeError(w, http.StatusBadRequest, "Caption or image required")
		return
	}
	s.mu.Lock()
	post := s.createPostLocked(currentUser(r), req)
	s.mu.Unlock()
	writeJSON(w, http.StatusCreated, post)
}

func (s *Server) handlePost(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	post, ok := s.posts[mux.Vars(r)["id"]]
	var out momento.Post
	if ok {
		out = clonePost(post)
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Post not found")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	var req momento.PostUpdate
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[mux.Vars(r)["id"]]
	switch {
	case !ok:
		writeError(w, http.StatusNotFound, "Post not found")
		return
	case post.Creator.ID != currentUser(r):
		writeError(w, http.StatusForbidden, "Cannot edit another user's post")
		return
	}
	post.Caption = req.Caption
	post.Location = req.Location
	post.Tags = append([]string(nil), req.Tags...)
	writeJSON(w, http.StatusOK, clonePost(post))
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[id]
	switch {
	case !ok:
		writeError(w, http.StatusNotFound, "Post not found")
		return
	case post.Creator.ID != currentUser(r):
		writeError(w, http.StatusForbidden, "Cannot delete another user's post")
		return
	}
	s.deletePostLocked(id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Post deleted"})
}

func (s *Server) handleAdminDeletePost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.posts[id]; !ok {
		writeError(w, http.StatusNotFound, "Post not found")
		return
	}
	s.deletePostLocked(id)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Post deleted"})
}

// toggle sets or clears the caller's id in a post's like or save list.
// Setting an id already present is a no-op, as is clearing an absent one.
func (s *Server) toggle(field string, on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me := currentUser(r)
		s.mu.Lock()
		defer s.mu.Unlock()
		post, ok := s.posts[mux.Vars(r)["id"]]
		if !ok {
			writeError(w, http.StatusNotFound, "Post not found")
			return
		}
		list := &post.Saves
		if field == likes {
			list = &post.Likes
		}
		if setMember(list, me, on) && on && field == likes && post.Creator.ID != me {
			s.notifyLocked(post.Creator.ID, momento.NotificationLike, me, post.ID, "")
		}
		writeJSON(w, http.StatusOK, clonePost(post))
	}
}

func setMember(list *[]string, userID string, on bool) bool {
	idx := -1
	for i, id := range *list {
		if id == userID {
			idx = i
			break
		}
	}
	switch {
	case on && idx < 0:
		*list = append(*list, userID)
		return true
	case !on && idx >= 0:
		*list = append((*list)[:idx:idx], (*list)[idx+1:]...)
		return true
	default:
		return false
	}
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req momento.NewReview
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	switch {
	case strings.TrimSpace(req.Review) == "":
		writeError(w, http.StatusBadRequest, "Review text required")
		return
	case (req.PostID == "") == (req.ExternalContentID == ""):
		writeError(w, http.StatusBadRequest, "Review needs either a post or external content")
		return
	}
	me := currentUser(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	review := &momento.Review{
		ID:        newID(),
		Author:    s.accounts[me].user,
		Review:    strings.TrimSpace(req.Review),
		Rating:    max(0, min(req.Rating, 5)),
		CreatedAt: s.tickLocked(),
	}
	if req.ExternalContentID != "" {
		if _, ok := s.photoLocked(req.ExternalContentID); !ok {
			writeError(w, http.StatusNotFound, "External content not found")
			return
		}
		review.ExternalContentID = req.ExternalContentID
		s.reviews[review.ID] = review
		writeJSON(w, http.StatusCreated, review)
		return
	}
	post, ok := s.posts[req.PostID]
	if !ok {
		writeError(w, http.StatusNotFound, "Post not found")
		return
	}
	review.PostID = post.ID
	s.reviews[review.ID] = review
	if post.Creator.ID != me {
		s.notifyLocked(post.Creator.ID, momento.NotificationReview, me, post.ID, "")
	}
	writeJSON(w, http.StatusCreated, review)
}

func (s *Server) handlePostReviews(w http.ResponseWriter, r *http.Request) {
	postID := mux.Vars(r)["id"]
	s.mu.Lock()
	reviews := make([]momento.Review, 0)
	for _, review := range s.reviews {
		if review.PostID == postID {
			reviews = append(reviews, *review)
		}
	}
	s.mu.Unlock()
	sortReviewsNewest(reviews)
	writeJSON(w, http.StatusOK, momento.ReviewList{Documents: reviews})
}

func (s *Server) handleUpdateReview(w http.ResponseWriter, r *http.Request) {
	var req momento.ReviewUpdate
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	review, ok := s.reviews[mux.Vars(r)["id"]]
	switch {
	case !ok:
		writeError(w, http.StatusNotFound, "Review not found")
		return
	case review.Author.ID != currentUser(r):
		writeError(w, http.StatusForbidden, "Cannot edit another user's review")
		return
	}
	if text := strings.TrimSpace(req.Review); text != "" {
		review.Review = text
	}
	if req.Rating > 0 {
		review.Rating = min(req.Rating, 5)
	}
	writeJSON(w, http.StatusOK, review)
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	review, ok := s.reviews[mux.Vars(r)["id"]]
	switch {
	case !ok:
		writeError(w, http.StatusNotFound, "Review not found")
		return
	case review.Author.ID != currentUser(r):
		writeError(w, http.StatusForbidden, "Cannot delete another user's review")
		return
	}
	delete(s.reviews, review.ID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Review deleted"})
}

func (s *Server) createPostLocked(creatorID string, req momento.NewPost) momento.Post {
	post := &momento.Post{
		ID:        newID(),
		Creator:   s.accounts[creatorID].user,
		Caption:   strings.TrimSpace(req.Caption),
		ImageURL:  req.ImageURL,
		Location:  req.Location,
		Tags:      append([]string(nil), req.Tags...),
		Likes:     []string{},
		Saves:     []string{},
		CreatedAt: s.tickLocked(),
	}
	s.posts[post.ID] = post
	return clonePost(post)
}

func (s *Server) deletePostLocked(id string) {
	delete(s.posts, id)
	for reviewID, review := range s.reviews {
		if review.PostID == id {
			delete(s.reviews, reviewID)
		}
	}
	for nid, n := range s.notifications {
		if n.postID == id {
			delete(s.notifications, nid)
		}
	}
}

func (s *Server) postsLocked(keep func(*momento.Post) bool) []momento.Post {
	posts := make([]momento.Post, 0, len(s.posts))
	for _, post := range s.posts {
		if keep(post) {
			posts = append(posts, clonePost(post))
		}
	}
	sortPostsNewest(posts)
	return posts
}

func clonePost(p *momento.Post) momento.Post {
	out := *p
	out.Tags = append([]string(nil), p.Tags...)
	out.Likes = append([]string{}, p.Likes...)
	out.Saves = append([]string{}, p.Saves...)
	return out
}
