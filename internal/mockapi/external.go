package mockapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/five82/momento/internal/momento"
)

const externalPageSize = 10

var defaultCatalog = []momento.ExternalPhoto{
	{ID: "ext-fog-harbour", Description: "Fog rolling over a quiet harbour", Author: "Ines Duarte", ImageURL: "https://images.example.com/fog-harbour.jpg", Width: 4000, Height: 2667, Likes: 312},
	{ID: "ext-alpine-lake", Description: "Alpine lake at sunrise", Author: "Jonas Weber", ImageURL: "https://images.example.com/alpine-lake.jpg", Width: 5472, Height: 3648, Likes: 1204},
	{ID: "ext-night-market", Description: "Night market lanterns", Author: "Mai Tran", ImageURL: "https://images.example.com/night-market.jpg", Width: 3000, Height: 4500, Likes: 88},
	{ID: "ext-cat-window", Description: "Cat watching rain from a window", Author: "Lena Park", ImageURL: "https://images.example.com/cat-window.jpg", Width: 3024, Height: 4032, Likes: 2301},
	{ID: "ext-desert-road", Description: "Empty desert road at golden hour", Author: "Omar Haddad", ImageURL: "https://images.example.com/desert-road.jpg", Width: 6000, Height: 4000, Likes: 740},
}

func (s *Server) photoLocked(id string) (momento.ExternalPhoto, bool) {
	for _, p := range s.catalog {
		if p.ID == id {
			return p, true
		}
	}
	return momento.ExternalPhoto{}, false
}

// handleSearchExternal matches descriptions and authors. Pages are one-based.
func (s *Server) handleSearchExternal(w http.ResponseWriter, r *http.Request) {
	term := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	page = max(page, 1)

	s.mu.Lock()
	var matches []momento.ExternalPhoto
	for _, p := range s.catalog {
		if term != "" && (strings.Contains(strings.ToLower(p.Description), term) || strings.Contains(strings.ToLower(p.Author), term)) {
			matches = append(matches, p)
		}
	}
	s.mu.Unlock()

	start := min((page-1)*externalPageSize, len(matches))
	end := min(start+externalPageSize, len(matches))
	writeJSON(w, http.StatusOK, momento.ExternalResults{
		Results:    append([]momento.ExternalPhoto{}, matches[start:end]...),
		Total:      len(matches),
		TotalPages: (len(matches) + externalPageSize - 1) / externalPageSize,
	})
}

func (s *Server) handleExternalDetails(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	photo, ok := s.photoLocked(mux.Vars(r)["id"])
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "External content not found")
		return
	}
	writeJSON(w, http.StatusOK, photo)
}

func (s *Server) handleExternalReviews(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s.mu.Lock()
	reviews := make([]momento.Review, 0)
	for _, review := range s.reviews {
		if review.ExternalContentID == id {
			reviews = append(reviews, *review)
		}
	}
	s.mu.Unlock()
	sortReviewsNewest(reviews)
	writeJSON(w, http.StatusOK, momento.ReviewList{Documents: reviews})
}
