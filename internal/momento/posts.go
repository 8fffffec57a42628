package momento

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPageSize is the infinite-feed page size.
const DefaultPageSize = 10

// RecentPosts returns the home feed's newest posts.
func (c *Client) RecentPosts(ctx context.Context) ([]Post, error) {
	var list PostList
	if err := c.get(ctx, "/posts/recent", nil, &list); err != nil {
		return nil, err
	}
	return list.Documents, nil
}

// Posts returns one page of the explore feed. Pages are zero-based.
func (c *Client) Posts(ctx context.Context, page, limit int) ([]Post, error) {
	if page < 0 {
		page = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	query := url.Values{
		"page":  {strconv.Itoa(page)},
		"limit": {strconv.Itoa(limit)},
	}
	var list PostList
	if err := c.get(ctx, "/posts", query, &list); err != nil {
		return nil, err
	}
	return list.Documents, nil
}

// SearchPosts matches captions, tags and locations against term.
func (c *Client) SearchPosts(ctx context.Context, term string) ([]Post, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, nil
	}
	var list PostList
	if err := c.get(ctx, "/posts/search", url.Values{"q": {term}}, &list); err != nil {
		return nil, err
	}
	return list.Documents, nil
}

// Post fetches a single post.
func (c *Client) Post(ctx context.Context, postID string) (Post, error) {
	if postID == "" {
		return Post{}, fmt.Errorf("post id required")
	}
	var post Post
	if err := c.get(ctx, "/posts/"+postID, nil, &post); err != nil {
		return Post{}, err
	}
	return post, nil
}

// UserPosts lists posts created by userID.
func (c *Client) UserPosts(ctx context.Context, userID string) ([]Post, error) {
	var list PostList
	if err := c.get(ctx, "/users/"+userID+"/posts", nil, &list); err != nil {
		return nil, err
	}
	return list.Documents, nil
}

// LikedPosts lists posts liked by userID.
func (c *Client) LikedPosts(ctx context.Context, userID string) ([]Post, error) {
	var list PostList
	if err := c.get(ctx, "/users/"+userID+"/liked", nil, &list); err != nil {
		return nil, err
	}
	return list.Documents, nil
}

// SavedPosts lists posts saved by userID.
func (c *Client) SavedPosts(ctx context.Context, userID string) ([]Post, error) {
	var list PostList
	if err := c.get(ctx, "/users/"+userID+"/saved", nil, &list); err != nil {
		return nil, err
	}
	return list.Documents, nil
}

// CreatePost publishes a new post.
func (c *Client) CreatePost(ctx context.Context, post NewPost) (Post, error) {
	var created Post
	if err := c.do(ctx, http.MethodPost, "/posts", nil, post, &created); err != nil {
		return Post{}, err
	}
	return created, nil
}

// UpdatePost edits the post identified by update.PostID.
func (c *Client) UpdatePost(ctx context.Context, update PostUpdate) (Post, error) {
	if update.PostID == "" {
		return Post{}, fmt.Errorf("post id required")
	}
	var post Post
	if err := c.do(ctx, http.MethodPut, "/posts/"+update.PostID, nil, update, &post); err != nil {
		return Post{}, err
	}
	return post, nil
}

// DeletePost removes one of the caller's posts.
func (c *Client) DeletePost(ctx context.Context, postID string) error {
	if postID == "" {
		return fmt.Errorf("post id required")
	}
	return c.do(ctx, http.MethodDelete, "/posts/"+postID, nil, nil, nil)
}

// LikePost sets the caller's like on a post. It is idempotent server side.
func (c *Client) LikePost(ctx context.Context, postID string) (Post, error) {
	return c.postToggle(ctx, http.MethodPost, postID, "like")
}

// UnlikePost clears the caller's like.
func (c *Client) UnlikePost(ctx context.Context, postID string) (Post, error) {
	return c.postToggle(ctx, http.MethodDelete, postID, "like")
}

// SavePost bookmarks a post.
func (c *Client) SavePost(ctx context.Context, postID string) (Post, error) {
	return c.postToggle(ctx, http.MethodPost, postID, "save")
}

// UnsavePost removes a bookmark.
func (c *Client) UnsavePost(ctx context.Context, postID string) (Post, error) {
	return c.postToggle(ctx, http.MethodDelete, postID, "save")
}

func (c *Client) postToggle(ctx context.Context, method, postID, action string) (Post, error) {
	if postID == "" {
		return Post{}, fmt.Errorf("post id required")
	}
	var post Post
	if err := c.do(ctx, method, "/posts/"+postID+"/"+action, nil, nil, &post); err != nil {
		return Post{}, err
	}
	return post, nil
}

// PostReviews lists reviews attached to a post.
func (c *Client) PostReviews(ctx context.Context, postID string) ([]Review, error) {
	var list ReviewList
	if err := c.get(ctx, "/reviews/post/"+postID, nil, &list); err != nil {
		return nil, err
	}
	return list.Documents, nil
}

// CreateReview attaches a review to a post or an external photo.
func (c *Client) CreateReview(ctx context.Context, review NewReview) (Review, error) {
	var created Review
	if err := c.do(ctx, http.MethodPost, "/reviews", nil, review, &created); err != nil {
		return Review{}, err
	}
	return created, nil
}

// UpdateReview edits one of the caller's reviews.
func (c *Client) UpdateReview(ctx context.Context, update ReviewUpdate) (Review, error) {
	if update.ReviewID == "" {
		return Review{}, fmt.Errorf("review id required")
	}
	var updated Review
	if err := c.do(ctx, http.MethodPut, "/reviews/"+update.ReviewID, nil, update, &updated); err != nil {
		return Review{}, err
	}
	return updated, nil
}

// DeleteReview removes one of the caller's reviews.
func (c *Client) DeleteReview(ctx context.Context, reviewID string) error {
	if reviewID == "" {
		return fmt.Errorf("review id required")
	}
	return c.do(ctx, http.MethodDelete, "/reviews/"+reviewID, nil, nil, nil)
}
