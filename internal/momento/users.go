package momento

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// SignUp creates an account. It does not sign the new user in.
func (c *Client) SignUp(ctx context.Context, user NewUser) (User, error) {
	var created User
	if err := c.do(ctx, http.MethodPost, "/users/signup", nil, user, &created); err != nil {
		return User{}, err
	}
	return created, nil
}

// SignIn authenticates and stores the session cookie in the client's jar.
func (c *Client) SignIn(ctx context.Context, email, password string) (User, error) {
	body := map[string]string{"email": email, "password": password}
	var user User
	if err := c.do(ctx, http.MethodPost, "/users/signin", nil, body, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// SignOut ends the server session and drops the local cookie.
func (c *Client) SignOut(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/users/signout", nil, nil, nil)
	c.ResetSession()
	return err
}

// CurrentUser returns the signed-in user. A missing session yields
// ErrUnauthorized.
func (c *Client) CurrentUser(ctx context.Context) (User, error) {
	var user *User
	if err := c.do(ctx, http.MethodPost, "/users/profile", nil, nil, &user); err != nil {
		return User{}, err
	}
	if user == nil || user.ID == "" {
		return User{}, ErrUnauthorized
	}
	return *user, nil
}

// Users lists members; limit <= 0 returns everyone.
func (c *Client) Users(ctx context.Context, limit int) ([]User, error) {
	var query url.Values
	if limit > 0 {
		query = url.Values{"limit": {strconv.Itoa(limit)}}
	}
	var users []User
	if err := c.get(ctx, "/users", query, &users); err != nil {
		return nil, err
	}
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

// User fetches one profile.
func (c *Client) User(ctx context.Context, userID string) (User, error) {
	if userID == "" {
		return User{}, fmt.Errorf("user id required")
	}
	var user User
	if err := c.get(ctx, "/users/"+userID, nil, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// UpdateUser edits the profile identified by update.UserID.
func (c *Client) UpdateUser(ctx context.Context, update UserUpdate) (User, error) {
	if update.UserID == "" {
		return User{}, fmt.Errorf("user id required")
	}
	var user User
	if err := c.do(ctx, http.MethodPut, "/users/"+update.UserID, nil, update, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// DeleteUser removes the caller's own account.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user id required")
	}
	return c.do(ctx, http.MethodDelete, "/users/"+userID, nil, nil, nil)
}

// Follow makes the current user follow userID.
func (c *Client) Follow(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user id required")
	}
	return c.do(ctx, http.MethodPost, "/follows/"+userID, nil, nil, nil)
}

// Unfollow reverses Follow. Unfollowing someone not followed is not an error.
func (c *Client) Unfollow(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user id required")
	}
	err := c.do(ctx, http.MethodDelete, "/follows/"+userID, nil, nil, nil)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

// Followers lists the users following userID.
func (c *Client) Followers(ctx context.Context, userID string) ([]User, error) {
	var list UserList
	if err := c.get(ctx, "/users/"+userID+"/followers", nil, &list); err != nil {
		return nil, err
	}
	return list.Documents, nil
}

// Following lists the users userID follows.
func (c *Client) Following(ctx context.Context, userID string) ([]User, error) {
	var list UserList
	if err := c.get(ctx, "/users/"+userID+"/following", nil, &list); err != nil {
		return nil, err
	}
	return list.Documents, nil
}

// AdminUsers lists every account. Requires the ADMIN role.
func (c *Client) AdminUsers(ctx context.Context) ([]User, error) {
	var list UserList
	if err := c.get(ctx, "/admin/users", nil, &list); err != nil {
		return nil, err
	}
	return list.Documents, nil
}

// AdminDeleteUser removes any account. Requires the ADMIN role.
func (c *Client) AdminDeleteUser(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("user id required")
	}
	return c.do(ctx, http.MethodDelete, "/admin/users/"+userID, nil, nil, nil)
}

// AdminDeletePost removes any post. Requires the ADMIN role.
func (c *Client) AdminDeletePost(ctx context.Context, postID string) error {
	if postID == "" {
		return fmt.Errorf("post id required")
	}
	return c.do(ctx, http.MethodDelete, "/admin/posts/"+postID, nil, nil, nil)
}
