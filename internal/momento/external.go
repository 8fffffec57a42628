package momento

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SearchExternal searches the external photo library. Pages are one-based;
// an empty term returns no results without a request.
func (c *Client) SearchExternal(ctx context.Context, term string, page int) (ExternalResults, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return ExternalResults{}, nil
	}
	page = max(page, 1)
	query := url.Values{"q": {term}, "page": {strconv.Itoa(page)}}
	var res ExternalResults
	if err := c.get(ctx, "/external/search", query, &res); err != nil {
		return ExternalResults{}, err
	}
	return res, nil
}

// ExternalDetails fetches one external photo.
func (c *Client) ExternalDetails(ctx context.Context, contentID string) (ExternalPhoto, error) {
	if contentID == "" {
		return ExternalPhoto{}, fmt.Errorf("content id required")
	}
	var photo ExternalPhoto
	if err := c.get(ctx, "/external/"+url.PathEscape(contentID), nil, &photo); err != nil {
		return ExternalPhoto{}, err
	}
	return photo, nil
}

// ExternalReviews lists reviews attached to an external photo.
func (c *Client) ExternalReviews(ctx context.Context, contentID string) ([]Review, error) {
	var list ReviewList
	if err := c.get(ctx, "/reviews/external/"+url.PathEscape(contentID), nil, &list); err != nil {
		return nil, err
	}
	return list.Documents, nil
}
