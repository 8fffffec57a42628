package feed

import (
	"context"

	"github.com/five82/momento/internal/momento"
	"github.com/five82/momento/internal/queries"
	"github.com/five82/momento/internal/query"
)

// Feed is the loaded prefix of the explore feed. It is stored wholesale
// under the infinitePosts key.
type Feed struct {
	Pages    [][]momento.Post
	PageSize int
}

// Items flattens the loaded pages.
func (f Feed) Items() []momento.Post {
	var out []momento.Post
	for _, page := range f.Pages {
		out = append(out, page...)
	}
	return out
}

// HasMore reports whether another page may exist.
func (f Feed) HasMore() bool {
	_, ok := NextPage(f.Pages, f.PageSize)
	return ok
}

// NextPage returns the zero-based index of the page after pages. Loading
// stops once a page comes back empty or shorter than size.
func NextPage(pages [][]momento.Post, size int) (int, bool) {
	if len(pages) == 0 {
		return 0, true
	}
	last := pages[len(pages)-1]
	if len(last) == 0 || len(last) < size {
		return 0, false
	}
	return len(pages), true
}

// Pager loads the explore feed one page at a time.
type Pager struct {
	q    *queries.Set
	size int
}

// NewPager creates a pager; size <= 0 uses momento.DefaultPageSize.
func NewPager(q *queries.Set, size int) *Pager {
	if size <= 0 {
		size = momento.DefaultPageSize
	}
	return &Pager{q: q, size: size}
}

func (p *Pager) key() query.Key { return queries.InfinitePostsKey() }

// Current returns the cached feed and whether it has been invalidated since
// it was loaded.
func (p *Pager) Current() (Feed, bool) {
	f, entry, ok := query.Cached[Feed](p.q.Store(), p.key())
	if !ok {
		return Feed{PageSize: p.size}, false
	}
	return f, entry.Stale
}

// Next loads the following page. A stale feed is reloaded instead, so pages
// never mix data from before and after a mutation. Concurrent calls share a
// single request.
func (p *Pager) Next(ctx context.Context) (Feed, error) {
	return query.Fetch(ctx, p.q.Store(), p.key(), func(ctx context.Context) (Feed, error) {
		cur, stale := p.Current()
		if stale {
			return p.load(ctx, len(cur.Pages))
		}
		page, ok := NextPage(cur.Pages, p.size)
		if !ok {
			return cur, nil
		}
		posts, err := p.q.Client().Posts(ctx, page, p.size)
		if err != nil {
			return cur, err
		}
		pages := make([][]momento.Post, 0, len(cur.Pages)+1)
		pages = append(pages, cur.Pages...)
		pages = append(pages, posts)
		return Feed{Pages: pages, PageSize: p.size}, nil
	})
}

// Refresh reloads every page loaded so far, at least the first.
func (p *Pager) Refresh(ctx context.Context) (Feed, error) {
	return query.Fetch(ctx, p.q.Store(), p.key(), func(ctx context.Context) (Feed, error) {
		cur, _ := p.Current()
		return p.load(ctx, len(cur.Pages))
	})
}

func (p *Pager) load(ctx context.Context, count int) (Feed, error) {
	count = max(count, 1)
	out := Feed{PageSize: p.size}
	for page := 0; page < count; page++ {
		posts, err := p.q.Client().Posts(ctx, page, p.size)
		if err != nil {
			return Feed{}, err
		}
		out.Pages = append(out.Pages, posts)
		if _, more := NextPage(out.Pages, p.size); !more {
			break
		}
	}
	return out, nil
}
