package ui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/momento/internal/actions"
	"github.com/five82/momento/internal/momento"
)

// exploreState is the search box of the explore view. In external mode
// the term searches the photo library instead of captions.
type exploreState struct {
	input    textinput.Model
	term     string
	external bool
	page     int
}

func newExploreState() exploreState {
	ti := textinput.New()
	ti.Placeholder = "Search captions..."
	ti.CharLimit = 100
	ti.Prompt = "/ "
	return exploreState{input: ti, page: 1}
}

// profileState is the user shown by the profile view.
type profileState struct {
	userID string
}

// awaitThen is await with a follow-up run on the UI goroutine when the
// mutation succeeds.
func awaitThen[T any](gen uint64, action string, p *actions.Pending[T], then func(Model) (tea.Model, tea.Cmd)) tea.Cmd {
	return func() tea.Msg {
		<-p.Done()
		return actionMsg{gen: gen, action: action, err: p.Err(), then: then}
	}
}

// visiblePosts is the cached post list of the current list view.
func (m Model) visiblePosts() []momento.Post {
	if m.q == nil {
		return nil
	}
	switch m.view {
	case ViewFeed:
		posts, _, _ := m.q.RecentPosts().Cached()
		return posts
	case ViewExplore:
		if m.explore.term != "" {
			posts, _, _ := m.q.Search(m.explore.term).Cached()
			return posts
		}
		if m.pager != nil {
			f, _ := m.pager.Current()
			return f.Items()
		}
	case ViewSaved:
		posts, _, _ := m.q.SavedPosts(m.sess.UserID()).Cached()
		return posts
	case ViewProfile:
		posts, _, _ := m.q.UserPosts(m.profile.userID).Cached()
		return posts
	}
	return nil
}

func (m Model) selectedPost() (momento.Post, bool) {
	posts := m.visiblePosts()
	cur := m.cursor[m.view]
	if cur < 0 || cur >= len(posts) {
		return momento.Post{}, false
	}
	return posts[cur], true
}

func (m Model) reloadExplore(force bool) tea.Cmd {
	if m.explore.external {
		return m.load(get(m.q.ExternalSearch(m.explore.term, m.explore.page), force))
	}
	if m.explore.term != "" {
		return m.load(get(m.q.Search(m.explore.term), force))
	}
	pager := m.pager
	f, stale := pager.Current()
	switch {
	case force || stale:
		return m.load(func(ctx context.Context) error {
			_, err := pager.Refresh(ctx)
			return err
		})
	case len(f.Pages) == 0:
		return m.load(func(ctx context.Context) error {
			_, err := pager.Next(ctx)
			return err
		})
	}
	return nil
}

// maybeLoadMore fetches the next explore page once the cursor nears the end
// of what is loaded.
func (m Model) maybeLoadMore() tea.Cmd {
	if m.view != ViewExplore || m.explore.external || m.explore.term != "" || m.pager == nil {
		return nil
	}
	f, _ := m.pager.Current()
	if !f.HasMore() || len(f.Pages) == 0 {
		return nil
	}
	if m.cursor[ViewExplore] < len(f.Items())-3 {
		return nil
	}
	return m.loadMore()
}

func (m Model) loadMore() tea.Cmd {
	if m.view != ViewExplore || m.explore.external || m.explore.term != "" || m.pager == nil {
		return nil
	}
	pager := m.pager
	return m.load(func(ctx context.Context) error {
		_, err := pager.Next(ctx)
		return err
	})
}

func (m Model) handlePostListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.view == ViewExplore {
		switch {
		case key.Matches(msg, m.keys.Search):
			return m.focusSearch()
		case key.Matches(msg, m.keys.External):
			return m.toggleExternal()
		}
	}
	switch {
	case key.Matches(msg, m.keys.NewPost):
		return m.openNewPost()
	case key.Matches(msg, m.keys.More):
		return m, m.loadMore()
	}
	post, ok := m.selectedPost()
	if !ok {
		return m, nil
	}
	return m.handlePostAction(msg, post)
}

// handlePostAction applies the post keys shared by lists and the detail view.
func (m Model) handlePostAction(msg tea.KeyMsg, post momento.Post) (tea.Model, tea.Cmd) {
	me := m.sess.UserID()
	switch {
	case key.Matches(msg, m.keys.Open):
		if m.view == ViewPost {
			return m, nil
		}
		m.postID = post.ID
		m.cursor[ViewPost] = 0
		return m.switchView(ViewPost)

	case key.Matches(msg, m.keys.Like):
		if post.LikedBy(me) {
			return m, await(m.gen, "unlike", m.runner.UnlikePost(post.ID))
		}
		return m, await(m.gen, "like", m.runner.LikePost(post.ID))

	case key.Matches(msg, m.keys.Save):
		if post.SavedBy(me) {
			return m, await(m.gen, "unsave", m.runner.UnsavePost(post.ID))
		}
		return m, await(m.gen, "save", m.runner.SavePost(post.ID))

	case key.Matches(msg, m.keys.Author):
		m.profile.userID = post.Creator.ID
		m.cursor[ViewProfile] = 0
		return m.switchView(ViewProfile)

	case key.Matches(msg, m.keys.Edit):
		if post.Creator.ID != me {
			m.status = "You can only edit your own posts"
			return m, nil
		}
		return m.openEditPost(post)

	case key.Matches(msg, m.keys.Delete):
		return m.confirmDeletePost(post)
	}
	return m, nil
}

func (m Model) openNewPost() (tea.Model, tea.Cmd) {
	runner := m.runner
	gen := m.gen
	m.modal = newPrompt("New post", []promptField{
		{label: "Caption"},
		{label: "Location", optional: true},
		{label: "Tags", optional: true},
	}, func(v []string) tea.Cmd {
		return await(gen, "create post", runner.CreatePost(momento.NewPost{
			Caption:  v[0],
			Location: v[1],
			Tags:     splitTags(v[2]),
		}))
	})
	return m, textinput.Blink
}

func (m Model) openEditPost(post momento.Post) (tea.Model, tea.Cmd) {
	runner := m.runner
	gen := m.gen
	m.modal = newPrompt("Edit post", []promptField{
		{label: "Caption", value: post.Caption},
		{label: "Location", value: post.Location, optional: true},
		{label: "Tags", value: strings.Join(post.Tags, ", "), optional: true},
	}, func(v []string) tea.Cmd {
		return await(gen, "update post", runner.UpdatePost(momento.PostUpdate{
			PostID:   post.ID,
			Caption:  v[0],
			Location: v[1],
			Tags:     splitTags(v[2]),
		}))
	})
	return m, textinput.Blink
}

func (m Model) confirmDeletePost(post momento.Post) (tea.Model, tea.Cmd) {
	own := post.Creator.ID == m.sess.UserID()
	if !own && !m.isAdmin() {
		m.status = "You can only delete your own posts"
		return m, nil
	}
	runner := m.runner
	gen := m.gen
	leave := m.view == ViewPost
	m.modal = &confirmModal{
		title: "Delete post?",
		body:  truncate(oneLine(post.Caption), 60),
		confirm: func() tea.Cmd {
			var then func(Model) (tea.Model, tea.Cmd)
			if leave {
				then = func(m Model) (tea.Model, tea.Cmd) { return m.back() }
			}
			if own {
				return awaitThen(gen, "delete post", runner.DeletePost(post.ID), then)
			}
			return awaitThen(gen, "delete post", runner.AdminDeletePost(post.ID), then)
		},
	}
	return m, nil
}

func splitTags(s string) []string {
	var tags []string
	for _, t := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
		tags = append(tags, strings.TrimPrefix(t, "#"))
	}
	return tags
}

func (m Model) focusSearch() (tea.Model, tea.Cmd) {
	m.explore.input.SetValue(m.explore.term)
	m.explore.input.CursorEnd()
	cmd := m.explore.input.Focus()
	return m, cmd
}

// handleSearchInputKey feeds the search box. Each keystroke restarts the
// debounce; only the settled term is searched.
func (m Model) handleSearchInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		m.explore.input.Blur()
		m.searcher.Flush()
		return m, nil
	case key.Matches(msg, m.keys.Escape):
		m.explore.input.Blur()
		return m, nil
	}
	before := m.explore.input.Value()
	var cmd tea.Cmd
	m.explore.input, cmd = m.explore.input.Update(msg)
	if value := m.explore.input.Value(); value != before {
		m.searcher.Push(value)
	}
	return m, cmd
}

func (m Model) handleSearch(term string) (tea.Model, tea.Cmd) {
	term = strings.TrimSpace(term)
	if term == m.explore.term {
		return m, nil
	}
	m.explore.term = term
	m.explore.page = 1
	m.cursor[ViewExplore] = 0
	if m.view != ViewExplore {
		return m, nil
	}
	return m, m.reloadExplore(false)
}

func (m Model) postRow(p momento.Post, me string) string {
	like := "♡"
	if p.LikedBy(me) {
		like = "♥"
	}
	saved := " "
	if p.SavedBy(me) {
		saved = "★"
	}
	width := max(m.width-48, 16)
	return fmt.Sprintf("%s %s %-16s %s  %3d  %s",
		like, saved,
		truncate("@"+p.Creator.Username, 16),
		padRight(truncate(oneLine(p.Caption), width), width),
		len(p.Likes),
		relativeTime(p.CreatedAt, m.now()))
}

func (m Model) renderPostList() string {
	styles := m.theme.Styles()
	height := m.contentHeight()
	posts := m.visiblePosts()
	me := m.sess.UserID()

	title := "Home"
	if m.view == ViewSaved {
		title = "Saved"
	}
	if m.view == ViewExplore {
		title = "Explore"
		if m.explore.term != "" {
			title = fmt.Sprintf("Search: %s (%s)", m.explore.term, countLabel(len(posts), "result", "results"))
		}
	}

	rows := make([]string, 0, len(posts))
	for _, p := range posts {
		rows = append(rows, m.postRow(p, me))
	}

	var b strings.Builder
	if m.view == ViewExplore && m.explore.input.Focused() {
		b.WriteString(m.explore.input.View())
		b.WriteString("\n")
		height--
	}
	switch {
	case len(rows) > 0:
		b.WriteString(m.renderRows(rows, m.cursor[m.view], height-3))
	case m.view == ViewExplore && m.explore.term != "":
		b.WriteString(styles.MutedText.Render("No posts match your search"))
	case m.view == ViewSaved:
		b.WriteString(styles.MutedText.Render("Nothing saved yet. Press s on a post to keep it here."))
	default:
		b.WriteString(styles.MutedText.Render("No posts yet. Press n to share one."))
	}
	if m.view == ViewExplore && m.explore.term == "" && m.pager != nil {
		if f, _ := m.pager.Current(); len(f.Pages) > 0 && !f.HasMore() {
			b.WriteString("\n")
			b.WriteString(styles.FaintText.Render("You've reached the end"))
		}
	}
	return m.renderBox(title, b.String(), m.width, height, true)
}

// Post detail

func (m Model) handlePostKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	post, _, ok := m.q.Post(m.postID).Cached()
	if !ok {
		return m, nil
	}
	reviews, _, _ := m.q.Reviews(post.ID).Cached()
	if next, cmd, ok := m.handleReviewKey(msg, momento.NewReview{PostID: post.ID}, reviews); ok {
		return next, cmd
	}
	return m.handlePostAction(msg, post)
}

// handleReviewKey applies the review keys of a detail view. target names
// what a new review is attached to; reviews is the list under the cursor.
// ok is false when msg is not a review key or the cursor is not on one of
// the current user's reviews.
func (m Model) handleReviewKey(msg tea.KeyMsg, target momento.NewReview, reviews []momento.Review) (tea.Model, tea.Cmd, bool) {
	runner, gen := m.runner, m.gen
	var own *momento.Review
	if cur := m.cursor[m.view]; cur < len(reviews) && reviews[cur].Author.ID == m.sess.UserID() {
		own = &reviews[cur]
	}
	switch {
	case key.Matches(msg, m.keys.Review):
		m.modal = newPrompt("Review", []promptField{
			{label: "Review"},
			{label: "Rating", optional: true},
		}, func(v []string) tea.Cmd {
			review := target
			review.Review = v[0]
			review.Rating, _ = strconv.Atoi(v[1])
			return await(gen, "create review", runner.CreateReview(review))
		})
		return m, textinput.Blink, true

	case key.Matches(msg, m.keys.EditReview):
		if own == nil {
			m.status = "Select one of your reviews to edit it"
			return m, nil, true
		}
		r := *own
		rating := ""
		if r.Rating > 0 {
			rating = strconv.Itoa(r.Rating)
		}
		m.modal = newPrompt("Edit review", []promptField{
			{label: "Review", value: r.Review},
			{label: "Rating", value: rating, optional: true},
		}, func(v []string) tea.Cmd {
			rating, _ := strconv.Atoi(v[1])
			return await(gen, "update review", runner.UpdateReview(r, v[0], rating))
		})
		return m, textinput.Blink, true

	case key.Matches(msg, m.keys.Delete):
		if own == nil {
			return m, nil, false
		}
		r := *own
		m.modal = &confirmModal{
			title: "Delete review?",
			body:  truncate(oneLine(r.Review), 60),
			confirm: func() tea.Cmd {
				return await(gen, "delete review", runner.DeleteReview(r))
			},
		}
		return m, nil, true
	}
	return m, nil, false
}

func (m Model) renderPost() string {
	styles := m.theme.Styles()
	height := m.contentHeight()
	post, entry, ok := m.q.Post(m.postID).Cached()
	if !ok {
		if entry.Err != nil {
			return m.renderBox("Post", styles.DangerText.Render(entry.Err.Error()), m.width, height, true)
		}
		return m.renderBox("Post", styles.MutedText.Render("Loading..."), m.width, height, true)
	}
	me := m.sess.UserID()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(post.Creator.DisplayName()))
	b.WriteString(styles.MutedText.Render("  @" + post.Creator.Username + "  " + relativeTime(post.CreatedAt, m.now())))
	b.WriteString("\n\n")
	b.WriteString(styles.Text.Render(post.Caption))
	b.WriteString("\n")
	if post.Location != "" {
		b.WriteString(styles.MutedText.Render("at " + post.Location))
		b.WriteString("\n")
	}
	if len(post.Tags) > 0 {
		b.WriteString(styles.InfoText.Render("#" + strings.Join(post.Tags, " #")))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	likes := countLabel(len(post.Likes), "like", "likes")
	if post.LikedBy(me) {
		likes = styles.DangerText.Render("♥ ") + likes
	}
	b.WriteString(likes)
	if post.SavedBy(me) {
		b.WriteString(styles.WarningText.Render("  ★ saved"))
	}
	b.WriteString("\n\n")

	reviews, _, _ := m.q.Reviews(post.ID).Cached()
	m.writeReviews(&b, reviews, height)

	return m.renderBox("Post", b.String(), m.width, height, true)
}

// writeReviews appends the review count and the selectable review rows,
// fitting the rows into what is left of height.
func (m Model) writeReviews(b *strings.Builder, reviews []momento.Review, height int) {
	styles := m.theme.Styles()
	b.WriteString(styles.AccentText.Render(countLabel(len(reviews), "review", "reviews")))
	b.WriteString("\n")
	rows := make([]string, 0, len(reviews))
	for _, r := range reviews {
		stars := ""
		if r.Rating > 0 {
			stars = strings.Repeat("★", r.Rating) + " "
		}
		rows = append(rows, fmt.Sprintf("@%-14s %s%s  %s",
			truncate(r.Author.Username, 14), stars,
			truncate(oneLine(r.Review), max(m.width-40, 16)),
			relativeTime(r.CreatedAt, m.now())))
	}
	used := strings.Count(b.String(), "\n")
	b.WriteString(m.renderRows(rows, m.cursor[m.view], height-used-3))
}
