package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/momento/internal/momento"
)

// externalResults is the cached page of photo library results.
func (m Model) externalResults() momento.ExternalResults {
	if m.q == nil {
		return momento.ExternalResults{}
	}
	res, _, _ := m.q.ExternalSearch(m.explore.term, m.explore.page).Cached()
	return res
}

// toggleExternal switches explore between captions and the photo library.
// The search term carries over.
func (m Model) toggleExternal() (tea.Model, tea.Cmd) {
	m.explore.external = !m.explore.external
	m.explore.page = 1
	m.cursor[ViewExplore] = 0
	return m, m.reloadExplore(false)
}

func (m Model) handleExternalListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Search):
		return m.focusSearch()
	case key.Matches(msg, m.keys.External):
		return m.toggleExternal()
	case key.Matches(msg, m.keys.More):
		res := m.externalResults()
		if m.explore.page >= res.TotalPages {
			m.explore.page = 1
		} else {
			m.explore.page++
		}
		m.cursor[ViewExplore] = 0
		return m, m.reloadExplore(false)
	case key.Matches(msg, m.keys.Open):
		results := m.externalResults().Results
		cur := m.cursor[ViewExplore]
		if cur < 0 || cur >= len(results) {
			return m, nil
		}
		m.externalID = results[cur].ID
		m.cursor[ViewExternal] = 0
		return m.switchView(ViewExternal)
	}
	return m, nil
}

func (m Model) renderExternalList() string {
	styles := m.theme.Styles()
	height := m.contentHeight()
	res := m.externalResults()

	title := "Photo library"
	if m.explore.term != "" {
		title = fmt.Sprintf("Photos: %s (%s, page %d of %d)",
			m.explore.term, countLabel(res.Total, "result", "results"), m.explore.page, max(res.TotalPages, 1))
	}

	var b strings.Builder
	if m.explore.input.Focused() {
		b.WriteString(m.explore.input.View())
		b.WriteString("\n")
		height--
	}
	width := max(m.width-40, 16)
	rows := make([]string, 0, len(res.Results))
	for _, p := range res.Results {
		rows = append(rows, fmt.Sprintf("%-18s %s  %4d ♥",
			truncate(p.Author, 18),
			padRight(truncate(oneLine(p.Description), width), width),
			p.Likes))
	}
	switch {
	case len(rows) > 0:
		b.WriteString(m.renderRows(rows, m.cursor[ViewExplore], height-3))
	case m.explore.term == "":
		b.WriteString(styles.MutedText.Render("Press / to search the photo library"))
	default:
		b.WriteString(styles.MutedText.Render("No photos match your search"))
	}
	return m.renderBox(title, b.String(), m.width, height, true)
}

// External photo detail

func (m Model) handleExternalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	reviews, _, _ := m.q.ExternalReviews(m.externalID).Cached()
	next, cmd, _ := m.handleReviewKey(msg, momento.NewReview{ExternalContentID: m.externalID}, reviews)
	return next, cmd
}

func (m Model) renderExternal() string {
	styles := m.theme.Styles()
	height := m.contentHeight()
	photo, entry, ok := m.q.ExternalDetails(m.externalID).Cached()
	if !ok {
		if entry.Err != nil {
			return m.renderBox("Photo", styles.DangerText.Render(entry.Err.Error()), m.width, height, true)
		}
		return m.renderBox("Photo", styles.MutedText.Render("Loading..."), m.width, height, true)
	}

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(photo.Description))
	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render(fmt.Sprintf("by %s  %dx%d  %s",
		photo.Author, photo.Width, photo.Height, countLabel(photo.Likes, "like", "likes"))))
	b.WriteString("\n")
	if photo.ImageURL != "" {
		b.WriteString(styles.FaintText.Render(photo.ImageURL))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	reviews, _, _ := m.q.ExternalReviews(m.externalID).Cached()
	m.writeReviews(&b, reviews, height)

	return m.renderBox("Photo", b.String(), m.width, height, true)
}
