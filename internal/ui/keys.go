package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding
	SignOut    key.Binding
	Refresh    key.Binding
	Dismiss    key.Binding

	// View switching
	ViewFeed          key.Binding
	ViewExplore       key.Binding
	ViewNotifications key.Binding
	ViewMessages      key.Binding
	ViewProfile       key.Binding
	ViewAdmin         key.Binding
	ViewActivity      key.Binding
	ViewSaved         key.Binding

	// Navigation
	Up           key.Binding
	Down         key.Binding
	Top          key.Binding
	Bottom       key.Binding
	PageUp       key.Binding
	PageDown     key.Binding
	HalfPageUp   key.Binding
	HalfPageDown key.Binding

	// Post actions
	Open       key.Binding
	Like       key.Binding
	Save       key.Binding
	NewPost    key.Binding
	Edit       key.Binding
	Delete     key.Binding
	Author     key.Binding
	Review     key.Binding
	EditReview key.Binding
	External   key.Binding
	More       key.Binding

	// People and inbox
	Follow        key.Binding
	DeleteAccount key.Binding
	MarkAllRead   key.Binding
	FeedbackUp    key.Binding
	FeedbackDown  key.Binding
	ClearChat     key.Binding

	// Activity log
	ToggleFollow key.Binding
	CycleLevel   key.Binding
	Search       key.Binding

	// Forms
	Confirm   key.Binding
	NextField key.Binding
	SwapForm  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		// Global
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next view"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous view"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Back"),
		),
		SignOut: key.NewBinding(
			key.WithKeys("O"),
			key.WithHelp("O", "Sign out"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "Refresh view"),
		),
		Dismiss: key.NewBinding(
			key.WithKeys("z"),
			key.WithHelp("z", "Dismiss notice"),
		),

		// View switching
		ViewFeed: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "Home feed"),
		),
		ViewExplore: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "Explore"),
		),
		ViewNotifications: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "Notifications"),
		),
		ViewMessages: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "Messages"),
		),
		ViewProfile: key.NewBinding(
			key.WithKeys("5"),
			key.WithHelp("5", "Profile"),
		),
		ViewAdmin: key.NewBinding(
			key.WithKeys("6"),
			key.WithHelp("6", "Admin"),
		),
		ViewActivity: key.NewBinding(
			key.WithKeys("7"),
			key.WithHelp("7", "Activity log"),
		),
		ViewSaved: key.NewBinding(
			key.WithKeys("8"),
			key.WithHelp("8", "Saved posts"),
		),

		// Navigation
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "Page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdown", "Page down"),
		),
		HalfPageUp: key.NewBinding(
			key.WithKeys("ctrl+u"),
			key.WithHelp("ctrl+u", "Half page up"),
		),
		HalfPageDown: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "Half page down"),
		),

		// Post actions
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Open"),
		),
		Like: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "Like/unlike"),
		),
		Save: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "Save/unsave"),
		),
		NewPost: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "New post"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "Edit"),
		),
		Delete: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Delete"),
		),
		Author: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "Author profile"),
		),
		Review: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Write review"),
		),
		EditReview: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Edit your review"),
		),
		External: key.NewBinding(
			key.WithKeys("E"),
			key.WithHelp("E", "Posts/photo library"),
		),
		More: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "Load more / message"),
		),

		// People and inbox
		Follow: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Follow/unfollow"),
		),
		DeleteAccount: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "Delete account"),
		),
		MarkAllRead: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Mark all read"),
		),
		FeedbackUp: key.NewBinding(
			key.WithKeys("ctrl+k"),
			key.WithHelp("ctrl+k", "Rate reply up"),
		),
		FeedbackDown: key.NewBinding(
			key.WithKeys("ctrl+j"),
			key.WithHelp("ctrl+j", "Rate reply down"),
		),
		ClearChat: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "Clear assistant chat"),
		),

		// Activity log
		ToggleFollow: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("Space", "Toggle follow mode"),
		),
		CycleLevel: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Cycle min level"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Search"),
		),

		// Forms
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "Next field"),
		),
		SwapForm: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "Sign in/sign up"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		// Navigation
		{k.Tab, k.ViewFeed, k.ViewExplore, k.ViewNotifications, k.ViewMessages, k.ViewProfile, k.ViewAdmin, k.ViewActivity, k.ViewSaved},
		{k.Up, k.Down, k.Top, k.Bottom, k.HalfPageDown, k.HalfPageUp, k.Escape},
		// Posts
		{k.Open, k.Like, k.Save, k.NewPost, k.Edit, k.Delete, k.Author, k.Review, k.EditReview, k.External, k.More},
		// People and inbox
		{k.Follow, k.DeleteAccount, k.MarkAllRead, k.FeedbackUp, k.FeedbackDown, k.ClearChat},
		// Activity
		{k.ToggleFollow, k.CycleLevel, k.Search},
		// General
		{k.Refresh, k.Dismiss, k.CycleTheme, k.SignOut, k.Help, k.Quit},
	}
}
