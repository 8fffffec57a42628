package ui

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/momento/internal/actions"
	"github.com/five82/momento/internal/config"
	"github.com/five82/momento/internal/debounce"
	"github.com/five82/momento/internal/feed"
	"github.com/five82/momento/internal/poll"
	"github.com/five82/momento/internal/prefs"
	"github.com/five82/momento/internal/queries"
	"github.com/five82/momento/internal/query"
	"github.com/five82/momento/internal/readstate"
	"github.com/five82/momento/internal/session"
	"github.com/five82/momento/internal/state"
)

// Refresher refetches a background source on demand.
type Refresher interface {
	Focus()
}

// Options configures the UI.
type Options struct {
	Context context.Context
	Session *session.Session
	Queries *queries.Set
	Actions *actions.Runner
	Header  *state.Store
	// Badges refreshes the header counters when the terminal regains focus.
	Badges    Refresher
	Config    config.Config
	ThemeName string
	PrefsPath string
	StartView string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Dependencies
	ctx       context.Context
	sess      *session.Session
	q         *queries.Set
	runner    *actions.Runner
	header    *state.Store
	badges    Refresher
	cfg       config.Config
	prefsPath string
	now       func() time.Time

	// UI state
	theme     Theme
	keys      keyMap
	width     int
	height    int
	ready     bool
	showHelp  bool
	modal     Modal
	view      View
	startView View
	history   []View
	status    string

	// View lifecycle: gen identifies the current view instance; poll
	// results and loads tagged with an older gen are dropped.
	gen      uint64
	group    *poll.Group
	events   chan tea.Msg
	sessions *sessionBox

	// Data state
	snapshot      state.Snapshot
	notifications *readstate.Notifications
	conversations *readstate.Conversations
	pager         *feed.Pager
	searcher      *debounce.Debouncer[string]
	cursor        map[View]int

	// Per-view state
	signin     signinState
	explore    exploreState
	chat       chatState
	postID     string
	externalID string
	profile    profileState
	activity   activityState
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = defaultThemeName
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	header := opts.Header
	if header == nil {
		header = &state.Store{}
	}

	cfg := opts.Config
	if cfg.PageSize == 0 {
		cfg = config.Default()
	}

	m := Model{
		ctx:       ctx,
		sess:      opts.Session,
		q:         opts.Queries,
		runner:    opts.Actions,
		header:    header,
		badges:    opts.Badges,
		cfg:       cfg,
		prefsPath: prefsPath,
		now:       time.Now,
		theme:     GetTheme(themeName),
		keys:      DefaultKeyMap(),
		view:      ViewSignIn,
		startView: parseView(opts.StartView),
		events:    make(chan tea.Msg, 64),
		sessions:  newSessionBox(),
		cursor:    make(map[View]int),
		signin:    newSigninState(),
		explore:   newExploreState(),
		chat:      newChatState(),
		activity:  newActivityState(),
	}
	if m.q != nil {
		m.pager = feed.NewPager(m.q, cfg.PageSize)
		if m.runner != nil {
			m.notifications = readstate.NewNotifications(m.q, m.runner)
			m.conversations = readstate.NewConversations(m.q, m.runner)
		}
	}
	events := m.events
	m.searcher = debounce.New(cfg.SearchDebounce, func(term string) {
		emit(events, searchMsg{term: term})
	})
	if m.sess != nil {
		m.sess.OnChange(m.sessions.put)
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(DefaultUIInterval),
		m.listen(),
		m.signin.focusCmd(),
	}
	if m.sess != nil && m.sess.Authenticated() {
		cmds = append(cmds, func() tea.Msg { return sessionMsg{state: session.SignedIn} })
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		next, cmd := m.Update(msg.inner)
		return next, tea.Batch(cmd, m.listen())

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()
		return m, nil

	case tea.FocusMsg:
		return m.handleFocus()

	case tea.BlurMsg:
		return m, nil

	case tickMsg:
		return m.handleTick(time.Time(msg))

	case sessionMsg:
		return m.handleSession(msg.state)

	case pollMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.afterLoad(msg.err)
		return m, nil

	case loadedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.afterLoad(msg.err)
		return m, nil

	case actionMsg:
		return m.handleAction(msg)

	case signedInMsg:
		return m.handleSignedIn(msg)

	case searchMsg:
		return m.handleSearch(msg.term)

	case logMsg:
		m.handleLog(msg)
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	if m.modal != nil {
		return m.modal.View(m.theme, m.width, m.height)
	}

	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if msg.String() == "ctrl+c" {
		m.shutdown()
		return m, tea.Quit
	}

	if m.modal != nil {
		modal, cmd, closed := m.modal.Update(msg, m.keys)
		if closed {
			m.modal = nil
		} else {
			m.modal = modal
		}
		return m, cmd
	}

	// Views with a focused text input get keys first.
	if m.inputFocused() {
		return m.handleInputKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil

	case key.Matches(msg, m.keys.Dismiss):
		if notices := m.snapshot.Notices; len(notices) > 0 {
			m.header.Dismiss(notices[len(notices)-1].ID)
			m.snapshot = m.header.Snapshot()
		}
		return m, nil
	}

	if m.view == ViewSignIn {
		return m.handleSigninKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Tab):
		return m.switchView(m.nextTab(1))
	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchView(m.nextTab(-1))
	case key.Matches(msg, m.keys.Escape):
		return m.back()
	case key.Matches(msg, m.keys.SignOut):
		return m, m.signOutCmd()
	case key.Matches(msg, m.keys.Refresh):
		return m, m.reload(true)
	case key.Matches(msg, m.keys.ViewFeed):
		return m.switchView(ViewFeed)
	case key.Matches(msg, m.keys.ViewExplore):
		return m.switchView(ViewExplore)
	case key.Matches(msg, m.keys.ViewNotifications):
		return m.switchView(ViewNotifications)
	case key.Matches(msg, m.keys.ViewMessages):
		return m.switchView(ViewMessages)
	case key.Matches(msg, m.keys.ViewProfile):
		m.profile.userID = m.sess.UserID()
		return m.switchView(ViewProfile)
	case key.Matches(msg, m.keys.ViewAdmin):
		if !m.isAdmin() {
			m.status = "Admin views need an admin account"
			return m, nil
		}
		return m.switchView(ViewAdmin)
	case key.Matches(msg, m.keys.ViewActivity):
		return m.switchView(ViewActivity)
	case key.Matches(msg, m.keys.ViewSaved):
		return m.switchView(ViewSaved)
	}

	if m.moveCursor(msg) {
		return m, m.maybeLoadMore()
	}

	switch m.view {
	case ViewExplore:
		if m.explore.external {
			return m.handleExternalListKey(msg)
		}
		return m.handlePostListKey(msg)
	case ViewFeed, ViewSaved:
		return m.handlePostListKey(msg)
	case ViewPost:
		return m.handlePostKey(msg)
	case ViewExternal:
		return m.handleExternalKey(msg)
	case ViewNotifications:
		return m.handleNotificationsKey(msg)
	case ViewMessages:
		return m.handleMessagesKey(msg)
	case ViewProfile:
		return m.handleProfileKey(msg)
	case ViewAdmin:
		return m.handleAdminKey(msg)
	case ViewActivity:
		return m.handleActivityKey(msg)
	}
	return m, nil
}

// handleInputKey routes keys to the focused text input.
func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.view {
	case ViewSignIn:
		return m.handleSigninKey(msg)
	case ViewExplore:
		return m.handleSearchInputKey(msg)
	case ViewConversation:
		return m.handleChatKey(msg)
	case ViewActivity:
		return m.handleActivitySearchKey(msg)
	}
	return m, nil
}

func (m Model) inputFocused() bool {
	switch m.view {
	case ViewSignIn:
		return true
	case ViewExplore:
		return m.explore.input.Focused()
	case ViewConversation:
		return m.chat.input.Focused()
	case ViewActivity:
		return m.activity.input.Focused()
	}
	return false
}

// handleFocus refetches the current view and the header counters when the
// terminal regains focus.
func (m Model) handleFocus() (tea.Model, tea.Cmd) {
	if m.group != nil {
		m.group.Focus()
	}
	if m.badges != nil {
		m.badges.Focus()
	}
	return m, m.reload(true)
}

// handleTick processes the header tick.
func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	m.snapshot = m.header.Snapshot()
	cmds := []tea.Cmd{tickCmd(DefaultUIInterval)}
	if m.view == ViewActivity && m.activity.follow && now.Sub(m.activity.lastRead) >= LogRefreshInterval {
		cmds = append(cmds, m.logCmd())
	}
	return m, tea.Batch(cmds...)
}

// handleAction re-reads the current view after a mutation settles. The
// mutation already marked its keys stale, so the reads go to the network.
func (m Model) handleAction(msg actionMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.status = "Failed: " + msg.action
		m.snapshot = m.header.Snapshot()
	}
	if msg.gen != m.gen {
		return m, nil
	}
	if msg.then != nil && msg.err == nil {
		return msg.then(m)
	}
	return m, m.reload(false)
}

func (m *Model) afterLoad(err error) {
	if err != nil {
		m.status = "Offline: showing last known data"
		return
	}
	m.status = ""
	m.clampCursor()
}

func (m *Model) savePrefs() {
	if m.prefsPath == "" {
		return
	}
	view := m.view
	if !view.persisted() {
		view = m.startView
	}
	_ = prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, LastView: view.String()})
}

// shutdown stops the active poll group and pending search.
func (m *Model) shutdown() {
	m.stopGroup()
	if m.searcher != nil {
		m.searcher.Stop()
	}
	m.savePrefs()
}

func (m *Model) stopGroup() {
	if m.group != nil {
		m.group.Stop()
		m.group = nil
	}
}

func (m Model) isAdmin() bool {
	if m.sess == nil {
		return false
	}
	user, ok := m.sess.User()
	return ok && user.IsAdmin()
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(m.renderContent())
	if notice := m.renderNotices(); notice != "" {
		b.WriteString("\n")
		b.WriteString(notice)
	}

	return b.String()
}

// contentHeight is the space left for the view box.
func (m Model) contentHeight() int {
	h := m.height - 2
	if len(m.snapshot.Notices) > 0 || m.status != "" {
		h--
	}
	return max(h, 3)
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.view {
	case ViewSignIn:
		return m.renderSignin()
	case ViewExplore:
		if m.explore.external {
			return m.renderExternalList()
		}
		return m.renderPostList()
	case ViewFeed, ViewSaved:
		return m.renderPostList()
	case ViewPost:
		return m.renderPost()
	case ViewExternal:
		return m.renderExternal()
	case ViewNotifications:
		return m.renderNotifications()
	case ViewMessages:
		return m.renderMessages()
	case ViewConversation:
		return m.renderConversation()
	case ViewProfile:
		return m.renderProfile()
	case ViewAdmin:
		return m.renderAdmin()
	case ViewActivity:
		return m.renderActivity()
	default:
		return ""
	}
}

// Messages

type tickMsg time.Time

// eventMsg wraps a message that arrived on the events channel.
type eventMsg struct{ inner tea.Msg }

type pollMsg struct {
	gen uint64
	key query.Key
	err error
}

type loadedMsg struct {
	gen uint64
	err error
}

type actionMsg struct {
	gen    uint64
	action string
	err    error
	then   func(Model) (tea.Model, tea.Cmd)
}

type sessionMsg struct{ state session.State }

type searchMsg struct{ term string }

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// listen delivers the next message from the events channel or the next
// session transition.
func (m Model) listen() tea.Cmd {
	events, sessions, ctx := m.events, m.sessions.ch, m.ctx
	return func() tea.Msg {
		select {
		case s := <-sessions:
			return eventMsg{inner: sessionMsg{state: s}}
		case msg := <-events:
			return eventMsg{inner: msg}
		case <-ctx.Done():
			return nil
		}
	}
}

// emit never blocks: poll loops call it and Group.Stop waits for them. A
// full queue drops msg.
func emit(events chan tea.Msg, msg tea.Msg) {
	select {
	case events <- msg:
	default:
	}
}

// sessionBox holds the latest unseen session state. put never blocks and
// never loses the newest state: it replaces one the UI has not read yet.
type sessionBox struct {
	mu sync.Mutex
	ch chan session.State
}

func newSessionBox() *sessionBox {
	return &sessionBox{ch: make(chan session.State, 1)}
}

func (b *sessionBox) put(s session.State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-b.ch:
	default:
	}
	b.ch <- s
}

// load runs fn against the cache off the UI goroutine.
func (m Model) load(fns ...func(context.Context) error) tea.Cmd {
	gen, ctx := m.gen, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, CommandTimeout)
		defer cancel()
		var firstErr error
		for _, fn := range fns {
			if err := fn(ctx); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return loadedMsg{gen: gen, err: firstErr}
	}
}

// get adapts a query read into a load step.
func get[T any](q queries.Query[T], force bool) func(context.Context) error {
	return func(ctx context.Context) error {
		var err error
		if force {
			_, err = q.Refetch(ctx)
		} else {
			_, err = q.Get(ctx)
		}
		return err
	}
}

// await turns a pending mutation into an actionMsg.
func await[T any](gen uint64, action string, p *actions.Pending[T]) tea.Cmd {
	return func() tea.Msg {
		<-p.Done()
		return actionMsg{gen: gen, action: action, err: p.Err()}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithReportFocus(), tea.WithContext(m.ctx))
	final, err := p.Run()
	if fm, ok := final.(Model); ok {
		fm.shutdown()
	}
	return err
}
