package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/momento/internal/momento"
)

// Badge names that are not notification types.
const (
	badgeAdmin  = "admin"
	badgeUnread = "unread"
	badgeYou    = "you"
)

// Theme is a named color palette.
type Theme struct {
	Name string

	Background    string
	Surface       string
	SelectionBg   string
	SelectionText string
	Border        string
	BorderFocus   string

	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string

	// Badges maps notification types and the badge names above to a color.
	Badges map[string]string
}

// Styles are the lipgloss styles derived from a theme.
type Styles struct {
	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	InfoText    lipgloss.Style

	Header   lipgloss.Style
	Logo     lipgloss.Style
	Selected lipgloss.Style

	theme Theme
}

func fg(color string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(color))
}

// Styles builds the styles for t.
func (t Theme) Styles() Styles {
	return Styles{
		Text:        fg(t.Text),
		MutedText:   fg(t.Muted),
		FaintText:   fg(t.Faint),
		AccentText:  fg(t.Accent),
		SuccessText: fg(t.Success).Bold(true),
		WarningText: fg(t.Warning),
		DangerText:  fg(t.Danger).Bold(true),
		InfoText:    fg(t.Info),
		Header: fg(t.Text).
			Background(lipgloss.Color(t.Surface)).
			Padding(0, 1),
		Logo: fg(t.Accent).Bold(true),
		Selected: fg(t.SelectionText).
			Background(lipgloss.Color(t.SelectionBg)),
		theme: t,
	}
}

// Badge returns the pill style for a notification type or badge name.
func (s Styles) Badge(kind string) lipgloss.Style {
	color, ok := s.theme.Badges[kind]
	if !ok {
		color = s.theme.Muted
	}
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color(s.theme.Background)).
		Background(lipgloss.Color(color)).
		Padding(0, 1)
}

// On paints every text style onto bg, so segments joined on a colored bar
// leave no gaps.
func (s Styles) On(bg string) Styles {
	c := lipgloss.Color(bg)
	out := s
	for _, st := range []*lipgloss.Style{
		&out.Text, &out.MutedText, &out.FaintText, &out.AccentText,
		&out.SuccessText, &out.WarningText, &out.DangerText, &out.InfoText,
		&out.Header, &out.Logo,
	} {
		*st = st.Background(c)
	}
	return out
}

const defaultThemeName = "Momento"

var themeOrder = []string{defaultThemeName, "Nightfox", "Kanagawa"}

var themes = map[string]Theme{
	defaultThemeName: momentoTheme(),
	"Nightfox":       nightfoxTheme(),
	"Kanagawa":       kanagawaTheme(),
}

// GetTheme returns a theme by name, or the default theme.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return themes[defaultThemeName]
}

// NextTheme returns the theme after current in the cycle.
func NextTheme(current string) string {
	for i, name := range themeOrder {
		if name == current {
			return themeOrder[(i+1)%len(themeOrder)]
		}
	}
	return themeOrder[0]
}

// ThemeNames lists the themes in cycle order.
func ThemeNames() []string {
	return themeOrder
}

// badges assigns the badge colors from the palette's semantic colors.
func badges(like, follow, review, admin, unread, you string) map[string]string {
	return map[string]string{
		string(momento.NotificationLike):   like,
		string(momento.NotificationFollow): follow,
		string(momento.NotificationReview): review,
		badgeAdmin:                         admin,
		badgeUnread:                        unread,
		badgeYou:                           you,
	}
}

func momentoTheme() Theme {
	return Theme{
		Name:          "Momento",
		Background:    "#141218",
		Surface:       "#1d1a22",
		SelectionBg:   "#3a2f45",
		SelectionText: "#f4eff8",
		Border:        "#3d3747",
		BorderFocus:   "#f27b9b",
		Text:          "#ece6f0",
		Muted:         "#9a92a6",
		Faint:         "#6f6878",
		Accent:        "#f27b9b", // brand pink
		Success:       "#7fcf9f",
		Warning:       "#f2c46d",
		Danger:        "#ef5f6b",
		Info:          "#7cc4f0",
		Badges:        badges("#ef5f6b", "#7cc4f0", "#f2c46d", "#b493f0", "#f27b9b", "#7fcf9f"),
	}
}

func nightfoxTheme() Theme {
	// https://github.com/EdenEast/nightfox.nvim
	return Theme{
		Name:          "Nightfox",
		Background:    "#131a24",
		Surface:       "#192330",
		SelectionBg:   "#2b3b51",
		SelectionText: "#cdcecf",
		Border:        "#39506d",
		BorderFocus:   "#719cd6",
		Text:          "#cdcecf",
		Muted:         "#738091",
		Faint:         "#71839b",
		Accent:        "#719cd6",
		Success:       "#81b29a",
		Warning:       "#dbc074",
		Danger:        "#c94f6d",
		Info:          "#63cdcf",
		Badges:        badges("#c94f6d", "#719cd6", "#dbc074", "#9d79d6", "#63cdcf", "#81b29a"),
	}
}

func kanagawaTheme() Theme {
	// https://github.com/rebelot/kanagawa.nvim
	return Theme{
		Name:          "Kanagawa",
		Background:    "#16161D",
		Surface:       "#1F1F28",
		SelectionBg:   "#2D4F67",
		SelectionText: "#DCD7BA",
		Border:        "#54546D",
		BorderFocus:   "#7E9CD8",
		Text:          "#DCD7BA",
		Muted:         "#C8C093",
		Faint:         "#727169",
		Accent:        "#7E9CD8",
		Success:       "#98BB6C",
		Warning:       "#E6C384",
		Danger:        "#E46876",
		Info:          "#7FB4CA",
		Badges:        badges("#E46876", "#7E9CD8", "#E6C384", "#957FB8", "#7FB4CA", "#98BB6C"),
	}
}
