package ui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/momento/internal/momento"
)

type signinMode int

const (
	modeSignIn signinMode = iota
	modeSignUp
)

type signinField struct {
	label string
	input textinput.Model
}

// signinState holds the sign-in and sign-up forms.
type signinState struct {
	mode   signinMode
	fields []signinField
	focus  int
	err    string
	busy   bool
}

func newSigninState() signinState {
	return newSigninForm(modeSignIn)
}

func newSigninForm(mode signinMode) signinState {
	labels := []string{"Email", "Password"}
	if mode == modeSignUp {
		labels = []string{"Name", "Username", "Email", "Password"}
	}
	s := signinState{mode: mode}
	for _, label := range labels {
		ti := textinput.New()
		ti.Placeholder = strings.ToLower(label)
		ti.CharLimit = 100
		ti.Width = 32
		ti.Prompt = ""
		if label == "Password" {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		s.fields = append(s.fields, signinField{label: label, input: ti})
	}
	s.fields[0].input.Focus()
	return s
}

func (s signinState) focusCmd() tea.Cmd { return textinput.Blink }

func (s signinState) swapLabel() string {
	if s.mode == modeSignUp {
		return "Sign in instead"
	}
	return "Create account"
}

func (s signinState) value(label string) string {
	for _, f := range s.fields {
		if f.label == label {
			return strings.TrimSpace(f.input.Value())
		}
	}
	return ""
}

func (s *signinState) setFocus(idx int) {
	n := len(s.fields)
	s.focus = (idx + n) % n
	for i := range s.fields {
		if i == s.focus {
			s.fields[i].input.Focus()
		} else {
			s.fields[i].input.Blur()
		}
	}
}

// signedInMsg carries the result of a sign-in or sign-up attempt.
// Navigation away from the form follows the session change.
type signedInMsg struct{ err error }

func (m Model) handleSigninKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.signin.busy {
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.SwapForm):
		next := modeSignUp
		if m.signin.mode == modeSignUp {
			next = modeSignIn
		}
		m.signin = newSigninForm(next)
		return m, m.signin.focusCmd()

	case msg.String() == "shift+tab" || msg.String() == "up":
		m.signin.setFocus(m.signin.focus - 1)
		return m, nil

	case key.Matches(msg, m.keys.NextField):
		m.signin.setFocus(m.signin.focus + 1)
		return m, nil

	case key.Matches(msg, m.keys.Confirm):
		if m.signin.focus < len(m.signin.fields)-1 {
			m.signin.setFocus(m.signin.focus + 1)
			return m, nil
		}
		return m.submitSignin()

	case key.Matches(msg, m.keys.Escape):
		m.signin.err = ""
		return m, nil
	}

	var cmd tea.Cmd
	f := &m.signin.fields[m.signin.focus]
	f.input, cmd = f.input.Update(msg)
	return m, cmd
}

func (m Model) submitSignin() (tea.Model, tea.Cmd) {
	for _, f := range m.signin.fields {
		if strings.TrimSpace(f.input.Value()) == "" {
			m.signin.err = f.label + " is required"
			return m, nil
		}
	}
	if m.sess == nil {
		return m, nil
	}
	m.signin.err = ""
	m.signin.busy = true

	sess, ctx, form := m.sess, m.ctx, m.signin
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, CommandTimeout)
		defer cancel()
		var err error
		if form.mode == modeSignUp {
			_, err = sess.SignUp(ctx, momento.NewUser{
				Name:     form.value("Name"),
				Username: form.value("Username"),
				Email:    form.value("Email"),
				Password: form.fields[len(form.fields)-1].input.Value(),
			})
		} else {
			_, err = sess.SignIn(ctx, form.value("Email"), form.fields[len(form.fields)-1].input.Value())
		}
		return signedInMsg{err: err}
	}
}

func (m Model) handleSignedIn(msg signedInMsg) (tea.Model, tea.Cmd) {
	if m.view != ViewSignIn {
		return m, nil
	}
	m.signin.busy = false
	if msg.err != nil {
		m.signin.err = signinError(msg.err)
	}
	return m, nil
}

func signinError(err error) string {
	var apiErr *momento.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.Is(err, momento.ErrUnauthorized):
		return "Invalid email or password"
	case errors.Is(err, context.DeadlineExceeded):
		return "The server did not answer in time"
	default:
		return err.Error()
	}
}

func (m Model) renderSignin() string {
	styles := m.theme.Styles()
	s := m.signin

	title := "Sign in to Momento"
	if s.mode == modeSignUp {
		title = "Create your account"
	}

	var b strings.Builder
	b.WriteString(styles.AccentText.Bold(true).Render(title))
	b.WriteString("\n\n")
	for i, f := range s.fields {
		labelStyle := styles.MutedText
		if i == s.focus {
			labelStyle = styles.AccentText
		}
		b.WriteString(labelStyle.Width(10).Render(f.label))
		b.WriteString(f.input.View())
		b.WriteString("\n")
	}
	b.WriteString("\n")
	switch {
	case s.busy:
		b.WriteString(styles.WarningText.Render("Working..."))
	case s.err != "":
		b.WriteString(styles.DangerText.Render(truncate(s.err, 44)))
	default:
		b.WriteString(styles.FaintText.Render("ctrl+n: " + strings.ToLower(s.swapLabel())))
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.BorderFocus)).
		Padding(1, 2).
		Width(50).
		Render(b.String())

	logo := styles.Logo.Render(banner())
	return lipgloss.Place(m.width, m.contentHeight(), lipgloss.Center, lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, logo, "", box))
}
