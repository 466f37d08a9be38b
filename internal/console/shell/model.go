package shell

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/gostpanel/console/internal/console/router"
	"github.com/gostpanel/console/internal/console/session"
	"github.com/gostpanel/console/internal/console/views"
)

const menuWidth = 22

type mode int

const (
	modeBrowse mode = iota
	modeLogin
)

// Options are what the shell runs against.
type Options struct {
	Router  *router.Router
	Session *session.Manager
	Logger  zerolog.Logger
	// Panel is shown in the header.
	Panel string
	// Start is the first route opened. Defaults to the dashboard.
	Start string
}

type navigatedMsg struct {
	requested string
	nav       router.Navigation
	err       error
}

type loginMsg struct {
	outcome session.LoginOutcome
	err     error
}

type twoFactorMsg struct {
	err error
}

// Model is the shell's bubbletea model.
type Model struct {
	opts   Options
	keys   KeyMap
	styles Styles

	mode    mode
	form    loginForm
	menu    []string
	cursor  int
	current string
	page    router.Page
	content viewport.Model
	status  string
	err     error
	loading bool

	// reloading is set when a navigation was recovered by a reload. The
	// program quits so the caller can restart the console.
	reloading bool

	cursorMode cursor.Mode

	width  int
	height int
}

// New returns a Model for opts.
func New(opts Options) Model {
	if opts.Start == "" {
		opts.Start = views.Dashboard
	}
	return Model{
		opts:    opts,
		keys:    DefaultKeyMap,
		styles:  DefaultStyles,
		menu:    append([]string(nil), views.ProtectedRoutes...),
		form:    newLoginForm(cursor.CursorBlink),
		content: viewport.New(80, 20),
		width:   100,
		height:  30,

		cursorMode: cursor.CursorBlink,
	}
}

// Reloading reports whether the shell quit to reload the console.
func (m Model) Reloading() bool { return m.reloading }

func (m Model) Init() tea.Cmd {
	return m.navigate(m.opts.Start)
}

func (m Model) navigate(name string) tea.Cmd {
	r := m.opts.Router
	return func() tea.Msg {
		nav, err := r.Navigate(context.Background(), name)
		return navigatedMsg{requested: name, nav: nav, err: err}
	}
}

func (m Model) login(username, password string) tea.Cmd {
	s := m.opts.Session
	return func() tea.Msg {
		outcome, err := s.Login(context.Background(), username, password)
		return loginMsg{outcome: outcome, err: err}
	}
}

func (m Model) completeTwoFactor(tempToken, code string) tea.Cmd {
	s := m.opts.Session
	return func() tea.Msg {
		_, err := s.CompleteTwoFactor(context.Background(), tempToken, code)
		return twoFactorMsg{err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		return m, nil

	case navigatedMsg:
		return m.handleNavigated(msg)

	case loginMsg:
		return m.handleLogin(msg)

	case twoFactorMsg:
		m.form.busy = false
		if msg.err != nil {
			m.form.err = loginFailure(msg.err)
			return m, nil
		}
		return m.afterLogin()

	case tea.KeyMsg:
		if m.mode == modeLogin {
			return m.handleLoginKeys(msg)
		}
		return m.handleBrowseKeys(msg)
	}

	var cmd tea.Cmd
	m.content, cmd = m.content.Update(msg)
	return m, cmd
}

func (m Model) handleNavigated(msg navigatedMsg) (tea.Model, tea.Cmd) {
	m.loading = false

	if msg.err != nil {
		m.err = msg.err
		m.opts.Logger.Debug().Err(msg.err).Str("route", msg.requested).Msg("Navigation failed")
		return m, nil
	}

	if msg.nav.Recovered {
		m.reloading = true
		return m, tea.Quit
	}

	m.err = nil
	if msg.nav.Route.Name == views.Login {
		m.mode = modeLogin
		m.form = newLoginForm(m.cursorMode)
		if msg.requested != views.Login {
			m.form.err = "Please sign in to continue."
		}
		return m, textinput.Blink
	}

	m.mode = modeBrowse
	m.current = msg.nav.Route.Name
	m.page = msg.nav.Page
	for i, name := range m.menu {
		if name == m.current {
			m.cursor = i
		}
	}
	m.content.SetContent(m.page.Body)
	m.content.GotoTop()
	return m, nil
}

func (m Model) handleLogin(msg loginMsg) (tea.Model, tea.Cmd) {
	m.form.busy = false
	if msg.err != nil {
		m.form.err = loginFailure(msg.err)
		return m, nil
	}

	switch o := msg.outcome.(type) {
	case session.TwoFactorRequired:
		m.form.err = ""
		return m, m.form.askCode(o.TempToken)
	case session.Authenticated:
		return m.afterLogin()
	}
	return m, nil
}

// afterLogin always lands on the dashboard; the route that sent the user
// to the login form is not remembered.
func (m Model) afterLogin() (tea.Model, tea.Cmd) {
	m.mode = modeBrowse
	m.form = newLoginForm(m.cursorMode)
	m.status = "Signed in"
	m.loading = true
	return m, m.navigate(views.Dashboard)
}

func (m Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form.busy {
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil
	}

	switch {
	case msg.String() == "ctrl+c":
		return m, tea.Quit

	case key.Matches(msg, m.keys.Submit):
		if !m.form.lastField() {
			return m, m.form.setFocus(m.form.focus + 1)
		}
		return m.submitForm()

	case key.Matches(msg, m.keys.NextField):
		return m, m.form.setFocus(m.form.focus + 1)

	case key.Matches(msg, m.keys.PrevField):
		return m, m.form.setFocus(m.form.focus - 1)
	}

	return m, m.form.updateFocused(msg)
}

func (m Model) submitForm() (tea.Model, tea.Cmd) {
	if m.form.stage == stageCode {
		code := strings.TrimSpace(m.form.code.Value())
		if len(code) != 6 {
			m.form.err = "Code must be 6 digits."
			return m, nil
		}
		m.form.busy = true
		m.form.err = ""
		return m, m.completeTwoFactor(m.form.tempToken, code)
	}

	username, password := m.form.credentials()
	if username == "" || password == "" {
		m.form.err = "Username and password are required."
		return m, nil
	}
	m.form.busy = true
	m.form.err = ""
	return m, m.login(username, password)
}

func (m Model) handleBrowseKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.menu)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Open):
		m.loading = true
		m.status = ""
		return m, m.navigate(m.menu[m.cursor])

	case key.Matches(msg, m.keys.Refresh):
		if m.current != "" {
			m.loading = true
			return m, m.navigate(m.current)
		}

	case key.Matches(msg, m.keys.Logout):
		m.opts.Session.Logout()
		m.status = "Logged out"
		m.loading = true
		target := m.current
		if target == "" {
			target = views.Dashboard
		}
		return m, m.navigate(target)

	case key.Matches(msg, m.keys.PageUp):
		m.content.SetYOffset(m.content.YOffset - m.content.Height/2)

	case key.Matches(msg, m.keys.PageDown):
		m.content.SetYOffset(m.content.YOffset + m.content.Height/2)
	}
	return m, nil
}

func (m *Model) resize() {
	w := m.width - menuWidth - 4
	if w < 20 {
		w = 20
	}
	h := m.height - 6
	if h < 5 {
		h = 5
	}
	m.content.Width = w
	m.content.Height = h
}

func (m Model) View() string {
	if m.mode == modeLogin {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.form.view(m.styles, m.opts.Panel))
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.menuView(), m.contentView())
	return lipgloss.JoinVertical(lipgloss.Left, m.headerView(), body, m.footerView())
}

func (m Model) headerView() string {
	who := "not signed in"
	if user := m.opts.Session.User(); user != nil {
		who = fmt.Sprintf("%s (%s)", user.Username, user.Role)
		if !session.CanWrite(user) {
			who += " read-only"
		}
	}
	text := fmt.Sprintf("gostctl • %s • %s", m.opts.Panel, who)
	return m.styles.Header.Width(m.width).Render(text)
}

func (m Model) menuView() string {
	var b strings.Builder
	for i, name := range m.menu {
		label := views.Title(name)
		switch {
		case i == m.cursor:
			label = m.styles.Selected.Render("> " + label)
		case name == m.current:
			label = m.styles.Active.Render("  " + label)
		default:
			label = "  " + label
		}
		b.WriteString(label)
		b.WriteString("\n")
	}
	return m.styles.Menu.Width(menuWidth).Render(b.String())
}

func (m Model) contentView() string {
	var b strings.Builder
	if m.page.Title != "" {
		b.WriteString(m.styles.Title.Render(m.page.Title))
		b.WriteString("\n")
	}
	switch {
	case m.err != nil:
		b.WriteString(m.styles.Error.Render("Error: " + m.err.Error()))
	case m.loading && m.page.Body == "":
		b.WriteString(m.styles.Notice.Render("Loading..."))
	default:
		b.WriteString(m.content.View())
	}
	return m.styles.Content.Render(b.String())
}

func (m Model) footerView() string {
	help := "j/k move • enter open • r refresh • l logout • q quit"
	if m.status != "" {
		help = m.styles.Notice.Render(m.status) + "  " + help
	}
	return m.styles.Help.Render(help)
}

func loginFailure(err error) string {
	var authErr *session.AuthenticationError
	if errors.As(err, &authErr) && authErr.InvalidCredentials() {
		return "Invalid credentials."
	}
	return err.Error()
}
