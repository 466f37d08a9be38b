package shell

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type loginStage int

const (
	stageCredentials loginStage = iota
	stageCode
)

// loginForm collects credentials, then a second factor when the panel asks
// for one. The temp token lives here and never reaches the session.
type loginForm struct {
	username  textinput.Model
	password  textinput.Model
	code      textinput.Model
	focus     int
	stage     loginStage
	tempToken string
	err       string
	busy      bool
}

func newLoginForm(mode cursor.Mode) loginForm {
	username := textinput.New()
	username.Placeholder = "username"
	username.Prompt = "Username: "
	username.CharLimit = 64
	username.Focus()

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "Password: "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	code := textinput.New()
	code.Placeholder = "123456"
	code.Prompt = "Code:     "
	code.CharLimit = 6

	for _, field := range []*textinput.Model{&username, &password, &code} {
		field.Cursor.SetMode(mode)
	}
	return loginForm{username: username, password: password, code: code}
}

func (f *loginForm) fields() []*textinput.Model {
	if f.stage == stageCode {
		return []*textinput.Model{&f.code}
	}
	return []*textinput.Model{&f.username, &f.password}
}

func (f *loginForm) setFocus(i int) tea.Cmd {
	fields := f.fields()
	f.focus = (i + len(fields)) % len(fields)
	var cmd tea.Cmd
	for n, field := range fields {
		if n == f.focus {
			cmd = field.Focus()
		} else {
			field.Blur()
		}
	}
	return cmd
}

// askCode switches to the second-factor stage.
func (f *loginForm) askCode(tempToken string) tea.Cmd {
	f.tempToken = tempToken
	f.stage = stageCode
	f.password.SetValue("")
	f.username.Blur()
	f.password.Blur()
	f.code.SetValue("")
	return f.setFocus(0)
}

// lastField reports whether enter should submit.
func (f *loginForm) lastField() bool {
	return f.focus == len(f.fields())-1
}

func (f *loginForm) credentials() (string, string) {
	return strings.TrimSpace(f.username.Value()), f.password.Value()
}

func (f *loginForm) updateFocused(msg tea.Msg) tea.Cmd {
	field := f.fields()[f.focus]
	var cmd tea.Cmd
	*field, cmd = field.Update(msg)
	return cmd
}

func (f loginForm) view(styles Styles, panel string) string {
	var b strings.Builder
	b.WriteString(styles.Title.Render("Sign in to " + panel))
	b.WriteString("\n")

	if f.stage == stageCode {
		b.WriteString("Enter the code from your authenticator app.\n\n")
		b.WriteString(f.code.View())
	} else {
		b.WriteString(f.username.View())
		b.WriteString("\n")
		b.WriteString(f.password.View())
	}
	b.WriteString("\n\n")

	switch {
	case f.busy:
		b.WriteString(styles.Notice.Render("Signing in..."))
	case f.err != "":
		b.WriteString(styles.Error.Render(f.err))
	default:
		b.WriteString(styles.Help.Render("enter submit • tab next field • ctrl+c quit"))
	}
	return styles.Form.Render(b.String())
}
