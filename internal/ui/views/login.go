package views

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/tasksync/internal/models"
	"github.com/tgienger/tasksync/internal/store"
	"github.com/tgienger/tasksync/internal/ui/keys"
	"github.com/tgienger/tasksync/internal/ui/styles"
)

// LoggedIn signals that a login or sign-up succeeded
type LoggedIn struct{}

type loginFailedMsg struct{}

// LoginView asks for credentials and starts a session
type LoginView struct {
	store  *store.Store
	styles *styles.Styles
	keys   keys.KeyMap

	width  int
	height int

	username textinput.Model
	password textinput.Model
	focus    int
	signUp   bool
	pending  bool
}

// NewLoginView creates the login form
func NewLoginView(st *store.Store) *LoginView {
	username := textinput.New()
	username.Placeholder = "Username"
	username.CharLimit = 100
	username.Focus()

	password := textinput.New()
	password.Placeholder = "Password"
	password.CharLimit = 72
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	return &LoginView{
		store:    st,
		styles:   styles.NewStyles(),
		keys:     keys.DefaultKeyMap(),
		username: username,
		password: password,
	}
}

func (v *LoginView) Init() tea.Cmd {
	return textinput.Blink
}

func (v *LoginView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		return v, nil

	case loginFailedMsg:
		v.pending = false
		return v, nil

	case tea.KeyMsg:
		switch {
		case msg.String() == "ctrl+c":
			return v, tea.Quit
		case key.Matches(msg, v.keys.Mode):
			v.signUp = !v.signUp
			return v, nil
		case key.Matches(msg, v.keys.Tab), key.Matches(msg, v.keys.Up), msg.String() == "down":
			v.setFocus(1 - v.focus)
			return v, nil
		case key.Matches(msg, v.keys.Enter):
			if v.focus == 0 {
				v.setFocus(1)
				return v, nil
			}
			return v, v.submit()
		}
	}

	var cmd tea.Cmd
	if v.focus == 0 {
		v.username, cmd = v.username.Update(msg)
	} else {
		v.password, cmd = v.password.Update(msg)
	}
	return v, cmd
}

func (v *LoginView) setFocus(i int) {
	v.focus = i
	if i == 0 {
		v.username.Focus()
		v.password.Blur()
	} else {
		v.password.Focus()
		v.username.Blur()
	}
}

func (v *LoginView) submit() tea.Cmd {
	creds := models.Credentials{
		Username: strings.TrimSpace(v.username.Value()),
		Password: v.password.Value(),
	}
	if creds.Username == "" || creds.Password == "" || v.pending {
		return nil
	}
	v.pending = true
	signUp := v.signUp
	st := v.store

	return func() tea.Msg {
		ctx := context.Background()
		var ok bool
		if signUp {
			ok = st.SignUp(ctx, creds)
		} else {
			ok = st.Login(ctx, creds)
		}
		if !ok {
			return loginFailedMsg{}
		}
		return LoggedIn{}
	}
}

func (v *LoginView) View() string {
	s := v.styles
	width := min(styles.ContentWidth(v.width)-8, 40)

	title := "Log in"
	if v.signUp {
		title = "Sign up"
	}

	userStyle, passStyle := s.InputFocused, s.Input
	if v.focus == 1 {
		userStyle, passStyle = s.Input, s.InputFocused
	}

	status := ""
	snap := v.store.Snapshot()
	switch {
	case v.pending || snap.Loading:
		status = s.StatusBar.Render("Connecting...")
	case snap.Err != "":
		status = s.Error.Render(snap.Err)
	}

	help := s.Help.Render(
		s.HelpKey.Render("tab") + " switch field • " +
			s.HelpKey.Render("↵") + " submit • " +
			s.HelpKey.Render("ctrl+t") + " log in / sign up • " +
			s.HelpKey.Render("ctrl+c") + " quit",
	)

	content := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render(title),
		"",
		userStyle.Width(width).Render(v.username.View()),
		passStyle.Width(width).Render(v.password.View()),
		status,
		help,
	)
	return styles.CenterView(content, v.width, v.height)
}
