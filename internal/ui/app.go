package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/tgienger/tasksync/internal/store"
	"github.com/tgienger/tasksync/internal/ui/views"
)

// Currently active view
type View int

const (
	ViewLogin View = iota
	ViewTasks
)

type storeChangedMsg struct{}

type App struct {
	store       *store.Store
	settings    views.Settings
	updates     <-chan struct{}
	unsubscribe func()

	currentView View
	login       *views.LoginView
	taskList    *views.TaskListView
	width       int
	height      int
}

// Creates a new application. Close must be called once the program exits.
func NewApp(st *store.Store, settings views.Settings) *App {
	updates, unsubscribe := st.Subscribe()
	a := &App{
		store:       st,
		settings:    settings,
		updates:     updates,
		unsubscribe: unsubscribe,
		currentView: ViewLogin,
		login:       views.NewLoginView(st),
	}
	if st.LoggedIn() {
		a.currentView = ViewTasks
		a.taskList = views.NewTaskListView(st, settings)
	}
	return a
}

// Close stops listening to the store
func (a *App) Close() {
	a.unsubscribe()
}

// waitForChange blocks until the store reports a state change
func (a *App) waitForChange() tea.Msg {
	if _, ok := <-a.updates; !ok {
		return nil
	}
	return storeChangedMsg{}
}

func (a *App) Init() tea.Cmd {
	if a.currentView == ViewTasks {
		return tea.Batch(a.waitForChange, a.taskList.Init())
	}
	return tea.Batch(a.waitForChange, a.login.Init())
}

func (a *App) openTasks() tea.Cmd {
	a.currentView = ViewTasks
	a.taskList = views.NewTaskListView(a.store, a.settings)

	return tea.Batch(
		a.taskList.Init(),
		func() tea.Msg {
			return tea.WindowSizeMsg{Width: a.width, Height: a.height}
		},
	)
}

func (a *App) openLogin() tea.Cmd {
	a.currentView = ViewLogin
	a.login = views.NewLoginView(a.store)
	return tea.Batch(
		a.login.Init(),
		func() tea.Msg {
			return tea.WindowSizeMsg{Width: a.width, Height: a.height}
		},
	)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		// Login form keeps its size across logouts
		a.login.Update(msg)

	case views.LoggedIn:
		return a, a.openTasks()

	case storeChangedMsg:
		if a.currentView == ViewTasks && !a.store.LoggedIn() {
			return a, tea.Batch(a.waitForChange, a.openLogin())
		}
		var cmd tea.Cmd
		if a.currentView == ViewTasks {
			_, cmd = a.taskList.Update(views.StoreChanged{})
		}
		return a, tea.Batch(a.waitForChange, cmd)
	}

	var cmd tea.Cmd
	switch a.currentView {
	case ViewLogin:
		_, cmd = a.login.Update(msg)
	case ViewTasks:
		_, cmd = a.taskList.Update(msg)
	}

	return a, cmd
}

func (a *App) View() string {
	switch a.currentView {
	case ViewTasks:
		if a.taskList != nil {
			return a.taskList.View()
		}
	}
	return a.login.View()
}
