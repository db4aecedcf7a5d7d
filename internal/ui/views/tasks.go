package views

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tgienger/tasksync/internal/models"
	"github.com/tgienger/tasksync/internal/store"
	"github.com/tgienger/tasksync/internal/ui/keys"
	"github.com/tgienger/tasksync/internal/ui/styles"
)

// SortSettingKey is the setting under which the last sort order is saved
const SortSettingKey = "sort"

// Settings persists small UI preferences
type Settings interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
}

// StoreChanged tells a view to re-read the store
type StoreChanged struct{}

// detailLoaded carries the result of a FetchByID for the detail pane
type detailLoaded struct {
	task models.Task
	ok   bool
}

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// cycle returns the value after cur, wrapping to the zero value ("any") after
// the last one
func cycle[T comparable](values []T, cur T) T {
	i := slices.Index(values, cur)
	if i+1 >= len(values) {
		var zero T
		return zero
	}
	return values[i+1]
}

// TaskListView renders the store's sorted view
type TaskListView struct {
	store    *store.Store
	settings Settings
	styles   *styles.Styles
	keys     keys.KeyMap

	width  int
	height int

	tasks   []models.Task
	cursor  int
	scrollY int

	searching   bool
	searchInput textinput.Model

	confirmingDelete bool
	deleteAll        bool
	deleteTarget     models.Task

	// editTarget has no ID while a new task is being written
	editing    bool
	editTarget models.Task
	titleInput textinput.Model

	detail *models.Task

	spinner spinner.Model
}

// NewTaskListView creates the task list
func NewTaskListView(st *store.Store, settings Settings) *TaskListView {
	search := textinput.New()
	search.Placeholder = "Search tasks..."
	search.CharLimit = 100
	search.SetValue(st.Filter().Search)

	title := textinput.New()
	title.Placeholder = "Task title"
	title.CharLimit = 200

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &TaskListView{
		store:       st,
		settings:    settings,
		styles:      styles.NewStyles(),
		keys:        keys.DefaultKeyMap(),
		searchInput: search,
		titleInput:  title,
		spinner:     sp,
	}
}

// Init loads the tasks
func (v *TaskListView) Init() tea.Cmd {
	v.reload()
	return tea.Batch(v.spinner.Tick, v.run(func(ctx context.Context) { v.store.FetchAll(ctx) }))
}

// run executes a store operation off the UI loop. The store notifies
// subscribers when it settles, so no message is returned.
func (v *TaskListView) run(op func(ctx context.Context)) tea.Cmd {
	return func() tea.Msg {
		op(context.Background())
		return nil
	}
}

func (v *TaskListView) reload() {
	v.tasks = v.store.SortedTasks()
	if v.cursor >= len(v.tasks) {
		v.cursor = max(0, len(v.tasks)-1)
	}
	v.ensureVisible()
}

func (v *TaskListView) selected() (models.Task, bool) {
	if v.cursor < 0 || v.cursor >= len(v.tasks) {
		return models.Task{}, false
	}
	return v.tasks[v.cursor], true
}

// Update handles messages
func (v *TaskListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.searchInput.Width = clamp(styles.ContentWidth(v.width)-10, 10, 40)
		v.titleInput.Width = clamp(styles.ContentWidth(v.width)-10, 10, 60)
		v.ensureVisible()
		return v, nil

	case StoreChanged:
		v.reload()
		return v, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case detailLoaded:
		if msg.ok {
			v.detail = &msg.task
		}
		return v, nil

	case tea.KeyMsg:
		if v.detail != nil {
			if key.Matches(msg, v.keys.Back, v.keys.Enter, v.keys.Quit) {
				v.detail = nil
			}
			return v, nil
		}
		if v.confirmingDelete {
			return v.updateConfirmDelete(msg)
		}
		if v.editing {
			return v.updateEdit(msg)
		}
		if v.searching {
			return v.updateSearch(msg)
		}
		return v.updateNormal(msg)
	}
	return v, nil
}

func (v *TaskListView) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back), key.Matches(msg, v.keys.Enter):
		v.searchInput.Blur()
		v.searching = false
		return v, nil
	}

	var cmd tea.Cmd
	v.searchInput, cmd = v.searchInput.Update(msg)
	search := v.searchInput.Value()
	v.store.UpdateFilter(func(f *models.Filter) { f.Search = search })
	return v, cmd
}

func (v *TaskListView) updateConfirmDelete(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v.confirmingDelete = false
	if !key.Matches(msg, v.keys.Confirm) {
		return v, nil
	}
	if v.deleteAll {
		return v, v.run(func(ctx context.Context) { v.store.DeleteAll(ctx) })
	}
	id := v.deleteTarget.ID
	return v, v.run(func(ctx context.Context) { v.store.Delete(ctx, id) })
}

func (v *TaskListView) startEdit(target models.Task) tea.Cmd {
	v.editing = true
	v.editTarget = target
	v.titleInput.SetValue(target.Title)
	v.titleInput.CursorEnd()
	return v.titleInput.Focus()
}

func (v *TaskListView) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.editing = false
		v.titleInput.Blur()
		return v, nil

	case key.Matches(msg, v.keys.Enter):
		v.editing = false
		v.titleInput.Blur()
		title := strings.TrimSpace(v.titleInput.Value())
		if title == "" {
			return v, nil
		}
		if v.editTarget.ID == "" {
			draft := models.TaskDraft{
				Title:    title,
				Category: models.CategoryFeature,
				Status:   models.StatusTodo,
				Priority: models.PriorityMedium,
			}
			return v, v.run(func(ctx context.Context) { v.store.Create(ctx, draft) })
		}
		task := v.editTarget
		task.Title = title
		return v, v.run(func(ctx context.Context) { v.store.Update(ctx, task) })
	}

	var cmd tea.Cmd
	v.titleInput, cmd = v.titleInput.Update(msg)
	return v, cmd
}

// showDetail looks the task up by id so the pane shows the service's copy
// when the cache no longer holds it
func (v *TaskListView) showDetail(id string) tea.Cmd {
	return func() tea.Msg {
		t, ok := v.store.FetchByID(context.Background(), id)
		return detailLoaded{task: t, ok: ok}
	}
}

func (v *TaskListView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}

	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(v.tasks)-1 {
			v.cursor++
			v.ensureVisible()
		}

	case key.Matches(msg, v.keys.Refresh):
		return v, v.run(func(ctx context.Context) { v.store.FetchAll(ctx) })

	case key.Matches(msg, v.keys.Done):
		if t, ok := v.selected(); ok {
			return v, v.run(func(ctx context.Context) { v.store.MarkDone(ctx, t.ID) })
		}

	case key.Matches(msg, v.keys.Delete):
		if t, ok := v.selected(); ok {
			v.confirmingDelete = true
			v.deleteAll = false
			v.deleteTarget = t
		}

	case key.Matches(msg, v.keys.DeleteAll):
		if len(v.store.Tasks()) > 0 {
			v.confirmingDelete = true
			v.deleteAll = true
		}

	case key.Matches(msg, v.keys.New):
		return v, v.startEdit(models.Task{})

	case key.Matches(msg, v.keys.Edit):
		if t, ok := v.selected(); ok {
			return v, v.startEdit(t)
		}

	case key.Matches(msg, v.keys.Enter):
		if t, ok := v.selected(); ok {
			return v, v.showDetail(t.ID)
		}

	case key.Matches(msg, v.keys.Seed):
		drafts := SampleDrafts(time.Now())
		return v, v.run(func(ctx context.Context) { v.store.SeedTasks(ctx, drafts) })

	case key.Matches(msg, v.keys.Search):
		v.searching = true
		return v, v.searchInput.Focus()

	case key.Matches(msg, v.keys.Status):
		v.store.UpdateFilter(func(f *models.Filter) { f.Status = cycle(models.Statuses, f.Status) })

	case key.Matches(msg, v.keys.Category):
		v.store.UpdateFilter(func(f *models.Filter) { f.Category = cycle(models.Categories, f.Category) })

	case key.Matches(msg, v.keys.Priority):
		v.store.UpdateFilter(func(f *models.Filter) { f.Priority = cycle(models.Priorities, f.Priority) })

	case key.Matches(msg, v.keys.Reset):
		v.searchInput.SetValue("")
		v.store.ResetFilter()

	case key.Matches(msg, v.keys.Sort):
		field := cycle(models.SortFields, v.store.Sort().Field)
		if field == "" {
			field = models.SortFields[0]
		}
		v.store.SetSort(models.Sort{Field: field, Direction: models.Asc})
		v.saveSort()

	case key.Matches(msg, v.keys.Reverse):
		v.store.ToggleSort(v.store.Sort().Field)
		v.saveSort()

	case key.Matches(msg, v.keys.Logout):
		v.store.Logout()
	}
	return v, nil
}

func (v *TaskListView) saveSort() {
	if v.settings == nil {
		return
	}
	if err := v.settings.SetSetting(SortSettingKey, FormatSort(v.store.Sort())); err != nil {
		slog.Warn("failed to save sort order", "error", err)
	}
}

// visibleItems is how many two-line items fit on screen
func (v *TaskListView) visibleItems() int {
	return max((v.height-10)/3, 1)
}

func (v *TaskListView) ensureVisible() {
	visible := v.visibleItems()
	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	}
	if v.cursor >= v.scrollY+visible {
		v.scrollY = v.cursor - visible + 1
	}
	v.scrollY = clamp(v.scrollY, 0, max(len(v.tasks)-visible, 0))
}

func (v *TaskListView) View() string {
	if v.detail != nil {
		return v.renderDetail(*v.detail)
	}
	if v.confirmingDelete {
		return v.renderDeleteConfirm()
	}
	if v.editing {
		return v.renderEdit()
	}

	var b strings.Builder
	b.WriteString(v.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(v.renderTaskList())
	b.WriteString("\n")
	b.WriteString(v.renderStatus())
	b.WriteString(v.renderHelp())

	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *TaskListView) renderHeader() string {
	s := v.styles
	f := v.store.Filter()
	sort := v.store.Sort()

	orAny := func(val string) string {
		if val == "" {
			return "any"
		}
		return val
	}
	arrow := "↑"
	if sort.Direction == models.Desc {
		arrow = "↓"
	}

	searchStyle := s.Input
	if v.searching {
		searchStyle = s.InputFocused
	}
	filters := s.FilterBar.Render(fmt.Sprintf("status: %s • category: %s • priority: %s • sort: %s %s",
		orAny(string(f.Status)), orAny(string(f.Category)), orAny(string(f.Priority)), sort.Field, arrow))

	title := s.Title.Render(fmt.Sprintf("Tasks (%d)", len(v.tasks)))
	return lipgloss.JoinVertical(lipgloss.Left, title, searchStyle.Render(v.searchInput.View()), filters)
}

func (v *TaskListView) renderTaskList() string {
	s := v.styles
	if len(v.tasks) == 0 {
		return s.TitleMuted.Render("No tasks match. Press 'r' to reload or '0' to clear filters.")
	}

	var items []string
	end := min(v.scrollY+v.visibleItems(), len(v.tasks))
	for i := v.scrollY; i < end; i++ {
		items = append(items, v.renderTaskItem(v.tasks[i], i == v.cursor))
	}
	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func (v *TaskListView) renderTaskItem(task models.Task, selected bool) string {
	s := v.styles
	width := max(styles.ContentWidth(v.width)-4, 20)

	itemStyle := s.ListItem.Width(width)
	if selected {
		itemStyle = s.ListSelected.Width(width)
	}

	status := s.Status(task.Status).Render(fmt.Sprintf("[%s]", task.Status))
	meta := []string{string(task.Category), s.Priority(task.Priority).Render(string(task.Priority))}
	if task.DueDate != nil {
		meta = append(meta, "due "+task.DueDate.Local().Format("Jan 2 2006"))
	}

	title := itemStyle.Render(status + " " + task.Title)
	details := itemStyle.Render(s.TitleMuted.Render(strings.Join(meta, " • ")))
	return lipgloss.JoinVertical(lipgloss.Left, title, details) + "\n"
}

func (v *TaskListView) renderStatus() string {
	snap := v.store.Snapshot()
	switch {
	case snap.Loading:
		return v.styles.StatusBar.Render(v.spinner.View()+" syncing...") + "\n"
	case snap.Err != "":
		return v.styles.Error.Render(snap.Err) + "\n"
	}
	return ""
}

func (v *TaskListView) renderHelp() string {
	k := v.styles.HelpKey.Render
	return v.styles.Help.Render(
		fmt.Sprintf("%s open • %s new • %s edit • %s done • %s del • %s del all • %s samples • %s reload\n"+
			"%s search • %s/%s/%s filter • %s clear • %s sort • %s reverse • %s log out • %s quit",
			k("↵"), k("n"), k("e"), k("d"), k("x"), k("X"), k("T"), k("r"),
			k("/"), k("f"), k("c"), k("p"), k("0"), k("s"), k("S"), k("L"), k("q"),
		),
	)
}

func (v *TaskListView) renderDeleteConfirm() string {
	s := v.styles
	heading, target := "Delete task?", v.deleteTarget.Title
	if v.deleteAll {
		heading, target = "Delete all tasks?", fmt.Sprintf("%d tasks", len(v.store.Tasks()))
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render(heading),
		"",
		s.ListItem.Render(target),
		"",
		s.Help.Render(s.HelpKey.Render("y")+" delete • any other key cancels"),
	)
	return styles.CenterView(content, v.width, v.height)
}

func (v *TaskListView) renderEdit() string {
	s := v.styles
	heading := "New task"
	if v.editTarget.ID != "" {
		heading = "Edit title"
	}
	content := lipgloss.JoinVertical(lipgloss.Left,
		s.Title.Render(heading),
		"",
		s.InputFocused.Render(v.titleInput.View()),
		"",
		s.Help.Render(s.HelpKey.Render("↵")+" save • "+s.HelpKey.Render("esc")+" cancel"),
	)
	return styles.CenterView(content, v.width, v.height)
}

func (v *TaskListView) renderDetail(task models.Task) string {
	s := v.styles
	stamp := func(t time.Time) string { return t.Local().Format("Jan 2 2006 15:04") }
	rows := []string{
		s.Title.Render(task.Title),
		"",
		s.Status(task.Status).Render(string(task.Status)) + " • " + string(task.Category) + " • " +
			s.Priority(task.Priority).Render(string(task.Priority)),
	}
	if task.Description != "" {
		rows = append(rows, "", s.ListItem.Width(max(styles.ContentWidth(v.width)-4, 20)).Render(task.Description))
	}
	rows = append(rows, "", s.TitleMuted.Render("created "+stamp(task.CreatedAt)+" • updated "+stamp(task.UpdatedAt)))
	if task.DueDate != nil {
		rows = append(rows, s.TitleMuted.Render("due "+task.DueDate.Local().Format("Jan 2 2006")))
	}
	rows = append(rows, "", s.Help.Render(s.HelpKey.Render("esc")+" back"))
	return styles.CenterView(lipgloss.JoinVertical(lipgloss.Left, rows...), v.width, v.height)
}

// FormatSort encodes a sort order as "field:direction"
func FormatSort(sort models.Sort) string {
	return string(sort.Field) + ":" + string(sort.Direction)
}

// ParseSort decodes FormatSort's output
func ParseSort(s string) (models.Sort, bool) {
	field, dir, ok := strings.Cut(s, ":")
	if !ok {
		return models.Sort{}, false
	}
	sort := models.Sort{Field: models.SortField(field), Direction: models.Direction(dir)}
	if !sort.Field.Valid() || (sort.Direction != models.Asc && sort.Direction != models.Desc) {
		return models.Sort{}, false
	}
	return sort, true
}

// LoadSort returns the saved sort order, or the default when none is saved
func LoadSort(settings Settings) models.Sort {
	if settings == nil {
		return models.DefaultSort
	}
	value, err := settings.GetSetting(SortSettingKey)
	if err != nil {
		return models.DefaultSort
	}
	if sort, ok := ParseSort(value); ok {
		return sort
	}
	return models.DefaultSort
}
