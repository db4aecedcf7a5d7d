package views

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tgienger/tasksync/internal/models"
	"github.com/tgienger/tasksync/internal/store"
)

type memSettings map[string]string

func (m memSettings) GetSetting(key string) (string, error) { return m[key], nil }
func (m memSettings) SetSetting(key, value string) error   { m[key] = value; return nil }

type brokenSettings struct{}

func (brokenSettings) GetSetting(string) (string, error) { return "", errors.New("locked") }
func (brokenSettings) SetSetting(string, string) error   { return errors.New("locked") }

// noopService satisfies store.TaskService and store.Session for view tests
type noopService struct{}

func (noopService) ListTasks(context.Context) ([]models.Task, error) { return nil, nil }
func (noopService) GetTask(context.Context, string) (models.Task, error) {
	return models.Task{}, nil
}
func (noopService) CreateTask(context.Context, models.TaskDraft) (models.Task, error) {
	return models.Task{}, nil
}
func (noopService) UpdateTask(_ context.Context, t models.Task) (models.Task, error) { return t, nil }
func (noopService) DeleteTask(context.Context, string) error                          { return nil }
func (noopService) DeleteAllTasks(context.Context) error                              { return nil }
func (noopService) CreateTasks(context.Context, []models.TaskDraft) error             { return nil }
func (noopService) Login(context.Context, models.Credentials) (models.CredentialPair, error) {
	return models.CredentialPair{AccessToken: "a"}, nil
}
func (noopService) Register(context.Context, models.Credentials) (models.CredentialPair, error) {
	return models.CredentialPair{AccessToken: "a"}, nil
}
func (noopService) ClearTokens(context.Context) {}
func (noopService) Authenticated() bool         { return true }

// recordingService remembers what the list view asked of it
type recordingService struct {
	noopService

	mu         sync.Mutex
	tasks      []models.Task
	created    []models.TaskDraft
	updated    []models.Task
	batch      []models.TaskDraft
	deletedAll bool
}

func (r *recordingService) ListTasks(context.Context) ([]models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Task(nil), r.tasks...), nil
}

func (r *recordingService) CreateTask(_ context.Context, d models.TaskDraft) (models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, d)
	return models.Task{ID: "new", Title: d.Title, Category: d.Category, Status: d.Status, Priority: d.Priority}, nil
}

func (r *recordingService) UpdateTask(_ context.Context, t models.Task) (models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updated = append(r.updated, t)
	return t, nil
}

func (r *recordingService) CreateTasks(_ context.Context, drafts []models.TaskDraft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batch = append(r.batch, drafts...)
	return nil
}

func (r *recordingService) DeleteAllTasks(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletedAll = true
	r.tasks = nil
	return nil
}

func listWith(t *testing.T, tasks ...models.Task) (*TaskListView, *store.Store, *recordingService) {
	t.Helper()
	svc := &recordingService{tasks: tasks}
	st := store.New(svc, svc)
	require.True(t, st.FetchAll(context.Background()))
	v := NewTaskListView(st, memSettings{})
	v.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	v.Update(StoreChanged{})
	return v, st, svc
}

var existing = models.Task{
	ID:        "1",
	Title:     "old title",
	Category:  models.CategoryBug,
	Status:    models.StatusTodo,
	Priority:  models.PriorityHigh,
	CreatedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	UpdatedAt: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
}

func press(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestFormatParseSort(t *testing.T) {
	for _, field := range models.SortFields {
		for _, dir := range []models.Direction{models.Asc, models.Desc} {
			sort := models.Sort{Field: field, Direction: dir}
			got, ok := ParseSort(FormatSort(sort))
			require.True(t, ok)
			assert.Equal(t, sort, got)
		}
	}

	for _, bad := range []string{"", "title", "title:up", "colour:asc"} {
		_, ok := ParseSort(bad)
		assert.False(t, ok, bad)
	}
}

func TestLoadSort(t *testing.T) {
	assert.Equal(t, models.DefaultSort, LoadSort(nil))
	assert.Equal(t, models.DefaultSort, LoadSort(brokenSettings{}))
	assert.Equal(t, models.DefaultSort, LoadSort(memSettings{SortSettingKey: "garbage"}))
	assert.Equal(t,
		models.Sort{Field: models.SortPriority, Direction: models.Asc},
		LoadSort(memSettings{SortSettingKey: "priority:asc"}),
	)
}

func TestCycle(t *testing.T) {
	assert.Equal(t, models.StatusTodo, cycle(models.Statuses, ""))
	assert.Equal(t, models.StatusInProgress, cycle(models.Statuses, models.StatusTodo))
	assert.Equal(t, models.Status(""), cycle(models.Statuses, models.StatusDone), "wraps to any")
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, clamp(-1, 0, 5))
	assert.Equal(t, 5, clamp(9, 0, 5))
	assert.Equal(t, 3, clamp(3, 0, 5))
}

func TestTaskListView_Keys(t *testing.T) {
	st := store.New(noopService{}, noopService{})
	settings := memSettings{}
	v := NewTaskListView(st, settings)

	v.Update(press("f"))
	assert.Equal(t, models.StatusTodo, st.Filter().Status)
	v.Update(press("p"))
	assert.Equal(t, models.PriorityLow, st.Filter().Priority)

	v.Update(press("s"))
	assert.Equal(t, models.Sort{Field: models.SortUpdatedAt, Direction: models.Asc}, st.Sort(), "moves on from the default field")
	assert.Equal(t, "updatedAt:asc", settings[SortSettingKey])

	v.Update(press("S"))
	assert.Equal(t, models.Desc, st.Sort().Direction)
	assert.Equal(t, "updatedAt:desc", settings[SortSettingKey])

	v.Update(press("0"))
	assert.True(t, st.Filter().IsZero())

	v.Update(press("L"))
	assert.False(t, st.LoggedIn())
}

func TestLoginView_ToggleMode(t *testing.T) {
	st := store.New(noopService{}, noopService{})
	v := NewLoginView(st)
	v.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	assert.Contains(t, v.View(), "Log in")
	v.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	assert.Contains(t, v.View(), "Sign up")
}

func TestLoginView_SubmitRequiresBothFields(t *testing.T) {
	st := store.New(noopService{}, noopService{})
	v := NewLoginView(st)

	assert.Nil(t, v.submit())

	v.username.SetValue("alice")
	v.password.SetValue("secret123")
	cmd := v.submit()
	require.NotNil(t, cmd)
	assert.Equal(t, LoggedIn{}, cmd())
	assert.True(t, st.LoggedIn())
}

func TestTaskListView_SortSaveFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	st := store.New(noopService{}, noopService{})
	v := NewTaskListView(st, brokenSettings{})

	v.Update(press("s"))
	assert.Equal(t, models.SortUpdatedAt, st.Sort().Field, "the sort still applies")
	assert.Contains(t, buf.String(), "failed to save sort order")
	assert.Contains(t, buf.String(), "locked")
}

func TestTaskListView_NewTask(t *testing.T) {
	v, st, svc := listWith(t)

	v.Update(press("n"))
	require.True(t, v.editing)
	assert.Contains(t, v.View(), "New task")

	v.Update(press("write docs"))
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	cmd()

	require.Len(t, svc.created, 1)
	assert.Equal(t, models.TaskDraft{
		Title:    "write docs",
		Category: models.CategoryFeature,
		Status:   models.StatusTodo,
		Priority: models.PriorityMedium,
	}, svc.created[0])
	assert.Len(t, st.Tasks(), 1)
	assert.False(t, v.editing)
}

func TestTaskListView_BlankTitleCancels(t *testing.T) {
	v, _, svc := listWith(t)

	v.Update(press("n"))
	v.Update(press("   "))
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, svc.created)

	v.Update(press("n"))
	v.Update(press("abandoned"))
	v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, v.editing)
	assert.Empty(t, svc.created)
}

func TestTaskListView_EditTitle(t *testing.T) {
	v, st, svc := listWith(t, existing)

	v.Update(press("e"))
	require.True(t, v.editing)
	assert.Equal(t, "old title", v.titleInput.Value())

	v.titleInput.SetValue("new title")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	cmd()

	require.Len(t, svc.updated, 1)
	assert.Equal(t, "1", svc.updated[0].ID)
	assert.Equal(t, "new title", svc.updated[0].Title)
	assert.Equal(t, models.PriorityHigh, svc.updated[0].Priority, "other fields are kept")

	got, ok := st.FetchByID(context.Background(), "1")
	require.True(t, ok)
	assert.Equal(t, "new title", got.Title)
}

func TestTaskListView_DeleteAllAsksFirst(t *testing.T) {
	v, st, svc := listWith(t, existing)

	v.Update(press("X"))
	require.True(t, v.confirmingDelete)
	assert.Contains(t, v.View(), "Delete all tasks?")

	_, cmd := v.Update(press("n"))
	assert.Nil(t, cmd)
	assert.False(t, svc.deletedAll)

	v.Update(press("X"))
	_, cmd = v.Update(press("y"))
	require.NotNil(t, cmd)
	cmd()
	assert.True(t, svc.deletedAll)
	assert.Empty(t, st.Tasks())
}

func TestTaskListView_Seed(t *testing.T) {
	v, st, svc := listWith(t)

	_, cmd := v.Update(press("T"))
	require.NotNil(t, cmd)
	cmd()

	require.NotEmpty(t, svc.batch)
	for _, d := range svc.batch {
		assert.NoError(t, d.Validate(), d.Title)
	}
	assert.False(t, st.Loading())
}

func TestTaskListView_Detail(t *testing.T) {
	task := existing
	task.Description = "steps to reproduce"
	v, _, _ := listWith(t, task)

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	v.Update(cmd())
	require.NotNil(t, v.detail)
	assert.Contains(t, v.View(), "steps to reproduce")

	_, cmd = v.Update(press("d"))
	assert.Nil(t, cmd, "list keys are ignored while the detail is open")

	v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, v.detail)

	v.Update(detailLoaded{ok: false})
	assert.Nil(t, v.detail, "a missing task opens nothing")
}

func TestSampleDrafts(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	drafts := SampleDrafts(now)

	seen := map[models.Category]bool{}
	for _, d := range drafts {
		require.NoError(t, d.Validate())
		seen[d.Category] = true
		if d.DueDate != nil {
			assert.False(t, d.DueDate.Before(now), d.Title)
		}
	}
	assert.Len(t, seen, len(models.Categories))
}
