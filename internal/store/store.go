// Package store keeps the client's mirror of the user's tasks. Every mutation
// goes to the task service first and the local record set is updated from the
// service's answer. Operations record failures in the store's error field
// instead of returning them, so a caller always sees a settled state.
//
// Operations do not exclude each other. Two mutations of the same task run
// independently and whichever response lands last wins; each individual update
// of the record set is applied atomically.
package store

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/tgienger/tasksync/internal/models"
)

// ErrTaskNotCached is recorded by MarkDone when the id is not in the record set
var ErrTaskNotCached = errors.New("task not found in cache")

// TaskService is the remote task API. api.Client implements it.
type TaskService interface {
	ListTasks(ctx context.Context) ([]models.Task, error)
	GetTask(ctx context.Context, id string) (models.Task, error)
	CreateTask(ctx context.Context, draft models.TaskDraft) (models.Task, error)
	UpdateTask(ctx context.Context, task models.Task) (models.Task, error)
	DeleteTask(ctx context.Context, id string) error
	DeleteAllTasks(ctx context.Context) error
	CreateTasks(ctx context.Context, drafts []models.TaskDraft) error
}

// Session holds the user's credentials. session.Gateway implements it.
type Session interface {
	Login(ctx context.Context, creds models.Credentials) (models.CredentialPair, error)
	Register(ctx context.Context, creds models.Credentials) (models.CredentialPair, error)
	ClearTokens(ctx context.Context)
	Authenticated() bool
}

// Snapshot is a consistent copy of the store's observable state
type Snapshot struct {
	Tasks    []models.Task
	Loading  bool
	Err      string
	LoggedIn bool
	Filter   models.Filter
	Sort     models.Sort
}

// Store is the task cache and view engine
type Store struct {
	tasks TaskService
	sess  Session
	log   *slog.Logger

	mu       sync.RWMutex
	records  []models.Task
	inflight int
	err      string
	loggedIn bool
	filter   models.Filter
	sort     models.Sort
	// gen counts logouts; results of operations begun before one are dropped
	gen int

	subMu  sync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

// Option configures a Store
type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithSort sets the initial sort order
func WithSort(sort models.Sort) Option {
	return func(s *Store) { s.sort = sort }
}

// New creates a store. The logged-in flag starts from the session's state.
func New(tasks TaskService, sess Session, opts ...Option) *Store {
	s := &Store{
		tasks:    tasks,
		sess:     sess,
		log:      slog.Default(),
		loggedIn: sess.Authenticated(),
		sort:     models.DefaultSort,
		subs:     make(map[int]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "store")
	return s
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Tasks:    slices.Clone(s.records),
		Loading:  s.inflight > 0,
		Err:      s.err,
		LoggedIn: s.loggedIn,
		Filter:   s.filter,
		Sort:     s.sort,
	}
}

// Tasks returns a copy of the record set
func (s *Store) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

// Loading reports whether any operation is in flight
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inflight > 0
}

// Error returns the last operation's failure message, "" when it succeeded
func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Store) LoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loggedIn
}

func (s *Store) Filter() models.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

func (s *Store) Sort() models.Sort {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sort
}

// SetFilter replaces the filter
func (s *Store) SetFilter(f models.Filter) {
	s.mutate(func() { s.filter = f })
}

// UpdateFilter edits the current filter in place, leaving untouched fields as they are
func (s *Store) UpdateFilter(edit func(*models.Filter)) {
	s.mutate(func() { edit(&s.filter) })
}

// ResetFilter removes every constraint
func (s *Store) ResetFilter() {
	s.SetFilter(models.Filter{})
}

func (s *Store) SetSort(sort models.Sort) {
	s.mutate(func() { s.sort = sort })
}

// ToggleSort sorts by field ascending, or flips to descending when the list
// is already sorted ascending by that field.
func (s *Store) ToggleSort(field models.SortField) {
	s.mutate(func() {
		dir := models.Asc
		if s.sort.Field == field && s.sort.Direction == models.Asc {
			dir = models.Desc
		}
		s.sort = models.Sort{Field: field, Direction: dir}
	})
}

func (s *Store) SetError(msg string) {
	s.mutate(func() { s.err = msg })
}

func (s *Store) ClearError() {
	s.SetError("")
}

// Subscribe returns a channel that receives a signal after every state change.
// Signals coalesce: a slow reader sees one pending signal, then reads the
// latest Snapshot. The returned func unsubscribes and closes the channel.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// mutate applies fn under the write lock and notifies subscribers
func (s *Store) mutate(fn func()) {
	s.mu.Lock()
	fn()
	s.mu.Unlock()
	s.notify()
}
