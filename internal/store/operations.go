package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/tgienger/tasksync/internal/api"
	"github.com/tgienger/tasksync/internal/models"
	"github.com/tgienger/tasksync/internal/session"
)

// begin marks an operation as in flight and returns the session generation
// it runs under
func (s *Store) begin(op string) int {
	var gen int
	s.mutate(func() {
		s.inflight++
		gen = s.gen
	})
	s.log.Debug("operation started", "op", op)
	return gen
}

// finish settles a task operation in one state transition. On success apply
// runs and the error clears. On failure the error is recorded, the record set
// is left alone, and the user is marked logged out once the session holds no
// credentials. A result that lands after Logout is dropped.
func (s *Store) finish(op string, gen int, err error, apply func()) {
	s.settle(op, gen, err, true, apply)
}

// finishAuth settles login and sign-up. A rejected login says nothing about
// the session already held, so the logged-in flag is not touched on failure.
func (s *Store) finishAuth(op string, gen int, err error, apply func()) {
	s.settle(op, gen, err, false, apply)
}

func (s *Store) settle(op string, gen int, err error, dropSession bool, apply func()) {
	if err != nil {
		s.log.Warn("operation failed", "op", op, "error", err)
	}
	authenticated := s.sess.Authenticated()
	s.mutate(func() {
		s.inflight--
		if gen != s.gen {
			s.log.Debug("dropping result from a previous session", "op", op)
			return
		}
		if err != nil {
			s.err = errorText(op, err)
			if dropSession && (session.SessionLost(err) || !authenticated) {
				s.loggedIn = false
			}
			return
		}
		if apply != nil {
			apply()
		}
		s.err = ""
	})
}

// hold keeps the loading flag up across a composite operation
func (s *Store) hold() func() {
	s.mutate(func() { s.inflight++ })
	return func() { s.mutate(func() { s.inflight-- }) }
}

func (s *Store) fail(op string, err error) {
	s.log.Warn("operation rejected", "op", op, "error", err)
	s.mutate(func() { s.err = errorText(op, err) })
}

func errorText(op string, err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return "failed to " + op
}

// indexOf must be called with s.mu held
func (s *Store) indexOf(id string) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}

// upsert must be called with s.mu held
func (s *Store) upsert(t models.Task) {
	if i := s.indexOf(t.ID); i >= 0 {
		s.records[i] = t
		return
	}
	s.records = append(s.records, t)
}

func (s *Store) cached(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.records[i], true
	}
	return models.Task{}, false
}

// FetchAll replaces the record set with the service's current tasks
func (s *Store) FetchAll(ctx context.Context) bool {
	const op = "fetch tasks"
	gen := s.begin(op)
	tasks, err := s.tasks.ListTasks(ctx)
	s.finish(op, gen, err, func() {
		s.records = make([]models.Task, 0, len(tasks))
		for _, t := range tasks {
			s.upsert(t)
		}
	})
	return err == nil
}

// FetchByID returns the cached task when present. Otherwise it asks the
// service and upserts the answer. An id the service does not know resolves to
// (zero, false) without recording an error.
func (s *Store) FetchByID(ctx context.Context, id string) (models.Task, bool) {
	if t, ok := s.cached(id); ok {
		return t, true
	}

	const op = "fetch task"
	gen := s.begin(op)
	t, err := s.tasks.GetTask(ctx, id)
	if errors.Is(err, api.ErrNotFound) {
		s.log.Debug("task not found", "id", id)
		s.finish(op, gen, nil, nil)
		return models.Task{}, false
	}
	s.finish(op, gen, err, func() { s.upsert(t) })
	if err != nil {
		return models.Task{}, false
	}
	return t, true
}

// Create sends a draft to the service and adds the created task to the set
func (s *Store) Create(ctx context.Context, draft models.TaskDraft) (models.Task, bool) {
	const op = "create task"
	if err := draft.Validate(); err != nil {
		s.fail(op, err)
		return models.Task{}, false
	}

	gen := s.begin(op)
	t, err := s.tasks.CreateTask(ctx, draft)
	s.finish(op, gen, err, func() { s.upsert(t) })
	if err != nil {
		return models.Task{}, false
	}
	return t, true
}

// Update persists task and replaces the cached entry with the service's
// version. A task that is no longer cached is not re-added.
func (s *Store) Update(ctx context.Context, task models.Task) (models.Task, bool) {
	const op = "update task"
	gen := s.begin(op)
	t, err := s.tasks.UpdateTask(ctx, task)
	s.finish(op, gen, err, func() {
		if i := s.indexOf(task.ID); i >= 0 {
			s.records[i] = t
		}
	})
	if err != nil {
		return models.Task{}, false
	}
	return t, true
}

// Delete removes a task on the service and then from the set
func (s *Store) Delete(ctx context.Context, id string) bool {
	const op = "delete task"
	gen := s.begin(op)
	err := s.tasks.DeleteTask(ctx, id)
	s.finish(op, gen, err, func() {
		if i := s.indexOf(id); i >= 0 {
			s.records = append(s.records[:i:i], s.records[i+1:]...)
		}
	})
	return err == nil
}

// DeleteAll removes every task on the service and empties the set
func (s *Store) DeleteAll(ctx context.Context) bool {
	const op = "delete all tasks"
	gen := s.begin(op)
	err := s.tasks.DeleteAllTasks(ctx)
	s.finish(op, gen, err, func() { s.records = nil })
	return err == nil
}

// MarkDone sets a cached task's status to done and updates it. It works from
// the cache only: an id missing from the set fails without a network call.
func (s *Store) MarkDone(ctx context.Context, id string) (models.Task, bool) {
	t, ok := s.cached(id)
	if !ok {
		s.fail("mark task done", fmt.Errorf("%w: %s", ErrTaskNotCached, id))
		return models.Task{}, false
	}
	t.Status = models.StatusDone
	return s.Update(ctx, t)
}

// CreateBatch bulk-creates drafts. The set is not touched; call FetchAll
// afterwards, or use SeedTasks.
func (s *Store) CreateBatch(ctx context.Context, drafts []models.TaskDraft) bool {
	const op = "create tasks"
	for _, d := range drafts {
		if err := d.Validate(); err != nil {
			s.fail(op, err)
			return false
		}
	}

	gen := s.begin(op)
	err := s.tasks.CreateTasks(ctx, drafts)
	s.finish(op, gen, err, nil)
	return err == nil
}

// SeedTasks bulk-creates drafts and reloads the set
func (s *Store) SeedTasks(ctx context.Context, drafts []models.TaskDraft) bool {
	release := s.hold()
	defer release()
	if !s.CreateBatch(ctx, drafts) {
		return false
	}
	return s.FetchAll(ctx)
}

// Login starts a session. It does not load tasks.
func (s *Store) Login(ctx context.Context, creds models.Credentials) bool {
	const op = "log in"
	gen := s.begin(op)
	_, err := s.sess.Login(ctx, creds)
	s.finishAuth(op, gen, err, func() { s.loggedIn = true })
	return err == nil
}

// SignUp registers an account and logs in with the same credentials
func (s *Store) SignUp(ctx context.Context, creds models.Credentials) bool {
	const op = "sign up"
	release := s.hold()
	defer release()

	gen := s.begin(op)
	_, err := s.sess.Register(ctx, creds)
	s.finishAuth(op, gen, err, nil)
	if err != nil {
		return false
	}
	return s.Login(ctx, creds)
}

// Logout drops the session and everything loaded under it. Operations still
// in flight settle without touching the state of the next session.
func (s *Store) Logout() {
	s.sess.ClearTokens(context.Background())
	s.mutate(func() {
		s.gen++
		s.loggedIn = false
		s.records = nil
		s.filter = models.Filter{}
	})
	s.log.Info("logged out")
}
