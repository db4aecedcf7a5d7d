// Package api maps the task endpoints of the remote service onto typed calls.
package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/tgienger/tasksync/internal/models"
	"github.com/tgienger/tasksync/internal/session"
)

// ErrNotFound is returned by GetTask when the service has no task with that id
var ErrNotFound = errors.New("task not found")

// Requester sends one request to the task service. session.Gateway implements it.
type Requester interface {
	Request(ctx context.Context, method, path string, body any) (*session.Response, error)
}

// Client wraps a Requester with the task routes
type Client struct {
	r Requester
}

func NewClient(r Requester) *Client {
	return &Client{r: r}
}

func taskPath(id string) string {
	return "/tasks/" + url.PathEscape(id)
}

// ListTasks returns every task of the current user
func (c *Client) ListTasks(ctx context.Context) ([]models.Task, error) {
	resp, err := c.r.Request(ctx, http.MethodGet, "/tasks", nil)
	if err != nil {
		return nil, err
	}
	tasks := []models.Task{}
	if err := resp.Decode(&tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// GetTask fetches a single task, returning ErrNotFound for an unknown id
func (c *Client) GetTask(ctx context.Context, id string) (models.Task, error) {
	resp, err := c.r.Request(ctx, http.MethodGet, taskPath(id), nil)
	if err != nil {
		if session.StatusCode(err) == http.StatusNotFound {
			return models.Task{}, ErrNotFound
		}
		return models.Task{}, err
	}
	var t models.Task
	if err := resp.Decode(&t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// CreateTask creates a task; the service assigns the id and timestamps
func (c *Client) CreateTask(ctx context.Context, draft models.TaskDraft) (models.Task, error) {
	resp, err := c.r.Request(ctx, http.MethodPost, "/tasks", draft)
	if err != nil {
		return models.Task{}, err
	}
	var t models.Task
	if err := resp.Decode(&t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// UpdateTask sends the full task and returns the service's representation
func (c *Client) UpdateTask(ctx context.Context, task models.Task) (models.Task, error) {
	resp, err := c.r.Request(ctx, http.MethodPatch, taskPath(task.ID), task)
	if err != nil {
		return models.Task{}, err
	}
	var t models.Task
	if err := resp.Decode(&t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

// DeleteTask deletes a task by id
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := c.r.Request(ctx, http.MethodDelete, taskPath(id), nil)
	return err
}

// DeleteAllTasks deletes every task of the current user
func (c *Client) DeleteAllTasks(ctx context.Context) error {
	_, err := c.r.Request(ctx, http.MethodDelete, "/tasks", nil)
	return err
}

// CreateTasks bulk-creates drafts. The service returns no body.
func (c *Client) CreateTasks(ctx context.Context, drafts []models.TaskDraft) error {
	if drafts == nil {
		drafts = []models.TaskDraft{}
	}
	_, err := c.r.Request(ctx, http.MethodPost, "/tasks/create-many", drafts)
	return err
}
