package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidTask is returned when a task draft fails validation
var ErrInvalidTask = errors.New("invalid task")

// Category classifies the kind of work a task represents
type Category string

const (
	CategoryBug           Category = "bug"
	CategoryFeature       Category = "feature"
	CategoryDocumentation Category = "documentation"
	CategoryRefactor      Category = "refactor"
	CategoryTest          Category = "test"
)

// Categories lists every category in display order
var Categories = []Category{CategoryBug, CategoryFeature, CategoryDocumentation, CategoryRefactor, CategoryTest}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// Status is the workflow state of a task
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses lists every status from first to last
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

func (s Status) Valid() bool { return s.Rank() >= 0 }

// Rank orders statuses from todo to done, -1 when unknown
func (s Status) Rank() int {
	for i, v := range Statuses {
		if s == v {
			return i
		}
	}
	return -1
}

// Priority is the urgency of a task
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every priority from lowest to highest
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

func (p Priority) Valid() bool { return p.Rank() >= 0 }

// Rank orders priorities from low to high, -1 when unknown
func (p Priority) Rank() int {
	for i, v := range Priorities {
		if p == v {
			return i
		}
	}
	return -1
}

// Task represents a single server-owned task
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Category    Category   `json:"category"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
}

// Draft returns the client-editable part of the task
func (t Task) Draft() TaskDraft {
	return TaskDraft{
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Category:    t.Category,
		Status:      t.Status,
		Priority:    t.Priority,
	}
}

// TaskDraft is a task that has not been created yet: no id, no timestamps
type TaskDraft struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Category    Category   `json:"category"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
}

// Validate checks the title and enum fields of the draft
func (d TaskDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidTask)
	}
	if !d.Category.Valid() {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidTask, d.Category)
	}
	if !d.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTask, d.Status)
	}
	if !d.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, d.Priority)
	}
	return nil
}

// Credentials is a username/password pair used to log in or sign up
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CredentialPair holds the access and refresh tokens issued by the task service
type CredentialPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
