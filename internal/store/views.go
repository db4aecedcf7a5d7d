package store

import (
	"slices"
	"strings"

	"github.com/tgienger/tasksync/internal/models"
)

// Views are recomputed from the full record set on every read.

// FilteredTasks returns the tasks matching the current filter
func (s *Store) FilteredTasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ApplyFilter(s.records, s.filter)
}

// SortedTasks returns the filtered tasks in the current sort order
func (s *Store) SortedTasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ApplySort(ApplyFilter(s.records, s.filter), s.sort)
}

// ApplyFilter narrows tasks by status, category, priority, then search. It
// always returns a new slice.
func ApplyFilter(tasks []models.Task, f models.Filter) []models.Task {
	search := strings.ToLower(f.Search)
	out := make([]models.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		if search != "" && !matchesSearch(t, search) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func matchesSearch(t models.Task, search string) bool {
	if strings.Contains(strings.ToLower(t.Title), search) {
		return true
	}
	return t.Description != "" && strings.Contains(strings.ToLower(t.Description), search)
}

// ApplySort returns a sorted copy of tasks. Tasks without a value for the
// sort field keep their slots; the others are stably sorted among themselves.
func ApplySort(tasks []models.Task, sort models.Sort) []models.Task {
	out := slices.Clone(tasks)

	var slots []int
	var present []models.Task
	for i, t := range out {
		if hasField(t, sort.Field) {
			slots = append(slots, i)
			present = append(present, t)
		}
	}

	slices.SortStableFunc(present, func(a, b models.Task) int {
		c := compareField(a, b, sort.Field)
		if sort.Direction == models.Desc {
			return -c
		}
		return c
	})
	for i, slot := range slots {
		out[slot] = present[i]
	}
	return out
}

func hasField(t models.Task, field models.SortField) bool {
	switch field {
	case models.SortID:
		return t.ID != ""
	case models.SortTitle:
		return t.Title != ""
	case models.SortDescription:
		return t.Description != ""
	case models.SortCategory:
		return t.Category != ""
	case models.SortCreatedAt:
		return !t.CreatedAt.IsZero()
	case models.SortUpdatedAt:
		return !t.UpdatedAt.IsZero()
	case models.SortDueDate:
		return t.DueDate != nil
	case models.SortStatus:
		return t.Status.Rank() >= 0
	case models.SortPriority:
		return t.Priority.Rank() >= 0
	}
	return false
}

// compareField orders two tasks that both have a value for field
func compareField(a, b models.Task, field models.SortField) int {
	switch field {
	case models.SortID:
		return strings.Compare(a.ID, b.ID)
	case models.SortTitle:
		return strings.Compare(a.Title, b.Title)
	case models.SortDescription:
		return strings.Compare(a.Description, b.Description)
	case models.SortCategory:
		return strings.Compare(string(a.Category), string(b.Category))
	case models.SortCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case models.SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	case models.SortDueDate:
		return a.DueDate.Compare(*b.DueDate)
	case models.SortStatus:
		return a.Status.Rank() - b.Status.Rank()
	case models.SortPriority:
		return a.Priority.Rank() - b.Priority.Rank()
	}
	return 0
}
