package views

import (
	"time"

	"github.com/tgienger/tasksync/internal/models"
)

// SampleDrafts returns a small demo set covering every category, status and
// priority. Due dates are relative to now.
func SampleDrafts(now time.Time) []models.TaskDraft {
	due := func(days int) *time.Time {
		d := now.AddDate(0, 0, days).UTC()
		return &d
	}
	return []models.TaskDraft{
		{Title: "Lorem test", Description: "Lorem ipsum dolor sit amet, consectetur adipiscing elit.", DueDate: due(0), Category: models.CategoryTest, Status: models.StatusTodo, Priority: models.PriorityLow},
		{Title: "Fix button styles in Safari", Description: "Buttons render incorrectly in Safari", Category: models.CategoryBug, Status: models.StatusInProgress, Priority: models.PriorityMedium},
		{Title: "Small typos in the interface", Description: "Fix spelling mistakes in the tooltips", DueDate: due(1), Category: models.CategoryBug, Status: models.StatusDone, Priority: models.PriorityLow},
		{Title: "Dark theme", Description: "Add a dark colour scheme", DueDate: due(7), Category: models.CategoryFeature, Status: models.StatusInProgress, Priority: models.PriorityHigh},
		{Title: "Export tasks to PDF", Description: "Let users download their task list", DueDate: due(14), Category: models.CategoryFeature, Status: models.StatusTodo, Priority: models.PriorityMedium},
		{Title: "Email notifications", Description: "Notify about approaching due dates", Category: models.CategoryFeature, Status: models.StatusDone, Priority: models.PriorityLow},
		{Title: "API documentation", Description: "Describe every endpoint", DueDate: due(10), Category: models.CategoryDocumentation, Status: models.StatusTodo, Priority: models.PriorityMedium},
		{Title: "User guide", Description: "Write a getting started guide", Category: models.CategoryDocumentation, Status: models.StatusInProgress, Priority: models.PriorityLow},
		{Title: "Optimise list rendering", Description: "Avoid re-rendering unchanged rows", DueDate: due(5), Category: models.CategoryRefactor, Status: models.StatusTodo, Priority: models.PriorityHigh},
		{Title: "Unify styles", Description: "Move shared colours into one place", Category: models.CategoryRefactor, Status: models.StatusDone, Priority: models.PriorityMedium},
	}
}
