package devapi

import (
	"slices"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/tgienger/tasksync/internal/models"
)

func owner(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDKey).(string)
	return id
}

// newTask must be called with s.mu held
func (s *Server) newTask(d models.TaskDraft) models.Task {
	now := s.now()
	return models.Task{
		ID:          uuid.NewString(),
		Title:       d.Title,
		Description: d.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
		DueDate:     d.DueDate,
		Category:    d.Category,
		Status:      d.Status,
		Priority:    d.Priority,
	}
}

func indexOf(tasks []models.Task, id string) int {
	return slices.IndexFunc(tasks, func(t models.Task) bool { return t.ID == id })
}

func (s *Server) listTasks(c *fiber.Ctx) error {
	s.mu.Lock()
	tasks := slices.Clone(s.tasks[owner(c)])
	s.mu.Unlock()
	if tasks == nil {
		tasks = []models.Task{}
	}
	return c.JSON(tasks)
}

func (s *Server) getTask(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := s.tasks[owner(c)]
	i := indexOf(tasks, c.Params("id"))
	if i < 0 {
		return reply(c, fiber.StatusNotFound, "not_found", "task not found")
	}
	return c.JSON(tasks[i])
}

func (s *Server) createTask(c *fiber.Ctx) error {
	var d models.TaskDraft
	if err := c.BodyParser(&d); err != nil {
		return reply(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	if err := d.Validate(); err != nil {
		return reply(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}

	s.mu.Lock()
	t := s.newTask(d)
	s.tasks[owner(c)] = append(s.tasks[owner(c)], t)
	s.mu.Unlock()
	return c.Status(fiber.StatusCreated).JSON(t)
}

func (s *Server) createManyTasks(c *fiber.Ctx) error {
	var drafts []models.TaskDraft
	if err := c.BodyParser(&drafts); err != nil {
		return reply(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	for _, d := range drafts {
		if err := d.Validate(); err != nil {
			return reply(c, fiber.StatusBadRequest, "bad_request", err.Error())
		}
	}

	s.mu.Lock()
	for _, d := range drafts {
		s.tasks[owner(c)] = append(s.tasks[owner(c)], s.newTask(d))
	}
	s.mu.Unlock()
	return c.SendStatus(fiber.StatusCreated)
}

func (s *Server) updateTask(c *fiber.Ctx) error {
	var in models.Task
	if err := c.BodyParser(&in); err != nil {
		return reply(c, fiber.StatusBadRequest, "bad_request", "invalid request body")
	}
	if err := in.Draft().Validate(); err != nil {
		return reply(c, fiber.StatusBadRequest, "bad_request", err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := s.tasks[owner(c)]
	i := indexOf(tasks, c.Params("id"))
	if i < 0 {
		return reply(c, fiber.StatusNotFound, "not_found", "task not found")
	}

	prev := tasks[i]
	in.ID = prev.ID
	in.CreatedAt = prev.CreatedAt
	in.UpdatedAt = s.now()
	if in.UpdatedAt.Before(prev.UpdatedAt) {
		in.UpdatedAt = prev.UpdatedAt
	}
	tasks[i] = in
	return c.JSON(in)
}

func (s *Server) deleteTask(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tasks := s.tasks[owner(c)]
	i := indexOf(tasks, c.Params("id"))
	if i < 0 {
		return reply(c, fiber.StatusNotFound, "not_found", "task not found")
	}
	s.tasks[owner(c)] = slices.Delete(slices.Clone(tasks), i, i+1)
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) deleteAllTasks(c *fiber.Ctx) error {
	s.mu.Lock()
	delete(s.tasks, owner(c))
	s.mu.Unlock()
	return c.SendStatus(fiber.StatusNoContent)
}
