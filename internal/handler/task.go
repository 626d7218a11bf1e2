package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/avelkov/task-manager/internal/model"
	"github.com/avelkov/task-manager/internal/repository"
)

// TaskHandler exposes task CRUD over HTTP.  All routes sit behind the JWT
// middleware, so a user id is always available in the context.
type TaskHandler struct {
	Tasks *repository.TaskRepo
}

func NewTaskHandler(tasks *repository.TaskRepo) *TaskHandler {
	if tasks == nil {
		panic("nil repository passed to NewTaskHandler")
	}
	return &TaskHandler{Tasks: tasks}
}

// List returns every task.
func (h *TaskHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	tasks, err := h.Tasks.GetAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, messageResp{Message: "query failed"})
	}
	return c.JSON(http.StatusOK, tasks)
}

// Mine returns the tasks visible to the authenticated user: own tasks plus
// tasks of teams the user belongs to.
func (h *TaskHandler) Mine(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, messageResp{Message: "unauthorized"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	tasks, err := h.Tasks.ListVisibleToUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, messageResp{Message: "query failed"})
	}
	return c.JSON(http.StatusOK, tasks)
}

// Get returns a single task by id.
func (h *TaskHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, messageResp{Message: "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	t, err := h.Tasks.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return c.JSON(http.StatusNotFound, messageResp{Message: "task not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, messageResp{Message: "query failed"})
	}
	return c.JSON(http.StatusOK, t)
}

// Create inserts a task owned by the authenticated user.  A missing due
// date defaults to a week out.
func (h *TaskHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, messageResp{Message: "unauthorized"})
	}
	var t model.Task
	if err := c.Bind(&t); err != nil {
		return c.JSON(http.StatusBadRequest, messageResp{Message: "invalid body"})
	}
	if strings.TrimSpace(t.Title) == "" {
		return c.JSON(http.StatusBadRequest, messageResp{Message: "title is required"})
	}
	t.UserID = uid
	if t.DueDate.IsZero() {
		t.DueDate = time.Now().UTC().Add(7 * 24 * time.Hour)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Tasks.Create(ctx, &t); err != nil {
		return c.JSON(http.StatusInternalServerError, messageResp{Message: "create task failed"})
	}
	return c.JSON(http.StatusCreated, t)
}

// Update overwrites a task.  The path id must match the body id.
func (h *TaskHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, messageResp{Message: "invalid id"})
	}
	var t model.Task
	if err := c.Bind(&t); err != nil {
		return c.JSON(http.StatusBadRequest, messageResp{Message: "invalid body"})
	}
	if t.ID != 0 && t.ID != id {
		return c.JSON(http.StatusBadRequest, messageResp{Message: "id mismatch"})
	}
	t.ID = id

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Tasks.Update(ctx, &t); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, messageResp{Message: "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, messageResp{Message: "update task failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Delete removes a task by id.
func (h *TaskHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, messageResp{Message: "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Tasks.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return c.JSON(http.StatusNotFound, messageResp{Message: "task not found"})
		}
		return c.JSON(http.StatusInternalServerError, messageResp{Message: "delete task failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

func pathID(c echo.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), 5*time.Second)
}
