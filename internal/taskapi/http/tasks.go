package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskman/internal/taskapi/domain"
	"taskman/internal/taskapi/usecase"
)

type taskRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"due_date"`
	Completed   bool      `json:"completed"`
}

type taskResponse struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	DueDate     time.Time `json:"due_date"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toTaskResponse(t domain.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		DueDate:     t.DueDate,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (s *Server) handleCreateTask(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	task, err := s.tasks.Create(c.Request.Context(), principal.Subject, usecase.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toTaskResponse(task))
}

func (s *Server) handleListTasks(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	tasks, err := s.tasks.List(c.Request.Context(), principal.Subject)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	c.JSON(http.StatusOK, gin.H{"tasks": out})
}

func (s *Server) handleGetTask(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	task, err := s.tasks.Get(c.Request.Context(), principal.Subject, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task))
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_JSON", "invalid json")
		return
	}
	task, err := s.tasks.Update(c.Request.Context(), principal.Subject, c.Param("id"), usecase.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Completed:   req.Completed,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task))
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	if err := s.tasks.Delete(c.Request.Context(), principal.Subject, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleToggleTask(c *gin.Context) {
	principal, ok := getPrincipal(c)
	if !ok {
		writeError(c, domain.ErrUnauthorized)
		return
	}
	task, err := s.tasks.Toggle(c.Request.Context(), principal.Subject, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toTaskResponse(task))
}
