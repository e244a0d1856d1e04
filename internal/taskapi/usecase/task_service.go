package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskman/internal/taskapi/domain"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 1000
)

// TaskService applies ownership enforcement around every single-record
// operation and owner filtering on list queries.
type TaskService struct {
	tasks  TaskRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewTaskService(tasks TaskRepository, logger *slog.Logger) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{tasks: tasks, logger: logger, now: time.Now}
}

type TaskInput struct {
	Title       string
	Description string
	DueDate     time.Time
	Completed   bool
}

func (s *TaskService) Create(ctx context.Context, subject string, input TaskInput) (domain.Task, error) {
	if subject == "" {
		return domain.Task{}, domain.ErrUnauthorized
	}
	if err := validateInput(input); err != nil {
		return domain.Task{}, err
	}
	now := s.now().UTC()
	task := domain.Task{
		ID:          uuid.NewString(),
		OwnerID:     subject,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		DueDate:     input.DueDate.UTC(),
		Completed:   false,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return domain.Task{}, fmt.Errorf("create task: %w", err)
	}
	s.logger.Info("task created", "task_id", task.ID, "owner_id", subject)
	return task, nil
}

// Get returns the task only to its owner; anyone else sees Forbidden and a
// missing id sees NotFound, never a silent filter.
func (s *TaskService) Get(ctx context.Context, subject, id string) (domain.Task, error) {
	task, err := s.authorize(ctx, subject, id)
	if err != nil {
		return domain.Task{}, err
	}
	return *task, nil
}

// List returns the subject's own tasks, ordered by due date. Other users'
// records are filtered in the store, not rejected here.
func (s *TaskService) List(ctx context.Context, subject string) ([]domain.Task, error) {
	if subject == "" {
		return nil, domain.ErrUnauthorized
	}
	tasks, err := s.tasks.ListByOwner(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *TaskService) Update(ctx context.Context, subject, id string, input TaskInput) (domain.Task, error) {
	task, err := s.authorize(ctx, subject, id)
	if err != nil {
		return domain.Task{}, err
	}
	if err := validateInput(input); err != nil {
		return domain.Task{}, err
	}
	task.Title = strings.TrimSpace(input.Title)
	task.Description = strings.TrimSpace(input.Description)
	task.DueDate = input.DueDate.UTC()
	task.Completed = input.Completed
	task.UpdatedAt = s.now().UTC()
	if err := s.tasks.Update(ctx, *task); err != nil {
		return domain.Task{}, fmt.Errorf("update task: %w", err)
	}
	return *task, nil
}

func (s *TaskService) Delete(ctx context.Context, subject, id string) error {
	task, err := s.authorize(ctx, subject, id)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, task.ID); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	s.logger.Info("task deleted", "task_id", task.ID, "owner_id", subject)
	return nil
}

// Toggle flips the completion flag.
func (s *TaskService) Toggle(ctx context.Context, subject, id string) (domain.Task, error) {
	task, err := s.authorize(ctx, subject, id)
	if err != nil {
		return domain.Task{}, err
	}
	task.Completed = !task.Completed
	task.UpdatedAt = s.now().UTC()
	if err := s.tasks.Update(ctx, *task); err != nil {
		return domain.Task{}, fmt.Errorf("toggle task: %w", err)
	}
	return *task, nil
}

func (s *TaskService) authorize(ctx context.Context, subject, id string) (*domain.Task, error) {
	if subject == "" {
		return nil, domain.ErrUnauthorized
	}
	if id == "" {
		return nil, domain.ErrInvalidArgument
	}
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	switch domain.AuthorizeOwner(subject, task) {
	case domain.DecisionNotFound:
		return nil, domain.ErrNotFound
	case domain.DecisionForbidden:
		s.logger.Warn("ownership check failed", "task_id", id, "subject", subject, "owner_id", task.OwnerID)
		return nil, domain.ErrForbidden
	}
	return task, nil
}

func validateInput(input TaskInput) error {
	title := strings.TrimSpace(input.Title)
	if title == "" || len(title) > maxTitleLen {
		return domain.ErrInvalidArgument
	}
	if len(input.Description) > maxDescriptionLen {
		return domain.ErrInvalidArgument
	}
	if input.DueDate.IsZero() {
		return domain.ErrInvalidArgument
	}
	return nil
}
