package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"taskman/internal/taskapi/domain"
)

type TaskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) Create(ctx context.Context, task domain.Task) error {
	model := taskModelFrom(task)
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *TaskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	var model taskModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	task := model.toDomain()
	return &task, nil
}

// ListByOwner filters in the query; foreign records never leave the store.
func (r *TaskRepository) ListByOwner(ctx context.Context, ownerID string) ([]domain.Task, error) {
	var models []taskModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("due_date asc, created_at asc").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	tasks := make([]domain.Task, 0, len(models))
	for _, m := range models {
		tasks = append(tasks, m.toDomain())
	}
	return tasks, nil
}

func (r *TaskRepository) Update(ctx context.Context, task domain.Task) error {
	model := taskModelFrom(task)
	res := r.db.WithContext(ctx).Model(&taskModel{}).Where("id = ?", task.ID).Updates(map[string]any{
		"title":       model.Title,
		"description": model.Description,
		"due_date":    model.DueDate,
		"completed":   model.Completed,
		"updated_at":  model.UpdatedAt,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *TaskRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&taskModel{}, "id = ?", id).Error
}
