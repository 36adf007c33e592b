package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/taskmaster/internal/database"
	"github.com/yukikurage/taskmaster/internal/models"
	"github.com/yukikurage/taskmaster/internal/utils"
	"gorm.io/gorm"
)

const (
	dueDateNullsLast = "CASE WHEN tasks.due_date IS NULL THEN 1 ELSE 0 END, tasks.due_date ASC"
	likeEscape       = "!"
)

// priorityOrder ranks tasks.priority in SQL using the same ranks as models.Priority.Rank
var priorityOrder = buildPriorityOrder()

func buildPriorityOrder() string {
	var b strings.Builder
	b.WriteString("CASE tasks.priority")
	for _, p := range models.Priorities {
		fmt.Fprintf(&b, " WHEN '%s' THEN %d", p, p.Rank())
	}
	fmt.Fprintf(&b, " ELSE %d END", models.PriorityMedium.Rank())
	return b.String()
}

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Save inserts a new task or updates an existing one. Updating a row that no longer
// exists returns ErrNotFound instead of inserting it again.
func (r *GormTaskRepository) Save(ctx context.Context, task *models.Task) error {
	if task.ID == 0 {
		return r.db.WithContext(ctx).Omit("Owner").Create(task).Error
	}

	result := r.db.WithContext(ctx).
		Model(task).
		Select("*").
		Omit("Owner", "UserID", "CreatedAt").
		Where("user_id = ?", task.UserID).
		Updates(task)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindByID finds a task by ID owned by ownerID
func (r *GormTaskRepository) FindByID(ctx context.Context, ownerID, id uint64) (*models.Task, error) {
	var task models.Task
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &task, nil
}

// FindByOwner retrieves filtered, sorted and paginated tasks plus the filtered total
func (r *GormTaskRepository) FindByOwner(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := r.filtered(ctx, filter)
	switch filter.Sort {
	case SortByDueDate:
		listQuery = listQuery.Order(dueDateNullsLast)
	case SortByCreated:
	default:
		listQuery = listQuery.Order(priorityOrder).Order(dueDateNullsLast)
	}
	listQuery = listQuery.Order("tasks.id ASC")

	if filter.Page > 0 && filter.PageSize > 0 {
		params := utils.NewPaginationParams(filter.Page, filter.PageSize)
		if int64(params.Offset) >= total {
			return []models.Task{}, total, nil
		}
		listQuery = listQuery.Scopes(database.Paginate(params))
	}

	tasks := []models.Task{}
	if err := listQuery.Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// filtered builds a fresh query with the owner scope and the optional filters applied
func (r *GormTaskRepository) filtered(ctx context.Context, filter TaskFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Task{}).Where("tasks.user_id = ?", filter.OwnerID)

	if text := strings.TrimSpace(filter.Text); text != "" {
		pattern := "%" + escapeLike(strings.ToLower(text)) + "%"
		query = query.Where(
			"LOWER(tasks.title) LIKE ? ESCAPE '"+likeEscape+"' OR LOWER(tasks.description) LIKE ? ESCAPE '"+likeEscape+"'",
			pattern, pattern,
		)
	}
	if filter.Category != "" {
		query = query.Where("tasks.category = ?", filter.Category)
	}
	if filter.Completed != nil {
		query = query.Where("tasks.completed = ?", *filter.Completed)
	}

	return query
}

// Delete removes a task owned by ownerID
func (r *GormTaskRepository) Delete(ctx context.Context, ownerID, id uint64) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, ownerID).
		Delete(&models.Task{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCategories returns the owner's distinct categories in alphabetical order
func (r *GormTaskRepository) ListCategories(ctx context.Context, ownerID uint64) ([]string, error) {
	categories := []string{}
	err := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("user_id = ?", ownerID).
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error
	if err != nil {
		return nil, err
	}
	return categories, nil
}

// escapeLike makes LIKE wildcards in user input match literally
func escapeLike(s string) string {
	return strings.NewReplacer(
		likeEscape, likeEscape+likeEscape,
		"%", likeEscape+"%",
		"_", likeEscape+"_",
	).Replace(s)
}
