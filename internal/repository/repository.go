package repository

import (
	"context"
	"errors"

	"github.com/yukikurage/taskmaster/internal/models"
)

// ErrNotFound is returned when no row matches, including rows owned by another user.
var ErrNotFound = errors.New("record not found")

// TaskSort selects the ordering applied by FindByOwner
type TaskSort int

const (
	// SortByPriority orders by priority rank, then due date with undated last
	SortByPriority TaskSort = iota
	// SortByDueDate orders by due date with undated last
	SortByDueDate
	// SortByCreated orders by insertion
	SortByCreated
)

// TaskFilter holds filtering options for listing an owner's tasks
type TaskFilter struct {
	OwnerID   uint64
	Text      string
	Category  string
	Completed *bool
	Sort      TaskSort
	Page      int
	PageSize  int
}

// TaskRepository defines the interface for task data access.
// Every lookup is scoped to an owner.
type TaskRepository interface {
	// Save inserts a new task or updates an existing one
	Save(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID owned by ownerID
	FindByID(ctx context.Context, ownerID, id uint64) (*models.Task, error)

	// FindByOwner retrieves filtered, sorted and paginated tasks plus the filtered total
	FindByOwner(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Delete removes a task owned by ownerID
	Delete(ctx context.Context, ownerID, id uint64) error

	// ListCategories returns the owner's distinct categories in alphabetical order
	ListCategories(ctx context.Context, ownerID uint64) ([]string, error)
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByEmail finds a user by lower-cased email
	FindByEmail(ctx context.Context, email string) (*models.User, error)
}
