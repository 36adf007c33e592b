package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yukikurage/taskmaster/internal/constants"
	"github.com/yukikurage/taskmaster/internal/models"
	"github.com/yukikurage/taskmaster/internal/repository"
	"github.com/yukikurage/taskmaster/internal/utils"
)

var (
	ErrTaskNotFound           = errors.New("task not found")
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
	ErrAINoValidTasks         = errors.New("no valid tasks could be created from AI output")
)

// Dashboard status and sort values
const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
	SortDue         = "due"
	SortPriority    = "priority"
)

// DueDatePolicy decides what happens to due date text that cannot be parsed
type DueDatePolicy int

const (
	// DueDateStrict rejects the operation with ErrInvalidDate (web form)
	DueDateStrict DueDatePolicy = iota
	// DueDateLenient ignores the text and leaves the due date as it was (JSON API)
	DueDateLenient
)

// DueDateAction is what an update does to the stored due date
type DueDateAction int

const (
	DueDateKeep DueDateAction = iota
	DueDateClear
	DueDateSet
)

// DueDateChange describes an update to the due date
type DueDateChange struct {
	Action DueDateAction
	Text   string
}

// FormDueDate is the full-form edit rule: empty text clears the due date
func FormDueDate(text string) DueDateChange {
	if strings.TrimSpace(text) == "" {
		return DueDateChange{Action: DueDateClear}
	}
	return DueDateChange{Action: DueDateSet, Text: text}
}

// CategoryCache caches the per-owner category list shown on the dashboard
type CategoryCache interface {
	GetCategories(ctx context.Context, ownerID uint64) ([]string, bool, error)
	SetCategories(ctx context.Context, ownerID uint64, categories []string) error
	InvalidateCategories(ctx context.Context, ownerID uint64) error
}

// TaskServiceConfig holds optional collaborators and settings of TaskService
type TaskServiceConfig struct {
	PerPage    int
	Location   *time.Location
	Categories CategoryCache
	AI         *AIService
	Now        func() time.Time
}

// TaskService handles task business logic
type TaskService struct {
	taskRepo   repository.TaskRepository
	categories CategoryCache
	aiService  *AIService
	perPage    int
	location   *time.Location
	now        func() time.Time
}

// NewTaskService creates a new TaskService
func NewTaskService(taskRepo repository.TaskRepository, cfg TaskServiceConfig) *TaskService {
	s := &TaskService{
		taskRepo:   taskRepo,
		categories: cfg.Categories,
		aiService:  cfg.AI,
		perPage:    cfg.PerPage,
		location:   cfg.Location,
		now:        cfg.Now,
	}
	if s.perPage <= 0 {
		s.perPage = constants.DefaultPageSize
	}
	if s.location == nil {
		s.location = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// PerPage returns the dashboard page size
func (s *TaskService) PerPage() int {
	return s.perPage
}

// Location returns the zone due dates without an offset are read in
func (s *TaskService) Location() *time.Location {
	return s.location
}

// DashboardQuery represents the dashboard query parameters
type DashboardQuery struct {
	OwnerID  uint64
	Text     string
	Category string
	Status   string
	Sort     string
	Page     int
}

// DashboardPage is one page of the owner's filtered and sorted tasks
type DashboardPage struct {
	Tasks      []models.Task
	Total      int64
	Page       int
	PerPage    int
	TotalPages int
	Query      string
	Category   string
	Status     string
	Sort       string
	Categories []string
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	OwnerID       uint64
	Title         string
	Description   string
	Category      string
	Priority      string
	DueDateText   string
	Reminder      bool
	DueDatePolicy DueDatePolicy
}

// UpdateTaskInput represents input for updating a task. Nil fields are left unchanged.
type UpdateTaskInput struct {
	OwnerID       uint64
	TaskID        uint64
	Title         *string
	Description   *string
	Category      *string
	Priority      *string
	Reminder      *bool
	Completed     *bool
	DueDate       DueDateChange
	DueDatePolicy DueDatePolicy
}

// GenerateTasksInput represents input for AI task generation
type GenerateTasksInput struct {
	Text    string
	OwnerID uint64
}

// ParseStatus maps the status filter to a completion value; unknown values select all tasks.
// Matching is exact, so "Completed" counts as unknown.
func ParseStatus(status string) (*bool, string) {
	switch status {
	case StatusCompleted:
		completed := true
		return &completed, StatusCompleted
	case StatusPending:
		completed := false
		return &completed, StatusPending
	default:
		return nil, ""
	}
}

// ParseSort maps the sort key; anything other than exactly "due" sorts by priority
func ParseSort(sort string) (repository.TaskSort, string) {
	if sort == SortDue {
		return repository.SortByDueDate, SortDue
	}
	return repository.SortByPriority, SortPriority
}

// Dashboard builds the filtered, sorted and paginated view of an owner's tasks.
// Invalid filter values are ignored rather than rejected.
func (s *TaskService) Dashboard(ctx context.Context, query DashboardQuery) (*DashboardPage, error) {
	completed, status := ParseStatus(query.Status)
	sortKey, sortName := ParseSort(query.Sort)
	params := utils.NewPaginationParams(query.Page, s.perPage)

	filter := repository.TaskFilter{
		OwnerID:   query.OwnerID,
		Text:      strings.TrimSpace(query.Text),
		Category:  strings.TrimSpace(query.Category),
		Completed: completed,
		Sort:      sortKey,
		Page:      params.Page,
		PageSize:  params.Limit,
	}

	tasks, total, err := s.taskRepo.FindByOwner(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	categories, err := s.Categories(ctx, query.OwnerID)
	if err != nil {
		return nil, err
	}

	return &DashboardPage{
		Tasks:      tasks,
		Total:      total,
		Page:       params.Page,
		PerPage:    params.Limit,
		TotalPages: utils.TotalPages(total, params.Limit),
		Query:      filter.Text,
		Category:   filter.Category,
		Status:     status,
		Sort:       sortName,
		Categories: categories,
	}, nil
}

// ListAll returns every task of the owner in creation order
func (s *TaskService) ListAll(ctx context.Context, ownerID uint64) ([]models.Task, error) {
	tasks, _, err := s.taskRepo.FindByOwner(ctx, repository.TaskFilter{
		OwnerID: ownerID,
		Sort:    repository.SortByCreated,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// Categories returns the owner's distinct categories, read through the cache when configured
func (s *TaskService) Categories(ctx context.Context, ownerID uint64) ([]string, error) {
	if s.categories != nil {
		cached, found, err := s.categories.GetCategories(ctx, ownerID)
		if err != nil {
			log.Printf("category cache read failed for user %d: %v", ownerID, err)
		} else if found {
			return cached, nil
		}
	}

	categories, err := s.taskRepo.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	if s.categories != nil {
		if err := s.categories.SetCategories(ctx, ownerID, categories); err != nil {
			log.Printf("category cache write failed for user %d: %v", ownerID, err)
		}
	}
	return categories, nil
}

// GetTask returns a task owned by ownerID
func (s *TaskService) GetTask(ctx context.Context, ownerID, taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, ownerID, taskID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	return task, nil
}

// CreateTask validates the input and stores a new task
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput) (*models.Task, error) {
	fields, err := NormalizeTaskFields(input.Title, input.Description, input.Category, input.Priority)
	if err != nil {
		return nil, err
	}

	dueDate, err := ParseDueDate(input.DueDateText, s.location)
	if err != nil {
		if input.DueDatePolicy == DueDateStrict {
			return nil, err
		}
		dueDate = nil
	}

	task := &models.Task{
		Title:       fields.Title,
		Description: fields.Description,
		Category:    fields.Category,
		Priority:    fields.Priority,
		DueDate:     dueDate,
		Reminder:    input.Reminder,
		Completed:   false,
		UserID:      input.OwnerID,
	}

	if err := s.taskRepo.Save(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.invalidateCategories(ctx, input.OwnerID)
	return task, nil
}

// UpdateTask applies the supplied fields to a task owned by input.OwnerID
func (s *TaskService) UpdateTask(ctx context.Context, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.GetTask(ctx, input.OwnerID, input.TaskID)
	if err != nil {
		return nil, err
	}

	title, description, category, priority := task.Title, task.Description, task.Category, string(task.Priority)
	if input.Title != nil {
		title = *input.Title
	}
	if input.Description != nil {
		description = *input.Description
	}
	if input.Category != nil {
		category = *input.Category
	}
	if input.Priority != nil {
		priority = *input.Priority
	}

	fields, err := NormalizeTaskFields(title, description, category, priority)
	if err != nil {
		return nil, err
	}

	switch input.DueDate.Action {
	case DueDateClear:
		task.DueDate = nil
	case DueDateSet:
		dueDate, err := ParseDueDate(input.DueDate.Text, s.location)
		switch {
		case err == nil:
			task.DueDate = dueDate
		case input.DueDatePolicy == DueDateStrict:
			return nil, err
		}
	}

	task.Title = fields.Title
	task.Description = fields.Description
	task.Category = fields.Category
	task.Priority = fields.Priority
	if input.Reminder != nil {
		task.Reminder = *input.Reminder
	}
	if input.Completed != nil {
		task.Completed = *input.Completed
	}

	if err := s.save(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	return task, nil
}

// DeleteTask removes a task owned by ownerID
func (s *TaskService) DeleteTask(ctx context.Context, ownerID, taskID uint64) error {
	if err := s.taskRepo.Delete(ctx, ownerID, taskID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.invalidateCategories(ctx, ownerID)
	return nil
}

// ToggleComplete flips the completion state of a task owned by ownerID
func (s *TaskService) ToggleComplete(ctx context.Context, ownerID, taskID uint64) (*models.Task, error) {
	task, err := s.GetTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	task.Completed = !task.Completed

	if err := s.save(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to toggle task: %w", err)
	}

	return task, nil
}

// GenerateTasks uses AI to suggest tasks from text. Suggestions are not stored.
func (s *TaskService) GenerateTasks(ctx context.Context, input GenerateTasksInput) ([]GeneratedTask, error) {
	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}

	aiTasks, err := s.aiService.GenerateTasksFromText(ctx, input.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(aiTasks) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(aiTasks) > constants.MaxAIGeneratedTasks {
		return nil, fmt.Errorf("AI generated too many tasks (max %d)", constants.MaxAIGeneratedTasks)
	}

	validTasks := make([]GeneratedTask, 0, len(aiTasks))
	cutoff := s.now().Add(-24 * time.Hour)
	for _, aiTask := range aiTasks {
		priority := aiTask.Priority
		if _, ok := models.ParsePriority(priority); !ok {
			priority = ""
		}

		fields, err := NormalizeTaskFields(aiTask.Title, aiTask.Description, aiTask.Category, priority)
		if err != nil {
			continue
		}

		if aiTask.DueDate != nil && aiTask.DueDate.Before(cutoff) {
			aiTask.DueDate = nil
		}

		validTasks = append(validTasks, GeneratedTask{
			Title:       fields.Title,
			Description: fields.Description,
			Category:    fields.Category,
			Priority:    string(fields.Priority),
			DueDate:     aiTask.DueDate,
		})
	}

	if len(validTasks) == 0 {
		return nil, ErrAINoValidTasks
	}

	return validTasks, nil
}

// save stores the task; GORM refreshes updated_at
func (s *TaskService) save(ctx context.Context, task *models.Task) error {
	if err := s.taskRepo.Save(ctx, task); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTaskNotFound
		}
		return err
	}

	s.invalidateCategories(ctx, task.UserID)
	return nil
}

func (s *TaskService) invalidateCategories(ctx context.Context, ownerID uint64) {
	if s.categories == nil {
		return
	}
	if err := s.categories.InvalidateCategories(ctx, ownerID); err != nil {
		log.Printf("category cache invalidation failed for user %d: %v", ownerID, err)
	}
}
