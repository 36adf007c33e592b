package dto

import (
	"time"

	"github.com/yukikurage/taskmaster/internal/models"
	"github.com/yukikurage/taskmaster/internal/services"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// TaskDTO is the canonical task object exchanged with sync clients
type TaskDTO struct {
	ID          uint64     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	Reminder    bool       `json:"reminder"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	UserID      uint64     `json:"user_id"`
}

// DashboardDTO is the dashboard view-model in API responses
type DashboardDTO struct {
	Tasks      []TaskDTO `json:"tasks"`
	Page       int       `json:"page"`
	PerPage    int       `json:"per_page"`
	Total      int64     `json:"total"`
	TotalPages int       `json:"total_pages"`
	Query      string    `json:"q"`
	Category   string    `json:"category"`
	Status     string    `json:"status"`
	Sort       string    `json:"sort"`
	Categories []string  `json:"categories"`
}

// SuggestedTaskDTO represents an AI task suggestion that has not been saved
type SuggestedTaskDTO struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Category    string     `json:"category"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

// TokenDTO represents an issued bearer token
type TokenDTO struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	ExpiresIn   int64     `json:"expires_in"`
}

// Conversion functions

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
	}
}

// ToTaskDTO converts a Task model to TaskDTO. Timestamps are rendered in UTC.
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Category:    task.Category,
		Priority:    string(task.Priority),
		Reminder:    task.Reminder,
		Completed:   task.Completed,
		CreatedAt:   task.CreatedAt.UTC(),
		UserID:      task.UserID,
	}

	if task.DueDate != nil {
		due := task.DueDate.UTC()
		dto.DueDate = &due
	}
	if !task.UpdatedAt.IsZero() {
		updated := task.UpdatedAt.UTC()
		dto.UpdatedAt = &updated
	}

	return dto
}

// ToTaskDTOs converts a slice of tasks, never returning nil
func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}
	return items
}

// ToDashboardDTO converts a dashboard page to DashboardDTO
func ToDashboardDTO(page *services.DashboardPage) DashboardDTO {
	categories := page.Categories
	if categories == nil {
		categories = []string{}
	}

	return DashboardDTO{
		Tasks:      ToTaskDTOs(page.Tasks),
		Page:       page.Page,
		PerPage:    page.PerPage,
		Total:      page.Total,
		TotalPages: page.TotalPages,
		Query:      page.Query,
		Category:   page.Category,
		Status:     page.Status,
		Sort:       page.Sort,
		Categories: categories,
	}
}

// ToSuggestedTaskDTOs converts AI suggestions, never returning nil
func ToSuggestedTaskDTOs(tasks []services.GeneratedTask) []SuggestedTaskDTO {
	items := make([]SuggestedTaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = SuggestedTaskDTO{
			Title:       task.Title,
			Description: task.Description,
			Category:    task.Category,
			Priority:    task.Priority,
			DueDate:     task.DueDate,
		}
	}
	return items
}
