package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskmaster/internal/dto"
	apierrors "github.com/yukikurage/taskmaster/internal/errors"
	"github.com/yukikurage/taskmaster/internal/middleware"
	"github.com/yukikurage/taskmaster/internal/services"
	"github.com/yukikurage/taskmaster/internal/utils"
)

// TaskHandler serves the JSON task API used by sync clients
type TaskHandler struct {
	taskService *services.TaskService
}

func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns every task of the current user
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	tasks, err := h.taskService.ListAll(c.Request.Context(), userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTOs(tasks))
}

// Dashboard returns the filtered, sorted and paginated dashboard view
func (h *TaskHandler) Dashboard(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	page, err := h.taskService.Dashboard(c.Request.Context(), dashboardQuery(c, userID))
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToDashboardDTO(page))
}

// GetTask returns a specific task by ID
// Task is already loaded by RequireTaskAccess middleware
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// CreateTask creates a new task. Unparseable due dates are ignored.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type CreateTaskRequest struct {
		Title       string  `json:"title"`
		Description string  `json:"description"`
		Category    string  `json:"category"`
		Priority    string  `json:"priority"`
		DueDate     *string `json:"due_date"`
		Reminder    bool    `json:"reminder"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.CreateTaskInput{
		OwnerID:       userID,
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Priority:      req.Priority,
		Reminder:      req.Reminder,
		DueDatePolicy: services.DueDateLenient,
	}
	if req.DueDate != nil {
		input.DueDateText = *req.DueDate
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask applies a partial update to an existing task
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	// Parse raw JSON to detect which fields were sent
	var rawReq map[string]any
	if err := c.ShouldBindJSON(&rawReq); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateTaskInput{
		OwnerID:       task.UserID,
		TaskID:        task.ID,
		DueDatePolicy: services.DueDateLenient,
	}

	var err error
	if input.Title, err = optionalString(rawReq, "title"); err != nil {
		apierrors.ValidationFailed(c, "title", err.Error())
		return
	}
	if input.Description, err = optionalString(rawReq, "description"); err != nil {
		apierrors.ValidationFailed(c, "description", err.Error())
		return
	}
	if input.Category, err = optionalString(rawReq, "category"); err != nil {
		apierrors.ValidationFailed(c, "category", err.Error())
		return
	}
	if input.Priority, err = optionalString(rawReq, "priority"); err != nil {
		apierrors.ValidationFailed(c, "priority", err.Error())
		return
	}
	if input.Reminder, err = optionalBool(rawReq, "reminder"); err != nil {
		apierrors.ValidationFailed(c, "reminder", err.Error())
		return
	}
	if input.Completed, err = optionalBool(rawReq, "completed"); err != nil {
		apierrors.ValidationFailed(c, "completed", err.Error())
		return
	}

	// due_date: null clears, a non-empty string sets, anything else keeps
	if value, ok := rawReq["due_date"]; ok {
		switch v := value.(type) {
		case nil:
			input.DueDate = services.DueDateChange{Action: services.DueDateClear}
		case string:
			if v != "" {
				input.DueDate = services.DueDateChange{Action: services.DueDateSet, Text: v}
			}
		}
	}

	updated, err := h.taskService.UpdateTask(c.Request.Context(), input)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), task.UserID, task.ID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ToggleTask flips the completion state of a task
func (h *TaskHandler) ToggleTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	toggled, err := h.taskService.ToggleComplete(c.Request.Context(), task.UserID, task.ID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*toggled))
}

// GenerateTasks generates task suggestions from text using AI. Nothing is saved.
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "Not authenticated")
		return
	}

	type GenerateTasksRequest struct {
		Text string `json:"text" binding:"required"`
	}

	var req GenerateTasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	suggestions, err := h.taskService.GenerateTasks(c.Request.Context(), services.GenerateTasksInput{
		Text:    req.Text,
		OwnerID: userID,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": dto.ToSuggestedTaskDTOs(suggestions),
	})
}

func dashboardQuery(c *gin.Context, userID uint64) services.DashboardQuery {
	return services.DashboardQuery{
		OwnerID:  userID,
		Text:     c.Query("q"),
		Category: c.Query("category"),
		Status:   c.Query("status"),
		Sort:     c.Query("sort"),
		Page:     utils.GetPage(c),
	}
}

func optionalString(raw map[string]any, key string) (*string, error) {
	value, ok := raw[key]
	if !ok || value == nil {
		return nil, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("%s must be a string", key)
	}
	return &s, nil
}

func optionalBool(raw map[string]any, key string) (*bool, error) {
	value, ok := raw[key]
	if !ok || value == nil {
		return nil, nil
	}
	b, ok := value.(bool)
	if !ok {
		return nil, fmt.Errorf("%s must be a boolean", key)
	}
	return &b, nil
}

func respondTaskError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		apierrors.ValidationFailed(c, validationErr.Field, validationErr.Message)
	case errors.Is(err, services.ErrInvalidDate):
		apierrors.ValidationFailed(c, "due_date", services.ErrInvalidDate.Error())
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, "Task not found")
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, "AI service is not configured. Please set OPENAI_API_KEY environment variable.")
	case errors.Is(err, services.ErrAINoTasksGenerated), errors.Is(err, services.ErrAINoValidTasks):
		apierrors.RespondWithError(c, http.StatusUnprocessableEntity, apierrors.NewAPIError(apierrors.ErrCodeOperationFailed, err.Error()))
	default:
		c.Error(err)
		apierrors.InternalError(c, "")
	}
}
