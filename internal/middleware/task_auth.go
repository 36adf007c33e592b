package middleware

import (
	"context"
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskmaster/internal/constants"
	apierrors "github.com/yukikurage/taskmaster/internal/errors"
	"github.com/yukikurage/taskmaster/internal/models"
	"github.com/yukikurage/taskmaster/internal/services"
)

// TaskGetter loads a task scoped to its owner
type TaskGetter interface {
	GetTask(ctx context.Context, ownerID, taskID uint64) (*models.Task, error)
}

// RequireTaskAccess loads the task named by the :id parameter if the current user owns it
func RequireTaskAccess(tasks TaskGetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid task ID")
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			return
		}

		task, err := tasks.GetTask(c.Request.Context(), userID, taskID)
		if err != nil {
			// Tasks of other users are reported as missing
			if errors.Is(err, services.ErrTaskNotFound) {
				apierrors.NotFound(c, "Task not found")
				return
			}
			apierrors.InternalError(c, "Failed to load task")
			return
		}

		c.Set(constants.ContextKeyTask, task)
		c.Next()
	}
}

// GetTask returns the task stored by RequireTaskAccess
func GetTask(c *gin.Context) (*models.Task, bool) {
	value, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return nil, false
	}
	task, ok := value.(*models.Task)
	return task, ok
}
