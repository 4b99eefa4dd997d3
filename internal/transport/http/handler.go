package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"transaction-processor/internal/model"
	"transaction-processor/internal/queue"
	"transaction-processor/internal/repo"
	"transaction-processor/internal/service"
)

// StatusReader reports a task's lifecycle state.
type StatusReader interface {
	Get(ctx context.Context, taskID string) (model.TaskStatus, error)
}

func RegisterHandlers(r *gin.Engine, submitter *service.Submitter, status StatusReader) {
	r.POST("/submit", submitHandler(submitter))
	r.GET("/task_status/:task_id", taskStatusHandler(status))
}

func submitHandler(submitter *service.Submitter) gin.HandlerFunc {
	return func(c *gin.Context) {
		var raw service.RawSubmission
		if err := c.ShouldBindJSON(&raw); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		taskID, err := submitter.Submit(c.Request.Context(), raw)
		if err != nil {
			writeSubmitError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message": "Transaction stored successfully!",
			"task_id": taskID,
		})
	}
}

func writeSubmitError(c *gin.Context, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		switch verr.Reason {
		case service.MissingField:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing field: " + verr.Field})
		case service.BadTimestamp:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid timestamp format"})
		case service.BadAmount:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be a positive number"})
		}
		return
	}
	if errors.Is(err, queue.ErrUnavailable) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enqueue task"})
		return
	}
	if errors.Is(err, repo.ErrUnavailable) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store data"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store data"})
}

// taskStatusHandler mirrors the result-backend record: PENDING and
// STARTED carry state+status, FAILURE carries the error string as status,
// SUCCESS additionally carries the result. Unknown ids report PENDING.
func taskStatusHandler(status StatusReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		st, err := status.Get(c.Request.Context(), c.Param("task_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read task status"})
			return
		}
		c.JSON(http.StatusOK, st)
	}
}
