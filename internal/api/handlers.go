package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"script2vid/internal/app"
	"script2vid/internal/app/model"
)

type VideoService interface {
	Submit(ctx context.Context, in model.SubmitInput) (*model.VideoRecord, error)
	Get(ctx context.Context, id string) (*model.VideoRecord, error)
}

type envelope struct {
	Success   bool               `json:"success"`
	VideoData *model.VideoRecord `json:"videoData,omitempty"`
	Error     string             `json:"error,omitempty"`
}

type handlers struct {
	service VideoService
	now     func() time.Time
}

func (h *handlers) generateVideo(c *gin.Context) {
	var in model.SubmitInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, envelope{Error: "invalid request body: " + err.Error()})
		return
	}

	rec, err := h.service.Submit(c.Request.Context(), in)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			_ = c.Error(err)
		}
		c.JSON(status, envelope{Error: err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, envelope{Success: true, VideoData: rec})
}

func (h *handlers) getVideo(c *gin.Context) {
	rec, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			_ = c.Error(err)
		}
		c.JSON(status, envelope{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, envelope{Success: true, VideoData: rec})
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrQueueFull), errors.Is(err, app.ErrPoolClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
