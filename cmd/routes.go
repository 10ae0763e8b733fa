package cmd

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/luma/esl/client"
	"github.com/luma/esl/protocol"
	"github.com/luma/esl/storage"
)

// switchAPI is the part of *client.Client the HTTP bridge drives.
type switchAPI interface {
	API(ctx context.Context, command string) (*protocol.Response, error)
	BgAPIJob(ctx context.Context, command string) (string, *protocol.Response, error)
	Status() client.Status
}

type droppedCounter interface {
	Dropped() uint64
}

type commandRequest struct {
	Command string `json:"command" binding:"required"`
}

func registerRoutes(r *gin.Engine, api switchAPI, events droppedCounter, store storage.Store) {
	// Ping test
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	r.GET("/status", func(c *gin.Context) {
		st := api.Status()

		body := gin.H{
			"state":   st.State.String(),
			"dropped": events.Dropped(),
		}

		if st.State == client.StateDisconnected {
			body["reason"] = st.Reason.String()
			if st.Err != nil {
				body["error"] = st.Err.Error()
			}
		}

		c.JSON(http.StatusOK, body)
	})

	r.POST("/api", func(c *gin.Context) {
		var req commandRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		resp, err := api.API(c.Request.Context(), req.Command)
		if err != nil {
			commandError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"body": resp.Body})
	})

	r.POST("/bgapi", func(c *gin.Context) {
		var req commandRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		jobUUID, _, err := api.BgAPIJob(c.Request.Context(), req.Command)
		if err != nil {
			commandError(c, err)
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"jobUUID": jobUUID})
	})

	r.GET("/channels", func(c *gin.Context) {
		uuids, err := store.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"channels": uuids})
	})

	r.GET("/channels/:uuid", func(c *gin.Context) {
		channel, err := store.Get(c.Request.Context(), c.Param("uuid"))
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}

		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.Data(http.StatusOK, "application/json; charset=utf-8", channel)
	})
}

// commandError maps client errors onto HTTP statuses.
func commandError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, protocol.ErrCommandFailed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, protocol.ErrTimeout):
		status = http.StatusGatewayTimeout
	case protocol.IsConnectionError(err):
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
