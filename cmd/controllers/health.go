package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const storePingTimeout = 2 * time.Second

// StorePinger checks the document store. A nil pinger reports the process only.
type StorePinger interface {
	Ping(ctx context.Context) error
}

type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store,omitempty"`
}

func RegisterHealthRoutes(router *gin.Engine, store StorePinger) error {
	if router == nil {
		return errors.New("router is nil")
	}

	router.GET("/health", HealthHandler(store))
	return nil
}

func HealthHandler(store StorePinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), storePingTimeout)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "degraded", Store: "unavailable"})
			return
		}
		c.JSON(http.StatusOK, HealthResponse{Status: "ok", Store: "ok"})
	}
}
