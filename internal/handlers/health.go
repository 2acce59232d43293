package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type healthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Cache       string `json:"cache"`
	Connections int    `json:"connections"`
	Environment string `json:"environment"`
}

func (h HandlerSet) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:      "ok",
		Database:    "ok",
		Cache:       "disabled",
		Connections: h.hub.Count(),
		Environment: h.cfg.Environment,
	}
	code := http.StatusOK

	if err := h.store.Ping(ctx); err != nil {
		resp.Status, resp.Database = "degraded", "error"
		code = http.StatusServiceUnavailable
		h.log.Error().Err(err).Msg("database ping failed")
	}

	if h.cache != nil {
		resp.Cache = "ok"
		if err := h.cache.Ping(ctx).Err(); err != nil {
			resp.Status, resp.Cache = "degraded", "error"
			code = http.StatusServiceUnavailable
			h.log.Error().Err(err).Msg("redis ping failed")
		}
	}

	c.JSON(code, resp)
}
