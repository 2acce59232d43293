package handlers

import (
	"errors"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/apperr"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/middleware"
	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/models"
)

var errBadBody = apperr.Validation("invalid_body", "request body must be valid JSON")

// respondError writes err as {"error","code"}. Internal causes are only logged.
func (h HandlerSet) respondError(c *gin.Context, err error) {
	appErr := apperr.From(err)
	if appErr.Kind == apperr.KindInternal {
		h.log.Error().
			Err(appErr.Err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("request_id", middleware.RequestIDFrom(c)).
			Msg("request failed")
	}
	c.AbortWithStatusJSON(appErr.Kind.HTTPStatus(), appErr.Body())
}

func (h HandlerSet) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.respondError(c, errBadBody)
		return false
	}
	return true
}

func (h HandlerSet) identity(c *gin.Context) (models.Identity, bool) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		h.respondError(c, apperr.Unauthorized("missing_token", "authentication required"))
	}
	return identity, ok
}

func (h HandlerSet) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.respondError(c, apperr.Validation("invalid_id", "id must be a positive integer"))
		return 0, false
	}
	return id, true
}

type itemTypeBody struct {
	ItemType string `json:"itemType"`
}

// itemTypeHint reads an optional itemType from the query or JSON body.
// An empty body is fine; an unknown type is not.
func (h HandlerSet) itemTypeHint(c *gin.Context) (*models.ItemKind, bool) {
	raw := c.Query("itemType")
	if raw == "" && c.Request.Body != nil {
		var body itemTypeBody
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			h.respondError(c, errBadBody)
			return nil, false
		}
		raw = body.ItemType
	}
	if raw == "" {
		return nil, true
	}
	kind, ok := models.ParseItemKind(raw)
	if !ok {
		h.respondError(c, apperr.Validation("invalid_item_type", "itemType must be found or lost"))
		return nil, false
	}
	return &kind, true
}
