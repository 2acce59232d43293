package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/service"
)

type foundItemRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Location    string  `json:"location"`
	Contact     string  `json:"contact"`
	DateFound   string  `json:"date_found"`
}

func (h HandlerSet) CreateFoundItem(c *gin.Context) {
	var req foundItemRequest
	if !h.bind(c, &req) {
		return
	}

	item, err := h.items.CreateFoundItem(c.Request.Context(), service.CreateItemInput{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		Contact:     req.Contact,
		Date:        req.DateFound,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Found item added.", "item": item})
}

type lostItemRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Location    string  `json:"location"`
	Contact     string  `json:"contact"`
	DateLost    string  `json:"date_lost"`
}

func (h HandlerSet) CreateLostItem(c *gin.Context) {
	var req lostItemRequest
	if !h.bind(c, &req) {
		return
	}

	item, err := h.items.CreateLostItem(c.Request.Context(), service.CreateItemInput{
		Name:        req.Name,
		Description: req.Description,
		Location:    req.Location,
		Contact:     req.Contact,
		Date:        req.DateLost,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Lost item added.", "item": item})
}

func (h HandlerSet) ListFoundItems(c *gin.Context) {
	items, err := h.items.ListFoundLive(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) ListLostItems(c *gin.Context) {
	items, err := h.items.ListLostLive(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) ListArchive(c *gin.Context) {
	items, err := h.items.ListArchive(c.Request.Context(), c.Query("type"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h HandlerSet) MarkClaimed(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	item, err := h.items.MarkClaimed(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item marked as claimed.", "item": item})
}

func (h HandlerSet) MarkFound(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	item, err := h.items.MarkFound(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item marked as found.", "item": item})
}

func (h HandlerSet) MarkExpired(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	hint, ok := h.itemTypeHint(c)
	if !ok {
		return
	}

	result, err := h.items.MarkExpired(c.Request.Context(), id, hint)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Item marked as expired.",
		"item":     result.Item,
		"itemType": result.ItemType,
	})
}

func (h HandlerSet) DeleteItem(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	hint, ok := h.itemTypeHint(c)
	if !ok {
		return
	}

	ref, err := h.items.Delete(c.Request.Context(), id, hint)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Item deleted.", "id": ref.ID, "itemType": ref.Kind})
}
