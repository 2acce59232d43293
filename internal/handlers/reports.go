package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AdeptusCodicus/LPU-Lost-and-Found/internal/service"
)

func (h HandlerSet) SubmitReport(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	var req service.SubmitReportInput
	if !h.bind(c, &req) {
		return
	}

	report, err := h.reports.SubmitReport(c.Request.Context(), identity, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Report submitted and pending review.", "report": report})
}

func (h HandlerSet) MyReports(c *gin.Context) {
	identity, ok := h.identity(c)
	if !ok {
		return
	}
	reports, err := h.reports.ListMyReports(c.Request.Context(), identity)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (h HandlerSet) AdminListReports(c *gin.Context) {
	reports, err := h.reports.ListReports(c.Request.Context(), c.Query("status"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (h HandlerSet) ApproveReport(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	result, err := h.reports.Approve(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Report approved.",
		"report":   result.Report,
		"item":     result.Item,
		"itemType": result.ItemType,
	})
}

func (h HandlerSet) RejectReport(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	report, err := h.reports.Reject(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Report rejected.", "report": report})
}
