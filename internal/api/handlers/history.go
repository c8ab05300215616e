package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Conceptual-Machines/prompt-architect/internal/history"
	"github.com/Conceptual-Machines/prompt-architect/internal/logger"
)

const historyExportFilename = "suno-prompt-history.csv"

func (h *StudioHandler) History(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"entries": h.session(c).History()})
}

func (h *StudioHandler) ExportHistory(c *gin.Context) {
	entries := h.session(c).History()

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+historyExportFilename+`"`)
	c.Status(http.StatusOK)
	if err := history.WriteCSV(c.Writer, entries); err != nil {
		logger.Error("Failed to export history", err, logger.WithContext(c))
	}
}

func (h *StudioHandler) ReuseHistory(c *gin.Context) {
	v, ok := h.session(c).ReuseHistory(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, RestoreResponse{Restored: ok, View: v})
}

func (h *StudioHandler) ClearHistory(c *gin.Context) {
	c.JSON(http.StatusOK, h.session(c).ClearHistory(c.Request.Context()))
}
